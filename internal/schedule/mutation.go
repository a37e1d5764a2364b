package schedule

// Pending tracks unconfirmed mutations by key, remembering the value each
// key held before its optimistic change. It is not safe for concurrent
// use; the owner serializes access.
type Pending[K comparable, V any] struct {
	prior map[K]V
}

// NewPending returns an empty table.
func NewPending[K comparable, V any]() *Pending[K, V] {
	return &Pending[K, V]{prior: make(map[K]V)}
}

// Begin records prior for key. It fails with ErrMutationInFlight if key
// already has an outstanding mutation.
func (p *Pending[K, V]) Begin(key K, prior V) error {
	if _, ok := p.prior[key]; ok {
		return ErrMutationInFlight
	}
	p.prior[key] = prior
	return nil
}

// Commit discards the record for key, accepting the optimistic value.
func (p *Pending[K, V]) Commit(key K) {
	delete(p.prior, key)
}

// Revert discards the record for key and returns the value to restore.
func (p *Pending[K, V]) Revert(key K) (V, bool) {
	v, ok := p.prior[key]
	delete(p.prior, key)
	return v, ok
}

// InFlight reports whether key has an outstanding mutation.
func (p *Pending[K, V]) InFlight(key K) bool {
	_, ok := p.prior[key]
	return ok
}

// Len returns the number of outstanding mutations.
func (p *Pending[K, V]) Len() int { return len(p.prior) }
