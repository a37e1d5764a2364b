// Package schedule keeps a date-scoped task list in sync with the remote
// authority and resolves which date is on display.
package schedule

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"daysched/internal/service"
)

// DefaultTimeout bounds every remote call made by a Store.
const DefaultTimeout = 15 * time.Second

// EventKind describes what changed.
type EventKind int

const (
	// EventReplaced means a load replaced the whole list.
	EventReplaced EventKind = iota
	// EventUpdated means a field of one task changed locally.
	EventUpdated
	// EventRemoved means a task left the list after a confirmed delete.
	EventRemoved
	// EventState means the controller changed state.
	EventState
)

// Event is emitted after every local state change. Consumers re-read a
// snapshot; events carry no task data.
type Event struct {
	Kind   EventKind
	Date   string
	TaskID string
}

// StoreSnapshot is a copy of the store state. Callers may keep it.
type StoreSnapshot struct {
	Date     string
	Tasks    []service.Task
	InFlight []string // task IDs with an unconfirmed mutation, in list order
}

// Store holds the task list for one resolved date. All local changes are
// made under one lock so observers never see a half-applied mutation.
type Store struct {
	svc     service.Service
	timeout time.Duration
	log     *log.Logger

	mu      sync.RWMutex
	date    string
	tasks   []service.Task
	pending *Pending[string, any]

	events chan Event
}

// StoreOption configures a Store.
type StoreOption func(*Store)

// WithTimeout sets the per-call remote timeout. Non-positive values keep
// the default.
func WithTimeout(d time.Duration) StoreOption {
	return func(s *Store) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// WithLogger sets the logger used for debug tracing.
func WithLogger(l *log.Logger) StoreOption {
	return func(s *Store) {
		if l != nil {
			s.log = l
		}
	}
}

// NewStore returns an empty store backed by svc.
func NewStore(svc service.Service, opts ...StoreOption) *Store {
	s := &Store{
		svc:     svc,
		timeout: DefaultTimeout,
		log:     log.New(io.Discard),
		pending: NewPending[string, any](),
		events:  make(chan Event, 64),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Events exposes the change channel. Events are dropped when the buffer
// is full.
func (s *Store) Events() <-chan Event {
	return s.events
}

// Snapshot returns a copy of the current date, tasks and in-flight IDs.
func (s *Store) Snapshot() StoreSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snap := StoreSnapshot{
		Date:  s.date,
		Tasks: cloneTasks(s.tasks),
	}
	for _, t := range s.tasks {
		if s.pending.InFlight(t.ID) {
			snap.InFlight = append(snap.InFlight, t.ID)
		}
	}
	return snap
}

// Task returns the task with the given ID from the current list.
func (s *Store) Task(id string) (service.Task, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if t := s.find(id); t != nil {
		return *t, true
	}
	return service.Task{}, false
}

// Load fetches the tasks for exactly one date and replaces the list.
// On failure the list is left as it was.
func (s *Store) Load(ctx context.Context, sess service.Session, date string) error {
	_, err := s.LoadIf(ctx, sess, date, nil)
	return err
}

// LoadIf is Load with a staleness check. current is called under the
// store lock once the remote call completes; when it returns false the
// response is dropped, whether it succeeded or failed, and applied is
// false. A nil current always applies.
func (s *Store) LoadIf(ctx context.Context, sess service.Session, date string, current func(date string) bool) (applied bool, err error) {
	if err := sess.Validate(); err != nil {
		return false, err
	}
	if err := ValidateDate(date); err != nil {
		return false, err
	}

	s.log.Debug("loading schedule", "date", date)
	cctx, cancel := s.callCtx(ctx)
	tasks, err := s.svc.LoadSchedule(cctx, sess, date)
	cancel()

	s.mu.Lock()
	defer s.mu.Unlock()
	if current != nil && !current(date) {
		s.log.Debug("discarding stale load", "date", date, "err", err)
		return false, nil
	}
	if err != nil {
		return true, &OpError{Op: OpLoad, Date: date, Err: err}
	}
	s.date = date
	s.tasks = cloneTasks(tasks)
	s.log.Debug("schedule replaced", "date", date, "tasks", len(tasks))
	s.emit(Event{Kind: EventReplaced, Date: date})
	return true, nil
}

// ToggleStatus flips a task between pending and completed before the
// remote confirms it, and restores the prior status if the remote fails.
func (s *Store) ToggleStatus(ctx context.Context, sess service.Session, id string) error {
	if err := sess.Validate(); err != nil {
		return err
	}
	return applyOptimistic(ctx, s, OpUpdate, id, statusField, service.Status.Toggle,
		func(ctx context.Context, status service.Status) error {
			return s.svc.UpdateStatus(ctx, sess, id, status)
		})
}

// DeleteTask removes a task only after the remote confirms the delete.
// The task counts as in flight meanwhile, so it cannot be toggled.
func (s *Store) DeleteTask(ctx context.Context, sess service.Session, id string) error {
	if err := sess.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	if s.find(id) == nil {
		s.mu.Unlock()
		return ErrTaskNotFound
	}
	if err := s.pending.Begin(id, nil); err != nil {
		s.mu.Unlock()
		return err
	}
	date := s.date
	s.mu.Unlock()

	cctx, cancel := s.callCtx(ctx)
	_, err := s.svc.DeleteTask(cctx, sess, id)
	cancel()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending.Commit(id)
	if err != nil {
		s.log.Debug("delete failed", "task", id, "err", err)
		return &OpError{Op: OpDelete, Date: date, TaskID: id, Err: err}
	}
	if s.remove(id) {
		s.emit(Event{Kind: EventRemoved, Date: s.date, TaskID: id})
	}
	return nil
}

// Save sends new tasks to the remote. The list is not touched; callers
// reload the affected date.
func (s *Store) Save(ctx context.Context, sess service.Session, inputs []service.TaskInput) error {
	if err := sess.Validate(); err != nil {
		return err
	}
	if len(inputs) == 0 {
		return errors.New("no tasks to save")
	}
	for i, in := range inputs {
		if err := validateInput(in); err != nil {
			return fmt.Errorf("task %d: %w", i+1, err)
		}
	}

	cctx, cancel := s.callCtx(ctx)
	defer cancel()
	if err := s.svc.SaveSchedule(cctx, sess, inputs); err != nil {
		return &OpError{Op: OpSave, Date: inputs[0].Date, Err: err}
	}
	return nil
}

func validateInput(in service.TaskInput) error {
	if strings.TrimSpace(in.Title) == "" {
		return errors.New("title required")
	}
	if err := ValidateDate(in.Date); err != nil {
		return err
	}
	if _, err := ParseClock(in.StartTime); err != nil {
		return err
	}
	if _, err := ParseClock(in.EndTime); err != nil {
		return err
	}
	return nil
}

// field reads and writes one optimistically mutated task attribute.
type field[V comparable] struct {
	name string
	get  func(*service.Task) V
	set  func(*service.Task, V)
}

var statusField = field[service.Status]{
	name: "status",
	get:  func(t *service.Task) service.Status { return t.Status },
	set:  func(t *service.Task, v service.Status) { t.Status = v },
}

// applyOptimistic applies next to a task field, sends the new value, and
// either commits it or restores the recorded prior value. A second call
// for the same task while one is outstanding fails with
// ErrMutationInFlight and sends nothing.
func applyOptimistic[V comparable](ctx context.Context, s *Store, op Op, id string, f field[V], next func(V) V, send func(context.Context, V) error) error {
	s.mu.Lock()
	t := s.find(id)
	if t == nil {
		s.mu.Unlock()
		return ErrTaskNotFound
	}
	prior := f.get(t)
	if err := s.pending.Begin(id, prior); err != nil {
		s.mu.Unlock()
		return err
	}
	value := next(prior)
	f.set(t, value)
	date := s.date
	s.emit(Event{Kind: EventUpdated, Date: date, TaskID: id})
	s.mu.Unlock()

	cctx, cancel := s.callCtx(ctx)
	err := send(cctx, value)
	cancel()

	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		s.pending.Revert(id)
		if t := s.find(id); t != nil && f.get(t) == value {
			f.set(t, prior)
			s.emit(Event{Kind: EventUpdated, Date: s.date, TaskID: id})
		}
		s.log.Debug("mutation rolled back", "task", id, "field", f.name, "err", err)
		return &OpError{Op: op, Date: date, TaskID: id, Err: err}
	}
	s.pending.Commit(id)
	// A load that landed mid-flight may carry the pre-mutation value.
	if t := s.find(id); t != nil && f.get(t) != value {
		f.set(t, value)
		s.emit(Event{Kind: EventUpdated, Date: s.date, TaskID: id})
	}
	s.log.Debug("mutation committed", "task", id, "field", f.name)
	return nil
}

func (s *Store) callCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, s.timeout)
}

func (s *Store) find(id string) *service.Task {
	for i := range s.tasks {
		if s.tasks[i].ID == id {
			return &s.tasks[i]
		}
	}
	return nil
}

func (s *Store) remove(id string) bool {
	for i := range s.tasks {
		if s.tasks[i].ID == id {
			s.tasks = append(s.tasks[:i:i], s.tasks[i+1:]...)
			return true
		}
	}
	return false
}

func (s *Store) emit(ev Event) {
	select {
	case s.events <- ev:
	default:
	}
}

func cloneTasks(tasks []service.Task) []service.Task {
	if tasks == nil {
		return nil
	}
	out := make([]service.Task, len(tasks))
	copy(out, tasks)
	return out
}
