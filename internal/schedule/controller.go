package schedule

import (
	"context"
	"errors"
	"io"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"daysched/internal/service"
)

// State is the load state of the displayed date.
type State int

const (
	StateIdle State = iota
	StateLoading
	StateReady
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateLoading:
		return "loading"
	case StateReady:
		return "ready"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Notice is a transient, user-visible report of a remote failure.
type Notice struct {
	Op     Op
	TaskID string
	Date   string
	Err    error
}

func (n Notice) String() string {
	return n.Err.Error()
}

// View is what a presenter renders. Date is the date the user selected;
// TasksDate is the date the tasks were loaded for, which lags Date while
// a load is in flight.
type View struct {
	Selection Selection
	Date      string
	State     State
	Err       error
	TasksDate string
	Tasks     []service.Task
	InFlight  []string
}

// Controller drives the store from view selections. It decides which
// date is current, drops responses for dates that are no longer current,
// and turns remote failures into notices.
//
// Lock order: the store may call back into the controller (current) while
// holding its own lock, so the controller never calls the store while
// holding c.mu.
type Controller struct {
	store *Store
	now   func() time.Time
	log   *log.Logger

	mu    sync.Mutex
	sel   Selection
	date  string
	state State
	err   error

	notices chan Notice
}

// ControllerOption configures a Controller.
type ControllerOption func(*Controller)

// WithClock sets the source of "now". The returned time's location is
// the user's local zone.
func WithClock(now func() time.Time) ControllerOption {
	return func(c *Controller) {
		if now != nil {
			c.now = now
		}
	}
}

// WithControllerLogger sets the controller logger.
func WithControllerLogger(l *log.Logger) ControllerOption {
	return func(c *Controller) {
		if l != nil {
			c.log = l
		}
	}
}

// NewController returns an idle controller over store.
func NewController(store *Store, opts ...ControllerOption) *Controller {
	c := &Controller{
		store:   store,
		now:     time.Now,
		log:     log.New(io.Discard),
		notices: make(chan Notice, 16),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Notices exposes remote failures for display. Notices are dropped when
// the buffer is full.
func (c *Controller) Notices() <-chan Notice {
	return c.notices
}

// Events exposes store and state change events.
func (c *Controller) Events() <-chan Event {
	return c.store.Events()
}

// Store returns the underlying store.
func (c *Controller) Store() *Store {
	return c.store
}

// Snapshot returns the current view.
func (c *Controller) Snapshot() View {
	c.mu.Lock()
	v := View{
		Selection: c.sel,
		Date:      c.date,
		State:     c.state,
		Err:       c.err,
	}
	c.mu.Unlock()

	snap := c.store.Snapshot()
	v.TasksDate = snap.Date
	v.Tasks = snap.Tasks
	v.InFlight = snap.InFlight
	return v
}

// Select makes sel the current view and loads its date. An invalid
// explicit date is returned as *InvalidDateError before anything
// changes or is fetched. It blocks until the load completes; a load
// that is stale by then returns nil and changes nothing.
func (c *Controller) Select(ctx context.Context, sess service.Session, sel Selection) error {
	if err := sess.Validate(); err != nil {
		return err
	}
	date, err := ResolveDate(sel, c.now())
	if err != nil {
		return err
	}

	c.mu.Lock()
	c.sel = sel
	c.date = date
	c.state = StateLoading
	c.err = nil
	c.mu.Unlock()
	c.store.emit(Event{Kind: EventState, Date: date})

	return c.load(ctx, sess, date)
}

// Reload fetches the current date again. "today" and "previous" are
// re-resolved, so a reload after midnight moves to the new day.
func (c *Controller) Reload(ctx context.Context, sess service.Session) error {
	c.mu.Lock()
	sel := c.sel
	c.mu.Unlock()
	return c.Select(ctx, sess, sel)
}

// Toggle flips a task's status optimistically. ErrMutationInFlight is
// returned without a notice; remote failures also raise one.
func (c *Controller) Toggle(ctx context.Context, sess service.Session, id string) error {
	err := c.store.ToggleStatus(ctx, sess, id)
	c.notifyRemote(err)
	return err
}

// Delete removes a task once the remote confirms it.
func (c *Controller) Delete(ctx context.Context, sess service.Session, id string) error {
	err := c.store.DeleteTask(ctx, sess, id)
	c.notifyRemote(err)
	return err
}

// Add saves new tasks and reloads if any of them fall on the displayed
// date. The returned error only reports the save: once it succeeds, a
// failed reload leaves the view Failed and raises a notice.
func (c *Controller) Add(ctx context.Context, sess service.Session, inputs []service.TaskInput) error {
	if err := c.store.Save(ctx, sess, inputs); err != nil {
		c.notifyRemote(err)
		return err
	}

	c.mu.Lock()
	date := c.date
	c.mu.Unlock()
	for _, in := range inputs {
		if in.Date == date {
			if err := c.load(ctx, sess, date); err != nil {
				c.log.Debug("reload after save failed", "date", date, "err", err)
			}
			return nil
		}
	}
	return nil
}

func (c *Controller) load(ctx context.Context, sess service.Session, date string) error {
	applied, err := c.store.LoadIf(ctx, sess, date, c.isCurrent)
	if !applied {
		return nil
	}

	c.mu.Lock()
	if c.date != date {
		// A newer selection arrived after the store applied this load;
		// its own load will set the state.
		c.mu.Unlock()
		return err
	}
	if err != nil {
		c.state = StateFailed
		c.err = err
	} else {
		c.state = StateReady
	}
	c.mu.Unlock()

	c.store.emit(Event{Kind: EventState, Date: date})
	c.notifyRemote(err)
	return err
}

func (c *Controller) isCurrent(date string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.date == date
}

// notifyRemote raises a notice for remote-originated failures only.
func (c *Controller) notifyRemote(err error) {
	var opErr *OpError
	if !errors.As(err, &opErr) {
		return
	}
	c.log.Debug("schedule operation failed", "op", opErr.Op, "date", opErr.Date, "task", opErr.TaskID, "err", opErr.Err)
	select {
	case c.notices <- Notice{Op: opErr.Op, TaskID: opErr.TaskID, Date: opErr.Date, Err: err}:
	default:
	}
}
