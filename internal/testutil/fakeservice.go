// Package testutil provides testing utilities.
package testutil

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"daysched/internal/service"
)

// ErrNotFound is returned when a task does not exist.
var ErrNotFound = errors.New("not found")

// FakeService is an in-memory implementation of service.Service for testing.
// Tasks are partitioned by date and keep insertion order.
type FakeService struct {
	mu     sync.RWMutex
	tasks  map[string][]service.Task // date -> tasks
	nextID int

	// Error injection for testing
	LoadScheduleErr map[string]error // date -> error
	SaveScheduleErr error
	UpdateStatusErr error
	DeleteTaskErr   error

	// Hooks run before the corresponding call touches any state, outside
	// the lock. Tests use them to hold a call in flight.
	BeforeLoad   func(ctx context.Context, date string)
	BeforeUpdate func(ctx context.Context, taskID string)
	BeforeDelete func(ctx context.Context, taskID string)

	// Call counters
	LoadCalls   int
	SaveCalls   int
	UpdateCalls int
	DeleteCalls int

	// LastSession is the session passed to the most recent call.
	LastSession service.Session
}

// NewFakeService creates an empty FakeService.
func NewFakeService() *FakeService {
	return &FakeService{
		tasks:           make(map[string][]service.Task),
		LoadScheduleErr: make(map[string]error),
	}
}

// AddTask adds a pending task on a date and returns its ID.
func (f *FakeService) AddTask(date, id, title, start, end string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if id == "" {
		f.nextID++
		id = fmt.Sprintf("t%d", f.nextID)
	}
	f.tasks[date] = append(f.tasks[date], service.Task{
		ID:        id,
		Title:     title,
		Date:      date,
		StartTime: start,
		EndTime:   end,
		Status:    service.StatusPending,
	})
	return id
}

// Tasks returns a copy of the tasks stored for a date.
func (f *FakeService) Tasks(date string) []service.Task {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return append([]service.Task(nil), f.tasks[date]...)
}

// Lookup returns a stored task by ID.
func (f *FakeService) Lookup(id string) (service.Task, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	for _, list := range f.tasks {
		for _, t := range list {
			if t.ID == id {
				return t, true
			}
		}
	}
	return service.Task{}, false
}

// LoadSchedule implements service.Service.
func (f *FakeService) LoadSchedule(ctx context.Context, sess service.Session, date string) ([]service.Task, error) {
	if f.BeforeLoad != nil {
		f.BeforeLoad(ctx, date)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.LoadCalls++
	f.LastSession = sess

	if err, ok := f.LoadScheduleErr[date]; ok && err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return append([]service.Task(nil), f.tasks[date]...), nil
}

// SaveSchedule implements service.Service.
func (f *FakeService) SaveSchedule(ctx context.Context, sess service.Session, inputs []service.TaskInput) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.SaveCalls++
	f.LastSession = sess

	if f.SaveScheduleErr != nil {
		return f.SaveScheduleErr
	}
	for _, in := range inputs {
		f.nextID++
		f.tasks[in.Date] = append(f.tasks[in.Date], service.Task{
			ID:        fmt.Sprintf("t%d", f.nextID),
			Title:     in.Title,
			Date:      in.Date,
			StartTime: in.StartTime,
			EndTime:   in.EndTime,
			Status:    service.StatusPending,
		})
	}
	return nil
}

// UpdateStatus implements service.Service.
func (f *FakeService) UpdateStatus(ctx context.Context, sess service.Session, taskID string, status service.Status) error {
	if f.BeforeUpdate != nil {
		f.BeforeUpdate(ctx, taskID)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.UpdateCalls++
	f.LastSession = sess

	if f.UpdateStatusErr != nil {
		return f.UpdateStatusErr
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	for date, list := range f.tasks {
		for i := range list {
			if list[i].ID == taskID {
				f.tasks[date][i].Status = status
				return nil
			}
		}
	}
	return ErrNotFound
}

// DeleteTask implements service.Service.
func (f *FakeService) DeleteTask(ctx context.Context, sess service.Session, taskID string) ([]service.Task, error) {
	if f.BeforeDelete != nil {
		f.BeforeDelete(ctx, taskID)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.DeleteCalls++
	f.LastSession = sess

	if f.DeleteTaskErr != nil {
		return nil, f.DeleteTaskErr
	}
	for date, list := range f.tasks {
		for i := range list {
			if list[i].ID == taskID {
				f.tasks[date] = append(list[:i:i], list[i+1:]...)
				return f.allLocked(), nil
			}
		}
	}
	return nil, ErrNotFound
}

func (f *FakeService) allLocked() []service.Task {
	var all []service.Task
	for _, list := range f.tasks {
		all = append(all, list...)
	}
	return all
}

// Gate holds calls in flight until released. Reached receives one value
// per call that arrived at the gate.
type Gate struct {
	Reached chan string
	release chan struct{}
	once    sync.Once
}

// NewGate returns a closed-over hook pair for the Before* fields.
func NewGate() *Gate {
	return &Gate{
		Reached: make(chan string, 16),
		release: make(chan struct{}),
	}
}

// Hook blocks until Release is called or ctx is done.
func (g *Gate) Hook(ctx context.Context, key string) {
	g.Reached <- key
	select {
	case <-g.release:
	case <-ctx.Done():
	}
}

// Release lets every held and future call through.
func (g *Gate) Release() {
	g.once.Do(func() { close(g.release) })
}
