// Package service defines the backend-agnostic interface for schedule operations.
package service

import "context"

// Service is the remote authority for schedule data.
// Everything above this interface is backend-agnostic; the schedule
// package never imports an HTTP client or SDK directly.
type Service interface {
	// LoadSchedule returns the tasks for exactly one date, in server order.
	LoadSchedule(ctx context.Context, sess Session, date string) ([]Task, error)

	// SaveSchedule creates new tasks.
	SaveSchedule(ctx context.Context, sess Session, tasks []TaskInput) error

	// UpdateStatus sets the status of the task with the given ID.
	UpdateStatus(ctx context.Context, sess Session, taskID string, status Status) error

	// DeleteTask deletes a task and returns the server's remaining tasks.
	// Callers must not assume the returned list is scoped to one date.
	DeleteTask(ctx context.Context, sess Session, taskID string) ([]Task, error)
}
