// Package service defines the backend-agnostic interface for schedule operations.
package service

import (
	"errors"
	"strings"
)

// Status is the completion state of a task.
type Status string

const (
	StatusPending   Status = "pending"
	StatusCompleted Status = "completed"
)

// Toggle returns the opposite status. Anything that is not completed
// toggles to completed.
func (s Status) Toggle() Status {
	if s == StatusCompleted {
		return StatusPending
	}
	return StatusCompleted
}

// Done reports whether the status is completed.
func (s Status) Done() bool { return s == StatusCompleted }

// Task is a single time-boxed entry on a calendar date.
type Task struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	Date      string `json:"date"`      // YYYY-MM-DD
	StartTime string `json:"startTime"` // HH:MM
	EndTime   string `json:"endTime"`   // HH:MM, may be before StartTime
	Status    Status `json:"status"`
}

// TaskInput is a task that has not been assigned an ID yet.
type TaskInput struct {
	Title     string `json:"title"`
	Date      string `json:"date"`
	StartTime string `json:"startTime"`
	EndTime   string `json:"endTime"`
}

// Session identifies the user against the remote authority.
type Session struct {
	Username string `json:"username"`
	Token    string `json:"token"`
}

// ErrMissingSession is returned when an operation is attempted without a
// username or credential.
var ErrMissingSession = errors.New("missing session")

// ErrUnauthorized is matched by backend errors caused by a rejected credential.
var ErrUnauthorized = errors.New("unauthorized")

// Validate returns ErrMissingSession if either field is blank.
func (s Session) Validate() error {
	if strings.TrimSpace(s.Username) == "" || strings.TrimSpace(s.Token) == "" {
		return ErrMissingSession
	}
	return nil
}
