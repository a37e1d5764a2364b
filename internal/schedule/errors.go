package schedule

import (
	"errors"
	"fmt"
)

var (
	// ErrLoadFailed matches any failed schedule fetch.
	ErrLoadFailed = errors.New("load failed")

	// ErrUpdateFailed matches a status update the remote rejected or never answered.
	ErrUpdateFailed = errors.New("update failed")

	// ErrDeleteFailed matches a delete the remote did not confirm.
	ErrDeleteFailed = errors.New("delete failed")

	// ErrSaveFailed matches a failed save of new tasks.
	ErrSaveFailed = errors.New("save failed")

	// ErrMutationInFlight is returned when a task already has an
	// unconfirmed mutation. No request is sent.
	ErrMutationInFlight = errors.New("mutation already in flight")

	// ErrTaskNotFound is returned when a task ID is not in the current list.
	ErrTaskNotFound = errors.New("task not found")
)

// InvalidDateError reports an explicit date that is not a real
// YYYY-MM-DD calendar date.
type InvalidDateError struct {
	Value string
	Err   error
}

func (e *InvalidDateError) Error() string {
	return fmt.Sprintf("invalid date %q: want YYYY-MM-DD", e.Value)
}

func (e *InvalidDateError) Unwrap() error { return e.Err }

// Op names a remote operation.
type Op string

const (
	OpLoad   Op = "load"
	OpUpdate Op = "update"
	OpDelete Op = "delete"
	OpSave   Op = "save"
)

func (o Op) sentinel() error {
	switch o {
	case OpLoad:
		return ErrLoadFailed
	case OpUpdate:
		return ErrUpdateFailed
	case OpDelete:
		return ErrDeleteFailed
	case OpSave:
		return ErrSaveFailed
	}
	return nil
}

// OpError is a failed remote operation. It matches the operation's
// sentinel (ErrLoadFailed, ...) with errors.Is and unwraps to the cause.
type OpError struct {
	Op     Op
	Date   string
	TaskID string
	Err    error
}

func (e *OpError) Error() string {
	switch {
	case e.TaskID != "":
		return fmt.Sprintf("%s task %s: %v", e.Op, e.TaskID, e.Err)
	case e.Date != "":
		return fmt.Sprintf("%s %s: %v", e.Op, e.Date, e.Err)
	default:
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
}

func (e *OpError) Unwrap() error { return e.Err }

func (e *OpError) Is(target error) bool {
	return target != nil && target == e.Op.sentinel()
}
