// Package exitcode defines exit codes for the CLI.
package exitcode

import (
	"errors"

	"daysched/internal/schedule"
	"daysched/internal/service"
)

const (
	// Success indicates successful completion.
	Success = 0

	// UserError indicates a user error (bad args, bad date, unknown task,
	// task busy).
	UserError = 1

	// AuthError indicates a missing session or a rejected credential.
	AuthError = 2

	// BackendError indicates a failed remote call.
	BackendError = 3
)

// FromError maps an error to its exit code.
func FromError(err error) int {
	var opErr *schedule.OpError
	switch {
	case err == nil:
		return Success
	case errors.Is(err, service.ErrUnauthorized), errors.Is(err, service.ErrMissingSession):
		return AuthError
	case errors.As(err, &opErr):
		return BackendError
	default:
		return UserError
	}
}
