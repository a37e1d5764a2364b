package commands

import (
	"errors"
	"fmt"
	"strconv"

	"daysched/internal/schedule"
	"daysched/internal/service"
)

// TaskRef identifies a task either by its 1-based position in the view or
// by its ID.
type TaskRef struct {
	Pos int
	ID  string
}

// ErrTaskRefRequired indicates no task reference was provided.
var ErrTaskRefRequired = errors.New("task reference required")

// ParseTaskRef parses a task reference from args and the --id flag.
// Exactly one of a position argument or an ID must be given.
func ParseTaskRef(args []string, id string) (TaskRef, error) {
	switch {
	case id != "" && len(args) > 0:
		return TaskRef{}, errors.New("cannot use both --id and a task number")
	case id != "":
		return TaskRef{ID: id}, nil
	case len(args) == 0:
		return TaskRef{}, ErrTaskRefRequired
	case len(args) > 1:
		return TaskRef{}, fmt.Errorf("unexpected argument: %s", args[1])
	}

	if !isAllDigits(args[0]) {
		return TaskRef{}, fmt.Errorf("invalid task reference: %s", args[0])
	}
	n, err := strconv.Atoi(args[0])
	if err != nil || n < 1 {
		return TaskRef{}, fmt.Errorf("invalid task reference: %s", args[0])
	}
	return TaskRef{Pos: n}, nil
}

// Resolve finds the referenced task in a loaded list.
func (r TaskRef) Resolve(tasks []service.Task) (service.Task, error) {
	if r.ID != "" {
		for _, t := range tasks {
			if t.ID == r.ID {
				return t, nil
			}
		}
		return service.Task{}, fmt.Errorf("%w: %s", schedule.ErrTaskNotFound, r.ID)
	}
	if r.Pos < 1 || r.Pos > len(tasks) {
		return service.Task{}, fmt.Errorf("task number out of range: %d", r.Pos)
	}
	return tasks[r.Pos-1], nil
}

// isAllDigits returns true if s consists only of ASCII digits and is non-empty.
func isAllDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
