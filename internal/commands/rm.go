package commands

import (
	"context"
	"flag"

	"daysched/internal/exitcode"
	"daysched/internal/output"
)

func init() {
	Register(&RmCmd{})
}

// RmCmd implements the rm command.
type RmCmd struct {
	dates dateFlags
	id    string
}

// SetDate selects a specific date (for testing).
func (c *RmCmd) SetDate(date string) { c.dates.date = date }

// SetID addresses the task by ID (for testing).
func (c *RmCmd) SetID(id string) { c.id = id }

func (c *RmCmd) Name() string      { return "rm" }
func (c *RmCmd) Aliases() []string { return []string{"delete"} }
func (c *RmCmd) Synopsis() string  { return "Delete a task" }
func (c *RmCmd) Usage() string {
	return "daysched rm [--previous | --date <YYYY-MM-DD>] (<n> | --id <id>)"
}
func (c *RmCmd) NeedsAuth() bool { return true }

func (c *RmCmd) RegisterFlags(fs *flag.FlagSet) {
	c.dates.register(fs)
	fs.StringVar(&c.id, "id", "", "")
}

func (c *RmCmd) Run(ctx context.Context, env *Env, args []string) int {
	ref, err := ParseTaskRef(args, c.id)
	if err != nil {
		return fail(env.ErrOut, err)
	}

	ctrl := newController(env)
	view, err := loadView(ctx, env, ctrl, &c.dates)
	if err != nil {
		return fail(env.ErrOut, err)
	}
	task, err := ref.Resolve(view.Tasks)
	if err != nil {
		return fail(env.ErrOut, err)
	}

	// The task stays listed until the server confirms the delete.
	if err := ctrl.Delete(ctx, env.Session, task.ID); err != nil {
		return fail(env.ErrOut, err)
	}

	if !env.Config.Quiet {
		output.FormatTaskLine(env.Out, "deleted", task)
	}
	return exitcode.Success
}
