package commands

import (
	"context"
	"flag"

	"daysched/internal/exitcode"
	"daysched/internal/output"
)

func init() {
	Register(&DoneCmd{})
}

// DoneCmd flips a task between pending and completed.
type DoneCmd struct {
	dates dateFlags
	id    string
}

// SetDate selects a specific date (for testing).
func (c *DoneCmd) SetDate(date string) { c.dates.date = date }

// SetID addresses the task by ID (for testing).
func (c *DoneCmd) SetID(id string) { c.id = id }

func (c *DoneCmd) Name() string      { return "done" }
func (c *DoneCmd) Aliases() []string { return []string{"toggle"} }
func (c *DoneCmd) Synopsis() string  { return "Toggle a task between pending and completed" }
func (c *DoneCmd) Usage() string {
	return "daysched done [--previous | --date <YYYY-MM-DD>] (<n> | --id <id>)"
}
func (c *DoneCmd) NeedsAuth() bool { return true }

func (c *DoneCmd) RegisterFlags(fs *flag.FlagSet) {
	c.dates.register(fs)
	fs.StringVar(&c.id, "id", "", "")
}

func (c *DoneCmd) Run(ctx context.Context, env *Env, args []string) int {
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

	if err := ctrl.Toggle(ctx, env.Session, task.ID); err != nil {
		return fail(env.ErrOut, err)
	}

	if !env.Config.Quiet {
		verb := "reopened"
		if task.Status.Toggle().Done() {
			verb = "completed"
		}
		output.FormatTaskLine(env.Out, verb, task)
	}
	return exitcode.Success
}
