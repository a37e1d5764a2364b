package commands

import (
	"context"
	"flag"

	"daysched/internal/exitcode"
	"daysched/internal/output"
)

func init() {
	Register(&ViewCmd{})
}

// ViewCmd prints the schedule for today, the previous day or a date.
// It is also what `daysched` with no arguments runs.
type ViewCmd struct {
	dates dateFlags
}

// SetDate selects a specific date (for testing).
func (c *ViewCmd) SetDate(date string) { c.dates.date = date }

// SetPrevious selects the previous day (for testing).
func (c *ViewCmd) SetPrevious(v bool) { c.dates.previous = v }

func (c *ViewCmd) Name() string      { return "view" }
func (c *ViewCmd) Aliases() []string { return []string{"ls"} }
func (c *ViewCmd) Synopsis() string  { return "Show the schedule for a day" }
func (c *ViewCmd) Usage() string     { return "daysched view [--previous | --date <YYYY-MM-DD>]" }
func (c *ViewCmd) NeedsAuth() bool   { return true }

func (c *ViewCmd) RegisterFlags(fs *flag.FlagSet) {
	c.dates.register(fs)
}

func (c *ViewCmd) Run(ctx context.Context, env *Env, args []string) int {
	if len(args) > 0 {
		return fail(env.ErrOut, errUnexpectedArg(args[0]))
	}

	ctrl := newController(env)
	view, err := loadView(ctx, env, ctrl, &c.dates)
	if err != nil {
		return fail(env.ErrOut, err)
	}

	output.FormatSchedule(env.Out, view.Date, view.Tasks)
	return exitcode.Success
}
