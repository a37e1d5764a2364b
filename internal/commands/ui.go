package commands

import (
	"context"
	"flag"

	"daysched/internal/exitcode"
	"daysched/internal/schedule"
	"daysched/internal/tui"
)

func init() {
	Register(&UICmd{})
}

// UICmd starts the interactive schedule view.
type UICmd struct {
	dates dateFlags
}

func (c *UICmd) Name() string      { return "ui" }
func (c *UICmd) Aliases() []string { return nil }
func (c *UICmd) Synopsis() string  { return "Open the interactive schedule" }
func (c *UICmd) Usage() string     { return "daysched ui [--previous | --date <YYYY-MM-DD>]" }
func (c *UICmd) NeedsAuth() bool   { return true }

func (c *UICmd) RegisterFlags(fs *flag.FlagSet) {
	c.dates.register(fs)
}

func (c *UICmd) Run(ctx context.Context, env *Env, args []string) int {
	if len(args) > 0 {
		return fail(env.ErrOut, errUnexpectedArg(args[0]))
	}
	sel, err := c.dates.selection()
	if err != nil {
		return fail(env.ErrOut, err)
	}
	if _, err := schedule.ResolveDate(sel, env.Config.Now()); err != nil {
		return fail(env.ErrOut, err)
	}
	if err := tui.Run(ctx, newController(env), env.Session, sel); err != nil {
		return fail(env.ErrOut, err)
	}
	return exitcode.Success
}
