package commands

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"strings"

	"daysched/internal/exitcode"
	"daysched/internal/output"
	"daysched/internal/schedule"
	"daysched/internal/service"
)

func init() {
	Register(&AddCmd{})
}

// AddCmd implements the add command.
type AddCmd struct {
	dates dateFlags
}

// SetDate sets the task date (for testing).
func (c *AddCmd) SetDate(date string) { c.dates.date = date }

func (c *AddCmd) Name() string      { return "add" }
func (c *AddCmd) Aliases() []string { return nil }
func (c *AddCmd) Synopsis() string  { return "Create a task" }
func (c *AddCmd) Usage() string {
	return "daysched add [--previous | --date <YYYY-MM-DD>] <start> <end> <title...>"
}
func (c *AddCmd) NeedsAuth() bool { return true }

func (c *AddCmd) RegisterFlags(fs *flag.FlagSet) {
	c.dates.register(fs)
}

func (c *AddCmd) Run(ctx context.Context, env *Env, args []string) int {
	if len(args) < 3 {
		return fail(env.ErrOut, errors.New("start time, end time and title required"))
	}

	start, err := schedule.ParseClock(args[0])
	if err != nil {
		return fail(env.ErrOut, err)
	}
	end, err := schedule.ParseClock(args[1])
	if err != nil {
		return fail(env.ErrOut, err)
	}
	title := strings.Join(args[2:], " ")
	if strings.TrimSpace(title) == "" {
		return fail(env.ErrOut, errors.New("title required"))
	}

	sel, err := c.dates.selection()
	if err != nil {
		return fail(env.ErrOut, err)
	}
	date, err := schedule.ResolveDate(sel, env.Config.Now())
	if err != nil {
		return fail(env.ErrOut, err)
	}

	in := service.TaskInput{
		Title:     title,
		Date:      date,
		StartTime: start.String(),
		EndTime:   end.String(),
	}
	if err := newController(env).Add(ctx, env.Session, []service.TaskInput{in}); err != nil {
		return fail(env.ErrOut, err)
	}

	if !env.Config.Quiet {
		output.FormatTaskLine(env.Out, "added", service.Task{
			Title:     in.Title,
			Date:      in.Date,
			StartTime: in.StartTime,
			EndTime:   in.EndTime,
		})
	}
	return exitcode.Success
}

func errUnexpectedArg(arg string) error {
	return fmt.Errorf("unexpected argument: %s", arg)
}
