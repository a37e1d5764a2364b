package commands

import (
	"context"
	"errors"
	"flag"
	"fmt"

	"daysched/internal/exitcode"
	"daysched/internal/session"
)

func init() {
	Register(&LogoutCmd{})
}

// LogoutCmd implements the logout command.
type LogoutCmd struct{}

func (c *LogoutCmd) Name() string      { return "logout" }
func (c *LogoutCmd) Aliases() []string { return nil }
func (c *LogoutCmd) Synopsis() string  { return "Remove stored credentials" }
func (c *LogoutCmd) Usage() string     { return "daysched logout" }
func (c *LogoutCmd) NeedsAuth() bool   { return false }

func (c *LogoutCmd) RegisterFlags(fs *flag.FlagSet) {}

func (c *LogoutCmd) Run(ctx context.Context, env *Env, args []string) int {
	cfg := env.Config
	store := session.Open(cfg.SessionPath())

	_, err := store.Load()
	loggedIn := err == nil
	if err != nil && !errors.Is(err, session.ErrNoSession) {
		// A corrupt session file is still removed.
		loggedIn = true
	}
	hasToken := cfg.HasToken()

	if !loggedIn && !hasToken {
		if !cfg.Quiet {
			fmt.Fprintln(env.Out, "not logged in")
		}
		return exitcode.Success
	}

	if err := store.Clear(); err != nil {
		fmt.Fprintf(env.ErrOut, "error: failed to remove session: %v\n", err)
		return exitcode.AuthError
	}
	if hasToken {
		if err := cfg.RemoveToken(); err != nil {
			fmt.Fprintf(env.ErrOut, "error: failed to remove token: %v\n", err)
			return exitcode.AuthError
		}
	}

	if !cfg.Quiet {
		fmt.Fprintln(env.Out, "ok")
	}
	return exitcode.Success
}
