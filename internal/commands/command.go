// Package commands provides the command interface and implementations.
package commands

import (
	"context"
	"flag"
	"io"

	"github.com/charmbracelet/log"

	"daysched/internal/config"
	"daysched/internal/service"
)

// Command defines the interface for CLI commands.
type Command interface {
	// Name returns the primary command name.
	Name() string

	// Aliases returns alternative names for the command.
	Aliases() []string

	// Synopsis returns a short description for help output.
	Synopsis() string

	// Usage returns the usage string for help output.
	Usage() string

	// NeedsAuth returns true if the command requires a session and a
	// service. Commands like help, version, login, logout return false.
	NeedsAuth() bool

	// RegisterFlags registers command-specific flags.
	RegisterFlags(fs *flag.FlagSet)

	// Run executes the command with positional args after flag parsing.
	// Returns exit code.
	Run(ctx context.Context, env *Env, args []string) int
}

// Env is what a command runs against.
type Env struct {
	// Config is always provided.
	Config *config.Config

	// Session and Service are set only when NeedsAuth returns true.
	Session service.Session
	Service service.Service

	Logger *log.Logger

	In     io.Reader
	Out    io.Writer
	ErrOut io.Writer
}

func (e *Env) logger() *log.Logger {
	if e.Logger == nil {
		return log.New(io.Discard)
	}
	return e.Logger
}
