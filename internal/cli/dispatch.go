// Package cli parses the command line and runs the selected command.
package cli

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"strings"

	"daysched/internal/commands"
	"daysched/internal/config"
	"daysched/internal/exitcode"
	"daysched/internal/logging"
	"daysched/internal/service"
	"daysched/internal/session"
)

// defaultCommand runs when no command is given.
const defaultCommand = "view"

// ServiceFactory creates a Service from config.
// Used to inject the backend during dispatch.
type ServiceFactory func(ctx context.Context, cfg *config.Config) (service.Service, error)

// Dispatcher handles command-line parsing and dispatch.
type Dispatcher struct {
	registry *commands.Registry
	factory  ServiceFactory
	in       io.Reader
}

// NewDispatcher creates a new dispatcher with the given registry and service factory.
func NewDispatcher(registry *commands.Registry, factory ServiceFactory) *Dispatcher {
	return &Dispatcher{
		registry: registry,
		factory:  factory,
	}
}

// SetInput sets the reader commands may prompt on.
func (d *Dispatcher) SetInput(in io.Reader) { d.in = in }

// Run parses arguments and dispatches to the appropriate command.
// Returns the exit code.
func (d *Dispatcher) Run(ctx context.Context, args []string, out, errOut io.Writer) int {
	if len(args) == 0 {
		return d.dispatch(ctx, defaultCommand, nil, out, errOut)
	}

	cmdName := args[0]

	// Flags require a command
	if strings.HasPrefix(cmdName, "-") {
		fmt.Fprintf(errOut, "error: unknown command: %s\n", cmdName)
		return exitcode.UserError
	}

	return d.dispatch(ctx, cmdName, args[1:], out, errOut)
}

func (d *Dispatcher) dispatch(ctx context.Context, cmdName string, args []string, out, errOut io.Writer) int {
	cmd, ok := d.registry.Find(cmdName)
	if !ok {
		fmt.Fprintf(errOut, "error: unknown command: %s\n", cmdName)
		return exitcode.UserError
	}
	return d.dispatchCommand(ctx, cmd, args, out, errOut)
}

func (d *Dispatcher) dispatchCommand(ctx context.Context, cmd commands.Command, args []string, out, errOut io.Writer) int {
	fs := flag.NewFlagSet(cmd.Name(), flag.ContinueOnError)
	fs.SetOutput(io.Discard) // We handle errors ourselves

	// Common flags
	var configDir string
	var quiet bool
	var debug bool

	fs.StringVar(&configDir, "config", "", "")
	fs.BoolVar(&quiet, "quiet", false, "")
	fs.BoolVar(&debug, "debug", false, "")

	cmd.RegisterFlags(fs)

	if err := fs.Parse(args); err != nil {
		reportFlagError(errOut, err)
		return exitcode.UserError
	}

	// A leading dash left after parsing was never a flag
	positionalArgs := fs.Args()
	if len(positionalArgs) > 0 && strings.HasPrefix(positionalArgs[0], "-") {
		fmt.Fprintf(errOut, "error: unknown flag: %s\n", positionalArgs[0])
		return exitcode.UserError
	}

	cfg, err := config.New(configDir)
	if err != nil {
		fmt.Fprintf(errOut, "error: %s\n", err)
		return exitcode.UserError
	}
	cfg.Quiet = quiet
	cfg.Debug = debug

	logger := logging.New(errOut, logging.Options{
		Level:  cfg.Settings.LogLevel,
		Format: cfg.Settings.LogFormat,
		Debug:  debug,
	})
	logger.Debug("dispatch", "command", cmd.Name(), "backend", cfg.Settings.Backend, "config", cfg.Dir)

	env := &commands.Env{
		Config: cfg,
		Logger: logger,
		In:     d.in,
		Out:    out,
		ErrOut: errOut,
	}

	if cmd.NeedsAuth() {
		sess, err := session.Open(cfg.SessionPath()).Load()
		if errors.Is(err, session.ErrNoSession) {
			fmt.Fprintln(errOut, "error: not logged in (run: daysched login)")
			return exitcode.AuthError
		}
		if err != nil {
			fmt.Fprintf(errOut, "error: auth error: %v (run: daysched login)\n", err)
			return exitcode.AuthError
		}
		env.Session = sess

		if d.factory == nil {
			fmt.Fprintln(errOut, "error: backend error: no backend configured")
			return exitcode.BackendError
		}
		svc, err := d.factory(ctx, cfg)
		if err != nil {
			if errors.Is(err, service.ErrUnauthorized) {
				fmt.Fprintf(errOut, "error: auth error: %v (run: daysched login)\n", err)
				return exitcode.AuthError
			}
			fmt.Fprintf(errOut, "error: backend error: %v\n", err)
			return exitcode.BackendError
		}
		env.Service = svc
	}

	return cmd.Run(ctx, env, positionalArgs)
}

func reportFlagError(errOut io.Writer, err error) {
	errStr := err.Error()

	switch {
	case strings.Contains(errStr, "flag needs an argument"):
		// "flag needs an argument: -date"
		flagPart := strings.TrimSpace(strings.TrimPrefix(errStr, "flag needs an argument:"))
		fmt.Fprintf(errOut, "error: flag needs an argument: %s\n", flagPart)
	case strings.HasPrefix(errStr, "flag provided but not defined:"):
		flagName := strings.TrimPrefix(errStr, "flag provided but not defined: ")
		fmt.Fprintf(errOut, "error: unknown flag: %s\n", flagName)
	default:
		fmt.Fprintf(errOut, "error: %s\n", errStr)
	}
}
