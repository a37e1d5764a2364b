// Package main is the entry point for the daysched CLI.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"daysched/internal/backend/googletasks"
	"daysched/internal/backend/httpapi"
	"daysched/internal/cli"
	"daysched/internal/commands"
	"daysched/internal/config"
	"daysched/internal/logging"
	"daysched/internal/service"
)

func main() {
	// Create context that cancels on interrupt
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle signals
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		cancel()
	}()

	dispatcher := cli.NewDispatcher(commands.DefaultRegistry, newService)
	dispatcher.SetInput(os.Stdin)

	code := dispatcher.Run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	os.Exit(code)
}

// newService picks the backend named in config. Per-request deadlines
// come from the schedule store, so the HTTP client carries none.
func newService(ctx context.Context, cfg *config.Config) (service.Service, error) {
	switch cfg.Settings.Backend {
	case config.BackendGoogleTasks:
		return googletasks.New(ctx, cfg)
	default:
		client, err := httpapi.New(cfg.Settings.BaseURL, &http.Client{})
		if err != nil {
			return nil, err
		}
		client.SetLogger(logging.New(os.Stderr, logging.Options{
			Level:  cfg.Settings.LogLevel,
			Format: cfg.Settings.LogFormat,
			Debug:  cfg.Debug,
		}))
		return client, nil
	}
}
