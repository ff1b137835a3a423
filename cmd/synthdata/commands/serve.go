package commands

import (
	"context"
	"log/slog"
	"os/signal"
	"syscall"
	"time"

	"git.home.luguber.info/inful/synthdata/internal/daemon"
	"git.home.luguber.info/inful/synthdata/internal/foundation/errors"
)

// ServeCmd implements the 'serve' command.
type ServeCmd struct {
	NoWatch         bool          `name:"no-watch" help:"Do not reload the configuration when the file changes"`
	ShutdownTimeout time.Duration `name:"shutdown-timeout" help:"Grace period for running jobs on shutdown" default:"30s"`
}

func (s *ServeCmd) Run(g *Global, root *CLI) error {
	cfg, err := root.loadConfig(g)
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	opts := daemon.Options{}
	if !s.NoWatch {
		opts.ConfigPath = root.Config
	}
	d, err := daemon.New(cfg, opts)
	if err != nil {
		return err
	}
	if err := d.Start(ctx); err != nil {
		return err
	}
	slog.Info("Daemon started, waiting for shutdown signal...")

	var runErr error
	select {
	case <-ctx.Done():
		slog.Info("Shutdown signal received, stopping daemon...")
	case err := <-d.Done():
		runErr = errors.WrapError(err, errors.CategoryDaemon, "HTTP server failed").Build()
	}

	stopCtx, stopCancel := context.WithTimeout(context.Background(), s.ShutdownTimeout)
	defer stopCancel()
	if err := d.Stop(stopCtx); err != nil {
		return err
	}
	slog.Info("Daemon stopped successfully")
	return runErr
}
