package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"

	"github.com/runnerr0/dwell/internal/app"
	"github.com/runnerr0/dwell/internal/logging"
	"github.com/runnerr0/dwell/internal/server"
)

// Execute implements the go-flags Commander interface for ServeCommand.
func (c *ServeCommand) Execute(args []string) error {
	cfg, err := loadConfig(c.globals)
	if err != nil {
		return err
	}
	if c.Port != 0 {
		cfg.Daemon.Port = c.Port
	}
	if c.LogLevel != "" {
		cfg.Logging.Level = c.LogLevel
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	verbose := c.globals != nil && c.globals.Verbose
	logger, closer, err := logging.New(cfg, c.Foreground || verbose)
	if err != nil {
		return err
	}
	defer closer.Close()
	if !verbose {
		gin.SetMode(gin.ReleaseMode)
	}

	a, err := app.Open(cfg, nil, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := a.Restore(ctx); err != nil {
		return fmt.Errorf("restore state: %w", err)
	}

	srv := server.New(a, c.version, logger)
	logger.Info("dwell starting", "version", c.version, "addr", srv.Addr())

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return a.Scheduler().Run(gctx) })
	g.Go(func() error { return srv.Run(gctx) })
	runErr := g.Wait()

	// Persist the open interval so the last minutes are not lost.
	flushErr := a.UpdateCurrentActivity(context.Background())
	if flushErr == nil {
		flushErr = a.Stats.FlushPending(context.Background())
	}
	if flushErr != nil {
		logger.Warn("final flush failed", "error", flushErr)
	}
	logger.Info("dwell stopped")

	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		return runErr
	}
	return nil
}
