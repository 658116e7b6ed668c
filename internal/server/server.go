// Package server exposes the daemon over a localhost HTTP API for the
// browser extension.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/runnerr0/dwell/internal/app"
)

const shutdownTimeout = 5 * time.Second

// Server is the HTTP front of an App.
type Server struct {
	app     *app.App
	engine  *gin.Engine
	logger  *slog.Logger
	version string
}

// New builds the router with every route registered.
func New(a *app.App, version string, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "server")

	engine := gin.New()
	engine.Use(RecoveryMiddleware(logger))
	engine.Use(LoggingMiddleware(logger))
	engine.Use(MetricsMiddleware())
	engine.Use(HostMiddleware(a.Config.Daemon.Host))
	engine.Use(CORSMiddleware(a.Config.Daemon.AllowedOrigins))
	engine.Use(BodyLimitMiddleware(int64(a.Config.Daemon.MaxRequestSize)))

	s := &Server{app: a, engine: engine, logger: logger, version: version}
	s.routes()
	return s
}

func (s *Server) routes() {
	h := &handlers{app: s.app, logger: s.logger, version: s.version}

	s.engine.GET("/status", h.ping)
	s.engine.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := s.engine.Group("/api")
	api.Use(AuthMiddleware(s.app.Config.Daemon.AuthToken))
	{
		events := api.Group("/events")
		events.POST("/activated", h.activated)
		events.POST("/navigated", h.navigated)
		events.POST("/idle", h.idle)
		events.POST("/liveness", h.liveness)

		api.GET("/status", h.status)

		api.GET("/stats", h.getStats)
		api.DELETE("/stats", h.clearData)
		api.DELETE("/data", h.purgeAll)
		api.POST("/stats/weekly", h.recomputeWeekly)

		api.GET("/settings", h.getSettings)
		api.PUT("/settings", h.updateSettings)
		api.GET("/categories", h.categories)

		api.GET("/focus", h.getFocus)
		api.POST("/focus", h.startFocus)
		api.DELETE("/focus", h.endFocus)

		api.GET("/report/weekly", h.exportWeeklyReport)
		api.POST("/activity/flush", h.flushActivity)
		api.POST("/intervals", h.addInterval)
		api.GET("/notifications", h.notifications)
	}
}

// Handler returns the http.Handler for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Addr is the configured listen address.
func (s *Server) Addr() string {
	d := s.app.Config.Daemon
	return net.JoinHostPort(d.Host, strconv.Itoa(d.Port))
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.Addr(),
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("serve %s: %w", srv.Addr, err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
