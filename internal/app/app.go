// Package app wires the accounting core together and exposes the actions
// the popup, the options page and the CLI invoke.
package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/runnerr0/dwell/internal/classify"
	"github.com/runnerr0/dwell/internal/clock"
	"github.com/runnerr0/dwell/internal/config"
	"github.com/runnerr0/dwell/internal/focus"
	"github.com/runnerr0/dwell/internal/limits"
	"github.com/runnerr0/dwell/internal/notify"
	"github.com/runnerr0/dwell/internal/report"
	"github.com/runnerr0/dwell/internal/settings"
	"github.com/runnerr0/dwell/internal/stats"
	"github.com/runnerr0/dwell/internal/storage"
	"github.com/runnerr0/dwell/internal/tracker"
)

var ErrInvalidInterval = errors.New("interval needs a domain, a YYYY-MM-DD date and positive seconds")

// App holds every long-lived component of the daemon.
type App struct {
	Config     *config.Config
	Store      *storage.SQLiteStore
	Settings   *settings.Repo
	Stats      *stats.Aggregator
	Limits     *limits.Evaluator
	Outbox     *notify.Outbox
	Focus      *focus.Manager
	Router     *tracker.Router
	Classifier *classify.Classifier

	db     *sql.DB
	clock  clock.Clock
	logger *slog.Logger
}

// Open opens the database named by cfg and builds all components.
func Open(cfg *config.Config, clk clock.Clock, logger *slog.Logger) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if clk == nil {
		clk = clock.SystemClock{}
	}

	dbPath, err := cfg.DBPath()
	if err != nil {
		return nil, fmt.Errorf("resolve database path: %w", err)
	}
	store, db, err := storage.Open(dbPath, cfg.Storage.SQLiteJournalMode)
	if err != nil {
		return nil, err
	}

	a := &App{
		Config:     cfg,
		Store:      store,
		Settings:   settings.NewRepo(store),
		Outbox:     notify.NewOutbox(store, clk, logger),
		Classifier: classify.New(cfg.Categories),
		db:         db,
		clock:      clk,
		logger:     logger,
	}
	a.Limits = limits.NewEvaluator(store, a.Outbox, clk, logger)
	a.Stats = stats.NewAggregator(store, a.Settings, clk, stats.Options{
		Retries:   cfg.Tracking.StorageRetries,
		Backoff:   cfg.Tracking.RetryBackoff(),
		Sensitive: cfg.SensitiveDomains(),
		Observer:  a.Limits,
		Logger:    logger,
	})
	a.Focus = focus.NewManager(store, a.Outbox, clk, logger)
	a.Router = tracker.NewRouter(
		tracker.NewTimer(a.Classifier, cfg.Tracking.MinInterval(), cfg.Tracking.ExcludeIncognito),
		a.Stats,
		tracker.RouterOptions{
			Focus:          a.Focus,
			Clock:          clk,
			BlockedPageURL: cfg.Daemon.BlockedPageURL,
			Logger:         logger,
		},
	)
	return a, nil
}

// Restore brings persisted runtime state back after a restart.
func (a *App) Restore(ctx context.Context) error {
	s, err := a.Focus.Restore(ctx)
	if err != nil {
		return err
	}
	if s.Active {
		a.logger.Info("resumed focus session", "ends_at", s.EndsAt.Format(time.RFC3339))
	}
	if _, err := a.Stats.RollScore(ctx); err != nil {
		return err
	}
	return nil
}

// Close stops the focus timer and releases the database. A running focus
// session stays persisted and is restored on the next start.
func (a *App) Close() error {
	a.Focus.Shutdown()
	return closeAll(a.Store.Close, a.db.Close)
}

// closeAll runs every fn, even after a failure, and joins their errors.
func closeAll(fns ...func() error) error {
	var errs []error
	for _, fn := range fns {
		if err := fn(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Now reports the app clock's time.
func (a *App) Now() time.Time {
	return a.clock.Now()
}

// Today returns the current date key.
func (a *App) Today() string {
	return clock.Date(a.clock.Now())
}

// GetStats returns daily, weekly and score data.
func (a *App) GetStats(ctx context.Context) (stats.Snapshot, error) {
	return a.Stats.Snapshot(ctx)
}

// GetSettings returns stored settings or defaults.
func (a *App) GetSettings(ctx context.Context) (settings.Settings, error) {
	return a.Settings.Load(ctx)
}

// UpdateSettings replaces the whole settings record.
func (a *App) UpdateSettings(ctx context.Context, s settings.Settings) error {
	if err := a.Settings.Save(ctx, s); err != nil {
		return err
	}
	a.logger.Info("settings updated")
	return nil
}

// StartFocus begins a focus session.
func (a *App) StartFocus(ctx context.Context, minutes int, domains []string) (focus.Session, error) {
	return a.Focus.Start(ctx, minutes, domains)
}

// EndFocus ends the focus session if one is active.
func (a *App) EndFocus(ctx context.Context) error {
	return a.Focus.End(ctx)
}

// GetFocus returns the current focus session.
func (a *App) GetFocus() focus.Session {
	return a.Focus.Get()
}

// Export is a rendered weekly report.
type Export struct {
	FileName string `json:"fileName"`
	Path     string `json:"path,omitempty"`
	Content  string `json:"content"`
}

// ExportWeeklyReport refreshes the weekly cache, renders it and writes it to
// the configured download directory.
func (a *App) ExportWeeklyReport(ctx context.Context) (Export, error) {
	w, err := a.Stats.RefreshWeekly(ctx)
	if err != nil {
		return Export{}, err
	}
	today := a.Today()
	exp := Export{
		FileName: report.FileName(today),
		Content:  report.Weekly(w),
	}

	dir, err := config.ExpandPath(a.Config.Report.DownloadDir)
	if err != nil {
		return Export{}, fmt.Errorf("resolve download directory: %w", err)
	}
	path, err := report.Write(dir, today, exp.Content)
	if err != nil {
		return Export{}, err
	}
	exp.Path = path
	a.logger.Info("weekly report exported", "path", path)
	return exp, nil
}

// UpdateCurrentActivity persists the open interval without ending it.
func (a *App) UpdateCurrentActivity(ctx context.Context) error {
	return a.Router.Flush(ctx)
}

// RecomputeWeekly refreshes the weekly cache.
func (a *App) RecomputeWeekly(ctx context.Context) (stats.WeeklyStats, error) {
	return a.Stats.RefreshWeekly(ctx)
}

// ClearData deletes all statistics; settings and focus are kept.
func (a *App) ClearData(ctx context.Context) error {
	return a.Stats.ClearAll(ctx)
}

// PurgeAll ends any focus session and deletes every stored record,
// settings and notifications included.
func (a *App) PurgeAll(ctx context.Context) error {
	if err := a.Focus.End(ctx); err != nil {
		return err
	}
	if err := a.Stats.ClearAll(ctx); err != nil {
		return err
	}
	if err := a.Store.PurgeAll(ctx); err != nil {
		return err
	}
	a.logger.Warn("all data purged")
	return nil
}

// Notifications hands queued notifications to the extension.
func (a *App) Notifications(ctx context.Context, limit int) ([]storage.Notification, error) {
	return a.Outbox.Drain(ctx, limit)
}

// AddInterval merges a manually entered interval. domain may be a bare host
// or a URL.
func (a *App) AddInterval(ctx context.Context, domain, date string, seconds int64) (stats.Record, error) {
	var d string
	if ds := focus.NormalizeDomains([]string{domain}); len(ds) == 1 {
		d = ds[0]
	}
	if _, err := time.Parse(clock.DateLayout, date); err != nil || d == "" || seconds <= 0 {
		return stats.Record{}, ErrInvalidInterval
	}
	rec := stats.Record{
		Domain:   d,
		Category: a.Classifier.Category(d),
		Date:     date,
		Seconds:  seconds,
	}
	if err := a.Stats.Merge(ctx, rec); err != nil {
		return stats.Record{}, err
	}
	return rec, nil
}

// Status describes the daemon and its database.
type Status struct {
	Today         string                  `json:"today"`
	TodaySeconds  int64                   `json:"todaySeconds"`
	TodayMinutes  int                     `json:"todayMinutes"`
	Score         float64                 `json:"score"`
	Focus         focus.Session           `json:"focus"`
	Tracking      *tracker.ActiveInterval `json:"tracking,omitempty"`
	LimitsFired   []string                `json:"limitsFired"`
	PendingMerges int                     `json:"pendingMerges"`
	Database      *storage.Summary        `json:"database"`
}

// Status gathers a health summary.
func (a *App) Status(ctx context.Context) (*Status, error) {
	today := a.Today()
	day, _, err := a.Stats.Day(ctx, today)
	if err != nil {
		return nil, err
	}
	snap, err := a.Stats.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	sum, err := a.Store.Summary(ctx, stats.DailyPrefix)
	if err != nil {
		return nil, err
	}
	fs, err := focus.Load(ctx, a.Store)
	if err != nil {
		return nil, err
	}
	fired, err := a.Limits.Fired(ctx, today)
	if err != nil {
		return nil, err
	}
	return &Status{
		Today:         today,
		TodaySeconds:  day.TotalTimeSeconds,
		TodayMinutes:  stats.Minutes(day.TotalTimeSeconds),
		Score:         snap.ProductivityScore.Today,
		Focus:         fs,
		Tracking:      a.Router.State().Active,
		LimitsFired:   fired,
		PendingMerges: a.Stats.PendingCount(),
		Database:      sum,
	}, nil
}
