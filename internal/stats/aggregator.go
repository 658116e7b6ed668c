// Package stats merges closed activity intervals into per-day records and
// derives the weekly cache and the productivity score from them.
package stats

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/runnerr0/dwell/internal/classify"
	"github.com/runnerr0/dwell/internal/clock"
	"github.com/runnerr0/dwell/internal/metrics"
	"github.com/runnerr0/dwell/internal/settings"
	"github.com/runnerr0/dwell/internal/storage"
)

// maxPending bounds the retry queue; the oldest parked record is dropped
// beyond it.
const maxPending = 1024

// SettingsSource supplies the current user settings.
type SettingsSource interface {
	Load(ctx context.Context) (settings.Settings, error)
}

// Observation is handed to the Observer after a record has been merged.
type Observation struct {
	Record   Record
	Day      DailyStats
	Settings settings.Settings
}

// Observer reacts to merged records, e.g. by evaluating limits.
type Observer interface {
	Observe(ctx context.Context, obs Observation) error
}

// Options tunes an Aggregator.
type Options struct {
	Retries   int
	Backoff   time.Duration
	Sensitive []string
	Observer  Observer
	Logger    *slog.Logger
}

type pendingMerge struct {
	rec       Record
	dailyDone bool
	scoreDone bool
}

// Aggregator is the single writer of daily stats and the score. Merges are
// serialized so concurrent read-modify-write cycles never lose updates.
type Aggregator struct {
	mu sync.Mutex

	store     storage.Store
	settings  SettingsSource
	clock     clock.Clock
	observer  Observer
	logger    *slog.Logger
	retries   int
	backoff   time.Duration
	sensitive []string

	pending []pendingMerge
}

func NewAggregator(store storage.Store, src SettingsSource, clk clock.Clock, opts Options) *Aggregator {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if clk == nil {
		clk = clock.SystemClock{}
	}
	sensitive := make([]string, 0, len(opts.Sensitive))
	for _, d := range opts.Sensitive {
		if d = classify.NormalizeDomain(d); d != "" {
			sensitive = append(sensitive, d)
		}
	}
	return &Aggregator{
		store:     store,
		settings:  src,
		clock:     clk,
		observer:  opts.Observer,
		logger:    logger.With("component", "stats"),
		retries:   opts.Retries,
		backoff:   opts.Backoff,
		sensitive: sensitive,
	}
}

// Merge adds rec to its day and to the score, then notifies the observer.
// Records parked by earlier failures are applied first. On failure rec is
// parked and the wrapped storage error is returned.
func (a *Aggregator) Merge(ctx context.Context, rec Record) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	p := pendingMerge{rec: rec}
	if err := a.drainLocked(ctx); err != nil {
		a.park(p)
		return fmt.Errorf("drain pending merges: %w", err)
	}
	if err := a.applyLocked(ctx, &p); err != nil {
		a.park(p)
		return err
	}
	return nil
}

// FlushPending re-applies parked records.
func (a *Aggregator) FlushPending(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.drainLocked(ctx)
}

// PendingCount reports how many records await re-application.
func (a *Aggregator) PendingCount() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.pending)
}

func (a *Aggregator) park(p pendingMerge) {
	if len(a.pending) >= maxPending {
		dropped := a.pending[0]
		a.pending = a.pending[1:]
		a.logger.Error("pending queue full, dropping record",
			"domain", dropped.rec.Domain, "date", dropped.rec.Date, "seconds", dropped.rec.Seconds)
		metrics.TrackDiscard("overflow")
	}
	a.pending = append(a.pending, p)
	metrics.PendingMerges.Set(float64(len(a.pending)))
}

func (a *Aggregator) drainLocked(ctx context.Context) error {
	for len(a.pending) > 0 {
		if err := a.applyLocked(ctx, &a.pending[0]); err != nil {
			metrics.MergeFailures.WithLabelValues("pending").Inc()
			return err
		}
		a.pending = a.pending[1:]
		metrics.PendingMerges.Set(float64(len(a.pending)))
	}
	return nil
}

// applyLocked runs the persist steps not yet completed for p. Completed
// steps are recorded on p so a re-application never double counts.
func (a *Aggregator) applyLocked(ctx context.Context, p *pendingMerge) error {
	timer := prometheus.NewTimer(metrics.MergeDuration)
	defer timer.ObserveDuration()

	rec := p.rec
	if rec.Domain == "" || rec.Date == "" || rec.Seconds <= 0 {
		metrics.TrackDiscard("empty")
		return nil
	}
	if rec.Category == "" {
		rec.Category = classify.Other
	}

	s, err := a.settings.Load(ctx)
	if err != nil {
		a.logger.Warn("settings unavailable, using defaults", "error", err)
		s = settings.Defaults()
	}
	if s.PrivacyLevel == settings.PrivacyStrict && a.isSensitive(rec.Domain) {
		metrics.TrackDiscard("privacy")
		return nil
	}

	var day DailyStats
	if !p.dailyDone {
		err := a.retry(ctx, func() error {
			var err error
			day, err = a.addToDay(ctx, rec)
			return err
		})
		if err != nil {
			metrics.MergeFailures.WithLabelValues("daily").Inc()
			return fmt.Errorf("merge %s into %s: %w", rec.Domain, rec.Date, err)
		}
		p.dailyDone = true
	} else {
		day, _, err = a.Day(ctx, rec.Date)
		if err != nil {
			a.logger.Warn("reload day failed", "date", rec.Date, "error", err)
		}
	}

	if !p.scoreDone {
		err := a.retry(ctx, func() error {
			return a.addToScore(ctx, rec, s.IsProductive(rec.Domain))
		})
		if err != nil {
			metrics.MergeFailures.WithLabelValues("score").Inc()
			return fmt.Errorf("update score: %w", err)
		}
		p.scoreDone = true
	}

	metrics.TrackRecorded(rec.Category, rec.Seconds)
	a.logger.Debug("merged interval",
		"domain", rec.Domain, "category", rec.Category, "date", rec.Date, "seconds", rec.Seconds)

	if a.observer != nil {
		if err := a.observer.Observe(ctx, Observation{Record: rec, Day: day, Settings: s}); err != nil {
			a.logger.Warn("observer failed", "domain", rec.Domain, "error", err)
		}
	}
	return nil
}

func (a *Aggregator) addToDay(ctx context.Context, rec Record) (DailyStats, error) {
	day := NewDailyStats()
	if _, err := storage.GetJSON(ctx, a.store, DailyKey(rec.Date), &day); err != nil {
		return DailyStats{}, err
	}
	day.Add(rec)
	if err := storage.PutJSON(ctx, a.store, DailyKey(rec.Date), day); err != nil {
		return DailyStats{}, err
	}
	return day, nil
}

func (a *Aggregator) addToScore(ctx context.Context, rec Record, productive bool) error {
	var sc ProductivityScore
	if _, err := storage.GetJSON(ctx, a.store, ScoreKey, &sc); err != nil {
		return err
	}
	sc = UpdateScore(sc, rec, clock.Date(a.clock.Now()), productive)
	if err := storage.PutJSON(ctx, a.store, ScoreKey, sc); err != nil {
		return err
	}
	metrics.ProductivityScore.Set(sc.Today)
	return nil
}

func (a *Aggregator) retry(ctx context.Context, op func() error) error {
	var err error
	for attempt := 0; attempt <= a.retries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(a.backoff * time.Duration(attempt)):
			}
		}
		if err = op(); err == nil {
			return nil
		}
		a.logger.Warn("storage step failed", "attempt", attempt+1, "error", err)
	}
	return err
}

func (a *Aggregator) isSensitive(domain string) bool {
	for _, d := range a.sensitive {
		if domain == d || strings.HasSuffix(domain, "."+d) {
			return true
		}
	}
	return false
}

// RollScore persists the day rollover of the score even when nothing was
// recorded yet today.
func (a *Aggregator) RollScore(ctx context.Context) (ProductivityScore, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	var sc ProductivityScore
	if _, err := storage.GetJSON(ctx, a.store, ScoreKey, &sc); err != nil {
		return ProductivityScore{}, fmt.Errorf("load score: %w", err)
	}
	rolled := RollScore(sc, clock.Date(a.clock.Now()))
	if rolled.Date == sc.Date {
		return sc, nil
	}
	if err := storage.PutJSON(ctx, a.store, ScoreKey, rolled); err != nil {
		return ProductivityScore{}, fmt.Errorf("save score: %w", err)
	}
	metrics.ProductivityScore.Set(rolled.Today)
	return rolled, nil
}

// RefreshWeekly recomputes the weekly cache from the daily records and
// stores it.
func (a *Aggregator) RefreshWeekly(ctx context.Context) (WeeklyStats, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	daily, err := a.allDays(ctx)
	if err != nil {
		return WeeklyStats{}, err
	}
	w := RecomputeWeekly(daily, clock.Date(a.clock.Now()))
	if err := storage.PutJSON(ctx, a.store, WeeklyKey, w); err != nil {
		return WeeklyStats{}, fmt.Errorf("save weekly: %w", err)
	}
	return w, nil
}

// Day returns the stats for date and whether any were recorded.
func (a *Aggregator) Day(ctx context.Context, date string) (DailyStats, bool, error) {
	day := NewDailyStats()
	found, err := storage.GetJSON(ctx, a.store, DailyKey(date), &day)
	if err != nil {
		return NewDailyStats(), false, fmt.Errorf("load day %s: %w", date, err)
	}
	return day, found, nil
}

// Snapshot returns all daily records, the weekly cache and the score. A
// missing weekly cache is computed on the fly but not stored.
func (a *Aggregator) Snapshot(ctx context.Context) (Snapshot, error) {
	daily, err := a.allDays(ctx)
	if err != nil {
		return Snapshot{}, err
	}
	today := clock.Date(a.clock.Now())

	var weekly WeeklyStats
	found, err := storage.GetJSON(ctx, a.store, WeeklyKey, &weekly)
	if err != nil {
		return Snapshot{}, fmt.Errorf("load weekly: %w", err)
	}
	if !found {
		weekly = RecomputeWeekly(daily, today)
	}

	var sc ProductivityScore
	if _, err := storage.GetJSON(ctx, a.store, ScoreKey, &sc); err != nil {
		return Snapshot{}, fmt.Errorf("load score: %w", err)
	}

	return Snapshot{
		DailyStats:        daily,
		WeeklyStats:       weekly,
		ProductivityScore: RollScore(sc, today),
	}, nil
}

func (a *Aggregator) allDays(ctx context.Context) (map[string]DailyStats, error) {
	entries, err := a.store.List(ctx, DailyPrefix)
	if err != nil {
		return nil, fmt.Errorf("list days: %w", err)
	}
	daily := make(map[string]DailyStats, len(entries))
	for _, e := range entries {
		key := strings.TrimPrefix(e.Key, DailyPrefix)
		day := NewDailyStats()
		if err := storage.DecodeJSON(e, &day); err != nil {
			a.logger.Warn("skipping corrupt day", "key", e.Key, "error", err)
			continue
		}
		daily[key] = day
	}
	return daily, nil
}

// ClearAll deletes daily records, the weekly cache, the score and the
// notification flags. Settings and the focus session are kept.
func (a *Aggregator) ClearAll(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	for _, prefix := range []string{DailyPrefix, NotifiedPrefix} {
		if _, err := a.store.DeletePrefix(ctx, prefix); err != nil {
			return fmt.Errorf("clear %s: %w", prefix, err)
		}
	}
	for _, key := range []string{WeeklyKey, ScoreKey} {
		if err := a.store.Delete(ctx, key); err != nil {
			return fmt.Errorf("clear %s: %w", key, err)
		}
	}
	a.pending = nil
	metrics.PendingMerges.Set(0)
	metrics.ProductivityScore.Set(0)
	a.logger.Info("cleared all statistics")
	return nil
}
