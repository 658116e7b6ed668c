// Package limits fires goal, site and category notifications at most once
// per threshold per day.
package limits

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/runnerr0/dwell/internal/clock"
	"github.com/runnerr0/dwell/internal/notify"
	"github.com/runnerr0/dwell/internal/stats"
	"github.com/runnerr0/dwell/internal/storage"
)

// Notifier displays a notification to the user.
type Notifier interface {
	Notify(ctx context.Context, kind, title, message string) error
}

// NotifiedSet holds the thresholds already fired for one date.
type NotifiedSet struct {
	Keys map[string]bool `json:"keys"`
}

// Key builders for NotifiedSet entries.
const goalKey = "goal"

func siteKey(domain string) string { return "site:" + domain }

func categoryKey(category string) string { return "category:" + category }

type alert struct {
	key, kind, title, message string
}

// Evaluator checks thresholds after every merge.
type Evaluator struct {
	mu       sync.Mutex
	store    storage.Store
	notifier Notifier
	clock    clock.Clock
	logger   *slog.Logger
}

func NewEvaluator(store storage.Store, n Notifier, clk clock.Clock, logger *slog.Logger) *Evaluator {
	if logger == nil {
		logger = slog.Default()
	}
	if clk == nil {
		clk = clock.SystemClock{}
	}
	return &Evaluator{
		store:    store,
		notifier: n,
		clock:    clk,
		logger:   logger.With("component", "limits"),
	}
}

// Observe implements stats.Observer. Only records for today are evaluated;
// backfilled days never notify.
func (e *Evaluator) Observe(ctx context.Context, obs stats.Observation) error {
	s := obs.Settings
	if !s.NotificationsEnabled {
		return nil
	}
	date := obs.Record.Date
	if date != clock.Date(e.clock.Now()) {
		return nil
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	candidates := thresholds(obs)
	if len(candidates) == 0 {
		return nil
	}

	set := NotifiedSet{Keys: map[string]bool{}}
	key := stats.NotifiedPrefix + date
	if _, err := storage.GetJSON(ctx, e.store, key, &set); err != nil {
		return fmt.Errorf("load notified flags: %w", err)
	}
	if set.Keys == nil {
		set.Keys = map[string]bool{}
	}

	changed := false
	var firstErr error
	for _, a := range candidates {
		if set.Keys[a.key] {
			continue
		}
		if err := e.notifier.Notify(ctx, a.kind, a.title, a.message); err != nil {
			e.logger.Warn("notification failed", "key", a.key, "error", err)
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		set.Keys[a.key] = true
		changed = true
	}

	if changed {
		if err := storage.PutJSON(ctx, e.store, key, set); err != nil {
			return fmt.Errorf("save notified flags: %w", err)
		}
	}
	return firstErr
}

// thresholds lists every limit currently met or exceeded.
func thresholds(obs stats.Observation) []alert {
	s := obs.Settings
	day := obs.Day
	domain := obs.Record.Domain
	category := obs.Record.Category

	var out []alert
	if s.DailyScreenTimeGoal > 0 {
		minutes := stats.Minutes(day.TotalTimeSeconds)
		if minutes >= s.DailyScreenTimeGoal {
			out = append(out, alert{
				key:     goalKey,
				kind:    notify.KindGoal,
				title:   "Daily Limit Reached",
				message: fmt.Sprintf("You've spent %d minutes online today.", minutes),
			})
		}
	}
	if limit := s.SiteLimits[domain]; limit > 0 && stats.Minutes(day.PerDomainSeconds[domain]) >= limit {
		out = append(out, alert{
			key:     siteKey(domain),
			kind:    notify.KindSite,
			title:   "Site Limit",
			message: fmt.Sprintf("You've exceeded your limit for %s.", domain),
		})
	}
	if limit := s.CategoryLimits[category]; limit > 0 && stats.Minutes(day.PerCategorySeconds[category]) >= limit {
		out = append(out, alert{
			key:     categoryKey(category),
			kind:    notify.KindCategory,
			title:   "Category Limit",
			message: fmt.Sprintf("You've exceeded your %s limit for today.", category),
		})
	}
	return out
}

// Fired returns the sorted threshold keys already notified on date.
func (e *Evaluator) Fired(ctx context.Context, date string) ([]string, error) {
	var set NotifiedSet
	if _, err := storage.GetJSON(ctx, e.store, stats.NotifiedPrefix+date, &set); err != nil {
		return nil, fmt.Errorf("load notified flags: %w", err)
	}
	keys := make([]string, 0, len(set.Keys))
	for k := range set.Keys {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys, nil
}
