package app

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/runnerr0/dwell/internal/clock"
	"github.com/runnerr0/dwell/internal/metrics"
	"github.com/runnerr0/dwell/internal/notify"
	"github.com/runnerr0/dwell/internal/stats"
)

// breakCheckInterval is how often the break reminder re-reads its period
// from settings.
const breakCheckInterval = time.Minute

// Scheduler runs the periodic jobs of the daemon.
type Scheduler struct {
	app *App

	tick          time.Duration
	weekly        time.Duration
	weeklySummary time.Duration
	dailySummary  time.Duration

	lastBreak time.Time
}

// Scheduler builds the job runner from the app's configuration.
func (a *App) Scheduler() *Scheduler {
	sc := a.Config.Schedule
	return &Scheduler{
		app:           a,
		tick:          a.Config.Tracking.TickInterval(),
		weekly:        minutes(sc.WeeklyRecomputeMinutes),
		weeklySummary: minutes(sc.WeeklySummaryMinutes),
		dailySummary:  minutes(sc.DailySummaryMinutes),
		lastBreak:     a.Now(),
	}
}

func minutes(n int) time.Duration {
	return time.Duration(n) * time.Minute
}

// Run blocks until ctx is cancelled. A job error is logged and the job keeps
// running on its next period.
func (s *Scheduler) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	s.every(ctx, g, "tick", s.tick, s.Tick)
	s.every(ctx, g, "weekly_recompute", s.weekly, func(ctx context.Context) error {
		_, err := s.app.RecomputeWeekly(ctx)
		return err
	})
	s.every(ctx, g, "weekly_summary", s.weeklySummary, s.WeeklySummary)
	s.every(ctx, g, "daily_summary", s.dailySummary, s.DailySummary)
	s.every(ctx, g, "break_reminder", breakCheckInterval, s.BreakReminder)
	return g.Wait()
}

func (s *Scheduler) every(ctx context.Context, g *errgroup.Group, name string, period time.Duration, job func(context.Context) error) {
	if period <= 0 {
		s.app.logger.Info("scheduled job disabled", "job", name)
		return
	}
	g.Go(func() error {
		ticker := time.NewTicker(period)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return nil
			case <-ticker.C:
				err := job(ctx)
				metrics.TrackJob(name, err)
				if err != nil {
					s.app.logger.Error("scheduled job failed", "job", name, "error", err)
				}
			}
		}
	})
}

// Tick persists the open interval, rolls the score over at midnight and
// retries parked merges.
func (s *Scheduler) Tick(ctx context.Context) error {
	if err := s.app.Router.Tick(ctx); err != nil {
		return fmt.Errorf("tick: %w", err)
	}
	if _, err := s.app.Stats.RollScore(ctx); err != nil {
		return err
	}
	if s.app.Stats.PendingCount() > 0 {
		if err := s.app.Stats.FlushPending(ctx); err != nil {
			return fmt.Errorf("flush pending: %w", err)
		}
	}
	return nil
}

// DailySummary reports yesterday's total.
func (s *Scheduler) DailySummary(ctx context.Context) error {
	yesterday := clock.ShiftDate(s.app.Today(), -1)
	day, found, err := s.app.Stats.Day(ctx, yesterday)
	if err != nil || !found {
		return err
	}
	set, err := s.app.Settings.Load(ctx)
	if err != nil {
		return err
	}
	if !set.NotificationsEnabled {
		return nil
	}
	m := stats.Minutes(day.TotalTimeSeconds)
	msg := fmt.Sprintf("Yesterday: %d min online.", m)
	if m > set.DailyScreenTimeGoal {
		msg += " Over goal!"
	}
	return s.app.Outbox.Notify(ctx, notify.KindDailySummary, "Daily Summary", msg)
}

// WeeklySummary recomputes the weekly cache and announces the report.
func (s *Scheduler) WeeklySummary(ctx context.Context) error {
	if _, err := s.app.RecomputeWeekly(ctx); err != nil {
		return err
	}
	set, err := s.app.Settings.Load(ctx)
	if err != nil {
		return err
	}
	if !set.NotificationsEnabled {
		return nil
	}
	return s.app.Outbox.Notify(ctx, notify.KindWeeklySummary, "Weekly Summary", "Your weekly report is ready!")
}

// BreakReminder suggests a break every breakReminderInterval minutes once
// today's total has reached that interval.
func (s *Scheduler) BreakReminder(ctx context.Context) error {
	set, err := s.app.Settings.Load(ctx)
	if err != nil {
		return err
	}
	if set.BreakReminderInterval <= 0 {
		return nil
	}
	now := s.app.Now()
	if now.Sub(s.lastBreak) < minutes(set.BreakReminderInterval) {
		return nil
	}
	s.lastBreak = now

	day, _, err := s.app.Stats.Day(ctx, s.app.Today())
	if err != nil {
		return err
	}
	if stats.Minutes(day.TotalTimeSeconds) < set.BreakReminderInterval || !set.NotificationsEnabled {
		return nil
	}
	return s.app.Outbox.Notify(ctx, notify.KindBreak, "Take a Break", "You have been online for a while. Time for a break?")
}
