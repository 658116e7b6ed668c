// Package notify queues user-facing notifications until the browser
// extension polls for them and displays them.
package notify

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/runnerr0/dwell/internal/clock"
	"github.com/runnerr0/dwell/internal/metrics"
	"github.com/runnerr0/dwell/internal/storage"
)

// Notification kinds.
const (
	KindGoal          = "goal"
	KindSite          = "site"
	KindCategory      = "category"
	KindFocus         = "focus"
	KindDailySummary  = "daily_summary"
	KindWeeklySummary = "weekly_summary"
	KindBreak         = "break"
)

// Outbox persists notifications in the notification log.
type Outbox struct {
	log    storage.NotificationLog
	clock  clock.Clock
	logger *slog.Logger
}

func NewOutbox(log storage.NotificationLog, clk clock.Clock, logger *slog.Logger) *Outbox {
	if logger == nil {
		logger = slog.Default()
	}
	if clk == nil {
		clk = clock.SystemClock{}
	}
	return &Outbox{log: log, clock: clk, logger: logger.With("component", "notify")}
}

// Notify queues a notification for display.
func (o *Outbox) Notify(ctx context.Context, kind, title, message string) error {
	n := &storage.Notification{
		ID:        uuid.NewString(),
		Kind:      kind,
		Title:     title,
		Message:   message,
		CreatedAt: o.clock.Now(),
	}
	if err := o.log.AppendNotification(ctx, n); err != nil {
		return fmt.Errorf("queue %s notification: %w", kind, err)
	}
	metrics.TrackNotification(kind)
	o.logger.Info("notification queued", "id", n.ID, "kind", kind, "title", title)
	return nil
}

// Pending returns queued notifications without marking them delivered.
func (o *Outbox) Pending(ctx context.Context, limit int) ([]storage.Notification, error) {
	return o.log.PendingNotifications(ctx, limit)
}

// Drain returns up to limit queued notifications and marks them delivered.
func (o *Outbox) Drain(ctx context.Context, limit int) ([]storage.Notification, error) {
	notes, err := o.Pending(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("load pending notifications: %w", err)
	}
	if len(notes) == 0 {
		return notes, nil
	}
	ids := make([]string, len(notes))
	for i, n := range notes {
		ids[i] = n.ID
	}
	if err := o.log.MarkDelivered(ctx, ids); err != nil {
		return nil, fmt.Errorf("mark delivered: %w", err)
	}
	return notes, nil
}
