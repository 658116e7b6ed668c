package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Tracking metrics
	IntervalsRecorded = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dwell_intervals_recorded_total",
			Help: "Closed activity intervals merged into daily stats",
		},
		[]string{"category"},
	)

	SecondsRecorded = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dwell_seconds_recorded_total",
			Help: "Seconds of activity merged into daily stats",
		},
		[]string{"category"},
	)

	IntervalsDiscarded = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dwell_intervals_discarded_total",
			Help: "Intervals dropped before accounting",
		},
		[]string{"reason"}, // short, internal, incognito, privacy, blocked
	)

	// Aggregation metrics
	MergeDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "dwell_merge_duration_seconds",
			Help:    "Duration of a single interval merge including retries",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
		},
	)

	MergeFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dwell_merge_failures_total",
			Help: "Storage failures while merging, by step",
		},
		[]string{"step"}, // daily, score, pending
	)

	PendingMerges = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "dwell_pending_merges",
			Help: "Intervals waiting to be re-applied after a storage failure",
		},
	)

	ProductivityScore = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "dwell_productivity_score",
			Help: "Today's productivity score",
		},
	)

	// Notification metrics
	NotificationsSent = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dwell_notifications_total",
			Help: "Notifications queued for display",
		},
		[]string{"kind"},
	)

	// Focus metrics
	FocusSessions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dwell_focus_sessions_total",
			Help: "Focus session lifecycle events",
		},
		[]string{"event"}, // started, ended, expired, restored
	)

	FocusActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "dwell_focus_active",
			Help: "1 while a focus session is active",
		},
	)

	// Scheduler metrics
	ScheduledRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dwell_scheduled_runs_total",
			Help: "Scheduled job executions",
		},
		[]string{"job", "status"},
	)
)

// TrackDiscard increments the discard counter for reason.
func TrackDiscard(reason string) {
	IntervalsDiscarded.WithLabelValues(reason).Inc()
}

// TrackRecorded counts one merged interval.
func TrackRecorded(category string, seconds int64) {
	IntervalsRecorded.WithLabelValues(category).Inc()
	SecondsRecorded.WithLabelValues(category).Add(float64(seconds))
}

// TrackNotification counts one queued notification.
func TrackNotification(kind string) {
	NotificationsSent.WithLabelValues(kind).Inc()
}

// TrackFocus counts a focus lifecycle event.
func TrackFocus(event string) {
	FocusSessions.WithLabelValues(event).Inc()
}

// TrackJob counts one scheduler run.
func TrackJob(job string, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	ScheduledRuns.WithLabelValues(job, status).Inc()
}
