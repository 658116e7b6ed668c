package metrics

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestTrackRecorded(t *testing.T) {
	intervals := testutil.ToFloat64(IntervalsRecorded.WithLabelValues("Work"))
	seconds := testutil.ToFloat64(SecondsRecorded.WithLabelValues("Work"))

	TrackRecorded("Work", 90)

	assert.Equal(t, intervals+1, testutil.ToFloat64(IntervalsRecorded.WithLabelValues("Work")))
	assert.Equal(t, seconds+90, testutil.ToFloat64(SecondsRecorded.WithLabelValues("Work")))
}

func TestTrackJob_LabelsStatus(t *testing.T) {
	ok := testutil.ToFloat64(ScheduledRuns.WithLabelValues("tick", "ok"))
	failed := testutil.ToFloat64(ScheduledRuns.WithLabelValues("tick", "error"))

	TrackJob("tick", nil)
	TrackJob("tick", errors.New("disk full"))
	TrackJob("tick", errors.New("disk full"))

	assert.Equal(t, ok+1, testutil.ToFloat64(ScheduledRuns.WithLabelValues("tick", "ok")))
	assert.Equal(t, failed+2, testutil.ToFloat64(ScheduledRuns.WithLabelValues("tick", "error")))
}

func TestTrackDiscard(t *testing.T) {
	before := testutil.ToFloat64(IntervalsDiscarded.WithLabelValues("short"))
	TrackDiscard("short")
	assert.Equal(t, before+1, testutil.ToFloat64(IntervalsDiscarded.WithLabelValues("short")))
}
