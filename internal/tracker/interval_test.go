package tracker

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/runnerr0/dwell/internal/classify"
	"github.com/runnerr0/dwell/internal/stats"
)

var t0 = time.Date(2026, 10, 18, 12, 0, 0, 0, time.Local)

func newTestTimer() *Timer {
	return NewTimer(classify.New(nil), time.Second, true)
}

func tab(id int, url string) Tab {
	return Tab{ID: id, URL: url}
}

func total(recs []stats.Record) int64 {
	var sum int64
	for _, r := range recs {
		sum += r.Seconds
	}
	return sum
}

func TestActivate_ClosesPreviousAndOpensNew(t *testing.T) {
	tm := newTestTimer()

	s, recs := tm.Activate(State{}, tab(1, "https://www.github.com/golang/go"), t0)
	assert.Empty(t, recs)
	require.NotNil(t, s.Active)
	assert.Equal(t, "github.com", s.Active.Domain)
	assert.Equal(t, classify.Work, s.Active.Category)

	s, recs = tm.Activate(s, tab(2, "https://youtube.com/watch?v=1"), t0.Add(90*time.Second))
	require.Len(t, recs, 1)
	assert.Equal(t, stats.Record{Domain: "github.com", Category: classify.Work, Date: "2026-10-18", Seconds: 90}, recs[0])
	assert.Equal(t, 2, s.Active.TabID)
}

func TestClose_BelowFloorIsDiscarded(t *testing.T) {
	tm := newTestTimer()

	s, _ := tm.Activate(State{}, tab(1, "https://example.com"), t0)
	_, recs := tm.Activate(s, tab(2, "https://other.com"), t0.Add(999*time.Millisecond))
	assert.Empty(t, recs)
}

func TestClose_RoundsToNearestSecond(t *testing.T) {
	tm := newTestTimer()

	s, _ := tm.Activate(State{}, tab(1, "https://example.com"), t0)
	_, recs := tm.Idle(s, t0.Add(1500*time.Millisecond))
	require.Len(t, recs, 1)
	assert.Equal(t, int64(2), recs[0].Seconds)
}

func TestInternalAndIncognitoNeverOpen(t *testing.T) {
	tm := newTestTimer()

	s, _ := tm.Activate(State{}, tab(1, "chrome://settings"), t0)
	assert.Nil(t, s.Active)
	assert.Equal(t, 1, s.Foreground.ID)

	s, _ = tm.Activate(s, Tab{ID: 2, URL: "https://example.com", Incognito: true}, t0)
	assert.Nil(t, s.Active)

	s, _ = tm.Activate(s, tab(3, "not a url at all"), t0)
	assert.Nil(t, s.Active)
}

func TestIncognitoIncludedWhenNotExcluded(t *testing.T) {
	tm := NewTimer(nil, time.Second, false)
	s, _ := tm.Activate(State{}, Tab{ID: 2, URL: "https://example.com", Incognito: true}, t0)
	assert.NotNil(t, s.Active)
}

func TestNavigationCompleted_OnlyForegroundTab(t *testing.T) {
	tm := newTestTimer()

	s, _ := tm.Activate(State{}, tab(1, "https://example.com"), t0)

	s2, recs := tm.NavigationCompleted(s, tab(7, "https://other.com"), t0.Add(time.Minute))
	assert.Empty(t, recs)
	assert.Equal(t, s, s2)

	s3, recs := tm.NavigationCompleted(s, tab(1, "https://other.com"), t0.Add(time.Minute))
	require.Len(t, recs, 1)
	assert.Equal(t, "example.com", recs[0].Domain)
	assert.Equal(t, "other.com", s3.Active.Domain)
}

func TestNavigationFromInternalPageOpensInterval(t *testing.T) {
	tm := newTestTimer()

	s, _ := tm.Activate(State{}, tab(1, "chrome://newtab"), t0)
	s, _ = tm.NavigationCompleted(s, tab(1, "https://example.com"), t0.Add(time.Second))
	require.NotNil(t, s.Active)
	assert.Equal(t, "example.com", s.Active.Domain)
}

func TestIdle_ClosesAndIsIdempotent(t *testing.T) {
	tm := newTestTimer()

	s, _ := tm.Activate(State{}, tab(1, "https://example.com"), t0)
	s, recs := tm.Idle(s, t0.Add(30*time.Second))
	require.Len(t, recs, 1)
	assert.Nil(t, s.Active)
	assert.NotNil(t, s.Foreground)

	s, recs = tm.Idle(s, t0.Add(time.Hour))
	assert.Empty(t, recs)
	assert.Nil(t, s.Active)
}

func TestTick_ReopensInPlace(t *testing.T) {
	tm := newTestTimer()

	s, _ := tm.Activate(State{}, tab(1, "https://example.com"), t0)
	var all []stats.Record
	for i := 1; i <= 3; i++ {
		var recs []stats.Record
		s, recs = tm.Tick(s, t0.Add(time.Duration(i)*time.Minute))
		all = append(all, recs...)
	}
	_, recs := tm.Idle(s, t0.Add(3*time.Minute+20*time.Second))
	all = append(all, recs...)

	assert.Len(t, all, 4)
	assert.Equal(t, int64(200), total(all))
}

func TestTick_NoActiveIsNoop(t *testing.T) {
	tm := newTestTimer()
	s, recs := tm.Tick(State{}, t0)
	assert.Empty(t, recs)
	assert.Nil(t, s.Active)
}

func TestClose_SplitsAtMidnight(t *testing.T) {
	tm := newTestTimer()
	start := time.Date(2026, 10, 18, 23, 58, 0, 0, time.Local)

	s, _ := tm.Activate(State{}, tab(1, "https://example.com"), start)
	_, recs := tm.Idle(s, start.Add(5*time.Minute))

	require.Len(t, recs, 2)
	assert.Equal(t, "2026-10-18", recs[0].Date)
	assert.Equal(t, int64(120), recs[0].Seconds)
	assert.Equal(t, "2026-10-19", recs[1].Date)
	assert.Equal(t, int64(180), recs[1].Seconds)
	assert.Equal(t, int64(300), total(recs))
}

func TestClose_SplitAtMidnightRoundsTotalOnce(t *testing.T) {
	tm := newTestTimer()
	midnight := time.Date(2026, 10, 19, 0, 0, 0, 0, time.Local)

	tests := []struct {
		name   string
		before time.Duration
		after  time.Duration
		want   []stats.Record
	}{
		{
			name:   "1.2s straddling midnight",
			before: 600 * time.Millisecond,
			after:  600 * time.Millisecond,
			want: []stats.Record{
				{Domain: "example.com", Category: classify.Other, Date: "2026-10-19", Seconds: 1},
			},
		},
		{
			name:   "2.2s straddling midnight",
			before: 1600 * time.Millisecond,
			after:  600 * time.Millisecond,
			want: []stats.Record{
				{Domain: "example.com", Category: classify.Other, Date: "2026-10-18", Seconds: 1},
				{Domain: "example.com", Category: classify.Other, Date: "2026-10-19", Seconds: 1},
			},
		},
		{
			name:   "2.6s straddling midnight",
			before: 1300 * time.Millisecond,
			after:  1300 * time.Millisecond,
			want: []stats.Record{
				{Domain: "example.com", Category: classify.Other, Date: "2026-10-18", Seconds: 1},
				{Domain: "example.com", Category: classify.Other, Date: "2026-10-19", Seconds: 2},
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, _ := tm.Activate(State{}, tab(1, "https://example.com"), midnight.Add(-tt.before))
			_, recs := tm.Idle(s, midnight.Add(tt.after))
			assert.Equal(t, tt.want, recs)
		})
	}
}

func TestLiveness(t *testing.T) {
	tm := newTestTimer()
	url := "https://example.com/page"
	s, _ := tm.Activate(State{}, tab(1, url), t0)

	t.Run("moves start forward", func(t *testing.T) {
		got := tm.Liveness(s, url, true, t0.Add(time.Minute), t0.Add(2*time.Minute))
		assert.Equal(t, t0.Add(time.Minute), got.Active.StartedAt)
	})

	t.Run("never moves backward", func(t *testing.T) {
		got := tm.Liveness(s, url, true, t0.Add(-time.Minute), t0.Add(2*time.Minute))
		assert.Equal(t, t0, got.Active.StartedAt)
	})

	t.Run("clamped to now", func(t *testing.T) {
		got := tm.Liveness(s, url, true, t0.Add(time.Hour), t0.Add(2*time.Minute))
		assert.Equal(t, t0.Add(2*time.Minute), got.Active.StartedAt)
	})

	t.Run("ignored for other url or inactive page", func(t *testing.T) {
		assert.Equal(t, t0, tm.Liveness(s, "https://other.com", true, t0.Add(time.Minute), t0.Add(2*time.Minute)).Active.StartedAt)
		assert.Equal(t, t0, tm.Liveness(s, url, false, t0.Add(time.Minute), t0.Add(2*time.Minute)).Active.StartedAt)
	})

	t.Run("no interval", func(t *testing.T) {
		got := tm.Liveness(State{}, url, true, t0, t0)
		assert.Nil(t, got.Active)
	})
}

func TestSequenceConservesTime(t *testing.T) {
	tm := newTestTimer()
	now := t0
	s := State{}
	var all []stats.Record
	step := func(d time.Duration) time.Time {
		now = now.Add(d)
		return now
	}

	var recs []stats.Record
	s, recs = tm.Activate(s, tab(1, "https://a.com"), now)
	all = append(all, recs...)
	s, recs = tm.Tick(s, step(60*time.Second))
	all = append(all, recs...)
	s, recs = tm.Activate(s, tab(2, "https://b.com"), step(45*time.Second))
	all = append(all, recs...)
	s, recs = tm.Idle(s, step(15*time.Second))
	all = append(all, recs...)
	s, recs = tm.Activate(s, tab(1, "https://a.com"), step(10*time.Minute))
	all = append(all, recs...)
	_, recs = tm.Idle(s, step(30*time.Second))
	all = append(all, recs...)

	assert.Equal(t, int64(60+45+15+30), total(all))
}
