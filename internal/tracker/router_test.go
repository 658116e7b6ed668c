package tracker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/runnerr0/dwell/internal/clock"
	"github.com/runnerr0/dwell/internal/stats"
)

type fakeMerger struct {
	mu   sync.Mutex
	recs []stats.Record
	err  error
}

func (f *fakeMerger) Merge(_ context.Context, rec stats.Record) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.recs = append(f.recs, rec)
	return nil
}

func (f *fakeMerger) seconds() int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	var sum int64
	for _, r := range f.recs {
		sum += r.Seconds
	}
	return sum
}

type fakeFocus map[string]bool

func (f fakeFocus) IsBlocked(domain string) bool { return f[domain] }

func newTestRouter(opts RouterOptions) (*Router, *fakeMerger, *clock.Fake) {
	clk := clock.NewFake(t0)
	m := &fakeMerger{}
	opts.Clock = clk
	return NewRouter(newTestTimer(), m, opts), m, clk
}

func TestRouter_ActivateAndTick(t *testing.T) {
	r, m, clk := newTestRouter(RouterOptions{})
	ctx := context.Background()

	_, err := r.Activated(ctx, tab(1, "https://example.com"))
	require.NoError(t, err)

	clk.Advance(time.Minute)
	require.NoError(t, r.Tick(ctx))
	clk.Advance(30 * time.Second)
	require.NoError(t, r.Flush(ctx))

	assert.Equal(t, int64(90), m.seconds())
	assert.True(t, t0.Add(90*time.Second).Equal(r.State().Active.StartedAt))
}

func TestRouter_NavigatedIgnoresBackgroundTabs(t *testing.T) {
	r, m, clk := newTestRouter(RouterOptions{})
	ctx := context.Background()

	_, err := r.Activated(ctx, tab(1, "https://example.com"))
	require.NoError(t, err)
	clk.Advance(time.Minute)

	_, err = r.Navigated(ctx, tab(2, "https://other.com"))
	require.NoError(t, err)
	assert.Empty(t, m.recs)

	_, err = r.Navigated(ctx, tab(1, "https://other.com"))
	require.NoError(t, err)
	require.Len(t, m.recs, 1)
	assert.Equal(t, "example.com", m.recs[0].Domain)
}

func TestRouter_FocusBlocksAndStopsClock(t *testing.T) {
	r, m, clk := newTestRouter(RouterOptions{
		Focus:          fakeFocus{"x.com": true},
		BlockedPageURL: "focus-blocked.html",
	})
	ctx := context.Background()

	_, err := r.Activated(ctx, tab(1, "https://example.com"))
	require.NoError(t, err)
	clk.Advance(time.Minute)

	dir, err := r.Navigated(ctx, tab(1, "https://x.com/feed"))
	require.NoError(t, err)
	assert.Equal(t, "focus-blocked.html", dir.Redirect)
	assert.Nil(t, r.State().Active)
	assert.Equal(t, int64(60), m.seconds())

	clk.Advance(10 * time.Minute)
	dir, err = r.Activated(ctx, tab(2, "https://y.com"))
	require.NoError(t, err)
	assert.Empty(t, dir.Redirect)
	assert.Equal(t, int64(60), m.seconds())
	assert.Equal(t, "y.com", r.State().Active.Domain)
}

func TestRouter_IdleThenActiveResumesForeground(t *testing.T) {
	r, m, clk := newTestRouter(RouterOptions{})
	ctx := context.Background()

	_, err := r.Activated(ctx, tab(1, "https://example.com"))
	require.NoError(t, err)
	clk.Advance(2 * time.Minute)

	_, err = r.IdleChanged(ctx, IdleLocked, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(120), m.seconds())
	assert.Nil(t, r.State().Active)

	clk.Advance(time.Hour)
	_, err = r.IdleChanged(ctx, IdleActive, nil)
	require.NoError(t, err)
	require.NotNil(t, r.State().Active)
	assert.True(t, clk.Now().Equal(r.State().Active.StartedAt))
	assert.Equal(t, int64(120), m.seconds())
}

func TestRouter_ActivePrefersReportedTab(t *testing.T) {
	r, _, _ := newTestRouter(RouterOptions{})
	ctx := context.Background()

	_, err := r.Activated(ctx, tab(9, "https://known.com"))
	require.NoError(t, err)
	_, err = r.IdleChanged(ctx, IdleIdle, nil)
	require.NoError(t, err)
	_, err = r.IdleChanged(ctx, IdleActive, nil)
	require.NoError(t, err)
	assert.Equal(t, "known.com", r.State().Active.Domain, "falls back to the last known tab")

	reported := tab(4, "https://reported.com")
	_, err = r.IdleChanged(ctx, IdleActive, &reported)
	require.NoError(t, err)
	assert.Equal(t, "reported.com", r.State().Active.Domain)
}

func TestRouter_ActiveWithoutForegroundStaysNone(t *testing.T) {
	r, _, _ := newTestRouter(RouterOptions{})
	_, err := r.IdleChanged(context.Background(), IdleActive, nil)
	require.NoError(t, err)
	assert.Nil(t, r.State().Active)
}

func TestRouter_UnknownIdleState(t *testing.T) {
	r, _, _ := newTestRouter(RouterOptions{})
	_, err := r.IdleChanged(context.Background(), "asleep", nil)
	assert.ErrorIs(t, err, ErrUnknownIdleState)
}

func TestRouter_MergeErrorsAreReturned(t *testing.T) {
	r, m, clk := newTestRouter(RouterOptions{})
	ctx := context.Background()

	_, err := r.Activated(ctx, tab(1, "https://example.com"))
	require.NoError(t, err)
	clk.Advance(time.Minute)

	m.err = errors.New("database is locked")
	err = r.Tick(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "database is locked")
	assert.NotNil(t, r.State().Active)
}

func TestRouter_LivenessTrimsStart(t *testing.T) {
	r, m, clk := newTestRouter(RouterOptions{})
	ctx := context.Background()

	_, err := r.Activated(ctx, tab(1, "https://example.com/a"))
	require.NoError(t, err)
	clk.Advance(5 * time.Minute)
	r.Liveness("https://example.com/a", true, t0.Add(4*time.Minute))
	require.NoError(t, r.Flush(ctx))

	assert.Equal(t, int64(60), m.seconds())
}

func TestRouter_ConcurrentEvents(t *testing.T) {
	r, m, clk := newTestRouter(RouterOptions{})
	ctx := context.Background()

	_, err := r.Activated(ctx, tab(1, "https://example.com"))
	require.NoError(t, err)
	clk.Advance(10 * time.Minute)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, r.Tick(ctx))
		}()
	}
	wg.Wait()

	// the clock does not move, so only the first tick has time to emit
	assert.Equal(t, int64(600), m.seconds())
}
