package app

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/runnerr0/dwell/internal/clock"
	"github.com/runnerr0/dwell/internal/config"
	"github.com/runnerr0/dwell/internal/focus"
	"github.com/runnerr0/dwell/internal/settings"
	"github.com/runnerr0/dwell/internal/tracker"
)

var testStart = time.Date(2026, 10, 18, 9, 0, 0, 0, time.Local)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	cfg := config.DefaultConfig()
	cfg.Storage.Path = dir
	cfg.Storage.SQLiteJournalMode = "memory"
	cfg.Report.DownloadDir = filepath.Join(dir, "Downloads")
	cfg.Tracking.RetryBackoffMillis = 1
	return cfg
}

func openTestApp(t *testing.T) (*App, *clock.Fake) {
	t.Helper()
	clk := clock.NewFake(testStart)
	a, err := Open(testConfig(t), clk, nil)
	require.NoError(t, err)
	t.Cleanup(func() { a.Close() })
	return a, clk
}

func TestEndToEnd_BrowsingIsRecorded(t *testing.T) {
	a, clk := openTestApp(t)
	ctx := context.Background()

	_, err := a.Router.Activated(ctx, tracker.Tab{ID: 1, URL: "https://github.com/golang/go"})
	require.NoError(t, err)
	clk.Advance(10 * time.Minute)
	_, err = a.Router.Activated(ctx, tracker.Tab{ID: 2, URL: "https://www.youtube.com/watch?v=x"})
	require.NoError(t, err)
	clk.Advance(5 * time.Minute)
	require.NoError(t, a.UpdateCurrentActivity(ctx))

	snap, err := a.GetStats(ctx)
	require.NoError(t, err)
	day := snap.DailyStats["2026-10-18"]
	assert.Equal(t, int64(900), day.TotalTimeSeconds)
	assert.Equal(t, int64(600), day.PerDomainSeconds["github.com"])
	assert.Equal(t, int64(300), day.PerCategorySeconds["Entertainment"])
	assert.InDelta(t, 9.0, snap.ProductivityScore.Today, 0.0001)
}

func TestCustomCategoriesFromConfig(t *testing.T) {
	cfg := testConfig(t)
	cfg.Categories = map[string]string{"go.dev": "Work"}
	clk := clock.NewFake(testStart)
	a, err := Open(cfg, clk, nil)
	require.NoError(t, err)
	defer a.Close()

	rec, err := a.AddInterval(context.Background(), "https://go.dev/doc", "2026-10-18", 120)
	require.NoError(t, err)
	assert.Equal(t, "Work", rec.Category)
}

func TestFocusBlocksNavigation(t *testing.T) {
	a, _ := openTestApp(t)
	ctx := context.Background()

	_, err := a.StartFocus(ctx, 10, []string{"x.com"})
	require.NoError(t, err)

	dir, err := a.Router.Activated(ctx, tracker.Tab{ID: 1, URL: "https://x.com/home"})
	require.NoError(t, err)
	assert.Equal(t, "focus-blocked.html", dir.Redirect)

	dir, err = a.Router.Activated(ctx, tracker.Tab{ID: 2, URL: "https://y.com"})
	require.NoError(t, err)
	assert.Empty(t, dir.Redirect)

	require.NoError(t, a.EndFocus(ctx))
	assert.False(t, a.GetFocus().Active)

	notes, err := a.Notifications(ctx, 10)
	require.NoError(t, err)
	require.Len(t, notes, 2)
	assert.Equal(t, "Started for 10 minutes.", notes[0].Message)
}

func TestStartFocus_InvalidInput(t *testing.T) {
	a, _ := openTestApp(t)
	_, err := a.StartFocus(context.Background(), 0, []string{"x.com"})
	assert.ErrorIs(t, err, focus.ErrInvalidDuration)
}

func TestSettingsRoundTrip(t *testing.T) {
	a, _ := openTestApp(t)
	ctx := context.Background()

	s, err := a.GetSettings(ctx)
	require.NoError(t, err)
	assert.Equal(t, settings.Defaults().DailyScreenTimeGoal, s.DailyScreenTimeGoal)

	s.DailyScreenTimeGoal = 1
	require.NoError(t, a.UpdateSettings(ctx, s))

	_, err = a.AddInterval(ctx, "example.com", a.Today(), 90)
	require.NoError(t, err)

	notes, err := a.Notifications(ctx, 10)
	require.NoError(t, err)
	require.Len(t, notes, 1)
	assert.Equal(t, "Daily Limit Reached", notes[0].Title)

	s.PrivacyLevel = "nope"
	assert.Error(t, a.UpdateSettings(ctx, s))
}

func TestExportWeeklyReport(t *testing.T) {
	a, _ := openTestApp(t)
	ctx := context.Background()

	_, err := a.AddInterval(ctx, "github.com", "2026-10-17", 1800)
	require.NoError(t, err)

	exp, err := a.ExportWeeklyReport(ctx)
	require.NoError(t, err)
	assert.Equal(t, "weekly_report_2026-10-18.txt", exp.FileName)
	assert.Contains(t, exp.Content, "Total Time: 30 minutes")
	assert.Contains(t, exp.Content, "  github.com: 30 minutes")

	data, err := os.ReadFile(exp.Path)
	require.NoError(t, err)
	assert.Equal(t, exp.Content, string(data))
}

func TestAddInterval_Validation(t *testing.T) {
	a, _ := openTestApp(t)
	ctx := context.Background()

	_, err := a.AddInterval(ctx, "", "2026-10-18", 60)
	assert.ErrorIs(t, err, ErrInvalidInterval)
	_, err = a.AddInterval(ctx, "a.com", "18/10/2026", 60)
	assert.ErrorIs(t, err, ErrInvalidInterval)
	_, err = a.AddInterval(ctx, "a.com", "2026-10-18", 0)
	assert.ErrorIs(t, err, ErrInvalidInterval)
}

func TestClearData(t *testing.T) {
	a, _ := openTestApp(t)
	ctx := context.Background()

	_, err := a.AddInterval(ctx, "a.com", "2026-10-18", 60)
	require.NoError(t, err)
	require.NoError(t, a.ClearData(ctx))

	snap, err := a.GetStats(ctx)
	require.NoError(t, err)
	assert.Empty(t, snap.DailyStats)
}

func TestRestore_ResumesFocusAcrossReopen(t *testing.T) {
	cfg := testConfig(t)
	clk := clock.NewFake(testStart)
	ctx := context.Background()

	first, err := Open(cfg, clk, nil)
	require.NoError(t, err)
	_, err = first.StartFocus(ctx, 30, []string{"x.com"})
	require.NoError(t, err)
	require.NoError(t, first.Close())

	clk.Advance(10 * time.Minute)
	second, err := Open(cfg, clk, nil)
	require.NoError(t, err)
	defer second.Close()
	require.NoError(t, second.Restore(ctx))

	assert.True(t, second.GetFocus().Active)
	assert.True(t, second.Focus.IsBlocked("x.com"))
}

func TestStatus(t *testing.T) {
	a, _ := openTestApp(t)
	ctx := context.Background()

	_, err := a.AddInterval(ctx, "a.com", "2026-10-18", 150)
	require.NoError(t, err)

	st, err := a.Status(ctx)
	require.NoError(t, err)
	assert.Equal(t, "2026-10-18", st.Today)
	assert.Equal(t, int64(150), st.TodaySeconds)
	assert.Equal(t, 3, st.TodayMinutes)
	assert.Equal(t, int64(1), st.Database.DaysTracked)
	assert.False(t, st.Focus.Active)
}

func TestStatus_ReportsFiredLimits(t *testing.T) {
	a, _ := openTestApp(t)
	ctx := context.Background()

	s := settings.Defaults()
	s.DailyScreenTimeGoal = 10
	s.SiteLimits = map[string]int{"youtube.com": 5}
	require.NoError(t, a.UpdateSettings(ctx, s))

	_, err := a.AddInterval(ctx, "youtube.com", "2026-10-18", 11*60)
	require.NoError(t, err)

	st, err := a.Status(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"goal", "site:youtube.com"}, st.LimitsFired)
	assert.Equal(t, 1, st.Database.SchemaVersion)
}

func TestPurgeAll(t *testing.T) {
	a, _ := openTestApp(t)
	ctx := context.Background()

	s := settings.Defaults()
	s.BreakDuration = 15
	require.NoError(t, a.UpdateSettings(ctx, s))
	_, err := a.StartFocus(ctx, 20, []string{"x.com"})
	require.NoError(t, err)
	_, err = a.AddInterval(ctx, "a.com", "2026-10-18", 60)
	require.NoError(t, err)

	require.NoError(t, a.PurgeAll(ctx))

	got, err := a.GetSettings(ctx)
	require.NoError(t, err)
	assert.Equal(t, settings.Defaults(), got)
	assert.False(t, a.GetFocus().Active)

	st, err := a.Status(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(0), st.Database.TotalKeys)
	assert.Equal(t, int64(0), st.Database.PendingNotifications)
}

func TestCloseAll_JoinsEveryError(t *testing.T) {
	errStmt := errors.New("close statements")
	errDB := errors.New("close db")
	var calls int

	err := closeAll(
		func() error { calls++; return errStmt },
		func() error { calls++; return nil },
		func() error { calls++; return errDB },
	)
	require.Error(t, err)
	assert.Equal(t, 3, calls, "a failure does not skip later closers")
	assert.ErrorIs(t, err, errStmt)
	assert.ErrorIs(t, err, errDB)

	assert.NoError(t, closeAll(func() error { return nil }))
}

func TestClose_ReleasesStatements(t *testing.T) {
	a, err := Open(testConfig(t), clock.NewFake(testStart), nil)
	require.NoError(t, err)

	require.NoError(t, a.Close())
	_, err = a.Store.Get(context.Background(), "settings")
	assert.Error(t, err)
}
