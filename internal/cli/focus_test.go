package cli

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/runnerr0/dwell/internal/focus"
)

func TestFocus_StartStatusEnd(t *testing.T) {
	a, _ := openTestApp(t)
	client := liveDaemon(t, a)
	g := &GlobalFlags{}

	start := &FocusStartCommand{Minutes: 15, Block: []string{"x.com", "https://www.reddit.com/r/golang"}, globals: g, client: client}
	output := captureOutput(t, func() {
		require.NoError(t, start.Execute(nil))
	})
	assert.Contains(t, output, "Focus mode on")
	assert.Contains(t, output, "x.com, reddit.com")
	assert.True(t, a.GetFocus().Active)
	assert.True(t, a.Focus.IsBlocked("old.reddit.com"))

	status := &FocusStatusCommand{globals: &GlobalFlags{JSON: true}, client: client}
	output = captureOutput(t, func() {
		require.NoError(t, status.Execute(nil))
	})
	var s focus.Session
	require.NoError(t, json.Unmarshal([]byte(output), &s), output)
	assert.True(t, s.Active)
	assert.Equal(t, []string{"x.com", "reddit.com"}, s.BlockedDomains)

	end := &FocusEndCommand{globals: g, client: client}
	output = captureOutput(t, func() {
		require.NoError(t, end.Execute(nil))
	})
	assert.Contains(t, output, "Focus mode ended.")
	assert.False(t, a.GetFocus().Active)
}

func TestFocus_StartUsesSettingsDuration(t *testing.T) {
	a, clk := openTestApp(t)
	client := liveDaemon(t, a)

	start := &FocusStartCommand{Block: []string{"x.com"}, globals: &GlobalFlags{}, client: client}
	captureOutput(t, func() {
		require.NoError(t, start.Execute(nil))
	})

	s := a.GetFocus()
	require.True(t, s.Active)
	assert.True(t, clk.Now().Add(25*time.Minute).Equal(s.EndsAt), s.EndsAt)
}

func TestFocus_DaemonErrorsSurface(t *testing.T) {
	a, _ := openTestApp(t)
	client := liveDaemon(t, a)

	start := &FocusStartCommand{Minutes: 5000, Block: []string{"x.com"}, globals: &GlobalFlags{}, client: client}
	err := start.Execute(nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "daemon:")
}

func TestFocus_DaemonDown(t *testing.T) {
	status := &FocusStatusCommand{globals: &GlobalFlags{}, client: downClient()}
	err := status.Execute(nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, errDaemonDown)
}
