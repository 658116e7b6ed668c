package cli

import (
	"bytes"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/runnerr0/dwell/internal/app"
	"github.com/runnerr0/dwell/internal/clock"
	"github.com/runnerr0/dwell/internal/config"
	"github.com/runnerr0/dwell/internal/logging"
	"github.com/runnerr0/dwell/internal/server"
)

var testNow = time.Date(2026, 10, 18, 14, 0, 0, 0, time.Local)

// captureOutput captures stdout during fn execution and returns it as a string.
func captureOutput(t *testing.T, fn func()) string {
	t.Helper()
	old := os.Stdout
	r, w, err := os.Pipe()
	require.NoError(t, err)
	os.Stdout = w

	fn()

	w.Close()
	os.Stdout = old

	var buf bytes.Buffer
	_, _ = io.Copy(&buf, r)
	return buf.String()
}

// openTestApp opens an app on a temporary database with a fake clock.
func openTestApp(t *testing.T) (*app.App, *clock.Fake) {
	t.Helper()
	dir := t.TempDir()
	cfg := config.DefaultConfig()
	cfg.Storage.Path = dir
	cfg.Storage.SQLiteJournalMode = "memory"
	cfg.Report.DownloadDir = filepath.Join(dir, "Downloads")
	cfg.Tracking.RetryBackoffMillis = 1

	clk := clock.NewFake(testNow)
	a, err := app.Open(cfg, clk, logging.Discard())
	require.NoError(t, err)
	t.Cleanup(func() { a.Close() })
	return a, clk
}

// downClient points at a port nothing listens on.
func downClient() *daemonClient {
	return &daemonClient{baseURL: "http://127.0.0.1:1", http: &http.Client{Timeout: time.Second}}
}

// liveDaemon serves a's HTTP API and returns a client for it.
func liveDaemon(t *testing.T, a *app.App) *daemonClient {
	t.Helper()
	gin.SetMode(gin.TestMode)
	ts := httptest.NewServer(server.New(a, "test", logging.Discard()).Handler())
	t.Cleanup(ts.Close)
	return &daemonClient{baseURL: ts.URL, token: a.Config.Daemon.AuthToken, http: ts.Client()}
}
