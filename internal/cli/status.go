package cli

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/runnerr0/dwell/internal/app"
)

// statusView is the status command's output, local or fetched from the
// daemon.
type statusView struct {
	Version       string `json:"version"`
	DatabasePath  string `json:"databasePath,omitempty"`
	DaemonRunning bool   `json:"daemonRunning"`
	*app.Status
}

// Execute implements the go-flags Commander interface for StatusCommand.
func (c *StatusCommand) Execute(args []string) error {
	return withApp(c.app, c.globals, c.executeWithApp)
}

// executeWithApp prefers the daemon's live view and falls back to the
// database when no daemon answers.
func (c *StatusCommand) executeWithApp(a *app.App) error {
	ctx := context.Background()

	client := c.client
	if client == nil {
		client = newDaemonClient(a.Config)
	}

	view := statusView{Version: c.version}
	if path, err := a.Config.DBPath(); err == nil {
		view.DatabasePath = path
	}

	var live statusView
	if client.Running(ctx) {
		if err := client.do(ctx, http.MethodGet, "/api/status", nil, &live); err == nil && live.Status != nil {
			view.Status = live.Status
			view.DaemonRunning = true
		}
	}
	if view.Status == nil {
		st, err := a.Status(ctx)
		if err != nil {
			return fmt.Errorf("get status: %w", err)
		}
		view.Status = st
	}

	if jsonOutput(c.globals) {
		return printJSON(view)
	}
	c.printHuman(view, a.Now())
	return nil
}

func (c *StatusCommand) printHuman(v statusView, now time.Time) {
	w := os.Stdout
	fmt.Fprintln(w, titleStyle.Render("Dwell Status"))
	printField(w, "Version", v.Version)
	printField(w, "Today", v.Today)
	printField(w, "Online", formatMinutes(v.TodayMinutes))
	printField(w, "Score", fmt.Sprintf("%.1f", v.Score))

	if v.Focus.Active {
		left := v.Focus.Remaining(now).Round(time.Minute)
		printField(w, "Focus", fmt.Sprintf("active until %s (%s left), blocking %d domains",
			v.Focus.EndsAt.Local().Format("15:04"), left, len(v.Focus.BlockedDomains)))
	} else {
		printField(w, "Focus", mutedStyle.Render("off"))
	}

	switch {
	case v.Tracking != nil:
		printField(w, "Tracking", fmt.Sprintf("%s since %s", v.Tracking.Domain, v.Tracking.StartedAt.Local().Format("15:04")))
	case v.DaemonRunning:
		printField(w, "Tracking", mutedStyle.Render("idle"))
	}
	if len(v.LimitsFired) > 0 {
		printField(w, "Alerts today", strings.Join(v.LimitsFired, ", "))
	}
	if v.PendingMerges > 0 {
		printField(w, "Pending", warnStyle.Render(fmt.Sprintf("%d merges awaiting retry", v.PendingMerges)))
	}

	fmt.Fprintln(w)
	if db := v.Database; db != nil {
		printField(w, "Database", fmt.Sprintf("%s (%s)", v.DatabasePath, formatBytes(db.DatabaseSizeBytes)))
		printField(w, "Schema", fmt.Sprintf("v%d", db.SchemaVersion))
		printField(w, "Days tracked", db.DaysTracked)
		if db.DaysTracked > 0 {
			printField(w, "Range", db.OldestDay+" .. "+db.NewestDay)
		}
		if db.PendingNotifications > 0 {
			printField(w, "Notifications", fmt.Sprintf("%d undelivered", db.PendingNotifications))
		}
	}

	if v.DaemonRunning {
		printField(w, "Daemon", "running")
	} else {
		printField(w, "Daemon", warnStyle.Render("not running"))
	}
}
