package cli

import (
	"context"
	"fmt"
	"net/http"

	"github.com/runnerr0/dwell/internal/app"
	"github.com/runnerr0/dwell/internal/report"
	"github.com/runnerr0/dwell/internal/stats"
)

// Execute implements the go-flags Commander interface for ReportCommand.
func (c *ReportCommand) Execute(args []string) error {
	return viaDaemon(c.app, c.client, c.globals, c.executeWithDaemon, c.executeWithApp)
}

func (c *ReportCommand) executeWithDaemon(ctx context.Context, client *daemonClient) error {
	var exp app.Export
	if err := client.do(ctx, http.MethodGet, "/api/report/weekly?format=json", nil, &exp); err != nil {
		return fmt.Errorf("export weekly report: %w", err)
	}
	return c.print(exp)
}

func (c *ReportCommand) executeWithApp(a *app.App) error {
	exp, err := a.ExportWeeklyReport(context.Background())
	if err != nil {
		return fmt.Errorf("export weekly report: %w", err)
	}
	return c.print(exp)
}

func (c *ReportCommand) print(exp app.Export) error {
	if jsonOutput(c.globals) {
		return printJSON(exp)
	}
	if c.Print {
		fmt.Print(exp.Content)
		fmt.Println()
	}
	fmt.Printf("Saved %s\n", exp.Path)
	return nil
}

// Execute implements the go-flags Commander interface for RecomputeCommand.
func (c *RecomputeCommand) Execute(args []string) error {
	return viaDaemon(c.app, c.client, c.globals, c.executeWithDaemon, c.executeWithApp)
}

func (c *RecomputeCommand) executeWithDaemon(ctx context.Context, client *daemonClient) error {
	var w stats.WeeklyStats
	if err := client.do(ctx, http.MethodPost, "/api/stats/weekly", nil, &w); err != nil {
		return fmt.Errorf("recompute weekly stats: %w", err)
	}
	return c.print(w)
}

func (c *RecomputeCommand) executeWithApp(a *app.App) error {
	w, err := a.RecomputeWeekly(context.Background())
	if err != nil {
		return fmt.Errorf("recompute weekly stats: %w", err)
	}
	return c.print(w)
}

func (c *RecomputeCommand) print(w stats.WeeklyStats) error {
	if jsonOutput(c.globals) {
		return printJSON(w)
	}
	fmt.Printf("Weekly stats recomputed at %s: %s across %d domains.\n",
		w.ComputedAt, formatMinutes(stats.Minutes(w.TotalTimeSeconds)), len(w.PerDomainSeconds))
	if len(w.PerDomainSeconds) > 0 {
		fmt.Println()
		fmt.Print(report.Weekly(w))
	}
	return nil
}
