package cli

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/runnerr0/dwell/internal/app"
	"github.com/runnerr0/dwell/internal/clock"
	"github.com/runnerr0/dwell/internal/stats"
)

// Execute implements the go-flags Commander interface for AddCommand.
// A running daemon owns the aggregator, so the interval is sent to it;
// otherwise it is merged into the database directly.
func (c *AddCommand) Execute(args []string) error {
	seconds, err := c.seconds()
	if err != nil {
		return err
	}
	if c.Date == "" {
		c.Date = clock.Date(time.Now())
	}

	online := func(ctx context.Context, client *daemonClient) error {
		var rec stats.Record
		body := map[string]interface{}{"domain": c.Domain, "date": c.Date, "seconds": seconds}
		if err := client.do(ctx, http.MethodPost, "/api/intervals", body, &rec); err != nil {
			return err
		}
		return c.print(rec)
	}
	return viaDaemon(c.app, c.client, c.globals, online, func(a *app.App) error {
		return c.executeWithApp(a, seconds)
	})
}

func (c *AddCommand) seconds() (int64, error) {
	if c.Domain == "" {
		return 0, fmt.Errorf("--domain is required")
	}
	if c.Minutes < 0 || c.Seconds < 0 {
		return 0, fmt.Errorf("--minutes and --seconds must not be negative")
	}
	total := int64(c.Minutes)*60 + c.Seconds
	if total <= 0 {
		return 0, fmt.Errorf("give a positive duration with --minutes or --seconds")
	}
	return total, nil
}

// executeWithApp merges the interval through a (used directly by tests).
func (c *AddCommand) executeWithApp(a *app.App, seconds int64) error {
	if c.Date == "" {
		c.Date = a.Today()
	}
	rec, err := a.AddInterval(context.Background(), c.Domain, c.Date, seconds)
	if err != nil {
		return fmt.Errorf("adding interval: %w", err)
	}
	return c.print(rec)
}

func (c *AddCommand) print(rec stats.Record) error {
	if jsonOutput(c.globals) {
		return printJSON(rec)
	}
	fmt.Printf("Recorded %s on %s for %s (%s).\n",
		formatMinutes(stats.Minutes(rec.Seconds)), rec.Domain, rec.Date, rec.Category)
	return nil
}
