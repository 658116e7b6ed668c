package cli

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/runnerr0/dwell/internal/focus"
	"github.com/runnerr0/dwell/internal/settings"
)

// Execute implements the go-flags Commander interface for FocusStartCommand.
func (c *FocusStartCommand) Execute(args []string) error {
	client, err := clientFor(c.client, c.globals)
	if err != nil {
		return err
	}
	ctx := context.Background()

	minutes := c.Minutes
	if minutes == 0 {
		var s settings.Settings
		if err := client.do(ctx, http.MethodGet, "/api/settings", nil, &s); err != nil {
			return err
		}
		minutes = s.FocusModeDuration
	}

	body := map[string]interface{}{"durationMinutes": minutes, "blockedDomains": c.Block}
	var s focus.Session
	if err := client.do(ctx, http.MethodPost, "/api/focus", body, &s); err != nil {
		return err
	}
	return printSession(c.globals, s)
}

// Execute implements the go-flags Commander interface for FocusEndCommand.
func (c *FocusEndCommand) Execute(args []string) error {
	client, err := clientFor(c.client, c.globals)
	if err != nil {
		return err
	}
	if err := client.do(context.Background(), http.MethodDelete, "/api/focus", nil, nil); err != nil {
		return err
	}
	if jsonOutput(c.globals) {
		return printJSON(map[string]bool{"ended": true})
	}
	fmt.Println("Focus mode ended.")
	return nil
}

// Execute implements the go-flags Commander interface for FocusStatusCommand.
func (c *FocusStatusCommand) Execute(args []string) error {
	client, err := clientFor(c.client, c.globals)
	if err != nil {
		return err
	}
	var s focus.Session
	if err := client.do(context.Background(), http.MethodGet, "/api/focus", nil, &s); err != nil {
		return err
	}
	return printSession(c.globals, s)
}

func printSession(g *GlobalFlags, s focus.Session) error {
	if jsonOutput(g) {
		return printJSON(s)
	}
	if !s.Active {
		fmt.Println("Focus mode is off.")
		return nil
	}
	left := s.Remaining(time.Now()).Round(time.Second)
	fmt.Printf("Focus mode on until %s (%s left).\n", s.EndsAt.Local().Format("15:04"), left)
	fmt.Printf("Blocking: %s\n", strings.Join(s.BlockedDomains, ", "))
	return nil
}
