package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"github.com/runnerr0/dwell/internal/app"
)

// Execute implements the go-flags Commander interface for PurgeCommand.
func (c *PurgeCommand) Execute(args []string) error {
	if !c.All {
		return fmt.Errorf("purge requires --all flag for safety")
	}

	// Confirmation prompt unless --force
	if !c.Force {
		if err := confirmPurge(os.Stdin, c.Everything); err != nil {
			return err
		}
	}

	return viaDaemon(c.app, c.client, c.globals, c.executeWithDaemon, c.executeWithApp)
}

func confirmPurge(in io.Reader, everything bool) error {
	fmt.Println(warnStyle.Render("⚠ WARNING: This will permanently delete ALL Dwell statistics."))
	fmt.Println("  - Daily and weekly totals")
	fmt.Println("  - Productivity score history")
	fmt.Println("  - Limit notification flags")
	if everything {
		fmt.Println("  - Settings, focus session and queued notifications")
	} else {
		fmt.Println()
		fmt.Println("Settings and any running focus session are kept.")
	}
	fmt.Println()
	fmt.Println("This action cannot be undone.")
	fmt.Println()
	fmt.Print(`Type "PURGE" to confirm: `)

	scanner := bufio.NewScanner(in)
	if !scanner.Scan() {
		return fmt.Errorf("aborted: no input received")
	}
	if strings.TrimSpace(scanner.Text()) != "PURGE" {
		return fmt.Errorf("aborted: confirmation text did not match")
	}
	return nil
}

// executeWithDaemon purges through the running daemon so its focus timer
// and parked merges go too.
func (c *PurgeCommand) executeWithDaemon(ctx context.Context, client *daemonClient) error {
	path := "/api/stats"
	if c.Everything {
		path = "/api/data"
	}
	if err := client.do(ctx, http.MethodDelete, path, nil, nil); err != nil {
		return fmt.Errorf("purge failed: %w", err)
	}
	return c.print()
}

func (c *PurgeCommand) executeWithApp(a *app.App) error {
	ctx := context.Background()
	purge := a.ClearData
	if c.Everything {
		purge = a.PurgeAll
	}
	if err := purge(ctx); err != nil {
		return fmt.Errorf("purge failed: %w", err)
	}
	return c.print()
}

func (c *PurgeCommand) print() error {
	if jsonOutput(c.globals) {
		return printJSON(map[string]interface{}{
			"purged":  true,
			"message": "all statistics deleted",
		})
	}

	fmt.Println("Purged all statistics. Dwell is empty.")
	return nil
}
