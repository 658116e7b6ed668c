package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/runnerr0/dwell/internal/app"
	"github.com/runnerr0/dwell/internal/config"
	"github.com/runnerr0/dwell/internal/logging"
)

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#C89A3A"))
	labelStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#8C8C8C")).Width(16)
	mutedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#6E6E6E"))
	warnStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF4D4F"))
)

// loadConfig resolves the config file from the global flags, loads the .env
// beside it and applies DWELL_* overrides.
func loadConfig(g *GlobalFlags) (*config.Config, error) {
	path := config.DefaultConfigPath
	if g != nil && g.Config != "" {
		path = g.Config
	}
	path, err := config.ExpandPath(path)
	if err != nil {
		return nil, fmt.Errorf("resolve config path: %w", err)
	}
	if err := config.LoadEnvFile(path); err != nil {
		return nil, err
	}
	cfg, err := config.LoadOrCreateAt(path)
	if err != nil {
		return nil, err
	}
	if err := cfg.ApplyEnv(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// openApp opens the database named by the config for a one-shot command.
// The returned func closes everything.
func openApp(g *GlobalFlags) (*app.App, func(), error) {
	cfg, err := loadConfig(g)
	if err != nil {
		return nil, nil, err
	}
	logger, closer, err := logging.New(cfg, g != nil && g.Verbose)
	if err != nil {
		return nil, nil, err
	}
	a, err := app.Open(cfg, nil, logger)
	if err != nil {
		closer.Close()
		return nil, nil, err
	}
	return a, func() {
		a.Close()
		closer.Close()
	}, nil
}

// withApp runs fn against injected, or else a freshly opened, app.
func withApp(injected *app.App, g *GlobalFlags, fn func(*app.App) error) error {
	if injected != nil {
		return fn(injected)
	}
	a, done, err := openApp(g)
	if err != nil {
		return err
	}
	defer done()
	return fn(a)
}

func jsonOutput(g *GlobalFlags) bool {
	return g != nil && g.JSON
}

func printJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printField(w io.Writer, label string, value interface{}) {
	fmt.Fprintf(w, "%s %v\n", labelStyle.Render(label+":"), value)
}

// parseLimit parses "key=minutes".
func parseLimit(s string) (string, int, error) {
	key, val, ok := strings.Cut(s, "=")
	key = strings.TrimSpace(key)
	if !ok || key == "" {
		return "", 0, fmt.Errorf("invalid limit %q (want name=minutes)", s)
	}
	n, err := strconv.Atoi(strings.TrimSpace(val))
	if err != nil || n < 0 {
		return "", 0, fmt.Errorf("invalid limit %q (minutes must be a non-negative integer)", s)
	}
	return key, n, nil
}

// formatBytes formats a byte count into a human-readable string.
func formatBytes(b int64) string {
	switch {
	case b >= 1<<30:
		return fmt.Sprintf("%.1f GB", float64(b)/float64(1<<30))
	case b >= 1<<20:
		return fmt.Sprintf("%.1f MB", float64(b)/float64(1<<20))
	case b >= 1<<10:
		return fmt.Sprintf("%.1f KB", float64(b)/float64(1<<10))
	default:
		return fmt.Sprintf("%d B", b)
	}
}

// formatMinutes renders whole minutes as "1h 05m" or "42m".
func formatMinutes(m int) string {
	if m < 60 {
		return fmt.Sprintf("%dm", m)
	}
	return fmt.Sprintf("%dh %02dm", m/60, m%60)
}

var errDaemonDown = errors.New("daemon is not running; start it with `dwell serve`")
