package cli

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"slices"
	"sort"
	"strings"

	"github.com/runnerr0/dwell/internal/app"
	"github.com/runnerr0/dwell/internal/classify"
	"github.com/runnerr0/dwell/internal/settings"
)

// Execute implements the go-flags Commander interface for SettingsShowCommand.
func (c *SettingsShowCommand) Execute(args []string) error {
	online := func(ctx context.Context, client *daemonClient) error {
		var s settings.Settings
		if err := client.do(ctx, http.MethodGet, "/api/settings", nil, &s); err != nil {
			return err
		}
		return printSettings(c.globals, s)
	}
	return viaDaemon(c.app, c.client, c.globals, online, func(a *app.App) error {
		s, err := a.GetSettings(context.Background())
		if err != nil {
			return err
		}
		return printSettings(c.globals, s)
	})
}

// Execute implements the go-flags Commander interface for SettingsSetCommand.
func (c *SettingsSetCommand) Execute(args []string) error {
	return viaDaemon(c.app, c.client, c.globals, c.executeWithDaemon, c.executeWithApp)
}

func (c *SettingsSetCommand) executeWithDaemon(ctx context.Context, client *daemonClient) error {
	var s settings.Settings
	if err := client.do(ctx, http.MethodGet, "/api/settings", nil, &s); err != nil {
		return err
	}
	var categories []string
	if err := client.do(ctx, http.MethodGet, "/api/categories", nil, &categories); err != nil {
		return err
	}
	if err := c.apply(&s, categories); err != nil {
		return err
	}
	if err := client.do(ctx, http.MethodPut, "/api/settings", s, nil); err != nil {
		return err
	}
	return printSettings(c.globals, s)
}

func (c *SettingsSetCommand) executeWithApp(a *app.App) error {
	ctx := context.Background()
	s, err := a.GetSettings(ctx)
	if err != nil {
		return err
	}
	if err := c.apply(&s, a.Classifier.Categories()); err != nil {
		return err
	}
	if err := a.UpdateSettings(ctx, s); err != nil {
		return err
	}
	return printSettings(c.globals, s)
}

// apply copies the given flags onto s. The whole record is then saved.
// Category limits must name one of categories.
func (c *SettingsSetCommand) apply(s *settings.Settings, categories []string) error {
	if c.Goal != nil {
		s.DailyScreenTimeGoal = *c.Goal
	}
	if c.FocusDuration != nil {
		s.FocusModeDuration = *c.FocusDuration
	}
	if c.BreakDuration != nil {
		s.BreakDuration = *c.BreakDuration
	}
	if c.BreakInterval != nil {
		s.BreakReminderInterval = *c.BreakInterval
	}
	switch c.Notifications {
	case "on":
		s.NotificationsEnabled = true
	case "off":
		s.NotificationsEnabled = false
	}
	if c.Privacy != "" {
		s.PrivacyLevel = c.Privacy
	}
	if err := applyLimits(&s.SiteLimits, c.SiteLimit, classify.NormalizeDomain); err != nil {
		return err
	}
	for _, p := range c.CategoryLimit {
		name, _, err := parseLimit(p)
		if err != nil {
			return err
		}
		if !slices.Contains(categories, name) {
			return fmt.Errorf("unknown category %q (known: %s)", name, strings.Join(categories, ", "))
		}
	}
	if err := applyLimits(&s.CategoryLimits, c.CategoryLimit, nil); err != nil {
		return err
	}
	if len(c.Productive) > 0 {
		s.ProductiveDomains = c.Productive
	}
	return nil
}

// applyLimits sets name=minutes pairs; zero minutes removes the limit.
func applyLimits(m *map[string]int, pairs []string, norm func(string) string) error {
	for _, p := range pairs {
		key, n, err := parseLimit(p)
		if err != nil {
			return err
		}
		if norm != nil {
			key = norm(key)
		}
		if *m == nil {
			*m = map[string]int{}
		}
		if n == 0 {
			delete(*m, key)
			continue
		}
		(*m)[key] = n
	}
	return nil
}

// Execute implements the go-flags Commander interface for SettingsResetCommand.
func (c *SettingsResetCommand) Execute(args []string) error {
	online := func(ctx context.Context, client *daemonClient) error {
		if err := client.do(ctx, http.MethodPut, "/api/settings", settings.Defaults(), nil); err != nil {
			return err
		}
		return printSettings(c.globals, settings.Defaults())
	}
	return viaDaemon(c.app, c.client, c.globals, online, func(a *app.App) error {
		if err := a.Settings.Reset(context.Background()); err != nil {
			return err
		}
		return printSettings(c.globals, settings.Defaults())
	})
}

func printSettings(g *GlobalFlags, s settings.Settings) error {
	if jsonOutput(g) {
		return printJSON(s)
	}
	w := os.Stdout
	fmt.Fprintln(w, titleStyle.Render("Settings"))
	printField(w, "Daily goal", formatMinutes(s.DailyScreenTimeGoal))
	printField(w, "Focus length", formatMinutes(s.FocusModeDuration))
	printField(w, "Break", fmt.Sprintf("%s every %s", formatMinutes(s.BreakDuration), formatMinutes(s.BreakReminderInterval)))
	printField(w, "Notifications", s.NotificationsEnabled)
	printField(w, "Privacy", s.PrivacyLevel)
	printField(w, "Productive", strings.Join(s.ProductiveDomains, ", "))
	printLimits(w, "Site limits", s.SiteLimits)
	printLimits(w, "Category", s.CategoryLimits)
	return nil
}

func printLimits(w *os.File, label string, m map[string]int) {
	if len(m) == 0 {
		printField(w, label, mutedStyle.Render("none"))
		return
	}
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = fmt.Sprintf("%s=%s", k, formatMinutes(m[k]))
	}
	printField(w, label, strings.Join(parts, ", "))
}
