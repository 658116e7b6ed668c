// Package report renders the weekly plain-text report.
package report

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/runnerr0/dwell/internal/stats"
)

// Title is the first line of every weekly report.
const Title = "Weekly Digital Wellbeing Report"

type line struct {
	name    string
	seconds int64
}

// sorted orders entries by seconds descending, then name.
func sorted(m map[string]int64) []line {
	out := make([]line, 0, len(m))
	for name, secs := range m {
		out = append(out, line{name, secs})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].seconds != out[j].seconds {
			return out[i].seconds > out[j].seconds
		}
		return out[i].name < out[j].name
	})
	return out
}

// Weekly renders w as text.
func Weekly(w stats.WeeklyStats) string {
	var b strings.Builder
	b.WriteString(Title + "\n\n")
	fmt.Fprintf(&b, "Total Time: %d minutes\n\n", stats.Minutes(w.TotalTimeSeconds))

	b.WriteString("Top Sites:\n")
	for _, l := range sorted(w.PerDomainSeconds) {
		fmt.Fprintf(&b, "  %s: %d minutes\n", l.name, stats.Minutes(l.seconds))
	}

	b.WriteString("\nCategories:\n")
	for _, l := range sorted(w.PerCategorySeconds) {
		fmt.Fprintf(&b, "  %s: %d minutes\n", l.name, stats.Minutes(l.seconds))
	}
	return b.String()
}

// FileName returns the download name for a report produced on date.
func FileName(date string) string {
	return fmt.Sprintf("weekly_report_%s.txt", date)
}

// Write stores content as FileName(date) in dir, creating dir if needed, and
// returns the written path.
func Write(dir, date, content string) (string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("create report directory: %w", err)
	}
	path := filepath.Join(dir, FileName(date))
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		return "", fmt.Errorf("write report: %w", err)
	}
	return path, nil
}
