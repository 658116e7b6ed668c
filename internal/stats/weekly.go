package stats

import "github.com/runnerr0/dwell/internal/clock"

// RecomputeWeekly sums every day dated on or after today minus seven days.
// Dates compare as strings. The result depends only on its inputs.
func RecomputeWeekly(daily map[string]DailyStats, today string) WeeklyStats {
	cutoff := clock.ShiftDate(today, -7)
	w := WeeklyStats{
		PerDomainSeconds:   map[string]int64{},
		PerCategorySeconds: map[string]int64{},
		ComputedAt:         today,
	}
	for date, day := range daily {
		if date < cutoff {
			continue
		}
		for domain, secs := range day.PerDomainSeconds {
			w.PerDomainSeconds[domain] += secs
			w.TotalTimeSeconds += secs
		}
		for cat, secs := range day.PerCategorySeconds {
			w.PerCategorySeconds[cat] += secs
		}
	}
	return w
}
