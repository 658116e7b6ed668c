package stats

import "math"

// Storage keys owned by the accounting core.
const (
	DailyPrefix    = "daily:"
	WeeklyKey      = "weekly"
	ScoreKey       = "score"
	NotifiedPrefix = "notified:"
)

// DailyKey returns the storage key for date.
func DailyKey(date string) string {
	return DailyPrefix + date
}

// Record is one closed, attributed activity interval.
type Record struct {
	Domain   string `json:"domain"`
	Category string `json:"category"`
	Date     string `json:"date"`
	Seconds  int64  `json:"seconds"`
}

// DailyStats accumulates seconds for one calendar date. Values only grow.
type DailyStats struct {
	TotalTimeSeconds   int64            `json:"totalTimeSeconds"`
	PerDomainSeconds   map[string]int64 `json:"perDomainSeconds"`
	PerCategorySeconds map[string]int64 `json:"perCategorySeconds"`
}

// NewDailyStats returns an empty day with initialized maps.
func NewDailyStats() DailyStats {
	return DailyStats{
		PerDomainSeconds:   map[string]int64{},
		PerCategorySeconds: map[string]int64{},
	}
}

// Add folds rec into d.
func (d *DailyStats) Add(rec Record) {
	if d.PerDomainSeconds == nil {
		d.PerDomainSeconds = map[string]int64{}
	}
	if d.PerCategorySeconds == nil {
		d.PerCategorySeconds = map[string]int64{}
	}
	d.TotalTimeSeconds += rec.Seconds
	d.PerDomainSeconds[rec.Domain] += rec.Seconds
	d.PerCategorySeconds[rec.Category] += rec.Seconds
}

// WeeklyStats is a cache derived from the trailing daily records.
type WeeklyStats struct {
	TotalTimeSeconds   int64            `json:"totalTimeSeconds"`
	PerDomainSeconds   map[string]int64 `json:"perDomainSeconds"`
	PerCategorySeconds map[string]int64 `json:"perCategorySeconds"`
	ComputedAt         string           `json:"computedAt"`
}

// ProductivityScore tracks today's score and the previous days' finals.
type ProductivityScore struct {
	Date      string             `json:"date"`
	Today     float64            `json:"today"`
	WeeklyAvg float64            `json:"weeklyAvg"`
	History   map[string]float64 `json:"history"`
}

// Snapshot is everything the popup reads in one call.
type Snapshot struct {
	DailyStats        map[string]DailyStats `json:"dailyStats"`
	WeeklyStats       WeeklyStats           `json:"weeklyStats"`
	ProductivityScore ProductivityScore     `json:"productivityScore"`
}

// Minutes converts seconds to whole minutes, rounding half up.
func Minutes(seconds int64) int {
	return int(math.Round(float64(seconds) / 60))
}
