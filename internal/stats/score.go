package stats

import (
	"github.com/runnerr0/dwell/internal/clock"
)

const (
	productiveWeight   = 1.0
	unproductiveWeight = -0.2
	scoreHistoryDays   = 7
)

// UpdateScore applies rec to sc. Only records dated today move the score;
// the result is clamped to [0, 100].
func UpdateScore(sc ProductivityScore, rec Record, today string, productive bool) ProductivityScore {
	sc = RollScore(sc, today)
	if rec.Date != today {
		return sc
	}
	weight := unproductiveWeight
	if productive {
		weight = productiveWeight
	}
	sc.Today = clamp(sc.Today+weight*float64(rec.Seconds)/60, 0, 100)
	return sc
}

// RollScore moves sc to today. The previous day's final value is kept in
// History, Today restarts at zero and WeeklyAvg is the mean of the trailing
// seven history days.
func RollScore(sc ProductivityScore, today string) ProductivityScore {
	if sc.Date == today {
		return sc
	}
	if sc.Date > today {
		// clock moved backwards; keep the newer record
		return sc
	}

	out := ProductivityScore{
		Date:    today,
		History: map[string]float64{},
	}
	cutoff := clock.ShiftDate(today, -scoreHistoryDays)
	for d, v := range sc.History {
		if d >= cutoff && d < today {
			out.History[d] = v
		}
	}
	if sc.Date != "" && sc.Date >= cutoff {
		out.History[sc.Date] = sc.Today
	}

	if len(out.History) > 0 {
		var sum float64
		for _, v := range out.History {
			sum += v
		}
		out.WeeklyAvg = sum / float64(len(out.History))
	}
	return out
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
