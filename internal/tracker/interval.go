// Package tracker turns browser signals into closed, attributed activity
// intervals.
package tracker

import (
	"math"
	"time"

	"github.com/runnerr0/dwell/internal/classify"
	"github.com/runnerr0/dwell/internal/clock"
	"github.com/runnerr0/dwell/internal/metrics"
	"github.com/runnerr0/dwell/internal/stats"
)

// Tab is the browser's description of a tab.
type Tab struct {
	ID        int    `json:"tabId"`
	URL       string `json:"url"`
	Incognito bool   `json:"incognito"`
}

// ActiveInterval is the open span currently being timed.
type ActiveInterval struct {
	TabID     int       `json:"tabId"`
	URL       string    `json:"url"`
	Domain    string    `json:"domain"`
	Category  string    `json:"category"`
	StartedAt time.Time `json:"startedAt"`
}

// State is the tracker's whole memory. Active is nil when nothing is timed.
// Foreground remembers the last focused tab even while nothing is timed, so
// a navigation on it can open an interval.
type State struct {
	Active     *ActiveInterval `json:"active,omitempty"`
	Foreground *Tab            `json:"foreground,omitempty"`
}

// Timer holds the transition rules. Every method is a pure function of its
// arguments.
type Timer struct {
	classifier       *classify.Classifier
	floor            time.Duration
	excludeIncognito bool
}

func NewTimer(c *classify.Classifier, floor time.Duration, excludeIncognito bool) *Timer {
	if c == nil {
		c = classify.New(nil)
	}
	return &Timer{classifier: c, floor: floor, excludeIncognito: excludeIncognito}
}

// Activate closes the current interval and opens one for tab.
func (t *Timer) Activate(s State, tab Tab, now time.Time) (State, []stats.Record) {
	recs := t.close(s.Active, now)
	fg := tab
	return State{Active: t.open(tab, now), Foreground: &fg}, recs
}

// NavigationCompleted behaves like Activate for the foreground tab and is
// ignored for any other tab.
func (t *Timer) NavigationCompleted(s State, tab Tab, now time.Time) (State, []stats.Record) {
	if s.Foreground == nil || s.Foreground.ID != tab.ID {
		return s, nil
	}
	return t.Activate(s, tab, now)
}

// Idle closes the current interval. The foreground tab is remembered.
func (t *Timer) Idle(s State, now time.Time) (State, []stats.Record) {
	recs := t.close(s.Active, now)
	return State{Foreground: s.Foreground}, recs
}

// Tick closes the current interval and reopens it in place so long sessions
// are persisted incrementally.
func (t *Timer) Tick(s State, now time.Time) (State, []stats.Record) {
	if s.Active == nil {
		return s, nil
	}
	recs := t.close(s.Active, now)
	next := *s.Active
	next.StartedAt = now
	return State{Active: &next, Foreground: s.Foreground}, recs
}

// Liveness moves the start of the current interval forward to ts when the
// page reports it is still active. Start never moves backward or past now.
func (t *Timer) Liveness(s State, url string, isActive bool, ts, now time.Time) State {
	if s.Active == nil || !isActive || url != s.Active.URL {
		return s
	}
	if ts.After(now) {
		ts = now
	}
	if !ts.After(s.Active.StartedAt) {
		return s
	}
	next := *s.Active
	next.StartedAt = ts
	return State{Active: &next, Foreground: s.Foreground}
}

func (t *Timer) open(tab Tab, now time.Time) *ActiveInterval {
	if tab.Incognito && t.excludeIncognito {
		metrics.TrackDiscard("incognito")
		return nil
	}
	if classify.IsInternal(tab.URL) {
		return nil
	}
	res := t.classifier.Classify(tab.URL)
	if res.Domain == "" {
		return nil
	}
	return &ActiveInterval{
		TabID:     tab.ID,
		URL:       tab.URL,
		Domain:    res.Domain,
		Category:  res.Category,
		StartedAt: now,
	}
}

// close emits the records for a, split at local midnight. An interval
// shorter than the floor is discarded whole. The total is rounded once;
// parts before a midnight are floored and the last part takes the rest.
func (t *Timer) close(a *ActiveInterval, now time.Time) []stats.Record {
	if a == nil {
		return nil
	}
	if now.Sub(a.StartedAt) < t.floor || !now.After(a.StartedAt) {
		metrics.TrackDiscard("short")
		return nil
	}

	total := int64(math.Round(now.Sub(a.StartedAt).Seconds()))
	var recs []stats.Record
	var used int64
	start := a.StartedAt
	for start.Before(now) {
		end := nextMidnight(start)
		var secs int64
		if end.Before(now) {
			secs = int64(end.Sub(start) / time.Second)
		} else {
			end = now
			secs = total - used
		}
		if secs > 0 {
			recs = append(recs, stats.Record{
				Domain:   a.Domain,
				Category: a.Category,
				Date:     clock.Date(start),
				Seconds:  secs,
			})
			used += secs
		}
		start = end
	}
	return recs
}

func nextMidnight(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d+1, 0, 0, 0, 0, t.Location())
}
