package clock

import (
	"sync"
	"time"
)

// DateLayout is the ISO date format used for every per-day key.
const DateLayout = "2006-01-02"

// Clock abstracts time so tracking and aggregation stay deterministic in tests.
type Clock interface {
	Now() time.Time
}

// SystemClock reports local wall-clock time. Days roll over at local midnight.
type SystemClock struct{}

func (SystemClock) Now() time.Time {
	return time.Now()
}

// Date formats t as a YYYY-MM-DD key in t's own location.
func Date(t time.Time) string {
	return t.Format(DateLayout)
}

// ShiftDate moves a YYYY-MM-DD key by days. Malformed input is returned unchanged.
func ShiftDate(date string, days int) string {
	t, err := time.Parse(DateLayout, date)
	if err != nil {
		return date
	}
	return t.AddDate(0, 0, days).Format(DateLayout)
}

// Fake is a settable clock for tests.
type Fake struct {
	mu  sync.Mutex
	now time.Time
}

func NewFake(now time.Time) *Fake {
	return &Fake{now: now}
}

func (f *Fake) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

// Set moves the clock to t.
func (f *Fake) Set(t time.Time) {
	f.mu.Lock()
	f.now = t
	f.mu.Unlock()
}

// Advance moves the clock forward by d.
func (f *Fake) Advance(d time.Duration) {
	f.mu.Lock()
	f.now = f.now.Add(d)
	f.mu.Unlock()
}
