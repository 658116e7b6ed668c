// Package focus runs timed sessions during which selected domains are
// blocked.
package focus

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/runnerr0/dwell/internal/classify"
	"github.com/runnerr0/dwell/internal/clock"
	"github.com/runnerr0/dwell/internal/metrics"
	"github.com/runnerr0/dwell/internal/notify"
	"github.com/runnerr0/dwell/internal/storage"
)

// Key is the storage key of the persisted session.
const Key = "focus"

const maxMinutes = 24 * 60

var (
	ErrInvalidDuration  = errors.New("focus duration must be between 1 and 1440 minutes")
	ErrNoBlockedDomains = errors.New("at least one domain to block is required")
)

// Session is the persisted focus state. The zero value is inactive.
type Session struct {
	Active         bool      `json:"active"`
	StartedAt      time.Time `json:"startedAt"`
	EndsAt         time.Time `json:"endsAt"`
	BlockedDomains []string  `json:"blockedDomains"`
}

// Remaining reports the time left at now.
func (s Session) Remaining(now time.Time) time.Duration {
	if !s.Active || !now.Before(s.EndsAt) {
		return 0
	}
	return s.EndsAt.Sub(now)
}

// Notifier displays focus notifications.
type Notifier interface {
	Notify(ctx context.Context, kind, title, message string) error
}

// AfterFunc schedules fn after d and returns a function that cancels it.
type AfterFunc func(d time.Duration, fn func()) (stop func() bool)

func systemAfterFunc(d time.Duration, fn func()) func() bool {
	return time.AfterFunc(d, fn).Stop
}

// Manager owns the single focus session. Expiry runs on a timer goroutine and
// takes the same lock as Start and End.
type Manager struct {
	mu       sync.Mutex
	store    storage.Store
	notifier Notifier
	clock    clock.Clock
	after    AfterFunc
	logger   *slog.Logger

	session Session
	stop    func() bool
	gen     uint64
}

func NewManager(store storage.Store, n Notifier, clk clock.Clock, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	if clk == nil {
		clk = clock.SystemClock{}
	}
	return &Manager{
		store:    store,
		notifier: n,
		clock:    clk,
		after:    systemAfterFunc,
		logger:   logger.With("component", "focus"),
	}
}

// WithAfterFunc replaces the expiry scheduler.
func (m *Manager) WithAfterFunc(fn AfterFunc) *Manager {
	m.after = fn
	return m
}

// NormalizeDomains accepts bare hosts or URLs and returns unique domains.
func NormalizeDomains(raw []string) []string {
	seen := make(map[string]bool, len(raw))
	out := make([]string, 0, len(raw))
	for _, r := range raw {
		r = strings.TrimSpace(r)
		var d string
		if strings.Contains(r, "://") {
			d = classify.Domain(r)
		} else {
			d = classify.NormalizeDomain(strings.SplitN(r, "/", 2)[0])
		}
		if d == "" || seen[d] {
			continue
		}
		seen[d] = true
		out = append(out, d)
	}
	return out
}

// Start begins a session, replacing any active one.
func (m *Manager) Start(ctx context.Context, minutes int, domains []string) (Session, error) {
	if minutes < 1 || minutes > maxMinutes {
		return Session{}, ErrInvalidDuration
	}
	blocked := NormalizeDomains(domains)
	if len(blocked) == 0 {
		return Session{}, ErrNoBlockedDomains
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.clock.Now()
	next := Session{
		Active:         true,
		StartedAt:      now,
		EndsAt:         now.Add(time.Duration(minutes) * time.Minute),
		BlockedDomains: blocked,
	}
	if err := storage.PutJSON(ctx, m.store, Key, next); err != nil {
		return Session{}, fmt.Errorf("save focus session: %w", err)
	}

	m.cancelLocked()
	m.session = next
	m.armLocked(next.EndsAt.Sub(now))
	metrics.TrackFocus("started")
	metrics.FocusActive.Set(1)
	m.logger.Info("focus session started", "minutes", minutes, "blocked", blocked)

	m.notify(ctx, fmt.Sprintf("Started for %d minutes.", minutes))
	return next, nil
}

// End stops the active session. Ending an inactive session does nothing.
func (m *Manager) End(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.endLocked(ctx, "ended")
}

func (m *Manager) endLocked(ctx context.Context, event string) error {
	if !m.session.Active {
		return nil
	}
	if err := storage.PutJSON(ctx, m.store, Key, Session{BlockedDomains: []string{}}); err != nil {
		return fmt.Errorf("save focus session: %w", err)
	}
	m.cancelLocked()
	m.session = Session{BlockedDomains: []string{}}
	metrics.TrackFocus(event)
	metrics.FocusActive.Set(0)
	m.logger.Info("focus session ended", "reason", event)

	m.notify(ctx, "Great job! Focus mode ended.")
	return nil
}

// Restore loads the persisted session on startup. An expired session is
// ended; a live one gets its timer re-armed.
func (m *Manager) Restore(ctx context.Context) (Session, error) {
	var s Session
	if _, err := storage.GetJSON(ctx, m.store, Key, &s); err != nil {
		return Session{}, fmt.Errorf("load focus session: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.cancelLocked()
	m.session = s
	if !s.Active {
		return s, nil
	}

	now := m.clock.Now()
	if !now.Before(s.EndsAt) {
		if err := m.endLocked(ctx, "expired"); err != nil {
			return Session{}, err
		}
		return m.session, nil
	}

	m.armLocked(s.EndsAt.Sub(now))
	metrics.TrackFocus("restored")
	metrics.FocusActive.Set(1)
	m.logger.Info("focus session restored", "remaining", s.EndsAt.Sub(now).String())
	return s, nil
}

// Load reads the persisted session without arming timers or ending it.
func Load(ctx context.Context, store storage.Store) (Session, error) {
	s := Session{BlockedDomains: []string{}}
	if _, err := storage.GetJSON(ctx, store, Key, &s); err != nil {
		return Session{}, fmt.Errorf("load focus session: %w", err)
	}
	return s, nil
}

// Get returns a copy of the current session.
func (m *Manager) Get() Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := m.session
	s.BlockedDomains = append([]string{}, m.session.BlockedDomains...)
	return s
}

// IsBlocked reports whether domain, or a parent domain of it, is blocked by
// the active session.
func (m *Manager) IsBlocked(domain string) bool {
	if domain == "" {
		return false
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.session.Active || !m.clock.Now().Before(m.session.EndsAt) {
		return false
	}
	for _, d := range m.session.BlockedDomains {
		if domain == d || strings.HasSuffix(domain, "."+d) {
			return true
		}
	}
	return false
}

// Shutdown cancels the expiry timer without ending the session.
func (m *Manager) Shutdown() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cancelLocked()
	m.gen++
}

func (m *Manager) armLocked(d time.Duration) {
	m.gen++
	gen := m.gen
	m.stop = m.after(d, func() { m.expire(gen) })
}

func (m *Manager) cancelLocked() {
	if m.stop != nil {
		m.stop()
		m.stop = nil
	}
}

func (m *Manager) expire(gen uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if gen != m.gen {
		return
	}
	m.stop = nil
	if err := m.endLocked(context.Background(), "expired"); err != nil {
		m.logger.Error("focus expiry failed", "error", err)
	}
}

func (m *Manager) notify(ctx context.Context, message string) {
	if m.notifier == nil {
		return
	}
	if err := m.notifier.Notify(ctx, notify.KindFocus, "Focus Mode", message); err != nil {
		m.logger.Warn("focus notification failed", "error", err)
	}
}
