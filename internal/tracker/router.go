package tracker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/runnerr0/dwell/internal/classify"
	"github.com/runnerr0/dwell/internal/clock"
	"github.com/runnerr0/dwell/internal/metrics"
	"github.com/runnerr0/dwell/internal/stats"
)

// Idle states reported by the browser.
const (
	IdleActive = "active"
	IdleIdle   = "idle"
	IdleLocked = "locked"
)

var ErrUnknownIdleState = errors.New("unknown idle state")

// Merger persists closed intervals.
type Merger interface {
	Merge(ctx context.Context, rec stats.Record) error
}

// BlockChecker reports whether a domain is blocked by focus mode.
type BlockChecker interface {
	IsBlocked(domain string) bool
}

// Directive tells the extension what to do with the tab after an event.
type Directive struct {
	Redirect string `json:"redirect,omitempty"`
}

// RouterOptions configures a Router.
type RouterOptions struct {
	Focus          BlockChecker
	Clock          clock.Clock
	BlockedPageURL string
	Logger         *slog.Logger
}

// Router owns the tracker state. Transitions run under its lock; emitted
// records are merged after the lock is released.
type Router struct {
	mu    sync.Mutex
	state State

	timer      *Timer
	merger     Merger
	focus      BlockChecker
	clock      clock.Clock
	blockedURL string
	logger     *slog.Logger
}

func NewRouter(timer *Timer, merger Merger, opts RouterOptions) *Router {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	clk := opts.Clock
	if clk == nil {
		clk = clock.SystemClock{}
	}
	return &Router{
		timer:      timer,
		merger:     merger,
		focus:      opts.Focus,
		clock:      clk,
		blockedURL: opts.BlockedPageURL,
		logger:     logger.With("component", "tracker"),
	}
}

// Activated handles a tab becoming the focused tab.
func (r *Router) Activated(ctx context.Context, tab Tab) (Directive, error) {
	r.mu.Lock()
	dir, recs := r.activateLocked(tab)
	r.mu.Unlock()
	return dir, r.merge(ctx, recs)
}

// Navigated handles a completed navigation. Only the foreground tab counts.
func (r *Router) Navigated(ctx context.Context, tab Tab) (Directive, error) {
	r.mu.Lock()
	if r.state.Foreground == nil || r.state.Foreground.ID != tab.ID {
		r.mu.Unlock()
		return Directive{}, nil
	}
	dir, recs := r.activateLocked(tab)
	r.mu.Unlock()
	return dir, r.merge(ctx, recs)
}

// IdleChanged handles idle, locked and active transitions. On active the
// foreground tab is fg, as reported in the event body by the extension, or
// else the last known foreground tab.
func (r *Router) IdleChanged(ctx context.Context, idleState string, fg *Tab) (Directive, error) {
	switch idleState {
	case IdleIdle, IdleLocked:
		r.mu.Lock()
		var recs []stats.Record
		r.state, recs = r.timer.Idle(r.state, r.clock.Now())
		r.mu.Unlock()
		return Directive{}, r.merge(ctx, recs)

	case IdleActive:
		r.mu.Lock()
		if fg == nil && r.state.Foreground != nil {
			tab := *r.state.Foreground
			fg = &tab
		}
		if fg == nil {
			r.mu.Unlock()
			return Directive{}, nil
		}
		dir, recs := r.activateLocked(*fg)
		r.mu.Unlock()
		return dir, r.merge(ctx, recs)

	default:
		return Directive{}, fmt.Errorf("%w: %q", ErrUnknownIdleState, idleState)
	}
}

// Liveness trims idle-but-focused time using the content script's report.
func (r *Router) Liveness(url string, isActive bool, ts time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.state = r.timer.Liveness(r.state, url, isActive, ts, r.clock.Now())
}

// Tick persists the open interval without ending it.
func (r *Router) Tick(ctx context.Context) error {
	r.mu.Lock()
	var recs []stats.Record
	r.state, recs = r.timer.Tick(r.state, r.clock.Now())
	r.mu.Unlock()
	return r.merge(ctx, recs)
}

// Flush is Tick on demand, used when the popup opens.
func (r *Router) Flush(ctx context.Context) error {
	return r.Tick(ctx)
}

// State returns a copy of the tracker state.
func (r *Router) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := State{}
	if r.state.Active != nil {
		a := *r.state.Active
		out.Active = &a
	}
	if r.state.Foreground != nil {
		fg := *r.state.Foreground
		out.Foreground = &fg
	}
	return out
}

// activateLocked switches to tab, or stops the clock and asks for a redirect
// when tab's domain is blocked by focus mode.
func (r *Router) activateLocked(tab Tab) (Directive, []stats.Record) {
	now := r.clock.Now()
	if r.focus != nil && !classify.IsInternal(tab.URL) && r.focus.IsBlocked(classify.Domain(tab.URL)) {
		var recs []stats.Record
		r.state, recs = r.timer.Idle(r.state, now)
		fg := tab
		r.state.Foreground = &fg
		metrics.TrackDiscard("blocked")
		r.logger.Info("blocked navigation during focus", "domain", classify.Domain(tab.URL), "tab", tab.ID)
		return Directive{Redirect: r.blockedURL}, recs
	}
	var recs []stats.Record
	r.state, recs = r.timer.Activate(r.state, tab, now)
	return Directive{}, recs
}

func (r *Router) merge(ctx context.Context, recs []stats.Record) error {
	var errs []error
	for _, rec := range recs {
		if err := r.merger.Merge(ctx, rec); err != nil {
			r.logger.Error("merge failed", "domain", rec.Domain, "date", rec.Date, "seconds", rec.Seconds, "error", err)
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
