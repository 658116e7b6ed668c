package server

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/runnerr0/dwell/internal/app"
	"github.com/runnerr0/dwell/internal/focus"
	"github.com/runnerr0/dwell/internal/settings"
	"github.com/runnerr0/dwell/internal/storage"
	"github.com/runnerr0/dwell/internal/tracker"
)

const defaultNotificationLimit = 50

type handlers struct {
	app     *app.App
	logger  *slog.Logger
	version string
}

type tabEvent struct {
	TabID     int    `json:"tabId" binding:"gte=0"`
	URL       string `json:"url"`
	Incognito bool   `json:"incognito"`
}

func (e tabEvent) tab() tracker.Tab {
	return tracker.Tab{ID: e.TabID, URL: e.URL, Incognito: e.Incognito}
}

type idleEvent struct {
	State      string    `json:"state" binding:"required,oneof=active idle locked"`
	Foreground *tabEvent `json:"foreground"`
}

type livenessEvent struct {
	URL       string `json:"url" binding:"required"`
	IsActive  bool   `json:"isActive"`
	Timestamp int64  `json:"timestamp" binding:"required,gt=0"`
}

type focusRequest struct {
	DurationMinutes int      `json:"durationMinutes" binding:"required,gte=1,lte=1440"`
	BlockedDomains  []string `json:"blockedDomains" binding:"required,min=1,dive,required"`
}

type intervalRequest struct {
	Domain  string `json:"domain" binding:"required"`
	Date    string `json:"date" binding:"required,datetime=2006-01-02"`
	Seconds int64  `json:"seconds" binding:"required,gt=0"`
}

type statusResponse struct {
	Version string `json:"version"`
	*app.Status
}

func (h *handlers) activated(c *gin.Context) {
	var ev tabEvent
	if err := c.ShouldBindJSON(&ev); err != nil {
		BadRequest(c, err.Error())
		return
	}
	dir, err := h.app.Router.Activated(c.Request.Context(), ev.tab())
	h.directive(c, dir, err)
}

func (h *handlers) navigated(c *gin.Context) {
	var ev tabEvent
	if err := c.ShouldBindJSON(&ev); err != nil {
		BadRequest(c, err.Error())
		return
	}
	dir, err := h.app.Router.Navigated(c.Request.Context(), ev.tab())
	h.directive(c, dir, err)
}

func (h *handlers) idle(c *gin.Context) {
	var ev idleEvent
	if err := c.ShouldBindJSON(&ev); err != nil {
		BadRequest(c, err.Error())
		return
	}
	var fg *tracker.Tab
	if ev.Foreground != nil {
		tab := ev.Foreground.tab()
		fg = &tab
	}
	dir, err := h.app.Router.IdleChanged(c.Request.Context(), ev.State, fg)
	if errors.Is(err, tracker.ErrUnknownIdleState) {
		BadRequest(c, err.Error())
		return
	}
	h.directive(c, dir, err)
}

func (h *handlers) liveness(c *gin.Context) {
	var ev livenessEvent
	if err := c.ShouldBindJSON(&ev); err != nil {
		BadRequest(c, err.Error())
		return
	}
	h.app.Router.Liveness(ev.URL, ev.IsActive, time.UnixMilli(ev.Timestamp))
	OK(c)
}

// directive answers a tab event. Storage failures are logged and the event is
// still acknowledged: the record sits in the retry queue.
func (h *handlers) directive(c *gin.Context, dir tracker.Directive, err error) {
	if err != nil {
		h.logger.Warn("event merge failed", "path", c.FullPath(), "error", err)
	}
	Success(c, dir)
}

func (h *handlers) getStats(c *gin.Context) {
	snap, err := h.app.GetStats(c.Request.Context())
	if err != nil {
		InternalError(c, "Failed to load stats")
		return
	}
	Success(c, snap)
}

func (h *handlers) recomputeWeekly(c *gin.Context) {
	w, err := h.app.RecomputeWeekly(c.Request.Context())
	if err != nil {
		InternalError(c, "Failed to recompute weekly stats")
		return
	}
	Success(c, w)
}

func (h *handlers) clearData(c *gin.Context) {
	if err := h.app.ClearData(c.Request.Context()); err != nil {
		InternalError(c, "Failed to clear data")
		return
	}
	OK(c)
}

func (h *handlers) purgeAll(c *gin.Context) {
	if err := h.app.PurgeAll(c.Request.Context()); err != nil {
		InternalError(c, "Failed to purge data")
		return
	}
	OK(c)
}

func (h *handlers) categories(c *gin.Context) {
	Success(c, h.app.Classifier.Categories())
}

func (h *handlers) getSettings(c *gin.Context) {
	s, err := h.app.GetSettings(c.Request.Context())
	if err != nil {
		InternalError(c, "Failed to load settings")
		return
	}
	Success(c, s)
}

func (h *handlers) updateSettings(c *gin.Context) {
	// Omitted fields fall back to defaults, not to the stored values.
	s := settings.Defaults()
	if err := c.ShouldBindJSON(&s); err != nil {
		BadRequest(c, err.Error())
		return
	}
	err := h.app.UpdateSettings(c.Request.Context(), s)
	var verr *settings.ValidationError
	switch {
	case errors.As(err, &verr):
		BadRequest(c, verr.Error())
	case err != nil:
		InternalError(c, "Failed to save settings")
	default:
		OK(c)
	}
}

func (h *handlers) getFocus(c *gin.Context) {
	Success(c, h.app.GetFocus())
}

func (h *handlers) startFocus(c *gin.Context) {
	var req focusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err.Error())
		return
	}
	s, err := h.app.StartFocus(c.Request.Context(), req.DurationMinutes, req.BlockedDomains)
	switch {
	case errors.Is(err, focus.ErrInvalidDuration), errors.Is(err, focus.ErrNoBlockedDomains):
		BadRequest(c, err.Error())
	case err != nil:
		InternalError(c, "Failed to start focus mode")
	default:
		Success(c, s)
	}
}

func (h *handlers) endFocus(c *gin.Context) {
	if err := h.app.EndFocus(c.Request.Context()); err != nil {
		InternalError(c, "Failed to end focus mode")
		return
	}
	OK(c)
}

func (h *handlers) exportWeeklyReport(c *gin.Context) {
	exp, err := h.app.ExportWeeklyReport(c.Request.Context())
	if err != nil {
		h.logger.Error("export weekly report", "error", err)
		InternalError(c, "Failed to export report")
		return
	}
	if c.Query("format") == "json" {
		Success(c, exp)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", exp.FileName))
	c.String(http.StatusOK, exp.Content)
}

func (h *handlers) flushActivity(c *gin.Context) {
	if err := h.app.UpdateCurrentActivity(c.Request.Context()); err != nil {
		h.logger.Warn("flush activity", "error", err)
	}
	OK(c)
}

func (h *handlers) addInterval(c *gin.Context) {
	var req intervalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err.Error())
		return
	}
	rec, err := h.app.AddInterval(c.Request.Context(), req.Domain, req.Date, req.Seconds)
	switch {
	case errors.Is(err, app.ErrInvalidInterval):
		BadRequest(c, err.Error())
	case err != nil:
		InternalError(c, "Failed to add interval")
	default:
		Success(c, rec)
	}
}

func (h *handlers) notifications(c *gin.Context) {
	limit := defaultNotificationLimit
	if v := c.Query("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			BadRequest(c, "limit must be a positive integer")
			return
		}
		limit = n
	}
	ns, err := h.app.Notifications(c.Request.Context(), limit)
	if err != nil {
		InternalError(c, "Failed to load notifications")
		return
	}
	if ns == nil {
		ns = []storage.Notification{}
	}
	Success(c, ns)
}

// ping is the unauthenticated liveness check; it reveals nothing about
// browsing.
func (h *handlers) ping(c *gin.Context) {
	Success(c, gin.H{"status": "ok", "version": h.version})
}

func (h *handlers) status(c *gin.Context) {
	st, err := h.app.Status(c.Request.Context())
	if err != nil {
		InternalError(c, "Failed to load status")
		return
	}
	Success(c, statusResponse{Version: h.version, Status: st})
}
