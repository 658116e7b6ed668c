package server

import (
	"crypto/subtle"
	"log/slog"
	"net"
	"net/http"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// TokenHeader carries the shared secret when daemon.auth_token is set.
const TokenHeader = "X-Dwell-Token"

var extensionSchemes = []string{"chrome-extension://", "moz-extension://", "safari-web-extension://"}

var loopbackHosts = []string{"localhost", "127.0.0.1", "::1"}

var (
	// HTTP Metrics
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dwell_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "dwell_http_request_duration_seconds",
			Help:    "Duration of HTTP requests",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
		},
		[]string{"method", "path"},
	)

	ActiveRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "dwell_http_active_requests",
			Help: "Current number of active HTTP requests",
		},
	)
)

// MetricsMiddleware records request counts and latencies by route.
func MetricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		ActiveRequests.Inc()
		defer ActiveRequests.Dec()

		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		method := c.Request.Method
		HTTPRequestsTotal.WithLabelValues(method, path, strconv.Itoa(c.Writer.Status())).Inc()
		HTTPRequestDuration.WithLabelValues(method, path).Observe(time.Since(start).Seconds())
	}
}

// LoggingMiddleware logs one line per request.
func LoggingMiddleware(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		level := slog.LevelDebug
		if c.Writer.Status() >= http.StatusInternalServerError {
			level = slog.LevelError
		}
		logger.Log(c.Request.Context(), level, "request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration_ms", time.Since(start).Milliseconds(),
		)
	}
}

// RecoveryMiddleware turns panics into 500 responses.
func RecoveryMiddleware(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if err := recover(); err != nil {
				logger.Error("handler panic", "path", c.Request.URL.Path, "panic", err)
				c.AbortWithStatusJSON(http.StatusInternalServerError, &Response{Error: "internal error"})
			}
		}()
		c.Next()
	}
}

// AuthMiddleware requires TokenHeader to match token. An empty token
// disables the check.
func AuthMiddleware(token string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if token == "" {
			c.Next()
			return
		}
		got := c.GetHeader(TokenHeader)
		if subtle.ConstantTimeCompare([]byte(got), []byte(token)) != 1 {
			Unauthorized(c, "missing or invalid token")
			return
		}
		c.Next()
	}
}

// OriginAllowed reports whether a page at origin may call the daemon: any
// browser extension page, or an origin listed in allowed.
func OriginAllowed(origin string, allowed []string) bool {
	for _, scheme := range extensionSchemes {
		if strings.HasPrefix(origin, scheme) && len(origin) > len(scheme) {
			return true
		}
	}
	return slices.Contains(allowed, origin)
}

// CORSMiddleware lets the extension's pages call the daemon and rejects
// every other browser origin. Requests without an Origin header (the CLI,
// health checks) pass through.
func CORSMiddleware(allowed []string) gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		if origin != "" {
			if !OriginAllowed(origin, allowed) {
				Forbidden(c, "origin not allowed")
				return
			}
			c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
			c.Writer.Header().Set("Vary", "Origin")
			c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, "+TokenHeader)
			c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, GET, PUT, DELETE, OPTIONS")
			c.Writer.Header().Set("Access-Control-Max-Age", "86400")
		}

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

// HostMiddleware rejects requests whose Host is not a loopback name or the
// configured listen host, so a rebound DNS name cannot reach the API. A
// wildcard listen host disables the check.
func HostMiddleware(listenHost string) gin.HandlerFunc {
	wildcard := listenHost == "" || listenHost == "0.0.0.0" || listenHost == "::"
	return func(c *gin.Context) {
		if wildcard {
			c.Next()
			return
		}
		host := c.Request.Host
		if h, _, err := net.SplitHostPort(host); err == nil {
			host = h
		}
		host = strings.Trim(host, "[]")
		if !strings.EqualFold(host, listenHost) && !slices.Contains(loopbackHosts, strings.ToLower(host)) {
			Forbidden(c, "host not allowed")
			return
		}
		c.Next()
	}
}

// BodyLimitMiddleware caps request bodies at n bytes.
func BodyLimitMiddleware(n int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if n > 0 && c.Request.Body != nil {
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, n)
		}
		c.Next()
	}
}
