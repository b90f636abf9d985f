package observability

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// PrometheusHandler returns a Gin handler for Prometheus metrics
func PrometheusHandler(handler http.Handler) gin.HandlerFunc {
	return func(c *gin.Context) {
		if handler != nil {
			handler.ServeHTTP(c.Writer, c.Request)
		} else {
			c.JSON(http.StatusInternalServerError, gin.H{
				"error": "metrics handler not initialized",
			})
		}
	}
}

// AuthMetrics holds counters for authentication outcomes.
type AuthMetrics struct {
	requests    metric.Int64Counter
	authDenials metric.Int64Counter
	lockouts    metric.Int64Counter
}

// NewAuthMetrics registers the service's counters on the given meter.
func NewAuthMetrics(meter metric.Meter) (*AuthMetrics, error) {
	requests, err := meter.Int64Counter("http_requests_total",
		metric.WithDescription("HTTP requests by route, method and status"))
	if err != nil {
		return nil, err
	}
	authDenials, err := meter.Int64Counter("auth_denials_total",
		metric.WithDescription("Requests rejected with 401 or 403"))
	if err != nil {
		return nil, err
	}
	lockouts, err := meter.Int64Counter("auth_lockout_responses_total",
		metric.WithDescription("Requests rejected because the account is locked"))
	if err != nil {
		return nil, err
	}
	return &AuthMetrics{requests: requests, authDenials: authDenials, lockouts: lockouts}, nil
}

// Middleware records per-request counters. It runs after the handler so the
// final status code is available.
func (m *AuthMetrics) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		status := c.Writer.Status()
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		attrs := metric.WithAttributes(
			attribute.String("route", route),
			attribute.String("method", c.Request.Method),
			attribute.String("status", strconv.Itoa(status)),
		)
		ctx := c.Request.Context()

		m.requests.Add(ctx, 1, attrs)
		switch status {
		case http.StatusUnauthorized, http.StatusForbidden:
			m.authDenials.Add(ctx, 1, attrs)
		case http.StatusLocked:
			m.lockouts.Add(ctx, 1, attrs)
		}
	}
}
