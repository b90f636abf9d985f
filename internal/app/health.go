package app

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

const healthCheckTimeout = 2 * time.Second

type HealthChecker struct {
	infra Infrastructure
}

func NewHealthChecker(infra Infrastructure) *HealthChecker {
	return &HealthChecker{
		infra: infra,
	}
}

// check pings both stores concurrently and reports per-dependency status.
// Redis failures matter here even though the limiter fails open: the token
// blacklist loses its revocation signal without it.
func (h *HealthChecker) check(ctx context.Context) (map[string]string, bool) {
	ctx, cancel := context.WithTimeout(ctx, healthCheckTimeout)
	defer cancel()

	type result struct {
		name string
		err  error
	}
	results := make(chan result, 2)

	go func() {
		results <- result{"postgres", h.infra.Postgres().Ping(ctx)}
	}()
	go func() {
		results <- result{"redis", h.infra.Redis().Ping(ctx)}
	}()

	checks := make(map[string]string, 2)
	healthy := true
	for i := 0; i < 2; i++ {
		r := <-results
		if r.err != nil {
			checks[r.name] = r.err.Error()
			healthy = false
			continue
		}
		checks[r.name] = "pass"
	}

	return checks, healthy
}

func (h *HealthChecker) Handler(c *gin.Context) {
	checks, healthy := h.check(c.Request.Context())
	if !healthy {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status": "fail",
			"checks": checks,
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status": "pass",
		"checks": checks,
	})
}
