package middleware

import (
	"math"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/lifeloop/lifeloop/pkg/errors"
	"github.com/lifeloop/lifeloop/pkg/logger"
	"github.com/lifeloop/lifeloop/pkg/response"
)

// RateLimitConfig bounds requests per (client IP, route) within a fixed window.
type RateLimitConfig struct {
	Requests int
	Window   time.Duration
	// Scope namespaces counters so separate limiters do not share budgets.
	Scope string
}

// RateLimit returns a fixed-window limiter backed by store. Store failures
// let the request through.
func RateLimit(store RateStore, cfg RateLimitConfig) gin.HandlerFunc {
	scope := cfg.Scope
	if scope == "" {
		scope = "api"
	}

	return func(c *gin.Context) {
		if store == nil || cfg.Requests <= 0 || cfg.Window <= 0 {
			c.Next()
			return
		}

		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}
		key := "rate:" + scope + ":" + c.ClientIP() + "|" + path

		count, ttl, err := store.Increment(c.Request.Context(), key, cfg.Window)
		if err != nil {
			logger.WithModule("ratelimit").Warn("rate store unavailable", zap.Error(err))
			c.Next()
			return
		}

		remaining := cfg.Requests - count
		if remaining < 0 {
			remaining = 0
		}
		resetIn := int(math.Ceil(ttl.Seconds()))

		c.Header("X-RateLimit-Limit", strconv.Itoa(cfg.Requests))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(remaining))
		c.Header("X-RateLimit-Reset", strconv.Itoa(resetIn))

		if count > cfg.Requests {
			c.Header("Retry-After", strconv.Itoa(resetIn))
			response.Error(c, errors.ErrRateLimit)
			c.Abort()
			return
		}

		c.Next()
	}
}
