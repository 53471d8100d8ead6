package checks

import (
	"context"
	"time"

	"github.com/lifeloop/lifeloop/internal/monitoring"
)

const defaultRedisTimeout = 2 * time.Second

// RedisPinger represents the minimal interface required to probe a redis connection.
type RedisPinger interface {
	Ping(ctx context.Context) error
}

// Redis returns a probe for the rate-limit store. A nil client means the
// in-memory store is in use.
func Redis(client RedisPinger) monitoring.Check {
	return monitoring.NewCheck("redis", func(ctx context.Context) monitoring.ProbeResult {
		start := time.Now()
		if client == nil {
			return monitoring.ProbeResult{Status: monitoring.StatusUp, Details: "redis disabled"}
		}

		probeCtx, cancel := context.WithTimeout(ctx, defaultRedisTimeout)
		defer cancel()

		// A slow or unreachable Redis only degrades: rate limiting fails open.
		result := monitoring.ResultFromError(client.Ping(probeCtx), time.Since(start))
		if result.Status == monitoring.StatusDown {
			result.Status = monitoring.StatusDegraded
		}
		return result
	})
}
