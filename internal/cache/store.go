package cache

import (
	"context"
	"time"
)

// Store is a shared counter store used for cross-instance rate limiting.
type Store interface {
	IncrementWithTTL(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error)
	Ping(ctx context.Context) error
	Close()
}
