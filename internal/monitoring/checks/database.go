package checks

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/lifeloop/lifeloop/internal/database"
	"github.com/lifeloop/lifeloop/internal/monitoring"
)

// Database returns a probe that pings the profile and confirmation store.
func Database(db *gorm.DB) monitoring.Check {
	return monitoring.NewCheck("database", func(ctx context.Context) monitoring.ProbeResult {
		start := time.Now()
		if db == nil {
			return monitoring.ProbeResult{Status: monitoring.StatusDown, Details: "database not configured"}
		}
		return monitoring.ResultFromError(database.Ping(ctx, db), time.Since(start))
	})
}
