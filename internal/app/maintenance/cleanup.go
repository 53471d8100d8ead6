package maintenance

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/lifeloop/lifeloop/internal/models"
	"github.com/lifeloop/lifeloop/internal/services"
	"github.com/lifeloop/lifeloop/pkg/logger"
	"github.com/lifeloop/lifeloop/pkg/metrics"
)

const (
	defaultConfirmationRetention = 30 * 24 * time.Hour
	defaultConfirmationSpec      = "@hourly"
	defaultAuditSpec             = "@daily"
)

// Cleaner coordinates background maintenance of consent data: purging stale
// pending confirmations, refreshing the pending gauge and pruning audit logs.
type Cleaner struct {
	db             *gorm.DB
	audit          *services.AuditService
	cron           *cron.Cron
	now            func() time.Time
	log            *zap.Logger
	retention      time.Duration
	auditRetention time.Duration

	confirmationSchedule string
	auditSchedule        string
}

// Option customises the Cleaner.
type Option func(*Cleaner)

// WithCron injects a preconfigured cron instance, primarily for testing.
func WithCron(c *cron.Cron) Option {
	return func(cleaner *Cleaner) {
		if c != nil {
			cleaner.cron = c
		}
	}
}

// WithNow overrides the clock used for cleanup comparisons.
func WithNow(now func() time.Time) Option {
	return func(cleaner *Cleaner) {
		if now != nil {
			cleaner.now = now
		}
	}
}

// WithConfirmationRetention sets how long pending confirmations are kept after they expire.
func WithConfirmationRetention(retention time.Duration) Option {
	return func(cleaner *Cleaner) {
		if retention > 0 {
			cleaner.retention = retention
		}
	}
}

// WithAuditRetention enables audit log pruning for entries older than retention.
func WithAuditRetention(retention time.Duration) Option {
	return func(cleaner *Cleaner) {
		if retention > 0 {
			cleaner.auditRetention = retention
		}
	}
}

// WithConfirmationSchedule overrides the cron schedule for confirmation cleanup.
func WithConfirmationSchedule(spec string) Option {
	return func(cleaner *Cleaner) {
		if spec != "" {
			cleaner.confirmationSchedule = spec
		}
	}
}

// WithAuditSchedule overrides the cron schedule for audit retention enforcement.
func WithAuditSchedule(spec string) Option {
	return func(cleaner *Cleaner) {
		if spec != "" {
			cleaner.auditSchedule = spec
		}
	}
}

// NewCleaner constructs a Cleaner with sensible defaults. A nil audit service
// disables audit pruning.
func NewCleaner(db *gorm.DB, audit *services.AuditService, opts ...Option) (*Cleaner, error) {
	if db == nil {
		return nil, errors.New("maintenance: db is required")
	}

	cleaner := &Cleaner{
		db:                   db,
		audit:                audit,
		now:                  time.Now,
		retention:            defaultConfirmationRetention,
		confirmationSchedule: defaultConfirmationSpec,
		auditSchedule:        defaultAuditSpec,
		log:                  logger.WithModule("maintenance"),
	}

	for _, opt := range opts {
		opt(cleaner)
	}

	if cleaner.cron == nil {
		cleaner.cron = cron.New(cron.WithLogger(cron.DiscardLogger))
	}

	return cleaner, nil
}

// Start registers cleanup jobs with the cron scheduler and launches it.
func (c *Cleaner) Start() error {
	if _, err := c.cron.AddFunc(c.confirmationSchedule, func() {
		ctx := context.Background()
		stats, err := c.sweepConfirmations(ctx)
		if err != nil {
			c.log.Warn("confirmation cleanup failed", zap.Error(err))
			return
		}
		if stats.Purged > 0 {
			c.log.Info("purged stale confirmations", zap.Int64("purged", stats.Purged))
		}
	}); err != nil {
		return fmt.Errorf("maintenance: schedule confirmations: %w", err)
	}

	if c.audit != nil && c.auditRetention > 0 {
		if _, err := c.cron.AddFunc(c.auditSchedule, func() {
			if _, err := c.audit.CleanupOlderThan(context.Background(), c.auditRetention); err != nil {
				c.log.Warn("audit cleanup failed", zap.Error(err))
			}
		}); err != nil {
			return fmt.Errorf("maintenance: schedule audit: %w", err)
		}
	}

	c.cron.Start()
	return nil
}

// Stop halts the underlying scheduler, waiting for any running jobs to complete.
func (c *Cleaner) Stop() context.Context {
	if c.cron == nil {
		return context.Background()
	}
	return c.cron.Stop()
}

// RunOnce executes all configured cleanup routines sequentially.
func (c *Cleaner) RunOnce(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	var errs error

	if _, err := c.sweepConfirmations(ctx); err != nil {
		errs = multierr.Append(errs, err)
	}

	if c.audit != nil && c.auditRetention > 0 {
		if _, err := c.audit.CleanupOlderThan(ctx, c.auditRetention); err != nil {
			errs = multierr.Append(errs, err)
		}
	}

	return errs
}

func (c *Cleaner) sweepConfirmations(ctx context.Context) (ConfirmationStats, error) {
	stats, err := CleanupConfirmations(ctx, c.db, c.now(), c.retention)
	if err != nil {
		return stats, err
	}
	metrics.PendingConfirmations.Set(float64(stats.Pending))
	return stats, nil
}

// ConfirmationStats captures the outcome of a confirmation sweep.
type ConfirmationStats struct {
	Purged  int64
	Pending int64
}

// CleanupConfirmations removes pending confirmations whose link expired more
// than retention ago and counts the pending links still usable at now.
// Confirmed records are never removed.
func CleanupConfirmations(ctx context.Context, db *gorm.DB, now time.Time, retention time.Duration) (ConfirmationStats, error) {
	if db == nil {
		return ConfirmationStats{}, errors.New("cleanup confirmations: db is required")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	stats := ConfirmationStats{}
	cutoff := now.Add(-retention)

	result := db.WithContext(ctx).
		Where("status = ? AND expires_at < ?", models.ConfirmationStatusPending, cutoff).
		Delete(&models.ParentConfirmation{})
	if result.Error != nil {
		return stats, fmt.Errorf("cleanup confirmations: purge: %w", result.Error)
	}
	stats.Purged = result.RowsAffected

	if err := db.WithContext(ctx).
		Model(&models.ParentConfirmation{}).
		Where("status = ? AND expires_at >= ?", models.ConfirmationStatusPending, now).
		Count(&stats.Pending).Error; err != nil {
		return stats, fmt.Errorf("cleanup confirmations: count pending: %w", err)
	}

	return stats, nil
}
