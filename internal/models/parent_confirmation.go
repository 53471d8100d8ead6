package models

import "time"

const (
	ConfirmationStatusPending   = "pending"
	ConfirmationStatusConfirmed = "confirmed"
)

// ParentConfirmation is one emailed consent request. Only the SHA-256 of the
// emailed token is stored.
type ParentConfirmation struct {
	BaseModel

	UserID      string     `gorm:"size:191;not null;index" json:"user_id"`
	ParentEmail string     `gorm:"not null" json:"parent_email"`
	TokenHash   string     `gorm:"size:64;not null;uniqueIndex" json:"-"`
	Status      string     `gorm:"size:16;not null;default:pending;index" json:"status"`
	ExpiresAt   time.Time  `gorm:"not null;index" json:"expires_at"`
	RespondedAt *time.Time `json:"responded_at"`
}

func (c *ParentConfirmation) IsPending() bool {
	return c.Status == ConfirmationStatusPending
}

// IsExpired reports whether the confirmation window closed before now.
func (c *ParentConfirmation) IsExpired(now time.Time) bool {
	return c.ExpiresAt.Before(now)
}
