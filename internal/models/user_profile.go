package models

import (
	"strings"
	"time"
)

// UserProfile is keyed by the identity provider account id.
type UserProfile struct {
	ID                string    `gorm:"primaryKey;size:191" json:"id"`
	Email             string    `json:"email"`
	IGUsername        string    `gorm:"column:ig_username" json:"ig_username"`
	ParentEmail       string    `json:"parent_email"`
	IsParentConfirmed bool      `gorm:"not null;default:false" json:"is_parent_confirmed"`
	VoiceSampleURL    *string   `json:"voice_sample_url"`
	VoiceProfileID    *string   `json:"voice_profile_id"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// HasHandle reports whether an Instagram handle has been saved.
func (p *UserProfile) HasHandle() bool {
	return p != nil && strings.TrimSpace(p.IGUsername) != ""
}
