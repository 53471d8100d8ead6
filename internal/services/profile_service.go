package services

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/lifeloop/lifeloop/internal/models"
)

// ProfileUpdate is the set of fields written by a consent request.
type ProfileUpdate struct {
	UserID            string
	Email             string
	InstagramUsername string
	ParentEmail       string
	VoiceSampleURL    *string
	VoiceProfileID    *string
}

// ProfileService reads and writes user profiles.
type ProfileService struct {
	db *gorm.DB
}

// NewProfileService constructs a ProfileService.
func NewProfileService(db *gorm.DB) (*ProfileService, error) {
	if db == nil {
		return nil, errors.New("profile service: db is required")
	}
	return &ProfileService{db: db}, nil
}

// Get returns the profile for userID, or nil when none exists yet.
func (s *ProfileService) Get(ctx context.Context, userID string) (*models.UserProfile, error) {
	ctx = ensureContext(ctx)

	var profile models.UserProfile
	err := s.db.WithContext(ctx).Where("id = ?", userID).First(&profile).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("profile service: load profile: %w", err)
	}
	return &profile, nil
}

// Upsert inserts the profile or overwrites its handle and parent email,
// always resetting the parent-confirmed flag. Voice fields are only written
// when non-nil so an earlier sample survives a resubmission without one.
func (s *ProfileService) Upsert(ctx context.Context, update ProfileUpdate) (*models.UserProfile, error) {
	ctx = ensureContext(ctx)

	if trimmed(update.UserID) == "" {
		return nil, ErrUnauthenticated
	}

	profile := models.UserProfile{
		ID:                update.UserID,
		Email:             trimmed(update.Email),
		IGUsername:        trimmed(update.InstagramUsername),
		ParentEmail:       trimmed(update.ParentEmail),
		IsParentConfirmed: false,
		VoiceSampleURL:    update.VoiceSampleURL,
		VoiceProfileID:    update.VoiceProfileID,
	}

	columns := []string{"ig_username", "parent_email", "is_parent_confirmed", "updated_at"}
	if profile.Email != "" {
		columns = append(columns, "email")
	}
	if update.VoiceSampleURL != nil {
		columns = append(columns, "voice_sample_url")
	}
	if update.VoiceProfileID != nil {
		columns = append(columns, "voice_profile_id")
	}

	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns(columns),
	}).Create(&profile).Error
	if err != nil {
		return nil, fmt.Errorf("profile service: upsert profile: %w", err)
	}

	return s.Get(ctx, update.UserID)
}
