package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/lifeloop/lifeloop/internal/database/testutil"
	"github.com/lifeloop/lifeloop/internal/models"
)

func TestProfileServiceGetMissing(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	svc, err := NewProfileService(db)
	require.NoError(t, err)

	profile, err := svc.Get(context.Background(), "nobody")
	require.NoError(t, err)
	require.Nil(t, profile)
}

func TestProfileServiceUpsertInsertsAndOverwrites(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	svc, err := NewProfileService(db)
	require.NoError(t, err)
	ctx := context.Background()

	sample := "https://media.example.com/voice.mp3"
	profile, err := svc.Upsert(ctx, ProfileUpdate{
		UserID:            "user-1",
		Email:             "student@example.com",
		InstagramUsername: " alice_campus ",
		ParentEmail:       "mom@example.com",
		VoiceSampleURL:    &sample,
	})
	require.NoError(t, err)
	require.Equal(t, "alice_campus", profile.IGUsername)
	require.Equal(t, "student@example.com", profile.Email)
	require.NotNil(t, profile.VoiceSampleURL)
	require.False(t, profile.IsParentConfirmed)

	require.NoError(t, db.Model(&models.UserProfile{}).Where("id = ?", "user-1").
		Update("is_parent_confirmed", true).Error)

	profile, err = svc.Upsert(ctx, ProfileUpdate{
		UserID:            "user-1",
		InstagramUsername: "alice_v2",
		ParentEmail:       "dad@example.com",
	})
	require.NoError(t, err)
	require.Equal(t, "alice_v2", profile.IGUsername)
	require.Equal(t, "dad@example.com", profile.ParentEmail)
	require.Equal(t, "student@example.com", profile.Email)
	require.False(t, profile.IsParentConfirmed, "resubmission requires fresh consent")
	require.NotNil(t, profile.VoiceSampleURL)
	require.Equal(t, sample, *profile.VoiceSampleURL)

	var count int64
	require.NoError(t, db.Model(&models.UserProfile{}).Count(&count).Error)
	require.EqualValues(t, 1, count)
}

func TestProfileServiceUpsertRequiresUser(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	svc, err := NewProfileService(db)
	require.NoError(t, err)

	_, err = svc.Upsert(context.Background(), ProfileUpdate{InstagramUsername: "x"})
	require.ErrorIs(t, err, ErrUnauthenticated)
}
