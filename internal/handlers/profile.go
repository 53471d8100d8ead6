package handlers

import (
	"errors"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/lifeloop/lifeloop/internal/models"
	"github.com/lifeloop/lifeloop/internal/services"
	appErrors "github.com/lifeloop/lifeloop/pkg/errors"
	"github.com/lifeloop/lifeloop/pkg/response"
)

// ProfileHandler exposes the signed-in student's consent profile.
type ProfileHandler struct {
	profiles *services.ProfileService
}

// NewProfileHandler configures a profile handler with required services.
func NewProfileHandler(profiles *services.ProfileService) (*ProfileHandler, error) {
	if profiles == nil {
		return nil, errors.New("profile handler: service is required")
	}
	return &ProfileHandler{profiles: profiles}, nil
}

type profilePayload struct {
	ID                string    `json:"id"`
	Email             string    `json:"email"`
	InstagramUsername string    `json:"instagramUsername"`
	ParentEmail       string    `json:"parentEmail"`
	IsParentConfirmed bool      `json:"isParentConfirmed"`
	VoiceSampleURL    *string   `json:"voiceSampleUrl"`
	VoiceProfileID    *string   `json:"voiceProfileId"`
	UpdatedAt         time.Time `json:"updatedAt"`
}

type profileResponse struct {
	Profile         *profilePayload `json:"profile"`
	ProfileComplete bool            `json:"profileComplete"`
}

// Me returns the caller's profile, or a null profile before the first consent request.
func (h *ProfileHandler) Me(c *gin.Context) {
	userID := currentUserID(c)
	if userID == "" {
		writeError(c, appErrors.ErrUnauthorized)
		return
	}

	profile, err := h.profiles.Get(requestContext(c), userID)
	if err != nil {
		writeError(c, appErrors.ErrInternalServer.WithMessage("We could not load your profile. Please try again.").WithInternal(err))
		return
	}

	response.OK(c, profileResponse{
		Profile:         toProfilePayload(profile),
		ProfileComplete: profile.HasHandle(),
	})
}

func toProfilePayload(profile *models.UserProfile) *profilePayload {
	if profile == nil {
		return nil
	}
	return &profilePayload{
		ID:                profile.ID,
		Email:             profile.Email,
		InstagramUsername: profile.IGUsername,
		ParentEmail:       profile.ParentEmail,
		IsParentConfirmed: profile.IsParentConfirmed,
		VoiceSampleURL:    profile.VoiceSampleURL,
		VoiceProfileID:    profile.VoiceProfileID,
		UpdatedAt:         profile.UpdatedAt,
	}
}
