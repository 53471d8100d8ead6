package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/lifeloop/lifeloop/internal/services"
	appErrors "github.com/lifeloop/lifeloop/pkg/errors"
	"github.com/lifeloop/lifeloop/pkg/response"
)

// MediaHandler triggers Instagram refreshes and serves the memory gallery.
type MediaHandler struct {
	media *services.MediaService
}

// NewMediaHandler wires the media service.
func NewMediaHandler(media *services.MediaService) (*MediaHandler, error) {
	if media == nil {
		return nil, errors.New("media handler: service is required")
	}
	return &MediaHandler{media: media}, nil
}

type refreshResponse struct {
	OK        bool   `json:"ok"`
	Message   string `json:"message,omitempty"`
	Ingested  int    `json:"ingested"`
	Processed int    `json:"processed"`
}

type refreshFailure struct {
	OK    bool   `json:"ok"`
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

// Refresh runs ingest then process for the caller and reports a discriminated result.
func (h *MediaHandler) Refresh(c *gin.Context) {
	result, err := h.media.Refresh(requestContext(c), currentUserID(c))
	if err != nil {
		writeRefreshFailure(c, err)
		return
	}

	response.OK(c, refreshResponse{
		OK:        true,
		Message:   result.Message,
		Ingested:  result.Ingested,
		Processed: result.Processed,
	})
}

// RefreshUnauthorized answers a refresh without valid credentials in the
// same shape as every other refresh failure.
func (h *MediaHandler) RefreshUnauthorized(c *gin.Context) {
	writeRefreshFailure(c, services.ErrUnauthenticated)
}

func writeRefreshFailure(c *gin.Context, err error) {
	appErr := refreshError(err)
	if appErr.StatusCode >= http.StatusInternalServerError {
		writeLog(c, appErr)
	}
	response.JSON(c, appErr.StatusCode, refreshFailure{
		OK:    false,
		Error: appErr.Message,
		Code:  appErr.Code,
	})
}

// Gallery returns the caller's latest memories or the curated samples.
func (h *MediaHandler) Gallery(c *gin.Context) {
	userID := currentUserID(c)
	if userID == "" {
		writeError(c, appErrors.ErrUnauthorized)
		return
	}

	gallery, err := h.media.Gallery(requestContext(c), userID)
	if err != nil {
		writeError(c, appErrors.ErrInternalServer.WithInternal(err))
		return
	}
	response.OK(c, gallery)
}

type digestResponse struct {
	Message   string `json:"message"`
	Recipient string `json:"recipient"`
	Items     int    `json:"items"`
}

// Digest emails the parent the latest processed memories.
func (h *MediaHandler) Digest(c *gin.Context) {
	result, err := h.media.SendDigest(requestContext(c), currentUserID(c))
	if err != nil {
		writeError(c, digestError(err))
		return
	}

	response.OK(c, digestResponse{
		Message:   "Legacy digest sent.",
		Recipient: result.Recipient,
		Items:     result.Items,
	})
}
