package handlers

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/lifeloop/lifeloop/internal/services"
	appErrors "github.com/lifeloop/lifeloop/pkg/errors"
	"github.com/lifeloop/lifeloop/pkg/logger"
	"github.com/lifeloop/lifeloop/pkg/response"
	"github.com/lifeloop/lifeloop/web"
)

const (
	defaultMaxUploadBytes = 10 << 20
	// formOverheadBytes leaves room for the text fields and multipart framing.
	formOverheadBytes = 1 << 20
	voiceSampleField  = "voiceSample"

	msgConsentRecorded = "Parent confirmation request recorded and email sent."
	isoMillis          = "2006-01-02T15:04:05.000Z07:00"
)

// ConsentHandler serves the parent consent request and the emailed confirmation link.
type ConsentHandler struct {
	consents       *services.ConsentService
	renderer       *web.Renderer
	maxUploadBytes int64
}

// NewConsentHandler wires the consent service. maxUploadBytes <= 0 uses 10 MiB.
func NewConsentHandler(consents *services.ConsentService, renderer *web.Renderer, maxUploadBytes int64) (*ConsentHandler, error) {
	if consents == nil {
		return nil, errors.New("consent handler: service is required")
	}
	if renderer == nil {
		var err error
		if renderer, err = web.NewRenderer(); err != nil {
			return nil, err
		}
	}
	if maxUploadBytes <= 0 {
		maxUploadBytes = defaultMaxUploadBytes
	}
	return &ConsentHandler{consents: consents, renderer: renderer, maxUploadBytes: maxUploadBytes}, nil
}

type consentForm struct {
	InstagramUsername string `form:"instagramUsername" validate:"required,max=30"`
	ParentEmail       string `form:"parentEmail" validate:"required,email"`
	ConsentGranted    string `form:"consentGranted" validate:"eq=true"`
}

func (f *consentForm) normalize() {
	f.InstagramUsername = strings.TrimPrefix(strings.TrimSpace(f.InstagramUsername), "@")
	f.ParentEmail = strings.TrimSpace(f.ParentEmail)
	f.ConsentGranted = strings.TrimSpace(f.ConsentGranted)
}

var consentFormMessages = fieldMessages{
	"instagramUsername": {
		"required": appErrors.NewInvalidInput("Instagram username is required."),
		"max":      appErrors.NewInvalidInput("Instagram username must be at most 30 characters."),
	},
	"parentEmail": {
		"required": appErrors.NewInvalidInput("Parent email is required."),
		"email":    appErrors.NewInvalidInput("Parent email must be a valid email address."),
	},
	"consentGranted": {
		"eq": appErrors.ErrConsentRequired,
	},
}

type consentResponse struct {
	Message               string  `json:"message"`
	VoiceSampleURL        *string `json:"voiceSampleUrl"`
	VoiceProfileID        *string `json:"voiceProfileId"`
	ConfirmationExpiresAt string  `json:"confirmationExpiresAt"`
}

// Request records the student's consent submission and emails the parent.
func (h *ConsentHandler) Request(c *gin.Context) {
	userID := currentUserID(c)
	if userID == "" {
		writeError(c, appErrors.ErrUnauthorized)
		return
	}

	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUploadBytes+formOverheadBytes)

	var form consentForm
	if !bindFormAndValidate(c, &form, consentFormMessages, (*consentForm).normalize) {
		return
	}

	sample, err := h.readVoiceSample(c)
	if err != nil {
		writeError(c, err)
		return
	}

	receipt, err := h.consents.Request(requestContext(c), services.ConsentRequest{
		UserID:            userID,
		Email:             currentUserEmail(c),
		InstagramUsername: form.InstagramUsername,
		ParentEmail:       form.ParentEmail,
		ConsentGranted:    form.ConsentGranted == "true",
		VoiceSample:       sample,
	})
	if err != nil {
		writeError(c, consentRequestError(err))
		return
	}

	response.OK(c, consentResponse{
		Message:               msgConsentRecorded,
		VoiceSampleURL:        receipt.VoiceSampleURL,
		VoiceProfileID:        receipt.VoiceProfileID,
		ConfirmationExpiresAt: receipt.ExpiresAt.UTC().Format(isoMillis),
	})
}

// readVoiceSample returns nil when no file, or an empty file, was attached.
func (h *ConsentHandler) readVoiceSample(c *gin.Context) (*services.VoiceUpload, error) {
	header, err := c.FormFile(voiceSampleField)
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart) {
			return nil, nil
		}
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, errUploadTooLarge
		}
		return nil, appErrors.NewInvalidInput("Voice sample could not be read.")
	}
	if header.Size == 0 {
		return nil, nil
	}
	if header.Size > h.maxUploadBytes {
		return nil, errUploadTooLarge
	}

	file, err := header.Open()
	if err != nil {
		return nil, appErrors.NewInvalidInput("Voice sample could not be read.")
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, h.maxUploadBytes+1))
	if err != nil {
		return nil, appErrors.NewInvalidInput("Voice sample could not be read.")
	}
	if int64(len(data)) > h.maxUploadBytes {
		return nil, errUploadTooLarge
	}

	return &services.VoiceUpload{
		Filename:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Data:        data,
	}, nil
}

// Confirm renders the parent facing result page for an emailed token.
// Successful and repeated confirmations render with 200, every failure with 400.
func (h *ConsentHandler) Confirm(c *gin.Context) {
	outcome, err := h.consents.Confirm(requestContext(c), c.Query("token"))
	ok, message := confirmationMessage(outcome, err)

	status := http.StatusOK
	if !ok {
		status = http.StatusBadRequest
	}

	page, renderErr := h.renderer.ConfirmationPage(web.ConfirmationPage{Success: ok, Message: message})
	if renderErr != nil {
		logger.WithModule("handlers").Error("render confirmation page", zap.Error(renderErr))
		c.String(http.StatusInternalServerError, fmt.Sprintf("%s\n", confirmLookupFailed))
		return
	}

	c.Header("Cache-Control", "no-store")
	response.HTML(c, status, page)
}
