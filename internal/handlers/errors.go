package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/lifeloop/lifeloop/internal/services"
	appErrors "github.com/lifeloop/lifeloop/pkg/errors"
	"github.com/lifeloop/lifeloop/pkg/logger"
	"github.com/lifeloop/lifeloop/pkg/response"
)

var (
	errUploadTooLarge = appErrors.NewInvalidInput("Voice sample exceeds the upload limit.")
	errVoiceUpload    = appErrors.New(appErrors.CodeUpstreamFailure, "Voice sample upload failed.", http.StatusInternalServerError)
)

const msgConsentPending = "Parent consent pending. Ask them to confirm the LifeLoop invite."

// Parent facing copy for the confirmation page.
const (
	confirmMissingToken     = "Missing confirmation token. Please use the link provided in your email."
	confirmLookupFailed     = "Something went wrong on our side. Please reach out to the LifeLoop team."
	confirmNotFound         = "We could not find this confirmation request. It may have already been completed."
	confirmAlreadyConfirmed = "Thanks again! You have already confirmed and the family dashboard is ready to sync memories."
	confirmExpired          = "This confirmation link has expired. Ask your student to resend the LifeLoop request."
	confirmProfileFailed    = "We could not mark this confirmation. Please try again later."
	confirmRecordFailed     = "We could not finalise this confirmation. Please try again later."
	confirmSucceeded        = "Thanks for confirming! We will start building narrated Instagram highlights so your family can stay connected."
)

// writeError logs server side failures before writing the JSON error body.
func writeError(c *gin.Context, err error) {
	if response.Status(err) >= http.StatusInternalServerError {
		writeLog(c, err)
	}
	response.Error(c, err)
}

func writeLog(c *gin.Context, err error) {
	logger.WithModule("handlers").Warn("request failed",
		zap.String("path", c.FullPath()),
		zap.Int("status", response.Status(err)),
		zap.Error(err),
	)
}

func consentRequestError(err error) *appErrors.AppError {
	switch {
	case errors.Is(err, services.ErrUnauthenticated):
		return appErrors.ErrUnauthorized
	case errors.Is(err, services.ErrHandleRequired):
		return appErrors.NewInvalidInput("Instagram username is required.")
	case errors.Is(err, services.ErrParentEmailRequired):
		return appErrors.NewInvalidInput("Parent email is required.")
	case errors.Is(err, services.ErrConsentNotGranted):
		return appErrors.ErrConsentRequired
	case errors.Is(err, services.ErrConsentNotConfigured):
		return appErrors.ErrNotConfigured.WithMessage("APP_BASE_URL or email delivery is not configured.")
	case errors.Is(err, services.ErrVoiceUpload):
		return errVoiceUpload.WithInternal(err)
	case errors.Is(err, services.ErrProfileSave):
		return appErrors.ErrPersistenceFailure.WithMessage("Failed to save profile.").WithInternal(err)
	case errors.Is(err, services.ErrConfirmationCreate):
		return appErrors.ErrPersistenceFailure.WithMessage("Failed to record the confirmation request.").WithInternal(err)
	case errors.Is(err, services.ErrEmailDelivery):
		return appErrors.ErrEmailDelivery.WithInternal(err)
	default:
		return appErrors.ErrInternalServer.WithInternal(err)
	}
}

func refreshError(err error) *appErrors.AppError {
	var stageErr *services.StageError
	switch {
	case errors.Is(err, services.ErrUnauthenticated):
		return appErrors.ErrUnauthorized.WithMessage("You need to be signed in to sync Instagram memories.")
	case errors.Is(err, services.ErrHandleMissing):
		return appErrors.ErrPreconditionFailed.WithMessage("Instagram handle missing. Update your profile first.")
	case errors.Is(err, services.ErrConsentPending):
		return appErrors.ErrPreconditionFailed.WithMessage(msgConsentPending)
	case errors.Is(err, services.ErrBackendNotConfigured):
		return appErrors.ErrNotConfigured.WithMessage("BACKEND_API_BASE_URL not configured. Set it in your environment.")
	case errors.As(err, &stageErr):
		return appErrors.ErrUpstreamFailure.WithMessage(stageErr.Error()).WithInternal(err)
	case errors.Is(err, services.ErrProfileLookup):
		return appErrors.ErrInternalServer.WithMessage("We could not load your profile. Please try again.").WithInternal(err)
	default:
		return appErrors.ErrInternalServer.WithInternal(err)
	}
}

func digestError(err error) *appErrors.AppError {
	switch {
	case errors.Is(err, services.ErrUnauthenticated):
		return appErrors.ErrUnauthorized
	case errors.Is(err, services.ErrDigestNotConfigured):
		return appErrors.ErrNotConfigured.WithMessage("Email delivery is not configured.")
	case errors.Is(err, services.ErrConsentPending):
		return appErrors.ErrPreconditionFailed.WithMessage(msgConsentPending)
	case errors.Is(err, services.ErrParentEmailMissing):
		return appErrors.ErrPreconditionFailed.WithMessage("Parent email missing. Update your profile first.")
	case errors.Is(err, services.ErrProfileLookup), errors.Is(err, services.ErrMediaLookup):
		return appErrors.ErrInternalServer.WithMessage("We could not load your latest memories").WithInternal(err)
	case errors.Is(err, services.ErrDigestDelivery):
		return appErrors.ErrEmailDelivery.WithMessage("Failed to send the legacy digest email.").WithInternal(err)
	default:
		return appErrors.ErrInternalServer.WithInternal(err)
	}
}

// confirmationMessage maps a confirmation result to the page state and copy.
func confirmationMessage(outcome services.ConfirmOutcome, err error) (bool, string) {
	if err == nil {
		if outcome == services.OutcomeAlreadyConfirmed {
			return true, confirmAlreadyConfirmed
		}
		return true, confirmSucceeded
	}

	switch {
	case errors.Is(err, services.ErrTokenMissing):
		return false, confirmMissingToken
	case errors.Is(err, services.ErrConfirmationNotFound):
		return false, confirmNotFound
	case errors.Is(err, services.ErrConfirmationExpired):
		return false, confirmExpired
	case errors.Is(err, services.ErrProfileConfirmation):
		return false, confirmProfileFailed
	case errors.Is(err, services.ErrConfirmationPersistence):
		return false, confirmRecordFailed
	default:
		return false, confirmLookupFailed
	}
}
