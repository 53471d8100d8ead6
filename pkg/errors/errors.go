package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// AppError provides a structured error that can be rendered to API consumers.
type AppError struct {
	Code       string `json:"code"`
	Message    string `json:"error"`
	StatusCode int    `json:"-"`
	Internal   error  `json:"-"`
}

func (e *AppError) Error() string {
	if e == nil {
		return "<nil>"
	}

	if e.Internal != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Internal)
	}

	return e.Message
}

// Unwrap exposes the internal error for errors.Is / errors.As compatibility.
func (e *AppError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Internal
}

// WithInternal returns a copy of the AppError with an attached internal error.
func (e *AppError) WithInternal(err error) *AppError {
	if e == nil {
		return nil
	}

	cpy := *e
	cpy.Internal = err
	return &cpy
}

// WithMessage returns a copy of the AppError carrying a different user-facing message.
func (e *AppError) WithMessage(message string) *AppError {
	if e == nil {
		return nil
	}

	cpy := *e
	cpy.Message = message
	return &cpy
}

// Error codes shared by handlers and clients.
const (
	CodeInvalidInput        = "INVALID_INPUT"
	CodeUnauthorized        = "UNAUTHORIZED"
	CodeConsentRequired     = "CONSENT_REQUIRED"
	CodeNotFound            = "NOT_FOUND"
	CodeExpired             = "EXPIRED"
	CodeUpstreamFailure     = "UPSTREAM_FAILURE"
	CodePersistenceFailure  = "PERSISTENCE_FAILURE"
	CodeEmailDelivery       = "EMAIL_DELIVERY_FAILED"
	CodeNotConfigured       = "NOT_CONFIGURED"
	CodePreconditionFailed  = "PRECONDITION_FAILED"
	CodeRateLimitExceeded   = "RATE_LIMIT_EXCEEDED"
	CodeInternalServerError = "INTERNAL_SERVER_ERROR"
)

// Common errors exposed to the rest of the application.
var (
	ErrUnauthorized = &AppError{
		Code:       CodeUnauthorized,
		Message:    "Unauthorized",
		StatusCode: http.StatusUnauthorized,
	}

	ErrInvalidInput = &AppError{
		Code:       CodeInvalidInput,
		Message:    "Invalid request",
		StatusCode: http.StatusBadRequest,
	}

	ErrConsentRequired = &AppError{
		Code:       CodeConsentRequired,
		Message:    "Consent must be granted before requesting parent confirmation.",
		StatusCode: http.StatusBadRequest,
	}

	ErrNotFound = &AppError{
		Code:       CodeNotFound,
		Message:    "Resource not found",
		StatusCode: http.StatusNotFound,
	}

	ErrExpired = &AppError{
		Code:       CodeExpired,
		Message:    "Confirmation window has elapsed",
		StatusCode: http.StatusGone,
	}

	ErrUpstreamFailure = &AppError{
		Code:       CodeUpstreamFailure,
		Message:    "Upstream service failed",
		StatusCode: http.StatusBadGateway,
	}

	ErrPersistenceFailure = &AppError{
		Code:       CodePersistenceFailure,
		Message:    "Failed to save changes",
		StatusCode: http.StatusInternalServerError,
	}

	ErrEmailDelivery = &AppError{
		Code:       CodeEmailDelivery,
		Message:    "Failed to send parent notification email.",
		StatusCode: http.StatusInternalServerError,
	}

	ErrNotConfigured = &AppError{
		Code:       CodeNotConfigured,
		Message:    "Service is not configured",
		StatusCode: http.StatusInternalServerError,
	}

	ErrPreconditionFailed = &AppError{
		Code:       CodePreconditionFailed,
		Message:    "Request cannot be completed yet",
		StatusCode: http.StatusConflict,
	}

	ErrRateLimit = &AppError{
		Code:       CodeRateLimitExceeded,
		Message:    "Too many requests, please slow down",
		StatusCode: http.StatusTooManyRequests,
	}

	ErrInternalServer = &AppError{
		Code:       CodeInternalServerError,
		Message:    "Internal server error",
		StatusCode: http.StatusInternalServerError,
	}
)

// New builds a new application error with the provided metadata.
func New(code, message string, statusCode int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		StatusCode: statusCode,
	}
}

// Wrap turns any error into an AppError while keeping the original error for logging.
func Wrap(err error, message string) *AppError {
	return &AppError{
		Code:       CodeInternalServerError,
		Message:    message,
		StatusCode: http.StatusInternalServerError,
		Internal:   err,
	}
}

// FromError converts a generic error into an AppError, defaulting to ErrInternalServer.
func FromError(err error) *AppError {
	if err == nil {
		return nil
	}

	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}

	return ErrInternalServer.WithInternal(err)
}

// NewInvalidInput reports a missing or malformed field.
func NewInvalidInput(message string) *AppError {
	return ErrInvalidInput.WithMessage(message)
}
