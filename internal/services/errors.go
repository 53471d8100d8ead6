package services

import "errors"

var (
	// ErrUnauthenticated is returned when no account id accompanies a call.
	ErrUnauthenticated = errors.New("services: caller is not authenticated")

	ErrHandleRequired      = errors.New("consent: instagram username is required")
	ErrParentEmailRequired = errors.New("consent: parent email is required")
	ErrConsentNotGranted   = errors.New("consent: consent was not granted")
	// ErrConsentNotConfigured means email delivery or the public base URL is missing.
	ErrConsentNotConfigured = errors.New("consent: email delivery or app base url not configured")
	ErrVoiceUpload          = errors.New("consent: voice sample upload failed")
	ErrProfileSave          = errors.New("consent: save profile")
	ErrConfirmationCreate   = errors.New("consent: create confirmation")
	ErrEmailDelivery        = errors.New("consent: send parent email")

	ErrTokenMissing            = errors.New("confirmation: token missing")
	ErrConfirmationNotFound    = errors.New("confirmation: not found")
	ErrConfirmationExpired     = errors.New("confirmation: expired")
	ErrConfirmationLookup      = errors.New("confirmation: lookup failed")
	ErrProfileConfirmation     = errors.New("confirmation: mark profile confirmed")
	ErrConfirmationPersistence = errors.New("confirmation: finalise record")

	ErrProfileLookup        = errors.New("media: profile lookup failed")
	ErrHandleMissing        = errors.New("media: instagram handle missing")
	ErrConsentPending       = errors.New("media: parent consent pending")
	ErrBackendNotConfigured = errors.New("media: ingestion backend not configured")
	ErrParentEmailMissing   = errors.New("media: parent email missing")
	ErrDigestNotConfigured  = errors.New("media: email delivery not configured")
	ErrMediaLookup          = errors.New("media: load media failed")
	ErrDigestDelivery       = errors.New("media: send digest email")
)
