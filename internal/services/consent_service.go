package services

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/lifeloop/lifeloop/internal/models"
	"github.com/lifeloop/lifeloop/pkg/crypto"
	"github.com/lifeloop/lifeloop/pkg/logger"
	"github.com/lifeloop/lifeloop/pkg/mail"
	"github.com/lifeloop/lifeloop/pkg/metrics"
	"github.com/lifeloop/lifeloop/pkg/storage"
	"github.com/lifeloop/lifeloop/pkg/voice"
	"github.com/lifeloop/lifeloop/web"
)

const (
	// DefaultConsentExpiry is how long an emailed confirmation link stays valid.
	DefaultConsentExpiry = 72 * time.Hour

	// ConfirmPath is the public route that consumes confirmation tokens.
	ConfirmPath = "/api/parent-request/confirm"
)

// VoiceUpload is an optional audio file attached to a consent request.
type VoiceUpload struct {
	Filename    string
	ContentType string
	Data        []byte
}

// ConsentRequest is a signed-in student's request for parental consent.
type ConsentRequest struct {
	UserID            string
	Email             string
	InstagramUsername string
	ParentEmail       string
	ConsentGranted    bool
	VoiceSample       *VoiceUpload
}

// ConsentReceipt reports the state in effect after a successful request.
type ConsentReceipt struct {
	VoiceSampleURL   *string
	VoiceProfileID   *string
	ExpiresAt        time.Time
	ConfirmationLink string
}

// ConfirmOutcome is the successful result of presenting a confirmation token.
type ConfirmOutcome int

const (
	OutcomeConfirmed ConfirmOutcome = iota + 1
	OutcomeAlreadyConfirmed
)

func (o ConfirmOutcome) String() string {
	switch o {
	case OutcomeConfirmed:
		return "confirmed"
	case OutcomeAlreadyConfirmed:
		return "already_confirmed"
	default:
		return "unknown"
	}
}

// ConsentOption customises the ConsentService.
type ConsentOption func(*ConsentService)

// WithConsentBaseURL sets the public base URL used in confirmation links.
func WithConsentBaseURL(baseURL string) ConsentOption {
	return func(s *ConsentService) {
		s.baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	}
}

// WithConsentExpiry overrides the confirmation window.
func WithConsentExpiry(d time.Duration) ConsentOption {
	return func(s *ConsentService) {
		if d > 0 {
			s.expiry = d
		}
	}
}

// WithConsentClock injects a custom time source.
func WithConsentClock(clock func() time.Time) ConsentOption {
	return func(s *ConsentService) {
		if clock != nil {
			s.now = clock
		}
	}
}

// WithObjectStore enables voice sample uploads.
func WithObjectStore(store storage.ObjectStore) ConsentOption {
	return func(s *ConsentService) {
		s.store = store
	}
}

// WithVoiceRegistrar enables voice clone registration of uploaded samples.
func WithVoiceRegistrar(registrar voice.Registrar) ConsentOption {
	return func(s *ConsentService) {
		if registrar != nil {
			s.voices = registrar
		}
	}
}

// WithConsentAudit records requests and confirmations in the audit log.
func WithConsentAudit(audit *AuditService) ConsentOption {
	return func(s *ConsentService) {
		s.audit = audit
	}
}

// WithConsentRenderer overrides the email templates.
func WithConsentRenderer(renderer *web.Renderer) ConsentOption {
	return func(s *ConsentService) {
		if renderer != nil {
			s.renderer = renderer
		}
	}
}

// ConsentService runs the parent consent request and confirmation flows.
type ConsentService struct {
	db       *gorm.DB
	profiles *ProfileService
	mailer   mail.Mailer
	store    storage.ObjectStore
	voices   voice.Registrar
	renderer *web.Renderer
	audit    *AuditService
	baseURL  string
	expiry   time.Duration
	now      func() time.Time
	log      *zap.Logger
}

// NewConsentService constructs the service. mailer may be nil, in which case
// every request fails with ErrConsentNotConfigured.
func NewConsentService(db *gorm.DB, profiles *ProfileService, mailer mail.Mailer, opts ...ConsentOption) (*ConsentService, error) {
	if db == nil {
		return nil, errors.New("consent service: db is required")
	}
	if profiles == nil {
		return nil, errors.New("consent service: profile service is required")
	}

	service := &ConsentService{
		db:       db,
		profiles: profiles,
		mailer:   mailer,
		voices:   voice.NoopRegistrar{},
		expiry:   DefaultConsentExpiry,
		now:      time.Now,
		log:      logger.WithModule("consent"),
	}
	for _, opt := range opts {
		opt(service)
	}

	if service.renderer == nil {
		renderer, err := web.NewRenderer()
		if err != nil {
			return nil, fmt.Errorf("consent service: %w", err)
		}
		service.renderer = renderer
	}

	return service, nil
}

// Request validates the submission, stores the profile and a pending
// confirmation, then emails the parent. Writes made before a failing step are
// kept; a retry creates a fresh confirmation.
func (s *ConsentService) Request(ctx context.Context, req ConsentRequest) (*ConsentReceipt, error) {
	ctx = ensureContext(ctx)

	if err := validateConsentRequest(req); err != nil {
		metrics.ConsentRequests.WithLabelValues("invalid").Inc()
		return nil, err
	}

	receipt, err := s.request(ctx, req)
	metrics.ConsentRequests.WithLabelValues(metrics.Result(err)).Inc()

	userID := req.UserID
	metadata := map[string]any{
		"instagram_username": trimmed(req.InstagramUsername),
		"parent_email":       trimmed(req.ParentEmail),
		"voice_sample":       req.VoiceSample != nil,
	}
	if err != nil {
		metadata["error"] = err.Error()
	}
	recordAudit(s.audit, ctx, AuditEntry{
		UserID:   &userID,
		Action:   AuditActionConsentRequest,
		Resource: "parent_confirmations",
		Result:   auditResult(err),
		Metadata: metadata,
	})

	return receipt, err
}

func validateConsentRequest(req ConsentRequest) error {
	switch {
	case trimmed(req.UserID) == "":
		return ErrUnauthenticated
	case trimmed(req.InstagramUsername) == "":
		return ErrHandleRequired
	case trimmed(req.ParentEmail) == "":
		return ErrParentEmailRequired
	case !req.ConsentGranted:
		return ErrConsentNotGranted
	}
	return nil
}

func (s *ConsentService) request(ctx context.Context, req ConsentRequest) (*ConsentReceipt, error) {
	if s.mailer == nil || s.baseURL == "" {
		return nil, ErrConsentNotConfigured
	}

	userID := trimmed(req.UserID)
	handle := trimmed(req.InstagramUsername)
	parentEmail := trimmed(req.ParentEmail)
	now := s.now().UTC()

	existing, err := s.profiles.Get(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrProfileLookup, err)
	}

	var voiceURL, voiceID *string
	if existing != nil {
		voiceURL = existing.VoiceSampleURL
		voiceID = existing.VoiceProfileID
	}

	if sample := req.VoiceSample; sample != nil && len(sample.Data) > 0 {
		uploaded, err := s.uploadVoiceSample(ctx, userID, sample, now)
		if err != nil {
			return nil, err
		}
		voiceURL = &uploaded
		if id := s.registerVoice(ctx, userID, sample); id != "" {
			voiceID = &id
		}
	}

	if _, err := s.profiles.Upsert(ctx, ProfileUpdate{
		UserID:            userID,
		Email:             req.Email,
		InstagramUsername: handle,
		ParentEmail:       parentEmail,
		VoiceSampleURL:    voiceURL,
		VoiceProfileID:    voiceID,
	}); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrProfileSave, err)
	}

	token := crypto.NewToken()
	confirmation := models.ParentConfirmation{
		BaseModel:   models.BaseModel{CreatedAt: now, UpdatedAt: now},
		UserID:      userID,
		ParentEmail: parentEmail,
		TokenHash:   crypto.HashToken(token),
		Status:      models.ConfirmationStatusPending,
		ExpiresAt:   now.Add(s.expiry),
	}
	if err := s.db.WithContext(ctx).Create(&confirmation).Error; err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConfirmationCreate, err)
	}

	link := s.confirmationLink(token)
	if err := s.sendParentEmail(ctx, parentEmail, handle, link); err != nil {
		s.log.Error("parent email delivery failed",
			zap.String("user_id", userID),
			zap.String("confirmation_id", confirmation.ID),
			zap.Error(err),
		)
		return nil, fmt.Errorf("%w: %w", ErrEmailDelivery, err)
	}

	s.log.Info("parent consent requested",
		zap.String("user_id", userID),
		zap.String("confirmation_id", confirmation.ID),
		zap.Time("expires_at", confirmation.ExpiresAt),
	)

	return &ConsentReceipt{
		VoiceSampleURL:   voiceURL,
		VoiceProfileID:   voiceID,
		ExpiresAt:        confirmation.ExpiresAt,
		ConfirmationLink: link,
	}, nil
}

func (s *ConsentService) uploadVoiceSample(ctx context.Context, userID string, sample *VoiceUpload, now time.Time) (string, error) {
	if s.store == nil {
		return "", fmt.Errorf("%w: object storage not configured", ErrVoiceUpload)
	}

	key := storage.VoiceSampleKey(userID, sample.Filename, now)
	contentType := sample.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	if err := s.store.PutObject(ctx, key, sample.Data, contentType); err != nil {
		s.log.Error("voice sample upload failed", zap.String("user_id", userID), zap.Error(err))
		return "", fmt.Errorf("%w: %w", ErrVoiceUpload, err)
	}
	return s.store.PublicURL(key), nil
}

// registerVoice returns the new voice id, or "" when registration is skipped
// or fails. Failures never abort the request.
func (s *ConsentService) registerVoice(ctx context.Context, userID string, sample *VoiceUpload) string {
	id, err := s.voices.Register(ctx, voice.Sample{
		Name:        "LifeLoop-" + userID,
		Filename:    sample.Filename,
		ContentType: sample.ContentType,
		Data:        sample.Data,
	})
	switch {
	case err != nil:
		metrics.VoiceRegistrations.WithLabelValues("error").Inc()
		s.log.Warn("voice clone registration failed", zap.String("user_id", userID), zap.Error(err))
		return ""
	case id == "":
		metrics.VoiceRegistrations.WithLabelValues("skipped").Inc()
		return ""
	default:
		metrics.VoiceRegistrations.WithLabelValues("success").Inc()
		return id
	}
}

func (s *ConsentService) sendParentEmail(ctx context.Context, to, handle, link string) error {
	text, html, err := s.renderer.ParentEmail(web.ParentEmail{Handle: handle, Link: link})
	if err != nil {
		return err
	}

	err = s.mailer.Send(ctx, mail.Message{
		To:      []string{to},
		Subject: "LifeLoop consent request for " + handle,
		Text:    text,
		HTML:    html,
	})
	metrics.EmailsSent.WithLabelValues(mail.Provider(s.mailer), metrics.Result(err)).Inc()
	return err
}

func (s *ConsentService) confirmationLink(token string) string {
	return s.baseURL + ConfirmPath + "?token=" + url.QueryEscape(token)
}

// Confirm consumes a confirmation token. Replaying a used token succeeds with
// OutcomeAlreadyConfirmed. The profile flag and the record status change in
// one transaction, and the record update only applies while still pending so
// responded_at is written once.
func (s *ConsentService) Confirm(ctx context.Context, token string) (ConfirmOutcome, error) {
	ctx = ensureContext(ctx)

	outcome, record, err := s.confirm(ctx, token)

	label := outcome.String()
	if err != nil {
		label = confirmFailureLabel(err)
	}
	metrics.ConsentConfirmations.WithLabelValues(label).Inc()

	if record != nil {
		userID := record.UserID
		recordAudit(s.audit, ctx, AuditEntry{
			UserID:   &userID,
			Action:   AuditActionConsentConfirm,
			Resource: "parent_confirmations",
			Result:   auditResult(err),
			Metadata: map[string]any{"confirmation_id": record.ID, "outcome": label},
		})
	}

	return outcome, err
}

func (s *ConsentService) confirm(ctx context.Context, token string) (ConfirmOutcome, *models.ParentConfirmation, error) {
	token = trimmed(token)
	if token == "" {
		return 0, nil, ErrTokenMissing
	}

	var record models.ParentConfirmation
	err := s.db.WithContext(ctx).Where("token_hash = ?", crypto.HashToken(token)).First(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, nil, ErrConfirmationNotFound
	}
	if err != nil {
		s.log.Error("load confirmation failed", zap.Error(err))
		return 0, nil, fmt.Errorf("%w: %w", ErrConfirmationLookup, err)
	}

	if !record.IsPending() {
		return OutcomeAlreadyConfirmed, &record, nil
	}

	now := s.now().UTC()
	if record.IsExpired(now) {
		return 0, &record, ErrConfirmationExpired
	}

	outcome := OutcomeConfirmed
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.UserProfile{}).
			Where("id = ?", record.UserID).
			Update("is_parent_confirmed", true).Error; err != nil {
			return fmt.Errorf("%w: %w", ErrProfileConfirmation, err)
		}

		result := tx.Model(&models.ParentConfirmation{}).
			Where("id = ? AND status = ?", record.ID, models.ConfirmationStatusPending).
			Updates(map[string]any{
				"status":       models.ConfirmationStatusConfirmed,
				"responded_at": now,
			})
		if result.Error != nil {
			return fmt.Errorf("%w: %w", ErrConfirmationPersistence, result.Error)
		}
		if result.RowsAffected == 0 {
			outcome = OutcomeAlreadyConfirmed
		}
		return nil
	})
	if err != nil {
		s.log.Error("confirm parent consent failed",
			zap.String("confirmation_id", record.ID),
			zap.String("user_id", record.UserID),
			zap.Error(err),
		)
		return 0, &record, err
	}

	if outcome == OutcomeConfirmed {
		record.Status = models.ConfirmationStatusConfirmed
		record.RespondedAt = &now
		s.log.Info("parent consent confirmed",
			zap.String("confirmation_id", record.ID),
			zap.String("user_id", record.UserID),
		)
	}
	return outcome, &record, nil
}

func confirmFailureLabel(err error) string {
	switch {
	case errors.Is(err, ErrTokenMissing):
		return "missing_token"
	case errors.Is(err, ErrConfirmationNotFound):
		return "not_found"
	case errors.Is(err, ErrConfirmationExpired):
		return "expired"
	case errors.Is(err, ErrConfirmationLookup):
		return "lookup_error"
	default:
		return "persistence_error"
	}
}
