package services

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/lifeloop/lifeloop/internal/ingestion"
	"github.com/lifeloop/lifeloop/internal/models"
	"github.com/lifeloop/lifeloop/pkg/logger"
	"github.com/lifeloop/lifeloop/pkg/mail"
	"github.com/lifeloop/lifeloop/pkg/metrics"
	"github.com/lifeloop/lifeloop/web"
)

const (
	// RefreshLimit is the page size sent to both ingestion endpoints.
	RefreshLimit = 12

	defaultGalleryLimit = 24
	defaultDigestLimit  = 6

	captionPending  = "Gemini caption pending: ingestion pipeline is preparing this memory."
	digestFallback  = "We captured a new moment for your family archive."
	galleryFetchErr = "We could not load your latest memories"
	refreshSuccess  = "Instagram memories refreshed successfully."

	reasonUnreachable = "backend unreachable"
)

// Refresh stages reported by StageError.
const (
	StageIngest  = "Ingestion"
	StageProcess = "Processing"
)

// IngestionBackend is the subset of the ingestion client used for refreshes.
type IngestionBackend interface {
	Configured() bool
	Ingest(ctx context.Context, req ingestion.IngestRequest) (int, error)
	Process(ctx context.Context, limit int) (int, error)
}

// StageError wraps a failed backend call with the stage it belongs to.
type StageError struct {
	Stage string
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s failed: %s", e.Stage, e.Reason())
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// Reason is the downstream failure text shown to the caller. Only a reason
// reported by the backend itself is surfaced; transport errors carry internal
// addresses and are replaced by a fixed text.
func (e *StageError) Reason() string {
	var upstream *ingestion.UpstreamError
	if errors.As(e.Err, &upstream) {
		if upstream.Reason != "" {
			return upstream.Reason
		}
		if text := http.StatusText(upstream.Status); text != "" {
			return text
		}
	}
	if e.Err == nil {
		return "unknown error"
	}
	return reasonUnreachable
}

// RefreshResult reports the counts returned by the backend.
type RefreshResult struct {
	Message   string `json:"message"`
	Ingested  int    `json:"ingested"`
	Processed int    `json:"processed"`
}

// GalleryItem is one memory on the dashboard.
type GalleryItem struct {
	ID              string     `json:"id"`
	ImageURL        string     `json:"imageUrl"`
	Caption         string     `json:"caption"`
	ConfidenceLabel string     `json:"confidenceLabel,omitempty"`
	AudioURL        *string    `json:"audioUrl"`
	ProcessedAt     *time.Time `json:"processedAt"`
}

// Gallery is the dashboard payload.
type Gallery struct {
	Items         []GalleryItem `json:"items"`
	UsingMockData bool          `json:"usingMockData"`
	FetchError    string        `json:"fetchError,omitempty"`
}

// DigestResult reports a delivered digest.
type DigestResult struct {
	Recipient string `json:"recipient"`
	Items     int    `json:"items"`
}

// MediaOption customises the MediaService.
type MediaOption func(*MediaService)

// WithMockGallery controls whether the dashboard always shows sample items.
func WithMockGallery(enabled bool) MediaOption {
	return func(s *MediaService) {
		s.useMock = enabled
	}
}

// WithMediaBaseURL sets the public URL prefix for relative storage keys.
func WithMediaBaseURL(baseURL string) MediaOption {
	return func(s *MediaService) {
		s.mediaBaseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	}
}

// WithGalleryLimit overrides the number of rows shown on the dashboard.
func WithGalleryLimit(limit int) MediaOption {
	return func(s *MediaService) {
		if limit > 0 {
			s.galleryLimit = limit
		}
	}
}

// WithDigestMailer enables digest emails.
func WithDigestMailer(mailer mail.Mailer) MediaOption {
	return func(s *MediaService) {
		s.mailer = mailer
	}
}

// WithMediaRenderer overrides the digest template renderer.
func WithMediaRenderer(renderer *web.Renderer) MediaOption {
	return func(s *MediaService) {
		if renderer != nil {
			s.renderer = renderer
		}
	}
}

// WithMediaAudit records refreshes and digests in the audit log.
func WithMediaAudit(audit *AuditService) MediaOption {
	return func(s *MediaService) {
		s.audit = audit
	}
}

// MediaService drives ingestion refreshes and reads ingested media.
type MediaService struct {
	db           *gorm.DB
	profiles     *ProfileService
	backend      IngestionBackend
	mailer       mail.Mailer
	renderer     *web.Renderer
	audit        *AuditService
	useMock      bool
	mediaBaseURL string
	galleryLimit int
	log          *zap.Logger
}

// NewMediaService constructs the service. backend may be nil, in which case
// refreshes fail with ErrBackendNotConfigured.
func NewMediaService(db *gorm.DB, profiles *ProfileService, backend IngestionBackend, opts ...MediaOption) (*MediaService, error) {
	if db == nil {
		return nil, errors.New("media service: db is required")
	}
	if profiles == nil {
		return nil, errors.New("media service: profile service is required")
	}

	service := &MediaService{
		db:           db,
		profiles:     profiles,
		backend:      backend,
		galleryLimit: defaultGalleryLimit,
		log:          logger.WithModule("media"),
	}
	for _, opt := range opts {
		opt(service)
	}

	if service.renderer == nil {
		renderer, err := web.NewRenderer()
		if err != nil {
			return nil, fmt.Errorf("media service: %w", err)
		}
		service.renderer = renderer
	}

	return service, nil
}

// Refresh asks the backend to ingest then process the caller's latest posts.
// Preconditions are checked before any downstream call, and processing only
// runs after a successful ingest.
func (s *MediaService) Refresh(ctx context.Context, userID string) (*RefreshResult, error) {
	ctx = ensureContext(ctx)

	result, err := s.refresh(ctx, trimmed(userID))
	metrics.MediaRefreshes.WithLabelValues(metrics.Result(err)).Inc()

	if uid := trimmed(userID); uid != "" {
		metadata := map[string]any{}
		if result != nil {
			metadata["ingested"] = result.Ingested
			metadata["processed"] = result.Processed
		}
		if err != nil {
			metadata["error"] = err.Error()
		}
		recordAudit(s.audit, ctx, AuditEntry{
			UserID:   &uid,
			Action:   AuditActionMediaRefresh,
			Resource: "instagram_media",
			Result:   auditResult(err),
			Metadata: metadata,
		})
	}

	return result, err
}

func (s *MediaService) refresh(ctx context.Context, userID string) (*RefreshResult, error) {
	if userID == "" {
		return nil, ErrUnauthenticated
	}

	profile, err := s.profiles.Get(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrProfileLookup, err)
	}
	if !profile.HasHandle() {
		return nil, ErrHandleMissing
	}
	if !profile.IsParentConfirmed {
		return nil, ErrConsentPending
	}
	if s.backend == nil || !s.backend.Configured() {
		return nil, ErrBackendNotConfigured
	}

	ingested, err := s.backend.Ingest(ctx, ingestion.IngestRequest{
		ProfileID:         userID,
		InstagramUsername: trimmed(profile.IGUsername),
		Limit:             RefreshLimit,
	})
	if err != nil {
		s.log.Warn("instagram ingest failed", zap.String("user_id", userID), zap.Error(err))
		return nil, &StageError{Stage: StageIngest, Err: err}
	}

	processed, err := s.backend.Process(ctx, RefreshLimit)
	if err != nil {
		s.log.Warn("instagram processing failed", zap.String("user_id", userID), zap.Error(err))
		return nil, &StageError{Stage: StageProcess, Err: err}
	}

	s.log.Info("instagram memories refreshed",
		zap.String("user_id", userID),
		zap.Int("ingested", ingested),
		zap.Int("processed", processed),
	)

	return &RefreshResult{
		Message:   refreshSuccess,
		Ingested:  ingested,
		Processed: processed,
	}, nil
}

// Gallery returns the caller's latest memories, or the curated samples when
// the mock toggle is on or nothing has been ingested yet.
func (s *MediaService) Gallery(ctx context.Context, userID string) (*Gallery, error) {
	ctx = ensureContext(ctx)

	userID = trimmed(userID)
	if userID == "" {
		return nil, ErrUnauthenticated
	}

	if s.useMock {
		return &Gallery{Items: sampleGallery(), UsingMockData: true}, nil
	}

	var rows []models.InstagramMedia
	err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("processed_at DESC").
		Limit(s.galleryLimit).
		Find(&rows).Error
	if err != nil {
		s.log.Error("load gallery failed", zap.String("user_id", userID), zap.Error(err))
		return &Gallery{Items: sampleGallery(), UsingMockData: true, FetchError: galleryFetchErr}, nil
	}
	if len(rows) == 0 {
		return &Gallery{Items: sampleGallery(), UsingMockData: true}, nil
	}

	items := make([]GalleryItem, 0, len(rows))
	for _, row := range rows {
		items = append(items, s.galleryItem(row))
	}
	return &Gallery{Items: items}, nil
}

func (s *MediaService) galleryItem(row models.InstagramMedia) GalleryItem {
	caption := trimmed(derefString(row.Caption))
	if caption == "" {
		caption = captionPending
	}
	return GalleryItem{
		ID:              row.ID,
		ImageURL:        s.resolveImageURL(row),
		Caption:         caption,
		ConfidenceLabel: confidenceLabel(row.CaptionConfidence),
		AudioURL:        row.AudioURL,
		ProcessedAt:     row.ProcessedAt,
	}
}

func (s *MediaService) resolveImageURL(row models.InstagramMedia) string {
	if key := trimmed(derefString(row.StorageKey)); key != "" {
		if strings.HasPrefix(key, "http") {
			return key
		}
		if s.mediaBaseURL != "" {
			return s.mediaBaseURL + "/" + key
		}
	}
	return trimmed(derefString(row.SourceURL))
}

// confidenceLabel renders a caption score as "N% confidence". Scores in
// (0, 1] are treated as fractions.
func confidenceLabel(confidence *float64) string {
	if confidence == nil {
		return ""
	}
	value := *confidence
	if value > 0 && value <= 1 {
		value *= 100
	}
	return fmt.Sprintf("%d%% confidence", int(math.Round(value)))
}

// SendDigest emails the parent an HTML digest of the latest processed
// memories. Consent must be confirmed.
func (s *MediaService) SendDigest(ctx context.Context, userID string) (*DigestResult, error) {
	ctx = ensureContext(ctx)

	result, err := s.sendDigest(ctx, trimmed(userID))

	if uid := trimmed(userID); uid != "" {
		metadata := map[string]any{}
		if result != nil {
			metadata["items"] = result.Items
		}
		if err != nil {
			metadata["error"] = err.Error()
		}
		recordAudit(s.audit, ctx, AuditEntry{
			UserID:   &uid,
			Action:   AuditActionMediaDigest,
			Resource: "instagram_media",
			Result:   auditResult(err),
			Metadata: metadata,
		})
	}

	return result, err
}

func (s *MediaService) sendDigest(ctx context.Context, userID string) (*DigestResult, error) {
	if userID == "" {
		return nil, ErrUnauthenticated
	}
	if s.mailer == nil {
		return nil, ErrDigestNotConfigured
	}

	profile, err := s.profiles.Get(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrProfileLookup, err)
	}
	if profile == nil || !profile.IsParentConfirmed {
		return nil, ErrConsentPending
	}
	parentEmail := trimmed(profile.ParentEmail)
	if parentEmail == "" {
		return nil, ErrParentEmailMissing
	}

	var rows []models.InstagramMedia
	err = s.db.WithContext(ctx).
		Where("user_id = ? AND processed_at IS NOT NULL", userID).
		Order("processed_at DESC").
		Limit(defaultDigestLimit).
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMediaLookup, err)
	}

	items := make([]web.DigestItem, 0, len(rows))
	for _, row := range rows {
		caption := trimmed(derefString(row.Caption))
		if caption == "" {
			caption = digestFallback
		}
		item := web.DigestItem{
			ImageURL: s.resolveImageURL(row),
			Caption:  caption,
			AudioURL: derefString(row.AudioURL),
		}
		if row.ProcessedAt != nil {
			item.ProcessedLabel = row.ProcessedAt.UTC().Format("Jan 2, 2006")
		}
		items = append(items, item)
	}

	studentName := ""
	if profile.HasHandle() {
		studentName = "@" + strings.TrimPrefix(trimmed(profile.IGUsername), "@")
	}
	html, err := s.renderer.Digest(web.Digest{StudentName: studentName, Items: items})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDigestDelivery, err)
	}

	err = s.mailer.Send(ctx, mail.Message{
		To:      []string{parentEmail},
		Subject: "LifeLoop Legacy Digest",
		Text:    fmt.Sprintf("%d new LifeLoop memories are ready for you.", len(items)),
		HTML:    html,
	})
	metrics.EmailsSent.WithLabelValues(mail.Provider(s.mailer), metrics.Result(err)).Inc()
	if err != nil {
		s.log.Error("digest delivery failed", zap.String("user_id", userID), zap.Error(err))
		return nil, fmt.Errorf("%w: %w", ErrDigestDelivery, err)
	}

	return &DigestResult{Recipient: parentEmail, Items: len(items)}, nil
}
