package testutil

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/lifeloop/lifeloop/internal/api"
	"github.com/lifeloop/lifeloop/internal/app"
	iauth "github.com/lifeloop/lifeloop/internal/auth"
	sharedtestutil "github.com/lifeloop/lifeloop/internal/database/testutil"
	"github.com/lifeloop/lifeloop/internal/ingestion"
	"github.com/lifeloop/lifeloop/internal/middleware"
	"github.com/lifeloop/lifeloop/internal/models"
	"github.com/lifeloop/lifeloop/internal/monitoring"
	"github.com/lifeloop/lifeloop/internal/monitoring/checks"
	"github.com/lifeloop/lifeloop/internal/services"
	"github.com/lifeloop/lifeloop/pkg/mail"
	"github.com/lifeloop/lifeloop/pkg/voice"
	"github.com/lifeloop/lifeloop/web"
)

// AppBaseURL is the public base URL used to build confirmation links.
const AppBaseURL = "https://lifeloop.test"

// Env encapsulates a fully-wired API instance backed by an in-memory database for handler tests.
type Env struct {
	T        *testing.T
	DB       *gorm.DB
	Router   *gin.Engine
	JWT      *iauth.JWTVerifier
	Mailer   *RecordingMailer
	Store    *MemoryStore
	Voices   *StubRegistrar
	Backend  *Backend
	Now      time.Time
	Config   *app.Config
	Consents *services.ConsentService
}

// EnvOption customises NewEnv.
type EnvOption func(*envOptions)

type envOptions struct {
	maxUpload   int64
	noMailer    bool
	mockGallery bool
	noBackend   bool
	backendURL  string
}

// WithMaxUpload lowers the voice sample upload limit.
func WithMaxUpload(limit int64) EnvOption {
	return func(o *envOptions) { o.maxUpload = limit }
}

// WithoutMailer leaves email delivery unconfigured.
func WithoutMailer() EnvOption {
	return func(o *envOptions) { o.noMailer = true }
}

// WithMockGallery serves curated sample memories.
func WithMockGallery() EnvOption {
	return func(o *envOptions) { o.mockGallery = true }
}

// WithBackendURL points the ingestion client at baseURL instead of the recording backend.
func WithBackendURL(baseURL string) EnvOption {
	return func(o *envOptions) { o.backendURL = baseURL }
}

// WithoutBackend leaves the ingestion backend URL empty.
func WithoutBackend() EnvOption {
	return func(o *envOptions) { o.noBackend = true }
}

// NewEnv provisions a fresh handler test environment with migrations applied.
func NewEnv(t *testing.T, opts ...EnvOption) *Env {
	t.Helper()

	gin.SetMode(gin.TestMode)

	options := envOptions{}
	for _, opt := range opts {
		opt(&options)
	}

	db := sharedtestutil.MustOpenTestDB(t, sharedtestutil.WithAutoMigrate())
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	cfg := &app.Config{
		Server: app.ServerConfig{
			MaxUploadBytes: options.maxUpload,
			RateLimit: app.RateLimitConfig{
				Requests:        1000,
				Window:          time.Minute,
				ConfirmRequests: 1000,
			},
		},
		Monitoring: app.MonitoringConfig{
			Prometheus: app.PrometheusConfig{Enabled: true, Endpoint: "/metrics"},
			Health:     app.HealthConfig{Enabled: true},
		},
		Auth: app.AuthConfig{
			JWT: app.JWTSettings{
				Secret: "test-suite-super-secret-key-32-bytes!!",
				Issuer: "test-suite",
				TTL:    time.Hour,
			},
			CookieName: "sb-access-token",
		},
		App:       app.PublicAppConfig{BaseURL: AppBaseURL},
		Dashboard: app.DashboardConfig{UseMock: options.mockGallery},
	}

	jwtVerifier, err := iauth.NewJWTVerifier(cfg.Auth.JWTVerifierConfig())
	require.NoError(t, err)

	backend := NewBackend(t)
	backendURL := backend.URL()
	if options.backendURL != "" {
		backendURL = options.backendURL
	}
	if options.noBackend {
		backendURL = ""
	}

	mailer := &RecordingMailer{}
	var consentMailer mail.Mailer = mailer
	if options.noMailer {
		consentMailer = nil
	}
	store := NewMemoryStore()
	voices := &StubRegistrar{ID: "voice-123"}
	renderer := web.MustRenderer()

	audit, err := services.NewAuditService(db)
	require.NoError(t, err)
	profiles, err := services.NewProfileService(db)
	require.NoError(t, err)

	consents, err := services.NewConsentService(db, profiles, consentMailer,
		services.WithConsentBaseURL(cfg.App.BaseURL),
		services.WithConsentClock(func() time.Time { return now }),
		services.WithObjectStore(store),
		services.WithVoiceRegistrar(voices),
		services.WithConsentAudit(audit),
		services.WithConsentRenderer(renderer),
	)
	require.NoError(t, err)

	media, err := services.NewMediaService(db, profiles, ingestion.NewClient(backendURL),
		services.WithMockGallery(cfg.Dashboard.UseMock),
		services.WithDigestMailer(consentMailer),
		services.WithMediaRenderer(renderer),
		services.WithMediaAudit(audit),
	)
	require.NoError(t, err)

	rateStore := middleware.NewMemoryRateStore()
	t.Cleanup(rateStore.Close)

	router, err := api.NewRouter(api.Dependencies{
		Config:    cfg,
		Verifier:  jwtVerifier,
		RateStore: rateStore,
		Health:    monitoring.NewHealthManager(checks.Database(db)),
		Renderer:  renderer,
		Profiles:  profiles,
		Consents:  consents,
		Media:     media,
	})
	require.NoError(t, err)

	return &Env{
		T:        t,
		DB:       db,
		Router:   router,
		JWT:      jwtVerifier,
		Mailer:   mailer,
		Store:    store,
		Voices:   voices,
		Backend:  backend,
		Now:      now,
		Config:   cfg,
		Consents: consents,
	}
}

// Token issues an access token for userID.
func (e *Env) Token(userID string) string {
	e.T.Helper()

	token, err := e.JWT.IssueToken(userID, userID+"@example.com")
	require.NoError(e.T, err)
	return token
}

// Request performs an HTTP request against the router. JSON encodes body when it is not nil.
func (e *Env) Request(method, path string, body any, token string) *httptest.ResponseRecorder {
	e.T.Helper()

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(e.T, err)
		reader = bytes.NewReader(payload)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return e.serve(req, token)
}

// PostForm submits urlencoded form values.
func (e *Env) PostForm(path string, values url.Values, token string) *httptest.ResponseRecorder {
	e.T.Helper()

	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(values.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return e.serve(req, token)
}

// FileField is one file part of a multipart submission.
type FileField struct {
	Field       string
	Filename    string
	ContentType string
	Data        []byte
}

// PostMultipart submits form values plus optional files.
func (e *Env) PostMultipart(path string, values url.Values, files []FileField, token string) *httptest.ResponseRecorder {
	e.T.Helper()

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	for key, vals := range values {
		for _, v := range vals {
			require.NoError(e.T, writer.WriteField(key, v))
		}
	}
	for _, file := range files {
		header := make(map[string][]string)
		header["Content-Disposition"] = []string{`form-data; name="` + file.Field + `"; filename="` + file.Filename + `"`}
		if file.ContentType != "" {
			header["Content-Type"] = []string{file.ContentType}
		}
		part, err := writer.CreatePart(header)
		require.NoError(e.T, err)
		_, err = part.Write(file.Data)
		require.NoError(e.T, err)
	}
	require.NoError(e.T, writer.Close())

	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return e.serve(req, token)
}

func (e *Env) serve(req *http.Request, token string) *httptest.ResponseRecorder {
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.Router.ServeHTTP(rec, req)
	return rec
}

// Decode unmarshals a JSON response body into T.
func Decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()

	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

// SeedProfile stores a profile directly.
func (e *Env) SeedProfile(profile models.UserProfile) *models.UserProfile {
	e.T.Helper()

	require.NoError(e.T, e.DB.Create(&profile).Error)
	return &profile
}

// Profile loads the stored profile for userID.
func (e *Env) Profile(userID string) models.UserProfile {
	e.T.Helper()

	var profile models.UserProfile
	require.NoError(e.T, e.DB.First(&profile, "id = ?", userID).Error)
	return profile
}

// Confirmations lists the confirmation records for userID, oldest first.
func (e *Env) Confirmations(userID string) []models.ParentConfirmation {
	e.T.Helper()

	var records []models.ParentConfirmation
	require.NoError(e.T, e.DB.Where("user_id = ?", userID).Order("created_at ASC").Find(&records).Error)
	return records
}

// RecordingMailer captures sent messages.
type RecordingMailer struct {
	mu       sync.Mutex
	messages []mail.Message
	Err      error
}

func (m *RecordingMailer) Send(_ context.Context, msg mail.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.messages = append(m.messages, msg)
	return m.Err
}

func (m *RecordingMailer) Provider() string { return "test" }

// Sent returns a copy of every message passed to Send.
func (m *RecordingMailer) Sent() []mail.Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]mail.Message(nil), m.messages...)
}

// MemoryStore keeps uploaded objects in memory.
type MemoryStore struct {
	mu      sync.Mutex
	Objects map[string][]byte
	Err     error
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{Objects: map[string][]byte{}}
}

func (s *MemoryStore) PutObject(_ context.Context, key string, body []byte, _ string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}
	s.Objects[key] = body
	return nil
}

func (s *MemoryStore) PublicURL(key string) string {
	return "https://media.lifeloop.test/" + key
}

// StubRegistrar returns a fixed voice id.
type StubRegistrar struct {
	mu      sync.Mutex
	ID      string
	Err     error
	Samples []voice.Sample
}

func (r *StubRegistrar) Register(_ context.Context, sample voice.Sample) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Samples = append(r.Samples, sample)
	return r.ID, r.Err
}

// Backend is an httptest ingestion backend that records the paths it served.
type Backend struct {
	server *httptest.Server

	mu            sync.Mutex
	paths         []string
	Inserted      int
	Processed     int
	IngestStatus  int
	ProcessStatus int
}

// NewBackend starts a backend answering 200 with zero counts.
func NewBackend(t *testing.T) *Backend {
	t.Helper()

	b := &Backend{IngestStatus: http.StatusOK, ProcessStatus: http.StatusOK}
	b.server = httptest.NewServer(http.HandlerFunc(b.serve))
	t.Cleanup(b.server.Close)
	return b
}

func (b *Backend) URL() string { return b.server.URL }

// Paths returns the request paths seen so far.
func (b *Backend) Paths() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.paths...)
}

// Configure sets counts and statuses for subsequent calls.
func (b *Backend) Configure(inserted, processed, ingestStatus, processStatus int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.Inserted, b.Processed = inserted, processed
	b.IngestStatus, b.ProcessStatus = ingestStatus, processStatus
}

func (b *Backend) serve(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	b.paths = append(b.paths, r.URL.Path)
	inserted, processed := b.Inserted, b.Processed
	ingestStatus, processStatus := b.IngestStatus, b.ProcessStatus
	b.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	switch r.URL.Path {
	case "/ingest/instagram":
		w.WriteHeader(ingestStatus)
		if ingestStatus >= http.StatusBadRequest {
			_ = json.NewEncoder(w).Encode(map[string]string{"error": "instagram rate limited"})
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]int{"inserted": inserted})
	case "/process/instagram-media":
		w.WriteHeader(processStatus)
		if processStatus >= http.StatusBadRequest {
			_ = json.NewEncoder(w).Encode(map[string]string{"error": "caption model offline"})
			return
		}
		items := make([]map[string]string, processed)
		for i := range items {
			items[i] = map[string]string{"id": "media"}
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"processed": items})
	default:
		http.NotFound(w, r)
	}
}
