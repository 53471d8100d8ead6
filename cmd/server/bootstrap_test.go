package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/lifeloop/lifeloop/internal/app"
	"github.com/lifeloop/lifeloop/internal/monitoring"
	"github.com/lifeloop/lifeloop/pkg/mail"
	"github.com/lifeloop/lifeloop/pkg/voice"
)

func testConfig(t *testing.T) *app.Config {
	t.Helper()

	cfg := &app.Config{
		Server: app.ServerConfig{
			RateLimit: app.RateLimitConfig{Requests: 100, Window: time.Minute, ConfirmRequests: 10},
		},
		Database: app.DatabaseConfig{
			Driver: "sqlite",
			Path:   filepath.Join(t.TempDir(), "lifeloop.sqlite"),
		},
		Monitoring: app.MonitoringConfig{
			Prometheus: app.PrometheusConfig{Enabled: true, Endpoint: "/metrics"},
			Health:     app.HealthConfig{Enabled: true},
		},
		Auth: app.AuthConfig{CookieName: "sb-access-token"},
		Consent: app.ConsentConfig{
			Cleanup: app.CleanupConfig{Enabled: true, Schedule: "@hourly", Retention: 24 * time.Hour},
		},
	}
	_, err := app.ApplyRuntimeDefaults(cfg)
	require.NoError(t, err)
	return cfg
}

func TestBootstrapRuntimeServesHealth(t *testing.T) {
	srv := miniredis.RunT(t)

	cfg := testConfig(t)
	cfg.Cache.Redis.Enabled = true
	cfg.Cache.Redis.Address = srv.Addr()

	stack, err := bootstrapRuntime(context.Background(), cfg, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { stack.Shutdown(context.Background(), zap.NewNop()) })

	require.NotNil(t, stack.Redis)
	require.Nil(t, stack.Memory)
	require.NotNil(t, stack.Cleaner)

	rec := httptest.NewRecorder()
	stack.Router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var report monitoring.HealthReport
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &report))
	require.True(t, report.Success)
	require.Equal(t, monitoring.StatusDegraded, report.Status)

	statuses := map[string]monitoring.ProbeStatus{}
	for _, check := range report.Checks {
		statuses[check.Component] = check.Status
	}
	require.Equal(t, monitoring.StatusUp, statuses["database"])
	require.Equal(t, monitoring.StatusUp, statuses["redis"])
	require.Equal(t, monitoring.StatusDegraded, statuses["collaborators"])
}

func TestBootstrapRuntimeFallsBackToMemoryRateStore(t *testing.T) {
	cfg := testConfig(t)
	cfg.Cache.Redis.Enabled = true
	cfg.Cache.Redis.Address = "127.0.0.1:1"
	cfg.Cache.Redis.Timeout = 200 * time.Millisecond
	cfg.Consent.Cleanup.Enabled = false

	stack, err := bootstrapRuntime(context.Background(), cfg, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { stack.Shutdown(context.Background(), zap.NewNop()) })

	require.Nil(t, stack.Redis)
	require.NotNil(t, stack.Memory)
	require.Nil(t, stack.Cleaner)
}

func TestBootstrapRuntimeRejectsUnknownDriver(t *testing.T) {
	cfg := testConfig(t)
	cfg.Database.Driver = "oracle"

	_, err := bootstrapRuntime(context.Background(), cfg, zap.NewNop())
	require.ErrorContains(t, err, "unsupported database driver")
}

func TestBuildMailerSelection(t *testing.T) {
	cfg := testConfig(t)

	mailer, err := buildMailer(cfg)
	require.NoError(t, err)
	require.Nil(t, mailer)

	cfg.Email.SMTP = app.SMTPConfig{Enabled: true, Host: "smtp.example.com", Port: 587, From: "noreply@example.com"}
	mailer, err = buildMailer(cfg)
	require.NoError(t, err)
	require.Equal(t, "smtp", mail.Provider(mailer))

	cfg.Email.Mailgun = app.MailgunConfig{APIKey: "key-test", Domain: "mg.example.com", From: "LifeLoop <noreply@mg.example.com>"}
	mailer, err = buildMailer(cfg)
	require.NoError(t, err)
	require.Equal(t, "mailgun", mail.Provider(mailer))
}

func TestBuildVoiceRegistrarDefaultsToNoop(t *testing.T) {
	cfg := testConfig(t)

	registrar, err := buildVoiceRegistrar(cfg)
	require.NoError(t, err)
	require.IsType(t, voice.NoopRegistrar{}, registrar)

	cfg.Voice.ElevenLabs.APIKey = "xi-test"
	registrar, err = buildVoiceRegistrar(cfg)
	require.NoError(t, err)
	require.IsType(t, &voice.ElevenLabsRegistrar{}, registrar)
}

func TestBuildObjectStoreRequiresSettings(t *testing.T) {
	store, err := buildObjectStore(testConfig(t))
	require.NoError(t, err)
	require.Nil(t, store)
}

func TestLoadApplicationConfig(t *testing.T) {
	_, err := loadApplicationConfig(filepath.Join(t.TempDir(), "missing"))
	require.ErrorContains(t, err, "does not exist")

	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server:\n  port: 9191\n"), 0o600))

	cfg, err := loadApplicationConfig(path)
	require.NoError(t, err)
	require.Equal(t, 9191, cfg.Server.Port)
}
