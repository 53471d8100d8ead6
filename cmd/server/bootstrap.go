package main

import (
	"context"
	"fmt"
	"os"

	"github.com/gin-gonic/gin"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/lifeloop/lifeloop/internal/api"
	"github.com/lifeloop/lifeloop/internal/app"
	"github.com/lifeloop/lifeloop/internal/app/maintenance"
	iauth "github.com/lifeloop/lifeloop/internal/auth"
	"github.com/lifeloop/lifeloop/internal/cache"
	"github.com/lifeloop/lifeloop/internal/database"
	"github.com/lifeloop/lifeloop/internal/ingestion"
	"github.com/lifeloop/lifeloop/internal/middleware"
	"github.com/lifeloop/lifeloop/internal/monitoring"
	"github.com/lifeloop/lifeloop/internal/monitoring/checks"
	"github.com/lifeloop/lifeloop/internal/services"
	"github.com/lifeloop/lifeloop/pkg/logger"
	"github.com/lifeloop/lifeloop/pkg/mail"
	"github.com/lifeloop/lifeloop/pkg/storage"
	"github.com/lifeloop/lifeloop/pkg/voice"
	"github.com/lifeloop/lifeloop/web"
)

// runtimeStack bundles long-lived services used by the HTTP server.
type runtimeStack struct {
	DB        *gorm.DB
	Redis     cache.Store
	Memory    middleware.MemoryRateStore
	Cleaner   *maintenance.Cleaner
	RateStore middleware.RateStore
	Router    *gin.Engine
}

// bootstrapRuntime initialises the database, collaborators, services and the HTTP router.
func bootstrapRuntime(ctx context.Context, cfg *app.Config, log *zap.Logger) (*runtimeStack, error) {
	stack := &runtimeStack{}
	var err error
	success := false

	defer func() {
		if !success {
			stack.Shutdown(context.Background(), log)
		}
	}()

	// enable gin debug mod
	if debug, _ := os.LookupEnv("GIN_DEBUG"); debug != "true" {
		gin.SetMode(gin.ReleaseMode)
	}

	stack.DB, err = initialiseDatabase(cfg)
	if err != nil {
		return nil, err
	}

	if cfg.Cache.Redis.Enabled {
		if stack.Redis, err = cache.NewRedisStore(cfg.Cache.RedisClientConfig()); err != nil {
			log.Warn("redis unavailable; falling back to in-memory rate limiting", zap.Error(err))
			stack.Redis = nil
		} else {
			log.Info("redis connected", zap.String("addr", cfg.Cache.Redis.Address))
		}
	}

	if stack.Redis != nil {
		stack.RateStore = middleware.NewRedisRateStore(stack.Redis)
	} else {
		stack.Memory = middleware.NewMemoryRateStore()
		stack.RateStore = stack.Memory
	}

	verifier, err := buildVerifier(ctx, cfg)
	if err != nil {
		return nil, err
	}

	mailer, err := buildMailer(cfg)
	if err != nil {
		return nil, err
	}

	store, err := buildObjectStore(cfg)
	if err != nil {
		return nil, err
	}

	registrar, err := buildVoiceRegistrar(cfg)
	if err != nil {
		return nil, err
	}

	renderer, err := web.NewRenderer()
	if err != nil {
		return nil, fmt.Errorf("load templates: %w", err)
	}

	auditSvc, err := services.NewAuditService(stack.DB)
	if err != nil {
		return nil, fmt.Errorf("initialise audit service: %w", err)
	}

	profileSvc, err := services.NewProfileService(stack.DB)
	if err != nil {
		return nil, fmt.Errorf("initialise profile service: %w", err)
	}

	consentOpts := []services.ConsentOption{
		services.WithConsentBaseURL(cfg.App.BaseURL),
		services.WithConsentExpiry(cfg.Consent.Expiry),
		services.WithVoiceRegistrar(registrar),
		services.WithConsentAudit(auditSvc),
		services.WithConsentRenderer(renderer),
	}
	if store != nil {
		consentOpts = append(consentOpts, services.WithObjectStore(store))
	}
	consentSvc, err := services.NewConsentService(stack.DB, profileSvc, mailer, consentOpts...)
	if err != nil {
		return nil, fmt.Errorf("initialise consent service: %w", err)
	}

	backend := ingestion.NewClient(cfg.Backend.BaseURL, ingestion.WithTimeout(cfg.Backend.Timeout))
	mediaSvc, err := services.NewMediaService(stack.DB, profileSvc, backend,
		services.WithMockGallery(cfg.Dashboard.UseMock),
		services.WithMediaBaseURL(cfg.Dashboard.MediaBaseURL),
		services.WithGalleryLimit(cfg.Dashboard.GalleryLimit),
		services.WithDigestMailer(mailer),
		services.WithMediaRenderer(renderer),
		services.WithMediaAudit(auditSvc),
	)
	if err != nil {
		return nil, fmt.Errorf("initialise media service: %w", err)
	}

	health := monitoring.NewHealthManager(
		checks.Database(stack.DB),
		checks.Collaborators(map[string]bool{
			"email":        mailer != nil,
			"app_base_url": cfg.App.BaseURL != "",
			"backend":      backend.Configured(),
			"storage":      store != nil,
		}),
	)
	if stack.Redis != nil {
		health.Register(checks.Redis(stack.Redis))
	}

	if cfg.Consent.Cleanup.Enabled {
		stack.Cleaner, err = maintenance.NewCleaner(stack.DB, auditSvc,
			maintenance.WithConfirmationSchedule(cfg.Consent.Cleanup.Schedule),
			maintenance.WithConfirmationRetention(cfg.Consent.Cleanup.Retention),
			maintenance.WithAuditRetention(cfg.Consent.Cleanup.AuditRetention),
		)
		if err != nil {
			return nil, fmt.Errorf("initialise maintenance jobs: %w", err)
		}
		if err := stack.Cleaner.Start(); err != nil {
			return nil, fmt.Errorf("start maintenance jobs: %w", err)
		}
	}

	stack.Router, err = api.NewRouter(api.Dependencies{
		Config:    cfg,
		Verifier:  verifier,
		RateStore: stack.RateStore,
		Health:    health,
		Renderer:  renderer,
		Profiles:  profileSvc,
		Consents:  consentSvc,
		Media:     mediaSvc,
	})
	if err != nil {
		return nil, fmt.Errorf("build api router: %w", err)
	}

	success = true
	return stack, nil
}

// Shutdown gracefully stops background jobs and releases resources.
func (s *runtimeStack) Shutdown(ctx context.Context, log *zap.Logger) {
	if s == nil {
		return
	}

	if s.Cleaner != nil {
		stopCtx := s.Cleaner.Stop()
		if stopCtx != nil {
			ctx = stopCtx
		}
		if err := s.Cleaner.RunOnce(ctx); err != nil {
			log.Warn("maintenance shutdown cleanup failed", zap.Error(err))
		}
	}

	if s.Memory != nil {
		s.Memory.Close()
	}
	if s.Redis != nil {
		s.Redis.Close()
	}

	if s.DB != nil {
		if err := database.Close(s.DB); err != nil {
			log.Warn("failed to close database", zap.Error(err))
		}
	}
}

func initialiseDatabase(cfg *app.Config) (*gorm.DB, error) {
	dbCfg := cfg.Database.ConnectionConfig()
	db, err := database.Open(dbCfg)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := database.Migrate(db); err != nil {
		return nil, multierr.Append(fmt.Errorf("migrate database: %w", err), database.Close(db))
	}

	logger.WithModule("database").Info("database connected", zap.String("driver", db.Dialector.Name()))
	return db, nil
}

func buildVerifier(ctx context.Context, cfg *app.Config) (iauth.TokenVerifier, error) {
	if cfg.Auth.UseOIDC() {
		verifier, err := iauth.NewOIDCVerifier(ctx, cfg.Auth.OIDCVerifierConfig(), nil)
		if err != nil {
			return nil, fmt.Errorf("initialise oidc verifier: %w", err)
		}
		return verifier, nil
	}

	verifier, err := iauth.NewJWTVerifier(cfg.Auth.JWTVerifierConfig())
	if err != nil {
		return nil, fmt.Errorf("initialise jwt verifier: %w", err)
	}
	return verifier, nil
}

// buildMailer prefers Mailgun, then SMTP. A nil mailer leaves consent requests unconfigured.
func buildMailer(cfg *app.Config) (mail.Mailer, error) {
	if settings := cfg.Email.MailgunSettings(); settings.Configured() {
		mailer, err := mail.NewMailgunMailer(settings)
		if err != nil {
			return nil, fmt.Errorf("initialise mailgun: %w", err)
		}
		return mailer, nil
	}

	if settings := cfg.Email.SMTPSettings(); settings.Enabled {
		mailer, err := mail.NewSMTPMailer(settings)
		if err != nil {
			return nil, fmt.Errorf("initialise smtp: %w", err)
		}
		return mailer, nil
	}

	return nil, nil
}

func buildObjectStore(cfg *app.Config) (storage.ObjectStore, error) {
	settings := cfg.Storage.R2Settings()
	if !settings.Configured() {
		return nil, nil
	}
	store, err := storage.NewR2Store(settings)
	if err != nil {
		return nil, fmt.Errorf("initialise object storage: %w", err)
	}
	return store, nil
}

func buildVoiceRegistrar(cfg *app.Config) (voice.Registrar, error) {
	settings := cfg.Voice.ElevenLabsSettings()
	if settings.APIKey == "" {
		return voice.NoopRegistrar{}, nil
	}
	registrar, err := voice.NewElevenLabsRegistrar(settings, nil)
	if err != nil {
		return nil, fmt.Errorf("initialise voice registrar: %w", err)
	}
	return registrar, nil
}
