package api

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/lifeloop/lifeloop/internal/app"
	iauth "github.com/lifeloop/lifeloop/internal/auth"
	"github.com/lifeloop/lifeloop/internal/middleware"
	"github.com/lifeloop/lifeloop/internal/monitoring"
	"github.com/lifeloop/lifeloop/internal/services"
	"github.com/lifeloop/lifeloop/web"
)

// Dependencies are the collaborators the HTTP surface is built from.
type Dependencies struct {
	Config    *app.Config
	Verifier  iauth.TokenVerifier
	RateStore middleware.RateStore
	Health    *monitoring.HealthManager
	Renderer  *web.Renderer

	Profiles *services.ProfileService
	Consents *services.ConsentService
	Media    *services.MediaService
}

// NewRouter builds the Gin engine, wires middleware and registers every route.
func NewRouter(deps Dependencies) (*gin.Engine, error) {
	cfg := deps.Config
	if cfg == nil {
		return nil, errors.New("config must be provided")
	}
	if deps.Verifier == nil {
		return nil, errors.New("token verifier must be provided")
	}
	if deps.Profiles == nil || deps.Consents == nil || deps.Media == nil {
		return nil, errors.New("profile, consent and media services must be provided")
	}

	r := gin.New()

	// Global middleware
	r.Use(middleware.Recovery())
	r.Use(middleware.Logger())
	r.Use(middleware.Metrics())
	r.Use(middleware.SecurityHeaders())
	r.Use(middleware.CORS(cfg.Server.CORSOrigins...))
	r.Use(middleware.Actor())
	r.Use(middleware.RateLimit(deps.RateStore, middleware.RateLimitConfig{
		Requests: cfg.Server.RateLimit.Requests,
		Window:   cfg.Server.RateLimit.Window,
	}))
	r.NoRoute(middleware.NotFoundHandler)

	registerHealthRoutes(r, cfg, deps.Health)

	if cfg.Monitoring.Prometheus.Enabled {
		endpoint := cfg.Monitoring.Prometheus.Endpoint
		if endpoint == "" {
			endpoint = "/metrics"
		}
		r.GET(endpoint, gin.WrapH(promhttp.Handler()))
	}

	api := r.Group("/api")
	requireAuth := middleware.Auth(deps.Verifier, cfg.Auth.CookieName)

	if err := registerConsentRoutes(api, requireAuth, deps); err != nil {
		return nil, err
	}
	if err := registerProfileRoutes(api, requireAuth, deps.Profiles); err != nil {
		return nil, err
	}
	if err := registerMediaRoutes(api, requireAuth, deps); err != nil {
		return nil, err
	}

	return r, nil
}
