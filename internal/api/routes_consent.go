package api

import (
	"github.com/gin-gonic/gin"

	"github.com/lifeloop/lifeloop/internal/handlers"
	"github.com/lifeloop/lifeloop/internal/middleware"
)

func registerConsentRoutes(api *gin.RouterGroup, requireAuth gin.HandlerFunc, deps Dependencies) error {
	cfg := deps.Config
	consentHandler, err := handlers.NewConsentHandler(deps.Consents, deps.Renderer, cfg.Server.MaxUploadBytes)
	if err != nil {
		return err
	}

	// The confirmation link is public, so it gets its own tighter budget.
	confirmLimit := middleware.RateLimit(deps.RateStore, middleware.RateLimitConfig{
		Requests: cfg.Server.RateLimit.ConfirmRequests,
		Window:   cfg.Server.RateLimit.Window,
		Scope:    "confirm",
	})

	parent := api.Group("/parent-request")
	{
		parent.POST("", requireAuth, consentHandler.Request)
		parent.GET("/confirm", confirmLimit, consentHandler.Confirm)
	}
	return nil
}
