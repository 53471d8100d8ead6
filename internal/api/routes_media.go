package api

import (
	"github.com/gin-gonic/gin"

	"github.com/lifeloop/lifeloop/internal/handlers"
	"github.com/lifeloop/lifeloop/internal/middleware"
)

func registerMediaRoutes(api *gin.RouterGroup, requireAuth gin.HandlerFunc, deps Dependencies) error {
	mediaHandler, err := handlers.NewMediaHandler(deps.Media)
	if err != nil {
		return err
	}

	// Refresh failures, including missing credentials, share the {ok, error} body.
	refreshAuth := middleware.Auth(deps.Verifier, deps.Config.Auth.CookieName,
		middleware.WithUnauthorizedHandler(mediaHandler.RefreshUnauthorized))

	group := api.Group("/media")
	{
		group.GET("", requireAuth, mediaHandler.Gallery)
		group.POST("/refresh", refreshAuth, mediaHandler.Refresh)
		group.POST("/digest", requireAuth, mediaHandler.Digest)
	}
	return nil
}
