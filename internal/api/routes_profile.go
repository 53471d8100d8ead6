package api

import (
	"github.com/gin-gonic/gin"

	"github.com/lifeloop/lifeloop/internal/handlers"
	"github.com/lifeloop/lifeloop/internal/services"
)

func registerProfileRoutes(api *gin.RouterGroup, requireAuth gin.HandlerFunc, profiles *services.ProfileService) error {
	profileHandler, err := handlers.NewProfileHandler(profiles)
	if err != nil {
		return err
	}

	api.GET("/profile", requireAuth, profileHandler.Me)
	return nil
}
