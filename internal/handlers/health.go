package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/lifeloop/lifeloop/internal/monitoring"
	"github.com/lifeloop/lifeloop/pkg/response"
)

// Health evaluates the registered probes. Degraded dependencies still answer
// 200; a down dependency answers 503.
func Health(manager *monitoring.HealthManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		if manager == nil {
			response.OK(c, gin.H{"status": monitoring.StatusUp})
			return
		}

		report := manager.Evaluate(requestContext(c))
		status := http.StatusOK
		if !report.Success {
			status = http.StatusServiceUnavailable
		}
		response.JSON(c, status, report)
	}
}
