package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// HealthChecker is anything that can report its own connectivity
type HealthChecker interface {
	HealthCheck() error
}

// PUBLIC: HealthCheckHandler handles GET requests for health checks with detailed service status.
// database may be nil when the audit trail is disabled.
func HealthCheckHandler(authHandler *AuthHandler, database HealthChecker) gin.HandlerFunc {
	return func(c *gin.Context) {
		healthStatus := gin.H{
			"status": "healthy",
			"services": gin.H{
				"api": "healthy",
			},
		}

		statusCode := http.StatusOK

		// Check LDAP connection
		if authHandler != nil && authHandler.authService != nil {
			if err := authHandler.authService.HealthCheck(); err != nil {
				healthStatus["services"].(gin.H)["ldap"] = gin.H{
					"status": "unhealthy",
					"error":  err.Error(),
				}
				healthStatus["status"] = "degraded"
				statusCode = http.StatusServiceUnavailable
			} else {
				healthStatus["services"].(gin.H)["ldap"] = "healthy"
			}
		}

		// Check audit database connection
		if database != nil {
			if err := database.HealthCheck(); err != nil {
				healthStatus["services"].(gin.H)["database"] = gin.H{
					"status": "unhealthy",
					"error":  err.Error(),
				}
				healthStatus["status"] = "degraded"
				statusCode = http.StatusServiceUnavailable
			} else {
				healthStatus["services"].(gin.H)["database"] = "healthy"
			}
		}

		c.JSON(statusCode, healthStatus)
	}
}
