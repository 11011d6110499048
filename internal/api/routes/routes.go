package routes

import (
	"github.com/cpp-cyber/dirauth/internal/api/auth"
	"github.com/cpp-cyber/dirauth/internal/api/handlers"
	"github.com/cpp-cyber/dirauth/internal/api/middleware"
	"github.com/gin-gonic/gin"
)

// RegisterRoutes sets up all API routes with their respective middleware and handlers.
// database may be nil when the audit trail is disabled.
func RegisterRoutes(r *gin.Engine, authService auth.Service, authHandler *handlers.AuthHandler, database handlers.HealthChecker) {
	// Public routes (no authentication required)
	public := r.Group("/api/v1")
	registerPublicRoutes(public, authHandler, database)

	// Private routes (authentication required)
	private := r.Group("/api/v1")
	private.Use(middleware.AuthRequired)
	registerPrivateRoutes(private, authService, authHandler)
}
