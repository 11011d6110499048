package routes

import (
	"github.com/cpp-cyber/dirauth/internal/api/auth"
	"github.com/cpp-cyber/dirauth/internal/api/handlers"
	"github.com/cpp-cyber/dirauth/internal/api/middleware"
	"github.com/gin-gonic/gin"
)

// registerPrivateRoutes defines all routes accessible to authenticated users
func registerPrivateRoutes(g *gin.RouterGroup, authService auth.Service, authHandler *handlers.AuthHandler) {
	// GET Requests
	g.GET("/session", authHandler.SessionHandler)

	// POST Requests
	g.POST("/logout", authHandler.LogoutHandler)

	// Group-gated resources, authorized on every request
	for _, resource := range authHandler.Resources() {
		g.GET("/resources/"+resource.Name,
			middleware.GroupRequired(authService, resource.RequiredGroup),
			authHandler.ResourceHandler(resource),
		)
	}
}
