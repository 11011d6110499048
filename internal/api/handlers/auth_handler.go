package handlers

import (
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/cpp-cyber/dirauth/internal/api/auth"
	"github.com/cpp-cyber/dirauth/internal/api/middleware"
	"github.com/cpp-cyber/dirauth/internal/ldap"
	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
)

// =================================================
// Login / Logout / Session Handlers
// =================================================

// NewAuthHandler creates a new authentication handler
func NewAuthHandler(authService auth.Service, resources []Resource) *AuthHandler {
	log.Printf("[INFO] NewAuthHandler: Auth handler initialized with %d resources", len(resources))

	return &AuthHandler{
		authService: authService,
		resources:   resources,
	}
}

// Resources returns the configured group-gated resources
func (h *AuthHandler) Resources() []Resource {
	return h.resources
}

// LoginHandler handles the login POST request
func (h *AuthHandler) LoginHandler(c *gin.Context) {
	var req LoginRequest
	if !validateAndBind(c, &req) {
		return
	}
	username := strings.TrimSpace(req.Username)

	result, err := h.authService.Authenticate(username, req.Password)
	if err != nil {
		if errors.Is(err, ldap.ErrInvalidInput) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Username and password are required"})
			return
		}
		log.Printf("[ERROR] LoginHandler: Authentication failed for user %s: %v", username, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Authentication failed"})
		return
	}

	if !result.Authenticated {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials"})
		return
	}

	redirect, ok := h.firstAccessibleResource(result.Groups)
	if !ok {
		log.Printf("[WARN] LoginHandler: User %s authenticated but has no valid group membership (groups: %v)", username, result.Groups)
		c.JSON(http.StatusForbidden, gin.H{"error": "No valid group membership"})
		return
	}

	// Create session
	session := sessions.Default(c)
	session.Clear()
	session.Set(middleware.SessionUserKey, username)
	session.Set(middleware.SessionGroupsKey, result.Groups)

	if err := session.Save(); err != nil {
		log.Printf("[ERROR] LoginHandler: Failed to save session for user %s: %v", username, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to save session"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":  "Login successful",
		"groups":   result.Groups,
		"redirect": redirect.Path(),
	})
}

// firstAccessibleResource picks the first configured resource the groups may access
func (h *AuthHandler) firstAccessibleResource(groups []string) (Resource, bool) {
	for _, resource := range h.resources {
		if h.authService.Authorize(groups, resource.RequiredGroup) {
			return resource, true
		}
	}
	return Resource{}, false
}

// LogoutHandler handles user logout
func (h *AuthHandler) LogoutHandler(c *gin.Context) {
	session := sessions.Default(c)
	session.Clear()

	if err := session.Save(); err != nil {
		log.Printf("[ERROR] LogoutHandler: Failed to clear session: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to save session"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Successfully logged out"})
}

// SessionHandler returns current session information for authenticated users
func (h *AuthHandler) SessionHandler(c *gin.Context) {
	groups := middleware.GetGroups(c)

	var accessible []string
	for _, resource := range h.resources {
		if h.authService.Authorize(groups, resource.RequiredGroup) {
			accessible = append(accessible, resource.Name)
		}
	}
	if accessible == nil {
		accessible = []string{}
	}

	c.JSON(http.StatusOK, gin.H{
		"authenticated": true,
		"username":      middleware.GetUser(c),
		"groups":        groups,
		"resources":     accessible,
	})
}

// =================================================
// Resource Handlers
// =================================================

// ResourceHandler serves a group-gated resource. Access is checked by
// middleware.GroupRequired before this runs.
func (h *AuthHandler) ResourceHandler(resource Resource) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"resource": resource.Name,
			"username": middleware.GetUser(c),
			"groups":   middleware.GetGroups(c),
		})
	}
}
