package middleware

import (
	"log"
	"net/http"

	"github.com/cpp-cyber/dirauth/internal/api/auth"
	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
)

// Session keys written at login
const (
	SessionUserKey   = "id"
	SessionGroupsKey = "groups"
)

// AuthRequired provides authentication middleware for ensuring that a user is logged in.
func AuthRequired(c *gin.Context) {
	session := sessions.Default(c)
	id := session.Get(SessionUserKey)
	if id == nil {
		c.String(http.StatusUnauthorized, "Unauthorized")
		c.Abort()
		return
	}
	c.Next()
}

// GroupRequired re-evaluates the session's groups against group on every
// request. It must run after AuthRequired.
func GroupRequired(authService auth.Service, group string) gin.HandlerFunc {
	return func(c *gin.Context) {
		username := GetUser(c)
		if username == "" {
			c.String(http.StatusUnauthorized, "Unauthorized")
			c.Abort()
			return
		}

		if !authService.Authorize(GetGroups(c), group) {
			log.Printf("[INFO] GroupRequired: User %s denied access to %s (requires %s)", username, c.Request.URL.Path, group)
			c.String(http.StatusForbidden, "Access denied")
			c.Abort()
			return
		}

		c.Next()
	}
}

func GetUser(c *gin.Context) string {
	userID := sessions.Default(c).Get(SessionUserKey)
	if username, ok := userID.(string); ok {
		return username
	}
	return ""
}

// GetGroups returns the groups stored at login, never nil
func GetGroups(c *gin.Context) []string {
	groups, ok := sessions.Default(c).Get(SessionGroupsKey).([]string)
	if !ok || groups == nil {
		return []string{}
	}
	return groups
}

func CORSMiddleware(fqdn string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", fqdn)
		c.Writer.Header().Set("Access-Control-Max-Age", "86400")
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, GET, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, Origin")
		c.Writer.Header().Set("Cache-Control", "no-cache")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}
