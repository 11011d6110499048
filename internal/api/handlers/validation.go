package handlers

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
)

// validateAndBind binds the JSON body into req and writes a 400 on failure
func validateAndBind(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		log.Printf("[WARN] validateAndBind: Invalid request body from %s: %v", c.ClientIP(), err)
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request format",
			"details": err.Error(),
		})
		return false
	}
	return true
}
