package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

const errUnauthorized = "unauthorized"

// Auth validates the static bearer token configured under API.token
// (§6.1, §6.2 "All /api/* endpoints require Authorization: Bearer
// <token>"). There is no JWT or session state: one shared token, rotated
// by editing the config file.
func Auth(token string) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if !strings.HasPrefix(header, "Bearer ") || strings.TrimPrefix(header, "Bearer ") != token {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": errUnauthorized})
			return
		}
		c.Next()
	}
}
