// Package middleware contains Gin middleware functions.
// Middleware in Gin is a handler that runs before (or after) your route handler.
// It calls c.Next() to proceed or c.Abort() to stop the chain.
package middleware

import (
	"crypto/subtle"
	"net/http"

	"github.com/gin-gonic/gin"
)

// AdminAuth returns middleware that gates mutating endpoints behind a
// single shared secret, provided via the X-Admin-Secret header.
//
// When no secret is configured the gate fails closed: every request is
// rejected rather than silently letting anyone trigger runs.
func AdminAuth(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if secret == "" {
			c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{
				"error": "admin secret not configured",
			})
			return
		}

		provided := c.GetHeader("X-Admin-Secret")
		if provided == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "missing admin secret",
			})
			return
		}

		// Constant-time comparison to avoid leaking the secret byte by byte
		// through response timing.
		if subtle.ConstantTimeCompare([]byte(provided), []byte(secret)) != 1 {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"error": "invalid admin secret",
			})
			return
		}

		c.Next()
	}
}
