package middleware

import (
	"crypto/subtle"
	"net/http"

	"github.com/gin-gonic/gin"
)

// ServiceKeyMiddleware guards the service API with a shared key supplied in
// the X-Service-Key header. With no key configured, access is denied
// outright rather than left open.
func ServiceKeyMiddleware(serviceKey string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if serviceKey == "" {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"success": false,
				"error":   "Service API key not configured",
			})
			return
		}

		supplied := c.GetHeader("X-Service-Key")
		if subtle.ConstantTimeCompare([]byte(supplied), []byte(serviceKey)) != 1 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"success": false,
				"error":   "Invalid service key",
			})
			return
		}

		c.Next()
	}
}
