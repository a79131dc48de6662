package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// APIKey guards a route group with a static key carried in the
// X-API-Key header. With an empty expected key the guard rejects
// everything: admin routes stay closed rather than open when the key is
// left unconfigured.
func APIKey(expected string) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := c.GetHeader("X-API-Key")

		if expected == "" || key != expected {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"ok":    false,
				"error": "invalid API key",
			})
			return
		}

		c.Next()
	}
}
