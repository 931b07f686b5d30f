package auth

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// sourceCtxKey is the Gin context key used to store the authenticated source.
const sourceCtxKey = "source"

// APIKeyMiddleware maps X-API-Key to the event source that is allowed to dispatch events.
func APIKeyMiddleware(keys map[string]string) gin.HandlerFunc {
	return func(c *gin.Context) {
		apiKey := strings.TrimSpace(c.GetHeader("X-API-Key"))
		source, ok := keys[apiKey]
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}
		c.Set(sourceCtxKey, source)
		c.Next()
	}
}

// Source returns the authenticated source from the request context.
func Source(c *gin.Context) string {
	v, _ := c.Get(sourceCtxKey)
	s, _ := v.(string)
	return s
}
