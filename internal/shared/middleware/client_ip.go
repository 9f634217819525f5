package middleware

import (
	"github.com/gin-gonic/gin"

	"themepark-backend/internal/shared/utils"
)

const ContextClientIP = "client_ip"

// ClientIPMiddleware extracts the client IP address once per request so the
// rate limiter and request logger agree on it.
func ClientIPMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(ContextClientIP, utils.ExtractClientIP(c))
		c.Next()
	}
}

func clientIP(c *gin.Context) string {
	if ip := c.GetString(ContextClientIP); ip != "" {
		return ip
	}
	return utils.ExtractClientIP(c)
}
