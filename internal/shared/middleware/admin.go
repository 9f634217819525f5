package middleware

import (
	"github.com/gin-gonic/gin"

	"themepark-backend/internal/shared/response"
	jwtpkg "themepark-backend/pkg/jwt"
)

// AdminMiddleware checks if the caller has the admin role.
// Must run after AuthMiddleware.
func AdminMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		roleInterface, exists := c.Get(ContextRole)
		if !exists {
			response.Forbidden(c, "Access denied: admin role required")
			c.Abort()
			return
		}

		role, ok := roleInterface.(string)
		if !ok || role != jwtpkg.RoleAdmin {
			response.Forbidden(c, "Access denied: admin role required")
			c.Abort()
			return
		}

		c.Next()
	}
}
