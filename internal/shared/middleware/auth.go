package middleware

import (
	"errors"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"themepark-backend/internal/shared"
	"themepark-backend/internal/shared/response"
	jwtpkg "themepark-backend/pkg/jwt"
)

const (
	ContextVisitorID = "visitorID"
	ContextRole      = "role"
)

// AuthMiddleware - verifies the bearer token and stores visitor id and role
// on the gin context.
func AuthMiddleware(manager *jwtpkg.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		// 1. Read Authorization header
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			response.Unauthorized(c, "missing authorization header")
			c.Abort()
			return
		}

		// 2. Extract token from "Bearer <token>"
		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			response.Unauthorized(c, "invalid authorization header format")
			c.Abort()
			return
		}

		// 3. Verify and parse JWT
		claims, err := manager.ValidateAccessToken(parts[1])
		if err != nil {
			response.Unauthorized(c, "invalid token")
			c.Abort()
			return
		}

		// 4. Visitor id must be a UUID
		visitorID, err := uuid.Parse(claims.VisitorID)
		if err != nil {
			response.Unauthorized(c, "invalid visitor id in token")
			c.Abort()
			return
		}

		c.Set(ContextVisitorID, visitorID)
		c.Set(ContextRole, claims.Role)

		c.Next()
	}
}

// Actor is the authenticated caller of a request.
type Actor = shared.Actor

// GetActor reads the caller set by AuthMiddleware.
func GetActor(c *gin.Context) (Actor, error) {
	raw, exists := c.Get(ContextVisitorID)
	if !exists {
		return Actor{}, errors.New("visitor not authenticated")
	}
	visitorID, ok := raw.(uuid.UUID)
	if !ok {
		return Actor{}, errors.New("invalid visitor id in context")
	}

	return Actor{
		VisitorID: visitorID,
		IsAdmin:   c.GetString(ContextRole) == jwtpkg.RoleAdmin,
	}, nil
}
