package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/classmark/classmark-api/internal/models"
	appErrors "github.com/classmark/classmark-api/pkg/errors"
	"github.com/classmark/classmark-api/pkg/response"
)

// RequireRoles enforces the session role for a route.
func RequireRoles(roles ...models.SessionRole) gin.HandlerFunc {
	allowed := make(map[models.SessionRole]struct{}, len(roles))
	for _, role := range roles {
		allowed[role] = struct{}{}
	}

	return func(c *gin.Context) {
		claimsValue, exists := c.Get(ContextSessionKey)
		if !exists {
			response.Error(c, appErrors.ErrUnauthorized)
			c.Abort()
			return
		}
		claims, ok := claimsValue.(*models.JWTClaims)
		if !ok {
			response.Error(c, appErrors.ErrUnauthorized)
			c.Abort()
			return
		}

		if _, ok := allowed[claims.Role]; !ok {
			response.Error(c, appErrors.ErrForbidden)
			c.Abort()
			return
		}

		c.Next()
	}
}
