package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/classmark/classmark-api/internal/models"
	appErrors "github.com/classmark/classmark-api/pkg/errors"
	"github.com/classmark/classmark-api/pkg/response"
)

// ContextSessionKey is the gin context key storing session claims.
const ContextSessionKey = "currentSession"

// TokenValidator parses and validates a session token.
type TokenValidator interface {
	ValidateToken(tokenString string) (*models.JWTClaims, error)
}

// JWT protects routes by requiring a valid session token.
func JWT(access TokenValidator) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			response.Error(c, appErrors.ErrUnauthorized)
			c.Abort()
			return
		}

		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			response.Error(c, appErrors.Clone(appErrors.ErrUnauthorized, "invalid authorization header"))
			c.Abort()
			return
		}

		claims, err := access.ValidateToken(parts[1])
		if err != nil {
			response.Error(c, err)
			c.Abort()
			return
		}

		c.Set(ContextSessionKey, claims)
		c.Next()
	}
}
