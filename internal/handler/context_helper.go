package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/classmark/classmark-api/internal/middleware"
	"github.com/classmark/classmark-api/internal/models"
)

func claimsFromContext(c *gin.Context) *models.JWTClaims {
	value, exists := c.Get(middleware.ContextSessionKey)
	if !exists {
		return nil
	}
	claims, ok := value.(*models.JWTClaims)
	if !ok {
		return nil
	}
	return claims
}
