package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/classmark/classmark-api/internal/models"
	"github.com/classmark/classmark-api/internal/service"
	appErrors "github.com/classmark/classmark-api/pkg/errors"
	"github.com/classmark/classmark-api/pkg/response"
)

// AuthHandler exposes session endpoints for both roles.
type AuthHandler struct {
	access *service.AccessService
}

// NewAuthHandler constructs handler.
func NewAuthHandler(access *service.AccessService) *AuthHandler {
	return &AuthHandler{access: access}
}

// StudentLogin godoc
// @Summary Authenticate a student with name and pin
// @Tags Auth
// @Accept json
// @Produce json
// @Param payload body models.StudentLoginRequest true "Login payload"
// @Success 200 {object} response.Envelope
// @Router /auth/student/login [post]
func (h *AuthHandler) StudentLogin(c *gin.Context) {
	var req models.StudentLoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	result, err := h.access.StudentLogin(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result)
}

// TeacherLogin godoc
// @Summary Authenticate the teacher with the management pin
// @Tags Auth
// @Accept json
// @Produce json
// @Param payload body models.TeacherLoginRequest true "Login payload"
// @Success 200 {object} response.Envelope
// @Router /auth/teacher/login [post]
func (h *AuthHandler) TeacherLogin(c *gin.Context) {
	var req models.TeacherLoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	result, err := h.access.TeacherLogin(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result)
}

// Session godoc
// @Summary Describe the current session classification
// @Tags Auth
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /auth/session [get]
func (h *AuthHandler) Session(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{
		"role":         claims.Role,
		"student_name": claims.StudentName,
	})
}
