package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/classmark/classmark-api/internal/models"
	"github.com/classmark/classmark-api/internal/service"
	appErrors "github.com/classmark/classmark-api/pkg/errors"
	"github.com/classmark/classmark-api/pkg/response"
)

// GradeHandler exposes teacher-side grade record endpoints.
type GradeHandler struct {
	grades *service.GradeService
}

// NewGradeHandler constructs handler.
func NewGradeHandler(grades *service.GradeService) *GradeHandler {
	return &GradeHandler{grades: grades}
}

// List godoc
// @Summary List grade records
// @Tags Grades
// @Produce json
// @Param exam query string false "Filter by exam label"
// @Param student query string false "Filter by student name"
// @Success 200 {object} response.Envelope
// @Router /grades [get]
func (h *GradeHandler) List(c *gin.Context) {
	filter := models.GradeRecordFilter{
		Exam:        models.Exam(c.Query("exam")),
		StudentName: c.Query("student"),
	}
	records := h.grades.List(c.Request.Context(), filter)
	response.JSON(c, http.StatusOK, records)
}

// Create godoc
// @Summary Create a grade record
// @Tags Grades
// @Accept json
// @Produce json
// @Param payload body service.GradeRecordRequest true "Grade payload"
// @Success 201 {object} response.Envelope
// @Router /grades [post]
func (h *GradeHandler) Create(c *gin.Context) {
	var req service.GradeRecordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	created, err := h.grades.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, created)
}

// Update godoc
// @Summary Replace a grade record's fields
// @Tags Grades
// @Accept json
// @Produce json
// @Param id path string true "Record ID"
// @Param payload body service.GradeRecordRequest true "Grade payload"
// @Success 200 {object} response.Envelope
// @Router /grades/{id} [put]
func (h *GradeHandler) Update(c *gin.Context) {
	var req service.GradeRecordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	record, err := h.grades.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, record)
}

// Delete godoc
// @Summary Delete a grade record
// @Tags Grades
// @Produce json
// @Param id path string true "Record ID"
// @Success 204
// @Router /grades/{id} [delete]
func (h *GradeHandler) Delete(c *gin.Context) {
	if err := h.grades.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
