package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/classmark/classmark-api/internal/models"
	"github.com/classmark/classmark-api/internal/service"
	appErrors "github.com/classmark/classmark-api/pkg/errors"
	"github.com/classmark/classmark-api/pkg/response"
)

// ResultHandler exposes derived exam views. Student sessions are scoped to
// their own name; teacher sessions see the whole partition.
type ResultHandler struct {
	results *service.ResultService
}

// NewResultHandler constructs handler.
func NewResultHandler(results *service.ResultService) *ResultHandler {
	return &ResultHandler{results: results}
}

// MyResult godoc
// @Summary A student's own result for one exam
// @Tags Results
// @Produce json
// @Param exam query string true "Exam label"
// @Param narrative query bool false "Include generated commentary"
// @Success 200 {object} response.Envelope
// @Router /results/me [get]
func (h *ResultHandler) MyResult(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil || claims.StudentName == "" {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	exam := models.Exam(c.Query("exam"))
	withNarrative := c.Query("narrative") == "true"

	result, err := h.results.StudentResult(c.Request.Context(), claims.StudentName, exam, withNarrative)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result)
}

// MyOverview godoc
// @Summary A student's results across every exam
// @Tags Results
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /results/me/overview [get]
func (h *ResultHandler) MyOverview(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil || claims.StudentName == "" {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	response.JSON(c, http.StatusOK, h.results.StudentOverview(claims.StudentName))
}

// ExamSummary godoc
// @Summary Class-wide aggregate for one exam
// @Tags Results
// @Produce json
// @Param exam path string true "Exam label"
// @Success 200 {object} response.Envelope
// @Router /exams/{exam}/summary [get]
func (h *ResultHandler) ExamSummary(c *gin.Context) {
	aggregate, cacheHit, err := h.results.ExamSummary(c.Request.Context(), models.Exam(c.Param("exam")))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, aggregate, map[string]interface{}{"cache_hit": cacheHit})
}

// ExamRankings godoc
// @Summary Descending ranking for one exam
// @Tags Results
// @Produce json
// @Param exam path string true "Exam label"
// @Success 200 {object} response.Envelope
// @Router /exams/{exam}/rankings [get]
func (h *ResultHandler) ExamRankings(c *gin.Context) {
	entries, cacheHit, err := h.results.Rankings(c.Request.Context(), models.Exam(c.Param("exam")))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, entries, map[string]interface{}{"cache_hit": cacheHit})
}
