package handler

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/classmark/classmark-api/internal/service"
	"github.com/classmark/classmark-api/pkg/response"
)

// ExportHandler serves teacher-only file downloads.
type ExportHandler struct {
	exports *service.ExportService
}

// NewExportHandler constructs handler.
func NewExportHandler(exports *service.ExportService) *ExportHandler {
	return &ExportHandler{exports: exports}
}

// CredentialsCSV godoc
// @Summary Download every issued credential as CSV
// @Tags Exports
// @Produce text/csv
// @Success 200 {file} file
// @Router /credentials/export.csv [get]
func (h *ExportHandler) CredentialsCSV(c *gin.Context) {
	payload, err := h.exports.CredentialsCSV(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="credentials.csv"`)
	c.Header("Cache-Control", "no-store")
	c.Data(http.StatusOK, "text/csv", payload)
}

// ReportCardPDF godoc
// @Summary Download a single student's report card as PDF
// @Tags Exports
// @Produce application/pdf
// @Param student path string true "Student name"
// @Success 200 {file} file
// @Router /reports/{student}/card.pdf [get]
func (h *ExportHandler) ReportCardPDF(c *gin.Context) {
	student := c.Param("student")
	payload, err := h.exports.ReportCardPDF(student)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", student+"-report-card.pdf"))
	c.Header("Cache-Control", "no-store")
	c.Data(http.StatusOK, "application/pdf", payload)
}
