package service

import (
	"context"
	"fmt"
	"strconv"

	"go.uber.org/zap"

	"github.com/classmark/classmark-api/internal/grading"
	"github.com/classmark/classmark-api/internal/models"
	appErrors "github.com/classmark/classmark-api/pkg/errors"
	"github.com/classmark/classmark-api/pkg/export"
)

// ExportService renders teacher-facing exports: the credential roster as
// CSV and per-student report cards as PDF.
type ExportService struct {
	credentials *CredentialService
	mirror      gradeMirror
	logger      *zap.Logger
}

// NewExportService constructs an export service.
func NewExportService(credentials *CredentialService, mirror gradeMirror, logger *zap.Logger) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExportService{credentials: credentials, mirror: mirror, logger: logger}
}

// CredentialsCSV serializes the full credential roster as two-column
// (name, pin) comma-separated text.
func (s *ExportService) CredentialsCSV(ctx context.Context) ([]byte, error) {
	credentials, err := s.credentials.List(ctx)
	if err != nil {
		return nil, err
	}

	table := export.Table{Headers: []string{"name", "pin"}}
	for _, credential := range credentials {
		table.Rows = append(table.Rows, []string{credential.Name, credential.Pin})
	}

	data, err := export.RenderCSV(table)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render roster csv")
	}
	return data, nil
}

// ReportCardPDF renders one student's scores, composites, and ranks across
// every exam they sat.
func (s *ExportService) ReportCardPDF(studentName string) ([]byte, error) {
	snapshot, _ := s.mirror.Snapshot()

	table := export.Table{
		Title:   fmt.Sprintf("Report card - %s", studentName),
		Headers: []string{"Exam", "Chinese", "Math", "English", "Science", "Social", "Essay", "Average", "Rank"},
	}

	for _, exam := range models.Exams {
		for _, record := range snapshot {
			if record.StudentName != studentName || record.Exam != exam {
				continue
			}
			rank := "-"
			if r, ok := grading.ClassRank(snapshot, exam, studentName); ok {
				rank = strconv.Itoa(r)
			}
			table.Rows = append(table.Rows, []string{
				string(exam),
				strconv.Itoa(record.Chinese),
				strconv.Itoa(record.Math),
				strconv.Itoa(record.English),
				strconv.Itoa(record.Science),
				strconv.Itoa(record.Social),
				strconv.Itoa(record.Essay),
				fmt.Sprintf("%.2f", grading.WeightedAverage(record.Scores())),
				rank,
			})
			break
		}
	}

	if len(table.Rows) == 0 {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "no grade records for student")
	}

	data, err := export.RenderPDF(table)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render report card pdf")
	}
	return data, nil
}
