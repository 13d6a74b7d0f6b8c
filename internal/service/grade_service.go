package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/classmark/classmark-api/internal/models"
	syncpkg "github.com/classmark/classmark-api/internal/sync"
	appErrors "github.com/classmark/classmark-api/pkg/errors"
	"github.com/classmark/classmark-api/pkg/jobs"
)

type gradeRecordStore interface {
	ListByPartition(ctx context.Context, partitionID string) ([]models.GradeRecord, error)
	FindByID(ctx context.Context, partitionID, id string) (*models.GradeRecord, error)
	FindByStudentExam(ctx context.Context, partitionID, studentName string, exam models.Exam) (*models.GradeRecord, error)
	Create(ctx context.Context, record *models.GradeRecord) error
	Update(ctx context.Context, record *models.GradeRecord) error
	Delete(ctx context.Context, partitionID, id string) error
}

type credentialIssuer interface {
	IssueIfAbsent(ctx context.Context, studentName string) (string, bool, error)
}

type gradeMirror interface {
	Snapshot() ([]models.GradeRecord, uint64)
}

// GradeRecordRequest is the teacher-entry payload: one student's full set
// of subject scores for one exam. Edits replace every field.
type GradeRecordRequest struct {
	StudentName string `json:"student_name" validate:"required"`
	Exam        string `json:"exam" validate:"required"`
	Chinese     int    `json:"chinese" validate:"min=0,max=100"`
	Math        int    `json:"math" validate:"min=0,max=100"`
	English     int    `json:"english" validate:"min=0,max=100"`
	Science     int    `json:"science" validate:"min=0,max=100"`
	Social      int    `json:"social" validate:"min=0,max=100"`
	Essay       int    `json:"essay" validate:"min=0,max=100"`
}

// CreatedGradeRecord pairs the stored record with the pin issued when the
// student was first seen, so the teacher can hand it out.
type CreatedGradeRecord struct {
	Record    models.GradeRecord `json:"record"`
	IssuedPin string             `json:"issued_pin,omitempty"`
}

// GradeService orchestrates teacher-side grade record writes and mirror
// reads for one partition.
type GradeService struct {
	records     gradeRecordStore
	credentials credentialIssuer
	mirror      gradeMirror
	notifier    changePublisher
	repairs     jobEnqueuer
	partitionID string
	validator   *validator.Validate
	logger      *zap.Logger
}

// NewGradeService constructs GradeService. The repair queue is optional;
// without it a failed pin issuance waits for the next write to retry.
func NewGradeService(records gradeRecordStore, credentials credentialIssuer, mirror gradeMirror, notifier changePublisher, repairs jobEnqueuer, partitionID string, validate *validator.Validate, logger *zap.Logger) *GradeService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GradeService{
		records:     records,
		credentials: credentials,
		mirror:      mirror,
		notifier:    notifier,
		repairs:     repairs,
		partitionID: partitionID,
		validator:   validate,
		logger:      logger,
	}
}

// List returns grade records from the current mirror snapshot, optionally
// filtered by exam and student.
func (s *GradeService) List(ctx context.Context, filter models.GradeRecordFilter) []models.GradeRecord {
	snapshot, _ := s.mirror.Snapshot()
	result := make([]models.GradeRecord, 0, len(snapshot))
	for _, record := range snapshot {
		if filter.Exam != "" && record.Exam != filter.Exam {
			continue
		}
		if filter.StudentName != "" && record.StudentName != filter.StudentName {
			continue
		}
		result = append(result, record)
	}
	return result
}

// Create stores a new grade record. The (student, exam) pair must be new;
// duplicates are rejected rather than silently coexisting. When the student
// name has never been seen, a credential is issued as a second, best-effort
// step after the grade write commits.
func (s *GradeService) Create(ctx context.Context, req GradeRecordRequest) (*CreatedGradeRecord, error) {
	record, err := s.buildRecord(req)
	if err != nil {
		return nil, err
	}

	_, err = s.records.FindByStudentExam(ctx, s.partitionID, record.StudentName, record.Exam)
	if err == nil {
		return nil, appErrors.ErrDuplicateRecord
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check for existing record")
	}

	if err := s.records.Create(ctx, record); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to save grade record")
	}

	created := &CreatedGradeRecord{Record: *record}
	pin, issued, err := s.credentials.IssueIfAbsent(ctx, record.StudentName)
	if err != nil {
		// The grade write already committed; hand the issuance to the
		// repair queue rather than failing the request.
		s.logger.Warn("credential issuance failed", zap.String("student", record.StudentName), zap.Error(err))
		if s.repairs != nil {
			if qerr := s.repairs.Enqueue(jobs.Job{
				ID:      record.ID,
				Type:    JobIssueCredential,
				Payload: record.StudentName,
			}); qerr != nil {
				s.logger.Warn("failed to queue credential repair", zap.String("student", record.StudentName), zap.Error(qerr))
			}
		}
	} else if issued {
		created.IssuedPin = pin
	}

	if s.notifier != nil {
		s.notifier.Publish(ctx, syncpkg.CollectionGrades, s.partitionID)
	}
	return created, nil
}

// Update performs a full field replace of an existing record.
func (s *GradeService) Update(ctx context.Context, id string, req GradeRecordRequest) (*models.GradeRecord, error) {
	record, err := s.buildRecord(req)
	if err != nil {
		return nil, err
	}

	existing, err := s.records.FindByID(ctx, s.partitionID, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "grade record not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load grade record")
	}

	// A rename or exam move must not land on another record's pair.
	if existing.StudentName != record.StudentName || existing.Exam != record.Exam {
		conflict, err := s.records.FindByStudentExam(ctx, s.partitionID, record.StudentName, record.Exam)
		if err == nil && conflict.ID != id {
			return nil, appErrors.ErrDuplicateRecord
		}
		if err != nil && !errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check for existing record")
		}
	}

	record.ID = existing.ID
	record.PartitionID = existing.PartitionID
	record.CreatedAt = existing.CreatedAt
	if err := s.records.Update(ctx, record); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "grade record not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update grade record")
	}

	if s.notifier != nil {
		s.notifier.Publish(ctx, syncpkg.CollectionGrades, s.partitionID)
	}
	return record, nil
}

// Delete removes a record. Credentials are never garbage collected; the
// pin stays reserved should the student return.
func (s *GradeService) Delete(ctx context.Context, id string) error {
	if err := s.records.Delete(ctx, s.partitionID, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "grade record not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete grade record")
	}

	if s.notifier != nil {
		s.notifier.Publish(ctx, syncpkg.CollectionGrades, s.partitionID)
	}
	return nil
}

func (s *GradeService) buildRecord(req GradeRecordRequest) (*models.GradeRecord, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid grade payload")
	}
	exam := models.Exam(req.Exam)
	if !exam.Valid() {
		return nil, appErrors.ErrUnknownExam
	}
	return &models.GradeRecord{
		PartitionID: s.partitionID,
		StudentName: req.StudentName,
		Exam:        exam,
		Chinese:     req.Chinese,
		Math:        req.Math,
		English:     req.English,
		Science:     req.Science,
		Social:      req.Social,
		Essay:       req.Essay,
	}, nil
}
