package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/classmark/classmark-api/internal/models"
)

// GradeRecordRepository persists grade records scoped by partition.
type GradeRecordRepository struct {
	db *sqlx.DB
}

// NewGradeRecordRepository creates a new grade record repository.
func NewGradeRecordRepository(db *sqlx.DB) *GradeRecordRepository {
	return &GradeRecordRepository{db: db}
}

const gradeColumns = "id, partition_id, student_name, exam, chinese, math, english, science, social, essay, created_at, updated_at"

// ListByPartition returns every grade record in the partition.
func (r *GradeRecordRepository) ListByPartition(ctx context.Context, partitionID string) ([]models.GradeRecord, error) {
	query := fmt.Sprintf("SELECT %s FROM grade_records WHERE partition_id = $1 ORDER BY created_at ASC", gradeColumns)
	var records []models.GradeRecord
	if err := r.db.SelectContext(ctx, &records, query, partitionID); err != nil {
		return nil, fmt.Errorf("list grade records: %w", err)
	}
	return records, nil
}

// FindByID returns a single grade record within the partition.
func (r *GradeRecordRepository) FindByID(ctx context.Context, partitionID, id string) (*models.GradeRecord, error) {
	query := fmt.Sprintf("SELECT %s FROM grade_records WHERE partition_id = $1 AND id = $2 LIMIT 1", gradeColumns)
	var record models.GradeRecord
	if err := r.db.GetContext(ctx, &record, query, partitionID, id); err != nil {
		return nil, err
	}
	return &record, nil
}

// FindByStudentExam returns the record for a (student, exam) pair, or
// sql.ErrNoRows when none exists.
func (r *GradeRecordRepository) FindByStudentExam(ctx context.Context, partitionID, studentName string, exam models.Exam) (*models.GradeRecord, error) {
	query := fmt.Sprintf("SELECT %s FROM grade_records WHERE partition_id = $1 AND student_name = $2 AND exam = $3 LIMIT 1", gradeColumns)
	var record models.GradeRecord
	if err := r.db.GetContext(ctx, &record, query, partitionID, studentName, exam); err != nil {
		return nil, err
	}
	return &record, nil
}

// Create inserts a new grade record. The (partition_id, student_name, exam)
// unique index backs the one-record-per-pair invariant.
func (r *GradeRecordRepository) Create(ctx context.Context, record *models.GradeRecord) error {
	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	record.CreatedAt = now
	record.UpdatedAt = now
	const query = `INSERT INTO grade_records (id, partition_id, student_name, exam, chinese, math, english, science, social, essay, created_at, updated_at)
        VALUES (:id, :partition_id, :student_name, :exam, :chinese, :math, :english, :science, :social, :essay, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, record); err != nil {
		return fmt.Errorf("create grade record: %w", err)
	}
	return nil
}

// Update replaces every score field of an existing record.
func (r *GradeRecordRepository) Update(ctx context.Context, record *models.GradeRecord) error {
	record.UpdatedAt = time.Now().UTC()
	const query = `UPDATE grade_records
        SET student_name = :student_name, exam = :exam, chinese = :chinese, math = :math, english = :english,
            science = :science, social = :social, essay = :essay, updated_at = :updated_at
        WHERE partition_id = :partition_id AND id = :id`
	result, err := r.db.NamedExecContext(ctx, query, record)
	if err != nil {
		return fmt.Errorf("update grade record: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update grade record: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// Delete removes a record from the partition.
func (r *GradeRecordRepository) Delete(ctx context.Context, partitionID, id string) error {
	result, err := r.db.ExecContext(ctx, "DELETE FROM grade_records WHERE partition_id = $1 AND id = $2", partitionID, id)
	if err != nil {
		return fmt.Errorf("delete grade record: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete grade record: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// CountByStudent reports how many grade records the student has across all
// exams in the partition.
func (r *GradeRecordRepository) CountByStudent(ctx context.Context, partitionID, studentName string) (int, error) {
	var count int
	if err := r.db.GetContext(ctx, &count, "SELECT COUNT(*) FROM grade_records WHERE partition_id = $1 AND student_name = $2", partitionID, studentName); err != nil {
		return 0, fmt.Errorf("count grade records: %w", err)
	}
	return count, nil
}
