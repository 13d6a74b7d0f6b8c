package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/classmark/classmark-api/internal/grading"
	"github.com/classmark/classmark-api/internal/models"
	appErrors "github.com/classmark/classmark-api/pkg/errors"
)

// ResultService derives exam views from the grade mirror: per-student
// results, rankings, and class aggregates. All computation is pure over the
// snapshot; redis caching is keyed by mirror version so stale entries die
// with the version they were computed from.
type ResultService struct {
	mirror    gradeMirror
	cache     *CacheService
	narrative *NarrativeService
	logger    *zap.Logger
}

// NewResultService constructs a result service.
func NewResultService(mirror gradeMirror, cache *CacheService, narrative *NarrativeService, logger *zap.Logger) *ResultService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ResultService{mirror: mirror, cache: cache, narrative: narrative, logger: logger}
}

// ExamSummary returns the class-wide aggregate for one exam. The boolean
// reports whether the view came from cache.
func (s *ResultService) ExamSummary(ctx context.Context, exam models.Exam) (*models.ExamAggregate, bool, error) {
	if !exam.Valid() {
		return nil, false, appErrors.ErrUnknownExam
	}

	snapshot, version := s.mirror.Snapshot()
	cacheKey := fmt.Sprintf("results:summary:%s:v%d", exam, version)

	var cached models.ExamAggregate
	if s.cache != nil {
		if hit, err := s.cache.Get(ctx, cacheKey, &cached); err == nil && hit {
			return &cached, true, nil
		}
	}

	aggregate := grading.AggregateExam(snapshot, exam)
	if s.cache != nil {
		if err := s.cache.Set(ctx, cacheKey, aggregate, 0); err != nil {
			s.logger.Warn("cache exam summary", zap.Error(err))
		}
	}
	return &aggregate, false, nil
}

// Rankings returns the full descending ordering for one exam.
func (s *ResultService) Rankings(ctx context.Context, exam models.Exam) ([]models.RankEntry, bool, error) {
	if !exam.Valid() {
		return nil, false, appErrors.ErrUnknownExam
	}

	snapshot, version := s.mirror.Snapshot()
	cacheKey := fmt.Sprintf("results:rankings:%s:v%d", exam, version)

	var cached []models.RankEntry
	if s.cache != nil {
		if hit, err := s.cache.Get(ctx, cacheKey, &cached); err == nil && hit {
			return cached, true, nil
		}
	}

	entries := grading.Rankings(snapshot, exam)
	if s.cache != nil {
		if err := s.cache.Set(ctx, cacheKey, entries, 0); err != nil {
			s.logger.Warn("cache rankings", zap.Error(err))
		}
	}
	return entries, false, nil
}

// StudentResult assembles the view a student session reads for one exam:
// own record and composite, class rank, class aggregate, and optionally a
// generated commentary. Commentary failure degrades to the fixed message.
func (s *ResultService) StudentResult(ctx context.Context, studentName string, exam models.Exam, withNarrative bool) (*models.StudentExamResult, error) {
	if !exam.Valid() {
		return nil, appErrors.ErrUnknownExam
	}

	snapshot, _ := s.mirror.Snapshot()

	var record *models.GradeRecord
	for i := range snapshot {
		if snapshot[i].StudentName == studentName && snapshot[i].Exam == exam {
			record = &snapshot[i]
			break
		}
	}
	if record == nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "no grade record for this exam")
	}

	result := &models.StudentExamResult{
		Record:          *record,
		WeightedAverage: grading.WeightedAverage(record.Scores()),
		Aggregate:       grading.AggregateExam(snapshot, exam),
	}
	if rank, ok := grading.ClassRank(snapshot, exam, studentName); ok {
		result.Rank = &rank
	}

	if withNarrative && s.narrative.Enabled() {
		commentary, err := s.narrative.Commentary(ctx, NarrativeRequest{
			StudentName:     studentName,
			Scores:          record.Scores(),
			WeightedAverage: result.WeightedAverage,
		})
		if err != nil {
			s.logger.Warn("narrative unavailable", zap.String("student", studentName), zap.Error(err))
			result.Narrative = appErrors.ErrNarrative.Message
		} else {
			result.Narrative = commentary
		}
	}

	return result, nil
}

// StudentOverview lists the student's records across every exam with the
// composite for each.
func (s *ResultService) StudentOverview(studentName string) []models.StudentExamResult {
	snapshot, _ := s.mirror.Snapshot()

	results := make([]models.StudentExamResult, 0, len(models.Exams))
	for _, exam := range models.Exams {
		for i := range snapshot {
			if snapshot[i].StudentName != studentName || snapshot[i].Exam != exam {
				continue
			}
			result := models.StudentExamResult{
				Record:          snapshot[i],
				WeightedAverage: grading.WeightedAverage(snapshot[i].Scores()),
				Aggregate:       grading.AggregateExam(snapshot, exam),
			}
			if rank, ok := grading.ClassRank(snapshot, exam, studentName); ok {
				result.Rank = &rank
			}
			results = append(results, result)
			break
		}
	}
	return results
}
