package grading

import (
	"sort"

	"github.com/classmark/classmark-api/internal/models"
)

// Rankings orders one exam's records descending by weighted average and
// assigns 1-based positions. Ties keep the filtered-set input order (stable
// sort), so equal composites still receive distinct positions.
func Rankings(records []models.GradeRecord, exam models.Exam) []models.RankEntry {
	entries := make([]models.RankEntry, 0, len(records))
	for _, record := range records {
		if record.Exam != exam {
			continue
		}
		entries = append(entries, models.RankEntry{
			StudentName:     record.StudentName,
			WeightedAverage: WeightedAverage(record.Scores()),
		})
	}

	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].WeightedAverage > entries[j].WeightedAverage
	})

	for i := range entries {
		entries[i].Rank = i + 1
	}
	return entries
}

// ClassRank returns the 1-based rank of the named student within the exam's
// ordering. ok is false when the student has no record for that exam, which
// is distinct from rank 1.
func ClassRank(records []models.GradeRecord, exam models.Exam, studentName string) (int, bool) {
	for _, entry := range Rankings(records, exam) {
		if entry.StudentName == studentName {
			return entry.Rank, true
		}
	}
	return 0, false
}
