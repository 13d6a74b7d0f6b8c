package grading

import "github.com/classmark/classmark-api/internal/models"

// AggregateExam derives the class-wide view for one exam: arithmetic mean
// per subject (essay included) and the class composite obtained by applying
// the weight table to the mean vector. The result is never cached here;
// callers recompute over the snapshot they hold.
func AggregateExam(records []models.GradeRecord, exam models.Exam) models.ExamAggregate {
	aggregate := models.ExamAggregate{
		Exam:         exam,
		SubjectMeans: make(map[models.Subject]float64, len(models.Subjects)),
	}

	sums := make(map[models.Subject]int, len(models.Subjects))
	count := 0
	for _, record := range records {
		if record.Exam != exam {
			continue
		}
		count++
		for subject, score := range record.Scores() {
			sums[subject] += score
		}
	}
	aggregate.TotalStudents = count

	for _, subject := range models.Subjects {
		if count == 0 {
			aggregate.SubjectMeans[subject] = 0
			continue
		}
		aggregate.SubjectMeans[subject] = float64(sums[subject]) / float64(count)
	}

	aggregate.ClassWeightedAverage = weightedAverageFloat(aggregate.SubjectMeans)
	return aggregate
}
