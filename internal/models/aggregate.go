package models

// ExamAggregate is the transient class-wide view for one exam, recomputed
// fresh from the current mirror on demand and never persisted.
type ExamAggregate struct {
	Exam                 Exam                `json:"exam"`
	SubjectMeans         map[Subject]float64 `json:"subject_means"`
	ClassWeightedAverage float64             `json:"class_weighted_average"`
	TotalStudents        int                 `json:"total_students"`
}

// RankEntry is one row of an exam's descending ranking.
type RankEntry struct {
	StudentName     string  `json:"student_name"`
	WeightedAverage float64 `json:"weighted_average"`
	Rank            int     `json:"rank"`
}

// StudentExamResult is the derived view a student session reads: own
// scores, composite, rank, and the class aggregate for comparison.
type StudentExamResult struct {
	Record          GradeRecord   `json:"record"`
	WeightedAverage float64       `json:"weighted_average"`
	Rank            *int          `json:"rank,omitempty"`
	Aggregate       ExamAggregate `json:"aggregate"`
	Narrative       string        `json:"narrative,omitempty"`
}
