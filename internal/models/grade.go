package models

import "time"

// Exam is one of the fixed exam labels a grade record may belong to.
type Exam string

const (
	ExamOne   Exam = "Exam 1"
	ExamTwo   Exam = "Exam 2"
	ExamThree Exam = "Exam 3"
)

// Exams lists every valid exam label in display order.
var Exams = []Exam{ExamOne, ExamTwo, ExamThree}

// Valid reports whether the label is a known exam.
func (e Exam) Valid() bool {
	for _, exam := range Exams {
		if exam == e {
			return true
		}
	}
	return false
}

// Subject identifies a scored subject.
type Subject string

const (
	SubjectChinese Subject = "chinese"
	SubjectMath    Subject = "math"
	SubjectEnglish Subject = "english"
	SubjectScience Subject = "science"
	SubjectSocial  Subject = "social"
	SubjectEssay   Subject = "essay"
)

// Subjects lists every subject in display order. Essay is scored but
// excluded from the weighted composite.
var Subjects = []Subject{SubjectChinese, SubjectMath, SubjectEnglish, SubjectScience, SubjectSocial, SubjectEssay}

// GradeRecord holds one student's scores for one exam. At most one record
// exists per (student_name, exam) pair within a partition.
type GradeRecord struct {
	ID          string    `db:"id" json:"id"`
	PartitionID string    `db:"partition_id" json:"-"`
	StudentName string    `db:"student_name" json:"student_name"`
	Exam        Exam      `db:"exam" json:"exam"`
	Chinese     int       `db:"chinese" json:"chinese"`
	Math        int       `db:"math" json:"math"`
	English     int       `db:"english" json:"english"`
	Science     int       `db:"science" json:"science"`
	Social      int       `db:"social" json:"social"`
	Essay       int       `db:"essay" json:"essay"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}

// Scores returns every subject score keyed by subject, essay included.
func (g GradeRecord) Scores() map[Subject]int {
	return map[Subject]int{
		SubjectChinese: g.Chinese,
		SubjectMath:    g.Math,
		SubjectEnglish: g.English,
		SubjectScience: g.Science,
		SubjectSocial:  g.Social,
		SubjectEssay:   g.Essay,
	}
}

// GradeRecordFilter scopes grade record queries.
type GradeRecordFilter struct {
	Exam        Exam
	StudentName string
}
