package models

import "time"

// ResultStatus is the overall pass/fail verdict for one exam result.
type ResultStatus string

const (
	ResultStatusPass ResultStatus = "PASS"
	ResultStatusFail ResultStatus = "FAIL"
)

// Grade pairs a band label with its grade point.
type Grade struct {
	Label string  `json:"label"`
	Point float64 `json:"point"`
}

// GradingBand is one school-configured score band.
type GradingBand struct {
	ID       string  `db:"id" json:"id"`
	SchoolID string  `db:"school_id" json:"school_id"`
	MinScore float64 `db:"min_score" json:"min_score"`
	MaxScore float64 `db:"max_score" json:"max_score"`
	Label    string  `db:"label" json:"label"`
	Point    float64 `db:"point" json:"point"`
}

// StudentResultSummary is the aggregated outcome for one (exam, student).
// result_status is FAIL iff at least one subject fell below its passing
// threshold; grade is forced to F on failure regardless of percentage.
type StudentResultSummary struct {
	ID            string       `db:"id" json:"id"`
	ExamID        string       `db:"exam_id" json:"exam_id"`
	StudentID     string       `db:"student_id" json:"student_id"`
	TotalObtained float64      `db:"total_obtained" json:"total_obtained"`
	TotalMax      float64      `db:"total_max" json:"total_max"`
	Percentage    float64      `db:"percentage" json:"percentage"`
	Grade         string       `db:"grade" json:"grade"`
	GradePoint    float64      `db:"grade_point" json:"grade_point"`
	ResultStatus  ResultStatus `db:"result_status" json:"result_status"`
	IsPublished   bool         `db:"is_published" json:"is_published"`
	PublishedAt   *time.Time   `db:"published_at" json:"published_at,omitempty"`
	PublishedBy   *string      `db:"published_by" json:"published_by,omitempty"`
	CreatedAt     time.Time    `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time    `db:"updated_at" json:"updated_at"`
}

// ReportCardSubject is one subject line on a published report card.
type ReportCardSubject struct {
	SubjectID     string  `db:"subject_id" json:"subject_id"`
	SubjectName   string  `db:"subject_name" json:"subject_name"`
	MaxMarks      float64 `db:"max_marks" json:"max_marks"`
	PassingMarks  float64 `db:"passing_marks" json:"passing_marks"`
	MarksObtained float64 `db:"marks_obtained" json:"marks_obtained"`
}

// ReportCard is the published, gradable outcome served to students/guardians.
type ReportCard struct {
	ExamID      string               `json:"exam_id"`
	ExamName    string               `json:"exam_name"`
	StudentID   string               `json:"student_id"`
	StudentName string               `json:"student_name"`
	Subjects    []ReportCardSubject  `json:"subjects"`
	Summary     StudentResultSummary `json:"summary"`
}
