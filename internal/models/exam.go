package models

import "time"

// ExamStatus represents the exam lifecycle state.
type ExamStatus string

const (
	ExamStatusScheduled ExamStatus = "SCHEDULED"
	ExamStatusLocked    ExamStatus = "LOCKED"
	// ExamStatusPublished is terminal; publication is exam-wide and one-way.
	ExamStatusPublished ExamStatus = "PUBLISHED"
)

// Valid returns true when the status is a supported value.
func (s ExamStatus) Valid() bool {
	switch s {
	case ExamStatusScheduled, ExamStatusLocked, ExamStatusPublished:
		return true
	default:
		return false
	}
}

// Exam is the aggregate root for one examination event in an academic year.
type Exam struct {
	ID             string     `db:"id" json:"id"`
	SchoolID       string     `db:"school_id" json:"school_id"`
	AcademicYearID string     `db:"academic_year_id" json:"academic_year_id"`
	Name           string     `db:"name" json:"name"`
	StartDate      time.Time  `db:"start_date" json:"start_date"`
	EndDate        time.Time  `db:"end_date" json:"end_date"`
	Status         ExamStatus `db:"status" json:"status"`
	CreatedBy      string     `db:"created_by" json:"created_by"`
	CreatedAt      time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time  `db:"updated_at" json:"updated_at"`
}

// ExamScheduleStatus represents the schedule lifecycle state.
type ExamScheduleStatus string

const (
	ScheduleStatusScheduled ExamScheduleStatus = "SCHEDULED"
	ScheduleStatusCompleted ExamScheduleStatus = "COMPLETED"
	ScheduleStatusCancelled ExamScheduleStatus = "CANCELLED"
)

// ExamSchedule pairs one exam with one subject sitting. MaxMarks and
// PassingMarks are nullable; aggregation falls back to 100 and 35.
type ExamSchedule struct {
	ID           string             `db:"id" json:"id"`
	ExamID       string             `db:"exam_id" json:"exam_id"`
	SubjectID    string             `db:"subject_id" json:"subject_id"`
	SubjectName  string             `db:"subject_name" json:"subject_name"`
	ClassID      string             `db:"class_id" json:"class_id"`
	ExamDate     time.Time          `db:"exam_date" json:"exam_date"`
	StartTime    string             `db:"start_time" json:"start_time"`
	EndTime      string             `db:"end_time" json:"end_time"`
	MaxMarks     *float64           `db:"max_marks" json:"max_marks,omitempty"`
	PassingMarks *float64           `db:"passing_marks" json:"passing_marks,omitempty"`
	Status       ExamScheduleStatus `db:"status" json:"status"`
	CreatedAt    time.Time          `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time          `db:"updated_at" json:"updated_at"`
}

// MaxMarksOrDefault returns the configured maximum or the 100 default.
func (s ExamSchedule) MaxMarksOrDefault() float64 {
	if s.MaxMarks != nil {
		return *s.MaxMarks
	}
	return 100
}

// PassingMarksOrDefault returns the configured threshold or the 35 default.
func (s ExamSchedule) PassingMarksOrDefault() float64 {
	if s.PassingMarks != nil {
		return *s.PassingMarks
	}
	return 35
}
