package models

import "time"

// Mark is a subject score entered by the marks-entry collaborator.
// Read-only to this engine.
type Mark struct {
	ID            string    `db:"id" json:"id"`
	ExamID        string    `db:"exam_id" json:"exam_id"`
	StudentID     string    `db:"student_id" json:"student_id"`
	SubjectID     string    `db:"subject_id" json:"subject_id"`
	MarksObtained float64   `db:"marks_obtained" json:"marks_obtained"`
	EnteredBy     string    `db:"entered_by" json:"entered_by"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time `db:"updated_at" json:"updated_at"`
}
