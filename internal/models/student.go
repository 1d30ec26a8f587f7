package models

import "time"

// Student is a class roster entry. Managed by the admissions collaborator;
// read-only to this engine.
type Student struct {
	ID          string    `db:"id" json:"id"`
	SchoolID    string    `db:"school_id" json:"school_id"`
	StudentCode string    `db:"student_code" json:"student_code"`
	FullName    string    `db:"full_name" json:"full_name"`
	ClassID     string    `db:"class_id" json:"class_id"`
	Active      bool      `db:"active" json:"active"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}
