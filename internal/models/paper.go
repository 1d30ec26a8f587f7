package models

import "time"

// PaperStatus represents the question paper lifecycle state.
type PaperStatus string

const (
	PaperStatusDraft PaperStatus = "DRAFT"
	PaperStatusFinal PaperStatus = "FINAL"
	// PaperStatusLocked is terminal; no further versions may be uploaded.
	PaperStatusLocked PaperStatus = "LOCKED"
)

// Valid returns true when the status is a supported value.
func (s PaperStatus) Valid() bool {
	switch s {
	case PaperStatusDraft, PaperStatusFinal, PaperStatusLocked:
		return true
	default:
		return false
	}
}

// ExamQuestionPaper is one uploaded paper version for a schedule.
// Versions increase monotonically per schedule starting at 1.
type ExamQuestionPaper struct {
	ID         string      `db:"id" json:"id"`
	ScheduleID string      `db:"schedule_id" json:"schedule_id"`
	Version    int         `db:"version" json:"version"`
	Status     PaperStatus `db:"status" json:"status"`
	FileRef    string      `db:"file_ref" json:"file_ref"`
	UploadedBy string      `db:"uploaded_by" json:"uploaded_by"`
	LockedAt   *time.Time  `db:"locked_at" json:"locked_at,omitempty"`
	CreatedAt  time.Time   `db:"created_at" json:"created_at"`
}
