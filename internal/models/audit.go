package models

import "time"

// Audit actions recorded by mutating engine operations.
const (
	AuditActionExamCreate       = "EXAM_CREATE"
	AuditActionScheduleCreate   = "SCHEDULE_CREATE"
	AuditActionSeatingGenerate  = "SEATING_GENERATE"
	AuditActionResultsPublish   = "RESULTS_PUBLISH"
	AuditActionPaperUpload      = "PAPER_UPLOAD"
	AuditActionPaperLock        = "PAPER_LOCK"
)

// Audit entity types.
const (
	AuditEntityExam     = "EXAM"
	AuditEntitySchedule = "EXAM_SCHEDULE"
	AuditEntityPaper    = "QUESTION_PAPER"
)

// ExamAuditLog is one append-only audit record. Rows are never updated or
// deleted by this engine.
type ExamAuditLog struct {
	ID          string    `db:"id" json:"id"`
	EntityType  string    `db:"entity_type" json:"entity_type"`
	EntityID    string    `db:"entity_id" json:"entity_id"`
	Action      string    `db:"action" json:"action"`
	PerformedBy string    `db:"performed_by" json:"performed_by"`
	Detail      string    `db:"detail" json:"detail"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}
