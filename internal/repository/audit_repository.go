package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sma-exam-api/internal/models"
)

// AuditRepository appends immutable audit records. No update or delete
// methods exist on purpose.
type AuditRepository struct {
	db *sqlx.DB
}

// NewAuditRepository creates a new audit repository.
func NewAuditRepository(db *sqlx.DB) *AuditRepository {
	return &AuditRepository{db: db}
}

// Insert appends one audit record.
func (r *AuditRepository) Insert(ctx context.Context, log *models.ExamAuditLog) error {
	if log.ID == "" {
		log.ID = uuid.NewString()
	}
	if log.CreatedAt.IsZero() {
		log.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO exam_audit_logs (id, entity_type, entity_id, action, performed_by, detail, created_at)
        VALUES (:id, :entity_type, :entity_id, :action, :performed_by, :detail, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, log); err != nil {
		return fmt.Errorf("insert audit log: %w", err)
	}
	return nil
}

// ListByEntity returns the audit trail of one entity, newest first.
func (r *AuditRepository) ListByEntity(ctx context.Context, entityType, entityID string) ([]models.ExamAuditLog, error) {
	const query = `SELECT id, entity_type, entity_id, action, performed_by, detail, created_at
        FROM exam_audit_logs WHERE entity_type = $1 AND entity_id = $2 ORDER BY created_at DESC`
	var logs []models.ExamAuditLog
	if err := r.db.SelectContext(ctx, &logs, query, entityType, entityID); err != nil {
		return nil, fmt.Errorf("list audit logs: %w", err)
	}
	return logs, nil
}
