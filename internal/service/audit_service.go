package service

import (
	"context"

	"github.com/noah-isme/sma-exam-api/internal/models"
	appErrors "github.com/noah-isme/sma-exam-api/pkg/errors"
)

type auditReader interface {
	ListByEntity(ctx context.Context, entityType, entityID string) ([]models.ExamAuditLog, error)
}

// AuditService exposes the append-only audit trail for reads. Writes go
// through the owning services; nothing updates or deletes entries.
type AuditService struct {
	audit auditReader
}

// NewAuditService constructs AuditService.
func NewAuditService(audit auditReader) *AuditService {
	return &AuditService{audit: audit}
}

// Trail returns the audit entries for one entity in insertion order.
func (s *AuditService) Trail(ctx context.Context, entityType, entityID string) ([]models.ExamAuditLog, error) {
	switch entityType {
	case models.AuditEntityExam, models.AuditEntitySchedule, models.AuditEntityPaper:
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, "unknown audit entity type")
	}
	entries, err := s.audit.ListByEntity(ctx, entityType, entityID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load audit trail")
	}
	return entries, nil
}
