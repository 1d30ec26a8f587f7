package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-exam-api/internal/models"
	appErrors "github.com/noah-isme/sma-exam-api/pkg/errors"
	"github.com/noah-isme/sma-exam-api/pkg/notify"
)

type publishResultRepo interface {
	CountByExam(ctx context.Context, examID string) (int, error)
	PublishByExam(ctx context.Context, examID, publishedBy string, publishedAt time.Time) (int, error)
	IsPublished(ctx context.Context, examID, studentID string) (bool, error)
}

type publishExamRepo interface {
	FindByID(ctx context.Context, id string) (*models.Exam, error)
	UpdateStatus(ctx context.Context, id string, status models.ExamStatus) error
}

type reportCardInvalidator interface {
	DeleteByPattern(ctx context.Context, pattern string) error
}

type publishObserver interface {
	ObservePublication()
}

// PublishOutcome reports what a publication run changed.
type PublishOutcome struct {
	ExamID      string    `json:"exam_id"`
	Published   int       `json:"published"`
	PublishedAt time.Time `json:"published_at"`
}

// PublishService flips all result summaries of an exam visible to students
// in a single statement.
type PublishService struct {
	results publishResultRepo
	exams   publishExamRepo
	audit   auditWriter
	cache   reportCardInvalidator
	events  eventPublisher
	metrics publishObserver
	logger  *zap.Logger
}

// NewPublishService constructs PublishService.
func NewPublishService(results publishResultRepo, exams publishExamRepo, audit auditWriter, cache reportCardInvalidator, events eventPublisher, metrics publishObserver, logger *zap.Logger) *PublishService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PublishService{results: results, exams: exams, audit: audit, cache: cache, events: events, metrics: metrics, logger: logger}
}

// Publish marks every result summary of the exam as published. Re-publishing
// is tolerated: rows already visible are left untouched.
func (s *PublishService) Publish(ctx context.Context, examID, actorID string) (*PublishOutcome, error) {
	exam, err := s.exams.FindByID(ctx, examID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "exam not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load exam")
	}

	total, err := s.results.CountByExam(ctx, examID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count results")
	}
	if total == 0 {
		return nil, appErrors.Clone(appErrors.ErrInvalidState, "no results to publish for this exam")
	}

	publishedAt := time.Now().UTC()
	published, err := s.results.PublishByExam(ctx, examID, actorID, publishedAt)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to publish results")
	}

	if exam.Status != models.ExamStatusPublished {
		if err := s.exams.UpdateStatus(ctx, examID, models.ExamStatusPublished); err != nil {
			s.logger.Warn("failed to mark exam as published", zap.String("exam_id", examID), zap.Error(err))
		}
	}

	if s.cache != nil {
		if err := s.cache.DeleteByPattern(ctx, fmt.Sprintf("reportcard:%s:*", examID)); err != nil {
			s.logger.Warn("failed to invalidate report card cache", zap.String("exam_id", examID), zap.Error(err))
		}
	}

	if err := s.audit.Insert(ctx, &models.ExamAuditLog{
		EntityType:  models.AuditEntityExam,
		EntityID:    examID,
		Action:      models.AuditActionResultsPublish,
		PerformedBy: actorID,
		Detail:      fmt.Sprintf("published %d of %d result summaries", published, total),
	}); err != nil {
		s.logger.Warn("failed to write publish audit record", zap.String("exam_id", examID), zap.Error(err))
	}

	if s.events != nil {
		s.events.Publish(notify.Event{
			ID:      uuid.NewString(),
			Type:    notify.EventResultsPublished,
			Payload: map[string]interface{}{"exam_id": examID, "published": published},
		})
	}
	if s.metrics != nil {
		s.metrics.ObservePublication()
	}

	return &PublishOutcome{ExamID: examID, Published: published, PublishedAt: publishedAt}, nil
}

// IsStudentResultPublished reports whether a student's summary for the exam
// is visible.
func (s *PublishService) IsStudentResultPublished(ctx context.Context, examID, studentID string) (bool, error) {
	published, err := s.results.IsPublished(ctx, examID, studentID)
	if err != nil {
		return false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check result visibility")
	}
	return published, nil
}
