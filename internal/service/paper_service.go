package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-exam-api/internal/models"
	appErrors "github.com/noah-isme/sma-exam-api/pkg/errors"
)

type paperRepo interface {
	FindLatestBySchedule(ctx context.Context, scheduleID string) (*models.ExamQuestionPaper, error)
	Create(ctx context.Context, paper *models.ExamQuestionPaper) error
	Lock(ctx context.Context, id string, lockedAt time.Time) error
	ListBySchedule(ctx context.Context, scheduleID string) ([]models.ExamQuestionPaper, error)
}

type paperScheduleReader interface {
	FindByID(ctx context.Context, id string) (*models.ExamSchedule, error)
}

type paperFileStore interface {
	Save(filename string, data []byte) (string, error)
}

type paperLinkSigner interface {
	Generate(paperID, relPath string) (string, time.Time, error)
	Parse(token string, allowExpired bool) (paperID, relPath string, expiresAt time.Time, err error)
}

// PaperDownload is a time-limited reference to a stored paper file.
type PaperDownload struct {
	PaperID   string    `json:"paper_id"`
	Version   int       `json:"version"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// UploadPaperRequest carries one paper upload.
type UploadPaperRequest struct {
	ScheduleID string             `validate:"required"`
	ActorID    string             `validate:"required"`
	FileName   string             `validate:"required"`
	Data       []byte             `validate:"required"`
	Status     models.PaperStatus `validate:"omitempty,oneof=DRAFT FINAL"`
}

// PaperService manages monotonically versioned question papers per schedule
// with a one-way lock.
type PaperService struct {
	papers    paperRepo
	schedules paperScheduleReader
	files     paperFileStore
	signer    paperLinkSigner
	audit     auditWriter
	validator *validator.Validate
	logger    *zap.Logger
}

// NewPaperService constructs PaperService.
func NewPaperService(papers paperRepo, schedules paperScheduleReader, files paperFileStore, signer paperLinkSigner, audit auditWriter, validate *validator.Validate, logger *zap.Logger) *PaperService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PaperService{papers: papers, schedules: schedules, files: files, signer: signer, audit: audit, validator: validate, logger: logger}
}

// Upload stores a new paper version. Rejected once any version is LOCKED.
func (s *PaperService) Upload(ctx context.Context, req UploadPaperRequest) (*models.ExamQuestionPaper, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid paper upload payload")
	}
	if req.Status == "" {
		req.Status = models.PaperStatusDraft
	}

	if _, err := s.schedules.FindByID(ctx, req.ScheduleID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "exam schedule not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load schedule")
	}

	version := 1
	latest, err := s.papers.FindLatestBySchedule(ctx, req.ScheduleID)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load current paper")
	}
	if latest != nil {
		if latest.Status == models.PaperStatusLocked {
			return nil, appErrors.Clone(appErrors.ErrPaperLocked, "question paper is locked, no further versions allowed")
		}
		version = latest.Version + 1
	}

	fileRef := fmt.Sprintf("%s/v%d%s", req.ScheduleID, version, path.Ext(req.FileName))
	if _, err := s.files.Save(fileRef, req.Data); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store paper file")
	}

	paper := &models.ExamQuestionPaper{
		ScheduleID: req.ScheduleID,
		Version:    version,
		Status:     req.Status,
		FileRef:    fileRef,
		UploadedBy: req.ActorID,
	}
	if err := s.papers.Create(ctx, paper); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store paper version")
	}

	if err := s.audit.Insert(ctx, &models.ExamAuditLog{
		EntityType:  models.AuditEntityPaper,
		EntityID:    paper.ID,
		Action:      models.AuditActionPaperUpload,
		PerformedBy: req.ActorID,
		Detail:      fmt.Sprintf("uploaded version %d (%s) for schedule %s", version, req.Status, req.ScheduleID),
	}); err != nil {
		s.logger.Warn("failed to write paper audit record", zap.String("paper_id", paper.ID), zap.Error(err))
	}

	return paper, nil
}

// Lock makes the current version terminal. Idempotent: locking a locked
// paper returns it unchanged.
func (s *PaperService) Lock(ctx context.Context, scheduleID, actorID string) (*models.ExamQuestionPaper, error) {
	latest, err := s.papers.FindLatestBySchedule(ctx, scheduleID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "no question paper uploaded for this schedule")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load current paper")
	}
	if latest.Status == models.PaperStatusLocked {
		return latest, nil
	}

	lockedAt := time.Now().UTC()
	if err := s.papers.Lock(ctx, latest.ID, lockedAt); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to lock paper")
	}
	latest.Status = models.PaperStatusLocked
	latest.LockedAt = &lockedAt

	if err := s.audit.Insert(ctx, &models.ExamAuditLog{
		EntityType:  models.AuditEntityPaper,
		EntityID:    latest.ID,
		Action:      models.AuditActionPaperLock,
		PerformedBy: actorID,
		Detail:      fmt.Sprintf("locked version %d for schedule %s", latest.Version, scheduleID),
	}); err != nil {
		s.logger.Warn("failed to write paper lock audit record", zap.String("paper_id", latest.ID), zap.Error(err))
	}

	return latest, nil
}

// DownloadURL issues a signed, expiring token for the latest paper version.
// Only LOCKED papers are exposed for download.
func (s *PaperService) DownloadURL(ctx context.Context, scheduleID string) (*PaperDownload, error) {
	latest, err := s.papers.FindLatestBySchedule(ctx, scheduleID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "no question paper uploaded for this schedule")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load current paper")
	}
	if latest.Status != models.PaperStatusLocked {
		return nil, appErrors.Clone(appErrors.ErrInvalidState, "question paper must be locked before distribution")
	}

	token, expiresAt, err := s.signer.Generate(latest.ID, latest.FileRef)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sign download link")
	}

	return &PaperDownload{
		PaperID:   latest.ID,
		Version:   latest.Version,
		Token:     token,
		ExpiresAt: expiresAt,
	}, nil
}

// ResolveDownload validates a signed download token and returns the stored
// file reference it points at.
func (s *PaperService) ResolveDownload(token string) (string, error) {
	_, relPath, _, err := s.signer.Parse(token, false)
	if err != nil {
		return "", appErrors.Wrap(err, appErrors.ErrUnauthorized.Code, appErrors.ErrUnauthorized.Status, "invalid or expired download token")
	}
	return relPath, nil
}

// Versions lists the full version history for a schedule.
func (s *PaperService) Versions(ctx context.Context, scheduleID string) ([]models.ExamQuestionPaper, error) {
	papers, err := s.papers.ListBySchedule(ctx, scheduleID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list paper versions")
	}
	return papers, nil
}
