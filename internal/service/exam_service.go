package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-exam-api/internal/models"
	appErrors "github.com/noah-isme/sma-exam-api/pkg/errors"
	"github.com/noah-isme/sma-exam-api/pkg/notify"
)

type examRepo interface {
	Create(ctx context.Context, exam *models.Exam) error
	FindByID(ctx context.Context, id string) (*models.Exam, error)
	List(ctx context.Context, schoolID string) ([]models.Exam, error)
}

type scheduleRepo interface {
	Create(ctx context.Context, schedule *models.ExamSchedule) error
	FindByID(ctx context.Context, id string) (*models.ExamSchedule, error)
	ListByExam(ctx context.Context, examID string) ([]models.ExamSchedule, error)
}

type uniqueViolationChecker func(err error) bool

// CreateExamRequest carries one exam creation.
type CreateExamRequest struct {
	SchoolID       string    `json:"-" validate:"required"`
	AcademicYearID string    `json:"academic_year_id" validate:"required"`
	Name           string    `json:"name" validate:"required,min=3,max=100"`
	StartDate      time.Time `json:"start_date" validate:"required"`
	EndDate        time.Time `json:"end_date" validate:"required"`
	ActorID        string    `json:"-" validate:"required"`
}

// CreateScheduleRequest carries one subject sitting under an exam.
type CreateScheduleRequest struct {
	ExamID       string    `json:"-" validate:"required"`
	SubjectID    string    `json:"subject_id" validate:"required"`
	ExamDate     time.Time `json:"exam_date" validate:"required"`
	StartTime    string    `json:"start_time" validate:"required"`
	EndTime      string    `json:"end_time" validate:"required"`
	MaxMarks     *float64  `json:"max_marks" validate:"omitempty,gt=0"`
	PassingMarks *float64  `json:"passing_marks" validate:"omitempty,gte=0"`
	ActorID      string    `json:"-" validate:"required"`
}

// ExamService manages exams and their subject schedules.
type ExamService struct {
	exams     examRepo
	schedules scheduleRepo
	audit     auditWriter
	events    eventPublisher
	isUnique  uniqueViolationChecker
	validator *validator.Validate
	logger    *zap.Logger
}

// NewExamService constructs ExamService.
func NewExamService(exams examRepo, schedules scheduleRepo, audit auditWriter, events eventPublisher, isUnique uniqueViolationChecker, validate *validator.Validate, logger *zap.Logger) *ExamService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if isUnique == nil {
		isUnique = func(error) bool { return false }
	}
	return &ExamService{exams: exams, schedules: schedules, audit: audit, events: events, isUnique: isUnique, validator: validate, logger: logger}
}

// CreateExam stores a new exam in SCHEDULED state.
func (s *ExamService) CreateExam(ctx context.Context, req CreateExamRequest) (*models.Exam, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid exam payload")
	}
	if req.EndDate.Before(req.StartDate) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "end date must not precede start date")
	}

	exam := &models.Exam{
		SchoolID:       req.SchoolID,
		AcademicYearID: req.AcademicYearID,
		Name:           req.Name,
		StartDate:      req.StartDate,
		EndDate:        req.EndDate,
		Status:         models.ExamStatusScheduled,
		CreatedBy:      req.ActorID,
	}
	if err := s.exams.Create(ctx, exam); err != nil {
		if s.isUnique(err) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "an exam with this name already exists for the academic year")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create exam")
	}

	if err := s.audit.Insert(ctx, &models.ExamAuditLog{
		EntityType:  models.AuditEntityExam,
		EntityID:    exam.ID,
		Action:      models.AuditActionExamCreate,
		PerformedBy: req.ActorID,
		Detail:      fmt.Sprintf("created exam %q", exam.Name),
	}); err != nil {
		s.logger.Warn("failed to write exam audit record", zap.String("exam_id", exam.ID), zap.Error(err))
	}

	return exam, nil
}

// GetExam returns one exam by id.
func (s *ExamService) GetExam(ctx context.Context, id string) (*models.Exam, error) {
	exam, err := s.exams.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "exam not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load exam")
	}
	return exam, nil
}

// ListExams returns all exams for a school.
func (s *ExamService) ListExams(ctx context.Context, schoolID string) ([]models.Exam, error) {
	exams, err := s.exams.List(ctx, schoolID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list exams")
	}
	return exams, nil
}

// CreateSchedule adds a subject sitting to an exam. Rejected once the exam
// is published.
func (s *ExamService) CreateSchedule(ctx context.Context, req CreateScheduleRequest) (*models.ExamSchedule, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid schedule payload")
	}
	start, err := time.Parse("15:04", req.StartTime)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "start time must use the HH:MM format")
	}
	end, err := time.Parse("15:04", req.EndTime)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "end time must use the HH:MM format")
	}
	if !end.After(start) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "end time must be after start time")
	}
	if req.MaxMarks != nil && req.PassingMarks != nil && *req.PassingMarks > *req.MaxMarks {
		return nil, appErrors.Clone(appErrors.ErrValidation, "passing marks cannot exceed max marks")
	}

	exam, err := s.exams.FindByID(ctx, req.ExamID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "exam not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load exam")
	}
	if exam.Status == models.ExamStatusPublished {
		return nil, appErrors.Clone(appErrors.ErrInvalidState, "cannot add schedules to a published exam")
	}

	schedule := &models.ExamSchedule{
		ExamID:       req.ExamID,
		SubjectID:    req.SubjectID,
		ExamDate:     req.ExamDate,
		StartTime:    req.StartTime,
		EndTime:      req.EndTime,
		MaxMarks:     req.MaxMarks,
		PassingMarks: req.PassingMarks,
		Status:       models.ScheduleStatusScheduled,
	}
	if err := s.schedules.Create(ctx, schedule); err != nil {
		if s.isUnique(err) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "this subject is already scheduled for the exam")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create schedule")
	}

	if err := s.audit.Insert(ctx, &models.ExamAuditLog{
		EntityType:  models.AuditEntitySchedule,
		EntityID:    schedule.ID,
		Action:      models.AuditActionScheduleCreate,
		PerformedBy: req.ActorID,
		Detail:      fmt.Sprintf("scheduled subject %s for exam %s on %s", req.SubjectID, req.ExamID, req.ExamDate.Format("2006-01-02")),
	}); err != nil {
		s.logger.Warn("failed to write schedule audit record", zap.String("schedule_id", schedule.ID), zap.Error(err))
	}

	if s.events != nil {
		s.events.Publish(notify.Event{
			ID:      uuid.NewString(),
			Type:    notify.EventScheduleCreated,
			Payload: map[string]interface{}{"schedule_id": schedule.ID, "exam_id": req.ExamID},
		})
	}

	return schedule, nil
}

// ListSchedules returns all sittings for an exam in date order.
func (s *ExamService) ListSchedules(ctx context.Context, examID string) ([]models.ExamSchedule, error) {
	schedules, err := s.schedules.ListByExam(ctx, examID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list schedules")
	}
	return schedules, nil
}
