package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-exam-api/internal/models"
	"github.com/noah-isme/sma-exam-api/internal/repository"
	appErrors "github.com/noah-isme/sma-exam-api/pkg/errors"
	"github.com/noah-isme/sma-exam-api/pkg/notify"
)

type mockExamRepo struct {
	exam      *models.Exam
	created   []models.Exam
	createErr error
}

func (m *mockExamRepo) Create(_ context.Context, exam *models.Exam) error {
	if m.createErr != nil {
		return m.createErr
	}
	exam.ID = "exam-new"
	m.created = append(m.created, *exam)
	return nil
}

func (m *mockExamRepo) FindByID(_ context.Context, _ string) (*models.Exam, error) {
	if m.exam == nil {
		return nil, errors.New("unexpected lookup")
	}
	return m.exam, nil
}

func (m *mockExamRepo) List(_ context.Context, _ string) ([]models.Exam, error) {
	if m.exam == nil {
		return nil, nil
	}
	return []models.Exam{*m.exam}, nil
}

type mockScheduleRepo struct {
	created   []models.ExamSchedule
	createErr error
}

func (m *mockScheduleRepo) Create(_ context.Context, schedule *models.ExamSchedule) error {
	if m.createErr != nil {
		return m.createErr
	}
	schedule.ID = "sch-new"
	m.created = append(m.created, *schedule)
	return nil
}

func (m *mockScheduleRepo) FindByID(_ context.Context, _ string) (*models.ExamSchedule, error) {
	return nil, errors.New("not used")
}

func (m *mockScheduleRepo) ListByExam(_ context.Context, _ string) ([]models.ExamSchedule, error) {
	return m.created, nil
}

func validExamRequest() CreateExamRequest {
	return CreateExamRequest{
		SchoolID:       "school-1",
		AcademicYearID: "ay-2026",
		Name:           "Mid Term Examination",
		StartDate:      time.Date(2026, 9, 14, 0, 0, 0, 0, time.UTC),
		EndDate:        time.Date(2026, 9, 25, 0, 0, 0, 0, time.UTC),
		ActorID:        "admin-1",
	}
}

func TestCreateExam(t *testing.T) {
	exams := &mockExamRepo{}
	audit := &mockAuditWriter{}
	svc := NewExamService(exams, &mockScheduleRepo{}, audit, nil, repository.IsUniqueViolation, nil, zap.NewNop())

	exam, err := svc.CreateExam(context.Background(), validExamRequest())
	require.NoError(t, err)
	assert.Equal(t, models.ExamStatusScheduled, exam.Status)
	assert.Equal(t, "admin-1", exam.CreatedBy)
	require.Len(t, audit.entries, 1)
	assert.Equal(t, models.AuditActionExamCreate, audit.entries[0].Action)
}

func TestCreateExamRejectsInvertedDates(t *testing.T) {
	svc := NewExamService(&mockExamRepo{}, &mockScheduleRepo{}, &mockAuditWriter{}, nil, nil, nil, zap.NewNop())

	req := validExamRequest()
	req.StartDate, req.EndDate = req.EndDate, req.StartDate
	_, err := svc.CreateExam(context.Background(), req)
	require.Error(t, err)
	assert.True(t, errors.Is(err, appErrors.ErrValidation))
}

func TestCreateExamDuplicateName(t *testing.T) {
	exams := &mockExamRepo{createErr: &pq.Error{Code: "23505"}}
	svc := NewExamService(exams, &mockScheduleRepo{}, &mockAuditWriter{}, nil, repository.IsUniqueViolation, nil, zap.NewNop())

	_, err := svc.CreateExam(context.Background(), validExamRequest())
	require.Error(t, err)
	assert.True(t, errors.Is(err, appErrors.ErrConflict))
}

func validScheduleRequest() CreateScheduleRequest {
	return CreateScheduleRequest{
		ExamID:    "exam-1",
		SubjectID: "sub-math",
		ExamDate:  time.Date(2026, 9, 15, 0, 0, 0, 0, time.UTC),
		StartTime: "09:00",
		EndTime:   "12:00",
		ActorID:   "admin-1",
	}
}

func TestCreateSchedule(t *testing.T) {
	exams := &mockExamRepo{exam: &models.Exam{ID: "exam-1", Status: models.ExamStatusScheduled}}
	schedules := &mockScheduleRepo{}
	events := &mockEventPublisher{}
	svc := NewExamService(exams, schedules, &mockAuditWriter{}, events, nil, nil, zap.NewNop())

	schedule, err := svc.CreateSchedule(context.Background(), validScheduleRequest())
	require.NoError(t, err)
	assert.Equal(t, models.ScheduleStatusScheduled, schedule.Status)
	require.Len(t, events.events, 1)
	assert.Equal(t, notify.EventScheduleCreated, events.events[0].Type)
}

func TestCreateScheduleRejectsEndBeforeStart(t *testing.T) {
	exams := &mockExamRepo{exam: &models.Exam{ID: "exam-1", Status: models.ExamStatusScheduled}}
	schedules := &mockScheduleRepo{}
	svc := NewExamService(exams, schedules, &mockAuditWriter{}, nil, nil, nil, zap.NewNop())

	req := validScheduleRequest()
	req.StartTime, req.EndTime = "12:00", "09:00"
	_, err := svc.CreateSchedule(context.Background(), req)
	require.Error(t, err)
	assert.True(t, errors.Is(err, appErrors.ErrValidation))
	// Validation happens before any write.
	assert.Empty(t, schedules.created)
}

func TestCreateScheduleRejectsPublishedExam(t *testing.T) {
	exams := &mockExamRepo{exam: &models.Exam{ID: "exam-1", Status: models.ExamStatusPublished}}
	svc := NewExamService(exams, &mockScheduleRepo{}, &mockAuditWriter{}, nil, nil, nil, zap.NewNop())

	_, err := svc.CreateSchedule(context.Background(), validScheduleRequest())
	require.Error(t, err)
	assert.True(t, errors.Is(err, appErrors.ErrInvalidState))
}

func TestCreateScheduleRejectsPassingAboveMax(t *testing.T) {
	exams := &mockExamRepo{exam: &models.Exam{ID: "exam-1", Status: models.ExamStatusScheduled}}
	svc := NewExamService(exams, &mockScheduleRepo{}, &mockAuditWriter{}, nil, nil, nil, zap.NewNop())

	req := validScheduleRequest()
	req.MaxMarks = floatPtr(50)
	req.PassingMarks = floatPtr(60)
	_, err := svc.CreateSchedule(context.Background(), req)
	require.Error(t, err)
	assert.True(t, errors.Is(err, appErrors.ErrValidation))
}
