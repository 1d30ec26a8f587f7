package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-exam-api/internal/models"
	appErrors "github.com/noah-isme/sma-exam-api/pkg/errors"
	"github.com/noah-isme/sma-exam-api/pkg/export"
)

type mockReportCardResults struct {
	summary   *models.StudentResultSummary
	published bool
	findCalls int
}

func (m *mockReportCardResults) FindByExamAndStudent(_ context.Context, _, _ string) (*models.StudentResultSummary, error) {
	m.findCalls++
	if m.summary == nil {
		return nil, sql.ErrNoRows
	}
	return m.summary, nil
}

func (m *mockReportCardResults) IsPublished(_ context.Context, _, _ string) (bool, error) {
	return m.published, nil
}

type mockReportCardSchedules struct {
	schedules []models.ExamSchedule
	schedule  *models.ExamSchedule
}

func (m *mockReportCardSchedules) ListByExam(_ context.Context, _ string) ([]models.ExamSchedule, error) {
	return m.schedules, nil
}

func (m *mockReportCardSchedules) FindByID(_ context.Context, _ string) (*models.ExamSchedule, error) {
	if m.schedule == nil {
		return nil, sql.ErrNoRows
	}
	return m.schedule, nil
}

type mockStudentReader struct {
	student *models.Student
}

func (m *mockStudentReader) FindByID(_ context.Context, _ string) (*models.Student, error) {
	if m.student == nil {
		return nil, sql.ErrNoRows
	}
	return m.student, nil
}

type mockSeatLookup struct {
	seat *models.SeatAssignmentView
}

func (m *mockSeatLookup) FindForStudent(_ context.Context, _, _ string) (*models.SeatAssignmentView, error) {
	if m.seat == nil {
		return nil, sql.ErrNoRows
	}
	return m.seat, nil
}

type mockTicketEligibility struct {
	result *models.EligibilityResult
}

func (m *mockTicketEligibility) Check(_ context.Context, studentID, _ string) (*models.EligibilityResult, error) {
	if m.result != nil {
		return m.result, nil
	}
	return &models.EligibilityResult{StudentID: studentID, Eligible: true}, nil
}

type memoryCache struct {
	store map[string][]byte
}

func (c *memoryCache) Get(_ context.Context, key string, dest interface{}) error {
	payload, ok := c.store[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	return json.Unmarshal(payload, dest)
}

func (c *memoryCache) Set(_ context.Context, key string, value interface{}, _ time.Duration) error {
	if c.store == nil {
		c.store = make(map[string][]byte)
	}
	payload, err := json.Marshal(value)
	if err != nil {
		return err
	}
	c.store[key] = payload
	return nil
}

type reportCardFixture struct {
	results     *mockReportCardResults
	schedules   *mockReportCardSchedules
	marks       *mockMarkLister
	seats       *mockSeatLookup
	eligibility *mockTicketEligibility
	cache       *memoryCache
	svc         *ReportCardService
}

func newReportCardFixture() *reportCardFixture {
	f := &reportCardFixture{
		results: &mockReportCardResults{
			published: true,
			summary: &models.StudentResultSummary{
				ExamID: "exam-1", StudentID: "stu-1",
				TotalObtained: 240, TotalMax: 300, Percentage: 80,
				Grade: "A", GradePoint: 9, ResultStatus: models.ResultStatusPass,
			},
		},
		schedules: &mockReportCardSchedules{
			schedules: []models.ExamSchedule{
				{ID: "sch-1", SubjectID: "sub-math", SubjectName: "Mathematics"},
			},
			schedule: &models.ExamSchedule{
				ID: "sch-1", ExamID: "exam-1", SubjectName: "Mathematics",
				ExamDate: time.Date(2026, 9, 15, 0, 0, 0, 0, time.UTC), StartTime: "09:00", EndTime: "12:00",
				Status: models.ScheduleStatusScheduled,
			},
		},
		marks:       &mockMarkLister{marks: []models.Mark{{SubjectID: "sub-math", MarksObtained: 80}}},
		seats:       &mockSeatLookup{seat: &models.SeatAssignmentView{SeatNumber: "S-7", StudentCode: "S001", StudentName: "Asha Rao", HallName: "Hall A"}},
		eligibility: &mockTicketEligibility{},
		cache:       &memoryCache{},
	}
	f.svc = NewReportCardService(
		f.results, f.schedules, f.marks,
		&mockStudentReader{student: &models.Student{ID: "stu-1", FullName: "Asha Rao", StudentCode: "S001"}},
		&mockExamReader{exam: &models.Exam{ID: "exam-1", Name: "Mid Term"}},
		f.seats, f.eligibility, f.cache, export.NewPDFExporter(), time.Minute, zap.NewNop(),
	)
	return f
}

func TestGetReportCardUnpublishedRefused(t *testing.T) {
	f := newReportCardFixture()
	f.results.published = false

	_, err := f.svc.GetReportCard(context.Background(), "exam-1", "stu-1")
	require.Error(t, err)
	assert.True(t, errors.Is(err, appErrors.ErrNotPublished))
	// The gate trips before any aggregation work.
	assert.Zero(t, f.results.findCalls)
}

func TestGetReportCardBuildsAndCaches(t *testing.T) {
	f := newReportCardFixture()

	card, err := f.svc.GetReportCard(context.Background(), "exam-1", "stu-1")
	require.NoError(t, err)
	assert.Equal(t, "Mid Term", card.ExamName)
	assert.Equal(t, "Asha Rao", card.StudentName)
	require.Len(t, card.Subjects, 1)
	assert.Equal(t, "Mathematics", card.Subjects[0].SubjectName)
	assert.Equal(t, 80.0, card.Subjects[0].MarksObtained)
	assert.Equal(t, 1, f.results.findCalls)

	// Second read is served from cache.
	card, err = f.svc.GetReportCard(context.Background(), "exam-1", "stu-1")
	require.NoError(t, err)
	assert.Equal(t, "Mid Term", card.ExamName)
	assert.Equal(t, 1, f.results.findCalls)
}

func TestRenderReportCardPDF(t *testing.T) {
	f := newReportCardFixture()

	pdf, err := f.svc.RenderReportCardPDF(context.Background(), "exam-1", "stu-1")
	require.NoError(t, err)
	assert.True(t, len(pdf) > 0)
	assert.Equal(t, "%PDF", string(pdf[:4]))
}

func TestGetHallTicketIneligibleRefused(t *testing.T) {
	f := newReportCardFixture()
	f.eligibility.result = &models.EligibilityResult{
		StudentID: "stu-1",
		Eligible:  false,
		Reasons:   []string{"attendance 60.00% is below the required 75%"},
	}

	_, err := f.svc.GetHallTicket(context.Background(), "sch-1", "stu-1")
	require.Error(t, err)
	assert.True(t, errors.Is(err, appErrors.ErrNotEligible))
	assert.Contains(t, err.Error(), "attendance 60.00%")
}

func TestGetHallTicketRendersSlip(t *testing.T) {
	f := newReportCardFixture()

	ticket, err := f.svc.GetHallTicket(context.Background(), "sch-1", "stu-1")
	require.NoError(t, err)
	assert.True(t, len(ticket) > 0)
	assert.Equal(t, "%PDF", string(ticket[:4]))
}

func TestGetHallTicketWithoutSeat(t *testing.T) {
	f := newReportCardFixture()
	f.seats.seat = nil

	_, err := f.svc.GetHallTicket(context.Background(), "sch-1", "stu-1")
	require.Error(t, err)
	assert.True(t, errors.Is(err, appErrors.ErrNotFound))
}
