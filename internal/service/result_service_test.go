package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-exam-api/internal/models"
)

type mockResultScheduleLister struct {
	schedules []models.ExamSchedule
	err       error
}

func (m *mockResultScheduleLister) ListByExam(_ context.Context, _ string) ([]models.ExamSchedule, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.schedules, nil
}

type mockMarkLister struct {
	marks []models.Mark
	err   error
}

func (m *mockMarkLister) ListByExamAndStudent(_ context.Context, _, _ string) ([]models.Mark, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.marks, nil
}

type mockResultUpserter struct {
	upserts []models.StudentResultSummary
	err     error
}

func (m *mockResultUpserter) Upsert(_ context.Context, summary *models.StudentResultSummary) error {
	if m.err != nil {
		return m.err
	}
	m.upserts = append(m.upserts, *summary)
	return nil
}

type stubGradeResolver struct{}

func (stubGradeResolver) Resolve(_ context.Context, _ string, percentage float64) models.Grade {
	return defaultGrade(percentage)
}

func floatPtr(v float64) *float64 { return &v }

func threeSubjectExam() []models.ExamSchedule {
	return []models.ExamSchedule{
		{ID: "sch-1", SubjectID: "sub-math", MaxMarks: floatPtr(100), PassingMarks: floatPtr(35)},
		{ID: "sch-2", SubjectID: "sub-sci", MaxMarks: floatPtr(100), PassingMarks: floatPtr(35)},
		{ID: "sch-3", SubjectID: "sub-eng", MaxMarks: floatPtr(100), PassingMarks: floatPtr(35)},
	}
}

func TestResultProcessPassAggregation(t *testing.T) {
	results := &mockResultUpserter{}
	svc := NewResultService(
		&mockResultScheduleLister{schedules: threeSubjectExam()},
		&mockMarkLister{marks: []models.Mark{
			{SubjectID: "sub-math", MarksObtained: 90},
			{SubjectID: "sub-sci", MarksObtained: 80},
			{SubjectID: "sub-eng", MarksObtained: 70},
		}},
		results, stubGradeResolver{}, nil, zap.NewNop(),
	)

	svc.Process(context.Background(), "stu-1", "exam-1", "school-1")

	require.Len(t, results.upserts, 1)
	summary := results.upserts[0]
	assert.Equal(t, 240.0, summary.TotalObtained)
	assert.Equal(t, 300.0, summary.TotalMax)
	assert.Equal(t, 80.0, summary.Percentage)
	assert.Equal(t, "A", summary.Grade)
	assert.Equal(t, models.ResultStatusPass, summary.ResultStatus)
}

func TestResultProcessNoSchedulesStoresNothing(t *testing.T) {
	results := &mockResultUpserter{}
	svc := NewResultService(
		&mockResultScheduleLister{},
		&mockMarkLister{},
		results, stubGradeResolver{}, nil, zap.NewNop(),
	)

	svc.Process(context.Background(), "stu-1", "exam-1", "school-1")

	assert.Empty(t, results.upserts)
}

func TestResultProcessFailDominance(t *testing.T) {
	// High aggregate but one subject below its threshold: verdict is FAIL
	// and the grade is forced to F.
	results := &mockResultUpserter{}
	svc := NewResultService(
		&mockResultScheduleLister{schedules: threeSubjectExam()},
		&mockMarkLister{marks: []models.Mark{
			{SubjectID: "sub-math", MarksObtained: 100},
			{SubjectID: "sub-sci", MarksObtained: 100},
			{SubjectID: "sub-eng", MarksObtained: 30},
		}},
		results, stubGradeResolver{}, nil, zap.NewNop(),
	)

	svc.Process(context.Background(), "stu-1", "exam-1", "school-1")

	require.Len(t, results.upserts, 1)
	summary := results.upserts[0]
	assert.InDelta(t, 76.67, summary.Percentage, 0.001)
	assert.Equal(t, models.ResultStatusFail, summary.ResultStatus)
	assert.Equal(t, "F", summary.Grade)
	assert.Equal(t, 0.0, summary.GradePoint)
}

func TestResultProcessMissingMarkCountsAsZero(t *testing.T) {
	results := &mockResultUpserter{}
	svc := NewResultService(
		&mockResultScheduleLister{schedules: threeSubjectExam()},
		&mockMarkLister{marks: []models.Mark{
			{SubjectID: "sub-math", MarksObtained: 90},
			{SubjectID: "sub-sci", MarksObtained: 90},
		}},
		results, stubGradeResolver{}, nil, zap.NewNop(),
	)

	svc.Process(context.Background(), "stu-1", "exam-1", "school-1")

	require.Len(t, results.upserts, 1)
	summary := results.upserts[0]
	assert.Equal(t, 180.0, summary.TotalObtained)
	assert.Equal(t, 300.0, summary.TotalMax)
	assert.Equal(t, models.ResultStatusFail, summary.ResultStatus)
}

func TestResultProcessIdempotent(t *testing.T) {
	results := &mockResultUpserter{}
	svc := NewResultService(
		&mockResultScheduleLister{schedules: threeSubjectExam()},
		&mockMarkLister{marks: []models.Mark{
			{SubjectID: "sub-math", MarksObtained: 50},
			{SubjectID: "sub-sci", MarksObtained: 60},
			{SubjectID: "sub-eng", MarksObtained: 70},
		}},
		results, stubGradeResolver{}, nil, zap.NewNop(),
	)

	svc.Process(context.Background(), "stu-1", "exam-1", "school-1")
	svc.Process(context.Background(), "stu-1", "exam-1", "school-1")

	require.Len(t, results.upserts, 2)
	assert.Equal(t, results.upserts[0], results.upserts[1])
}

func TestResultProcessSwallowsErrors(t *testing.T) {
	// Aggregation is fire-and-forget: repository failures must not panic
	// or propagate.
	svc := NewResultService(
		&mockResultScheduleLister{err: errors.New("db down")},
		&mockMarkLister{}, &mockResultUpserter{}, stubGradeResolver{}, nil, zap.NewNop(),
	)
	assert.NotPanics(t, func() {
		svc.Process(context.Background(), "stu-1", "exam-1", "school-1")
	})

	svc = NewResultService(
		&mockResultScheduleLister{schedules: threeSubjectExam()},
		&mockMarkLister{}, &mockResultUpserter{err: errors.New("write refused")}, stubGradeResolver{}, nil, zap.NewNop(),
	)
	assert.NotPanics(t, func() {
		svc.Process(context.Background(), "stu-1", "exam-1", "school-1")
	})
}

func TestResultProcessDefaultMarksFallback(t *testing.T) {
	// Schedules without explicit max/passing marks use 100 and 35.
	results := &mockResultUpserter{}
	svc := NewResultService(
		&mockResultScheduleLister{schedules: []models.ExamSchedule{{ID: "sch-1", SubjectID: "sub-math"}}},
		&mockMarkLister{marks: []models.Mark{{SubjectID: "sub-math", MarksObtained: 34.5}}},
		results, stubGradeResolver{}, nil, zap.NewNop(),
	)

	svc.Process(context.Background(), "stu-1", "exam-1", "school-1")

	require.Len(t, results.upserts, 1)
	assert.Equal(t, 100.0, results.upserts[0].TotalMax)
	assert.Equal(t, models.ResultStatusFail, results.upserts[0].ResultStatus)
}
