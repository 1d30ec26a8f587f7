package service

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-exam-api/internal/models"
	appErrors "github.com/noah-isme/sma-exam-api/pkg/errors"
)

type mockExamReader struct {
	exam  *models.Exam
	err   error
	calls int
}

func (m *mockExamReader) FindByID(_ context.Context, _ string) (*models.Exam, error) {
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	return m.exam, nil
}

type mockAttendanceAggregator struct {
	summaries map[string]models.AttendanceSummary
	err       error
	calls     int
}

func (m *mockAttendanceAggregator) SummaryByStudents(_ context.Context, _ []string, _ string) (map[string]models.AttendanceSummary, error) {
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	return m.summaries, nil
}

type mockFeeBalanceReader struct {
	balances map[string]models.FeeBalance
	err      error
	calls    int
}

func (m *mockFeeBalanceReader) BalancesByStudents(_ context.Context, _ []string) (map[string]models.FeeBalance, error) {
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	return m.balances, nil
}

func newEligibilityFixture(attendance map[string]models.AttendanceSummary, balances map[string]models.FeeBalance) (*EligibilityService, *mockAttendanceAggregator, *mockFeeBalanceReader) {
	exams := &mockExamReader{exam: &models.Exam{ID: "exam-1", SchoolID: "school-1", AcademicYearID: "ay-2026"}}
	att := &mockAttendanceAggregator{summaries: attendance}
	fees := &mockFeeBalanceReader{balances: balances}
	svc := NewEligibilityService(exams, att, fees, EligibilityConfig{}, zap.NewNop())
	return svc, att, fees
}

func TestEligibilityCheckBothClear(t *testing.T) {
	svc, _, _ := newEligibilityFixture(
		map[string]models.AttendanceSummary{"stu-1": {Total: 100, Attended: 80}},
		map[string]models.FeeBalance{"stu-1": {Assigned: 5000, Paid: 5000}},
	)

	result, err := svc.Check(context.Background(), "stu-1", "exam-1")
	require.NoError(t, err)
	assert.True(t, result.Eligible)
	assert.Equal(t, models.FeesStatusCleared, result.FeesStatus)
	assert.InDelta(t, 80.0, result.AttendancePercentage, 0.001)
	assert.Empty(t, result.Reasons)
}

func TestEligibilityCheckLowAttendance(t *testing.T) {
	svc, _, _ := newEligibilityFixture(
		map[string]models.AttendanceSummary{"stu-1": {Total: 100, Attended: 70}},
		map[string]models.FeeBalance{"stu-1": {Assigned: 5000, Paid: 5000}},
	)

	result, err := svc.Check(context.Background(), "stu-1", "exam-1")
	require.NoError(t, err)
	assert.False(t, result.Eligible)
	require.Len(t, result.Reasons, 1)
	assert.Contains(t, result.Reasons[0], "attendance 70.00%")
}

func TestEligibilityCheckOutstandingFees(t *testing.T) {
	svc, _, _ := newEligibilityFixture(
		map[string]models.AttendanceSummary{"stu-1": {Total: 100, Attended: 90}},
		map[string]models.FeeBalance{"stu-1": {Assigned: 5000, Paid: 3500}},
	)

	result, err := svc.Check(context.Background(), "stu-1", "exam-1")
	require.NoError(t, err)
	assert.False(t, result.Eligible)
	assert.Equal(t, models.FeesStatusPending, result.FeesStatus)
	require.Len(t, result.Reasons, 1)
	assert.Contains(t, result.Reasons[0], "outstanding fee balance of 1500.00")
}

func TestEligibilityCheckBothFailuresAccumulateReasons(t *testing.T) {
	svc, _, _ := newEligibilityFixture(
		map[string]models.AttendanceSummary{"stu-1": {Total: 50, Attended: 10}},
		map[string]models.FeeBalance{"stu-1": {Assigned: 2000, Paid: 0}},
	)

	result, err := svc.Check(context.Background(), "stu-1", "exam-1")
	require.NoError(t, err)
	assert.False(t, result.Eligible)
	assert.Len(t, result.Reasons, 2)
}

func TestEligibilityDefaultsWithNoRecords(t *testing.T) {
	// Zero attendance records means 100%; zero fee rows means cleared.
	svc, _, _ := newEligibilityFixture(nil, nil)

	result, err := svc.Check(context.Background(), "stu-ghost", "exam-1")
	require.NoError(t, err)
	assert.True(t, result.Eligible)
	assert.InDelta(t, 100.0, result.AttendancePercentage, 0.001)
	assert.Equal(t, models.FeesStatusCleared, result.FeesStatus)
}

func TestEligibilityFeeToleranceBoundary(t *testing.T) {
	// A residual balance within the tolerance still counts as cleared.
	svc, _, _ := newEligibilityFixture(
		map[string]models.AttendanceSummary{"stu-1": {Total: 10, Attended: 10}},
		map[string]models.FeeBalance{"stu-1": {Assigned: 1000, Paid: 999.50}},
	)

	result, err := svc.Check(context.Background(), "stu-1", "exam-1")
	require.NoError(t, err)
	assert.True(t, result.Eligible)
	assert.Equal(t, models.FeesStatusCleared, result.FeesStatus)
}

func TestEligibilityCheckBatchSingleRoundTrip(t *testing.T) {
	svc, att, fees := newEligibilityFixture(
		map[string]models.AttendanceSummary{
			"stu-1": {Total: 100, Attended: 90},
			"stu-2": {Total: 100, Attended: 50},
		},
		map[string]models.FeeBalance{
			"stu-1": {Assigned: 100, Paid: 100},
			"stu-2": {Assigned: 100, Paid: 100},
		},
	)

	results, err := svc.CheckBatch(context.Background(), []string{"stu-1", "stu-2", "stu-3"}, "exam-1")
	require.NoError(t, err)
	require.Len(t, results, 3)
	assert.True(t, results["stu-1"].Eligible)
	assert.False(t, results["stu-2"].Eligible)
	assert.True(t, results["stu-3"].Eligible)
	assert.Equal(t, 1, att.calls)
	assert.Equal(t, 1, fees.calls)
}

func TestEligibilityCheckExamNotFound(t *testing.T) {
	exams := &mockExamReader{err: sql.ErrNoRows}
	svc := NewEligibilityService(exams, &mockAttendanceAggregator{}, &mockFeeBalanceReader{}, EligibilityConfig{}, zap.NewNop())

	_, err := svc.Check(context.Background(), "stu-1", "missing")
	require.Error(t, err)
	assert.True(t, errors.Is(err, appErrors.ErrNotFound))
}
