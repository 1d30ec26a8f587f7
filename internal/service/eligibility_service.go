package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/noah-isme/sma-exam-api/internal/models"
	appErrors "github.com/noah-isme/sma-exam-api/pkg/errors"
)

type eligibilityExamReader interface {
	FindByID(ctx context.Context, id string) (*models.Exam, error)
}

type attendanceAggregator interface {
	SummaryByStudents(ctx context.Context, studentIDs []string, academicYearID string) (map[string]models.AttendanceSummary, error)
}

type feeBalanceReader interface {
	BalancesByStudents(ctx context.Context, studentIDs []string) (map[string]models.FeeBalance, error)
}

// EligibilityConfig tunes the two independent eligibility checks.
type EligibilityConfig struct {
	AttendanceThreshold float64
	FeeTolerance        float64
}

// EligibilityService computes exam eligibility verdicts. It performs no
// writes and is safe to call repeatedly and concurrently for the same inputs.
type EligibilityService struct {
	exams      eligibilityExamReader
	attendance attendanceAggregator
	fees       feeBalanceReader
	config     EligibilityConfig
	logger     *zap.Logger
}

// NewEligibilityService constructs EligibilityService.
func NewEligibilityService(exams eligibilityExamReader, attendance attendanceAggregator, fees feeBalanceReader, cfg EligibilityConfig, logger *zap.Logger) *EligibilityService {
	if cfg.AttendanceThreshold <= 0 {
		cfg.AttendanceThreshold = 75
	}
	if cfg.FeeTolerance <= 0 {
		cfg.FeeTolerance = 1
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EligibilityService{exams: exams, attendance: attendance, fees: fees, config: cfg, logger: logger}
}

// Check evaluates one student against one exam.
func (s *EligibilityService) Check(ctx context.Context, studentID, examID string) (*models.EligibilityResult, error) {
	results, err := s.CheckBatch(ctx, []string{studentID}, examID)
	if err != nil {
		return nil, err
	}
	result := results[studentID]
	return &result, nil
}

// CheckBatch evaluates a candidate set against one exam with two aggregate
// queries, then applies the decision function in memory per student. The
// verdict is identical to evaluating each student alone.
func (s *EligibilityService) CheckBatch(ctx context.Context, studentIDs []string, examID string) (map[string]models.EligibilityResult, error) {
	exam, err := s.exams.FindByID(ctx, examID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "exam not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load exam")
	}

	attendance, err := s.attendance.SummaryByStudents(ctx, studentIDs, exam.AcademicYearID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to aggregate attendance")
	}
	balances, err := s.fees.BalancesByStudents(ctx, studentIDs)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to aggregate fee balances")
	}

	results := make(map[string]models.EligibilityResult, len(studentIDs))
	for _, studentID := range studentIDs {
		results[studentID] = s.evaluate(studentID, attendance, balances)
	}
	return results, nil
}

func (s *EligibilityService) evaluate(studentID string, attendance map[string]models.AttendanceSummary, balances map[string]models.FeeBalance) models.EligibilityResult {
	result := models.EligibilityResult{
		StudentID:  studentID,
		Eligible:   true,
		FeesStatus: models.FeesStatusCleared,
	}

	// No attendance records means 100%: benefit of the doubt is an explicit
	// policy, not an omission.
	result.AttendancePercentage = 100
	if summary, ok := attendance[studentID]; ok && summary.Total > 0 {
		result.AttendancePercentage = float64(summary.Attended) / float64(summary.Total) * 100
	}
	if result.AttendancePercentage < s.config.AttendanceThreshold {
		result.Eligible = false
		result.Reasons = append(result.Reasons,
			fmt.Sprintf("attendance %.2f%% is below the required %.0f%%", result.AttendancePercentage, s.config.AttendanceThreshold))
	}

	if balance, ok := balances[studentID]; ok && balance.Balance() > s.config.FeeTolerance {
		result.Eligible = false
		result.FeesStatus = models.FeesStatusPending
		result.Reasons = append(result.Reasons,
			fmt.Sprintf("outstanding fee balance of %.2f", balance.Balance()))
	}

	return result
}
