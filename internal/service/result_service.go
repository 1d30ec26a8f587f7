package service

import (
	"context"
	"math"

	"go.uber.org/zap"

	"github.com/noah-isme/sma-exam-api/internal/models"
)

type resultScheduleLister interface {
	ListByExam(ctx context.Context, examID string) ([]models.ExamSchedule, error)
}

type resultMarkLister interface {
	ListByExamAndStudent(ctx context.Context, examID, studentID string) ([]models.Mark, error)
}

type resultUpserter interface {
	Upsert(ctx context.Context, summary *models.StudentResultSummary) error
}

type gradeResolver interface {
	Resolve(ctx context.Context, schoolID string, percentage float64) models.Grade
}

type resultObserver interface {
	ObserveResultComputed(status string)
}

// ResultService aggregates entered marks into a result summary per
// (exam, student). It is the engine's only fire-and-forget producer: it is
// triggered after each mark write and must never fail that request, so every
// error is logged and swallowed.
type ResultService struct {
	schedules resultScheduleLister
	marks     resultMarkLister
	results   resultUpserter
	grading   gradeResolver
	metrics   resultObserver
	logger    *zap.Logger
}

// NewResultService constructs ResultService.
func NewResultService(schedules resultScheduleLister, marks resultMarkLister, results resultUpserter, grading gradeResolver, metrics resultObserver, logger *zap.Logger) *ResultService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ResultService{schedules: schedules, marks: marks, results: results, grading: grading, metrics: metrics, logger: logger}
}

// Process recomputes and upserts the summary for one student in one exam.
// Idempotent: identical inputs produce an identical stored row.
func (s *ResultService) Process(ctx context.Context, studentID, examID, schoolID string) {
	schedules, err := s.schedules.ListByExam(ctx, examID)
	if err != nil {
		s.logger.Error("result aggregation: failed to load schedules",
			zap.String("exam_id", examID), zap.String("student_id", studentID), zap.Error(err))
		return
	}
	if len(schedules) == 0 {
		s.logger.Warn("result aggregation: exam has no schedules",
			zap.String("exam_id", examID), zap.String("student_id", studentID))
		return
	}
	marks, err := s.marks.ListByExamAndStudent(ctx, examID, studentID)
	if err != nil {
		s.logger.Error("result aggregation: failed to load marks",
			zap.String("exam_id", examID), zap.String("student_id", studentID), zap.Error(err))
		return
	}

	summary := s.aggregate(ctx, studentID, examID, schoolID, schedules, marks)
	if err := s.results.Upsert(ctx, summary); err != nil {
		s.logger.Error("result aggregation: failed to upsert summary",
			zap.String("exam_id", examID), zap.String("student_id", studentID), zap.Error(err))
		return
	}
	if s.metrics != nil {
		s.metrics.ObserveResultComputed(string(summary.ResultStatus))
	}
}

// aggregate walks the schedule list, not the mark list: schedules are
// authoritative for which subjects exist. A subject without an entered mark
// counts as zero and fails its passing threshold.
func (s *ResultService) aggregate(ctx context.Context, studentID, examID, schoolID string, schedules []models.ExamSchedule, marks []models.Mark) *models.StudentResultSummary {
	marksBySubject := make(map[string]models.Mark, len(marks))
	for _, mark := range marks {
		marksBySubject[mark.SubjectID] = mark
	}

	var totalObtained, totalMax float64
	failed := false
	for _, schedule := range schedules {
		totalMax += schedule.MaxMarksOrDefault()
		obtained := 0.0
		if mark, ok := marksBySubject[schedule.SubjectID]; ok {
			obtained = mark.MarksObtained
		}
		totalObtained += obtained
		if obtained < schedule.PassingMarksOrDefault() {
			failed = true
		}
	}

	percentage := 0.0
	if totalMax > 0 {
		percentage = roundTwo(totalObtained / totalMax * 100)
	}

	grade := s.grading.Resolve(ctx, schoolID, percentage)
	status := models.ResultStatusPass
	if failed {
		// Fail dominance: one subject below threshold forces FAIL/F no
		// matter how high the overall percentage is.
		status = models.ResultStatusFail
		grade = models.Grade{Label: "F", Point: 0}
	}

	return &models.StudentResultSummary{
		ExamID:        examID,
		StudentID:     studentID,
		TotalObtained: totalObtained,
		TotalMax:      totalMax,
		Percentage:    percentage,
		Grade:         grade.Label,
		GradePoint:    grade.Point,
		ResultStatus:  status,
	}
}

func roundTwo(v float64) float64 {
	return math.Round(v*100) / 100
}
