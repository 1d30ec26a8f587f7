package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/sma-exam-api/internal/models"
	appErrors "github.com/noah-isme/sma-exam-api/pkg/errors"
	"github.com/noah-isme/sma-exam-api/pkg/export"
)

type reportCardResultReader interface {
	FindByExamAndStudent(ctx context.Context, examID, studentID string) (*models.StudentResultSummary, error)
	IsPublished(ctx context.Context, examID, studentID string) (bool, error)
}

type reportCardScheduleLister interface {
	ListByExam(ctx context.Context, examID string) ([]models.ExamSchedule, error)
	FindByID(ctx context.Context, id string) (*models.ExamSchedule, error)
}

type reportCardMarkLister interface {
	ListByExamAndStudent(ctx context.Context, examID, studentID string) ([]models.Mark, error)
}

type reportCardStudentReader interface {
	FindByID(ctx context.Context, id string) (*models.Student, error)
}

type reportCardExamReader interface {
	FindByID(ctx context.Context, id string) (*models.Exam, error)
}

type reportCardCache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
}

type seatLookup interface {
	FindForStudent(ctx context.Context, scheduleID, studentID string) (*models.SeatAssignmentView, error)
}

type eligibilityChecker interface {
	Check(ctx context.Context, studentID, examID string) (*models.EligibilityResult, error)
}

type slipRenderer interface {
	RenderTable(data export.Dataset, title string) ([]byte, error)
	RenderSlip(title string, fields []export.Field, footer string) ([]byte, error)
}

// ReportCardService serves published report cards and eligibility-gated
// hall tickets. Report cards are cached until the next publication run.
type ReportCardService struct {
	results     reportCardResultReader
	schedules   reportCardScheduleLister
	marks       reportCardMarkLister
	students    reportCardStudentReader
	exams       reportCardExamReader
	seats       seatLookup
	eligibility eligibilityChecker
	cache       reportCardCache
	pdf         slipRenderer
	cacheTTL    time.Duration
	logger      *zap.Logger
}

// NewReportCardService constructs ReportCardService.
func NewReportCardService(
	results reportCardResultReader,
	schedules reportCardScheduleLister,
	marks reportCardMarkLister,
	students reportCardStudentReader,
	exams reportCardExamReader,
	seats seatLookup,
	eligibility eligibilityChecker,
	cache reportCardCache,
	pdf slipRenderer,
	cacheTTL time.Duration,
	logger *zap.Logger,
) *ReportCardService {
	if cacheTTL <= 0 {
		cacheTTL = 10 * time.Minute
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReportCardService{
		results:     results,
		schedules:   schedules,
		marks:       marks,
		students:    students,
		exams:       exams,
		seats:       seats,
		eligibility: eligibility,
		cache:       cache,
		pdf:         pdf,
		cacheTTL:    cacheTTL,
		logger:      logger,
	}
}

func reportCardCacheKey(examID, studentID string) string {
	return fmt.Sprintf("reportcard:%s:%s", examID, studentID)
}

// GetReportCard returns the published report card for one (exam, student).
// Unpublished results are never served, regardless of caller role.
func (s *ReportCardService) GetReportCard(ctx context.Context, examID, studentID string) (*models.ReportCard, error) {
	published, err := s.results.IsPublished(ctx, examID, studentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check result visibility")
	}
	if !published {
		return nil, appErrors.Clone(appErrors.ErrNotPublished, "results for this exam have not been published")
	}

	key := reportCardCacheKey(examID, studentID)
	if s.cache != nil {
		var cached models.ReportCard
		if err := s.cache.Get(ctx, key, &cached); err == nil {
			return &cached, nil
		} else if !errors.Is(err, appErrors.ErrCacheMiss) {
			s.logger.Warn("report card cache read failed", zap.String("key", key), zap.Error(err))
		}
	}

	card, err := s.buildReportCard(ctx, examID, studentID)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, key, card, s.cacheTTL); err != nil {
			s.logger.Warn("report card cache write failed", zap.String("key", key), zap.Error(err))
		}
	}
	return card, nil
}

func (s *ReportCardService) buildReportCard(ctx context.Context, examID, studentID string) (*models.ReportCard, error) {
	summary, err := s.results.FindByExamAndStudent(ctx, examID, studentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "no result recorded for this student")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load result summary")
	}

	exam, err := s.exams.FindByID(ctx, examID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load exam")
	}
	student, err := s.students.FindByID(ctx, studentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}

	schedules, err := s.schedules.ListByExam(ctx, examID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list schedules")
	}
	marks, err := s.marks.ListByExamAndStudent(ctx, examID, studentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list marks")
	}

	obtained := make(map[string]float64, len(marks))
	for _, m := range marks {
		obtained[m.SubjectID] = m.MarksObtained
	}

	subjects := make([]models.ReportCardSubject, 0, len(schedules))
	for _, sched := range schedules {
		subjects = append(subjects, models.ReportCardSubject{
			SubjectID:     sched.SubjectID,
			SubjectName:   sched.SubjectName,
			MaxMarks:      sched.MaxMarksOrDefault(),
			PassingMarks:  sched.PassingMarksOrDefault(),
			MarksObtained: obtained[sched.SubjectID],
		})
	}

	return &models.ReportCard{
		ExamID:      examID,
		ExamName:    exam.Name,
		StudentID:   studentID,
		StudentName: student.FullName,
		Subjects:    subjects,
		Summary:     *summary,
	}, nil
}

// RenderReportCardPDF renders the published report card as a PDF document.
func (s *ReportCardService) RenderReportCardPDF(ctx context.Context, examID, studentID string) ([]byte, error) {
	card, err := s.GetReportCard(ctx, examID, studentID)
	if err != nil {
		return nil, err
	}

	rows := make([]map[string]string, 0, len(card.Subjects)+1)
	for _, sub := range card.Subjects {
		rows = append(rows, map[string]string{
			"Subject":  sub.SubjectName,
			"Obtained": fmt.Sprintf("%.1f", sub.MarksObtained),
			"Max":      fmt.Sprintf("%.1f", sub.MaxMarks),
			"Passing":  fmt.Sprintf("%.1f", sub.PassingMarks),
		})
	}
	rows = append(rows, map[string]string{
		"Subject":  "Overall",
		"Obtained": fmt.Sprintf("%.1f", card.Summary.TotalObtained),
		"Max":      fmt.Sprintf("%.1f", card.Summary.TotalMax),
		"Passing":  fmt.Sprintf("%.2f%% / %s / %s", card.Summary.Percentage, card.Summary.Grade, card.Summary.ResultStatus),
	})

	data := export.Dataset{
		Headers: []string{"Subject", "Obtained", "Max", "Passing"},
		Rows:    rows,
	}
	pdf, err := s.pdf.RenderTable(data, fmt.Sprintf("Report Card - %s - %s", card.ExamName, card.StudentName))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render report card")
	}
	return pdf, nil
}

// GetHallTicket renders the admission slip for one (schedule, student).
// Ineligible students are refused before the seat lookup.
func (s *ReportCardService) GetHallTicket(ctx context.Context, scheduleID, studentID string) ([]byte, error) {
	schedule, err := s.schedules.FindByID(ctx, scheduleID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "exam schedule not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load schedule")
	}

	result, err := s.eligibility.Check(ctx, studentID, schedule.ExamID)
	if err != nil {
		return nil, err
	}
	if !result.Eligible {
		return nil, appErrors.Clone(appErrors.ErrNotEligible,
			fmt.Sprintf("student is not eligible for this exam: %s", strings.Join(result.Reasons, "; ")))
	}

	seat, err := s.seats.FindForStudent(ctx, scheduleID, studentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "no seat assigned for this schedule yet")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load seat assignment")
	}

	fields := []export.Field{
		{Label: "Student", Value: fmt.Sprintf("%s (%s)", seat.StudentName, seat.StudentCode)},
		{Label: "Subject", Value: schedule.SubjectName},
		{Label: "Date", Value: schedule.ExamDate.Format("2006-01-02")},
		{Label: "Time", Value: fmt.Sprintf("%s - %s", schedule.StartTime, schedule.EndTime)},
		{Label: "Hall", Value: seat.HallName},
		{Label: "Seat", Value: seat.SeatNumber},
	}
	if seat.Location != "" {
		fields = append(fields, export.Field{Label: "Location", Value: seat.Location})
	}

	ticket, err := s.pdf.RenderSlip("Hall Ticket", fields, "Carry this slip and a valid school ID to the examination hall.")
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render hall ticket")
	}
	return ticket, nil
}
