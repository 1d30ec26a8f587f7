package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-exam-api/internal/models"
	appErrors "github.com/noah-isme/sma-exam-api/pkg/errors"
	"github.com/noah-isme/sma-exam-api/pkg/export"
	"github.com/noah-isme/sma-exam-api/pkg/notify"
)

type seatingScheduleReader interface {
	FindByID(ctx context.Context, id string) (*models.ExamSchedule, error)
}

type seatingStudentLister interface {
	ListByClass(ctx context.Context, schoolID, classID string) ([]models.Student, error)
}

type seatingHallLister interface {
	ListBySchool(ctx context.Context, schoolID string) ([]models.Hall, error)
}

type seatingEligibilityChecker interface {
	CheckBatch(ctx context.Context, studentIDs []string, examID string) (map[string]models.EligibilityResult, error)
}

type seatAllocationRepo interface {
	ReplaceForSchedule(ctx context.Context, scheduleID string, allocations []models.SeatAllocation) error
	ListBySchedule(ctx context.Context, scheduleID string) ([]models.SeatAssignmentView, error)
}

type auditWriter interface {
	Insert(ctx context.Context, log *models.ExamAuditLog) error
}

type eventPublisher interface {
	Publish(event notify.Event)
}

type seatingObserver interface {
	ObserveSeatingGeneration(duration time.Duration, allocated int)
}

// SeatingService assigns eligible students to halls and seats for one
// schedule. Generation is deterministic: a pure function of the
// code-ordered roster, the batch eligibility verdicts and the name-ordered
// hall list.
type SeatingService struct {
	schedules   seatingScheduleReader
	students    seatingStudentLister
	halls       seatingHallLister
	eligibility seatingEligibilityChecker
	seats       seatAllocationRepo
	audit       auditWriter
	events      eventPublisher
	metrics     seatingObserver
	csv         *export.CSVExporter
	logger      *zap.Logger

	// One guard per schedule: concurrent generation runs for the same
	// schedule would race on the delete+insert, so the replace step is a
	// critical section rather than a best-effort race.
	locks sync.Map
}

// NewSeatingService constructs SeatingService.
func NewSeatingService(schedules seatingScheduleReader, students seatingStudentLister, halls seatingHallLister, eligibility seatingEligibilityChecker, seats seatAllocationRepo, audit auditWriter, events eventPublisher, metrics seatingObserver, logger *zap.Logger) *SeatingService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SeatingService{
		schedules:   schedules,
		students:    students,
		halls:       halls,
		eligibility: eligibility,
		seats:       seats,
		audit:       audit,
		events:      events,
		metrics:     metrics,
		csv:         export.NewCSVExporter(),
		logger:      logger,
	}
}

// Generate computes and stores the seating plan for a schedule, replacing
// any prior allocation atomically.
func (s *SeatingService) Generate(ctx context.Context, scheduleID, userID, schoolID string) (*models.SeatingSummary, error) {
	lock := s.scheduleLock(scheduleID)
	lock.Lock()
	defer lock.Unlock()

	start := time.Now()

	schedule, err := s.schedules.FindByID(ctx, scheduleID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "exam schedule not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load schedule")
	}
	if schedule.Status != models.ScheduleStatusScheduled {
		return nil, appErrors.Clone(appErrors.ErrInvalidState,
			fmt.Sprintf("seating requires a SCHEDULED schedule, current status is %s", schedule.Status))
	}
	if schedule.ClassID == "" {
		return nil, appErrors.Clone(appErrors.ErrInvalidState, "schedule subject is not linked to a class")
	}

	students, err := s.students.ListByClass(ctx, schoolID, schedule.ClassID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load class roster")
	}
	if len(students) == 0 {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "no students found in the schedule's class")
	}

	studentIDs := make([]string, 0, len(students))
	for _, student := range students {
		studentIDs = append(studentIDs, student.ID)
	}
	verdicts, err := s.eligibility.CheckBatch(ctx, studentIDs, schedule.ExamID)
	if err != nil {
		return nil, err
	}
	eligible := make([]models.Student, 0, len(students))
	for _, student := range students {
		if verdicts[student.ID].Eligible {
			eligible = append(eligible, student)
		}
	}

	halls, err := s.halls.ListBySchool(ctx, schoolID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load halls")
	}
	if len(halls) == 0 {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "no exam halls defined for the school")
	}
	totalCapacity := 0
	for _, hall := range halls {
		totalCapacity += hall.Capacity
	}
	if len(eligible) > totalCapacity {
		return nil, appErrors.Clone(appErrors.ErrCapacityExceeded,
			fmt.Sprintf("%d eligible students exceed total hall capacity of %d", len(eligible), totalCapacity))
	}

	allocations, hallsUsed, err := packSeats(eligible, halls)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "seat packing failed")
	}

	if err := s.seats.ReplaceForSchedule(ctx, scheduleID, allocations); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store seat allocations")
	}

	summary := &models.SeatingSummary{
		Count:     len(allocations),
		HallsUsed: hallsUsed,
		Skipped:   len(students) - len(eligible),
	}

	if err := s.audit.Insert(ctx, &models.ExamAuditLog{
		EntityType:  models.AuditEntitySchedule,
		EntityID:    scheduleID,
		Action:      models.AuditActionSeatingGenerate,
		PerformedBy: userID,
		Detail:      fmt.Sprintf("allocated %d seats across %d halls (%d ineligible skipped)", summary.Count, len(hallsUsed), summary.Skipped),
	}); err != nil {
		s.logger.Warn("failed to write seating audit record", zap.String("schedule_id", scheduleID), zap.Error(err))
	}

	if s.events != nil {
		s.events.Publish(notify.Event{
			ID:   uuid.NewString(),
			Type: notify.EventSeatingGenerated,
			Payload: map[string]interface{}{
				"schedule_id": scheduleID,
				"count":       summary.Count,
				"halls_used":  hallsUsed,
			},
		})
	}
	if s.metrics != nil {
		s.metrics.ObserveSeatingGeneration(time.Since(start), summary.Count)
	}

	return summary, nil
}

// Get returns the current seating plan for a schedule.
func (s *SeatingService) Get(ctx context.Context, scheduleID string) ([]models.SeatAssignmentView, error) {
	seats, err := s.seats.ListBySchedule(ctx, scheduleID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load seating plan")
	}
	return seats, nil
}

// ExportRoster renders the seating plan as CSV for printing and notice boards.
func (s *SeatingService) ExportRoster(ctx context.Context, scheduleID string) ([]byte, error) {
	seats, err := s.Get(ctx, scheduleID)
	if err != nil {
		return nil, err
	}
	dataset := export.Dataset{Headers: []string{"Hall", "Seat", "Student Code", "Student Name"}}
	for _, seat := range seats {
		dataset.Rows = append(dataset.Rows, map[string]string{
			"Hall":         seat.HallName,
			"Seat":         seat.SeatNumber,
			"Student Code": seat.StudentCode,
			"Student Name": seat.StudentName,
		})
	}
	data, err := s.csv.Render(dataset)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render seating roster")
	}
	return data, nil
}

// packSeats fills halls first-fit sequentially: students in roster order,
// halls in name order, seat counter resetting per hall. No balancing is
// attempted; determinism is the contract.
func packSeats(students []models.Student, halls []models.Hall) ([]models.SeatAllocation, []string, error) {
	allocations := make([]models.SeatAllocation, 0, len(students))
	hallsUsed := make([]string, 0, len(halls))
	hallIdx := 0
	seat := 1
	for _, student := range students {
		for hallIdx < len(halls) && seat > halls[hallIdx].Capacity {
			hallIdx++
			seat = 1
		}
		if hallIdx >= len(halls) {
			// The capacity precheck guarantees room; running out here is a
			// broken invariant, not a recoverable condition.
			return nil, nil, fmt.Errorf("halls exhausted after %d of %d students", len(allocations), len(students))
		}
		if seat == 1 {
			hallsUsed = append(hallsUsed, halls[hallIdx].Name)
		}
		allocations = append(allocations, models.SeatAllocation{
			StudentID:  student.ID,
			HallID:     halls[hallIdx].ID,
			SeatNumber: fmt.Sprintf("S-%d", seat),
		})
		seat++
	}
	return allocations, hallsUsed, nil
}

func (s *SeatingService) scheduleLock(scheduleID string) *sync.Mutex {
	lock, _ := s.locks.LoadOrStore(scheduleID, &sync.Mutex{})
	return lock.(*sync.Mutex)
}
