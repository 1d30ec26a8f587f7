package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-exam-api/internal/models"
	appErrors "github.com/noah-isme/sma-exam-api/pkg/errors"
	"github.com/noah-isme/sma-exam-api/pkg/notify"
)

type mockScheduleReader struct {
	schedule *models.ExamSchedule
	err      error
}

func (m *mockScheduleReader) FindByID(_ context.Context, _ string) (*models.ExamSchedule, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.schedule, nil
}

type mockStudentLister struct {
	students []models.Student
	err      error
}

func (m *mockStudentLister) ListByClass(_ context.Context, _, _ string) ([]models.Student, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.students, nil
}

type mockHallLister struct {
	halls []models.Hall
	err   error
}

func (m *mockHallLister) ListBySchool(_ context.Context, _ string) ([]models.Hall, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.halls, nil
}

type mockEligibilityChecker struct {
	verdicts map[string]models.EligibilityResult
	err      error
}

func (m *mockEligibilityChecker) CheckBatch(_ context.Context, studentIDs []string, _ string) (map[string]models.EligibilityResult, error) {
	if m.err != nil {
		return nil, m.err
	}
	if m.verdicts != nil {
		return m.verdicts, nil
	}
	verdicts := make(map[string]models.EligibilityResult, len(studentIDs))
	for _, id := range studentIDs {
		verdicts[id] = models.EligibilityResult{StudentID: id, Eligible: true}
	}
	return verdicts, nil
}

type mockSeatRepo struct {
	mu        sync.Mutex
	replaced  [][]models.SeatAllocation
	listed    []models.SeatAssignmentView
	replaceFn func()
	err       error
}

func (m *mockSeatRepo) ReplaceForSchedule(_ context.Context, _ string, allocations []models.SeatAllocation) error {
	if m.replaceFn != nil {
		m.replaceFn()
	}
	if m.err != nil {
		return m.err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.replaced = append(m.replaced, allocations)
	return nil
}

func (m *mockSeatRepo) ListBySchedule(_ context.Context, _ string) ([]models.SeatAssignmentView, error) {
	return m.listed, nil
}

type mockAuditWriter struct {
	entries []models.ExamAuditLog
	err     error
}

func (m *mockAuditWriter) Insert(_ context.Context, log *models.ExamAuditLog) error {
	if m.err != nil {
		return m.err
	}
	m.entries = append(m.entries, *log)
	return nil
}

type mockEventPublisher struct {
	events []notify.Event
}

func (m *mockEventPublisher) Publish(event notify.Event) {
	m.events = append(m.events, event)
}

func scheduledSitting() *models.ExamSchedule {
	return &models.ExamSchedule{
		ID:      "sch-1",
		ExamID:  "exam-1",
		ClassID: "class-10a",
		Status:  models.ScheduleStatusScheduled,
	}
}

func rosterOf(codes ...string) []models.Student {
	students := make([]models.Student, 0, len(codes))
	for _, code := range codes {
		students = append(students, models.Student{ID: "id-" + code, StudentCode: code, FullName: "Student " + code})
	}
	return students
}

func TestSeatingGenerateDeterministicFirstFit(t *testing.T) {
	seats := &mockSeatRepo{}
	events := &mockEventPublisher{}
	svc := NewSeatingService(
		&mockScheduleReader{schedule: scheduledSitting()},
		&mockStudentLister{students: rosterOf("S001", "S002", "S003")},
		&mockHallLister{halls: []models.Hall{
			{ID: "hall-a", Name: "Hall A", Capacity: 2},
			{ID: "hall-b", Name: "Hall B", Capacity: 10},
		}},
		&mockEligibilityChecker{},
		seats, &mockAuditWriter{}, events, nil, zap.NewNop(),
	)

	summary, err := svc.Generate(context.Background(), "sch-1", "user-1", "school-1")
	require.NoError(t, err)
	assert.Equal(t, 3, summary.Count)
	assert.Equal(t, []string{"Hall A", "Hall B"}, summary.HallsUsed)
	assert.Zero(t, summary.Skipped)

	require.Len(t, seats.replaced, 1)
	allocations := seats.replaced[0]
	require.Len(t, allocations, 3)
	assert.Equal(t, "id-S001", allocations[0].StudentID)
	assert.Equal(t, "hall-a", allocations[0].HallID)
	assert.Equal(t, "S-1", allocations[0].SeatNumber)
	assert.Equal(t, "hall-a", allocations[1].HallID)
	assert.Equal(t, "S-2", allocations[1].SeatNumber)
	assert.Equal(t, "hall-b", allocations[2].HallID)
	assert.Equal(t, "S-1", allocations[2].SeatNumber)

	require.Len(t, events.events, 1)
	assert.Equal(t, notify.EventSeatingGenerated, events.events[0].Type)
}

func TestSeatingGenerateSkipsIneligible(t *testing.T) {
	seats := &mockSeatRepo{}
	svc := NewSeatingService(
		&mockScheduleReader{schedule: scheduledSitting()},
		&mockStudentLister{students: rosterOf("S001", "S002", "S003")},
		&mockHallLister{halls: []models.Hall{{ID: "hall-a", Name: "Hall A", Capacity: 10}}},
		&mockEligibilityChecker{verdicts: map[string]models.EligibilityResult{
			"id-S001": {Eligible: true},
			"id-S002": {Eligible: false},
			"id-S003": {Eligible: true},
		}},
		seats, &mockAuditWriter{}, nil, nil, zap.NewNop(),
	)

	summary, err := svc.Generate(context.Background(), "sch-1", "user-1", "school-1")
	require.NoError(t, err)
	assert.Equal(t, 2, summary.Count)
	assert.Equal(t, 1, summary.Skipped)

	require.Len(t, seats.replaced, 1)
	allocations := seats.replaced[0]
	require.Len(t, allocations, 2)
	// Ineligible students leave no gaps in the seat sequence.
	assert.Equal(t, "id-S001", allocations[0].StudentID)
	assert.Equal(t, "S-1", allocations[0].SeatNumber)
	assert.Equal(t, "id-S003", allocations[1].StudentID)
	assert.Equal(t, "S-2", allocations[1].SeatNumber)
}

func TestSeatingGenerateCapacityExceededWritesNothing(t *testing.T) {
	seats := &mockSeatRepo{}
	roster := make([]models.Student, 0, 12)
	for i := 0; i < 12; i++ {
		roster = append(roster, models.Student{ID: string(rune('a' + i)), StudentCode: string(rune('A' + i))})
	}
	svc := NewSeatingService(
		&mockScheduleReader{schedule: scheduledSitting()},
		&mockStudentLister{students: roster},
		&mockHallLister{halls: []models.Hall{
			{ID: "hall-a", Name: "Hall A", Capacity: 5},
			{ID: "hall-b", Name: "Hall B", Capacity: 5},
		}},
		&mockEligibilityChecker{},
		seats, &mockAuditWriter{}, nil, nil, zap.NewNop(),
	)

	_, err := svc.Generate(context.Background(), "sch-1", "user-1", "school-1")
	require.Error(t, err)
	assert.True(t, errors.Is(err, appErrors.ErrCapacityExceeded))
	assert.Contains(t, err.Error(), "12 eligible students exceed total hall capacity of 10")
	assert.Empty(t, seats.replaced)
}

func TestSeatingGenerateRejectsNonScheduledStatus(t *testing.T) {
	schedule := scheduledSitting()
	schedule.Status = models.ScheduleStatusCompleted
	svc := NewSeatingService(
		&mockScheduleReader{schedule: schedule},
		&mockStudentLister{}, &mockHallLister{}, &mockEligibilityChecker{},
		&mockSeatRepo{}, &mockAuditWriter{}, nil, nil, zap.NewNop(),
	)

	_, err := svc.Generate(context.Background(), "sch-1", "user-1", "school-1")
	require.Error(t, err)
	assert.True(t, errors.Is(err, appErrors.ErrInvalidState))
}

func TestSeatingGenerateRegenerationReplaces(t *testing.T) {
	seats := &mockSeatRepo{}
	svc := NewSeatingService(
		&mockScheduleReader{schedule: scheduledSitting()},
		&mockStudentLister{students: rosterOf("S001", "S002")},
		&mockHallLister{halls: []models.Hall{{ID: "hall-a", Name: "Hall A", Capacity: 10}}},
		&mockEligibilityChecker{},
		seats, &mockAuditWriter{}, nil, nil, zap.NewNop(),
	)

	_, err := svc.Generate(context.Background(), "sch-1", "user-1", "school-1")
	require.NoError(t, err)
	_, err = svc.Generate(context.Background(), "sch-1", "user-1", "school-1")
	require.NoError(t, err)

	require.Len(t, seats.replaced, 2)
	assert.Equal(t, seats.replaced[0], seats.replaced[1])
}

func TestSeatingGenerateSerializesPerSchedule(t *testing.T) {
	entered := make(chan struct{}, 2)
	release := make(chan struct{})
	seats := &mockSeatRepo{replaceFn: func() {
		entered <- struct{}{}
		<-release
	}}
	svc := NewSeatingService(
		&mockScheduleReader{schedule: scheduledSitting()},
		&mockStudentLister{students: rosterOf("S001")},
		&mockHallLister{halls: []models.Hall{{ID: "hall-a", Name: "Hall A", Capacity: 10}}},
		&mockEligibilityChecker{},
		seats, &mockAuditWriter{}, nil, nil, zap.NewNop(),
	)

	var wg sync.WaitGroup
	wg.Add(2)
	for i := 0; i < 2; i++ {
		go func() {
			defer wg.Done()
			_, _ = svc.Generate(context.Background(), "sch-1", "user-1", "school-1")
		}()
	}

	// Only one run may reach the replace step while the lock is held.
	<-entered
	select {
	case <-entered:
		t.Fatal("concurrent generation entered the critical section")
	default:
	}
	close(release)
	wg.Wait()
	assert.Len(t, seats.replaced, 2)
}

func TestSeatingExportRoster(t *testing.T) {
	seats := &mockSeatRepo{listed: []models.SeatAssignmentView{
		{HallName: "Hall A", SeatNumber: "S-1", StudentCode: "S001", StudentName: "Student S001"},
	}}
	svc := NewSeatingService(
		&mockScheduleReader{schedule: scheduledSitting()},
		&mockStudentLister{}, &mockHallLister{}, &mockEligibilityChecker{},
		seats, &mockAuditWriter{}, nil, nil, zap.NewNop(),
	)

	data, err := svc.ExportRoster(context.Background(), "sch-1")
	require.NoError(t, err)
	assert.Contains(t, string(data), "Hall,Seat,Student Code,Student Name")
	assert.Contains(t, string(data), "Hall A,S-1,S001,Student S001")
}
