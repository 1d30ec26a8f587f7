package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sma-exam-api/internal/models"
)

// SeatAllocationRepository handles seating persistence.
type SeatAllocationRepository struct {
	db *sqlx.DB
}

// NewSeatAllocationRepository creates a new seat allocation repository.
func NewSeatAllocationRepository(db *sqlx.DB) *SeatAllocationRepository {
	return &SeatAllocationRepository{db: db}
}

// ReplaceForSchedule deletes all prior allocations for the schedule and
// inserts the new set inside one transaction. Readers never observe a
// partially applied generation run.
func (r *SeatAllocationRepository) ReplaceForSchedule(ctx context.Context, scheduleID string, allocations []models.SeatAllocation) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM seat_allocations WHERE schedule_id = $1`, scheduleID); err != nil {
		tx.Rollback() //nolint:errcheck
		return fmt.Errorf("clear seat allocations: %w", err)
	}
	const query = `INSERT INTO seat_allocations (id, schedule_id, student_id, hall_id, seat_number, created_at)
        VALUES (:id, :schedule_id, :student_id, :hall_id, :seat_number, :created_at)`
	now := time.Now().UTC()
	for i := range allocations {
		if allocations[i].ID == "" {
			allocations[i].ID = uuid.NewString()
		}
		allocations[i].ScheduleID = scheduleID
		allocations[i].CreatedAt = now
		if _, err := tx.NamedExecContext(ctx, query, allocations[i]); err != nil {
			tx.Rollback() //nolint:errcheck
			return fmt.Errorf("insert seat allocation: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit seat allocations: %w", err)
	}
	return nil
}

// ListBySchedule returns the seating plan joined with student and hall data,
// ordered by hall then seat.
func (r *SeatAllocationRepository) ListBySchedule(ctx context.Context, scheduleID string) ([]models.SeatAssignmentView, error) {
	const query = `SELECT sa.seat_number, sa.student_id, st.student_code, st.full_name AS student_name,
        sa.hall_id, h.name AS hall_name, h.location
        FROM seat_allocations sa
        JOIN students st ON st.id = sa.student_id
        JOIN halls h ON h.id = sa.hall_id
        WHERE sa.schedule_id = $1
        ORDER BY h.name ASC, st.student_code ASC`
	var seats []models.SeatAssignmentView
	if err := r.db.SelectContext(ctx, &seats, query, scheduleID); err != nil {
		return nil, fmt.Errorf("list seat allocations: %w", err)
	}
	return seats, nil
}

// FindForStudent returns the seat assigned to one student for a schedule,
// or sql.ErrNoRows when no allocation exists.
func (r *SeatAllocationRepository) FindForStudent(ctx context.Context, scheduleID, studentID string) (*models.SeatAssignmentView, error) {
	const query = `SELECT sa.seat_number, sa.student_id, st.student_code, st.full_name AS student_name,
        sa.hall_id, h.name AS hall_name, h.location
        FROM seat_allocations sa
        JOIN students st ON st.id = sa.student_id
        JOIN halls h ON h.id = sa.hall_id
        WHERE sa.schedule_id = $1 AND sa.student_id = $2`
	var seat models.SeatAssignmentView
	if err := r.db.GetContext(ctx, &seat, query, scheduleID, studentID); err != nil {
		return nil, err
	}
	return &seat, nil
}
