package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sma-exam-api/internal/models"
)

// ScheduleRepository handles exam schedule persistence.
type ScheduleRepository struct {
	db *sqlx.DB
}

// NewScheduleRepository creates a new schedule repository.
func NewScheduleRepository(db *sqlx.DB) *ScheduleRepository {
	return &ScheduleRepository{db: db}
}

const scheduleColumns = `es.id, es.exam_id, es.subject_id, sub.name AS subject_name, sub.class_id,
        es.exam_date, es.start_time, es.end_time, es.max_marks, es.passing_marks, es.status, es.created_at, es.updated_at`

// Create inserts a new schedule. The (exam_id, subject_id) unique constraint
// surfaces as a unique violation which callers map to a conflict.
func (r *ScheduleRepository) Create(ctx context.Context, schedule *models.ExamSchedule) error {
	if schedule.ID == "" {
		schedule.ID = uuid.NewString()
	}
	if schedule.Status == "" {
		schedule.Status = models.ScheduleStatusScheduled
	}
	now := time.Now().UTC()
	schedule.CreatedAt = now
	schedule.UpdatedAt = now
	const query = `INSERT INTO exam_schedules (id, exam_id, subject_id, exam_date, start_time, end_time, max_marks, passing_marks, status, created_at, updated_at)
        VALUES (:id, :exam_id, :subject_id, :exam_date, :start_time, :end_time, :max_marks, :passing_marks, :status, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, schedule); err != nil {
		return fmt.Errorf("create schedule: %w", err)
	}
	return nil
}

// FindByID returns one schedule with subject and class metadata, or sql.ErrNoRows.
func (r *ScheduleRepository) FindByID(ctx context.Context, id string) (*models.ExamSchedule, error) {
	query := fmt.Sprintf(`SELECT %s FROM exam_schedules es
        JOIN subjects sub ON sub.id = es.subject_id
        WHERE es.id = $1`, scheduleColumns)
	var schedule models.ExamSchedule
	if err := r.db.GetContext(ctx, &schedule, query, id); err != nil {
		return nil, err
	}
	return &schedule, nil
}

// ListByExam returns all schedules of an exam ordered by exam date.
func (r *ScheduleRepository) ListByExam(ctx context.Context, examID string) ([]models.ExamSchedule, error) {
	query := fmt.Sprintf(`SELECT %s FROM exam_schedules es
        JOIN subjects sub ON sub.id = es.subject_id
        WHERE es.exam_id = $1 ORDER BY es.exam_date ASC, sub.name ASC`, scheduleColumns)
	var schedules []models.ExamSchedule
	if err := r.db.SelectContext(ctx, &schedules, query, examID); err != nil {
		return nil, fmt.Errorf("list schedules: %w", err)
	}
	return schedules, nil
}
