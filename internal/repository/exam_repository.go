package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/sma-exam-api/internal/models"
)

// IsUniqueViolation reports whether err is a PostgreSQL unique constraint error.
func IsUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}

// ExamRepository handles exam persistence.
type ExamRepository struct {
	db *sqlx.DB
}

// NewExamRepository creates a new exam repository.
func NewExamRepository(db *sqlx.DB) *ExamRepository {
	return &ExamRepository{db: db}
}

// Create inserts a new exam in SCHEDULED status.
func (r *ExamRepository) Create(ctx context.Context, exam *models.Exam) error {
	if exam.ID == "" {
		exam.ID = uuid.NewString()
	}
	if exam.Status == "" {
		exam.Status = models.ExamStatusScheduled
	}
	now := time.Now().UTC()
	exam.CreatedAt = now
	exam.UpdatedAt = now
	const query = `INSERT INTO exams (id, school_id, academic_year_id, name, start_date, end_date, status, created_by, created_at, updated_at)
        VALUES (:id, :school_id, :academic_year_id, :name, :start_date, :end_date, :status, :created_by, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, exam); err != nil {
		return fmt.Errorf("create exam: %w", err)
	}
	return nil
}

// FindByID returns one exam or sql.ErrNoRows.
func (r *ExamRepository) FindByID(ctx context.Context, id string) (*models.Exam, error) {
	const query = `SELECT id, school_id, academic_year_id, name, start_date, end_date, status, created_by, created_at, updated_at
        FROM exams WHERE id = $1`
	var exam models.Exam
	if err := r.db.GetContext(ctx, &exam, query, id); err != nil {
		return nil, err
	}
	return &exam, nil
}

// UpdateStatus moves the exam to a new lifecycle status.
func (r *ExamRepository) UpdateStatus(ctx context.Context, id string, status models.ExamStatus) error {
	const query = `UPDATE exams SET status = $1, updated_at = $2 WHERE id = $3`
	if _, err := r.db.ExecContext(ctx, query, status, time.Now().UTC(), id); err != nil {
		return fmt.Errorf("update exam status: %w", err)
	}
	return nil
}

// List returns exams for a school, newest first.
func (r *ExamRepository) List(ctx context.Context, schoolID string) ([]models.Exam, error) {
	const query = `SELECT id, school_id, academic_year_id, name, start_date, end_date, status, created_by, created_at, updated_at
        FROM exams WHERE school_id = $1 ORDER BY start_date DESC`
	var exams []models.Exam
	if err := r.db.SelectContext(ctx, &exams, query, schoolID); err != nil {
		return nil, fmt.Errorf("list exams: %w", err)
	}
	return exams, nil
}
