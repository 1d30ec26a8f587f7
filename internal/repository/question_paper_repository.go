package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sma-exam-api/internal/models"
)

// QuestionPaperRepository handles question paper version persistence.
type QuestionPaperRepository struct {
	db *sqlx.DB
}

// NewQuestionPaperRepository creates a new question paper repository.
func NewQuestionPaperRepository(db *sqlx.DB) *QuestionPaperRepository {
	return &QuestionPaperRepository{db: db}
}

// FindLatestBySchedule returns the highest-version paper for a schedule,
// or sql.ErrNoRows when none exists.
func (r *QuestionPaperRepository) FindLatestBySchedule(ctx context.Context, scheduleID string) (*models.ExamQuestionPaper, error) {
	const query = `SELECT id, schedule_id, version, status, file_ref, uploaded_by, locked_at, created_at
        FROM exam_question_papers WHERE schedule_id = $1 ORDER BY version DESC LIMIT 1`
	var paper models.ExamQuestionPaper
	if err := r.db.GetContext(ctx, &paper, query, scheduleID); err != nil {
		return nil, err
	}
	return &paper, nil
}

// Create inserts a new paper version.
func (r *QuestionPaperRepository) Create(ctx context.Context, paper *models.ExamQuestionPaper) error {
	if paper.ID == "" {
		paper.ID = uuid.NewString()
	}
	paper.CreatedAt = time.Now().UTC()
	const query = `INSERT INTO exam_question_papers (id, schedule_id, version, status, file_ref, uploaded_by, locked_at, created_at)
        VALUES (:id, :schedule_id, :version, :status, :file_ref, :uploaded_by, :locked_at, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, paper); err != nil {
		return fmt.Errorf("create question paper: %w", err)
	}
	return nil
}

// Lock marks the paper LOCKED with a timestamp. LOCKED is terminal.
func (r *QuestionPaperRepository) Lock(ctx context.Context, id string, lockedAt time.Time) error {
	const query = `UPDATE exam_question_papers SET status = $1, locked_at = $2 WHERE id = $3`
	if _, err := r.db.ExecContext(ctx, query, models.PaperStatusLocked, lockedAt.UTC(), id); err != nil {
		return fmt.Errorf("lock question paper: %w", err)
	}
	return nil
}

// ListBySchedule returns all versions for a schedule, newest first.
func (r *QuestionPaperRepository) ListBySchedule(ctx context.Context, scheduleID string) ([]models.ExamQuestionPaper, error) {
	const query = `SELECT id, schedule_id, version, status, file_ref, uploaded_by, locked_at, created_at
        FROM exam_question_papers WHERE schedule_id = $1 ORDER BY version DESC`
	var papers []models.ExamQuestionPaper
	if err := r.db.SelectContext(ctx, &papers, query, scheduleID); err != nil {
		return nil, fmt.Errorf("list question papers: %w", err)
	}
	return papers, nil
}
