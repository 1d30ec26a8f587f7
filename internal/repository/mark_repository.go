package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sma-exam-api/internal/models"
)

// MarkRepository reads entered marks. Marks are written by the marks-entry
// collaborator; this engine never mutates them.
type MarkRepository struct {
	db *sqlx.DB
}

// NewMarkRepository creates a new mark repository.
func NewMarkRepository(db *sqlx.DB) *MarkRepository {
	return &MarkRepository{db: db}
}

// ListByExamAndStudent returns all marks one student received in an exam.
func (r *MarkRepository) ListByExamAndStudent(ctx context.Context, examID, studentID string) ([]models.Mark, error) {
	const query = `SELECT id, exam_id, student_id, subject_id, marks_obtained, entered_by, created_at, updated_at
        FROM marks WHERE exam_id = $1 AND student_id = $2`
	var marks []models.Mark
	if err := r.db.SelectContext(ctx, &marks, query, examID, studentID); err != nil {
		return nil, fmt.Errorf("list marks: %w", err)
	}
	return marks, nil
}
