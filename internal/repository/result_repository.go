package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sma-exam-api/internal/models"
)

// ResultRepository handles student result summary persistence.
type ResultRepository struct {
	db *sqlx.DB
}

// NewResultRepository creates a new result repository.
func NewResultRepository(db *sqlx.DB) *ResultRepository {
	return &ResultRepository{db: db}
}

// Upsert stores one summary row keyed by (exam_id, student_id). Re-running
// with unchanged inputs produces the same stored row. Publication fields are
// deliberately left out of the update set: a re-aggregation never unpublishes.
func (r *ResultRepository) Upsert(ctx context.Context, summary *models.StudentResultSummary) error {
	if summary.ID == "" {
		summary.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if summary.CreatedAt.IsZero() {
		summary.CreatedAt = now
	}
	summary.UpdatedAt = now
	const query = `INSERT INTO student_result_summaries
        (id, exam_id, student_id, total_obtained, total_max, percentage, grade, grade_point, result_status, is_published, published_at, published_by, created_at, updated_at)
        VALUES (:id, :exam_id, :student_id, :total_obtained, :total_max, :percentage, :grade, :grade_point, :result_status, :is_published, :published_at, :published_by, :created_at, :updated_at)
        ON CONFLICT (exam_id, student_id)
        DO UPDATE SET total_obtained = EXCLUDED.total_obtained, total_max = EXCLUDED.total_max,
            percentage = EXCLUDED.percentage, grade = EXCLUDED.grade, grade_point = EXCLUDED.grade_point,
            result_status = EXCLUDED.result_status, updated_at = EXCLUDED.updated_at`
	if _, err := r.db.NamedExecContext(ctx, query, summary); err != nil {
		return fmt.Errorf("upsert result summary: %w", err)
	}
	return nil
}

// CountByExam returns the number of summary rows for an exam.
func (r *ResultRepository) CountByExam(ctx context.Context, examID string) (int, error) {
	var count int
	if err := r.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM student_result_summaries WHERE exam_id = $1`, examID); err != nil {
		return 0, fmt.Errorf("count result summaries: %w", err)
	}
	return count, nil
}

// PublishByExam flips every summary row of the exam to published in one
// statement, so the visibility change is atomic across all students.
// Returns the number of rows affected.
func (r *ResultRepository) PublishByExam(ctx context.Context, examID, publishedBy string, publishedAt time.Time) (int, error) {
	const query = `UPDATE student_result_summaries
        SET is_published = TRUE, published_at = $2, published_by = $3, updated_at = $2
        WHERE exam_id = $1 AND is_published = FALSE`
	res, err := r.db.ExecContext(ctx, query, examID, publishedAt.UTC(), publishedBy)
	if err != nil {
		return 0, fmt.Errorf("publish results: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("publish results affected rows: %w", err)
	}
	return int(affected), nil
}

// FindByExamAndStudent returns one summary row or sql.ErrNoRows.
func (r *ResultRepository) FindByExamAndStudent(ctx context.Context, examID, studentID string) (*models.StudentResultSummary, error) {
	const query = `SELECT id, exam_id, student_id, total_obtained, total_max, percentage, grade, grade_point,
        result_status, is_published, published_at, published_by, created_at, updated_at
        FROM student_result_summaries WHERE exam_id = $1 AND student_id = $2`
	var summary models.StudentResultSummary
	if err := r.db.GetContext(ctx, &summary, query, examID, studentID); err != nil {
		return nil, err
	}
	return &summary, nil
}

// IsPublished reports whether a published summary exists for (exam, student).
func (r *ResultRepository) IsPublished(ctx context.Context, examID, studentID string) (bool, error) {
	var published bool
	const query = `SELECT COALESCE(
        (SELECT is_published FROM student_result_summaries WHERE exam_id = $1 AND student_id = $2), FALSE)`
	if err := r.db.GetContext(ctx, &published, query, examID, studentID); err != nil {
		return false, fmt.Errorf("check published: %w", err)
	}
	return published, nil
}
