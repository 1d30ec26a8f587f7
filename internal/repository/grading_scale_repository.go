package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sma-exam-api/internal/models"
)

// GradingScaleRepository reads school-configured grading bands.
type GradingScaleRepository struct {
	db *sqlx.DB
}

// NewGradingScaleRepository creates a new grading scale repository.
func NewGradingScaleRepository(db *sqlx.DB) *GradingScaleRepository {
	return &GradingScaleRepository{db: db}
}

// ListBySchool returns the configured bands ordered by min_score descending,
// so the first band containing a percentage is also the most specific one.
func (r *GradingScaleRepository) ListBySchool(ctx context.Context, schoolID string) ([]models.GradingBand, error) {
	const query = `SELECT id, school_id, min_score, max_score, label, point
        FROM grading_scales WHERE school_id = $1 ORDER BY min_score DESC`
	var bands []models.GradingBand
	if err := r.db.SelectContext(ctx, &bands, query, schoolID); err != nil {
		return nil, fmt.Errorf("list grading bands: %w", err)
	}
	return bands, nil
}
