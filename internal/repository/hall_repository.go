package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sma-exam-api/internal/models"
)

// HallRepository handles exam hall persistence.
type HallRepository struct {
	db *sqlx.DB
}

// NewHallRepository creates a new hall repository.
func NewHallRepository(db *sqlx.DB) *HallRepository {
	return &HallRepository{db: db}
}

// Create inserts a new hall.
func (r *HallRepository) Create(ctx context.Context, hall *models.Hall) error {
	if hall.ID == "" {
		hall.ID = uuid.NewString()
	}
	hall.CreatedAt = time.Now().UTC()
	const query = `INSERT INTO halls (id, school_id, name, capacity, location, created_at)
        VALUES (:id, :school_id, :name, :capacity, :location, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, hall); err != nil {
		return fmt.Errorf("create hall: %w", err)
	}
	return nil
}

// ListBySchool returns halls ordered by name ascending. The ordering is part
// of the seating contract: allocation walks halls in this order.
func (r *HallRepository) ListBySchool(ctx context.Context, schoolID string) ([]models.Hall, error) {
	const query = `SELECT id, school_id, name, capacity, location, created_at
        FROM halls WHERE school_id = $1 ORDER BY name ASC`
	var halls []models.Hall
	if err := r.db.SelectContext(ctx, &halls, query, schoolID); err != nil {
		return nil, fmt.Errorf("list halls: %w", err)
	}
	return halls, nil
}
