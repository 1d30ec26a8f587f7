package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sma-exam-api/internal/models"
)

// StudentRepository reads class rosters. Managed by admissions; read-only here.
type StudentRepository struct {
	db *sqlx.DB
}

// NewStudentRepository creates a new student repository.
func NewStudentRepository(db *sqlx.DB) *StudentRepository {
	return &StudentRepository{db: db}
}

// ListByClass returns active students of a class ordered by student_code
// ascending. The ordering is part of the seating contract: generation is
// reproducible only because this list is stable.
func (r *StudentRepository) ListByClass(ctx context.Context, schoolID, classID string) ([]models.Student, error) {
	const query = `SELECT id, school_id, student_code, full_name, class_id, active, created_at
        FROM students WHERE school_id = $1 AND class_id = $2 AND active = TRUE
        ORDER BY student_code ASC`
	var students []models.Student
	if err := r.db.SelectContext(ctx, &students, query, schoolID, classID); err != nil {
		return nil, fmt.Errorf("list students: %w", err)
	}
	return students, nil
}

// FindByID returns one student or sql.ErrNoRows.
func (r *StudentRepository) FindByID(ctx context.Context, id string) (*models.Student, error) {
	const query = `SELECT id, school_id, student_code, full_name, class_id, active, created_at
        FROM students WHERE id = $1`
	var student models.Student
	if err := r.db.GetContext(ctx, &student, query, id); err != nil {
		return nil, err
	}
	return &student, nil
}
