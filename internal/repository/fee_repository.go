package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sma-exam-api/internal/models"
)

// FeeRepository aggregates fee assignments and payments for eligibility
// checks. Fee capture is handled by the finance collaborator; read-only here.
type FeeRepository struct {
	db *sqlx.DB
}

// NewFeeRepository creates a new fee repository.
func NewFeeRepository(db *sqlx.DB) *FeeRepository {
	return &FeeRepository{db: db}
}

// BalancesByStudents returns per-student fee aggregates. Students without any
// assignment are absent from the map and carry a zero balance.
func (r *FeeRepository) BalancesByStudents(ctx context.Context, studentIDs []string) (map[string]models.FeeBalance, error) {
	if len(studentIDs) == 0 {
		return map[string]models.FeeBalance{}, nil
	}
	placeholders := make([]string, len(studentIDs))
	args := make([]interface{}, len(studentIDs))
	for i, id := range studentIDs {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
		args[i] = id
	}
	in := strings.Join(placeholders, ",")
	query := fmt.Sprintf(`SELECT fa.student_id,
        COALESCE(SUM(fa.amount), 0) AS assigned,
        COALESCE((SELECT SUM(p.amount) FROM fee_payments p WHERE p.student_id = fa.student_id), 0) AS paid
        FROM fee_assignments fa
        WHERE fa.student_id IN (%s)
        GROUP BY fa.student_id`, in)
	rows, err := r.db.QueryxContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("fee balances: %w", err)
	}
	defer rows.Close()
	result := make(map[string]models.FeeBalance, len(studentIDs))
	for rows.Next() {
		var balance models.FeeBalance
		if err := rows.StructScan(&balance); err != nil {
			return nil, fmt.Errorf("scan fee balance: %w", err)
		}
		result[balance.StudentID] = balance
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate fee balances: %w", err)
	}
	return result, nil
}
