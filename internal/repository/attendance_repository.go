package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sma-exam-api/internal/models"
)

// AttendanceRepository aggregates attendance records for eligibility checks.
// Records are written by the attendance collaborator; read-only here.
type AttendanceRepository struct {
	db *sqlx.DB
}

// NewAttendanceRepository creates a new attendance repository.
func NewAttendanceRepository(db *sqlx.DB) *AttendanceRepository {
	return &AttendanceRepository{db: db}
}

// SummaryByStudents returns per-student attendance aggregates scoped to
// sessions in one academic year. Students with no records are absent from the
// map. Present, late and excused statuses count as attended, case-insensitive.
func (r *AttendanceRepository) SummaryByStudents(ctx context.Context, studentIDs []string, academicYearID string) (map[string]models.AttendanceSummary, error) {
	if len(studentIDs) == 0 {
		return map[string]models.AttendanceSummary{}, nil
	}
	placeholders := make([]string, len(studentIDs))
	args := make([]interface{}, len(studentIDs)+1)
	for i, id := range studentIDs {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
		args[i] = id
	}
	args[len(args)-1] = academicYearID
	query := fmt.Sprintf(`SELECT a.student_id,
        COUNT(*) AS total,
        COUNT(*) FILTER (WHERE LOWER(a.status) IN ('present', 'late', 'excused')) AS attended
        FROM attendance_records a
        JOIN class_sessions cs ON cs.id = a.session_id
        WHERE a.student_id IN (%s) AND cs.academic_year_id = $%d
        GROUP BY a.student_id`, strings.Join(placeholders, ","), len(args))
	rows, err := r.db.QueryxContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("attendance summary: %w", err)
	}
	defer rows.Close()
	result := make(map[string]models.AttendanceSummary, len(studentIDs))
	for rows.Next() {
		var summary models.AttendanceSummary
		if err := rows.StructScan(&summary); err != nil {
			return nil, fmt.Errorf("scan attendance summary: %w", err)
		}
		result[summary.StudentID] = summary
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate attendance summary: %w", err)
	}
	return result, nil
}
