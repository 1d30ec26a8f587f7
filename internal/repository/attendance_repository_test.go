package repository

import (
	"context"
	"errors"
	"regexp"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"
)

func newAttendanceRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestAttendanceSummaryByStudents(t *testing.T) {
	db, mock, cleanup := newAttendanceRepoMock(t)
	defer cleanup()

	repo := NewAttendanceRepository(db)
	rows := sqlmock.NewRows([]string{"student_id", "total", "attended"}).
		AddRow("stu-1", 40, 36).
		AddRow("stu-2", 40, 20)
	mock.ExpectQuery(regexp.QuoteMeta("FROM attendance_records")).
		WithArgs("stu-1", "stu-2", "ay-1").
		WillReturnRows(rows)

	summaries, err := repo.SummaryByStudents(context.Background(), []string{"stu-1", "stu-2"}, "ay-1")
	require.NoError(t, err)
	require.Len(t, summaries, 2)
	require.Equal(t, 36, summaries["stu-1"].Attended)
	require.Equal(t, 40, summaries["stu-2"].Total)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAttendanceSummaryRowErrorPropagates(t *testing.T) {
	db, mock, cleanup := newAttendanceRepoMock(t)
	defer cleanup()

	repo := NewAttendanceRepository(db)
	streamErr := errors.New("connection reset mid-stream")
	rows := sqlmock.NewRows([]string{"student_id", "total", "attended"}).
		AddRow("stu-1", 40, 36).
		AddRow("stu-2", 40, 20).
		RowError(1, streamErr)
	mock.ExpectQuery(regexp.QuoteMeta("FROM attendance_records")).
		WithArgs("stu-1", "stu-2", "ay-1").
		WillReturnRows(rows)

	summaries, err := repo.SummaryByStudents(context.Background(), []string{"stu-1", "stu-2"}, "ay-1")
	require.Error(t, err)
	require.ErrorIs(t, err, streamErr)
	require.Nil(t, summaries)
	require.NoError(t, mock.ExpectationsWereMet())
}
