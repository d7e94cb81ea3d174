package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"github.com/sgac-unsa/sgac-api/internal/models"
)

func newAttendanceRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestAttendanceRepositorySaveMarksRecomputesInSameTx(t *testing.T) {
	db, mock, cleanup := newAttendanceRepoMock(t)
	defer cleanup()
	repo := NewAttendanceRepository(db)

	sessionDate := time.Date(2024, 8, 20, 0, 0, 0, 0, time.UTC)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO attendance_records")).
		WillReturnResult(sqlmock.NewResult(0, 1))

	// recompute reads the records back and updates the cached percentage
	// before commit
	rows := sqlmock.NewRows([]string{"id", "enrollment_id", "session_number", "session_date", "state", "recorded_by", "recorded_ip", "created_at", "updated_at"}).
		AddRow("att-1", "enr-1", 1, sessionDate, models.AttendancePresent, "prof-1", "10.1.2.3", sessionDate, sessionDate).
		AddRow("att-2", "enr-1", 2, sessionDate, models.AttendanceAbsent, "prof-1", "10.1.2.3", sessionDate, sessionDate)
	mock.ExpectQuery(regexp.QuoteMeta("FROM attendance_records WHERE enrollment_id = $1")).
		WithArgs("enr-1").
		WillReturnRows(rows)
	mock.ExpectExec(regexp.QuoteMeta("UPDATE student_enrollments SET attendance_percentage = $2")).
		WithArgs("enr-1", 50.0, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := repo.SaveMarks(context.Background(), []models.AttendanceRecord{{
		EnrollmentID:  "enr-1",
		SessionNumber: 2,
		SessionDate:   sessionDate,
		State:         models.AttendanceAbsent,
		RecordedBy:    "prof-1",
		RecordedIP:    "10.1.2.3",
	}})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAttendanceRepositoryRecomputePercentage(t *testing.T) {
	db, mock, cleanup := newAttendanceRepoMock(t)
	defer cleanup()
	repo := NewAttendanceRepository(db)

	sessionDate := time.Date(2024, 8, 20, 0, 0, 0, 0, time.UTC)

	mock.ExpectBegin()
	rows := sqlmock.NewRows([]string{"id", "enrollment_id", "session_number", "session_date", "state", "recorded_by", "recorded_ip", "created_at", "updated_at"}).
		AddRow("att-1", "enr-1", 1, sessionDate, models.AttendancePresent, "prof-1", "10.1.2.3", sessionDate, sessionDate)
	mock.ExpectQuery(regexp.QuoteMeta("FROM attendance_records WHERE enrollment_id = $1")).
		WithArgs("enr-1").
		WillReturnRows(rows)
	mock.ExpectExec(regexp.QuoteMeta("UPDATE student_enrollments SET attendance_percentage = $2")).
		WithArgs("enr-1", 100.0, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, repo.RecomputePercentage(context.Background(), "enr-1"))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAttendanceRepositorySaveMarksEmptyIsNoop(t *testing.T) {
	db, mock, cleanup := newAttendanceRepoMock(t)
	defer cleanup()
	repo := NewAttendanceRepository(db)

	require.NoError(t, repo.SaveMarks(context.Background(), nil))
	require.NoError(t, mock.ExpectationsWereMet())
}
