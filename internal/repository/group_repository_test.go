package repository

import (
	"context"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"github.com/sgac-unsa/sgac-api/internal/models"
)

func newGroupRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestGroupRepositoryListSchedulesForStudentIncludesPendingLabs(t *testing.T) {
	db, mock, cleanup := newGroupRepoMock(t)
	defer cleanup()
	repo := NewGroupRepository(db)

	rows := sqlmock.NewRows([]string{"id", "group_kind", "group_id", "classroom_id", "day", "start_time", "end_time", "classroom_code"}).
		AddRow("sched-1", "THEORY", "group-1", "room-1", "MONDAY", "08:00:00", "10:00:00", "A001").
		AddRow("sched-2", "LAB", "lab-g1", "room-2", "WEDNESDAY", "14:00:00", "16:00:00", "L001")
	mock.ExpectQuery(`SELECT .+ FROM schedules sc JOIN classrooms r ON r\.id = sc\.classroom_id WHERE .+lab_assignments.+ OR \(sc\.group_kind = 'LAB' AND sc\.group_id IN \(SELECT lab_group_id FROM student_postulations WHERE student_id = \$1 AND state = 'PENDING'\)\)`).
		WithArgs("stu-1").
		WillReturnRows(rows)

	schedules, err := repo.ListSchedulesForStudent(context.Background(), "stu-1")
	require.NoError(t, err)
	require.Len(t, schedules, 2)
	require.Equal(t, models.GroupLab, schedules[1].GroupKind)
	require.NoError(t, mock.ExpectationsWereMet())
}
