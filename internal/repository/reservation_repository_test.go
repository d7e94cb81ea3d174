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

func newReservationRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestReservationRepositoryListFilters(t *testing.T) {
	db, mock, cleanup := newReservationRepoMock(t)
	defer cleanup()
	repo := NewReservationRepository(db)

	rows := sqlmock.NewRows([]string{"id", "classroom_id", "requested_by", "date", "start_time", "end_time", "purpose", "status", "classroom_code", "requester_name"}).
		AddRow("res-1", "room-1", "user-1", time.Date(2025, 4, 10, 0, 0, 0, 0, time.UTC), "10:00:00", "12:00:00", "thesis defense", "PENDING", "A001", "Ana Quispe")
	mock.ExpectQuery(`SELECT .+ FROM classroom_reservations v JOIN classrooms c .+ AND v\.classroom_id = \$1 AND v\.status = \$2 ORDER BY v\.date DESC`).
		WithArgs("room-1", models.ReservationPending).
		WillReturnRows(rows)

	reservations, err := repo.List(context.Background(), models.ReservationFilter{
		ClassroomID: "room-1",
		Status:      models.ReservationPending,
	})
	require.NoError(t, err)
	require.Len(t, reservations, 1)
	require.Equal(t, "A001", reservations[0].ClassroomCode)
	require.Equal(t, models.MustTimeOfDay("10:00"), reservations[0].StartTime)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestReservationRepositoryListBlockingByClassroomDate(t *testing.T) {
	db, mock, cleanup := newReservationRepoMock(t)
	defer cleanup()
	repo := NewReservationRepository(db)

	date := time.Date(2025, 4, 10, 15, 30, 0, 0, time.UTC)
	rows := sqlmock.NewRows([]string{"id", "classroom_id", "requested_by", "date", "start_time", "end_time", "purpose", "status"}).
		AddRow("res-2", "room-1", "user-2", models.DateOnly(date), "08:00:00", "10:00:00", "faculty meeting", "APPROVED").
		AddRow("res-3", "room-1", "user-3", models.DateOnly(date), "10:00:00", "12:00:00", "tutoring", "PENDING")
	mock.ExpectQuery(`SELECT .+ FROM classroom_reservations v WHERE v\.classroom_id = \$1 AND v\.date = \$2 AND v\.status IN \('PENDING', 'APPROVED'\)`).
		WithArgs("room-1", models.DateOnly(date)).
		WillReturnRows(rows)

	reservations, err := repo.ListBlockingByClassroomDate(context.Background(), "room-1", date)
	require.NoError(t, err)
	require.Len(t, reservations, 2)
	require.Equal(t, models.ReservationApproved, reservations[0].Status)
	require.Equal(t, models.ReservationPending, reservations[1].Status)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestReservationRepositoryUpdateStatus(t *testing.T) {
	db, mock, cleanup := newReservationRepoMock(t)
	defer cleanup()
	repo := NewReservationRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE classroom_reservations SET status = $2, reviewed_by = $3, updated_at = $4 WHERE id = $1")).
		WithArgs("res-1", models.ReservationApproved, "admin-1", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.UpdateStatus(context.Background(), "res-1", models.ReservationApproved, "admin-1")
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}
