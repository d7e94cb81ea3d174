package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"github.com/sgac-unsa/sgac-api/internal/models"
)

func newClassroomRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestClassroomRepositoryNextCodeFirstRoom(t *testing.T) {
	db, mock, cleanup := newClassroomRepoMock(t)
	defer cleanup()
	repo := NewClassroomRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT code FROM classrooms WHERE type = $1 ORDER BY code DESC LIMIT 1")).
		WithArgs(models.ClassroomLecture).
		WillReturnError(sql.ErrNoRows)

	code, err := repo.NextCode(context.Background(), models.ClassroomLecture)
	require.NoError(t, err)
	require.Equal(t, "A001", code)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestClassroomRepositoryNextCodeIncrements(t *testing.T) {
	db, mock, cleanup := newClassroomRepoMock(t)
	defer cleanup()
	repo := NewClassroomRepository(db)

	rows := sqlmock.NewRows([]string{"code"}).AddRow("L007")
	mock.ExpectQuery(regexp.QuoteMeta("SELECT code FROM classrooms WHERE type = $1 ORDER BY code DESC LIMIT 1")).
		WithArgs(models.ClassroomLaboratory).
		WillReturnRows(rows)

	code, err := repo.NextCode(context.Background(), models.ClassroomLaboratory)
	require.NoError(t, err)
	require.Equal(t, "L008", code)
	require.NoError(t, mock.ExpectationsWereMet())
}
