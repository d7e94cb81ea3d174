package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"github.com/sgac-unsa/sgac-api/internal/models"
)

func newCampaignRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestCampaignRepositoryFindOpenByCourseGroup(t *testing.T) {
	db, mock, cleanup := newCampaignRepoMock(t)
	defer cleanup()
	repo := NewCampaignRepository(db)

	now := time.Now()
	rows := sqlmock.NewRows([]string{"id", "course_group_id", "state", "opens_at", "closes_at", "created_by", "created_at", "updated_at"}).
		AddRow("camp-1", "group-1", models.CampaignOpen, now, now.AddDate(0, 0, 7), "sec-1", now, now)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, course_group_id, state, opens_at, closes_at, created_by, created_at, updated_at FROM lab_enrollment_campaigns WHERE course_group_id = $1 AND state = 'OPEN'")).
		WithArgs("group-1").
		WillReturnRows(rows)

	campaign, err := repo.FindOpenByCourseGroup(context.Background(), "group-1")
	require.NoError(t, err)
	require.Equal(t, models.CampaignOpen, campaign.State)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCampaignRepositoryFindOpenByCourseGroupNone(t *testing.T) {
	db, mock, cleanup := newCampaignRepoMock(t)
	defer cleanup()
	repo := NewCampaignRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("FROM lab_enrollment_campaigns WHERE course_group_id = $1 AND state = 'OPEN'")).
		WithArgs("group-1").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.FindOpenByCourseGroup(context.Background(), "group-1")
	require.ErrorIs(t, err, sql.ErrNoRows)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCampaignRepositoryCountPostulationsByLabGroup(t *testing.T) {
	db, mock, cleanup := newCampaignRepoMock(t)
	defer cleanup()
	repo := NewCampaignRepository(db)

	rows := sqlmock.NewRows([]string{"lab_group_id", "total"}).
		AddRow("lab-a", 12).
		AddRow("lab-b", 17)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT lab_group_id, COUNT(*) AS total FROM student_postulations WHERE campaign_id = $1 GROUP BY lab_group_id")).
		WithArgs("camp-1").
		WillReturnRows(rows)

	counts, err := repo.CountPostulationsByLabGroup(context.Background(), "camp-1")
	require.NoError(t, err)
	require.Equal(t, map[string]int{"lab-a": 12, "lab-b": 17}, counts)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCampaignRepositorySaveDirectAssignmentTransactional(t *testing.T) {
	db, mock, cleanup := newCampaignRepoMock(t)
	defer cleanup()
	repo := NewCampaignRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO student_postulations")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO lab_assignments")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE student_enrollments SET lab_assignment_id = $2")).
		WithArgs("enr-1", sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	postulation := models.StudentPostulation{
		CampaignID: "camp-1",
		StudentID:  "stu-1",
		LabGroupID: "lab-a",
		State:      models.PostulationAccepted,
	}
	assignment := models.LabAssignment{
		CampaignID: "camp-1",
		StudentID:  "stu-1",
		LabGroupID: "lab-a",
		Method:     models.AssignmentDirect,
	}
	err := repo.SaveDirectAssignment(context.Background(), &postulation, &assignment, "enr-1")
	require.NoError(t, err)
	require.NotEmpty(t, assignment.ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCampaignRepositorySaveDirectAssignmentRollsBackOnFailure(t *testing.T) {
	db, mock, cleanup := newCampaignRepoMock(t)
	defer cleanup()
	repo := NewCampaignRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO student_postulations")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO lab_assignments")).
		WillReturnError(sql.ErrConnDone)
	mock.ExpectRollback()

	postulation := models.StudentPostulation{
		CampaignID: "camp-1",
		StudentID:  "stu-1",
		LabGroupID: "lab-a",
		State:      models.PostulationAccepted,
	}
	assignment := models.LabAssignment{
		CampaignID: "camp-1",
		StudentID:  "stu-1",
		LabGroupID: "lab-a",
		Method:     models.AssignmentDirect,
	}
	err := repo.SaveDirectAssignment(context.Background(), &postulation, &assignment, "enr-1")
	require.Error(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}
