package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sgac-unsa/sgac-api/internal/models"
	appErrors "github.com/sgac-unsa/sgac-api/pkg/errors"
)

type fakeEnrollmentStore struct {
	enrollments map[string]models.StudentEnrollment
}

func newFakeEnrollmentStore() *fakeEnrollmentStore {
	return &fakeEnrollmentStore{enrollments: make(map[string]models.StudentEnrollment)}
}

func (m *fakeEnrollmentStore) FindByID(ctx context.Context, id string) (*models.StudentEnrollment, error) {
	e, ok := m.enrollments[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &e, nil
}

func (m *fakeEnrollmentStore) FindByStudentAndGroup(ctx context.Context, studentID, courseGroupID string) (*models.StudentEnrollment, error) {
	for _, e := range m.enrollments {
		if e.StudentID == studentID && e.CourseGroupID == courseGroupID {
			enrollment := e
			return &enrollment, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *fakeEnrollmentStore) ListByGroup(ctx context.Context, courseGroupID string) ([]models.StudentEnrollment, error) {
	var out []models.StudentEnrollment
	for _, e := range m.enrollments {
		if e.CourseGroupID == courseGroupID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (m *fakeEnrollmentStore) ListByStudent(ctx context.Context, studentID string) ([]models.StudentEnrollment, error) {
	var out []models.StudentEnrollment
	for _, e := range m.enrollments {
		if e.StudentID == studentID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (m *fakeEnrollmentStore) CountActiveByGroup(ctx context.Context, courseGroupID string) (int, error) {
	count := 0
	for _, e := range m.enrollments {
		if e.CourseGroupID == courseGroupID && e.Status == models.EnrollmentActive {
			count++
		}
	}
	return count, nil
}

func (m *fakeEnrollmentStore) Create(ctx context.Context, enrollment *models.StudentEnrollment) error {
	if enrollment.ID == "" {
		enrollment.ID = uuid.NewString()
	}
	m.enrollments[enrollment.ID] = *enrollment
	return nil
}

func (m *fakeEnrollmentStore) UpdateStatus(ctx context.Context, id string, status models.EnrollmentStatus) error {
	e := m.enrollments[id]
	e.Status = status
	m.enrollments[id] = e
	return nil
}

func enrollmentServiceFixture(capacity int) (*EnrollmentService, *fakeEnrollmentStore, string) {
	store := newFakeEnrollmentStore()
	groups := newFakeGroupRepo()
	groupID := uuid.NewString()
	groups.courseGroups[groupID] = models.CourseGroup{ID: groupID, CourseID: "course-1", Capacity: capacity}
	svc := NewEnrollmentService(store, groups, 70, 30, nil, nil)
	return svc, store, groupID
}

func TestEnrollHappyPath(t *testing.T) {
	svc, _, groupID := enrollmentServiceFixture(30)

	enrollment, err := svc.Enroll(context.Background(), models.EnrollStudentInput{
		StudentID: uuid.NewString(), CourseGroupID: groupID,
	})
	require.NoError(t, err)
	assert.Equal(t, models.EnrollmentActive, enrollment.Status)
}

func TestEnrollRejectsDuplicate(t *testing.T) {
	svc, _, groupID := enrollmentServiceFixture(30)
	studentID := uuid.NewString()

	_, err := svc.Enroll(context.Background(), models.EnrollStudentInput{StudentID: studentID, CourseGroupID: groupID})
	require.NoError(t, err)

	_, err = svc.Enroll(context.Background(), models.EnrollStudentInput{StudentID: studentID, CourseGroupID: groupID})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
}

func TestEnrollRejectsFullGroup(t *testing.T) {
	svc, _, groupID := enrollmentServiceFixture(1)

	_, err := svc.Enroll(context.Background(), models.EnrollStudentInput{StudentID: uuid.NewString(), CourseGroupID: groupID})
	require.NoError(t, err)

	_, err = svc.Enroll(context.Background(), models.EnrollStudentInput{StudentID: uuid.NewString(), CourseGroupID: groupID})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
}

func TestWithdrawOnlyActive(t *testing.T) {
	svc, store, groupID := enrollmentServiceFixture(30)

	enrollment, err := svc.Enroll(context.Background(), models.EnrollStudentInput{StudentID: uuid.NewString(), CourseGroupID: groupID})
	require.NoError(t, err)

	require.NoError(t, svc.Withdraw(context.Background(), enrollment.ID))
	assert.Equal(t, models.EnrollmentWithdrawn, store.enrollments[enrollment.ID].Status)

	err = svc.Withdraw(context.Background(), enrollment.ID)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
}

func TestDashboardRiskLevels(t *testing.T) {
	svc, store, groupID := enrollmentServiceFixture(30)
	studentID := uuid.NewString()

	for i, pct := range []float64{85, 45, 10} {
		id := uuid.NewString()
		store.enrollments[id] = models.StudentEnrollment{
			ID:                   id,
			StudentID:            studentID,
			CourseGroupID:        groupID,
			Status:               models.EnrollmentActive,
			AttendancePercentage: pct,
			CourseCode:           []string{"CS101", "CS102", "CS103"}[i],
		}
	}

	summaries, err := svc.Dashboard(context.Background(), studentID)
	require.NoError(t, err)
	require.Len(t, summaries, 3)

	levels := make(map[string]string)
	for _, summary := range summaries {
		levels[summary.Enrollment.CourseCode] = summary.RiskLevel
	}
	assert.Equal(t, models.RiskApproved, levels["CS101"])
	assert.Equal(t, models.RiskAtRisk, levels["CS102"])
	assert.Equal(t, models.RiskCritical, levels["CS103"])
}
