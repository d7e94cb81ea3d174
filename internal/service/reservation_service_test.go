package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sgac-unsa/sgac-api/internal/models"
	appErrors "github.com/sgac-unsa/sgac-api/pkg/errors"
)

type fakeReservationRepo struct {
	reservations map[string]models.ClassroomReservation
}

func newFakeReservationRepo() *fakeReservationRepo {
	return &fakeReservationRepo{reservations: make(map[string]models.ClassroomReservation)}
}

func (m *fakeReservationRepo) List(ctx context.Context, filter models.ReservationFilter) ([]models.ClassroomReservation, error) {
	var out []models.ClassroomReservation
	for _, r := range m.reservations {
		out = append(out, r)
	}
	return out, nil
}

func (m *fakeReservationRepo) FindByID(ctx context.Context, id string) (*models.ClassroomReservation, error) {
	r, ok := m.reservations[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &r, nil
}

func (m *fakeReservationRepo) ListBlockingByClassroomDate(ctx context.Context, classroomID string, date time.Time) ([]models.ClassroomReservation, error) {
	var out []models.ClassroomReservation
	for _, r := range m.reservations {
		if r.ClassroomID != classroomID || !r.Date.Equal(models.DateOnly(date)) {
			continue
		}
		if r.Status == models.ReservationPending || r.Status == models.ReservationApproved {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *fakeReservationRepo) Create(ctx context.Context, reservation *models.ClassroomReservation) error {
	if reservation.ID == "" {
		reservation.ID = uuid.NewString()
	}
	m.reservations[reservation.ID] = *reservation
	return nil
}

func (m *fakeReservationRepo) UpdateStatus(ctx context.Context, id string, status models.ReservationStatus, reviewedBy string) error {
	r := m.reservations[id]
	r.Status = status
	r.ReviewedBy = &reviewedBy
	m.reservations[id] = r
	return nil
}

type fakeRoomFinder struct {
	classrooms map[string]models.Classroom
	free       bool
}

func (m *fakeRoomFinder) FindByID(ctx context.Context, id string) (*models.Classroom, error) {
	room, ok := m.classrooms[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &room, nil
}

func (m *fakeRoomFinder) RoomFree(ctx context.Context, classroomID string, day models.DayOfWeek, start, end models.TimeOfDay, date *time.Time, excludeReservationID string) (bool, error) {
	return m.free, nil
}

type reservationFixture struct {
	svc    *ReservationService
	repo   *fakeReservationRepo
	rooms  *fakeRoomFinder
	roomID string
}

func newReservationFixture() *reservationFixture {
	roomID := uuid.NewString()
	room := models.Classroom{ID: roomID, Code: "A001", Type: models.ClassroomLecture, Capacity: 40, IsActive: true}
	rooms := &fakeRoomFinder{classrooms: map[string]models.Classroom{roomID: room}, free: true}
	repo := newFakeReservationRepo()
	svc := NewReservationService(repo, rooms, rooms,
		models.MustTimeOfDay("07:00"), models.MustTimeOfDay("20:10"),
		time.Hour, nil, nil)
	svc.now = func() time.Time { return time.Date(2024, 9, 2, 12, 0, 0, 0, time.UTC) }
	return &reservationFixture{svc: svc, repo: repo, rooms: rooms, roomID: roomID}
}

func TestReservationCreatePending(t *testing.T) {
	f := newReservationFixture()

	reservation, err := f.svc.Create(context.Background(), "user-1", models.CreateReservationInput{
		ClassroomID: f.roomID,
		Date:        "2024-09-03",
		StartTime:   "10:00",
		EndTime:     "12:00",
		Purpose:     "thesis defense",
	})
	require.NoError(t, err)
	assert.Equal(t, models.ReservationPending, reservation.Status)
	assert.Equal(t, "user-1", reservation.RequestedBy)
}

func TestReservationCreateAccumulatesViolations(t *testing.T) {
	f := newReservationFixture()

	// before opening, under an hour, and in the past: all three at once
	_, err := f.svc.Create(context.Background(), "user-1", models.CreateReservationInput{
		ClassroomID: f.roomID,
		Date:        "2024-08-30",
		StartTime:   "06:00",
		EndTime:     "06:30",
		Purpose:     "makeup lecture",
	})
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	require.Len(t, appErr.Violations, 3)
	codes := make([]string, 0, 3)
	for _, v := range appErr.Violations {
		codes = append(codes, v.Code)
	}
	assert.Contains(t, codes, appErrors.CodeOutsideOperatingHours)
	assert.Contains(t, codes, appErrors.CodeReservationTooShort)
	assert.Contains(t, codes, appErrors.CodePastDate)
}

func TestReservationCreateRejectsBusyRoom(t *testing.T) {
	f := newReservationFixture()
	f.rooms.free = false

	_, err := f.svc.Create(context.Background(), "user-1", models.CreateReservationInput{
		ClassroomID: f.roomID,
		Date:        "2024-09-03",
		StartTime:   "10:00",
		EndTime:     "12:00",
		Purpose:     "seminar",
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrRoomUnavailable.Code, appErrors.FromError(err).Code)
}

func TestReservationApproveRechecksAvailability(t *testing.T) {
	f := newReservationFixture()

	reservation, err := f.svc.Create(context.Background(), "user-1", models.CreateReservationInput{
		ClassroomID: f.roomID,
		Date:        "2024-09-03",
		StartTime:   "10:00",
		EndTime:     "12:00",
		Purpose:     "seminar",
	})
	require.NoError(t, err)

	// the window was taken between request and review
	f.rooms.free = false
	_, err = f.svc.Approve(context.Background(), reservation.ID, "admin-1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrRoomUnavailable.Code, appErrors.FromError(err).Code)

	f.rooms.free = true
	approved, err := f.svc.Approve(context.Background(), reservation.ID, "admin-1")
	require.NoError(t, err)
	assert.Equal(t, models.ReservationApproved, approved.Status)
	require.NotNil(t, approved.ReviewedBy)
	assert.Equal(t, "admin-1", *approved.ReviewedBy)
}

func TestReservationPendingBlocksOverlap(t *testing.T) {
	f := newReservationFixture()

	// Sunday has no weekly slots, so availability rests on reservations
	// alone
	first, err := f.svc.Create(context.Background(), "user-1", models.CreateReservationInput{
		ClassroomID: f.roomID,
		Date:        "2024-09-08",
		StartTime:   "10:00",
		EndTime:     "12:00",
		Purpose:     "study group",
	})
	require.NoError(t, err)

	// a second requester cannot grab the window while the first request
	// is still pending
	_, err = f.svc.Create(context.Background(), "user-2", models.CreateReservationInput{
		ClassroomID: f.roomID,
		Date:        "2024-09-08",
		StartTime:   "11:00",
		EndTime:     "13:00",
		Purpose:     "rehearsal",
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrRoomUnavailable.Code, appErrors.FromError(err).Code)

	// the pending request does not block its own approval
	approved, err := f.svc.Approve(context.Background(), first.ID, "admin-1")
	require.NoError(t, err)
	assert.Equal(t, models.ReservationApproved, approved.Status)
}

func TestReservationRejectRequiresPending(t *testing.T) {
	f := newReservationFixture()

	reservation, err := f.svc.Create(context.Background(), "user-1", models.CreateReservationInput{
		ClassroomID: f.roomID,
		Date:        "2024-09-03",
		StartTime:   "10:00",
		EndTime:     "12:00",
		Purpose:     "seminar",
	})
	require.NoError(t, err)

	_, err = f.svc.Reject(context.Background(), reservation.ID, "admin-1")
	require.NoError(t, err)

	_, err = f.svc.Reject(context.Background(), reservation.ID, "admin-1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
}

func TestReservationCancelOnlyByRequester(t *testing.T) {
	f := newReservationFixture()

	reservation, err := f.svc.Create(context.Background(), "user-1", models.CreateReservationInput{
		ClassroomID: f.roomID,
		Date:        "2024-09-03",
		StartTime:   "10:00",
		EndTime:     "12:00",
		Purpose:     "seminar",
	})
	require.NoError(t, err)

	err = f.svc.Cancel(context.Background(), reservation.ID, "user-2")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)

	require.NoError(t, f.svc.Cancel(context.Background(), reservation.ID, "user-1"))
	stored, err := f.repo.FindByID(context.Background(), reservation.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ReservationCancelled, stored.Status)
}
