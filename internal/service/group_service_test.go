package service

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sgac-unsa/sgac-api/internal/models"
	appErrors "github.com/sgac-unsa/sgac-api/pkg/errors"
)

type fakeGroupStore struct {
	courseGroups map[string]models.CourseGroup
	labGroups    map[string]models.LaboratoryGroup
	schedules    map[string]models.Schedule
	nextID       int
}

func newFakeGroupStore() *fakeGroupStore {
	return &fakeGroupStore{
		courseGroups: map[string]models.CourseGroup{},
		labGroups:    map[string]models.LaboratoryGroup{},
		schedules:    map[string]models.Schedule{},
		nextID:       1,
	}
}

func (f *fakeGroupStore) ListCourseGroups(ctx context.Context, semesterID, courseID, professorID string) ([]models.CourseGroup, error) {
	var out []models.CourseGroup
	for _, g := range f.courseGroups {
		out = append(out, g)
	}
	return out, nil
}

func (f *fakeGroupStore) FindCourseGroup(ctx context.Context, id string) (*models.CourseGroup, error) {
	if g, ok := f.courseGroups[id]; ok {
		return &g, nil
	}
	return nil, sql.ErrNoRows
}

func (f *fakeGroupStore) CreateCourseGroup(ctx context.Context, group *models.CourseGroup) error {
	group.ID = "group-new"
	f.courseGroups[group.ID] = *group
	return nil
}

func (f *fakeGroupStore) ListLabGroups(ctx context.Context, courseGroupID string) ([]models.LaboratoryGroup, error) {
	var out []models.LaboratoryGroup
	for _, l := range f.labGroups {
		if l.CourseGroupID == courseGroupID {
			out = append(out, l)
		}
	}
	return out, nil
}

func (f *fakeGroupStore) FindLabGroup(ctx context.Context, id string) (*models.LaboratoryGroup, error) {
	if l, ok := f.labGroups[id]; ok {
		return &l, nil
	}
	return nil, sql.ErrNoRows
}

func (f *fakeGroupStore) CreateLabGroup(ctx context.Context, lab *models.LaboratoryGroup) error {
	lab.ID = "lab-new"
	f.labGroups[lab.ID] = *lab
	return nil
}

func (f *fakeGroupStore) DeleteLabGroup(ctx context.Context, id string) error {
	if _, ok := f.labGroups[id]; !ok {
		return sql.ErrNoRows
	}
	delete(f.labGroups, id)
	return nil
}

func (f *fakeGroupStore) ListSchedulesByGroup(ctx context.Context, kind models.GroupKind, groupID string) ([]models.Schedule, error) {
	var out []models.Schedule
	for _, sc := range f.schedules {
		if sc.GroupKind == kind && sc.GroupID == groupID {
			out = append(out, sc)
		}
	}
	return out, nil
}

func (f *fakeGroupStore) CreateSchedule(ctx context.Context, schedule *models.Schedule) error {
	schedule.ID = "sched-new"
	f.schedules[schedule.ID] = *schedule
	return nil
}

func (f *fakeGroupStore) DeleteSchedule(ctx context.Context, id string) error {
	delete(f.schedules, id)
	return nil
}

func (f *fakeGroupStore) ReplaceDaySchedules(ctx context.Context, kind models.GroupKind, groupID string, day models.DayOfWeek, schedules []models.Schedule) error {
	for id, sc := range f.schedules {
		if sc.GroupKind == kind && sc.GroupID == groupID && sc.Day == day {
			delete(f.schedules, id)
		}
	}
	for i := range schedules {
		schedules[i].ID = "sched-" + string(rune('0'+f.nextID))
		f.nextID++
		f.schedules[schedules[i].ID] = schedules[i]
	}
	return nil
}

type fakeCourseCatalog struct {
	courses map[string]models.Course
}

func (f *fakeCourseCatalog) FindByID(ctx context.Context, id string) (*models.Course, error) {
	if c, ok := f.courses[id]; ok {
		return &c, nil
	}
	return nil, sql.ErrNoRows
}

type fakeSemesterCatalog struct {
	semesters map[string]models.Semester
}

func (f *fakeSemesterCatalog) FindByID(ctx context.Context, id string) (*models.Semester, error) {
	if s, ok := f.semesters[id]; ok {
		return &s, nil
	}
	return nil, sql.ErrNoRows
}

type fakeRoomCatalog struct {
	rooms map[string]models.Classroom
}

func (f *fakeRoomCatalog) FindByID(ctx context.Context, id string) (*models.Classroom, error) {
	if r, ok := f.rooms[id]; ok {
		return &r, nil
	}
	return nil, sql.ErrNoRows
}

type fakeSlotChecker struct {
	conflicts []ScheduleConflict
}

func (f *fakeSlotChecker) CheckSlot(ctx context.Context, candidate models.Schedule, professorID, excludeID string) ([]ScheduleConflict, error) {
	return f.conflicts, nil
}

type fakeOpenCampaigns struct {
	open map[string]models.LabEnrollmentCampaign
}

func (f *fakeOpenCampaigns) FindOpenByCourseGroup(ctx context.Context, courseGroupID string) (*models.LabEnrollmentCampaign, error) {
	if c, ok := f.open[courseGroupID]; ok {
		return &c, nil
	}
	return nil, sql.ErrNoRows
}

const (
	testGroupID = "aaaaaaaa-aaaa-aaaa-aaaa-aaaaaaaaaaaa"
	testLabID   = "bbbbbbbb-bbbb-bbbb-bbbb-bbbbbbbbbbbb"
	testRoomID  = "cccccccc-cccc-cccc-cccc-cccccccccccc"
)

type groupFixture struct {
	svc       *GroupService
	store     *fakeGroupStore
	rooms     *fakeRoomCatalog
	checker   *fakeSlotChecker
	campaigns *fakeOpenCampaigns
}

func newGroupFixture() *groupFixture {
	store := newFakeGroupStore()
	store.courseGroups[testGroupID] = models.CourseGroup{
		ID: testGroupID, CourseID: "course-1", SemesterID: "sem-1",
		Nomenclature: "A", ProfessorID: "prof-1", Capacity: 60,
	}
	store.labGroups[testLabID] = models.LaboratoryGroup{
		ID: testLabID, CourseGroupID: testGroupID, Nomenclature: "L1",
		ProfessorID: "prof-2", Capacity: 30,
	}
	rooms := &fakeRoomCatalog{rooms: map[string]models.Classroom{
		testRoomID: {ID: testRoomID, Code: "A001", Type: models.ClassroomLecture, Capacity: 60, IsActive: true},
	}}
	checker := &fakeSlotChecker{}
	campaigns := &fakeOpenCampaigns{open: map[string]models.LabEnrollmentCampaign{}}
	courses := &fakeCourseCatalog{courses: map[string]models.Course{
		"course-1": {ID: "course-1", Code: "CS301", HasLab: true},
	}}
	semesters := &fakeSemesterCatalog{semesters: map[string]models.Semester{
		"sem-1": {ID: "sem-1", Name: "2024-B"},
	}}

	svc := NewGroupService(store, courses, semesters, rooms, checker, campaigns,
		models.MustTimeOfDay("07:00"), models.MustTimeOfDay("20:10"), nil, nil)
	return &groupFixture{svc: svc, store: store, rooms: rooms, checker: checker, campaigns: campaigns}
}

func TestGroupServiceCreateScheduleRejectsOutsideWindow(t *testing.T) {
	f := newGroupFixture()

	_, err := f.svc.CreateSchedule(context.Background(), models.CreateScheduleInput{
		GroupKind:   "THEORY",
		GroupID:     testGroupID,
		ClassroomID: testRoomID,
		Day:         "MONDAY",
		StartTime:   "06:00",
		EndTime:     "08:00",
	})
	require.Error(t, err)
	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr))
	require.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
}

func TestGroupServiceCreateScheduleReportsConflicts(t *testing.T) {
	f := newGroupFixture()
	f.checker.conflicts = []ScheduleConflict{
		{Kind: "CLASSROOM", ScheduleID: "other", Day: models.Monday,
			StartTime: models.MustTimeOfDay("08:00"), EndTime: models.MustTimeOfDay("10:00"),
			Detail: "classroom A001 is occupied"},
	}

	_, err := f.svc.CreateSchedule(context.Background(), models.CreateScheduleInput{
		GroupKind:   "THEORY",
		GroupID:     testGroupID,
		ClassroomID: testRoomID,
		Day:         "MONDAY",
		StartTime:   "08:00",
		EndTime:     "10:00",
	})
	require.Error(t, err)
	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr))
	require.Equal(t, appErrors.ErrScheduleConflict.Code, appErr.Code)
	require.Len(t, appErr.Violations, 1)
	require.Empty(t, f.store.schedules)
}

func TestGroupServiceLabSlotRequiresLabRoom(t *testing.T) {
	f := newGroupFixture()

	_, err := f.svc.CreateSchedule(context.Background(), models.CreateScheduleInput{
		GroupKind:   "LAB",
		GroupID:     testLabID,
		ClassroomID: testRoomID,
		Day:         "TUESDAY",
		StartTime:   "08:00",
		EndTime:     "10:00",
	})
	require.Error(t, err)
	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr))
	require.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
}

func TestGroupServiceReplaceDaySchedules(t *testing.T) {
	f := newGroupFixture()
	f.store.schedules["old-1"] = models.Schedule{
		ID: "old-1", GroupKind: models.GroupTheory, GroupID: testGroupID,
		ClassroomID: testRoomID, Day: models.Monday,
		StartTime: models.MustTimeOfDay("08:00"), EndTime: models.MustTimeOfDay("10:00"),
	}

	slots, err := f.svc.ReplaceDaySchedules(context.Background(), models.ReplaceDaySchedulesInput{
		GroupKind: "THEORY",
		GroupID:   testGroupID,
		Day:       "MONDAY",
		Slots: []models.DaySlotInput{
			{ClassroomID: testRoomID, StartTime: "10:00", EndTime: "12:00"},
			{ClassroomID: testRoomID, StartTime: "14:00", EndTime: "16:00"},
		},
	})
	require.NoError(t, err)
	require.Len(t, slots, 2)
	require.Len(t, f.store.schedules, 2)
	require.NotContains(t, f.store.schedules, "old-1")
}

func TestGroupServiceReplaceDayIgnoresReplacedSlotConflicts(t *testing.T) {
	f := newGroupFixture()
	f.store.schedules["old-1"] = models.Schedule{
		ID: "old-1", GroupKind: models.GroupTheory, GroupID: testGroupID,
		ClassroomID: testRoomID, Day: models.Monday,
		StartTime: models.MustTimeOfDay("08:00"), EndTime: models.MustTimeOfDay("10:00"),
	}
	// The checker reports the slot being replaced; that collision must not
	// block the replacement.
	f.checker.conflicts = []ScheduleConflict{
		{Kind: "CLASSROOM", ScheduleID: "old-1", Day: models.Monday,
			StartTime: models.MustTimeOfDay("08:00"), EndTime: models.MustTimeOfDay("10:00"),
			Detail: "classroom A001 is occupied"},
	}

	slots, err := f.svc.ReplaceDaySchedules(context.Background(), models.ReplaceDaySchedulesInput{
		GroupKind: "THEORY",
		GroupID:   testGroupID,
		Day:       "MONDAY",
		Slots: []models.DaySlotInput{
			{ClassroomID: testRoomID, StartTime: "08:30", EndTime: "09:30"},
		},
	})
	require.NoError(t, err)
	require.Len(t, slots, 1)
}

func TestGroupServiceReplaceDayRejectsOverlappingSlots(t *testing.T) {
	f := newGroupFixture()

	_, err := f.svc.ReplaceDaySchedules(context.Background(), models.ReplaceDaySchedulesInput{
		GroupKind: "THEORY",
		GroupID:   testGroupID,
		Day:       "MONDAY",
		Slots: []models.DaySlotInput{
			{ClassroomID: testRoomID, StartTime: "08:00", EndTime: "10:00"},
			{ClassroomID: testRoomID, StartTime: "09:00", EndTime: "11:00"},
		},
	})
	require.Error(t, err)
	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr))
	require.Equal(t, appErrors.ErrScheduleConflict.Code, appErr.Code)
}

func TestGroupServiceDeleteLabGroupBlockedByOpenCampaign(t *testing.T) {
	f := newGroupFixture()
	f.campaigns.open[testGroupID] = models.LabEnrollmentCampaign{
		ID: "camp-1", CourseGroupID: testGroupID, State: models.CampaignOpen,
	}

	err := f.svc.DeleteLabGroup(context.Background(), testLabID)
	require.Error(t, err)
	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr))
	require.Equal(t, appErrors.ErrConflict.Code, appErr.Code)
	require.Contains(t, f.store.labGroups, testLabID)
}

func TestGroupServiceDeleteLabGroup(t *testing.T) {
	f := newGroupFixture()

	require.NoError(t, f.svc.DeleteLabGroup(context.Background(), testLabID))
	require.NotContains(t, f.store.labGroups, testLabID)

	err := f.svc.DeleteLabGroup(context.Background(), testLabID)
	require.Error(t, err)
	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr))
	require.Equal(t, appErrors.ErrNotFound.Code, appErr.Code)
}
