package service

import (
	"context"
	"database/sql"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sgac-unsa/sgac-api/internal/models"
	appErrors "github.com/sgac-unsa/sgac-api/pkg/errors"
)

type fakeCampaignRepo struct {
	campaigns    map[string]models.LabEnrollmentCampaign
	postulations map[string]models.StudentPostulation
	assignments  []models.LabAssignment
	linked       map[string]string
}

func newFakeCampaignRepo() *fakeCampaignRepo {
	return &fakeCampaignRepo{
		campaigns:    make(map[string]models.LabEnrollmentCampaign),
		postulations: make(map[string]models.StudentPostulation),
		linked:       make(map[string]string),
	}
}

func (m *fakeCampaignRepo) FindByID(ctx context.Context, id string) (*models.LabEnrollmentCampaign, error) {
	c, ok := m.campaigns[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &c, nil
}

func (m *fakeCampaignRepo) FindOpenByCourseGroup(ctx context.Context, courseGroupID string) (*models.LabEnrollmentCampaign, error) {
	for _, c := range m.campaigns {
		if c.CourseGroupID == courseGroupID && c.State == models.CampaignOpen {
			campaign := c
			return &campaign, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *fakeCampaignRepo) ListByCourseGroup(ctx context.Context, courseGroupID string) ([]models.LabEnrollmentCampaign, error) {
	var out []models.LabEnrollmentCampaign
	for _, c := range m.campaigns {
		if c.CourseGroupID == courseGroupID {
			out = append(out, c)
		}
	}
	return out, nil
}

func (m *fakeCampaignRepo) Create(ctx context.Context, campaign *models.LabEnrollmentCampaign) error {
	if campaign.ID == "" {
		campaign.ID = "camp-" + campaign.CourseGroupID
	}
	m.campaigns[campaign.ID] = *campaign
	return nil
}

func (m *fakeCampaignRepo) UpdateState(ctx context.Context, id string, state models.CampaignState) error {
	c := m.campaigns[id]
	c.State = state
	m.campaigns[id] = c
	return nil
}

func (m *fakeCampaignRepo) FindPostulation(ctx context.Context, campaignID, studentID string) (*models.StudentPostulation, error) {
	for _, p := range m.postulations {
		if p.CampaignID == campaignID && p.StudentID == studentID {
			postulation := p
			return &postulation, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *fakeCampaignRepo) ListPostulations(ctx context.Context, campaignID string) ([]models.StudentPostulation, error) {
	var out []models.StudentPostulation
	for _, p := range m.postulations {
		if p.CampaignID == campaignID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (m *fakeCampaignRepo) CountPostulationsByLabGroup(ctx context.Context, campaignID string) (map[string]int, error) {
	counts := make(map[string]int)
	for _, p := range m.postulations {
		if p.CampaignID == campaignID {
			counts[p.LabGroupID]++
		}
	}
	return counts, nil
}

func (m *fakeCampaignRepo) CreatePostulation(ctx context.Context, postulation *models.StudentPostulation) error {
	if postulation.ID == "" {
		postulation.ID = "post-" + postulation.StudentID
	}
	m.postulations[postulation.ID] = *postulation
	return nil
}

func (m *fakeCampaignRepo) ListAssignments(ctx context.Context, campaignID string) ([]models.LabAssignment, error) {
	var out []models.LabAssignment
	for _, a := range m.assignments {
		if a.CampaignID == campaignID {
			out = append(out, a)
		}
	}
	return out, nil
}

func (m *fakeCampaignRepo) SaveDirectAssignment(ctx context.Context, postulation *models.StudentPostulation, assignment *models.LabAssignment, enrollmentID string) error {
	if postulation.ID == "" {
		postulation.ID = "post-" + postulation.StudentID
	}
	m.postulations[postulation.ID] = *postulation
	if assignment.ID == "" {
		assignment.ID = "asg-" + assignment.StudentID
	}
	m.assignments = append(m.assignments, *assignment)
	m.linked[enrollmentID] = assignment.ID
	return nil
}

type fakeGroupRepo struct {
	courseGroups map[string]models.CourseGroup
	labGroups    map[string]models.LaboratoryGroup
	schedules    map[string][]models.Schedule
}

func newFakeGroupRepo() *fakeGroupRepo {
	return &fakeGroupRepo{
		courseGroups: make(map[string]models.CourseGroup),
		labGroups:    make(map[string]models.LaboratoryGroup),
		schedules:    make(map[string][]models.Schedule),
	}
}

func (m *fakeGroupRepo) FindCourseGroup(ctx context.Context, id string) (*models.CourseGroup, error) {
	g, ok := m.courseGroups[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &g, nil
}

func (m *fakeGroupRepo) FindLabGroup(ctx context.Context, id string) (*models.LaboratoryGroup, error) {
	l, ok := m.labGroups[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &l, nil
}

func (m *fakeGroupRepo) ListLabGroups(ctx context.Context, courseGroupID string) ([]models.LaboratoryGroup, error) {
	var out []models.LaboratoryGroup
	for _, l := range m.labGroups {
		if l.CourseGroupID == courseGroupID {
			out = append(out, l)
		}
	}
	return out, nil
}

func (m *fakeGroupRepo) ListSchedulesByGroup(ctx context.Context, kind models.GroupKind, groupID string) ([]models.Schedule, error) {
	return m.schedules[groupID], nil
}

type fakeEnrollmentRepo struct {
	enrollments map[string]models.StudentEnrollment
	activeCount map[string]int
}

func newFakeEnrollmentRepo() *fakeEnrollmentRepo {
	return &fakeEnrollmentRepo{
		enrollments: make(map[string]models.StudentEnrollment),
		activeCount: make(map[string]int),
	}
}

func (m *fakeEnrollmentRepo) FindByStudentAndGroup(ctx context.Context, studentID, courseGroupID string) (*models.StudentEnrollment, error) {
	for _, e := range m.enrollments {
		if e.StudentID == studentID && e.CourseGroupID == courseGroupID {
			enrollment := e
			return &enrollment, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *fakeEnrollmentRepo) ListActiveWithoutLab(ctx context.Context, courseGroupID string) ([]models.StudentEnrollment, error) {
	var out []models.StudentEnrollment
	for _, e := range m.enrollments {
		if e.CourseGroupID == courseGroupID && e.Status == models.EnrollmentActive && e.LabAssignmentID == nil {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StudentID < out[j].StudentID })
	return out, nil
}

func (m *fakeEnrollmentRepo) CountActiveByGroup(ctx context.Context, courseGroupID string) (int, error) {
	return m.activeCount[courseGroupID], nil
}

type fakeCourseRepo struct {
	courses map[string]models.Course
}

func (m *fakeCourseRepo) FindByID(ctx context.Context, id string) (*models.Course, error) {
	c, ok := m.courses[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &c, nil
}

type fakeConflictChecker struct {
	conflicted map[string]bool
}

func (m *fakeConflictChecker) HasStudentConflict(ctx context.Context, studentID string, candidates []models.Schedule) (bool, error) {
	return m.conflicted[studentID], nil
}

type campaignFixture struct {
	svc         *CampaignService
	campaigns   *fakeCampaignRepo
	groups      *fakeGroupRepo
	enrollments *fakeEnrollmentRepo
	conflicts   *fakeConflictChecker
}

func newCampaignFixture() *campaignFixture {
	campaigns := newFakeCampaignRepo()
	groups := newFakeGroupRepo()
	enrollments := newFakeEnrollmentRepo()
	courses := &fakeCourseRepo{courses: map[string]models.Course{
		"course-1": {ID: "course-1", Code: "CS301", HasLab: true},
	}}
	conflicts := &fakeConflictChecker{conflicted: make(map[string]bool)}

	groups.courseGroups["group-1"] = models.CourseGroup{
		ID: "group-1", CourseID: "course-1", SemesterID: "sem-1", Nomenclature: "A", Capacity: 60,
	}

	cache := NewCacheService(nil, nil, time.Minute, nil, false)
	svc := NewCampaignService(campaigns, groups, enrollments, courses, conflicts, cache, 7, time.Minute, nil, nil)
	return &campaignFixture{svc: svc, campaigns: campaigns, groups: groups, enrollments: enrollments, conflicts: conflicts}
}

func (f *campaignFixture) addLab(id, nomen string, capacity int) {
	f.groups.labGroups[id] = models.LaboratoryGroup{
		ID: id, CourseGroupID: "group-1", Nomenclature: nomen, Capacity: capacity,
	}
}

func (f *campaignFixture) enrollStudent(studentID string) {
	f.enrollments.enrollments["enr-"+studentID] = models.StudentEnrollment{
		ID: "enr-" + studentID, StudentID: studentID, CourseGroupID: "group-1", Status: models.EnrollmentActive,
	}
}

func TestLabGroupsNeeded(t *testing.T) {
	assert.Equal(t, 1, LabGroupsNeeded(0))
	assert.Equal(t, 1, LabGroupsNeeded(30))
	assert.Equal(t, 2, LabGroupsNeeded(31))
	assert.Equal(t, 2, LabGroupsNeeded(60))
	assert.Equal(t, 3, LabGroupsNeeded(61))
	assert.Equal(t, 3, LabGroupsNeeded(200))
}

func TestCampaignCanEnableReportsDeficit(t *testing.T) {
	f := newCampaignFixture()
	f.addLab("lab-a", "A", 15)
	f.addLab("lab-b", "B", 15)
	f.enrollments.activeCount["group-1"] = 35

	check, err := f.svc.CanEnable(context.Background(), "group-1")
	require.NoError(t, err)
	assert.Equal(t, 35, check.Enrolled)
	assert.Equal(t, 30, check.TotalCapacity)
	assert.Equal(t, 5, check.Deficit)
	assert.False(t, check.CanEnable)
}

func TestCampaignEnableRejectsDeficit(t *testing.T) {
	f := newCampaignFixture()
	f.addLab("lab-a", "A", 15)
	f.addLab("lab-b", "B", 15)
	f.enrollments.activeCount["group-1"] = 35

	_, err := f.svc.Enable(context.Background(), models.EnableCampaignInput{CourseGroupID: "11111111-1111-1111-1111-111111111111"}, "sec-1")
	require.Error(t, err)
	// group id in the fixture is not a uuid, use the validator-passing path
	f.groups.courseGroups["11111111-1111-1111-1111-111111111111"] = models.CourseGroup{
		ID: "11111111-1111-1111-1111-111111111111", CourseID: "course-1",
	}
	f.enrollments.activeCount["11111111-1111-1111-1111-111111111111"] = 35

	_, err = f.svc.Enable(context.Background(), models.EnableCampaignInput{CourseGroupID: "11111111-1111-1111-1111-111111111111"}, "sec-1")
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrCapacityDeficit.Code, appErr.Code)
}

func TestCampaignEnableOpensCampaign(t *testing.T) {
	f := newCampaignFixture()
	groupID := "22222222-2222-2222-2222-222222222222"
	f.groups.courseGroups[groupID] = models.CourseGroup{ID: groupID, CourseID: "course-1"}
	f.groups.labGroups["lab-a"] = models.LaboratoryGroup{ID: "lab-a", CourseGroupID: groupID, Nomenclature: "A", Capacity: 40}
	f.enrollments.activeCount[groupID] = 35

	campaign, err := f.svc.Enable(context.Background(), models.EnableCampaignInput{CourseGroupID: groupID}, "sec-1")
	require.NoError(t, err)
	assert.Equal(t, models.CampaignOpen, campaign.State)
	assert.Equal(t, "sec-1", campaign.CreatedBy)
	assert.WithinDuration(t, campaign.OpensAt.AddDate(0, 0, 7), campaign.ClosesAt, time.Second)

	_, err = f.svc.Enable(context.Background(), models.EnableCampaignInput{CourseGroupID: groupID}, "sec-1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrCampaignAlreadyOpen.Code, appErrors.FromError(err).Code)
}

func openCampaign(f *campaignFixture) string {
	campaign := models.LabEnrollmentCampaign{
		ID: "camp-1", CourseGroupID: "group-1", State: models.CampaignOpen,
		OpensAt: time.Now().UTC(), ClosesAt: time.Now().UTC().AddDate(0, 0, 7),
	}
	f.campaigns.campaigns[campaign.ID] = campaign
	return campaign.ID
}

func TestCampaignPostulateHappyPath(t *testing.T) {
	f := newCampaignFixture()
	f.addLab("33333333-3333-3333-3333-333333333333", "A", 20)
	f.enrollStudent("stu-1")
	campaignID := openCampaign(f)

	postulation, err := f.svc.Postulate(context.Background(), campaignID, "stu-1", models.PostulateInput{LabGroupID: "33333333-3333-3333-3333-333333333333"})
	require.NoError(t, err)
	assert.Equal(t, models.PostulationPending, postulation.State)
	assert.Equal(t, campaignID, postulation.CampaignID)
}

func TestCampaignPostulateRejectsDuplicate(t *testing.T) {
	f := newCampaignFixture()
	labID := "33333333-3333-3333-3333-333333333333"
	f.addLab(labID, "A", 20)
	f.enrollStudent("stu-1")
	campaignID := openCampaign(f)

	_, err := f.svc.Postulate(context.Background(), campaignID, "stu-1", models.PostulateInput{LabGroupID: labID})
	require.NoError(t, err)

	_, err = f.svc.Postulate(context.Background(), campaignID, "stu-1", models.PostulateInput{LabGroupID: labID})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrDuplicatePostulation.Code, appErrors.FromError(err).Code)
}

func TestCampaignPostulateRequiresActiveEnrollment(t *testing.T) {
	f := newCampaignFixture()
	labID := "33333333-3333-3333-3333-333333333333"
	f.addLab(labID, "A", 20)
	campaignID := openCampaign(f)

	_, err := f.svc.Postulate(context.Background(), campaignID, "stu-ghost", models.PostulateInput{LabGroupID: labID})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotEnrolled.Code, appErrors.FromError(err).Code)

	// withdrawn students cannot postulate either
	f.enrollments.enrollments["enr-stu-2"] = models.StudentEnrollment{
		ID: "enr-stu-2", StudentID: "stu-2", CourseGroupID: "group-1", Status: models.EnrollmentWithdrawn,
	}
	_, err = f.svc.Postulate(context.Background(), campaignID, "stu-2", models.PostulateInput{LabGroupID: labID})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotEnrolled.Code, appErrors.FromError(err).Code)
}

func TestCampaignPostulateRejectsForeignLab(t *testing.T) {
	f := newCampaignFixture()
	foreignLab := "44444444-4444-4444-4444-444444444444"
	f.groups.labGroups[foreignLab] = models.LaboratoryGroup{ID: foreignLab, CourseGroupID: "other-group", Nomenclature: "A", Capacity: 20}
	f.enrollStudent("stu-1")
	campaignID := openCampaign(f)

	_, err := f.svc.Postulate(context.Background(), campaignID, "stu-1", models.PostulateInput{LabGroupID: foreignLab})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrLabNotInCourse.Code, appErrors.FromError(err).Code)
}

func TestCampaignPostulateRejectsScheduleConflict(t *testing.T) {
	f := newCampaignFixture()
	labID := "33333333-3333-3333-3333-333333333333"
	f.addLab(labID, "A", 20)
	f.enrollStudent("stu-1")
	f.conflicts.conflicted["stu-1"] = true
	campaignID := openCampaign(f)

	_, err := f.svc.Postulate(context.Background(), campaignID, "stu-1", models.PostulateInput{LabGroupID: labID})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrScheduleConflict.Code, appErrors.FromError(err).Code)
}

func TestCampaignPostulateRequiresOpenCampaign(t *testing.T) {
	f := newCampaignFixture()
	labID := "33333333-3333-3333-3333-333333333333"
	f.addLab(labID, "A", 20)
	f.enrollStudent("stu-1")
	campaignID := openCampaign(f)
	_, err := f.svc.Close(context.Background(), campaignID)
	require.NoError(t, err)

	_, err = f.svc.Postulate(context.Background(), campaignID, "stu-1", models.PostulateInput{LabGroupID: labID})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrCampaignNotOpen.Code, appErrors.FromError(err).Code)
}

func TestCampaignStatusLevels(t *testing.T) {
	f := newCampaignFixture()
	f.addLab("lab-a", "A", 20)
	f.addLab("lab-b", "B", 10)
	f.addLab("lab-c", "C", 10)
	f.enrollments.activeCount["group-1"] = 40
	campaignID := openCampaign(f)

	// 10 postulants into lab-a (50%), 9 into lab-b (90%), none into lab-c
	for i := 0; i < 10; i++ {
		f.campaigns.postulations[string(rune('a'+i))] = models.StudentPostulation{
			ID: string(rune('a' + i)), CampaignID: campaignID, LabGroupID: "lab-a", State: models.PostulationPending,
		}
	}
	for i := 0; i < 9; i++ {
		f.campaigns.postulations["b"+string(rune('a'+i))] = models.StudentPostulation{
			ID: "b" + string(rune('a'+i)), CampaignID: campaignID, LabGroupID: "lab-b", State: models.PostulationPending,
		}
	}

	status, err := f.svc.Status(context.Background(), campaignID)
	require.NoError(t, err)
	assert.Equal(t, 40, status.TotalStudents)
	assert.Equal(t, 19, status.TotalPostulants)
	assert.Equal(t, 21, status.PendingStudents)

	levels := make(map[string]string)
	for _, g := range status.Groups {
		levels[g.LabGroupID] = g.Level
	}
	assert.Equal(t, models.FillNormal, levels["lab-a"])
	assert.Equal(t, models.FillAlmostFull, levels["lab-b"])
	assert.Equal(t, models.FillEmpty, levels["lab-c"])
}

func TestCampaignCloseLeavesPostulationsPending(t *testing.T) {
	f := newCampaignFixture()
	labID := "33333333-3333-3333-3333-333333333333"
	f.addLab(labID, "A", 20)
	f.enrollStudent("stu-1")
	campaignID := openCampaign(f)
	_, err := f.svc.Postulate(context.Background(), campaignID, "stu-1", models.PostulateInput{LabGroupID: labID})
	require.NoError(t, err)

	closed, err := f.svc.Close(context.Background(), campaignID)
	require.NoError(t, err)
	assert.Equal(t, models.CampaignClosed, closed.State)

	postulations, err := f.svc.ListPostulations(context.Background(), campaignID)
	require.NoError(t, err)
	require.Len(t, postulations, 1)
	assert.Equal(t, models.PostulationPending, postulations[0].State)

	_, err = f.svc.Close(context.Background(), campaignID)
	require.Error(t, err, "closing twice is rejected")
}

func TestCampaignAssignDirectGreedyFirstFit(t *testing.T) {
	f := newCampaignFixture()
	f.addLab("lab-a", "A", 1)
	f.addLab("lab-b", "B", 2)
	campaignID := openCampaign(f)

	f.enrollStudent("stu-1")
	f.enrollStudent("stu-2")
	f.enrollStudent("stu-3")
	// stu-2 collides with every lab schedule
	f.conflicts.conflicted["stu-2"] = true

	report, err := f.svc.AssignDirect(context.Background(), campaignID)
	require.NoError(t, err)

	assert.Len(t, report.Assigned, 2)
	assert.Len(t, report.Skipped, 1)
	assert.Equal(t, "stu-2", report.Skipped[0].StudentID)
	assert.Equal(t, 3, report.Total)

	// capacity bound respected: lab-a holds one student, the other lands in
	// lab-b
	byLab := make(map[string]int)
	for _, a := range report.Assigned {
		assert.Equal(t, models.AssignmentDirect, a.Method)
		byLab[a.LabGroupID]++
	}
	assert.Equal(t, 1, byLab["lab-a"])
	assert.Equal(t, 1, byLab["lab-b"])

	for _, a := range report.Assigned {
		postulation, err := f.campaigns.FindPostulation(context.Background(), campaignID, a.StudentID)
		require.NoError(t, err)
		assert.Equal(t, models.PostulationAccepted, postulation.State)
		assert.Equal(t, a.LabGroupID, postulation.LabGroupID)
	}
}

func TestCampaignAssignDirectSeatsUnpostulatedStudent(t *testing.T) {
	f := newCampaignFixture()
	f.addLab("lab-a", "A", 10)
	campaignID := openCampaign(f)
	f.enrollStudent("stu-1")

	report, err := f.svc.AssignDirect(context.Background(), campaignID)
	require.NoError(t, err)
	require.Len(t, report.Assigned, 1)
	assert.Empty(t, report.Skipped)
	assert.Equal(t, "lab-a", report.Assigned[0].LabGroupID)

	postulation, err := f.campaigns.FindPostulation(context.Background(), campaignID, "stu-1")
	require.NoError(t, err)
	assert.Equal(t, models.PostulationAccepted, postulation.State)

	// the enrollment now carries its seat
	assert.NotEmpty(t, f.campaigns.linked["enr-stu-1"])
}

func TestCampaignAssignDirectCountsPostulationSeats(t *testing.T) {
	f := newCampaignFixture()
	f.addLab("lab-a", "A", 1)
	f.addLab("lab-b", "B", 1)
	campaignID := openCampaign(f)

	// a pending postulation already holds lab-a's only seat
	f.campaigns.postulations["post-stu-0"] = models.StudentPostulation{
		ID: "post-stu-0", CampaignID: campaignID, StudentID: "stu-0",
		LabGroupID: "lab-a", State: models.PostulationPending,
	}
	f.enrollStudent("stu-1")

	report, err := f.svc.AssignDirect(context.Background(), campaignID)
	require.NoError(t, err)
	require.Len(t, report.Assigned, 1)
	assert.Equal(t, "stu-1", report.Assigned[0].StudentID)
	assert.Equal(t, "lab-b", report.Assigned[0].LabGroupID)
}

func TestCampaignAssignDirectReportsFullLabs(t *testing.T) {
	f := newCampaignFixture()
	f.addLab("lab-a", "A", 1)
	campaignID := openCampaign(f)

	f.campaigns.postulations["post-stu-0"] = models.StudentPostulation{
		ID: "post-stu-0", CampaignID: campaignID, StudentID: "stu-0",
		LabGroupID: "lab-a", State: models.PostulationAccepted,
	}
	f.enrollStudent("stu-1")

	report, err := f.svc.AssignDirect(context.Background(), campaignID)
	require.NoError(t, err)
	assert.Empty(t, report.Assigned)
	require.Len(t, report.Skipped, 1)
	assert.Equal(t, "stu-1", report.Skipped[0].StudentID)
	assert.Equal(t, "every laboratory group is full", report.Skipped[0].Reason)
}

func TestCampaignAssignDirectRequiresOpen(t *testing.T) {
	f := newCampaignFixture()
	f.addLab("lab-a", "A", 10)
	f.enrollStudent("stu-1")
	campaignID := openCampaign(f)
	_, err := f.svc.Close(context.Background(), campaignID)
	require.NoError(t, err)

	_, err = f.svc.AssignDirect(context.Background(), campaignID)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrCampaignNotOpen.Code, appErrors.FromError(err).Code)
}
