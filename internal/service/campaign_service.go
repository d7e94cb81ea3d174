package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/sgac-unsa/sgac-api/internal/models"
	"github.com/sgac-unsa/sgac-api/internal/repository"
	appErrors "github.com/sgac-unsa/sgac-api/pkg/errors"
)

type campaignRepository interface {
	FindByID(ctx context.Context, id string) (*models.LabEnrollmentCampaign, error)
	FindOpenByCourseGroup(ctx context.Context, courseGroupID string) (*models.LabEnrollmentCampaign, error)
	ListByCourseGroup(ctx context.Context, courseGroupID string) ([]models.LabEnrollmentCampaign, error)
	Create(ctx context.Context, campaign *models.LabEnrollmentCampaign) error
	UpdateState(ctx context.Context, id string, state models.CampaignState) error
	FindPostulation(ctx context.Context, campaignID, studentID string) (*models.StudentPostulation, error)
	ListPostulations(ctx context.Context, campaignID string) ([]models.StudentPostulation, error)
	CountPostulationsByLabGroup(ctx context.Context, campaignID string) (map[string]int, error)
	CreatePostulation(ctx context.Context, postulation *models.StudentPostulation) error
	ListAssignments(ctx context.Context, campaignID string) ([]models.LabAssignment, error)
	SaveDirectAssignment(ctx context.Context, postulation *models.StudentPostulation, assignment *models.LabAssignment, enrollmentID string) error
}

type campaignGroupRepository interface {
	FindCourseGroup(ctx context.Context, id string) (*models.CourseGroup, error)
	FindLabGroup(ctx context.Context, id string) (*models.LaboratoryGroup, error)
	ListLabGroups(ctx context.Context, courseGroupID string) ([]models.LaboratoryGroup, error)
	ListSchedulesByGroup(ctx context.Context, kind models.GroupKind, groupID string) ([]models.Schedule, error)
}

type campaignEnrollmentRepository interface {
	FindByStudentAndGroup(ctx context.Context, studentID, courseGroupID string) (*models.StudentEnrollment, error)
	ListActiveWithoutLab(ctx context.Context, courseGroupID string) ([]models.StudentEnrollment, error)
	CountActiveByGroup(ctx context.Context, courseGroupID string) (int, error)
}

type campaignCourseRepository interface {
	FindByID(ctx context.Context, id string) (*models.Course, error)
}

type studentConflictChecker interface {
	HasStudentConflict(ctx context.Context, studentID string, candidates []models.Schedule) (bool, error)
}

// CampaignService drives the laboratory enrollment campaign lifecycle:
// capacity verification, opening, student postulation, live status and the
// direct assignment batch once the window closes.
type CampaignService struct {
	campaigns   campaignRepository
	groups      campaignGroupRepository
	enrollments campaignEnrollmentRepository
	courses     campaignCourseRepository
	conflicts   studentConflictChecker
	cache       *CacheService
	validator   *validator.Validate
	logger      *zap.Logger

	defaultDurationDays int
	statusTTL           time.Duration
}

// NewCampaignService instantiates CampaignService.
func NewCampaignService(
	campaigns campaignRepository,
	groups campaignGroupRepository,
	enrollments campaignEnrollmentRepository,
	courses campaignCourseRepository,
	conflicts studentConflictChecker,
	cache *CacheService,
	defaultDurationDays int,
	statusTTL time.Duration,
	validate *validator.Validate,
	logger *zap.Logger,
) *CampaignService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if defaultDurationDays <= 0 {
		defaultDurationDays = 7
	}
	if statusTTL <= 0 {
		statusTTL = time.Minute
	}
	return &CampaignService{
		campaigns:           campaigns,
		groups:              groups,
		enrollments:         enrollments,
		courses:             courses,
		conflicts:           conflicts,
		cache:               cache,
		validator:           validate,
		logger:              logger,
		defaultDurationDays: defaultDurationDays,
		statusTTL:           statusTTL,
	}
}

// LabGroupsNeeded suggests how many lab groups a course group needs for
// its enrolled students.
func LabGroupsNeeded(enrolled int) int {
	switch {
	case enrolled <= 30:
		return 1
	case enrolled <= 60:
		return 2
	default:
		return 3
	}
}

// CanEnable verifies the aggregate lab capacity of a course group covers
// its active enrollments. A positive deficit means more seats are needed
// before a campaign may open.
func (s *CampaignService) CanEnable(ctx context.Context, courseGroupID string) (*models.CapacityCheck, error) {
	if _, err := s.loadLabCourseGroup(ctx, courseGroupID); err != nil {
		return nil, err
	}
	enrolled, err := s.enrollments.CountActiveByGroup(ctx, courseGroupID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count enrollments")
	}
	labs, err := s.groups.ListLabGroups(ctx, courseGroupID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list lab groups")
	}

	capacity := 0
	for _, lab := range labs {
		capacity += lab.Capacity
	}
	deficit := enrolled - capacity
	if deficit < 0 {
		deficit = 0
	}
	return &models.CapacityCheck{
		Enrolled:      enrolled,
		TotalCapacity: capacity,
		Deficit:       deficit,
		CanEnable:     deficit == 0 && len(labs) > 0,
	}, nil
}

// Enable opens an enrollment campaign for a course group. The group's
// course must carry a lab, no other campaign may be open, and the lab
// groups must seat every enrolled student.
func (s *CampaignService) Enable(ctx context.Context, req models.EnableCampaignInput, createdBy string) (*models.LabEnrollmentCampaign, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid campaign payload")
	}

	if _, err := s.loadLabCourseGroup(ctx, req.CourseGroupID); err != nil {
		return nil, err
	}

	if _, err := s.campaigns.FindOpenByCourseGroup(ctx, req.CourseGroupID); err == nil {
		return nil, appErrors.Clone(appErrors.ErrCampaignAlreadyOpen, appErrors.ErrCampaignAlreadyOpen.Message)
	} else if !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check open campaigns")
	}

	check, err := s.CanEnable(ctx, req.CourseGroupID)
	if err != nil {
		return nil, err
	}
	if !check.CanEnable {
		return nil, appErrors.Clone(appErrors.ErrCapacityDeficit,
			fmt.Sprintf("laboratory capacity is short by %d seats (%d enrolled, %d available)", check.Deficit, check.Enrolled, check.TotalCapacity))
	}

	duration := req.DurationDays
	if duration <= 0 {
		duration = s.defaultDurationDays
	}
	now := time.Now().UTC()
	campaign := models.LabEnrollmentCampaign{
		CourseGroupID: req.CourseGroupID,
		State:         models.CampaignOpen,
		OpensAt:       now,
		ClosesAt:      now.AddDate(0, 0, duration),
		CreatedBy:     createdBy,
	}
	if err := s.campaigns.Create(ctx, &campaign); err != nil {
		if repository.IsUniqueViolation(err) {
			return nil, appErrors.Clone(appErrors.ErrCampaignAlreadyOpen, appErrors.ErrCampaignAlreadyOpen.Message)
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create campaign")
	}

	s.invalidateStatus(ctx, campaign.ID)
	s.logger.Info("campaign opened",
		zap.String("campaign_id", campaign.ID),
		zap.String("course_group_id", campaign.CourseGroupID),
		zap.Time("closes_at", campaign.ClosesAt))
	return &campaign, nil
}

// Postulate registers a student's request for a lab seat. The campaign
// must be open, the student actively enrolled in the course group, the lab
// group must belong to it, the student may postulate only once, and the
// lab schedule must not collide with the student's weekly schedule.
func (s *CampaignService) Postulate(ctx context.Context, campaignID, studentID string, req models.PostulateInput) (*models.StudentPostulation, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid postulation payload")
	}

	campaign, err := s.loadCampaign(ctx, campaignID)
	if err != nil {
		return nil, err
	}
	if campaign.State != models.CampaignOpen {
		return nil, appErrors.Clone(appErrors.ErrCampaignNotOpen, appErrors.ErrCampaignNotOpen.Message)
	}

	enrollment, err := s.enrollments.FindByStudentAndGroup(ctx, studentID, campaign.CourseGroupID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotEnrolled, appErrors.ErrNotEnrolled.Message)
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load enrollment")
	}
	if enrollment.Status != models.EnrollmentActive {
		return nil, appErrors.Clone(appErrors.ErrNotEnrolled, appErrors.ErrNotEnrolled.Message)
	}

	lab, err := s.groups.FindLabGroup(ctx, req.LabGroupID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "lab group not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load lab group")
	}
	if lab.CourseGroupID != campaign.CourseGroupID {
		return nil, appErrors.Clone(appErrors.ErrLabNotInCourse, appErrors.ErrLabNotInCourse.Message)
	}

	if _, err := s.campaigns.FindPostulation(ctx, campaignID, studentID); err == nil {
		return nil, appErrors.Clone(appErrors.ErrDuplicatePostulation, appErrors.ErrDuplicatePostulation.Message)
	} else if !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check existing postulation")
	}

	labSchedules, err := s.groups.ListSchedulesByGroup(ctx, models.GroupLab, lab.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load lab schedules")
	}
	conflict, err := s.conflicts.HasStudentConflict(ctx, studentID, labSchedules)
	if err != nil {
		return nil, err
	}
	if conflict {
		return nil, appErrors.Clone(appErrors.ErrScheduleConflict, "lab schedule collides with the student's weekly schedule")
	}

	postulation := models.StudentPostulation{
		CampaignID: campaignID,
		StudentID:  studentID,
		LabGroupID: lab.ID,
		State:      models.PostulationPending,
	}
	if err := s.campaigns.CreatePostulation(ctx, &postulation); err != nil {
		if repository.IsUniqueViolation(err) {
			return nil, appErrors.Clone(appErrors.ErrDuplicatePostulation, appErrors.ErrDuplicatePostulation.Message)
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create postulation")
	}

	s.invalidateStatus(ctx, campaignID)
	return &postulation, nil
}

// Status reports the live fill level of every lab group in a campaign.
// The report is cached briefly since registrars poll it while a campaign
// runs.
func (s *CampaignService) Status(ctx context.Context, campaignID string) (*models.CampaignStatus, error) {
	cacheKey := statusCacheKey(campaignID)
	var cached models.CampaignStatus
	if hit, _ := s.cache.Get(ctx, cacheKey, &cached); hit {
		return &cached, nil
	}

	campaign, err := s.loadCampaign(ctx, campaignID)
	if err != nil {
		return nil, err
	}
	labs, err := s.groups.ListLabGroups(ctx, campaign.CourseGroupID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list lab groups")
	}
	counts, err := s.campaigns.CountPostulationsByLabGroup(ctx, campaignID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count postulations")
	}
	enrolled, err := s.enrollments.CountActiveByGroup(ctx, campaign.CourseGroupID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count enrollments")
	}

	status := models.CampaignStatus{Campaign: *campaign, TotalStudents: enrolled}
	for _, lab := range labs {
		postulants := counts[lab.ID]
		status.TotalPostulants += postulants
		var fill float64
		if lab.Capacity > 0 {
			fill = models.Round2(float64(postulants) / float64(lab.Capacity) * 100)
		}
		status.Groups = append(status.Groups, models.LabGroupStatus{
			LabGroupID:   lab.ID,
			Nomenclature: lab.Nomenclature,
			Capacity:     lab.Capacity,
			Postulants:   postulants,
			FillPercent:  fill,
			Level:        models.FillLevel(postulants, lab.Capacity),
		})
	}
	status.PendingStudents = enrolled - status.TotalPostulants
	if status.PendingStudents < 0 {
		status.PendingStudents = 0
	}

	_ = s.cache.Set(ctx, cacheKey, status, s.statusTTL)
	return &status, nil
}

// Close ends an open campaign. Pending postulations stay pending until a
// registrar resolves them.
func (s *CampaignService) Close(ctx context.Context, campaignID string) (*models.LabEnrollmentCampaign, error) {
	campaign, err := s.loadCampaign(ctx, campaignID)
	if err != nil {
		return nil, err
	}
	if campaign.State != models.CampaignOpen {
		return nil, appErrors.Clone(appErrors.ErrCampaignNotOpen, appErrors.ErrCampaignNotOpen.Message)
	}
	if err := s.campaigns.UpdateState(ctx, campaignID, models.CampaignClosed); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to close campaign")
	}
	campaign.State = models.CampaignClosed

	s.invalidateStatus(ctx, campaignID)
	s.logger.Info("campaign closed", zap.String("campaign_id", campaignID))
	return campaign, nil
}

// ListPostulations returns the postulations of a campaign.
func (s *CampaignService) ListPostulations(ctx context.Context, campaignID string) ([]models.StudentPostulation, error) {
	if _, err := s.loadCampaign(ctx, campaignID); err != nil {
		return nil, err
	}
	postulations, err := s.campaigns.ListPostulations(ctx, campaignID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list postulations")
	}
	return postulations, nil
}

// ListByCourseGroup returns the campaign history of a course group.
func (s *CampaignService) ListByCourseGroup(ctx context.Context, courseGroupID string) ([]models.LabEnrollmentCampaign, error) {
	campaigns, err := s.campaigns.ListByCourseGroup(ctx, courseGroupID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list campaigns")
	}
	return campaigns, nil
}

// ListAssignments returns the resolved seats of a campaign.
func (s *CampaignService) ListAssignments(ctx context.Context, campaignID string) ([]models.LabAssignment, error) {
	if _, err := s.loadCampaign(ctx, campaignID); err != nil {
		return nil, err
	}
	assignments, err := s.campaigns.ListAssignments(ctx, campaignID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list assignments")
	}
	return assignments, nil
}

// AssignDirect seats every active student of an open campaign's course
// group who still lacks a lab, with a greedy first-fit pass: lab groups are
// tried in nomenclature order, seats are bounded by capacity minus the
// campaign's postulations, and a student lands in the first group whose
// schedule does not collide with theirs. Each placement writes an ACCEPTED
// postulation, a DIRECT assignment and the enrollment link in one
// transaction; students the pass could not seat are reported with the
// reason.
func (s *CampaignService) AssignDirect(ctx context.Context, campaignID string) (*models.AssignmentReport, error) {
	campaign, err := s.loadCampaign(ctx, campaignID)
	if err != nil {
		return nil, err
	}
	if campaign.State != models.CampaignOpen {
		return nil, appErrors.Clone(appErrors.ErrCampaignNotOpen, "direct assignment requires an open campaign")
	}

	labs, err := s.groups.ListLabGroups(ctx, campaign.CourseGroupID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list lab groups")
	}
	sort.Slice(labs, func(i, j int) bool { return labs[i].Nomenclature < labs[j].Nomenclature })

	seated, err := s.campaigns.CountPostulationsByLabGroup(ctx, campaignID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count postulations")
	}

	schedulesByLab := make(map[string][]models.Schedule, len(labs))
	for _, lab := range labs {
		slots, err := s.groups.ListSchedulesByGroup(ctx, models.GroupLab, lab.ID)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load lab schedules")
		}
		schedulesByLab[lab.ID] = slots
	}

	pending, err := s.enrollments.ListActiveWithoutLab(ctx, campaign.CourseGroupID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list unseated enrollments")
	}

	report := models.AssignmentReport{}
	for _, enrollment := range pending {
		placed := false
		allFull := true
		for _, lab := range labs {
			if seated[lab.ID] >= lab.Capacity {
				continue
			}
			allFull = false
			conflict, err := s.conflicts.HasStudentConflict(ctx, enrollment.StudentID, schedulesByLab[lab.ID])
			if err != nil {
				return nil, err
			}
			if conflict {
				continue
			}
			postulation := models.StudentPostulation{
				CampaignID: campaignID,
				StudentID:  enrollment.StudentID,
				LabGroupID: lab.ID,
				State:      models.PostulationAccepted,
			}
			assignment := models.LabAssignment{
				CampaignID: campaignID,
				StudentID:  enrollment.StudentID,
				LabGroupID: lab.ID,
				Method:     models.AssignmentDirect,
			}
			if err := s.campaigns.SaveDirectAssignment(ctx, &postulation, &assignment, enrollment.ID); err != nil {
				return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to save assignment")
			}
			seated[lab.ID]++
			report.Assigned = append(report.Assigned, assignment)
			placed = true
			break
		}
		if !placed {
			reason := "lab schedules collide with the student's weekly schedule"
			if allFull {
				reason = "every laboratory group is full"
			}
			report.Skipped = append(report.Skipped, models.SkippedStudent{
				StudentID: enrollment.StudentID,
				Reason:    reason,
			})
		}
	}

	report.Total = len(report.Assigned) + len(report.Skipped)
	s.invalidateStatus(ctx, campaignID)
	s.logger.Info("direct assignment completed",
		zap.String("campaign_id", campaignID),
		zap.Int("assigned", len(report.Assigned)),
		zap.Int("skipped", len(report.Skipped)))
	return &report, nil
}

func (s *CampaignService) loadCampaign(ctx context.Context, id string) (*models.LabEnrollmentCampaign, error) {
	campaign, err := s.campaigns.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "campaign not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load campaign")
	}
	return campaign, nil
}

func (s *CampaignService) loadLabCourseGroup(ctx context.Context, courseGroupID string) (*models.CourseGroup, error) {
	group, err := s.groups.FindCourseGroup(ctx, courseGroupID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "course group not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course group")
	}
	course, err := s.courses.FindByID(ctx, group.CourseID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
	}
	if !course.HasLab {
		return nil, appErrors.Clone(appErrors.ErrValidation, "course does not carry a laboratory")
	}
	return group, nil
}

func (s *CampaignService) invalidateStatus(ctx context.Context, campaignID string) {
	_ = s.cache.Invalidate(ctx, statusCacheKey(campaignID))
}

func statusCacheKey(campaignID string) string {
	return "campaign:status:" + campaignID
}
