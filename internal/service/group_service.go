package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/sgac-unsa/sgac-api/internal/models"
	"github.com/sgac-unsa/sgac-api/internal/repository"
	appErrors "github.com/sgac-unsa/sgac-api/pkg/errors"
)

type groupRepository interface {
	ListCourseGroups(ctx context.Context, semesterID, courseID, professorID string) ([]models.CourseGroup, error)
	FindCourseGroup(ctx context.Context, id string) (*models.CourseGroup, error)
	CreateCourseGroup(ctx context.Context, group *models.CourseGroup) error
	ListLabGroups(ctx context.Context, courseGroupID string) ([]models.LaboratoryGroup, error)
	FindLabGroup(ctx context.Context, id string) (*models.LaboratoryGroup, error)
	CreateLabGroup(ctx context.Context, lab *models.LaboratoryGroup) error
	DeleteLabGroup(ctx context.Context, id string) error
	ListSchedulesByGroup(ctx context.Context, kind models.GroupKind, groupID string) ([]models.Schedule, error)
	CreateSchedule(ctx context.Context, schedule *models.Schedule) error
	DeleteSchedule(ctx context.Context, id string) error
	ReplaceDaySchedules(ctx context.Context, kind models.GroupKind, groupID string, day models.DayOfWeek, schedules []models.Schedule) error
}

type groupCourseRepository interface {
	FindByID(ctx context.Context, id string) (*models.Course, error)
}

type groupSemesterRepository interface {
	FindByID(ctx context.Context, id string) (*models.Semester, error)
}

type groupClassroomRepository interface {
	FindByID(ctx context.Context, id string) (*models.Classroom, error)
}

type slotConflictChecker interface {
	CheckSlot(ctx context.Context, candidate models.Schedule, professorID, excludeID string) ([]ScheduleConflict, error)
}

type groupCampaignRepository interface {
	FindOpenByCourseGroup(ctx context.Context, courseGroupID string) (*models.LabEnrollmentCampaign, error)
}

// GroupService manages theory groups, laboratory groups and their weekly
// schedules. Every new slot is validated against the operating window and
// checked for classroom and professor collisions before it is stored.
type GroupService struct {
	groups     groupRepository
	courses    groupCourseRepository
	semesters  groupSemesterRepository
	classrooms groupClassroomRepository
	conflicts  slotConflictChecker
	campaigns  groupCampaignRepository
	validator  *validator.Validate
	logger     *zap.Logger

	dayStart models.TimeOfDay
	dayEnd   models.TimeOfDay
}

// NewGroupService instantiates GroupService.
func NewGroupService(
	groups groupRepository,
	courses groupCourseRepository,
	semesters groupSemesterRepository,
	classrooms groupClassroomRepository,
	conflicts slotConflictChecker,
	campaigns groupCampaignRepository,
	dayStart, dayEnd models.TimeOfDay,
	validate *validator.Validate,
	logger *zap.Logger,
) *GroupService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if dayStart == 0 && dayEnd == 0 {
		dayStart = models.MustTimeOfDay("07:00")
		dayEnd = models.MustTimeOfDay("20:10")
	}
	return &GroupService{
		groups:     groups,
		courses:    courses,
		semesters:  semesters,
		classrooms: classrooms,
		conflicts:  conflicts,
		campaigns:  campaigns,
		validator:  validate,
		logger:     logger,
		dayStart:   dayStart,
		dayEnd:     dayEnd,
	}
}

// ListCourseGroups returns theory groups, optionally filtered by semester,
// course or professor.
func (s *GroupService) ListCourseGroups(ctx context.Context, semesterID, courseID, professorID string) ([]models.CourseGroup, error) {
	groups, err := s.groups.ListCourseGroups(ctx, semesterID, courseID, professorID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list course groups")
	}
	return groups, nil
}

// GetCourseGroup returns one theory group by id.
func (s *GroupService) GetCourseGroup(ctx context.Context, id string) (*models.CourseGroup, error) {
	group, err := s.groups.FindCourseGroup(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "course group not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course group")
	}
	return group, nil
}

// CreateCourseGroup registers a theory group for a course in a semester.
func (s *GroupService) CreateCourseGroup(ctx context.Context, req models.CreateCourseGroupInput) (*models.CourseGroup, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid course group payload")
	}
	if _, err := s.courses.FindByID(ctx, req.CourseID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
	}
	if _, err := s.semesters.FindByID(ctx, req.SemesterID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "semester not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load semester")
	}

	group := models.CourseGroup{
		CourseID:     req.CourseID,
		SemesterID:   req.SemesterID,
		Nomenclature: req.Nomenclature,
		ProfessorID:  req.ProfessorID,
		Capacity:     req.Capacity,
	}
	if err := s.groups.CreateCourseGroup(ctx, &group); err != nil {
		if repository.IsUniqueViolation(err) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "a group with that nomenclature already exists for this course and semester")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create course group")
	}
	s.logger.Info("course group created",
		zap.String("course_group_id", group.ID),
		zap.String("course_id", group.CourseID),
		zap.String("nomenclature", group.Nomenclature))
	return &group, nil
}

// ListLabGroups returns the laboratory groups of a theory group.
func (s *GroupService) ListLabGroups(ctx context.Context, courseGroupID string) ([]models.LaboratoryGroup, error) {
	labs, err := s.groups.ListLabGroups(ctx, courseGroupID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list laboratory groups")
	}
	return labs, nil
}

// CreateLabGroup registers a laboratory group under a theory group. The
// course must be flagged as having a lab component.
func (s *GroupService) CreateLabGroup(ctx context.Context, req models.CreateLabGroupInput) (*models.LaboratoryGroup, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid laboratory group payload")
	}
	group, err := s.GetCourseGroup(ctx, req.CourseGroupID)
	if err != nil {
		return nil, err
	}
	course, err := s.courses.FindByID(ctx, group.CourseID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
	}
	if !course.HasLab {
		return nil, appErrors.Clone(appErrors.ErrValidation, "course has no laboratory component")
	}

	lab := models.LaboratoryGroup{
		CourseGroupID: req.CourseGroupID,
		Nomenclature:  req.Nomenclature,
		ProfessorID:   req.ProfessorID,
		Capacity:      req.Capacity,
	}
	if err := s.groups.CreateLabGroup(ctx, &lab); err != nil {
		if repository.IsUniqueViolation(err) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "a laboratory group with that nomenclature already exists")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create laboratory group")
	}
	s.logger.Info("laboratory group created",
		zap.String("lab_group_id", lab.ID),
		zap.String("course_group_id", lab.CourseGroupID),
		zap.String("nomenclature", lab.Nomenclature))
	return &lab, nil
}

// DeleteLabGroup removes a laboratory group and its slots. Deletion is
// blocked while an enrollment campaign for the parent course group is
// open, since open campaigns postulate against the lab set.
func (s *GroupService) DeleteLabGroup(ctx context.Context, id string) error {
	lab, err := s.groups.FindLabGroup(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "laboratory group not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load laboratory group")
	}
	campaign, err := s.campaigns.FindOpenByCourseGroup(ctx, lab.CourseGroupID)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check open campaigns")
	}
	if campaign != nil {
		return appErrors.Clone(appErrors.ErrConflict, "cannot delete a laboratory group while an enrollment campaign is open")
	}
	if err := s.groups.DeleteLabGroup(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "laboratory group not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete laboratory group")
	}
	s.logger.Info("laboratory group deleted", zap.String("lab_group_id", id))
	return nil
}

// ListSchedules returns the weekly slots of a theory or lab group.
func (s *GroupService) ListSchedules(ctx context.Context, kind models.GroupKind, groupID string) ([]models.Schedule, error) {
	slots, err := s.groups.ListSchedulesByGroup(ctx, kind, groupID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list schedules")
	}
	return slots, nil
}

// CreateSchedule adds a weekly slot to a group. The slot must fit inside
// the operating window, lab slots must use laboratory rooms, and any
// classroom or professor collision rejects the slot.
func (s *GroupService) CreateSchedule(ctx context.Context, req models.CreateScheduleInput) (*models.Schedule, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid schedule payload")
	}
	start, err := models.ParseTimeOfDay(req.StartTime)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "invalid start time")
	}
	end, err := models.ParseTimeOfDay(req.EndTime)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "invalid end time")
	}
	if end <= start {
		return nil, appErrors.Clone(appErrors.ErrValidation, "end time must be after start time")
	}
	if start < s.dayStart || end > s.dayEnd {
		return nil, appErrors.Clone(appErrors.ErrValidation,
			fmt.Sprintf("schedules must fall between %s and %s", s.dayStart, s.dayEnd))
	}

	kind := models.GroupKind(req.GroupKind)
	professorID, err := s.resolveGroupProfessor(ctx, kind, req.GroupID)
	if err != nil {
		return nil, err
	}

	room, err := s.classrooms.FindByID(ctx, req.ClassroomID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "classroom not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load classroom")
	}
	if !room.IsActive {
		return nil, appErrors.Clone(appErrors.ErrValidation, "classroom is inactive")
	}
	if kind == models.GroupLab && room.Type != models.ClassroomLaboratory {
		return nil, appErrors.Clone(appErrors.ErrValidation, "laboratory slots must use a laboratory room")
	}

	schedule := models.Schedule{
		GroupKind:   kind,
		GroupID:     req.GroupID,
		ClassroomID: req.ClassroomID,
		Day:         models.DayOfWeek(req.Day),
		StartTime:   start,
		EndTime:     end,
	}
	conflicts, err := s.conflicts.CheckSlot(ctx, schedule, professorID, "")
	if err != nil {
		return nil, err
	}
	if len(conflicts) > 0 {
		violations := make([]appErrors.Violation, 0, len(conflicts))
		for _, c := range conflicts {
			violations = append(violations, appErrors.Violation{
				Code:    c.Kind,
				Message: fmt.Sprintf("%s: %s %s-%s", c.Detail, c.Day, c.StartTime, c.EndTime),
			})
		}
		return nil, appErrors.WithViolations(appErrors.ErrScheduleConflict, violations)
	}

	if err := s.groups.CreateSchedule(ctx, &schedule); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create schedule")
	}
	s.logger.Info("schedule created",
		zap.String("schedule_id", schedule.ID),
		zap.String("group_id", schedule.GroupID),
		zap.String("day", string(schedule.Day)))
	return &schedule, nil
}

// DeleteSchedule removes a weekly slot.
func (s *GroupService) DeleteSchedule(ctx context.Context, id string) error {
	if err := s.groups.DeleteSchedule(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "schedule not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete schedule")
	}
	return nil
}

// ReplaceDaySchedules swaps every slot a group holds on one day for the
// provided set. Each new slot is validated like a fresh one, except that
// collisions with the slots being replaced are ignored.
func (s *GroupService) ReplaceDaySchedules(ctx context.Context, req models.ReplaceDaySchedulesInput) ([]models.Schedule, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid schedule payload")
	}
	kind := models.GroupKind(req.GroupKind)
	day := models.DayOfWeek(req.Day)
	professorID, err := s.resolveGroupProfessor(ctx, kind, req.GroupID)
	if err != nil {
		return nil, err
	}

	existing, err := s.groups.ListSchedulesByGroup(ctx, kind, req.GroupID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list schedules")
	}
	replaced := make(map[string]bool)
	for _, sc := range existing {
		if sc.Day == day {
			replaced[sc.ID] = true
		}
	}

	candidates := make([]models.Schedule, 0, len(req.Slots))
	var violations []appErrors.Violation
	for _, slot := range req.Slots {
		start, err := models.ParseTimeOfDay(slot.StartTime)
		if err != nil {
			return nil, appErrors.Clone(appErrors.ErrValidation, "invalid start time")
		}
		end, err := models.ParseTimeOfDay(slot.EndTime)
		if err != nil {
			return nil, appErrors.Clone(appErrors.ErrValidation, "invalid end time")
		}
		if end <= start {
			return nil, appErrors.Clone(appErrors.ErrValidation, "end time must be after start time")
		}
		if start < s.dayStart || end > s.dayEnd {
			return nil, appErrors.Clone(appErrors.ErrValidation,
				fmt.Sprintf("schedules must fall between %s and %s", s.dayStart, s.dayEnd))
		}
		room, err := s.classrooms.FindByID(ctx, slot.ClassroomID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, appErrors.Clone(appErrors.ErrNotFound, "classroom not found")
			}
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load classroom")
		}
		if !room.IsActive {
			return nil, appErrors.Clone(appErrors.ErrValidation, "classroom is inactive")
		}
		if kind == models.GroupLab && room.Type != models.ClassroomLaboratory {
			return nil, appErrors.Clone(appErrors.ErrValidation, "laboratory slots must use a laboratory room")
		}

		candidate := models.Schedule{
			GroupKind:   kind,
			GroupID:     req.GroupID,
			ClassroomID: slot.ClassroomID,
			Day:         day,
			StartTime:   start,
			EndTime:     end,
		}
		for _, prev := range candidates {
			if models.Overlaps(prev.StartTime, prev.EndTime, start, end) {
				violations = append(violations, appErrors.Violation{
					Code:    "OVERLAPPING_SLOTS",
					Message: fmt.Sprintf("slots %s-%s and %s-%s overlap", prev.StartTime, prev.EndTime, start, end),
				})
			}
		}
		conflicts, err := s.conflicts.CheckSlot(ctx, candidate, professorID, "")
		if err != nil {
			return nil, err
		}
		for _, c := range conflicts {
			if replaced[c.ScheduleID] {
				continue
			}
			violations = append(violations, appErrors.Violation{
				Code:    c.Kind,
				Message: fmt.Sprintf("%s: %s %s-%s", c.Detail, c.Day, c.StartTime, c.EndTime),
			})
		}
		candidates = append(candidates, candidate)
	}
	if len(violations) > 0 {
		return nil, appErrors.WithViolations(appErrors.ErrScheduleConflict, violations)
	}

	if err := s.groups.ReplaceDaySchedules(ctx, kind, req.GroupID, day, candidates); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to replace schedules")
	}
	s.logger.Info("day schedules replaced",
		zap.String("group_id", req.GroupID),
		zap.String("day", string(day)),
		zap.Int("slots", len(candidates)))
	return candidates, nil
}

// CheckSlot previews the collisions a candidate slot would cause without
// persisting anything.
func (s *GroupService) CheckSlot(ctx context.Context, req models.CreateScheduleInput, excludeID string) ([]ScheduleConflict, error) {
	start, err := models.ParseTimeOfDay(req.StartTime)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "invalid start time")
	}
	end, err := models.ParseTimeOfDay(req.EndTime)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "invalid end time")
	}
	kind := models.GroupKind(req.GroupKind)
	professorID, err := s.resolveGroupProfessor(ctx, kind, req.GroupID)
	if err != nil {
		return nil, err
	}
	candidate := models.Schedule{
		GroupKind:   kind,
		GroupID:     req.GroupID,
		ClassroomID: req.ClassroomID,
		Day:         models.DayOfWeek(req.Day),
		StartTime:   start,
		EndTime:     end,
	}
	return s.conflicts.CheckSlot(ctx, candidate, professorID, excludeID)
}

func (s *GroupService) resolveGroupProfessor(ctx context.Context, kind models.GroupKind, groupID string) (string, error) {
	switch kind {
	case models.GroupTheory:
		group, err := s.GetCourseGroup(ctx, groupID)
		if err != nil {
			return "", err
		}
		return group.ProfessorID, nil
	case models.GroupLab:
		lab, err := s.groups.FindLabGroup(ctx, groupID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return "", appErrors.Clone(appErrors.ErrNotFound, "laboratory group not found")
			}
			return "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load laboratory group")
		}
		return lab.ProfessorID, nil
	default:
		return "", appErrors.Clone(appErrors.ErrValidation, "invalid group kind")
	}
}
