package service

import (
	"context"
	"database/sql"
	"errors"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/sgac-unsa/sgac-api/internal/models"
	appErrors "github.com/sgac-unsa/sgac-api/pkg/errors"
)

type sessionGroupRepository interface {
	FindCourseGroup(ctx context.Context, id string) (*models.CourseGroup, error)
	FindLabGroup(ctx context.Context, id string) (*models.LaboratoryGroup, error)
	ListSchedulesByGroup(ctx context.Context, kind models.GroupKind, groupID string) ([]models.Schedule, error)
}

type sessionSemesterRepository interface {
	FindByID(ctx context.Context, id string) (*models.Semester, error)
	FindActive(ctx context.Context) (*models.Semester, error)
}

// SessionService derives the dictated sessions of a group from its weekly
// schedules and the semester calendar. Sessions are never stored; they are
// recomputed on demand so a schedule change is reflected immediately.
type SessionService struct {
	groups        sessionGroupRepository
	semesters     sessionSemesterRepository
	labStartOffset int
	logger        *zap.Logger
	now           func() time.Time
}

// NewSessionService instantiates SessionService.
func NewSessionService(groups sessionGroupRepository, semesters sessionSemesterRepository, labStartOffsetDays int, logger *zap.Logger) *SessionService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if labStartOffsetDays <= 0 {
		labStartOffsetDays = 7
	}
	return &SessionService{
		groups:         groups,
		semesters:      semesters,
		labStartOffset: labStartOffsetDays,
		logger:         logger,
		now:            time.Now,
	}
}

// GenerateTheorySessions walks every date of the semester and emits one
// session per date whose weekday is in the group's scheduled days, numbered
// 1-based in chronological order. The walk is deterministic: the same
// semester and day set always produce the same numbering.
func GenerateTheorySessions(semester *models.Semester, days []models.DayOfWeek) []models.SessionDescriptor {
	wanted := make(map[time.Weekday]models.DayOfWeek, len(days))
	for _, d := range days {
		if w, ok := d.Weekday(); ok {
			wanted[w] = d
		}
	}
	var sessions []models.SessionDescriptor
	start := models.DateOnly(semester.StartDate)
	end := models.DateOnly(semester.EndDate)
	number := 0
	for date := start; !date.After(end); date = date.AddDate(0, 0, 1) {
		day, ok := wanted[date.Weekday()]
		if !ok {
			continue
		}
		number++
		sessions = append(sessions, models.SessionDescriptor{Number: number, Date: date, Day: day})
	}
	return sessions
}

// GenerateLabSessions emits weekly lab sessions. Labs begin offsetDays
// after the semester opens; the first scheduled weekday on or after that
// start anchors the series, which then steps in whole weeks until the
// semester ends.
func GenerateLabSessions(semester *models.Semester, days []models.DayOfWeek, offsetDays int) []models.SessionDescriptor {
	wanted := make(map[time.Weekday]models.DayOfWeek, len(days))
	for _, d := range days {
		if w, ok := d.Weekday(); ok {
			wanted[w] = d
		}
	}
	end := models.DateOnly(semester.EndDate)
	labStart := semester.LabStart(offsetDays)

	// one anchor per scheduled weekday, found within the first week of labs
	var anchors []time.Time
	for i := 0; i < 7; i++ {
		date := labStart.AddDate(0, 0, i)
		if date.After(end) {
			break
		}
		if _, ok := wanted[date.Weekday()]; ok {
			anchors = append(anchors, date)
		}
	}

	var sessions []models.SessionDescriptor
	for _, anchor := range anchors {
		for date := anchor; !date.After(end); date = date.AddDate(0, 0, 7) {
			sessions = append(sessions, models.SessionDescriptor{Date: date, Day: wanted[date.Weekday()]})
		}
	}
	sort.Slice(sessions, func(i, j int) bool { return sessions[i].Date.Before(sessions[j].Date) })
	for i := range sessions {
		sessions[i].Number = i + 1
	}
	return sessions
}

// TheorySessions returns the dictated sessions of a theory group with
// temporal flags relative to today.
func (s *SessionService) TheorySessions(ctx context.Context, courseGroupID string) ([]models.SessionDescriptor, error) {
	group, err := s.groups.FindCourseGroup(ctx, courseGroupID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "course group not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course group")
	}
	semester, err := s.semesters.FindByID(ctx, group.SemesterID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load semester")
	}
	days, err := s.scheduledDays(ctx, models.GroupTheory, courseGroupID)
	if err != nil {
		return nil, err
	}
	sessions := GenerateTheorySessions(semester, days)
	s.annotate(sessions)
	return sessions, nil
}

// LabSessions returns the dictated sessions of a lab group, starting one
// configured offset after the semester opens.
func (s *SessionService) LabSessions(ctx context.Context, labGroupID string) ([]models.SessionDescriptor, error) {
	lab, err := s.groups.FindLabGroup(ctx, labGroupID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "lab group not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load lab group")
	}
	group, err := s.groups.FindCourseGroup(ctx, lab.CourseGroupID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course group")
	}
	semester, err := s.semesters.FindByID(ctx, group.SemesterID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load semester")
	}
	days, err := s.scheduledDays(ctx, models.GroupLab, labGroupID)
	if err != nil {
		return nil, err
	}
	sessions := GenerateLabSessions(semester, days, s.labStartOffset)
	s.annotate(sessions)
	return sessions, nil
}

func (s *SessionService) scheduledDays(ctx context.Context, kind models.GroupKind, groupID string) ([]models.DayOfWeek, error) {
	schedules, err := s.groups.ListSchedulesByGroup(ctx, kind, groupID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load group schedules")
	}
	seen := make(map[models.DayOfWeek]struct{}, len(schedules))
	var days []models.DayOfWeek
	for _, sched := range schedules {
		if _, ok := seen[sched.Day]; ok {
			continue
		}
		seen[sched.Day] = struct{}{}
		days = append(days, sched.Day)
	}
	return days, nil
}

func (s *SessionService) annotate(sessions []models.SessionDescriptor) {
	today := s.now()
	for i := range sessions {
		sessions[i].Annotate(today)
	}
}
