package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/sgac-unsa/sgac-api/internal/models"
	appErrors "github.com/sgac-unsa/sgac-api/pkg/errors"
)

type statsGroupRepository interface {
	CountsBySemester(ctx context.Context, semesterID string) (*models.GroupCounts, error)
	ClassroomMinutesBySemester(ctx context.Context, semesterID string) ([]models.ClassroomUsage, error)
	TopCoursesBySemester(ctx context.Context, semesterID string, limit int) ([]models.CourseEnrollment, error)
	ProfessorLoadBySemester(ctx context.Context, semesterID string) ([]models.ProfessorLoad, error)
}

const topCoursesLimit = 5

type statsSemesterRepository interface {
	FindActive(ctx context.Context) (*models.Semester, error)
}

// StatsService builds the registrar dashboard report. Reports aggregate
// several tables, so results are cached in redis for the configured TTL.
type StatsService struct {
	groups          statsGroupRepository
	semesters       statsSemesterRepository
	cache           *CacheService
	weeklyRoomHours float64
	logger          *zap.Logger
}

// NewStatsService instantiates StatsService. weeklyRoomHours is the hours
// one room is bookable per week, derived from the operating window.
func NewStatsService(groups statsGroupRepository, semesters statsSemesterRepository, cache *CacheService, weeklyRoomHours float64, logger *zap.Logger) *StatsService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if weeklyRoomHours <= 0 {
		// 07:00-20:10 Monday through Saturday
		weeklyRoomHours = (13 + 10.0/60) * 6
	}
	return &StatsService{groups: groups, semesters: semesters, cache: cache, weeklyRoomHours: weeklyRoomHours, logger: logger}
}

func statsCacheKey(semesterID string) string {
	return "stats:semester:" + semesterID
}

// SemesterStats assembles the report for one semester: group and student
// counts plus per-classroom saturation against the weekly bookable hours.
func (s *StatsService) SemesterStats(ctx context.Context, semesterID string) (*models.SemesterStats, error) {
	if s.cache.Enabled() {
		var cached models.SemesterStats
		hit, err := s.cache.Get(ctx, statsCacheKey(semesterID), &cached)
		if err != nil {
			s.logger.Warn("stats cache read failed", zap.Error(err))
		}
		if hit {
			return &cached, nil
		}
	}

	counts, err := s.groups.CountsBySemester(ctx, semesterID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to aggregate semester counts")
	}
	usage, err := s.groups.ClassroomMinutesBySemester(ctx, semesterID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to aggregate classroom usage")
	}
	for i := range usage {
		usage[i].Saturation = models.Round2(usage[i].BookedHours / s.weeklyRoomHours)
		usage[i].Level = models.SaturationLevel(usage[i].Saturation)
	}
	topCourses, err := s.groups.TopCoursesBySemester(ctx, semesterID, topCoursesLimit)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to rank courses")
	}
	load, err := s.groups.ProfessorLoadBySemester(ctx, semesterID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to aggregate professor load")
	}
	for i := range load {
		load[i].WeeklyHours = models.Round2(load[i].WeeklyHours)
	}

	stats := models.SemesterStats{
		SemesterID:     semesterID,
		TotalCourses:   counts.Courses,
		TotalGroups:    counts.Groups,
		TotalStudents:  counts.Students,
		TotalSchedules: counts.Schedules,
		ClassroomUsage: usage,
		TopCourses:     topCourses,
		ProfessorLoad:  load,
	}
	if s.cache.Enabled() {
		if err := s.cache.Set(ctx, statsCacheKey(semesterID), stats, 0); err != nil {
			s.logger.Warn("stats cache write failed", zap.Error(err))
		}
	}
	return &stats, nil
}

// ActiveSemesterStats runs the report against the active semester.
func (s *StatsService) ActiveSemesterStats(ctx context.Context) (*models.SemesterStats, error) {
	semester, err := s.semesters.FindActive(ctx)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "no active semester")
	}
	return s.SemesterStats(ctx, semester.ID)
}

// InvalidateSemester drops the cached report after writes that change it.
func (s *StatsService) InvalidateSemester(ctx context.Context, semesterID string) {
	if !s.cache.Enabled() {
		return
	}
	if err := s.cache.Invalidate(ctx, statsCacheKey(semesterID)); err != nil {
		s.logger.Warn("stats cache invalidation failed", zap.Error(err))
	}
}
