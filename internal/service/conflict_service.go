package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/sgac-unsa/sgac-api/internal/models"
	appErrors "github.com/sgac-unsa/sgac-api/pkg/errors"
)

type conflictScheduleRepository interface {
	ListSchedulesByGroup(ctx context.Context, kind models.GroupKind, groupID string) ([]models.Schedule, error)
	ListSchedulesByClassroomDay(ctx context.Context, classroomID string, day models.DayOfWeek) ([]models.Schedule, error)
	ListSchedulesByProfessorDay(ctx context.Context, professorID string, day models.DayOfWeek) ([]models.Schedule, error)
	ListSchedulesForStudent(ctx context.Context, studentID string) ([]models.Schedule, error)
	FindLabGroup(ctx context.Context, id string) (*models.LaboratoryGroup, error)
}

type conflictClassroomRepository interface {
	List(ctx context.Context, filter models.ClassroomFilter) ([]models.Classroom, error)
}

type conflictReservationRepository interface {
	ListBlockingByClassroomDate(ctx context.Context, classroomID string, date time.Time) ([]models.ClassroomReservation, error)
}

// ScheduleConflict names one collision found while validating a slot.
type ScheduleConflict struct {
	Kind       string           `json:"kind"`
	ScheduleID string           `json:"scheduleId"`
	Day        models.DayOfWeek `json:"day"`
	StartTime  models.TimeOfDay `json:"startTime"`
	EndTime    models.TimeOfDay `json:"endTime"`
	Detail     string           `json:"detail"`
}

// Conflict kinds.
const (
	ConflictGroup     = "GROUP"
	ConflictClassroom = "CLASSROOM"
	ConflictProfessor = "PROFESSOR"
	ConflictStudent   = "STUDENT"
)

// ConflictService detects schedule collisions for classrooms, professors
// and students. All checks treat intervals as half-open, so a slot ending
// at 10:00 never collides with one starting at 10:00.
type ConflictService struct {
	schedules    conflictScheduleRepository
	classrooms   conflictClassroomRepository
	reservations conflictReservationRepository
	logger       *zap.Logger
}

// NewConflictService instantiates ConflictService.
func NewConflictService(schedules conflictScheduleRepository, classrooms conflictClassroomRepository, reservations conflictReservationRepository, logger *zap.Logger) *ConflictService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ConflictService{schedules: schedules, classrooms: classrooms, reservations: reservations, logger: logger}
}

// CheckSlot returns every collision a candidate slot would cause, checking
// the group's own course schedule first, then the target classroom and the
// teaching professor. excludeID skips the slot being edited so it does not
// conflict with itself.
func (s *ConflictService) CheckSlot(ctx context.Context, candidate models.Schedule, professorID, excludeID string) ([]ScheduleConflict, error) {
	var conflicts []ScheduleConflict

	if candidate.GroupID != "" {
		groupConflicts, err := s.groupConflicts(ctx, candidate, excludeID)
		if err != nil {
			return nil, err
		}
		conflicts = append(conflicts, groupConflicts...)
	}

	roomSlots, err := s.schedules.ListSchedulesByClassroomDay(ctx, candidate.ClassroomID, candidate.Day)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load classroom schedules")
	}
	for _, slot := range roomSlots {
		if slot.ID == excludeID {
			continue
		}
		if candidate.OverlapsWith(&slot) {
			conflicts = append(conflicts, ScheduleConflict{
				Kind:       ConflictClassroom,
				ScheduleID: slot.ID,
				Day:        slot.Day,
				StartTime:  slot.StartTime,
				EndTime:    slot.EndTime,
				Detail:     "classroom already occupied",
			})
		}
	}

	if professorID != "" {
		profSlots, err := s.schedules.ListSchedulesByProfessorDay(ctx, professorID, candidate.Day)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load professor schedules")
		}
		for _, slot := range profSlots {
			if slot.ID == excludeID {
				continue
			}
			if candidate.OverlapsWith(&slot) {
				conflicts = append(conflicts, ScheduleConflict{
					Kind:       ConflictProfessor,
					ScheduleID: slot.ID,
					Day:        slot.Day,
					StartTime:  slot.StartTime,
					EndTime:    slot.EndTime,
					Detail:     "professor already teaching",
				})
			}
		}
	}

	return conflicts, nil
}

// groupConflicts scans the candidate group's own slots on the same day,
// plus the parent course group's theory slots when the candidate is a lab.
// A different room does not help here: a group cannot meet twice at once.
func (s *ConflictService) groupConflicts(ctx context.Context, candidate models.Schedule, excludeID string) ([]ScheduleConflict, error) {
	slots, err := s.schedules.ListSchedulesByGroup(ctx, candidate.GroupKind, candidate.GroupID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load group schedules")
	}
	if candidate.GroupKind == models.GroupLab {
		lab, err := s.schedules.FindLabGroup(ctx, candidate.GroupID)
		if err != nil && !errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load lab group")
		}
		if lab != nil {
			theory, err := s.schedules.ListSchedulesByGroup(ctx, models.GroupTheory, lab.CourseGroupID)
			if err != nil {
				return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load theory schedules")
			}
			slots = append(slots, theory...)
		}
	}

	var conflicts []ScheduleConflict
	for _, slot := range slots {
		if slot.ID == excludeID || slot.Day != candidate.Day {
			continue
		}
		if candidate.OverlapsWith(&slot) {
			conflicts = append(conflicts, ScheduleConflict{
				Kind:       ConflictGroup,
				ScheduleID: slot.ID,
				Day:        slot.Day,
				StartTime:  slot.StartTime,
				EndTime:    slot.EndTime,
				Detail:     "group already meets in this window",
			})
		}
	}
	return conflicts, nil
}

// HasStudentConflict reports whether any of the candidate slots collide
// with the student's existing weekly schedule.
func (s *ConflictService) HasStudentConflict(ctx context.Context, studentID string, candidates []models.Schedule) (bool, error) {
	existing, err := s.schedules.ListSchedulesForStudent(ctx, studentID)
	if err != nil {
		return false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student schedules")
	}
	for _, candidate := range candidates {
		for _, slot := range existing {
			if candidate.OverlapsWith(&slot) {
				return true, nil
			}
		}
	}
	return false, nil
}

// FindAvailableRooms returns active rooms of the requested type with at
// least minSeats whose weekly slots leave the given window free. When a
// date is supplied, pending and approved reservations on that date also
// block rooms.
func (s *ConflictService) FindAvailableRooms(ctx context.Context, roomType models.ClassroomType, minSeats int, day models.DayOfWeek, start, end models.TimeOfDay, date *time.Time) ([]models.Classroom, error) {
	active := true
	rooms, err := s.classrooms.List(ctx, models.ClassroomFilter{Type: roomType, MinSeats: minSeats, Active: &active})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list classrooms")
	}

	var available []models.Classroom
	for _, room := range rooms {
		free, err := s.RoomFree(ctx, room.ID, day, start, end, date, "")
		if err != nil {
			return nil, err
		}
		if free {
			available = append(available, room)
		}
	}
	return available, nil
}

// RoomFree reports whether one room's window is clear of weekly slots and,
// when a date is given, of pending and approved reservations on that date.
// excludeReservationID skips the reservation under review so it does not
// block itself.
func (s *ConflictService) RoomFree(ctx context.Context, classroomID string, day models.DayOfWeek, start, end models.TimeOfDay, date *time.Time, excludeReservationID string) (bool, error) {
	slots, err := s.schedules.ListSchedulesByClassroomDay(ctx, classroomID, day)
	if err != nil {
		return false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load classroom schedules")
	}
	for _, slot := range slots {
		if models.Overlaps(start, end, slot.StartTime, slot.EndTime) {
			return false, nil
		}
	}
	if date != nil {
		reservations, err := s.reservations.ListBlockingByClassroomDate(ctx, classroomID, *date)
		if err != nil {
			return false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load reservations")
		}
		for _, reservation := range reservations {
			if reservation.ID == excludeReservationID {
				continue
			}
			if models.Overlaps(start, end, reservation.StartTime, reservation.EndTime) {
				return false, nil
			}
		}
	}
	return true, nil
}
