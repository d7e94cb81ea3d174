package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/sgac-unsa/sgac-api/internal/models"
	"github.com/sgac-unsa/sgac-api/internal/repository"
	appErrors "github.com/sgac-unsa/sgac-api/pkg/errors"
)

type classroomRepository interface {
	List(ctx context.Context, filter models.ClassroomFilter) ([]models.Classroom, error)
	FindByID(ctx context.Context, id string) (*models.Classroom, error)
	NextCode(ctx context.Context, roomType models.ClassroomType) (string, error)
	Create(ctx context.Context, room *models.Classroom) error
	Update(ctx context.Context, room *models.Classroom) error
}

type availabilityFinder interface {
	FindAvailableRooms(ctx context.Context, roomType models.ClassroomType, minSeats int, day models.DayOfWeek, start, end models.TimeOfDay, date *time.Time) ([]models.Classroom, error)
}

// ClassroomService manages physical rooms. Room codes are never supplied
// by callers; the next sequential code for the room type is assigned at
// creation.
type ClassroomService struct {
	classrooms   classroomRepository
	availability availabilityFinder
	validator    *validator.Validate
	logger       *zap.Logger
}

// NewClassroomService instantiates ClassroomService.
func NewClassroomService(classrooms classroomRepository, availability availabilityFinder, validate *validator.Validate, logger *zap.Logger) *ClassroomService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ClassroomService{classrooms: classrooms, availability: availability, validator: validate, logger: logger}
}

// List returns classrooms matching the filter.
func (s *ClassroomService) List(ctx context.Context, filter models.ClassroomFilter) ([]models.Classroom, error) {
	rooms, err := s.classrooms.List(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list classrooms")
	}
	return rooms, nil
}

// Get returns one classroom by id.
func (s *ClassroomService) Get(ctx context.Context, id string) (*models.Classroom, error) {
	room, err := s.classrooms.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "classroom not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load classroom")
	}
	return room, nil
}

// Create registers a classroom with the next sequential code for its type.
func (s *ClassroomService) Create(ctx context.Context, req models.CreateClassroomInput) (*models.Classroom, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid classroom payload")
	}
	roomType := models.ClassroomType(req.Type)
	code, err := s.classrooms.NextCode(ctx, roomType)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to allocate classroom code")
	}

	room := models.Classroom{
		Code:     code,
		Name:     req.Name,
		Type:     roomType,
		Capacity: req.Capacity,
		Building: req.Building,
		IsActive: true,
	}
	if err := s.classrooms.Create(ctx, &room); err != nil {
		if repository.IsUniqueViolation(err) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "classroom code already taken")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create classroom")
	}
	s.logger.Info("classroom created", zap.String("classroom_id", room.ID), zap.String("code", room.Code))
	return &room, nil
}

// Update patches a classroom. The code and type are immutable.
func (s *ClassroomService) Update(ctx context.Context, id string, req models.UpdateClassroomInput) (*models.Classroom, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid classroom payload")
	}
	room, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if req.Name != nil {
		room.Name = *req.Name
	}
	if req.Capacity != nil {
		room.Capacity = *req.Capacity
	}
	if req.Building != nil {
		room.Building = *req.Building
	}
	if req.IsActive != nil {
		room.IsActive = *req.IsActive
	}
	if err := s.classrooms.Update(ctx, room); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update classroom")
	}
	return room, nil
}

// Available returns rooms of the requested type free in the given weekly
// window. A date narrows the check to that day's approved reservations too.
func (s *ClassroomService) Available(ctx context.Context, roomType models.ClassroomType, minSeats int, day models.DayOfWeek, start, end models.TimeOfDay, date *time.Time) ([]models.Classroom, error) {
	if !roomType.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "invalid classroom type")
	}
	if !day.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "invalid day of week")
	}
	if end <= start {
		return nil, appErrors.Clone(appErrors.ErrValidation, "end time must be after start time")
	}
	return s.availability.FindAvailableRooms(ctx, roomType, minSeats, day, start, end, date)
}
