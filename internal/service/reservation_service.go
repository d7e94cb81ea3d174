package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/sgac-unsa/sgac-api/internal/models"
	appErrors "github.com/sgac-unsa/sgac-api/pkg/errors"
)

type reservationRepository interface {
	List(ctx context.Context, filter models.ReservationFilter) ([]models.ClassroomReservation, error)
	FindByID(ctx context.Context, id string) (*models.ClassroomReservation, error)
	ListBlockingByClassroomDate(ctx context.Context, classroomID string, date time.Time) ([]models.ClassroomReservation, error)
	Create(ctx context.Context, reservation *models.ClassroomReservation) error
	UpdateStatus(ctx context.Context, id string, status models.ReservationStatus, reviewedBy string) error
}

type reservationClassroomRepository interface {
	FindByID(ctx context.Context, id string) (*models.Classroom, error)
}

type roomAvailabilityChecker interface {
	RoomFree(ctx context.Context, classroomID string, day models.DayOfWeek, start, end models.TimeOfDay, date *time.Time, excludeReservationID string) (bool, error)
}

// ReservationService manages ad-hoc classroom bookings. Rule validation
// accumulates every violation before answering, so a requester sees all
// problems at once instead of fixing them one by one.
type ReservationService struct {
	reservations reservationRepository
	classrooms   reservationClassroomRepository
	availability roomAvailabilityChecker
	validator    *validator.Validate
	logger       *zap.Logger

	dayStart    models.TimeOfDay
	dayEnd      models.TimeOfDay
	minDuration time.Duration
	now         func() time.Time
}

// NewReservationService instantiates ReservationService.
func NewReservationService(
	reservations reservationRepository,
	classrooms reservationClassroomRepository,
	availability roomAvailabilityChecker,
	dayStart, dayEnd models.TimeOfDay,
	minDuration time.Duration,
	validate *validator.Validate,
	logger *zap.Logger,
) *ReservationService {
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
	if minDuration <= 0 {
		minDuration = time.Hour
	}
	return &ReservationService{
		reservations: reservations,
		classrooms:   classrooms,
		availability: availability,
		validator:    validate,
		logger:       logger,
		dayStart:     dayStart,
		dayEnd:       dayEnd,
		minDuration:  minDuration,
		now:          time.Now,
	}
}

// Create validates and stores a reservation request in PENDING state.
// Rule violations (operating window, minimum duration, past date) are
// collected first; availability is only checked when the rules pass.
func (s *ReservationService) Create(ctx context.Context, requestedBy string, req models.CreateReservationInput) (*models.ClassroomReservation, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid reservation payload")
	}
	start, err := models.ParseTimeOfDay(req.StartTime)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "invalid start time")
	}
	end, err := models.ParseTimeOfDay(req.EndTime)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "invalid end time")
	}
	date, err := time.Parse("2006-01-02", req.Date)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "invalid date")
	}
	if end <= start {
		return nil, appErrors.Clone(appErrors.ErrValidation, "end time must be after start time")
	}

	room, err := s.classrooms.FindByID(ctx, req.ClassroomID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "classroom not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load classroom")
	}

	if violations := s.ruleViolations(date, start, end); len(violations) > 0 {
		return nil, appErrors.WithViolations(appErrors.ErrValidation, violations)
	}

	available, err := s.roomAvailable(ctx, room, date, start, end, "")
	if err != nil {
		return nil, err
	}
	if !available {
		return nil, appErrors.WithViolations(appErrors.ErrRoomUnavailable, []appErrors.Violation{{
			Code:    appErrors.CodeRoomUnavailable,
			Message: "classroom is already booked in the requested window",
		}})
	}

	reservation := models.ClassroomReservation{
		ClassroomID: req.ClassroomID,
		RequestedBy: requestedBy,
		Date:        models.DateOnly(date),
		StartTime:   start,
		EndTime:     end,
		Purpose:     req.Purpose,
		Status:      models.ReservationPending,
	}
	if err := s.reservations.Create(ctx, &reservation); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create reservation")
	}
	return &reservation, nil
}

// ruleViolations collects every broken booking rule for the requested
// window.
func (s *ReservationService) ruleViolations(date time.Time, start, end models.TimeOfDay) []appErrors.Violation {
	var violations []appErrors.Violation

	if start < s.dayStart || end > s.dayEnd {
		violations = append(violations, appErrors.Violation{
			Code:    appErrors.CodeOutsideOperatingHours,
			Message: fmt.Sprintf("reservations must fall between %s and %s", s.dayStart, s.dayEnd),
		})
	}
	if end.Minutes()-start.Minutes() < s.minDuration {
		violations = append(violations, appErrors.Violation{
			Code:    appErrors.CodeReservationTooShort,
			Message: fmt.Sprintf("reservations must last at least %d minutes", int(s.minDuration.Minutes())),
		})
	}
	if models.DateOnly(date).Before(models.DateOnly(s.now())) {
		violations = append(violations, appErrors.Violation{
			Code:    appErrors.CodePastDate,
			Message: "reservation date cannot be in the past",
		})
	}
	return violations
}

func (s *ReservationService) roomAvailable(ctx context.Context, room *models.Classroom, date time.Time, start, end models.TimeOfDay, excludeID string) (bool, error) {
	day, ok := models.DayFromWeekday(date.Weekday())
	if !ok {
		// Sunday: no weekly schedules can collide, only pending and
		// approved reservations
		reservations, err := s.reservations.ListBlockingByClassroomDate(ctx, room.ID, date)
		if err != nil {
			return false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load reservations")
		}
		for _, other := range reservations {
			if other.ID == excludeID {
				continue
			}
			if models.Overlaps(start, end, other.StartTime, other.EndTime) {
				return false, nil
			}
		}
		return true, nil
	}

	return s.availability.RoomFree(ctx, room.ID, day, start, end, &date, excludeID)
}

// Approve re-validates availability and confirms a pending reservation.
// The window may have been taken since the request was filed.
func (s *ReservationService) Approve(ctx context.Context, id, reviewedBy string) (*models.ClassroomReservation, error) {
	reservation, err := s.loadPending(ctx, id)
	if err != nil {
		return nil, err
	}
	room, err := s.classrooms.FindByID(ctx, reservation.ClassroomID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load classroom")
	}
	available, err := s.roomAvailable(ctx, room, reservation.Date, reservation.StartTime, reservation.EndTime, reservation.ID)
	if err != nil {
		return nil, err
	}
	if !available {
		return nil, appErrors.Clone(appErrors.ErrRoomUnavailable, "classroom is no longer available in the requested window")
	}

	if err := s.reservations.UpdateStatus(ctx, id, models.ReservationApproved, reviewedBy); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to approve reservation")
	}
	reservation.Status = models.ReservationApproved
	reservation.ReviewedBy = &reviewedBy
	s.logger.Info("reservation approved", zap.String("reservation_id", id), zap.String("reviewed_by", reviewedBy))
	return reservation, nil
}

// Reject declines a pending reservation.
func (s *ReservationService) Reject(ctx context.Context, id, reviewedBy string) (*models.ClassroomReservation, error) {
	reservation, err := s.loadPending(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.reservations.UpdateStatus(ctx, id, models.ReservationRejected, reviewedBy); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to reject reservation")
	}
	reservation.Status = models.ReservationRejected
	reservation.ReviewedBy = &reviewedBy
	return reservation, nil
}

// Cancel lets the requester withdraw their own pending or approved
// reservation.
func (s *ReservationService) Cancel(ctx context.Context, id, requestedBy string) error {
	reservation, err := s.reservations.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "reservation not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load reservation")
	}
	if reservation.RequestedBy != requestedBy {
		return appErrors.Clone(appErrors.ErrForbidden, "only the requester can cancel a reservation")
	}
	if reservation.Status != models.ReservationPending && reservation.Status != models.ReservationApproved {
		return appErrors.Clone(appErrors.ErrConflict, "reservation cannot be cancelled in its current state")
	}
	if err := s.reservations.UpdateStatus(ctx, id, models.ReservationCancelled, requestedBy); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to cancel reservation")
	}
	return nil
}

// List returns reservations matching the filter.
func (s *ReservationService) List(ctx context.Context, filter models.ReservationFilter) ([]models.ClassroomReservation, error) {
	reservations, err := s.reservations.List(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list reservations")
	}
	return reservations, nil
}

func (s *ReservationService) loadPending(ctx context.Context, id string) (*models.ClassroomReservation, error) {
	reservation, err := s.reservations.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "reservation not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load reservation")
	}
	if reservation.Status != models.ReservationPending {
		return nil, appErrors.Clone(appErrors.ErrConflict, "reservation is not pending review")
	}
	return reservation, nil
}
