package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/sgac-unsa/sgac-api/internal/models"
	appErrors "github.com/sgac-unsa/sgac-api/pkg/errors"
)

type attendanceRepository interface {
	ListByEnrollment(ctx context.Context, enrollmentID string) ([]models.AttendanceRecord, error)
	ListBySession(ctx context.Context, courseGroupID string, sessionNumber int) ([]models.AttendanceRecord, error)
	SaveMarks(ctx context.Context, records []models.AttendanceRecord) error
	RecomputePercentage(ctx context.Context, enrollmentID string) error
}

type attendanceEnrollmentRepository interface {
	FindByID(ctx context.Context, id string) (*models.StudentEnrollment, error)
}

// AttendanceService records session attendance. Saving a session is
// idempotent: re-marking overwrites previous states and the cached
// percentage follows in the same transaction.
type AttendanceService struct {
	attendance  attendanceRepository
	enrollments attendanceEnrollmentRepository
	validator   *validator.Validate
	logger      *zap.Logger
}

// NewAttendanceService instantiates AttendanceService.
func NewAttendanceService(attendance attendanceRepository, enrollments attendanceEnrollmentRepository, validate *validator.Validate, logger *zap.Logger) *AttendanceService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AttendanceService{attendance: attendance, enrollments: enrollments, validator: validate, logger: logger}
}

// Save persists one session's marks for a course group. Every referenced
// enrollment must belong to the group; the whole batch is rejected
// otherwise. recordedIP is the address the sheet was filed from.
func (s *AttendanceService) Save(ctx context.Context, courseGroupID, recordedBy, recordedIP string, req models.SaveAttendanceInput) error {
	if err := s.validator.Struct(req); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid attendance payload")
	}
	sessionDate, err := time.Parse("2006-01-02", req.SessionDate)
	if err != nil {
		return appErrors.Clone(appErrors.ErrValidation, "invalid session date")
	}

	records := make([]models.AttendanceRecord, 0, len(req.Marks))
	for _, mark := range req.Marks {
		enrollment, err := s.enrollments.FindByID(ctx, mark.EnrollmentID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return appErrors.Clone(appErrors.ErrNotFound, "enrollment not found")
			}
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load enrollment")
		}
		if enrollment.CourseGroupID != courseGroupID {
			return appErrors.Clone(appErrors.ErrValidation, "enrollment does not belong to this course group")
		}
		records = append(records, models.AttendanceRecord{
			EnrollmentID:  mark.EnrollmentID,
			SessionNumber: req.SessionNumber,
			SessionDate:   models.DateOnly(sessionDate),
			State:         models.AttendanceState(mark.State),
			RecordedBy:    recordedBy,
			RecordedIP:    recordedIP,
		})
	}

	if err := s.attendance.SaveMarks(ctx, records); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to save attendance")
	}
	s.logger.Info("attendance saved",
		zap.String("course_group_id", courseGroupID),
		zap.Int("session", req.SessionNumber),
		zap.Int("marks", len(records)))
	return nil
}

// Recalculate recomputes one enrollment's cached attendance percentage
// from its stored records, for repairs after out-of-band data changes.
func (s *AttendanceService) Recalculate(ctx context.Context, enrollmentID string) error {
	if _, err := s.enrollments.FindByID(ctx, enrollmentID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "enrollment not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load enrollment")
	}
	if err := s.attendance.RecomputePercentage(ctx, enrollmentID); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to recompute attendance")
	}
	s.logger.Info("attendance recomputed", zap.String("enrollment_id", enrollmentID))
	return nil
}

// SessionSheet returns the recorded marks of one group session.
func (s *AttendanceService) SessionSheet(ctx context.Context, courseGroupID string, sessionNumber int) ([]models.AttendanceRecord, error) {
	records, err := s.attendance.ListBySession(ctx, courseGroupID, sessionNumber)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list session attendance")
	}
	return records, nil
}

// StudentHistory returns one enrollment's attendance records.
func (s *AttendanceService) StudentHistory(ctx context.Context, enrollmentID string) ([]models.AttendanceRecord, error) {
	if _, err := s.enrollments.FindByID(ctx, enrollmentID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "enrollment not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load enrollment")
	}
	records, err := s.attendance.ListByEnrollment(ctx, enrollmentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list attendance")
	}
	return records, nil
}
