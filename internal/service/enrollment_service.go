package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/sgac-unsa/sgac-api/internal/models"
	"github.com/sgac-unsa/sgac-api/internal/repository"
	appErrors "github.com/sgac-unsa/sgac-api/pkg/errors"
)

type enrollmentRepository interface {
	FindByID(ctx context.Context, id string) (*models.StudentEnrollment, error)
	FindByStudentAndGroup(ctx context.Context, studentID, courseGroupID string) (*models.StudentEnrollment, error)
	ListByGroup(ctx context.Context, courseGroupID string) ([]models.StudentEnrollment, error)
	ListByStudent(ctx context.Context, studentID string) ([]models.StudentEnrollment, error)
	CountActiveByGroup(ctx context.Context, courseGroupID string) (int, error)
	Create(ctx context.Context, enrollment *models.StudentEnrollment) error
	UpdateStatus(ctx context.Context, id string, status models.EnrollmentStatus) error
}

type enrollmentGroupRepository interface {
	FindCourseGroup(ctx context.Context, id string) (*models.CourseGroup, error)
}

// EnrollmentService manages course group rosters and the student dashboard.
type EnrollmentService struct {
	enrollments enrollmentRepository
	groups      enrollmentGroupRepository
	validator   *validator.Validate
	logger      *zap.Logger

	approvedPct float64
	riskPct     float64
}

// NewEnrollmentService instantiates EnrollmentService.
func NewEnrollmentService(enrollments enrollmentRepository, groups enrollmentGroupRepository, approvedPct, riskPct float64, validate *validator.Validate, logger *zap.Logger) *EnrollmentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if approvedPct <= 0 {
		approvedPct = 70
	}
	if riskPct <= 0 {
		riskPct = 30
	}
	return &EnrollmentService{
		enrollments: enrollments,
		groups:      groups,
		validator:   validate,
		logger:      logger,
		approvedPct: approvedPct,
		riskPct:     riskPct,
	}
}

// Enroll registers a student in a course group. The group must have a free
// seat and the student may enroll only once per group.
func (s *EnrollmentService) Enroll(ctx context.Context, req models.EnrollStudentInput) (*models.StudentEnrollment, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid enrollment payload")
	}

	group, err := s.groups.FindCourseGroup(ctx, req.CourseGroupID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "course group not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course group")
	}

	if _, err := s.enrollments.FindByStudentAndGroup(ctx, req.StudentID, req.CourseGroupID); err == nil {
		return nil, appErrors.Clone(appErrors.ErrConflict, "student is already enrolled in this group")
	} else if !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check enrollment")
	}

	active, err := s.enrollments.CountActiveByGroup(ctx, req.CourseGroupID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count enrollments")
	}
	if active >= group.Capacity {
		return nil, appErrors.Clone(appErrors.ErrConflict, "course group is full")
	}

	enrollment := models.StudentEnrollment{
		StudentID:     req.StudentID,
		CourseGroupID: req.CourseGroupID,
		Status:        models.EnrollmentActive,
	}
	if err := s.enrollments.Create(ctx, &enrollment); err != nil {
		if repository.IsUniqueViolation(err) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "student is already enrolled in this group")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create enrollment")
	}
	return &enrollment, nil
}

// Withdraw marks an enrollment WITHDRAWN.
func (s *EnrollmentService) Withdraw(ctx context.Context, enrollmentID string) error {
	enrollment, err := s.enrollments.FindByID(ctx, enrollmentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "enrollment not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load enrollment")
	}
	if enrollment.Status != models.EnrollmentActive {
		return appErrors.Clone(appErrors.ErrConflict, "only active enrollments can be withdrawn")
	}
	if err := s.enrollments.UpdateStatus(ctx, enrollmentID, models.EnrollmentWithdrawn); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to withdraw enrollment")
	}
	return nil
}

// Roster returns the enrollments of a course group.
func (s *EnrollmentService) Roster(ctx context.Context, courseGroupID string) ([]models.StudentEnrollment, error) {
	enrollments, err := s.enrollments.ListByGroup(ctx, courseGroupID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list roster")
	}
	return enrollments, nil
}

// Dashboard returns a student's enrollments with attendance risk levels.
func (s *EnrollmentService) Dashboard(ctx context.Context, studentID string) ([]models.EnrollmentSummary, error) {
	enrollments, err := s.enrollments.ListByStudent(ctx, studentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list enrollments")
	}
	summaries := make([]models.EnrollmentSummary, 0, len(enrollments))
	for _, enrollment := range enrollments {
		summaries = append(summaries, models.EnrollmentSummary{
			Enrollment: enrollment,
			RiskLevel:  models.AttendanceRiskLevel(enrollment.AttendancePercentage, s.approvedPct, s.riskPct),
		})
	}
	return summaries, nil
}
