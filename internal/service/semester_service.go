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

type semesterRepository interface {
	List(ctx context.Context) ([]models.Semester, error)
	FindByID(ctx context.Context, id string) (*models.Semester, error)
	FindActive(ctx context.Context) (*models.Semester, error)
	Create(ctx context.Context, semester *models.Semester) error
	Update(ctx context.Context, semester *models.Semester) error
	Activate(ctx context.Context, id string) error
}

// SemesterService manages academic periods. At most one semester is active
// at a time; Activate swaps the flag atomically.
type SemesterService struct {
	semesters semesterRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewSemesterService instantiates SemesterService.
func NewSemesterService(semesters semesterRepository, validate *validator.Validate, logger *zap.Logger) *SemesterService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SemesterService{semesters: semesters, validator: validate, logger: logger}
}

// List returns all semesters, newest first.
func (s *SemesterService) List(ctx context.Context) ([]models.Semester, error) {
	semesters, err := s.semesters.List(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list semesters")
	}
	return semesters, nil
}

// Get returns one semester by id.
func (s *SemesterService) Get(ctx context.Context, id string) (*models.Semester, error) {
	semester, err := s.semesters.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "semester not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load semester")
	}
	return semester, nil
}

// Active returns the currently active semester.
func (s *SemesterService) Active(ctx context.Context) (*models.Semester, error) {
	semester, err := s.semesters.FindActive(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "no active semester")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load active semester")
	}
	return semester, nil
}

// Create registers a new semester in inactive state.
func (s *SemesterService) Create(ctx context.Context, req models.CreateSemesterInput) (*models.Semester, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid semester payload")
	}
	start, err := time.Parse("2006-01-02", req.StartDate)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "invalid start date")
	}
	end, err := time.Parse("2006-01-02", req.EndDate)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "invalid end date")
	}
	if !end.After(start) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "end date must be after start date")
	}

	semester := models.Semester{
		Name:      req.Name,
		StartDate: models.DateOnly(start),
		EndDate:   models.DateOnly(end),
	}
	if err := s.semesters.Create(ctx, &semester); err != nil {
		if repository.IsUniqueViolation(err) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "a semester with that name already exists")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create semester")
	}
	s.logger.Info("semester created", zap.String("semester_id", semester.ID), zap.String("name", semester.Name))
	return &semester, nil
}

// Update patches a semester's fields.
func (s *SemesterService) Update(ctx context.Context, id string, req models.UpdateSemesterInput) (*models.Semester, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid semester payload")
	}
	semester, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if req.Name != nil {
		semester.Name = *req.Name
	}
	if req.StartDate != nil {
		start, err := time.Parse("2006-01-02", *req.StartDate)
		if err != nil {
			return nil, appErrors.Clone(appErrors.ErrValidation, "invalid start date")
		}
		semester.StartDate = models.DateOnly(start)
	}
	if req.EndDate != nil {
		end, err := time.Parse("2006-01-02", *req.EndDate)
		if err != nil {
			return nil, appErrors.Clone(appErrors.ErrValidation, "invalid end date")
		}
		semester.EndDate = models.DateOnly(end)
	}
	if !semester.EndDate.After(semester.StartDate) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "end date must be after start date")
	}
	if err := s.semesters.Update(ctx, semester); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update semester")
	}
	return semester, nil
}

// Activate makes the given semester the single active one.
func (s *SemesterService) Activate(ctx context.Context, id string) (*models.Semester, error) {
	if _, err := s.Get(ctx, id); err != nil {
		return nil, err
	}
	if err := s.semesters.Activate(ctx, id); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to activate semester")
	}
	s.logger.Info("semester activated", zap.String("semester_id", id))
	return s.Get(ctx, id)
}
