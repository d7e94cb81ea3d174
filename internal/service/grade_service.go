package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/sgac-unsa/sgac-api/internal/models"
	appErrors "github.com/sgac-unsa/sgac-api/pkg/errors"
)

type gradeRepository interface {
	ListByEnrollment(ctx context.Context, enrollmentID string) ([]models.GradeRecord, error)
	ListByEvaluation(ctx context.Context, evaluationID string) ([]models.GradeRecord, error)
	SaveGrades(ctx context.Context, records []models.GradeRecord, evaluations []models.Evaluation) error
	RecomputeFinalGrade(ctx context.Context, enrollmentID string, evaluations []models.Evaluation) error
}

type gradeCourseRepository interface {
	FindEvaluation(ctx context.Context, id string) (*models.Evaluation, error)
	ListEvaluations(ctx context.Context, courseGroupID string) ([]models.Evaluation, error)
	CreateEvaluation(ctx context.Context, evaluation *models.Evaluation) error
	SumEvaluationWeights(ctx context.Context, courseGroupID string) (int, error)
}

type gradeEnrollmentRepository interface {
	FindByID(ctx context.Context, id string) (*models.StudentEnrollment, error)
}

// GradeService manages evaluations and grade records. Raw scores are
// rounded once at write time on the 0..20 scale; everything downstream
// reads the stored integer.
type GradeService struct {
	grades      gradeRepository
	courses     gradeCourseRepository
	enrollments gradeEnrollmentRepository
	validator   *validator.Validate
	logger      *zap.Logger
}

// NewGradeService instantiates GradeService.
func NewGradeService(grades gradeRepository, courses gradeCourseRepository, enrollments gradeEnrollmentRepository, validate *validator.Validate, logger *zap.Logger) *GradeService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GradeService{grades: grades, courses: courses, enrollments: enrollments, validator: validate, logger: logger}
}

// CreateEvaluation adds a graded item to a course group. The group's
// weights may not exceed 100 in total.
func (s *GradeService) CreateEvaluation(ctx context.Context, courseGroupID string, req models.CreateEvaluationInput) (*models.Evaluation, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid evaluation payload")
	}
	current, err := s.courses.SumEvaluationWeights(ctx, courseGroupID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sum evaluation weights")
	}
	if current+req.Weight > 100 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "evaluation weights would exceed 100")
	}

	evaluation := models.Evaluation{
		CourseGroupID: courseGroupID,
		Name:          req.Name,
		Kind:          models.EvaluationKind(req.Kind),
		Unit:          req.Unit,
		Order:         req.Order,
		Weight:        req.Weight,
	}
	if err := s.courses.CreateEvaluation(ctx, &evaluation); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create evaluation")
	}
	return &evaluation, nil
}

// ListEvaluations returns the evaluations of a course group.
func (s *GradeService) ListEvaluations(ctx context.Context, courseGroupID string) ([]models.Evaluation, error) {
	evaluations, err := s.courses.ListEvaluations(ctx, courseGroupID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list evaluations")
	}
	return evaluations, nil
}

// SaveBatch persists a batch of scores for one evaluation. Scores are
// rounded here, once; the final grade recompute rides the same
// transaction.
func (s *GradeService) SaveBatch(ctx context.Context, recordedBy string, req models.SaveGradesInput) error {
	if err := s.validator.Struct(req); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid grades payload")
	}

	evaluation, err := s.courses.FindEvaluation(ctx, req.EvaluationID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "evaluation not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load evaluation")
	}

	records := make([]models.GradeRecord, 0, len(req.Entries))
	for _, entry := range req.Entries {
		enrollment, err := s.enrollments.FindByID(ctx, entry.EnrollmentID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return appErrors.Clone(appErrors.ErrNotFound, "enrollment not found")
			}
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load enrollment")
		}
		if enrollment.CourseGroupID != evaluation.CourseGroupID {
			return appErrors.Clone(appErrors.ErrValidation, "enrollment does not belong to the evaluation's course group")
		}
		records = append(records, models.GradeRecord{
			EnrollmentID: entry.EnrollmentID,
			EvaluationID: req.EvaluationID,
			Score:        models.RoundScore(entry.Score),
			RawScore:     entry.Score,
			RecordedBy:   recordedBy,
		})
	}

	evaluations, err := s.courses.ListEvaluations(ctx, evaluation.CourseGroupID)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list evaluations")
	}
	if err := s.grades.SaveGrades(ctx, records, evaluations); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to save grades")
	}
	s.logger.Info("grades saved",
		zap.String("evaluation_id", req.EvaluationID),
		zap.Int("entries", len(records)))
	return nil
}

// StudentGrades returns one enrollment's grade records.
func (s *GradeService) StudentGrades(ctx context.Context, enrollmentID string) ([]models.GradeRecord, error) {
	if _, err := s.enrollments.FindByID(ctx, enrollmentID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "enrollment not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load enrollment")
	}
	grades, err := s.grades.ListByEnrollment(ctx, enrollmentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list grades")
	}
	return grades, nil
}

// Summary aggregates one enrollment's grades by curricular unit. Units
// with no graded evaluation yet are omitted; the final grade is computed
// fresh from the stored records.
func (s *GradeService) Summary(ctx context.Context, enrollmentID string) (*models.GradeSummary, error) {
	enrollment, err := s.enrollments.FindByID(ctx, enrollmentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "enrollment not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load enrollment")
	}
	evaluations, err := s.courses.ListEvaluations(ctx, enrollment.CourseGroupID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list evaluations")
	}
	grades, err := s.grades.ListByEnrollment(ctx, enrollmentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list grades")
	}
	return &models.GradeSummary{
		EnrollmentID: enrollmentID,
		Units:        models.UnitSummaries(grades, evaluations),
		FinalGrade:   models.FinalGrade(grades, evaluations),
	}, nil
}

// Recalculate recomputes one enrollment's cached final grade from its
// stored records, for repairs after out-of-band data changes.
func (s *GradeService) Recalculate(ctx context.Context, enrollmentID string) error {
	enrollment, err := s.enrollments.FindByID(ctx, enrollmentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "enrollment not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load enrollment")
	}
	evaluations, err := s.courses.ListEvaluations(ctx, enrollment.CourseGroupID)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list evaluations")
	}
	if err := s.grades.RecomputeFinalGrade(ctx, enrollmentID, evaluations); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to recompute final grade")
	}
	s.logger.Info("final grade recomputed", zap.String("enrollment_id", enrollmentID))
	return nil
}

// EvaluationSheet returns every recorded score of one evaluation.
func (s *GradeService) EvaluationSheet(ctx context.Context, evaluationID string) ([]models.GradeRecord, error) {
	if _, err := s.courses.FindEvaluation(ctx, evaluationID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "evaluation not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load evaluation")
	}
	grades, err := s.grades.ListByEvaluation(ctx, evaluationID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list grades")
	}
	return grades, nil
}
