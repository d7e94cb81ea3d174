package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/sgac-unsa/sgac-api/internal/models"
)

// CourseRepository provides persistence for courses and their evaluations.
type CourseRepository struct {
	db *sqlx.DB
}

// NewCourseRepository creates a new course repository.
func NewCourseRepository(db *sqlx.DB) *CourseRepository {
	return &CourseRepository{db: db}
}

const courseColumns = `id, code, name, credits, academic_year, has_lab, created_at, updated_at`

// List returns courses with optional filtering by academic year and search.
func (r *CourseRepository) List(ctx context.Context, academicYear int, search string) ([]models.Course, error) {
	base := fmt.Sprintf(`SELECT %s FROM courses WHERE 1=1`, courseColumns)
	var conditions []string
	var args []interface{}

	if academicYear > 0 {
		conditions = append(conditions, fmt.Sprintf("academic_year = $%d", len(args)+1))
		args = append(args, academicYear)
	}
	if search != "" {
		conditions = append(conditions, fmt.Sprintf("(code ILIKE $%d OR name ILIKE $%d)", len(args)+1, len(args)+1))
		args = append(args, "%"+search+"%")
	}
	if len(conditions) > 0 {
		base += " AND " + strings.Join(conditions, " AND ")
	}
	base += " ORDER BY academic_year ASC, code ASC"

	var courses []models.Course
	if err := r.db.SelectContext(ctx, &courses, base, args...); err != nil {
		return nil, fmt.Errorf("list courses: %w", err)
	}
	return courses, nil
}

// FindByID loads a course by id.
func (r *CourseRepository) FindByID(ctx context.Context, id string) (*models.Course, error) {
	query := fmt.Sprintf(`SELECT %s FROM courses WHERE id = $1`, courseColumns)
	var course models.Course
	if err := r.db.GetContext(ctx, &course, query, id); err != nil {
		return nil, err
	}
	return &course, nil
}

// Create stores a new course. Course codes are unique.
func (r *CourseRepository) Create(ctx context.Context, course *models.Course) error {
	if course.ID == "" {
		course.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	course.CreatedAt = now
	course.UpdatedAt = now

	const query = `INSERT INTO courses (id, code, name, credits, academic_year, has_lab, created_at, updated_at) VALUES (:id, :code, :name, :credits, :academic_year, :has_lab, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, course); err != nil {
		return fmt.Errorf("create course: %w", err)
	}
	return nil
}

// Update persists changes to an existing course.
func (r *CourseRepository) Update(ctx context.Context, course *models.Course) error {
	course.UpdatedAt = time.Now().UTC()
	const query = `UPDATE courses SET name = :name, credits = :credits, has_lab = :has_lab, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, course); err != nil {
		return fmt.Errorf("update course: %w", err)
	}
	return nil
}

// ListEvaluations returns the evaluations of a course group ordered by
// curricular unit, then name.
func (r *CourseRepository) ListEvaluations(ctx context.Context, courseGroupID string) ([]models.Evaluation, error) {
	const query = `SELECT id, course_group_id, name, kind, unit, sort_order, weight, created_at FROM evaluations WHERE course_group_id = $1 ORDER BY unit ASC, name ASC`
	var evaluations []models.Evaluation
	if err := r.db.SelectContext(ctx, &evaluations, query, courseGroupID); err != nil {
		return nil, fmt.Errorf("list evaluations: %w", err)
	}
	return evaluations, nil
}

// FindEvaluation loads one evaluation by id.
func (r *CourseRepository) FindEvaluation(ctx context.Context, id string) (*models.Evaluation, error) {
	const query = `SELECT id, course_group_id, name, kind, unit, sort_order, weight, created_at FROM evaluations WHERE id = $1`
	var evaluation models.Evaluation
	if err := r.db.GetContext(ctx, &evaluation, query, id); err != nil {
		return nil, err
	}
	return &evaluation, nil
}

// CreateEvaluation stores a new evaluation for a course group.
func (r *CourseRepository) CreateEvaluation(ctx context.Context, evaluation *models.Evaluation) error {
	if evaluation.ID == "" {
		evaluation.ID = uuid.NewString()
	}
	evaluation.CreatedAt = time.Now().UTC()

	const query = `INSERT INTO evaluations (id, course_group_id, name, kind, unit, sort_order, weight, created_at) VALUES (:id, :course_group_id, :name, :kind, :unit, :sort_order, :weight, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, evaluation); err != nil {
		return fmt.Errorf("create evaluation: %w", err)
	}
	return nil
}

// SumEvaluationWeights returns the current total weight of a group's
// evaluations.
func (r *CourseRepository) SumEvaluationWeights(ctx context.Context, courseGroupID string) (int, error) {
	const query = `SELECT COALESCE(SUM(weight), 0) FROM evaluations WHERE course_group_id = $1`
	var total int
	if err := r.db.GetContext(ctx, &total, query, courseGroupID); err != nil {
		return 0, fmt.Errorf("sum evaluation weights: %w", err)
	}
	return total, nil
}
