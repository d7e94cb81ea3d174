package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/sgac-unsa/sgac-api/internal/models"
)

// EnrollmentRepository provides persistence for student enrollments.
type EnrollmentRepository struct {
	db *sqlx.DB
}

// NewEnrollmentRepository creates a new enrollment repository.
func NewEnrollmentRepository(db *sqlx.DB) *EnrollmentRepository {
	return &EnrollmentRepository{db: db}
}

const enrollmentColumns = `e.id, e.student_id, e.course_group_id, e.status, e.attendance_percentage, e.final_grade, e.lab_assignment_id, e.enrolled_at, e.updated_at`

// FindByID loads an enrollment by id.
func (r *EnrollmentRepository) FindByID(ctx context.Context, id string) (*models.StudentEnrollment, error) {
	query := fmt.Sprintf(`SELECT %s FROM student_enrollments e WHERE e.id = $1`, enrollmentColumns)
	var enrollment models.StudentEnrollment
	if err := r.db.GetContext(ctx, &enrollment, query, id); err != nil {
		return nil, err
	}
	return &enrollment, nil
}

// FindByStudentAndGroup returns the enrollment of a student in a course
// group, or sql.ErrNoRows.
func (r *EnrollmentRepository) FindByStudentAndGroup(ctx context.Context, studentID, courseGroupID string) (*models.StudentEnrollment, error) {
	query := fmt.Sprintf(`SELECT %s FROM student_enrollments e WHERE e.student_id = $1 AND e.course_group_id = $2`, enrollmentColumns)
	var enrollment models.StudentEnrollment
	if err := r.db.GetContext(ctx, &enrollment, query, studentID, courseGroupID); err != nil {
		return nil, err
	}
	return &enrollment, nil
}

// ListByGroup returns the roster of a course group ordered by student name.
func (r *EnrollmentRepository) ListByGroup(ctx context.Context, courseGroupID string) ([]models.StudentEnrollment, error) {
	query := fmt.Sprintf(`SELECT %s, u.full_name AS student_name, u.email AS student_email FROM student_enrollments e JOIN users u ON u.id = e.student_id WHERE e.course_group_id = $1 ORDER BY u.full_name ASC`, enrollmentColumns)
	var enrollments []models.StudentEnrollment
	if err := r.db.SelectContext(ctx, &enrollments, query, courseGroupID); err != nil {
		return nil, fmt.Errorf("list enrollments by group: %w", err)
	}
	return enrollments, nil
}

// ListByStudent returns a student's enrollments with course details.
func (r *EnrollmentRepository) ListByStudent(ctx context.Context, studentID string) ([]models.StudentEnrollment, error) {
	query := fmt.Sprintf(`SELECT %s, c.code AS course_code, c.name AS course_name, g.nomenclature FROM student_enrollments e JOIN course_groups g ON g.id = e.course_group_id JOIN courses c ON c.id = g.course_id WHERE e.student_id = $1 ORDER BY c.code ASC`, enrollmentColumns)
	var enrollments []models.StudentEnrollment
	if err := r.db.SelectContext(ctx, &enrollments, query, studentID); err != nil {
		return nil, fmt.Errorf("list enrollments by student: %w", err)
	}
	return enrollments, nil
}

// ListActiveWithoutLab returns the ACTIVE enrollments of a course group
// that hold no laboratory seat yet, oldest first.
func (r *EnrollmentRepository) ListActiveWithoutLab(ctx context.Context, courseGroupID string) ([]models.StudentEnrollment, error) {
	query := fmt.Sprintf(`SELECT %s FROM student_enrollments e WHERE e.course_group_id = $1 AND e.status = 'ACTIVE' AND e.lab_assignment_id IS NULL ORDER BY e.enrolled_at ASC`, enrollmentColumns)
	var enrollments []models.StudentEnrollment
	if err := r.db.SelectContext(ctx, &enrollments, query, courseGroupID); err != nil {
		return nil, fmt.Errorf("list enrollments without lab: %w", err)
	}
	return enrollments, nil
}

// CountActiveByGroup counts ACTIVE enrollments in a course group.
func (r *EnrollmentRepository) CountActiveByGroup(ctx context.Context, courseGroupID string) (int, error) {
	const query = `SELECT COUNT(*) FROM student_enrollments WHERE course_group_id = $1 AND status = 'ACTIVE'`
	var total int
	if err := r.db.GetContext(ctx, &total, query, courseGroupID); err != nil {
		return 0, fmt.Errorf("count active enrollments: %w", err)
	}
	return total, nil
}

// CountActiveBySemester counts distinct students enrolled in a semester's
// groups, for statistics.
func (r *EnrollmentRepository) CountActiveBySemester(ctx context.Context, semesterID string) (int, error) {
	const query = `SELECT COUNT(DISTINCT e.student_id) FROM student_enrollments e JOIN course_groups g ON g.id = e.course_group_id WHERE g.semester_id = $1 AND e.status = 'ACTIVE'`
	var total int
	if err := r.db.GetContext(ctx, &total, query, semesterID); err != nil {
		return 0, fmt.Errorf("count students by semester: %w", err)
	}
	return total, nil
}

// Create stores a new enrollment. Unique per (student_id, course_group_id).
func (r *EnrollmentRepository) Create(ctx context.Context, enrollment *models.StudentEnrollment) error {
	if enrollment.ID == "" {
		enrollment.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	enrollment.EnrolledAt = now
	enrollment.UpdatedAt = now

	const query = `INSERT INTO student_enrollments (id, student_id, course_group_id, status, attendance_percentage, final_grade, enrolled_at, updated_at) VALUES (:id, :student_id, :course_group_id, :status, :attendance_percentage, :final_grade, :enrolled_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, enrollment); err != nil {
		return fmt.Errorf("create enrollment: %w", err)
	}
	return nil
}

// UpdateStatus transitions an enrollment's standing.
func (r *EnrollmentRepository) UpdateStatus(ctx context.Context, id string, status models.EnrollmentStatus) error {
	const query = `UPDATE student_enrollments SET status = $2, updated_at = $3 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, status, time.Now().UTC()); err != nil {
		return fmt.Errorf("update enrollment status: %w", err)
	}
	return nil
}
