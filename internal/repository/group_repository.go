package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/sgac-unsa/sgac-api/internal/models"
)

// GroupRepository provides persistence for course groups, laboratory
// groups and their weekly schedules.
type GroupRepository struct {
	db *sqlx.DB
}

// NewGroupRepository creates a new group repository.
func NewGroupRepository(db *sqlx.DB) *GroupRepository {
	return &GroupRepository{db: db}
}

const courseGroupColumns = `g.id, g.course_id, g.semester_id, g.nomenclature, g.professor_id, g.capacity, g.created_at, g.updated_at, c.code AS course_code, c.name AS course_name, s.name AS semester_name`

// ListCourseGroups returns theory groups, optionally scoped to a semester,
// course or professor.
func (r *GroupRepository) ListCourseGroups(ctx context.Context, semesterID, courseID, professorID string) ([]models.CourseGroup, error) {
	base := fmt.Sprintf(`SELECT %s FROM course_groups g JOIN courses c ON c.id = g.course_id JOIN semesters s ON s.id = g.semester_id WHERE 1=1`, courseGroupColumns)
	var conditions []string
	var args []interface{}

	if semesterID != "" {
		conditions = append(conditions, fmt.Sprintf("g.semester_id = $%d", len(args)+1))
		args = append(args, semesterID)
	}
	if courseID != "" {
		conditions = append(conditions, fmt.Sprintf("g.course_id = $%d", len(args)+1))
		args = append(args, courseID)
	}
	if professorID != "" {
		conditions = append(conditions, fmt.Sprintf("g.professor_id = $%d", len(args)+1))
		args = append(args, professorID)
	}
	if len(conditions) > 0 {
		base += " AND " + strings.Join(conditions, " AND ")
	}
	base += " ORDER BY c.code ASC, g.nomenclature ASC"

	var groups []models.CourseGroup
	if err := r.db.SelectContext(ctx, &groups, base, args...); err != nil {
		return nil, fmt.Errorf("list course groups: %w", err)
	}
	return groups, nil
}

// FindCourseGroup loads a theory group by id with course and semester info.
func (r *GroupRepository) FindCourseGroup(ctx context.Context, id string) (*models.CourseGroup, error) {
	query := fmt.Sprintf(`SELECT %s FROM course_groups g JOIN courses c ON c.id = g.course_id JOIN semesters s ON s.id = g.semester_id WHERE g.id = $1`, courseGroupColumns)
	var group models.CourseGroup
	if err := r.db.GetContext(ctx, &group, query, id); err != nil {
		return nil, err
	}
	return &group, nil
}

// CreateCourseGroup stores a new theory group. Nomenclature is unique per
// course and semester.
func (r *GroupRepository) CreateCourseGroup(ctx context.Context, group *models.CourseGroup) error {
	if group.ID == "" {
		group.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	group.CreatedAt = now
	group.UpdatedAt = now

	const query = `INSERT INTO course_groups (id, course_id, semester_id, nomenclature, professor_id, capacity, created_at, updated_at) VALUES (:id, :course_id, :semester_id, :nomenclature, :professor_id, :capacity, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, group); err != nil {
		return fmt.Errorf("create course group: %w", err)
	}
	return nil
}

// ListLabGroups returns the lab groups of a course group ordered by
// nomenclature.
func (r *GroupRepository) ListLabGroups(ctx context.Context, courseGroupID string) ([]models.LaboratoryGroup, error) {
	const query = `SELECT l.id, l.course_group_id, l.nomenclature, l.professor_id, l.capacity, l.created_at, l.updated_at, c.code AS course_code, c.name AS course_name FROM laboratory_groups l JOIN course_groups g ON g.id = l.course_group_id JOIN courses c ON c.id = g.course_id WHERE l.course_group_id = $1 ORDER BY l.nomenclature ASC`
	var labs []models.LaboratoryGroup
	if err := r.db.SelectContext(ctx, &labs, query, courseGroupID); err != nil {
		return nil, fmt.Errorf("list lab groups: %w", err)
	}
	return labs, nil
}

// FindLabGroup loads a lab group by id.
func (r *GroupRepository) FindLabGroup(ctx context.Context, id string) (*models.LaboratoryGroup, error) {
	const query = `SELECT id, course_group_id, nomenclature, professor_id, capacity, created_at, updated_at FROM laboratory_groups WHERE id = $1`
	var lab models.LaboratoryGroup
	if err := r.db.GetContext(ctx, &lab, query, id); err != nil {
		return nil, err
	}
	return &lab, nil
}

// CreateLabGroup stores a new laboratory group.
func (r *GroupRepository) CreateLabGroup(ctx context.Context, lab *models.LaboratoryGroup) error {
	if lab.ID == "" {
		lab.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	lab.CreatedAt = now
	lab.UpdatedAt = now

	const query = `INSERT INTO laboratory_groups (id, course_group_id, nomenclature, professor_id, capacity, created_at, updated_at) VALUES (:id, :course_group_id, :nomenclature, :professor_id, :capacity, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, lab); err != nil {
		return fmt.Errorf("create lab group: %w", err)
	}
	return nil
}

const scheduleColumns = `sc.id, sc.group_kind, sc.group_id, sc.classroom_id, sc.day, sc.start_time, sc.end_time, sc.created_at, r.code AS classroom_code`

// ListSchedulesByGroup returns the weekly slots of one group ordered by day
// and start time.
func (r *GroupRepository) ListSchedulesByGroup(ctx context.Context, kind models.GroupKind, groupID string) ([]models.Schedule, error) {
	query := fmt.Sprintf(`SELECT %s FROM schedules sc JOIN classrooms r ON r.id = sc.classroom_id WHERE sc.group_kind = $1 AND sc.group_id = $2 ORDER BY sc.day ASC, sc.start_time ASC`, scheduleColumns)
	var schedules []models.Schedule
	if err := r.db.SelectContext(ctx, &schedules, query, kind, groupID); err != nil {
		return nil, fmt.Errorf("list schedules by group: %w", err)
	}
	return schedules, nil
}

// ListSchedulesByClassroomDay returns slots occupying one room on a day.
func (r *GroupRepository) ListSchedulesByClassroomDay(ctx context.Context, classroomID string, day models.DayOfWeek) ([]models.Schedule, error) {
	query := fmt.Sprintf(`SELECT %s FROM schedules sc JOIN classrooms r ON r.id = sc.classroom_id WHERE sc.classroom_id = $1 AND sc.day = $2`, scheduleColumns)
	var schedules []models.Schedule
	if err := r.db.SelectContext(ctx, &schedules, query, classroomID, day); err != nil {
		return nil, fmt.Errorf("list schedules by classroom: %w", err)
	}
	return schedules, nil
}

// ListSchedulesByProfessorDay returns the slots a professor teaches on a
// day, across both theory and lab groups.
func (r *GroupRepository) ListSchedulesByProfessorDay(ctx context.Context, professorID string, day models.DayOfWeek) ([]models.Schedule, error) {
	query := fmt.Sprintf(`SELECT %s FROM schedules sc JOIN classrooms r ON r.id = sc.classroom_id WHERE sc.day = $2 AND ((sc.group_kind = 'THEORY' AND sc.group_id IN (SELECT id FROM course_groups WHERE professor_id = $1)) OR (sc.group_kind = 'LAB' AND sc.group_id IN (SELECT id FROM laboratory_groups WHERE professor_id = $1)))`, scheduleColumns)
	var schedules []models.Schedule
	if err := r.db.SelectContext(ctx, &schedules, query, professorID, day); err != nil {
		return nil, fmt.Errorf("list schedules by professor: %w", err)
	}
	return schedules, nil
}

// ListSchedulesForStudent returns every weekly slot a student attends or
// is committed to: theory groups through active enrollments, assigned lab
// groups, and the labs of the student's pending postulations. Pending labs
// count so clash checks see the seat the student may still win.
func (r *GroupRepository) ListSchedulesForStudent(ctx context.Context, studentID string) ([]models.Schedule, error) {
	query := fmt.Sprintf(`SELECT %s FROM schedules sc JOIN classrooms r ON r.id = sc.classroom_id WHERE (sc.group_kind = 'THEORY' AND sc.group_id IN (SELECT course_group_id FROM student_enrollments WHERE student_id = $1 AND status = 'ACTIVE')) OR (sc.group_kind = 'LAB' AND sc.group_id IN (SELECT lab_group_id FROM lab_assignments WHERE student_id = $1)) OR (sc.group_kind = 'LAB' AND sc.group_id IN (SELECT lab_group_id FROM student_postulations WHERE student_id = $1 AND state = 'PENDING'))`, scheduleColumns)
	var schedules []models.Schedule
	if err := r.db.SelectContext(ctx, &schedules, query, studentID); err != nil {
		return nil, fmt.Errorf("list schedules for student: %w", err)
	}
	return schedules, nil
}

// CountSchedulesBySemester counts weekly slots belonging to a semester's
// groups, for statistics.
func (r *GroupRepository) CountSchedulesBySemester(ctx context.Context, semesterID string) (int, error) {
	const query = `SELECT COUNT(*) FROM schedules sc WHERE (sc.group_kind = 'THEORY' AND sc.group_id IN (SELECT id FROM course_groups WHERE semester_id = $1)) OR (sc.group_kind = 'LAB' AND sc.group_id IN (SELECT l.id FROM laboratory_groups l JOIN course_groups g ON g.id = l.course_group_id WHERE g.semester_id = $1))`
	var total int
	if err := r.db.GetContext(ctx, &total, query, semesterID); err != nil {
		return 0, fmt.Errorf("count schedules by semester: %w", err)
	}
	return total, nil
}

// CountsBySemester aggregates course, group, student and schedule counts
// for one semester in a single query.
func (r *GroupRepository) CountsBySemester(ctx context.Context, semesterID string) (*models.GroupCounts, error) {
	const query = `SELECT
		(SELECT COUNT(DISTINCT course_id) FROM course_groups WHERE semester_id = $1) AS courses,
		(SELECT COUNT(*) FROM course_groups WHERE semester_id = $1) AS groups,
		(SELECT COUNT(DISTINCT e.student_id) FROM student_enrollments e JOIN course_groups g ON g.id = e.course_group_id WHERE g.semester_id = $1 AND e.status = 'ACTIVE') AS students,
		(SELECT COUNT(*) FROM schedules sc WHERE (sc.group_kind = 'THEORY' AND sc.group_id IN (SELECT id FROM course_groups WHERE semester_id = $1)) OR (sc.group_kind = 'LAB' AND sc.group_id IN (SELECT l.id FROM laboratory_groups l JOIN course_groups g ON g.id = l.course_group_id WHERE g.semester_id = $1))) AS schedules`
	var counts models.GroupCounts
	if err := r.db.GetContext(ctx, &counts, query, semesterID); err != nil {
		return nil, fmt.Errorf("counts by semester: %w", err)
	}
	return &counts, nil
}

// ClassroomMinutesBySemester sums scheduled minutes per room for a
// semester, for the saturation report.
func (r *GroupRepository) ClassroomMinutesBySemester(ctx context.Context, semesterID string) ([]models.ClassroomUsage, error) {
	const query = `SELECT sc.classroom_id, r.code AS classroom_code, SUM(EXTRACT(EPOCH FROM (sc.end_time - sc.start_time)) / 3600.0) AS booked_hours FROM schedules sc JOIN classrooms r ON r.id = sc.classroom_id WHERE (sc.group_kind = 'THEORY' AND sc.group_id IN (SELECT id FROM course_groups WHERE semester_id = $1)) OR (sc.group_kind = 'LAB' AND sc.group_id IN (SELECT l.id FROM laboratory_groups l JOIN course_groups g ON g.id = l.course_group_id WHERE g.semester_id = $1)) GROUP BY sc.classroom_id, r.code ORDER BY r.code ASC`
	var usage []models.ClassroomUsage
	if err := r.db.SelectContext(ctx, &usage, query, semesterID); err != nil {
		return nil, fmt.Errorf("classroom minutes by semester: %w", err)
	}
	return usage, nil
}

// TopCoursesBySemester ranks a semester's courses by active enrollment.
func (r *GroupRepository) TopCoursesBySemester(ctx context.Context, semesterID string, limit int) ([]models.CourseEnrollment, error) {
	if limit <= 0 {
		limit = 5
	}
	const query = `SELECT c.id AS course_id, c.code AS course_code, c.name AS course_name, COUNT(e.id) AS enrolled FROM courses c JOIN course_groups g ON g.course_id = c.id JOIN student_enrollments e ON e.course_group_id = g.id AND e.status = 'ACTIVE' WHERE g.semester_id = $1 GROUP BY c.id, c.code, c.name ORDER BY enrolled DESC, c.code ASC LIMIT $2`
	var courses []models.CourseEnrollment
	if err := r.db.SelectContext(ctx, &courses, query, semesterID, limit); err != nil {
		return nil, fmt.Errorf("top courses by semester: %w", err)
	}
	return courses, nil
}

// ProfessorLoadBySemester sums weekly teaching hours per professor across
// theory and lab slots of one semester.
func (r *GroupRepository) ProfessorLoadBySemester(ctx context.Context, semesterID string) ([]models.ProfessorLoad, error) {
	const query = `SELECT p.professor_id, u.full_name AS professor_name, SUM(p.hours) AS weekly_hours FROM (
		SELECT g.professor_id, EXTRACT(EPOCH FROM (sc.end_time - sc.start_time)) / 3600.0 AS hours FROM schedules sc JOIN course_groups g ON g.id = sc.group_id AND sc.group_kind = 'THEORY' WHERE g.semester_id = $1
		UNION ALL
		SELECT l.professor_id, EXTRACT(EPOCH FROM (sc.end_time - sc.start_time)) / 3600.0 AS hours FROM schedules sc JOIN laboratory_groups l ON l.id = sc.group_id AND sc.group_kind = 'LAB' JOIN course_groups g ON g.id = l.course_group_id WHERE g.semester_id = $1
	) p JOIN users u ON u.id = p.professor_id GROUP BY p.professor_id, u.full_name ORDER BY weekly_hours DESC`
	var load []models.ProfessorLoad
	if err := r.db.SelectContext(ctx, &load, query, semesterID); err != nil {
		return nil, fmt.Errorf("professor load by semester: %w", err)
	}
	return load, nil
}

// DeleteLabGroup removes a laboratory group and its weekly slots.
func (r *GroupRepository) DeleteLabGroup(ctx context.Context, id string) (err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin delete lab group: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, `DELETE FROM schedules WHERE group_kind = 'LAB' AND group_id = $1`, id); err != nil {
		return fmt.Errorf("delete lab group schedules: %w", err)
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM laboratory_groups WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete lab group: %w", err)
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		err = sql.ErrNoRows
		return err
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit delete lab group: %w", err)
	}
	return nil
}

// ReplaceDaySchedules swaps every slot one group holds on a day for the
// provided set, in one transaction.
func (r *GroupRepository) ReplaceDaySchedules(ctx context.Context, kind models.GroupKind, groupID string, day models.DayOfWeek, schedules []models.Schedule) (err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin replace schedules: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, `DELETE FROM schedules WHERE group_kind = $1 AND group_id = $2 AND day = $3`, kind, groupID, day); err != nil {
		return fmt.Errorf("clear day schedules: %w", err)
	}

	const insert = `INSERT INTO schedules (id, group_kind, group_id, classroom_id, day, start_time, end_time, created_at) VALUES (:id, :group_kind, :group_id, :classroom_id, :day, :start_time, :end_time, :created_at)`
	now := time.Now().UTC()
	for i := range schedules {
		if schedules[i].ID == "" {
			schedules[i].ID = uuid.NewString()
		}
		schedules[i].CreatedAt = now
		if _, err = tx.NamedExecContext(ctx, insert, &schedules[i]); err != nil {
			return fmt.Errorf("insert day schedule: %w", err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit replace schedules: %w", err)
	}
	return nil
}

// CreateSchedule stores one weekly slot.
func (r *GroupRepository) CreateSchedule(ctx context.Context, schedule *models.Schedule) error {
	if schedule.ID == "" {
		schedule.ID = uuid.NewString()
	}
	schedule.CreatedAt = time.Now().UTC()

	const query = `INSERT INTO schedules (id, group_kind, group_id, classroom_id, day, start_time, end_time, created_at) VALUES (:id, :group_kind, :group_id, :classroom_id, :day, :start_time, :end_time, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, schedule); err != nil {
		return fmt.Errorf("create schedule: %w", err)
	}
	return nil
}

// DeleteSchedule removes one weekly slot.
func (r *GroupRepository) DeleteSchedule(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM schedules WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete schedule: %w", err)
	}
	return nil
}
