package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/sgac-unsa/sgac-api/internal/models"
)

// GradeRepository provides persistence for grade records. Rounded scores
// are stored, and the cached final grade is refreshed in the same
// transaction as the scores that change it.
type GradeRepository struct {
	db *sqlx.DB
}

// NewGradeRepository creates a new grade repository.
func NewGradeRepository(db *sqlx.DB) *GradeRepository {
	return &GradeRepository{db: db}
}

// ListByEnrollment returns a student's grades with evaluation details.
func (r *GradeRepository) ListByEnrollment(ctx context.Context, enrollmentID string) ([]models.GradeRecord, error) {
	const query = `SELECT g.id, g.enrollment_id, g.evaluation_id, g.score, g.raw_score, g.recorded_by, g.created_at, g.updated_at, ev.name AS evaluation_name, ev.weight AS evaluation_weight FROM grade_records g JOIN evaluations ev ON ev.id = g.evaluation_id WHERE g.enrollment_id = $1 ORDER BY ev.created_at ASC`
	var grades []models.GradeRecord
	if err := r.db.SelectContext(ctx, &grades, query, enrollmentID); err != nil {
		return nil, fmt.Errorf("list grades by enrollment: %w", err)
	}
	return grades, nil
}

// ListByEvaluation returns every grade recorded for one evaluation.
func (r *GradeRepository) ListByEvaluation(ctx context.Context, evaluationID string) ([]models.GradeRecord, error) {
	const query = `SELECT id, enrollment_id, evaluation_id, score, raw_score, recorded_by, created_at, updated_at FROM grade_records WHERE evaluation_id = $1 ORDER BY created_at ASC`
	var grades []models.GradeRecord
	if err := r.db.SelectContext(ctx, &grades, query, evaluationID); err != nil {
		return nil, fmt.Errorf("list grades by evaluation: %w", err)
	}
	return grades, nil
}

// SaveGrades upserts a batch of grade records and recomputes each touched
// enrollment's cached final grade in one transaction. Scores arrive
// already rounded; evaluations is the full evaluation set of the course
// group, needed for the weighted recompute.
func (r *GradeRepository) SaveGrades(ctx context.Context, records []models.GradeRecord, evaluations []models.Evaluation) error {
	if len(records) == 0 {
		return nil
	}
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin save grades: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	now := time.Now().UTC()
	const upsertQuery = `INSERT INTO grade_records (id, enrollment_id, evaluation_id, score, raw_score, recorded_by, created_at, updated_at) VALUES (:id, :enrollment_id, :evaluation_id, :score, :raw_score, :recorded_by, :created_at, :updated_at) ON CONFLICT (enrollment_id, evaluation_id) DO UPDATE SET score = EXCLUDED.score, raw_score = EXCLUDED.raw_score, recorded_by = EXCLUDED.recorded_by, updated_at = EXCLUDED.updated_at`

	touched := make(map[string]struct{}, len(records))
	for i := range records {
		rec := records[i]
		if rec.ID == "" {
			rec.ID = uuid.NewString()
		}
		rec.CreatedAt = now
		rec.UpdatedAt = now
		if _, err = tx.NamedExecContext(ctx, upsertQuery, rec); err != nil {
			return fmt.Errorf("upsert grade record: %w", err)
		}
		touched[rec.EnrollmentID] = struct{}{}
	}

	for enrollmentID := range touched {
		if err = r.recomputeFinalGrade(ctx, tx, enrollmentID, evaluations, now); err != nil {
			return err
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit save grades: %w", err)
	}
	return nil
}

// RecomputeFinalGrade refreshes one enrollment's cached final grade from
// its stored records, outside any grade write. Used after changes that
// bypass SaveGrades, such as edits to the evaluation set.
func (r *GradeRepository) RecomputeFinalGrade(ctx context.Context, enrollmentID string, evaluations []models.Evaluation) (err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin recompute final grade: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if err = r.recomputeFinalGrade(ctx, tx, enrollmentID, evaluations, time.Now().UTC()); err != nil {
		return err
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit recompute final grade: %w", err)
	}
	return nil
}

func (r *GradeRepository) recomputeFinalGrade(ctx context.Context, tx *sqlx.Tx, enrollmentID string, evaluations []models.Evaluation, now time.Time) error {
	const query = `SELECT id, enrollment_id, evaluation_id, score, raw_score, recorded_by, created_at, updated_at FROM grade_records WHERE enrollment_id = $1`
	var grades []models.GradeRecord
	if err := tx.SelectContext(ctx, &grades, query, enrollmentID); err != nil {
		return fmt.Errorf("load grades for recompute: %w", err)
	}
	final := models.FinalGrade(grades, evaluations)
	if _, err := tx.ExecContext(ctx, `UPDATE student_enrollments SET final_grade = $2, updated_at = $3 WHERE id = $1`, enrollmentID, final, now); err != nil {
		return fmt.Errorf("update final grade: %w", err)
	}
	return nil
}
