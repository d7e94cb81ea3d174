package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/sgac-unsa/sgac-api/internal/models"
)

// SemesterRepository provides persistence for academic semesters.
type SemesterRepository struct {
	db *sqlx.DB
}

// NewSemesterRepository creates a new semester repository.
func NewSemesterRepository(db *sqlx.DB) *SemesterRepository {
	return &SemesterRepository{db: db}
}

const semesterColumns = `id, name, start_date, end_date, is_active, created_at, updated_at`

// List returns all semesters, newest first.
func (r *SemesterRepository) List(ctx context.Context) ([]models.Semester, error) {
	query := fmt.Sprintf(`SELECT %s FROM semesters ORDER BY start_date DESC`, semesterColumns)
	var semesters []models.Semester
	if err := r.db.SelectContext(ctx, &semesters, query); err != nil {
		return nil, fmt.Errorf("list semesters: %w", err)
	}
	return semesters, nil
}

// FindByID loads a semester by id.
func (r *SemesterRepository) FindByID(ctx context.Context, id string) (*models.Semester, error) {
	query := fmt.Sprintf(`SELECT %s FROM semesters WHERE id = $1`, semesterColumns)
	var semester models.Semester
	if err := r.db.GetContext(ctx, &semester, query, id); err != nil {
		return nil, err
	}
	return &semester, nil
}

// FindActive returns the currently active semester.
func (r *SemesterRepository) FindActive(ctx context.Context) (*models.Semester, error) {
	query := fmt.Sprintf(`SELECT %s FROM semesters WHERE is_active = true`, semesterColumns)
	var semester models.Semester
	if err := r.db.GetContext(ctx, &semester, query); err != nil {
		return nil, err
	}
	return &semester, nil
}

// Create stores a new semester.
func (r *SemesterRepository) Create(ctx context.Context, semester *models.Semester) error {
	if semester.ID == "" {
		semester.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	semester.CreatedAt = now
	semester.UpdatedAt = now

	const query = `INSERT INTO semesters (id, name, start_date, end_date, is_active, created_at, updated_at) VALUES (:id, :name, :start_date, :end_date, :is_active, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, semester); err != nil {
		return fmt.Errorf("create semester: %w", err)
	}
	return nil
}

// Update persists changes to an existing semester.
func (r *SemesterRepository) Update(ctx context.Context, semester *models.Semester) error {
	semester.UpdatedAt = time.Now().UTC()
	const query = `UPDATE semesters SET name = :name, start_date = :start_date, end_date = :end_date, is_active = :is_active, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, semester); err != nil {
		return fmt.Errorf("update semester: %w", err)
	}
	return nil
}

// Activate marks one semester active and deactivates the rest in a single
// transaction so exactly one semester is active at a time.
func (r *SemesterRepository) Activate(ctx context.Context, id string) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin activate semester: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, `UPDATE semesters SET is_active = false WHERE is_active = true`); err != nil {
		return fmt.Errorf("deactivate semesters: %w", err)
	}
	if _, err = tx.ExecContext(ctx, `UPDATE semesters SET is_active = true, updated_at = $2 WHERE id = $1`, id, time.Now().UTC()); err != nil {
		return fmt.Errorf("activate semester: %w", err)
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit activate semester: %w", err)
	}
	return nil
}
