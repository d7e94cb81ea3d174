package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/sgac-unsa/sgac-api/internal/models"
)

// ClassroomRepository provides persistence for classrooms.
type ClassroomRepository struct {
	db *sqlx.DB
}

// NewClassroomRepository creates a new classroom repository.
func NewClassroomRepository(db *sqlx.DB) *ClassroomRepository {
	return &ClassroomRepository{db: db}
}

const classroomColumns = `id, code, name, type, capacity, building, is_active, created_at, updated_at`

// List returns classrooms matching the filter, ordered by code.
func (r *ClassroomRepository) List(ctx context.Context, filter models.ClassroomFilter) ([]models.Classroom, error) {
	base := fmt.Sprintf(`SELECT %s FROM classrooms WHERE 1=1`, classroomColumns)
	var conditions []string
	var args []interface{}

	if filter.Type != "" {
		conditions = append(conditions, fmt.Sprintf("type = $%d", len(args)+1))
		args = append(args, filter.Type)
	}
	if filter.Building != "" {
		conditions = append(conditions, fmt.Sprintf("building = $%d", len(args)+1))
		args = append(args, filter.Building)
	}
	if filter.MinSeats > 0 {
		conditions = append(conditions, fmt.Sprintf("capacity >= $%d", len(args)+1))
		args = append(args, filter.MinSeats)
	}
	if filter.Active != nil {
		conditions = append(conditions, fmt.Sprintf("is_active = $%d", len(args)+1))
		args = append(args, *filter.Active)
	}
	if len(conditions) > 0 {
		base += " AND " + strings.Join(conditions, " AND ")
	}
	base += " ORDER BY code ASC"

	var rooms []models.Classroom
	if err := r.db.SelectContext(ctx, &rooms, base, args...); err != nil {
		return nil, fmt.Errorf("list classrooms: %w", err)
	}
	return rooms, nil
}

// FindByID loads a classroom by id.
func (r *ClassroomRepository) FindByID(ctx context.Context, id string) (*models.Classroom, error) {
	query := fmt.Sprintf(`SELECT %s FROM classrooms WHERE id = $1`, classroomColumns)
	var room models.Classroom
	if err := r.db.GetContext(ctx, &room, query, id); err != nil {
		return nil, err
	}
	return &room, nil
}

// NextCode generates the next sequential room code for a type: A001, A002
// for lecture rooms and L001, L002 for laboratories.
func (r *ClassroomRepository) NextCode(ctx context.Context, roomType models.ClassroomType) (string, error) {
	prefix := "A"
	if roomType == models.ClassroomLaboratory {
		prefix = "L"
	}
	const query = `SELECT code FROM classrooms WHERE type = $1 ORDER BY code DESC LIMIT 1`
	var last string
	err := r.db.GetContext(ctx, &last, query, roomType)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Sprintf("%s001", prefix), nil
	}
	if err != nil {
		return "", fmt.Errorf("next classroom code: %w", err)
	}
	var seq int
	if _, err := fmt.Sscanf(last, prefix+"%03d", &seq); err != nil {
		return "", fmt.Errorf("parse classroom code %q: %w", last, err)
	}
	return fmt.Sprintf("%s%03d", prefix, seq+1), nil
}

// Create stores a new classroom.
func (r *ClassroomRepository) Create(ctx context.Context, room *models.Classroom) error {
	if room.ID == "" {
		room.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	room.CreatedAt = now
	room.UpdatedAt = now

	const query = `INSERT INTO classrooms (id, code, name, type, capacity, building, is_active, created_at, updated_at) VALUES (:id, :code, :name, :type, :capacity, :building, :is_active, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, room); err != nil {
		return fmt.Errorf("create classroom: %w", err)
	}
	return nil
}

// Update persists changes to an existing classroom.
func (r *ClassroomRepository) Update(ctx context.Context, room *models.Classroom) error {
	room.UpdatedAt = time.Now().UTC()
	const query = `UPDATE classrooms SET name = :name, capacity = :capacity, building = :building, is_active = :is_active, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, room); err != nil {
		return fmt.Errorf("update classroom: %w", err)
	}
	return nil
}
