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

// ReservationRepository provides persistence for classroom reservations.
type ReservationRepository struct {
	db *sqlx.DB
}

// NewReservationRepository creates a new reservation repository.
func NewReservationRepository(db *sqlx.DB) *ReservationRepository {
	return &ReservationRepository{db: db}
}

const reservationColumns = `v.id, v.classroom_id, v.requested_by, v.date, v.start_time, v.end_time, v.purpose, v.status, v.reviewed_by, v.created_at, v.updated_at`

// List returns reservations matching the filter, newest first.
func (r *ReservationRepository) List(ctx context.Context, filter models.ReservationFilter) ([]models.ClassroomReservation, error) {
	base := fmt.Sprintf(`SELECT %s, c.code AS classroom_code, u.full_name AS requester_name FROM classroom_reservations v JOIN classrooms c ON c.id = v.classroom_id JOIN users u ON u.id = v.requested_by WHERE 1=1`, reservationColumns)
	var conditions []string
	var args []interface{}

	if filter.ClassroomID != "" {
		conditions = append(conditions, fmt.Sprintf("v.classroom_id = $%d", len(args)+1))
		args = append(args, filter.ClassroomID)
	}
	if filter.RequestedBy != "" {
		conditions = append(conditions, fmt.Sprintf("v.requested_by = $%d", len(args)+1))
		args = append(args, filter.RequestedBy)
	}
	if filter.Status != "" {
		conditions = append(conditions, fmt.Sprintf("v.status = $%d", len(args)+1))
		args = append(args, filter.Status)
	}
	if filter.From != nil {
		conditions = append(conditions, fmt.Sprintf("v.date >= $%d", len(args)+1))
		args = append(args, *filter.From)
	}
	if filter.To != nil {
		conditions = append(conditions, fmt.Sprintf("v.date <= $%d", len(args)+1))
		args = append(args, *filter.To)
	}
	if len(conditions) > 0 {
		base += " AND " + strings.Join(conditions, " AND ")
	}
	base += " ORDER BY v.date DESC, v.start_time DESC"

	var reservations []models.ClassroomReservation
	if err := r.db.SelectContext(ctx, &reservations, base, args...); err != nil {
		return nil, fmt.Errorf("list reservations: %w", err)
	}
	return reservations, nil
}

// FindByID loads a reservation by id.
func (r *ReservationRepository) FindByID(ctx context.Context, id string) (*models.ClassroomReservation, error) {
	query := fmt.Sprintf(`SELECT %s FROM classroom_reservations v WHERE v.id = $1`, reservationColumns)
	var reservation models.ClassroomReservation
	if err := r.db.GetContext(ctx, &reservation, query, id); err != nil {
		return nil, err
	}
	return &reservation, nil
}

// ListBlockingByClassroomDate returns the reservations holding a room on
// one date. Pending requests block the window alongside approved ones, so
// two requesters cannot race for the same slot; rejected and cancelled
// requests never block.
func (r *ReservationRepository) ListBlockingByClassroomDate(ctx context.Context, classroomID string, date time.Time) ([]models.ClassroomReservation, error) {
	query := fmt.Sprintf(`SELECT %s FROM classroom_reservations v WHERE v.classroom_id = $1 AND v.date = $2 AND v.status IN ('PENDING', 'APPROVED')`, reservationColumns)
	var reservations []models.ClassroomReservation
	if err := r.db.SelectContext(ctx, &reservations, query, classroomID, models.DateOnly(date)); err != nil {
		return nil, fmt.Errorf("list blocking reservations: %w", err)
	}
	return reservations, nil
}

// Create stores a new reservation request in PENDING state.
func (r *ReservationRepository) Create(ctx context.Context, reservation *models.ClassroomReservation) error {
	if reservation.ID == "" {
		reservation.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	reservation.CreatedAt = now
	reservation.UpdatedAt = now

	const query = `INSERT INTO classroom_reservations (id, classroom_id, requested_by, date, start_time, end_time, purpose, status, reviewed_by, created_at, updated_at) VALUES (:id, :classroom_id, :requested_by, :date, :start_time, :end_time, :purpose, :status, :reviewed_by, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, reservation); err != nil {
		return fmt.Errorf("create reservation: %w", err)
	}
	return nil
}

// UpdateStatus transitions a reservation and records the reviewer.
func (r *ReservationRepository) UpdateStatus(ctx context.Context, id string, status models.ReservationStatus, reviewedBy string) error {
	const query = `UPDATE classroom_reservations SET status = $2, reviewed_by = $3, updated_at = $4 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, status, reviewedBy, time.Now().UTC()); err != nil {
		return fmt.Errorf("update reservation status: %w", err)
	}
	return nil
}
