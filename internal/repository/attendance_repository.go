package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/sgac-unsa/sgac-api/internal/models"
)

// AttendanceRepository provides persistence for attendance records. Saving
// marks and refreshing the cached attendance percentage happen in the same
// transaction so the enrollment never shows a stale figure.
type AttendanceRepository struct {
	db *sqlx.DB
}

// NewAttendanceRepository creates a new attendance repository.
func NewAttendanceRepository(db *sqlx.DB) *AttendanceRepository {
	return &AttendanceRepository{db: db}
}

const attendanceColumns = `id, enrollment_id, session_number, session_date, state, recorded_by, recorded_ip, created_at, updated_at`

// ListByEnrollment returns a student's records ordered by session number.
func (r *AttendanceRepository) ListByEnrollment(ctx context.Context, enrollmentID string) ([]models.AttendanceRecord, error) {
	query := fmt.Sprintf(`SELECT %s FROM attendance_records WHERE enrollment_id = $1 ORDER BY session_number ASC`, attendanceColumns)
	var records []models.AttendanceRecord
	if err := r.db.SelectContext(ctx, &records, query, enrollmentID); err != nil {
		return nil, fmt.Errorf("list attendance by enrollment: %w", err)
	}
	return records, nil
}

// ListBySession returns every record of one session across a group's
// enrollments.
func (r *AttendanceRepository) ListBySession(ctx context.Context, courseGroupID string, sessionNumber int) ([]models.AttendanceRecord, error) {
	query := fmt.Sprintf(`SELECT %s FROM attendance_records WHERE session_number = $2 AND enrollment_id IN (SELECT id FROM student_enrollments WHERE course_group_id = $1) ORDER BY created_at ASC`, attendanceColumns)
	var records []models.AttendanceRecord
	if err := r.db.SelectContext(ctx, &records, query, courseGroupID, sessionNumber); err != nil {
		return nil, fmt.Errorf("list attendance by session: %w", err)
	}
	return records, nil
}

// SaveMarks upserts one session's marks and recomputes each touched
// enrollment's cached attendance percentage, all in one transaction.
// Re-marking a session overwrites the previous state.
func (r *AttendanceRepository) SaveMarks(ctx context.Context, records []models.AttendanceRecord) error {
	if len(records) == 0 {
		return nil
	}
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin save attendance: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	now := time.Now().UTC()
	const upsertQuery = `INSERT INTO attendance_records (id, enrollment_id, session_number, session_date, state, recorded_by, recorded_ip, created_at, updated_at) VALUES (:id, :enrollment_id, :session_number, :session_date, :state, :recorded_by, :recorded_ip, :created_at, :updated_at) ON CONFLICT (enrollment_id, session_number) DO UPDATE SET state = EXCLUDED.state, session_date = EXCLUDED.session_date, recorded_by = EXCLUDED.recorded_by, recorded_ip = EXCLUDED.recorded_ip, updated_at = EXCLUDED.updated_at`

	touched := make(map[string]struct{}, len(records))
	for i := range records {
		rec := records[i]
		if rec.ID == "" {
			rec.ID = uuid.NewString()
		}
		rec.CreatedAt = now
		rec.UpdatedAt = now
		if _, err = tx.NamedExecContext(ctx, upsertQuery, rec); err != nil {
			return fmt.Errorf("upsert attendance record: %w", err)
		}
		touched[rec.EnrollmentID] = struct{}{}
	}

	for enrollmentID := range touched {
		if err = r.recomputePercentage(ctx, tx, enrollmentID, now); err != nil {
			return err
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit save attendance: %w", err)
	}
	return nil
}

// RecomputePercentage refreshes one enrollment's cached attendance figure
// from its stored records, outside any attendance write.
func (r *AttendanceRepository) RecomputePercentage(ctx context.Context, enrollmentID string) (err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin recompute attendance: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if err = r.recomputePercentage(ctx, tx, enrollmentID, time.Now().UTC()); err != nil {
		return err
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit recompute attendance: %w", err)
	}
	return nil
}

func (r *AttendanceRepository) recomputePercentage(ctx context.Context, tx *sqlx.Tx, enrollmentID string, now time.Time) error {
	query := fmt.Sprintf(`SELECT %s FROM attendance_records WHERE enrollment_id = $1`, attendanceColumns)
	var records []models.AttendanceRecord
	if err := tx.SelectContext(ctx, &records, query, enrollmentID); err != nil {
		return fmt.Errorf("load attendance for recompute: %w", err)
	}
	percentage := models.AttendancePercentage(records)
	if _, err := tx.ExecContext(ctx, `UPDATE student_enrollments SET attendance_percentage = $2, updated_at = $3 WHERE id = $1`, enrollmentID, percentage, now); err != nil {
		return fmt.Errorf("update attendance percentage: %w", err)
	}
	return nil
}
