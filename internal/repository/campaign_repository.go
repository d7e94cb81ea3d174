package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/sgac-unsa/sgac-api/internal/models"
)

// CampaignRepository provides persistence for lab enrollment campaigns,
// student postulations and lab assignments.
type CampaignRepository struct {
	db *sqlx.DB
}

// NewCampaignRepository creates a new campaign repository.
func NewCampaignRepository(db *sqlx.DB) *CampaignRepository {
	return &CampaignRepository{db: db}
}

const campaignColumns = `id, course_group_id, state, opens_at, closes_at, created_by, created_at, updated_at`

// FindByID loads a campaign by id.
func (r *CampaignRepository) FindByID(ctx context.Context, id string) (*models.LabEnrollmentCampaign, error) {
	query := fmt.Sprintf(`SELECT %s FROM lab_enrollment_campaigns WHERE id = $1`, campaignColumns)
	var campaign models.LabEnrollmentCampaign
	if err := r.db.GetContext(ctx, &campaign, query, id); err != nil {
		return nil, err
	}
	return &campaign, nil
}

// FindOpenByCourseGroup returns the OPEN campaign of a course group, or
// sql.ErrNoRows when none is open.
func (r *CampaignRepository) FindOpenByCourseGroup(ctx context.Context, courseGroupID string) (*models.LabEnrollmentCampaign, error) {
	query := fmt.Sprintf(`SELECT %s FROM lab_enrollment_campaigns WHERE course_group_id = $1 AND state = 'OPEN'`, campaignColumns)
	var campaign models.LabEnrollmentCampaign
	if err := r.db.GetContext(ctx, &campaign, query, courseGroupID); err != nil {
		return nil, err
	}
	return &campaign, nil
}

// ListByCourseGroup returns every campaign of a course group, newest first.
func (r *CampaignRepository) ListByCourseGroup(ctx context.Context, courseGroupID string) ([]models.LabEnrollmentCampaign, error) {
	query := fmt.Sprintf(`SELECT %s FROM lab_enrollment_campaigns WHERE course_group_id = $1 ORDER BY created_at DESC`, campaignColumns)
	var campaigns []models.LabEnrollmentCampaign
	if err := r.db.SelectContext(ctx, &campaigns, query, courseGroupID); err != nil {
		return nil, fmt.Errorf("list campaigns: %w", err)
	}
	return campaigns, nil
}

// Create stores a new campaign. A partial unique index on
// (course_group_id) WHERE state = 'OPEN' backs the one-open-campaign rule.
func (r *CampaignRepository) Create(ctx context.Context, campaign *models.LabEnrollmentCampaign) error {
	if campaign.ID == "" {
		campaign.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	campaign.CreatedAt = now
	campaign.UpdatedAt = now

	const query = `INSERT INTO lab_enrollment_campaigns (id, course_group_id, state, opens_at, closes_at, created_by, created_at, updated_at) VALUES (:id, :course_group_id, :state, :opens_at, :closes_at, :created_by, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, campaign); err != nil {
		return fmt.Errorf("create campaign: %w", err)
	}
	return nil
}

// UpdateState transitions a campaign to a new state.
func (r *CampaignRepository) UpdateState(ctx context.Context, id string, state models.CampaignState) error {
	const query = `UPDATE lab_enrollment_campaigns SET state = $2, updated_at = $3 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, state, time.Now().UTC()); err != nil {
		return fmt.Errorf("update campaign state: %w", err)
	}
	return nil
}

const postulationColumns = `p.id, p.campaign_id, p.student_id, p.lab_group_id, p.state, p.created_at, p.updated_at`

// FindPostulation returns a student's postulation in a campaign, or
// sql.ErrNoRows.
func (r *CampaignRepository) FindPostulation(ctx context.Context, campaignID, studentID string) (*models.StudentPostulation, error) {
	query := fmt.Sprintf(`SELECT %s FROM student_postulations p WHERE p.campaign_id = $1 AND p.student_id = $2`, postulationColumns)
	var postulation models.StudentPostulation
	if err := r.db.GetContext(ctx, &postulation, query, campaignID, studentID); err != nil {
		return nil, err
	}
	return &postulation, nil
}

// ListPostulations returns every postulation of a campaign with student and
// lab group details, ordered by creation.
func (r *CampaignRepository) ListPostulations(ctx context.Context, campaignID string) ([]models.StudentPostulation, error) {
	query := fmt.Sprintf(`SELECT %s, u.full_name AS student_name, l.nomenclature AS lab_nomenclature FROM student_postulations p JOIN users u ON u.id = p.student_id JOIN laboratory_groups l ON l.id = p.lab_group_id WHERE p.campaign_id = $1 ORDER BY p.created_at ASC`, postulationColumns)
	var postulations []models.StudentPostulation
	if err := r.db.SelectContext(ctx, &postulations, query, campaignID); err != nil {
		return nil, fmt.Errorf("list postulations: %w", err)
	}
	return postulations, nil
}

// CountPostulationsByLabGroup returns postulation counts per lab group for
// a campaign, regardless of state.
func (r *CampaignRepository) CountPostulationsByLabGroup(ctx context.Context, campaignID string) (map[string]int, error) {
	const query = `SELECT lab_group_id, COUNT(*) AS total FROM student_postulations WHERE campaign_id = $1 GROUP BY lab_group_id`
	rows, err := r.db.QueryxContext(ctx, query, campaignID)
	if err != nil {
		return nil, fmt.Errorf("count postulations: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var labGroupID string
		var total int
		if err := rows.Scan(&labGroupID, &total); err != nil {
			return nil, fmt.Errorf("scan postulation count: %w", err)
		}
		counts[labGroupID] = total
	}
	return counts, rows.Err()
}

// CreatePostulation stores a student's postulation. Unique per
// (campaign_id, student_id).
func (r *CampaignRepository) CreatePostulation(ctx context.Context, postulation *models.StudentPostulation) error {
	if postulation.ID == "" {
		postulation.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	postulation.CreatedAt = now
	postulation.UpdatedAt = now

	const query = `INSERT INTO student_postulations (id, campaign_id, student_id, lab_group_id, state, created_at, updated_at) VALUES (:id, :campaign_id, :student_id, :lab_group_id, :state, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, postulation); err != nil {
		return fmt.Errorf("create postulation: %w", err)
	}
	return nil
}

// UpdatePostulationState transitions one postulation.
func (r *CampaignRepository) UpdatePostulationState(ctx context.Context, id string, state models.PostulationState) error {
	const query = `UPDATE student_postulations SET state = $2, updated_at = $3 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, state, time.Now().UTC()); err != nil {
		return fmt.Errorf("update postulation state: %w", err)
	}
	return nil
}

// ListAssignments returns the resolved seats of a campaign, oldest first.
func (r *CampaignRepository) ListAssignments(ctx context.Context, campaignID string) ([]models.LabAssignment, error) {
	const query = `SELECT id, campaign_id, student_id, lab_group_id, method, created_at FROM lab_assignments WHERE campaign_id = $1 ORDER BY created_at ASC`
	var assignments []models.LabAssignment
	if err := r.db.SelectContext(ctx, &assignments, query, campaignID); err != nil {
		return nil, fmt.Errorf("list assignments: %w", err)
	}
	return assignments, nil
}

// SaveDirectAssignment seats one student in one transaction: the ACCEPTED
// postulation is upserted, the assignment inserted and the enrollment linked
// to its new seat. Either everything lands or nothing does.
func (r *CampaignRepository) SaveDirectAssignment(ctx context.Context, postulation *models.StudentPostulation, assignment *models.LabAssignment, enrollmentID string) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin direct assignment: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	now := time.Now().UTC()
	if postulation.ID == "" {
		postulation.ID = uuid.NewString()
	}
	postulation.CreatedAt = now
	postulation.UpdatedAt = now
	const postulationQuery = `INSERT INTO student_postulations (id, campaign_id, student_id, lab_group_id, state, created_at, updated_at) VALUES (:id, :campaign_id, :student_id, :lab_group_id, :state, :created_at, :updated_at) ON CONFLICT (campaign_id, student_id) DO UPDATE SET lab_group_id = EXCLUDED.lab_group_id, state = EXCLUDED.state, updated_at = EXCLUDED.updated_at`
	if _, err = tx.NamedExecContext(ctx, postulationQuery, postulation); err != nil {
		return fmt.Errorf("upsert postulation: %w", err)
	}

	if assignment.ID == "" {
		assignment.ID = uuid.NewString()
	}
	assignment.CreatedAt = now
	const assignmentQuery = `INSERT INTO lab_assignments (id, campaign_id, student_id, lab_group_id, method, created_at) VALUES (:id, :campaign_id, :student_id, :lab_group_id, :method, :created_at)`
	if _, err = tx.NamedExecContext(ctx, assignmentQuery, assignment); err != nil {
		return fmt.Errorf("insert assignment: %w", err)
	}

	if _, err = tx.ExecContext(ctx, `UPDATE student_enrollments SET lab_assignment_id = $2, updated_at = $3 WHERE id = $1`, enrollmentID, assignment.ID, now); err != nil {
		return fmt.Errorf("link enrollment to assignment: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit direct assignment: %w", err)
	}
	return nil
}
