package models

import "time"

// CampaignState tracks the lifecycle of a lab enrollment campaign.
type CampaignState string

const (
	CampaignDraft  CampaignState = "DRAFT"
	CampaignOpen   CampaignState = "OPEN"
	CampaignClosed CampaignState = "CLOSED"
)

// LabEnrollmentCampaign is an enrollment window during which students of a
// course group postulate to its laboratory groups. At most one campaign per
// course group may be OPEN at a time.
type LabEnrollmentCampaign struct {
	ID            string        `db:"id" json:"id"`
	CourseGroupID string        `db:"course_group_id" json:"courseGroupId"`
	State         CampaignState `db:"state" json:"state"`
	OpensAt       time.Time     `db:"opens_at" json:"opensAt"`
	ClosesAt      time.Time     `db:"closes_at" json:"closesAt"`
	CreatedBy     string        `db:"created_by" json:"createdBy"`
	CreatedAt     time.Time     `db:"created_at" json:"createdAt"`
	UpdatedAt     time.Time     `db:"updated_at" json:"updatedAt"`
}

// PostulationState tracks a student's request for a lab seat.
type PostulationState string

const (
	PostulationPending    PostulationState = "PENDING"
	PostulationAccepted   PostulationState = "ACCEPTED"
	PostulationReassigned PostulationState = "REASSIGNED"
	PostulationRejected   PostulationState = "REJECTED"
)

// StudentPostulation is a student's request for a seat in a specific lab
// group within a campaign. One postulation per student per campaign.
type StudentPostulation struct {
	ID         string           `db:"id" json:"id"`
	CampaignID string           `db:"campaign_id" json:"campaignId"`
	StudentID  string           `db:"student_id" json:"studentId"`
	LabGroupID string           `db:"lab_group_id" json:"labGroupId"`
	State      PostulationState `db:"state" json:"state"`
	CreatedAt  time.Time        `db:"created_at" json:"createdAt"`
	UpdatedAt  time.Time        `db:"updated_at" json:"updatedAt"`

	StudentName string `db:"student_name" json:"studentName,omitempty"`
	LabNomen    string `db:"lab_nomenclature" json:"labNomenclature,omitempty"`
}

// AssignmentMethod records how a student ended up in a lab group.
type AssignmentMethod string

const (
	AssignmentAutomatic AssignmentMethod = "AUTOMATIC"
	AssignmentLottery   AssignmentMethod = "LOTTERY"
	AssignmentDirect    AssignmentMethod = "DIRECT"
)

// LabAssignment is the resolved seat of a student in a lab group.
type LabAssignment struct {
	ID         string           `db:"id" json:"id"`
	CampaignID string           `db:"campaign_id" json:"campaignId"`
	StudentID  string           `db:"student_id" json:"studentId"`
	LabGroupID string           `db:"lab_group_id" json:"labGroupId"`
	Method     AssignmentMethod `db:"method" json:"method"`
	CreatedAt  time.Time        `db:"created_at" json:"createdAt"`
}

// LabGroupStatus is the fill level of one lab group during a campaign.
type LabGroupStatus struct {
	LabGroupID   string  `json:"labGroupId"`
	Nomenclature string  `json:"nomenclature"`
	Capacity     int     `json:"capacity"`
	Postulants   int     `json:"postulants"`
	FillPercent  float64 `json:"fillPercent"`
	Level        string  `json:"level"`
}

// Fill level buckets, keyed on postulants versus capacity.
const (
	FillEmpty      = "EMPTY"
	FillNormal     = "NORMAL"
	FillAlmostFull = "ALMOST_FULL"
	FillExceeded   = "EXCEEDED"
)

// CampaignStatus is the aggregate status report of a campaign.
type CampaignStatus struct {
	Campaign        LabEnrollmentCampaign `json:"campaign"`
	TotalStudents   int                   `json:"totalStudents"`
	TotalPostulants int                   `json:"totalPostulants"`
	PendingStudents int                   `json:"pendingStudents"`
	Groups          []LabGroupStatus      `json:"groups"`
}

// CapacityCheck is the result of verifying a course group has enough lab
// seats for its enrolled students.
type CapacityCheck struct {
	Enrolled      int  `json:"enrolled"`
	TotalCapacity int  `json:"totalCapacity"`
	Deficit       int  `json:"deficit"`
	CanEnable     bool `json:"canEnable"`
}

type EnableCampaignInput struct {
	CourseGroupID string `json:"courseGroupId" validate:"required,uuid"`
	DurationDays  int    `json:"durationDays" validate:"omitempty,min=1,max=60"`
}

type PostulateInput struct {
	LabGroupID string `json:"labGroupId" validate:"required,uuid"`
}

// AssignmentReport summarizes a direct assignment batch run.
type AssignmentReport struct {
	Assigned []LabAssignment  `json:"assigned"`
	Skipped  []SkippedStudent `json:"skipped"`
	Total    int              `json:"total"`
}

// SkippedStudent names a student the batch could not place and why.
type SkippedStudent struct {
	StudentID string `json:"studentId"`
	Reason    string `json:"reason"`
}
