package models

import "time"

// EnrollmentStatus tracks a student's standing in a course group.
type EnrollmentStatus string

const (
	EnrollmentActive    EnrollmentStatus = "ACTIVE"
	EnrollmentWithdrawn EnrollmentStatus = "WITHDRAWN"
	EnrollmentCompleted EnrollmentStatus = "COMPLETED"
)

// StudentEnrollment ties a student to a course group for a semester. The
// attendance percentage and final grade are cached here and recomputed in
// the same transaction as the records that change them. LabAssignmentID is
// set once the student holds a laboratory seat.
type StudentEnrollment struct {
	ID                   string           `db:"id" json:"id"`
	StudentID            string           `db:"student_id" json:"studentId"`
	CourseGroupID        string           `db:"course_group_id" json:"courseGroupId"`
	Status               EnrollmentStatus `db:"status" json:"status"`
	AttendancePercentage float64          `db:"attendance_percentage" json:"attendancePercentage"`
	FinalGrade           *float64         `db:"final_grade" json:"finalGrade"`
	LabAssignmentID      *string          `db:"lab_assignment_id" json:"labAssignmentId,omitempty"`
	EnrolledAt           time.Time        `db:"enrolled_at" json:"enrolledAt"`
	UpdatedAt            time.Time        `db:"updated_at" json:"updatedAt"`

	StudentName  string `db:"student_name" json:"studentName,omitempty"`
	StudentEmail string `db:"student_email" json:"studentEmail,omitempty"`
	CourseCode   string `db:"course_code" json:"courseCode,omitempty"`
	CourseName   string `db:"course_name" json:"courseName,omitempty"`
	Nomenclature string `db:"nomenclature" json:"nomenclature,omitempty"`
}

// Attendance risk buckets used by the student dashboard.
const (
	RiskApproved = "APPROVED"
	RiskAtRisk   = "AT_RISK"
	RiskCritical = "CRITICAL"
)

// EnrollmentSummary is a dashboard row: one enrollment with its risk level.
type EnrollmentSummary struct {
	Enrollment StudentEnrollment `json:"enrollment"`
	RiskLevel  string            `json:"riskLevel"`
}

type EnrollStudentInput struct {
	StudentID     string `json:"studentId" validate:"required,uuid"`
	CourseGroupID string `json:"courseGroupId" validate:"required,uuid"`
}
