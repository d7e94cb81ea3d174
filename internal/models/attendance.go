package models

import "time"

// AttendanceState is the mark for one student in one session. JUSTIFIED
// absences count as attended when the percentage is computed.
type AttendanceState string

const (
	AttendancePresent   AttendanceState = "PRESENT"
	AttendanceAbsent    AttendanceState = "ABSENT"
	AttendanceJustified AttendanceState = "JUSTIFIED"
)

func (s AttendanceState) Valid() bool {
	switch s {
	case AttendancePresent, AttendanceAbsent, AttendanceJustified:
		return true
	default:
		return false
	}
}

// Attended reports whether the state counts toward the attendance
// percentage.
func (s AttendanceState) Attended() bool {
	return s == AttendancePresent || s == AttendanceJustified
}

// AttendanceRecord is one student's mark for one dictated session. Unique
// per (enrollment, session number). RecordedIP keeps the address the mark
// was filed from, for the audit trail.
type AttendanceRecord struct {
	ID            string          `db:"id" json:"id"`
	EnrollmentID  string          `db:"enrollment_id" json:"enrollmentId"`
	SessionNumber int             `db:"session_number" json:"sessionNumber"`
	SessionDate   time.Time       `db:"session_date" json:"sessionDate"`
	State         AttendanceState `db:"state" json:"state"`
	RecordedBy    string          `db:"recorded_by" json:"recordedBy"`
	RecordedIP    string          `db:"recorded_ip" json:"recordedIp,omitempty"`
	CreatedAt     time.Time       `db:"created_at" json:"createdAt"`
	UpdatedAt     time.Time       `db:"updated_at" json:"updatedAt"`
}

// AttendanceMark is one entry of a bulk attendance save.
type AttendanceMark struct {
	EnrollmentID string `json:"enrollmentId" validate:"required,uuid"`
	State        string `json:"state" validate:"required,oneof=PRESENT ABSENT JUSTIFIED"`
}

type SaveAttendanceInput struct {
	SessionNumber int              `json:"sessionNumber" validate:"required,min=1"`
	SessionDate   string           `json:"sessionDate" validate:"required,datetime=2006-01-02"`
	Marks         []AttendanceMark `json:"marks" validate:"required,min=1,dive"`
}
