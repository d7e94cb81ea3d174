package models

import "time"

// CourseGroup is a theory section of a course within one semester, e.g.
// group "A" of Operating Systems in 2024-II.
type CourseGroup struct {
	ID           string    `db:"id" json:"id"`
	CourseID     string    `db:"course_id" json:"courseId"`
	SemesterID   string    `db:"semester_id" json:"semesterId"`
	Nomenclature string    `db:"nomenclature" json:"nomenclature"`
	ProfessorID  string    `db:"professor_id" json:"professorId"`
	Capacity     int       `db:"capacity" json:"capacity"`
	CreatedAt    time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt    time.Time `db:"updated_at" json:"updatedAt"`

	// Joined fields, populated by list queries.
	CourseCode   string `db:"course_code" json:"courseCode,omitempty"`
	CourseName   string `db:"course_name" json:"courseName,omitempty"`
	SemesterName string `db:"semester_name" json:"semesterName,omitempty"`
}

// LaboratoryGroup is a lab section attached to a course group. Lab capacity
// is bounded by the laboratory room assigned to its schedule.
type LaboratoryGroup struct {
	ID            string    `db:"id" json:"id"`
	CourseGroupID string    `db:"course_group_id" json:"courseGroupId"`
	Nomenclature  string    `db:"nomenclature" json:"nomenclature"`
	ProfessorID   string    `db:"professor_id" json:"professorId"`
	Capacity      int       `db:"capacity" json:"capacity"`
	CreatedAt     time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt     time.Time `db:"updated_at" json:"updatedAt"`

	CourseCode string `db:"course_code" json:"courseCode,omitempty"`
	CourseName string `db:"course_name" json:"courseName,omitempty"`
}

// GroupKind tags which kind of group a schedule row belongs to.
type GroupKind string

const (
	GroupTheory GroupKind = "THEORY"
	GroupLab    GroupKind = "LAB"
)

// Schedule is one weekly meeting slot of a theory or lab group. Exactly one
// of the group references is set, selected by GroupKind.
type Schedule struct {
	ID          string    `db:"id" json:"id"`
	GroupKind   GroupKind `db:"group_kind" json:"groupKind"`
	GroupID     string    `db:"group_id" json:"groupId"`
	ClassroomID string    `db:"classroom_id" json:"classroomId"`
	Day         DayOfWeek `db:"day" json:"day"`
	StartTime   TimeOfDay `db:"start_time" json:"startTime"`
	EndTime     TimeOfDay `db:"end_time" json:"endTime"`
	CreatedAt   time.Time `db:"created_at" json:"createdAt"`

	ClassroomCode string `db:"classroom_code" json:"classroomCode,omitempty"`
}

// OverlapsWith reports whether two slots collide: same day and intersecting
// half-open time intervals.
func (s *Schedule) OverlapsWith(other *Schedule) bool {
	if s.Day != other.Day {
		return false
	}
	return Overlaps(s.StartTime, s.EndTime, other.StartTime, other.EndTime)
}

type CreateCourseGroupInput struct {
	CourseID     string `json:"courseId" validate:"required,uuid"`
	SemesterID   string `json:"semesterId" validate:"required,uuid"`
	Nomenclature string `json:"nomenclature" validate:"required,max=10"`
	ProfessorID  string `json:"professorId" validate:"required,uuid"`
	Capacity     int    `json:"capacity" validate:"required,min=1,max=500"`
}

type CreateLabGroupInput struct {
	CourseGroupID string `json:"courseGroupId" validate:"required,uuid"`
	Nomenclature  string `json:"nomenclature" validate:"required,max=10"`
	ProfessorID   string `json:"professorId" validate:"required,uuid"`
	Capacity      int    `json:"capacity" validate:"required,min=1,max=100"`
}

type CreateScheduleInput struct {
	GroupKind   string `json:"groupKind" validate:"required,oneof=THEORY LAB"`
	GroupID     string `json:"groupId" validate:"required,uuid"`
	ClassroomID string `json:"classroomId" validate:"required,uuid"`
	Day         string `json:"day" validate:"required,oneof=MONDAY TUESDAY WEDNESDAY THURSDAY FRIDAY SATURDAY"`
	StartTime   string `json:"startTime" validate:"required"`
	EndTime     string `json:"endTime" validate:"required"`
}

// DaySlotInput is one slot inside a day replacement.
type DaySlotInput struct {
	ClassroomID string `json:"classroomId" validate:"required,uuid"`
	StartTime   string `json:"startTime" validate:"required"`
	EndTime     string `json:"endTime" validate:"required"`
}

// ReplaceDaySchedulesInput swaps every slot a group holds on one day. An
// empty slot list clears the day.
type ReplaceDaySchedulesInput struct {
	GroupKind string         `json:"groupKind" validate:"required,oneof=THEORY LAB"`
	GroupID   string         `json:"groupId" validate:"required,uuid"`
	Day       string         `json:"day" validate:"required,oneof=MONDAY TUESDAY WEDNESDAY THURSDAY FRIDAY SATURDAY"`
	Slots     []DaySlotInput `json:"slots" validate:"dive"`
}
