package models

import "time"

// Classroom saturation buckets used by the registrar statistics report.
const (
	SaturationFull    = "FULL"
	SaturationOptimal = "OPTIMAL"
	SaturationLow     = "LOW"
)

// ClassroomUsage aggregates how heavily one room is scheduled across the
// active semester.
type ClassroomUsage struct {
	ClassroomID   string  `db:"classroom_id" json:"classroomId"`
	ClassroomCode string  `db:"classroom_code" json:"classroomCode"`
	BookedHours   float64 `db:"booked_hours" json:"bookedHours"`
	Saturation    float64 `json:"saturation"`
	Level         string  `json:"level"`
}

// CourseEnrollment counts active enrollments for one course, for the top
// courses ranking.
type CourseEnrollment struct {
	CourseID   string `db:"course_id" json:"courseId"`
	CourseCode string `db:"course_code" json:"courseCode"`
	CourseName string `db:"course_name" json:"courseName"`
	Enrolled   int    `db:"enrolled" json:"enrolled"`
}

// ProfessorLoad sums the weekly teaching hours of one professor across
// theory and lab slots.
type ProfessorLoad struct {
	ProfessorID   string  `db:"professor_id" json:"professorId"`
	ProfessorName string  `db:"professor_name" json:"professorName"`
	WeeklyHours   float64 `db:"weekly_hours" json:"weeklyHours"`
}

// SemesterStats is the registrar dashboard report for one semester.
type SemesterStats struct {
	SemesterID     string             `json:"semesterId"`
	TotalCourses   int                `json:"totalCourses"`
	TotalGroups    int                `json:"totalGroups"`
	TotalStudents  int                `json:"totalStudents"`
	TotalSchedules int                `json:"totalSchedules"`
	ClassroomUsage []ClassroomUsage   `json:"classroomUsage"`
	TopCourses     []CourseEnrollment `json:"topCourses"`
	ProfessorLoad  []ProfessorLoad    `json:"professorLoad"`
}

// SystemMetrics is a lightweight snapshot of runtime instrumentation for
// the admin dashboard.
type SystemMetrics struct {
	CacheHitRatio            float64   `json:"cacheHitRatio"`
	CacheHits                uint64    `json:"cacheHits"`
	CacheMisses              uint64    `json:"cacheMisses"`
	RequestsTotal            uint64    `json:"requestsTotal"`
	AverageRequestDurationMs float64   `json:"averageRequestDurationMs"`
	Goroutines               int       `json:"goroutines"`
	GeneratedAt              time.Time `json:"generatedAt"`
}

// GroupCounts backs the registrar stats query.
type GroupCounts struct {
	Courses   int `db:"courses"`
	Groups    int `db:"groups"`
	Students  int `db:"students"`
	Schedules int `db:"schedules"`
}
