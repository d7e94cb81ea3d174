package models

import "time"

// Course is a curricular subject. The same course may be dictated across
// several semesters through its groups.
type Course struct {
	ID           string    `db:"id" json:"id"`
	Code         string    `db:"code" json:"code"`
	Name         string    `db:"name" json:"name"`
	Credits      int       `db:"credits" json:"credits"`
	AcademicYear int       `db:"academic_year" json:"academicYear"`
	HasLab       bool      `db:"has_lab" json:"hasLab"`
	CreatedAt    time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt    time.Time `db:"updated_at" json:"updatedAt"`
}

// EvaluationKind distinguishes continuous assessment from exams.
type EvaluationKind string

const (
	EvaluationContinuous EvaluationKind = "CONTINUOUS"
	EvaluationExam       EvaluationKind = "EXAM"
)

func (k EvaluationKind) Valid() bool {
	return k == EvaluationContinuous || k == EvaluationExam
}

// Evaluation is a graded item of a course group, placed in one of the
// three curricular units. Weights across a group's evaluations are
// expected to sum to 100; Order positions the item inside its unit.
type Evaluation struct {
	ID            string         `db:"id" json:"id"`
	CourseGroupID string         `db:"course_group_id" json:"courseGroupId"`
	Name          string         `db:"name" json:"name"`
	Kind          EvaluationKind `db:"kind" json:"kind"`
	Unit          int            `db:"unit" json:"unit"`
	Order         int            `db:"sort_order" json:"order"`
	Weight        int            `db:"weight" json:"weight"`
	CreatedAt     time.Time      `db:"created_at" json:"createdAt"`
}

type CreateCourseInput struct {
	Code         string `json:"code" validate:"required,max=20"`
	Name         string `json:"name" validate:"required,max=120"`
	Credits      int    `json:"credits" validate:"required,min=1,max=10"`
	AcademicYear int    `json:"academicYear" validate:"required,min=1,max=6"`
	HasLab       bool   `json:"hasLab"`
}

type UpdateCourseInput struct {
	Name    *string `json:"name" validate:"omitempty,max=120"`
	Credits *int    `json:"credits" validate:"omitempty,min=1,max=10"`
	HasLab  *bool   `json:"hasLab"`
}

type CreateEvaluationInput struct {
	Name   string `json:"name" validate:"required,max=60"`
	Kind   string `json:"kind" validate:"required,oneof=CONTINUOUS EXAM"`
	Unit   int    `json:"unit" validate:"required,min=1,max=3"`
	Order  int    `json:"order" validate:"omitempty,min=1"`
	Weight int    `json:"weight" validate:"required,min=1,max=100"`
}
