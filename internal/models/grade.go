package models

import "time"

// GradeRecord is one student's score on one evaluation. Scores are stored
// already rounded on the 0..20 scale, unique per (enrollment, evaluation).
type GradeRecord struct {
	ID           string    `db:"id" json:"id"`
	EnrollmentID string    `db:"enrollment_id" json:"enrollmentId"`
	EvaluationID string    `db:"evaluation_id" json:"evaluationId"`
	Score        int       `db:"score" json:"score"`
	RawScore     float64   `db:"raw_score" json:"rawScore"`
	RecordedBy   string    `db:"recorded_by" json:"recordedBy"`
	CreatedAt    time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt    time.Time `db:"updated_at" json:"updatedAt"`

	EvaluationName   string `db:"evaluation_name" json:"evaluationName,omitempty"`
	EvaluationWeight int    `db:"evaluation_weight" json:"evaluationWeight,omitempty"`
}

// GradeEntry is one entry of a bulk grade save.
type GradeEntry struct {
	EnrollmentID string  `json:"enrollmentId" validate:"required,uuid"`
	Score        float64 `json:"score" validate:"min=0,max=20"`
}

type SaveGradesInput struct {
	EvaluationID string       `json:"evaluationId" validate:"required,uuid"`
	Entries      []GradeEntry `json:"entries" validate:"required,min=1,dive"`
}

// UnitGradeSummary is one curricular unit's weighted grade over its graded
// evaluations.
type UnitGradeSummary struct {
	Unit          int     `json:"unit"`
	WeightedGrade float64 `json:"weightedGrade"`
}

// GradeSummary aggregates an enrollment's grades by curricular unit.
type GradeSummary struct {
	EnrollmentID string             `json:"enrollmentId"`
	Units        []UnitGradeSummary `json:"units"`
	FinalGrade   *float64           `json:"finalGrade"`
}
