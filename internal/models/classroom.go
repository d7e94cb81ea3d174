package models

import "time"

// ClassroomType distinguishes lecture rooms from laboratories. Lab groups
// may only be scheduled in LABORATORY rooms.
type ClassroomType string

const (
	ClassroomLecture    ClassroomType = "LECTURE"
	ClassroomLaboratory ClassroomType = "LABORATORY"
)

func (t ClassroomType) Valid() bool {
	return t == ClassroomLecture || t == ClassroomLaboratory
}

// Classroom is a physical room. Codes are generated sequentially per type
// (A001, A002, ... for lecture rooms; L001, ... for laboratories).
type Classroom struct {
	ID        string        `db:"id" json:"id"`
	Code      string        `db:"code" json:"code"`
	Name      string        `db:"name" json:"name"`
	Type      ClassroomType `db:"type" json:"type"`
	Capacity  int           `db:"capacity" json:"capacity"`
	Building  string        `db:"building" json:"building"`
	IsActive  bool          `db:"is_active" json:"isActive"`
	CreatedAt time.Time     `db:"created_at" json:"createdAt"`
	UpdatedAt time.Time     `db:"updated_at" json:"updatedAt"`
}

type CreateClassroomInput struct {
	Name     string `json:"name" validate:"required,max=80"`
	Type     string `json:"type" validate:"required,oneof=LECTURE LABORATORY"`
	Capacity int    `json:"capacity" validate:"required,min=1,max=500"`
	Building string `json:"building" validate:"required,max=60"`
}

type UpdateClassroomInput struct {
	Name     *string `json:"name" validate:"omitempty,max=80"`
	Capacity *int    `json:"capacity" validate:"omitempty,min=1,max=500"`
	Building *string `json:"building" validate:"omitempty,max=60"`
	IsActive *bool   `json:"isActive"`
}

// ClassroomFilter narrows classroom listings.
type ClassroomFilter struct {
	Type     ClassroomType
	Building string
	MinSeats int
	Active   *bool
}
