package models

import "time"

// Semester is an academic period. Dates are inclusive on both ends.
type Semester struct {
	ID        string    `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	StartDate time.Time `db:"start_date" json:"startDate"`
	EndDate   time.Time `db:"end_date" json:"endDate"`
	IsActive  bool      `db:"is_active" json:"isActive"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt time.Time `db:"updated_at" json:"updatedAt"`
}

// Contains reports whether the given date falls inside the semester.
func (s *Semester) Contains(date time.Time) bool {
	d := DateOnly(date)
	return !d.Before(DateOnly(s.StartDate)) && !d.After(DateOnly(s.EndDate))
}

// LabStart returns the date laboratory sessions begin: labs start one week
// after the semester opens so that theory groups meet first.
func (s *Semester) LabStart(offsetDays int) time.Time {
	return DateOnly(s.StartDate).AddDate(0, 0, offsetDays)
}

// DateOnly truncates a timestamp to midnight UTC so date comparisons ignore
// the time component.
func DateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

type CreateSemesterInput struct {
	Name      string `json:"name" validate:"required,max=50"`
	StartDate string `json:"startDate" validate:"required,datetime=2006-01-02"`
	EndDate   string `json:"endDate" validate:"required,datetime=2006-01-02"`
}

type UpdateSemesterInput struct {
	Name      *string `json:"name" validate:"omitempty,max=50"`
	StartDate *string `json:"startDate" validate:"omitempty,datetime=2006-01-02"`
	EndDate   *string `json:"endDate" validate:"omitempty,datetime=2006-01-02"`
	IsActive  *bool   `json:"isActive"`
}
