package models

import "time"

// ReservationStatus tracks the approval lifecycle of an ad-hoc classroom
// reservation.
type ReservationStatus string

const (
	ReservationPending   ReservationStatus = "PENDING"
	ReservationApproved  ReservationStatus = "APPROVED"
	ReservationRejected  ReservationStatus = "REJECTED"
	ReservationCancelled ReservationStatus = "CANCELLED"
)

// ClassroomReservation is a one-off booking of a room outside the regular
// weekly schedules. Only APPROVED reservations block availability.
type ClassroomReservation struct {
	ID          string            `db:"id" json:"id"`
	ClassroomID string            `db:"classroom_id" json:"classroomId"`
	RequestedBy string            `db:"requested_by" json:"requestedBy"`
	Date        time.Time         `db:"date" json:"date"`
	StartTime   TimeOfDay         `db:"start_time" json:"startTime"`
	EndTime     TimeOfDay         `db:"end_time" json:"endTime"`
	Purpose     string            `db:"purpose" json:"purpose"`
	Status      ReservationStatus `db:"status" json:"status"`
	ReviewedBy  *string           `db:"reviewed_by" json:"reviewedBy"`
	CreatedAt   time.Time         `db:"created_at" json:"createdAt"`
	UpdatedAt   time.Time         `db:"updated_at" json:"updatedAt"`

	ClassroomCode string `db:"classroom_code" json:"classroomCode,omitempty"`
	RequesterName string `db:"requester_name" json:"requesterName,omitempty"`
}

type CreateReservationInput struct {
	ClassroomID string `json:"classroomId" validate:"required,uuid"`
	Date        string `json:"date" validate:"required,datetime=2006-01-02"`
	StartTime   string `json:"startTime" validate:"required"`
	EndTime     string `json:"endTime" validate:"required"`
	Purpose     string `json:"purpose" validate:"required,max=200"`
}

// ReservationFilter narrows reservation listings.
type ReservationFilter struct {
	ClassroomID string
	RequestedBy string
	Status      ReservationStatus
	From        *time.Time
	To          *time.Time
}
