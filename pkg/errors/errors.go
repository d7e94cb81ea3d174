package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Violation pairs a machine-readable rule code with a display message.
// Operations that accumulate several business-rule failures (reservation
// validation, campaign checks) attach one Violation per failed rule.
type Violation struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error represents a typed domain error with HTTP awareness.
type Error struct {
	Code       string      `json:"code"`
	Message    string      `json:"message"`
	Status     int         `json:"status"`
	Violations []Violation `json:"violations,omitempty"`
	Err        error       `json:"-"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the wrapped error.
func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// New creates a new Error instance.
func New(code string, status int, message string) *Error {
	return &Error{Code: code, Status: status, Message: message}
}

// Wrap attaches context to an existing error.
func Wrap(err error, code string, status int, message string) *Error {
	return &Error{Code: code, Status: status, Message: message, Err: err}
}

// WithViolations returns a copy of the error carrying the accumulated rule
// violations. The first violation's message becomes the top-level message.
func WithViolations(base *Error, violations []Violation) *Error {
	clone := *base
	clone.Violations = violations
	if len(violations) > 0 {
		clone.Message = violations[0].Message
	}
	return &clone
}

// Predefined errors for common scenarios.
var (
	ErrInvalidCredentials = New("INVALID_CREDENTIALS", http.StatusUnauthorized, "invalid email or password")
	ErrInactiveAccount    = New("ACCOUNT_INACTIVE", http.StatusForbidden, "account is inactive")
	ErrNotFound           = New("NOT_FOUND", http.StatusNotFound, "resource not found")
	ErrForbidden          = New("FORBIDDEN", http.StatusForbidden, "forbidden")
	ErrUnauthorized       = New("UNAUTHORIZED", http.StatusUnauthorized, "unauthorized")
	ErrConflict           = New("CONFLICT", http.StatusConflict, "conflict")
	ErrValidation         = New("VALIDATION_ERROR", http.StatusBadRequest, "validation failed")
	ErrInternal           = New("INTERNAL_ERROR", http.StatusInternalServerError, "internal server error")
	ErrCacheMiss          = New("CACHE_MISS", http.StatusNotFound, "cache miss")

	// Domain rule codes.
	ErrCampaignAlreadyOpen  = New("CAMPAIGN_ALREADY_OPEN", http.StatusConflict, "an enrollment campaign is already open for this course")
	ErrCampaignNotOpen      = New("CAMPAIGN_NOT_OPEN", http.StatusConflict, "no open enrollment campaign for this course")
	ErrCapacityDeficit      = New("CAPACITY_DEFICIT", http.StatusConflict, "aggregate laboratory capacity is below the enrolled student count")
	ErrDuplicatePostulation = New("DUPLICATE_POSTULATION", http.StatusConflict, "student already postulated in this campaign")
	ErrScheduleConflict     = New("SCHEDULE_CONFLICT", http.StatusConflict, "schedule conflict detected")
	ErrNotEnrolled          = New("NOT_ENROLLED", http.StatusConflict, "student is not actively enrolled in this course")
	ErrLabNotInCourse       = New("LAB_NOT_IN_COURSE", http.StatusBadRequest, "laboratory group does not belong to the campaign course")
	ErrRoomUnavailable      = New("ROOM_UNAVAILABLE", http.StatusConflict, "classroom is not available in the requested window")
)

// Reservation rule codes; the reservation validator accumulates these as
// violations rather than failing on the first.
const (
	CodeOutsideOperatingHours = "OUTSIDE_OPERATING_HOURS"
	CodeReservationTooShort   = "RESERVATION_TOO_SHORT"
	CodePastDate              = "PAST_DATE"
	CodeRoomUnavailable       = "ROOM_UNAVAILABLE"
)

// FromError normalises any error into an *Error.
func FromError(err error) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return Wrap(err, ErrInternal.Code, ErrInternal.Status, ErrInternal.Message)
}

// Clone returns a copy of the error allowing for message overrides.
func Clone(err *Error, message string) *Error {
	if err == nil {
		return nil
	}
	clone := *err
	if message != "" {
		clone.Message = message
	}
	return &clone
}
