package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Error represents a typed domain error with HTTP awareness.
type Error struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Status  int                    `json:"status"`
	Details map[string]interface{} `json:"details,omitempty"`
	Err     error                  `json:"-"`
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

// Is reports whether target carries the same code, so clones and wraps of a
// predefined error still match it under errors.Is.
func (e *Error) Is(target error) bool {
	if e == nil {
		return false
	}
	var t *Error
	if !errors.As(target, &t) || t == nil {
		return false
	}
	return e.Code == t.Code
}

// New creates a new Error instance.
func New(code string, status int, message string) *Error {
	return &Error{Code: code, Status: status, Message: message}
}

// Wrap attaches context to an existing error.
func Wrap(err error, code string, status int, message string) *Error {
	return &Error{Code: code, Status: status, Message: message, Err: err}
}

// Internal wraps an unexpected failure as ErrInternal with a message.
func Internal(err error, message string) *Error {
	return Wrap(err, ErrInternal.Code, ErrInternal.Status, message)
}

// Predefined errors for common scenarios.
var (
	ErrNotFound     = New("NOT_FOUND", http.StatusNotFound, "resource not found")
	ErrForbidden    = New("FORBIDDEN", http.StatusForbidden, "forbidden")
	ErrUnauthorized = New("UNAUTHORIZED", http.StatusUnauthorized, "unauthorized")
	ErrValidation   = New("VALIDATION_ERROR", http.StatusBadRequest, "validation failed")
	ErrInternal     = New("INTERNAL_ERROR", http.StatusInternalServerError, "internal server error")
	ErrCacheMiss    = New("CACHE_MISS", http.StatusNotFound, "cache miss")

	ErrMissionNotFound      = New("MISSION_NOT_FOUND", http.StatusNotFound, "mission not found")
	ErrRegistrationNotFound = New("REGISTRATION_NOT_FOUND", http.StatusNotFound, "registration not found")
	ErrAttendanceNotFound   = New("ATTENDANCE_NOT_FOUND", http.StatusNotFound, "attendance record not found")

	ErrInvalidState      = New("INVALID_STATE", http.StatusConflict, "invalid state for requested transition")
	ErrMissionNotOpen    = New("MISSION_NOT_OPEN", http.StatusConflict, "mission is not open for registration")
	ErrAlreadyRegistered = New("ALREADY_REGISTERED", http.StatusConflict, "already registered")
	ErrNotRegistered     = New("NOT_REGISTERED", http.StatusConflict, "not registered for this mission")
	ErrNotWaitlisted     = New("NOT_WAITLISTED", http.StatusConflict, "registration is not waitlisted")
	ErrMissionFull       = New("MISSION_FULL", http.StatusConflict, "mission is full")
	ErrNoActiveCheckIn   = New("NO_ACTIVE_CHECK_IN", http.StatusConflict, "no active check-in found for this mission")
	ErrAlreadyCheckedOut = New("ALREADY_CHECKED_OUT", http.StatusConflict, "already checked out")

	ErrInvalidCoordinates        = New("INVALID_COORDINATES", http.StatusBadRequest, "invalid GPS coordinates")
	ErrTokenExpired              = New("TOKEN_EXPIRED", http.StatusBadRequest, "QR code has expired")
	ErrTokenMalformed            = New("TOKEN_MALFORMED", http.StatusBadRequest, "invalid QR code")
	ErrWrongPurpose              = New("WRONG_PURPOSE", http.StatusBadRequest, "invalid QR code type")
	ErrWrongMission              = New("WRONG_MISSION", http.StatusBadRequest, "QR code is for a different mission")
	ErrOutOfRange                = New("OUT_OF_RANGE", http.StatusBadRequest, "too far from the mission location")
	ErrTooEarly                  = New("TOO_EARLY", http.StatusBadRequest, "check-in is not open yet")
	ErrMissionEnded              = New("MISSION_ENDED", http.StatusBadRequest, "this mission has already ended")
	ErrAlreadyCheckedInElsewhere = New("ALREADY_CHECKED_IN_ELSEWHERE", http.StatusConflict, "already checked in to another mission")
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
	if err.Details != nil {
		clone.Details = make(map[string]interface{}, len(err.Details))
		for k, v := range err.Details {
			clone.Details[k] = v
		}
	}
	return &clone
}

// WithDetails returns a copy of err carrying diagnostic key/value pairs.
func WithDetails(err *Error, message string, details map[string]interface{}) *Error {
	clone := Clone(err, message)
	if clone == nil {
		return nil
	}
	if clone.Details == nil {
		clone.Details = make(map[string]interface{}, len(details))
	}
	for k, v := range details {
		clone.Details[k] = v
	}
	return clone
}
