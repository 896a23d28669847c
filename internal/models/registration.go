package models

import "time"

// RegistrationStatus is the state of a user's claim on a mission.
type RegistrationStatus string

const (
	RegistrationStatusRegistered RegistrationStatus = "Registered"
	RegistrationStatusWaitlisted RegistrationStatus = "Waitlisted"
	RegistrationStatusCheckedIn  RegistrationStatus = "CheckedIn"
	RegistrationStatusCompleted  RegistrationStatus = "Completed"
	RegistrationStatusCancelled  RegistrationStatus = "Cancelled"
)

// OccupyingStatuses count toward a mission's currentVolunteers.
var OccupyingStatuses = []RegistrationStatus{
	RegistrationStatusRegistered,
	RegistrationStatusCheckedIn,
	RegistrationStatusCompleted,
}

// Occupying reports whether the status holds a capacity slot.
func (s RegistrationStatus) Occupying() bool {
	switch s {
	case RegistrationStatusRegistered, RegistrationStatusCheckedIn, RegistrationStatusCompleted:
		return true
	default:
		return false
	}
}

// Valid returns true when the status is a supported value.
func (s RegistrationStatus) Valid() bool {
	switch s {
	case RegistrationStatusRegistered, RegistrationStatusWaitlisted, RegistrationStatusCheckedIn,
		RegistrationStatusCompleted, RegistrationStatusCancelled:
		return true
	default:
		return false
	}
}

// Registration links one user to one mission.
type Registration struct {
	ID         string             `db:"id" json:"id"`
	UserID     string             `db:"user_id" json:"user_id"`
	MissionID  string             `db:"mission_id" json:"mission_id"`
	Status     RegistrationStatus `db:"status" json:"status"`
	IsPriority bool               `db:"is_priority" json:"is_priority"`
	CreatedAt  time.Time          `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time          `db:"updated_at" json:"updated_at"`
}

// RegistrationDetail adds the volunteer's profile for coordinator listings.
type RegistrationDetail struct {
	Registration
	UserName    string `db:"user_name" json:"user_name"`
	UserEmail   string `db:"user_email" json:"user_email"`
	TotalPoints int    `db:"total_points" json:"total_points"`
}

// WaitlistCandidate is a waitlisted registration with the user's
// attendance history, as consumed by the ranker.
type WaitlistCandidate struct {
	RegistrationID   string    `db:"registration_id" json:"registration_id"`
	UserID           string    `db:"user_id" json:"user_id"`
	IsPriority       bool      `db:"is_priority" json:"is_priority"`
	CreatedAt        time.Time `db:"created_at" json:"created_at"`
	VerifiedAttended int       `db:"verified_attendances" json:"verified_attendances"`
	TotalAttendances int       `db:"total_attendances" json:"total_attendances"`
	Reliability      float64   `db:"-" json:"reliability"`
	WaitTimeSeconds  int64     `db:"-" json:"wait_time_seconds"`
}

// RegistrationResult is returned by Register.
type RegistrationResult struct {
	Registration *Registration `json:"registration"`
	Waitlisted   bool          `json:"waitlisted"`
	Reactivated  bool          `json:"reactivated"`
}

// CancellationResult is returned by Cancel.
type CancellationResult struct {
	Registration *Registration   `json:"registration"`
	Promoted     []*Registration `json:"promoted,omitempty"`
}

// SetPriorityRequest flags or unflags a waitlisted registration.
type SetPriorityRequest struct {
	IsPriority *bool `json:"is_priority" binding:"required"`
}
