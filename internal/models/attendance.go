package models

import "time"

// AttendanceStatus is the review state of an attendance record.
type AttendanceStatus string

const (
	AttendanceStatusPending  AttendanceStatus = "Pending"
	AttendanceStatusVerified AttendanceStatus = "Verified"
	AttendanceStatusRejected AttendanceStatus = "Rejected"
)

// Terminal reports whether no further review is possible.
func (s AttendanceStatus) Terminal() bool {
	return s == AttendanceStatusVerified || s == AttendanceStatusRejected
}

// GPSProofManualOverride marks attendance recorded by a coordinator.
const GPSProofManualOverride = "manual_override"

// Attendance is the record of a user's participation window in a mission.
type Attendance struct {
	ID             string           `db:"id" json:"id"`
	UserID         string           `db:"user_id" json:"user_id"`
	MissionID      string           `db:"mission_id" json:"mission_id"`
	CheckInTime    *time.Time       `db:"check_in_time" json:"check_in_time,omitempty"`
	CheckOutTime   *time.Time       `db:"check_out_time" json:"check_out_time,omitempty"`
	GPSProof       *string          `db:"gps_proof" json:"gps_proof,omitempty"`
	TotalHours     *float64         `db:"total_hours" json:"total_hours,omitempty"`
	Status         AttendanceStatus `db:"status" json:"status"`
	VerifiedBy     *string          `db:"verified_by" json:"verified_by,omitempty"`
	VerifiedAt     *time.Time       `db:"verified_at" json:"verified_at,omitempty"`
	OverrideReason *string          `db:"override_reason" json:"override_reason,omitempty"`
	CreatedAt      time.Time        `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time        `db:"updated_at" json:"updated_at"`
}

// Open reports whether the user is checked in and not yet checked out.
func (a *Attendance) Open() bool {
	return a.CheckInTime != nil && a.CheckOutTime == nil
}

// AttendanceDetail joins user and mission labels for coordinator views.
type AttendanceDetail struct {
	Attendance
	UserName     string `db:"user_name" json:"user_name"`
	MissionTitle string `db:"mission_title" json:"mission_title"`
}

// CheckInRequest is submitted by a volunteer scanning a mission QR code.
type CheckInRequest struct {
	MissionID string `json:"mission_id" validate:"required"`
	Token     string `json:"qr_token" validate:"required"`
	GPS       string `json:"gps" validate:"required"`
}

// CheckOutRequest closes the caller's open attendance on a mission.
type CheckOutRequest struct {
	MissionID string `json:"mission_id" validate:"required"`
}

// ValidateLocationRequest asks whether a position is inside a mission geofence.
type ValidateLocationRequest struct {
	MissionID string `json:"mission_id" validate:"required"`
	GPS       string `json:"gps" validate:"required"`
}

// ReviewRequest carries a coordinator's decision on an attendance record.
type ReviewRequest struct {
	Status AttendanceStatus `json:"status" validate:"required,review_decision"`
}

// ManualOverrideRequest carries the mandatory justification for a
// coordinator override.
type ManualOverrideRequest struct {
	Reason string `json:"reason" validate:"required,notblank"`
}

// ManualCompletionResult reports whether a manual completion settled points.
type ManualCompletionResult struct {
	Attendance *Attendance `json:"attendance"`
	Settled    bool        `json:"settled"`
}
