package models

import "time"

// MissionStatus is the lifecycle state of a mission.
type MissionStatus string

const (
	MissionStatusPending    MissionStatus = "Pending"
	MissionStatusOpen       MissionStatus = "Open"
	MissionStatusInProgress MissionStatus = "InProgress"
	MissionStatusCompleted  MissionStatus = "Completed"
	MissionStatusCancelled  MissionStatus = "Cancelled"
)

// AcceptsRegistrations reports whether volunteers may sign up.
func (s MissionStatus) AcceptsRegistrations() bool {
	return s == MissionStatusOpen || s == MissionStatusInProgress
}

// Mission is a scheduled volunteer activity with a capacity and a reward.
type Mission struct {
	ID                string        `db:"id" json:"id"`
	Title             string        `db:"title" json:"title"`
	Status            MissionStatus `db:"status" json:"status"`
	StartTime         time.Time     `db:"start_time" json:"start_time"`
	EndTime           time.Time     `db:"end_time" json:"end_time"`
	ActualStartTime   *time.Time    `db:"actual_start_time" json:"actual_start_time,omitempty"`
	ActualEndTime     *time.Time    `db:"actual_end_time" json:"actual_end_time,omitempty"`
	LocationGPS       string        `db:"location_gps" json:"location_gps"`
	MaxVolunteers     *int          `db:"max_volunteers" json:"max_volunteers,omitempty"`
	CurrentVolunteers int           `db:"current_volunteers" json:"current_volunteers"`
	PointsValue       int           `db:"points_value" json:"points_value"`
	AutoPromote       bool          `db:"auto_promote" json:"auto_promote"`
	CreatedBy         string        `db:"created_by" json:"created_by"`
	CreatedAt         time.Time     `db:"created_at" json:"created_at"`
	UpdatedAt         time.Time     `db:"updated_at" json:"updated_at"`
}

// HasFreeSlot reports whether another occupying registration fits.
func (m *Mission) HasFreeSlot() bool {
	return m.MaxVolunteers == nil || m.CurrentVolunteers < *m.MaxVolunteers
}

// FreeSlots returns the number of open slots, or -1 when unlimited.
func (m *Mission) FreeSlots() int {
	if m.MaxVolunteers == nil {
		return -1
	}
	if free := *m.MaxVolunteers - m.CurrentVolunteers; free > 0 {
		return free
	}
	return 0
}

// MissionSnapshot is the subset of a mission needed to validate a check-in.
// It is safe to cache for a short time.
type MissionSnapshot struct {
	ID          string        `json:"id"`
	Status      MissionStatus `json:"status"`
	StartTime   time.Time     `json:"start_time"`
	EndTime     time.Time     `json:"end_time"`
	LocationGPS string        `json:"location_gps"`
}

// Equal reports whether both snapshots describe the same check-in view.
func (s MissionSnapshot) Equal(o MissionSnapshot) bool {
	return s.ID == o.ID && s.Status == o.Status && s.LocationGPS == o.LocationGPS &&
		s.StartTime.Equal(o.StartTime) && s.EndTime.Equal(o.EndTime)
}

// Snapshot extracts the check-in snapshot of m.
func (m *Mission) Snapshot() MissionSnapshot {
	return MissionSnapshot{
		ID:          m.ID,
		Status:      m.Status,
		StartTime:   m.StartTime,
		EndTime:     m.EndTime,
		LocationGPS: m.LocationGPS,
	}
}

// CounterRepair records a reconciled occupancy counter.
type CounterRepair struct {
	MissionID string `json:"mission_id"`
	Title     string `json:"title"`
	Stored    int    `json:"stored"`
	Actual    int    `json:"actual"`
}
