package models

import "time"

// Reason codes recorded on point transactions.
const (
	ReasonMissionCompleted       = "mission_completed"
	ReasonMissionCompletedManual = "mission_completed_manual"
)

// PointTransaction is an immutable ledger entry.
type PointTransaction struct {
	ID             string    `db:"id" json:"id"`
	UserID         string    `db:"user_id" json:"user_id"`
	MissionID      *string   `db:"mission_id" json:"mission_id,omitempty"`
	Amount         int       `db:"amount" json:"amount"`
	Reason         string    `db:"reason" json:"reason"`
	Description    string    `db:"description" json:"description"`
	IdempotencyKey string    `db:"idempotency_key" json:"-"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
}

// OverrideAction names a coordinator manual action.
type OverrideAction string

const (
	OverrideActionCheckIn  OverrideAction = "check_in"
	OverrideActionComplete OverrideAction = "complete"
)

// ManualOverrideLog is an append-only audit row for coordinator overrides.
type ManualOverrideLog struct {
	ID            string         `db:"id" json:"id"`
	CoordinatorID string         `db:"coordinator_id" json:"coordinator_id"`
	UserID        string         `db:"user_id" json:"user_id"`
	MissionID     string         `db:"mission_id" json:"mission_id"`
	ActionType    OverrideAction `db:"action_type" json:"action_type"`
	Reason        string         `db:"reason" json:"reason"`
	CreatedAt     time.Time      `db:"created_at" json:"created_at"`
}
