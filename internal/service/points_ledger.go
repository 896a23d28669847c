package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/jondumad/EcoPulse-Backend/internal/models"
	"github.com/jondumad/EcoPulse-Backend/internal/repository"
	appErrors "github.com/jondumad/EcoPulse-Backend/pkg/errors"
)

// Settlement describes one award of mission points.
type Settlement struct {
	UserID  string
	Mission *models.Mission
	Reason  string
	At      time.Time
}

// SettlementKey is the ledger idempotency key for completing a mission.
func SettlementKey(userID, missionID string) string {
	return fmt.Sprintf("mission_completion:%s:%s", userID, missionID)
}

// Settle credits the mission's points inside the caller's unit of work. It
// marks the registration Completed, appends the ledger entry and increments
// the user's total, queueing a points_awarded notification on out. It
// returns false without changing anything when the registration is already
// Completed or the ledger already holds the completion.
func Settle(ctx context.Context, tx repository.Tx, s Settlement, out *models.Outbox) (bool, error) {
	missionID := s.Mission.ID
	reg, err := tx.FindRegistration(ctx, s.UserID, missionID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, appErrors.Clone(appErrors.ErrNotRegistered, "user has no registration to settle")
		}
		return false, appErrors.Internal(err, "failed to load registration")
	}

	switch reg.Status {
	case models.RegistrationStatusCompleted:
		return false, nil
	case models.RegistrationStatusRegistered, models.RegistrationStatusCheckedIn:
	default:
		return false, appErrors.WithDetails(appErrors.ErrInvalidState, "registration cannot be settled",
			map[string]interface{}{"registration_status": reg.Status})
	}

	points := s.Mission.PointsValue
	txn := &models.PointTransaction{
		ID:             uuid.NewString(),
		UserID:         s.UserID,
		MissionID:      &missionID,
		Amount:         points,
		Reason:         s.Reason,
		Description:    fmt.Sprintf("Completed mission: %s", s.Mission.Title),
		IdempotencyKey: SettlementKey(s.UserID, missionID),
		CreatedAt:      s.At,
	}
	inserted, err := tx.InsertPointTransaction(ctx, txn)
	if err != nil {
		return false, appErrors.Internal(err, "failed to append point transaction")
	}
	if !inserted {
		return false, nil
	}

	if err := tx.AddUserPoints(ctx, s.UserID, points); err != nil {
		return false, lookupErr(err, appErrors.ErrNotFound, "failed to credit points")
	}

	reg.Status = models.RegistrationStatusCompleted
	reg.UpdatedAt = s.At
	if err := tx.UpdateRegistration(ctx, reg); err != nil {
		return false, appErrors.Internal(err, "failed to complete registration")
	}

	out.Notify(models.Notification{
		UserID:    s.UserID,
		Title:     "Points Awarded!",
		Message:   fmt.Sprintf("You earned %d points for completing %s", points, s.Mission.Title),
		Type:      models.NotificationPointsAwarded,
		RelatedID: missionID,
	})
	return true, nil
}
