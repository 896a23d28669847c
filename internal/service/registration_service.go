package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/jondumad/EcoPulse-Backend/internal/events"
	"github.com/jondumad/EcoPulse-Backend/internal/models"
	"github.com/jondumad/EcoPulse-Backend/internal/repository"
	appErrors "github.com/jondumad/EcoPulse-Backend/pkg/errors"
)

const (
	promotionTriggerAuto   = "auto"
	promotionTriggerManual = "manual"
)

// RegistrationService admits volunteers to missions against capacity and
// manages the waitlist.
type RegistrationService struct {
	store   txRunner
	emitter events.Emitter
	metrics *MetricsService
	logger  *zap.Logger
	now     func() time.Time
}

// NewRegistrationService constructs a RegistrationService. now defaults to
// time.Now.
func NewRegistrationService(store txRunner, emitter events.Emitter, metrics *MetricsService, logger *zap.Logger, now func() time.Time) *RegistrationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RegistrationService{
		store:   store,
		emitter: emitterOrNop(emitter),
		metrics: metrics,
		logger:  logger,
		now:     clockOrNow(now),
	}
}

// Register admits userID to missionID, or waitlists them when the mission is
// full. The capacity check and the counter update share one atomic unit.
func (s *RegistrationService) Register(ctx context.Context, userID, missionID string) (*models.RegistrationResult, error) {
	now := s.now().UTC()
	out := &models.Outbox{}
	var result models.RegistrationResult

	err := s.store.RunInTx(ctx, func(tx repository.Tx) error {
		mission, err := tx.LockMission(ctx, missionID)
		if err != nil {
			return lookupErr(err, appErrors.ErrMissionNotFound, "failed to load mission")
		}
		if !mission.Status.AcceptsRegistrations() {
			return appErrors.WithDetails(appErrors.ErrMissionNotOpen, "",
				map[string]interface{}{"mission_status": mission.Status})
		}

		reg, err := tx.FindRegistration(ctx, userID, missionID)
		if err != nil && !errors.Is(err, sql.ErrNoRows) {
			return appErrors.Internal(err, "failed to load registration")
		}
		if reg != nil && reg.Status != models.RegistrationStatusCancelled {
			return appErrors.WithDetails(appErrors.ErrAlreadyRegistered, "",
				map[string]interface{}{"registration_status": reg.Status})
		}

		admit := mission.HasFreeSlot()
		status := models.RegistrationStatusWaitlisted
		if admit {
			status = models.RegistrationStatusRegistered
		}

		if reg != nil {
			reg.Status = status
			reg.IsPriority = false
			reg.UpdatedAt = now
			if err := tx.UpdateRegistration(ctx, reg); err != nil {
				return appErrors.Internal(err, "failed to reactivate registration")
			}
			result.Reactivated = true
		} else {
			reg = &models.Registration{
				ID:        uuid.NewString(),
				UserID:    userID,
				MissionID: missionID,
				Status:    status,
				CreatedAt: now,
				UpdatedAt: now,
			}
			if err := tx.CreateRegistration(ctx, reg); err != nil {
				if errors.Is(err, repository.ErrDuplicate) {
					return appErrors.Clone(appErrors.ErrAlreadyRegistered, "")
				}
				return appErrors.Internal(err, "failed to create registration")
			}
		}

		if admit {
			if err := tx.SetMissionVolunteers(ctx, missionID, mission.CurrentVolunteers+1, now); err != nil {
				return appErrors.Internal(err, "failed to update mission occupancy")
			}
		}

		result.Registration = reg
		result.Waitlisted = !admit
		out.Broadcast(models.DomainEvent{
			Type:       models.EventRegistration,
			MissionID:  missionID,
			Payload:    reg,
			OccurredAt: now,
		})
		return nil
	})
	if err != nil {
		return nil, txErr(err, "failed to register")
	}

	s.metrics.RecordRegistration(result.Waitlisted)
	s.logger.Info("registration recorded",
		zap.String("mission_id", missionID),
		zap.String("user_id", userID),
		zap.String("status", string(result.Registration.Status)),
		zap.Bool("reactivated", result.Reactivated),
	)
	s.emitter.Emit(ctx, out)
	return &result, nil
}

// Cancel withdraws userID from missionID. Freeing an occupied slot on an
// auto-promote mission promotes from the waitlist in the same unit.
func (s *RegistrationService) Cancel(ctx context.Context, userID, missionID string) (*models.CancellationResult, error) {
	now := s.now().UTC()
	out := &models.Outbox{}
	var result models.CancellationResult

	err := s.store.RunInTx(ctx, func(tx repository.Tx) error {
		mission, err := tx.LockMission(ctx, missionID)
		if err != nil {
			return lookupErr(err, appErrors.ErrMissionNotFound, "failed to load mission")
		}

		reg, err := tx.FindRegistration(ctx, userID, missionID)
		if err != nil {
			return lookupErr(err, appErrors.ErrNotRegistered, "failed to load registration")
		}
		switch reg.Status {
		case models.RegistrationStatusCancelled:
			return appErrors.Clone(appErrors.ErrNotRegistered, "")
		case models.RegistrationStatusCompleted:
			return appErrors.Clone(appErrors.ErrInvalidState, "completed registrations cannot be cancelled")
		case models.RegistrationStatusCheckedIn:
			att, err := tx.FindAttendance(ctx, userID, missionID)
			if err != nil && !errors.Is(err, sql.ErrNoRows) {
				return appErrors.Internal(err, "failed to load attendance")
			}
			if att != nil && att.Open() {
				return appErrors.Clone(appErrors.ErrInvalidState, "check out before cancelling")
			}
		}

		freed := reg.Status.Occupying()
		reg.Status = models.RegistrationStatusCancelled
		reg.UpdatedAt = now
		if err := tx.UpdateRegistration(ctx, reg); err != nil {
			return appErrors.Internal(err, "failed to cancel registration")
		}
		result.Registration = reg
		out.Broadcast(models.DomainEvent{
			Type:       models.EventCancellation,
			MissionID:  missionID,
			Payload:    reg,
			OccurredAt: now,
		})

		if !freed {
			return nil
		}
		if mission.CurrentVolunteers <= 0 {
			return appErrors.Internal(fmt.Errorf("mission %s occupancy would go negative", missionID), "occupancy counter out of sync")
		}
		mission.CurrentVolunteers--
		if err := tx.SetMissionVolunteers(ctx, missionID, mission.CurrentVolunteers, now); err != nil {
			return appErrors.Internal(err, "failed to update mission occupancy")
		}

		if mission.AutoPromote {
			promoted, err := s.promoteRanked(ctx, tx, mission, now, out)
			if err != nil {
				return err
			}
			result.Promoted = promoted
		}
		return nil
	})
	if err != nil {
		return nil, txErr(err, "failed to cancel registration")
	}

	s.metrics.RecordCancellation()
	s.metrics.RecordPromotions(promotionTriggerAuto, len(result.Promoted))
	s.logger.Info("registration cancelled",
		zap.String("mission_id", missionID),
		zap.String("user_id", userID),
		zap.Int("promoted", len(result.Promoted)),
	)
	s.emitter.Emit(ctx, out)
	return &result, nil
}

// promoteRanked fills every free slot of a locked mission from its waitlist.
func (s *RegistrationService) promoteRanked(ctx context.Context, tx repository.Tx, mission *models.Mission, now time.Time, out *models.Outbox) ([]*models.Registration, error) {
	candidates, err := tx.ListWaitlistCandidates(ctx, mission.ID)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to load waitlist")
	}
	if len(candidates) == 0 {
		return nil, nil
	}

	free := mission.FreeSlots()
	if free < 0 {
		free = len(candidates)
	}

	var promoted []*models.Registration
	for _, c := range RankWaitlist(candidates, free, now) {
		reg, err := tx.FindRegistration(ctx, c.UserID, mission.ID)
		if err != nil {
			return nil, appErrors.Internal(err, "failed to load waitlisted registration")
		}
		if err := s.admit(ctx, tx, mission, reg, now, out); err != nil {
			return nil, err
		}
		promoted = append(promoted, reg)
	}
	if err := tx.SetMissionVolunteers(ctx, mission.ID, mission.CurrentVolunteers, now); err != nil {
		return nil, appErrors.Internal(err, "failed to update mission occupancy")
	}
	return promoted, nil
}

// admit moves a waitlisted registration into a slot and bumps the in-memory
// counter of mission. The caller persists the counter.
func (s *RegistrationService) admit(ctx context.Context, tx repository.Tx, mission *models.Mission, reg *models.Registration, now time.Time, out *models.Outbox) error {
	reg.Status = models.RegistrationStatusRegistered
	reg.IsPriority = false
	reg.UpdatedAt = now
	if err := tx.UpdateRegistration(ctx, reg); err != nil {
		return appErrors.Internal(err, "failed to promote registration")
	}
	mission.CurrentVolunteers++

	out.Notify(models.Notification{
		UserID:    reg.UserID,
		Title:     "You're in!",
		Message:   fmt.Sprintf("A spot opened up and you are now registered for %s", mission.Title),
		Type:      models.NotificationPromoted,
		RelatedID: mission.ID,
	})
	out.Broadcast(models.DomainEvent{
		Type:       models.EventPromotion,
		MissionID:  mission.ID,
		Payload:    reg,
		OccurredAt: now,
	})
	return nil
}

// lockRegistration resolves a registration id and locks its mission and then
// the registration itself.
func lockRegistration(ctx context.Context, tx repository.Tx, registrationID string) (*models.Mission, *models.Registration, error) {
	ref, err := tx.GetRegistration(ctx, registrationID)
	if err != nil {
		return nil, nil, lookupErr(err, appErrors.ErrRegistrationNotFound, "failed to load registration")
	}
	mission, err := tx.LockMission(ctx, ref.MissionID)
	if err != nil {
		return nil, nil, lookupErr(err, appErrors.ErrMissionNotFound, "failed to load mission")
	}
	reg, err := tx.FindRegistration(ctx, ref.UserID, ref.MissionID)
	if err != nil {
		return nil, nil, lookupErr(err, appErrors.ErrRegistrationNotFound, "failed to load registration")
	}
	return mission, reg, nil
}

// Promote moves a waitlisted registration into a free slot on behalf of a
// coordinator.
func (s *RegistrationService) Promote(ctx context.Context, registrationID string, actor models.Actor) (*models.Registration, error) {
	now := s.now().UTC()
	out := &models.Outbox{}
	var promoted *models.Registration

	err := s.store.RunInTx(ctx, func(tx repository.Tx) error {
		mission, reg, err := lockRegistration(ctx, tx, registrationID)
		if err != nil {
			return err
		}
		if err := requireManager(ctx, tx, actor, mission); err != nil {
			return err
		}
		if reg.Status != models.RegistrationStatusWaitlisted {
			return appErrors.WithDetails(appErrors.ErrNotWaitlisted, "",
				map[string]interface{}{"registration_status": reg.Status})
		}
		if !mission.HasFreeSlot() {
			return appErrors.WithDetails(appErrors.ErrMissionFull, "",
				map[string]interface{}{"max_volunteers": *mission.MaxVolunteers, "current_volunteers": mission.CurrentVolunteers})
		}
		if err := s.admit(ctx, tx, mission, reg, now, out); err != nil {
			return err
		}
		if err := tx.SetMissionVolunteers(ctx, mission.ID, mission.CurrentVolunteers, now); err != nil {
			return appErrors.Internal(err, "failed to update mission occupancy")
		}
		promoted = reg
		return nil
	})
	if err != nil {
		return nil, txErr(err, "failed to promote registration")
	}

	s.metrics.RecordPromotions(promotionTriggerManual, 1)
	s.logger.Info("registration promoted",
		zap.String("registration_id", registrationID),
		zap.String("actor_id", actor.UserID),
	)
	s.emitter.Emit(ctx, out)
	return promoted, nil
}

// SetPriority flags or unflags a waitlisted registration.
func (s *RegistrationService) SetPriority(ctx context.Context, registrationID string, priority bool, actor models.Actor) (*models.Registration, error) {
	now := s.now().UTC()
	var updated *models.Registration

	err := s.store.RunInTx(ctx, func(tx repository.Tx) error {
		mission, reg, err := lockRegistration(ctx, tx, registrationID)
		if err != nil {
			return err
		}
		if err := requireManager(ctx, tx, actor, mission); err != nil {
			return err
		}
		if reg.Status != models.RegistrationStatusWaitlisted {
			return appErrors.WithDetails(appErrors.ErrInvalidState, "priority can only be set while waitlisted",
				map[string]interface{}{"registration_status": reg.Status})
		}
		reg.IsPriority = priority
		reg.UpdatedAt = now
		if err := tx.UpdateRegistration(ctx, reg); err != nil {
			return appErrors.Internal(err, "failed to update priority")
		}
		updated = reg
		return nil
	})
	if err != nil {
		return nil, txErr(err, "failed to set priority")
	}
	return updated, nil
}

// ListRegistrations returns a mission's registrations. With no statuses it
// returns the occupying ones.
func (s *RegistrationService) ListRegistrations(ctx context.Context, missionID string, statuses []models.RegistrationStatus, actor models.Actor) ([]models.RegistrationDetail, error) {
	for _, st := range statuses {
		if !st.Valid() {
			return nil, appErrors.WithDetails(appErrors.ErrValidation, "unknown registration status",
				map[string]interface{}{"status": st})
		}
	}
	if len(statuses) == 0 {
		statuses = models.OccupyingStatuses
	}

	var regs []models.RegistrationDetail
	err := s.store.RunInTx(ctx, func(tx repository.Tx) error {
		mission, err := tx.GetMission(ctx, missionID)
		if err != nil {
			return lookupErr(err, appErrors.ErrMissionNotFound, "failed to load mission")
		}
		if err := requireManager(ctx, tx, actor, mission); err != nil {
			return err
		}
		regs, err = tx.ListRegistrations(ctx, missionID, statuses)
		if err != nil {
			return appErrors.Internal(err, "failed to list registrations")
		}
		return nil
	})
	if err != nil {
		return nil, txErr(err, "failed to list registrations")
	}
	return regs, nil
}

// RankedWaitlist previews the promotion order of a mission's full waitlist
// without changing anything.
func (s *RegistrationService) RankedWaitlist(ctx context.Context, missionID string, actor models.Actor) ([]models.WaitlistCandidate, error) {
	var ranked []models.WaitlistCandidate
	err := s.store.RunInTx(ctx, func(tx repository.Tx) error {
		mission, err := tx.GetMission(ctx, missionID)
		if err != nil {
			return lookupErr(err, appErrors.ErrMissionNotFound, "failed to load mission")
		}
		if err := requireManager(ctx, tx, actor, mission); err != nil {
			return err
		}
		candidates, err := tx.ListWaitlistCandidates(ctx, missionID)
		if err != nil {
			return appErrors.Internal(err, "failed to load waitlist")
		}
		ranked = RankWaitlist(candidates, -1, s.now().UTC())
		return nil
	})
	if err != nil {
		return nil, txErr(err, "failed to rank waitlist")
	}
	return ranked, nil
}

// ReconcileCounts recomputes every mission's occupancy from its
// registrations and repairs drifted counters, one mission per unit.
func (s *RegistrationService) ReconcileCounts(ctx context.Context) ([]models.CounterRepair, error) {
	var ids []string
	err := s.store.RunInTx(ctx, func(tx repository.Tx) error {
		var err error
		ids, err = tx.ListMissionIDs(ctx)
		return err
	})
	if err != nil {
		return nil, txErr(err, "failed to list missions")
	}

	var repairs []models.CounterRepair
	for _, id := range ids {
		var repair *models.CounterRepair
		err := s.store.RunInTx(ctx, func(tx repository.Tx) error {
			mission, err := tx.LockMission(ctx, id)
			if err != nil {
				if errors.Is(err, sql.ErrNoRows) {
					return nil
				}
				return err
			}
			actual, err := tx.CountOccupying(ctx, id)
			if err != nil {
				return err
			}
			if actual == mission.CurrentVolunteers {
				return nil
			}
			if err := tx.SetMissionVolunteers(ctx, id, actual, s.now().UTC()); err != nil {
				return err
			}
			repair = &models.CounterRepair{MissionID: id, Title: mission.Title, Stored: mission.CurrentVolunteers, Actual: actual}
			return nil
		})
		if err != nil {
			return repairs, txErr(err, fmt.Sprintf("failed to reconcile mission %s", id))
		}
		if repair != nil {
			s.logger.Warn("mission occupancy repaired",
				zap.String("mission_id", repair.MissionID),
				zap.Int("stored", repair.Stored),
				zap.Int("actual", repair.Actual),
			)
			repairs = append(repairs, *repair)
		}
	}
	return repairs, nil
}
