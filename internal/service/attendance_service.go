package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/jondumad/EcoPulse-Backend/internal/events"
	"github.com/jondumad/EcoPulse-Backend/internal/models"
	"github.com/jondumad/EcoPulse-Backend/internal/repository"
	appErrors "github.com/jondumad/EcoPulse-Backend/pkg/errors"
	"github.com/jondumad/EcoPulse-Backend/pkg/geofence"
	"github.com/jondumad/EcoPulse-Backend/pkg/qrtoken"
)

const checkInResultSuccess = "success"

// AttendanceConfig tunes check-in admission.
type AttendanceConfig struct {
	GeofenceRadius      float64
	EarlyWindow         time.Duration
	RecentActivityLimit int
}

func (c AttendanceConfig) withDefaults() AttendanceConfig {
	if c.GeofenceRadius <= 0 {
		c.GeofenceRadius = geofence.DefaultRadiusMeters
	}
	if c.EarlyWindow <= 0 {
		c.EarlyWindow = 30 * time.Minute
	}
	if c.RecentActivityLimit <= 0 {
		c.RecentActivityLimit = 10
	}
	return c
}

// AttendanceService drives attendance from check-in through coordinator
// review and point settlement.
type AttendanceService struct {
	store     txRunner
	tokens    *qrtoken.Service
	cache     *CacheService
	emitter   events.Emitter
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
	cfg       AttendanceConfig
	now       func() time.Time
}

// NewAttendanceService constructs the attendance service.
func NewAttendanceService(store txRunner, tokens *qrtoken.Service, cache *CacheService, emitter events.Emitter, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger, cfg AttendanceConfig, now func() time.Time) *AttendanceService {
	if validate == nil {
		validate = newValidator()
	} else {
		registerLifecycleValidations(validate)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AttendanceService{
		store:     store,
		tokens:    tokens,
		cache:     cache,
		emitter:   emitterOrNop(emitter),
		metrics:   metrics,
		validator: validate,
		logger:    logger,
		cfg:       cfg.withDefaults(),
		now:       clockOrNow(now),
	}
}

// IssueCheckInToken signs a short-lived QR token for missionID. Only the
// mission's coordinators may issue one.
func (s *AttendanceService) IssueCheckInToken(ctx context.Context, missionID string, actor models.Actor) (*qrtoken.Issued, error) {
	err := s.store.RunInTx(ctx, func(tx repository.Tx) error {
		mission, err := tx.GetMission(ctx, missionID)
		if err != nil {
			return lookupErr(err, appErrors.ErrMissionNotFound, "failed to load mission")
		}
		return requireManager(ctx, tx, actor, mission)
	})
	if err != nil {
		return nil, txErr(err, "failed to issue check-in token")
	}
	return s.tokens.Issue(missionID, actor.UserID)
}

// missionSnapshot loads the check-in view of a mission, from cache when
// possible.
func (s *AttendanceService) missionSnapshot(ctx context.Context, missionID string) (*models.MissionSnapshot, error) {
	if snap, ok := s.cache.MissionSnapshot(ctx, missionID); ok {
		return snap, nil
	}
	var snap models.MissionSnapshot
	err := s.store.RunInTx(ctx, func(tx repository.Tx) error {
		mission, err := tx.GetMission(ctx, missionID)
		if err != nil {
			return lookupErr(err, appErrors.ErrMissionNotFound, "failed to load mission")
		}
		snap = mission.Snapshot()
		return nil
	})
	if err != nil {
		return nil, txErr(err, "failed to load mission")
	}
	s.cache.StoreMissionSnapshot(ctx, snap)
	return &snap, nil
}

// ValidateLocation reports whether gps lies inside the mission geofence
// without recording anything.
func (s *AttendanceService) ValidateLocation(ctx context.Context, req models.ValidateLocationRequest) (*geofence.Result, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationErr(err, "invalid location payload")
	}
	snap, err := s.missionSnapshot(ctx, req.MissionID)
	if err != nil {
		return nil, err
	}
	result, err := geofence.Validate(req.GPS, snap.LocationGPS, s.cfg.GeofenceRadius)
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// CheckIn admits userID to a mission after the token, geofence and time
// window checks. The checks first run against the cached mission snapshot;
// inside the atomic unit the committed mission is compared with it and, if
// they differ, the cache entry is dropped and the checks run again.
func (s *AttendanceService) CheckIn(ctx context.Context, userID string, req models.CheckInRequest) (*models.Attendance, error) {
	att, err := s.checkIn(ctx, userID, req)
	if err != nil {
		s.metrics.RecordCheckIn(appErrors.FromError(err).Code)
		return nil, err
	}
	s.metrics.RecordCheckIn(checkInResultSuccess)
	return att, nil
}

func (s *AttendanceService) checkIn(ctx context.Context, userID string, req models.CheckInRequest) (*models.Attendance, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationErr(err, "invalid check-in payload")
	}
	claims, err := s.tokens.Verify(req.Token)
	if err != nil {
		return nil, err
	}
	if claims.MissionID != req.MissionID {
		return nil, appErrors.Clone(appErrors.ErrWrongMission, "")
	}

	snap, err := s.missionSnapshot(ctx, req.MissionID)
	if err != nil {
		return nil, err
	}
	if err := s.checkLocation(req.GPS, snap.LocationGPS); err != nil {
		return nil, err
	}
	now := s.now().UTC()
	if err := s.checkWindow(snap, now); err != nil {
		return nil, err
	}

	out := &models.Outbox{}
	var result *models.Attendance
	err = s.store.RunInTx(ctx, func(tx repository.Tx) error {
		if err := s.recheckSnapshot(ctx, tx, snap, req.GPS, now); err != nil {
			return err
		}
		reg, err := tx.FindRegistration(ctx, userID, req.MissionID)
		if err != nil {
			return lookupErr(err, appErrors.ErrNotRegistered, "failed to load registration")
		}
		if err := requireCheckInable(reg); err != nil {
			return err
		}
		gps := req.GPS
		att, existing, err := s.openAttendance(ctx, tx, reg, now, func(a *models.Attendance) {
			a.GPSProof = &gps
			a.OverrideReason = nil
		})
		if err != nil {
			return err
		}
		result = att
		if existing {
			return nil
		}
		out.Broadcast(models.DomainEvent{
			Type:       models.EventCheckIn,
			MissionID:  req.MissionID,
			Payload:    att,
			OccurredAt: now,
		})
		return nil
	})
	if err != nil {
		return nil, txErr(err, "failed to check in")
	}

	s.logger.Info("volunteer checked in",
		zap.String("mission_id", req.MissionID),
		zap.String("user_id", userID),
		zap.String("attendance_id", result.ID),
	)
	s.emitter.Emit(ctx, out)
	return result, nil
}

// recheckSnapshot validates against the committed mission when the snapshot
// the pre-checks used is stale.
func (s *AttendanceService) recheckSnapshot(ctx context.Context, tx repository.Tx, snap *models.MissionSnapshot, userGPS string, now time.Time) error {
	mission, err := tx.GetMission(ctx, snap.ID)
	if err != nil {
		return lookupErr(err, appErrors.ErrMissionNotFound, "failed to load mission")
	}
	fresh := mission.Snapshot()
	if fresh.Equal(*snap) {
		return nil
	}
	s.logger.Info("stale mission snapshot", zap.String("mission_id", snap.ID))
	s.cache.InvalidateMission(ctx, snap.ID)
	if err := s.checkLocation(userGPS, fresh.LocationGPS); err != nil {
		return err
	}
	return s.checkWindow(&fresh, now)
}

func (s *AttendanceService) checkLocation(userGPS, missionGPS string) error {
	result, err := geofence.Validate(userGPS, missionGPS, s.cfg.GeofenceRadius)
	if err != nil {
		return err
	}
	if !result.InRange {
		return appErrors.WithDetails(appErrors.ErrOutOfRange,
			fmt.Sprintf("you are %dm away from the mission location", result.DistanceMeters),
			map[string]interface{}{"distance_meters": result.DistanceMeters, "radius_meters": s.cfg.GeofenceRadius})
	}
	return nil
}

func (s *AttendanceService) checkWindow(snap *models.MissionSnapshot, now time.Time) error {
	earliest := snap.StartTime.Add(-s.cfg.EarlyWindow)
	if now.Before(earliest) {
		return appErrors.WithDetails(appErrors.ErrTooEarly,
			fmt.Sprintf("check-in opens at %s", earliest.UTC().Format(time.RFC3339)),
			map[string]interface{}{"earliest_check_in": earliest.UTC()})
	}
	if now.After(snap.EndTime) {
		return appErrors.WithDetails(appErrors.ErrMissionEnded, "",
			map[string]interface{}{"end_time": snap.EndTime.UTC()})
	}
	return nil
}

func requireCheckInable(reg *models.Registration) error {
	switch reg.Status {
	case models.RegistrationStatusRegistered, models.RegistrationStatusCheckedIn:
		return nil
	case models.RegistrationStatusCancelled:
		return appErrors.Clone(appErrors.ErrNotRegistered, "")
	default:
		return appErrors.WithDetails(appErrors.ErrInvalidState, "registration cannot check in",
			map[string]interface{}{"registration_status": reg.Status})
	}
}

// openAttendance creates or reactivates the Pending attendance of reg and
// marks the registration CheckedIn. An attendance already open on the same
// mission is returned unchanged with existing set.
func (s *AttendanceService) openAttendance(ctx context.Context, tx repository.Tx, reg *models.Registration, now time.Time, stamp func(*models.Attendance)) (*models.Attendance, bool, error) {
	att, err := tx.FindAttendance(ctx, reg.UserID, reg.MissionID)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, false, appErrors.Internal(err, "failed to load attendance")
	}
	if att != nil && att.Open() {
		return att, true, nil
	}

	open, err := tx.FindOpenAttendance(ctx, reg.UserID)
	switch {
	case err == nil:
		return nil, false, appErrors.WithDetails(appErrors.ErrAlreadyCheckedInElsewhere, "",
			map[string]interface{}{"mission_id": open.MissionID})
	case !errors.Is(err, sql.ErrNoRows):
		return nil, false, appErrors.Internal(err, "failed to load open attendance")
	}

	created := att == nil
	if created {
		att = &models.Attendance{
			ID:        uuid.NewString(),
			UserID:    reg.UserID,
			MissionID: reg.MissionID,
			CreatedAt: now,
		}
	}
	checkIn := now
	att.CheckInTime = &checkIn
	att.CheckOutTime = nil
	att.TotalHours = nil
	att.Status = models.AttendanceStatusPending
	att.VerifiedBy = nil
	att.VerifiedAt = nil
	att.UpdatedAt = now
	stamp(att)

	if created {
		err = tx.CreateAttendance(ctx, att)
	} else {
		err = tx.UpdateAttendance(ctx, att)
	}
	if err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, false, appErrors.Clone(appErrors.ErrAlreadyCheckedInElsewhere, "")
		}
		return nil, false, appErrors.Internal(err, "failed to record attendance")
	}

	if reg.Status != models.RegistrationStatusCheckedIn {
		reg.Status = models.RegistrationStatusCheckedIn
		reg.UpdatedAt = now
		if err := tx.UpdateRegistration(ctx, reg); err != nil {
			return nil, false, appErrors.Internal(err, "failed to update registration")
		}
	}
	return att, false, nil
}

// CheckOut closes the caller's open attendance on missionID.
func (s *AttendanceService) CheckOut(ctx context.Context, userID, missionID string) (*models.Attendance, error) {
	now := s.now().UTC()
	out := &models.Outbox{}
	var result *models.Attendance

	err := s.store.RunInTx(ctx, func(tx repository.Tx) error {
		att, err := tx.FindAttendance(ctx, userID, missionID)
		if err != nil {
			return lookupErr(err, appErrors.ErrNoActiveCheckIn, "failed to load attendance")
		}
		if att.CheckInTime == nil {
			return appErrors.Clone(appErrors.ErrNoActiveCheckIn, "")
		}
		if att.CheckOutTime != nil {
			return appErrors.WithDetails(appErrors.ErrAlreadyCheckedOut, "",
				map[string]interface{}{"check_out_time": att.CheckOutTime.UTC()})
		}
		checkOut := now
		hours := roundHours(checkOut.Sub(*att.CheckInTime))
		att.CheckOutTime = &checkOut
		att.TotalHours = &hours
		att.UpdatedAt = now
		if err := tx.UpdateAttendance(ctx, att); err != nil {
			return appErrors.Internal(err, "failed to record check-out")
		}
		result = att
		out.Broadcast(models.DomainEvent{
			Type:       models.EventCheckOut,
			MissionID:  missionID,
			Payload:    att,
			OccurredAt: now,
		})
		return nil
	})
	if err != nil {
		return nil, txErr(err, "failed to check out")
	}

	s.logger.Info("volunteer checked out",
		zap.String("mission_id", missionID),
		zap.String("user_id", userID),
		zap.Float64("total_hours", *result.TotalHours),
	)
	s.emitter.Emit(ctx, out)
	return result, nil
}

// Review records a coordinator's decision. Verification settles the
// mission's points in the same unit as the status write. Repeating a
// decision is a no-op.
func (s *AttendanceService) Review(ctx context.Context, attendanceID string, decision models.AttendanceStatus, actor models.Actor) (*models.Attendance, error) {
	if err := s.validator.Struct(models.ReviewRequest{Status: decision}); err != nil {
		return nil, validationErr(err, "decision must be Verified or Rejected")
	}

	now := s.now().UTC()
	out := &models.Outbox{}
	var (
		result  *models.Attendance
		mission *models.Mission
		settled bool
		noop    bool
	)

	err := s.store.RunInTx(ctx, func(tx repository.Tx) error {
		ref, err := tx.GetAttendance(ctx, attendanceID)
		if err != nil {
			return lookupErr(err, appErrors.ErrAttendanceNotFound, "failed to load attendance")
		}
		mission, err = tx.GetMission(ctx, ref.MissionID)
		if err != nil {
			return lookupErr(err, appErrors.ErrMissionNotFound, "failed to load mission")
		}
		if err := requireManager(ctx, tx, actor, mission); err != nil {
			return err
		}
		if _, err := tx.FindRegistration(ctx, ref.UserID, ref.MissionID); err != nil && !errors.Is(err, sql.ErrNoRows) {
			return appErrors.Internal(err, "failed to load registration")
		}
		att, err := tx.FindAttendance(ctx, ref.UserID, ref.MissionID)
		if err != nil {
			return lookupErr(err, appErrors.ErrAttendanceNotFound, "failed to load attendance")
		}

		if att.Status.Terminal() {
			if att.Status != decision {
				return appErrors.WithDetails(appErrors.ErrInvalidState, "attendance has already been reviewed",
					map[string]interface{}{"attendance_status": att.Status})
			}
			result = att
			noop = true
			return nil
		}

		reviewer := actor.UserID
		verifiedAt := now
		att.Status = decision
		att.VerifiedBy = &reviewer
		att.VerifiedAt = &verifiedAt
		att.UpdatedAt = now
		if err := tx.UpdateAttendance(ctx, att); err != nil {
			return appErrors.Internal(err, "failed to record review")
		}

		if decision == models.AttendanceStatusVerified {
			settled, err = Settle(ctx, tx, Settlement{
				UserID:  att.UserID,
				Mission: mission,
				Reason:  models.ReasonMissionCompleted,
				At:      now,
			}, out)
			if err != nil {
				return err
			}
		}

		result = att
		out.Notify(models.Notification{
			UserID:    att.UserID,
			Title:     "Attendance reviewed",
			Message:   fmt.Sprintf("Your attendance for %s was %s", mission.Title, decision),
			Type:      models.NotificationReviewed,
			RelatedID: att.ID,
		})
		out.Broadcast(models.DomainEvent{
			Type:       models.EventAttendanceReviewed,
			MissionID:  att.MissionID,
			Payload:    att,
			OccurredAt: now,
		})
		return nil
	})
	if err != nil {
		return nil, txErr(err, "failed to review attendance")
	}
	if noop {
		return result, nil
	}

	if decision == models.AttendanceStatusVerified {
		s.metrics.RecordSettlement(mission.PointsValue, settled)
	}
	s.logger.Info("attendance reviewed",
		zap.String("attendance_id", attendanceID),
		zap.String("decision", string(decision)),
		zap.String("reviewer_id", actor.UserID),
		zap.Bool("settled", settled),
	)
	s.emitter.Emit(ctx, out)
	return result, nil
}

func overrideLog(actor models.Actor, userID, missionID string, action models.OverrideAction, reason string, at time.Time) *models.ManualOverrideLog {
	return &models.ManualOverrideLog{
		ID:            uuid.NewString(),
		CoordinatorID: actor.UserID,
		UserID:        userID,
		MissionID:     missionID,
		ActionType:    action,
		Reason:        reason,
		CreatedAt:     at,
	}
}

// ManualCheckIn checks userID in on a coordinator's word, skipping the token,
// geofence and time window. Double booking is still enforced.
func (s *AttendanceService) ManualCheckIn(ctx context.Context, missionID, userID string, req models.ManualOverrideRequest, actor models.Actor) (*models.Attendance, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationErr(err, "a reason is required for manual check-in")
	}

	now := s.now().UTC()
	out := &models.Outbox{}
	var result *models.Attendance

	err := s.store.RunInTx(ctx, func(tx repository.Tx) error {
		mission, err := tx.GetMission(ctx, missionID)
		if err != nil {
			return lookupErr(err, appErrors.ErrMissionNotFound, "failed to load mission")
		}
		if err := requireManager(ctx, tx, actor, mission); err != nil {
			return err
		}
		reg, err := tx.FindRegistration(ctx, userID, missionID)
		if err != nil {
			return lookupErr(err, appErrors.ErrNotRegistered, "failed to load registration")
		}
		if err := requireCheckInable(reg); err != nil {
			return err
		}

		reason := req.Reason
		att, existing, err := s.openAttendance(ctx, tx, reg, now, func(a *models.Attendance) {
			proof := models.GPSProofManualOverride
			a.GPSProof = &proof
			a.OverrideReason = &reason
		})
		if err != nil {
			return err
		}
		if err := tx.InsertOverrideLog(ctx, overrideLog(actor, userID, missionID, models.OverrideActionCheckIn, req.Reason, now)); err != nil {
			return appErrors.Internal(err, "failed to write override log")
		}
		result = att
		if !existing {
			out.Broadcast(models.DomainEvent{
				Type:       models.EventCheckIn,
				MissionID:  missionID,
				Payload:    att,
				OccurredAt: now,
			})
		}
		return nil
	})
	if err != nil {
		return nil, txErr(err, "failed to check in manually")
	}

	s.logger.Info("manual check-in recorded",
		zap.String("mission_id", missionID),
		zap.String("user_id", userID),
		zap.String("coordinator_id", actor.UserID),
	)
	s.emitter.Emit(ctx, out)
	return result, nil
}

// ManualComplete closes and verifies userID's attendance and settles the
// mission's points. An already completed registration is left untouched but
// the override is still logged.
func (s *AttendanceService) ManualComplete(ctx context.Context, missionID, userID string, req models.ManualOverrideRequest, actor models.Actor) (*models.ManualCompletionResult, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationErr(err, "a reason is required for manual completion")
	}

	now := s.now().UTC()
	out := &models.Outbox{}
	var (
		result  models.ManualCompletionResult
		mission *models.Mission
	)

	err := s.store.RunInTx(ctx, func(tx repository.Tx) error {
		var err error
		mission, err = tx.GetMission(ctx, missionID)
		if err != nil {
			return lookupErr(err, appErrors.ErrMissionNotFound, "failed to load mission")
		}
		if err := requireManager(ctx, tx, actor, mission); err != nil {
			return err
		}
		reg, err := tx.FindRegistration(ctx, userID, missionID)
		if err != nil {
			return lookupErr(err, appErrors.ErrNotRegistered, "failed to load registration")
		}
		att, err := tx.FindAttendance(ctx, userID, missionID)
		if err != nil && !errors.Is(err, sql.ErrNoRows) {
			return appErrors.Internal(err, "failed to load attendance")
		}

		if reg.Status != models.RegistrationStatusCompleted {
			att, err = s.completeAttendance(ctx, tx, att, userID, missionID, req.Reason, actor, now)
			if err != nil {
				return err
			}
			result.Settled, err = Settle(ctx, tx, Settlement{
				UserID:  userID,
				Mission: mission,
				Reason:  models.ReasonMissionCompletedManual,
				At:      now,
			}, out)
			if err != nil {
				return err
			}
		}

		if err := tx.InsertOverrideLog(ctx, overrideLog(actor, userID, missionID, models.OverrideActionComplete, req.Reason, now)); err != nil {
			return appErrors.Internal(err, "failed to write override log")
		}
		result.Attendance = att
		if result.Settled {
			out.Broadcast(models.DomainEvent{
				Type:       models.EventAttendanceReviewed,
				MissionID:  missionID,
				Payload:    att,
				OccurredAt: now,
			})
		}
		return nil
	})
	if err != nil {
		return nil, txErr(err, "failed to complete manually")
	}

	s.metrics.RecordSettlement(mission.PointsValue, result.Settled)
	s.logger.Info("manual completion recorded",
		zap.String("mission_id", missionID),
		zap.String("user_id", userID),
		zap.String("coordinator_id", actor.UserID),
		zap.Bool("settled", result.Settled),
	)
	s.emitter.Emit(ctx, out)
	return &result, nil
}

// completeAttendance closes and verifies att, creating it when the user
// never checked in.
func (s *AttendanceService) completeAttendance(ctx context.Context, tx repository.Tx, att *models.Attendance, userID, missionID, reason string, actor models.Actor, now time.Time) (*models.Attendance, error) {
	created := att == nil
	if created {
		checkIn := now
		proof := models.GPSProofManualOverride
		att = &models.Attendance{
			ID:          uuid.NewString(),
			UserID:      userID,
			MissionID:   missionID,
			CheckInTime: &checkIn,
			GPSProof:    &proof,
			CreatedAt:   now,
		}
	}
	if att.CheckInTime == nil {
		checkIn := now
		att.CheckInTime = &checkIn
	}
	if att.CheckOutTime == nil {
		checkOut := now
		hours := roundHours(checkOut.Sub(*att.CheckInTime))
		att.CheckOutTime = &checkOut
		att.TotalHours = &hours
	}
	reviewer := actor.UserID
	verifiedAt := now
	att.Status = models.AttendanceStatusVerified
	att.VerifiedBy = &reviewer
	att.VerifiedAt = &verifiedAt
	att.OverrideReason = &reason
	att.UpdatedAt = now

	var err error
	if created {
		err = tx.CreateAttendance(ctx, att)
	} else {
		err = tx.UpdateAttendance(ctx, att)
	}
	if err != nil {
		return nil, appErrors.Internal(err, "failed to record attendance")
	}
	return att, nil
}

// CurrentAttendance returns userID's open attendance, or nil when the user is
// not checked in anywhere.
func (s *AttendanceService) CurrentAttendance(ctx context.Context, userID string) (*models.Attendance, error) {
	var current *models.Attendance
	err := s.store.RunInTx(ctx, func(tx repository.Tx) error {
		att, err := tx.FindOpenAttendance(ctx, userID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil
			}
			return err
		}
		current = att
		return nil
	})
	if err != nil {
		return nil, txErr(err, "failed to load current attendance")
	}
	return current, nil
}

// PendingVerifications lists checked-out attendances awaiting review on the
// missions actor manages. Admins see every mission.
func (s *AttendanceService) PendingVerifications(ctx context.Context, actor models.Actor) ([]models.AttendanceDetail, error) {
	managerID := actor.UserID
	if actor.Role.IsAdmin() {
		managerID = ""
	}
	var rows []models.AttendanceDetail
	err := s.store.RunInTx(ctx, func(tx repository.Tx) error {
		var err error
		rows, err = tx.ListPendingVerifications(ctx, managerID)
		return err
	})
	if err != nil {
		return nil, txErr(err, "failed to list pending verifications")
	}
	return rows, nil
}

// RecentActivity lists the latest attendance changes.
func (s *AttendanceService) RecentActivity(ctx context.Context, limit int) ([]models.AttendanceDetail, error) {
	if limit <= 0 {
		limit = s.cfg.RecentActivityLimit
	}
	var rows []models.AttendanceDetail
	err := s.store.RunInTx(ctx, func(tx repository.Tx) error {
		var err error
		rows, err = tx.ListRecentAttendance(ctx, limit)
		return err
	})
	if err != nil {
		return nil, txErr(err, "failed to list recent activity")
	}
	return rows, nil
}
