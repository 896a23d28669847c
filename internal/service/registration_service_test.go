package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/jondumad/EcoPulse-Backend/internal/models"
	appErrors "github.com/jondumad/EcoPulse-Backend/pkg/errors"
)

func TestRegisterConcurrentNeverOverbooks(t *testing.T) {
	f := newLifecycleFixture(t)
	const capacity, extra = 3, 4
	f.mission("m1", intPtr(capacity), false)

	users := make([]string, capacity+extra)
	for i := range users {
		users[i] = fmt.Sprintf("u%d", i)
	}
	f.users(users...)

	var g errgroup.Group
	for _, id := range users {
		id := id
		g.Go(func() error {
			_, err := f.regs.Register(context.Background(), id, "m1")
			return err
		})
	}
	require.NoError(t, g.Wait())

	registered, waitlisted := 0, 0
	for _, id := range users {
		switch f.registration(t, id, "m1").Status {
		case models.RegistrationStatusRegistered:
			registered++
		case models.RegistrationStatusWaitlisted:
			waitlisted++
		}
	}
	assert.Equal(t, capacity, registered)
	assert.Equal(t, extra, waitlisted)
	assert.Equal(t, capacity, f.occupancy(t, "m1"))
}

func TestRegisterUnlimitedMission(t *testing.T) {
	f := newLifecycleFixture(t)
	f.mission("m1", nil, false)
	f.users("a", "b")

	for _, id := range []string{"a", "b"} {
		res, err := f.regs.Register(context.Background(), id, "m1")
		require.NoError(t, err)
		assert.False(t, res.Waitlisted)
	}
	assert.Equal(t, 2, f.occupancy(t, "m1"))
	assert.Len(t, f.emitter.events(models.EventRegistration), 2)
}

func TestRegisterRejections(t *testing.T) {
	f := newLifecycleFixture(t)
	f.mission("m1", intPtr(5), false)
	f.store.PutMission(models.Mission{ID: "draft", Status: models.MissionStatusPending, CreatedBy: coordinator})
	f.users("a")

	_, err := f.regs.Register(context.Background(), "a", "missing")
	assert.ErrorIs(t, err, appErrors.ErrMissionNotFound)

	_, err = f.regs.Register(context.Background(), "a", "draft")
	assert.ErrorIs(t, err, appErrors.ErrMissionNotOpen)

	_, err = f.regs.Register(context.Background(), "a", "m1")
	require.NoError(t, err)
	_, err = f.regs.Register(context.Background(), "a", "m1")
	assert.ErrorIs(t, err, appErrors.ErrAlreadyRegistered)
	assert.Equal(t, 1, f.occupancy(t, "m1"))
}

func TestRegisterReactivatesCancelledRow(t *testing.T) {
	f := newLifecycleFixture(t)
	f.mission("m1", intPtr(2), false)
	f.users("a")

	first, err := f.regs.Register(context.Background(), "a", "m1")
	require.NoError(t, err)
	_, err = f.regs.Cancel(context.Background(), "a", "m1")
	require.NoError(t, err)
	assert.Equal(t, 0, f.occupancy(t, "m1"))

	f.clock.Advance(time.Minute)
	again, err := f.regs.Register(context.Background(), "a", "m1")
	require.NoError(t, err)
	assert.True(t, again.Reactivated)
	assert.Equal(t, first.Registration.ID, again.Registration.ID)
	assert.Equal(t, first.Registration.CreatedAt, again.Registration.CreatedAt)
	assert.Equal(t, models.RegistrationStatusRegistered, again.Registration.Status)
	assert.Equal(t, 1, f.occupancy(t, "m1"))
}

func TestCancelAutoPromotesByRank(t *testing.T) {
	f := newLifecycleFixture(t)
	f.mission("m1", intPtr(2), true)
	f.users("a", "b", "early", "late")

	for _, id := range []string{"a", "b", "early", "late"} {
		_, err := f.regs.Register(context.Background(), id, "m1")
		require.NoError(t, err)
		f.clock.Advance(time.Minute)
	}
	late := f.registration(t, "late", "m1")
	_, err := f.regs.SetPriority(context.Background(), late.ID, true, f.coord)
	require.NoError(t, err)

	res, err := f.regs.Cancel(context.Background(), "a", "m1")
	require.NoError(t, err)
	require.Len(t, res.Promoted, 1)
	assert.Equal(t, "late", res.Promoted[0].UserID)
	assert.False(t, res.Promoted[0].IsPriority)
	assert.Equal(t, 2, f.occupancy(t, "m1"))

	res, err = f.regs.Cancel(context.Background(), "b", "m1")
	require.NoError(t, err)
	require.Len(t, res.Promoted, 1)
	assert.Equal(t, "early", res.Promoted[0].UserID)
	assert.Equal(t, 2, f.occupancy(t, "m1"))

	notes := f.emitter.notifications(models.NotificationPromoted)
	require.Len(t, notes, 2)
	assert.Equal(t, "late", notes[0].UserID)
	assert.Len(t, f.emitter.events(models.EventPromotion), 2)
}

func TestCancelWithoutAutoPromoteLeavesWaitlist(t *testing.T) {
	f := newLifecycleFixture(t)
	f.mission("m1", intPtr(1), false)
	f.users("a", "b")

	_, err := f.regs.Register(context.Background(), "a", "m1")
	require.NoError(t, err)
	_, err = f.regs.Register(context.Background(), "b", "m1")
	require.NoError(t, err)

	res, err := f.regs.Cancel(context.Background(), "a", "m1")
	require.NoError(t, err)
	assert.Empty(t, res.Promoted)
	assert.Equal(t, 0, f.occupancy(t, "m1"))
	assert.Equal(t, models.RegistrationStatusWaitlisted, f.registration(t, "b", "m1").Status)
}

func TestCancelWaitlistedKeepsCounter(t *testing.T) {
	f := newLifecycleFixture(t)
	f.mission("m1", intPtr(1), true)
	f.users("a", "b")

	_, err := f.regs.Register(context.Background(), "a", "m1")
	require.NoError(t, err)
	_, err = f.regs.Register(context.Background(), "b", "m1")
	require.NoError(t, err)

	res, err := f.regs.Cancel(context.Background(), "b", "m1")
	require.NoError(t, err)
	assert.Empty(t, res.Promoted)
	assert.Equal(t, 1, f.occupancy(t, "m1"))
}

func TestCancelRejections(t *testing.T) {
	f := newLifecycleFixture(t)
	f.mission("m1", intPtr(3), false)
	f.users("a", "b")

	_, err := f.regs.Cancel(context.Background(), "a", "m1")
	assert.ErrorIs(t, err, appErrors.ErrNotRegistered)

	_, err = f.regs.Register(context.Background(), "a", "m1")
	require.NoError(t, err)
	_, err = f.regs.Cancel(context.Background(), "a", "m1")
	require.NoError(t, err)
	_, err = f.regs.Cancel(context.Background(), "a", "m1")
	assert.ErrorIs(t, err, appErrors.ErrNotRegistered)

	_, err = f.regs.Register(context.Background(), "b", "m1")
	require.NoError(t, err)
	f.checkIn(t, "b", "m1")
	_, err = f.regs.Cancel(context.Background(), "b", "m1")
	assert.ErrorIs(t, err, appErrors.ErrInvalidState)
	assert.Equal(t, 1, f.occupancy(t, "m1"))
}

func TestPromoteManually(t *testing.T) {
	f := newLifecycleFixture(t)
	f.mission("m1", intPtr(1), false)
	f.users("a", "b")

	_, err := f.regs.Register(context.Background(), "a", "m1")
	require.NoError(t, err)
	waiting, err := f.regs.Register(context.Background(), "b", "m1")
	require.NoError(t, err)
	require.True(t, waiting.Waitlisted)
	holder := f.registration(t, "a", "m1")

	_, err = f.regs.Promote(context.Background(), waiting.Registration.ID, f.outsider)
	assert.ErrorIs(t, err, appErrors.ErrForbidden)

	_, err = f.regs.Promote(context.Background(), waiting.Registration.ID, f.coord)
	assert.ErrorIs(t, err, appErrors.ErrMissionFull)

	_, err = f.regs.Promote(context.Background(), holder.ID, f.coord)
	assert.ErrorIs(t, err, appErrors.ErrNotWaitlisted)

	_, err = f.regs.Promote(context.Background(), "nope", f.coord)
	assert.ErrorIs(t, err, appErrors.ErrRegistrationNotFound)

	_, err = f.regs.Cancel(context.Background(), "a", "m1")
	require.NoError(t, err)

	f.store.AddCollaborator("m1", outsiderUser)
	promoted, err := f.regs.Promote(context.Background(), waiting.Registration.ID, f.outsider)
	require.NoError(t, err)
	assert.Equal(t, models.RegistrationStatusRegistered, promoted.Status)
	assert.Equal(t, 1, f.occupancy(t, "m1"))
	assert.Len(t, f.emitter.notifications(models.NotificationPromoted), 1)
}

func TestSetPriorityOnlyWhileWaitlisted(t *testing.T) {
	f := newLifecycleFixture(t)
	f.mission("m1", intPtr(1), false)
	f.users("a", "b")

	held, err := f.regs.Register(context.Background(), "a", "m1")
	require.NoError(t, err)
	waiting, err := f.regs.Register(context.Background(), "b", "m1")
	require.NoError(t, err)

	_, err = f.regs.SetPriority(context.Background(), held.Registration.ID, true, f.coord)
	assert.ErrorIs(t, err, appErrors.ErrInvalidState)

	admin := models.Actor{UserID: "root", Role: models.RoleAdmin}
	updated, err := f.regs.SetPriority(context.Background(), waiting.Registration.ID, true, admin)
	require.NoError(t, err)
	assert.True(t, updated.IsPriority)

	ranked, err := f.regs.RankedWaitlist(context.Background(), "m1", f.coord)
	require.NoError(t, err)
	require.Len(t, ranked, 1)
	assert.True(t, ranked[0].IsPriority)
	assert.Equal(t, 0.5, ranked[0].Reliability)
}

func TestListRegistrations(t *testing.T) {
	f := newLifecycleFixture(t)
	f.mission("m1", intPtr(1), false)
	f.users("a", "b")

	_, err := f.regs.Register(context.Background(), "a", "m1")
	require.NoError(t, err)
	_, err = f.regs.Register(context.Background(), "b", "m1")
	require.NoError(t, err)

	occupying, err := f.regs.ListRegistrations(context.Background(), "m1", nil, f.coord)
	require.NoError(t, err)
	require.Len(t, occupying, 1)
	assert.Equal(t, "a", occupying[0].UserID)

	waitlisted, err := f.regs.ListRegistrations(context.Background(), "m1", []models.RegistrationStatus{models.RegistrationStatusWaitlisted}, f.coord)
	require.NoError(t, err)
	require.Len(t, waitlisted, 1)
	assert.Equal(t, "b", waitlisted[0].UserID)

	_, err = f.regs.ListRegistrations(context.Background(), "m1", []models.RegistrationStatus{"Bogus"}, f.coord)
	assert.ErrorIs(t, err, appErrors.ErrValidation)

	_, err = f.regs.ListRegistrations(context.Background(), "m1", nil, f.outsider)
	assert.ErrorIs(t, err, appErrors.ErrForbidden)
}

func TestReconcileCountsRepairsDrift(t *testing.T) {
	f := newLifecycleFixture(t)
	f.mission("m1", intPtr(5), false)
	f.mission("m2", intPtr(5), false)
	f.users("a", "b")

	for _, id := range []string{"a", "b"} {
		_, err := f.regs.Register(context.Background(), id, "m1")
		require.NoError(t, err)
	}
	drifted, _ := f.store.Mission("m1")
	drifted.CurrentVolunteers = 4
	f.store.PutMission(drifted)

	repairs, err := f.regs.ReconcileCounts(context.Background())
	require.NoError(t, err)
	require.Len(t, repairs, 1)
	assert.Equal(t, models.CounterRepair{MissionID: "m1", Title: drifted.Title, Stored: 4, Actual: 2}, repairs[0])
	assert.Equal(t, 2, f.occupancy(t, "m1"))

	repairs, err = f.regs.ReconcileCounts(context.Background())
	require.NoError(t, err)
	assert.Empty(t, repairs)
}
