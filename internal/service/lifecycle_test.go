package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/jondumad/EcoPulse-Backend/internal/models"
	"github.com/jondumad/EcoPulse-Backend/internal/repository"
	"github.com/jondumad/EcoPulse-Backend/pkg/qrtoken"
)

const (
	missionGPS   = "40.7128,-74.0060"
	nearbyGPS    = "40.7129,-74.0061"
	faraway      = "40.7200,-74.0060"
	coordinator  = "coord-1"
	outsiderUser = "outsider"
)

var testStart = time.Date(2026, 5, 2, 9, 0, 0, 0, time.UTC)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func (c *fakeClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

type recordingEmitter struct {
	mu       sync.Mutex
	outboxes []*models.Outbox
}

func (r *recordingEmitter) Emit(_ context.Context, out *models.Outbox) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.outboxes = append(r.outboxes, out)
}

func (r *recordingEmitter) notifications(kind string) []models.Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	var found []models.Notification
	for _, out := range r.outboxes {
		for _, n := range out.Notifications {
			if n.Type == kind {
				found = append(found, n)
			}
		}
	}
	return found
}

func (r *recordingEmitter) events(kind string) []models.DomainEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	var found []models.DomainEvent
	for _, out := range r.outboxes {
		for _, e := range out.Events {
			if e.Type == kind {
				found = append(found, e)
			}
		}
	}
	return found
}

type lifecycleFixture struct {
	store    *repository.MemoryStore
	clock    *fakeClock
	emitter  *recordingEmitter
	tokens   *qrtoken.Service
	regs     *RegistrationService
	attend   *AttendanceService
	metrics  *MetricsService
	coord    models.Actor
	outsider models.Actor
}

func newLifecycleFixture(t *testing.T) *lifecycleFixture {
	t.Helper()
	store := repository.NewMemoryStore()
	clock := &fakeClock{now: testStart.Add(-10 * time.Minute)}
	emitter := &recordingEmitter{}
	metrics := NewMetricsService()
	tokens := qrtoken.New("qr-secret", qrtoken.DefaultTTL, qrtoken.WithClock(clock.Now))

	store.PutUser(models.User{ID: coordinator, Name: "Coordinator", Role: models.RoleCoordinator})
	store.PutUser(models.User{ID: outsiderUser, Name: "Outsider", Role: models.RoleCoordinator})

	return &lifecycleFixture{
		store:    store,
		clock:    clock,
		emitter:  emitter,
		tokens:   tokens,
		metrics:  metrics,
		regs:     NewRegistrationService(store, emitter, metrics, zap.NewNop(), clock.Now),
		attend:   NewAttendanceService(store, tokens, nil, emitter, metrics, nil, zap.NewNop(), AttendanceConfig{}, clock.Now),
		coord:    models.Actor{UserID: coordinator, Role: models.RoleCoordinator},
		outsider: models.Actor{UserID: outsiderUser, Role: models.RoleCoordinator},
	}
}

func intPtr(v int) *int { return &v }

func (f *lifecycleFixture) mission(id string, max *int, autoPromote bool) {
	f.store.PutMission(models.Mission{
		ID:            id,
		Title:         "Beach cleanup " + id,
		Status:        models.MissionStatusOpen,
		StartTime:     testStart,
		EndTime:       testStart.Add(3 * time.Hour),
		LocationGPS:   missionGPS,
		MaxVolunteers: max,
		PointsValue:   100,
		AutoPromote:   autoPromote,
		CreatedBy:     coordinator,
	})
}

func (f *lifecycleFixture) users(ids ...string) {
	for _, id := range ids {
		f.store.PutUser(models.User{ID: id, Name: "Volunteer " + id, Role: models.RoleVolunteer})
	}
}

func (f *lifecycleFixture) token(t *testing.T, missionID string) string {
	t.Helper()
	issued, err := f.attend.IssueCheckInToken(context.Background(), missionID, f.coord)
	require.NoError(t, err)
	return issued.Token
}

func (f *lifecycleFixture) checkIn(t *testing.T, userID, missionID string) *models.Attendance {
	t.Helper()
	att, err := f.attend.CheckIn(context.Background(), userID, models.CheckInRequest{
		MissionID: missionID,
		Token:     f.token(t, missionID),
		GPS:       nearbyGPS,
	})
	require.NoError(t, err)
	return att
}

func (f *lifecycleFixture) registration(t *testing.T, userID, missionID string) models.Registration {
	t.Helper()
	reg, ok := f.store.Registration(userID, missionID)
	require.True(t, ok, "registration %s/%s", userID, missionID)
	return reg
}

func (f *lifecycleFixture) occupancy(t *testing.T, missionID string) int {
	t.Helper()
	m, ok := f.store.Mission(missionID)
	require.True(t, ok)
	return m.CurrentVolunteers
}

func (f *lifecycleFixture) points(t *testing.T, userID string) int {
	t.Helper()
	u, ok := f.store.User(userID)
	require.True(t, ok)
	return u.TotalPoints
}
