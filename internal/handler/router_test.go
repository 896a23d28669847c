package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/jondumad/EcoPulse-Backend/internal/models"
	"github.com/jondumad/EcoPulse-Backend/internal/repository"
	"github.com/jondumad/EcoPulse-Backend/internal/service"
	"github.com/jondumad/EcoPulse-Backend/pkg/qrtoken"
)

type apiHarness struct {
	router *gin.Engine
	auth   *service.AuthService
	store  *repository.MemoryStore
}

func newAPIHarness(t *testing.T, ready Pinger) *apiHarness {
	t.Helper()
	gin.SetMode(gin.TestMode)

	start := time.Now().UTC().Add(10 * time.Minute)
	max := 1
	store := repository.NewMemoryStore()
	store.PutUser(models.User{ID: "coord", Role: models.RoleCoordinator})
	store.PutUser(models.User{ID: "vol-1", Role: models.RoleVolunteer})
	store.PutUser(models.User{ID: "vol-2", Role: models.RoleVolunteer})
	store.PutMission(models.Mission{
		ID:            "m1",
		Title:         "Tree planting",
		Status:        models.MissionStatusOpen,
		StartTime:     start,
		EndTime:       start.Add(2 * time.Hour),
		LocationGPS:   "51.5007,-0.1246",
		MaxVolunteers: &max,
		PointsValue:   50,
		AutoPromote:   true,
		CreatedBy:     "coord",
	})

	metrics := service.NewMetricsService()
	auth := service.NewAuthService(zap.NewNop(), service.AuthConfig{AccessTokenSecret: "api-secret"})
	tokens := qrtoken.New("qr-secret", qrtoken.DefaultTTL)
	regs := service.NewRegistrationService(store, nil, metrics, zap.NewNop(), nil)
	attend := service.NewAttendanceService(store, tokens, nil, nil, metrics, nil, zap.NewNop(), service.AttendanceConfig{}, nil)

	checks := map[string]Pinger{}
	if ready != nil {
		checks["postgres"] = ready
	}
	r := gin.New()
	Routes{
		Auth:          auth,
		Registrations: NewRegistrationHandler(regs),
		Attendance:    NewAttendanceHandler(attend),
		Metrics:       NewMetricsHandler(metrics, checks),
	}.Register(r)
	return &apiHarness{router: r, auth: auth, store: store}
}

func (h *apiHarness) do(t *testing.T, method, path string, actor *models.Actor, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if actor != nil {
		token, err := h.auth.IssueToken(*actor, "")
		require.NoError(t, err)
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	h.router.ServeHTTP(w, req)
	return w
}

func TestRouterRegistrationAndCheckInFlow(t *testing.T) {
	h := newAPIHarness(t, nil)
	coord := &models.Actor{UserID: "coord", Role: models.RoleCoordinator}
	vol1 := &models.Actor{UserID: "vol-1", Role: models.RoleVolunteer}
	vol2 := &models.Actor{UserID: "vol-2", Role: models.RoleVolunteer}

	assert.Equal(t, http.StatusUnauthorized, h.do(t, http.MethodPost, "/api/v1/missions/m1/register", nil, nil).Code)

	require.Equal(t, http.StatusCreated, h.do(t, http.MethodPost, "/api/v1/missions/m1/register", vol1, nil).Code)
	w := h.do(t, http.MethodPost, "/api/v1/missions/m1/register", vol2, nil)
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, true, decodeEnvelope(t, w)["data"].(map[string]interface{})["waitlisted"])

	assert.Equal(t, http.StatusForbidden, h.do(t, http.MethodGet, "/api/v1/missions/m1/waitlist", vol1, nil).Code)
	assert.Equal(t, http.StatusOK, h.do(t, http.MethodGet, "/api/v1/missions/m1/waitlist", coord, nil).Code)

	w = h.do(t, http.MethodDelete, "/api/v1/missions/m1/register", vol1, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(1), decodeEnvelope(t, w)["meta"].(map[string]interface{})["promoted_count"])

	w = h.do(t, http.MethodGet, "/api/v1/attendance/missions/m1/qr-code", coord, nil)
	require.Equal(t, http.StatusOK, w.Code)
	qr := decodeEnvelope(t, w)["data"].(map[string]interface{})["token"].(string)

	w = h.do(t, http.MethodPost, "/api/v1/attendance/check-in", vol2, map[string]string{
		"mission_id": "m1", "qr_token": qr, "gps": "51.5008,-0.1247",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = h.do(t, http.MethodGet, "/api/v1/attendance/current", vol2, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, decodeEnvelope(t, w)["meta"].(map[string]interface{})["checked_in"])

	w = h.do(t, http.MethodPost, "/api/v1/attendance/check-out", vol2, map[string]string{"mission_id": "m1"})
	require.Equal(t, http.StatusOK, w.Code)
	w = h.do(t, http.MethodPost, "/api/v1/attendance/check-out", vol2, map[string]string{"mission_id": "m1"})
	assert.Equal(t, http.StatusConflict, w.Code)

	att, ok := h.store.Attendance("vol-2", "m1")
	require.True(t, ok)
	w = h.do(t, http.MethodPut, "/api/v1/attendance/"+att.ID+"/verify", coord, map[string]string{"status": "Verified"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	user, _ := h.store.User("vol-2")
	assert.Equal(t, 50, user.TotalPoints)
}

func TestRouterCheckInOutOfRange(t *testing.T) {
	h := newAPIHarness(t, nil)
	coord := &models.Actor{UserID: "coord", Role: models.RoleCoordinator}
	vol1 := &models.Actor{UserID: "vol-1", Role: models.RoleVolunteer}
	require.Equal(t, http.StatusCreated, h.do(t, http.MethodPost, "/api/v1/missions/m1/register", vol1, nil).Code)

	w := h.do(t, http.MethodGet, "/api/v1/attendance/missions/m1/qr-code", coord, nil)
	qr := decodeEnvelope(t, w)["data"].(map[string]interface{})["token"].(string)

	w = h.do(t, http.MethodPost, "/api/v1/attendance/check-in", vol1, map[string]string{
		"mission_id": "m1", "qr_token": qr, "gps": "51.5100,-0.1246",
	})
	require.Equal(t, http.StatusBadRequest, w.Code)
	errBody := decodeEnvelope(t, w)["error"].(map[string]interface{})
	assert.Equal(t, "OUT_OF_RANGE", errBody["code"])
	assert.Contains(t, errBody["details"], "distance_meters")
	assert.Contains(t, errBody["details"], "radius_meters")
}

func TestRouterProbes(t *testing.T) {
	h := newAPIHarness(t, PingFunc(func(context.Context) error { return errors.New("connection refused") }))

	w := h.do(t, http.MethodGet, "/health", nil, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = h.do(t, http.MethodGet, "/ready", nil, nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	w = h.do(t, http.MethodGet, "/metrics", nil, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "goroutines_total")
}
