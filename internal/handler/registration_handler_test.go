package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jondumad/EcoPulse-Backend/internal/middleware"
	"github.com/jondumad/EcoPulse-Backend/internal/models"
	appErrors "github.com/jondumad/EcoPulse-Backend/pkg/errors"
)

type registrationServiceMock struct {
	registerResp   *models.RegistrationResult
	registerErr    error
	cancelResp     *models.CancellationResult
	listResp       []models.RegistrationDetail
	lastStatuses   []models.RegistrationStatus
	lastPriority   *bool
	lastActor      models.Actor
	lastMissionID  string
	reconcileResp  []models.CounterRepair
	registerCalled bool
}

func (m *registrationServiceMock) Register(ctx context.Context, userID, missionID string) (*models.RegistrationResult, error) {
	m.registerCalled = true
	m.lastMissionID = missionID
	m.lastActor = models.Actor{UserID: userID}
	return m.registerResp, m.registerErr
}

func (m *registrationServiceMock) Cancel(ctx context.Context, userID, missionID string) (*models.CancellationResult, error) {
	m.lastMissionID = missionID
	return m.cancelResp, nil
}

func (m *registrationServiceMock) Promote(ctx context.Context, registrationID string, actor models.Actor) (*models.Registration, error) {
	m.lastActor = actor
	return &models.Registration{ID: registrationID, Status: models.RegistrationStatusRegistered}, nil
}

func (m *registrationServiceMock) SetPriority(ctx context.Context, registrationID string, priority bool, actor models.Actor) (*models.Registration, error) {
	m.lastPriority = &priority
	return &models.Registration{ID: registrationID, IsPriority: priority}, nil
}

func (m *registrationServiceMock) ListRegistrations(ctx context.Context, missionID string, statuses []models.RegistrationStatus, actor models.Actor) ([]models.RegistrationDetail, error) {
	m.lastStatuses = statuses
	m.lastActor = actor
	return m.listResp, nil
}

func (m *registrationServiceMock) RankedWaitlist(ctx context.Context, missionID string, actor models.Actor) ([]models.WaitlistCandidate, error) {
	return nil, nil
}

func (m *registrationServiceMock) ReconcileCounts(ctx context.Context) ([]models.CounterRepair, error) {
	return m.reconcileResp, nil
}

func newTestContext(method, target, body string, claims *models.JWTClaims) (*gin.Context, *httptest.ResponseRecorder) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	var reader *bytes.Buffer
	if body != "" {
		reader = bytes.NewBufferString(body)
	} else {
		reader = &bytes.Buffer{}
	}
	req, _ := http.NewRequest(method, target, reader)
	req.Header.Set("Content-Type", "application/json")
	c.Request = req
	if claims != nil {
		c.Set(middleware.ContextUserKey, claims)
	}
	return c, w
}

func decodeEnvelope(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func TestRegistrationHandlerRegister(t *testing.T) {
	mockSvc := &registrationServiceMock{registerResp: &models.RegistrationResult{
		Registration: &models.Registration{ID: "r1", Status: models.RegistrationStatusWaitlisted},
		Waitlisted:   true,
	}}
	handler := NewRegistrationHandler(mockSvc)

	c, w := newTestContext(http.MethodPost, "/api/v1/missions/m1/register", "", &models.JWTClaims{UserID: "u1", Role: models.RoleVolunteer})
	c.Params = gin.Params{{Key: "id", Value: "m1"}}
	handler.Register(c)

	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "m1", mockSvc.lastMissionID)
	assert.Equal(t, "u1", mockSvc.lastActor.UserID)
	data := decodeEnvelope(t, w)["data"].(map[string]interface{})
	assert.Equal(t, true, data["waitlisted"])
}

func TestRegistrationHandlerRegisterRequiresClaims(t *testing.T) {
	mockSvc := &registrationServiceMock{}
	handler := NewRegistrationHandler(mockSvc)

	c, w := newTestContext(http.MethodPost, "/api/v1/missions/m1/register", "", nil)
	handler.Register(c)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.False(t, mockSvc.registerCalled)
}

func TestRegistrationHandlerMapsDomainErrors(t *testing.T) {
	mockSvc := &registrationServiceMock{registerErr: appErrors.Clone(appErrors.ErrAlreadyRegistered, "")}
	handler := NewRegistrationHandler(mockSvc)

	c, w := newTestContext(http.MethodPost, "/api/v1/missions/m1/register", "", &models.JWTClaims{UserID: "u1", Role: models.RoleVolunteer})
	handler.Register(c)

	assert.Equal(t, http.StatusConflict, w.Code)
	errBody := decodeEnvelope(t, w)["error"].(map[string]interface{})
	assert.Equal(t, appErrors.ErrAlreadyRegistered.Code, errBody["code"])
}

func TestRegistrationHandlerListParsesStatuses(t *testing.T) {
	mockSvc := &registrationServiceMock{listResp: []models.RegistrationDetail{{Registration: models.Registration{ID: "r1"}}}}
	handler := NewRegistrationHandler(mockSvc)

	c, w := newTestContext(http.MethodGet, "/api/v1/missions/m1/registrations?status=Waitlisted,Registered&status=CheckedIn", "",
		&models.JWTClaims{UserID: "coord", Role: models.RoleCoordinator})
	handler.List(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []models.RegistrationStatus{"Waitlisted", "Registered", "CheckedIn"}, mockSvc.lastStatuses)
	assert.Equal(t, models.RoleCoordinator, mockSvc.lastActor.Role)
	meta := decodeEnvelope(t, w)["meta"].(map[string]interface{})
	assert.Equal(t, float64(1), meta["count"])
}

func TestRegistrationHandlerSetPriority(t *testing.T) {
	mockSvc := &registrationServiceMock{}
	handler := NewRegistrationHandler(mockSvc)
	claims := &models.JWTClaims{UserID: "coord", Role: models.RoleCoordinator}

	c, w := newTestContext(http.MethodPatch, "/api/v1/registrations/r1/priority", `{}`, claims)
	handler.SetPriority(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Nil(t, mockSvc.lastPriority)

	c, w = newTestContext(http.MethodPatch, "/api/v1/registrations/r1/priority", `{"is_priority":false}`, claims)
	c.Params = gin.Params{{Key: "id", Value: "r1"}}
	handler.SetPriority(c)
	require.Equal(t, http.StatusOK, w.Code)
	require.NotNil(t, mockSvc.lastPriority)
	assert.False(t, *mockSvc.lastPriority)
}

func TestRegistrationHandlerReconcile(t *testing.T) {
	mockSvc := &registrationServiceMock{reconcileResp: []models.CounterRepair{{MissionID: "m1", Stored: 3, Actual: 2}}}
	handler := NewRegistrationHandler(mockSvc)

	c, w := newTestContext(http.MethodPost, "/api/v1/admin/reconcile-counts", "", &models.JWTClaims{UserID: "root", Role: models.RoleAdmin})
	handler.Reconcile(c)

	require.Equal(t, http.StatusOK, w.Code)
	meta := decodeEnvelope(t, w)["meta"].(map[string]interface{})
	assert.Equal(t, float64(1), meta["repaired"])
}
