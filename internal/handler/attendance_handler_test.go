package handler

import (
	"context"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jondumad/EcoPulse-Backend/internal/models"
	appErrors "github.com/jondumad/EcoPulse-Backend/pkg/errors"
	"github.com/jondumad/EcoPulse-Backend/pkg/geofence"
	"github.com/jondumad/EcoPulse-Backend/pkg/qrtoken"
)

type attendanceServiceMock struct {
	checkInReq     *models.CheckInRequest
	checkInErr     error
	reviewDecision models.AttendanceStatus
	reviewID       string
	recentLimit    int
	overrideUser   string
	overrideReason string
}

func (m *attendanceServiceMock) IssueCheckInToken(ctx context.Context, missionID string, actor models.Actor) (*qrtoken.Issued, error) {
	return &qrtoken.Issued{Token: "tok", MissionID: missionID}, nil
}

func (m *attendanceServiceMock) ValidateLocation(ctx context.Context, req models.ValidateLocationRequest) (*geofence.Result, error) {
	return &geofence.Result{InRange: true, DistanceMeters: 12}, nil
}

func (m *attendanceServiceMock) CheckIn(ctx context.Context, userID string, req models.CheckInRequest) (*models.Attendance, error) {
	m.checkInReq = &req
	if m.checkInErr != nil {
		return nil, m.checkInErr
	}
	return &models.Attendance{ID: "a1", UserID: userID, MissionID: req.MissionID, Status: models.AttendanceStatusPending}, nil
}

func (m *attendanceServiceMock) CheckOut(ctx context.Context, userID, missionID string) (*models.Attendance, error) {
	return &models.Attendance{ID: "a1", UserID: userID, MissionID: missionID}, nil
}

func (m *attendanceServiceMock) Review(ctx context.Context, attendanceID string, decision models.AttendanceStatus, actor models.Actor) (*models.Attendance, error) {
	m.reviewID = attendanceID
	m.reviewDecision = decision
	return &models.Attendance{ID: attendanceID, Status: decision}, nil
}

func (m *attendanceServiceMock) ManualCheckIn(ctx context.Context, missionID, userID string, req models.ManualOverrideRequest, actor models.Actor) (*models.Attendance, error) {
	m.overrideUser = userID
	m.overrideReason = req.Reason
	return &models.Attendance{ID: "a1", UserID: userID, MissionID: missionID}, nil
}

func (m *attendanceServiceMock) ManualComplete(ctx context.Context, missionID, userID string, req models.ManualOverrideRequest, actor models.Actor) (*models.ManualCompletionResult, error) {
	m.overrideUser = userID
	m.overrideReason = req.Reason
	return &models.ManualCompletionResult{Settled: true}, nil
}

func (m *attendanceServiceMock) CurrentAttendance(ctx context.Context, userID string) (*models.Attendance, error) {
	return nil, nil
}

func (m *attendanceServiceMock) PendingVerifications(ctx context.Context, actor models.Actor) ([]models.AttendanceDetail, error) {
	return []models.AttendanceDetail{}, nil
}

func (m *attendanceServiceMock) RecentActivity(ctx context.Context, limit int) ([]models.AttendanceDetail, error) {
	m.recentLimit = limit
	return nil, nil
}

var volunteerClaims = &models.JWTClaims{UserID: "vol", Role: models.RoleVolunteer}

func TestAttendanceHandlerCheckIn(t *testing.T) {
	mockSvc := &attendanceServiceMock{}
	handler := NewAttendanceHandler(mockSvc)

	c, w := newTestContext(http.MethodPost, "/api/v1/attendance/check-in", `{"mission_id":"m1","qr_token":"tok","gps":"1,2"}`, volunteerClaims)
	handler.CheckIn(c)

	require.Equal(t, http.StatusOK, w.Code)
	require.NotNil(t, mockSvc.checkInReq)
	assert.Equal(t, "tok", mockSvc.checkInReq.Token)
	assert.Equal(t, "1,2", mockSvc.checkInReq.GPS)
}

func TestAttendanceHandlerCheckInInvalidBody(t *testing.T) {
	mockSvc := &attendanceServiceMock{}
	handler := NewAttendanceHandler(mockSvc)

	c, w := newTestContext(http.MethodPost, "/api/v1/attendance/check-in", `{"mission_id":`, volunteerClaims)
	handler.CheckIn(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Nil(t, mockSvc.checkInReq)
}

func TestAttendanceHandlerCheckInDoubleBooking(t *testing.T) {
	mockSvc := &attendanceServiceMock{checkInErr: appErrors.WithDetails(appErrors.ErrAlreadyCheckedInElsewhere, "", map[string]interface{}{"mission_id": "m9"})}
	handler := NewAttendanceHandler(mockSvc)

	c, w := newTestContext(http.MethodPost, "/api/v1/attendance/check-in", `{"mission_id":"m1","qr_token":"tok","gps":"1,2"}`, volunteerClaims)
	handler.CheckIn(c)

	assert.Equal(t, http.StatusConflict, w.Code)
	errBody := decodeEnvelope(t, w)["error"].(map[string]interface{})
	assert.Equal(t, "m9", errBody["details"].(map[string]interface{})["mission_id"])
}

func TestAttendanceHandlerVerify(t *testing.T) {
	mockSvc := &attendanceServiceMock{}
	handler := NewAttendanceHandler(mockSvc)

	c, w := newTestContext(http.MethodPut, "/api/v1/attendance/a1/verify", `{"status":"Rejected"}`, &models.JWTClaims{UserID: "coord", Role: models.RoleCoordinator})
	c.Params = gin.Params{{Key: "id", Value: "a1"}}
	handler.Verify(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "a1", mockSvc.reviewID)
	assert.Equal(t, models.AttendanceStatusRejected, mockSvc.reviewDecision)
}

func TestAttendanceHandlerManualComplete(t *testing.T) {
	mockSvc := &attendanceServiceMock{}
	handler := NewAttendanceHandler(mockSvc)

	c, w := newTestContext(http.MethodPost, "/api/v1/attendance/missions/m1/participants/u7/complete", `{"reason":"paper sign-in"}`,
		&models.JWTClaims{UserID: "coord", Role: models.RoleCoordinator})
	c.Params = gin.Params{{Key: "id", Value: "m1"}, {Key: "userId", Value: "u7"}}
	handler.ManualComplete(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "u7", mockSvc.overrideUser)
	assert.Equal(t, "paper sign-in", mockSvc.overrideReason)
}

func TestAttendanceHandlerRecentActivityLimit(t *testing.T) {
	mockSvc := &attendanceServiceMock{}
	handler := NewAttendanceHandler(mockSvc)

	c, w := newTestContext(http.MethodGet, "/api/v1/attendance/recent-activity?limit=abc", "", nil)
	handler.RecentActivity(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	c, w = newTestContext(http.MethodGet, "/api/v1/attendance/recent-activity?limit=25", "", nil)
	handler.RecentActivity(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 25, mockSvc.recentLimit)
}
