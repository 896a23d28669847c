package handler

import (
	"context"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/jondumad/EcoPulse-Backend/internal/models"
	appErrors "github.com/jondumad/EcoPulse-Backend/pkg/errors"
	"github.com/jondumad/EcoPulse-Backend/pkg/geofence"
	"github.com/jondumad/EcoPulse-Backend/pkg/qrtoken"
	"github.com/jondumad/EcoPulse-Backend/pkg/response"
)

type attendanceService interface {
	IssueCheckInToken(ctx context.Context, missionID string, actor models.Actor) (*qrtoken.Issued, error)
	ValidateLocation(ctx context.Context, req models.ValidateLocationRequest) (*geofence.Result, error)
	CheckIn(ctx context.Context, userID string, req models.CheckInRequest) (*models.Attendance, error)
	CheckOut(ctx context.Context, userID, missionID string) (*models.Attendance, error)
	Review(ctx context.Context, attendanceID string, decision models.AttendanceStatus, actor models.Actor) (*models.Attendance, error)
	ManualCheckIn(ctx context.Context, missionID, userID string, req models.ManualOverrideRequest, actor models.Actor) (*models.Attendance, error)
	ManualComplete(ctx context.Context, missionID, userID string, req models.ManualOverrideRequest, actor models.Actor) (*models.ManualCompletionResult, error)
	CurrentAttendance(ctx context.Context, userID string) (*models.Attendance, error)
	PendingVerifications(ctx context.Context, actor models.Actor) ([]models.AttendanceDetail, error)
	RecentActivity(ctx context.Context, limit int) ([]models.AttendanceDetail, error)
}

// AttendanceHandler exposes check-in, check-out and review endpoints.
type AttendanceHandler struct {
	service attendanceService
}

// NewAttendanceHandler builds a new handler.
func NewAttendanceHandler(service attendanceService) *AttendanceHandler {
	return &AttendanceHandler{service: service}
}

// QRCode godoc
// @Summary Issue a check-in QR token for a mission
// @Description The token is valid for five minutes.
// @Tags Attendance
// @Produce json
// @Param id path string true "Mission ID"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /attendance/missions/{id}/qr-code [get]
func (h *AttendanceHandler) QRCode(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	issued, err := h.service.IssueCheckInToken(c.Request.Context(), c.Param("id"), actor)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, issued)
}

// ValidateLocation godoc
// @Summary Check whether a position is inside a mission geofence
// @Tags Attendance
// @Accept json
// @Produce json
// @Param payload body models.ValidateLocationRequest true "Position"
// @Success 200 {object} response.Envelope
// @Router /attendance/validate-location [post]
func (h *AttendanceHandler) ValidateLocation(c *gin.Context) {
	var req models.ValidateLocationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, bindError(err, "invalid location payload"))
		return
	}
	result, err := h.service.ValidateLocation(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, result)
}

// CheckIn godoc
// @Summary Check in to a mission with a QR token and GPS position
// @Tags Attendance
// @Accept json
// @Produce json
// @Param payload body models.CheckInRequest true "Check-in payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /attendance/check-in [post]
func (h *AttendanceHandler) CheckIn(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	var req models.CheckInRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, bindError(err, "invalid check-in payload"))
		return
	}
	att, err := h.service.CheckIn(c.Request.Context(), actor.UserID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, att)
}

// CheckOut godoc
// @Summary Check out of a mission
// @Tags Attendance
// @Accept json
// @Produce json
// @Param payload body models.CheckOutRequest true "Mission"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /attendance/check-out [post]
func (h *AttendanceHandler) CheckOut(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	var req models.CheckOutRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.MissionID == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "mission_id is required"))
		return
	}
	att, err := h.service.CheckOut(c.Request.Context(), actor.UserID, req.MissionID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, att)
}

// Current godoc
// @Summary Get the caller's open attendance
// @Tags Attendance
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /attendance/current [get]
func (h *AttendanceHandler) Current(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	att, err := h.service.CurrentAttendance(c.Request.Context(), actor.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, att, map[string]interface{}{"checked_in": att != nil})
}

// Pending godoc
// @Summary List attendances awaiting review
// @Tags Attendance
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /attendance/pending [get]
func (h *AttendanceHandler) Pending(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	rows, err := h.service.PendingVerifications(c.Request.Context(), actor)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, rows, map[string]interface{}{"count": len(rows)})
}

// RecentActivity godoc
// @Summary List the latest attendance changes
// @Tags Attendance
// @Produce json
// @Param limit query int false "Maximum rows (default 10)"
// @Success 200 {object} response.Envelope
// @Router /attendance/recent-activity [get]
func (h *AttendanceHandler) RecentActivity(c *gin.Context) {
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "limit must be a non-negative integer"))
			return
		}
		limit = parsed
	}
	rows, err := h.service.RecentActivity(c.Request.Context(), limit)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, rows)
}

// Verify godoc
// @Summary Verify or reject an attendance
// @Description Verification settles the mission's points exactly once.
// @Tags Attendance
// @Accept json
// @Produce json
// @Param id path string true "Attendance ID"
// @Param payload body models.ReviewRequest true "Decision"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /attendance/{id}/verify [put]
func (h *AttendanceHandler) Verify(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	var req models.ReviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, bindError(err, "invalid review payload"))
		return
	}
	att, err := h.service.Review(c.Request.Context(), c.Param("id"), req.Status, actor)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, att)
}

// ManualCheckIn godoc
// @Summary Check a participant in manually
// @Tags Attendance
// @Accept json
// @Produce json
// @Param id path string true "Mission ID"
// @Param userId path string true "Participant ID"
// @Param payload body models.ManualOverrideRequest true "Reason"
// @Success 200 {object} response.Envelope
// @Router /attendance/missions/{id}/participants/{userId}/check-in [post]
func (h *AttendanceHandler) ManualCheckIn(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	var req models.ManualOverrideRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, bindError(err, "invalid override payload"))
		return
	}
	att, err := h.service.ManualCheckIn(c.Request.Context(), c.Param("id"), c.Param("userId"), req, actor)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, att)
}

// ManualComplete godoc
// @Summary Complete a participant manually and settle points
// @Tags Attendance
// @Accept json
// @Produce json
// @Param id path string true "Mission ID"
// @Param userId path string true "Participant ID"
// @Param payload body models.ManualOverrideRequest true "Reason"
// @Success 200 {object} response.Envelope
// @Router /attendance/missions/{id}/participants/{userId}/complete [post]
func (h *AttendanceHandler) ManualComplete(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	var req models.ManualOverrideRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, bindError(err, "invalid override payload"))
		return
	}
	result, err := h.service.ManualComplete(c.Request.Context(), c.Param("id"), c.Param("userId"), req, actor)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, result)
}
