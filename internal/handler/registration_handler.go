package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jondumad/EcoPulse-Backend/internal/models"
	"github.com/jondumad/EcoPulse-Backend/pkg/response"
)

type registrationService interface {
	Register(ctx context.Context, userID, missionID string) (*models.RegistrationResult, error)
	Cancel(ctx context.Context, userID, missionID string) (*models.CancellationResult, error)
	Promote(ctx context.Context, registrationID string, actor models.Actor) (*models.Registration, error)
	SetPriority(ctx context.Context, registrationID string, priority bool, actor models.Actor) (*models.Registration, error)
	ListRegistrations(ctx context.Context, missionID string, statuses []models.RegistrationStatus, actor models.Actor) ([]models.RegistrationDetail, error)
	RankedWaitlist(ctx context.Context, missionID string, actor models.Actor) ([]models.WaitlistCandidate, error)
	ReconcileCounts(ctx context.Context) ([]models.CounterRepair, error)
}

// RegistrationHandler exposes mission registration and waitlist endpoints.
type RegistrationHandler struct {
	service registrationService
}

// NewRegistrationHandler builds a new handler.
func NewRegistrationHandler(service registrationService) *RegistrationHandler {
	return &RegistrationHandler{service: service}
}

// Register godoc
// @Summary Register for a mission
// @Description Admits the caller or places them on the waitlist when the mission is full.
// @Tags Registrations
// @Produce json
// @Param id path string true "Mission ID"
// @Success 201 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /missions/{id}/register [post]
func (h *RegistrationHandler) Register(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	result, err := h.service.Register(c.Request.Context(), actor.UserID, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, result)
}

// Cancel godoc
// @Summary Cancel a mission registration
// @Tags Registrations
// @Produce json
// @Param id path string true "Mission ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /missions/{id}/register [delete]
func (h *RegistrationHandler) Cancel(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	result, err := h.service.Cancel(c.Request.Context(), actor.UserID, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, result, map[string]interface{}{"promoted_count": len(result.Promoted)})
}

// List godoc
// @Summary List a mission's registrations
// @Tags Registrations
// @Produce json
// @Param id path string true "Mission ID"
// @Param status query string false "Comma separated statuses (defaults to occupying ones)"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /missions/{id}/registrations [get]
func (h *RegistrationHandler) List(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	var statuses []models.RegistrationStatus
	for _, s := range queryList(c, "status") {
		statuses = append(statuses, models.RegistrationStatus(s))
	}
	regs, err := h.service.ListRegistrations(c.Request.Context(), c.Param("id"), statuses, actor)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, regs, map[string]interface{}{"count": len(regs)})
}

// Waitlist godoc
// @Summary Preview the ranked waitlist of a mission
// @Tags Registrations
// @Produce json
// @Param id path string true "Mission ID"
// @Success 200 {object} response.Envelope
// @Router /missions/{id}/waitlist [get]
func (h *RegistrationHandler) Waitlist(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	ranked, err := h.service.RankedWaitlist(c.Request.Context(), c.Param("id"), actor)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, ranked)
}

// Promote godoc
// @Summary Promote a waitlisted registration
// @Tags Registrations
// @Produce json
// @Param id path string true "Registration ID"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /registrations/{id}/promote [post]
func (h *RegistrationHandler) Promote(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	reg, err := h.service.Promote(c.Request.Context(), c.Param("id"), actor)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, reg)
}

// SetPriority godoc
// @Summary Flag a waitlisted registration as priority
// @Tags Registrations
// @Accept json
// @Produce json
// @Param id path string true "Registration ID"
// @Param payload body models.SetPriorityRequest true "Priority flag"
// @Success 200 {object} response.Envelope
// @Router /registrations/{id}/priority [patch]
func (h *RegistrationHandler) SetPriority(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	var req models.SetPriorityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, bindError(err, "invalid priority payload"))
		return
	}
	reg, err := h.service.SetPriority(c.Request.Context(), c.Param("id"), *req.IsPriority, actor)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, reg)
}

// Reconcile godoc
// @Summary Repair drifted mission occupancy counters
// @Tags Admin
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /admin/reconcile-counts [post]
func (h *RegistrationHandler) Reconcile(c *gin.Context) {
	repairs, err := h.service.ReconcileCounts(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, repairs, map[string]interface{}{"repaired": len(repairs)})
}
