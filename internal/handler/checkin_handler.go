package handler

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/roadwatch-api/internal/dto"
	"github.com/noah-isme/roadwatch-api/internal/gamification"
	"github.com/noah-isme/roadwatch-api/internal/models"
	"github.com/noah-isme/roadwatch-api/pkg/response"
)

type checkInService interface {
	Create(ctx context.Context, userID string, req dto.CreateCheckInRequest) (*models.CheckIn, *gamification.Result, error)
	List(ctx context.Context) ([]models.CheckIn, error)
}

// CheckInHandler serves safe-zone check-ins.
type CheckInHandler struct {
	service checkInService
}

// NewCheckInHandler creates a handler.
func NewCheckInHandler(svc checkInService) *CheckInHandler {
	return &CheckInHandler{service: svc}
}

// Create godoc
// @Summary Confirm a safe zone
// @Tags Check-ins
// @Accept json
// @Produce json
// @Param payload body dto.CreateCheckInRequest true "Location"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Security BearerAuth
// @Router /safe-checkin [post]
func (h *CheckInHandler) Create(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	var req dto.CreateCheckInRequest
	if !bindJSON(c, &req, "check-in") {
		return
	}
	checkIn, award, err := h.service.Create(c.Request.Context(), actor.ID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	view := dto.NewCheckInView(*checkIn)
	if award != nil {
		a := dto.NewPointsAwardView(*award)
		view.Award = &a
	}
	response.Created(c, view)
}

// List godoc
// @Summary List recent check-ins
// @Tags Check-ins
// @Produce json
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /safe-checkin [get]
func (h *CheckInHandler) List(c *gin.Context) {
	items, err := h.service.List(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	views := make([]dto.CheckInView, 0, len(items))
	for _, item := range items {
		views = append(views, dto.NewCheckInView(item))
	}
	response.OK(c, views)
}
