package handler

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/roadwatch-api/internal/dto"
	"github.com/noah-isme/roadwatch-api/internal/models"
	"github.com/noah-isme/roadwatch-api/internal/policy"
	"github.com/noah-isme/roadwatch-api/pkg/response"
)

type routeService interface {
	List(ctx context.Context, accidentID string) ([]models.Route, error)
	Create(ctx context.Context, actor policy.Actor, accidentID string, req dto.CreateRouteRequest) (*models.Route, error)
	SetClosed(ctx context.Context, actor policy.Actor, routeID string, req dto.UpdateRouteRequest) (*models.Route, error)
}

// RouteHandler serves affected-route endpoints.
type RouteHandler struct {
	service routeService
}

// NewRouteHandler creates a handler.
func NewRouteHandler(svc routeService) *RouteHandler {
	return &RouteHandler{service: svc}
}

// List godoc
// @Summary List routes affected by an accident
// @Tags Routes
// @Produce json
// @Param id path string true "Accident ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /accidents/{id}/routes [get]
func (h *RouteHandler) List(c *gin.Context) {
	routes, err := h.service.List(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	if routes == nil {
		routes = []models.Route{}
	}
	response.OK(c, routes)
}

// Create godoc
// @Summary Attach an affected route to an accident
// @Tags Routes
// @Accept json
// @Produce json
// @Param id path string true "Accident ID"
// @Param payload body dto.CreateRouteRequest true "Route"
// @Success 201 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Security BearerAuth
// @Router /accidents/{id}/routes [post]
func (h *RouteHandler) Create(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	var req dto.CreateRouteRequest
	if !bindJSON(c, &req, "route") {
		return
	}
	route, err := h.service.Create(c.Request.Context(), actor, c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, route)
}

// Update godoc
// @Summary Open or close a route
// @Tags Routes
// @Accept json
// @Produce json
// @Param id path string true "Route ID"
// @Param payload body dto.UpdateRouteRequest true "Closed flag"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Security BearerAuth
// @Router /routes/{id} [patch]
func (h *RouteHandler) Update(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	var req dto.UpdateRouteRequest
	if !bindJSON(c, &req, "route") {
		return
	}
	route, err := h.service.SetClosed(c.Request.Context(), actor, c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, route)
}
