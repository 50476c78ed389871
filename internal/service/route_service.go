package service

import (
	"context"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/roadwatch-api/internal/dto"
	"github.com/noah-isme/roadwatch-api/internal/models"
	"github.com/noah-isme/roadwatch-api/internal/policy"
	appErrors "github.com/noah-isme/roadwatch-api/pkg/errors"
	"github.com/noah-isme/roadwatch-api/pkg/sanitize"
	"github.com/noah-isme/roadwatch-api/pkg/validation"
)

type routeRepository interface {
	Create(ctx context.Context, route *models.Route) error
	FindByID(ctx context.Context, id string) (*models.Route, error)
	ListByAccident(ctx context.Context, accidentID string) ([]models.Route, error)
	SetClosed(ctx context.Context, id string, closed bool) error
}

// RouteService tracks road segments affected by an accident.
type RouteService struct {
	repo      routeRepository
	accidents accidentLookup
	validator *validator.Validate
	logger    *zap.Logger
}

// NewRouteService creates an instance of RouteService.
func NewRouteService(repo routeRepository, accidents accidentLookup, validate *validator.Validate, logger *zap.Logger) *RouteService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validation.New()
	}
	return &RouteService{repo: repo, accidents: accidents, validator: validate, logger: logger}
}

// List returns the routes of an existing accident.
func (s *RouteService) List(ctx context.Context, accidentID string) ([]models.Route, error) {
	if _, err := s.accidents.FindByID(ctx, accidentID); err != nil {
		return nil, notFoundOr(err, "accident")
	}
	routes, err := s.repo.ListByAccident(ctx, accidentID)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to list routes")
	}
	return routes, nil
}

// Create attaches a route to an accident. Routes start open unless stated otherwise.
func (s *RouteService) Create(ctx context.Context, actor policy.Actor, accidentID string, req dto.CreateRouteRequest) (*models.Route, error) {
	if !policy.CanPerform(actor, policy.Resource{}, policy.ActionManageRoutes).Allowed {
		return nil, forbidden("Only officers and admins can manage routes.")
	}
	req.RouteName = sanitize.Text(req.RouteName)
	if err := s.validator.Struct(req); err != nil {
		return nil, invalidPayload(err)
	}
	if _, err := s.accidents.FindByID(ctx, accidentID); err != nil {
		return nil, notFoundOr(err, "accident")
	}

	route := &models.Route{AccidentID: accidentID, RouteName: req.RouteName}
	if req.IsClosed != nil {
		route.IsClosed = *req.IsClosed
	}
	if err := s.repo.Create(ctx, route); err != nil {
		return nil, appErrors.Internal(err, "failed to create route")
	}
	s.logger.Info("route created", zap.String("route_id", route.ID), zap.String("accident_id", accidentID))
	return route, nil
}

// SetClosed opens or closes a route.
func (s *RouteService) SetClosed(ctx context.Context, actor policy.Actor, routeID string, req dto.UpdateRouteRequest) (*models.Route, error) {
	if !policy.CanPerform(actor, policy.Resource{}, policy.ActionManageRoutes).Allowed {
		return nil, forbidden("Only officers and admins can manage routes.")
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, invalidPayload(err)
	}
	route, err := s.repo.FindByID(ctx, routeID)
	if err != nil {
		return nil, notFoundOr(err, "route")
	}
	if err := s.repo.SetClosed(ctx, route.ID, *req.IsClosed); err != nil {
		return nil, notFoundOr(err, "route")
	}
	route.IsClosed = *req.IsClosed
	return route, nil
}
