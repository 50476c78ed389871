package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/roadwatch-api/internal/models"
	"github.com/noah-isme/roadwatch-api/pkg/database"
)

// RouteRepository provides database access for affected routes.
type RouteRepository struct {
	db *sqlx.DB
}

// NewRouteRepository creates a new RouteRepository.
func NewRouteRepository(db *sqlx.DB) *RouteRepository {
	return &RouteRepository{db: db}
}

// Create inserts a route.
func (r *RouteRepository) Create(ctx context.Context, route *models.Route) error {
	if route.ID == "" {
		route.ID = uuid.NewString()
	}
	const query = `INSERT INTO routes (id, accident_id, route_name, is_closed) VALUES (:id, :accident_id, :route_name, :is_closed)`
	if _, err := database.Conn(ctx, r.db).NamedExecContext(ctx, query, route); err != nil {
		return fmt.Errorf("create route: %w", err)
	}
	return nil
}

// FindByID returns a route.
func (r *RouteRepository) FindByID(ctx context.Context, id string) (*models.Route, error) {
	if !validID(id) {
		return nil, sql.ErrNoRows
	}
	var route models.Route
	const query = `SELECT id, accident_id, route_name, is_closed FROM routes WHERE id = $1`
	if err := database.Conn(ctx, r.db).GetContext(ctx, &route, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find route: %w", err)
	}
	return &route, nil
}

// ListByAccident returns the routes affected by an accident.
func (r *RouteRepository) ListByAccident(ctx context.Context, accidentID string) ([]models.Route, error) {
	const query = `SELECT id, accident_id, route_name, is_closed FROM routes WHERE accident_id = $1 ORDER BY route_name ASC`
	var routes []models.Route
	if err := database.Conn(ctx, r.db).SelectContext(ctx, &routes, query, accidentID); err != nil {
		return nil, fmt.Errorf("list routes: %w", err)
	}
	return routes, nil
}

// SetClosed opens or closes a route.
func (r *RouteRepository) SetClosed(ctx context.Context, id string, closed bool) error {
	res, err := database.Conn(ctx, r.db).ExecContext(ctx, `UPDATE routes SET is_closed = $2 WHERE id = $1`, id, closed)
	if err != nil {
		return fmt.Errorf("update route: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// DeleteByAccident removes every route of an accident.
func (r *RouteRepository) DeleteByAccident(ctx context.Context, accidentID string) error {
	if _, err := database.Conn(ctx, r.db).ExecContext(ctx, `DELETE FROM routes WHERE accident_id = $1`, accidentID); err != nil {
		return fmt.Errorf("delete accident routes: %w", err)
	}
	return nil
}
