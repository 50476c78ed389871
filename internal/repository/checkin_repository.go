package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/roadwatch-api/internal/models"
	"github.com/noah-isme/roadwatch-api/pkg/database"
)

// CheckInRepository provides database access for safe-zone check-ins.
type CheckInRepository struct {
	db *sqlx.DB
}

// NewCheckInRepository creates a new CheckInRepository.
func NewCheckInRepository(db *sqlx.DB) *CheckInRepository {
	return &CheckInRepository{db: db}
}

// Create inserts a check-in.
func (r *CheckInRepository) Create(ctx context.Context, checkIn *models.CheckIn) error {
	if checkIn.ID == "" {
		checkIn.ID = uuid.NewString()
	}
	if checkIn.CreatedAt.IsZero() {
		checkIn.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO checkins (id, user_id, latitude, longitude, location_name, created_at) VALUES (:id, :user_id, :latitude, :longitude, :location_name, :created_at)`
	if _, err := database.Conn(ctx, r.db).NamedExecContext(ctx, query, checkIn); err != nil {
		return fmt.Errorf("create checkin: %w", err)
	}
	return nil
}

// ListRecent returns the newest check-ins, at most limit rows.
func (r *CheckInRepository) ListRecent(ctx context.Context, limit int) ([]models.CheckIn, error) {
	const query = `SELECT id, user_id, latitude, longitude, location_name, created_at FROM checkins ORDER BY created_at DESC LIMIT $1`
	var items []models.CheckIn
	if err := database.Conn(ctx, r.db).SelectContext(ctx, &items, query, limit); err != nil {
		return nil, fmt.Errorf("list checkins: %w", err)
	}
	return items, nil
}
