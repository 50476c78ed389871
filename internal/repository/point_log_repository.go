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

// PointLogRepository appends rows to the point ledger.
type PointLogRepository struct {
	db *sqlx.DB
}

// NewPointLogRepository creates a new PointLogRepository.
func NewPointLogRepository(db *sqlx.DB) *PointLogRepository {
	return &PointLogRepository{db: db}
}

// Create appends a ledger row.
func (r *PointLogRepository) Create(ctx context.Context, entry *models.PointLog) error {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO point_logs (id, user_id, amount, reason, created_at) VALUES (:id, :user_id, :amount, :reason, :created_at)`
	if _, err := database.Conn(ctx, r.db).NamedExecContext(ctx, query, entry); err != nil {
		return fmt.Errorf("create point log: %w", err)
	}
	return nil
}

// ListByUser returns a user's ledger newest-first.
func (r *PointLogRepository) ListByUser(ctx context.Context, userID string, limit int) ([]models.PointLog, error) {
	const query = `SELECT id, user_id, amount, reason, created_at FROM point_logs WHERE user_id = $1 ORDER BY created_at DESC LIMIT $2`
	var logs []models.PointLog
	if err := database.Conn(ctx, r.db).SelectContext(ctx, &logs, query, userID, limit); err != nil {
		return nil, fmt.Errorf("list point logs: %w", err)
	}
	return logs, nil
}
