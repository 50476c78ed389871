package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/roadwatch-api/internal/models"
	"github.com/noah-isme/roadwatch-api/pkg/database"
)

const accidentColumns = `id, user_id, latitude, longitude, description, severity, casualties_dead, casualties_injured, status, verified_by, photo_url, is_anonymous, created_at`

const accidentDetailSelect = `SELECT a.id, a.user_id, a.latitude, a.longitude, a.description, a.severity, a.casualties_dead, a.casualties_injured,
	a.status, a.verified_by, a.photo_url, a.is_anonymous, a.created_at,
	r.username AS reporter_username, r.role AS reporter_role, v.username AS verifier_username, v.role AS verifier_role
FROM accidents a
LEFT JOIN users r ON r.id = a.user_id
LEFT JOIN users v ON v.id = a.verified_by`

// AccidentRepository provides database access for accident reports.
type AccidentRepository struct {
	db *sqlx.DB
}

// NewAccidentRepository creates a new AccidentRepository.
func NewAccidentRepository(db *sqlx.DB) *AccidentRepository {
	return &AccidentRepository{db: db}
}

// Create inserts a report, filling ID and created_at when empty.
func (r *AccidentRepository) Create(ctx context.Context, accident *models.Accident) error {
	if accident.ID == "" {
		accident.ID = uuid.NewString()
	}
	if accident.CreatedAt.IsZero() {
		accident.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO accidents (` + accidentColumns + `) VALUES (:id, :user_id, :latitude, :longitude, :description, :severity, :casualties_dead, :casualties_injured, :status, :verified_by, :photo_url, :is_anonymous, :created_at)`
	if _, err := database.Conn(ctx, r.db).NamedExecContext(ctx, query, accident); err != nil {
		return fmt.Errorf("create accident: %w", err)
	}
	return nil
}

// FindByID returns the bare report row.
func (r *AccidentRepository) FindByID(ctx context.Context, id string) (*models.Accident, error) {
	if !validID(id) {
		return nil, sql.ErrNoRows
	}
	var accident models.Accident
	query := `SELECT ` + accidentColumns + ` FROM accidents WHERE id = $1`
	if err := database.Conn(ctx, r.db).GetContext(ctx, &accident, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find accident: %w", err)
	}
	return &accident, nil
}

// FindByIDForUpdate locks the report row for the surrounding transaction.
func (r *AccidentRepository) FindByIDForUpdate(ctx context.Context, id string) (*models.Accident, error) {
	if !validID(id) {
		return nil, sql.ErrNoRows
	}
	var accident models.Accident
	query := `SELECT ` + accidentColumns + ` FROM accidents WHERE id = $1 FOR UPDATE`
	if err := database.Conn(ctx, r.db).GetContext(ctx, &accident, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("lock accident: %w", err)
	}
	return &accident, nil
}

// FindDetail returns the report with reporter and verifier summaries.
func (r *AccidentRepository) FindDetail(ctx context.Context, id string) (*models.AccidentDetail, error) {
	if !validID(id) {
		return nil, sql.ErrNoRows
	}
	var detail models.AccidentDetail
	if err := database.Conn(ctx, r.db).GetContext(ctx, &detail, accidentDetailSelect+` WHERE a.id = $1`, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find accident detail: %w", err)
	}
	return &detail, nil
}

// List returns a newest-first page of reports and the total matching count.
func (r *AccidentRepository) List(ctx context.Context, filter models.AccidentFilter) ([]models.AccidentDetail, int, error) {
	where, args := accidentWhere(filter)
	page, pageSize := normalisePage(filter.Page, filter.PageSize)

	conn := database.Conn(ctx, r.db)
	query := fmt.Sprintf("%s%s ORDER BY a.created_at DESC LIMIT %d OFFSET %d", accidentDetailSelect, where, pageSize, (page-1)*pageSize)
	var items []models.AccidentDetail
	if err := conn.SelectContext(ctx, &items, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list accidents: %w", err)
	}

	var total int
	if err := conn.GetContext(ctx, &total, "SELECT COUNT(*) FROM accidents a"+where, args...); err != nil {
		return nil, 0, fmt.Errorf("count accidents: %w", err)
	}
	return items, total, nil
}

// ListAll returns every matching report newest-first, used for exports.
func (r *AccidentRepository) ListAll(ctx context.Context, filter models.AccidentFilter) ([]models.AccidentDetail, error) {
	where, args := accidentWhere(filter)
	var items []models.AccidentDetail
	if err := database.Conn(ctx, r.db).SelectContext(ctx, &items, accidentDetailSelect+where+" ORDER BY a.created_at DESC", args...); err != nil {
		return nil, fmt.Errorf("list accidents for export: %w", err)
	}
	return items, nil
}

func accidentWhere(filter models.AccidentFilter) (string, []interface{}) {
	if filter.Status == nil {
		return "", nil
	}
	return " WHERE a.status = $1", []interface{}{*filter.Status}
}

// CountByUser returns how many reports userID has filed.
func (r *AccidentRepository) CountByUser(ctx context.Context, userID string) (int, error) {
	var count int
	if err := database.Conn(ctx, r.db).GetContext(ctx, &count, `SELECT COUNT(*) FROM accidents WHERE user_id = $1`, userID); err != nil {
		return 0, fmt.Errorf("count user accidents: %w", err)
	}
	return count, nil
}

// LatestByUser returns the creation time of the newest report by userID, or nil.
func (r *AccidentRepository) LatestByUser(ctx context.Context, userID string) (*time.Time, error) {
	var latest sql.NullTime
	if err := database.Conn(ctx, r.db).GetContext(ctx, &latest, `SELECT MAX(created_at) FROM accidents WHERE user_id = $1`, userID); err != nil {
		return nil, fmt.Errorf("latest user accident: %w", err)
	}
	if !latest.Valid {
		return nil, nil
	}
	return &latest.Time, nil
}

// UpdateStatus records a verification decision.
func (r *AccidentRepository) UpdateStatus(ctx context.Context, id string, status models.AccidentStatus, verifiedBy string) error {
	const query = `UPDATE accidents SET status = $2, verified_by = $3 WHERE id = $1`
	res, err := database.Conn(ctx, r.db).ExecContext(ctx, query, id, status, verifiedBy)
	if err != nil {
		return fmt.Errorf("update accident status: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// Delete removes the report row.
func (r *AccidentRepository) Delete(ctx context.Context, id string) error {
	res, err := database.Conn(ctx, r.db).ExecContext(ctx, `DELETE FROM accidents WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete accident: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return sql.ErrNoRows
	}
	return nil
}
