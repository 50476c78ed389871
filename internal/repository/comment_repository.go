package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/roadwatch-api/internal/models"
	"github.com/noah-isme/roadwatch-api/pkg/database"
)

// CommentRepository provides database access for accident comments.
type CommentRepository struct {
	db *sqlx.DB
}

// NewCommentRepository creates a new CommentRepository.
func NewCommentRepository(db *sqlx.DB) *CommentRepository {
	return &CommentRepository{db: db}
}

// Create inserts a comment. The caller assigns the ID.
func (r *CommentRepository) Create(ctx context.Context, comment *models.Comment) error {
	if comment.CreatedAt.IsZero() {
		comment.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO comments (id, accident_id, user_id, content, created_at) VALUES (:id, :accident_id, :user_id, :content, :created_at)`
	if _, err := database.Conn(ctx, r.db).NamedExecContext(ctx, query, comment); err != nil {
		return fmt.Errorf("create comment: %w", err)
	}
	return nil
}

// FindByID returns a comment.
func (r *CommentRepository) FindByID(ctx context.Context, id int64) (*models.Comment, error) {
	var comment models.Comment
	const query = `SELECT id, accident_id, user_id, content, created_at FROM comments WHERE id = $1`
	if err := database.Conn(ctx, r.db).GetContext(ctx, &comment, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find comment: %w", err)
	}
	return &comment, nil
}

// ListByAccident returns the comments of an accident oldest-first with author summaries.
func (r *CommentRepository) ListByAccident(ctx context.Context, accidentID string) ([]models.CommentDetail, error) {
	const query = `SELECT c.id, c.accident_id, c.user_id, c.content, c.created_at, u.username AS author_username, u.role AS author_role
FROM comments c
LEFT JOIN users u ON u.id = c.user_id
WHERE c.accident_id = $1
ORDER BY c.created_at ASC, c.id ASC`
	var comments []models.CommentDetail
	if err := database.Conn(ctx, r.db).SelectContext(ctx, &comments, query, accidentID); err != nil {
		return nil, fmt.Errorf("list comments: %w", err)
	}
	return comments, nil
}

// Delete removes a comment.
func (r *CommentRepository) Delete(ctx context.Context, id int64) error {
	res, err := database.Conn(ctx, r.db).ExecContext(ctx, `DELETE FROM comments WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete comment: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// DeleteByAccident removes every comment of an accident.
func (r *CommentRepository) DeleteByAccident(ctx context.Context, accidentID string) error {
	if _, err := database.Conn(ctx, r.db).ExecContext(ctx, `DELETE FROM comments WHERE accident_id = $1`, accidentID); err != nil {
		return fmt.Errorf("delete accident comments: %w", err)
	}
	return nil
}
