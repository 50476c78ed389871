package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/roadwatch-api/internal/models"
	"github.com/noah-isme/roadwatch-api/pkg/database"
)

const userColumns = `id, username, password_hash, email, role, status, points, badges, banned_until, institution, badge_number, full_name, department, created_at, updated_at`

// UserRepository provides database access for users.
type UserRepository struct {
	db *sqlx.DB
}

// NewUserRepository creates a new instance of UserRepository.
func NewUserRepository(db *sqlx.DB) *UserRepository {
	return &UserRepository{db: db}
}

// FindByID returns a user by identifier.
func (r *UserRepository) FindByID(ctx context.Context, id string) (*models.User, error) {
	if !validID(id) {
		return nil, sql.ErrNoRows
	}
	return r.findOne(ctx, "find user by id", `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
}

// FindByIDForUpdate locks the user row for the rest of the surrounding transaction.
func (r *UserRepository) FindByIDForUpdate(ctx context.Context, id string) (*models.User, error) {
	if !validID(id) {
		return nil, sql.ErrNoRows
	}
	return r.findOne(ctx, "lock user", `SELECT `+userColumns+` FROM users WHERE id = $1 FOR UPDATE`, id)
}

// FindByUsername returns a user by username.
func (r *UserRepository) FindByUsername(ctx context.Context, username string) (*models.User, error) {
	return r.findOne(ctx, "find user by username", `SELECT `+userColumns+` FROM users WHERE username = $1`, username)
}

// validID reports whether id can match a UUID key. Anything else cannot exist.
func validID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

func (r *UserRepository) findOne(ctx context.Context, op, query string, arg interface{}) (*models.User, error) {
	var user models.User
	if err := database.Conn(ctx, r.db).GetContext(ctx, &user, query, arg); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &user, nil
}

// UsernameTaken reports whether username is already registered.
func (r *UserRepository) UsernameTaken(ctx context.Context, username string) (bool, error) {
	return r.exists(ctx, `SELECT EXISTS(SELECT 1 FROM users WHERE username = $1)`, username)
}

// EmailTaken reports whether email is already registered (case-insensitive).
func (r *UserRepository) EmailTaken(ctx context.Context, email string) (bool, error) {
	return r.exists(ctx, `SELECT EXISTS(SELECT 1 FROM users WHERE LOWER(email) = LOWER($1))`, email)
}

// BadgeNumberTaken reports whether an officer badge number is already registered.
func (r *UserRepository) BadgeNumberTaken(ctx context.Context, badgeNumber string) (bool, error) {
	return r.exists(ctx, `SELECT EXISTS(SELECT 1 FROM users WHERE badge_number = $1)`, badgeNumber)
}

func (r *UserRepository) exists(ctx context.Context, query string, arg interface{}) (bool, error) {
	var found bool
	if err := database.Conn(ctx, r.db).GetContext(ctx, &found, query, arg); err != nil {
		return false, fmt.Errorf("check user uniqueness: %w", err)
	}
	return found, nil
}

// Create inserts a new user, filling ID and timestamps when empty.
func (r *UserRepository) Create(ctx context.Context, user *models.User) error {
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if user.CreatedAt.IsZero() {
		user.CreatedAt = now
	}
	user.UpdatedAt = user.CreatedAt
	if user.Badges == nil {
		user.Badges = pq.StringArray{}
	}

	const query = `INSERT INTO users (` + userColumns + `) VALUES (:id, :username, :password_hash, :email, :role, :status, :points, :badges, :banned_until, :institution, :badge_number, :full_name, :department, :created_at, :updated_at)`
	if _, err := database.Conn(ctx, r.db).NamedExecContext(ctx, query, user); err != nil {
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

// UpdateStatus sets the approval status of a user.
func (r *UserRepository) UpdateStatus(ctx context.Context, id string, status models.UserStatus) error {
	const query = `UPDATE users SET status = $2, updated_at = NOW() WHERE id = $1`
	return r.execAffectingOne(ctx, "update user status", query, id, status)
}

// UpdateRoleAndStatus sets role and status in a single statement.
func (r *UserRepository) UpdateRoleAndStatus(ctx context.Context, id string, role models.Role, status models.UserStatus) error {
	const query = `UPDATE users SET role = $2, status = $3, updated_at = NOW() WHERE id = $1`
	return r.execAffectingOne(ctx, "update user role", query, id, role, status)
}

// UpdateScore stores the points total and badge set of a user.
func (r *UserRepository) UpdateScore(ctx context.Context, id string, points int, badges []string) error {
	const query = `UPDATE users SET points = $2, badges = $3, updated_at = NOW() WHERE id = $1`
	return r.execAffectingOne(ctx, "update user score", query, id, points, pq.StringArray(badges))
}

// SetBannedUntil sets or clears (nil) the ban expiry of a user.
func (r *UserRepository) SetBannedUntil(ctx context.Context, id string, until *time.Time) error {
	const query = `UPDATE users SET banned_until = $2, updated_at = NOW() WHERE id = $1`
	return r.execAffectingOne(ctx, "update user ban", query, id, until)
}

// ClearExpiredBans resets bans that ended before now and returns how many were cleared.
func (r *UserRepository) ClearExpiredBans(ctx context.Context, now time.Time) (int64, error) {
	const query = `UPDATE users SET banned_until = NULL, updated_at = NOW() WHERE banned_until IS NOT NULL AND banned_until <= $1`
	res, err := database.Conn(ctx, r.db).ExecContext(ctx, query, now)
	if err != nil {
		return 0, fmt.Errorf("clear expired bans: %w", err)
	}
	return res.RowsAffected()
}

// Delete removes a user permanently.
func (r *UserRepository) Delete(ctx context.Context, id string) error {
	return r.execAffectingOne(ctx, "delete user", `DELETE FROM users WHERE id = $1`, id)
}

func (r *UserRepository) execAffectingOne(ctx context.Context, op, query string, args ...interface{}) error {
	res, err := database.Conn(ctx, r.db).ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// List returns users based on filters with total count.
func (r *UserRepository) List(ctx context.Context, filter models.UserFilter) ([]models.User, int, error) {
	baseQuery := `FROM users WHERE 1=1`
	var conditions []string
	var args []interface{}

	if filter.Role != nil {
		args = append(args, *filter.Role)
		conditions = append(conditions, fmt.Sprintf("role = $%d", len(args)))
	}
	if filter.Status != nil {
		args = append(args, *filter.Status)
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)))
	}
	if len(conditions) > 0 {
		baseQuery += " AND " + strings.Join(conditions, " AND ")
	}

	page, pageSize := normalisePage(filter.Page, filter.PageSize)
	listQuery := fmt.Sprintf("SELECT %s %s ORDER BY created_at DESC LIMIT %d OFFSET %d", userColumns, baseQuery, pageSize, (page-1)*pageSize)

	conn := database.Conn(ctx, r.db)
	var users []models.User
	if err := conn.SelectContext(ctx, &users, listQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("list users: %w", err)
	}

	var total int
	if err := conn.GetContext(ctx, &total, "SELECT COUNT(*) "+baseQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count users: %w", err)
	}

	return users, total, nil
}

// ListPending returns every user whose application awaits a decision, oldest first.
func (r *UserRepository) ListPending(ctx context.Context) ([]models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE status = $1 ORDER BY created_at ASC`
	var users []models.User
	if err := database.Conn(ctx, r.db).SelectContext(ctx, &users, query, models.UserStatusPending); err != nil {
		return nil, fmt.Errorf("list pending users: %w", err)
	}
	return users, nil
}

// TopByPoints returns the highest scoring users, ties broken by earliest sign-up.
func (r *UserRepository) TopByPoints(ctx context.Context, limit int) ([]models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users ORDER BY points DESC, created_at ASC LIMIT $1`
	var users []models.User
	if err := database.Conn(ctx, r.db).SelectContext(ctx, &users, query, limit); err != nil {
		return nil, fmt.Errorf("list leaderboard: %w", err)
	}
	return users, nil
}

func normalisePage(page, pageSize int) (int, int) {
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 20
	}
	if pageSize > 100 {
		pageSize = 100
	}
	return page, pageSize
}
