package models

import (
	"strings"
	"time"

	"github.com/lib/pq"
)

// Role is the closed set of user roles.
type Role string

const (
	RoleUser    Role = "user"
	RoleOfficer Role = "officer"
	RoleAdmin   Role = "admin"
)

// ParseRole maps raw (case-insensitive) onto a Role.
func ParseRole(raw string) (Role, bool) {
	switch Role(strings.ToLower(strings.TrimSpace(raw))) {
	case RoleUser:
		return RoleUser, true
	case RoleOfficer:
		return RoleOfficer, true
	case RoleAdmin:
		return RoleAdmin, true
	}
	return "", false
}

// UserStatus tracks application approval.
type UserStatus string

const (
	UserStatusPending  UserStatus = "pending"
	UserStatusApproved UserStatus = "approved"
	UserStatusRejected UserStatus = "rejected"
)

// User represents a row of the users table.
type User struct {
	ID           string         `db:"id"`
	Username     string         `db:"username"`
	PasswordHash string         `db:"password_hash"`
	Email        *string        `db:"email"`
	Role         Role           `db:"role"`
	Status       UserStatus     `db:"status"`
	Points       int            `db:"points"`
	Badges       pq.StringArray `db:"badges"`
	BannedUntil  *time.Time     `db:"banned_until"`
	Institution  *string        `db:"institution"`
	BadgeNumber  *string        `db:"badge_number"`
	FullName     *string        `db:"full_name"`
	Department   *string        `db:"department"`
	CreatedAt    time.Time      `db:"created_at"`
	UpdatedAt    time.Time      `db:"updated_at"`
}

// IsBanned reports whether the ban is still in force at now.
func (u *User) IsBanned(now time.Time) bool {
	return u.BannedUntil != nil && u.BannedUntil.After(now)
}

// UserFilter captures filtering criteria for listing users.
type UserFilter struct {
	Role     *Role
	Status   *UserStatus
	Page     int
	PageSize int
}

// LeaderboardEntry is one ranked row of the public leaderboard.
type LeaderboardEntry struct {
	Rank     int      `json:"rank"`
	Username string   `json:"username"`
	Points   int      `json:"points"`
	Badges   []string `json:"badges"`
}
