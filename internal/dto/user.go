package dto

import (
	"time"

	"github.com/noah-isme/roadwatch-api/internal/models"
)

// ProcessApplicationRequest carries a moderation decision on an application.
type ProcessApplicationRequest struct {
	UserID string `json:"user_id" validate:"required"`
	Action string `json:"action" validate:"required"`
}

// BanRequest carries the ban duration key.
type BanRequest struct {
	Duration string `json:"duration" validate:"required"`
}

// UserView is the representation of a user. ID is omitted for admins.
type UserView struct {
	ID          string     `json:"id,omitempty"`
	Username    string     `json:"username"`
	Email       *string    `json:"email,omitempty"`
	Role        string     `json:"role"`
	Status      string     `json:"status"`
	Points      int        `json:"points"`
	Badges      []string   `json:"badges"`
	BannedUntil *time.Time `json:"banned_until,omitempty"`
	Institution *string    `json:"institution,omitempty"`
	BadgeNumber *string    `json:"badge_number,omitempty"`
	FullName    *string    `json:"full_name,omitempty"`
	Department  *string    `json:"department,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

// NewUserView maps a stored user.
func NewUserView(u *models.User) UserView {
	v := UserView{
		ID:          u.ID,
		Username:    u.Username,
		Email:       u.Email,
		Role:        string(u.Role),
		Status:      string(u.Status),
		Points:      u.Points,
		Badges:      append([]string{}, u.Badges...),
		BannedUntil: u.BannedUntil,
		Institution: u.Institution,
		BadgeNumber: u.BadgeNumber,
		FullName:    u.FullName,
		Department:  u.Department,
		CreatedAt:   u.CreatedAt,
	}
	if u.Role == models.RoleAdmin {
		v.ID = ""
	}
	return v
}

// NewUserViews maps a list of users.
func NewUserViews(users []models.User) []UserView {
	views := make([]UserView, 0, len(users))
	for i := range users {
		views = append(views, NewUserView(&users[i]))
	}
	return views
}

// PendingApplicationView is a row of the pending applications listing.
type PendingApplicationView struct {
	ID            string  `json:"id,omitempty"`
	Username      string  `json:"username"`
	Email         *string `json:"email,omitempty"`
	Institution   *string `json:"institution,omitempty"`
	BadgeNumber   *string `json:"badge_number,omitempty"`
	RoleRequested string  `json:"role_requested"`
}

// NewPendingApplicationView maps a pending user. Admin applicants keep their ID private.
func NewPendingApplicationView(u *models.User) PendingApplicationView {
	v := PendingApplicationView{
		ID:            u.ID,
		Username:      u.Username,
		Email:         u.Email,
		Institution:   u.Institution,
		BadgeNumber:   u.BadgeNumber,
		RoleRequested: string(models.RoleOfficer),
	}
	if u.Role == models.RoleAdmin {
		v.ID = ""
		v.RoleRequested = string(models.RoleAdmin)
	}
	return v
}

// PointLogView is one ledger entry in a profile.
type PointLogView struct {
	Amount    int       `json:"amount"`
	Reason    string    `json:"reason"`
	CreatedAt time.Time `json:"created_at"`
}

// ProfileView is the current user's profile with recent point activity.
type ProfileView struct {
	UserView
	RecentPoints []PointLogView `json:"recent_points"`
}

// NewProfileView maps the current user and their recent point history.
func NewProfileView(u *models.User, logs []models.PointLog) ProfileView {
	recent := make([]PointLogView, 0, len(logs))
	for _, l := range logs {
		recent = append(recent, PointLogView{Amount: l.Amount, Reason: l.Reason, CreatedAt: l.CreatedAt})
	}
	return ProfileView{UserView: NewUserView(u), RecentPoints: recent}
}
