package dto

import "time"

// RegisterRequest is the payload of POST /auth/register. Role is only read to reject privileged sign-ups.
type RegisterRequest struct {
	Username string `json:"username" validate:"required,min=3,max=80"`
	Password string `json:"password" validate:"required,password_policy"`
	Email    string `json:"email" validate:"omitempty,email"`
	Role     string `json:"role"`
}

// OfficerApplicationRequest is the payload of POST /auth/apply-officer.
type OfficerApplicationRequest struct {
	Username    string `json:"username" validate:"required,min=3,max=80"`
	Password    string `json:"password" validate:"required,password_policy"`
	Email       string `json:"email" validate:"required,email"`
	Institution string `json:"institution" validate:"required,max=120"`
	BadgeNumber string `json:"badge_number" validate:"required,max=50"`
}

// AdminApplicationRequest is the payload of POST /auth/register-admin.
type AdminApplicationRequest struct {
	Username         string `json:"username" validate:"required,min=3,max=80"`
	Password         string `json:"password" validate:"required,password_policy"`
	FullName         string `json:"full_name" validate:"required,max=120"`
	Department       string `json:"department" validate:"required,max=120"`
	SecretInviteCode string `json:"secret_invite_code" validate:"required"`
}

// LoginRequest holds credentials for authenticating a user.
type LoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// RefreshRequest exchanges a refresh token for a new pair.
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

// LogoutRequest optionally carries the refresh token to revoke with the access token.
type LogoutRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// TokenResponse returns issued tokens and the effective role.
type TokenResponse struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	ExpiresIn    int64     `json:"expires_in"`
	IssuedAt     time.Time `json:"issued_at"`
	Role         string    `json:"role"`
	Username     string    `json:"username"`
}

// RegistrationResponse acknowledges a sign-up or application.
type RegistrationResponse struct {
	Message  string `json:"message"`
	Username string `json:"username"`
	Role     string `json:"role"`
	Status   string `json:"status"`
}
