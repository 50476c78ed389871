package handler

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/roadwatch-api/internal/dto"
	"github.com/noah-isme/roadwatch-api/internal/models"
	appErrors "github.com/noah-isme/roadwatch-api/pkg/errors"
	"github.com/noah-isme/roadwatch-api/pkg/response"
)

type authService interface {
	Login(ctx context.Context, req dto.LoginRequest) (*dto.TokenResponse, error)
	Refresh(ctx context.Context, req dto.RefreshRequest) (*dto.TokenResponse, error)
	Logout(ctx context.Context, claims *models.JWTClaims, refreshToken string) error
}

type registrationService interface {
	RegisterUser(ctx context.Context, req dto.RegisterRequest) (*models.User, error)
	ApplyOfficer(ctx context.Context, req dto.OfficerApplicationRequest) (*models.User, error)
	RegisterAdmin(ctx context.Context, req dto.AdminApplicationRequest) (*models.User, error)
}

// AuthHandler wires HTTP endpoints to the auth and registration flows.
type AuthHandler struct {
	auth  authService
	users registrationService
}

// NewAuthHandler creates a new handler.
func NewAuthHandler(auth authService, users registrationService) *AuthHandler {
	return &AuthHandler{auth: auth, users: users}
}

// Register godoc
// @Summary Register a user account
// @Tags Authentication
// @Accept json
// @Produce json
// @Param payload body dto.RegisterRequest true "Registration payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /auth/register [post]
func (h *AuthHandler) Register(c *gin.Context) {
	var req dto.RegisterRequest
	if !bindJSON(c, &req, "registration") {
		return
	}
	user, err := h.users.RegisterUser(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, registration(user, "Registration successful."))
}

// ApplyOfficer godoc
// @Summary Apply for an officer account
// @Tags Authentication
// @Accept json
// @Produce json
// @Param payload body dto.OfficerApplicationRequest true "Application payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /auth/apply-officer [post]
func (h *AuthHandler) ApplyOfficer(c *gin.Context) {
	var req dto.OfficerApplicationRequest
	if !bindJSON(c, &req, "application") {
		return
	}
	user, err := h.users.ApplyOfficer(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, registration(user, "Application submitted. An administrator will review it."))
}

// RegisterAdmin godoc
// @Summary Apply for an admin account with an invite code
// @Tags Authentication
// @Accept json
// @Produce json
// @Param payload body dto.AdminApplicationRequest true "Admin application payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /auth/register-admin [post]
func (h *AuthHandler) RegisterAdmin(c *gin.Context) {
	var req dto.AdminApplicationRequest
	if !bindJSON(c, &req, "admin application") {
		return
	}
	user, err := h.users.RegisterAdmin(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, registration(user, "Admin application submitted. Await approval from an existing administrator."))
}

func registration(user *models.User, message string) dto.RegistrationResponse {
	return dto.RegistrationResponse{
		Message:  message,
		Username: user.Username,
		Role:     string(user.Role),
		Status:   string(user.Status),
	}
}

// Login godoc
// @Summary Authenticate user
// @Tags Authentication
// @Accept json
// @Produce json
// @Param payload body dto.LoginRequest true "Login payload"
// @Success 200 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /auth/login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	var req dto.LoginRequest
	if !bindJSON(c, &req, "login") {
		return
	}
	res, err := h.auth.Login(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, res)
}

// Refresh godoc
// @Summary Rotate tokens
// @Tags Authentication
// @Accept json
// @Produce json
// @Param payload body dto.RefreshRequest true "Refresh payload"
// @Success 200 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Router /auth/refresh [post]
func (h *AuthHandler) Refresh(c *gin.Context) {
	var req dto.RefreshRequest
	if !bindJSON(c, &req, "refresh") {
		return
	}
	res, err := h.auth.Refresh(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, res)
}

// Logout godoc
// @Summary Revoke the current tokens
// @Tags Authentication
// @Accept json
// @Param payload body dto.LogoutRequest false "Refresh token to revoke"
// @Success 204
// @Failure 401 {object} response.Envelope
// @Security BearerAuth
// @Router /auth/logout [post]
func (h *AuthHandler) Logout(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req dto.LogoutRequest
	if c.Request.ContentLength > 0 && !bindJSON(c, &req, "logout") {
		return
	}
	if err := h.auth.Logout(c.Request.Context(), claims, req.RefreshToken); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
