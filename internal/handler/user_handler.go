package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/roadwatch-api/internal/dto"
	"github.com/noah-isme/roadwatch-api/internal/models"
	"github.com/noah-isme/roadwatch-api/internal/policy"
	"github.com/noah-isme/roadwatch-api/pkg/response"
)

type userService interface {
	Profile(ctx context.Context, userID string) (*models.User, []models.PointLog, error)
	Leaderboard(ctx context.Context) ([]models.LeaderboardEntry, error)
	ListUsers(ctx context.Context, actor policy.Actor, filter models.UserFilter) ([]models.User, *response.Pagination, error)
	PendingApplications(ctx context.Context, actor policy.Actor) ([]models.User, error)
	ProcessAdminApplication(ctx context.Context, actorID, targetID, action string) (*models.User, error)
	ProcessOfficerApplication(ctx context.Context, actor policy.Actor, targetID, action string) (*models.User, error)
	Ban(ctx context.Context, actor policy.Actor, targetID, duration string) (*models.User, error)
	DeleteUser(ctx context.Context, actor policy.Actor, targetID string) error
}

// UserHandler serves profile, leaderboard and user moderation endpoints.
type UserHandler struct {
	service userService
}

// NewUserHandler creates a new user handler.
func NewUserHandler(svc userService) *UserHandler {
	return &UserHandler{service: svc}
}

// Profile godoc
// @Summary Current user's profile
// @Tags Users
// @Produce json
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /profile [get]
func (h *UserHandler) Profile(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	user, logs, err := h.service.Profile(c.Request.Context(), actor.ID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, dto.NewProfileView(user, logs))
}

// Leaderboard godoc
// @Summary Top users by points
// @Tags Users
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /leaderboard [get]
func (h *UserHandler) Leaderboard(c *gin.Context) {
	entries, err := h.service.Leaderboard(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, entries)
}

// List godoc
// @Summary List users
// @Tags Admin
// @Produce json
// @Param role query string false "Role filter"
// @Param status query string false "Status filter"
// @Param page query int false "Page number"
// @Param page_size query int false "Page size"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Security BearerAuth
// @Router /admin/users [get]
func (h *UserHandler) List(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	var filter models.UserFilter
	filter.Page, filter.PageSize = pageQuery(c)
	if raw := c.Query("role"); raw != "" {
		if role, ok := models.ParseRole(raw); ok {
			filter.Role = &role
		}
	}
	if raw := c.Query("status"); raw != "" {
		status := models.UserStatus(raw)
		filter.Status = &status
	}

	users, page, err := h.service.ListUsers(c.Request.Context(), actor, filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, dto.NewUserViews(users), page)
}

// Pending godoc
// @Summary List pending officer and admin applications
// @Tags Admin
// @Produce json
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Security BearerAuth
// @Router /admin/pending-officers [get]
func (h *UserHandler) Pending(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	users, err := h.service.PendingApplications(c.Request.Context(), actor)
	if err != nil {
		response.Error(c, err)
		return
	}
	views := make([]dto.PendingApplicationView, 0, len(users))
	for i := range users {
		views = append(views, dto.NewPendingApplicationView(&users[i]))
	}
	response.OK(c, views)
}

// ProcessAdmin godoc
// @Summary Approve or reject an admin application
// @Tags Admin
// @Accept json
// @Produce json
// @Param payload body dto.ProcessApplicationRequest true "Decision"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Security BearerAuth
// @Router /admin/process-admin [post]
func (h *UserHandler) ProcessAdmin(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	var req dto.ProcessApplicationRequest
	if !bindJSON(c, &req, "decision") {
		return
	}
	user, err := h.service.ProcessAdminApplication(c.Request.Context(), actor.ID, req.UserID, req.Action)
	if err != nil {
		response.Error(c, err)
		return
	}
	if user == nil {
		response.OK(c, gin.H{"message": "Admin application rejected and removed."})
		return
	}
	response.OK(c, dto.NewUserView(user))
}

// ProcessOfficer godoc
// @Summary Approve or reject an officer application
// @Tags Admin
// @Accept json
// @Produce json
// @Param payload body dto.ProcessApplicationRequest true "Decision"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Security BearerAuth
// @Router /admin/process-officer [post]
func (h *UserHandler) ProcessOfficer(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	var req dto.ProcessApplicationRequest
	if !bindJSON(c, &req, "decision") {
		return
	}
	user, err := h.service.ProcessOfficerApplication(c.Request.Context(), actor, req.UserID, req.Action)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, dto.NewUserView(user))
}

// Ban godoc
// @Summary Ban or unban a user
// @Tags Admin
// @Accept json
// @Produce json
// @Param id path string true "User ID"
// @Param payload body dto.BanRequest true "1day, 1week, permanent or unban"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Security BearerAuth
// @Router /admin/users/{id}/ban [post]
func (h *UserHandler) Ban(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	var req dto.BanRequest
	if !bindJSON(c, &req, "ban") {
		return
	}
	user, err := h.service.Ban(c.Request.Context(), actor, c.Param("id"), req.Duration)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, dto.NewUserView(user))
}

// Delete godoc
// @Summary Delete a user
// @Tags Admin
// @Param id path string true "User ID"
// @Success 204
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Security BearerAuth
// @Router /admin/users/{id} [delete]
func (h *UserHandler) Delete(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	if err := h.service.DeleteUser(c.Request.Context(), actor, c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
