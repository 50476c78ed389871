package handler

import (
	"context"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/roadwatch-api/internal/dto"
	"github.com/noah-isme/roadwatch-api/internal/gamification"
	"github.com/noah-isme/roadwatch-api/internal/models"
	"github.com/noah-isme/roadwatch-api/internal/policy"
	appErrors "github.com/noah-isme/roadwatch-api/pkg/errors"
	"github.com/noah-isme/roadwatch-api/pkg/response"
)

type commentService interface {
	List(ctx context.Context, accidentID string) ([]models.CommentDetail, error)
	Create(ctx context.Context, authorID, accidentID string, req dto.CreateCommentRequest) (*models.CommentDetail, error)
	Delete(ctx context.Context, actor policy.Actor, commentID int64) error
	Upvote(ctx context.Context, actor policy.Actor, commentID int64) (*gamification.Result, error)
}

// CommentHandler serves accident comments.
type CommentHandler struct {
	service commentService
}

// NewCommentHandler creates a handler.
func NewCommentHandler(svc commentService) *CommentHandler {
	return &CommentHandler{service: svc}
}

// List godoc
// @Summary List comments of an accident
// @Tags Comments
// @Produce json
// @Param id path string true "Accident ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /accidents/{id}/comments [get]
func (h *CommentHandler) List(c *gin.Context) {
	items, err := h.service.List(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, dto.NewCommentViews(items))
}

// Create godoc
// @Summary Comment on an accident
// @Tags Comments
// @Accept json
// @Produce json
// @Param id path string true "Accident ID"
// @Param payload body dto.CreateCommentRequest true "Comment"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Security BearerAuth
// @Router /accidents/{id}/comments [post]
func (h *CommentHandler) Create(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	var req dto.CreateCommentRequest
	if !bindJSON(c, &req, "comment") {
		return
	}
	comment, err := h.service.Create(c.Request.Context(), actor.ID, c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, dto.NewCommentView(*comment))
}

// Delete godoc
// @Summary Delete a comment
// @Tags Comments
// @Param id path string true "Comment ID"
// @Success 204
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Security BearerAuth
// @Router /comments/{id} [delete]
func (h *CommentHandler) Delete(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	id, ok := commentID(c)
	if !ok {
		return
	}
	if err := h.service.Delete(c.Request.Context(), actor, id); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Upvote godoc
// @Summary Upvote a comment, rewarding its author
// @Tags Comments
// @Produce json
// @Param id path string true "Comment ID"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Security BearerAuth
// @Router /comments/{id}/upvote [post]
func (h *CommentHandler) Upvote(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	id, ok := commentID(c)
	if !ok {
		return
	}
	res, err := h.service.Upvote(c.Request.Context(), actor, id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, dto.NewPointsAwardView(*res))
}

func commentID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrNotFound, "comment not found"))
		return 0, false
	}
	return id, true
}
