package service

import (
	"context"
	"errors"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/roadwatch-api/internal/dto"
	"github.com/noah-isme/roadwatch-api/internal/gamification"
	"github.com/noah-isme/roadwatch-api/internal/models"
	"github.com/noah-isme/roadwatch-api/internal/policy"
	appErrors "github.com/noah-isme/roadwatch-api/pkg/errors"
	"github.com/noah-isme/roadwatch-api/pkg/sanitize"
	"github.com/noah-isme/roadwatch-api/pkg/validation"
)

type commentRepository interface {
	Create(ctx context.Context, comment *models.Comment) error
	FindByID(ctx context.Context, id int64) (*models.Comment, error)
	ListByAccident(ctx context.Context, accidentID string) ([]models.CommentDetail, error)
	Delete(ctx context.Context, id int64) error
}

type accidentLookup interface {
	FindByID(ctx context.Context, id string) (*models.Accident, error)
}

type userLookup interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
}

type idGenerator interface {
	Next() int64
}

// CommentService manages remarks on accident reports.
type CommentService struct {
	repo      commentRepository
	accidents accidentLookup
	users     userLookup
	points    pointsAwarder
	ids       idGenerator
	validator *validator.Validate
	logger    *zap.Logger
	now       Clock
}

// NewCommentService creates an instance of CommentService.
func NewCommentService(repo commentRepository, accidents accidentLookup, users userLookup, points pointsAwarder, ids idGenerator, validate *validator.Validate, logger *zap.Logger) *CommentService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validation.New()
	}
	return &CommentService{repo: repo, accidents: accidents, users: users, points: points, ids: ids, validator: validate, logger: logger, now: utcNow}
}

// List returns the comments of an existing accident.
func (s *CommentService) List(ctx context.Context, accidentID string) ([]models.CommentDetail, error) {
	if _, err := s.accidents.FindByID(ctx, accidentID); err != nil {
		return nil, notFoundOr(err, "accident")
	}
	items, err := s.repo.ListByAccident(ctx, accidentID)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to list comments")
	}
	return items, nil
}

// Create posts a comment by authorID.
func (s *CommentService) Create(ctx context.Context, authorID, accidentID string, req dto.CreateCommentRequest) (*models.CommentDetail, error) {
	req.Content = sanitize.Text(req.Content)
	if err := s.validator.Struct(req); err != nil {
		return nil, invalidPayload(err)
	}
	if _, err := s.accidents.FindByID(ctx, accidentID); err != nil {
		return nil, notFoundOr(err, "accident")
	}
	author, err := s.users.FindByID(ctx, authorID)
	if err != nil {
		return nil, notFoundOr(err, "user")
	}

	comment := models.Comment{
		ID:         s.ids.Next(),
		AccidentID: accidentID,
		UserID:     &author.ID,
		Content:    req.Content,
		CreatedAt:  s.now(),
	}
	if err := s.repo.Create(ctx, &comment); err != nil {
		return nil, appErrors.Internal(err, "failed to create comment")
	}

	role := author.Role
	return &models.CommentDetail{Comment: comment, AuthorUsername: &author.Username, AuthorRole: &role}, nil
}

// Delete removes a comment. Authors may delete their own, admins any.
func (s *CommentService) Delete(ctx context.Context, actor policy.Actor, commentID int64) error {
	comment, err := s.repo.FindByID(ctx, commentID)
	if err != nil {
		return notFoundOr(err, "comment")
	}
	var owner string
	if comment.UserID != nil {
		owner = *comment.UserID
	}
	if !policy.CanPerform(actor, policy.Resource{OwnerID: owner}, policy.ActionDeleteComment).Allowed {
		return forbidden("You can only delete your own comments.")
	}
	if err := s.repo.Delete(ctx, comment.ID); err != nil {
		return notFoundOr(err, "comment")
	}
	return nil
}

// Upvote rewards the comment's author. Authors cannot upvote themselves.
func (s *CommentService) Upvote(ctx context.Context, actor policy.Actor, commentID int64) (*gamification.Result, error) {
	comment, err := s.repo.FindByID(ctx, commentID)
	if err != nil {
		return nil, notFoundOr(err, "comment")
	}
	if comment.UserID == nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "Author not found.")
	}
	if d := policy.CanPerform(actor, policy.Resource{OwnerID: *comment.UserID}, policy.ActionUpvoteComment); !d.Allowed {
		return nil, forbidden("You cannot upvote your own comment.")
	}

	result, err := s.points.Award(ctx, *comment.UserID, gamification.PointsCommentUpvoted, gamification.ReasonCommentUpvoted)
	if err != nil {
		if errors.Is(err, ErrRecipientMissing) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "Author not found.")
		}
		return nil, appErrors.Internal(err, "failed to award points")
	}
	s.logger.Info("comment upvoted", zap.Int64("comment_id", comment.ID), zap.String("actor_id", actor.ID))
	return result, nil
}
