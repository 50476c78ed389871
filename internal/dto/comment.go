package dto

import (
	"strconv"
	"time"

	"github.com/noah-isme/roadwatch-api/internal/models"
)

// CreateCommentRequest is the payload of POST /accidents/:id/comments.
type CreateCommentRequest struct {
	Content string `json:"content" validate:"required,max=1000"`
}

// CommentView is the public representation of a comment. The ID is a string
// so JavaScript clients keep full snowflake precision.
type CommentView struct {
	ID         string       `json:"id"`
	AccidentID string       `json:"accident_id"`
	Content    string       `json:"content"`
	Author     *UserSummary `json:"author,omitempty"`
	CreatedAt  time.Time    `json:"created_at"`
}

// NewCommentView maps a stored comment.
func NewCommentView(c models.CommentDetail) CommentView {
	return CommentView{
		ID:         strconv.FormatInt(c.ID, 10),
		AccidentID: c.AccidentID,
		Content:    c.Content,
		Author:     summary(c.UserID, c.AuthorUsername, c.AuthorRole),
		CreatedAt:  c.CreatedAt,
	}
}

// NewCommentViews maps a list of comments.
func NewCommentViews(items []models.CommentDetail) []CommentView {
	views := make([]CommentView, 0, len(items))
	for _, c := range items {
		views = append(views, NewCommentView(c))
	}
	return views
}

// CreateCheckInRequest is the payload of POST /safe-checkin.
type CreateCheckInRequest struct {
	Latitude     *float64 `json:"latitude" validate:"required,gte=-90,lte=90"`
	Longitude    *float64 `json:"longitude" validate:"required,gte=-180,lte=180"`
	LocationName string   `json:"location_name" validate:"max=200"`
}

// CheckInView is the public representation of a check-in.
type CheckInView struct {
	ID           string           `json:"id"`
	Latitude     float64          `json:"latitude"`
	Longitude    float64          `json:"longitude"`
	LocationName string           `json:"location_name"`
	CreatedAt    time.Time        `json:"created_at"`
	Award        *PointsAwardView `json:"award,omitempty"`
}

// NewCheckInView maps a stored check-in.
func NewCheckInView(c models.CheckIn) CheckInView {
	return CheckInView{
		ID:           c.ID,
		Latitude:     c.Latitude,
		Longitude:    c.Longitude,
		LocationName: c.LocationName,
		CreatedAt:    c.CreatedAt,
	}
}

// CreateRouteRequest is the payload of POST /accidents/:id/routes.
type CreateRouteRequest struct {
	RouteName string `json:"route_name" validate:"required,max=200"`
	IsClosed  *bool  `json:"is_closed"`
}

// UpdateRouteRequest opens or closes a route.
type UpdateRouteRequest struct {
	IsClosed *bool `json:"is_closed" validate:"required"`
}
