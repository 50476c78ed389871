package models

import "time"

// Comment is a remark left on an accident report.
type Comment struct {
	ID         int64     `db:"id"`
	AccidentID string    `db:"accident_id"`
	UserID     *string   `db:"user_id"`
	Content    string    `db:"content"`
	CreatedAt  time.Time `db:"created_at"`
}

// CommentDetail carries the author summary alongside the comment.
type CommentDetail struct {
	Comment
	AuthorUsername *string `db:"author_username"`
	AuthorRole     *Role   `db:"author_role"`
}

// CheckIn is a safe-zone confirmation posted by a user.
type CheckIn struct {
	ID           string    `db:"id"`
	UserID       string    `db:"user_id"`
	Latitude     float64   `db:"latitude"`
	Longitude    float64   `db:"longitude"`
	LocationName string    `db:"location_name"`
	CreatedAt    time.Time `db:"created_at"`
}

// Route is a road segment affected by an accident.
type Route struct {
	ID         string `db:"id" json:"id"`
	AccidentID string `db:"accident_id" json:"accident_id"`
	RouteName  string `db:"route_name" json:"route_name"`
	IsClosed   bool   `db:"is_closed" json:"is_closed"`
}

// PointLog is one ledger row written per point award.
type PointLog struct {
	ID        string    `db:"id"`
	UserID    string    `db:"user_id"`
	Amount    int       `db:"amount"`
	Reason    string    `db:"reason"`
	CreatedAt time.Time `db:"created_at"`
}
