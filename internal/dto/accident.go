package dto

import (
	"io"
	"time"

	"github.com/noah-isme/roadwatch-api/internal/models"
)

// CreateAccidentRequest is the report payload, sent as JSON or multipart form fields.
type CreateAccidentRequest struct {
	Latitude          *float64 `json:"latitude" form:"latitude" validate:"required,gte=-90,lte=90"`
	Longitude         *float64 `json:"longitude" form:"longitude" validate:"required,gte=-180,lte=180"`
	Description       string   `json:"description" form:"description" validate:"required,min=10,max=2000"`
	Severity          int      `json:"severity" form:"severity" validate:"required,gte=1,lte=5"`
	CasualtiesDead    int      `json:"casualties_dead" form:"casualties_dead" validate:"gte=0"`
	CasualtiesInjured int      `json:"casualties_injured" form:"casualties_injured" validate:"gte=0"`
	IsAnonymous       bool     `json:"is_anonymous" form:"is_anonymous"`
}

// PhotoUpload is an optional image attached to a report.
type PhotoUpload struct {
	Filename string
	Size     int64
	Content  io.Reader
}

// VerifyAccidentRequest carries the verification decision.
type VerifyAccidentRequest struct {
	Status string `json:"status" validate:"required"`
}

// UserSummary identifies a reporter, verifier or author. ID is omitted for admins.
type UserSummary struct {
	ID       string `json:"id,omitempty"`
	Username string `json:"username"`
	Role     string `json:"role"`
}

// AccidentView is the public representation of a report.
type AccidentView struct {
	ID                string            `json:"id"`
	Latitude          float64           `json:"latitude"`
	Longitude         float64           `json:"longitude"`
	Description       string            `json:"description"`
	Severity          int               `json:"severity"`
	CasualtiesDead    int               `json:"casualties_dead"`
	CasualtiesInjured int               `json:"casualties_injured"`
	Status            string            `json:"status"`
	PhotoURL          *string           `json:"photo_url,omitempty"`
	IsAnonymous       bool              `json:"is_anonymous"`
	Reporter          *UserSummary      `json:"reporter,omitempty"`
	VerifiedBy        *UserSummary      `json:"verified_by,omitempty"`
	CreatedAt         time.Time         `json:"created_at"`
	Comments          []CommentView     `json:"comments,omitempty"`
	Awards            []PointsAwardView `json:"awards,omitempty"`
}

// PointsAwardView reports points granted by an action.
type PointsAwardView struct {
	Reason      string   `json:"reason"`
	PointsAdded int      `json:"points_added"`
	TotalPoints int      `json:"total_points"`
	NewBadges   []string `json:"new_badges,omitempty"`
}

// NewAccidentView maps a stored report. photoBase prefixes stored file names.
func NewAccidentView(d *models.AccidentDetail, photoBase string) AccidentView {
	v := AccidentView{
		ID:                d.ID,
		Latitude:          d.Latitude,
		Longitude:         d.Longitude,
		Description:       d.Description,
		Severity:          d.Severity,
		CasualtiesDead:    d.CasualtiesDead,
		CasualtiesInjured: d.CasualtiesInjured,
		Status:            string(d.Status),
		IsAnonymous:       d.IsAnonymous,
		CreatedAt:         d.CreatedAt,
	}
	if d.PhotoURL != nil && *d.PhotoURL != "" {
		url := photoBase + "/" + *d.PhotoURL
		v.PhotoURL = &url
	}
	if !d.IsAnonymous {
		v.Reporter = summary(d.UserID, d.ReporterUsername, d.ReporterRole)
	}
	v.VerifiedBy = summary(d.VerifiedBy, d.VerifierUsername, d.VerifierRole)
	return v
}

// summary builds a UserSummary, scrubbing the ID of admin accounts.
func summary(id, username *string, role *models.Role) *UserSummary {
	if id == nil || username == nil {
		return nil
	}
	s := &UserSummary{ID: *id, Username: *username}
	if role != nil {
		s.Role = string(*role)
		if *role == models.RoleAdmin {
			s.ID = ""
		}
	}
	return s
}
