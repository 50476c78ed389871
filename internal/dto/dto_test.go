package dto

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/noah-isme/roadwatch-api/internal/models"
)

func strPtr(s string) *string { return &s }

func rolePtr(r models.Role) *models.Role { return &r }

func TestAccidentViewScrubsAdminVerifier(t *testing.T) {
	d := &models.AccidentDetail{
		Accident: models.Accident{
			ID:         "a1",
			UserID:     strPtr("u1"),
			Status:     models.AccidentConfirmed,
			VerifiedBy: strPtr("admin-secret"),
			PhotoURL:   strPtr("abc.png"),
			CreatedAt:  time.Now(),
		},
		ReporterUsername: strPtr("alice"),
		ReporterRole:     rolePtr(models.RoleUser),
		VerifierUsername: strPtr("root"),
		VerifierRole:     rolePtr(models.RoleAdmin),
	}

	v := NewAccidentView(d, "/uploads")
	assert.Equal(t, "u1", v.Reporter.ID)
	assert.Equal(t, "", v.VerifiedBy.ID)
	assert.Equal(t, "root", v.VerifiedBy.Username)
	assert.Equal(t, "/uploads/abc.png", *v.PhotoURL)
}

func TestAccidentViewHidesAnonymousReporter(t *testing.T) {
	d := &models.AccidentDetail{
		Accident:         models.Accident{ID: "a1", UserID: strPtr("u1"), IsAnonymous: true},
		ReporterUsername: strPtr("alice"),
		ReporterRole:     rolePtr(models.RoleUser),
	}
	v := NewAccidentView(d, "/uploads")
	assert.Nil(t, v.Reporter)
	assert.Nil(t, v.PhotoURL)
}

func TestUserViewScrubsAdminID(t *testing.T) {
	admin := &models.User{ID: "secret", Username: "root", Role: models.RoleAdmin}
	user := &models.User{ID: "u1", Username: "alice", Role: models.RoleUser}

	assert.Empty(t, NewUserView(admin).ID)
	assert.Equal(t, "u1", NewUserView(user).ID)
	assert.NotNil(t, NewUserView(user).Badges)
}

func TestPendingApplicationView(t *testing.T) {
	officer := &models.User{ID: "o1", Username: "sgt", Role: models.RoleUser, Institution: strPtr("Highway Patrol"), BadgeNumber: strPtr("HP-7")}
	admin := &models.User{ID: "secret", Username: "root", Role: models.RoleAdmin}

	ov := NewPendingApplicationView(officer)
	assert.Equal(t, "o1", ov.ID)
	assert.Equal(t, "officer", ov.RoleRequested)

	av := NewPendingApplicationView(admin)
	assert.Empty(t, av.ID)
	assert.Equal(t, "admin", av.RoleRequested)
}

func TestCommentViewStringID(t *testing.T) {
	v := NewCommentView(models.CommentDetail{
		Comment:        models.Comment{ID: 1790000000000000001, AccidentID: "a1", UserID: strPtr("u1"), Content: "still blocked"},
		AuthorUsername: strPtr("alice"),
		AuthorRole:     rolePtr(models.RoleUser),
	})
	assert.Equal(t, "1790000000000000001", v.ID)
	assert.Equal(t, "alice", v.Author.Username)
}
