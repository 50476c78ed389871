package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/roadwatch-api/internal/dto"
	"github.com/noah-isme/roadwatch-api/internal/models"
	"github.com/noah-isme/roadwatch-api/internal/policy"
	appErrors "github.com/noah-isme/roadwatch-api/pkg/errors"
)

func TestCreateComment(t *testing.T) {
	env := newTestEnv()
	author := env.store.addUser(models.User{Username: "rider"})
	accident := env.addAccident(author, models.AccidentNotConfirmed)

	comment, err := env.comments.Create(context.Background(), author.ID, accident.ID, dto.CreateCommentRequest{Content: "  Lane two is clear (see <map> pin)  "})
	require.NoError(t, err)
	assert.Equal(t, int64(1), comment.ID)
	assert.Equal(t, "Lane two is clear (see <map> pin)", comment.Content)
	assert.Equal(t, "rider", *comment.AuthorUsername)
	assert.Equal(t, fixedNow, comment.CreatedAt)

	_, err = env.comments.Create(context.Background(), author.ID, accident.ID, dto.CreateCommentRequest{Content: " \x00\t "})
	assertAppError(t, err, appErrors.ErrValidation, "")

	_, err = env.comments.Create(context.Background(), author.ID, "missing", dto.CreateCommentRequest{Content: "hello"})
	assertAppError(t, err, appErrors.ErrNotFound, "")
}

func TestListCommentsRequiresAccident(t *testing.T) {
	env := newTestEnv()

	_, err := env.comments.List(context.Background(), "missing")
	assertAppError(t, err, appErrors.ErrNotFound, "")
}

func TestDeleteComment(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	author := env.store.addUser(models.User{Username: "rider"})
	other := env.store.addUser(models.User{Username: "other"})
	accident := env.addAccident(author, models.AccidentNotConfirmed)
	env.store.comments[1] = models.Comment{ID: 1, AccidentID: accident.ID, UserID: &author.ID, Content: "hello"}
	env.store.comments[2] = models.Comment{ID: 2, AccidentID: accident.ID, UserID: &author.ID, Content: "again"}

	err := env.comments.Delete(ctx, policy.Actor{ID: other.ID, Role: models.RoleOfficer}, 1)
	assertAppError(t, err, appErrors.ErrForbidden, "")

	require.NoError(t, env.comments.Delete(ctx, policy.Actor{ID: author.ID, Role: models.RoleUser}, 1))
	require.NoError(t, env.comments.Delete(ctx, policy.Actor{ID: "admin", Role: models.RoleAdmin}, 2))
	assert.Empty(t, env.store.comments)

	err = env.comments.Delete(ctx, policy.Actor{ID: author.ID, Role: models.RoleUser}, 99)
	assertAppError(t, err, appErrors.ErrNotFound, "")
}

func TestUpvoteComment(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	author := env.store.addUser(models.User{Username: "rider", Points: 8})
	voter := env.store.addUser(models.User{Username: "fan"})
	accident := env.addAccident(author, models.AccidentNotConfirmed)
	env.store.comments[1] = models.Comment{ID: 1, AccidentID: accident.ID, UserID: &author.ID, Content: "hello"}

	_, err := env.comments.Upvote(ctx, policy.Actor{ID: author.ID, Role: models.RoleUser}, 1)
	assertAppError(t, err, appErrors.ErrForbidden, "You cannot upvote your own comment.")

	res, err := env.comments.Upvote(ctx, policy.Actor{ID: voter.ID, Role: models.RoleUser}, 1)
	require.NoError(t, err)
	assert.Equal(t, 13, res.TotalPoints)
	assert.Equal(t, []string{"First Responder"}, res.NewBadges)
	assert.Equal(t, 0, env.store.user(voter.ID).Points)
}

func TestUpvoteCommentMissingAuthor(t *testing.T) {
	env := newTestEnv()
	ghost := "ghost"
	env.store.comments[1] = models.Comment{ID: 1, AccidentID: "a", UserID: &ghost, Content: "hello"}
	env.store.comments[2] = models.Comment{ID: 2, AccidentID: "a", Content: "orphan"}
	actor := policy.Actor{ID: "voter", Role: models.RoleUser}

	_, err := env.comments.Upvote(context.Background(), actor, 1)
	assertAppError(t, err, appErrors.ErrNotFound, "Author not found.")

	_, err = env.comments.Upvote(context.Background(), actor, 2)
	assertAppError(t, err, appErrors.ErrNotFound, "Author not found.")
}

func TestCreateCheckIn(t *testing.T) {
	env := newTestEnv()
	user := env.store.addUser(models.User{Username: "rider"})

	checkIn, award, err := env.checkIns.Create(context.Background(), user.ID, dto.CreateCheckInRequest{Latitude: floatPtr(1), Longitude: floatPtr(2)})
	require.NoError(t, err)
	assert.Equal(t, "Unknown Location", checkIn.LocationName)
	assert.Equal(t, 2, award.PointsAdded)
	assert.Equal(t, 2, env.store.user(user.ID).Points)

	_, _, err = env.checkIns.Create(context.Background(), user.ID, dto.CreateCheckInRequest{Latitude: floatPtr(3), Longitude: floatPtr(4), LocationName: "Shelter <B>"})
	require.NoError(t, err)

	items, err := env.checkIns.List(context.Background())
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "Shelter <B>", items[0].LocationName)
}

func TestCreateCheckInValidation(t *testing.T) {
	env := newTestEnv()
	user := env.store.addUser(models.User{Username: "rider"})

	_, _, err := env.checkIns.Create(context.Background(), user.ID, dto.CreateCheckInRequest{Latitude: floatPtr(1)})
	assertAppError(t, err, appErrors.ErrValidation, "")
	assert.Empty(t, env.store.checkIns)

	_, _, err = env.checkIns.Create(context.Background(), "ghost", dto.CreateCheckInRequest{Latitude: floatPtr(1), Longitude: floatPtr(2)})
	assertAppError(t, err, appErrors.ErrNotFound, "")
	assert.Empty(t, env.store.checkIns)
}

func TestRoutes(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	accident := env.addAccident(nil, models.AccidentNotConfirmed)
	officer := policy.Actor{ID: "cop", Role: models.RoleOfficer}

	_, err := env.routes.Create(ctx, policy.Actor{ID: "u", Role: models.RoleUser}, accident.ID, dto.CreateRouteRequest{RouteName: "Main St"})
	assertAppError(t, err, appErrors.ErrForbidden, "")

	_, err = env.routes.Create(ctx, officer, "missing", dto.CreateRouteRequest{RouteName: "Main St"})
	assertAppError(t, err, appErrors.ErrNotFound, "")

	route, err := env.routes.Create(ctx, officer, accident.ID, dto.CreateRouteRequest{RouteName: "Main St"})
	require.NoError(t, err)
	assert.False(t, route.IsClosed)

	closed := true
	updated, err := env.routes.SetClosed(ctx, officer, route.ID, dto.UpdateRouteRequest{IsClosed: &closed})
	require.NoError(t, err)
	assert.True(t, updated.IsClosed)

	_, err = env.routes.SetClosed(ctx, officer, route.ID, dto.UpdateRouteRequest{})
	assertAppError(t, err, appErrors.ErrValidation, "")

	routes, err := env.routes.List(ctx, accident.ID)
	require.NoError(t, err)
	require.Len(t, routes, 1)
	assert.True(t, routes[0].IsClosed)

	_, err = env.routes.List(ctx, "missing")
	assertAppError(t, err, appErrors.ErrNotFound, "")
}
