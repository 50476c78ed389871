package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/roadwatch-api/internal/gamification"
	"github.com/noah-isme/roadwatch-api/internal/models"
)

func TestPointsAwardUpdatesUserAndLedger(t *testing.T) {
	env := newTestEnv()
	user := env.store.addUser(models.User{Username: "rider"})

	res, err := env.points.Award(context.Background(), user.ID, gamification.PointsFirstReport, gamification.ReasonFirstReport)
	require.NoError(t, err)
	assert.Equal(t, 10, res.TotalPoints)
	assert.Equal(t, []string{"First Responder"}, res.NewBadges)

	stored := env.store.user(user.ID)
	assert.Equal(t, 10, stored.Points)
	assert.Equal(t, []string{"First Responder"}, []string(stored.Badges))
	require.Len(t, env.store.logs, 1)
	assert.Equal(t, models.PointLog{ID: env.store.logs[0].ID, UserID: user.ID, Amount: 10, Reason: gamification.ReasonFirstReport, CreatedAt: fixedNow}, env.store.logs[0])
}

func TestPointsAwardFloorsAtZeroAndKeepsBadges(t *testing.T) {
	env := newTestEnv()
	user := env.store.addUser(models.User{Username: "rider", Points: 12, Badges: []string{"First Responder"}})

	res, err := env.points.Award(context.Background(), user.ID, gamification.PointsFalseReport, gamification.ReasonFalseReport)
	require.NoError(t, err)
	assert.Equal(t, 0, res.TotalPoints)
	assert.Empty(t, res.NewBadges)
	assert.Equal(t, []string{"First Responder"}, []string(env.store.user(user.ID).Badges))
}

func TestPointsAwardMissingRecipient(t *testing.T) {
	env := newTestEnv()

	_, err := env.points.Award(context.Background(), "ghost", 5, gamification.ReasonCommentUpvoted)
	assert.ErrorIs(t, err, ErrRecipientMissing)
	assert.Empty(t, env.store.logs)
}

func TestPointsAwardRollsBackOnLedgerFailure(t *testing.T) {
	env := newTestEnv()
	user := env.store.addUser(models.User{Username: "rider"})
	env.store.fail["ledger.Create"] = errBoom

	_, err := env.points.Award(context.Background(), user.ID, 50, gamification.ReasonVerification)
	require.Error(t, err)
	assert.Equal(t, 0, env.store.user(user.ID).Points)
	assert.Equal(t, 1, env.tx.rollbacks)
}
