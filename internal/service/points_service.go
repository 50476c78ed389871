package service

import (
	"context"
	"database/sql"
	"errors"

	"go.uber.org/zap"

	"github.com/noah-isme/roadwatch-api/internal/gamification"
	"github.com/noah-isme/roadwatch-api/internal/models"
)

// ErrRecipientMissing is returned by Award when the user no longer exists.
var ErrRecipientMissing = errors.New("points recipient not found")

type pointsUserStore interface {
	FindByIDForUpdate(ctx context.Context, id string) (*models.User, error)
	UpdateScore(ctx context.Context, id string, points int, badges []string) error
}

type pointLedger interface {
	Create(ctx context.Context, entry *models.PointLog) error
}

// PointsService applies the gamification engine to stored users.
type PointsService struct {
	tx      transactor
	users   pointsUserStore
	ledger  pointLedger
	metrics *MetricsService
	logger  *zap.Logger
	now     Clock
}

// NewPointsService constructs a PointsService.
func NewPointsService(tx transactor, users pointsUserStore, ledger pointLedger, metrics *MetricsService, logger *zap.Logger) *PointsService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PointsService{tx: tx, users: users, ledger: ledger, metrics: metrics, logger: logger, now: utcNow}
}

// Award adds delta points to userID and records a ledger row. It joins the
// caller's transaction when there is one; the user row stays locked until commit.
func (s *PointsService) Award(ctx context.Context, userID string, delta int, reason string) (*gamification.Result, error) {
	var result gamification.Result
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		user, err := s.users.FindByIDForUpdate(ctx, userID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return ErrRecipientMissing
			}
			return err
		}

		result = gamification.AddPoints(gamification.Standing{Points: user.Points, Badges: user.Badges}, delta, reason)
		if err := s.users.UpdateScore(ctx, userID, result.TotalPoints, result.Badges); err != nil {
			return err
		}
		return s.ledger.Create(ctx, &models.PointLog{
			UserID:    userID,
			Amount:    delta,
			Reason:    reason,
			CreatedAt: s.now(),
		})
	})
	if err != nil {
		return nil, err
	}

	s.metrics.ObservePointsAwarded(reason, delta)
	if len(result.NewBadges) > 0 {
		s.logger.Info("badges earned", zap.String("user_id", userID), zap.Strings("badges", result.NewBadges))
	}
	return &result, nil
}
