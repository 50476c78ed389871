package service

import (
	"context"
	"errors"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/roadwatch-api/internal/dto"
	"github.com/noah-isme/roadwatch-api/internal/gamification"
	"github.com/noah-isme/roadwatch-api/internal/models"
	appErrors "github.com/noah-isme/roadwatch-api/pkg/errors"
	"github.com/noah-isme/roadwatch-api/pkg/sanitize"
	"github.com/noah-isme/roadwatch-api/pkg/validation"
)

const (
	defaultLocationName = "Unknown Location"
	checkInListLimit    = 100
)

type checkInRepository interface {
	Create(ctx context.Context, checkIn *models.CheckIn) error
	ListRecent(ctx context.Context, limit int) ([]models.CheckIn, error)
}

// CheckInService records safe-zone confirmations.
type CheckInService struct {
	tx        transactor
	repo      checkInRepository
	points    pointsAwarder
	validator *validator.Validate
	logger    *zap.Logger
	now       Clock
}

// NewCheckInService creates an instance of CheckInService.
func NewCheckInService(tx transactor, repo checkInRepository, points pointsAwarder, validate *validator.Validate, logger *zap.Logger) *CheckInService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validation.New()
	}
	return &CheckInService{tx: tx, repo: repo, points: points, validator: validate, logger: logger, now: utcNow}
}

// Create stores a check-in for userID and awards the confirmation points.
func (s *CheckInService) Create(ctx context.Context, userID string, req dto.CreateCheckInRequest) (*models.CheckIn, *gamification.Result, error) {
	req.LocationName = sanitize.Text(req.LocationName)
	if err := s.validator.Struct(req); err != nil {
		return nil, nil, invalidPayload(err)
	}
	if req.LocationName == "" {
		req.LocationName = defaultLocationName
	}

	checkIn := &models.CheckIn{
		UserID:       userID,
		Latitude:     *req.Latitude,
		Longitude:    *req.Longitude,
		LocationName: req.LocationName,
		CreatedAt:    s.now(),
	}

	var award *gamification.Result
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		if err := s.repo.Create(ctx, checkIn); err != nil {
			return err
		}
		res, err := s.points.Award(ctx, userID, gamification.PointsSafeZoneCheckIn, gamification.ReasonSafeZoneCheckIn)
		if err != nil {
			if errors.Is(err, ErrRecipientMissing) {
				return appErrors.Clone(appErrors.ErrNotFound, "user not found")
			}
			return err
		}
		award = res
		return nil
	})
	if err != nil {
		return nil, nil, passThrough(err, "failed to record check-in")
	}
	return checkIn, award, nil
}

// List returns the most recent check-ins, newest first.
func (s *CheckInService) List(ctx context.Context) ([]models.CheckIn, error) {
	items, err := s.repo.ListRecent(ctx, checkInListLimit)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to list check-ins")
	}
	return items, nil
}
