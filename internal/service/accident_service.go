package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/roadwatch-api/internal/dto"
	"github.com/noah-isme/roadwatch-api/internal/gamification"
	"github.com/noah-isme/roadwatch-api/internal/models"
	"github.com/noah-isme/roadwatch-api/internal/policy"
	appErrors "github.com/noah-isme/roadwatch-api/pkg/errors"
	"github.com/noah-isme/roadwatch-api/pkg/export"
	"github.com/noah-isme/roadwatch-api/pkg/response"
	"github.com/noah-isme/roadwatch-api/pkg/sanitize"
	"github.com/noah-isme/roadwatch-api/pkg/validation"
)

const exportTimeLayout = "2006-01-02 15:04"

type accidentRepository interface {
	Create(ctx context.Context, accident *models.Accident) error
	FindByID(ctx context.Context, id string) (*models.Accident, error)
	FindByIDForUpdate(ctx context.Context, id string) (*models.Accident, error)
	FindDetail(ctx context.Context, id string) (*models.AccidentDetail, error)
	List(ctx context.Context, filter models.AccidentFilter) ([]models.AccidentDetail, int, error)
	ListAll(ctx context.Context, filter models.AccidentFilter) ([]models.AccidentDetail, error)
	CountByUser(ctx context.Context, userID string) (int, error)
	LatestByUser(ctx context.Context, userID string) (*time.Time, error)
	UpdateStatus(ctx context.Context, id string, status models.AccidentStatus, verifiedBy string) error
	Delete(ctx context.Context, id string) error
}

type accidentComments interface {
	ListByAccident(ctx context.Context, accidentID string) ([]models.CommentDetail, error)
	DeleteByAccident(ctx context.Context, accidentID string) error
}

type accidentRoutes interface {
	DeleteByAccident(ctx context.Context, accidentID string) error
}

type reporterLocker interface {
	FindByIDForUpdate(ctx context.Context, id string) (*models.User, error)
}

type photoStore interface {
	Save(filename string, r io.Reader) (string, error)
	Delete(filename string) error
}

type pointsAwarder interface {
	Award(ctx context.Context, userID string, delta int, reason string) (*gamification.Result, error)
}

// AccidentConfig tunes report intake.
type AccidentConfig struct {
	Cooldown          time.Duration
	MaxPhotoBytes     int64
	AllowedExtensions []string
}

// AccidentService manages the report lifecycle.
type AccidentService struct {
	tx        transactor
	repo      accidentRepository
	comments  accidentComments
	routes    accidentRoutes
	users     reporterLocker
	photos    photoStore
	points    pointsAwarder
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
	config    AccidentConfig
	now       Clock
}

// NewAccidentService creates an instance of AccidentService.
func NewAccidentService(
	tx transactor,
	repo accidentRepository,
	comments accidentComments,
	routes accidentRoutes,
	users reporterLocker,
	photos photoStore,
	points pointsAwarder,
	metrics *MetricsService,
	validate *validator.Validate,
	logger *zap.Logger,
	config AccidentConfig,
) *AccidentService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validation.New()
	}
	if config.Cooldown <= 0 {
		config.Cooldown = 2 * time.Minute
	}
	if len(config.AllowedExtensions) == 0 {
		config.AllowedExtensions = []string{"png", "jpg", "jpeg", "gif"}
	}
	return &AccidentService{
		tx:        tx,
		repo:      repo,
		comments:  comments,
		routes:    routes,
		users:     users,
		photos:    photos,
		points:    points,
		metrics:   metrics,
		validator: validate,
		logger:    logger,
		config:    config,
		now:       utcNow,
	}
}

// CreateResult is a stored report together with the points it earned.
type CreateResult struct {
	Accident *models.AccidentDetail
	Awards   []gamification.Result
}

// Create files a new report for reporterID. A stored photo is removed again
// if anything after the upload fails.
func (s *AccidentService) Create(ctx context.Context, reporterID string, req dto.CreateAccidentRequest, photo *dto.PhotoUpload) (*CreateResult, error) {
	req.Description = sanitize.Text(req.Description)
	if err := s.validator.Struct(req); err != nil {
		return nil, invalidPayload(err)
	}
	if req.CasualtiesDead > 0 && req.Severity < 4 {
		return nil, validationError("Fatalities reported. Severity must be 4 or 5.")
	}
	now := s.now()
	if err := s.checkCooldown(ctx, reporterID, now); err != nil {
		return nil, err
	}

	var photoName *string
	if photo != nil {
		name, err := s.storePhoto(photo)
		if err != nil {
			return nil, err
		}
		photoName = &name
	}

	accident := &models.Accident{
		ID:                uuid.NewString(),
		UserID:            &reporterID,
		Latitude:          *req.Latitude,
		Longitude:         *req.Longitude,
		Description:       req.Description,
		Severity:          req.Severity,
		CasualtiesDead:    req.CasualtiesDead,
		CasualtiesInjured: req.CasualtiesInjured,
		Status:            models.AccidentNotConfirmed,
		PhotoURL:          photoName,
		IsAnonymous:       req.IsAnonymous,
		CreatedAt:         now,
	}

	var awards []gamification.Result
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		if _, err := s.users.FindByIDForUpdate(ctx, reporterID); err != nil {
			return notFoundOr(err, "user")
		}
		// The reporter row is locked, so concurrent submissions see each other here.
		if err := s.checkCooldown(ctx, reporterID, now); err != nil {
			return err
		}
		prior, err := s.repo.CountByUser(ctx, reporterID)
		if err != nil {
			return err
		}
		if err := s.repo.Create(ctx, accident); err != nil {
			return err
		}

		if prior == 0 {
			res, err := s.points.Award(ctx, reporterID, gamification.PointsFirstReport, gamification.ReasonFirstReport)
			if err != nil {
				return err
			}
			awards = append(awards, *res)
		}
		if req.Severity == 5 {
			res, err := s.points.Award(ctx, reporterID, gamification.PointsHighSeverity, gamification.ReasonHighSeverity)
			if err != nil {
				return err
			}
			awards = append(awards, *res)
		}
		return nil
	})
	if err != nil {
		s.discardPhoto(photoName)
		return nil, passThrough(err, "failed to create accident")
	}

	s.metrics.ObserveAccidentReported(req.Severity)
	s.logger.Info("accident reported", zap.String("accident_id", accident.ID), zap.Int("severity", accident.Severity))

	detail, err := s.repo.FindDetail(ctx, accident.ID)
	if err != nil {
		return nil, notFoundOr(err, "accident")
	}
	return &CreateResult{Accident: detail, Awards: awards}, nil
}

func (s *AccidentService) checkCooldown(ctx context.Context, reporterID string, now time.Time) error {
	latest, err := s.repo.LatestByUser(ctx, reporterID)
	if err != nil {
		return appErrors.Internal(err, "failed to check report cooldown")
	}
	if latest != nil && latest.After(now.Add(-s.config.Cooldown)) {
		return appErrors.Clone(appErrors.ErrRateLimited, fmt.Sprintf("Please wait %s before reporting again.", humanDuration(s.config.Cooldown)))
	}
	return nil
}

func (s *AccidentService) storePhoto(photo *dto.PhotoUpload) (string, error) {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(photo.Filename), "."))
	if !s.extensionAllowed(ext) {
		return "", validationError("File type not allowed. Allowed types: " + strings.Join(s.config.AllowedExtensions, ", ") + ".")
	}
	if s.config.MaxPhotoBytes > 0 && photo.Size > s.config.MaxPhotoBytes {
		return "", validationError(fmt.Sprintf("File too large. Maximum size is %d bytes.", s.config.MaxPhotoBytes))
	}

	name, err := s.photos.Save(uuid.NewString()+"."+ext, photo.Content)
	if err != nil {
		return "", appErrors.Internal(err, "failed to store photo")
	}
	return name, nil
}

func (s *AccidentService) extensionAllowed(ext string) bool {
	if ext == "" {
		return false
	}
	for _, allowed := range s.config.AllowedExtensions {
		if ext == allowed {
			return true
		}
	}
	return false
}

func (s *AccidentService) discardPhoto(name *string) {
	if name == nil {
		return
	}
	if err := s.photos.Delete(*name); err != nil {
		s.logger.Warn("failed to remove photo", zap.String("photo", *name), zap.Error(err))
	}
}

// Verify moves a pending report to confirmed or false_report and settles the
// reporter's points.
func (s *AccidentService) Verify(ctx context.Context, actor policy.Actor, accidentID, status string) (*models.AccidentDetail, error) {
	newStatus := models.AccidentStatus(status)
	if !newStatus.Terminal() {
		return nil, validationError("Invalid status. Must be 'confirmed' or 'false_report'.")
	}

	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		accident, err := s.repo.FindByIDForUpdate(ctx, accidentID)
		if err != nil {
			return notFoundOr(err, "accident")
		}
		if !policy.CanPerform(actor, policy.Resource{}, policy.ActionVerifyAccident).Allowed {
			return forbidden("Only officers and admins can verify reports.")
		}
		if accident.Status.Terminal() {
			return validationError("Accident has already been verified.")
		}
		if err := s.repo.UpdateStatus(ctx, accident.ID, newStatus, actor.ID); err != nil {
			return err
		}

		if accident.UserID == nil {
			return nil
		}
		delta, reason := gamification.PointsVerification, gamification.ReasonVerification
		if newStatus == models.AccidentFalseReport {
			delta, reason = gamification.PointsFalseReport, gamification.ReasonFalseReport
		}
		if _, err := s.points.Award(ctx, *accident.UserID, delta, reason); err != nil && !errors.Is(err, ErrRecipientMissing) {
			return err
		}
		return nil
	})
	if err != nil {
		return nil, passThrough(err, "failed to verify accident")
	}

	s.metrics.ObserveVerification(status)
	s.logger.Info("accident verified", zap.String("accident_id", accidentID), zap.String("status", status), zap.String("actor_id", actor.ID))

	detail, err := s.repo.FindDetail(ctx, accidentID)
	if err != nil {
		return nil, notFoundOr(err, "accident")
	}
	return detail, nil
}

// Delete removes a report with its comments and routes. The photo file is
// removed after commit; failures there are only logged.
func (s *AccidentService) Delete(ctx context.Context, actor policy.Actor, accidentID string) error {
	accident, err := s.repo.FindByID(ctx, accidentID)
	if err != nil {
		return notFoundOr(err, "accident")
	}
	var owner string
	if accident.UserID != nil {
		owner = *accident.UserID
	}
	if !policy.CanPerform(actor, policy.Resource{OwnerID: owner}, policy.ActionDeleteAccident).Allowed {
		return forbidden("You can only delete your own reports.")
	}

	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		if err := s.comments.DeleteByAccident(ctx, accident.ID); err != nil {
			return err
		}
		if err := s.routes.DeleteByAccident(ctx, accident.ID); err != nil {
			return err
		}
		return s.repo.Delete(ctx, accident.ID)
	})
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "accident not found")
		}
		return passThrough(err, "failed to delete accident")
	}

	s.discardPhoto(accident.PhotoURL)
	s.logger.Info("accident deleted", zap.String("accident_id", accident.ID), zap.String("actor_id", actor.ID))
	return nil
}

// List returns a page of reports, newest first.
func (s *AccidentService) List(ctx context.Context, filter models.AccidentFilter) ([]models.AccidentDetail, *response.Pagination, error) {
	if filter.Status != nil && !filter.Status.Valid() {
		return nil, nil, validationError("Invalid status filter.")
	}
	items, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Internal(err, "failed to list accidents")
	}
	return items, pagination(filter.Page, filter.PageSize, total), nil
}

// Get returns a report with its comments.
func (s *AccidentService) Get(ctx context.Context, id string) (*models.AccidentDetail, []models.CommentDetail, error) {
	detail, err := s.repo.FindDetail(ctx, id)
	if err != nil {
		return nil, nil, notFoundOr(err, "accident")
	}
	comments, err := s.comments.ListByAccident(ctx, id)
	if err != nil {
		return nil, nil, appErrors.Internal(err, "failed to load comments")
	}
	return detail, comments, nil
}

// Export renders every report matching filter in the given format.
func (s *AccidentService) Export(ctx context.Context, actor policy.Actor, format export.Format, filter models.AccidentFilter) ([]byte, error) {
	if !policy.CanPerform(actor, policy.Resource{}, policy.ActionExport).Allowed {
		return nil, forbidden("Admin access required.")
	}
	if filter.Status != nil && !filter.Status.Valid() {
		return nil, validationError("Invalid status filter.")
	}
	items, err := s.repo.ListAll(ctx, filter)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to load accidents")
	}

	body, err := export.Render(format, accidentDataset(items))
	if err != nil {
		return nil, appErrors.Internal(err, "failed to render export")
	}
	s.logger.Info("accidents exported", zap.String("format", string(format)), zap.Int("rows", len(items)), zap.String("actor_id", actor.ID))
	return body, nil
}

var exportHeaders = []string{"ID", "Created", "Status", "Severity", "Dead", "Injured", "Latitude", "Longitude", "Reporter", "Verified By", "Description"}

func accidentDataset(items []models.AccidentDetail) export.Dataset {
	rows := make([]map[string]string, 0, len(items))
	for _, a := range items {
		reporter := "Anonymous"
		if !a.IsAnonymous {
			reporter = deref(a.ReporterUsername)
		}
		rows = append(rows, map[string]string{
			"ID":          a.ID,
			"Created":     a.CreatedAt.UTC().Format(exportTimeLayout),
			"Status":      string(a.Status),
			"Severity":    strconv.Itoa(a.Severity),
			"Dead":        strconv.Itoa(a.CasualtiesDead),
			"Injured":     strconv.Itoa(a.CasualtiesInjured),
			"Latitude":    strconv.FormatFloat(a.Latitude, 'f', 6, 64),
			"Longitude":   strconv.FormatFloat(a.Longitude, 'f', 6, 64),
			"Reporter":    reporter,
			"Verified By": deref(a.VerifierUsername),
			"Description": a.Description,
		})
	}
	return export.Dataset{Title: "Accident Reports", Headers: exportHeaders, Rows: rows}
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// humanDuration renders d as "2 minutes", "30 seconds" or "1 hour".
func humanDuration(d time.Duration) string {
	unit := func(n int64, name string) string {
		if n == 1 {
			return "1 " + name
		}
		return strconv.FormatInt(n, 10) + " " + name + "s"
	}
	switch {
	case d >= time.Hour && d%time.Hour == 0:
		return unit(int64(d/time.Hour), "hour")
	case d >= time.Minute && d%time.Minute == 0:
		return unit(int64(d/time.Minute), "minute")
	default:
		return unit(int64(d/time.Second), "second")
	}
}
