package service

import (
	"context"
	"crypto/subtle"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/roadwatch-api/internal/dto"
	"github.com/noah-isme/roadwatch-api/internal/models"
	"github.com/noah-isme/roadwatch-api/internal/policy"
	appErrors "github.com/noah-isme/roadwatch-api/pkg/errors"
	"github.com/noah-isme/roadwatch-api/pkg/response"
	"github.com/noah-isme/roadwatch-api/pkg/validation"
)

const (
	leaderboardSize    = 10
	profileHistorySize = 10
)

// Application decisions.
const (
	ActionApprove = "approve"
	ActionReject  = "reject"
)

// permanentBan is the expiry stored for bans without an end.
var permanentBan = time.Date(9999, 12, 31, 23, 59, 59, 0, time.UTC)

type userRepository interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
	UsernameTaken(ctx context.Context, username string) (bool, error)
	EmailTaken(ctx context.Context, email string) (bool, error)
	BadgeNumberTaken(ctx context.Context, badgeNumber string) (bool, error)
	Create(ctx context.Context, user *models.User) error
	UpdateStatus(ctx context.Context, id string, status models.UserStatus) error
	UpdateRoleAndStatus(ctx context.Context, id string, role models.Role, status models.UserStatus) error
	SetBannedUntil(ctx context.Context, id string, until *time.Time) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, filter models.UserFilter) ([]models.User, int, error)
	ListPending(ctx context.Context) ([]models.User, error)
	TopByPoints(ctx context.Context, limit int) ([]models.User, error)
}

type pointHistory interface {
	ListByUser(ctx context.Context, userID string, limit int) ([]models.PointLog, error)
}

// AdminApprovalNotifier tells the operators that an admin applicant is waiting.
type AdminApprovalNotifier interface {
	NotifyAdminApplication(ctx context.Context, user *models.User) error
}

// UserConfig tunes registration.
type UserConfig struct {
	AdminInviteCode string
	BcryptCost      int
}

// UserService handles registration, moderation and user listings.
type UserService struct {
	tx        transactor
	repo      userRepository
	history   pointHistory
	notifier  AdminApprovalNotifier
	validator *validator.Validate
	logger    *zap.Logger
	config    UserConfig
	now       Clock
}

// NewUserService creates an instance of UserService.
func NewUserService(tx transactor, repo userRepository, history pointHistory, notifier AdminApprovalNotifier, validate *validator.Validate, logger *zap.Logger, config UserConfig) *UserService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validation.New()
	}
	if config.BcryptCost == 0 {
		config.BcryptCost = bcrypt.DefaultCost
	}
	return &UserService{tx: tx, repo: repo, history: history, notifier: notifier, validator: validate, logger: logger, config: config, now: utcNow}
}

// RegisterUser creates an approved regular account. Privileged roles are turned away.
func (s *UserService) RegisterUser(ctx context.Context, req dto.RegisterRequest) (*models.User, error) {
	if req.Role != "" {
		role, _ := models.ParseRole(req.Role)
		switch role {
		case models.RoleAdmin:
			return nil, forbidden("Admin registration is restricted here. Please use the secure internal setup portal.")
		case models.RoleOfficer:
			return nil, validationError("Officers must use the /apply-officer endpoint.")
		}
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, invalidPayload(err)
	}

	user := &models.User{
		Username: strings.TrimSpace(req.Username),
		Role:     models.RoleUser,
		Status:   models.UserStatusApproved,
	}
	if req.Email != "" {
		email := strings.ToLower(req.Email)
		user.Email = &email
	}
	if err := s.create(ctx, user, req.Password); err != nil {
		return nil, err
	}
	s.logger.Info("user registered", zap.String("user_id", user.ID))
	return user, nil
}

// ApplyOfficer records an officer application awaiting admin approval.
func (s *UserService) ApplyOfficer(ctx context.Context, req dto.OfficerApplicationRequest) (*models.User, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, invalidPayload(err)
	}

	email := strings.ToLower(req.Email)
	institution := strings.TrimSpace(req.Institution)
	badge := strings.TrimSpace(req.BadgeNumber)
	user := &models.User{
		Username:    strings.TrimSpace(req.Username),
		Email:       &email,
		Role:        models.RoleUser,
		Status:      models.UserStatusPending,
		Institution: &institution,
		BadgeNumber: &badge,
	}
	if err := s.create(ctx, user, req.Password); err != nil {
		return nil, err
	}
	s.logger.Info("officer application submitted", zap.String("user_id", user.ID))
	return user, nil
}

// RegisterAdmin records an admin application gated by the invite code. The
// approval notification is sent after the account is stored.
func (s *UserService) RegisterAdmin(ctx context.Context, req dto.AdminApplicationRequest) (*models.User, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, invalidPayload(err)
	}
	if !s.inviteCodeMatches(req.SecretInviteCode) {
		return nil, forbidden("Invalid admin invite code.")
	}

	fullName := strings.TrimSpace(req.FullName)
	department := strings.TrimSpace(req.Department)
	user := &models.User{
		Username:   strings.TrimSpace(req.Username),
		Role:       models.RoleAdmin,
		Status:     models.UserStatusPending,
		FullName:   &fullName,
		Department: &department,
	}
	if err := s.create(ctx, user, req.Password); err != nil {
		return nil, err
	}

	if s.notifier != nil {
		if err := s.notifier.NotifyAdminApplication(ctx, user); err != nil {
			s.logger.Warn("failed to queue admin approval notification", zap.String("username", user.Username), zap.Error(err))
		}
	}
	return user, nil
}

func (s *UserService) inviteCodeMatches(code string) bool {
	expected := s.config.AdminInviteCode
	if expected == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(code), []byte(expected)) == 1
}

// create checks uniqueness, hashes the password and stores user in one transaction.
func (s *UserService) create(ctx context.Context, user *models.User, password string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.config.BcryptCost)
	if err != nil {
		return appErrors.Internal(err, "failed to hash password")
	}
	user.PasswordHash = string(hash)
	user.CreatedAt = s.now()

	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		if taken, err := s.repo.UsernameTaken(ctx, user.Username); err != nil {
			return err
		} else if taken {
			return appErrors.Clone(appErrors.ErrConflict, "Username already exists.")
		}
		if user.Email != nil {
			if taken, err := s.repo.EmailTaken(ctx, *user.Email); err != nil {
				return err
			} else if taken {
				return appErrors.Clone(appErrors.ErrConflict, "Email already registered.")
			}
		}
		if user.BadgeNumber != nil {
			if taken, err := s.repo.BadgeNumberTaken(ctx, *user.BadgeNumber); err != nil {
				return err
			} else if taken {
				return appErrors.Clone(appErrors.ErrConflict, "Badge number already registered.")
			}
		}
		return s.repo.Create(ctx, user)
	})
	if err != nil {
		if appErrors.IsUniqueViolation(err) {
			return appErrors.Wrap(err, appErrors.ErrConflict.Code, appErrors.ErrConflict.Status, "account already exists")
		}
		return passThrough(err, "failed to create user")
	}
	return nil
}

// ProcessAdminApplication approves or deletes a pending admin account. Only an
// approved admin may decide. A rejected applicant is removed and nil is returned.
func (s *UserService) ProcessAdminApplication(ctx context.Context, actorID, targetID, action string) (*models.User, error) {
	actor, err := s.repo.FindByID(ctx, actorID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, forbidden("Only approved admins can process admin applications.")
		}
		return nil, appErrors.Internal(err, "failed to load actor")
	}
	decision := policy.CanPerform(policy.Actor{ID: actor.ID, Role: actor.Role}, policy.Resource{OwnerID: targetID}, policy.ActionApproveApplication)
	if !decision.Allowed || actor.Status != models.UserStatusApproved {
		return nil, forbidden("Only approved admins can process admin applications.")
	}

	var result *models.User
	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		target, err := s.repo.FindByID(ctx, targetID)
		if err != nil {
			return notFoundOr(err, "user")
		}
		if target.Role != models.RoleAdmin {
			return validationError("This endpoint is only for admin roles.")
		}

		switch action {
		case ActionApprove:
			if err := s.repo.UpdateStatus(ctx, target.ID, models.UserStatusApproved); err != nil {
				return err
			}
			target.Status = models.UserStatusApproved
			result = target
		case ActionReject:
			if err := s.repo.Delete(ctx, target.ID); err != nil {
				return err
			}
		default:
			return validationError("Invalid action.")
		}
		return nil
	})
	if err != nil {
		return nil, passThrough(err, "failed to process admin application")
	}
	s.logger.Info("admin application processed", zap.String("actor_id", actorID), zap.String("action", action))
	return result, nil
}

// ProcessOfficerApplication approves (promoting to officer) or rejects a pending application.
func (s *UserService) ProcessOfficerApplication(ctx context.Context, actor policy.Actor, targetID, action string) (*models.User, error) {
	if d := policy.CanPerform(actor, policy.Resource{OwnerID: targetID}, policy.ActionApproveApplication); !d.Allowed {
		return nil, forbidden("Only admins can process officer applications.")
	}

	var target *models.User
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		target, err = s.repo.FindByID(ctx, targetID)
		if err != nil {
			return notFoundOr(err, "user")
		}
		if target.Status != models.UserStatusPending {
			return validationError("User is not in a pending state.")
		}
		if target.Role != models.RoleUser {
			return validationError("Only officer applications can be processed here.")
		}

		switch action {
		case ActionApprove:
			target.Role, target.Status = models.RoleOfficer, models.UserStatusApproved
			return s.repo.UpdateRoleAndStatus(ctx, target.ID, target.Role, target.Status)
		case ActionReject:
			target.Status = models.UserStatusRejected
			return s.repo.UpdateStatus(ctx, target.ID, target.Status)
		default:
			return validationError("Invalid action.")
		}
	})
	if err != nil {
		return nil, passThrough(err, "failed to process officer application")
	}
	s.logger.Info("officer application processed", zap.String("actor_id", actor.ID), zap.String("action", action))
	return target, nil
}

// banExpiry maps a duration key onto the new banned_until value. ok is false for unknown keys.
func banExpiry(key string, now time.Time) (until *time.Time, ok bool) {
	var t time.Time
	switch key {
	case "1day":
		t = now.Add(24 * time.Hour)
	case "1week":
		t = now.Add(7 * 24 * time.Hour)
	case "permanent":
		t = permanentBan
	case "unban":
		return nil, true
	default:
		return nil, false
	}
	return &t, true
}

// Ban sets or lifts a ban on a non-admin account.
func (s *UserService) Ban(ctx context.Context, actor policy.Actor, targetID, duration string) (*models.User, error) {
	until, ok := banExpiry(duration, s.now())
	if !ok {
		return nil, validationError("Invalid duration.")
	}

	target, err := s.repo.FindByID(ctx, targetID)
	if err != nil {
		return nil, notFoundOr(err, "user")
	}
	if d := policy.CanPerform(actor, policy.Resource{OwnerID: target.ID, OwnerRole: target.Role}, policy.ActionBanUser); !d.Allowed {
		if d.Reason == policy.ReasonProtectedAdmin {
			return nil, forbidden("You cannot ban an administrative account.")
		}
		return nil, forbidden("You are not allowed to ban users.")
	}

	if err := s.repo.SetBannedUntil(ctx, target.ID, until); err != nil {
		return nil, notFoundOr(err, "user")
	}
	target.BannedUntil = until
	s.logger.Info("ban updated", zap.String("actor_id", actor.ID), zap.String("target_id", target.ID), zap.String("duration", duration))
	return target, nil
}

// DeleteUser permanently removes a non-admin account other than the caller's own.
func (s *UserService) DeleteUser(ctx context.Context, actor policy.Actor, targetID string) error {
	if actor.ID == targetID {
		return forbidden("You cannot delete your own account.")
	}

	target, err := s.repo.FindByID(ctx, targetID)
	if err != nil {
		return notFoundOr(err, "user")
	}
	if d := policy.CanPerform(actor, policy.Resource{OwnerID: target.ID, OwnerRole: target.Role}, policy.ActionDeleteUser); !d.Allowed {
		if d.Reason == policy.ReasonProtectedAdmin {
			return forbidden("Administrative accounts cannot be deleted through this endpoint.")
		}
		return forbidden("You are not allowed to delete users.")
	}

	if err := s.repo.Delete(ctx, target.ID); err != nil {
		return notFoundOr(err, "user")
	}
	s.logger.Info("user deleted", zap.String("actor_id", actor.ID), zap.String("target_id", target.ID), zap.String("role", string(target.Role)))
	return nil
}

// ListUsers returns a page of users.
func (s *UserService) ListUsers(ctx context.Context, actor policy.Actor, filter models.UserFilter) ([]models.User, *response.Pagination, error) {
	if !policy.CanPerform(actor, policy.Resource{}, policy.ActionListUsers).Allowed {
		return nil, nil, forbidden("Admin access required.")
	}
	users, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Internal(err, "failed to list users")
	}
	return users, pagination(filter.Page, filter.PageSize, total), nil
}

// PendingApplications lists users awaiting an approval decision.
func (s *UserService) PendingApplications(ctx context.Context, actor policy.Actor) ([]models.User, error) {
	if !policy.CanPerform(actor, policy.Resource{}, policy.ActionListPending).Allowed {
		return nil, forbidden("Admin access required.")
	}
	users, err := s.repo.ListPending(ctx)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to list pending applications")
	}
	return users, nil
}

// Profile returns the user and their most recent point activity.
func (s *UserService) Profile(ctx context.Context, userID string) (*models.User, []models.PointLog, error) {
	user, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		return nil, nil, notFoundOr(err, "user")
	}
	var logs []models.PointLog
	if s.history != nil {
		logs, err = s.history.ListByUser(ctx, userID, profileHistorySize)
		if err != nil {
			s.logger.Warn("failed to load point history", zap.String("user_id", userID), zap.Error(err))
		}
	}
	return user, logs, nil
}

// Leaderboard returns the top users by points with 1-based ranks.
func (s *UserService) Leaderboard(ctx context.Context) ([]models.LeaderboardEntry, error) {
	users, err := s.repo.TopByPoints(ctx, leaderboardSize)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to load leaderboard")
	}
	entries := make([]models.LeaderboardEntry, 0, len(users))
	for i, u := range users {
		entries = append(entries, models.LeaderboardEntry{
			Rank:     i + 1,
			Username: u.Username,
			Points:   u.Points,
			Badges:   append([]string{}, u.Badges...),
		})
	}
	return entries, nil
}

func pagination(page, pageSize, total int) *response.Pagination {
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 20
	}
	if pageSize > 100 {
		pageSize = 100
	}
	return &response.Pagination{Page: page, PageSize: pageSize, TotalCount: total}
}
