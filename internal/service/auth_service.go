package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/roadwatch-api/internal/dto"
	"github.com/noah-isme/roadwatch-api/internal/models"
	appErrors "github.com/noah-isme/roadwatch-api/pkg/errors"
	"github.com/noah-isme/roadwatch-api/pkg/idgen"
	"github.com/noah-isme/roadwatch-api/pkg/validation"
)

// banTimeLayout renders ban expiries in login-gate messages.
const banTimeLayout = "2006-01-02 15:04:05"

type authUserRepository interface {
	FindByUsername(ctx context.Context, username string) (*models.User, error)
	FindByID(ctx context.Context, id string) (*models.User, error)
}

// TokenBlocklist records revoked token IDs until the tokens would have expired.
type TokenBlocklist interface {
	Revoke(ctx context.Context, jti string, ttl time.Duration) error
	IsRevoked(ctx context.Context, jti string) (bool, error)
}

// AuthConfig defines configuration for authentication flows.
type AuthConfig struct {
	Secret     string
	Issuer     string
	AccessTTL  time.Duration
	RefreshTTL time.Duration
}

// AuthService provides login, token rotation and per-request authentication.
type AuthService struct {
	users     authUserRepository
	blocklist TokenBlocklist
	validator *validator.Validate
	logger    *zap.Logger
	config    AuthConfig
	now       Clock
}

// NewAuthService constructs an AuthService instance.
func NewAuthService(users authUserRepository, blocklist TokenBlocklist, validate *validator.Validate, logger *zap.Logger, config AuthConfig) *AuthService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validation.New()
	}
	return &AuthService{users: users, blocklist: blocklist, validator: validate, logger: logger, config: config, now: utcNow}
}

// LoginGate decides whether user may hold a session at now.
func LoginGate(user *models.User, now time.Time) error {
	switch user.Status {
	case models.UserStatusPending:
		return appErrors.Clone(appErrors.ErrInactiveAccount, "Account is still pending approval.")
	case models.UserStatusRejected:
		return appErrors.Clone(appErrors.ErrInactiveAccount, "Your application was rejected.")
	}
	if user.IsBanned(now) {
		return appErrors.Clone(appErrors.ErrBannedAccount,
			fmt.Sprintf("Account is banned until %s UTC.", user.BannedUntil.UTC().Format(banTimeLayout)))
	}
	return nil
}

// Login verifies credentials, applies the login gate and issues a token pair.
func (s *AuthService) Login(ctx context.Context, req dto.LoginRequest) (*dto.TokenResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, invalidPayload(err)
	}

	user, err := s.users.FindByUsername(ctx, req.Username)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrInvalidCredentials, "Invalid username or password.")
		}
		return nil, appErrors.Internal(err, "failed to fetch user")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		return nil, appErrors.Clone(appErrors.ErrInvalidCredentials, "Invalid username or password.")
	}

	if err := LoginGate(user, s.now()); err != nil {
		return nil, err
	}

	return s.issue(user)
}

// Refresh exchanges a valid refresh token for a new pair. The presented token is revoked.
func (s *AuthService) Refresh(ctx context.Context, req dto.RefreshRequest) (*dto.TokenResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, invalidPayload(err)
	}

	claims, err := s.verify(ctx, req.RefreshToken, models.TokenRefresh)
	if err != nil {
		return nil, err
	}

	user, err := s.users.FindByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrUnauthorized, "associated user no longer exists")
		}
		return nil, appErrors.Internal(err, "failed to load user")
	}
	if err := LoginGate(user, s.now()); err != nil {
		return nil, err
	}

	if err := s.blocklist.Revoke(ctx, claims.ID, s.remaining(claims)); err != nil {
		return nil, appErrors.Internal(err, "failed to rotate refresh token")
	}

	return s.issue(user)
}

// Logout revokes the access token and, when given and owned by the caller, the refresh token.
func (s *AuthService) Logout(ctx context.Context, claims *models.JWTClaims, refreshToken string) error {
	if err := s.blocklist.Revoke(ctx, claims.ID, s.remaining(claims)); err != nil {
		return appErrors.Internal(err, "failed to revoke token")
	}

	if refreshToken == "" {
		return nil
	}
	refresh, err := s.parse(refreshToken, models.TokenRefresh)
	if err != nil {
		s.logger.Debug("ignoring invalid refresh token on logout", zap.Error(err))
		return nil
	}
	if refresh.UserID != claims.UserID {
		return appErrors.Clone(appErrors.ErrForbidden, "token does not belong to user")
	}
	if err := s.blocklist.Revoke(ctx, refresh.ID, s.remaining(refresh)); err != nil {
		return appErrors.Internal(err, "failed to revoke refresh token")
	}
	return nil
}

// Authenticate validates an access token for a request. The user is reloaded so
// bans and role changes apply immediately.
func (s *AuthService) Authenticate(ctx context.Context, token string) (*models.JWTClaims, error) {
	claims, err := s.verify(ctx, token, models.TokenAccess)
	if err != nil {
		return nil, err
	}

	user, err := s.users.FindByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrUnauthorized, "account no longer exists")
		}
		return nil, appErrors.Internal(err, "failed to load user")
	}
	if err := LoginGate(user, s.now()); err != nil {
		return nil, err
	}

	claims.Role = user.Role
	claims.Username = user.Username
	return claims, nil
}

func (s *AuthService) verify(ctx context.Context, token string, want models.TokenType) (*models.JWTClaims, error) {
	claims, err := s.parse(token, want)
	if err != nil {
		return nil, err
	}
	revoked, err := s.blocklist.IsRevoked(ctx, claims.ID)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to check token revocation")
	}
	if revoked {
		return nil, appErrors.ErrTokenRevoked
	}
	return claims, nil
}

func (s *AuthService) parse(tokenString string, want models.TokenType) (*models.JWTClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &models.JWTClaims{}, func(token *jwt.Token) (interface{}, error) {
		return []byte(s.config.Secret), nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(s.config.Issuer),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrUnauthorized.Code, appErrors.ErrUnauthorized.Status, "invalid token")
	}

	claims, ok := token.Claims.(*models.JWTClaims)
	if !ok || !token.Valid || claims.ID == "" {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid token claims")
	}
	if claims.TokenType != want {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, fmt.Sprintf("%s token required", want))
	}
	return claims, nil
}

func (s *AuthService) issue(user *models.User) (*dto.TokenResponse, error) {
	issuedAt := s.now()
	access, err := s.sign(user, models.TokenAccess, issuedAt, s.config.AccessTTL)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to create access token")
	}
	refresh, err := s.sign(user, models.TokenRefresh, issuedAt, s.config.RefreshTTL)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to create refresh token")
	}
	return &dto.TokenResponse{
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresIn:    int64(s.config.AccessTTL.Seconds()),
		IssuedAt:     issuedAt,
		Role:         string(user.Role),
		Username:     user.Username,
	}, nil
}

func (s *AuthService) sign(user *models.User, typ models.TokenType, issuedAt time.Time, ttl time.Duration) (string, error) {
	claims := &models.JWTClaims{
		UserID:    user.ID,
		Username:  user.Username,
		Role:      user.Role,
		TokenType: typ,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        idgen.NewKSUID(),
			Issuer:    s.config.Issuer,
			Subject:   user.ID,
			ExpiresAt: jwt.NewNumericDate(issuedAt.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			NotBefore: jwt.NewNumericDate(issuedAt),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(s.config.Secret))
}

// remaining is how long the token would still be accepted.
func (s *AuthService) remaining(claims *models.JWTClaims) time.Duration {
	if claims.ExpiresAt == nil {
		return s.config.RefreshTTL
	}
	return claims.ExpiresAt.Time.Sub(s.now())
}
