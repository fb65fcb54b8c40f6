package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/bug6129/noteguard/app/observability/metrics"
	"github.com/bug6129/noteguard/config"
	"github.com/bug6129/noteguard/internal/api"
	"github.com/bug6129/noteguard/internal/types"
)

var _ AuthService = (*AuthServiceImpl)(nil)

// AuthService defines the business logic contract for authentication.
type AuthService interface {
	Register(ctx context.Context, email, fullName, password string) (*types.User, error)
	Login(ctx context.Context, email, password string) (*TokenResponse, error)
	Refresh(ctx context.Context, refreshToken string) (*TokenResponse, error)
	Logout(ctx context.Context, refreshToken string) error
	ChangePassword(ctx context.Context, userID uuid.UUID, oldPassword, newPassword string) error

	// Authenticate runs the full guard chain against a raw Authorization
	// header: extract bearer token, verify signature, check expiry, resolve
	// the subject to a user, check the active flag. Every failure surfaces as
	// api.ErrUnauthenticated without revealing which step rejected it.
	Authenticate(ctx context.Context, authorizationHeader string) (*types.User, error)
}

// AuthServiceImpl provides the implementation for AuthService.
type AuthServiceImpl struct {
	logger *slog.Logger
	repo   AuthRepo
	cfg    *config.Config
}

// NewAuthService creates a new auth service instance.
func NewAuthService(repo AuthRepo, cfg *config.Config, logger *slog.Logger) *AuthServiceImpl {
	return &AuthServiceImpl{
		logger: logger,
		repo:   repo,
		cfg:    cfg,
	}
}

const minPasswordLength = 8

// sanitizeEmail normalizes an email for the case-insensitive unique check.
func sanitizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (s *AuthServiceImpl) bcryptCost() int {
	cost := s.cfg.Auth.BcryptCost
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		return bcrypt.DefaultCost
	}
	return cost
}

// hashPassword produces an opaque salted hash of the plaintext.
func (s *AuthServiceImpl) hashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.bcryptCost())
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hash), nil
}

// checkPassword reports whether plaintext matches the stored hash. A
// malformed stored hash verifies false, indistinguishable from a mismatch.
func checkPassword(password, storedHash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(storedHash), []byte(password)) == nil
}

// issueAccessToken builds a signed, time-bound token for the user.
func (s *AuthServiceImpl) issueAccessToken(user *types.User, now time.Time) (string, error) {
	claims := &types.Claims{
		UserID: user.ID.String(),
		Role:   string(user.Role),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID.String(),
			Issuer:    s.cfg.JWT.Issuer,
			Audience:  jwt.ClaimStrings{s.cfg.JWT.Audience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.cfg.JWT.AccessTokenTTL)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(s.cfg.JWT.SecretKey))
	if err != nil {
		return "", fmt.Errorf("failed to sign access token: %w", err)
	}
	return signed, nil
}

// parseAccessToken verifies signature, expiry, issuer and audience.
func (s *AuthServiceImpl) parseAccessToken(tokenString string) (*types.Claims, error) {
	claims := &types.Claims{}
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(s.cfg.JWT.Issuer),
		jwt.WithExpirationRequired(),
	}
	if s.cfg.JWT.Audience != "" {
		opts = append(opts, jwt.WithAudience(s.cfg.JWT.Audience))
	}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		return []byte(s.cfg.JWT.SecretKey), nil
	}, opts...)
	if err != nil {
		return nil, fmt.Errorf("token validation failed: %w", err)
	}
	if !token.Valid {
		return nil, errors.New("invalid token")
	}
	return claims, nil
}

// Register creates a new user with a hashed password.
func (s *AuthServiceImpl) Register(ctx context.Context, email, fullName, password string) (*types.User, error) {
	start := time.Now()
	l := s.logger.With(slog.String("method", "Register"))

	defer func() {
		m := metrics.Get()
		m.RegisterRequestsTotal.Add(ctx, 1)
		m.AuthDurationSeconds.Record(ctx, time.Since(start).Seconds())
	}()

	email = sanitizeEmail(email)
	if email == "" || !strings.Contains(email, "@") {
		return nil, fmt.Errorf("invalid email address: %w", api.ErrBadRequest)
	}
	if strings.TrimSpace(fullName) == "" {
		return nil, fmt.Errorf("full name is required: %w", api.ErrBadRequest)
	}
	if len(password) < minPasswordLength {
		return nil, fmt.Errorf("password must be at least %d characters: %w", minPasswordLength, api.ErrBadRequest)
	}

	hash, err := s.hashPassword(password)
	if err != nil {
		l.ErrorContext(ctx, "Failed to hash password", slog.Any("error", err))
		return nil, err
	}

	user, err := s.repo.CreateUser(ctx, email, fullName, hash)
	if err != nil {
		if errors.Is(err, api.ErrConflict) {
			l.WarnContext(ctx, "Registration conflict", slog.String("email", email))
			return nil, err
		}
		l.ErrorContext(ctx, "Failed to create user", slog.Any("error", err))
		return nil, fmt.Errorf("error creating user: %w", err)
	}

	l.InfoContext(ctx, "User registered", slog.String("userID", user.ID.String()))
	return user, nil
}

// Login authenticates credentials and returns an access/refresh token pair.
// All credential failures collapse into api.ErrUnauthenticated.
func (s *AuthServiceImpl) Login(ctx context.Context, email, password string) (*TokenResponse, error) {
	start := time.Now()
	l := s.logger.With(slog.String("method", "Login"))

	m := metrics.Get()
	defer func() {
		m.LoginRequestsTotal.Add(ctx, 1)
		m.AuthDurationSeconds.Record(ctx, time.Since(start).Seconds())
	}()

	user, err := s.repo.GetUserByEmail(ctx, sanitizeEmail(email))
	if err != nil {
		m.LoginFailuresTotal.Add(ctx, 1)
		l.WarnContext(ctx, "Login rejected")
		return nil, fmt.Errorf("login failed: %w", api.ErrUnauthenticated)
	}

	if !checkPassword(password, user.PasswordHash) {
		m.LoginFailuresTotal.Add(ctx, 1)
		l.WarnContext(ctx, "Login rejected")
		return nil, fmt.Errorf("login failed: %w", api.ErrUnauthenticated)
	}

	if !user.IsActive {
		m.LoginFailuresTotal.Add(ctx, 1)
		l.WarnContext(ctx, "Login rejected")
		return nil, fmt.Errorf("login failed: %w", api.ErrUnauthenticated)
	}

	resp, err := s.issueTokenPair(ctx, user)
	if err != nil {
		return nil, err
	}

	if err := s.repo.UpdateLastLogin(ctx, user.ID); err != nil {
		// Advisory metadata; the login still succeeds.
		l.WarnContext(ctx, "Failed to update last login", slog.Any("error", err))
	} else {
		now := time.Now()
		user.LastLoginAt = &now
	}

	l.InfoContext(ctx, "Login successful", slog.String("userID", user.ID.String()))
	return resp, nil
}

func (s *AuthServiceImpl) issueTokenPair(ctx context.Context, user *types.User) (*TokenResponse, error) {
	now := time.Now()
	accessToken, err := s.issueAccessToken(user, now)
	if err != nil {
		return nil, err
	}

	refreshToken := uuid.NewString()
	expiresAt := now.Add(s.cfg.JWT.RefreshTokenTTL)
	if err := s.repo.StoreRefreshToken(ctx, user.ID, refreshToken, expiresAt); err != nil {
		return nil, fmt.Errorf("error storing refresh token: %w", err)
	}

	return &TokenResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		TokenType:    "bearer",
		ExpiresIn:    int(s.cfg.JWT.AccessTokenTTL.Seconds()),
		User:         user,
	}, nil
}

// Refresh rotates a refresh token and issues a new access token.
func (s *AuthServiceImpl) Refresh(ctx context.Context, refreshToken string) (*TokenResponse, error) {
	l := s.logger.With(slog.String("method", "Refresh"))

	userID, expiresAt, revokedAt, err := s.repo.GetRefreshToken(ctx, refreshToken)
	if err != nil {
		return nil, fmt.Errorf("refresh failed: %w", api.ErrUnauthenticated)
	}
	if time.Now().After(expiresAt) || revokedAt != nil {
		return nil, fmt.Errorf("refresh failed: %w", api.ErrUnauthenticated)
	}

	user, err := s.repo.GetUserByID(ctx, userID)
	if err != nil || !user.IsActive {
		return nil, fmt.Errorf("refresh failed: %w", api.ErrUnauthenticated)
	}

	resp, err := s.issueTokenPair(ctx, user)
	if err != nil {
		return nil, err
	}

	if err := s.repo.InvalidateRefreshToken(ctx, refreshToken); err != nil {
		l.WarnContext(ctx, "Failed to invalidate rotated refresh token", slog.Any("error", err))
	}

	return resp, nil
}

// Logout invalidates the presented refresh token. Access tokens simply expire.
func (s *AuthServiceImpl) Logout(ctx context.Context, refreshToken string) error {
	l := s.logger.With(slog.String("method", "Logout"))

	if err := s.repo.InvalidateRefreshToken(ctx, refreshToken); err != nil {
		l.ErrorContext(ctx, "Failed to invalidate refresh token", slog.Any("error", err))
		return fmt.Errorf("error logging out: %w", err)
	}
	return nil
}

// ChangePassword verifies the old password, stores the new hash and revokes
// all outstanding refresh tokens.
func (s *AuthServiceImpl) ChangePassword(ctx context.Context, userID uuid.UUID, oldPassword, newPassword string) error {
	l := s.logger.With(slog.String("method", "ChangePassword"), slog.String("userID", userID.String()))

	if len(newPassword) < minPasswordLength {
		return fmt.Errorf("password must be at least %d characters: %w", minPasswordLength, api.ErrBadRequest)
	}

	user, err := s.repo.GetUserByID(ctx, userID)
	if err != nil {
		return fmt.Errorf("error fetching user: %w", err)
	}

	if !checkPassword(oldPassword, user.PasswordHash) {
		return fmt.Errorf("invalid old password: %w", api.ErrUnauthenticated)
	}

	hash, err := s.hashPassword(newPassword)
	if err != nil {
		return err
	}

	if err := s.repo.UpdatePassword(ctx, userID, hash); err != nil {
		l.ErrorContext(ctx, "Failed to update password", slog.Any("error", err))
		return fmt.Errorf("error updating password: %w", err)
	}

	if err := s.repo.InvalidateAllUserRefreshTokens(ctx, userID); err != nil {
		l.WarnContext(ctx, "Failed to invalidate refresh tokens", slog.Any("error", err))
	}

	l.InfoContext(ctx, "Password changed")
	return nil
}

// Authenticate implements the guard chain described on AuthService.
func (s *AuthServiceImpl) Authenticate(ctx context.Context, authorizationHeader string) (*types.User, error) {
	if authorizationHeader == "" {
		return nil, fmt.Errorf("missing authorization header: %w", api.ErrUnauthenticated)
	}

	headerParts := strings.Fields(authorizationHeader)
	if len(headerParts) != 2 || !strings.EqualFold(headerParts[0], "bearer") {
		return nil, fmt.Errorf("malformed authorization header: %w", api.ErrUnauthenticated)
	}

	claims, err := s.parseAccessToken(headerParts[1])
	if err != nil {
		return nil, fmt.Errorf("%v: %w", err, api.ErrUnauthenticated)
	}

	userID, err := uuid.Parse(claims.UserID)
	if err != nil {
		return nil, fmt.Errorf("invalid subject: %w", api.ErrUnauthenticated)
	}

	user, err := s.repo.GetUserByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("unknown subject: %w", api.ErrUnauthenticated)
	}

	if !user.IsActive {
		return nil, fmt.Errorf("inactive account: %w", api.ErrUnauthenticated)
	}

	return user, nil
}
