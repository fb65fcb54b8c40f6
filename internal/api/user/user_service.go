package user

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/bug6129/noteguard/internal/api"
	"github.com/bug6129/noteguard/internal/types"
)

var _ UserService = (*UserServiceImpl)(nil)

// NoteCounter is the slice of the note store the stats calculation needs.
type NoteCounter interface {
	CountNotesByOwner(ctx context.Context, ownerID uuid.UUID) (int, error)
}

// UserService defines the business logic contract for profiles, addresses and
// administration.
type UserService interface {
	GetProfile(ctx context.Context, userID uuid.UUID) (*types.User, error)
	UpdateProfile(ctx context.Context, userID uuid.UUID, params types.UpdateProfileParams) (*types.User, error)
	VerifyEmail(ctx context.Context, userID uuid.UUID) error
	GetUserStats(ctx context.Context, userID uuid.UUID) (*types.UserStats, error)

	ListAddresses(ctx context.Context, userID uuid.UUID) ([]*types.Address, error)
	CreateAddress(ctx context.Context, userID uuid.UUID, params types.CreateAddressParams) (*types.Address, error)
	UpdateAddress(ctx context.Context, userID, addressID uuid.UUID, params types.UpdateAddressParams) (*types.Address, error)
	DeleteAddress(ctx context.Context, userID, addressID uuid.UUID) error

	ListUsers(ctx context.Context, limit, offset int) ([]*types.User, error)
	// ToggleUserActive flips the target's active flag. Admins cannot
	// deactivate themselves.
	ToggleUserActive(ctx context.Context, admin *types.User, targetID uuid.UUID) (*types.User, error)
	GetAdminStats(ctx context.Context) (*types.AdminStats, error)
}

// UserServiceImpl provides the implementation for UserService.
type UserServiceImpl struct {
	logger     *slog.Logger
	repo       UserRepo
	notes      NoteCounter
	statsCache *cache.Cache
}

const (
	statsCacheTTL     = 5 * time.Minute
	statsCacheCleanup = 10 * time.Minute
	maxUserPageSize   = 100
)

func NewUserService(repo UserRepo, notes NoteCounter, logger *slog.Logger) *UserServiceImpl {
	return &UserServiceImpl{
		logger:     logger,
		repo:       repo,
		notes:      notes,
		statsCache: cache.New(statsCacheTTL, statsCacheCleanup),
	}
}

func statsCacheKey(userID uuid.UUID) string {
	return "stats:" + userID.String()
}

func (s *UserServiceImpl) invalidateStats(userID uuid.UUID) {
	s.statsCache.Delete(statsCacheKey(userID))
}

func (s *UserServiceImpl) GetProfile(ctx context.Context, userID uuid.UUID) (*types.User, error) {
	ctx, span := otel.Tracer("UserService").Start(ctx, "GetProfile", trace.WithAttributes(
		attribute.String("user.id", userID.String()),
	))
	defer span.End()

	user, err := s.repo.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, api.ErrNotFound) {
			return nil, err
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to fetch profile")
		return nil, fmt.Errorf("error fetching profile: %w", err)
	}

	span.SetStatus(codes.Ok, "Profile fetched")
	return user, nil
}

func (s *UserServiceImpl) UpdateProfile(ctx context.Context, userID uuid.UUID, params types.UpdateProfileParams) (*types.User, error) {
	ctx, span := otel.Tracer("UserService").Start(ctx, "UpdateProfile", trace.WithAttributes(
		attribute.String("user.id", userID.String()),
	))
	defer span.End()

	l := s.logger.With(slog.String("method", "UpdateProfile"), slog.String("userID", userID.String()))

	if params.FullName != nil {
		name := strings.TrimSpace(*params.FullName)
		if name == "" {
			return nil, fmt.Errorf("full name cannot be blank: %w", api.ErrBadRequest)
		}
		params.FullName = &name
	}
	if params.DateOfBirth != nil && params.DateOfBirth.After(time.Now()) {
		return nil, fmt.Errorf("date of birth cannot be in the future: %w", api.ErrBadRequest)
	}

	user, err := s.repo.UpdateProfile(ctx, userID, params)
	if err != nil {
		if errors.Is(err, api.ErrNotFound) {
			return nil, err
		}
		l.ErrorContext(ctx, "Failed to update profile", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to update profile")
		return nil, fmt.Errorf("error updating profile: %w", err)
	}

	s.invalidateStats(userID)
	l.InfoContext(ctx, "User profile updated successfully")
	span.SetStatus(codes.Ok, "Profile updated")
	return user, nil
}

// VerifyEmail marks the account's email verified. Idempotent.
func (s *UserServiceImpl) VerifyEmail(ctx context.Context, userID uuid.UUID) error {
	ctx, span := otel.Tracer("UserService").Start(ctx, "VerifyEmail", trace.WithAttributes(
		attribute.String("user.id", userID.String()),
	))
	defer span.End()

	if err := s.repo.MarkEmailVerified(ctx, userID); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to verify email")
		return fmt.Errorf("error verifying email: %w", err)
	}

	s.invalidateStats(userID)
	span.SetStatus(codes.Ok, "Email verified")
	return nil
}

// profileCompletion scores how filled-in the account is. Five components
// weigh 20% each: name, phone, date of birth, verified email, an address.
func profileCompletion(user *types.User, addressCount int) int {
	completion := 0
	if strings.TrimSpace(user.FullName) != "" {
		completion += 20
	}
	if user.Phone != nil && *user.Phone != "" {
		completion += 20
	}
	if user.DateOfBirth != nil {
		completion += 20
	}
	if user.EmailVerifiedAt != nil {
		completion += 20
	}
	if addressCount > 0 {
		completion += 20
	}
	return completion
}

func (s *UserServiceImpl) GetUserStats(ctx context.Context, userID uuid.UUID) (*types.UserStats, error) {
	ctx, span := otel.Tracer("UserService").Start(ctx, "GetUserStats", trace.WithAttributes(
		attribute.String("user.id", userID.String()),
	))
	defer span.End()

	l := s.logger.With(slog.String("method", "GetUserStats"), slog.String("userID", userID.String()))

	if cached, found := s.statsCache.Get(statsCacheKey(userID)); found {
		span.SetStatus(codes.Ok, "Stats served from cache")
		return cached.(*types.UserStats), nil
	}

	user, err := s.repo.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, api.ErrNotFound) {
			return nil, err
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to fetch user")
		return nil, fmt.Errorf("error fetching user: %w", err)
	}

	addressCount, err := s.repo.CountAddresses(ctx, userID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to count addresses")
		return nil, fmt.Errorf("error counting addresses: %w", err)
	}

	noteCount, err := s.notes.CountNotesByOwner(ctx, userID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to count notes")
		return nil, fmt.Errorf("error counting notes: %w", err)
	}

	stats := &types.UserStats{
		UserID:            user.ID,
		AccountAgeDays:    int(time.Since(user.CreatedAt).Hours() / 24),
		EmailVerified:     user.EmailVerifiedAt != nil,
		IsActive:          user.IsActive,
		Role:              user.Role,
		AddressCount:      addressCount,
		NoteCount:         noteCount,
		LastLogin:         user.LastLoginAt,
		ProfileCompletion: profileCompletion(user, addressCount),
	}

	s.statsCache.Set(statsCacheKey(userID), stats, cache.DefaultExpiration)
	l.DebugContext(ctx, "User stats computed", slog.Int("completion", stats.ProfileCompletion))
	span.SetStatus(codes.Ok, "Stats computed")
	return stats, nil
}

func (s *UserServiceImpl) ListAddresses(ctx context.Context, userID uuid.UUID) ([]*types.Address, error) {
	ctx, span := otel.Tracer("UserService").Start(ctx, "ListAddresses", trace.WithAttributes(
		attribute.String("user.id", userID.String()),
	))
	defer span.End()

	addresses, err := s.repo.ListAddresses(ctx, userID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to list addresses")
		return nil, fmt.Errorf("error listing addresses: %w", err)
	}

	span.SetStatus(codes.Ok, "Addresses listed")
	return addresses, nil
}

func validateCreateAddress(params types.CreateAddressParams) error {
	if strings.TrimSpace(params.StreetAddress) == "" {
		return fmt.Errorf("street address is required: %w", api.ErrBadRequest)
	}
	if strings.TrimSpace(params.City) == "" {
		return fmt.Errorf("city is required: %w", api.ErrBadRequest)
	}
	if strings.TrimSpace(params.PostalCode) == "" {
		return fmt.Errorf("postal code is required: %w", api.ErrBadRequest)
	}
	if strings.TrimSpace(params.Country) == "" {
		return fmt.Errorf("country is required: %w", api.ErrBadRequest)
	}
	return nil
}

func (s *UserServiceImpl) CreateAddress(ctx context.Context, userID uuid.UUID, params types.CreateAddressParams) (*types.Address, error) {
	ctx, span := otel.Tracer("UserService").Start(ctx, "CreateAddress", trace.WithAttributes(
		attribute.String("user.id", userID.String()),
	))
	defer span.End()

	l := s.logger.With(slog.String("method", "CreateAddress"), slog.String("userID", userID.String()))

	if err := validateCreateAddress(params); err != nil {
		return nil, err
	}

	count, err := s.repo.CountAddresses(ctx, userID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to count addresses")
		return nil, fmt.Errorf("error counting addresses: %w", err)
	}

	// The first address becomes the default automatically.
	if count == 0 {
		params.IsDefault = true
	} else if params.IsDefault {
		if err := s.repo.ClearDefaultAddress(ctx, userID); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "Failed to clear default address")
			return nil, fmt.Errorf("error clearing default address: %w", err)
		}
	}

	addr, err := s.repo.CreateAddress(ctx, userID, params)
	if err != nil {
		l.ErrorContext(ctx, "Failed to create address", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to create address")
		return nil, fmt.Errorf("error creating address: %w", err)
	}

	s.invalidateStats(userID)
	l.InfoContext(ctx, "Address created", slog.String("addressID", addr.ID.String()))
	span.SetStatus(codes.Ok, "Address created")
	return addr, nil
}

func (s *UserServiceImpl) UpdateAddress(ctx context.Context, userID, addressID uuid.UUID, params types.UpdateAddressParams) (*types.Address, error) {
	ctx, span := otel.Tracer("UserService").Start(ctx, "UpdateAddress", trace.WithAttributes(
		attribute.String("user.id", userID.String()),
		attribute.String("address.id", addressID.String()),
	))
	defer span.End()

	l := s.logger.With(slog.String("method", "UpdateAddress"), slog.String("addressID", addressID.String()))

	// Promoting an address to default demotes the current one first.
	if params.IsDefault != nil && *params.IsDefault {
		if _, err := s.repo.GetAddress(ctx, userID, addressID); err != nil {
			return nil, err
		}
		if err := s.repo.ClearDefaultAddress(ctx, userID); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "Failed to clear default address")
			return nil, fmt.Errorf("error clearing default address: %w", err)
		}
	}

	addr, err := s.repo.UpdateAddress(ctx, userID, addressID, params)
	if err != nil {
		if errors.Is(err, api.ErrNotFound) {
			return nil, err
		}
		l.ErrorContext(ctx, "Failed to update address", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to update address")
		return nil, fmt.Errorf("error updating address: %w", err)
	}

	s.invalidateStats(userID)
	span.SetStatus(codes.Ok, "Address updated")
	return addr, nil
}

func (s *UserServiceImpl) DeleteAddress(ctx context.Context, userID, addressID uuid.UUID) error {
	ctx, span := otel.Tracer("UserService").Start(ctx, "DeleteAddress", trace.WithAttributes(
		attribute.String("user.id", userID.String()),
		attribute.String("address.id", addressID.String()),
	))
	defer span.End()

	if err := s.repo.DeleteAddress(ctx, userID, addressID); err != nil {
		if errors.Is(err, api.ErrNotFound) {
			return err
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to delete address")
		return fmt.Errorf("error deleting address: %w", err)
	}

	s.invalidateStats(userID)
	span.SetStatus(codes.Ok, "Address deleted")
	return nil
}

func (s *UserServiceImpl) ListUsers(ctx context.Context, limit, offset int) ([]*types.User, error) {
	ctx, span := otel.Tracer("UserService").Start(ctx, "ListUsers")
	defer span.End()

	if limit <= 0 {
		limit = 20
	}
	if limit > maxUserPageSize {
		limit = maxUserPageSize
	}
	if offset < 0 {
		offset = 0
	}

	users, err := s.repo.ListUsers(ctx, limit, offset)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to list users")
		return nil, fmt.Errorf("error listing users: %w", err)
	}

	span.SetStatus(codes.Ok, "Users listed")
	return users, nil
}

func (s *UserServiceImpl) ToggleUserActive(ctx context.Context, admin *types.User, targetID uuid.UUID) (*types.User, error) {
	ctx, span := otel.Tracer("UserService").Start(ctx, "ToggleUserActive", trace.WithAttributes(
		attribute.String("admin.id", admin.ID.String()),
		attribute.String("target.id", targetID.String()),
	))
	defer span.End()

	l := s.logger.With(slog.String("method", "ToggleUserActive"), slog.String("targetID", targetID.String()))

	if admin.ID == targetID {
		return nil, fmt.Errorf("admins cannot deactivate their own account: %w", api.ErrBadRequest)
	}

	target, err := s.repo.GetUserByID(ctx, targetID)
	if err != nil {
		if errors.Is(err, api.ErrNotFound) {
			return nil, err
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to fetch target user")
		return nil, fmt.Errorf("error fetching user: %w", err)
	}

	updated, err := s.repo.SetUserActive(ctx, targetID, !target.IsActive)
	if err != nil {
		l.ErrorContext(ctx, "Failed to toggle user", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to toggle user")
		return nil, fmt.Errorf("error toggling user: %w", err)
	}

	s.invalidateStats(targetID)
	l.InfoContext(ctx, "User active flag toggled",
		slog.Bool("isActive", updated.IsActive), slog.String("adminID", admin.ID.String()))
	span.SetStatus(codes.Ok, "User toggled")
	return updated, nil
}

func (s *UserServiceImpl) GetAdminStats(ctx context.Context) (*types.AdminStats, error) {
	ctx, span := otel.Tracer("UserService").Start(ctx, "GetAdminStats")
	defer span.End()

	stats, err := s.repo.GetAdminStats(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to compute admin stats")
		return nil, fmt.Errorf("error computing admin stats: %w", err)
	}

	span.SetStatus(codes.Ok, "Admin stats computed")
	return stats, nil
}
