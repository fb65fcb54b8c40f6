package user

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/bug6129/noteguard/app/observability/metrics"
	"github.com/bug6129/noteguard/internal/api"
	"github.com/bug6129/noteguard/internal/types"
)

// DB is the subset of pgxpool.Pool the repository needs.
type DB interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

var _ UserRepo = (*PostgresUserRepo)(nil)

// UserRepo defines the contract for profile, address and admin persistence.
type UserRepo interface {
	GetUserByID(ctx context.Context, userID uuid.UUID) (*types.User, error)
	UpdateProfile(ctx context.Context, userID uuid.UUID, params types.UpdateProfileParams) (*types.User, error)
	MarkEmailVerified(ctx context.Context, userID uuid.UUID) error

	ListAddresses(ctx context.Context, userID uuid.UUID) ([]*types.Address, error)
	// GetAddress is scoped to the owner: someone else's address ID reads as
	// api.ErrNotFound.
	GetAddress(ctx context.Context, userID, addressID uuid.UUID) (*types.Address, error)
	CreateAddress(ctx context.Context, userID uuid.UUID, params types.CreateAddressParams) (*types.Address, error)
	UpdateAddress(ctx context.Context, userID, addressID uuid.UUID, params types.UpdateAddressParams) (*types.Address, error)
	DeleteAddress(ctx context.Context, userID, addressID uuid.UUID) error
	// ClearDefaultAddress unsets the current default so another can take over.
	ClearDefaultAddress(ctx context.Context, userID uuid.UUID) error
	CountAddresses(ctx context.Context, userID uuid.UUID) (int, error)

	ListUsers(ctx context.Context, limit, offset int) ([]*types.User, error)
	SetUserActive(ctx context.Context, userID uuid.UUID, active bool) (*types.User, error)
	GetAdminStats(ctx context.Context) (*types.AdminStats, error)
}

type PostgresUserRepo struct {
	logger *slog.Logger
	db     DB
}

func NewPostgresUserRepo(db DB, logger *slog.Logger) *PostgresUserRepo {
	return &PostgresUserRepo{
		logger: logger,
		db:     db,
	}
}

const userColumns = `id, email, full_name, password_hash, role, is_active,
       phone, date_of_birth, email_verified_at, last_login_at, created_at, updated_at`

func scanUser(row pgx.Row) (*types.User, error) {
	var u types.User
	err := row.Scan(
		&u.ID, &u.Email, &u.FullName, &u.PasswordHash, &u.Role, &u.IsActive,
		&u.Phone, &u.DateOfBirth, &u.EmailVerifiedAt, &u.LastLoginAt, &u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, api.ErrNotFound
		}
		return nil, fmt.Errorf("scan user: %w", err)
	}
	return &u, nil
}

const addressColumns = `id, user_id, street_address, apartment, city, state_province,
       postal_code, country, is_default, created_at, updated_at`

func scanAddress(row pgx.Row) (*types.Address, error) {
	var a types.Address
	err := row.Scan(
		&a.ID, &a.UserID, &a.StreetAddress, &a.Apartment, &a.City, &a.StateProvince,
		&a.PostalCode, &a.Country, &a.IsDefault, &a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, api.ErrNotFound
		}
		return nil, fmt.Errorf("scan address: %w", err)
	}
	return &a, nil
}

func (r *PostgresUserRepo) observe(ctx context.Context, start time.Time, err error) {
	m := metrics.Get()
	m.DbQueryDurationSeconds.Record(ctx, time.Since(start).Seconds())
	if err != nil && !errors.Is(err, api.ErrNotFound) {
		m.DbQueryErrorsTotal.Add(ctx, 1)
	}
}

func (r *PostgresUserRepo) GetUserByID(ctx context.Context, userID uuid.UUID) (*types.User, error) {
	start := time.Now()
	user, err := scanUser(r.db.QueryRow(ctx,
		"SELECT "+userColumns+" FROM users WHERE id = $1", userID))
	r.observe(ctx, start, err)
	return user, err
}

// UpdateProfile writes only the fields present in params.
func (r *PostgresUserRepo) UpdateProfile(ctx context.Context, userID uuid.UUID, params types.UpdateProfileParams) (*types.User, error) {
	setClauses := []string{"updated_at = now()"}
	args := []any{userID}

	addSet := func(column string, value any) {
		args = append(args, value)
		setClauses = append(setClauses, fmt.Sprintf("%s = $%d", column, len(args)))
	}

	if params.FullName != nil {
		addSet("full_name", *params.FullName)
	}
	if params.Phone != nil {
		addSet("phone", *params.Phone)
	}
	if params.DateOfBirth != nil {
		addSet("date_of_birth", *params.DateOfBirth)
	}

	query := fmt.Sprintf(
		"UPDATE users SET %s WHERE id = $1 RETURNING "+userColumns,
		strings.Join(setClauses, ", "))

	start := time.Now()
	user, err := scanUser(r.db.QueryRow(ctx, query, args...))
	r.observe(ctx, start, err)
	if err != nil {
		if errors.Is(err, api.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("update profile: %w", err)
	}
	return user, nil
}

func (r *PostgresUserRepo) MarkEmailVerified(ctx context.Context, userID uuid.UUID) error {
	start := time.Now()
	tag, err := r.db.Exec(ctx,
		`UPDATE users SET email_verified_at = now(), updated_at = now()
         WHERE id = $1 AND email_verified_at IS NULL`, userID)
	r.observe(ctx, start, err)
	if err != nil {
		return fmt.Errorf("mark email verified: %w", err)
	}
	if tag.RowsAffected() == 0 {
		// Already verified or unknown user; verification is idempotent.
		r.logger.DebugContext(ctx, "Email already verified", slog.String("userID", userID.String()))
	}
	return nil
}

func (r *PostgresUserRepo) ListAddresses(ctx context.Context, userID uuid.UUID) ([]*types.Address, error) {
	start := time.Now()
	rows, err := r.db.Query(ctx,
		"SELECT "+addressColumns+` FROM addresses
         WHERE user_id = $1
         ORDER BY is_default DESC, created_at ASC`, userID)
	r.observe(ctx, start, err)
	if err != nil {
		return nil, fmt.Errorf("list addresses: %w", err)
	}
	defer rows.Close()

	addresses := make([]*types.Address, 0)
	for rows.Next() {
		addr, err := scanAddress(rows)
		if err != nil {
			return nil, err
		}
		addresses = append(addresses, addr)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate addresses: %w", err)
	}
	return addresses, nil
}

func (r *PostgresUserRepo) GetAddress(ctx context.Context, userID, addressID uuid.UUID) (*types.Address, error) {
	start := time.Now()
	addr, err := scanAddress(r.db.QueryRow(ctx,
		"SELECT "+addressColumns+" FROM addresses WHERE id = $1 AND user_id = $2",
		addressID, userID))
	r.observe(ctx, start, err)
	return addr, err
}

func (r *PostgresUserRepo) CreateAddress(ctx context.Context, userID uuid.UUID, params types.CreateAddressParams) (*types.Address, error) {
	start := time.Now()
	addr, err := scanAddress(r.db.QueryRow(ctx,
		`INSERT INTO addresses (user_id, street_address, apartment, city, state_province,
                                postal_code, country, is_default)
         VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
         RETURNING `+addressColumns,
		userID, params.StreetAddress, params.Apartment, params.City, params.StateProvince,
		params.PostalCode, params.Country, params.IsDefault))
	r.observe(ctx, start, err)
	if err != nil {
		return nil, fmt.Errorf("create address: %w", err)
	}
	return addr, nil
}

func (r *PostgresUserRepo) UpdateAddress(ctx context.Context, userID, addressID uuid.UUID, params types.UpdateAddressParams) (*types.Address, error) {
	setClauses := []string{"updated_at = now()"}
	args := []any{addressID, userID}

	addSet := func(column string, value any) {
		args = append(args, value)
		setClauses = append(setClauses, fmt.Sprintf("%s = $%d", column, len(args)))
	}

	if params.StreetAddress != nil {
		addSet("street_address", *params.StreetAddress)
	}
	if params.Apartment != nil {
		addSet("apartment", *params.Apartment)
	}
	if params.City != nil {
		addSet("city", *params.City)
	}
	if params.StateProvince != nil {
		addSet("state_province", *params.StateProvince)
	}
	if params.PostalCode != nil {
		addSet("postal_code", *params.PostalCode)
	}
	if params.Country != nil {
		addSet("country", *params.Country)
	}
	if params.IsDefault != nil {
		addSet("is_default", *params.IsDefault)
	}

	query := fmt.Sprintf(
		"UPDATE addresses SET %s WHERE id = $1 AND user_id = $2 RETURNING "+addressColumns,
		strings.Join(setClauses, ", "))

	start := time.Now()
	addr, err := scanAddress(r.db.QueryRow(ctx, query, args...))
	r.observe(ctx, start, err)
	if err != nil {
		if errors.Is(err, api.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("update address: %w", err)
	}
	return addr, nil
}

func (r *PostgresUserRepo) DeleteAddress(ctx context.Context, userID, addressID uuid.UUID) error {
	start := time.Now()
	tag, err := r.db.Exec(ctx,
		"DELETE FROM addresses WHERE id = $1 AND user_id = $2", addressID, userID)
	r.observe(ctx, start, err)
	if err != nil {
		return fmt.Errorf("delete address: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return api.ErrNotFound
	}
	return nil
}

func (r *PostgresUserRepo) ClearDefaultAddress(ctx context.Context, userID uuid.UUID) error {
	start := time.Now()
	_, err := r.db.Exec(ctx,
		"UPDATE addresses SET is_default = FALSE, updated_at = now() WHERE user_id = $1 AND is_default",
		userID)
	r.observe(ctx, start, err)
	if err != nil {
		return fmt.Errorf("clear default address: %w", err)
	}
	return nil
}

func (r *PostgresUserRepo) CountAddresses(ctx context.Context, userID uuid.UUID) (int, error) {
	var count int
	start := time.Now()
	err := r.db.QueryRow(ctx,
		"SELECT COUNT(*) FROM addresses WHERE user_id = $1", userID).Scan(&count)
	r.observe(ctx, start, err)
	if err != nil {
		return 0, fmt.Errorf("count addresses: %w", err)
	}
	return count, nil
}

func (r *PostgresUserRepo) ListUsers(ctx context.Context, limit, offset int) ([]*types.User, error) {
	start := time.Now()
	rows, err := r.db.Query(ctx,
		"SELECT "+userColumns+` FROM users
         ORDER BY created_at DESC LIMIT $1 OFFSET $2`, limit, offset)
	r.observe(ctx, start, err)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	users := make([]*types.User, 0)
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate users: %w", err)
	}
	return users, nil
}

func (r *PostgresUserRepo) SetUserActive(ctx context.Context, userID uuid.UUID, active bool) (*types.User, error) {
	start := time.Now()
	user, err := scanUser(r.db.QueryRow(ctx,
		`UPDATE users SET is_active = $2, updated_at = now()
         WHERE id = $1 RETURNING `+userColumns, userID, active))
	r.observe(ctx, start, err)
	if err != nil {
		if errors.Is(err, api.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("set user active: %w", err)
	}
	return user, nil
}

func (r *PostgresUserRepo) GetAdminStats(ctx context.Context) (*types.AdminStats, error) {
	var stats types.AdminStats
	start := time.Now()
	err := r.db.QueryRow(ctx, `
        SELECT
            (SELECT COUNT(*) FROM users),
            (SELECT COUNT(*) FROM users WHERE is_active),
            (SELECT COUNT(*) FROM users WHERE NOT is_active),
            (SELECT COUNT(*) FROM users WHERE role = 'admin'),
            (SELECT COUNT(*) FROM notes),
            (SELECT COUNT(*) FROM notes WHERE is_private),
            (SELECT COUNT(*) FROM notes WHERE NOT is_private)`).
		Scan(&stats.TotalUsers, &stats.ActiveUsers, &stats.InactiveUsers, &stats.AdminUsers,
			&stats.TotalNotes, &stats.PrivateNotes, &stats.PublicNotes)
	r.observe(ctx, start, err)
	if err != nil {
		return nil, fmt.Errorf("admin stats: %w", err)
	}
	return &stats, nil
}
