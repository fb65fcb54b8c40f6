package auth

import (
	"context"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bug6129/noteguard/internal/api"
)

func newMockRepo(t *testing.T) (*PostgresAuthRepo, pgxmock.PgxPoolIface) {
	t.Helper()
	mockDB, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mockDB.Close)

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	return NewPostgresAuthRepo(mockDB, logger), mockDB
}

func userRows(id uuid.UUID, email string, active bool) *pgxmock.Rows {
	now := time.Now()
	return pgxmock.NewRows([]string{
		"id", "email", "full_name", "password_hash", "role", "is_active",
		"phone", "date_of_birth", "email_verified_at", "last_login_at", "created_at", "updated_at",
	}).AddRow(
		id, email, "Jane Doe", "$2a$10$fakehash", "user", active,
		(*string)(nil), (*time.Time)(nil), (*time.Time)(nil), (*time.Time)(nil), now, now,
	)
}

func TestPostgresAuthRepo_GetUserByEmail(t *testing.T) {
	repo, mockDB := newMockRepo(t)
	ctx := context.Background()
	id := uuid.New()

	mockDB.ExpectQuery("(?s)SELECT (.+) FROM users WHERE email").
		WithArgs("jane@example.com").
		WillReturnRows(userRows(id, "jane@example.com", true))

	user, err := repo.GetUserByEmail(ctx, "jane@example.com")
	require.NoError(t, err)
	assert.Equal(t, id, user.ID)
	assert.Equal(t, "jane@example.com", user.Email)
	assert.NoError(t, mockDB.ExpectationsWereMet())
}

func TestPostgresAuthRepo_GetUserByEmail_NotFound(t *testing.T) {
	repo, mockDB := newMockRepo(t)

	mockDB.ExpectQuery("(?s)SELECT (.+) FROM users WHERE email").
		WithArgs("nobody@example.com").
		WillReturnRows(pgxmock.NewRows([]string{
			"id", "email", "full_name", "password_hash", "role", "is_active",
			"phone", "date_of_birth", "email_verified_at", "last_login_at", "created_at", "updated_at",
		}))

	_, err := repo.GetUserByEmail(context.Background(), "nobody@example.com")
	assert.ErrorIs(t, err, api.ErrNotFound)
	assert.NoError(t, mockDB.ExpectationsWereMet())
}

func TestPostgresAuthRepo_CreateUser_Conflict(t *testing.T) {
	repo, mockDB := newMockRepo(t)

	mockDB.ExpectQuery("(?s)INSERT INTO users").
		WithArgs("jane@example.com", "Jane Doe", "hash").
		WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "users_email_key"})

	_, err := repo.CreateUser(context.Background(), "jane@example.com", "Jane Doe", "hash")
	assert.ErrorIs(t, err, api.ErrConflict)
	assert.NoError(t, mockDB.ExpectationsWereMet())
}

func TestPostgresAuthRepo_UpdatePassword_NotFound(t *testing.T) {
	repo, mockDB := newMockRepo(t)
	id := uuid.New()

	mockDB.ExpectExec("UPDATE users SET password_hash").
		WithArgs("newhash", id).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	err := repo.UpdatePassword(context.Background(), id, "newhash")
	assert.ErrorIs(t, err, api.ErrNotFound)
	assert.NoError(t, mockDB.ExpectationsWereMet())
}

func TestPostgresAuthRepo_RefreshTokenLifecycle(t *testing.T) {
	repo, mockDB := newMockRepo(t)
	ctx := context.Background()
	userID := uuid.New()
	token := uuid.NewString()
	expiresAt := time.Now().Add(time.Hour).Truncate(time.Second)

	mockDB.ExpectExec("INSERT INTO refresh_tokens").
		WithArgs(userID, token, expiresAt).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	mockDB.ExpectQuery("SELECT user_id, expires_at, revoked_at").
		WithArgs(token).
		WillReturnRows(pgxmock.NewRows([]string{"user_id", "expires_at", "revoked_at"}).
			AddRow(userID, expiresAt, (*time.Time)(nil)))

	mockDB.ExpectExec("UPDATE refresh_tokens SET revoked_at").
		WithArgs(token).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	require.NoError(t, repo.StoreRefreshToken(ctx, userID, token, expiresAt))

	gotUser, gotExpiry, revokedAt, err := repo.GetRefreshToken(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, userID, gotUser)
	assert.WithinDuration(t, expiresAt, gotExpiry, time.Second)
	assert.Nil(t, revokedAt)

	require.NoError(t, repo.InvalidateRefreshToken(ctx, token))
	assert.NoError(t, mockDB.ExpectationsWereMet())
}
