package user

import (
	"context"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bug6129/noteguard/internal/api"
	"github.com/bug6129/noteguard/internal/types"
)

func newMockRepo(t *testing.T) (*PostgresUserRepo, pgxmock.PgxPoolIface) {
	t.Helper()
	mockDB, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mockDB.Close)

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	return NewPostgresUserRepo(mockDB, logger), mockDB
}

func addressRows(id, userID uuid.UUID, isDefault bool) *pgxmock.Rows {
	now := time.Now()
	return pgxmock.NewRows([]string{
		"id", "user_id", "street_address", "apartment", "city", "state_province",
		"postal_code", "country", "is_default", "created_at", "updated_at",
	}).AddRow(id, userID, "1 Main St", (*string)(nil), "Springfield", (*string)(nil),
		"12345", "USA", isDefault, now, now)
}

func TestPostgresUserRepo_UpdateProfile_PartialSet(t *testing.T) {
	repo, mockDB := newMockRepo(t)
	id := uuid.New()
	phone := "+1 555 0100"
	now := time.Now()

	mockDB.ExpectQuery(`(?s)UPDATE users SET updated_at = now\(\), phone = \$2 WHERE id = \$1`).
		WithArgs(id, phone).
		WillReturnRows(pgxmock.NewRows([]string{
			"id", "email", "full_name", "password_hash", "role", "is_active",
			"phone", "date_of_birth", "email_verified_at", "last_login_at", "created_at", "updated_at",
		}).AddRow(id, "jane@example.com", "Jane Doe", "hash", types.RoleUser, true,
			&phone, (*time.Time)(nil), (*time.Time)(nil), (*time.Time)(nil), now, now))

	user, err := repo.UpdateProfile(context.Background(), id, types.UpdateProfileParams{Phone: &phone})
	require.NoError(t, err)
	require.NotNil(t, user.Phone)
	assert.Equal(t, phone, *user.Phone)
	assert.NoError(t, mockDB.ExpectationsWereMet())
}

func TestPostgresUserRepo_GetAddress_ScopedToOwner(t *testing.T) {
	repo, mockDB := newMockRepo(t)
	userID, addressID := uuid.New(), uuid.New()

	mockDB.ExpectQuery("(?s)SELECT (.+) FROM addresses WHERE id = \\$1 AND user_id = \\$2").
		WithArgs(addressID, userID).
		WillReturnRows(pgxmock.NewRows([]string{
			"id", "user_id", "street_address", "apartment", "city", "state_province",
			"postal_code", "country", "is_default", "created_at", "updated_at",
		}))

	_, err := repo.GetAddress(context.Background(), userID, addressID)
	assert.ErrorIs(t, err, api.ErrNotFound)
}

func TestPostgresUserRepo_ListAddresses_DefaultFirst(t *testing.T) {
	repo, mockDB := newMockRepo(t)
	userID := uuid.New()

	rows := addressRows(uuid.New(), userID, true).
		AddRow(uuid.New(), userID, "2 Oak Ave", (*string)(nil), "Springfield", (*string)(nil),
			"12345", "USA", false, time.Now(), time.Now())

	mockDB.ExpectQuery("(?s)SELECT (.+) FROM addresses(.+)ORDER BY is_default DESC").
		WithArgs(userID).
		WillReturnRows(rows)

	addresses, err := repo.ListAddresses(context.Background(), userID)
	require.NoError(t, err)
	require.Len(t, addresses, 2)
	assert.True(t, addresses[0].IsDefault)
	assert.False(t, addresses[1].IsDefault)
}

func TestPostgresUserRepo_ClearDefaultAddress(t *testing.T) {
	repo, mockDB := newMockRepo(t)
	userID := uuid.New()

	mockDB.ExpectExec("UPDATE addresses SET is_default = FALSE").
		WithArgs(userID).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	require.NoError(t, repo.ClearDefaultAddress(context.Background(), userID))
	assert.NoError(t, mockDB.ExpectationsWereMet())
}

func TestPostgresUserRepo_GetAdminStats(t *testing.T) {
	repo, mockDB := newMockRepo(t)

	mockDB.ExpectQuery(`(?s)SELECT\s+\(SELECT COUNT\(\*\) FROM users\)`).
		WillReturnRows(pgxmock.NewRows([]string{
			"total_users", "active_users", "inactive_users", "admin_users",
			"total_notes", "private_notes", "public_notes",
		}).AddRow(10, 8, 2, 1, 25, 20, 5))

	stats, err := repo.GetAdminStats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 10, stats.TotalUsers)
	assert.Equal(t, 8, stats.ActiveUsers)
	assert.Equal(t, 2, stats.InactiveUsers)
	assert.Equal(t, 25, stats.TotalNotes)
	assert.NoError(t, mockDB.ExpectationsWereMet())
}
