package auth

import (
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/bug6129/noteguard/internal/types"
)

func newTestRouter(svc AuthService) *chi.Mux {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

	r := chi.NewRouter()
	r.Group(func(r chi.Router) {
		r.Use(Authenticate(svc, logger))
		r.Get("/me", func(w http.ResponseWriter, req *http.Request) {
			user, ok := GetUserFromContext(req.Context())
			if !ok {
				w.WriteHeader(http.StatusInternalServerError)
				return
			}
			w.Write([]byte(user.Email))
		})

		r.Group(func(r chi.Router) {
			r.Use(RequireRole(types.RoleAdmin, logger))
			r.Get("/admin", func(w http.ResponseWriter, req *http.Request) {
				w.WriteHeader(http.StatusOK)
			})
		})
	})
	return r
}

func TestAuthenticateMiddleware(t *testing.T) {
	repo := new(MockAuthRepo)
	svc := newTestService(repo)
	router := newTestRouter(svc)

	user := testUser(true)
	token, err := svc.issueAccessToken(user, time.Now())
	require.NoError(t, err)

	t.Run("valid token reaches handler", func(t *testing.T) {
		repo.On("GetUserByID", mock.Anything, user.ID).Return(user, nil).Once()

		req := httptest.NewRequest(http.MethodGet, "/me", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, user.Email, rec.Body.String())
	})

	t.Run("missing header is rejected", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/me", nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Equal(t, "Bearer", rec.Header().Get("WWW-Authenticate"))
	})

	t.Run("garbage token is rejected", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/me", nil)
		req.Header.Set("Authorization", "Bearer garbage")
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("inactive account is rejected", func(t *testing.T) {
		inactive := testUser(false)
		inactiveToken, err := svc.issueAccessToken(inactive, time.Now())
		require.NoError(t, err)
		repo.On("GetUserByID", mock.Anything, inactive.ID).Return(inactive, nil).Once()

		req := httptest.NewRequest(http.MethodGet, "/me", nil)
		req.Header.Set("Authorization", "Bearer "+inactiveToken)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}

func TestRequireRoleMiddleware(t *testing.T) {
	repo := new(MockAuthRepo)
	svc := newTestService(repo)
	router := newTestRouter(svc)

	t.Run("regular user gets forbidden", func(t *testing.T) {
		user := testUser(true)
		token, err := svc.issueAccessToken(user, time.Now())
		require.NoError(t, err)
		repo.On("GetUserByID", mock.Anything, user.ID).Return(user, nil).Once()

		req := httptest.NewRequest(http.MethodGet, "/admin", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("admin passes", func(t *testing.T) {
		admin := testUser(true)
		admin.Role = types.RoleAdmin
		token, err := svc.issueAccessToken(admin, time.Now())
		require.NoError(t, err)
		repo.On("GetUserByID", mock.Anything, admin.ID).Return(admin, nil).Once()

		req := httptest.NewRequest(http.MethodGet, "/admin", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("unauthenticated request never reaches role check", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/admin", nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}
