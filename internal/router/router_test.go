package router

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/bug6129/noteguard/internal/api"
	"github.com/bug6129/noteguard/internal/api/auth"
	"github.com/bug6129/noteguard/internal/types"
)

// stubAuthService resolves tokens from a fixed table instead of verifying
// signatures; the routing tests only care about who the guard admits.
type stubAuthService struct {
	users map[string]*types.User
}

func (s *stubAuthService) Authenticate(ctx context.Context, header string) (*types.User, error) {
	if user, ok := s.users[header]; ok {
		return user, nil
	}
	return nil, fmt.Errorf("unknown token: %w", api.ErrUnauthenticated)
}

func (s *stubAuthService) Register(ctx context.Context, email, fullName, password string) (*types.User, error) {
	return nil, nil
}

func (s *stubAuthService) Login(ctx context.Context, email, password string) (*auth.TokenResponse, error) {
	return nil, nil
}

func (s *stubAuthService) Refresh(ctx context.Context, refreshToken string) (*auth.TokenResponse, error) {
	return nil, nil
}

func (s *stubAuthService) Logout(ctx context.Context, refreshToken string) error { return nil }

func (s *stubAuthService) ChangePassword(ctx context.Context, userID uuid.UUID, oldPassword, newPassword string) error {
	return nil
}

// echoHandlers satisfies every handler interface by answering 200 with the
// route name, so the tests can tell which handler a path reached.
type echoHandlers struct{}

func (echoHandlers) respond(name string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		fmt.Fprint(w, name)
	}
}

func (h echoHandlers) Register(w http.ResponseWriter, r *http.Request) { h.respond("register")(w, r) }
func (h echoHandlers) Login(w http.ResponseWriter, r *http.Request)    { h.respond("login")(w, r) }
func (h echoHandlers) Refresh(w http.ResponseWriter, r *http.Request)  { h.respond("refresh")(w, r) }
func (h echoHandlers) Logout(w http.ResponseWriter, r *http.Request)   { h.respond("logout")(w, r) }
func (h echoHandlers) Me(w http.ResponseWriter, r *http.Request)       { h.respond("me")(w, r) }
func (h echoHandlers) ChangePassword(w http.ResponseWriter, r *http.Request) {
	h.respond("password")(w, r)
}

func (h echoHandlers) CreateNote(w http.ResponseWriter, r *http.Request) {
	h.respond("createNote")(w, r)
}
func (h echoHandlers) GetNote(w http.ResponseWriter, r *http.Request) { h.respond("getNote")(w, r) }
func (h echoHandlers) UpdateNote(w http.ResponseWriter, r *http.Request) {
	h.respond("updateNote")(w, r)
}
func (h echoHandlers) DeleteNote(w http.ResponseWriter, r *http.Request) {
	h.respond("deleteNote")(w, r)
}
func (h echoHandlers) ListMyNotes(w http.ResponseWriter, r *http.Request) {
	h.respond("listMyNotes")(w, r)
}
func (h echoHandlers) ListPublicNotes(w http.ResponseWriter, r *http.Request) {
	h.respond("listPublicNotes")(w, r)
}

func (h echoHandlers) GetProfile(w http.ResponseWriter, r *http.Request) {
	h.respond("getProfile")(w, r)
}
func (h echoHandlers) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	h.respond("updateProfile")(w, r)
}
func (h echoHandlers) VerifyEmail(w http.ResponseWriter, r *http.Request) {
	h.respond("verifyEmail")(w, r)
}
func (h echoHandlers) GetUserStats(w http.ResponseWriter, r *http.Request) {
	h.respond("userStats")(w, r)
}
func (h echoHandlers) ListAddresses(w http.ResponseWriter, r *http.Request) {
	h.respond("listAddresses")(w, r)
}
func (h echoHandlers) CreateAddress(w http.ResponseWriter, r *http.Request) {
	h.respond("createAddress")(w, r)
}
func (h echoHandlers) UpdateAddress(w http.ResponseWriter, r *http.Request) {
	h.respond("updateAddress")(w, r)
}
func (h echoHandlers) DeleteAddress(w http.ResponseWriter, r *http.Request) {
	h.respond("deleteAddress")(w, r)
}
func (h echoHandlers) AdminListUsers(w http.ResponseWriter, r *http.Request) {
	h.respond("adminUsers")(w, r)
}
func (h echoHandlers) AdminToggleUser(w http.ResponseWriter, r *http.Request) {
	h.respond("adminToggle")(w, r)
}
func (h echoHandlers) AdminStats(w http.ResponseWriter, r *http.Request) {
	h.respond("adminStats")(w, r)
}

func newTestRouter() chi.Router {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

	svc := &stubAuthService{users: map[string]*types.User{
		"Bearer user-token":  {ID: uuid.New(), Role: types.RoleUser, IsActive: true},
		"Bearer admin-token": {ID: uuid.New(), Role: types.RoleAdmin, IsActive: true},
	}}

	h := echoHandlers{}
	return SetupRouter(&Config{
		AuthHandler:            h,
		NoteHandler:            h,
		UserHandler:            h,
		AuthenticateMiddleware: auth.Authenticate(svc, logger),
		RequireAdminMiddleware: auth.RequireRole(types.RoleAdmin, logger),
	})
}

func doRequest(t *testing.T, router chi.Router, method, path, token string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	if token != "" {
		req.Header.Set("Authorization", token)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestRouter_PublicRoutes(t *testing.T) {
	router := newTestRouter()

	tests := []struct {
		method string
		path   string
		want   string
	}{
		{http.MethodPost, "/api/v1/auth/register", "register"},
		{http.MethodPost, "/api/v1/auth/login", "login"},
		{http.MethodPost, "/api/v1/auth/refresh", "refresh"},
		{http.MethodGet, "/api/v1/notes/public", "listPublicNotes"},
	}
	for _, tc := range tests {
		t.Run(tc.path, func(t *testing.T) {
			rec := doRequest(t, router, tc.method, tc.path, "")
			assert.Equal(t, http.StatusOK, rec.Code)
			assert.Equal(t, tc.want, rec.Body.String())
		})
	}
}

func TestRouter_Ping(t *testing.T) {
	rec := doRequest(t, newTestRouter(), http.MethodGet, "/ping", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "pong", rec.Body.String())
}

func TestRouter_ProtectedRoutesRequireAuth(t *testing.T) {
	router := newTestRouter()

	paths := []struct {
		method string
		path   string
	}{
		{http.MethodGet, "/api/v1/auth/me"},
		{http.MethodGet, "/api/v1/notes"},
		{http.MethodPost, "/api/v1/notes"},
		{http.MethodGet, "/api/v1/users/profile"},
		{http.MethodGet, "/api/v1/users/stats"},
		{http.MethodGet, "/api/v1/users/addresses"},
	}
	for _, tc := range paths {
		t.Run(tc.path, func(t *testing.T) {
			rec := doRequest(t, router, tc.method, tc.path, "")
			assert.Equal(t, http.StatusUnauthorized, rec.Code)
		})
	}
}

func TestRouter_ProtectedRoutesWithToken(t *testing.T) {
	router := newTestRouter()

	rec := doRequest(t, router, http.MethodGet, "/api/v1/auth/me", "Bearer user-token")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "me", rec.Body.String())

	rec = doRequest(t, router, http.MethodGet, "/api/v1/notes", "Bearer user-token")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "listMyNotes", rec.Body.String())
}

func TestRouter_AdminRoutes(t *testing.T) {
	router := newTestRouter()

	t.Run("regular user is forbidden", func(t *testing.T) {
		rec := doRequest(t, router, http.MethodGet, "/api/v1/admin/users", "Bearer user-token")
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("admin passes", func(t *testing.T) {
		rec := doRequest(t, router, http.MethodGet, "/api/v1/admin/users", "Bearer admin-token")
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "adminUsers", rec.Body.String())
	})

	t.Run("unauthenticated gets unauthorized not forbidden", func(t *testing.T) {
		rec := doRequest(t, router, http.MethodGet, "/api/v1/admin/stats", "")
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}
