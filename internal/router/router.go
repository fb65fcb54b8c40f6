package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"

	"github.com/bug6129/noteguard/internal/api/auth"
	"github.com/bug6129/noteguard/internal/api/note"
	"github.com/bug6129/noteguard/internal/api/user"
)

// Config contains the handlers and middleware the router wires together.
// Server-wide middleware (request ID, logging, recoverer, rate limiting) is
// applied before mounting this router in main.go.
type Config struct {
	AuthHandler            auth.Handler
	NoteHandler            note.Handler
	UserHandler            user.Handler
	AuthenticateMiddleware func(http.Handler) http.Handler
	RequireAdminMiddleware func(http.Handler) http.Handler
}

// SetupRouter initializes and configures the main application router.
func SetupRouter(cfg *Config) chi.Router {
	r := chi.NewRouter()

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:5173", "http://localhost:3000"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/ping", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("pong"))
	})

	r.Route("/api/v1", func(r chi.Router) {
		// Public routes: no token needed.
		r.Group(func(r chi.Router) {
			r.Post("/auth/register", cfg.AuthHandler.Register)
			r.Post("/auth/login", cfg.AuthHandler.Login)
			r.Post("/auth/refresh", cfg.AuthHandler.Refresh)
			r.Get("/notes/public", cfg.NoteHandler.ListPublicNotes)
		})

		// Protected routes: the guard chain runs on every request.
		r.Group(func(r chi.Router) {
			r.Use(cfg.AuthenticateMiddleware)

			r.Get("/auth/me", cfg.AuthHandler.Me)
			r.Post("/auth/logout", cfg.AuthHandler.Logout)
			r.Put("/auth/password", cfg.AuthHandler.ChangePassword)

			r.Route("/notes", func(r chi.Router) {
				r.Get("/", cfg.NoteHandler.ListMyNotes)
				r.Post("/", cfg.NoteHandler.CreateNote)
				r.Get("/{noteID}", cfg.NoteHandler.GetNote)
				r.Patch("/{noteID}", cfg.NoteHandler.UpdateNote)
				r.Delete("/{noteID}", cfg.NoteHandler.DeleteNote)
			})

			r.Route("/users", func(r chi.Router) {
				r.Get("/profile", cfg.UserHandler.GetProfile)
				r.Patch("/profile", cfg.UserHandler.UpdateProfile)
				r.Post("/verify-email", cfg.UserHandler.VerifyEmail)
				r.Get("/stats", cfg.UserHandler.GetUserStats)

				r.Route("/addresses", func(r chi.Router) {
					r.Get("/", cfg.UserHandler.ListAddresses)
					r.Post("/", cfg.UserHandler.CreateAddress)
					r.Patch("/{addressID}", cfg.UserHandler.UpdateAddress)
					r.Delete("/{addressID}", cfg.UserHandler.DeleteAddress)
				})
			})
		})

		// Admin routes: authenticated and role-gated.
		r.Group(func(r chi.Router) {
			r.Use(cfg.AuthenticateMiddleware)
			r.Use(cfg.RequireAdminMiddleware)

			r.Route("/admin", func(r chi.Router) {
				r.Get("/users", cfg.UserHandler.AdminListUsers)
				r.Patch("/users/{userID}/toggle", cfg.UserHandler.AdminToggleUser)
				r.Get("/stats", cfg.UserHandler.AdminStats)
			})
		})
	})

	return r
}
