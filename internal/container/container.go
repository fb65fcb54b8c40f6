package container

import (
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"

	database "github.com/bug6129/noteguard/app/db"
	"github.com/bug6129/noteguard/config"
	"github.com/bug6129/noteguard/internal/api/auth"
	"github.com/bug6129/noteguard/internal/api/note"
	"github.com/bug6129/noteguard/internal/api/user"
)

// Container holds all application dependencies.
type Container struct {
	Config *config.Config
	Logger *slog.Logger
	Pool   *pgxpool.Pool

	AuthService auth.AuthService

	AuthHandler *auth.HandlerImpl
	NoteHandler *note.HandlerImpl
	UserHandler *user.HandlerImpl
}

// NewContainer initializes the database pool and wires repositories,
// services and handlers.
func NewContainer(cfg *config.Config, logger *slog.Logger) (*Container, error) {
	dbConfig, err := database.NewDatabaseConfig(cfg, logger)
	if err != nil {
		logger.Error("Failed to generate database config", slog.Any("error", err))
		return nil, err
	}

	pool, err := database.Init(dbConfig.ConnectionURL, logger)
	if err != nil {
		logger.Error("Failed to initialize database pool", slog.Any("error", err))
		return nil, err
	}

	authRepo := auth.NewPostgresAuthRepo(pool, logger)
	noteRepo := note.NewPostgresNoteRepo(pool, logger)
	userRepo := user.NewPostgresUserRepo(pool, logger)

	authService := auth.NewAuthService(authRepo, cfg, logger)
	noteService := note.NewNoteService(noteRepo, logger)
	userService := user.NewUserService(userRepo, noteRepo, logger)

	return &Container{
		Config:      cfg,
		Logger:      logger,
		Pool:        pool,
		AuthService: authService,
		AuthHandler: auth.NewHandlerImpl(authService, logger),
		NoteHandler: note.NewHandlerImpl(noteService, logger),
		UserHandler: user.NewHandlerImpl(userService, logger),
	}, nil
}

// Close releases held resources.
func (c *Container) Close() {
	if c.Pool != nil {
		c.Pool.Close()
	}
}
