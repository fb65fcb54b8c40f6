package note

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

var _ NoteRepo = (*PostgresNoteRepo)(nil)

// NoteRepo defines the contract for note persistence. Visibility and
// ownership decisions live in the service layer; the repository only answers
// "which rows".
type NoteRepo interface {
	// GetNote returns api.ErrNotFound when the note does not exist.
	GetNote(ctx context.Context, noteID uuid.UUID) (*types.Note, error)
	CreateNote(ctx context.Context, ownerID uuid.UUID, title, content string, isPrivate bool, tags string) (*types.Note, error)
	UpdateNote(ctx context.Context, noteID uuid.UUID, params types.UpdateNoteParams) (*types.Note, error)
	DeleteNote(ctx context.Context, noteID uuid.UUID) error

	// ListNotesByOwner returns the owner's notes, newest first.
	ListNotesByOwner(ctx context.Context, ownerID uuid.UUID, filter types.ListNotesFilter) ([]*types.Note, error)
	// ListPublicNotes returns public notes from every user, newest first.
	ListPublicNotes(ctx context.Context, filter types.ListNotesFilter) ([]*types.Note, error)
	CountNotesByOwner(ctx context.Context, ownerID uuid.UUID) (int, error)
}

type PostgresNoteRepo struct {
	logger *slog.Logger
	db     DB
}

func NewPostgresNoteRepo(db DB, logger *slog.Logger) *PostgresNoteRepo {
	return &PostgresNoteRepo{
		logger: logger,
		db:     db,
	}
}

const noteColumns = `n.id, n.owner_id, u.full_name, n.title, n.content, n.is_private, n.tags, n.created_at, n.updated_at`

func scanNote(row pgx.Row) (*types.Note, error) {
	var n types.Note
	err := row.Scan(
		&n.ID, &n.OwnerID, &n.OwnerName, &n.Title, &n.Content, &n.IsPrivate, &n.Tags, &n.CreatedAt, &n.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, api.ErrNotFound
		}
		return nil, fmt.Errorf("scan note: %w", err)
	}
	return &n, nil
}

func (r *PostgresNoteRepo) observe(ctx context.Context, start time.Time, err error) {
	m := metrics.Get()
	m.DbQueryDurationSeconds.Record(ctx, time.Since(start).Seconds())
	if err != nil && !errors.Is(err, api.ErrNotFound) {
		m.DbQueryErrorsTotal.Add(ctx, 1)
	}
}

func (r *PostgresNoteRepo) GetNote(ctx context.Context, noteID uuid.UUID) (*types.Note, error) {
	start := time.Now()
	row := r.db.QueryRow(ctx,
		"SELECT "+noteColumns+` FROM notes n
         JOIN users u ON u.id = n.owner_id
         WHERE n.id = $1`, noteID)
	note, err := scanNote(row)
	r.observe(ctx, start, err)
	return note, err
}

func (r *PostgresNoteRepo) CreateNote(ctx context.Context, ownerID uuid.UUID, title, content string, isPrivate bool, tags string) (*types.Note, error) {
	start := time.Now()
	row := r.db.QueryRow(ctx,
		`INSERT INTO notes (owner_id, title, content, is_private, tags)
         VALUES ($1, $2, $3, $4, $5)
         RETURNING id, owner_id, '' AS full_name, title, content, is_private, tags, created_at, updated_at`,
		ownerID, title, content, isPrivate, tags)

	note, err := scanNote(row)
	r.observe(ctx, start, err)
	if err != nil {
		return nil, fmt.Errorf("create note: %w", err)
	}
	return note, nil
}

// UpdateNote writes only the fields present in params.
func (r *PostgresNoteRepo) UpdateNote(ctx context.Context, noteID uuid.UUID, params types.UpdateNoteParams) (*types.Note, error) {
	setClauses := []string{"updated_at = now()"}
	args := []any{noteID}

	addSet := func(column string, value any) {
		args = append(args, value)
		setClauses = append(setClauses, fmt.Sprintf("%s = $%d", column, len(args)))
	}

	if params.Title != nil {
		addSet("title", *params.Title)
	}
	if params.Content != nil {
		addSet("content", *params.Content)
	}
	if params.IsPrivate != nil {
		addSet("is_private", *params.IsPrivate)
	}
	if params.Tags != nil {
		addSet("tags", *params.Tags)
	}

	query := fmt.Sprintf(
		`UPDATE notes SET %s WHERE id = $1
         RETURNING id, owner_id, '' AS full_name, title, content, is_private, tags, created_at, updated_at`,
		strings.Join(setClauses, ", "))

	start := time.Now()
	note, err := scanNote(r.db.QueryRow(ctx, query, args...))
	r.observe(ctx, start, err)
	if err != nil {
		if errors.Is(err, api.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("update note: %w", err)
	}
	return note, nil
}

func (r *PostgresNoteRepo) DeleteNote(ctx context.Context, noteID uuid.UUID) error {
	start := time.Now()
	tag, err := r.db.Exec(ctx, "DELETE FROM notes WHERE id = $1", noteID)
	r.observe(ctx, start, err)
	if err != nil {
		return fmt.Errorf("delete note: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return api.ErrNotFound
	}
	return nil
}

func (r *PostgresNoteRepo) ListNotesByOwner(ctx context.Context, ownerID uuid.UUID, filter types.ListNotesFilter) ([]*types.Note, error) {
	query := "SELECT " + noteColumns + ` FROM notes n
        JOIN users u ON u.id = n.owner_id
        WHERE n.owner_id = $1`
	if !filter.IncludePrivate {
		query += " AND n.is_private = FALSE"
	}
	query += " ORDER BY n.created_at DESC LIMIT $2 OFFSET $3"

	start := time.Now()
	rows, err := r.db.Query(ctx, query, ownerID, filter.Limit, filter.Offset)
	r.observe(ctx, start, err)
	if err != nil {
		return nil, fmt.Errorf("list notes by owner: %w", err)
	}
	defer rows.Close()

	return collectNotes(rows)
}

func (r *PostgresNoteRepo) ListPublicNotes(ctx context.Context, filter types.ListNotesFilter) ([]*types.Note, error) {
	start := time.Now()
	rows, err := r.db.Query(ctx,
		"SELECT "+noteColumns+` FROM notes n
         JOIN users u ON u.id = n.owner_id
         WHERE n.is_private = FALSE
         ORDER BY n.created_at DESC LIMIT $1 OFFSET $2`,
		filter.Limit, filter.Offset)
	r.observe(ctx, start, err)
	if err != nil {
		return nil, fmt.Errorf("list public notes: %w", err)
	}
	defer rows.Close()

	return collectNotes(rows)
}

func (r *PostgresNoteRepo) CountNotesByOwner(ctx context.Context, ownerID uuid.UUID) (int, error) {
	var count int
	start := time.Now()
	err := r.db.QueryRow(ctx,
		"SELECT COUNT(*) FROM notes WHERE owner_id = $1", ownerID).Scan(&count)
	r.observe(ctx, start, err)
	if err != nil {
		return 0, fmt.Errorf("count notes: %w", err)
	}
	return count, nil
}

func collectNotes(rows pgx.Rows) ([]*types.Note, error) {
	notes := make([]*types.Note, 0)
	for rows.Next() {
		note, err := scanNote(rows)
		if err != nil {
			return nil, err
		}
		notes = append(notes, note)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate notes: %w", err)
	}
	return notes, nil
}
