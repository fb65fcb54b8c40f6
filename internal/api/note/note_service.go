package note

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/bug6129/noteguard/internal/api"
	"github.com/bug6129/noteguard/internal/types"
)

var _ NoteService = (*NoteServiceImpl)(nil)

// NoteService defines the business logic contract for notes, including the
// visibility and ownership rules.
type NoteService interface {
	CreateNote(ctx context.Context, owner *types.User, params types.CreateNoteParams) (*types.Note, error)
	// GetNote applies the visibility rule: a private note read by anyone but
	// its owner returns api.ErrNotFound, never api.ErrForbidden, so probing
	// cannot distinguish "hidden" from "absent".
	GetNote(ctx context.Context, caller *types.User, noteID uuid.UUID) (*types.Note, error)
	UpdateNote(ctx context.Context, caller *types.User, noteID uuid.UUID, params types.UpdateNoteParams) (*types.Note, error)
	DeleteNote(ctx context.Context, caller *types.User, noteID uuid.UUID) error

	ListMyNotes(ctx context.Context, caller *types.User, filter types.ListNotesFilter) ([]*types.Note, error)
	ListPublicNotes(ctx context.Context, filter types.ListNotesFilter) ([]*types.Note, error)
}

// NoteServiceImpl provides the implementation for NoteService.
type NoteServiceImpl struct {
	logger *slog.Logger
	repo   NoteRepo
}

func NewNoteService(repo NoteRepo, logger *slog.Logger) *NoteServiceImpl {
	return &NoteServiceImpl{
		logger: logger,
		repo:   repo,
	}
}

const (
	maxTitleLength  = 200
	defaultPageSize = 20
	maxPageSize     = 100
	notesArePrivate = true
)

// canRead: public notes are readable by anyone, private notes by owner only.
func canRead(note *types.Note, caller *types.User) bool {
	if !note.IsPrivate {
		return true
	}
	return caller != nil && note.OwnerID == caller.ID
}

// canMutate: only the owner may modify or delete, public or not.
func canMutate(note *types.Note, caller *types.User) bool {
	return caller != nil && note.OwnerID == caller.ID
}

func clampFilter(filter types.ListNotesFilter) types.ListNotesFilter {
	if filter.Limit <= 0 {
		filter.Limit = defaultPageSize
	}
	if filter.Limit > maxPageSize {
		filter.Limit = maxPageSize
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}
	return filter
}

func (s *NoteServiceImpl) CreateNote(ctx context.Context, owner *types.User, params types.CreateNoteParams) (*types.Note, error) {
	ctx, span := otel.Tracer("NoteService").Start(ctx, "CreateNote", trace.WithAttributes(
		attribute.String("owner.id", owner.ID.String()),
	))
	defer span.End()

	l := s.logger.With(slog.String("method", "CreateNote"), slog.String("ownerID", owner.ID.String()))

	title := strings.TrimSpace(params.Title)
	if title == "" {
		return nil, fmt.Errorf("title is required: %w", api.ErrBadRequest)
	}
	if len(title) > maxTitleLength {
		return nil, fmt.Errorf("title must be at most %d characters: %w", maxTitleLength, api.ErrBadRequest)
	}

	// Notes default to private; sharing is an explicit decision.
	isPrivate := notesArePrivate
	if params.IsPrivate != nil {
		isPrivate = *params.IsPrivate
	}

	note, err := s.repo.CreateNote(ctx, owner.ID, title, params.Content, isPrivate, params.Tags)
	if err != nil {
		l.ErrorContext(ctx, "Failed to create note", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to create note")
		return nil, fmt.Errorf("error creating note: %w", err)
	}
	note.OwnerName = owner.FullName

	l.InfoContext(ctx, "Note created", slog.String("noteID", note.ID.String()))
	span.SetStatus(codes.Ok, "Note created")
	return note, nil
}

func (s *NoteServiceImpl) GetNote(ctx context.Context, caller *types.User, noteID uuid.UUID) (*types.Note, error) {
	ctx, span := otel.Tracer("NoteService").Start(ctx, "GetNote", trace.WithAttributes(
		attribute.String("note.id", noteID.String()),
	))
	defer span.End()

	l := s.logger.With(slog.String("method", "GetNote"), slog.String("noteID", noteID.String()))

	note, err := s.repo.GetNote(ctx, noteID)
	if err != nil {
		if errors.Is(err, api.ErrNotFound) {
			return nil, err
		}
		l.ErrorContext(ctx, "Failed to fetch note", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to fetch note")
		return nil, fmt.Errorf("error fetching note: %w", err)
	}

	if !canRead(note, caller) {
		// Indistinguishable from a nonexistent note.
		l.WarnContext(ctx, "Private note access denied")
		return nil, api.ErrNotFound
	}

	span.SetStatus(codes.Ok, "Note fetched")
	return note, nil
}

func (s *NoteServiceImpl) UpdateNote(ctx context.Context, caller *types.User, noteID uuid.UUID, params types.UpdateNoteParams) (*types.Note, error) {
	ctx, span := otel.Tracer("NoteService").Start(ctx, "UpdateNote", trace.WithAttributes(
		attribute.String("note.id", noteID.String()),
	))
	defer span.End()

	l := s.logger.With(slog.String("method", "UpdateNote"), slog.String("noteID", noteID.String()))

	if params.Title != nil {
		title := strings.TrimSpace(*params.Title)
		if title == "" {
			return nil, fmt.Errorf("title cannot be blank: %w", api.ErrBadRequest)
		}
		if len(title) > maxTitleLength {
			return nil, fmt.Errorf("title must be at most %d characters: %w", maxTitleLength, api.ErrBadRequest)
		}
		params.Title = &title
	}

	note, err := s.authorizeMutation(ctx, caller, noteID)
	if err != nil {
		return nil, err
	}

	updated, err := s.repo.UpdateNote(ctx, note.ID, params)
	if err != nil {
		l.ErrorContext(ctx, "Failed to update note", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to update note")
		return nil, fmt.Errorf("error updating note: %w", err)
	}
	updated.OwnerName = note.OwnerName

	l.InfoContext(ctx, "Note updated")
	span.SetStatus(codes.Ok, "Note updated")
	return updated, nil
}

func (s *NoteServiceImpl) DeleteNote(ctx context.Context, caller *types.User, noteID uuid.UUID) error {
	ctx, span := otel.Tracer("NoteService").Start(ctx, "DeleteNote", trace.WithAttributes(
		attribute.String("note.id", noteID.String()),
	))
	defer span.End()

	l := s.logger.With(slog.String("method", "DeleteNote"), slog.String("noteID", noteID.String()))

	if _, err := s.authorizeMutation(ctx, caller, noteID); err != nil {
		return err
	}

	if err := s.repo.DeleteNote(ctx, noteID); err != nil {
		l.ErrorContext(ctx, "Failed to delete note", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to delete note")
		return fmt.Errorf("error deleting note: %w", err)
	}

	l.InfoContext(ctx, "Note deleted")
	span.SetStatus(codes.Ok, "Note deleted")
	return nil
}

// authorizeMutation fetches the note and applies the ownership rules for
// writes: a private note someone else owns surfaces as api.ErrNotFound, a
// public note someone else owns surfaces as api.ErrForbidden.
func (s *NoteServiceImpl) authorizeMutation(ctx context.Context, caller *types.User, noteID uuid.UUID) (*types.Note, error) {
	note, err := s.repo.GetNote(ctx, noteID)
	if err != nil {
		if errors.Is(err, api.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("error fetching note: %w", err)
	}

	if canMutate(note, caller) {
		return note, nil
	}
	if !canRead(note, caller) {
		return nil, api.ErrNotFound
	}
	return nil, fmt.Errorf("only the owner may modify this note: %w", api.ErrForbidden)
}

func (s *NoteServiceImpl) ListMyNotes(ctx context.Context, caller *types.User, filter types.ListNotesFilter) ([]*types.Note, error) {
	ctx, span := otel.Tracer("NoteService").Start(ctx, "ListMyNotes", trace.WithAttributes(
		attribute.String("owner.id", caller.ID.String()),
	))
	defer span.End()

	filter.IncludePrivate = true
	notes, err := s.repo.ListNotesByOwner(ctx, caller.ID, clampFilter(filter))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to list notes")
		return nil, fmt.Errorf("error listing notes: %w", err)
	}

	span.SetStatus(codes.Ok, "Notes listed")
	return notes, nil
}

func (s *NoteServiceImpl) ListPublicNotes(ctx context.Context, filter types.ListNotesFilter) ([]*types.Note, error) {
	ctx, span := otel.Tracer("NoteService").Start(ctx, "ListPublicNotes")
	defer span.End()

	filter.IncludePrivate = false
	notes, err := s.repo.ListPublicNotes(ctx, clampFilter(filter))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to list public notes")
		return nil, fmt.Errorf("error listing public notes: %w", err)
	}

	span.SetStatus(codes.Ok, "Public notes listed")
	return notes, nil
}
