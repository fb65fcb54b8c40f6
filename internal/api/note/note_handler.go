package note

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/bug6129/noteguard/internal/api"
	"github.com/bug6129/noteguard/internal/api/auth"
	"github.com/bug6129/noteguard/internal/types"
)

var _ Handler = (*HandlerImpl)(nil)

type Handler interface {
	CreateNote(w http.ResponseWriter, r *http.Request)
	GetNote(w http.ResponseWriter, r *http.Request)
	UpdateNote(w http.ResponseWriter, r *http.Request)
	DeleteNote(w http.ResponseWriter, r *http.Request)
	ListMyNotes(w http.ResponseWriter, r *http.Request)
	ListPublicNotes(w http.ResponseWriter, r *http.Request)
}

type HandlerImpl struct {
	noteService NoteService
	logger      *slog.Logger
}

func NewHandlerImpl(noteService NoteService, logger *slog.Logger) *HandlerImpl {
	return &HandlerImpl{
		noteService: noteService,
		logger:      logger,
	}
}

func parseFilter(r *http.Request) types.ListNotesFilter {
	var filter types.ListNotesFilter
	if v, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil {
		filter.Limit = v
	}
	if v, err := strconv.Atoi(r.URL.Query().Get("offset")); err == nil {
		filter.Offset = v
	}
	return filter
}

func noteIDFromURL(r *http.Request) (uuid.UUID, error) {
	return uuid.Parse(chi.URLParam(r, "noteID"))
}

// writeNoteError maps service sentinels onto status codes. The ordering
// matters: not-found wins over forbidden so private notes never leak.
func (h *HandlerImpl) writeNoteError(w http.ResponseWriter, r *http.Request, err error, l *slog.Logger) {
	switch {
	case errors.Is(err, api.ErrNotFound):
		api.ErrorResponse(w, r, http.StatusNotFound, "Note not found")
	case errors.Is(err, api.ErrForbidden):
		api.ErrorResponse(w, r, http.StatusForbidden, "You do not own this note")
	case errors.Is(err, api.ErrBadRequest):
		api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
	default:
		l.ErrorContext(r.Context(), "Note operation failed", slog.Any("error", err))
		api.ErrorResponse(w, r, http.StatusInternalServerError, "Internal server error")
	}
}

// CreateNote godoc
// @Summary      Create Note
// @Description  Creates a note owned by the caller. Notes are private unless stated otherwise.
// @Tags         Notes
// @Accept       json
// @Produce      json
// @Param        body body types.CreateNoteParams true "Note data"
// @Success      201 {object} types.Note "Created Note"
// @Security     BearerAuth
// @Router       /notes [post]
func (h *HandlerImpl) CreateNote(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	l := h.logger.With(slog.String("handler", "CreateNote"))

	user, ok := auth.GetUserFromContext(ctx)
	if !ok {
		api.ErrorResponse(w, r, http.StatusUnauthorized, "Authentication required")
		return
	}

	var params types.CreateNoteParams
	if err := api.DecodeJSONBody(w, r, &params); err != nil {
		api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
		return
	}

	note, err := h.noteService.CreateNote(ctx, user, params)
	if err != nil {
		h.writeNoteError(w, r, err, l)
		return
	}

	api.WriteJSONResponse(w, r, http.StatusCreated, note)
}

// GetNote godoc
// @Summary      Get Note
// @Description  Returns a note if the caller may see it. Private notes of other users read as 404.
// @Tags         Notes
// @Produce      json
// @Param        noteID path string true "Note ID"
// @Success      200 {object} types.Note "Note"
// @Failure      404 {object} types.Response "Not Found"
// @Security     BearerAuth
// @Router       /notes/{noteID} [get]
func (h *HandlerImpl) GetNote(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	l := h.logger.With(slog.String("handler", "GetNote"))

	user, ok := auth.GetUserFromContext(ctx)
	if !ok {
		api.ErrorResponse(w, r, http.StatusUnauthorized, "Authentication required")
		return
	}

	noteID, err := noteIDFromURL(r)
	if err != nil {
		api.ErrorResponse(w, r, http.StatusBadRequest, "Invalid note ID")
		return
	}

	note, err := h.noteService.GetNote(ctx, user, noteID)
	if err != nil {
		h.writeNoteError(w, r, err, l)
		return
	}

	api.WriteJSONResponse(w, r, http.StatusOK, note)
}

// UpdateNote godoc
// @Summary      Update Note
// @Description  Partially updates a note. Only the owner may update, even for public notes.
// @Tags         Notes
// @Accept       json
// @Produce      json
// @Param        noteID path string true "Note ID"
// @Param        body body types.UpdateNoteParams true "Fields to update"
// @Success      200 {object} types.Note "Updated Note"
// @Failure      403 {object} types.Response "Not the Owner"
// @Security     BearerAuth
// @Router       /notes/{noteID} [patch]
func (h *HandlerImpl) UpdateNote(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	l := h.logger.With(slog.String("handler", "UpdateNote"))

	user, ok := auth.GetUserFromContext(ctx)
	if !ok {
		api.ErrorResponse(w, r, http.StatusUnauthorized, "Authentication required")
		return
	}

	noteID, err := noteIDFromURL(r)
	if err != nil {
		api.ErrorResponse(w, r, http.StatusBadRequest, "Invalid note ID")
		return
	}

	var params types.UpdateNoteParams
	if err := api.DecodeJSONBody(w, r, &params); err != nil {
		api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
		return
	}

	note, err := h.noteService.UpdateNote(ctx, user, noteID, params)
	if err != nil {
		h.writeNoteError(w, r, err, l)
		return
	}

	api.WriteJSONResponse(w, r, http.StatusOK, note)
}

// DeleteNote godoc
// @Summary      Delete Note
// @Description  Deletes a note owned by the caller.
// @Tags         Notes
// @Param        noteID path string true "Note ID"
// @Success      204 "Deleted"
// @Failure      403 {object} types.Response "Not the Owner"
// @Security     BearerAuth
// @Router       /notes/{noteID} [delete]
func (h *HandlerImpl) DeleteNote(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	l := h.logger.With(slog.String("handler", "DeleteNote"))

	user, ok := auth.GetUserFromContext(ctx)
	if !ok {
		api.ErrorResponse(w, r, http.StatusUnauthorized, "Authentication required")
		return
	}

	noteID, err := noteIDFromURL(r)
	if err != nil {
		api.ErrorResponse(w, r, http.StatusBadRequest, "Invalid note ID")
		return
	}

	if err := h.noteService.DeleteNote(ctx, user, noteID); err != nil {
		h.writeNoteError(w, r, err, l)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// ListMyNotes godoc
// @Summary      List My Notes
// @Description  Returns the caller's notes, private ones included, newest first.
// @Tags         Notes
// @Produce      json
// @Param        limit query int false "Page size"
// @Param        offset query int false "Page offset"
// @Success      200 {array} types.Note "Notes"
// @Security     BearerAuth
// @Router       /notes [get]
func (h *HandlerImpl) ListMyNotes(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	l := h.logger.With(slog.String("handler", "ListMyNotes"))

	user, ok := auth.GetUserFromContext(ctx)
	if !ok {
		api.ErrorResponse(w, r, http.StatusUnauthorized, "Authentication required")
		return
	}

	notes, err := h.noteService.ListMyNotes(ctx, user, parseFilter(r))
	if err != nil {
		h.writeNoteError(w, r, err, l)
		return
	}

	api.WriteJSONResponse(w, r, http.StatusOK, notes)
}

// ListPublicNotes godoc
// @Summary      List Public Notes
// @Description  Returns public notes from all users. No authentication required.
// @Tags         Notes
// @Produce      json
// @Param        limit query int false "Page size"
// @Param        offset query int false "Page offset"
// @Success      200 {array} types.Note "Public Notes"
// @Router       /notes/public [get]
func (h *HandlerImpl) ListPublicNotes(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	l := h.logger.With(slog.String("handler", "ListPublicNotes"))

	notes, err := h.noteService.ListPublicNotes(ctx, parseFilter(r))
	if err != nil {
		h.writeNoteError(w, r, err, l)
		return
	}

	api.WriteJSONResponse(w, r, http.StatusOK, notes)
}
