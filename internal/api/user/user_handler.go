package user

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
	GetProfile(w http.ResponseWriter, r *http.Request)
	UpdateProfile(w http.ResponseWriter, r *http.Request)
	VerifyEmail(w http.ResponseWriter, r *http.Request)
	GetUserStats(w http.ResponseWriter, r *http.Request)

	ListAddresses(w http.ResponseWriter, r *http.Request)
	CreateAddress(w http.ResponseWriter, r *http.Request)
	UpdateAddress(w http.ResponseWriter, r *http.Request)
	DeleteAddress(w http.ResponseWriter, r *http.Request)

	AdminListUsers(w http.ResponseWriter, r *http.Request)
	AdminToggleUser(w http.ResponseWriter, r *http.Request)
	AdminStats(w http.ResponseWriter, r *http.Request)
}

type HandlerImpl struct {
	userService UserService
	logger      *slog.Logger
}

func NewHandlerImpl(userService UserService, logger *slog.Logger) *HandlerImpl {
	return &HandlerImpl{
		userService: userService,
		logger:      logger,
	}
}

func (h *HandlerImpl) writeError(w http.ResponseWriter, r *http.Request, err error, l *slog.Logger) {
	switch {
	case errors.Is(err, api.ErrNotFound):
		api.ErrorResponse(w, r, http.StatusNotFound, "Not found")
	case errors.Is(err, api.ErrBadRequest):
		api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
	default:
		l.ErrorContext(r.Context(), "User operation failed", slog.Any("error", err))
		api.ErrorResponse(w, r, http.StatusInternalServerError, "Internal server error")
	}
}

// GetProfile godoc
// @Summary      Get Profile
// @Description  Returns the caller's profile.
// @Tags         Users
// @Produce      json
// @Success      200 {object} types.User "Profile"
// @Security     BearerAuth
// @Router       /users/profile [get]
func (h *HandlerImpl) GetProfile(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	l := h.logger.With(slog.String("handler", "GetProfile"))

	user, ok := auth.GetUserFromContext(ctx)
	if !ok {
		api.ErrorResponse(w, r, http.StatusUnauthorized, "Authentication required")
		return
	}

	profile, err := h.userService.GetProfile(ctx, user.ID)
	if err != nil {
		h.writeError(w, r, err, l)
		return
	}

	api.WriteJSONResponse(w, r, http.StatusOK, profile)
}

// UpdateProfile godoc
// @Summary      Update Profile
// @Description  Partially updates the caller's profile fields.
// @Tags         Users
// @Accept       json
// @Produce      json
// @Param        body body types.UpdateProfileParams true "Fields to update"
// @Success      200 {object} types.User "Updated Profile"
// @Security     BearerAuth
// @Router       /users/profile [patch]
func (h *HandlerImpl) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	l := h.logger.With(slog.String("handler", "UpdateProfile"))

	user, ok := auth.GetUserFromContext(ctx)
	if !ok {
		api.ErrorResponse(w, r, http.StatusUnauthorized, "Authentication required")
		return
	}

	var params types.UpdateProfileParams
	if err := api.DecodeJSONBody(w, r, &params); err != nil {
		api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
		return
	}

	profile, err := h.userService.UpdateProfile(ctx, user.ID, params)
	if err != nil {
		h.writeError(w, r, err, l)
		return
	}

	api.WriteJSONResponse(w, r, http.StatusOK, profile)
}

// VerifyEmail godoc
// @Summary      Verify Email
// @Description  Marks the caller's email address as verified.
// @Tags         Users
// @Produce      json
// @Success      200 {object} types.Response "Verified"
// @Security     BearerAuth
// @Router       /users/verify-email [post]
func (h *HandlerImpl) VerifyEmail(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	l := h.logger.With(slog.String("handler", "VerifyEmail"))

	user, ok := auth.GetUserFromContext(ctx)
	if !ok {
		api.ErrorResponse(w, r, http.StatusUnauthorized, "Authentication required")
		return
	}

	if err := h.userService.VerifyEmail(ctx, user.ID); err != nil {
		h.writeError(w, r, err, l)
		return
	}

	api.WriteJSONResponse(w, r, http.StatusOK, types.Response{
		Success: true,
		Message: "Email verified",
	})
}

// GetUserStats godoc
// @Summary      Profile Stats
// @Description  Returns account statistics including the profile completion score.
// @Tags         Users
// @Produce      json
// @Success      200 {object} types.UserStats "Stats"
// @Security     BearerAuth
// @Router       /users/stats [get]
func (h *HandlerImpl) GetUserStats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	l := h.logger.With(slog.String("handler", "GetUserStats"))

	user, ok := auth.GetUserFromContext(ctx)
	if !ok {
		api.ErrorResponse(w, r, http.StatusUnauthorized, "Authentication required")
		return
	}

	stats, err := h.userService.GetUserStats(ctx, user.ID)
	if err != nil {
		h.writeError(w, r, err, l)
		return
	}

	api.WriteJSONResponse(w, r, http.StatusOK, stats)
}

// ListAddresses godoc
// @Summary      List Addresses
// @Description  Returns the caller's addresses, default first.
// @Tags         Addresses
// @Produce      json
// @Success      200 {array} types.Address "Addresses"
// @Security     BearerAuth
// @Router       /users/addresses [get]
func (h *HandlerImpl) ListAddresses(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	l := h.logger.With(slog.String("handler", "ListAddresses"))

	user, ok := auth.GetUserFromContext(ctx)
	if !ok {
		api.ErrorResponse(w, r, http.StatusUnauthorized, "Authentication required")
		return
	}

	addresses, err := h.userService.ListAddresses(ctx, user.ID)
	if err != nil {
		h.writeError(w, r, err, l)
		return
	}

	api.WriteJSONResponse(w, r, http.StatusOK, addresses)
}

// CreateAddress godoc
// @Summary      Create Address
// @Description  Adds an address. The first address, or one flagged default, becomes the default.
// @Tags         Addresses
// @Accept       json
// @Produce      json
// @Param        body body types.CreateAddressParams true "Address data"
// @Success      201 {object} types.Address "Created Address"
// @Security     BearerAuth
// @Router       /users/addresses [post]
func (h *HandlerImpl) CreateAddress(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	l := h.logger.With(slog.String("handler", "CreateAddress"))

	user, ok := auth.GetUserFromContext(ctx)
	if !ok {
		api.ErrorResponse(w, r, http.StatusUnauthorized, "Authentication required")
		return
	}

	var params types.CreateAddressParams
	if err := api.DecodeJSONBody(w, r, &params); err != nil {
		api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
		return
	}

	addr, err := h.userService.CreateAddress(ctx, user.ID, params)
	if err != nil {
		h.writeError(w, r, err, l)
		return
	}

	api.WriteJSONResponse(w, r, http.StatusCreated, addr)
}

// UpdateAddress godoc
// @Summary      Update Address
// @Description  Partially updates one of the caller's addresses.
// @Tags         Addresses
// @Accept       json
// @Produce      json
// @Param        addressID path string true "Address ID"
// @Param        body body types.UpdateAddressParams true "Fields to update"
// @Success      200 {object} types.Address "Updated Address"
// @Security     BearerAuth
// @Router       /users/addresses/{addressID} [patch]
func (h *HandlerImpl) UpdateAddress(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	l := h.logger.With(slog.String("handler", "UpdateAddress"))

	user, ok := auth.GetUserFromContext(ctx)
	if !ok {
		api.ErrorResponse(w, r, http.StatusUnauthorized, "Authentication required")
		return
	}

	addressID, err := uuid.Parse(chi.URLParam(r, "addressID"))
	if err != nil {
		api.ErrorResponse(w, r, http.StatusBadRequest, "Invalid address ID")
		return
	}

	var params types.UpdateAddressParams
	if err := api.DecodeJSONBody(w, r, &params); err != nil {
		api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
		return
	}

	addr, err := h.userService.UpdateAddress(ctx, user.ID, addressID, params)
	if err != nil {
		h.writeError(w, r, err, l)
		return
	}

	api.WriteJSONResponse(w, r, http.StatusOK, addr)
}

// DeleteAddress godoc
// @Summary      Delete Address
// @Description  Removes one of the caller's addresses.
// @Tags         Addresses
// @Param        addressID path string true "Address ID"
// @Success      204 "Deleted"
// @Security     BearerAuth
// @Router       /users/addresses/{addressID} [delete]
func (h *HandlerImpl) DeleteAddress(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	l := h.logger.With(slog.String("handler", "DeleteAddress"))

	user, ok := auth.GetUserFromContext(ctx)
	if !ok {
		api.ErrorResponse(w, r, http.StatusUnauthorized, "Authentication required")
		return
	}

	addressID, err := uuid.Parse(chi.URLParam(r, "addressID"))
	if err != nil {
		api.ErrorResponse(w, r, http.StatusBadRequest, "Invalid address ID")
		return
	}

	if err := h.userService.DeleteAddress(ctx, user.ID, addressID); err != nil {
		h.writeError(w, r, err, l)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// AdminListUsers godoc
// @Summary      List Users
// @Description  Returns all registered users, newest first. Admin only.
// @Tags         Admin
// @Produce      json
// @Param        limit query int false "Page size"
// @Param        offset query int false "Page offset"
// @Success      200 {array} types.User "Users"
// @Failure      403 {object} types.Response "Forbidden"
// @Security     BearerAuth
// @Router       /admin/users [get]
func (h *HandlerImpl) AdminListUsers(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	l := h.logger.With(slog.String("handler", "AdminListUsers"))

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))

	users, err := h.userService.ListUsers(ctx, limit, offset)
	if err != nil {
		h.writeError(w, r, err, l)
		return
	}

	api.WriteJSONResponse(w, r, http.StatusOK, users)
}

// AdminToggleUser godoc
// @Summary      Toggle User Active
// @Description  Flips a user's active flag. Admins cannot deactivate themselves.
// @Tags         Admin
// @Produce      json
// @Param        userID path string true "User ID"
// @Success      200 {object} types.User "Updated User"
// @Failure      400 {object} types.Response "Self-Deactivation"
// @Failure      403 {object} types.Response "Forbidden"
// @Security     BearerAuth
// @Router       /admin/users/{userID}/toggle [patch]
func (h *HandlerImpl) AdminToggleUser(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	l := h.logger.With(slog.String("handler", "AdminToggleUser"))

	admin, ok := auth.GetUserFromContext(ctx)
	if !ok {
		api.ErrorResponse(w, r, http.StatusUnauthorized, "Authentication required")
		return
	}

	targetID, err := uuid.Parse(chi.URLParam(r, "userID"))
	if err != nil {
		api.ErrorResponse(w, r, http.StatusBadRequest, "Invalid user ID")
		return
	}

	updated, err := h.userService.ToggleUserActive(ctx, admin, targetID)
	if err != nil {
		h.writeError(w, r, err, l)
		return
	}

	api.WriteJSONResponse(w, r, http.StatusOK, updated)
}

// AdminStats godoc
// @Summary      System Stats
// @Description  Returns system-wide user and note counts. Admin only.
// @Tags         Admin
// @Produce      json
// @Success      200 {object} types.AdminStats "Stats"
// @Failure      403 {object} types.Response "Forbidden"
// @Security     BearerAuth
// @Router       /admin/stats [get]
func (h *HandlerImpl) AdminStats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	l := h.logger.With(slog.String("handler", "AdminStats"))

	stats, err := h.userService.GetAdminStats(ctx)
	if err != nil {
		h.writeError(w, r, err, l)
		return
	}

	api.WriteJSONResponse(w, r, http.StatusOK, stats)
}
