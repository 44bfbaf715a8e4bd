package user

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/aiarcade/aiarcade/internal/api"
	"github.com/aiarcade/aiarcade/internal/api/auth"
	"github.com/aiarcade/aiarcade/internal/types"
)

type UserHandler struct {
	userService UserService
	logger      *slog.Logger
}

func NewUserHandler(userService UserService, logger *slog.Logger) *UserHandler {
	return &UserHandler{
		userService: userService,
		logger:      logger,
	}
}

type profileResponse struct {
	types.Response
	Profile *types.UserProfile `json:"profile"`
}

// GetProfile godoc
// @Summary      Fetch the caller's profile
// @Tags         Profile
// @Produce      json
// @Success      200 {object} profileResponse
// @Failure      401 {object} types.Response
// @Security     BearerAuth
// @Router       /profile [get]
func (h *UserHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	profile, err := h.userService.GetProfile(r.Context(), userID)
	if err != nil {
		if errors.Is(err, types.ErrNotFound) {
			api.ErrorResponse(w, r, http.StatusNotFound, "user not found")
			return
		}
		h.logger.ErrorContext(r.Context(), "get profile failed", slog.Any("error", err))
		api.ErrorResponse(w, r, http.StatusInternalServerError, "failed to fetch profile")
		return
	}

	api.WriteJSONResponse(w, r, http.StatusOK, profileResponse{
		Response: types.Response{Success: true},
		Profile:  profile,
	})
}

// UpdateProfile godoc
// @Summary      Update the caller's profile
// @Description  Applies partial profile changes. Username changes are subject to a cooldown.
// @Tags         Profile
// @Accept       json
// @Produce      json
// @Param        request body types.UpdateProfileParams true "Fields to change"
// @Success      200 {object} profileResponse
// @Failure      400 {object} types.Response
// @Failure      401 {object} types.Response
// @Failure      409 {object} types.Response
// @Failure      429 {object} types.Response
// @Security     BearerAuth
// @Router       /profile [patch]
func (h *UserHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	l := h.logger.With(slog.String("handler", "UpdateProfile"))

	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	var params types.UpdateProfileParams
	if err := api.DecodeJSONBody(w, r, &params); err != nil {
		api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
		return
	}

	profile, err := h.userService.UpdateProfile(r.Context(), userID, params)
	if err != nil {
		switch {
		case errors.Is(err, types.ErrValidation):
			api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
		case errors.Is(err, types.ErrUsernameCooldown):
			api.ErrorResponse(w, r, http.StatusTooManyRequests, err.Error())
		case errors.Is(err, types.ErrConflict):
			api.ErrorResponse(w, r, http.StatusConflict, "username already taken")
		case errors.Is(err, types.ErrNotFound):
			api.ErrorResponse(w, r, http.StatusNotFound, "user not found")
		default:
			l.ErrorContext(r.Context(), "update profile failed", slog.Any("error", err))
			api.ErrorResponse(w, r, http.StatusInternalServerError, "failed to update profile")
		}
		return
	}

	api.WriteJSONResponse(w, r, http.StatusOK, profileResponse{
		Response: types.Response{Success: true, Message: "profile updated"},
		Profile:  profile,
	})
}

func requireUserID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	userIDStr, ok := auth.GetUserIDFromContext(r.Context())
	if !ok || userIDStr == "" {
		api.ErrorResponse(w, r, http.StatusUnauthorized, "Authentication required")
		return uuid.Nil, false
	}
	userID, err := uuid.Parse(userIDStr)
	if err != nil {
		api.ErrorResponse(w, r, http.StatusBadRequest, "Invalid user ID format")
		return uuid.Nil, false
	}
	return userID, true
}
