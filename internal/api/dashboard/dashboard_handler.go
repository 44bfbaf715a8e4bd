package dashboard

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/aiarcade/aiarcade/internal/api"
	"github.com/aiarcade/aiarcade/internal/api/auth"
	"github.com/aiarcade/aiarcade/internal/types"
)

type DashboardHandler struct {
	dashboardService DashboardService
	logger           *slog.Logger
}

func NewDashboardHandler(dashboardService DashboardService, logger *slog.Logger) *DashboardHandler {
	return &DashboardHandler{
		dashboardService: dashboardService,
		logger:           logger,
	}
}

type summaryResponse struct {
	types.Response
	Summary *Summary `json:"summary"`
}

// GetSummary godoc
// @Summary      Fetch the caller's dashboard
// @Description  Returns the authenticated user's profile, activity stats, recent posts and favorite tools.
// @Tags         Dashboard
// @Produce      json
// @Success      200 {object} summaryResponse
// @Failure      401 {object} types.Response
// @Security     BearerAuth
// @Router       /dashboard [get]
func (h *DashboardHandler) GetSummary(w http.ResponseWriter, r *http.Request) {
	l := h.logger.With(slog.String("handler", "GetSummary"))

	userIDStr, ok := auth.GetUserIDFromContext(r.Context())
	if !ok || userIDStr == "" {
		api.ErrorResponse(w, r, http.StatusUnauthorized, "Authentication required")
		return
	}
	userID, err := uuid.Parse(userIDStr)
	if err != nil {
		api.ErrorResponse(w, r, http.StatusBadRequest, "Invalid user ID format")
		return
	}

	summary, err := h.dashboardService.GetSummary(r.Context(), userID)
	if err != nil {
		if errors.Is(err, types.ErrNotFound) {
			api.ErrorResponse(w, r, http.StatusNotFound, "user not found")
			return
		}
		l.ErrorContext(r.Context(), "dashboard summary failed", slog.Any("error", err))
		api.ErrorResponse(w, r, http.StatusInternalServerError, "failed to load dashboard")
		return
	}

	api.WriteJSONResponse(w, r, http.StatusOK, summaryResponse{
		Response: types.Response{Success: true},
		Summary:  summary,
	})
}
