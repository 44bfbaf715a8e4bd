package tools

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/aiarcade/aiarcade/internal/api"
	"github.com/aiarcade/aiarcade/internal/api/auth"
	"github.com/aiarcade/aiarcade/internal/types"
)

type ToolsHandler struct {
	toolsService ToolsService
	logger       *slog.Logger
}

func NewToolsHandler(toolsService ToolsService, logger *slog.Logger) *ToolsHandler {
	return &ToolsHandler{
		toolsService: toolsService,
		logger:       logger,
	}
}

// ListTools godoc
// @Summary      List AI tools
// @Description  Lists the directory, optionally filtered by category slug or a name search.
// @Tags         Tools
// @Produce      json
// @Param        category query string false "Category slug"
// @Param        q        query string false "Name search"
// @Success      200 {array} Tool
// @Router       /tools [get]
func (h *ToolsHandler) ListTools(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	l := h.logger.With(slog.String("handler", "ListTools"))

	filter := ListToolsFilter{
		CategorySlug: r.URL.Query().Get("category"),
		Search:       r.URL.Query().Get("q"),
	}

	tools, err := h.toolsService.ListTools(ctx, filter)
	if err != nil {
		l.ErrorContext(ctx, "Failed to list tools", slog.Any("error", err))
		api.ErrorResponse(w, r, http.StatusInternalServerError, "Failed to list tools")
		return
	}

	api.WriteJSONResponse(w, r, http.StatusOK, tools)
}

// GetTool godoc
// @Summary      Get a tool by slug
// @Tags         Tools
// @Produce      json
// @Param        slug path string true "Tool slug"
// @Success      200 {object} Tool
// @Failure      404 {object} types.Response
// @Router       /tools/{slug} [get]
func (h *ToolsHandler) GetTool(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	slug := chi.URLParam(r, "slug")

	tool, err := h.toolsService.GetToolBySlug(ctx, slug)
	if err != nil {
		if errors.Is(err, types.ErrNotFound) {
			api.ErrorResponse(w, r, http.StatusNotFound, "Tool not found")
			return
		}
		h.logger.ErrorContext(ctx, "Failed to get tool", slog.Any("error", err))
		api.ErrorResponse(w, r, http.StatusInternalServerError, "Failed to get tool")
		return
	}

	api.WriteJSONResponse(w, r, http.StatusOK, tool)
}

// CreateTool godoc
// @Summary      Submit a tool to the directory
// @Tags         Tools
// @Accept       json
// @Produce      json
// @Param        body body CreateToolParams true "Tool"
// @Success      201 {object} Tool
// @Failure      400 {object} types.Response
// @Failure      409 {object} types.Response
// @Security     BearerAuth
// @Router       /tools [post]
func (h *ToolsHandler) CreateTool(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	l := h.logger.With(slog.String("handler", "CreateTool"))

	userIDStr, ok := auth.GetUserIDFromContext(ctx)
	if !ok || userIDStr == "" {
		api.ErrorResponse(w, r, http.StatusUnauthorized, "Authentication required")
		return
	}
	userID, err := uuid.Parse(userIDStr)
	if err != nil {
		api.ErrorResponse(w, r, http.StatusBadRequest, "Invalid user ID format")
		return
	}

	var params CreateToolParams
	if err := api.DecodeJSONBody(w, r, &params); err != nil {
		api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
		return
	}

	tool, err := h.toolsService.CreateTool(ctx, params, userID)
	if err != nil {
		l.WarnContext(ctx, "Failed to create tool", slog.Any("error", err))
		switch {
		case errors.Is(err, types.ErrValidation):
			api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
		case errors.Is(err, types.ErrConflict):
			api.ErrorResponse(w, r, http.StatusConflict, "A tool with that name already exists")
		default:
			api.ErrorResponse(w, r, http.StatusInternalServerError, "Failed to create tool")
		}
		return
	}

	api.WriteJSONResponse(w, r, http.StatusCreated, tool)
}

// ListCategories godoc
// @Summary      List tool categories
// @Tags         Tools
// @Produce      json
// @Success      200 {array} Category
// @Router       /tools/categories [get]
func (h *ToolsHandler) ListCategories(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	categories, err := h.toolsService.ListCategories(ctx)
	if err != nil {
		h.logger.ErrorContext(ctx, "Failed to list categories", slog.Any("error", err))
		api.ErrorResponse(w, r, http.StatusInternalServerError, "Failed to list categories")
		return
	}

	api.WriteJSONResponse(w, r, http.StatusOK, categories)
}

// Favorite godoc
// @Summary      Favorite a tool
// @Tags         Tools
// @Success      204 "No Content"
// @Security     BearerAuth
// @Router       /tools/{id}/favorite [post]
func (h *ToolsHandler) Favorite(w http.ResponseWriter, r *http.Request) {
	h.toggleFavorite(w, r, true)
}

// Unfavorite godoc
// @Summary      Remove a tool favorite
// @Tags         Tools
// @Success      204 "No Content"
// @Security     BearerAuth
// @Router       /tools/{id}/favorite [delete]
func (h *ToolsHandler) Unfavorite(w http.ResponseWriter, r *http.Request) {
	h.toggleFavorite(w, r, false)
}

func (h *ToolsHandler) toggleFavorite(w http.ResponseWriter, r *http.Request, add bool) {
	ctx := r.Context()

	userIDStr, ok := auth.GetUserIDFromContext(ctx)
	if !ok || userIDStr == "" {
		api.ErrorResponse(w, r, http.StatusUnauthorized, "Authentication required")
		return
	}
	userID, err := uuid.Parse(userIDStr)
	if err != nil {
		api.ErrorResponse(w, r, http.StatusBadRequest, "Invalid user ID format")
		return
	}
	toolID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		api.ErrorResponse(w, r, http.StatusBadRequest, "Invalid tool ID format")
		return
	}

	if add {
		err = h.toolsService.AddFavorite(ctx, userID, toolID)
	} else {
		err = h.toolsService.RemoveFavorite(ctx, userID, toolID)
	}
	if err != nil {
		h.logger.ErrorContext(ctx, "Failed to update favorite", slog.Any("error", err))
		api.ErrorResponse(w, r, http.StatusInternalServerError, "Failed to update favorite")
		return
	}

	api.WriteJSONResponse(w, r, http.StatusNoContent, nil)
}
