package blog

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/aiarcade/aiarcade/internal/api"
	"github.com/aiarcade/aiarcade/internal/api/auth"
	"github.com/aiarcade/aiarcade/internal/types"
)

type BlogHandler struct {
	blogService BlogService
	logger      *slog.Logger
}

func NewBlogHandler(blogService BlogService, logger *slog.Logger) *BlogHandler {
	return &BlogHandler{
		blogService: blogService,
		logger:      logger,
	}
}

type createPostRequest struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

type createCommentRequest struct {
	Content  string `json:"content"`
	ParentID string `json:"parentId,omitempty"`
}

type postListResponse struct {
	types.Response
	Posts []Post `json:"posts"`
}

type postResponse struct {
	types.Response
	Post *Post `json:"post"`
}

type commentResponse struct {
	types.Response
	Comment *Comment `json:"comment"`
}

type commentTreeResponse struct {
	types.Response
	Comments []*Comment `json:"comments"`
}

// CreatePost godoc
// @Summary      Publish a blog post
// @Description  Creates and publishes a new post authored by the authenticated user.
// @Tags         Blog
// @Accept       json
// @Produce      json
// @Param        request body createPostRequest true "Post details"
// @Success      201 {object} postResponse
// @Failure      400 {object} types.Response
// @Failure      401 {object} types.Response
// @Security     BearerAuth
// @Router       /blog/posts [post]
func (h *BlogHandler) CreatePost(w http.ResponseWriter, r *http.Request) {
	l := h.logger.With(slog.String("handler", "CreatePost"))

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

	var req createPostRequest
	if err := api.DecodeJSONBody(w, r, &req); err != nil {
		api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
		return
	}

	post, err := h.blogService.CreatePost(r.Context(), userID, CreatePostParams{
		Title:   req.Title,
		Content: req.Content,
	})
	if err != nil {
		switch {
		case errors.Is(err, types.ErrValidation):
			api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
		case errors.Is(err, types.ErrConflict):
			api.ErrorResponse(w, r, http.StatusConflict, "a post with that title already exists")
		default:
			l.ErrorContext(r.Context(), "create post failed", slog.Any("error", err))
			api.ErrorResponse(w, r, http.StatusInternalServerError, "failed to create post")
		}
		return
	}

	api.WriteJSONResponse(w, r, http.StatusCreated, postResponse{
		Response: types.Response{Success: true, Message: "post published"},
		Post:     post,
	})
}

// ListPosts godoc
// @Summary      List published posts
// @Description  Returns published blog posts, newest first.
// @Tags         Blog
// @Produce      json
// @Param        limit  query int false "Page size (default 20, max 100)"
// @Param        offset query int false "Offset into the result set"
// @Success      200 {object} postListResponse
// @Router       /blog/posts [get]
func (h *BlogHandler) ListPosts(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))

	posts, err := h.blogService.ListPosts(r.Context(), limit, offset)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "list posts failed", slog.Any("error", err))
		api.ErrorResponse(w, r, http.StatusInternalServerError, "failed to list posts")
		return
	}
	if posts == nil {
		posts = []Post{}
	}

	api.WriteJSONResponse(w, r, http.StatusOK, postListResponse{
		Response: types.Response{Success: true},
		Posts:    posts,
	})
}

// GetPost godoc
// @Summary      Fetch a single post
// @Tags         Blog
// @Produce      json
// @Param        slug path string true "Post slug"
// @Success      200 {object} postResponse
// @Failure      404 {object} types.Response
// @Router       /blog/posts/{slug} [get]
func (h *BlogHandler) GetPost(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")

	post, err := h.blogService.GetPostBySlug(r.Context(), slug)
	if err != nil {
		if errors.Is(err, types.ErrNotFound) {
			api.ErrorResponse(w, r, http.StatusNotFound, "post not found")
			return
		}
		h.logger.ErrorContext(r.Context(), "get post failed", slog.Any("error", err))
		api.ErrorResponse(w, r, http.StatusInternalServerError, "failed to fetch post")
		return
	}

	api.WriteJSONResponse(w, r, http.StatusOK, postResponse{
		Response: types.Response{Success: true},
		Post:     post,
	})
}

// AddComment godoc
// @Summary      Comment on a post
// @Description  Adds a comment, optionally as a reply to an existing comment on the same post.
// @Tags         Blog
// @Accept       json
// @Produce      json
// @Param        slug    path string               true "Post slug"
// @Param        request body createCommentRequest true "Comment details"
// @Success      201 {object} commentResponse
// @Failure      400 {object} types.Response
// @Failure      401 {object} types.Response
// @Failure      404 {object} types.Response
// @Security     BearerAuth
// @Router       /blog/posts/{slug}/comments [post]
func (h *BlogHandler) AddComment(w http.ResponseWriter, r *http.Request) {
	l := h.logger.With(slog.String("handler", "AddComment"))

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

	var req createCommentRequest
	if err := api.DecodeJSONBody(w, r, &req); err != nil {
		api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
		return
	}

	params := CreateCommentParams{Content: req.Content}
	if req.ParentID != "" {
		parentID, err := uuid.Parse(req.ParentID)
		if err != nil {
			api.ErrorResponse(w, r, http.StatusBadRequest, "parentId must be a valid UUID")
			return
		}
		params.ParentID = &parentID
	}

	comment, err := h.blogService.AddComment(r.Context(), chi.URLParam(r, "slug"), userID, params)
	if err != nil {
		switch {
		case errors.Is(err, types.ErrValidation):
			api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
		case errors.Is(err, types.ErrNotFound):
			api.ErrorResponse(w, r, http.StatusNotFound, "post or parent comment not found")
		default:
			l.ErrorContext(r.Context(), "add comment failed", slog.Any("error", err))
			api.ErrorResponse(w, r, http.StatusInternalServerError, "failed to add comment")
		}
		return
	}

	api.WriteJSONResponse(w, r, http.StatusCreated, commentResponse{
		Response: types.Response{Success: true, Message: "comment added"},
		Comment:  comment,
	})
}

// GetComments godoc
// @Summary      Fetch a post's comments
// @Description  Returns the post's comments arranged as a nested reply tree.
// @Tags         Blog
// @Produce      json
// @Param        slug path string true "Post slug"
// @Success      200 {object} commentTreeResponse
// @Failure      404 {object} types.Response
// @Router       /blog/posts/{slug}/comments [get]
func (h *BlogHandler) GetComments(w http.ResponseWriter, r *http.Request) {
	comments, err := h.blogService.GetCommentTree(r.Context(), chi.URLParam(r, "slug"))
	if err != nil {
		if errors.Is(err, types.ErrNotFound) {
			api.ErrorResponse(w, r, http.StatusNotFound, "post not found")
			return
		}
		h.logger.ErrorContext(r.Context(), "get comments failed", slog.Any("error", err))
		api.ErrorResponse(w, r, http.StatusInternalServerError, "failed to fetch comments")
		return
	}

	api.WriteJSONResponse(w, r, http.StatusOK, commentTreeResponse{
		Response: types.Response{Success: true},
		Comments: comments,
	})
}
