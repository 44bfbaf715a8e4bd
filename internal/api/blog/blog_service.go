package blog

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/aiarcade/aiarcade/internal/api/tools"
	"github.com/aiarcade/aiarcade/internal/types"
)

var _ BlogService = (*BlogServiceImpl)(nil)

type BlogService interface {
	CreatePost(ctx context.Context, authorID uuid.UUID, params CreatePostParams) (*Post, error)
	ListPosts(ctx context.Context, limit, offset int) ([]Post, error)
	GetPostBySlug(ctx context.Context, slug string) (*Post, error)
	AddComment(ctx context.Context, postSlug string, authorID uuid.UUID, params CreateCommentParams) (*Comment, error)
	GetCommentTree(ctx context.Context, postSlug string) ([]*Comment, error)
}

type BlogServiceImpl struct {
	logger *slog.Logger
	repo   BlogRepo
}

func NewBlogService(repo BlogRepo, logger *slog.Logger) *BlogServiceImpl {
	return &BlogServiceImpl{
		logger: logger,
		repo:   repo,
	}
}

func (s *BlogServiceImpl) CreatePost(ctx context.Context, authorID uuid.UUID, params CreatePostParams) (*Post, error) {
	l := s.logger.With(slog.String("method", "CreatePost"), slog.String("authorID", authorID.String()))

	params.Title = strings.TrimSpace(params.Title)
	params.Content = strings.TrimSpace(params.Content)
	if params.Title == "" {
		return nil, fmt.Errorf("%w: title is required", types.ErrValidation)
	}
	if params.Content == "" {
		return nil, fmt.Errorf("%w: content is required", types.ErrValidation)
	}

	slug := tools.Slugify(params.Title)
	if slug == "" {
		return nil, fmt.Errorf("%w: title must contain at least one letter or digit", types.ErrValidation)
	}

	post, err := s.repo.CreatePost(ctx, authorID, params, slug)
	if err != nil {
		l.ErrorContext(ctx, "failed to create post", slog.Any("error", err))
		return nil, err
	}
	l.InfoContext(ctx, "post created", slog.String("slug", post.Slug))
	return post, nil
}

func (s *BlogServiceImpl) ListPosts(ctx context.Context, limit, offset int) ([]Post, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	return s.repo.ListPosts(ctx, limit, offset)
}

func (s *BlogServiceImpl) GetPostBySlug(ctx context.Context, slug string) (*Post, error) {
	return s.repo.GetPostBySlug(ctx, slug)
}

func (s *BlogServiceImpl) AddComment(ctx context.Context, postSlug string, authorID uuid.UUID, params CreateCommentParams) (*Comment, error) {
	l := s.logger.With(slog.String("method", "AddComment"), slog.String("postSlug", postSlug))

	params.Content = strings.TrimSpace(params.Content)
	if params.Content == "" {
		return nil, fmt.Errorf("%w: comment content is required", types.ErrValidation)
	}

	post, err := s.repo.GetPostBySlug(ctx, postSlug)
	if err != nil {
		return nil, err
	}

	comment, err := s.repo.CreateComment(ctx, post.ID, authorID, params)
	if err != nil {
		l.ErrorContext(ctx, "failed to create comment", slog.Any("error", err))
		return nil, err
	}
	return comment, nil
}

func (s *BlogServiceImpl) GetCommentTree(ctx context.Context, postSlug string) ([]*Comment, error) {
	ctx, span := otel.Tracer("BlogService").Start(ctx, "GetCommentTree")
	defer span.End()
	span.SetAttributes(attribute.String("post.slug", postSlug))

	post, err := s.repo.GetPostBySlug(ctx, postSlug)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "post lookup failed")
		return nil, err
	}

	comments, err := s.repo.ListCommentsByPost(ctx, post.ID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "comment listing failed")
		return nil, err
	}

	span.SetStatus(codes.Ok, "comment tree built")
	return BuildCommentTree(comments), nil
}

// BuildCommentTree arranges a flat, chronologically ordered comment list
// into a nested reply tree. A comment whose parent is missing from the
// list is promoted to a root rather than dropped.
func BuildCommentTree(flat []Comment) []*Comment {
	byID := make(map[uuid.UUID]*Comment, len(flat))
	nodes := make([]*Comment, len(flat))
	for i := range flat {
		c := flat[i]
		c.Replies = []*Comment{}
		nodes[i] = &c
		byID[c.ID] = nodes[i]
	}

	roots := make([]*Comment, 0, len(nodes))
	for _, c := range nodes {
		if c.ParentID != nil {
			if parent, ok := byID[*c.ParentID]; ok {
				parent.Replies = append(parent.Replies, c)
				continue
			}
		}
		roots = append(roots, c)
	}
	return roots
}
