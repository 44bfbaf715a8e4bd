package blog

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/aiarcade/aiarcade/internal/types"
)

var _ BlogRepo = (*PostgresBlogRepo)(nil)

type BlogRepo interface {
	CreatePost(ctx context.Context, authorID uuid.UUID, params CreatePostParams, slug string) (*Post, error)
	ListPosts(ctx context.Context, limit, offset int) ([]Post, error)
	GetPostBySlug(ctx context.Context, slug string) (*Post, error)
	CreateComment(ctx context.Context, postID, authorID uuid.UUID, params CreateCommentParams) (*Comment, error)
	ListCommentsByPost(ctx context.Context, postID uuid.UUID) ([]Comment, error)
}

type PostgresBlogRepo struct {
	logger *slog.Logger
	pgpool *pgxpool.Pool
}

func NewPostgresBlogRepo(pgpool *pgxpool.Pool, logger *slog.Logger) *PostgresBlogRepo {
	return &PostgresBlogRepo{
		logger: logger,
		pgpool: pgpool,
	}
}

const postColumns = `p.id, p.author_id, u.username, p.title, p.slug, p.content,
       p.published_at, p.created_at, p.updated_at`

func scanPost(row pgx.Row) (*Post, error) {
	var p Post
	err := row.Scan(&p.ID, &p.AuthorID, &p.AuthorName, &p.Title, &p.Slug,
		&p.Content, &p.PublishedAt, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, types.ErrNotFound
		}
		return nil, fmt.Errorf("scan post: %w", err)
	}
	return &p, nil
}

func (r *PostgresBlogRepo) CreatePost(ctx context.Context, authorID uuid.UUID, params CreatePostParams, slug string) (*Post, error) {
	var postID uuid.UUID
	err := r.pgpool.QueryRow(ctx,
		`INSERT INTO blog_posts (author_id, title, slug, content, published_at)
		 VALUES ($1, $2, $3, $4, now())
		 RETURNING id`,
		authorID, params.Title, slug, params.Content).Scan(&postID)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, fmt.Errorf("%w: a post with that title already exists", types.ErrConflict)
		}
		return nil, fmt.Errorf("create post: insert failed: %w", err)
	}

	row := r.pgpool.QueryRow(ctx,
		`SELECT `+postColumns+`
		 FROM blog_posts p JOIN users u ON u.id = p.author_id
		 WHERE p.id = $1`, postID)
	return scanPost(row)
}

func (r *PostgresBlogRepo) ListPosts(ctx context.Context, limit, offset int) ([]Post, error) {
	rows, err := r.pgpool.Query(ctx,
		`SELECT `+postColumns+`
		 FROM blog_posts p JOIN users u ON u.id = p.author_id
		 WHERE p.published_at IS NOT NULL
		 ORDER BY p.published_at DESC
		 LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list posts: query failed: %w", err)
	}
	defer rows.Close()

	var out []Post
	for rows.Next() {
		p, err := scanPost(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *p)
	}
	return out, rows.Err()
}

func (r *PostgresBlogRepo) GetPostBySlug(ctx context.Context, slug string) (*Post, error) {
	row := r.pgpool.QueryRow(ctx,
		`SELECT `+postColumns+`
		 FROM blog_posts p JOIN users u ON u.id = p.author_id
		 WHERE p.slug = $1`, slug)
	return scanPost(row)
}

func (r *PostgresBlogRepo) CreateComment(ctx context.Context, postID, authorID uuid.UUID, params CreateCommentParams) (*Comment, error) {
	var c Comment
	err := r.pgpool.QueryRow(ctx,
		`INSERT INTO blog_comments (post_id, author_id, parent_id, content)
		 VALUES ($1, $2, $3, $4)
		 RETURNING id, post_id, author_id, parent_id, content, created_at`,
		postID, authorID, params.ParentID, params.Content).Scan(
		&c.ID, &c.PostID, &c.AuthorID, &c.ParentID, &c.Content, &c.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23503" {
			return nil, fmt.Errorf("%w: post or parent comment does not exist", types.ErrNotFound)
		}
		return nil, fmt.Errorf("create comment: insert failed: %w", err)
	}

	err = r.pgpool.QueryRow(ctx,
		`SELECT username FROM users WHERE id = $1`, authorID).Scan(&c.AuthorName)
	if err != nil {
		return nil, fmt.Errorf("create comment: author lookup failed: %w", err)
	}
	return &c, nil
}

func (r *PostgresBlogRepo) ListCommentsByPost(ctx context.Context, postID uuid.UUID) ([]Comment, error) {
	rows, err := r.pgpool.Query(ctx,
		`SELECT c.id, c.post_id, c.author_id, u.username, c.parent_id, c.content, c.created_at
		 FROM blog_comments c JOIN users u ON u.id = c.author_id
		 WHERE c.post_id = $1
		 ORDER BY c.created_at`, postID)
	if err != nil {
		return nil, fmt.Errorf("list comments: query failed: %w", err)
	}
	defer rows.Close()

	var out []Comment
	for rows.Next() {
		var c Comment
		if err := rows.Scan(&c.ID, &c.PostID, &c.AuthorID, &c.AuthorName,
			&c.ParentID, &c.Content, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("list comments: scan: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}
