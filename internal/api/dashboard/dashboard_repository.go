package dashboard

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/aiarcade/aiarcade/internal/api/blog"
	"github.com/aiarcade/aiarcade/internal/api/tools"
)

var _ DashboardRepo = (*PostgresDashboardRepo)(nil)

type DashboardRepo interface {
	GetStats(ctx context.Context, userID uuid.UUID) (*Stats, error)
	ListRecentPosts(ctx context.Context, userID uuid.UUID, limit int) ([]blog.Post, error)
	ListFavoriteTools(ctx context.Context, userID uuid.UUID, limit int) ([]tools.Tool, error)
}

type PostgresDashboardRepo struct {
	logger *slog.Logger
	pgpool *pgxpool.Pool
}

func NewPostgresDashboardRepo(pgpool *pgxpool.Pool, logger *slog.Logger) *PostgresDashboardRepo {
	return &PostgresDashboardRepo{
		logger: logger,
		pgpool: pgpool,
	}
}

func (r *PostgresDashboardRepo) GetStats(ctx context.Context, userID uuid.UUID) (*Stats, error) {
	var s Stats
	err := r.pgpool.QueryRow(ctx,
		`SELECT
		   (SELECT count(*) FROM blog_posts WHERE author_id = $1),
		   (SELECT count(*) FROM blog_comments WHERE author_id = $1),
		   (SELECT count(*) FROM tool_favorites WHERE user_id = $1),
		   (SELECT arcade_coins FROM users WHERE id = $1)`,
		userID).Scan(&s.PostCount, &s.CommentCount, &s.FavoriteCount, &s.ArcadeCoins)
	if err != nil {
		return nil, fmt.Errorf("dashboard stats: query failed: %w", err)
	}
	return &s, nil
}

func (r *PostgresDashboardRepo) ListRecentPosts(ctx context.Context, userID uuid.UUID, limit int) ([]blog.Post, error) {
	rows, err := r.pgpool.Query(ctx,
		`SELECT p.id, p.author_id, u.username, p.title, p.slug, p.content,
		        p.published_at, p.created_at, p.updated_at
		 FROM blog_posts p JOIN users u ON u.id = p.author_id
		 WHERE p.author_id = $1
		 ORDER BY p.created_at DESC
		 LIMIT $2`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("dashboard recent posts: query failed: %w", err)
	}
	defer rows.Close()

	var out []blog.Post
	for rows.Next() {
		var p blog.Post
		if err := rows.Scan(&p.ID, &p.AuthorID, &p.AuthorName, &p.Title, &p.Slug,
			&p.Content, &p.PublishedAt, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, fmt.Errorf("dashboard recent posts: scan: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *PostgresDashboardRepo) ListFavoriteTools(ctx context.Context, userID uuid.UUID, limit int) ([]tools.Tool, error) {
	rows, err := r.pgpool.Query(ctx,
		`SELECT t.id, t.name, t.slug, t.description, t.website_url, t.logo_url,
		        t.created_at, t.updated_at, c.id, c.name, c.slug
		 FROM tool_favorites f
		 JOIN tools t ON t.id = f.tool_id
		 LEFT JOIN tool_categories c ON c.id = t.category_id
		 WHERE f.user_id = $1
		 ORDER BY f.created_at DESC
		 LIMIT $2`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("dashboard favorite tools: query failed: %w", err)
	}
	defer rows.Close()

	var out []tools.Tool
	for rows.Next() {
		var t tools.Tool
		var catID *uuid.UUID
		var catName, catSlug *string
		if err := rows.Scan(&t.ID, &t.Name, &t.Slug, &t.Description, &t.WebsiteURL,
			&t.LogoURL, &t.CreatedAt, &t.UpdatedAt, &catID, &catName, &catSlug); err != nil {
			return nil, fmt.Errorf("dashboard favorite tools: scan: %w", err)
		}
		if catID != nil {
			t.Category = &tools.Category{ID: *catID, Name: *catName, Slug: *catSlug}
		}
		out = append(out, t)
	}
	return out, rows.Err()
}
