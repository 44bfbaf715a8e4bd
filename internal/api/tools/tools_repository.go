package tools

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

var _ ToolsRepo = (*PostgresToolsRepo)(nil)

type ToolsRepo interface {
	ListTools(ctx context.Context, filter ListToolsFilter) ([]Tool, error)
	GetToolBySlug(ctx context.Context, slug string) (*Tool, error)
	CreateTool(ctx context.Context, params CreateToolParams, slug string, createdBy uuid.UUID) (*Tool, error)
	ListCategories(ctx context.Context) ([]Category, error)
	AddFavorite(ctx context.Context, userID, toolID uuid.UUID) error
	RemoveFavorite(ctx context.Context, userID, toolID uuid.UUID) error
}

type PostgresToolsRepo struct {
	logger *slog.Logger
	pgpool *pgxpool.Pool
}

func NewPostgresToolsRepo(pgpool *pgxpool.Pool, logger *slog.Logger) *PostgresToolsRepo {
	return &PostgresToolsRepo{
		logger: logger,
		pgpool: pgpool,
	}
}

const toolColumns = `t.id, t.name, t.slug, t.description, t.website_url, t.logo_url,
       t.created_at, t.updated_at, c.id, c.name, c.slug`

func scanTool(row pgx.Row) (*Tool, error) {
	var t Tool
	var catID *uuid.UUID
	var catName, catSlug *string
	err := row.Scan(
		&t.ID, &t.Name, &t.Slug, &t.Description, &t.WebsiteURL, &t.LogoURL,
		&t.CreatedAt, &t.UpdatedAt, &catID, &catName, &catSlug,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, types.ErrNotFound
		}
		return nil, fmt.Errorf("scan tool: %w", err)
	}
	if catID != nil {
		t.Category = &Category{ID: *catID, Name: *catName, Slug: *catSlug}
	}
	return &t, nil
}

func (r *PostgresToolsRepo) ListTools(ctx context.Context, filter ListToolsFilter) ([]Tool, error) {
	query := `SELECT ` + toolColumns + `
	          FROM tools t
	          LEFT JOIN tool_categories c ON c.id = t.category_id
	          WHERE ($1 = '' OR c.slug = $1)
	            AND ($2 = '' OR t.name ILIKE '%' || $2 || '%')
	          ORDER BY t.name`

	rows, err := r.pgpool.Query(ctx, query, filter.CategorySlug, filter.Search)
	if err != nil {
		return nil, fmt.Errorf("list tools: query failed: %w", err)
	}
	defer rows.Close()

	var out []Tool
	for rows.Next() {
		t, err := scanTool(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list tools: rows: %w", err)
	}
	return out, nil
}

func (r *PostgresToolsRepo) GetToolBySlug(ctx context.Context, slug string) (*Tool, error) {
	row := r.pgpool.QueryRow(ctx,
		`SELECT `+toolColumns+`
		 FROM tools t
		 LEFT JOIN tool_categories c ON c.id = t.category_id
		 WHERE t.slug = $1`, slug)
	return scanTool(row)
}

func (r *PostgresToolsRepo) CreateTool(ctx context.Context, params CreateToolParams, slug string, createdBy uuid.UUID) (*Tool, error) {
	var categoryID *uuid.UUID
	if params.CategorySlug != "" {
		var id uuid.UUID
		err := r.pgpool.QueryRow(ctx,
			`SELECT id FROM tool_categories WHERE slug = $1`, params.CategorySlug).Scan(&id)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil, fmt.Errorf("%w: unknown category %q", types.ErrValidation, params.CategorySlug)
			}
			return nil, fmt.Errorf("create tool: category lookup failed: %w", err)
		}
		categoryID = &id
	}

	var toolID uuid.UUID
	err := r.pgpool.QueryRow(ctx,
		`INSERT INTO tools (name, slug, description, category_id, website_url, logo_url, created_by)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 RETURNING id`,
		params.Name, slug, params.Description, categoryID, params.WebsiteURL, params.LogoURL, createdBy).Scan(&toolID)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, fmt.Errorf("%w: a tool with that name already exists", types.ErrConflict)
		}
		return nil, fmt.Errorf("create tool: insert failed: %w", err)
	}

	row := r.pgpool.QueryRow(ctx,
		`SELECT `+toolColumns+`
		 FROM tools t
		 LEFT JOIN tool_categories c ON c.id = t.category_id
		 WHERE t.id = $1`, toolID)
	return scanTool(row)
}

func (r *PostgresToolsRepo) ListCategories(ctx context.Context) ([]Category, error) {
	rows, err := r.pgpool.Query(ctx,
		`SELECT id, name, slug FROM tool_categories ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list categories: query failed: %w", err)
	}
	defer rows.Close()

	var out []Category
	for rows.Next() {
		var c Category
		if err := rows.Scan(&c.ID, &c.Name, &c.Slug); err != nil {
			return nil, fmt.Errorf("list categories: scan: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *PostgresToolsRepo) AddFavorite(ctx context.Context, userID, toolID uuid.UUID) error {
	_, err := r.pgpool.Exec(ctx,
		`INSERT INTO tool_favorites (user_id, tool_id) VALUES ($1, $2)
		 ON CONFLICT DO NOTHING`,
		userID, toolID)
	if err != nil {
		return fmt.Errorf("add favorite: %w", err)
	}
	return nil
}

func (r *PostgresToolsRepo) RemoveFavorite(ctx context.Context, userID, toolID uuid.UUID) error {
	_, err := r.pgpool.Exec(ctx,
		`DELETE FROM tool_favorites WHERE user_id = $1 AND tool_id = $2`,
		userID, toolID)
	if err != nil {
		return fmt.Errorf("remove favorite: %w", err)
	}
	return nil
}
