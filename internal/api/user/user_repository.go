package user

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/aiarcade/aiarcade/internal/types"
)

var _ UserRepo = (*PostgresUserRepo)(nil)

type UserRepo interface {
	GetProfileByID(ctx context.Context, userID uuid.UUID) (*types.UserProfile, error)
	GetUsernameUpdatedAt(ctx context.Context, userID uuid.UUID) (*time.Time, error)
	UpdateProfile(ctx context.Context, userID uuid.UUID, params types.UpdateProfileParams, usernameChanged bool) (*types.UserProfile, error)
}

type PostgresUserRepo struct {
	logger *slog.Logger
	pgpool *pgxpool.Pool
}

func NewPostgresUserRepo(pgpool *pgxpool.Pool, logger *slog.Logger) *PostgresUserRepo {
	return &PostgresUserRepo{
		logger: logger,
		pgpool: pgpool,
	}
}

const profileColumns = `id, email, username, display_name, avatar_url,
       linkedin_profile, github_profile, arcade_coins, is_email_verified,
       last_login_at, created_at, updated_at`

func scanProfile(row pgx.Row) (*types.UserProfile, error) {
	var p types.UserProfile
	err := row.Scan(&p.ID, &p.Email, &p.Username, &p.DisplayName, &p.AvatarURL,
		&p.LinkedinProfile, &p.GithubProfile, &p.ArcadeCoins, &p.IsEmailVerified,
		&p.LastLoginAt, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, types.ErrNotFound
		}
		return nil, fmt.Errorf("scan profile: %w", err)
	}
	return &p, nil
}

func (r *PostgresUserRepo) GetProfileByID(ctx context.Context, userID uuid.UUID) (*types.UserProfile, error) {
	row := r.pgpool.QueryRow(ctx,
		`SELECT `+profileColumns+` FROM users WHERE id = $1`, userID)
	return scanProfile(row)
}

func (r *PostgresUserRepo) GetUsernameUpdatedAt(ctx context.Context, userID uuid.UUID) (*time.Time, error) {
	var ts *time.Time
	err := r.pgpool.QueryRow(ctx,
		`SELECT username_updated_at FROM users WHERE id = $1`, userID).Scan(&ts)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, types.ErrNotFound
		}
		return nil, fmt.Errorf("username cooldown lookup: %w", err)
	}
	return ts, nil
}

// UpdateProfile applies only the provided fields. The SET clause is
// assembled per field so an omitted pointer leaves the column untouched.
func (r *PostgresUserRepo) UpdateProfile(ctx context.Context, userID uuid.UUID, params types.UpdateProfileParams, usernameChanged bool) (*types.UserProfile, error) {
	sets := []string{"updated_at = now()"}
	args := []interface{}{userID}

	add := func(column string, value interface{}) {
		args = append(args, value)
		sets = append(sets, fmt.Sprintf("%s = $%d", column, len(args)))
	}

	if params.Username != nil {
		add("username", *params.Username)
		if usernameChanged {
			sets = append(sets, "username_updated_at = now()")
		}
	}
	if params.DisplayName != nil {
		add("display_name", *params.DisplayName)
	}
	if params.AvatarURL != nil {
		add("avatar_url", *params.AvatarURL)
	}
	if params.LinkedinProfile != nil {
		add("linkedin_profile", *params.LinkedinProfile)
	}
	if params.GithubProfile != nil {
		add("github_profile", *params.GithubProfile)
	}

	query := fmt.Sprintf(
		`UPDATE users SET %s WHERE id = $1 RETURNING %s`,
		strings.Join(sets, ", "), profileColumns)

	profile, err := scanProfile(r.pgpool.QueryRow(ctx, query, args...))
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, fmt.Errorf("%w: username already taken", types.ErrConflict)
		}
		return nil, err
	}
	return profile, nil
}
