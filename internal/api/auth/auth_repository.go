package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/aiarcade/aiarcade/internal/types"
)

// DB is the subset of pgxpool.Pool the repository needs. pgxmock satisfies
// it too, which is how the repository tests run without a database.
type DB interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

var _ AuthRepo = (*PostgresAuthRepo)(nil)

// AuthRepo is the credential store boundary. All account and pending-code
// persistence goes through it.
type AuthRepo interface {
	CreateUser(ctx context.Context, params CreateUserParams) (*types.UserAuth, error)
	GetUserByEmail(ctx context.Context, email string) (*types.UserAuth, error)
	GetUserByID(ctx context.Context, userID uuid.UUID) (*types.UserAuth, error)

	UpsertPendingCode(ctx context.Context, userID uuid.UUID, purpose CodePurpose, code string, expiresAt time.Time) error
	GetPendingCode(ctx context.Context, userID uuid.UUID, purpose CodePurpose) (*PendingCode, error)
	ClearPendingCode(ctx context.Context, userID uuid.UUID, purpose CodePurpose) error

	MarkEmailVerified(ctx context.Context, userID uuid.UUID) error
	UpdatePassword(ctx context.Context, userID uuid.UUID, newHashedPassword string) error
	RecordFailedLogin(ctx context.Context, userID uuid.UUID, lockUntil *time.Time) error
	RecordSuccessfulLogin(ctx context.Context, userID uuid.UUID) error
}

// CreateUserParams holds the initial state of a new account.
type CreateUserParams struct {
	Email           string
	Username        string
	PasswordHash    string
	LinkedinProfile *string
	GithubProfile   *string
	AvatarURL       *string
	DisplayName     *string
	IsEmailVerified bool
	AuthProvider    *string
}

type PostgresAuthRepo struct {
	logger *slog.Logger
	db     DB
}

func NewPostgresAuthRepo(db DB, logger *slog.Logger) *PostgresAuthRepo {
	return &PostgresAuthRepo{
		logger: logger,
		db:     db,
	}
}

const userAuthColumns = `id, email, username, password_hash, is_email_verified,
       failed_login_attempts, account_lock_until, username_updated_at,
       display_name, avatar_url, linkedin_profile, github_profile,
       arcade_coins, last_login_at, created_at, updated_at`

func scanUserAuth(row pgx.Row) (*types.UserAuth, error) {
	var u types.UserAuth
	err := row.Scan(
		&u.ID, &u.Email, &u.Username, &u.PasswordHash, &u.IsEmailVerified,
		&u.FailedLoginAttempts, &u.AccountLockUntil, &u.UsernameUpdatedAt,
		&u.Profile.DisplayName, &u.Profile.AvatarURL, &u.Profile.LinkedinProfile,
		&u.Profile.GithubProfile, &u.Profile.ArcadeCoins, &u.Profile.LastLoginAt,
		&u.Profile.CreatedAt, &u.Profile.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, types.ErrNotFound
		}
		return nil, fmt.Errorf("scan user: %w", err)
	}
	u.Profile.ID = u.ID
	u.Profile.Email = u.Email
	u.Profile.Username = u.Username
	u.Profile.IsEmailVerified = u.IsEmailVerified
	return &u, nil
}

// CreateUser inserts a new account. Duplicate email or username surfaces
// as types.ErrConflict.
func (r *PostgresAuthRepo) CreateUser(ctx context.Context, params CreateUserParams) (*types.UserAuth, error) {
	row := r.db.QueryRow(ctx,
		`INSERT INTO users (email, username, password_hash, is_email_verified,
		                    linkedin_profile, github_profile, avatar_url, display_name, auth_provider)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		 RETURNING `+userAuthColumns,
		params.Email, params.Username, params.PasswordHash, params.IsEmailVerified,
		params.LinkedinProfile, params.GithubProfile, params.AvatarURL,
		params.DisplayName, params.AuthProvider)

	user, err := scanUserAuth(row)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, fmt.Errorf("%w: email or username already taken", types.ErrConflict)
		}
		return nil, fmt.Errorf("create user: %w", err)
	}
	return user, nil
}

func (r *PostgresAuthRepo) GetUserByEmail(ctx context.Context, email string) (*types.UserAuth, error) {
	row := r.db.QueryRow(ctx,
		`SELECT `+userAuthColumns+` FROM users WHERE email = $1`, email)
	return scanUserAuth(row)
}

func (r *PostgresAuthRepo) GetUserByID(ctx context.Context, userID uuid.UUID) (*types.UserAuth, error) {
	row := r.db.QueryRow(ctx,
		`SELECT `+userAuthColumns+` FROM users WHERE id = $1`, userID)
	return scanUserAuth(row)
}

// UpsertPendingCode stores a code for (user, purpose), superseding any
// pending one. The old code becomes permanently invalid even if unexpired.
func (r *PostgresAuthRepo) UpsertPendingCode(ctx context.Context, userID uuid.UUID, purpose CodePurpose, code string, expiresAt time.Time) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO pending_codes (user_id, purpose, code, expires_at, created_at)
		 VALUES ($1, $2, $3, $4, now())
		 ON CONFLICT (user_id, purpose)
		 DO UPDATE SET code = EXCLUDED.code, expires_at = EXCLUDED.expires_at, created_at = now()`,
		userID, string(purpose), code, expiresAt)
	if err != nil {
		return fmt.Errorf("upsert pending code: %w", err)
	}
	return nil
}

func (r *PostgresAuthRepo) GetPendingCode(ctx context.Context, userID uuid.UUID, purpose CodePurpose) (*PendingCode, error) {
	var pc PendingCode
	var purposeStr string
	err := r.db.QueryRow(ctx,
		`SELECT user_id, purpose, code, expires_at, created_at
		 FROM pending_codes WHERE user_id = $1 AND purpose = $2`,
		userID, string(purpose)).Scan(&pc.UserID, &purposeStr, &pc.Code, &pc.ExpiresAt, &pc.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, types.ErrNotFound
		}
		return nil, fmt.Errorf("get pending code: %w", err)
	}
	pc.Purpose = CodePurpose(purposeStr)
	return &pc, nil
}

func (r *PostgresAuthRepo) ClearPendingCode(ctx context.Context, userID uuid.UUID, purpose CodePurpose) error {
	_, err := r.db.Exec(ctx,
		`DELETE FROM pending_codes WHERE user_id = $1 AND purpose = $2`,
		userID, string(purpose))
	if err != nil {
		return fmt.Errorf("clear pending code: %w", err)
	}
	return nil
}

func (r *PostgresAuthRepo) MarkEmailVerified(ctx context.Context, userID uuid.UUID) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE users SET is_email_verified = TRUE, updated_at = now() WHERE id = $1`,
		userID)
	if err != nil {
		return fmt.Errorf("mark email verified: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return types.ErrNotFound
	}
	return nil
}

func (r *PostgresAuthRepo) UpdatePassword(ctx context.Context, userID uuid.UUID, newHashedPassword string) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE users SET password_hash = $1, updated_at = now() WHERE id = $2`,
		newHashedPassword, userID)
	if err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return types.ErrNotFound
	}
	return nil
}

// RecordFailedLogin bumps the failure counter and, once the caller decides
// the threshold is crossed, stamps the lock horizon.
func (r *PostgresAuthRepo) RecordFailedLogin(ctx context.Context, userID uuid.UUID, lockUntil *time.Time) error {
	_, err := r.db.Exec(ctx,
		`UPDATE users
		 SET failed_login_attempts = failed_login_attempts + 1,
		     account_lock_until = COALESCE($1, account_lock_until),
		     updated_at = now()
		 WHERE id = $2`,
		lockUntil, userID)
	if err != nil {
		return fmt.Errorf("record failed login: %w", err)
	}
	return nil
}

// RecordSuccessfulLogin resets the lockout counters and stamps last_login_at.
func (r *PostgresAuthRepo) RecordSuccessfulLogin(ctx context.Context, userID uuid.UUID) error {
	_, err := r.db.Exec(ctx,
		`UPDATE users
		 SET failed_login_attempts = 0,
		     account_lock_until = NULL,
		     last_login_at = now(),
		     updated_at = now()
		 WHERE id = $1`,
		userID)
	if err != nil {
		return fmt.Errorf("record successful login: %w", err)
	}
	return nil
}
