package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"regexp"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/markbates/goth"
	passwordvalidator "github.com/wagslane/go-password-validator"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/crypto/bcrypt"

	"github.com/aiarcade/aiarcade/config"
	"github.com/aiarcade/aiarcade/internal/types"
)

// Ensure implementation satisfies the interface
var _ AuthService = (*AuthServiceImpl)(nil)

// AuthService is the sole authority for account creation, credential
// checking and the verification/reset handshake. It hands verification
// codes back to the caller instead of emailing them itself.
type AuthService interface {
	Register(ctx context.Context, params RegisterParams) (*RegisterResult, error)
	Login(ctx context.Context, email, password string) (*LoginResult, error)
	VerifyEmailWithCode(ctx context.Context, email, code string) (*types.UserProfile, error)
	ResendVerificationCode(ctx context.Context, email string) (code, username string, err error)
	SendPasswordRecovery(ctx context.Context, email string) (code, username string, err error)
	ResetPassword(ctx context.Context, email, code, newPassword string) error

	GetUserProfile(ctx context.Context, userID uuid.UUID) (*types.UserProfile, error)
	GetOrCreateUserFromProvider(ctx context.Context, provider string, providerUser goth.User) (*types.UserProfile, error)
	IssueAccessToken(user *types.UserProfile) (string, error)
}

type AuthServiceImpl struct {
	logger *slog.Logger
	repo   AuthRepo
	cfg    *config.Config
}

func NewAuthService(repo AuthRepo, cfg *config.Config, logger *slog.Logger) *AuthServiceImpl {
	return &AuthServiceImpl{
		logger: logger,
		repo:   repo,
		cfg:    cfg,
	}
}

var usernameRe = regexp.MustCompile(`^[a-zA-Z0-9_]{3,30}$`)

// validatePassword returns every policy violation at once so forms can
// display all of them.
func (s *AuthServiceImpl) validatePassword(password string) *PasswordPolicyError {
	var violations []string
	if password == "" {
		violations = append(violations, "password must not be empty")
	}
	if len(password) < 8 {
		violations = append(violations, "password must be at least 8 characters")
	}
	if err := passwordvalidator.Validate(password, s.cfg.Auth.MinPasswordBits); err != nil {
		violations = append(violations, err.Error())
	}
	if len(violations) > 0 {
		return &PasswordPolicyError{Violations: violations}
	}
	return nil
}

func (s *AuthServiceImpl) issueCode(ctx context.Context, userID uuid.UUID, purpose CodePurpose) (string, error) {
	code, err := GenerateNumericCode(s.cfg.Auth.CodeLength)
	if err != nil {
		return "", fmt.Errorf("error generating code: %w", err)
	}
	expiresAt := time.Now().Add(s.cfg.Auth.CodeTTL)
	if err := s.repo.UpsertPendingCode(ctx, userID, purpose, code, expiresAt); err != nil {
		return "", fmt.Errorf("error storing code: %w", err)
	}
	return code, nil
}

// Register creates an unverified account, issues a verification code and
// returns it for dispatch through the email layer.
func (s *AuthServiceImpl) Register(ctx context.Context, params RegisterParams) (*RegisterResult, error) {
	ctx, span := otel.Tracer("AuthService").Start(ctx, "Register", trace.WithAttributes(
		attribute.String("user.email", params.Email),
	))
	defer span.End()

	l := s.logger.With(slog.String("method", "Register"), slog.String("email", params.Email))
	l.DebugContext(ctx, "Registering new account")

	if _, err := mail.ParseAddress(params.Email); err != nil {
		return nil, fmt.Errorf("%w: invalid email address", types.ErrValidation)
	}
	if !usernameRe.MatchString(params.Username) {
		return nil, fmt.Errorf("%w: username must be 3-30 characters (letters, digits, underscore)", types.ErrValidation)
	}
	if perr := s.validatePassword(params.Password); perr != nil {
		return nil, perr
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(params.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user, err := s.repo.CreateUser(ctx, CreateUserParams{
		Email:           strings.ToLower(params.Email),
		Username:        params.Username,
		PasswordHash:    string(hashed),
		LinkedinProfile: params.LinkedinProfile,
		GithubProfile:   params.GithubProfile,
	})
	if err != nil {
		l.WarnContext(ctx, "Account creation failed", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "Account creation failed")
		return nil, err
	}

	code, err := s.issueCode(ctx, user.ID, PurposeEmailVerification)
	if err != nil {
		l.ErrorContext(ctx, "Failed to issue verification code", slog.Any("error", err))
		span.RecordError(err)
		return nil, err
	}

	l.InfoContext(ctx, "Account registered, verification pending", slog.String("userID", user.ID.String()))
	span.SetStatus(codes.Ok, "Account registered")
	return &RegisterResult{
		User:                 &user.Profile,
		VerificationCode:     code,
		RequiresVerification: true,
	}, nil
}

// Login checks credentials. Unverified accounts are never logged in:
// a correct password re-issues a fresh verification code instead, letting
// users recover a lost original code without a separate resend call.
func (s *AuthServiceImpl) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	ctx, span := otel.Tracer("AuthService").Start(ctx, "Login")
	defer span.End()

	l := s.logger.With(slog.String("method", "Login"), slog.String("email", email))

	user, err := s.repo.GetUserByEmail(ctx, strings.ToLower(email))
	if err != nil {
		if errors.Is(err, types.ErrNotFound) {
			// Same error as a wrong password; never reveal which was wrong.
			return nil, types.ErrUnauthenticated
		}
		return nil, fmt.Errorf("error fetching account: %w", err)
	}

	now := time.Now()
	if user.AccountLockUntil != nil && now.Before(*user.AccountLockUntil) {
		l.WarnContext(ctx, "Login attempt on locked account", slog.String("userID", user.ID.String()))
		return nil, types.ErrAccountLocked
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		var lockUntil *time.Time
		if user.FailedLoginAttempts+1 >= s.cfg.Auth.MaxFailedLogins {
			t := now.Add(s.cfg.Auth.LockDuration)
			lockUntil = &t
		}
		if rerr := s.repo.RecordFailedLogin(ctx, user.ID, lockUntil); rerr != nil {
			l.ErrorContext(ctx, "Failed to record login failure", slog.Any("error", rerr))
		}
		return nil, types.ErrUnauthenticated
	}

	if !user.IsEmailVerified {
		code, cerr := s.issueCode(ctx, user.ID, PurposeEmailVerification)
		if cerr != nil {
			return nil, cerr
		}
		l.InfoContext(ctx, "Login blocked pending verification, code re-issued",
			slog.String("userID", user.ID.String()))
		return &LoginResult{
			RequiresVerification: true,
			VerificationCode:     code,
			Username:             user.Username,
		}, nil
	}

	if err := s.repo.RecordSuccessfulLogin(ctx, user.ID); err != nil {
		l.WarnContext(ctx, "Failed to record successful login", slog.Any("error", err))
	}

	token, err := s.IssueAccessToken(&user.Profile)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("error issuing access token: %w", err)
	}

	l.InfoContext(ctx, "Login successful", slog.String("userID", user.ID.String()))
	span.SetStatus(codes.Ok, "Login successful")
	return &LoginResult{User: &user.Profile, AccessToken: token}, nil
}

// VerifyEmailWithCode completes the handshake: exact string match against
// the stored code, expiry checked first. On success the verified flag flips
// (exactly once) and the code is cleared, so replaying it mismatches.
func (s *AuthServiceImpl) VerifyEmailWithCode(ctx context.Context, email, code string) (*types.UserProfile, error) {
	ctx, span := otel.Tracer("AuthService").Start(ctx, "VerifyEmailWithCode")
	defer span.End()

	l := s.logger.With(slog.String("method", "VerifyEmailWithCode"), slog.String("email", email))

	user, err := s.repo.GetUserByEmail(ctx, strings.ToLower(email))
	if err != nil {
		return nil, err
	}
	if user.IsEmailVerified {
		return nil, types.ErrAlreadyVerified
	}

	pending, err := s.repo.GetPendingCode(ctx, user.ID, PurposeEmailVerification)
	if err != nil {
		if errors.Is(err, types.ErrNotFound) {
			return nil, types.ErrCodeMismatch
		}
		return nil, fmt.Errorf("error fetching pending code: %w", err)
	}
	if pending.Expired(time.Now()) {
		return nil, types.ErrCodeExpired
	}
	if pending.Code != code {
		return nil, types.ErrCodeMismatch
	}

	if err := s.repo.MarkEmailVerified(ctx, user.ID); err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("error marking email verified: %w", err)
	}
	if err := s.repo.ClearPendingCode(ctx, user.ID, PurposeEmailVerification); err != nil {
		l.WarnContext(ctx, "Failed to clear used code", slog.Any("error", err))
	}

	user.Profile.IsEmailVerified = true
	l.InfoContext(ctx, "Email verified", slog.String("userID", user.ID.String()))
	span.SetStatus(codes.Ok, "Email verified")
	return &user.Profile, nil
}

// ResendVerificationCode issues a fresh code, permanently invalidating any
// pending one even if it had not expired yet.
func (s *AuthServiceImpl) ResendVerificationCode(ctx context.Context, email string) (string, string, error) {
	user, err := s.repo.GetUserByEmail(ctx, strings.ToLower(email))
	if err != nil {
		return "", "", err
	}
	if user.IsEmailVerified {
		return "", "", types.ErrAlreadyVerified
	}

	code, err := s.issueCode(ctx, user.ID, PurposeEmailVerification)
	if err != nil {
		return "", "", err
	}
	s.logger.InfoContext(ctx, "Verification code re-issued", slog.String("userID", user.ID.String()))
	return code, user.Username, nil
}

// SendPasswordRecovery issues a reset code. Returns types.ErrNotFound for
// unknown emails; the handler masks that as a generic success so account
// existence cannot be probed.
func (s *AuthServiceImpl) SendPasswordRecovery(ctx context.Context, email string) (string, string, error) {
	user, err := s.repo.GetUserByEmail(ctx, strings.ToLower(email))
	if err != nil {
		return "", "", err
	}

	code, err := s.issueCode(ctx, user.ID, PurposePasswordReset)
	if err != nil {
		return "", "", err
	}
	s.logger.InfoContext(ctx, "Password recovery code issued", slog.String("userID", user.ID.String()))
	return code, user.Username, nil
}

// ResetPassword validates the reset code the same way the verification flow
// does, then replaces the credential hash. The verified flag is left alone;
// proving mailbox control for a reset is deliberately not treated as email
// verification.
func (s *AuthServiceImpl) ResetPassword(ctx context.Context, email, code, newPassword string) error {
	ctx, span := otel.Tracer("AuthService").Start(ctx, "ResetPassword")
	defer span.End()

	l := s.logger.With(slog.String("method", "ResetPassword"), slog.String("email", email))

	user, err := s.repo.GetUserByEmail(ctx, strings.ToLower(email))
	if err != nil {
		return err
	}

	pending, err := s.repo.GetPendingCode(ctx, user.ID, PurposePasswordReset)
	if err != nil {
		if errors.Is(err, types.ErrNotFound) {
			return types.ErrCodeMismatch
		}
		return fmt.Errorf("error fetching pending code: %w", err)
	}
	if pending.Expired(time.Now()) {
		return types.ErrCodeExpired
	}
	if pending.Code != code {
		return types.ErrCodeMismatch
	}

	if perr := s.validatePassword(newPassword); perr != nil {
		return perr
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}
	if err := s.repo.UpdatePassword(ctx, user.ID, string(hashed)); err != nil {
		span.RecordError(err)
		return fmt.Errorf("error updating password: %w", err)
	}
	if err := s.repo.ClearPendingCode(ctx, user.ID, PurposePasswordReset); err != nil {
		l.WarnContext(ctx, "Failed to clear used reset code", slog.Any("error", err))
	}

	l.InfoContext(ctx, "Password reset", slog.String("userID", user.ID.String()))
	span.SetStatus(codes.Ok, "Password reset")
	return nil
}

// GetUserProfile returns the sanitized public profile.
func (s *AuthServiceImpl) GetUserProfile(ctx context.Context, userID uuid.UUID) (*types.UserProfile, error) {
	user, err := s.repo.GetUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &user.Profile, nil
}

// GetOrCreateUserFromProvider logs in or provisions an account from an
// OAuth identity. Provider accounts are born verified; the provider already
// proved control of the mailbox.
func (s *AuthServiceImpl) GetOrCreateUserFromProvider(ctx context.Context, provider string, providerUser goth.User) (*types.UserProfile, error) {
	l := s.logger.With(slog.String("method", "GetOrCreateUserFromProvider"), slog.String("provider", provider))

	if providerUser.Email == "" {
		return nil, fmt.Errorf("%w: provider returned no email", types.ErrValidation)
	}

	email := strings.ToLower(providerUser.Email)
	user, err := s.repo.GetUserByEmail(ctx, email)
	if err == nil {
		return &user.Profile, nil
	}
	if !errors.Is(err, types.ErrNotFound) {
		return nil, fmt.Errorf("error fetching account: %w", err)
	}

	username := providerUser.NickName
	if !usernameRe.MatchString(username) {
		username = strings.SplitN(email, "@", 2)[0]
	}
	if !usernameRe.MatchString(username) {
		username = "player_" + uuid.NewString()[:8]
	}

	// Random credential; provider accounts authenticate via OAuth only.
	randomSecret := uuid.NewString() + uuid.NewString()
	hashed, err := bcrypt.GenerateFromPassword([]byte(randomSecret), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash placeholder password: %w", err)
	}

	params := CreateUserParams{
		Email:           email,
		Username:        username,
		PasswordHash:    string(hashed),
		IsEmailVerified: true,
		AuthProvider:    &provider,
	}
	if providerUser.AvatarURL != "" {
		params.AvatarURL = &providerUser.AvatarURL
	}
	if providerUser.Name != "" {
		params.DisplayName = &providerUser.Name
	}

	created, err := s.repo.CreateUser(ctx, params)
	if errors.Is(err, types.ErrConflict) {
		// Username collision; retry once with a unique suffix.
		params.Username = username + "_" + uuid.NewString()[:6]
		created, err = s.repo.CreateUser(ctx, params)
	}
	if err != nil {
		l.ErrorContext(ctx, "Failed to provision provider account", slog.Any("error", err))
		return nil, err
	}

	l.InfoContext(ctx, "Provider account provisioned", slog.String("userID", created.ID.String()))
	return &created.Profile, nil
}

// IssueAccessToken signs a short-lived JWT for the given profile.
func (s *AuthServiceImpl) IssueAccessToken(user *types.UserProfile) (string, error) {
	now := time.Now()
	claims := types.Claims{
		UserID:   user.ID.String(),
		Username: user.Username,
		Email:    user.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.cfg.JWT.Issuer,
			Audience:  jwt.ClaimStrings{s.cfg.JWT.Audience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.cfg.JWT.AccessTokenTTL)),
			Subject:   user.ID.String(),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(s.cfg.JWT.SecretKey))
	if err != nil {
		return "", fmt.Errorf("failed to sign access token: %w", err)
	}
	return signed, nil
}
