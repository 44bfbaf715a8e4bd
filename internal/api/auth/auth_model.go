package auth

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/aiarcade/aiarcade/internal/types"
)

// CodePurpose tags a pending code with the flow that issued it, so a
// password-reset request cannot invalidate a pending email-verification
// code or the other way around.
type CodePurpose string

const (
	PurposeEmailVerification CodePurpose = "email_verification"
	PurposePasswordReset     CodePurpose = "password_reset"
)

// PendingCode is one outstanding verification or reset code. At most one
// exists per (user, purpose); issuing a new one supersedes the old.
type PendingCode struct {
	UserID    uuid.UUID
	Purpose   CodePurpose
	Code      string
	ExpiresAt time.Time
	CreatedAt time.Time
}

// Expired reports whether the code is past its expiry instant.
func (p *PendingCode) Expired(now time.Time) bool {
	return now.After(p.ExpiresAt)
}

// RegisterParams carries everything needed to create an account.
type RegisterParams struct {
	Email           string
	Password        string
	Username        string
	LinkedinProfile *string
	GithubProfile   *string
}

// RegisterResult is returned on successful registration. The verification
// code is handed back so the caller can dispatch it; the service itself
// never talks to the email transport.
type RegisterResult struct {
	User                 *types.UserProfile
	VerificationCode     string
	RequiresVerification bool
}

// LoginResult is the outcome of a credential check. Exactly one shape is
// populated: either the sanitized profile plus an access token, or the
// requires-verification branch with a freshly issued code.
type LoginResult struct {
	User        *types.UserProfile
	AccessToken string

	RequiresVerification bool
	VerificationCode     string
	Username             string
}

// PasswordPolicyError collects every policy violation so a form can show
// all of them at once.
type PasswordPolicyError struct {
	Violations []string
}

func (e *PasswordPolicyError) Error() string {
	return fmt.Sprintf("password policy: %s", strings.Join(e.Violations, "; "))
}

func (e *PasswordPolicyError) Unwrap() error { return types.ErrValidation }

// Request bodies.

type RegisterRequest struct {
	Email           string  `json:"email"`
	Password        string  `json:"password,omitempty"`
	Username        string  `json:"username,omitempty"`
	LinkedinProfile *string `json:"linkedinProfile,omitempty"`
	GithubProfile   *string `json:"githubProfile,omitempty"`
	ResendOnly      bool    `json:"resendOnly,omitempty"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type VerifyEmailRequest struct {
	Email string `json:"email"`
	Code  string `json:"code"`
}

type ResendVerificationRequest struct {
	Email string `json:"email"`
}

type RecoveryRequest struct {
	Email string `json:"email"`
}

type ResetPasswordRequest struct {
	Email       string `json:"email"`
	Code        string `json:"code"`
	NewPassword string `json:"newPassword"`
}
