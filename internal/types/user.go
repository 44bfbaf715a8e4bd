package types

import (
	"time"

	"github.com/google/uuid"
)

// UserProfile is the public snapshot of an account: everything the client
// session caches after login. The password hash and any pending verification
// code never leave the server.
type UserProfile struct {
	ID              uuid.UUID  `json:"id"`
	Email           string     `json:"email"`
	Username        string     `json:"username"`
	DisplayName     *string    `json:"display_name,omitempty"`
	AvatarURL       *string    `json:"avatar_url,omitempty"`
	LinkedinProfile *string    `json:"linkedin_profile,omitempty"`
	GithubProfile   *string    `json:"github_profile,omitempty"`
	ArcadeCoins     int        `json:"arcade_coins"`
	IsEmailVerified bool       `json:"is_email_verified"`
	LastLoginAt     *time.Time `json:"last_login_at,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// UserAuth is the internal view of an account used by the auth flows.
// It carries the credential hash and the lockout counters.
type UserAuth struct {
	ID                  uuid.UUID
	Email               string
	Username            string
	PasswordHash        string
	IsEmailVerified     bool
	FailedLoginAttempts int
	AccountLockUntil    *time.Time
	UsernameUpdatedAt   *time.Time
	Profile             UserProfile
}

// UpdateProfileParams defines the mutable profile fields. Pointers
// distinguish "not provided" from "set to empty".
type UpdateProfileParams struct {
	Username        *string `json:"username,omitempty"`
	DisplayName     *string `json:"display_name,omitempty"`
	AvatarURL       *string `json:"avatar_url,omitempty"`
	LinkedinProfile *string `json:"linkedin_profile,omitempty"`
	GithubProfile   *string `json:"github_profile,omitempty"`
}
