package types

import "errors"

// Sentinel errors shared across the feature modules. Services and
// repositories wrap these with fmt.Errorf("...: %w", err); handlers map
// them to HTTP statuses with errors.Is.
var (
	ErrNotFound         = errors.New("not found")
	ErrConflict         = errors.New("conflict")
	ErrValidation       = errors.New("validation failed")
	ErrUnauthenticated  = errors.New("unauthenticated")
	ErrAccountLocked    = errors.New("account locked")
	ErrCodeMismatch     = errors.New("verification code mismatch")
	ErrCodeExpired      = errors.New("verification code expired")
	ErrAlreadyVerified  = errors.New("already verified")
	ErrUsernameCooldown = errors.New("username cooldown")
)
