package user

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/aiarcade/aiarcade/config"
	"github.com/aiarcade/aiarcade/internal/types"
)

var usernameRe = regexp.MustCompile(`^[a-zA-Z0-9_]{3,30}$`)

var _ UserService = (*UserServiceImpl)(nil)

type UserService interface {
	GetProfile(ctx context.Context, userID uuid.UUID) (*types.UserProfile, error)
	UpdateProfile(ctx context.Context, userID uuid.UUID, params types.UpdateProfileParams) (*types.UserProfile, error)
}

type UserServiceImpl struct {
	logger *slog.Logger
	repo   UserRepo
	cfg    *config.Config
}

func NewUserService(repo UserRepo, cfg *config.Config, logger *slog.Logger) *UserServiceImpl {
	return &UserServiceImpl{
		logger: logger,
		repo:   repo,
		cfg:    cfg,
	}
}

func (s *UserServiceImpl) GetProfile(ctx context.Context, userID uuid.UUID) (*types.UserProfile, error) {
	return s.repo.GetProfileByID(ctx, userID)
}

// UpdateProfile applies partial profile changes. Username changes are
// rate limited: once changed, the name is frozen for the configured
// cooldown window.
func (s *UserServiceImpl) UpdateProfile(ctx context.Context, userID uuid.UUID, params types.UpdateProfileParams) (*types.UserProfile, error) {
	ctx, span := otel.Tracer("UserService").Start(ctx, "UpdateProfile")
	defer span.End()
	span.SetAttributes(attribute.String("user.id", userID.String()))

	l := s.logger.With(slog.String("method", "UpdateProfile"), slog.String("userID", userID.String()))

	usernameChanged := false
	if params.Username != nil {
		trimmed := strings.TrimSpace(*params.Username)
		params.Username = &trimmed
		if !usernameRe.MatchString(trimmed) {
			return nil, fmt.Errorf("%w: username must be 3-30 characters of letters, digits or underscores", types.ErrValidation)
		}

		current, err := s.repo.GetProfileByID(ctx, userID)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "profile lookup failed")
			return nil, err
		}
		if current.Username != trimmed {
			usernameChanged = true
			changedAt, err := s.repo.GetUsernameUpdatedAt(ctx, userID)
			if err != nil {
				span.RecordError(err)
				span.SetStatus(codes.Error, "cooldown lookup failed")
				return nil, err
			}
			if changedAt != nil {
				next := changedAt.Add(s.cfg.Auth.UsernameCooldown)
				if remaining := time.Until(next); remaining > 0 {
					l.WarnContext(ctx, "username change rejected by cooldown",
						slog.Duration("remaining", remaining))
					return nil, fmt.Errorf("%w: username can be changed again in %s",
						types.ErrUsernameCooldown, remaining.Round(time.Minute))
				}
			}
		}
	}

	profile, err := s.repo.UpdateProfile(ctx, userID, params, usernameChanged)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "profile update failed")
		l.ErrorContext(ctx, "failed to update profile", slog.Any("error", err))
		return nil, err
	}

	span.SetStatus(codes.Ok, "profile updated")
	l.InfoContext(ctx, "profile updated", slog.Bool("usernameChanged", usernameChanged))
	return profile, nil
}
