package dashboard

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/aiarcade/aiarcade/internal/api/tools"
	"github.com/aiarcade/aiarcade/internal/types"
)

const (
	summaryCacheTTL  = 30 * time.Second
	recentPostLimit  = 5
	favoriteToolsCap = 10
)

var _ DashboardService = (*DashboardServiceImpl)(nil)

type DashboardService interface {
	GetSummary(ctx context.Context, userID uuid.UUID) (*Summary, error)
}

// ProfileProvider supplies the profile portion of the summary. The auth
// service satisfies it.
type ProfileProvider interface {
	GetUserProfile(ctx context.Context, userID uuid.UUID) (*types.UserProfile, error)
}

type DashboardServiceImpl struct {
	logger   *slog.Logger
	repo     DashboardRepo
	profiles ProfileProvider
	cache    *cache.Cache
}

func NewDashboardService(repo DashboardRepo, profiles ProfileProvider, logger *slog.Logger) *DashboardServiceImpl {
	return &DashboardServiceImpl{
		logger:   logger,
		repo:     repo,
		profiles: profiles,
		cache:    cache.New(summaryCacheTTL, summaryCacheTTL*2),
	}
}

func (s *DashboardServiceImpl) GetSummary(ctx context.Context, userID uuid.UUID) (*Summary, error) {
	ctx, span := otel.Tracer("DashboardService").Start(ctx, "GetSummary")
	defer span.End()
	span.SetAttributes(attribute.String("user.id", userID.String()))

	key := userID.String()
	if cached, ok := s.cache.Get(key); ok {
		span.SetStatus(codes.Ok, "summary served from cache")
		return cached.(*Summary), nil
	}

	profile, err := s.profiles.GetUserProfile(ctx, userID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "profile lookup failed")
		return nil, fmt.Errorf("error fetching profile for dashboard: %w", err)
	}

	stats, err := s.repo.GetStats(ctx, userID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "stats query failed")
		return nil, err
	}

	recent, err := s.repo.ListRecentPosts(ctx, userID, recentPostLimit)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "recent posts query failed")
		return nil, err
	}

	favorites, err := s.repo.ListFavoriteTools(ctx, userID, favoriteToolsCap)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "favorites query failed")
		return nil, err
	}
	for i := range favorites {
		t := &favorites[i]
		if t.LogoURL == nil || *t.LogoURL == "" {
			icon := tools.FallbackIconFor(t.Name)
			t.FallbackIcon = &icon
		}
	}

	summary := &Summary{
		Profile:       profile,
		Stats:         *stats,
		RecentPosts:   recent,
		FavoriteTools: favorites,
	}
	s.cache.Set(key, summary, cache.DefaultExpiration)

	span.SetStatus(codes.Ok, "summary assembled")
	s.logger.DebugContext(ctx, "dashboard summary assembled",
		slog.String("method", "GetSummary"), slog.String("userID", key))
	return summary, nil
}

// Invalidate drops a user's cached summary so the next request reflects
// fresh activity, such as a new post or favorite.
func (s *DashboardServiceImpl) Invalidate(userID uuid.UUID) {
	s.cache.Delete(userID.String())
}
