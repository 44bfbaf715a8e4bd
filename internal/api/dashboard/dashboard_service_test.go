package dashboard

import (
	"context"
	"log/slog"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/aiarcade/aiarcade/internal/api/blog"
	"github.com/aiarcade/aiarcade/internal/api/tools"
	"github.com/aiarcade/aiarcade/internal/types"
)

// MockDashboardRepo is a mock implementation of the DashboardRepo interface
type MockDashboardRepo struct {
	mock.Mock
}

func (m *MockDashboardRepo) GetStats(ctx context.Context, userID uuid.UUID) (*Stats, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Stats), args.Error(1)
}

func (m *MockDashboardRepo) ListRecentPosts(ctx context.Context, userID uuid.UUID, limit int) ([]blog.Post, error) {
	args := m.Called(ctx, userID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]blog.Post), args.Error(1)
}

func (m *MockDashboardRepo) ListFavoriteTools(ctx context.Context, userID uuid.UUID, limit int) ([]tools.Tool, error) {
	args := m.Called(ctx, userID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]tools.Tool), args.Error(1)
}

// MockProfileProvider is a mock implementation of the ProfileProvider interface
type MockProfileProvider struct {
	mock.Mock
}

func (m *MockProfileProvider) GetUserProfile(ctx context.Context, userID uuid.UUID) (*types.UserProfile, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.UserProfile), args.Error(1)
}

func TestGetSummary(t *testing.T) {
	logger := slog.Default()

	t.Run("AssemblesProfileStatsAndActivity", func(t *testing.T) {
		mockRepo := new(MockDashboardRepo)
		mockProfiles := new(MockProfileProvider)
		service := NewDashboardService(mockRepo, mockProfiles, logger)
		ctx := context.Background()
		userID := uuid.New()

		profile := &types.UserProfile{ID: userID, Email: "test@example.com", ArcadeCoins: 120}
		mockProfiles.On("GetUserProfile", mock.Anything, userID).Return(profile, nil).Once()
		mockRepo.On("GetStats", mock.Anything, userID).
			Return(&Stats{PostCount: 3, CommentCount: 7, FavoriteCount: 2, ArcadeCoins: 120}, nil).Once()
		mockRepo.On("ListRecentPosts", mock.Anything, userID, recentPostLimit).
			Return([]blog.Post{{ID: uuid.New(), Title: "A post"}}, nil).Once()
		mockRepo.On("ListFavoriteTools", mock.Anything, userID, favoriteToolsCap).
			Return([]tools.Tool{{ID: uuid.New(), Name: "Claude"}}, nil).Once()

		summary, err := service.GetSummary(ctx, userID)

		require.NoError(t, err)
		assert.Equal(t, profile, summary.Profile)
		assert.Equal(t, int64(3), summary.Stats.PostCount)
		assert.Len(t, summary.RecentPosts, 1)
		require.Len(t, summary.FavoriteTools, 1)
		// Tools without a logo pick up the letter tile on the way out.
		assert.NotNil(t, summary.FavoriteTools[0].FallbackIcon)
		mockRepo.AssertExpectations(t)
	})

	t.Run("SecondCallServedFromCache", func(t *testing.T) {
		mockRepo := new(MockDashboardRepo)
		mockProfiles := new(MockProfileProvider)
		service := NewDashboardService(mockRepo, mockProfiles, logger)
		ctx := context.Background()
		userID := uuid.New()

		mockProfiles.On("GetUserProfile", mock.Anything, userID).
			Return(&types.UserProfile{ID: userID}, nil).Once()
		mockRepo.On("GetStats", mock.Anything, userID).Return(&Stats{}, nil).Once()
		mockRepo.On("ListRecentPosts", mock.Anything, userID, recentPostLimit).Return([]blog.Post{}, nil).Once()
		mockRepo.On("ListFavoriteTools", mock.Anything, userID, favoriteToolsCap).Return([]tools.Tool{}, nil).Once()

		first, err := service.GetSummary(ctx, userID)
		require.NoError(t, err)
		second, err := service.GetSummary(ctx, userID)
		require.NoError(t, err)

		assert.Same(t, first, second)
		mockRepo.AssertNumberOfCalls(t, "GetStats", 1)
	})

	t.Run("InvalidateForcesRebuild", func(t *testing.T) {
		mockRepo := new(MockDashboardRepo)
		mockProfiles := new(MockProfileProvider)
		service := NewDashboardService(mockRepo, mockProfiles, logger)
		ctx := context.Background()
		userID := uuid.New()

		mockProfiles.On("GetUserProfile", mock.Anything, userID).
			Return(&types.UserProfile{ID: userID}, nil).Twice()
		mockRepo.On("GetStats", mock.Anything, userID).Return(&Stats{}, nil).Twice()
		mockRepo.On("ListRecentPosts", mock.Anything, userID, recentPostLimit).Return([]blog.Post{}, nil).Twice()
		mockRepo.On("ListFavoriteTools", mock.Anything, userID, favoriteToolsCap).Return([]tools.Tool{}, nil).Twice()

		_, err := service.GetSummary(ctx, userID)
		require.NoError(t, err)

		service.Invalidate(userID)

		_, err = service.GetSummary(ctx, userID)
		require.NoError(t, err)
		mockRepo.AssertExpectations(t)
	})

	t.Run("UnknownUser", func(t *testing.T) {
		mockRepo := new(MockDashboardRepo)
		mockProfiles := new(MockProfileProvider)
		service := NewDashboardService(mockRepo, mockProfiles, logger)
		ctx := context.Background()
		userID := uuid.New()

		mockProfiles.On("GetUserProfile", mock.Anything, userID).Return(nil, types.ErrNotFound).Once()

		_, err := service.GetSummary(ctx, userID)

		assert.ErrorIs(t, err, types.ErrNotFound)
		mockRepo.AssertNotCalled(t, "GetStats")
	})
}
