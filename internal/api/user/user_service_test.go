package user

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/aiarcade/aiarcade/config"
	"github.com/aiarcade/aiarcade/internal/types"
)

// MockUserRepo is a mock implementation of the UserRepo interface
type MockUserRepo struct {
	mock.Mock
}

func (m *MockUserRepo) GetProfileByID(ctx context.Context, userID uuid.UUID) (*types.UserProfile, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.UserProfile), args.Error(1)
}

func (m *MockUserRepo) GetUsernameUpdatedAt(ctx context.Context, userID uuid.UUID) (*time.Time, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*time.Time), args.Error(1)
}

func (m *MockUserRepo) UpdateProfile(ctx context.Context, userID uuid.UUID, params types.UpdateProfileParams, usernameChanged bool) (*types.UserProfile, error) {
	args := m.Called(ctx, userID, params, usernameChanged)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.UserProfile), args.Error(1)
}

func cooldownConfig() *config.Config {
	return &config.Config{
		Auth: config.AuthConfig{
			UsernameCooldown: 14 * 24 * time.Hour,
		},
	}
}

func strPtr(s string) *string { return &s }

func TestUpdateProfile(t *testing.T) {
	logger := slog.Default()

	t.Run("DisplayNameOnly skips the cooldown checks", func(t *testing.T) {
		mockRepo := new(MockUserRepo)
		service := NewUserService(mockRepo, cooldownConfig(), logger)
		userID := uuid.New()

		params := types.UpdateProfileParams{DisplayName: strPtr("New Name")}
		mockRepo.On("UpdateProfile", mock.Anything, userID, params, false).
			Return(&types.UserProfile{ID: userID, DisplayName: strPtr("New Name")}, nil).Once()

		profile, err := service.UpdateProfile(context.Background(), userID, params)

		require.NoError(t, err)
		assert.Equal(t, "New Name", *profile.DisplayName)
		mockRepo.AssertNotCalled(t, "GetUsernameUpdatedAt")
	})

	t.Run("UsernameChange allowed after the window", func(t *testing.T) {
		mockRepo := new(MockUserRepo)
		service := NewUserService(mockRepo, cooldownConfig(), logger)
		userID := uuid.New()

		lastChange := time.Now().Add(-15 * 24 * time.Hour)
		mockRepo.On("GetProfileByID", mock.Anything, userID).
			Return(&types.UserProfile{ID: userID, Username: "old_name"}, nil).Once()
		mockRepo.On("GetUsernameUpdatedAt", mock.Anything, userID).Return(&lastChange, nil).Once()
		mockRepo.On("UpdateProfile", mock.Anything, userID,
			types.UpdateProfileParams{Username: strPtr("new_name")}, true).
			Return(&types.UserProfile{ID: userID, Username: "new_name"}, nil).Once()

		profile, err := service.UpdateProfile(context.Background(), userID,
			types.UpdateProfileParams{Username: strPtr("new_name")})

		require.NoError(t, err)
		assert.Equal(t, "new_name", profile.Username)
		mockRepo.AssertExpectations(t)
	})

	t.Run("UsernameChange rejected inside the window", func(t *testing.T) {
		mockRepo := new(MockUserRepo)
		service := NewUserService(mockRepo, cooldownConfig(), logger)
		userID := uuid.New()

		lastChange := time.Now().Add(-24 * time.Hour)
		mockRepo.On("GetProfileByID", mock.Anything, userID).
			Return(&types.UserProfile{ID: userID, Username: "old_name"}, nil).Once()
		mockRepo.On("GetUsernameUpdatedAt", mock.Anything, userID).Return(&lastChange, nil).Once()

		_, err := service.UpdateProfile(context.Background(), userID,
			types.UpdateProfileParams{Username: strPtr("new_name")})

		assert.ErrorIs(t, err, types.ErrUsernameCooldown)
		mockRepo.AssertNotCalled(t, "UpdateProfile")
	})

	t.Run("SameUsername is a no-op for the cooldown", func(t *testing.T) {
		mockRepo := new(MockUserRepo)
		service := NewUserService(mockRepo, cooldownConfig(), logger)
		userID := uuid.New()

		mockRepo.On("GetProfileByID", mock.Anything, userID).
			Return(&types.UserProfile{ID: userID, Username: "same_name"}, nil).Once()
		mockRepo.On("UpdateProfile", mock.Anything, userID,
			types.UpdateProfileParams{Username: strPtr("same_name")}, false).
			Return(&types.UserProfile{ID: userID, Username: "same_name"}, nil).Once()

		_, err := service.UpdateProfile(context.Background(), userID,
			types.UpdateProfileParams{Username: strPtr("same_name")})

		require.NoError(t, err)
		mockRepo.AssertNotCalled(t, "GetUsernameUpdatedAt")
	})

	t.Run("FirstEverChange has no stamp to check", func(t *testing.T) {
		mockRepo := new(MockUserRepo)
		service := NewUserService(mockRepo, cooldownConfig(), logger)
		userID := uuid.New()

		mockRepo.On("GetProfileByID", mock.Anything, userID).
			Return(&types.UserProfile{ID: userID, Username: "old_name"}, nil).Once()
		mockRepo.On("GetUsernameUpdatedAt", mock.Anything, userID).Return(nil, nil).Once()
		mockRepo.On("UpdateProfile", mock.Anything, userID,
			types.UpdateProfileParams{Username: strPtr("new_name")}, true).
			Return(&types.UserProfile{ID: userID, Username: "new_name"}, nil).Once()

		_, err := service.UpdateProfile(context.Background(), userID,
			types.UpdateProfileParams{Username: strPtr("new_name")})

		require.NoError(t, err)
		mockRepo.AssertExpectations(t)
	})

	t.Run("BadUsername", func(t *testing.T) {
		mockRepo := new(MockUserRepo)
		service := NewUserService(mockRepo, cooldownConfig(), logger)

		_, err := service.UpdateProfile(context.Background(), uuid.New(),
			types.UpdateProfileParams{Username: strPtr("no spaces")})

		assert.ErrorIs(t, err, types.ErrValidation)
		mockRepo.AssertNotCalled(t, "GetProfileByID")
	})
}
