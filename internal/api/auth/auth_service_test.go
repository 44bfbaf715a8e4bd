package auth

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/markbates/goth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/aiarcade/aiarcade/config"
	"github.com/aiarcade/aiarcade/internal/types"
)

// MockAuthRepo is a mock implementation of the AuthRepo interface
type MockAuthRepo struct {
	mock.Mock
}

func (m *MockAuthRepo) CreateUser(ctx context.Context, params CreateUserParams) (*types.UserAuth, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.UserAuth), args.Error(1)
}

func (m *MockAuthRepo) GetUserByEmail(ctx context.Context, email string) (*types.UserAuth, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.UserAuth), args.Error(1)
}

func (m *MockAuthRepo) GetUserByID(ctx context.Context, userID uuid.UUID) (*types.UserAuth, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.UserAuth), args.Error(1)
}

func (m *MockAuthRepo) UpsertPendingCode(ctx context.Context, userID uuid.UUID, purpose CodePurpose, code string, expiresAt time.Time) error {
	args := m.Called(ctx, userID, purpose, code, expiresAt)
	return args.Error(0)
}

func (m *MockAuthRepo) GetPendingCode(ctx context.Context, userID uuid.UUID, purpose CodePurpose) (*PendingCode, error) {
	args := m.Called(ctx, userID, purpose)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*PendingCode), args.Error(1)
}

func (m *MockAuthRepo) ClearPendingCode(ctx context.Context, userID uuid.UUID, purpose CodePurpose) error {
	args := m.Called(ctx, userID, purpose)
	return args.Error(0)
}

func (m *MockAuthRepo) MarkEmailVerified(ctx context.Context, userID uuid.UUID) error {
	args := m.Called(ctx, userID)
	return args.Error(0)
}

func (m *MockAuthRepo) UpdatePassword(ctx context.Context, userID uuid.UUID, newHashedPassword string) error {
	args := m.Called(ctx, userID, newHashedPassword)
	return args.Error(0)
}

func (m *MockAuthRepo) RecordFailedLogin(ctx context.Context, userID uuid.UUID, lockUntil *time.Time) error {
	args := m.Called(ctx, userID, lockUntil)
	return args.Error(0)
}

func (m *MockAuthRepo) RecordSuccessfulLogin(ctx context.Context, userID uuid.UUID) error {
	args := m.Called(ctx, userID)
	return args.Error(0)
}

func gothUser(email, nick string) goth.User {
	return goth.User{Email: email, NickName: nick}
}

func testConfig() *config.Config {
	return &config.Config{
		JWT: config.JWTConfig{
			SecretKey:      "test-access-secret",
			AccessTokenTTL: 15 * time.Minute,
			Issuer:         "test-issuer",
			Audience:       "test-audience",
		},
		Auth: config.AuthConfig{
			CodeLength:      6,
			CodeTTL:         10 * time.Minute,
			SessionTTL:      7 * 24 * time.Hour,
			RefreshDebounce: 5 * time.Second,
			MaxFailedLogins: 5,
			LockDuration:    15 * time.Minute,
			MinPasswordBits: 50,
		},
	}
}

func testUser(email string, verified bool) *types.UserAuth {
	hashed, _ := bcrypt.GenerateFromPassword([]byte("Sup3r-secret-pw!"), bcrypt.MinCost)
	id := uuid.New()
	u := &types.UserAuth{
		ID:              id,
		Email:           email,
		Username:        "testplayer",
		PasswordHash:    string(hashed),
		IsEmailVerified: verified,
	}
	u.Profile = types.UserProfile{
		ID:              id,
		Email:           email,
		Username:        "testplayer",
		IsEmailVerified: verified,
	}
	return u
}

func TestRegister(t *testing.T) {
	logger := slog.Default()
	cfg := testConfig()

	t.Run("Success issues a verification code", func(t *testing.T) {
		mockRepo := new(MockAuthRepo)
		service := NewAuthService(mockRepo, cfg, logger)
		ctx := context.Background()

		user := testUser("new@example.com", false)
		mockRepo.On("CreateUser", mock.Anything, mock.AnythingOfType("auth.CreateUserParams")).Return(user, nil).Once()
		mockRepo.On("UpsertPendingCode", mock.Anything, user.ID, PurposeEmailVerification,
			mock.AnythingOfType("string"), mock.AnythingOfType("time.Time")).Return(nil).Once()

		result, err := service.Register(ctx, RegisterParams{
			Email:    "New@Example.com",
			Username: "testplayer",
			Password: "Sup3r-secret-pw!",
		})

		require.NoError(t, err)
		assert.True(t, result.RequiresVerification)
		assert.Len(t, result.VerificationCode, 6)
		assert.False(t, result.User.IsEmailVerified)
		mockRepo.AssertExpectations(t)

		// The email is normalized before it reaches the store.
		params := mockRepo.Calls[0].Arguments.Get(1).(CreateUserParams)
		assert.Equal(t, "new@example.com", params.Email)
	})

	t.Run("WeakPassword reports every violation", func(t *testing.T) {
		mockRepo := new(MockAuthRepo)
		service := NewAuthService(mockRepo, cfg, logger)

		_, err := service.Register(context.Background(), RegisterParams{
			Email:    "new@example.com",
			Username: "testplayer",
			Password: "abc",
		})

		var policyErr *PasswordPolicyError
		require.ErrorAs(t, err, &policyErr)
		assert.ErrorIs(t, err, types.ErrValidation)
		assert.GreaterOrEqual(t, len(policyErr.Violations), 2)
		mockRepo.AssertNotCalled(t, "CreateUser")
	})

	t.Run("InvalidUsername", func(t *testing.T) {
		mockRepo := new(MockAuthRepo)
		service := NewAuthService(mockRepo, cfg, logger)

		_, err := service.Register(context.Background(), RegisterParams{
			Email:    "new@example.com",
			Username: "no spaces allowed",
			Password: "Sup3r-secret-pw!",
		})

		assert.ErrorIs(t, err, types.ErrValidation)
	})

	t.Run("DuplicateEmail surfaces conflict", func(t *testing.T) {
		mockRepo := new(MockAuthRepo)
		service := NewAuthService(mockRepo, cfg, logger)
		ctx := context.Background()

		mockRepo.On("CreateUser", mock.Anything, mock.AnythingOfType("auth.CreateUserParams")).
			Return(nil, types.ErrConflict).Once()

		_, err := service.Register(ctx, RegisterParams{
			Email:    "taken@example.com",
			Username: "testplayer",
			Password: "Sup3r-secret-pw!",
		})

		assert.ErrorIs(t, err, types.ErrConflict)
		mockRepo.AssertExpectations(t)
	})
}

func TestLogin(t *testing.T) {
	logger := slog.Default()
	cfg := testConfig()

	t.Run("Success", func(t *testing.T) {
		mockRepo := new(MockAuthRepo)
		service := NewAuthService(mockRepo, cfg, logger)
		ctx := context.Background()

		user := testUser("test@example.com", true)
		mockRepo.On("GetUserByEmail", mock.Anything, "test@example.com").Return(user, nil).Once()
		mockRepo.On("RecordSuccessfulLogin", mock.Anything, user.ID).Return(nil).Once()

		result, err := service.Login(ctx, "test@example.com", "Sup3r-secret-pw!")

		require.NoError(t, err)
		assert.NotEmpty(t, result.AccessToken)
		assert.False(t, result.RequiresVerification)
		assert.Equal(t, user.Email, result.User.Email)
		mockRepo.AssertExpectations(t)
	})

	t.Run("UnknownEmail looks like a bad password", func(t *testing.T) {
		mockRepo := new(MockAuthRepo)
		service := NewAuthService(mockRepo, cfg, logger)
		ctx := context.Background()

		mockRepo.On("GetUserByEmail", mock.Anything, "ghost@example.com").Return(nil, types.ErrNotFound).Once()

		_, err := service.Login(ctx, "ghost@example.com", "whatever-pw")
		assert.ErrorIs(t, err, types.ErrUnauthenticated)
	})

	t.Run("WrongPassword records the failure", func(t *testing.T) {
		mockRepo := new(MockAuthRepo)
		service := NewAuthService(mockRepo, cfg, logger)
		ctx := context.Background()

		user := testUser("test@example.com", true)
		mockRepo.On("GetUserByEmail", mock.Anything, "test@example.com").Return(user, nil).Once()
		mockRepo.On("RecordFailedLogin", mock.Anything, user.ID, (*time.Time)(nil)).Return(nil).Once()

		_, err := service.Login(ctx, "test@example.com", "wrong-password")

		assert.ErrorIs(t, err, types.ErrUnauthenticated)
		mockRepo.AssertExpectations(t)
	})

	t.Run("FifthFailure locks the account", func(t *testing.T) {
		mockRepo := new(MockAuthRepo)
		service := NewAuthService(mockRepo, cfg, logger)
		ctx := context.Background()

		user := testUser("test@example.com", true)
		user.FailedLoginAttempts = 4
		mockRepo.On("RecordFailedLogin", mock.Anything, user.ID, mock.MatchedBy(func(lockUntil *time.Time) bool {
			return lockUntil != nil && lockUntil.After(time.Now())
		})).Return(nil).Once()
		mockRepo.On("GetUserByEmail", mock.Anything, "test@example.com").Return(user, nil).Once()

		_, err := service.Login(ctx, "test@example.com", "wrong-password")

		assert.ErrorIs(t, err, types.ErrUnauthenticated)
		mockRepo.AssertExpectations(t)
	})

	t.Run("LockedAccount rejects even the right password", func(t *testing.T) {
		mockRepo := new(MockAuthRepo)
		service := NewAuthService(mockRepo, cfg, logger)
		ctx := context.Background()

		user := testUser("test@example.com", true)
		until := time.Now().Add(10 * time.Minute)
		user.AccountLockUntil = &until
		mockRepo.On("GetUserByEmail", mock.Anything, "test@example.com").Return(user, nil).Once()

		_, err := service.Login(ctx, "test@example.com", "Sup3r-secret-pw!")

		assert.ErrorIs(t, err, types.ErrAccountLocked)
		mockRepo.AssertNotCalled(t, "RecordSuccessfulLogin")
	})

	t.Run("Unverified re-issues a code instead of logging in", func(t *testing.T) {
		mockRepo := new(MockAuthRepo)
		service := NewAuthService(mockRepo, cfg, logger)
		ctx := context.Background()

		user := testUser("test@example.com", false)
		mockRepo.On("GetUserByEmail", mock.Anything, "test@example.com").Return(user, nil).Once()
		mockRepo.On("UpsertPendingCode", mock.Anything, user.ID, PurposeEmailVerification,
			mock.AnythingOfType("string"), mock.AnythingOfType("time.Time")).Return(nil).Once()

		result, err := service.Login(ctx, "test@example.com", "Sup3r-secret-pw!")

		require.NoError(t, err)
		assert.True(t, result.RequiresVerification)
		assert.Empty(t, result.AccessToken)
		assert.Len(t, result.VerificationCode, 6)
		mockRepo.AssertNotCalled(t, "RecordSuccessfulLogin")
		mockRepo.AssertExpectations(t)
	})
}

func TestVerifyEmailWithCode(t *testing.T) {
	logger := slog.Default()
	cfg := testConfig()

	pendingFor := func(userID uuid.UUID, code string, expiresAt time.Time) *PendingCode {
		return &PendingCode{
			UserID:    userID,
			Purpose:   PurposeEmailVerification,
			Code:      code,
			ExpiresAt: expiresAt,
			CreatedAt: time.Now(),
		}
	}

	t.Run("Success flips the flag and clears the code", func(t *testing.T) {
		mockRepo := new(MockAuthRepo)
		service := NewAuthService(mockRepo, cfg, logger)
		ctx := context.Background()

		user := testUser("test@example.com", false)
		mockRepo.On("GetUserByEmail", mock.Anything, "test@example.com").Return(user, nil).Once()
		mockRepo.On("GetPendingCode", mock.Anything, user.ID, PurposeEmailVerification).
			Return(pendingFor(user.ID, "123456", time.Now().Add(5*time.Minute)), nil).Once()
		mockRepo.On("MarkEmailVerified", mock.Anything, user.ID).Return(nil).Once()
		mockRepo.On("ClearPendingCode", mock.Anything, user.ID, PurposeEmailVerification).Return(nil).Once()

		profile, err := service.VerifyEmailWithCode(ctx, "test@example.com", "123456")

		require.NoError(t, err)
		assert.True(t, profile.IsEmailVerified)
		mockRepo.AssertExpectations(t)
	})

	t.Run("WrongCode", func(t *testing.T) {
		mockRepo := new(MockAuthRepo)
		service := NewAuthService(mockRepo, cfg, logger)
		ctx := context.Background()

		user := testUser("test@example.com", false)
		mockRepo.On("GetUserByEmail", mock.Anything, "test@example.com").Return(user, nil).Once()
		mockRepo.On("GetPendingCode", mock.Anything, user.ID, PurposeEmailVerification).
			Return(pendingFor(user.ID, "123456", time.Now().Add(5*time.Minute)), nil).Once()

		_, err := service.VerifyEmailWithCode(ctx, "test@example.com", "654321")

		assert.ErrorIs(t, err, types.ErrCodeMismatch)
		mockRepo.AssertNotCalled(t, "MarkEmailVerified")
	})

	t.Run("ExpiredCode wins over a mismatch check", func(t *testing.T) {
		mockRepo := new(MockAuthRepo)
		service := NewAuthService(mockRepo, cfg, logger)
		ctx := context.Background()

		user := testUser("test@example.com", false)
		mockRepo.On("GetUserByEmail", mock.Anything, "test@example.com").Return(user, nil).Once()
		mockRepo.On("GetPendingCode", mock.Anything, user.ID, PurposeEmailVerification).
			Return(pendingFor(user.ID, "123456", time.Now().Add(-time.Minute)), nil).Once()

		_, err := service.VerifyEmailWithCode(ctx, "test@example.com", "123456")

		assert.ErrorIs(t, err, types.ErrCodeExpired)
	})

	t.Run("NoPendingCode reads as a mismatch", func(t *testing.T) {
		mockRepo := new(MockAuthRepo)
		service := NewAuthService(mockRepo, cfg, logger)
		ctx := context.Background()

		user := testUser("test@example.com", false)
		mockRepo.On("GetUserByEmail", mock.Anything, "test@example.com").Return(user, nil).Once()
		mockRepo.On("GetPendingCode", mock.Anything, user.ID, PurposeEmailVerification).
			Return(nil, types.ErrNotFound).Once()

		_, err := service.VerifyEmailWithCode(ctx, "test@example.com", "123456")

		assert.ErrorIs(t, err, types.ErrCodeMismatch)
	})

	t.Run("AlreadyVerified", func(t *testing.T) {
		mockRepo := new(MockAuthRepo)
		service := NewAuthService(mockRepo, cfg, logger)
		ctx := context.Background()

		user := testUser("test@example.com", true)
		mockRepo.On("GetUserByEmail", mock.Anything, "test@example.com").Return(user, nil).Once()

		_, err := service.VerifyEmailWithCode(ctx, "test@example.com", "123456")

		assert.ErrorIs(t, err, types.ErrAlreadyVerified)
		mockRepo.AssertNotCalled(t, "GetPendingCode")
	})
}

func TestResendVerificationCode(t *testing.T) {
	logger := slog.Default()
	cfg := testConfig()

	t.Run("Success supersedes the old code", func(t *testing.T) {
		mockRepo := new(MockAuthRepo)
		service := NewAuthService(mockRepo, cfg, logger)
		ctx := context.Background()

		user := testUser("test@example.com", false)
		mockRepo.On("GetUserByEmail", mock.Anything, "test@example.com").Return(user, nil).Once()
		mockRepo.On("UpsertPendingCode", mock.Anything, user.ID, PurposeEmailVerification,
			mock.AnythingOfType("string"), mock.AnythingOfType("time.Time")).Return(nil).Once()

		code, username, err := service.ResendVerificationCode(ctx, "test@example.com")

		require.NoError(t, err)
		assert.Len(t, code, 6)
		assert.Equal(t, "testplayer", username)
		mockRepo.AssertExpectations(t)
	})

	t.Run("AlreadyVerified", func(t *testing.T) {
		mockRepo := new(MockAuthRepo)
		service := NewAuthService(mockRepo, cfg, logger)
		ctx := context.Background()

		user := testUser("test@example.com", true)
		mockRepo.On("GetUserByEmail", mock.Anything, "test@example.com").Return(user, nil).Once()

		_, _, err := service.ResendVerificationCode(ctx, "test@example.com")

		assert.ErrorIs(t, err, types.ErrAlreadyVerified)
		mockRepo.AssertNotCalled(t, "UpsertPendingCode")
	})
}

func TestResetPassword(t *testing.T) {
	logger := slog.Default()
	cfg := testConfig()

	t.Run("RoundTrip replaces the credential", func(t *testing.T) {
		mockRepo := new(MockAuthRepo)
		service := NewAuthService(mockRepo, cfg, logger)
		ctx := context.Background()

		user := testUser("test@example.com", true)
		pending := &PendingCode{
			UserID:    user.ID,
			Purpose:   PurposePasswordReset,
			Code:      "987654",
			ExpiresAt: time.Now().Add(5 * time.Minute),
		}

		var newHash string
		mockRepo.On("GetUserByEmail", mock.Anything, "test@example.com").Return(user, nil).Once()
		mockRepo.On("GetPendingCode", mock.Anything, user.ID, PurposePasswordReset).Return(pending, nil).Once()
		mockRepo.On("UpdatePassword", mock.Anything, user.ID, mock.AnythingOfType("string")).
			Run(func(args mock.Arguments) { newHash = args.String(2) }).Return(nil).Once()
		mockRepo.On("ClearPendingCode", mock.Anything, user.ID, PurposePasswordReset).Return(nil).Once()

		err := service.ResetPassword(ctx, "test@example.com", "987654", "A-new-Secret-42!")

		require.NoError(t, err)
		assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(newHash), []byte("A-new-Secret-42!")))
		mockRepo.AssertExpectations(t)
	})

	t.Run("CodeValidatedBeforePolicy", func(t *testing.T) {
		mockRepo := new(MockAuthRepo)
		service := NewAuthService(mockRepo, cfg, logger)
		ctx := context.Background()

		user := testUser("test@example.com", true)
		mockRepo.On("GetUserByEmail", mock.Anything, "test@example.com").Return(user, nil).Once()
		mockRepo.On("GetPendingCode", mock.Anything, user.ID, PurposePasswordReset).
			Return(nil, types.ErrNotFound).Once()

		// Weak password, but the bad code must be reported first.
		err := service.ResetPassword(ctx, "test@example.com", "000000", "abc")

		assert.ErrorIs(t, err, types.ErrCodeMismatch)
	})

	t.Run("WeakNewPassword", func(t *testing.T) {
		mockRepo := new(MockAuthRepo)
		service := NewAuthService(mockRepo, cfg, logger)
		ctx := context.Background()

		user := testUser("test@example.com", true)
		pending := &PendingCode{
			UserID:    user.ID,
			Purpose:   PurposePasswordReset,
			Code:      "987654",
			ExpiresAt: time.Now().Add(5 * time.Minute),
		}
		mockRepo.On("GetUserByEmail", mock.Anything, "test@example.com").Return(user, nil).Once()
		mockRepo.On("GetPendingCode", mock.Anything, user.ID, PurposePasswordReset).Return(pending, nil).Once()

		err := service.ResetPassword(ctx, "test@example.com", "987654", "abc")

		var policyErr *PasswordPolicyError
		assert.ErrorAs(t, err, &policyErr)
		mockRepo.AssertNotCalled(t, "UpdatePassword")
	})

	t.Run("ResetDoesNotVerifyEmail", func(t *testing.T) {
		mockRepo := new(MockAuthRepo)
		service := NewAuthService(mockRepo, cfg, logger)
		ctx := context.Background()

		user := testUser("test@example.com", false)
		pending := &PendingCode{
			UserID:    user.ID,
			Purpose:   PurposePasswordReset,
			Code:      "987654",
			ExpiresAt: time.Now().Add(5 * time.Minute),
		}
		mockRepo.On("GetUserByEmail", mock.Anything, "test@example.com").Return(user, nil).Once()
		mockRepo.On("GetPendingCode", mock.Anything, user.ID, PurposePasswordReset).Return(pending, nil).Once()
		mockRepo.On("UpdatePassword", mock.Anything, user.ID, mock.AnythingOfType("string")).Return(nil).Once()
		mockRepo.On("ClearPendingCode", mock.Anything, user.ID, PurposePasswordReset).Return(nil).Once()

		err := service.ResetPassword(ctx, "test@example.com", "987654", "A-new-Secret-42!")

		require.NoError(t, err)
		mockRepo.AssertNotCalled(t, "MarkEmailVerified")
	})
}

func TestGetOrCreateUserFromProvider(t *testing.T) {
	logger := slog.Default()
	cfg := testConfig()

	t.Run("ExistingAccount logs straight in", func(t *testing.T) {
		mockRepo := new(MockAuthRepo)
		service := NewAuthService(mockRepo, cfg, logger)
		ctx := context.Background()

		user := testUser("social@example.com", true)
		mockRepo.On("GetUserByEmail", mock.Anything, "social@example.com").Return(user, nil).Once()

		profile, err := service.GetOrCreateUserFromProvider(ctx, "github", gothUser("Social@Example.com", "socialdev"))

		require.NoError(t, err)
		assert.Equal(t, user.Email, profile.Email)
		mockRepo.AssertNotCalled(t, "CreateUser")
	})

	t.Run("FirstSight provisions a verified account", func(t *testing.T) {
		mockRepo := new(MockAuthRepo)
		service := NewAuthService(mockRepo, cfg, logger)
		ctx := context.Background()

		created := testUser("social@example.com", true)
		mockRepo.On("GetUserByEmail", mock.Anything, "social@example.com").Return(nil, types.ErrNotFound).Once()
		mockRepo.On("CreateUser", mock.Anything, mock.MatchedBy(func(params CreateUserParams) bool {
			return params.IsEmailVerified && params.Username == "socialdev"
		})).Return(created, nil).Once()

		profile, err := service.GetOrCreateUserFromProvider(ctx, "github", gothUser("social@example.com", "socialdev"))

		require.NoError(t, err)
		assert.True(t, profile.IsEmailVerified)
		mockRepo.AssertExpectations(t)
	})

	t.Run("EmptyEmail is rejected", func(t *testing.T) {
		mockRepo := new(MockAuthRepo)
		service := NewAuthService(mockRepo, cfg, logger)

		_, err := service.GetOrCreateUserFromProvider(context.Background(), "github", gothUser("", "socialdev"))

		assert.ErrorIs(t, err, types.ErrValidation)
	})
}
