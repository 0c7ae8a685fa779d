package auth

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/FACorreiaa/go-tour-bookings/config"
	"github.com/FACorreiaa/go-tour-bookings/internal/api"
	"github.com/FACorreiaa/go-tour-bookings/internal/mail"
	"github.com/FACorreiaa/go-tour-bookings/internal/types"
)

type mockRepository struct {
	mock.Mock
}

func (m *mockRepository) CreateUser(ctx context.Context, name, email, passwordHash string) (*types.User, error) {
	args := m.Called(ctx, name, email, passwordHash)
	if u := args.Get(0); u != nil {
		return u.(*types.User), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockRepository) GetUserByEmail(ctx context.Context, email string) (*types.User, error) {
	args := m.Called(ctx, email)
	if u := args.Get(0); u != nil {
		return u.(*types.User), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockRepository) GetUserByID(ctx context.Context, id uuid.UUID) (*types.User, error) {
	args := m.Called(ctx, id)
	if u := args.Get(0); u != nil {
		return u.(*types.User), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockRepository) UpdatePassword(ctx context.Context, id uuid.UUID, passwordHash string) error {
	return m.Called(ctx, id, passwordHash).Error(0)
}

func (m *mockRepository) SetPasswordResetToken(ctx context.Context, email, tokenHash string, expires time.Time) (*types.User, error) {
	args := m.Called(ctx, email, tokenHash, expires)
	if u := args.Get(0); u != nil {
		return u.(*types.User), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockRepository) ClearPasswordResetToken(ctx context.Context, id uuid.UUID) error {
	return m.Called(ctx, id).Error(0)
}

func (m *mockRepository) GetUserByResetToken(ctx context.Context, tokenHash string) (*types.User, error) {
	args := m.Called(ctx, tokenHash)
	if u := args.Get(0); u != nil {
		return u.(*types.User), args.Error(1)
	}
	return nil, args.Error(1)
}

func testJWTConfig() config.JWTConfig {
	return config.JWTConfig{
		SecretKey:      "test-secret-key-not-for-production",
		Issuer:         "go-tour-bookings",
		Audience:       "go-tour-bookings",
		AccessTokenTTL: time.Hour,
		CookieName:     "jwt",
	}
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testUser(t *testing.T, password string) *types.User {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	return &types.User{
		ID:           uuid.New(),
		Name:         "Ana",
		Email:        "ana@example.com",
		Role:         types.RoleUser,
		PasswordHash: string(hash),
		Active:       true,
	}
}

func TestLogin(t *testing.T) {
	ctx := context.Background()
	user := testUser(t, "pass1234")

	t.Run("success", func(t *testing.T) {
		repo := new(mockRepository)
		repo.On("GetUserByEmail", ctx, user.Email).Return(user, nil)
		svc := NewService(repo, mail.NewNoop(testLogger()), testJWTConfig(), testLogger())

		payload, err := svc.Login(ctx, user.Email, "pass1234")
		require.NoError(t, err)
		assert.NotEmpty(t, payload.Token)
		assert.Equal(t, user.ID, payload.User.ID)
	})

	t.Run("wrong password", func(t *testing.T) {
		repo := new(mockRepository)
		repo.On("GetUserByEmail", ctx, user.Email).Return(user, nil)
		svc := NewService(repo, mail.NewNoop(testLogger()), testJWTConfig(), testLogger())

		_, err := svc.Login(ctx, user.Email, "wrong")
		var apiErr *api.Error
		require.ErrorAs(t, err, &apiErr)
		assert.Equal(t, 401, apiErr.Code)
		assert.Equal(t, "incorrect email or password", apiErr.Message)
	})

	t.Run("unknown email gets same message", func(t *testing.T) {
		repo := new(mockRepository)
		repo.On("GetUserByEmail", ctx, "ghost@example.com").Return(nil, api.ErrNotFound)
		svc := NewService(repo, mail.NewNoop(testLogger()), testJWTConfig(), testLogger())

		_, err := svc.Login(ctx, "ghost@example.com", "pass1234")
		var apiErr *api.Error
		require.ErrorAs(t, err, &apiErr)
		assert.Equal(t, "incorrect email or password", apiErr.Message)
	})
}

func TestVerifyToken(t *testing.T) {
	ctx := context.Background()
	user := testUser(t, "pass1234")

	mint := func(t *testing.T, svc *ServiceImpl) string {
		t.Helper()
		token, err := svc.mintToken(user)
		require.NoError(t, err)
		return token
	}

	t.Run("valid token resolves principal", func(t *testing.T) {
		repo := new(mockRepository)
		repo.On("GetUserByID", ctx, user.ID).Return(user, nil)
		svc := NewService(repo, mail.NewNoop(testLogger()), testJWTConfig(), testLogger())

		got, err := svc.VerifyToken(ctx, mint(t, svc))
		require.NoError(t, err)
		assert.Equal(t, user.ID, got.ID)
	})

	t.Run("rejected when user no longer exists", func(t *testing.T) {
		repo := new(mockRepository)
		repo.On("GetUserByID", ctx, user.ID).Return(nil, api.ErrNotFound)
		svc := NewService(repo, mail.NewNoop(testLogger()), testJWTConfig(), testLogger())

		_, err := svc.VerifyToken(ctx, mint(t, svc))
		var apiErr *api.Error
		require.ErrorAs(t, err, &apiErr)
		assert.Equal(t, 401, apiErr.Code)
	})

	t.Run("rejected after password change", func(t *testing.T) {
		svc := NewService(new(mockRepository), mail.NewNoop(testLogger()), testJWTConfig(), testLogger())
		token := mint(t, svc)

		changed := *user
		changedAt := time.Now().Add(time.Hour)
		changed.PasswordChangedAt = &changedAt

		repo := new(mockRepository)
		repo.On("GetUserByID", ctx, user.ID).Return(&changed, nil)
		svc = NewService(repo, mail.NewNoop(testLogger()), testJWTConfig(), testLogger())

		_, err := svc.VerifyToken(ctx, token)
		var apiErr *api.Error
		require.ErrorAs(t, err, &apiErr)
		assert.Equal(t, 401, apiErr.Code)
		assert.Contains(t, apiErr.Message, "password was changed")
	})

	t.Run("token minted right after a password change still verifies", func(t *testing.T) {
		// The change stamp keeps sub-second precision while iat carries whole
		// seconds, so a token issued in the same second must not be rejected.
		changed := *user
		changedAt := time.Now()
		changed.PasswordChangedAt = &changedAt

		repo := new(mockRepository)
		repo.On("GetUserByID", ctx, user.ID).Return(&changed, nil)
		svc := NewService(repo, mail.NewNoop(testLogger()), testJWTConfig(), testLogger())

		token, err := svc.mintToken(&changed)
		require.NoError(t, err)

		got, err := svc.VerifyToken(ctx, token)
		require.NoError(t, err)
		assert.Equal(t, user.ID, got.ID)
	})

	t.Run("rejected with wrong signature", func(t *testing.T) {
		svc := NewService(new(mockRepository), mail.NewNoop(testLogger()), testJWTConfig(), testLogger())
		token := mint(t, svc)

		otherCfg := testJWTConfig()
		otherCfg.SecretKey = "a-different-secret"
		other := NewService(new(mockRepository), mail.NewNoop(testLogger()), otherCfg, testLogger())

		_, err := other.VerifyToken(ctx, token)
		assert.Error(t, err)
	})

	t.Run("garbage token", func(t *testing.T) {
		svc := NewService(new(mockRepository), mail.NewNoop(testLogger()), testJWTConfig(), testLogger())
		_, err := svc.VerifyToken(ctx, "not.a.token")
		assert.Error(t, err)
	})
}

func TestSignupValidation(t *testing.T) {
	ctx := context.Background()
	svc := NewService(new(mockRepository), mail.NewNoop(testLogger()), testJWTConfig(), testLogger())

	t.Run("short password", func(t *testing.T) {
		_, err := svc.Signup(ctx, types.SignupRequest{
			Name: "Ana", Email: "ana@example.com",
			Password: "short", PasswordConfirm: "short",
		})
		var apiErr *api.Error
		require.ErrorAs(t, err, &apiErr)
		assert.Equal(t, 400, apiErr.Code)
	})

	t.Run("mismatched confirmation", func(t *testing.T) {
		_, err := svc.Signup(ctx, types.SignupRequest{
			Name: "Ana", Email: "ana@example.com",
			Password: "pass1234", PasswordConfirm: "pass1235",
		})
		var apiErr *api.Error
		require.ErrorAs(t, err, &apiErr)
		assert.Equal(t, "passwords do not match", apiErr.Message)
	})
}

func TestResetPassword(t *testing.T) {
	ctx := context.Background()

	t.Run("invalid token", func(t *testing.T) {
		repo := new(mockRepository)
		repo.On("GetUserByResetToken", ctx, mock.Anything).Return(nil, api.ErrNotFound)
		svc := NewService(repo, mail.NewNoop(testLogger()), testJWTConfig(), testLogger())

		_, err := svc.ResetPassword(ctx, "deadbeef", "pass1234", "pass1234")
		var apiErr *api.Error
		require.ErrorAs(t, err, &apiErr)
		assert.Equal(t, "token is invalid or has expired", apiErr.Message)
	})

	t.Run("success issues fresh token", func(t *testing.T) {
		user := testUser(t, "old-pass")
		repo := new(mockRepository)
		repo.On("GetUserByResetToken", ctx, hashResetToken("plain-token")).Return(user, nil)
		repo.On("UpdatePassword", ctx, user.ID, mock.Anything).Return(nil)
		svc := NewService(repo, mail.NewNoop(testLogger()), testJWTConfig(), testLogger())

		payload, err := svc.ResetPassword(ctx, "plain-token", "new-pass-123", "new-pass-123")
		require.NoError(t, err)
		assert.NotEmpty(t, payload.Token)
		repo.AssertExpectations(t)
	})
}
