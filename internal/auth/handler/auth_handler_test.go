package handler_test

import (
	"bytes"
	"encoding/json"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/promptforge/auth-service/internal/auth/domain"
	"github.com/promptforge/auth-service/internal/auth/dto"
	"github.com/promptforge/auth-service/internal/auth/handler"
	"github.com/promptforge/auth-service/internal/auth/password"
	"github.com/promptforge/auth-service/internal/auth/service"
	"github.com/promptforge/auth-service/internal/mocks"
	"github.com/promptforge/auth-service/pkg/constant"
)

func newTestApp(t *testing.T) (*fiber.App, *mocks.MockUserRepository, *service.TokenService) {
	t.Helper()

	ctrl := gomock.NewController(t)
	t.Cleanup(ctrl.Finish)

	mockRepo := mocks.NewMockUserRepository(ctrl)
	tokenService := service.NewTokenService("handler-test-secret", "15m")
	userService := service.NewUserService(mockRepo, tokenService)
	authHandler := handler.NewAuthHandler(userService, tokenService)

	app := fiber.New()
	handler.RegisterRoutes(app, authHandler)

	return app, mockRepo, tokenService
}

func TestRegister(t *testing.T) {
	app, mockRepo, _ := newTestApp(t)

	t.Run("success", func(t *testing.T) {
		input := dto.RegisterInput{Email: "test@example.com", Password: "Abcd1234"}

		mockRepo.EXPECT().GetByEmail(gomock.Any(), input.Email).Return(nil, nil)
		mockRepo.EXPECT().Create(gomock.Any(), gomock.Any()).Return(nil)
		mockRepo.EXPECT().StoreRefreshToken(gomock.Any(), gomock.Any()).Return(nil)

		body, _ := json.Marshal(input)
		req := httptest.NewRequest("POST", "/api/v1/register", bytes.NewReader(body))
		req.Header.Set("Content-Type", "application/json")

		resp, err := app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusCreated, resp.StatusCode)

		var out dto.AuthResponse
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
		assert.Equal(t, input.Email, out.User.Email)
		assert.NotEmpty(t, out.Tokens.AccessToken)
		assert.NotEmpty(t, out.Tokens.RefreshToken)
		assert.Equal(t, 900, out.Tokens.ExpiresIn)
	})

	t.Run("bad request", func(t *testing.T) {
		req := httptest.NewRequest("POST", "/api/v1/register", bytes.NewReader([]byte("")))
		req.Header.Set("Content-Type", "application/json")

		resp, err := app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	})

	t.Run("duplicate email", func(t *testing.T) {
		input := dto.RegisterInput{Email: "test@example.com", Password: "Abcd1234"}

		mockRepo.EXPECT().GetByEmail(gomock.Any(), input.Email).
			Return(&domain.User{ID: "existing", Email: input.Email}, nil)

		body, _ := json.Marshal(input)
		req := httptest.NewRequest("POST", "/api/v1/register", bytes.NewReader(body))
		req.Header.Set("Content-Type", "application/json")

		resp, err := app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusConflict, resp.StatusCode)
	})
}

func TestLogin(t *testing.T) {
	app, mockRepo, _ := newTestApp(t)

	digest, err := password.FromPlaintext("Abcd1234").Digest()
	require.NoError(t, err)

	user := &domain.User{
		ID:           "user-123",
		Email:        "test@example.com",
		PasswordHash: digest,
		Role:         constant.RoleUser,
		IsActive:     true,
	}

	t.Run("success", func(t *testing.T) {
		mockRepo.EXPECT().GetByEmail(gomock.Any(), user.Email).Return(user, nil)
		mockRepo.EXPECT().UpdateLastLogin(gomock.Any(), user.ID, gomock.Any()).Return(nil)
		mockRepo.EXPECT().StoreRefreshToken(gomock.Any(), gomock.Any()).Return(nil)

		body, _ := json.Marshal(dto.LoginInput{Email: user.Email, Password: "Abcd1234"})
		req := httptest.NewRequest("POST", "/api/v1/login", bytes.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("User-Agent", "test-agent")

		resp, err := app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	})

	t.Run("wrong password", func(t *testing.T) {
		mockRepo.EXPECT().GetByEmail(gomock.Any(), user.Email).Return(user, nil)

		body, _ := json.Marshal(dto.LoginInput{Email: user.Email, Password: "nope"})
		req := httptest.NewRequest("POST", "/api/v1/login", bytes.NewReader(body))
		req.Header.Set("Content-Type", "application/json")

		resp, err := app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
	})
}

func TestRefresh(t *testing.T) {
	app, mockRepo, _ := newTestApp(t)

	t.Run("replayed token", func(t *testing.T) {
		spent := &domain.RefreshToken{
			ID:        "rt-1",
			UserID:    "user-123",
			Token:     "spent-token",
			ExpiresAt: time.Now().Add(time.Hour),
			Revoked:   true,
		}

		mockRepo.EXPECT().GetRefreshToken(gomock.Any(), spent.Token).Return(spent, nil)
		mockRepo.EXPECT().RevokeAllByUserID(gomock.Any(), spent.UserID).Return(nil)

		body, _ := json.Marshal(dto.RefreshInput{RefreshToken: spent.Token})
		req := httptest.NewRequest("POST", "/api/v1/refresh", bytes.NewReader(body))
		req.Header.Set("Content-Type", "application/json")

		resp, err := app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
	})
}

func TestLogout(t *testing.T) {
	app, mockRepo, _ := newTestApp(t)

	// Idempotent: an unknown token still answers 200.
	mockRepo.EXPECT().GetRefreshToken(gomock.Any(), "never-issued").Return(nil, nil)

	body, _ := json.Marshal(dto.RefreshInput{RefreshToken: "never-issued"})
	req := httptest.NewRequest("POST", "/api/v1/logout", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}

func TestMe(t *testing.T) {
	app, mockRepo, tokenService := newTestApp(t)

	user := &domain.User{
		ID:       "user-123",
		Email:    "test@example.com",
		Role:     constant.RoleUser,
		IsActive: true,
	}

	t.Run("authenticated", func(t *testing.T) {
		token, err := tokenService.Generate(user.ID, user.Email, user.Role)
		require.NoError(t, err)

		mockRepo.EXPECT().GetByID(gomock.Any(), user.ID).Return(user, nil)

		req := httptest.NewRequest("GET", "/api/v1/me", nil)
		req.Header.Set("Authorization", "Bearer "+token)

		resp, err := app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusOK, resp.StatusCode)

		var out dto.UserOutput
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
		assert.Equal(t, user.Email, out.Email)
	})

	t.Run("missing token", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/api/v1/me", nil)

		resp, err := app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("deactivated user", func(t *testing.T) {
		token, err := tokenService.Generate(user.ID, user.Email, user.Role)
		require.NoError(t, err)

		inactive := *user
		inactive.IsActive = false
		mockRepo.EXPECT().GetByID(gomock.Any(), user.ID).Return(&inactive, nil)

		req := httptest.NewRequest("GET", "/api/v1/me", nil)
		req.Header.Set("Authorization", "Bearer "+token)

		resp, err := app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
	})
}

func TestSession(t *testing.T) {
	app, mockRepo, tokenService := newTestApp(t)

	user := &domain.User{
		ID:       "user-123",
		Email:    "test@example.com",
		Role:     constant.RoleUser,
		IsActive: true,
	}

	type sessionView struct {
		Authenticated bool           `json:"authenticated"`
		User          dto.UserOutput `json:"user"`
	}

	getSession := func(t *testing.T, authorization string) sessionView {
		t.Helper()

		req := httptest.NewRequest("GET", "/api/v1/session", nil)
		if authorization != "" {
			req.Header.Set("Authorization", authorization)
		}

		resp, err := app.Test(req)
		require.NoError(t, err)
		// An absent or bad token is "no identity", never an error.
		require.Equal(t, fiber.StatusOK, resp.StatusCode)

		var out sessionView
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
		return out
	}

	t.Run("no token proceeds anonymously", func(t *testing.T) {
		out := getSession(t, "")
		assert.False(t, out.Authenticated)
		assert.Empty(t, out.User.Email)
	})

	t.Run("invalid token proceeds anonymously", func(t *testing.T) {
		out := getSession(t, "Bearer not-a-token")
		assert.False(t, out.Authenticated)
		assert.Empty(t, out.User.Email)
	})

	t.Run("valid token attaches identity", func(t *testing.T) {
		token, err := tokenService.Generate(user.ID, user.Email, user.Role)
		require.NoError(t, err)

		mockRepo.EXPECT().GetByID(gomock.Any(), user.ID).Return(user, nil)

		out := getSession(t, "Bearer "+token)
		assert.True(t, out.Authenticated)
		assert.Equal(t, user.Email, out.User.Email)
	})

	t.Run("deactivated user proceeds anonymously", func(t *testing.T) {
		token, err := tokenService.Generate(user.ID, user.Email, user.Role)
		require.NoError(t, err)

		inactive := *user
		inactive.IsActive = false
		mockRepo.EXPECT().GetByID(gomock.Any(), user.ID).Return(&inactive, nil)

		out := getSession(t, "Bearer "+token)
		assert.False(t, out.Authenticated)
	})
}

func TestForceLogout(t *testing.T) {
	app, mockRepo, tokenService := newTestApp(t)

	t.Run("admin can terminate sessions", func(t *testing.T) {
		admin := &domain.User{ID: "admin-1", Email: "admin@example.com", Role: constant.RoleAdmin, IsActive: true}
		token, err := tokenService.Generate(admin.ID, admin.Email, admin.Role)
		require.NoError(t, err)

		mockRepo.EXPECT().GetByID(gomock.Any(), admin.ID).Return(admin, nil)
		mockRepo.EXPECT().RevokeAllByUserID(gomock.Any(), "user-123").Return(nil)

		req := httptest.NewRequest("DELETE", "/api/v1/admin/users/user-123/sessions", nil)
		req.Header.Set("Authorization", "Bearer "+token)

		resp, err := app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	})

	t.Run("non-admin is forbidden", func(t *testing.T) {
		user := &domain.User{ID: "user-9", Email: "user@example.com", Role: constant.RoleUser, IsActive: true}
		token, err := tokenService.Generate(user.ID, user.Email, user.Role)
		require.NoError(t, err)

		mockRepo.EXPECT().GetByID(gomock.Any(), user.ID).Return(user, nil)

		req := httptest.NewRequest("DELETE", "/api/v1/admin/users/user-123/sessions", nil)
		req.Header.Set("Authorization", "Bearer "+token)

		resp, err := app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)
	})
}
