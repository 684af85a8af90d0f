package handler_test

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/AnthoniusHendriyanto/identity-core/config"
	autherror "github.com/AnthoniusHendriyanto/identity-core/internal/errors"
	"github.com/AnthoniusHendriyanto/identity-core/internal/identity/domain"
	"github.com/AnthoniusHendriyanto/identity-core/internal/identity/dto"
	"github.com/AnthoniusHendriyanto/identity-core/internal/identity/handler"
	"github.com/AnthoniusHendriyanto/identity-core/internal/identity/service"
	"github.com/AnthoniusHendriyanto/identity-core/internal/mocks"
	"github.com/AnthoniusHendriyanto/identity-core/pkg/constant"
	"github.com/gofiber/fiber/v2"
	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

// Fiber's test transport reports this as the client address.
const testClientIP = "0.0.0.0"

func newTestApp(t *testing.T) (*fiber.App, *mocks.MockUserRepository, *mocks.MockTokenGenerator) {
	t.Helper()

	ctrl := gomock.NewController(t)
	t.Cleanup(ctrl.Finish)

	mockRepo := mocks.NewMockUserRepository(ctrl)
	mockTokens := mocks.NewMockTokenGenerator(ctrl)
	cfg := &config.Config{
		MaxActiveTokens: 5,
		RevokeOnReuse:   true,
		ResetExpiryMin:  45,
		RoleMatchPolicy: constant.RoleMatchAny,
	}

	hasher := service.NewBcryptHasher()
	passwords := service.NewDefaultPasswordValidator()
	users := service.NewUserService(mockRepo, mockTokens, hasher, passwords, cfg)
	refresh := service.NewRefreshService(mockRepo, mockTokens, users, cfg)
	resets := service.NewResetService(mockRepo, hasher, passwords, cfg)
	rbac := service.NewRBACService(cfg.RoleMatchPolicy)

	authHandler := handler.NewAuthHandler(users, refresh, resets, mockTokens, rbac)

	app := fiber.New()
	handler.RegisterRoutes(app, authHandler)
	return app, mockRepo, mockTokens
}

func jsonRequest(method, path string, payload any) *http.Request {
	body, _ := json.Marshal(payload)
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func decodeBody(t *testing.T, resp io.Reader) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.NewDecoder(resp).Decode(&out))
	return out
}

func TestRegister(t *testing.T) {
	input := dto.RegisterInput{Email: "test@example.com", Username: "tester", Password: "Str0ngPass!"}

	t.Run("success", func(t *testing.T) {
		app, mockRepo, _ := newTestApp(t)

		mockRepo.EXPECT().GetByEmail(gomock.Any(), input.Email).Return(nil, nil)
		mockRepo.EXPECT().GetByUsername(gomock.Any(), input.Username).Return(nil, nil)
		mockRepo.EXPECT().Create(gomock.Any(), gomock.Any()).Return(nil)
		mockRepo.EXPECT().FindOrCreateRole(gomock.Any(), constant.DefaultUserRoleName,
			gomock.Any(), gomock.Any()).Return(&domain.Role{ID: 1, Name: constant.DefaultUserRoleName}, nil)
		mockRepo.EXPECT().AssignRole(gomock.Any(), gomock.Any(), 1).Return(nil)

		resp, err := app.Test(jsonRequest("POST", "/api/v1/register", input))
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusCreated, resp.StatusCode)

		body := decodeBody(t, resp.Body)
		assert.Equal(t, input.Email, body["email"])
		assert.Equal(t, input.Username, body["username"])
		assert.NotEmpty(t, body["id"])
	})

	t.Run("bad request", func(t *testing.T) {
		app, _, _ := newTestApp(t)

		req := httptest.NewRequest("POST", "/api/v1/register", bytes.NewReader([]byte("")))
		req.Header.Set("Content-Type", "application/json")

		resp, _ := app.Test(req)
		assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	})

	t.Run("email conflict", func(t *testing.T) {
		app, mockRepo, _ := newTestApp(t)

		mockRepo.EXPECT().GetByEmail(gomock.Any(), input.Email).
			Return(&domain.User{ID: "existing"}, nil)

		resp, _ := app.Test(jsonRequest("POST", "/api/v1/register", input))
		assert.Equal(t, fiber.StatusConflict, resp.StatusCode)
	})

	t.Run("username conflict", func(t *testing.T) {
		app, mockRepo, _ := newTestApp(t)

		mockRepo.EXPECT().GetByEmail(gomock.Any(), input.Email).Return(nil, nil)
		mockRepo.EXPECT().GetByUsername(gomock.Any(), input.Username).
			Return(&domain.User{ID: "existing"}, nil)

		resp, _ := app.Test(jsonRequest("POST", "/api/v1/register", input))
		assert.Equal(t, fiber.StatusConflict, resp.StatusCode)
	})

	t.Run("weak password", func(t *testing.T) {
		app, mockRepo, _ := newTestApp(t)

		weak := input
		weak.Password = "weakpassword" // long enough, no upper or digit

		mockRepo.EXPECT().GetByEmail(gomock.Any(), weak.Email).Return(nil, nil)
		mockRepo.EXPECT().GetByUsername(gomock.Any(), weak.Username).Return(nil, nil)

		resp, _ := app.Test(jsonRequest("POST", "/api/v1/register", weak))
		assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

		body := decodeBody(t, resp.Body)
		assert.Contains(t, body["error"], "uppercase")
	})
}

func TestLogin(t *testing.T) {
	password := "Str0ngPass!"
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)

	activeUser := &domain.User{
		ID:           "user-123",
		Email:        "test@example.com",
		Username:     "tester",
		PasswordHash: string(hash),
		Active:       true,
	}

	t.Run("success", func(t *testing.T) {
		app, mockRepo, mockTokens := newTestApp(t)
		input := dto.LoginInput{Email: activeUser.Email, Password: password}

		mockRepo.EXPECT().GetByEmail(gomock.Any(), input.Email).Return(activeUser, nil)
		mockTokens.EXPECT().Generate(activeUser).
			Return("access-token", "refresh-token", "jti-1", time.Now().Add(time.Hour), nil)
		mockRepo.EXPECT().StoreRefreshToken(gomock.Any(), gomock.Any()).Return(nil)
		mockRepo.EXPECT().GetActiveCountByUserID(gomock.Any(), activeUser.ID).Return(1, nil)
		mockRepo.EXPECT().UpdateLastLogin(gomock.Any(), activeUser.ID, gomock.Any()).Return(nil)
		mockRepo.EXPECT().RecordLoginAttempt(gomock.Any(), input.Email, testClientIP, true).Return(nil)

		resp, err := app.Test(jsonRequest("POST", "/api/v1/login", input))
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusOK, resp.StatusCode)

		var tokens dto.TokenResponse
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&tokens))
		assert.Equal(t, "access-token", tokens.AccessToken)
		assert.Equal(t, "refresh-token", tokens.RefreshToken)
	})

	t.Run("unauthorized wrong password", func(t *testing.T) {
		app, mockRepo, _ := newTestApp(t)
		input := dto.LoginInput{Email: activeUser.Email, Password: "Wr0ngPass!"}

		mockRepo.EXPECT().GetByEmail(gomock.Any(), input.Email).Return(activeUser, nil)
		mockRepo.EXPECT().RecordLoginAttempt(gomock.Any(), input.Email, testClientIP, false).Return(nil)

		resp, _ := app.Test(jsonRequest("POST", "/api/v1/login", input))
		assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)

		body := decodeBody(t, resp.Body)
		assert.Equal(t, "invalid credentials or token", body["error"])
	})

	t.Run("unauthorized unknown email", func(t *testing.T) {
		app, mockRepo, _ := newTestApp(t)
		input := dto.LoginInput{Email: "nobody@example.com", Password: password}

		mockRepo.EXPECT().GetByEmail(gomock.Any(), input.Email).Return(nil, nil)
		mockRepo.EXPECT().RecordLoginAttempt(gomock.Any(), input.Email, testClientIP, false).Return(nil)

		resp, _ := app.Test(jsonRequest("POST", "/api/v1/login", input))
		assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)

		// Same status and body as the wrong-password case.
		body := decodeBody(t, resp.Body)
		assert.Equal(t, "invalid credentials or token", body["error"])
	})
}

func TestRefresh(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		app, mockRepo, mockTokens := newTestApp(t)

		user := &domain.User{ID: "user-123", Active: true}
		record := &domain.RefreshTokenRecord{
			ID: "old-jti", UserID: user.ID, ExpiresAt: time.Now().Add(time.Hour),
		}

		mockTokens.EXPECT().VerifyRefreshToken("presented").
			Return(&service.RefreshClaims{UserID: user.ID}, nil)
		mockRepo.EXPECT().GetRefreshToken(gomock.Any(), gomock.Any()).Return(record, nil)
		mockRepo.EXPECT().RevokeRefreshToken(gomock.Any(), "old-jti").Return(true, nil)
		mockRepo.EXPECT().GetByID(gomock.Any(), user.ID).Return(user, nil)
		mockTokens.EXPECT().Generate(user).
			Return("new-access", "new-refresh", "new-jti", time.Now().Add(time.Hour), nil)
		mockRepo.EXPECT().StoreRefreshToken(gomock.Any(), gomock.Any()).Return(nil)
		mockRepo.EXPECT().GetActiveCountByUserID(gomock.Any(), user.ID).Return(1, nil)
		mockRepo.EXPECT().UpdateLastLogin(gomock.Any(), user.ID, gomock.Any()).Return(nil)

		resp, _ := app.Test(jsonRequest("POST", "/api/v1/refresh", dto.RefreshInput{RefreshToken: "presented"}))
		assert.Equal(t, fiber.StatusOK, resp.StatusCode)

		var tokens dto.TokenResponse
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&tokens))
		assert.Equal(t, "new-refresh", tokens.RefreshToken)
	})

	t.Run("unauthorized on replay", func(t *testing.T) {
		app, mockRepo, mockTokens := newTestApp(t)

		record := &domain.RefreshTokenRecord{
			ID: "old-jti", UserID: "user-123", Revoked: true, ExpiresAt: time.Now().Add(time.Hour),
		}

		mockTokens.EXPECT().VerifyRefreshToken("stolen").
			Return(&service.RefreshClaims{UserID: "user-123"}, nil)
		mockRepo.EXPECT().GetRefreshToken(gomock.Any(), gomock.Any()).Return(record, nil)
		mockRepo.EXPECT().RevokeAllRefreshTokensByUserID(gomock.Any(), "user-123").Return(nil)

		resp, _ := app.Test(jsonRequest("POST", "/api/v1/refresh", dto.RefreshInput{RefreshToken: "stolen"}))
		assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)

		body := decodeBody(t, resp.Body)
		assert.Equal(t, "invalid credentials or token", body["error"])
	})

	t.Run("unauthorized on garbage", func(t *testing.T) {
		app, _, mockTokens := newTestApp(t)

		mockTokens.EXPECT().VerifyRefreshToken("garbage").
			Return(nil, autherror.ErrRefreshTokenInvalid)

		resp, _ := app.Test(jsonRequest("POST", "/api/v1/refresh", dto.RefreshInput{RefreshToken: "garbage"}))
		assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
	})
}

func TestLogout(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		app, mockRepo, mockTokens := newTestApp(t)

		claims := &service.RefreshClaims{UserID: "user-123"}
		claims.ID = "jti-1"
		mockTokens.EXPECT().VerifyRefreshToken("presented").Return(claims, nil)
		mockRepo.EXPECT().RevokeRefreshToken(gomock.Any(), "jti-1").Return(true, nil)

		resp, _ := app.Test(jsonRequest("DELETE", "/api/v1/session", dto.RefreshInput{RefreshToken: "presented"}))
		assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	})

	t.Run("unauthorized on bad token", func(t *testing.T) {
		app, _, mockTokens := newTestApp(t)

		mockTokens.EXPECT().VerifyRefreshToken("garbage").
			Return(nil, autherror.ErrRefreshTokenInvalid)

		resp, _ := app.Test(jsonRequest("DELETE", "/api/v1/session", dto.RefreshInput{RefreshToken: "garbage"}))
		assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
	})
}

func TestRequestReset(t *testing.T) {
	t.Run("accepted for known email", func(t *testing.T) {
		app, mockRepo, _ := newTestApp(t)

		user := &domain.User{ID: "user-123", Email: "test@example.com", Active: true}
		mockRepo.EXPECT().GetByEmail(gomock.Any(), user.Email).Return(user, nil)
		mockRepo.EXPECT().SetResetToken(gomock.Any(), user.ID, gomock.Any(), gomock.Any()).Return(nil)

		resp, _ := app.Test(jsonRequest("POST", "/api/v1/password-reset/request",
			dto.RequestResetInput{Email: user.Email}))
		assert.Equal(t, fiber.StatusAccepted, resp.StatusCode)

		// The token must never be in the response body.
		body := decodeBody(t, resp.Body)
		assert.Len(t, body, 1)
		assert.Contains(t, body, "message")
	})

	t.Run("same answer for unknown email", func(t *testing.T) {
		app, mockRepo, _ := newTestApp(t)

		mockRepo.EXPECT().GetByEmail(gomock.Any(), "nobody@example.com").Return(nil, nil)

		resp, _ := app.Test(jsonRequest("POST", "/api/v1/password-reset/request",
			dto.RequestResetInput{Email: "nobody@example.com"}))
		assert.Equal(t, fiber.StatusAccepted, resp.StatusCode)
	})
}

func TestCompleteReset(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		app, mockRepo, _ := newTestApp(t)

		token := "reset-token"
		expiresAt := time.Now().Add(30 * time.Minute)
		user := &domain.User{
			ID: "user-123", Active: true,
			PasswordResetToken: &token, PasswordResetExpiresAt: &expiresAt,
		}

		mockRepo.EXPECT().GetByResetToken(gomock.Any(), token).Return(user, nil)
		mockRepo.EXPECT().CompletePasswordReset(gomock.Any(), user.ID, gomock.Any()).Return(nil)

		resp, _ := app.Test(jsonRequest("POST", "/api/v1/password-reset/complete",
			dto.CompleteResetInput{Token: token, NewPassword: "N3wSecret!9"}))
		assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	})

	t.Run("invalid token", func(t *testing.T) {
		app, mockRepo, _ := newTestApp(t)

		mockRepo.EXPECT().GetByResetToken(gomock.Any(), "bogus").Return(nil, nil)

		resp, _ := app.Test(jsonRequest("POST", "/api/v1/password-reset/complete",
			dto.CompleteResetInput{Token: "bogus", NewPassword: "N3wSecret!9"}))
		assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

		body := decodeBody(t, resp.Body)
		assert.Equal(t, "invalid or expired token", body["error"])
	})

	t.Run("expired token", func(t *testing.T) {
		app, mockRepo, _ := newTestApp(t)

		token := "reset-token"
		expiresAt := time.Now().Add(-time.Minute)
		user := &domain.User{
			ID: "user-123", Active: true,
			PasswordResetToken: &token, PasswordResetExpiresAt: &expiresAt,
		}
		mockRepo.EXPECT().GetByResetToken(gomock.Any(), token).Return(user, nil)

		resp, _ := app.Test(jsonRequest("POST", "/api/v1/password-reset/complete",
			dto.CompleteResetInput{Token: token, NewPassword: "N3wSecret!9"}))
		assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

		// Expired and unknown tokens are indistinguishable to the caller.
		body := decodeBody(t, resp.Body)
		assert.Equal(t, "invalid or expired token", body["error"])
	})

	t.Run("weak replacement password", func(t *testing.T) {
		app, mockRepo, _ := newTestApp(t)

		token := "reset-token"
		expiresAt := time.Now().Add(30 * time.Minute)
		user := &domain.User{
			ID: "user-123", Active: true,
			PasswordResetToken: &token, PasswordResetExpiresAt: &expiresAt,
		}
		mockRepo.EXPECT().GetByResetToken(gomock.Any(), token).Return(user, nil)

		resp, _ := app.Test(jsonRequest("POST", "/api/v1/password-reset/complete",
			dto.CompleteResetInput{Token: token, NewPassword: "weakpassword"}))
		assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	})
}
