package handlers_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/brightmarket/storefront/internal/auth"
	"github.com/brightmarket/storefront/internal/handlers"
	"github.com/brightmarket/storefront/internal/models"
	"github.com/brightmarket/storefront/internal/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newAuthHandler(service *handlers.MockAuthService, verification *handlers.MockEmailVerificationService) *handlers.AuthHandler {
	if verification == nil {
		verification = &handlers.MockEmailVerificationService{}
	}
	return handlers.NewAuthHandler(service, verification, nil, auth.CookieConfig{})
}

func findRefreshCookie(t *testing.T, w *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, cookie := range w.Result().Cookies() {
		if cookie.Name == auth.RefreshCookieName {
			return cookie
		}
	}
	return nil
}

// ============================================================================
// Register
// ============================================================================

func TestRegister_Success(t *testing.T) {
	mockAuth := &handlers.MockAuthService{
		RegisterFunc: func(ctx context.Context, email, password, name string, meta services.RequestMeta) (*services.AuthResult, error) {
			return &services.AuthResult{
				User:         &services.UserResponse{ID: "user123", Email: email, Name: name, Role: models.RoleUser},
				AccessToken:  "access_token_123",
				RefreshToken: "refresh_token_123",
			}, nil
		},
	}

	handler := newAuthHandler(mockAuth, nil)
	req := handlers.NewTestRequest(t, "POST", "/auth/register", handlers.RegisterRequest{
		Email:    "user@example.com",
		Password: "correcthorse",
		Name:     "Jane Doe",
	})

	w := httptest.NewRecorder()
	handler.Register(w, req)

	var payload handlers.AuthPayload
	handlers.AssertSuccessEnvelope(t, w, http.StatusCreated, &payload)
	assert.Equal(t, "access_token_123", payload.AccessToken)
	assert.Equal(t, "user123", payload.User.ID)

	cookie := findRefreshCookie(t, w)
	require.NotNil(t, cookie, "refresh token must be set as a cookie")
	assert.Equal(t, "refresh_token_123", cookie.Value)
	assert.True(t, cookie.HttpOnly)
}

func TestRegister_ResponseBodyOmitsRefreshToken(t *testing.T) {
	mockAuth := &handlers.MockAuthService{
		RegisterFunc: func(ctx context.Context, email, password, name string, meta services.RequestMeta) (*services.AuthResult, error) {
			return &services.AuthResult{
				User:         &services.UserResponse{ID: "user123"},
				AccessToken:  "access_token_123",
				RefreshToken: "refresh_token_123",
			}, nil
		},
	}

	handler := newAuthHandler(mockAuth, nil)
	req := handlers.NewTestRequest(t, "POST", "/auth/register", handlers.RegisterRequest{
		Email:    "user@example.com",
		Password: "correcthorse",
		Name:     "Jane Doe",
	})

	w := httptest.NewRecorder()
	handler.Register(w, req)

	assert.NotContains(t, w.Body.String(), "refresh_token_123")
}

func TestRegister_NameIsOptional(t *testing.T) {
	var registeredName string
	mockAuth := &handlers.MockAuthService{
		RegisterFunc: func(ctx context.Context, email, password, name string, meta services.RequestMeta) (*services.AuthResult, error) {
			registeredName = name
			return &services.AuthResult{
				User:        &services.UserResponse{ID: "user123", Email: email, Role: models.RoleUser},
				AccessToken: "access_token_123",
			}, nil
		},
	}

	handler := newAuthHandler(mockAuth, nil)
	req := handlers.NewTestRequest(t, "POST", "/auth/register", handlers.RegisterRequest{
		Email:    "user@example.com",
		Password: "correcthorse",
	})

	w := httptest.NewRecorder()
	handler.Register(w, req)

	handlers.AssertSuccessEnvelope(t, w, http.StatusCreated, nil)
	assert.Empty(t, registeredName)
}

func TestRegister_DuplicateEmail(t *testing.T) {
	mockAuth := &handlers.MockAuthService{
		RegisterFunc: func(ctx context.Context, email, password, name string, meta services.RequestMeta) (*services.AuthResult, error) {
			return nil, models.ErrConflict
		},
	}

	handler := newAuthHandler(mockAuth, nil)
	req := handlers.NewTestRequest(t, "POST", "/auth/register", handlers.RegisterRequest{
		Email:    "taken@example.com",
		Password: "correcthorse",
		Name:     "Jane Doe",
	})

	w := httptest.NewRecorder()
	handler.Register(w, req)

	handlers.AssertErrorEnvelope(t, w, http.StatusBadRequest, "USER_EXISTS")
}

func TestRegister_ValidationFailures(t *testing.T) {
	handler := newAuthHandler(&handlers.MockAuthService{}, nil)

	cases := []struct {
		name string
		body handlers.RegisterRequest
	}{
		{"missing email", handlers.RegisterRequest{Password: "correcthorse", Name: "Jane"}},
		{"bad email", handlers.RegisterRequest{Email: "not-an-email", Password: "correcthorse", Name: "Jane"}},
		{"short password", handlers.RegisterRequest{Email: "a@b.com", Password: "short", Name: "Jane"}},
		{"name too long", handlers.RegisterRequest{Email: "a@b.com", Password: "correcthorse", Name: strings.Repeat("a", 101)}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := handlers.NewTestRequest(t, "POST", "/auth/register", tc.body)
			w := httptest.NewRecorder()
			handler.Register(w, req)
			handlers.AssertErrorEnvelope(t, w, http.StatusBadRequest, "VALIDATION_ERROR")
		})
	}
}

// ============================================================================
// Login
// ============================================================================

func TestLogin_Success(t *testing.T) {
	var gotRememberMe bool
	mockAuth := &handlers.MockAuthService{
		LoginFunc: func(ctx context.Context, email, password string, rememberMe bool, meta services.RequestMeta) (*services.AuthResult, error) {
			gotRememberMe = rememberMe
			return &services.AuthResult{
				User:         &services.UserResponse{ID: "user123", Email: email},
				AccessToken:  "access_token_123",
				RefreshToken: "refresh_token_123",
			}, nil
		},
	}

	handler := newAuthHandler(mockAuth, nil)
	req := handlers.NewTestRequest(t, "POST", "/auth/login", handlers.LoginRequest{
		Email:      "user@example.com",
		Password:   "correcthorse",
		RememberMe: true,
	})

	w := httptest.NewRecorder()
	handler.Login(w, req)

	var payload handlers.AuthPayload
	handlers.AssertSuccessEnvelope(t, w, http.StatusOK, &payload)
	assert.Equal(t, "access_token_123", payload.AccessToken)
	assert.True(t, gotRememberMe)
	require.NotNil(t, findRefreshCookie(t, w))
}

func TestLogin_InvalidCredentials(t *testing.T) {
	mockAuth := &handlers.MockAuthService{
		LoginFunc: func(ctx context.Context, email, password string, rememberMe bool, meta services.RequestMeta) (*services.AuthResult, error) {
			return nil, models.ErrUnauthorized
		},
	}

	handler := newAuthHandler(mockAuth, nil)
	req := handlers.NewTestRequest(t, "POST", "/auth/login", handlers.LoginRequest{
		Email:    "user@example.com",
		Password: "wrongpassword",
	})

	w := httptest.NewRecorder()
	handler.Login(w, req)

	handlers.AssertErrorEnvelope(t, w, http.StatusUnauthorized, "INVALID_CREDENTIALS")
}

// ============================================================================
// Refresh
// ============================================================================

func TestRefresh_Success(t *testing.T) {
	mockAuth := &handlers.MockAuthService{
		RefreshFunc: func(ctx context.Context, refreshToken string) (*services.AuthResult, error) {
			assert.Equal(t, "the-refresh-token", refreshToken)
			return &services.AuthResult{
				User:        &services.UserResponse{ID: "user123"},
				AccessToken: "new_access_token",
			}, nil
		},
	}

	handler := newAuthHandler(mockAuth, nil)
	req := handlers.NewTestRequest(t, "POST", "/auth/refresh", nil)
	req.AddCookie(&http.Cookie{Name: auth.RefreshCookieName, Value: "the-refresh-token"})

	w := httptest.NewRecorder()
	handler.Refresh(w, req)

	var payload handlers.AuthPayload
	handlers.AssertSuccessEnvelope(t, w, http.StatusOK, &payload)
	assert.Equal(t, "new_access_token", payload.AccessToken)
}

func TestRefresh_MissingCookie(t *testing.T) {
	handler := newAuthHandler(&handlers.MockAuthService{}, nil)
	req := handlers.NewTestRequest(t, "POST", "/auth/refresh", nil)

	w := httptest.NewRecorder()
	handler.Refresh(w, req)

	handlers.AssertErrorEnvelope(t, w, http.StatusUnauthorized, "UNAUTHORIZED")
}

func TestRefresh_RevokedSessionClearsCookie(t *testing.T) {
	mockAuth := &handlers.MockAuthService{
		RefreshFunc: func(ctx context.Context, refreshToken string) (*services.AuthResult, error) {
			return nil, models.ErrUnauthorized
		},
	}

	handler := newAuthHandler(mockAuth, nil)
	req := handlers.NewTestRequest(t, "POST", "/auth/refresh", nil)
	req.AddCookie(&http.Cookie{Name: auth.RefreshCookieName, Value: "revoked-token"})

	w := httptest.NewRecorder()
	handler.Refresh(w, req)

	handlers.AssertErrorEnvelope(t, w, http.StatusUnauthorized, "UNAUTHORIZED")

	cookie := findRefreshCookie(t, w)
	require.NotNil(t, cookie)
	assert.Empty(t, cookie.Value)
	assert.Negative(t, cookie.MaxAge, "dead session cookie must be cleared")
}

// ============================================================================
// Logout
// ============================================================================

func TestLogout_ClearsCookie(t *testing.T) {
	var revokedToken string
	mockAuth := &handlers.MockAuthService{
		LogoutFunc: func(ctx context.Context, refreshToken string) error {
			revokedToken = refreshToken
			return nil
		},
	}

	handler := newAuthHandler(mockAuth, nil)
	req := handlers.NewTestRequest(t, "POST", "/auth/logout", nil)
	req.AddCookie(&http.Cookie{Name: auth.RefreshCookieName, Value: "the-refresh-token"})

	w := httptest.NewRecorder()
	handler.Logout(w, req)

	var payload handlers.MessagePayload
	handlers.AssertSuccessEnvelope(t, w, http.StatusOK, &payload)
	assert.Equal(t, "the-refresh-token", revokedToken)

	cookie := findRefreshCookie(t, w)
	require.NotNil(t, cookie)
	assert.Negative(t, cookie.MaxAge)
}

func TestLogout_WithoutCookieStillSucceeds(t *testing.T) {
	handler := newAuthHandler(&handlers.MockAuthService{}, nil)
	req := handlers.NewTestRequest(t, "POST", "/auth/logout", nil)

	w := httptest.NewRecorder()
	handler.Logout(w, req)

	handlers.AssertSuccessEnvelope(t, w, http.StatusOK, nil)
}

func TestLogoutAll_RequiresAuthentication(t *testing.T) {
	handler := newAuthHandler(&handlers.MockAuthService{}, nil)
	req := handlers.NewTestRequest(t, "POST", "/auth/logout-all", nil)

	w := httptest.NewRecorder()
	handler.LogoutAll(w, req)

	handlers.AssertErrorEnvelope(t, w, http.StatusUnauthorized, "UNAUTHORIZED")
}

func TestLogoutAll_Success(t *testing.T) {
	var revokedUser string
	mockAuth := &handlers.MockAuthService{
		LogoutAllFunc: func(ctx context.Context, userID string) error {
			revokedUser = userID
			return nil
		},
	}

	handler := newAuthHandler(mockAuth, nil)
	req := handlers.WithAuthContext(handlers.NewTestRequest(t, "POST", "/auth/logout-all", nil), "user123", models.RoleUser)

	w := httptest.NewRecorder()
	handler.LogoutAll(w, req)

	handlers.AssertSuccessEnvelope(t, w, http.StatusOK, nil)
	assert.Equal(t, "user123", revokedUser)
}

// ============================================================================
// ForgotPassword / ResendVerification anti-enumeration
// ============================================================================

// The two mailing endpoints must answer byte-identically for known and
// unknown addresses.
func TestForgotPassword_ResponseShapeIndependentOfAccount(t *testing.T) {
	handler := newAuthHandler(&handlers.MockAuthService{}, nil)

	var bodies []string
	for _, email := range []string{"known@example.com", "unknown@example.com"} {
		req := handlers.NewTestRequest(t, "POST", "/auth/forgot-password", handlers.ForgotPasswordRequest{Email: email})
		w := httptest.NewRecorder()
		handler.ForgotPassword(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		bodies = append(bodies, w.Body.String())
	}

	assert.Equal(t, bodies[0], bodies[1])
}

func TestResendVerification_ResponseShapeIndependentOfAccount(t *testing.T) {
	handler := newAuthHandler(&handlers.MockAuthService{}, &handlers.MockEmailVerificationService{})

	var bodies []string
	for _, email := range []string{"known@example.com", "unknown@example.com"} {
		req := handlers.NewTestRequest(t, "POST", "/auth/resend-verification", handlers.ResendVerificationRequest{Email: email})
		w := httptest.NewRecorder()
		handler.ResendVerification(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		bodies = append(bodies, w.Body.String())
	}

	assert.Equal(t, bodies[0], bodies[1])
}

// ============================================================================
// ResetPassword / VerifyEmail
// ============================================================================

func TestResetPassword_Success(t *testing.T) {
	mockAuth := &handlers.MockAuthService{
		ResetPasswordFunc: func(ctx context.Context, plainToken, newPassword string, meta services.RequestMeta) error {
			assert.Equal(t, "reset-token", plainToken)
			assert.Equal(t, "newpassword123", newPassword)
			return nil
		},
	}

	handler := newAuthHandler(mockAuth, nil)
	req := handlers.NewTestRequest(t, "POST", "/auth/reset-password", handlers.ResetPasswordRequest{
		Token:    "reset-token",
		Password: "newpassword123",
	})

	w := httptest.NewRecorder()
	handler.ResetPassword(w, req)

	handlers.AssertSuccessEnvelope(t, w, http.StatusOK, nil)
}

func TestResetPassword_InvalidToken(t *testing.T) {
	mockAuth := &handlers.MockAuthService{
		ResetPasswordFunc: func(ctx context.Context, plainToken, newPassword string, meta services.RequestMeta) error {
			return models.ErrInvalidToken
		},
	}

	handler := newAuthHandler(mockAuth, nil)
	req := handlers.NewTestRequest(t, "POST", "/auth/reset-password", handlers.ResetPasswordRequest{
		Token:    "stale-token",
		Password: "newpassword123",
	})

	w := httptest.NewRecorder()
	handler.ResetPassword(w, req)

	handlers.AssertErrorEnvelope(t, w, http.StatusBadRequest, "INVALID_TOKEN")
}

func TestVerifyEmail_Success(t *testing.T) {
	verification := &handlers.MockEmailVerificationService{
		VerifyEmailFunc: func(ctx context.Context, plainToken string) (string, error) {
			return "user123", nil
		},
	}

	handler := newAuthHandler(&handlers.MockAuthService{}, verification)
	req := handlers.NewTestRequest(t, "POST", "/auth/verify-email", handlers.VerifyEmailRequest{Token: "verify-token"})

	w := httptest.NewRecorder()
	handler.VerifyEmail(w, req)

	handlers.AssertSuccessEnvelope(t, w, http.StatusOK, nil)
}

func TestVerifyEmail_InvalidToken(t *testing.T) {
	handler := newAuthHandler(&handlers.MockAuthService{}, &handlers.MockEmailVerificationService{})
	req := handlers.NewTestRequest(t, "POST", "/auth/verify-email", handlers.VerifyEmailRequest{Token: "bad-token"})

	w := httptest.NewRecorder()
	handler.VerifyEmail(w, req)

	handlers.AssertErrorEnvelope(t, w, http.StatusBadRequest, "INVALID_TOKEN")
}
