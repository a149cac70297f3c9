package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/brightmarket/storefront/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func assertEnvelopeCode(t *testing.T, w *httptest.ResponseRecorder, code string) {
	t.Helper()
	var body struct {
		Success bool `json:"success"`
		Error   *struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.False(t, body.Success)
	require.NotNil(t, body.Error)
	assert.Equal(t, code, body.Error.Code)
}

func TestAuthenticate_ValidToken(t *testing.T) {
	tm := testTokenManager()
	token, err := tm.GenerateAccessToken("user123", "user@example.com", models.RoleUser)
	require.NoError(t, err)

	var gotClaims *models.TokenClaims
	handler := Authenticate(tm)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotClaims = GetUserFromContext(r)
		w.WriteHeader(http.StatusOK)
	}))

	r := httptest.NewRequest(http.MethodGet, "/users/me", nil)
	r.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, r)

	assert.Equal(t, http.StatusOK, w.Code)
	require.NotNil(t, gotClaims)
	assert.Equal(t, "user123", gotClaims.UserID)
	assert.Equal(t, models.RoleUser, gotClaims.Role)
}

func TestAuthenticate_MissingHeader(t *testing.T) {
	handler := Authenticate(testTokenManager())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("next handler must not run")
	}))

	r := httptest.NewRequest(http.MethodGet, "/users/me", nil)
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, r)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assertEnvelopeCode(t, w, "UNAUTHORIZED")
}

func TestAuthenticate_MalformedHeader(t *testing.T) {
	handler := Authenticate(testTokenManager())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("next handler must not run")
	}))

	r := httptest.NewRequest(http.MethodGet, "/users/me", nil)
	r.Header.Set("Authorization", "Basic dXNlcjpwYXNz")
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, r)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAuthenticate_InvalidToken(t *testing.T) {
	handler := Authenticate(testTokenManager())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("next handler must not run")
	}))

	r := httptest.NewRequest(http.MethodGet, "/users/me", nil)
	r.Header.Set("Authorization", "Bearer garbage")
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, r)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

// A refresh token is a valid JWT but must never authenticate API calls.
func TestAuthenticate_RejectsRefreshToken(t *testing.T) {
	tm := testTokenManager()
	refreshToken, err := tm.GenerateRefreshToken("user123", "session456", false)
	require.NoError(t, err)

	handler := Authenticate(tm)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("next handler must not run")
	}))

	r := httptest.NewRequest(http.MethodGet, "/users/me", nil)
	r.Header.Set("Authorization", "Bearer "+refreshToken)
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, r)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func requestWithClaims(role string) *http.Request {
	r := httptest.NewRequest(http.MethodGet, "/users", nil)
	claims := &models.TokenClaims{Type: models.TokenTypeAccess, UserID: "user123", Role: role}
	return r.WithContext(context.WithValue(r.Context(), UserContextKey, claims))
}

func TestRequireRole_Allowed(t *testing.T) {
	called := false
	handler := RequireRole(models.RoleAdmin, models.RoleSuperAdmin)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		w.WriteHeader(http.StatusOK)
	}))

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, requestWithClaims(models.RoleAdmin))

	assert.True(t, called)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRequireRole_ForbiddenShortCircuits(t *testing.T) {
	handler := RequireRole(models.RoleAdmin)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("next handler must not run after a failed role check")
	}))

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, requestWithClaims(models.RoleUser))

	assert.Equal(t, http.StatusForbidden, w.Code)
	assertEnvelopeCode(t, w, "FORBIDDEN")
}

func TestRequireRole_NoClaims(t *testing.T) {
	handler := RequireRole(models.RoleAdmin)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("next handler must not run")
	}))

	r := httptest.NewRequest(http.MethodGet, "/users", nil)
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, r)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestGetUserFromContext_Empty(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	assert.Nil(t, GetUserFromContext(r))
}
