package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/brightmarket/storefront/internal/auth"
	"github.com/brightmarket/storefront/internal/models"
	"github.com/brightmarket/storefront/internal/services"
	pkghttp "github.com/brightmarket/storefront/pkg/http"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// NewTestRequest creates an HTTP request with a JSON body for testing
func NewTestRequest(t *testing.T, method, url string, body interface{}) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("failed to encode request body: %v", err)
		}
	}
	req := httptest.NewRequest(method, url, &buf)
	req.Header.Set("Content-Type", "application/json")
	return req
}

// WithAuthContext adds access token claims to the request context, as the
// Authenticate middleware would
func WithAuthContext(req *http.Request, userID, role string) *http.Request {
	claims := &models.TokenClaims{
		Type:   models.TokenTypeAccess,
		UserID: userID,
		Email:  "user@example.com",
		Role:   role,
	}
	ctx := context.WithValue(req.Context(), auth.UserContextKey, claims)
	return req.WithContext(ctx)
}

// AssertSuccessEnvelope checks status and decodes the envelope's data field
// into target
func AssertSuccessEnvelope(t *testing.T, w *httptest.ResponseRecorder, expectedStatus int, target interface{}) {
	t.Helper()
	assert.Equal(t, expectedStatus, w.Code, "response status mismatch")
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

	var env struct {
		Success bool            `json:"success"`
		Data    json.RawMessage `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	assert.True(t, env.Success)

	if target != nil {
		require.NoError(t, json.Unmarshal(env.Data, target))
	}
}

// AssertErrorEnvelope checks status and the error code in the envelope
func AssertErrorEnvelope(t *testing.T, w *httptest.ResponseRecorder, expectedStatus int, expectedCode string) {
	t.Helper()
	assert.Equal(t, expectedStatus, w.Code, "response status mismatch")

	var env struct {
		Success bool              `json:"success"`
		Error   *pkghttp.APIError `json:"error"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	assert.False(t, env.Success)
	require.NotNil(t, env.Error)
	assert.Equal(t, expectedCode, env.Error.Code)
	assert.NotEmpty(t, env.Error.Message)
}

// MockAuthService implements AuthServiceInterface for testing
type MockAuthService struct {
	RegisterFunc       func(ctx context.Context, email, password, name string, meta services.RequestMeta) (*services.AuthResult, error)
	LoginFunc          func(ctx context.Context, email, password string, rememberMe bool, meta services.RequestMeta) (*services.AuthResult, error)
	RefreshFunc        func(ctx context.Context, refreshToken string) (*services.AuthResult, error)
	LogoutFunc         func(ctx context.Context, refreshToken string) error
	LogoutAllFunc      func(ctx context.Context, userID string) error
	ForgotPasswordFunc func(ctx context.Context, email string, meta services.RequestMeta) error
	ResetPasswordFunc  func(ctx context.Context, plainToken, newPassword string, meta services.RequestMeta) error
}

func (m *MockAuthService) Register(ctx context.Context, email, password, name string, meta services.RequestMeta) (*services.AuthResult, error) {
	if m.RegisterFunc != nil {
		return m.RegisterFunc(ctx, email, password, name, meta)
	}
	return nil, models.ErrInternalServer
}

func (m *MockAuthService) Login(ctx context.Context, email, password string, rememberMe bool, meta services.RequestMeta) (*services.AuthResult, error) {
	if m.LoginFunc != nil {
		return m.LoginFunc(ctx, email, password, rememberMe, meta)
	}
	return nil, models.ErrUnauthorized
}

func (m *MockAuthService) Refresh(ctx context.Context, refreshToken string) (*services.AuthResult, error) {
	if m.RefreshFunc != nil {
		return m.RefreshFunc(ctx, refreshToken)
	}
	return nil, models.ErrUnauthorized
}

func (m *MockAuthService) Logout(ctx context.Context, refreshToken string) error {
	if m.LogoutFunc != nil {
		return m.LogoutFunc(ctx, refreshToken)
	}
	return nil
}

func (m *MockAuthService) LogoutAll(ctx context.Context, userID string) error {
	if m.LogoutAllFunc != nil {
		return m.LogoutAllFunc(ctx, userID)
	}
	return nil
}

func (m *MockAuthService) ForgotPassword(ctx context.Context, email string, meta services.RequestMeta) error {
	if m.ForgotPasswordFunc != nil {
		return m.ForgotPasswordFunc(ctx, email, meta)
	}
	return nil
}

func (m *MockAuthService) ResetPassword(ctx context.Context, plainToken, newPassword string, meta services.RequestMeta) error {
	if m.ResetPasswordFunc != nil {
		return m.ResetPasswordFunc(ctx, plainToken, newPassword, meta)
	}
	return nil
}

// MockEmailVerificationService implements EmailVerificationServiceInterface for testing
type MockEmailVerificationService struct {
	VerifyEmailFunc        func(ctx context.Context, plainToken string) (string, error)
	ResendVerificationFunc func(ctx context.Context, email string) error
}

func (m *MockEmailVerificationService) VerifyEmail(ctx context.Context, plainToken string) (string, error) {
	if m.VerifyEmailFunc != nil {
		return m.VerifyEmailFunc(ctx, plainToken)
	}
	return "", models.ErrInvalidToken
}

func (m *MockEmailVerificationService) ResendVerification(ctx context.Context, email string) error {
	if m.ResendVerificationFunc != nil {
		return m.ResendVerificationFunc(ctx, email)
	}
	return nil
}

// MockOAuthService implements OAuthServiceInterface for testing
type MockOAuthService struct {
	ProviderByNameFunc func(name string) (services.Provider, error)
	HandleCallbackFunc func(ctx context.Context, providerName, code string, meta services.RequestMeta) (*models.User, services.LinkOutcome, error)
}

func (m *MockOAuthService) ProviderByName(name string) (services.Provider, error) {
	if m.ProviderByNameFunc != nil {
		return m.ProviderByNameFunc(name)
	}
	return nil, models.ErrNotFound
}

func (m *MockOAuthService) HandleCallback(ctx context.Context, providerName, code string, meta services.RequestMeta) (*models.User, services.LinkOutcome, error) {
	if m.HandleCallbackFunc != nil {
		return m.HandleCallbackFunc(ctx, providerName, code, meta)
	}
	return nil, 0, models.ErrUnauthorized
}

// MockSessionIssuer implements SessionIssuer for testing
type MockSessionIssuer struct {
	IssueSessionFunc func(ctx context.Context, user *models.User, rememberMe bool, meta services.RequestMeta) (*services.AuthResult, error)
}

func (m *MockSessionIssuer) IssueSession(ctx context.Context, user *models.User, rememberMe bool, meta services.RequestMeta) (*services.AuthResult, error) {
	if m.IssueSessionFunc != nil {
		return m.IssueSessionFunc(ctx, user, rememberMe, meta)
	}
	return &services.AuthResult{
		User:         &services.UserResponse{ID: user.ID, Email: user.Email},
		AccessToken:  "access_token_test",
		RefreshToken: "refresh_token_test",
		RefreshTTL:   0,
	}, nil
}

// MockUserService implements UserServiceInterface for testing
type MockUserService struct {
	GetUserByIDFunc   func(ctx context.Context, id string) (*models.User, error)
	ListUsersFunc     func(ctx context.Context, limit, offset int) ([]*models.User, error)
	UpdateProfileFunc func(ctx context.Context, id, name, avatarURL string) (*models.User, error)
	UpdateRoleFunc    func(ctx context.Context, id, role string) (*models.User, error)
	DeleteUserFunc    func(ctx context.Context, id string) error
}

func (m *MockUserService) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	if m.GetUserByIDFunc != nil {
		return m.GetUserByIDFunc(ctx, id)
	}
	return nil, models.ErrNotFound
}

func (m *MockUserService) ListUsers(ctx context.Context, limit, offset int) ([]*models.User, error) {
	if m.ListUsersFunc != nil {
		return m.ListUsersFunc(ctx, limit, offset)
	}
	return []*models.User{}, nil
}

func (m *MockUserService) UpdateProfile(ctx context.Context, id, name, avatarURL string) (*models.User, error) {
	if m.UpdateProfileFunc != nil {
		return m.UpdateProfileFunc(ctx, id, name, avatarURL)
	}
	return nil, models.ErrNotFound
}

func (m *MockUserService) UpdateRole(ctx context.Context, id, role string) (*models.User, error) {
	if m.UpdateRoleFunc != nil {
		return m.UpdateRoleFunc(ctx, id, role)
	}
	return nil, models.ErrNotFound
}

func (m *MockUserService) DeleteUser(ctx context.Context, id string) error {
	if m.DeleteUserFunc != nil {
		return m.DeleteUserFunc(ctx, id)
	}
	return nil
}

// MockProductService implements ProductServiceInterface for testing
type MockProductService struct {
	GetProductFunc    func(ctx context.Context, id string) (*models.Product, error)
	ListProductsFunc  func(ctx context.Context, activeOnly bool, limit, offset int) ([]*models.Product, error)
	CreateProductFunc func(ctx context.Context, product *models.Product) (*models.Product, error)
	UpdateProductFunc func(ctx context.Context, id string, product *models.Product) (*models.Product, error)
	DeleteProductFunc func(ctx context.Context, id string) error
}

func (m *MockProductService) GetProduct(ctx context.Context, id string) (*models.Product, error) {
	if m.GetProductFunc != nil {
		return m.GetProductFunc(ctx, id)
	}
	return nil, models.ErrNotFound
}

func (m *MockProductService) ListProducts(ctx context.Context, activeOnly bool, limit, offset int) ([]*models.Product, error) {
	if m.ListProductsFunc != nil {
		return m.ListProductsFunc(ctx, activeOnly, limit, offset)
	}
	return []*models.Product{}, nil
}

func (m *MockProductService) CreateProduct(ctx context.Context, product *models.Product) (*models.Product, error) {
	if m.CreateProductFunc != nil {
		return m.CreateProductFunc(ctx, product)
	}
	created := *product
	created.ID = "product_test"
	return &created, nil
}

func (m *MockProductService) UpdateProduct(ctx context.Context, id string, product *models.Product) (*models.Product, error) {
	if m.UpdateProductFunc != nil {
		return m.UpdateProductFunc(ctx, id, product)
	}
	return product, nil
}

func (m *MockProductService) DeleteProduct(ctx context.Context, id string) error {
	if m.DeleteProductFunc != nil {
		return m.DeleteProductFunc(ctx, id)
	}
	return nil
}

// testAuthResult builds a full successful auth outcome
func testAuthResult(userID string) *services.AuthResult {
	return &services.AuthResult{
		User: &services.UserResponse{
			ID:    userID,
			Email: "user@example.com",
			Name:  "Jane Doe",
			Role:  models.RoleUser,
		},
		AccessToken:  "access_token_123",
		RefreshToken: "refresh_token_123",
		RefreshTTL:   7 * 24 * time.Hour,
	}
}
