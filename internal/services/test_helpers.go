package services

import (
	"context"
	"time"

	"github.com/brightmarket/storefront/internal/models"
	"golang.org/x/oauth2"
)

// MockUserRepository implements UserRepository for testing
type MockUserRepository struct {
	GetByIDFunc    func(ctx context.Context, id string) (*models.User, error)
	GetByEmailFunc func(ctx context.Context, email string) (*models.User, error)
	ListFunc       func(ctx context.Context, limit, offset int) ([]*models.User, error)
	CreateFunc     func(ctx context.Context, user *models.User) (*models.User, error)
	UpdateFunc     func(ctx context.Context, id string, user *models.User) (*models.User, error)
	TouchLoginFunc func(ctx context.Context, id string) error
	DeleteFunc     func(ctx context.Context, id string) error
}

func (m *MockUserRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, id)
	}
	return nil, models.ErrNotFound
}

func (m *MockUserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	if m.GetByEmailFunc != nil {
		return m.GetByEmailFunc(ctx, email)
	}
	return nil, models.ErrNotFound
}

func (m *MockUserRepository) List(ctx context.Context, limit, offset int) ([]*models.User, error) {
	if m.ListFunc != nil {
		return m.ListFunc(ctx, limit, offset)
	}
	return []*models.User{}, nil
}

func (m *MockUserRepository) Create(ctx context.Context, user *models.User) (*models.User, error) {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, user)
	}
	created := *user
	created.ID = "user_test"
	created.CreatedAt = time.Now()
	created.UpdatedAt = created.CreatedAt
	return &created, nil
}

func (m *MockUserRepository) Update(ctx context.Context, id string, user *models.User) (*models.User, error) {
	if m.UpdateFunc != nil {
		return m.UpdateFunc(ctx, id, user)
	}
	return user, nil
}

func (m *MockUserRepository) TouchLogin(ctx context.Context, id string) error {
	if m.TouchLoginFunc != nil {
		return m.TouchLoginFunc(ctx, id)
	}
	return nil
}

func (m *MockUserRepository) Delete(ctx context.Context, id string) error {
	if m.DeleteFunc != nil {
		return m.DeleteFunc(ctx, id)
	}
	return nil
}

// MockSessionRepository implements SessionRepository for testing
type MockSessionRepository struct {
	CreateFunc            func(ctx context.Context, session *models.Session) (*models.Session, error)
	GetByTokenHashFunc    func(ctx context.Context, tokenHash string) (*models.Session, error)
	DeleteByTokenHashFunc func(ctx context.Context, tokenHash string) error
	DeleteAllForUserFunc  func(ctx context.Context, userID string) error
}

func (m *MockSessionRepository) Create(ctx context.Context, session *models.Session) (*models.Session, error) {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, session)
	}
	session.CreatedAt = time.Now()
	return session, nil
}

func (m *MockSessionRepository) GetByTokenHash(ctx context.Context, tokenHash string) (*models.Session, error) {
	if m.GetByTokenHashFunc != nil {
		return m.GetByTokenHashFunc(ctx, tokenHash)
	}
	return nil, models.ErrNotFound
}

func (m *MockSessionRepository) DeleteByTokenHash(ctx context.Context, tokenHash string) error {
	if m.DeleteByTokenHashFunc != nil {
		return m.DeleteByTokenHashFunc(ctx, tokenHash)
	}
	return nil
}

func (m *MockSessionRepository) DeleteAllForUser(ctx context.Context, userID string) error {
	if m.DeleteAllForUserFunc != nil {
		return m.DeleteAllForUserFunc(ctx, userID)
	}
	return nil
}

// MockEmailVerificationRepository implements EmailVerificationRepository for testing
type MockEmailVerificationRepository struct {
	CreateFunc             func(ctx context.Context, userID, tokenHash string, expiresAt time.Time) (*models.OneTimeToken, error)
	GetByTokenHashFunc     func(ctx context.Context, tokenHash string) (*models.OneTimeToken, error)
	InvalidateByUserIDFunc func(ctx context.Context, userID string) error
	ConsumeFunc            func(ctx context.Context, tokenID, userID string) error
}

func (m *MockEmailVerificationRepository) Create(ctx context.Context, userID, tokenHash string, expiresAt time.Time) (*models.OneTimeToken, error) {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, userID, tokenHash, expiresAt)
	}
	return &models.OneTimeToken{ID: "token_test", UserID: userID, TokenHash: tokenHash, ExpiresAt: expiresAt, CreatedAt: time.Now()}, nil
}

func (m *MockEmailVerificationRepository) GetByTokenHash(ctx context.Context, tokenHash string) (*models.OneTimeToken, error) {
	if m.GetByTokenHashFunc != nil {
		return m.GetByTokenHashFunc(ctx, tokenHash)
	}
	return nil, models.ErrNotFound
}

func (m *MockEmailVerificationRepository) InvalidateByUserID(ctx context.Context, userID string) error {
	if m.InvalidateByUserIDFunc != nil {
		return m.InvalidateByUserIDFunc(ctx, userID)
	}
	return nil
}

func (m *MockEmailVerificationRepository) Consume(ctx context.Context, tokenID, userID string) error {
	if m.ConsumeFunc != nil {
		return m.ConsumeFunc(ctx, tokenID, userID)
	}
	return nil
}

// MockPasswordResetRepository implements PasswordResetRepository for testing
type MockPasswordResetRepository struct {
	CreateFunc             func(ctx context.Context, userID, tokenHash string, expiresAt time.Time) (*models.OneTimeToken, error)
	GetByTokenHashFunc     func(ctx context.Context, tokenHash string) (*models.OneTimeToken, error)
	InvalidateByUserIDFunc func(ctx context.Context, userID string) error
	ConsumeFunc            func(ctx context.Context, tokenID, userID, passwordHash string) error
}

func (m *MockPasswordResetRepository) Create(ctx context.Context, userID, tokenHash string, expiresAt time.Time) (*models.OneTimeToken, error) {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, userID, tokenHash, expiresAt)
	}
	return &models.OneTimeToken{ID: "token_test", UserID: userID, TokenHash: tokenHash, ExpiresAt: expiresAt, CreatedAt: time.Now()}, nil
}

func (m *MockPasswordResetRepository) GetByTokenHash(ctx context.Context, tokenHash string) (*models.OneTimeToken, error) {
	if m.GetByTokenHashFunc != nil {
		return m.GetByTokenHashFunc(ctx, tokenHash)
	}
	return nil, models.ErrNotFound
}

func (m *MockPasswordResetRepository) InvalidateByUserID(ctx context.Context, userID string) error {
	if m.InvalidateByUserIDFunc != nil {
		return m.InvalidateByUserIDFunc(ctx, userID)
	}
	return nil
}

func (m *MockPasswordResetRepository) Consume(ctx context.Context, tokenID, userID, passwordHash string) error {
	if m.ConsumeFunc != nil {
		return m.ConsumeFunc(ctx, tokenID, userID, passwordHash)
	}
	return nil
}

// MockOAuthAccountRepository implements OAuthAccountRepository for testing
type MockOAuthAccountRepository struct {
	GetByProviderAccountFunc func(ctx context.Context, provider, providerAccountID string) (*models.OAuthAccount, error)
	CreateFunc               func(ctx context.Context, account *models.OAuthAccount) (*models.OAuthAccount, error)
	UpdateTokensFunc         func(ctx context.Context, id, accessToken, refreshToken string, tokenExpiresAt *time.Time) error
}

func (m *MockOAuthAccountRepository) GetByProviderAccount(ctx context.Context, provider, providerAccountID string) (*models.OAuthAccount, error) {
	if m.GetByProviderAccountFunc != nil {
		return m.GetByProviderAccountFunc(ctx, provider, providerAccountID)
	}
	return nil, models.ErrNotFound
}

func (m *MockOAuthAccountRepository) Create(ctx context.Context, account *models.OAuthAccount) (*models.OAuthAccount, error) {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, account)
	}
	created := *account
	created.ID = "oauth_test"
	created.CreatedAt = time.Now()
	created.UpdatedAt = created.CreatedAt
	return &created, nil
}

func (m *MockOAuthAccountRepository) UpdateTokens(ctx context.Context, id, accessToken, refreshToken string, tokenExpiresAt *time.Time) error {
	if m.UpdateTokensFunc != nil {
		return m.UpdateTokensFunc(ctx, id, accessToken, refreshToken, tokenExpiresAt)
	}
	return nil
}

// MockEmailService implements EmailService for testing
type MockEmailService struct {
	SendVerificationEmailFunc  func(ctx context.Context, email, token string, expiresAt time.Time) error
	SendPasswordResetEmailFunc func(ctx context.Context, email, token string, expiresAt time.Time) error
}

func (m *MockEmailService) SendVerificationEmail(ctx context.Context, email, token string, expiresAt time.Time) error {
	if m.SendVerificationEmailFunc != nil {
		return m.SendVerificationEmailFunc(ctx, email, token, expiresAt)
	}
	return nil
}

func (m *MockEmailService) SendPasswordResetEmail(ctx context.Context, email, token string, expiresAt time.Time) error {
	if m.SendPasswordResetEmailFunc != nil {
		return m.SendPasswordResetEmailFunc(ctx, email, token, expiresAt)
	}
	return nil
}

// MockVerificationSender implements VerificationSender for testing
type MockVerificationSender struct {
	SendVerificationEmailFunc func(ctx context.Context, userID, email string) error
}

func (m *MockVerificationSender) SendVerificationEmail(ctx context.Context, userID, email string) error {
	if m.SendVerificationEmailFunc != nil {
		return m.SendVerificationEmailFunc(ctx, userID, email)
	}
	return nil
}

// MockProvider implements Provider for testing
type MockProvider struct {
	NameValue        string
	AuthCodeURLFunc  func(state string) string
	ExchangeFunc     func(ctx context.Context, code string) (*oauth2.Token, error)
	FetchProfileFunc func(ctx context.Context, token *oauth2.Token) (*Profile, error)
}

func (m *MockProvider) Name() string {
	if m.NameValue != "" {
		return m.NameValue
	}
	return "mock"
}

func (m *MockProvider) AuthCodeURL(state string) string {
	if m.AuthCodeURLFunc != nil {
		return m.AuthCodeURLFunc(state)
	}
	return "https://provider.example.com/authorize?state=" + state
}

func (m *MockProvider) Exchange(ctx context.Context, code string) (*oauth2.Token, error) {
	if m.ExchangeFunc != nil {
		return m.ExchangeFunc(ctx, code)
	}
	return &oauth2.Token{AccessToken: "provider_access_token"}, nil
}

func (m *MockProvider) FetchProfile(ctx context.Context, token *oauth2.Token) (*Profile, error) {
	if m.FetchProfileFunc != nil {
		return m.FetchProfileFunc(ctx, token)
	}
	return &Profile{ProviderAccountID: "ext_123", Email: "user@example.com", Name: "Mock User", EmailVerified: true}, nil
}

// MockProductRepository implements ProductRepository for testing
type MockProductRepository struct {
	GetByIDFunc func(ctx context.Context, id string) (*models.Product, error)
	ListFunc    func(ctx context.Context, activeOnly bool, limit, offset int) ([]*models.Product, error)
	CreateFunc  func(ctx context.Context, product *models.Product) (*models.Product, error)
	UpdateFunc  func(ctx context.Context, id string, product *models.Product) (*models.Product, error)
	DeleteFunc  func(ctx context.Context, id string) error
}

func (m *MockProductRepository) GetByID(ctx context.Context, id string) (*models.Product, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, id)
	}
	return nil, models.ErrNotFound
}

func (m *MockProductRepository) List(ctx context.Context, activeOnly bool, limit, offset int) ([]*models.Product, error) {
	if m.ListFunc != nil {
		return m.ListFunc(ctx, activeOnly, limit, offset)
	}
	return []*models.Product{}, nil
}

func (m *MockProductRepository) Create(ctx context.Context, product *models.Product) (*models.Product, error) {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, product)
	}
	created := *product
	created.ID = "product_test"
	created.CreatedAt = time.Now()
	created.UpdatedAt = created.CreatedAt
	return &created, nil
}

func (m *MockProductRepository) Update(ctx context.Context, id string, product *models.Product) (*models.Product, error) {
	if m.UpdateFunc != nil {
		return m.UpdateFunc(ctx, id, product)
	}
	return product, nil
}

func (m *MockProductRepository) Delete(ctx context.Context, id string) error {
	if m.DeleteFunc != nil {
		return m.DeleteFunc(ctx, id)
	}
	return nil
}

// NewTestUser creates a verified user for tests
func NewTestUser(id, email, name string) *models.User {
	now := time.Now()
	return &models.User{
		ID:            id,
		Email:         email,
		Name:          name,
		Role:          models.RoleUser,
		EmailVerified: true,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

// NewTestUserWithPassword creates a user with the given password hash
func NewTestUserWithPassword(id, email, name, passwordHash string) *models.User {
	user := NewTestUser(id, email, name)
	user.PasswordHash = passwordHash
	return user
}

// NewTestOneTimeToken creates a valid one-time token for tests
func NewTestOneTimeToken(id, userID, tokenHash string, expiresAt time.Time) *models.OneTimeToken {
	return &models.OneTimeToken{
		ID:        id,
		UserID:    userID,
		TokenHash: tokenHash,
		ExpiresAt: expiresAt,
		CreatedAt: time.Now(),
	}
}

// NewTestOneTimeTokenUsed creates an already consumed token
func NewTestOneTimeTokenUsed(id, userID, tokenHash string) *models.OneTimeToken {
	now := time.Now()
	token := NewTestOneTimeToken(id, userID, tokenHash, now.Add(time.Hour))
	token.UsedAt = &now
	return token
}

// NewTestSession creates an active session row for tests
func NewTestSession(id, userID, tokenHash string, expiresAt time.Time) *models.Session {
	return &models.Session{
		ID:        id,
		UserID:    userID,
		TokenHash: tokenHash,
		UserAgent: "test-agent",
		IPAddress: "127.0.0.1",
		ExpiresAt: expiresAt,
		CreatedAt: time.Now(),
	}
}
