package services

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/brightmarket/storefront/internal/config"
	"github.com/brightmarket/storefront/internal/models"
	pkglogger "github.com/brightmarket/storefront/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

func newTestOAuthService(
	providers map[string]Provider,
	userRepo UserRepository,
	accountRepo OAuthAccountRepository,
) *OAuthService {
	logger := slog.Default()
	return NewOAuthService(providers, userRepo, accountRepo, logger, pkglogger.NewAuditLogger(logger))
}

func TestOAuthService_ProviderByName(t *testing.T) {
	svc := newTestOAuthService(map[string]Provider{
		"google": &MockProvider{NameValue: "google"},
	}, &MockUserRepository{}, &MockOAuthAccountRepository{})

	provider, err := svc.ProviderByName("google")
	require.NoError(t, err)
	assert.Equal(t, "google", provider.Name())

	_, err = svc.ProviderByName("github")
	assert.ErrorIs(t, err, models.ErrNotFound)
}

// ============================================================================
// Reconcile
// ============================================================================

func TestOAuthService_Reconcile_ExistingLink(t *testing.T) {
	tokensUpdated := false
	mockAccountRepo := &MockOAuthAccountRepository{
		GetByProviderAccountFunc: func(ctx context.Context, provider, providerAccountID string) (*models.OAuthAccount, error) {
			return &models.OAuthAccount{ID: "oauth123", UserID: "user123", Provider: provider, ProviderAccountID: providerAccountID}, nil
		},
		UpdateTokensFunc: func(ctx context.Context, id, accessToken, refreshToken string, tokenExpiresAt *time.Time) error {
			tokensUpdated = true
			return nil
		},
	}
	var savedProfile *models.User
	mockUserRepo := &MockUserRepository{
		GetByIDFunc: func(ctx context.Context, id string) (*models.User, error) {
			return NewTestUser(id, "user@example.com", "Jane Doe"), nil
		},
		UpdateFunc: func(ctx context.Context, id string, user *models.User) (*models.User, error) {
			savedProfile = user
			return user, nil
		},
	}

	svc := newTestOAuthService(nil, mockUserRepo, mockAccountRepo)

	profile := &Profile{ProviderAccountID: "ext_123", Email: "user@example.com", Name: "Jane D.", AvatarURL: "https://img.example.com/new.jpg"}
	user, outcome, err := svc.Reconcile(context.Background(), "google", profile, &oauth2.Token{AccessToken: "at"})

	require.NoError(t, err)
	assert.Equal(t, OutcomeExistingLink, outcome)
	assert.Equal(t, "user123", user.ID)
	assert.True(t, tokensUpdated)

	require.NotNil(t, savedProfile, "profile changes must be written through")
	assert.Equal(t, "Jane D.", user.Name)
	assert.Equal(t, "https://img.example.com/new.jpg", user.AvatarURL)
}

func TestOAuthService_Reconcile_LinksByEmail(t *testing.T) {
	var linked *models.OAuthAccount
	mockAccountRepo := &MockOAuthAccountRepository{
		CreateFunc: func(ctx context.Context, account *models.OAuthAccount) (*models.OAuthAccount, error) {
			linked = account
			return account, nil
		},
	}
	updateCalled := false
	mockUserRepo := &MockUserRepository{
		GetByEmailFunc: func(ctx context.Context, email string) (*models.User, error) {
			user := NewTestUser("user123", email, "Jane Doe")
			user.EmailVerified = false
			return user, nil
		},
		UpdateFunc: func(ctx context.Context, id string, user *models.User) (*models.User, error) {
			updateCalled = true
			return user, nil
		},
	}

	svc := newTestOAuthService(nil, mockUserRepo, mockAccountRepo)

	profile := &Profile{ProviderAccountID: "ext_123", Email: "user@example.com", Name: "Jane Doe", AvatarURL: "https://img.example.com/p.jpg"}
	user, outcome, err := svc.Reconcile(context.Background(), "facebook", profile, &oauth2.Token{AccessToken: "at"})

	require.NoError(t, err)
	assert.Equal(t, OutcomeLinkedByEmail, outcome)
	assert.Equal(t, "user123", user.ID)
	require.NotNil(t, linked)
	assert.Equal(t, "user123", linked.UserID)
	assert.Equal(t, "facebook", linked.Provider)
	assert.Equal(t, "ext_123", linked.ProviderAccountID)

	// The provider vouched for the email, so a password-registered account
	// that was still pending verification becomes verified here.
	assert.True(t, updateCalled)
	assert.True(t, user.EmailVerified)
	assert.Equal(t, "https://img.example.com/p.jpg", user.AvatarURL)
}

func TestOAuthService_Reconcile_SkipsWriteWhenProfileUnchanged(t *testing.T) {
	mockAccountRepo := &MockOAuthAccountRepository{
		GetByProviderAccountFunc: func(ctx context.Context, provider, providerAccountID string) (*models.OAuthAccount, error) {
			return &models.OAuthAccount{ID: "oauth123", UserID: "user123"}, nil
		},
	}
	mockUserRepo := &MockUserRepository{
		GetByIDFunc: func(ctx context.Context, id string) (*models.User, error) {
			return NewTestUser(id, "user@example.com", "Jane Doe"), nil
		},
		UpdateFunc: func(ctx context.Context, id string, user *models.User) (*models.User, error) {
			t.Fatal("no update expected when the profile matches")
			return nil, nil
		},
	}

	svc := newTestOAuthService(nil, mockUserRepo, mockAccountRepo)

	profile := &Profile{ProviderAccountID: "ext_123", Email: "user@example.com", Name: "Jane Doe"}
	_, outcome, err := svc.Reconcile(context.Background(), "google", profile, &oauth2.Token{AccessToken: "at"})

	require.NoError(t, err)
	assert.Equal(t, OutcomeExistingLink, outcome)
}

func TestOAuthService_Reconcile_CreatesAccount(t *testing.T) {
	var createdUser *models.User
	mockUserRepo := &MockUserRepository{
		CreateFunc: func(ctx context.Context, user *models.User) (*models.User, error) {
			user.ID = "user_new"
			createdUser = user
			return user, nil
		},
	}

	svc := newTestOAuthService(nil, mockUserRepo, &MockOAuthAccountRepository{})

	profile := &Profile{ProviderAccountID: "ext_123", Email: "new@example.com", Name: "New User", AvatarURL: "https://img.example.com/p.jpg"}
	user, outcome, err := svc.Reconcile(context.Background(), "google", profile, &oauth2.Token{AccessToken: "at"})

	require.NoError(t, err)
	assert.Equal(t, OutcomeCreated, outcome)
	assert.Equal(t, "user_new", user.ID)

	require.NotNil(t, createdUser)
	assert.True(t, createdUser.EmailVerified, "provider-vouched email starts verified")
	assert.Empty(t, createdUser.PasswordHash)
	assert.Equal(t, models.RoleUser, createdUser.Role)
	assert.Equal(t, "https://img.example.com/p.jpg", createdUser.AvatarURL)
}

func TestOAuthService_Reconcile_RejectsProfileWithoutEmail(t *testing.T) {
	svc := newTestOAuthService(nil, &MockUserRepository{}, &MockOAuthAccountRepository{})

	profile := &Profile{ProviderAccountID: "ext_123", Name: "Phone Signup"}
	user, _, err := svc.Reconcile(context.Background(), "facebook", profile, &oauth2.Token{AccessToken: "at"})

	assert.ErrorIs(t, err, models.ErrOAuthNoEmail)
	assert.Nil(t, user)
}

// ============================================================================
// HandleCallback
// ============================================================================

func TestOAuthService_HandleCallback_Success(t *testing.T) {
	touched := false
	mockUserRepo := &MockUserRepository{
		CreateFunc: func(ctx context.Context, user *models.User) (*models.User, error) {
			user.ID = "user_new"
			return user, nil
		},
		TouchLoginFunc: func(ctx context.Context, id string) error {
			touched = true
			return nil
		},
	}
	providers := map[string]Provider{"google": &MockProvider{NameValue: "google"}}

	svc := newTestOAuthService(providers, mockUserRepo, &MockOAuthAccountRepository{})

	user, outcome, err := svc.HandleCallback(context.Background(), "google", "auth-code", testMeta)

	require.NoError(t, err)
	assert.Equal(t, OutcomeCreated, outcome)
	assert.Equal(t, "user_new", user.ID)
	assert.True(t, touched)
}

func TestOAuthService_HandleCallback_UnknownProvider(t *testing.T) {
	svc := newTestOAuthService(map[string]Provider{}, &MockUserRepository{}, &MockOAuthAccountRepository{})

	_, _, err := svc.HandleCallback(context.Background(), "github", "auth-code", testMeta)

	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestOAuthService_HandleCallback_ExchangeFailure(t *testing.T) {
	providers := map[string]Provider{
		"google": &MockProvider{
			NameValue: "google",
			ExchangeFunc: func(ctx context.Context, code string) (*oauth2.Token, error) {
				return nil, assert.AnError
			},
		},
	}

	svc := newTestOAuthService(providers, &MockUserRepository{}, &MockOAuthAccountRepository{})

	_, _, err := svc.HandleCallback(context.Background(), "google", "bad-code", testMeta)

	assert.ErrorIs(t, err, models.ErrUnauthorized)
}

func TestOAuthService_HandleCallback_ProfileFetchFailure(t *testing.T) {
	providers := map[string]Provider{
		"google": &MockProvider{
			NameValue: "google",
			FetchProfileFunc: func(ctx context.Context, token *oauth2.Token) (*Profile, error) {
				return nil, assert.AnError
			},
		},
	}

	svc := newTestOAuthService(providers, &MockUserRepository{}, &MockOAuthAccountRepository{})

	_, _, err := svc.HandleCallback(context.Background(), "google", "auth-code", testMeta)

	assert.ErrorIs(t, err, models.ErrUnauthorized)
}

// ============================================================================
// Providers
// ============================================================================

func testOAuthConfig(google, facebook bool) config.OAuthConfig {
	cfg := config.OAuthConfig{}
	if google {
		cfg.Google = config.ProviderConfig{ClientID: "id", ClientSecret: "secret", RedirectURL: "https://api.example.com/oauth/google/callback"}
	}
	if facebook {
		cfg.Facebook = config.ProviderConfig{ClientID: "id", ClientSecret: "secret", RedirectURL: "https://api.example.com/oauth/facebook/callback"}
	}
	return cfg
}

func TestBuildProviders_SkipsUnconfigured(t *testing.T) {
	providers := BuildProviders(testOAuthConfig(true, false))
	assert.Contains(t, providers, models.ProviderGoogle)
	assert.NotContains(t, providers, models.ProviderFacebook)

	providers = BuildProviders(testOAuthConfig(false, false))
	assert.Empty(t, providers)
}

func TestLinkOutcome_String(t *testing.T) {
	assert.Equal(t, "existing_link", OutcomeExistingLink.String())
	assert.Equal(t, "linked_by_email", OutcomeLinkedByEmail.String())
	assert.Equal(t, "created", OutcomeCreated.String())
}
