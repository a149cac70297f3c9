package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/brightmarket/storefront/internal/config"
	"github.com/brightmarket/storefront/internal/models"
	pkglogger "github.com/brightmarket/storefront/pkg/logger"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/facebook"
	"golang.org/x/oauth2/google"
)

// profileFetchTimeout bounds the outbound call to the provider's profile
// endpoint so a slow provider cannot hold the callback handler open.
const profileFetchTimeout = 10 * time.Second

// Profile is the normalized identity returned by a provider
type Profile struct {
	ProviderAccountID string
	Email             string
	Name              string
	AvatarURL         string
	EmailVerified     bool
}

// Provider abstracts one external identity provider
type Provider interface {
	Name() string
	AuthCodeURL(state string) string
	Exchange(ctx context.Context, code string) (*oauth2.Token, error)
	FetchProfile(ctx context.Context, token *oauth2.Token) (*Profile, error)
}

// OAuthAccountRepository defines the interface for provider link data access
type OAuthAccountRepository interface {
	GetByProviderAccount(ctx context.Context, provider, providerAccountID string) (*models.OAuthAccount, error)
	Create(ctx context.Context, account *models.OAuthAccount) (*models.OAuthAccount, error)
	UpdateTokens(ctx context.Context, id, accessToken, refreshToken string, tokenExpiresAt *time.Time) error
}

// LinkOutcome describes how a provider identity was reconciled to a user
type LinkOutcome int

const (
	// OutcomeExistingLink means the provider identity was already linked
	OutcomeExistingLink LinkOutcome = iota
	// OutcomeLinkedByEmail means the identity was attached to an existing
	// account that shares the provider-verified email
	OutcomeLinkedByEmail
	// OutcomeCreated means a new account was provisioned for the identity
	OutcomeCreated
)

func (o LinkOutcome) String() string {
	switch o {
	case OutcomeExistingLink:
		return "existing_link"
	case OutcomeLinkedByEmail:
		return "linked_by_email"
	case OutcomeCreated:
		return "created"
	default:
		return "unknown"
	}
}

// OAuthService drives the provider login flow: redirect, code exchange,
// profile fetch, and reconciliation against local accounts
type OAuthService struct {
	providers   map[string]Provider
	userRepo    UserRepository
	accountRepo OAuthAccountRepository
	logger      *slog.Logger
	auditLogger *pkglogger.AuditLogger
}

// NewOAuthService creates a new OAuthService
func NewOAuthService(
	providers map[string]Provider,
	userRepo UserRepository,
	accountRepo OAuthAccountRepository,
	logger *slog.Logger,
	auditLogger *pkglogger.AuditLogger,
) *OAuthService {
	return &OAuthService{
		providers:   providers,
		userRepo:    userRepo,
		accountRepo: accountRepo,
		logger:      logger,
		auditLogger: auditLogger,
	}
}

// ProviderByName returns the configured provider or ErrNotFound
func (s *OAuthService) ProviderByName(name string) (Provider, error) {
	provider, ok := s.providers[name]
	if !ok {
		return nil, models.ErrNotFound
	}
	return provider, nil
}

// HandleCallback exchanges the authorization code, fetches the profile, and
// reconciles it to a local user
func (s *OAuthService) HandleCallback(ctx context.Context, providerName, code string, meta RequestMeta) (*models.User, LinkOutcome, error) {
	provider, err := s.ProviderByName(providerName)
	if err != nil {
		return nil, 0, err
	}

	token, err := provider.Exchange(ctx, code)
	if err != nil {
		s.logger.Info("oauth code exchange failed",
			slog.String("provider", providerName),
			slog.Any("error", err))
		s.auditLogger.LogAuthAttempt(pkglogger.AuditEvent{
			EventType:     "oauth_login_failed",
			Provider:      providerName,
			IPAddress:     meta.IPAddress,
			FailureReason: "code_exchange_failed",
			Success:       false,
		})
		return nil, 0, models.ErrUnauthorized
	}

	profile, err := provider.FetchProfile(ctx, token)
	if err != nil {
		s.logger.Error("oauth profile fetch failed",
			slog.String("provider", providerName),
			slog.Any("error", err))
		s.auditLogger.LogAuthAttempt(pkglogger.AuditEvent{
			EventType:     "oauth_login_failed",
			Provider:      providerName,
			IPAddress:     meta.IPAddress,
			FailureReason: "profile_fetch_failed",
			Success:       false,
		})
		return nil, 0, models.ErrUnauthorized
	}

	user, outcome, err := s.Reconcile(ctx, providerName, profile, token)
	if err != nil {
		s.auditLogger.LogAuthAttempt(pkglogger.AuditEvent{
			EventType:     "oauth_login_failed",
			Provider:      providerName,
			IPAddress:     meta.IPAddress,
			FailureReason: "reconcile_failed",
			Success:       false,
		})
		return nil, 0, err
	}

	if err := s.userRepo.TouchLogin(ctx, user.ID); err != nil {
		s.logger.Error("failed to update last login", slog.String("user_id", user.ID), slog.Any("error", err))
	}

	s.auditLogger.LogAuthAttempt(pkglogger.AuditEvent{
		EventType: "oauth_login_success",
		UserID:    user.ID,
		Provider:  providerName,
		IPAddress: meta.IPAddress,
		UserAgent: meta.UserAgent,
		Success:   true,
		Metadata:  map[string]string{"outcome": outcome.String()},
	})

	return user, outcome, nil
}

// Reconcile maps a provider identity onto a local account. Three cases, in
// order: the identity is already linked; an account with the same email
// exists and gets the identity attached; no account exists and one is
// created. In every case the email ends up verified (the provider vouched
// for it) and name/avatar follow the provider profile.
func (s *OAuthService) Reconcile(ctx context.Context, providerName string, profile *Profile, token *oauth2.Token) (*models.User, LinkOutcome, error) {
	if profile.Email == "" {
		s.logger.Info("oauth profile has no email", slog.String("provider", providerName))
		return nil, 0, models.ErrOAuthNoEmail
	}

	account, err := s.accountRepo.GetByProviderAccount(ctx, providerName, profile.ProviderAccountID)
	if err == nil {
		if err := s.accountRepo.UpdateTokens(ctx, account.ID, token.AccessToken, token.RefreshToken, tokenExpiry(token)); err != nil {
			s.logger.Error("failed to update provider tokens",
				slog.String("oauth_account_id", account.ID),
				slog.Any("error", err))
		}

		user, err := s.userRepo.GetByID(ctx, account.UserID)
		if err != nil {
			s.logger.Error("linked user missing for oauth account",
				slog.String("oauth_account_id", account.ID),
				slog.Any("error", err))
			return nil, 0, models.ErrInternalServer
		}
		return s.syncProfile(ctx, user, profile), OutcomeExistingLink, nil
	}
	if !errors.Is(err, models.ErrNotFound) {
		s.logger.Error("failed to look up oauth account", slog.Any("error", err))
		return nil, 0, models.ErrInternalServer
	}

	user, err := s.userRepo.GetByEmail(ctx, profile.Email)
	if err == nil {
		if _, err := s.createLink(ctx, providerName, user.ID, profile, token); err != nil {
			return nil, 0, err
		}
		s.logger.Info("oauth identity linked to existing account",
			slog.String("provider", providerName),
			slog.String("user_id", user.ID))
		return s.syncProfile(ctx, user, profile), OutcomeLinkedByEmail, nil
	}
	if !errors.Is(err, models.ErrNotFound) {
		s.logger.Error("failed to look up user by email", slog.Any("error", err))
		return nil, 0, models.ErrInternalServer
	}

	user, err = s.userRepo.Create(ctx, &models.User{
		Email:         profile.Email,
		Name:          profile.Name,
		Role:          models.RoleUser,
		EmailVerified: true,
		AvatarURL:     profile.AvatarURL,
	})
	if err != nil {
		s.logger.Error("failed to create user from oauth profile", slog.Any("error", err))
		return nil, 0, models.ErrInternalServer
	}

	if _, err := s.createLink(ctx, providerName, user.ID, profile, token); err != nil {
		return nil, 0, err
	}

	s.logger.Info("account created from oauth identity",
		slog.String("provider", providerName),
		slog.String("user_id", user.ID))
	return user, OutcomeCreated, nil
}

// syncProfile carries the provider's identity claims onto the local user:
// the email counts as verified once a provider vouched for it, and name and
// avatar follow the provider profile. The login proceeds even if the write
// fails; the next callback syncs again.
func (s *OAuthService) syncProfile(ctx context.Context, user *models.User, profile *Profile) *models.User {
	updated := *user
	updated.EmailVerified = true
	if profile.Name != "" {
		updated.Name = profile.Name
	}
	if profile.AvatarURL != "" {
		updated.AvatarURL = profile.AvatarURL
	}

	if updated.EmailVerified == user.EmailVerified && updated.Name == user.Name && updated.AvatarURL == user.AvatarURL {
		return user
	}

	synced, err := s.userRepo.Update(ctx, user.ID, &updated)
	if err != nil {
		s.logger.Error("failed to sync provider profile onto user",
			slog.String("user_id", user.ID),
			slog.Any("error", err))
		return &updated
	}
	return synced
}

func (s *OAuthService) createLink(ctx context.Context, providerName, userID string, profile *Profile, token *oauth2.Token) (*models.OAuthAccount, error) {
	account, err := s.accountRepo.Create(ctx, &models.OAuthAccount{
		UserID:            userID,
		Provider:          providerName,
		ProviderAccountID: profile.ProviderAccountID,
		AccessToken:       token.AccessToken,
		RefreshToken:      token.RefreshToken,
		TokenExpiresAt:    tokenExpiry(token),
	})
	if err != nil {
		s.logger.Error("failed to link oauth account",
			slog.String("provider", providerName),
			slog.String("user_id", userID),
			slog.Any("error", err))
		return nil, models.ErrInternalServer
	}
	return account, nil
}

func tokenExpiry(token *oauth2.Token) *time.Time {
	if token.Expiry.IsZero() {
		return nil
	}
	expiry := token.Expiry
	return &expiry
}

// oauthProvider is the shared provider implementation; only the profile
// endpoint parsing differs between Google and Facebook
type oauthProvider struct {
	name       string
	config     *oauth2.Config
	profileURL string
	parse      func(body []byte) (*Profile, error)
}

func (p *oauthProvider) Name() string {
	return p.name
}

func (p *oauthProvider) AuthCodeURL(state string) string {
	return p.config.AuthCodeURL(state, oauth2.AccessTypeOffline)
}

func (p *oauthProvider) Exchange(ctx context.Context, code string) (*oauth2.Token, error) {
	ctx, cancel := context.WithTimeout(ctx, profileFetchTimeout)
	defer cancel()
	return p.config.Exchange(ctx, code)
}

func (p *oauthProvider) FetchProfile(ctx context.Context, token *oauth2.Token) (*Profile, error) {
	ctx, cancel := context.WithTimeout(ctx, profileFetchTimeout)
	defer cancel()

	client := p.config.Client(ctx, token)

	resp, err := client.Get(p.profileURL)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch profile: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("profile endpoint returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("failed to read profile response: %w", err)
	}

	return p.parse(body)
}

// NewGoogleProvider creates the Google OAuth provider
func NewGoogleProvider(cfg config.ProviderConfig) Provider {
	return &oauthProvider{
		name: models.ProviderGoogle,
		config: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Scopes:       []string{"openid", "email", "profile"},
			Endpoint:     google.Endpoint,
		},
		profileURL: "https://www.googleapis.com/oauth2/v2/userinfo",
		parse: func(body []byte) (*Profile, error) {
			var info struct {
				ID            string `json:"id"`
				Email         string `json:"email"`
				VerifiedEmail bool   `json:"verified_email"`
				Name          string `json:"name"`
				Picture       string `json:"picture"`
			}
			if err := json.Unmarshal(body, &info); err != nil {
				return nil, fmt.Errorf("failed to parse google profile: %w", err)
			}
			return &Profile{
				ProviderAccountID: info.ID,
				Email:             info.Email,
				Name:              info.Name,
				AvatarURL:         info.Picture,
				EmailVerified:     info.VerifiedEmail,
			}, nil
		},
	}
}

// NewFacebookProvider creates the Facebook OAuth provider. Facebook omits
// the email field when the user registered by phone or withheld the email
// permission; reconciliation rejects those profiles.
func NewFacebookProvider(cfg config.ProviderConfig) Provider {
	return &oauthProvider{
		name: models.ProviderFacebook,
		config: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Scopes:       []string{"email", "public_profile"},
			Endpoint:     facebook.Endpoint,
		},
		profileURL: "https://graph.facebook.com/me?fields=" + url.QueryEscape("id,name,email,picture.type(large)"),
		parse: func(body []byte) (*Profile, error) {
			var info struct {
				ID      string `json:"id"`
				Name    string `json:"name"`
				Email   string `json:"email"`
				Picture struct {
					Data struct {
						URL string `json:"url"`
					} `json:"data"`
				} `json:"picture"`
			}
			if err := json.Unmarshal(body, &info); err != nil {
				return nil, fmt.Errorf("failed to parse facebook profile: %w", err)
			}
			return &Profile{
				ProviderAccountID: info.ID,
				Email:             info.Email,
				Name:              info.Name,
				AvatarURL:         info.Picture.Data.URL,
				EmailVerified:     info.Email != "",
			}, nil
		},
	}
}

// BuildProviders constructs the provider map from configuration, skipping
// providers without credentials
func BuildProviders(cfg config.OAuthConfig) map[string]Provider {
	providers := make(map[string]Provider)
	if cfg.Google.Configured() {
		providers[models.ProviderGoogle] = NewGoogleProvider(cfg.Google)
	}
	if cfg.Facebook.Configured() {
		providers[models.ProviderFacebook] = NewFacebookProvider(cfg.Facebook)
	}
	return providers
}
