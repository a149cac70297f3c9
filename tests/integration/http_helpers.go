package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/brightmarket/storefront/internal/auth"
	"github.com/brightmarket/storefront/internal/config"
	"github.com/brightmarket/storefront/internal/database"
	"github.com/brightmarket/storefront/internal/handlers"
	"github.com/brightmarket/storefront/internal/middleware"
	"github.com/brightmarket/storefront/internal/routes"
	"github.com/brightmarket/storefront/internal/services"
	pkghttp "github.com/brightmarket/storefront/pkg/http"
	pkglogger "github.com/brightmarket/storefront/pkg/logger"
)

// SentEmail is one captured outbound message
type SentEmail struct {
	To        string
	Kind      string // "verification" or "password_reset"
	Token     string
	ExpiresAt time.Time
}

// CapturingEmailService records emails instead of sending them, so tests
// can pull the plaintext tokens out of the "inbox"
type CapturingEmailService struct {
	mu   sync.Mutex
	sent []SentEmail
}

func (m *CapturingEmailService) SendVerificationEmail(ctx context.Context, email, token string, expiresAt time.Time) error {
	m.record(SentEmail{To: email, Kind: "verification", Token: token, ExpiresAt: expiresAt})
	return nil
}

func (m *CapturingEmailService) SendPasswordResetEmail(ctx context.Context, email, token string, expiresAt time.Time) error {
	m.record(SentEmail{To: email, Kind: "password_reset", Token: token, ExpiresAt: expiresAt})
	return nil
}

func (m *CapturingEmailService) record(email SentEmail) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, email)
}

// LastEmail returns the most recent captured email, or nil
func (m *CapturingEmailService) LastEmail() *SentEmail {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.sent) == 0 {
		return nil
	}
	last := m.sent[len(m.sent)-1]
	return &last
}

// Count returns the number of captured emails
func (m *CapturingEmailService) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sent)
}

// TestServer runs the full HTTP stack against a real database with
// email delivery captured in memory
type TestServer struct {
	Server *httptest.Server
	DB     *database.DB
	Emails *CapturingEmailService
	Config *config.Config
}

// NewTestServer wires repositories, services, handlers and routes the same
// way cmd/api does, minus rate limiting knobs that would slow tests down
func NewTestServer(db *database.DB) *TestServer {
	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))

	cfg := &config.Config{
		Server: config.ServerConfig{
			Port:      "0",
			Env:       "test",
			ClientURL: "http://localhost:3000",
		},
		Auth: config.AuthConfig{
			JWTSecret:          "test-secret-32-characters-long-!!",
			AccessTokenExpiry:  15 * time.Minute,
			RefreshTokenExpiry: 7 * 24 * time.Hour,
			RememberMeExpiry:   30 * 24 * time.Hour,
		},
		Email: config.EmailConfig{
			VerificationExpiry:  24 * time.Hour,
			PasswordResetExpiry: 1 * time.Hour,
		},
	}

	repos := InitializeRepositories(db)
	emails := &CapturingEmailService{}

	tokenManager := auth.NewTokenManager(
		cfg.Auth.JWTSecret,
		cfg.Auth.AccessTokenExpiry,
		cfg.Auth.RefreshTokenExpiry,
		cfg.Auth.RememberMeExpiry,
	)
	auditLogger := pkglogger.NewAuditLogger(logger)

	verificationService := services.NewEmailVerificationService(
		repos.Verifications,
		repos.Users,
		emails,
		logger,
		cfg.Email.VerificationExpiry,
	)
	authService := services.NewAuthService(
		repos.Users,
		repos.Sessions,
		repos.Resets,
		verificationService,
		emails,
		tokenManager,
		logger,
		auditLogger,
		cfg.Email.PasswordResetExpiry,
	)
	oauthService := services.NewOAuthService(
		services.BuildProviders(cfg.OAuth),
		repos.Users,
		repos.OAuthAccounts,
		logger,
		auditLogger,
	)
	userService := services.NewUserService(repos.Users, logger)
	productService := services.NewProductService(repos.Products, logger)

	ipConfig := &pkghttp.IPConfig{}
	cookieConfig := auth.CookieConfig{}

	authHandler := handlers.NewAuthHandler(authService, verificationService, ipConfig, cookieConfig)
	oauthHandler := handlers.NewOAuthHandler(oauthService, authService, ipConfig, cookieConfig, cfg.Server.ClientURL)
	userHandler := handlers.NewUserHandler(userService)
	productHandler := handlers.NewProductHandler(productService)

	r := chi.NewRouter()
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.Recoverer)
	// a loose limit so test suites never trip it
	routes.RegisterRoutes(r, authHandler, oauthHandler, userHandler, productHandler, tokenManager,
		middleware.RateLimitConfig{Requests: 10000, Window: time.Minute})

	return &TestServer{
		Server: httptest.NewServer(r),
		DB:     db,
		Emails: emails,
		Config: cfg,
	}
}

// Close shuts down the test server
func (ts *TestServer) Close() {
	if ts.Server != nil {
		ts.Server.Close()
	}
}

// Request makes an HTTP request to the test server
func (ts *TestServer) Request(method, path string, body any, headers map[string]string) (*http.Response, error) {
	var bodyReader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		bodyReader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequest(method, ts.Server.URL+path, bodyReader)
	if err != nil {
		return nil, err
	}

	req.Header.Set("Content-Type", "application/json")
	for key, value := range headers {
		req.Header.Set(key, value)
	}

	// No redirect following: OAuth callbacks redirect to the client app,
	// which doesn't exist in tests
	client := &http.Client{
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
	return client.Do(req)
}

// RequestWithAuth makes an HTTP request with a bearer token
func (ts *TestServer) RequestWithAuth(method, path, accessToken string, body any) (*http.Response, error) {
	return ts.Request(method, path, body, map[string]string{
		"Authorization": "Bearer " + accessToken,
	})
}

// Envelope mirrors the API response shape for decoding in tests
type Envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Message string `json:"message"`
		Code    string `json:"code"`
	} `json:"error"`
}

// ParseEnvelope decodes and closes a response body
func ParseEnvelope(resp *http.Response) (*Envelope, error) {
	defer resp.Body.Close()
	var env Envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	return &env, nil
}

// AuthData is the payload of successful register/login/refresh responses
type AuthData struct {
	User        json.RawMessage `json:"user"`
	AccessToken string          `json:"accessToken"`
}

// ExtractAuth pulls the access token from the body and the refresh token
// from the Set-Cookie header
func ExtractAuth(resp *http.Response) (accessToken, refreshToken string, err error) {
	for _, cookie := range resp.Cookies() {
		if cookie.Name == "refreshToken" {
			refreshToken = cookie.Value
		}
	}

	env, err := ParseEnvelope(resp)
	if err != nil {
		return "", "", err
	}
	if !env.Success {
		return "", "", fmt.Errorf("auth request failed: %+v", env.Error)
	}

	var data AuthData
	if err := json.Unmarshal(env.Data, &data); err != nil {
		return "", "", fmt.Errorf("failed to parse auth payload: %w", err)
	}
	return data.AccessToken, refreshToken, nil
}
