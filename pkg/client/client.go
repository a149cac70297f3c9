// Package client provides a Go client for the storefront API. It mirrors the
// behavior of a browser session: the refresh token lives in a cookie jar, the
// access token is cached in memory, and a 401 on an authenticated call
// triggers one silent refresh before the call is retried.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"sync"
	"time"
)

// User is the client-side view of an account
type User struct {
	ID            string `json:"id"`
	Email         string `json:"email"`
	Name          string `json:"name"`
	Role          string `json:"role"`
	EmailVerified bool   `json:"emailVerified"`
	AvatarURL     string `json:"avatarUrl,omitempty"`
	CreatedAt     string `json:"createdAt"`
	UpdatedAt     string `json:"updatedAt"`
}

// Result is the uniform outcome of every client operation. Expected API
// failures (wrong password, expired token) are reported here rather than as
// Go errors, so callers branch on Success and ErrorCode.
type Result struct {
	Success   bool
	Message   string // success message, when the API returns one
	ErrorCode string // error code from the API, or ErrCodeNetwork
	Error     string // human-readable error message
}

// ErrCodeNetwork marks failures that never reached the API
const ErrCodeNetwork = "NETWORK_ERROR"

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *apiError       `json:"error"`
}

type apiError struct {
	Message string `json:"message"`
	Code    string `json:"code"`
	Details string `json:"details,omitempty"`
}

type authPayload struct {
	User        *User  `json:"user"`
	AccessToken string `json:"accessToken"`
}

type messagePayload struct {
	Message string `json:"message"`
}

// Client talks to the storefront API on behalf of one user session
type Client struct {
	baseURL string
	http    *http.Client

	mu          sync.Mutex
	accessToken string
	user        *User
}

// New creates a client for the API at baseURL (e.g. "http://localhost:8080").
// The underlying cookie jar holds the refresh token between calls.
func New(baseURL string) (*Client, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create cookie jar: %w", err)
	}
	return &Client{
		baseURL: baseURL,
		http: &http.Client{
			Jar:     jar,
			Timeout: 30 * time.Second,
		},
	}, nil
}

// CurrentUser returns the cached user from the last successful
// login/register/refresh, or nil when logged out
func (c *Client) CurrentUser() *User {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.user
}

// AccessToken returns the cached access token, empty when logged out
func (c *Client) AccessToken() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.accessToken
}

// Register creates an account and starts a session
func (c *Client) Register(ctx context.Context, email, password, name string) Result {
	body := map[string]any{"email": email, "password": password, "name": name}
	return c.authCall(ctx, "/api/v1/auth/register", body)
}

// Login starts a session with email and password
func (c *Client) Login(ctx context.Context, email, password string, rememberMe bool) Result {
	body := map[string]any{"email": email, "password": password, "rememberMe": rememberMe}
	return c.authCall(ctx, "/api/v1/auth/login", body)
}

func (c *Client) authCall(ctx context.Context, path string, body any) Result {
	env, res := c.call(ctx, http.MethodPost, path, body, false)
	if !res.Success {
		return res
	}

	var payload authPayload
	if err := json.Unmarshal(env.Data, &payload); err != nil {
		return Result{ErrorCode: ErrCodeNetwork, Error: "malformed response: " + err.Error()}
	}

	c.mu.Lock()
	c.accessToken = payload.AccessToken
	c.user = payload.User
	c.mu.Unlock()

	return res
}

// Logout ends the session on the server and clears local state. Local state
// is cleared even when the server call fails.
func (c *Client) Logout(ctx context.Context) Result {
	_, res := c.call(ctx, http.MethodPost, "/api/v1/auth/logout", nil, false)
	c.clearSession()
	return res
}

// Refresh exchanges the refresh cookie for a new access token
func (c *Client) Refresh(ctx context.Context) Result {
	env, res := c.call(ctx, http.MethodPost, "/api/v1/auth/refresh", nil, false)
	if !res.Success {
		c.clearSession()
		return res
	}

	var payload authPayload
	if err := json.Unmarshal(env.Data, &payload); err != nil {
		return Result{ErrorCode: ErrCodeNetwork, Error: "malformed response: " + err.Error()}
	}

	c.mu.Lock()
	c.accessToken = payload.AccessToken
	c.user = payload.User
	c.mu.Unlock()

	return res
}

// ForgotPassword requests a password reset email. The API answers
// identically whether or not the email is registered.
func (c *Client) ForgotPassword(ctx context.Context, email string) Result {
	_, res := c.call(ctx, http.MethodPost, "/api/v1/auth/forgot-password", map[string]any{"email": email}, false)
	return res
}

// ResetPassword sets a new password using a token from a reset email.
// All other sessions for the account are revoked by the server.
func (c *Client) ResetPassword(ctx context.Context, token, newPassword string) Result {
	body := map[string]any{"token": token, "password": newPassword}
	_, res := c.call(ctx, http.MethodPost, "/api/v1/auth/reset-password", body, false)
	return res
}

// VerifyEmail confirms an email address using a token from a
// verification email
func (c *Client) VerifyEmail(ctx context.Context, token string) Result {
	_, res := c.call(ctx, http.MethodPost, "/api/v1/auth/verify-email", map[string]any{"token": token}, false)
	return res
}

// ResendVerification requests a fresh verification email
func (c *Client) ResendVerification(ctx context.Context, email string) Result {
	_, res := c.call(ctx, http.MethodPost, "/api/v1/auth/resend-verification", map[string]any{"email": email}, false)
	return res
}

// Me fetches the current user's profile and refreshes the cache
func (c *Client) Me(ctx context.Context) Result {
	env, res := c.call(ctx, http.MethodGet, "/api/v1/users/me", nil, true)
	if !res.Success {
		return res
	}
	return c.cacheUser(env, res)
}

// UpdateProfile updates the current user's name and/or avatar URL.
// Empty fields are left unchanged.
func (c *Client) UpdateProfile(ctx context.Context, name, avatarURL string) Result {
	body := map[string]any{}
	if name != "" {
		body["name"] = name
	}
	if avatarURL != "" {
		body["avatarUrl"] = avatarURL
	}
	env, res := c.call(ctx, http.MethodPatch, "/api/v1/users/me", body, true)
	if !res.Success {
		return res
	}
	return c.cacheUser(env, res)
}

// LogoutAll revokes every session for the account, then clears local state
func (c *Client) LogoutAll(ctx context.Context) Result {
	_, res := c.call(ctx, http.MethodPost, "/api/v1/auth/logout-all", nil, true)
	if res.Success {
		c.clearSession()
	}
	return res
}

func (c *Client) cacheUser(env *envelope, res Result) Result {
	var user User
	if err := json.Unmarshal(env.Data, &user); err != nil {
		return Result{ErrorCode: ErrCodeNetwork, Error: "malformed response: " + err.Error()}
	}
	c.mu.Lock()
	c.user = &user
	c.mu.Unlock()
	return res
}

func (c *Client) clearSession() {
	c.mu.Lock()
	c.accessToken = ""
	c.user = nil
	c.mu.Unlock()
}

// call performs one API request. Authenticated calls that come back 401 get
// a single refresh-and-retry; a failed refresh clears local session state.
func (c *Client) call(ctx context.Context, method, path string, body any, authed bool) (*envelope, Result) {
	env, status, err := c.do(ctx, method, path, body, authed)
	if err != nil {
		return nil, Result{ErrorCode: ErrCodeNetwork, Error: err.Error()}
	}

	if authed && status == http.StatusUnauthorized {
		if refresh := c.Refresh(ctx); !refresh.Success {
			return nil, resultFromEnvelope(env)
		}
		env, status, err = c.do(ctx, method, path, body, authed)
		if err != nil {
			return nil, Result{ErrorCode: ErrCodeNetwork, Error: err.Error()}
		}
	}
	_ = status

	return env, resultFromEnvelope(env)
}

func (c *Client) do(ctx context.Context, method, path string, body any, authed bool) (*envelope, int, error) {
	var reader *bytes.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(encoded)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, 0, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if authed {
		if token := c.AccessToken(); token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return nil, resp.StatusCode, fmt.Errorf("failed to decode response: %w", err)
	}
	return &env, resp.StatusCode, nil
}

func resultFromEnvelope(env *envelope) Result {
	if env == nil {
		return Result{ErrorCode: ErrCodeNetwork, Error: "no response"}
	}
	if !env.Success {
		res := Result{}
		if env.Error != nil {
			res.ErrorCode = env.Error.Code
			res.Error = env.Error.Message
		}
		return res
	}

	res := Result{Success: true}
	var msg messagePayload
	if len(env.Data) > 0 && json.Unmarshal(env.Data, &msg) == nil {
		res.Message = msg.Message
	}
	return res
}
