package handlers

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"net/http"
	"net/url"
	"time"

	"github.com/brightmarket/storefront/internal/auth"
	"github.com/brightmarket/storefront/internal/models"
	"github.com/brightmarket/storefront/internal/services"
	pkghttp "github.com/brightmarket/storefront/pkg/http"
	"github.com/go-chi/chi/v5"
)

const (
	stateCookieName = "oauth_state"
	stateCookieTTL  = 10 * time.Minute
)

// OAuthServiceInterface defines the interface for the provider login flow
type OAuthServiceInterface interface {
	ProviderByName(name string) (services.Provider, error)
	HandleCallback(ctx context.Context, providerName, code string, meta services.RequestMeta) (*models.User, services.LinkOutcome, error)
}

// SessionIssuer mints a session for a user authenticated out-of-band
type SessionIssuer interface {
	IssueSession(ctx context.Context, user *models.User, rememberMe bool, meta services.RequestMeta) (*services.AuthResult, error)
}

// OAuthHandler handles the provider redirect and callback endpoints
type OAuthHandler struct {
	service      OAuthServiceInterface
	sessions     SessionIssuer
	ipConfig     *pkghttp.IPConfig
	cookieConfig auth.CookieConfig
	clientURL    string
}

// NewOAuthHandler creates a new OAuthHandler
func NewOAuthHandler(
	service OAuthServiceInterface,
	sessions SessionIssuer,
	ipConfig *pkghttp.IPConfig,
	cookieConfig auth.CookieConfig,
	clientURL string,
) *OAuthHandler {
	return &OAuthHandler{
		service:      service,
		sessions:     sessions,
		ipConfig:     ipConfig,
		cookieConfig: cookieConfig,
		clientURL:    clientURL,
	}
}

// Redirect handles GET /oauth/{provider}: it stores a random state in a
// short-lived cookie and sends the browser to the provider's consent page.
func (h *OAuthHandler) Redirect(w http.ResponseWriter, r *http.Request) {
	provider, err := h.service.ProviderByName(chi.URLParam(r, "provider"))
	if err != nil {
		pkghttp.WriteNotFound(w, "Unknown authentication provider")
		return
	}

	state, err := generateState()
	if err != nil {
		pkghttp.WriteInternalError(w)
		return
	}

	h.setStateCookie(w, state)
	http.Redirect(w, r, provider.AuthCodeURL(state), http.StatusTemporaryRedirect)
}

// Callback handles GET /oauth/{provider}/callback. Every failure lands the
// browser back on the login page with a generic error marker; only a full
// success carries an access token across.
func (h *OAuthHandler) Callback(w http.ResponseWriter, r *http.Request) {
	providerName := chi.URLParam(r, "provider")

	query := r.URL.Query()
	state := query.Get("state")
	code := query.Get("code")

	stateCookie, err := r.Cookie(stateCookieName)
	h.clearStateCookie(w)

	if err != nil || state == "" || stateCookie.Value != state {
		h.redirectFailure(w, r)
		return
	}

	if code == "" {
		// User denied consent or the provider errored out
		h.redirectFailure(w, r)
		return
	}

	meta := services.RequestMeta{
		UserAgent: r.Header.Get("User-Agent"),
		IPAddress: pkghttp.ExtractClientIP(r, h.ipConfig),
	}

	user, _, err := h.service.HandleCallback(r.Context(), providerName, code, meta)
	if err != nil {
		h.redirectFailure(w, r)
		return
	}

	result, err := h.sessions.IssueSession(r.Context(), user, false, meta)
	if err != nil {
		h.redirectFailure(w, r)
		return
	}

	auth.SetRefreshTokenCookie(w, result.RefreshToken, result.RefreshTTL, h.cookieConfig)

	redirect := h.clientURL + "/auth/callback?token=" + url.QueryEscape(result.AccessToken)
	http.Redirect(w, r, redirect, http.StatusTemporaryRedirect)
}

func (h *OAuthHandler) redirectFailure(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, h.clientURL+"/login?error=oauth_failed", http.StatusTemporaryRedirect)
}

// setStateCookie uses SameSite=Lax, not Strict: the callback arrives as a
// top-level navigation from the provider's domain and still needs the cookie.
func (h *OAuthHandler) setStateCookie(w http.ResponseWriter, state string) {
	http.SetCookie(w, &http.Cookie{
		Name:     stateCookieName,
		Value:    state,
		Path:     "/",
		Domain:   h.cookieConfig.Domain,
		MaxAge:   int(stateCookieTTL.Seconds()),
		HttpOnly: true,
		Secure:   h.cookieConfig.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

func (h *OAuthHandler) clearStateCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     stateCookieName,
		Value:    "",
		Path:     "/",
		Domain:   h.cookieConfig.Domain,
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.cookieConfig.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

func generateState() (string, error) {
	bytes := make([]byte, 32)
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}
	return base64.URLEncoding.EncodeToString(bytes), nil
}
