package auth

import (
	"net/http"
	"time"
)

// RefreshCookieName is the cookie the refresh token travels in
const RefreshCookieName = "refreshToken"

// CookieConfig holds cookie configuration settings
type CookieConfig struct {
	Domain string // Empty string = current host only
	Secure bool   // HTTPS only
}

// SetRefreshTokenCookie sets the refresh token in an httpOnly cookie.
// SameSite is always Strict: the cookie only ever needs to reach the
// first-party /auth endpoints.
func SetRefreshTokenCookie(w http.ResponseWriter, refreshToken string, maxAge time.Duration, config CookieConfig) {
	cookie := &http.Cookie{
		Name:     RefreshCookieName,
		Value:    refreshToken,
		Path:     "/",
		Domain:   config.Domain,
		Expires:  time.Now().Add(maxAge),
		MaxAge:   int(maxAge.Seconds()),
		HttpOnly: true, // never readable from JavaScript
		Secure:   config.Secure,
		SameSite: http.SameSiteStrictMode,
	}
	http.SetCookie(w, cookie)
}

// ClearRefreshTokenCookie removes the refresh token cookie
func ClearRefreshTokenCookie(w http.ResponseWriter, config CookieConfig) {
	cookie := &http.Cookie{
		Name:     RefreshCookieName,
		Value:    "",
		Path:     "/",
		Domain:   config.Domain,
		MaxAge:   -1, // Negative MaxAge deletes the cookie
		HttpOnly: true,
		Secure:   config.Secure,
		SameSite: http.SameSiteStrictMode,
	}
	http.SetCookie(w, cookie)
}

// GetRefreshTokenCookie retrieves the refresh token from cookies
func GetRefreshTokenCookie(r *http.Request) (string, error) {
	cookie, err := r.Cookie(RefreshCookieName)
	if err != nil {
		return "", err
	}
	return cookie.Value, nil
}
