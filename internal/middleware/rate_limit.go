package middleware

import (
	"net/http"
	"time"

	pkghttp "github.com/brightmarket/storefront/pkg/http"
	"github.com/go-chi/httprate"
)

// RateLimitConfig holds rate limiting configuration
type RateLimitConfig struct {
	Requests int
	Window   time.Duration
}

// AuthRateLimit returns the limit applied to credential endpoints: login,
// registration, and the token-mailing endpoints. Tight enough to slow
// guessing, loose enough for a user who mistypes a few times.
func AuthRateLimit() RateLimitConfig {
	return RateLimitConfig{Requests: 10, Window: time.Minute}
}

// RateLimitByIP creates a middleware that rate limits requests by client IP
// and answers over-limit requests with the standard error envelope
func RateLimitByIP(config RateLimitConfig) func(next http.Handler) http.Handler {
	return httprate.Limit(
		config.Requests,
		config.Window,
		httprate.WithKeyByRealIP(),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			pkghttp.WriteTooManyRequests(w, "Too many requests. Please try again later.")
		}),
	)
}
