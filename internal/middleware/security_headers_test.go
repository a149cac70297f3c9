package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func applySecurityHeaders(t *testing.T, env string, forwardedProto string) *httptest.ResponseRecorder {
	t.Helper()
	handler := SecurityHeaders(SecurityHeadersConfig{Env: env})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest("GET", "/", nil)
	if forwardedProto != "" {
		req.Header.Set("X-Forwarded-Proto", forwardedProto)
	}
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	return w
}

func TestSecurityHeaders_AlwaysPresent(t *testing.T) {
	w := applySecurityHeaders(t, "development", "")

	tests := []struct {
		header   string
		expected string
	}{
		{"X-Frame-Options", "DENY"},
		{"X-Content-Type-Options", "nosniff"},
		{"Referrer-Policy", "strict-origin-when-cross-origin"},
		{"Cross-Origin-Opener-Policy", "same-origin"},
		{"X-DNS-Prefetch-Control", "off"},
	}

	for _, tt := range tests {
		if got := w.Header().Get(tt.header); got != tt.expected {
			t.Errorf("Header %s: got %q, want %q", tt.header, got, tt.expected)
		}
	}

	// JSON-only API: CSP locks everything down
	csp := w.Header().Get("Content-Security-Policy")
	if !strings.Contains(csp, "default-src 'none'") {
		t.Errorf("CSP should deny all sources: %s", csp)
	}
}

func TestSecurityHeaders_HSTSOnlyOnProductionTLS(t *testing.T) {
	if hsts := applySecurityHeaders(t, "development", "https").Header().Get("Strict-Transport-Security"); hsts != "" {
		t.Errorf("HSTS must not be set in development, got %q", hsts)
	}

	if hsts := applySecurityHeaders(t, "production", "").Header().Get("Strict-Transport-Security"); hsts != "" {
		t.Errorf("HSTS must not be set on plain HTTP, got %q", hsts)
	}

	if hsts := applySecurityHeaders(t, "production", "https").Header().Get("Strict-Transport-Security"); hsts == "" {
		t.Error("HSTS missing on production HTTPS")
	}
}
