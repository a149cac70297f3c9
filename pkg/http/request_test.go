package http_test

import (
	"net/http/httptest"
	"testing"

	pkghttp "github.com/brightmarket/storefront/pkg/http"
	"github.com/stretchr/testify/assert"
)

// Forwarding headers are attacker-controlled unless the request came
// through a proxy we operate, so these tests pin the trust boundary.

func TestExtractClientIP_DirectConnection_IgnoresHeaders(t *testing.T) {
	req := httptest.NewRequest("GET", "/", nil)
	req.RemoteAddr = "203.0.113.10:54321"

	req.Header.Set("X-Forwarded-For", "1.2.3.4, 5.6.7.8")
	req.Header.Set("X-Real-IP", "192.168.1.1")

	config := &pkghttp.IPConfig{
		TrustedProxies: []string{"10.0.0.0/8", "127.0.0.1/32"},
	}

	ip := pkghttp.ExtractClientIP(req, config)

	assert.Equal(t, "203.0.113.10", ip, "headers from an untrusted peer must be ignored")
}

func TestExtractClientIP_TrustedProxy_UsesXForwardedFor(t *testing.T) {
	req := httptest.NewRequest("GET", "/", nil)
	req.RemoteAddr = "10.0.0.5:54321"

	req.Header.Set("X-Forwarded-For", "203.0.113.42, 10.0.0.5")

	config := &pkghttp.IPConfig{
		TrustedProxies: []string{"10.0.0.0/8"},
	}

	ip := pkghttp.ExtractClientIP(req, config)

	assert.Equal(t, "203.0.113.42", ip)
}

func TestExtractClientIP_TrustedProxy_FallsBackToXRealIP(t *testing.T) {
	req := httptest.NewRequest("GET", "/", nil)
	req.RemoteAddr = "10.0.0.5:54321"

	req.Header.Set("X-Real-IP", "203.0.113.42")

	config := &pkghttp.IPConfig{
		TrustedProxies: []string{"10.0.0.0/8"},
	}

	ip := pkghttp.ExtractClientIP(req, config)

	assert.Equal(t, "203.0.113.42", ip)
}

func TestExtractClientIP_NilConfig_DefaultsSecurely(t *testing.T) {
	req := httptest.NewRequest("GET", "/", nil)
	req.RemoteAddr = "203.0.113.10:54321"

	req.Header.Set("X-Forwarded-For", "1.2.3.4")

	ip := pkghttp.ExtractClientIP(req, nil)

	assert.Equal(t, "203.0.113.10", ip)
}

func TestExtractClientIP_EmptyProxyList_DefaultsSecurely(t *testing.T) {
	req := httptest.NewRequest("GET", "/", nil)
	req.RemoteAddr = "203.0.113.10:54321"

	req.Header.Set("X-Forwarded-For", "1.2.3.4")

	config := &pkghttp.IPConfig{TrustedProxies: []string{}}

	ip := pkghttp.ExtractClientIP(req, config)

	assert.Equal(t, "203.0.113.10", ip)
}

func TestExtractClientIP_InvalidCIDRIgnored(t *testing.T) {
	req := httptest.NewRequest("GET", "/", nil)
	req.RemoteAddr = "203.0.113.10:54321"

	req.Header.Set("X-Forwarded-For", "1.2.3.4")

	config := &pkghttp.IPConfig{
		TrustedProxies: []string{"not-a-cidr"},
	}

	ip := pkghttp.ExtractClientIP(req, config)

	assert.Equal(t, "203.0.113.10", ip, "invalid CIDR entries must not widen trust")
}

func TestExtractClientIP_SkipsGarbageXFFEntries(t *testing.T) {
	req := httptest.NewRequest("GET", "/", nil)
	req.RemoteAddr = "10.0.0.5:54321"

	req.Header.Set("X-Forwarded-For", "unknown, 203.0.113.42")

	config := &pkghttp.IPConfig{
		TrustedProxies: []string{"10.0.0.0/8"},
	}

	ip := pkghttp.ExtractClientIP(req, config)

	assert.Equal(t, "203.0.113.42", ip, "first valid entry wins, invalid entries skipped")
}

func TestExtractClientIP_IPv6TrustedProxy(t *testing.T) {
	req := httptest.NewRequest("GET", "/", nil)
	req.RemoteAddr = "[::1]:54321"

	req.Header.Set("X-Forwarded-For", "2001:db8::1")

	config := &pkghttp.IPConfig{
		TrustedProxies: []string{"::1/128"},
	}

	ip := pkghttp.ExtractClientIP(req, config)

	assert.Equal(t, "2001:db8::1", ip)
}

func TestExtractClientIP_StripsPortFromRemoteAddr(t *testing.T) {
	req := httptest.NewRequest("GET", "/", nil)
	req.RemoteAddr = "203.0.113.10:54321"

	ip := pkghttp.ExtractClientIP(req, nil)

	assert.Equal(t, "203.0.113.10", ip)
}
