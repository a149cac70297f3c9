package http

import (
	"net"
	"net/http"
	"net/netip"
	"strings"
)

// IPConfig names the proxy networks whose forwarding headers are trusted
type IPConfig struct {
	TrustedProxies []string // CIDR ranges
}

// ExtractClientIP resolves the real client address for a request.
// X-Forwarded-For and X-Real-IP are attacker-settable, so they only count
// when the TCP peer is one of the configured proxy ranges; otherwise the
// socket address wins.
func ExtractClientIP(r *http.Request, config *IPConfig) string {
	peer := peerAddr(r)

	if config == nil || !fromTrustedProxy(peer, config.TrustedProxies) {
		return peer
	}

	// leftmost valid X-Forwarded-For entry is the original client
	for _, part := range strings.Split(r.Header.Get("X-Forwarded-For"), ",") {
		candidate := strings.TrimSpace(part)
		if _, err := netip.ParseAddr(candidate); err == nil {
			return candidate
		}
	}

	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		if _, err := netip.ParseAddr(xri); err == nil {
			return xri
		}
	}

	return peer
}

// peerAddr strips the port from RemoteAddr
func peerAddr(r *http.Request) string {
	if r.RemoteAddr == "" {
		return "unknown"
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}

func fromTrustedProxy(peer string, trusted []string) bool {
	addr, err := netip.ParseAddr(peer)
	if err != nil {
		return false
	}

	for _, cidr := range trusted {
		prefix, err := netip.ParsePrefix(cidr)
		if err != nil {
			continue // malformed entries never widen trust
		}
		if prefix.Contains(addr) {
			return true
		}
	}
	return false
}
