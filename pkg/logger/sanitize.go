package logger

import "strings"

// SanitizedEmail masks an email for logging: "jane@example.com" becomes
// "j***@*******.com". Enough survives to correlate log lines without
// storing the address itself.
func SanitizedEmail(email string) string {
	at := strings.LastIndex(email, "@")
	if at <= 0 || at == len(email)-1 {
		return "[invalid-email]"
	}

	local, domain := email[:at], email[at+1:]

	masked := local[:1]
	if len(local) > 1 {
		masked += strings.Repeat("*", len(local)-1)
	}

	// keep the TLD, star out the rest of the domain
	if dot := strings.LastIndex(domain, "."); dot > 0 {
		domain = strings.Repeat("*", dot) + domain[dot:]
	}

	return masked + "@" + domain
}

// sensitive query parameter names; any appearance redacts the whole string
var sensitiveParams = []string{
	"password",
	"token",
	"secret",
	"api_key",
	"apikey",
	"email",
	"code",
	"state",
	"auth",
}

// SanitizeQueryString reports whether a raw query string carries anything
// that must not reach the logs. OAuth callbacks (code, state) and token
// links are the main offenders.
func SanitizeQueryString(rawQuery string) bool {
	query := strings.ToLower(rawQuery)
	for _, param := range sensitiveParams {
		if strings.Contains(query, param) {
			return true
		}
	}
	return false
}
