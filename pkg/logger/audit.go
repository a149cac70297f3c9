package logger

import (
	"context"
	"log/slog"
)

// AuditEvent is one security-relevant event: a credential login, an OAuth
// callback, a session revocation. Failed attempts log at Warn so they
// stand out in aggregation.
type AuditEvent struct {
	EventType     string // "login", "oauth_login", "refresh", ...
	UserID        string
	IPAddress     string
	UserAgent     string
	Provider      string // OAuth provider name, empty for password auth
	Success       bool
	FailureReason string
	Metadata      map[string]string // extra event-specific attrs, e.g. the OAuth link outcome
}

// AuditLogger writes the security audit trail through slog. It is a
// separate type from the application logger so audit lines are easy to
// filter: every record carries audit_type.
type AuditLogger struct {
	logger *slog.Logger
}

func NewAuditLogger(logger *slog.Logger) *AuditLogger {
	return &AuditLogger{logger: logger}
}

// LogAuthAttempt records a password or OAuth authentication attempt
func (al *AuditLogger) LogAuthAttempt(event AuditEvent) {
	attrs := []slog.Attr{
		slog.String("audit_type", "auth"),
		slog.String("event_type", event.EventType),
		slog.Bool("success", event.Success),
	}
	attrs = appendNonEmpty(attrs,
		"user_id", event.UserID,
		"ip_address", event.IPAddress,
		"user_agent", event.UserAgent,
		"provider", event.Provider,
		"failure_reason", event.FailureReason,
	)
	for key, val := range event.Metadata {
		attrs = append(attrs, slog.String(key, val))
	}

	al.write(event.Success, attrs)
}

// LogPasswordChange records a completed or failed password change/reset
func (al *AuditLogger) LogPasswordChange(userID, ipAddress string, success bool) {
	attrs := []slog.Attr{
		slog.String("audit_type", "password"),
		slog.String("event_type", "password_change"),
		slog.Bool("success", success),
		slog.String("user_id", userID),
	}
	attrs = appendNonEmpty(attrs, "ip_address", ipAddress)

	al.write(success, attrs)
}

// LogAccountAction records account lifecycle events: registration, role
// changes, deletion
func (al *AuditLogger) LogAccountAction(eventType, userID, ipAddress string, metadata map[string]string) {
	attrs := []slog.Attr{
		slog.String("audit_type", "account"),
		slog.String("event_type", eventType),
		slog.String("user_id", userID),
	}
	attrs = appendNonEmpty(attrs, "ip_address", ipAddress)
	for key, val := range metadata {
		attrs = append(attrs, slog.String(key, val))
	}

	al.write(true, attrs)
}

func (al *AuditLogger) write(success bool, attrs []slog.Attr) {
	level := slog.LevelInfo
	if !success {
		level = slog.LevelWarn
	}
	al.logger.LogAttrs(context.Background(), level, "audit", attrs...)
}

// appendNonEmpty appends key/value string pairs, skipping empty values
func appendNonEmpty(attrs []slog.Attr, pairs ...string) []slog.Attr {
	for i := 0; i+1 < len(pairs); i += 2 {
		if pairs[i+1] != "" {
			attrs = append(attrs, slog.String(pairs[i], pairs[i+1]))
		}
	}
	return attrs
}
