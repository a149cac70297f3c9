package models

import (
	"time"
)

// Session is the server-side record of an issued refresh token. The row,
// not the JWT claim, is the source of truth for revocation: deleting it
// immediately invalidates the refresh token it tracks.
type Session struct {
	ID        string
	UserID    string
	TokenHash string // SHA-256 of the refresh token, never the plaintext
	UserAgent string
	IPAddress string
	ExpiresAt time.Time
	CreatedAt time.Time
}

// IsExpired checks if the session has passed its expiry
func (s *Session) IsExpired() bool {
	return time.Now().After(s.ExpiresAt)
}
