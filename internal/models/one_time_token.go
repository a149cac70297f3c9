package models

import (
	"time"
)

// OneTimeToken backs both the email verification and password reset stores.
// The two tables are structurally identical; only the consumption side
// effect differs.
type OneTimeToken struct {
	ID        string
	UserID    string
	TokenHash string `json:"-"` // never expose the hash
	ExpiresAt time.Time
	UsedAt    *time.Time
	CreatedAt time.Time
}

// IsExpired checks if the token has expired
func (t *OneTimeToken) IsExpired() bool {
	return time.Now().After(t.ExpiresAt)
}

// IsUsed checks if the token has already been consumed
func (t *OneTimeToken) IsUsed() bool {
	return t.UsedAt != nil
}

// IsValid checks if the token is still consumable (not expired and not used)
func (t *OneTimeToken) IsValid() bool {
	return !t.IsExpired() && !t.IsUsed()
}
