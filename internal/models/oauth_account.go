package models

import (
	"time"
)

// Supported external identity providers
const (
	ProviderGoogle   = "google"
	ProviderFacebook = "facebook"
)

// OAuthAccount links a User to one external identity.
// (provider, provider_account_id) is composite-unique: each external
// identity maps to exactly one local user, while a user may hold one
// account per provider.
type OAuthAccount struct {
	ID                string
	UserID            string
	Provider          string
	ProviderAccountID string
	AccessToken       string `json:"-"`
	RefreshToken      string `json:"-"`
	TokenExpiresAt    *time.Time
	CreatedAt         time.Time
	UpdatedAt         time.Time
}
