package models

import (
	"github.com/golang-jwt/jwt/v5"
)

// Token type discriminators carried in the "type" claim
const (
	TokenTypeAccess  = "access"
	TokenTypeRefresh = "refresh"
)

// TokenClaims are the JWT claims for both token kinds. Access tokens carry
// the identity payload (user id, email, role); refresh tokens carry the
// user id plus the id of the session row they were issued against.
type TokenClaims struct {
	Type      string `json:"type"`
	UserID    string `json:"user_id"`
	Email     string `json:"email,omitempty"`
	Role      string `json:"role,omitempty"`
	SessionID string `json:"session_id,omitempty"`
	jwt.RegisteredClaims
}
