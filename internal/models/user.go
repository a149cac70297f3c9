package models

import (
	"time"
)

// Role values, ordered by privilege
const (
	RoleUser       = "user"
	RoleAdmin      = "admin"
	RoleSuperAdmin = "superadmin"
)

type User struct {
	ID                string
	Email             string
	PasswordHash      string // empty for OAuth-only users
	Name              string
	Role              string
	EmailVerified     bool
	AvatarURL         string
	LastLoginAt       *time.Time
	PasswordChangedAt *time.Time
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// ValidRole reports whether s is one of the known role values
func ValidRole(s string) bool {
	switch s {
	case RoleUser, RoleAdmin, RoleSuperAdmin:
		return true
	}
	return false
}
