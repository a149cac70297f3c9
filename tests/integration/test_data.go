package integration

import (
	"fmt"
	"time"
)

// UniqueEmail generates a test email address that won't collide across
// test runs sharing a database
func UniqueEmail(suffix string) string {
	return fmt.Sprintf("test-%d-%s@example.com", time.Now().UnixNano(), suffix)
}

// TestPassword is a valid password for seeded accounts
const TestPassword = "correct-horse-battery"
