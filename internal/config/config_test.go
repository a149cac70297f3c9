package config

import (
	"os"
	"testing"
	"time"
)

func setRequiredEnv() {
	os.Setenv("JWT_SECRET", "test-secret-32-characters-long!!")
	os.Setenv("DB_PASSWORD", "test")
}

func TestLoad_RequiresJWTSecret(t *testing.T) {
	os.Clearenv()
	os.Setenv("DB_PASSWORD", "test")
	defer os.Clearenv()

	if _, err := Load(); err == nil {
		t.Fatal("Load() should fail without JWT_SECRET")
	}
}

func TestLoad_RequiresDBPassword(t *testing.T) {
	os.Clearenv()
	os.Setenv("JWT_SECRET", "test-secret-32-characters-long!!")
	defer os.Clearenv()

	if _, err := Load(); err == nil {
		t.Fatal("Load() should fail without DB_PASSWORD")
	}
}

func TestLoad_RejectsWeakJWTSecret(t *testing.T) {
	os.Clearenv()
	os.Setenv("DB_PASSWORD", "test")
	os.Setenv("JWT_SECRET", "short")
	defer os.Clearenv()

	if _, err := Load(); err == nil {
		t.Fatal("Load() should reject a JWT secret below the minimum length")
	}
}

func TestLoad_ProductionRequiresLongerJWTSecret(t *testing.T) {
	os.Clearenv()
	os.Setenv("DB_PASSWORD", "test")
	os.Setenv("JWT_SECRET", "sixteen-chars-ok") // fine in development
	defer os.Clearenv()

	if _, err := Load(); err != nil {
		t.Fatalf("16-char secret should pass in development: %v", err)
	}

	os.Setenv("ENV", "production")
	if _, err := Load(); err == nil {
		t.Fatal("16-char secret should fail in production")
	}
}

func TestLoad_AuthDefaults(t *testing.T) {
	os.Clearenv()
	setRequiredEnv()
	defer os.Clearenv()

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() = %v, want nil", err)
	}

	tests := []struct {
		name     string
		actual   time.Duration
		expected time.Duration
	}{
		{"AccessTokenExpiry", cfg.Auth.AccessTokenExpiry, 15 * time.Minute},
		{"RefreshTokenExpiry", cfg.Auth.RefreshTokenExpiry, 7 * 24 * time.Hour},
		{"RememberMeExpiry", cfg.Auth.RememberMeExpiry, 30 * 24 * time.Hour},
		{"CleanupInterval", cfg.Auth.CleanupInterval, 1 * time.Hour},
		{"VerificationExpiry", cfg.Email.VerificationExpiry, 24 * time.Hour},
		{"PasswordResetExpiry", cfg.Email.PasswordResetExpiry, 1 * time.Hour},
	}

	for _, tt := range tests {
		if tt.actual != tt.expected {
			t.Errorf("%s: got %v, want %v", tt.name, tt.actual, tt.expected)
		}
	}

	if cfg.Auth.CookieSecure {
		t.Error("CookieSecure should be false outside production")
	}
}

func TestLoad_CustomDurations(t *testing.T) {
	os.Clearenv()
	setRequiredEnv()
	os.Setenv("ACCESS_TOKEN_EXPIRY", "5m")
	os.Setenv("REFRESH_TOKEN_EXPIRY", "48h")
	defer os.Clearenv()

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() = %v, want nil", err)
	}

	if cfg.Auth.AccessTokenExpiry != 5*time.Minute {
		t.Errorf("AccessTokenExpiry: got %v, want 5m", cfg.Auth.AccessTokenExpiry)
	}
	if cfg.Auth.RefreshTokenExpiry != 48*time.Hour {
		t.Errorf("RefreshTokenExpiry: got %v, want 48h", cfg.Auth.RefreshTokenExpiry)
	}
}

func TestLoad_InvalidDurationFallsBack(t *testing.T) {
	os.Clearenv()
	setRequiredEnv()
	os.Setenv("ACCESS_TOKEN_EXPIRY", "not-a-duration")
	defer os.Clearenv()

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() = %v, want nil", err)
	}

	if cfg.Auth.AccessTokenExpiry != 15*time.Minute {
		t.Errorf("invalid duration should fall back to default, got %v", cfg.Auth.AccessTokenExpiry)
	}
}

func TestLoad_AllowedOrigins_Development(t *testing.T) {
	os.Clearenv()
	setRequiredEnv()
	defer os.Clearenv()

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() = %v, want nil", err)
	}

	if len(cfg.Server.AllowedOrigins) == 0 {
		t.Fatal("development should allow localhost origins by default")
	}

	found := false
	for _, origin := range cfg.Server.AllowedOrigins {
		if origin == "http://localhost:3000" {
			found = true
		}
	}
	if !found {
		t.Errorf("expected localhost:3000 in development origins, got %v", cfg.Server.AllowedOrigins)
	}
}

func TestLoad_AllowedOrigins_ProductionExplicitOnly(t *testing.T) {
	os.Clearenv()
	os.Setenv("DB_PASSWORD", "test")
	os.Setenv("JWT_SECRET", "test-secret-32-characters-long!!")
	os.Setenv("ENV", "production")
	defer os.Clearenv()

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() = %v, want nil", err)
	}

	if len(cfg.Server.AllowedOrigins) != 0 {
		t.Errorf("production without ALLOWED_ORIGINS should allow nothing, got %v", cfg.Server.AllowedOrigins)
	}
	if !cfg.Auth.CookieSecure {
		t.Error("CookieSecure should be true in production")
	}

	os.Setenv("ALLOWED_ORIGINS", "https://shop.example.com, https://admin.example.com")
	cfg, err = Load()
	if err != nil {
		t.Fatalf("Load() = %v, want nil", err)
	}

	if len(cfg.Server.AllowedOrigins) != 2 || cfg.Server.AllowedOrigins[1] != "https://admin.example.com" {
		t.Errorf("ALLOWED_ORIGINS should be split and trimmed, got %v", cfg.Server.AllowedOrigins)
	}
}

func TestLoad_TrustedProxies(t *testing.T) {
	os.Clearenv()
	setRequiredEnv()
	os.Setenv("TRUSTED_PROXIES", "10.0.0.0/8, 127.0.0.1/32")
	defer os.Clearenv()

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() = %v, want nil", err)
	}

	if len(cfg.Server.TrustedProxies) != 2 || cfg.Server.TrustedProxies[1] != "127.0.0.1/32" {
		t.Errorf("TRUSTED_PROXIES should be split and trimmed, got %v", cfg.Server.TrustedProxies)
	}
}

func TestEmailConfig_EmailEnabled(t *testing.T) {
	cfg := EmailConfig{}
	if cfg.EmailEnabled() {
		t.Error("email should be disabled without region and sender")
	}

	cfg.AWSRegion = "us-east-1"
	if cfg.EmailEnabled() {
		t.Error("email should be disabled without a from address")
	}

	cfg.FromAddress = "noreply@example.com"
	if !cfg.EmailEnabled() {
		t.Error("email should be enabled with region and sender set")
	}
}

func TestProviderConfig_Configured(t *testing.T) {
	p := ProviderConfig{ClientID: "id", ClientSecret: "secret"}
	if p.Configured() {
		t.Error("provider without a redirect URL is not configured")
	}

	p.RedirectURL = "http://localhost:8080/api/v1/oauth/google/callback"
	if !p.Configured() {
		t.Error("provider with all three fields should be configured")
	}
}

func TestDatabaseConfig_DSN(t *testing.T) {
	cfg := DatabaseConfig{
		Host:     "localhost",
		Port:     5432,
		User:     "postgres",
		Password: "secret",
		Name:     "storefront",
		SSLMode:  "disable",
	}

	want := "host=localhost port=5432 user=postgres password=secret dbname=storefront sslmode=disable"
	if got := cfg.DSN(); got != want {
		t.Errorf("DSN: got %q, want %q", got, want)
	}
}
