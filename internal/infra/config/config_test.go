package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	if cfg.Trust.MaxUnverifiedAttempts != 3 {
		t.Fatalf("expected default threshold 3, got %d", cfg.Trust.MaxUnverifiedAttempts)
	}
	if cfg.Postgres.QueryTimeout != 5*time.Second {
		t.Fatalf("expected 5s query timeout, got %v", cfg.Postgres.QueryTimeout)
	}
	if cfg.Redis.PreferenceTTL != 5*time.Minute {
		t.Fatalf("expected 5m preference ttl, got %v", cfg.Redis.PreferenceTTL)
	}
	if cfg.Auth.TrustUserIDHeader {
		t.Fatal("user-id header stand-in must be off by default")
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("TRUST_TRUST_MAX_UNVERIFIED_ATTEMPTS", "5")
	t.Setenv("TRUST_POSTGRES_QUERY_TIMEOUT", "2s")
	t.Setenv("TRUST_AUTH_TRUST_USER_ID_HEADER", "true")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	if cfg.Trust.MaxUnverifiedAttempts != 5 {
		t.Fatalf("expected threshold 5, got %d", cfg.Trust.MaxUnverifiedAttempts)
	}
	if cfg.Postgres.QueryTimeout != 2*time.Second {
		t.Fatalf("expected 2s query timeout, got %v", cfg.Postgres.QueryTimeout)
	}
	if !cfg.Auth.TrustUserIDHeader {
		t.Fatal("expected user-id header stand-in to be enabled")
	}
}

func TestValidateRejectsInsecureProduction(t *testing.T) {
	cfg := &AppConfig{
		App:  AppSettings{Env: "production"},
		JWT:  JWTSettings{Secret: defaultJWTSecret},
		Auth: AuthSettings{},
	}
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected default secret to be rejected in production")
	}

	cfg.JWT.Secret = "a-real-secret"
	cfg.Auth.TrustUserIDHeader = true
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected header stand-in to be rejected in production")
	}

	cfg.Auth.TrustUserIDHeader = false
	if err := cfg.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
