package config

import (
	"strings"
	"testing"
	"time"
)

func validConfig() *Config {
	return &Config{
		DatabaseURL:             "postgres://localhost/registry",
		JWTSecret:               "abcdefghijklmnopqrstuvwxyz123456",
		TokenPepper:             "pepper-pepper-16",
		HandoffSecret:           "handoff-secret-16",
		SessionTTL:              12 * time.Hour,
		ExchangeTTL:             30 * time.Second,
		ActivationTokenTTL:      72 * time.Hour,
		RemoteTimeout:           5 * time.Second,
		ActivationURLBase:       "https://registry.local/activate",
		ExchangeRateLimitPerMin: 30,
	}
}

func TestValidateAcceptsCompleteConfig(t *testing.T) {
	if err := validConfig().Validate(); err != nil {
		t.Fatalf("expected valid config, got %v", err)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	cases := []struct {
		name    string
		mutate  func(*Config)
		mention string
	}{
		{"missing database url", func(c *Config) { c.DatabaseURL = "" }, "DATABASE_URL"},
		{"short jwt secret", func(c *Config) { c.JWTSecret = "short" }, "JWT_SECRET"},
		{"short pepper", func(c *Config) { c.TokenPepper = "tiny" }, "TOKEN_PEPPER"},
		{"short handoff secret", func(c *Config) { c.HandoffSecret = "weak" }, "HANDOFF_SHARED_SECRET"},
		{"exchange ttl too long", func(c *Config) { c.ExchangeTTL = time.Hour }, "EXCHANGE_TOKEN_TTL"},
		{"remote timeout too long", func(c *Config) { c.RemoteTimeout = time.Minute }, "REMOTE_TIMEOUT"},
		{"blank activation base", func(c *Config) { c.ActivationURLBase = "  " }, "ACTIVATION_URL_BASE"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := validConfig()
			tc.mutate(cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tc.mention) {
				t.Fatalf("expected error to mention %s, got %v", tc.mention, err)
			}
		})
	}
}

func TestLoadParsesDurationsAndDefaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/registry")
	t.Setenv("JWT_SECRET", "abcdefghijklmnopqrstuvwxyz123456")
	t.Setenv("TOKEN_PEPPER", "pepper-pepper-16")
	t.Setenv("HANDOFF_SHARED_SECRET", "handoff-secret-16")
	t.Setenv("EXCHANGE_TOKEN_TTL", "45s")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.ExchangeTTL != 45*time.Second {
		t.Fatalf("unexpected exchange ttl: %v", cfg.ExchangeTTL)
	}
	if cfg.ActivationTokenTTL != 72*time.Hour {
		t.Fatalf("unexpected activation ttl default: %v", cfg.ActivationTokenTTL)
	}
	if cfg.HTTPPort != "8080" {
		t.Fatalf("unexpected port default: %s", cfg.HTTPPort)
	}
}
