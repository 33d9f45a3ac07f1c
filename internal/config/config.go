package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Env      string
	HTTPPort string
	LogLevel string

	DatabaseURL string
	RedisAddr   string

	JWTIssuer     string
	JWTAudience   string
	JWTSecret     string
	SessionTTL    time.Duration
	TokenPepper   string
	ExchangeTTL   time.Duration
	SweepInterval time.Duration

	// HandoffSecret authenticates the trusted IdP callback finalizer
	// calling POST /auth/handoff.
	HandoffSecret string

	ActivationTokenTTL time.Duration
	ActivationURLBase  string

	RemoteUser     string
	RemotePassword string
	RemoteTimeout  time.Duration

	ExchangeRateLimitPerMin int

	MinIOEndpoint  string
	MinIOAccessKey string
	MinIOSecretKey string
	MinIOBucket    string
	MinIOUseSSL    bool
}

func Load() (*Config, error) {
	cfg := &Config{
		Env:                     getEnv("APP_ENV", "development"),
		HTTPPort:                getEnv("HTTP_PORT", "8080"),
		LogLevel:                getEnv("LOG_LEVEL", "info"),
		DatabaseURL:             os.Getenv("DATABASE_URL"),
		RedisAddr:               getEnv("REDIS_ADDR", "localhost:6379"),
		JWTIssuer:               getEnv("JWT_ISSUER", "clinic-federation-service"),
		JWTAudience:             getEnv("JWT_AUDIENCE", "clinic-federation-api"),
		JWTSecret:               os.Getenv("JWT_SECRET"),
		TokenPepper:             os.Getenv("TOKEN_PEPPER"),
		HandoffSecret:           os.Getenv("HANDOFF_SHARED_SECRET"),
		ActivationURLBase:       getEnv("ACTIVATION_URL_BASE", "https://registry.local/activate"),
		RemoteUser:              os.Getenv("REMOTE_PROVISIONING_USER"),
		RemotePassword:          os.Getenv("REMOTE_PROVISIONING_PASSWORD"),
		ExchangeRateLimitPerMin: getEnvInt("EXCHANGE_RATE_LIMIT_PER_MIN", 30),
		MinIOEndpoint:           getEnv("MINIO_ENDPOINT", "localhost:9000"),
		MinIOAccessKey:          os.Getenv("MINIO_ACCESS_KEY"),
		MinIOSecretKey:          os.Getenv("MINIO_SECRET_KEY"),
		MinIOBucket:             getEnv("MINIO_BUCKET", "clinic-node-assets"),
		MinIOUseSSL:             getEnvBool("MINIO_USE_SSL", false),
	}

	for _, d := range []struct {
		dst *time.Duration
		key string
		def string
	}{
		{&cfg.SessionTTL, "SESSION_TTL", "12h"},
		{&cfg.ExchangeTTL, "EXCHANGE_TOKEN_TTL", "30s"},
		{&cfg.ActivationTokenTTL, "ACTIVATION_TOKEN_TTL", "72h"},
		{&cfg.RemoteTimeout, "REMOTE_TIMEOUT", "5s"},
		{&cfg.SweepInterval, "SWEEP_INTERVAL", "5m"},
	} {
		v, err := time.ParseDuration(getEnv(d.key, d.def))
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", d.key, err)
		}
		*d.dst = v
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	var errs []string
	if c.DatabaseURL == "" {
		errs = append(errs, "DATABASE_URL is required")
	}
	if len(c.JWTSecret) < 32 {
		errs = append(errs, "JWT_SECRET must be at least 32 chars")
	}
	if len(c.TokenPepper) < 16 {
		errs = append(errs, "TOKEN_PEPPER must be at least 16 chars")
	}
	if len(c.HandoffSecret) < 16 {
		errs = append(errs, "HANDOFF_SHARED_SECRET must be at least 16 chars")
	}
	if c.SessionTTL <= 0 || c.SessionTTL > 7*24*time.Hour {
		errs = append(errs, "SESSION_TTL must be between 1s and 7d")
	}
	if c.ExchangeTTL < time.Second || c.ExchangeTTL > 2*time.Minute {
		errs = append(errs, "EXCHANGE_TOKEN_TTL must be between 1s and 2m")
	}
	if c.ActivationTokenTTL < time.Hour {
		errs = append(errs, "ACTIVATION_TOKEN_TTL must be at least 1h")
	}
	if c.RemoteTimeout <= 0 || c.RemoteTimeout > 30*time.Second {
		errs = append(errs, "REMOTE_TIMEOUT must be between 1ms and 30s")
	}
	if strings.TrimSpace(c.ActivationURLBase) == "" {
		errs = append(errs, "ACTIVATION_URL_BASE is required")
	}
	if c.ExchangeRateLimitPerMin <= 0 {
		errs = append(errs, "EXCHANGE_RATE_LIMIT_PER_MIN must be > 0")
	}
	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}
	return nil
}

func getEnv(key, def string) string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	return v
}

func getEnvBool(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

func getEnvInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}
