package main

import (
	"fmt"
	"os"
	"strings"
	"time"
)

// Config is the env-driven server configuration. It satisfies
// auth.Config.
type Config struct {
	Addr            string
	DSN             string
	SigningKey      string
	VerifierSecret  string
	BaseURL         string
	SenderAddress   string
	Issuer          string
	Audience        []string
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration
	VerifierTTL     time.Duration
	AuditLogPath    string
	Debug           bool
}

// LoadConfig reads PLANORA_* environment variables. Secrets have no
// defaults: missing signing material is a startup error, not a silent
// fallback.
func LoadConfig() (*Config, error) {
	cfg := &Config{
		Addr:            envOr("PLANORA_ADDR", ":8000"),
		DSN:             envOr("PLANORA_DB_DSN", "file::memory:?cache=shared"),
		SigningKey:      os.Getenv("PLANORA_SIGNING_KEY"),
		VerifierSecret:  os.Getenv("PLANORA_VERIFIER_SECRET"),
		BaseURL:         envOr("PLANORA_BASE_URL", "http://localhost:8000"),
		SenderAddress:   envOr("PLANORA_SENDER_ADDRESS", "no-reply@planora.local"),
		Issuer:          envOr("PLANORA_ISSUER", "planora"),
		AuditLogPath:    os.Getenv("PLANORA_AUDIT_LOG"),
		Debug:           os.Getenv("PLANORA_DEBUG") != "",
		AccessTokenTTL:  30 * time.Minute,
		RefreshTokenTTL: 24 * time.Hour,
		VerifierTTL:     24 * time.Hour,
	}

	if aud := os.Getenv("PLANORA_AUDIENCE"); aud != "" {
		cfg.Audience = strings.Split(aud, ",")
	} else {
		cfg.Audience = []string{"planora"}
	}

	var err error
	if cfg.AccessTokenTTL, err = envDuration("PLANORA_ACCESS_TTL", cfg.AccessTokenTTL); err != nil {
		return nil, err
	}
	if cfg.RefreshTokenTTL, err = envDuration("PLANORA_REFRESH_TTL", cfg.RefreshTokenTTL); err != nil {
		return nil, err
	}
	if cfg.VerifierTTL, err = envDuration("PLANORA_VERIFIER_TTL", cfg.VerifierTTL); err != nil {
		return nil, err
	}

	if cfg.SigningKey == "" {
		return nil, fmt.Errorf("PLANORA_SIGNING_KEY is required")
	}

	if cfg.VerifierSecret == "" {
		return nil, fmt.Errorf("PLANORA_VERIFIER_SECRET is required")
	}

	return cfg, nil
}

func (c *Config) GetSigningKey() string             { return c.SigningKey }
func (c *Config) GetAccessTokenTTL() time.Duration  { return c.AccessTokenTTL }
func (c *Config) GetRefreshTokenTTL() time.Duration { return c.RefreshTokenTTL }
func (c *Config) GetVerifierSecret() string         { return c.VerifierSecret }
func (c *Config) GetVerifierTTL() time.Duration     { return c.VerifierTTL }
func (c *Config) GetIssuer() string                 { return c.Issuer }
func (c *Config) GetAudience() []string             { return c.Audience }
func (c *Config) GetBaseURL() string                { return c.BaseURL }
func (c *Config) GetSenderAddress() string          { return c.SenderAddress }

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envDuration(key string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}

	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return d, nil
}
