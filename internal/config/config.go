// Package config loads process configuration from environment variables.
package config

import (
	"encoding/hex"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"

	"github.com/and161185/authgate/internal/crypto"
)

// Config is the full service configuration. Every knob comes from the
// environment; secrets are never defaulted.
type Config struct {
	ListenAddr string `env:"AUTHGATE_ADDR" envDefault:":8080"`

	DatabaseDSN string `env:"AUTHGATE_DATABASE_DSN,required"`

	RedisAddr     string `env:"AUTHGATE_REDIS_ADDR" envDefault:"localhost:6379"`
	RedisUsername string `env:"AUTHGATE_REDIS_USERNAME"`
	RedisPassword string `env:"AUTHGATE_REDIS_PASSWORD"`
	RedisDB       int    `env:"AUTHGATE_REDIS_DB" envDefault:"0"`

	JWTSecret      string        `env:"AUTHGATE_JWT_SECRET,required"`
	AccessTTL      time.Duration `env:"AUTHGATE_ACCESS_TTL" envDefault:"1h"`
	RefreshTTLDays int           `env:"AUTHGATE_REFRESH_TTL_DAYS" envDefault:"30"`

	// EncryptionKeyHex is the hex-encoded symmetric key for provider refresh
	// tokens at rest. Must decode to exactly crypto.KeyLen bytes.
	EncryptionKeyHex string `env:"AUTHGATE_ENCRYPTION_KEY,required"`

	GoogleClientID     string   `env:"AUTHGATE_GOOGLE_CLIENT_ID"`
	GoogleClientSecret string   `env:"AUTHGATE_GOOGLE_CLIENT_SECRET"`
	GoogleRedirectURI  string   `env:"AUTHGATE_GOOGLE_REDIRECT_URI"`
	OAuthAuthURL       string   `env:"AUTHGATE_OAUTH_AUTH_URL" envDefault:"https://accounts.google.com/o/oauth2/v2/auth"`
	OAuthTokenURL      string   `env:"AUTHGATE_OAUTH_TOKEN_URL" envDefault:"https://oauth2.googleapis.com/token"`
	OAuthUserInfoURL   string   `env:"AUTHGATE_OAUTH_USERINFO_URL" envDefault:"https://openidconnect.googleapis.com/v1/userinfo"`
	OAuthScopes        []string `env:"AUTHGATE_OAUTH_SCOPES" envSeparator:"," envDefault:"openid,email,profile"`
	FrontendURL        string   `env:"AUTHGATE_FRONTEND_URL" envDefault:"http://localhost:3000"`

	GlobalRateLimit     int64         `env:"AUTHGATE_RATE_LIMIT" envDefault:"10"`
	GlobalRateWindow    time.Duration `env:"AUTHGATE_RATE_WINDOW" envDefault:"1s"`
	SensitiveRateLimit  int64         `env:"AUTHGATE_SENSITIVE_RATE_LIMIT" envDefault:"10"`
	SensitiveRateWindow time.Duration `env:"AUTHGATE_SENSITIVE_RATE_WINDOW" envDefault:"5m"`

	SweepInterval time.Duration `env:"AUTHGATE_SWEEP_INTERVAL" envDefault:"1h"`
}

// Load parses and validates configuration from the environment.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if _, err := cfg.EncryptionKey(); err != nil {
		return nil, err
	}
	if cfg.RefreshTTLDays <= 0 {
		return nil, fmt.Errorf("refresh ttl days must be positive, got %d", cfg.RefreshTTLDays)
	}
	return cfg, nil
}

// EncryptionKey decodes and length-checks the at-rest encryption key.
func (c *Config) EncryptionKey() ([]byte, error) {
	key, err := hex.DecodeString(c.EncryptionKeyHex)
	if err != nil {
		return nil, fmt.Errorf("encryption key is not valid hex: %w", err)
	}
	if len(key) != crypto.KeyLen {
		return nil, fmt.Errorf("encryption key must be %d bytes, got %d", crypto.KeyLen, len(key))
	}
	return key, nil
}

// RefreshTTL converts the configured day count to a duration.
func (c *Config) RefreshTTL() time.Duration {
	return time.Duration(c.RefreshTTLDays) * 24 * time.Hour
}

// KeepAliveInterval is the session renewal period: the access TTL minus a
// safety margin so renewal lands before expiry.
func (c *Config) KeepAliveInterval() time.Duration {
	margin := c.AccessTTL / 12
	if margin > time.Minute {
		margin = time.Minute
	}
	interval := c.AccessTTL - margin
	if interval <= 0 {
		interval = c.AccessTTL / 2
	}
	return interval
}
