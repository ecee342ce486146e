package config

import (
	"fmt"
	"time"
)

// MinSessionSecretBytes is the shortest signing secret accepted for session tokens.
const MinSessionSecretBytes = 16

// SessionConfig holds configuration for session token signing and cookies.
type SessionConfig struct {
	Secret       string        `mapstructure:"secret"`
	TTL          time.Duration `mapstructure:"ttl"`
	CookieName   string        `mapstructure:"cookie_name"`
	CookieSecure bool          `mapstructure:"cookie_secure"`
}

// Validate checks that the session configuration is usable.
func (c *SessionConfig) Validate() error {
	if c.Secret == "" {
		return fmt.Errorf("session secret is required but not set")
	}
	if len(c.Secret) < MinSessionSecretBytes {
		return fmt.Errorf("session secret must be at least %d bytes, got %d", MinSessionSecretBytes, len(c.Secret))
	}
	if c.TTL < time.Minute {
		return fmt.Errorf("session ttl must be at least 1 minute, got: %s", c.TTL)
	}
	if c.CookieName == "" {
		return fmt.Errorf("session cookie name cannot be empty")
	}
	return nil
}
