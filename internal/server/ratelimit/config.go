package ratelimit

import (
	"net/http"
	"time"

	"github.com/jonathan/resume-optimizer/internal/config"
)

// DefaultIdleTimeout is how long an unused bucket is kept.
const DefaultIdleTimeout = time.Hour

// EndpointConfig represents rate limiting configuration for a route or route group.
type EndpointConfig struct {
	Path   string        // Path pattern; a trailing "/" matches by prefix
	Method string        // HTTP method
	Limit  int           // Maximum requests per window
	Window time.Duration // Time window
	Burst  int           // Burst capacity (defaults to Limit if 0)
}

// Config holds rate limiting configuration.
type Config struct {
	Enabled         bool
	DefaultLimit    int
	DefaultWindow   time.Duration
	CleanupInterval time.Duration
	IdleTimeout     time.Duration
	Whitelist       map[string]bool
	Blacklist       map[string]bool
	EndpointConfigs []EndpointConfig
}

// DefaultConfig returns the limits used when no settings are given.
func DefaultConfig() *Config {
	return FromSettings(config.Default().RateLimit)
}

// FromSettings builds a Config from the rate_limit section.
func FromSettings(s config.RateLimitConfig) *Config {
	return &Config{
		Enabled:         s.Enabled,
		DefaultLimit:    s.DefaultLimit,
		DefaultWindow:   s.DefaultWindow,
		CleanupInterval: s.CleanupInterval,
		IdleTimeout:     DefaultIdleTimeout,
		Whitelist:       toSet(s.Whitelist),
		Blacklist:       toSet(s.Blacklist),
		EndpointConfigs: EndpointConfigs(s),
	}
}

// EndpointConfigs maps the route groups onto concrete routes.
func EndpointConfigs(s config.RateLimitConfig) []EndpointConfig {
	group := func(path string, l config.RouteLimit) EndpointConfig {
		return EndpointConfig{Path: path, Method: http.MethodPost, Limit: l.Limit, Window: l.Window, Burst: l.Burst}
	}
	return []EndpointConfig{
		// Credential checks
		group("/auth/login", s.Auth),
		group("/auth/register", s.Auth),

		// Provider calls
		group("/generate/", s.Generation),
		group("/profile/style-analysis", s.Generation),

		// Uploads and extraction
		group("/profile/cover-letters", s.Upload),
		group("/profile/master-resume", s.Upload),
		group("/extract-text", s.Upload),
	}
}

func toSet(list []string) map[string]bool {
	set := make(map[string]bool, len(list))
	for _, item := range list {
		if item != "" {
			set[item] = true
		}
	}
	return set
}
