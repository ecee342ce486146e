// Package config builds the single configuration object the service is wired from.
// Values come from defaults, an optional config file and the environment; components
// receive their section explicitly and never read the environment themselves.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment variable read by Load.
const EnvPrefix = "RESUME_OPTIMIZER"

// Config is the root configuration.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Log       LogConfig       `mapstructure:"log"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Password  PasswordConfig  `mapstructure:"password"`
	Session   SessionConfig   `mapstructure:"session"`
	LLM       LLMConfig       `mapstructure:"llm"`
	Upload    UploadConfig    `mapstructure:"upload"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
	Storage   StorageConfig   `mapstructure:"storage"`
	Fetch     FetchConfig     `mapstructure:"fetch"`
	Rendering RenderingConfig `mapstructure:"rendering"`
}

// ServerConfig holds HTTP listener settings.
type ServerConfig struct {
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	AllowedOrigins  []string      `mapstructure:"allowed_origins"`
}

// LogConfig selects log level and output format (text or json).
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// DatabaseConfig selects the persistence backend.
type DatabaseConfig struct {
	Driver      string `mapstructure:"driver"` // sqlite or postgres
	DSN         string `mapstructure:"dsn"`
	MaxConns    int32  `mapstructure:"max_conns"`
	AutoMigrate bool   `mapstructure:"auto_migrate"`
}

// LLMConfig configures the completion provider.
type LLMConfig struct {
	Provider     string        `mapstructure:"provider"` // openai, gemini or anthropic
	APIKey       string        `mapstructure:"api_key"`
	BaseURL      string        `mapstructure:"base_url"`
	Models       ModelsConfig  `mapstructure:"models"`
	Timeout      time.Duration `mapstructure:"timeout"`
	MaxRetries   int           `mapstructure:"max_retries"`
	RetryBackoff time.Duration `mapstructure:"retry_backoff"`
}

// ModelsConfig overrides the provider's default model per tier. Empty keeps the default.
type ModelsConfig struct {
	Lite     string `mapstructure:"lite"`
	Standard string `mapstructure:"standard"`
	Advanced string `mapstructure:"advanced"`
}

// UploadConfig bounds multipart uploads.
type UploadConfig struct {
	MaxFileBytes int64 `mapstructure:"max_file_bytes"`
	MaxFiles     int   `mapstructure:"max_files"`
}

// RouteLimit is a token bucket definition for a group of routes.
type RouteLimit struct {
	Limit  int           `mapstructure:"limit"`
	Window time.Duration `mapstructure:"window"`
	Burst  int           `mapstructure:"burst"`
}

// RateLimitConfig configures per-client rate limiting.
type RateLimitConfig struct {
	Enabled         bool          `mapstructure:"enabled"`
	DefaultLimit    int           `mapstructure:"default_limit"`
	DefaultWindow   time.Duration `mapstructure:"default_window"`
	CleanupInterval time.Duration `mapstructure:"cleanup_interval"`
	Whitelist       []string      `mapstructure:"whitelist"`
	Blacklist       []string      `mapstructure:"blacklist"`
	Auth            RouteLimit    `mapstructure:"auth"`
	Generation      RouteLimit    `mapstructure:"generation"`
	Upload          RouteLimit    `mapstructure:"upload"`
}

// StorageConfig selects where original uploads are kept.
type StorageConfig struct {
	Driver   string   `mapstructure:"driver"` // none, local or s3
	LocalDir string   `mapstructure:"local_dir"`
	S3       S3Config `mapstructure:"s3"`
}

// S3Config holds S3 or MinIO settings.
type S3Config struct {
	Bucket       string `mapstructure:"bucket"`
	Region       string `mapstructure:"region"`
	Endpoint     string `mapstructure:"endpoint"`
	AccessKey    string `mapstructure:"access_key"`
	SecretKey    string `mapstructure:"secret_key"`
	UsePathStyle bool   `mapstructure:"use_path_style"`
}

// FetchConfig controls fetching job descriptions by URL.
type FetchConfig struct {
	Enabled   bool          `mapstructure:"enabled"`
	Timeout   time.Duration `mapstructure:"timeout"`
	MaxBytes  int64         `mapstructure:"max_bytes"`
	UserAgent string        `mapstructure:"user_agent"`
	// AllowPrivateNetworks permits loopback, private and link-local targets.
	AllowPrivateNetworks bool `mapstructure:"allow_private_networks"`
}

// RenderingConfig points at an optional LaTeX document template.
type RenderingConfig struct {
	TemplatePath string `mapstructure:"template_path"`
}

// Load reads configuration from defaults, the optional file at path and the environment.
// It does not validate; call Validate for the sections a command needs.
func Load(path string) (*Config, error) {
	v := newViper()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Conventional names are honoured after the prefixed ones.
	bindings := map[string][]string{
		"database.dsn":                {EnvPrefix + "_DATABASE_DSN", "DATABASE_URL"},
		"session.secret":              {EnvPrefix + "_SESSION_SECRET", "JWT_SECRET"},
		"server.port":                 {EnvPrefix + "_SERVER_PORT", "PORT"},
		"llm.provider_keys.openai":    {"OPENAI_API_KEY"},
		"llm.provider_keys.gemini":    {"GEMINI_API_KEY"},
		"llm.provider_keys.anthropic": {"ANTHROPIC_API_KEY"},
	}
	for key, envs := range bindings {
		if err := v.BindEnv(append([]string{key}, envs...)...); err != nil {
			return nil, fmt.Errorf("failed to bind %s: %w", key, err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if cfg.LLM.APIKey == "" {
		cfg.LLM.APIKey = v.GetString("llm.provider_keys." + strings.ToLower(cfg.LLM.Provider))
	}
	cfg.LLM.Provider = strings.ToLower(cfg.LLM.Provider)
	cfg.Database.Driver = strings.ToLower(cfg.Database.Driver)
	cfg.Storage.Driver = strings.ToLower(cfg.Storage.Driver)

	return cfg, nil
}

// Default returns the built-in defaults without consulting files or the environment.
func Default() *Config {
	cfg := &Config{}
	// Defaults always decode: they are literals registered in newViper.
	_ = newViper().Unmarshal(cfg)
	return cfg
}

func newViper() *viper.Viper {
	v := viper.New()

	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 30*time.Second)
	v.SetDefault("server.write_timeout", 180*time.Second)
	v.SetDefault("server.idle_timeout", 60*time.Second)
	v.SetDefault("server.shutdown_timeout", 30*time.Second)
	v.SetDefault("server.allowed_origins", []string{"*"})

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")

	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.dsn", "")
	v.SetDefault("database.max_conns", 10)
	v.SetDefault("database.auto_migrate", true)

	v.SetDefault("password.bcrypt_cost", DefaultBcryptCost)
	v.SetDefault("password.pepper", "")

	v.SetDefault("session.secret", "")
	v.SetDefault("session.ttl", 24*time.Hour)
	v.SetDefault("session.cookie_name", "session")
	v.SetDefault("session.cookie_secure", false)

	v.SetDefault("llm.provider", "openai")
	v.SetDefault("llm.api_key", "")
	v.SetDefault("llm.base_url", "")
	v.SetDefault("llm.models.lite", "")
	v.SetDefault("llm.models.standard", "")
	v.SetDefault("llm.models.advanced", "")
	v.SetDefault("llm.timeout", 60*time.Second)
	v.SetDefault("llm.max_retries", 0)
	v.SetDefault("llm.retry_backoff", 500*time.Millisecond)

	v.SetDefault("upload.max_file_bytes", 10<<20)
	v.SetDefault("upload.max_files", 10)

	v.SetDefault("rate_limit.enabled", true)
	v.SetDefault("rate_limit.default_limit", 300)
	v.SetDefault("rate_limit.default_window", time.Minute)
	v.SetDefault("rate_limit.cleanup_interval", 5*time.Minute)
	v.SetDefault("rate_limit.whitelist", []string{})
	v.SetDefault("rate_limit.blacklist", []string{})
	v.SetDefault("rate_limit.auth.limit", 10)
	v.SetDefault("rate_limit.auth.window", time.Minute)
	v.SetDefault("rate_limit.auth.burst", 5)
	v.SetDefault("rate_limit.generation.limit", 20)
	v.SetDefault("rate_limit.generation.window", time.Hour)
	v.SetDefault("rate_limit.generation.burst", 3)
	v.SetDefault("rate_limit.upload.limit", 30)
	v.SetDefault("rate_limit.upload.window", time.Minute)
	v.SetDefault("rate_limit.upload.burst", 10)

	v.SetDefault("storage.driver", "none")
	v.SetDefault("storage.local_dir", "uploads")
	v.SetDefault("storage.s3.bucket", "")
	v.SetDefault("storage.s3.region", "us-east-1")
	v.SetDefault("storage.s3.endpoint", "")
	v.SetDefault("storage.s3.access_key", "")
	v.SetDefault("storage.s3.secret_key", "")
	v.SetDefault("storage.s3.use_path_style", false)

	v.SetDefault("fetch.enabled", false)
	v.SetDefault("fetch.allow_private_networks", false)
	v.SetDefault("fetch.timeout", 15*time.Second)
	v.SetDefault("fetch.max_bytes", 2<<20)
	v.SetDefault("fetch.user_agent", "resume-optimizer/1.0")

	v.SetDefault("rendering.template_path", "")

	return v
}

// Validate checks every section needed to serve requests.
func (c *Config) Validate() error {
	var errs []error
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server port out of range: %d", c.Server.Port))
	}
	if err := c.Database.Validate(); err != nil {
		errs = append(errs, err)
	}
	if err := c.Password.Validate(); err != nil {
		errs = append(errs, err)
	}
	if err := c.Session.Validate(); err != nil {
		errs = append(errs, err)
	}
	switch c.LLM.Provider {
	case "openai", "gemini", "anthropic":
	default:
		errs = append(errs, fmt.Errorf("unknown llm provider: %q", c.LLM.Provider))
	}
	if c.LLM.Timeout <= 0 {
		errs = append(errs, fmt.Errorf("llm timeout must be positive"))
	}
	if c.LLM.MaxRetries < 0 {
		errs = append(errs, fmt.Errorf("llm max_retries must not be negative"))
	}
	if c.Upload.MaxFileBytes <= 0 || c.Upload.MaxFiles <= 0 {
		errs = append(errs, fmt.Errorf("upload limits must be positive"))
	}
	if err := c.Storage.Validate(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// Validate checks the database section.
func (c *DatabaseConfig) Validate() error {
	switch c.Driver {
	case "sqlite", "postgres":
	default:
		return fmt.Errorf("unknown database driver: %q (must be sqlite or postgres)", c.Driver)
	}
	if c.DSN == "" {
		return fmt.Errorf("database dsn is required but not set")
	}
	return nil
}

// Validate checks the storage section.
func (c *StorageConfig) Validate() error {
	switch c.Driver {
	case "none":
	case "local":
		if c.LocalDir == "" {
			return fmt.Errorf("storage local_dir is required for the local driver")
		}
	case "s3":
		if c.S3.Bucket == "" {
			return fmt.Errorf("storage s3.bucket is required for the s3 driver")
		}
		if c.S3.Region == "" {
			return fmt.Errorf("storage s3.region is required for the s3 driver")
		}
	default:
		return fmt.Errorf("unknown storage driver: %q (must be none, local or s3)", c.Driver)
	}
	return nil
}
