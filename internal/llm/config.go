// Package llm provides the completion client used by the style analyzer and the
// document generator, with Gemini, OpenAI and Anthropic providers.
package llm

import (
	"fmt"
	"strings"
	"time"

	"github.com/jonathan/resume-optimizer/internal/config"
)

// ModelTier represents the complexity/capability level of a model
type ModelTier string

const (
	// TierLite is for simple tasks such as summarizing writing style
	TierLite ModelTier = "lite"
	// TierStandard is for document generation
	TierStandard ModelTier = "standard"
	// TierAdvanced is the most capable model of the provider
	TierAdvanced ModelTier = "advanced"
)

// Provider represents an LLM provider
type Provider string

// Provider constants define supported LLM providers
const (
	// ProviderGemini is the Google Gemini provider
	ProviderGemini Provider = "gemini"
	// ProviderOpenAI is the OpenAI provider
	ProviderOpenAI Provider = "openai"
	// ProviderAnthropic is the Anthropic/Claude provider
	ProviderAnthropic Provider = "anthropic"
)

// Config holds the model configuration for the application
type Config struct {
	Provider     Provider
	Models       map[ModelTier]string
	BaseURL      string
	Timeout      time.Duration
	MaxRetries   int
	RetryBackoff time.Duration
}

// DefaultConfig returns the default configuration (OpenAI)
func DefaultConfig() *Config {
	return DefaultOpenAIConfig()
}

// DefaultOpenAIConfig returns the default OpenAI configuration
func DefaultOpenAIConfig() *Config {
	return &Config{
		Provider: ProviderOpenAI,
		Models: map[ModelTier]string{
			TierLite:     "gpt-4o-mini",
			TierStandard: "gpt-4o-mini",
			TierAdvanced: "gpt-4o",
		},
	}
}

// DefaultGeminiConfig returns the default Gemini configuration
func DefaultGeminiConfig() *Config {
	return &Config{
		Provider: ProviderGemini,
		Models: map[ModelTier]string{
			TierLite:     "gemini-2.5-flash-lite",
			TierStandard: "gemini-2.5-flash",
			TierAdvanced: "gemini-2.5-pro",
		},
	}
}

// DefaultAnthropicConfig returns the default Anthropic configuration
func DefaultAnthropicConfig() *Config {
	return &Config{
		Provider: ProviderAnthropic,
		Models: map[ModelTier]string{
			TierLite:     "claude-3-5-haiku-latest",
			TierStandard: "claude-sonnet-4-20250514",
			TierAdvanced: "claude-opus-4-1",
		},
	}
}

// DefaultConfigFor returns the defaults of a provider.
func DefaultConfigFor(p Provider) (*Config, error) {
	switch p {
	case ProviderOpenAI, "":
		return DefaultOpenAIConfig(), nil
	case ProviderGemini:
		return DefaultGeminiConfig(), nil
	case ProviderAnthropic:
		return DefaultAnthropicConfig(), nil
	default:
		return nil, fmt.Errorf("unknown llm provider: %q", p)
	}
}

// FromSettings builds a Config from the llm configuration section. Model
// overrides replace the provider defaults tier by tier.
func FromSettings(s config.LLMConfig) (*Config, error) {
	cfg, err := DefaultConfigFor(Provider(strings.ToLower(s.Provider)))
	if err != nil {
		return nil, err
	}
	for tier, model := range map[ModelTier]string{
		TierLite:     s.Models.Lite,
		TierStandard: s.Models.Standard,
		TierAdvanced: s.Models.Advanced,
	} {
		if model != "" {
			cfg = cfg.WithModel(tier, model)
		}
	}
	cfg.BaseURL = s.BaseURL
	cfg.Timeout = s.Timeout
	cfg.MaxRetries = s.MaxRetries
	cfg.RetryBackoff = s.RetryBackoff
	return cfg, nil
}

// GetModel returns the model name for a given tier
func (c *Config) GetModel(tier ModelTier) string {
	if model, ok := c.Models[tier]; ok {
		return model
	}
	// Fallback chain: try standard, then lite
	if model, ok := c.Models[TierStandard]; ok {
		return model
	}
	if model, ok := c.Models[TierLite]; ok {
		return model
	}
	return "" // No model configured
}

// WithModel returns a new Config with a specific model for a tier
func (c *Config) WithModel(tier ModelTier, model string) *Config {
	newConfig := *c
	newConfig.Models = make(map[ModelTier]string, len(c.Models)+1)
	for k, v := range c.Models {
		newConfig.Models[k] = v
	}
	newConfig.Models[tier] = model
	return &newConfig
}
