package llm

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/resume-optimizer/internal/config"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, ProviderOpenAI, cfg.Provider)
	assert.Equal(t, "gpt-4o-mini", cfg.GetModel(TierLite))
	assert.Equal(t, "gpt-4o-mini", cfg.GetModel(TierStandard))
	assert.Equal(t, "gpt-4o", cfg.GetModel(TierAdvanced))
}

func TestDefaultConfigFor(t *testing.T) {
	gemini, err := DefaultConfigFor(ProviderGemini)
	require.NoError(t, err)
	assert.Equal(t, "gemini-2.5-flash", gemini.GetModel(TierStandard))

	anthropic, err := DefaultConfigFor(ProviderAnthropic)
	require.NoError(t, err)
	assert.Equal(t, ProviderAnthropic, anthropic.Provider)

	_, err = DefaultConfigFor("llama")
	assert.Error(t, err)
}

func TestFromSettings(t *testing.T) {
	cfg, err := FromSettings(config.LLMConfig{
		Provider:   "Gemini",
		BaseURL:    "http://localhost:1234",
		Models:     config.ModelsConfig{Standard: "gemini-custom"},
		Timeout:    5 * time.Second,
		MaxRetries: 2,
	})
	require.NoError(t, err)

	assert.Equal(t, ProviderGemini, cfg.Provider)
	assert.Equal(t, "gemini-custom", cfg.GetModel(TierStandard))
	assert.Equal(t, "gemini-2.5-flash-lite", cfg.GetModel(TierLite))
	assert.Equal(t, "http://localhost:1234", cfg.BaseURL)
	assert.Equal(t, 5*time.Second, cfg.Timeout)
	assert.Equal(t, 2, cfg.MaxRetries)
}

func TestGetModel_Fallback(t *testing.T) {
	cfg := &Config{
		Provider: ProviderGemini,
		Models: map[ModelTier]string{
			TierLite: "fallback-model",
		},
	}

	// Unknown tier should fallback to TierStandard, then TierLite
	assert.Equal(t, "fallback-model", cfg.GetModel("unknown"))
}

func TestGetModel_EmptyConfig(t *testing.T) {
	cfg := &Config{
		Provider: ProviderGemini,
		Models:   map[ModelTier]string{},
	}

	assert.Equal(t, "", cfg.GetModel(TierAdvanced))
	_, err := modelFor(cfg, TierAdvanced)
	assert.Error(t, err)
}

func TestWithModel(t *testing.T) {
	cfg := DefaultConfig()
	newConfig := cfg.WithModel(TierAdvanced, "custom-model")

	// Original should be unchanged
	assert.Equal(t, "gpt-4o", cfg.GetModel(TierAdvanced))
	assert.Equal(t, "custom-model", newConfig.GetModel(TierAdvanced))
	assert.Equal(t, cfg.GetModel(TierLite), newConfig.GetModel(TierLite))
}
