package llm

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrNoCredential is returned by every call when no API key is configured.
	ErrNoCredential = errors.New("no API key configured for the completion provider")
	// ErrTimeout is returned when a call exceeds the configured deadline.
	ErrTimeout = errors.New("completion request timed out")
	// ErrEmptyResponse is returned when the provider answers without text.
	ErrEmptyResponse = errors.New("completion response contained no text")
)

// Request is a single completion call.
type Request struct {
	System      string
	Prompt      string
	MaxTokens   int
	Temperature float32
	Tier        ModelTier
}

// Client is an abstraction over LLM providers
type Client interface {
	// Complete sends one prompt and returns the model's text answer
	Complete(ctx context.Context, req Request) (string, error)
	// Close releases any resources held by the client
	Close() error
}

// ProviderError describes a failed provider call. StatusCode is zero when the
// request never got an HTTP answer.
type ProviderError struct {
	Provider   Provider
	StatusCode int
	Cause      error
}

func (e *ProviderError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s request failed with status %d: %v", e.Provider, e.StatusCode, e.Cause)
	}
	return fmt.Sprintf("%s request failed: %v", e.Provider, e.Cause)
}

func (e *ProviderError) Unwrap() error {
	return e.Cause
}

// Transient reports whether retrying the call could succeed.
func (e *ProviderError) Transient() bool {
	return e.StatusCode == 0 || e.StatusCode == 429 || e.StatusCode >= 500
}

// NewClient creates a new LLM client based on configuration. An empty API key
// produces a client that fails every call with ErrNoCredential.
func NewClient(ctx context.Context, config *Config, apiKey string) (Client, error) {
	if config == nil {
		config = DefaultConfig()
	}
	if apiKey == "" {
		return unavailableClient{}, nil
	}

	var (
		client Client
		err    error
	)
	switch config.Provider {
	case ProviderGemini:
		client, err = NewGeminiClient(ctx, config, apiKey)
	case ProviderOpenAI:
		client, err = NewOpenAIClient(config, apiKey), nil
	case ProviderAnthropic:
		client, err = NewAnthropicClient(config, apiKey), nil
	default:
		return nil, fmt.Errorf("unknown llm provider: %q", config.Provider)
	}
	if err != nil {
		return nil, err
	}

	// The deadline applies per attempt.
	if config.Timeout > 0 {
		client = WithTimeout(client, config.Timeout)
	}
	if config.MaxRetries > 0 {
		client = WithRetry(client, config.MaxRetries, config.RetryBackoff)
	}
	return client, nil
}

type unavailableClient struct{}

func (unavailableClient) Complete(context.Context, Request) (string, error) {
	return "", ErrNoCredential
}

func (unavailableClient) Close() error { return nil }

func modelFor(config *Config, tier ModelTier) (string, error) {
	if tier == "" {
		tier = TierStandard
	}
	model := config.GetModel(tier)
	if model == "" {
		return "", fmt.Errorf("no model configured for tier %s", tier)
	}
	return model, nil
}
