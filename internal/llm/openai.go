package llm

import (
	"context"
	"errors"
	"fmt"

	openai "github.com/sashabaranov/go-openai"
)

// OpenAIClient implements Client for OpenAI-compatible chat completion endpoints
type OpenAIClient struct {
	client *openai.Client
	config *Config
}

// NewOpenAIClient creates a new OpenAI client. config.BaseURL points it at a
// compatible gateway instead of api.openai.com.
func NewOpenAIClient(config *Config, apiKey string) *OpenAIClient {
	clientConfig := openai.DefaultConfig(apiKey)
	if config.BaseURL != "" {
		clientConfig.BaseURL = config.BaseURL
	}
	return &OpenAIClient{
		client: openai.NewClientWithConfig(clientConfig),
		config: config,
	}
}

// Complete sends a system and user message as one chat completion
func (c *OpenAIClient) Complete(ctx context.Context, req Request) (string, error) {
	model, err := modelFor(c.config, req.Tier)
	if err != nil {
		return "", err
	}

	messages := make([]openai.ChatCompletionMessage, 0, 2)
	if req.System != "" {
		messages = append(messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleSystem, Content: req.System})
	}
	messages = append(messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: req.Prompt})

	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       model,
		Messages:    messages,
		MaxTokens:   req.MaxTokens,
		Temperature: req.Temperature,
	})
	if err != nil {
		perr := &ProviderError{Provider: ProviderOpenAI, Cause: err}
		var apiErr *openai.APIError
		var reqErr *openai.RequestError
		switch {
		case errors.As(err, &apiErr):
			perr.StatusCode = apiErr.HTTPStatusCode
		case errors.As(err, &reqErr):
			perr.StatusCode = reqErr.HTTPStatusCode
		}
		return "", perr
	}

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%w: no choices in response", ErrEmptyResponse)
	}
	return resp.Choices[0].Message.Content, nil
}

// Close is a no-op; the HTTP client needs no cleanup.
func (c *OpenAIClient) Close() error {
	return nil
}
