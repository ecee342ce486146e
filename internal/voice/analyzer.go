// Package voice summarizes a user's writing style from their cover letters.
package voice

import (
	"context"
	"strings"

	"github.com/jonathan/resume-optimizer/internal/llm"
	"github.com/jonathan/resume-optimizer/internal/prompts"
)

const (
	maxTokens   = 500
	temperature = 0.3
)

// Analyzer produces a free-text style summary from sample writing.
type Analyzer struct {
	client llm.Client
}

// NewAnalyzer creates an Analyzer backed by client.
func NewAnalyzer(client llm.Client) *Analyzer {
	return &Analyzer{client: client}
}

// Analyze summarizes the tone, structure, and vocabulary of letters. Blank
// letters are ignored; if nothing remains ErrNoInput is returned and the
// provider is not called.
func (a *Analyzer) Analyze(ctx context.Context, letters []string) (string, error) {
	texts := make([]string, 0, len(letters))
	for _, letter := range letters {
		if strings.TrimSpace(letter) != "" {
			texts = append(texts, letter)
		}
	}
	if len(texts) == 0 {
		return "", ErrNoInput
	}

	prompt := prompts.MustFormat("style.json", "analyze", map[string]string{
		"CoverLetters": strings.Join(texts, "\n\n"),
	})

	answer, err := a.client.Complete(ctx, llm.Request{
		System:      prompts.MustGet("style.json", "system"),
		Prompt:      prompt,
		MaxTokens:   maxTokens,
		Temperature: temperature,
		Tier:        llm.TierLite,
	})
	if err != nil {
		return "", &APICallError{Message: "failed to analyze writing style", Cause: err}
	}

	summary := strings.TrimSpace(answer)
	if summary == "" {
		return "", &ParseError{Message: "style analysis returned no text"}
	}
	return summary, nil
}
