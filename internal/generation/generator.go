// Package generation produces job-tailored resumes and cover letters through
// the completion provider.
package generation

import (
	"context"
	"strings"

	"github.com/jonathan/resume-optimizer/internal/llm"
	"github.com/jonathan/resume-optimizer/internal/prompts"
)

// DefaultStyle is used when the user has no style summary.
const DefaultStyle = "professional, achievement-focused"

const promptFile = "generation.json"

// Completion budgets.
const (
	resumeMaxTokens        = 2000
	resumeTemperature      = 0.3
	coverLetterMaxTokens   = 1500
	coverLetterTemperature = 0.7
)

// ResumeRequest is the input for GenerateResume.
type ResumeRequest struct {
	MasterResume   string
	JobDescription string
	StyleSummary   string
	Format         Format
}

// CoverLetterRequest is the input for GenerateCoverLetter.
type CoverLetterRequest struct {
	MasterResume   string
	JobDescription string
	StyleSummary   string
	Company        string
	Title          string
}

// Generator turns profile data and a job description into documents.
type Generator struct {
	client llm.Client
}

// NewGenerator creates a Generator backed by client.
func NewGenerator(client llm.Client) *Generator {
	return &Generator{client: client}
}

// GenerateResume rewrites the master resume for the job description. Latex
// fragments are sanitized before they are returned.
func (g *Generator) GenerateResume(ctx context.Context, req ResumeRequest) (string, error) {
	if blank(req.MasterResume) || blank(req.JobDescription) {
		return "", ErrMissingInput
	}
	format, err := ParseFormat(string(req.Format))
	if err != nil {
		return "", err
	}

	systemKey := "resume-system-text"
	if format == FormatLatexFragment {
		systemKey = "resume-system-latex"
	}

	answer, err := g.complete(ctx, llm.Request{
		System: prompts.MustGet(promptFile, systemKey),
		Prompt: prompts.MustFormat(promptFile, "resume-user", map[string]string{
			"MasterResume":   req.MasterResume,
			"JobDescription": req.JobDescription,
			"StyleSummary":   styleOrDefault(req.StyleSummary),
		}),
		MaxTokens:   resumeMaxTokens,
		Temperature: resumeTemperature,
		Tier:        llm.TierStandard,
	}, "resume")
	if err != nil {
		return "", err
	}

	if format == FormatLatexFragment {
		answer = SanitizeFragment(answer)
	} else {
		answer = llm.CleanFence(answer)
	}
	if answer == "" {
		return "", &ParseError{Message: "resume generation returned no usable text"}
	}
	return answer, nil
}

// GenerateCoverLetter writes a five-paragraph cover letter for the job.
func (g *Generator) GenerateCoverLetter(ctx context.Context, req CoverLetterRequest) (string, error) {
	if blank(req.MasterResume) || blank(req.JobDescription) {
		return "", ErrMissingInput
	}

	answer, err := g.complete(ctx, llm.Request{
		System: prompts.MustGet(promptFile, "cover-letter-system"),
		Prompt: prompts.MustFormat(promptFile, "cover-letter-user", map[string]string{
			"MasterResume":   req.MasterResume,
			"JobDescription": req.JobDescription,
			"StyleSummary":   styleOrDefault(req.StyleSummary),
			"Company":        strings.TrimSpace(req.Company),
			"Title":          strings.TrimSpace(req.Title),
		}),
		MaxTokens:   coverLetterMaxTokens,
		Temperature: coverLetterTemperature,
		Tier:        llm.TierStandard,
	}, "cover letter")
	if err != nil {
		return "", err
	}

	letter := ReplaceEmDashes(llm.CleanFence(answer))
	if found := ForbiddenPhrases(letter, leakedInstructions); len(found) > 0 {
		return "", &ParseError{Message: "cover letter echoed prompt instructions: " + strings.Join(found, ", ")}
	}
	return letter, nil
}

// leakedInstructions are prompt headings that only appear in an answer when
// the model echoed the prompt instead of writing the letter.
var leakedInstructions = []string{"CRITICAL INSTRUCTIONS:", "Writing Style Analysis:"}

func (g *Generator) complete(ctx context.Context, req llm.Request, what string) (string, error) {
	answer, err := g.client.Complete(ctx, req)
	if err != nil {
		return "", &APICallError{Message: "failed to generate " + what, Cause: err}
	}
	if strings.TrimSpace(answer) == "" {
		return "", &ParseError{Message: what + " generation returned no text"}
	}
	return answer, nil
}

func styleOrDefault(summary string) string {
	if blank(summary) {
		return DefaultStyle
	}
	return strings.TrimSpace(summary)
}

func blank(s string) bool {
	return strings.TrimSpace(s) == ""
}
