package generation

import (
	"context"
	"testing"

	"github.com/jonathan/resume-optimizer/internal/llm"
	"github.com/jonathan/resume-optimizer/internal/llm/llmtest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testResume = "Jane Doe\njane@example.com\nSoftware Engineer at Acme, built payment APIs in Go."
	testJob    = "Backend engineer to build payment services in Go."
)

func TestGenerateResume_MissingInput(t *testing.T) {
	tests := []struct {
		name string
		req  ResumeRequest
	}{
		{name: "no resume", req: ResumeRequest{MasterResume: "  ", JobDescription: testJob}},
		{name: "no job", req: ResumeRequest{MasterResume: testResume, JobDescription: "\n"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := llmtest.Reply("unused")
			_, err := NewGenerator(client).GenerateResume(context.Background(), tt.req)
			require.ErrorIs(t, err, ErrMissingInput)
			assert.Zero(t, client.Calls())
		})
	}
}

func TestGenerateResume_InvalidFormat(t *testing.T) {
	client := llmtest.Reply("unused")
	_, err := NewGenerator(client).GenerateResume(context.Background(), ResumeRequest{
		MasterResume: testResume, JobDescription: testJob, Format: "docx",
	})
	require.ErrorIs(t, err, ErrInvalidFormat)
	assert.Zero(t, client.Calls())
}

func TestGenerateResume_Text(t *testing.T) {
	client := llmtest.Reply("Jane Doe\nSUMMARY\nGo engineer.")

	out, err := NewGenerator(client).GenerateResume(context.Background(), ResumeRequest{
		MasterResume: testResume, JobDescription: testJob, StyleSummary: "Direct and warm.",
	})
	require.NoError(t, err)
	assert.Equal(t, "Jane Doe\nSUMMARY\nGo engineer.", out)

	req := client.Requests()[0]
	assert.Contains(t, req.System, "DO NOT invent")
	assert.Contains(t, req.Prompt, testResume)
	assert.Contains(t, req.Prompt, testJob)
	assert.Contains(t, req.Prompt, "Direct and warm.")
	assert.Equal(t, 2000, req.MaxTokens)
	assert.InDelta(t, 0.3, req.Temperature, 0.001)
	assert.Equal(t, llm.TierStandard, req.Tier)
}

func TestGenerateResume_LatexIsSanitized(t *testing.T) {
	answer := "```latex\n\\documentclass{article}\n\\usepackage{hyperref}\n\\begin{document}\n\\section{Experience}\n\\resumeItem{Built APIs}\n\\end{document}\n```"
	client := llmtest.Reply(answer)

	out, err := NewGenerator(client).GenerateResume(context.Background(), ResumeRequest{
		MasterResume: testResume, JobDescription: testJob, Format: "latex",
	})
	require.NoError(t, err)
	assert.Equal(t, "\\section{Experience}\n\\resumeItem{Built APIs}", out)
	assert.Contains(t, client.Requests()[0].System, `\resumeSubheading`)
}

func TestGenerateResume_DefaultStyle(t *testing.T) {
	client := llmtest.Reply("resume")

	_, err := NewGenerator(client).GenerateResume(context.Background(), ResumeRequest{
		MasterResume: testResume, JobDescription: testJob,
	})
	require.NoError(t, err)
	assert.Contains(t, client.Requests()[0].Prompt, DefaultStyle)
}

func TestGenerateCoverLetter(t *testing.T) {
	client := llmtest.Reply("Dear Hiring Manager,\n\nThank you for taking the time to consider my application.\n\nSincerely,\nJane Doe")

	out, err := NewGenerator(client).GenerateCoverLetter(context.Background(), CoverLetterRequest{
		MasterResume: testResume, JobDescription: testJob, Company: " Acme ", Title: "Backend Engineer",
	})
	require.NoError(t, err)
	assert.Contains(t, out, "Sincerely,\nJane Doe")

	req := client.Requests()[0]
	assert.Contains(t, req.System, "NO EM DASHES")
	assert.Contains(t, req.Prompt, "Company Name: Acme\n")
	assert.Contains(t, req.Prompt, "Job Title: Backend Engineer")
	assert.Contains(t, req.Prompt, DefaultStyle)
	assert.Equal(t, 1500, req.MaxTokens)
	assert.InDelta(t, 0.7, req.Temperature, 0.001)
}

func TestGenerateCoverLetter_MissingInput(t *testing.T) {
	client := llmtest.Reply("unused")
	_, err := NewGenerator(client).GenerateCoverLetter(context.Background(), CoverLetterRequest{JobDescription: testJob})
	require.ErrorIs(t, err, ErrMissingInput)
	assert.Zero(t, client.Calls())
}

func TestGenerate_ProviderErrors(t *testing.T) {
	req := CoverLetterRequest{MasterResume: testResume, JobDescription: testJob}

	_, err := NewGenerator(llmtest.Fail(llm.ErrNoCredential)).GenerateCoverLetter(context.Background(), req)
	var apiErr *APICallError
	require.ErrorAs(t, err, &apiErr)
	assert.ErrorIs(t, err, llm.ErrNoCredential)

	_, err = NewGenerator(llmtest.Reply("   ")).GenerateCoverLetter(context.Background(), req)
	var parseErr *ParseError
	require.ErrorAs(t, err, &parseErr)
}
