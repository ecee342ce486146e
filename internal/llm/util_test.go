package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCleanFence(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{name: "plain text", input: "  Dear hiring manager,\n", expected: "Dear hiring manager,"},
		{name: "latex fence", input: "```latex\n\\section{Experience}\n```", expected: `\section{Experience}`},
		{name: "generic fence", input: "```\nSummary\n```", expected: "Summary"},
		{name: "single line", input: "```\\section{A}```", expected: `\section{A}`},
		{name: "first line is content", input: "```Dear team, thanks\nBest\n```", expected: "Dear team, thanks\nBest"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, CleanFence(tt.input))
		})
	}
}
