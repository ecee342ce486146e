package generation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    Format
		wantErr bool
	}{
		{in: "", want: FormatText},
		{in: "text", want: FormatText},
		{in: "latex_fragment", want: FormatLatexFragment},
		{in: "LaTeX", want: FormatLatexFragment},
		{in: "pdf", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseFormat(tt.in)
			if tt.wantErr {
				require.ErrorIs(t, err, ErrInvalidFormat)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSanitizeFragment(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "plain fragment untouched",
			in:   "\\section{Skills}\nGo, SQL",
			want: "\\section{Skills}\nGo, SQL",
		},
		{
			name: "indented document commands",
			in:   "  \\documentclass[letterpaper]{article}\n\\section{A}\n  \\end{document}",
			want: "\\section{A}",
		},
		{
			name: "content sharing a line with a document command",
			in:   "\\begin{document}\\section{Experience}\n\\resumeItem{Built X}\\end{document}",
			want: "\\section{Experience}\n\\resumeItem{Built X}",
		},
		{
			name: "preamble with options",
			in:   "\\documentclass[11pt]{article} \\usepackage[margin=1in]{geometry}\n\\section{A}",
			want: "\\section{A}",
		},
		{
			name: "other environments kept",
			in:   "\\begin{itemize}\n\\item Go\n\\end{itemize}",
			want: "\\begin{itemize}\n\\item Go\n\\end{itemize}",
		},
		{
			name: "fence without language",
			in:   "```\n\\section{A}\n```",
			want: "\\section{A}",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SanitizeFragment(tt.in))
		})
	}
}
