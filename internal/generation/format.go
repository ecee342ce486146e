package generation

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/jonathan/resume-optimizer/internal/llm"
)

// Format selects the shape of a generated resume.
type Format string

// Supported formats.
const (
	FormatText          Format = "text"
	FormatLatexFragment Format = "latex_fragment"
)

// ParseFormat normalizes a requested format. An empty value means text and
// "latex" is accepted for latex_fragment.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", string(FormatText):
		return FormatText, nil
	case string(FormatLatexFragment), "latex":
		return FormatLatexFragment, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidFormat, s)
	}
}

// documentCommand matches the document-level commands a fragment must not carry.
var documentCommand = regexp.MustCompile(
	`\\(?:documentclass|usepackage)\s*(?:\[[^\]]*\])?\s*(?:\{[^}]*\})?|\\(?:begin|end)\s*\{document\}`)

// SanitizeFragment removes code fences and document-level commands from a
// LaTeX answer. Only the commands are removed; content sharing their line stays.
func SanitizeFragment(text string) string {
	text = llm.CleanFence(text)

	lines := strings.Split(text, "\n")
	kept := lines[:0]
	for _, line := range lines {
		if strings.HasPrefix(strings.TrimSpace(line), "```") {
			continue
		}
		if documentCommand.MatchString(line) {
			line = documentCommand.ReplaceAllString(line, "")
			if strings.TrimSpace(line) == "" {
				continue
			}
		}
		kept = append(kept, line)
	}
	return strings.TrimSpace(strings.Join(kept, "\n"))
}
