package extract

import (
	"regexp"
	"strings"
)

var (
	blankRunPattern = regexp.MustCompile(`\n\n\n+`)
	spacePattern    = regexp.MustCompile(`[ \t]+`)
)

// CleanText normalizes line endings, trims trailing whitespace on every line,
// collapses runs of spaces and limits blank lines to one in a row.
func CleanText(content string) string {
	if content == "" {
		return ""
	}

	content = strings.ReplaceAll(content, "\r\n", "\n")
	content = strings.ReplaceAll(content, "\r", "\n")
	content = strings.ReplaceAll(content, "\x00", "")

	lines := strings.Split(content, "\n")
	for i, line := range lines {
		lines[i] = cleanLine(line)
	}

	result := strings.Join(lines, "\n")
	result = blankRunPattern.ReplaceAllString(result, "\n\n")
	return strings.TrimSpace(result)
}

// cleanLine keeps leading indentation so bullet nesting survives.
func cleanLine(line string) string {
	line = strings.TrimRight(line, " \t")
	trimmed := strings.TrimLeft(line, " \t")
	if trimmed == "" {
		return ""
	}
	indent := len(line) - len(trimmed)
	return strings.Repeat(" ", indent) + spacePattern.ReplaceAllString(trimmed, " ")
}
