package generation

import "strings"

// dashReplacer rewrites em dashes into a spaced hyphen. Cover letters must
// not contain them, and models add them regardless of the prompt.
var dashReplacer = strings.NewReplacer(
	" — ", " - ",
	"—", " - ",
	" ― ", " - ",
	"―", " - ",
)

// ReplaceEmDashes removes em dashes from text.
func ReplaceEmDashes(text string) string {
	return dashReplacer.Replace(text)
}

// ForbiddenPhrases returns the phrases found in text, case-insensitively and
// in the order given. Each phrase is reported once.
func ForbiddenPhrases(text string, phrases []string) []string {
	if len(phrases) == 0 {
		return nil
	}

	normalized := strings.ToLower(text)
	var found []string
	seen := make(map[string]bool)
	for _, phrase := range phrases {
		p := strings.ToLower(strings.TrimSpace(phrase))
		if p == "" || seen[p] {
			continue
		}
		if strings.Contains(normalized, p) {
			found = append(found, phrase)
			seen[p] = true
		}
	}
	return found
}
