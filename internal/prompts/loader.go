// Package prompts holds the LLM prompt templates. Each embedded JSON file maps
// prompt keys to templates with {{.Key}} placeholders.
package prompts

import (
	"embed"
	"encoding/json"
	"fmt"
	"io/fs"
	"regexp"
	"strings"
	"sync"
)

//go:embed *.json
var promptFiles embed.FS

var placeholderPattern = regexp.MustCompile(`\{\{\.([A-Za-z][A-Za-z0-9]*)\}\}`)

// library is every embedded file, parsed on first use.
var library = sync.OnceValues(func() (map[string]map[string]string, error) {
	names, err := fs.Glob(promptFiles, "*.json")
	if err != nil {
		return nil, err
	}
	files := make(map[string]map[string]string, len(names))
	for _, name := range names {
		data, err := promptFiles.ReadFile(name)
		if err != nil {
			return nil, fmt.Errorf("failed to read prompt file %s: %w", name, err)
		}
		var entries map[string]string
		if err := json.Unmarshal(data, &entries); err != nil {
			return nil, fmt.Errorf("failed to parse prompt file %s: %w", name, err)
		}
		files[name] = entries
	}
	return files, nil
})

// Get returns the template stored under key in filename (e.g. "style.json").
func Get(filename, key string) (string, error) {
	files, err := library()
	if err != nil {
		return "", err
	}
	entries, ok := files[filename]
	if !ok {
		return "", fmt.Errorf("prompt file %q is not embedded", filename)
	}
	prompt, ok := entries[key]
	if !ok {
		return "", fmt.Errorf("prompt key %q not found in %s", key, filename)
	}
	return prompt, nil
}

// MustGet is Get for prompts the binary cannot run without.
func MustGet(filename, key string) string {
	prompt, err := Get(filename, key)
	if err != nil {
		panic(fmt.Sprintf("failed to load prompt: %v", err))
	}
	return prompt
}

// Format replaces {{.Key}} placeholders with values from data.
// Replacement is a single pass, so placeholders inside values stay literal.
func Format(template string, data map[string]string) string {
	pairs := make([]string, 0, 2*len(data))
	for key, value := range data {
		pairs = append(pairs, "{{."+key+"}}", value)
	}
	return strings.NewReplacer(pairs...).Replace(template)
}

// MustFormat loads a template and fills it. Every placeholder in the template
// must have a value in data; a missing one panics instead of reaching the model.
func MustFormat(filename, key string, data map[string]string) string {
	template := MustGet(filename, key)
	if missing := Missing(template, data); len(missing) > 0 {
		panic(fmt.Sprintf("prompt %s/%s: no value for %s", filename, key, strings.Join(missing, ", ")))
	}
	return Format(template, data)
}

// Missing lists the placeholders of template that data has no value for.
func Missing(template string, data map[string]string) []string {
	var missing []string
	seen := make(map[string]bool)
	for _, m := range placeholderPattern.FindAllStringSubmatch(template, -1) {
		name := m[1]
		if _, ok := data[name]; ok || seen[name] {
			continue
		}
		seen[name] = true
		missing = append(missing, name)
	}
	return missing
}
