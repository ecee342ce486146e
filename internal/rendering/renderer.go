// Package rendering embeds generated LaTeX fragments into a complete document.
package rendering

import (
	_ "embed"
	"fmt"
	"os"
	"strings"
	"text/template"
)

//go:embed templates/resume.tex.tmpl
var defaultTemplate string

// Header is the contact block printed above the fragment.
type Header struct {
	Name  string
	Email string
}

type templateData struct {
	Name  string
	Email string
	Body  string
}

// Renderer renders fragments with a parsed document template. It is safe for
// concurrent use.
type Renderer struct {
	tmpl *template.Template
}

// NewRenderer parses the template at templatePath, or the embedded default
// when templatePath is empty. Templates use [[ ]] delimiters so LaTeX braces
// stay literal.
func NewRenderer(templatePath string) (*Renderer, error) {
	content := defaultTemplate
	if templatePath != "" {
		data, err := os.ReadFile(templatePath)
		if err != nil {
			if os.IsNotExist(err) {
				return nil, &TemplateError{
					Message: fmt.Sprintf("template file not found: %s", templatePath),
					Cause:   err,
				}
			}
			return nil, &TemplateError{
				Message: fmt.Sprintf("failed to read template file: %s", templatePath),
				Cause:   err,
			}
		}
		content = string(data)
	}

	tmpl, err := template.New("document").
		Delims("[[", "]]").
		Option("missingkey=error").
		Funcs(template.FuncMap{"escape": EscapeLaTeX}).
		Parse(content)
	if err != nil {
		return nil, &TemplateError{Message: "failed to parse template", Cause: err}
	}
	return &Renderer{tmpl: tmpl}, nil
}

// Render returns the .tex source for fragment. Header fields are escaped; the
// fragment is inserted as is and is expected to be sanitized already.
func (r *Renderer) Render(fragment string, h Header) (string, error) {
	fragment = strings.TrimSpace(fragment)
	if fragment == "" {
		return "", ErrEmptyFragment
	}

	var out strings.Builder
	err := r.tmpl.Execute(&out, templateData{
		Name:  EscapeLaTeX(strings.TrimSpace(h.Name)),
		Email: EscapeLaTeX(strings.TrimSpace(h.Email)),
		Body:  fragment,
	})
	if err != nil {
		return "", &TemplateError{Message: "failed to execute template", Cause: err}
	}
	return out.String(), nil
}
