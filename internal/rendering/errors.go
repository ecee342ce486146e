package rendering

import (
	"errors"
	"fmt"
)

// ErrEmptyFragment is returned when there is no body to render.
var ErrEmptyFragment = errors.New("latex fragment is empty")

// TemplateError represents an error loading, parsing or executing the document template
type TemplateError struct {
	Message string
	Cause   error
}

func (e *TemplateError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("template error: %s: %v", e.Message, e.Cause)
	}
	return fmt.Sprintf("template error: %s", e.Message)
}

func (e *TemplateError) Unwrap() error {
	return e.Cause
}
