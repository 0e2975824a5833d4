package paraphrase

import (
	"errors"
	"fmt"
)

var (
	// ErrFormatting indicates a template could not be rendered with the given arguments.
	ErrFormatting = errors.New("formatting error")

	// ErrInvalidMethod indicates a paraphrase method that cannot be used.
	ErrInvalidMethod = errors.New("invalid paraphrase method")

	// ErrNoTemplates indicates an empty template list was given for selection.
	ErrNoTemplates = errors.New("no templates to select from")
)

// FormatError describes a template rendering failure. It matches ErrFormatting
// under errors.Is.
type FormatError struct {
	Template string
	Key      string
	Reason   string
}

func (e *FormatError) Error() string {
	if e.Key != "" {
		return fmt.Sprintf("%s: %s %q in template %q", ErrFormatting, e.Reason, e.Key, e.Template)
	}
	return fmt.Sprintf("%s: %s in template %q", ErrFormatting, e.Reason, e.Template)
}

func (e *FormatError) Unwrap() error {
	return ErrFormatting
}
