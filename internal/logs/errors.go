package logs

import (
	"errors"
	"fmt"
	"strings"
)

// ErrNotFound is returned for ids that are malformed, unknown or owned by
// another tenant. Callers cannot tell these cases apart.
var ErrNotFound = errors.New("log not found")

// FieldError describes one invalid field. Index is set for batch elements.
type FieldError struct {
	Index   *int   `json:"index,omitempty"`
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (e FieldError) String() string {
	if e.Index != nil {
		return fmt.Sprintf("[%d].%s: %s", *e.Index, e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationError lists every problem found in a request. Nothing is
// persisted when it is returned.
type ValidationError struct {
	Errors []FieldError
}

func (e *ValidationError) Error() string {
	parts := make([]string, len(e.Errors))
	for i, fe := range e.Errors {
		parts[i] = fe.String()
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

func invalid(field, format string, args ...any) *ValidationError {
	return &ValidationError{Errors: []FieldError{{Field: field, Message: fmt.Sprintf(format, args...)}}}
}
