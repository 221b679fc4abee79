package assertions

import (
	"fmt"
	"strings"
)

// StatusMismatchError reports a status code outside the accepted set.
type StatusMismatchError struct {
	Expected []int
	Actual   int
}

func (e *StatusMismatchError) Error() string {
	if len(e.Expected) == 1 {
		return fmt.Sprintf("status mismatch: expected %d, got %d", e.Expected[0], e.Actual)
	}
	codes := make([]string, len(e.Expected))
	for i, c := range e.Expected {
		codes[i] = fmt.Sprintf("%d", c)
	}
	return fmt.Sprintf("status mismatch: expected one of %s, got %d", strings.Join(codes, ", "), e.Actual)
}

// ShapeMismatchError reports a failing JSON path of a shape template.
type ShapeMismatchError struct {
	Path     string
	Expected any
	Actual   any
	Reason   string
}

func (e *ShapeMismatchError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("shape mismatch at %s: %s", e.Path, e.Reason)
	}
	return fmt.Sprintf("shape mismatch at %s: expected %s, got %s", e.Path, display(e.Expected), display(e.Actual))
}

func display(v any) string {
	if s, ok := v.(string); ok {
		return fmt.Sprintf("%q", s)
	}
	if v == nil {
		return "null"
	}
	return fmt.Sprintf("%v", v)
}
