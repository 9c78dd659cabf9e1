package transform

import "fmt"

// ValidationError reports a configured operation referencing something the
// dataset does not have: an unknown field, or an operation name the stage
// does not recognize.
type ValidationError struct {
	Op     string
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("validation error: op %q: field %q: %s", e.Op, e.Field, e.Reason)
	}
	return fmt.Sprintf("validation error: op %q: %s", e.Op, e.Reason)
}

func unknownField(op, field string) error {
	return &ValidationError{Op: op, Field: field, Reason: "not in dataset schema"}
}
