package dataset

import (
	"fmt"
	"strings"
)

// FormatError reports input that could not be parsed as tabular data.
type FormatError struct {
	Path string
	Err  error
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("format error: %s: %v", e.Path, e.Err)
}

func (e *FormatError) Unwrap() error { return e.Err }

// SchemaError reports fields the expected schema requires but the parsed
// table does not carry.
type SchemaError struct {
	Path    string
	Missing []string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("schema error: %s: missing fields: %s", e.Path, strings.Join(e.Missing, ", "))
}
