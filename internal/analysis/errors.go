package analysis

import "fmt"

// ComputationError reports numerically invalid analysis input, e.g. too few
// samples for a fit or a singular design.
type ComputationError struct {
	Analysis string
	Reason   string
}

func (e *ComputationError) Error() string {
	return fmt.Sprintf("computation error: %s: %s", e.Analysis, e.Reason)
}

func computef(analysis, format string, args ...any) error {
	return &ComputationError{Analysis: analysis, Reason: fmt.Sprintf(format, args...)}
}
