package pipeline

import "fmt"

// StageError wraps a stage failure with the stage name and the identifying
// input artifact, which is what the driver surfaces to the caller when it
// halts a run.
type StageError struct {
	Stage string
	Input string
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("stage %s failed on %s: %v", e.Stage, e.Input, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }
