package engine

import "fmt"

// ExecutionError reports an order the broker rejected or a direction the
// executor refuses to size. The opportunity is discarded and no state is
// mutated.
type ExecutionError struct {
	Instrument string
	Reason     string
	Err        error
}

func (e *ExecutionError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("execution failed for %s: %s: %v", e.Instrument, e.Reason, e.Err)
	}
	return fmt.Sprintf("execution failed for %s: %s", e.Instrument, e.Reason)
}

func (e *ExecutionError) Unwrap() error { return e.Err }
