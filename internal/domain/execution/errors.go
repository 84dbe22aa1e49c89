package execution

import "fmt"

// StepExecutionError reports a body that failed. The checkpoint still holds
// LastCompleted, so re-running with the same identity resumes at Index.
type StepExecutionError struct {
	Index         int
	Label         string
	LastCompleted int
	Err           error
}

func (e *StepExecutionError) Error() string {
	return fmt.Sprintf("step %d (%s) failed: %v", e.Index, e.Label, e.Err)
}

// Unwrap returns the body's error.
func (e *StepExecutionError) Unwrap() error {
	return e.Err
}
