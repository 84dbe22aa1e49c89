package identity

import "fmt"

// InvalidInputError reports operator input that cannot identify an instance.
// It is raised before any step runs.
type InvalidInputError struct {
	Field  string
	Reason string
	Err    error
}

func invalid(field, reason string, err error) *InvalidInputError {
	return &InvalidInputError{Field: field, Reason: reason, Err: err}
}

func (e *InvalidInputError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("invalid %s: %s: %v", e.Field, e.Reason, e.Err)
	}
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// Unwrap returns the underlying validation error.
func (e *InvalidInputError) Unwrap() error {
	return e.Err
}
