package execution

import (
	"fmt"
	"strings"
)

// RegistryError reports a malformed step sequence. It indicates a bug in
// plan construction, never an operator mistake.
type RegistryError struct {
	Index  int
	Reason string
}

func (e *RegistryError) Error() string {
	if e.Index > 0 {
		return fmt.Sprintf("invalid step registry at step %d: %s", e.Index, e.Reason)
	}
	return "invalid step registry: " + e.Reason
}

// Registry is an ordered list of step definitions indexed 1..N.
type Registry struct {
	steps []StepDefinition
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{steps: make([]StepDefinition, 0)}
}

// NewRegistryFrom creates a registry from prebuilt definitions, keeping their
// indices as given. Call Validate before running it.
func NewRegistryFrom(defs ...StepDefinition) *Registry {
	steps := make([]StepDefinition, len(defs))
	copy(steps, defs)
	return &Registry{steps: steps}
}

// Add appends a step and returns the index it was given.
func (r *Registry) Add(label string, body Body) int {
	index := len(r.steps) + 1
	r.steps = append(r.steps, StepDefinition{Index: index, Label: label, Body: body})
	return index
}

// Len returns the number of steps.
func (r *Registry) Len() int {
	return len(r.steps)
}

// Steps returns a copy of the definitions in order.
func (r *Registry) Steps() []StepDefinition {
	out := make([]StepDefinition, len(r.steps))
	copy(out, r.steps)
	return out
}

// Step returns the definition at a 1-based index.
func (r *Registry) Step(index int) (StepDefinition, bool) {
	if index < 1 || index > len(r.steps) {
		return StepDefinition{}, false
	}
	return r.steps[index-1], true
}

// Validate checks that the registry is non-empty, indices run 1..N without
// gaps and every step has a label and a body.
func (r *Registry) Validate() error {
	if len(r.steps) == 0 {
		return &RegistryError{Reason: "no steps registered"}
	}
	for i, s := range r.steps {
		want := i + 1
		if s.Index != want {
			return &RegistryError{Index: want, Reason: fmt.Sprintf("found index %d, indices must be contiguous from 1", s.Index)}
		}
		if strings.TrimSpace(s.Label) == "" {
			return &RegistryError{Index: want, Reason: "empty label"}
		}
		if s.Body == nil {
			return &RegistryError{Index: want, Reason: fmt.Sprintf("step %q has no body", s.Label)}
		}
	}
	return nil
}
