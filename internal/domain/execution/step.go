// Package execution runs a fixed, linear sequence of provisioning steps
// exactly once each, resuming after the last checkpointed step.
package execution

import (
	"context"

	"github.com/felixgeelhaar/instancer/internal/domain/identity"
	"github.com/felixgeelhaar/instancer/internal/ports"
)

// Body performs the work of one step.
//
// A body must tolerate finding its effect already present, because a crash
// can interrupt it after the effect was created but before the checkpoint was
// written. It guards its primary effect with an existence check and repeats
// secondary fix-ups such as ownership unconditionally.
type Body interface {
	Apply(rc RunContext) error
}

// BodyFunc adapts a function to Body.
type BodyFunc func(rc RunContext) error

// Apply calls f(rc).
func (f BodyFunc) Apply(rc RunContext) error {
	return f(rc)
}

// Describer is implemented by bodies that can summarise what they do.
type Describer interface {
	Describe() string
}

// StepDefinition binds a 1-based index and label to a body.
type StepDefinition struct {
	Index int
	Label string
	Body  Body
}

// Description returns the body's summary, or "" when it has none.
func (d StepDefinition) Description() string {
	if desc, ok := d.Body.(Describer); ok {
		return desc.Describe()
	}
	return ""
}

// RunContext is the read-only environment handed to every body.
type RunContext struct {
	ctx      context.Context
	identity identity.Identity
	runID    string
	logger   ports.Logger
}

// NewRunContext creates a RunContext.
func NewRunContext(ctx context.Context, id identity.Identity, runID string, logger ports.Logger) RunContext {
	return RunContext{ctx: ctx, identity: id, runID: runID, logger: logger}
}

// Context returns the underlying context.Context.
func (r RunContext) Context() context.Context {
	return r.ctx
}

// Identity returns the resolved instance.
func (r RunContext) Identity() identity.Identity {
	return r.identity
}

// RunID returns the identifier of the current run.
func (r RunContext) RunID() string {
	return r.runID
}

// Logger returns a logger scoped to the run and, inside a body, to the step.
func (r RunContext) Logger() ports.Logger {
	return r.logger
}

func (r RunContext) withLogger(logger ports.Logger) RunContext {
	r.logger = logger
	return r
}
