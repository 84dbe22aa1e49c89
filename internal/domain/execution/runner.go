package execution

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/felixgeelhaar/instancer/internal/domain/checkpoint"
	"github.com/felixgeelhaar/instancer/internal/domain/identity"
	"github.com/felixgeelhaar/instancer/internal/ports"
)

// Runner executes a registry against one instance, checkpointing after every
// step. Steps run one at a time on the calling goroutine.
type Runner struct {
	registry *Registry
	store    checkpoint.Store
	logger   ports.Logger
	observer Observer
	now      func() time.Time
	newRunID func() string
}

// RunnerOption configures a Runner.
type RunnerOption func(*Runner)

// WithObserver adds an observer. It may be given more than once.
func WithObserver(obs Observer) RunnerOption {
	return func(r *Runner) {
		if existing, ok := r.observer.(Observers); ok {
			r.observer = append(existing, obs)
			return
		}
		r.observer = Observers{obs}
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) RunnerOption {
	return func(r *Runner) {
		r.now = now
	}
}

// WithRunIDGenerator replaces the random run ID source.
func WithRunIDGenerator(fn func() string) RunnerOption {
	return func(r *Runner) {
		r.newRunID = fn
	}
}

// NewRunner creates a Runner over registry, recording progress in store.
func NewRunner(registry *Registry, store checkpoint.Store, logger ports.Logger, opts ...RunnerOption) *Runner {
	r := &Runner{
		registry: registry,
		store:    store,
		logger:   logger,
		observer: Observers{},
		now:      time.Now,
		newRunID: uuid.NewString,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Registry returns the step sequence the runner executes.
func (r *Runner) Registry() *Registry {
	return r.registry
}

// Run executes every step after the stored checkpoint for id.
//
// On success the checkpoint is cleared and the report's State is
// RunSucceeded; a failure to clear is logged and kept in Report.ClearErr.
// When a body fails the run stops, the checkpoint keeps the previous index
// and a *StepExecutionError is returned. When the checkpoint cannot be
// written the run stops with a *checkpoint.StoreIOError.
func (r *Runner) Run(ctx context.Context, id identity.Identity) (*Report, error) {
	if err := r.registry.Validate(); err != nil {
		return nil, err
	}

	total := r.registry.Len()
	runID := r.newRunID()
	logger := r.logger.With(ports.F("run_id", runID), ports.F("instance", id.Name))

	machine, err := newRunMachine(r.now)
	if err != nil {
		return nil, err
	}
	defer machine.stop()

	machine.start()

	tracker := checkpoint.NewTracker(r.store, id.CheckpointKey, total, logger)
	last := tracker.Resume(ctx)

	report := &Report{
		RunID:         runID,
		Instance:      id.Name,
		Total:         total,
		ResumedFrom:   last,
		LastCompleted: last,
		Results:       make([]StepResult, 0, total),
	}

	if last > 0 {
		logger.Info(ctx, "resuming from checkpoint", ports.F("last_completed", last), ports.F("steps", total))
	} else {
		logger.Info(ctx, "starting provisioning", ports.F("steps", total))
	}
	r.observer.RunStarted(RunInfo{RunID: runID, Instance: id.Name, Total: total, ResumedFrom: last})

	rc := NewRunContext(ctx, id, runID, logger)

	for _, step := range r.registry.Steps() {
		info := StepInfo{Index: step.Index, Label: step.Label, Total: total}
		stepLogger := logger.With(ports.F("step", step.Index), ports.F("label", step.Label))

		if step.Index <= last {
			stepLogger.Info(ctx, "skipping step, completed in a previous run")
			report.Results = append(report.Results, StepResult{
				Index:   step.Index,
				Label:   step.Label,
				State:   StepCompleted,
				Skipped: true,
			})
			r.observer.StepSkipped(info)
			continue
		}

		if err := ctx.Err(); err != nil {
			cause := fmt.Errorf("interrupted before step %d (%s): %w", step.Index, step.Label, err)
			stepLogger.Error(ctx, "run interrupted, re-run with the same name to resume at this step")
			return r.abort(machine, report, tracker, cause)
		}

		stepLogger.Info(ctx, "starting step")
		r.observer.StepStarted(info)

		start := r.now()
		applyErr := step.Body.Apply(rc.withLogger(stepLogger))
		elapsed := r.now().Sub(start)

		if applyErr != nil {
			report.Results = append(report.Results, StepResult{
				Index:    step.Index,
				Label:    step.Label,
				State:    StepFailed,
				Duration: elapsed,
				Err:      applyErr,
			})
			r.observer.StepFailed(info, applyErr, elapsed)

			stepErr := &StepExecutionError{
				Index:         step.Index,
				Label:         step.Label,
				LastCompleted: tracker.Last(),
				Err:           applyErr,
			}
			stepLogger.Error(ctx, "step failed, re-run with the same name to resume at this step",
				ports.Err(applyErr), ports.F("last_completed", tracker.Last()))
			return r.abort(machine, report, tracker, stepErr)
		}

		if err := tracker.Advance(ctx, step.Index); err != nil {
			report.Results = append(report.Results, StepResult{
				Index:    step.Index,
				Label:    step.Label,
				State:    StepCompleted,
				Duration: elapsed,
				Err:      err,
			})
			r.observer.StepFailed(info, err, elapsed)
			stepLogger.Error(ctx, "step completed but progress could not be recorded, re-run to repeat it",
				ports.Err(err), ports.F("last_completed", tracker.Last()))
			return r.abort(machine, report, tracker, err)
		}

		report.Results = append(report.Results, StepResult{
			Index:    step.Index,
			Label:    step.Label,
			State:    StepCompleted,
			Duration: elapsed,
		})
		report.LastCompleted = step.Index
		stepLogger.Info(ctx, "step completed", ports.F("elapsed", elapsed.Round(time.Millisecond)))
		r.observer.StepCompleted(info, elapsed)
	}

	machine.finish()

	if err := tracker.Complete(ctx); err != nil {
		report.ClearErr = err
		logger.Warn(ctx, "all steps completed but the checkpoint could not be removed; the next run will skip every step and retry",
			ports.Err(err))
	}

	report.LastCompleted = total
	r.finalize(machine, report)
	logger.Info(ctx, "provisioning complete",
		ports.F("executed", report.Executed()),
		ports.F("skipped", report.SkippedCount()),
		ports.F("elapsed", report.Duration().Round(time.Millisecond)))
	r.observer.RunFinished(report)
	return report, nil
}

func (r *Runner) abort(machine *runMachine, report *Report, tracker *checkpoint.Tracker, cause error) (*Report, error) {
	machine.abort(cause)
	report.Err = cause
	report.LastCompleted = tracker.Last()
	r.finalize(machine, report)
	r.observer.RunFinished(report)
	return report, cause
}

func (r *Runner) finalize(machine *runMachine, report *Report) {
	report.State = machine.State()
	report.StartedAt, report.FinishedAt, _ = machine.times.snapshot()
}

// IsStepFailure reports whether err came from a failing step body.
func IsStepFailure(err error) bool {
	var stepErr *StepExecutionError
	return errors.As(err, &stepErr)
}
