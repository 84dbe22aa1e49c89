// Package app wires configuration, adapters and the provisioning plan into
// the operations the CLI exposes.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/felixgeelhaar/instancer/internal/config"
	"github.com/felixgeelhaar/instancer/internal/domain/checkpoint"
	"github.com/felixgeelhaar/instancer/internal/domain/execution"
	"github.com/felixgeelhaar/instancer/internal/domain/identity"
	"github.com/felixgeelhaar/instancer/internal/ports"
)

// Installer provisions instances and inspects their progress.
type Installer struct {
	cfg       *config.Config
	host      Host
	store     checkpoint.Store
	logger    ports.Logger
	out       io.Writer
	observers []execution.Observer
	runOpts   []execution.RunnerOption
}

// NewInstaller creates an Installer.
func NewInstaller(cfg *config.Config, host Host, store checkpoint.Store, logger ports.Logger, out io.Writer) *Installer {
	return &Installer{
		cfg:    cfg,
		host:   host,
		store:  store,
		logger: logger,
		out:    out,
	}
}

// WithObserver adds a progress observer to every run.
func (i *Installer) WithObserver(obs execution.Observer) *Installer {
	i.observers = append(i.observers, obs)
	return i
}

// WithRunnerOptions passes extra options to the runner.
func (i *Installer) WithRunnerOptions(opts ...execution.RunnerOption) *Installer {
	i.runOpts = append(i.runOpts, opts...)
	return i
}

// Plan returns the step registry for the current configuration.
func (i *Installer) Plan() *execution.Registry {
	return BuildPlan(i.cfg, i.host)
}

// Resolve validates operator input against the configured layout.
func (i *Installer) Resolve(in identity.Input) (identity.Identity, error) {
	return identity.Resolve(in, i.cfg.Layout)
}

// Install resolves in and runs every step after the stored checkpoint.
// Invalid input fails before any step runs and returns no report.
func (i *Installer) Install(ctx context.Context, in identity.Input) (*execution.Report, error) {
	id, err := i.Resolve(in)
	if err != nil {
		return nil, err
	}

	opts := make([]execution.RunnerOption, 0, len(i.observers)+len(i.runOpts))
	for _, obs := range i.observers {
		opts = append(opts, execution.WithObserver(obs))
	}
	opts = append(opts, i.runOpts...)

	runner := execution.NewRunner(i.Plan(), i.store, i.logger, opts...)
	return runner.Run(ctx, id)
}

// Status is the stored progress of one instance.
type Status struct {
	Name          string
	LastCompleted int
	Total         int
	// Unreadable is set when the record exists but cannot be trusted; the
	// next run starts from step 1.
	Unreadable bool
	Err        error
	Next       *execution.StepDefinition
}

// Fresh reports whether no step has been recorded.
func (s Status) Fresh() bool {
	return s.LastCompleted == 0
}

// Status reports the checkpoint of the instance called name.
func (i *Installer) Status(ctx context.Context, name string) (Status, error) {
	name = strings.TrimSpace(name)
	if err := identity.ValidateName(name); err != nil {
		return Status{}, err
	}

	plan := i.Plan()
	st := Status{Name: name, Total: plan.Len()}

	last, err := i.store.Load(ctx, identity.CheckpointKey(name))
	switch {
	case err != nil:
		st.Unreadable = true
		st.Err = err
	case last > st.Total:
		st.Unreadable = true
		st.Err = fmt.Errorf("%w: %d exceeds %d steps", checkpoint.ErrCorrupt, last, st.Total)
	default:
		st.LastCompleted = last
	}

	if next, ok := plan.Step(st.LastCompleted + 1); ok {
		st.Next = &next
	}
	return st, nil
}

// Reset removes the checkpoint of the instance called name, so the next run
// starts at step 1.
func (i *Installer) Reset(ctx context.Context, name string) error {
	name = strings.TrimSpace(name)
	if err := identity.ValidateName(name); err != nil {
		return err
	}
	if err := i.store.Clear(ctx, identity.CheckpointKey(name)); err != nil {
		return err
	}
	i.logger.Info(ctx, "checkpoint cleared", ports.F("instance", name))
	return nil
}

// PrintSteps lists the plan.
func (i *Installer) PrintSteps() {
	for _, step := range i.Plan().Steps() {
		i.printf("%2d. %s", step.Index, step.Label)
		if desc := step.Description(); desc != "" {
			i.printf("  (%s)", desc)
		}
		i.printf("\n")
	}
}

// PrintStatus outputs a human-readable status.
func (i *Installer) PrintStatus(st Status) {
	i.printf("Instance: %s\n", st.Name)
	switch {
	case st.Unreadable:
		i.printf("Checkpoint: unreadable (%v)\n", st.Err)
		i.printf("The next run starts from step 1.\n")
	case st.Fresh():
		i.printf("Checkpoint: none\n")
		i.printf("The next run starts from step 1.\n")
	default:
		i.printf("Checkpoint: %d of %d steps completed\n", st.LastCompleted, st.Total)
	}
	if st.Next != nil && !st.Fresh() {
		i.printf("Next step: %d. %s\n", st.Next.Index, st.Next.Label)
	}
}

// PrintReport outputs the result of a run.
func (i *Installer) PrintReport(report *execution.Report) {
	if report == nil {
		return
	}

	i.printf("\nProvisioning %s\n", report.Instance)
	i.printf("%s\n\n", strings.Repeat("=", len("Provisioning ")+len(report.Instance)))

	for _, res := range report.Results {
		mark := "✓"
		note := res.Duration.Round(time.Millisecond).String()
		switch {
		case res.Skipped:
			mark = "-"
			note = "skipped"
		case res.State == execution.StepFailed:
			mark = "✗"
		}
		i.printf("  %s %2d. %-40s %s\n", mark, res.Index, res.Label, note)
	}

	i.printf("\n")
	switch {
	case report.Succeeded():
		i.printf("Completed %d steps (%d skipped) in %s.\n",
			report.Executed(), report.SkippedCount(), report.Duration().Round(time.Millisecond))
		if report.ClearErr != nil {
			i.printf("Warning: checkpoint could not be removed: %v\n", report.ClearErr)
		}
	default:
		var stepErr *execution.StepExecutionError
		if errors.As(report.Err, &stepErr) {
			i.printf("Step %d (%s) failed. Re-run to resume from step %d.\n",
				stepErr.Index, stepErr.Label, stepErr.Index)
		} else if report.Err != nil {
			i.printf("Aborted after step %d: %v\n", report.LastCompleted, report.Err)
		}
	}
}

func (i *Installer) printf(format string, args ...interface{}) {
	if i.out != nil {
		_, _ = fmt.Fprintf(i.out, format, args...)
	}
}
