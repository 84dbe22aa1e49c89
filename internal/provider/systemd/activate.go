package systemd

import (
	"fmt"

	"github.com/felixgeelhaar/instancer/internal/domain/execution"
	"github.com/felixgeelhaar/instancer/internal/ports"
	"github.com/felixgeelhaar/instancer/internal/provider/commandutil"
)

// ActivateStep enables and starts the instance service.
type ActivateStep struct {
	runner ports.CommandRunner
}

// NewActivateStep creates a new ActivateStep.
func NewActivateStep(runner ports.CommandRunner) *ActivateStep {
	return &ActivateStep{runner: runner}
}

// Describe implements execution.Describer.
func (s *ActivateStep) Describe() string {
	return "systemctl enable + start"
}

// Apply reloads unit files, then enables and starts the service if it is not
// already enabled and running.
func (s *ActivateStep) Apply(rc execution.RunContext) error {
	ctx := rc.Context()
	svc := rc.Identity().ServiceName
	log := rc.Logger().With(ports.F("service", svc))

	if _, err := commandutil.Run(ctx, s.runner, "systemctl", "daemon-reload"); err != nil {
		return fmt.Errorf("reload units: %w", err)
	}

	result, ok, err := commandutil.Probe(ctx, s.runner, "systemctl", "is-enabled", svc)
	if err != nil {
		return err
	}
	if ok && result.Output() == "enabled" {
		log.Info(ctx, "service already enabled")
	} else {
		if _, err := commandutil.Run(ctx, s.runner, "systemctl", "enable", svc); err != nil {
			return fmt.Errorf("enable %s: %w", svc, err)
		}
		log.Info(ctx, "service enabled")
	}

	_, active, err := commandutil.Probe(ctx, s.runner, "systemctl", "is-active", "--quiet", svc)
	if err != nil {
		return err
	}
	if active {
		log.Info(ctx, "service already running")
		return nil
	}
	if _, err := commandutil.Run(ctx, s.runner, "systemctl", "start", svc); err != nil {
		return fmt.Errorf("start %s: %w", svc, err)
	}
	log.Info(ctx, "service started")
	return nil
}
