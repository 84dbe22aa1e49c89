// Package system configures host-wide settings.
package system

import (
	"fmt"

	"github.com/felixgeelhaar/instancer/internal/domain/execution"
	"github.com/felixgeelhaar/instancer/internal/ports"
	"github.com/felixgeelhaar/instancer/internal/provider/commandutil"
	"github.com/felixgeelhaar/instancer/internal/validation"
)

// TimezoneStep sets the system timezone through timedatectl.
type TimezoneStep struct {
	timezone string
	runner   ports.CommandRunner
}

// NewTimezoneStep creates a new TimezoneStep.
func NewTimezoneStep(timezone string, runner ports.CommandRunner) *TimezoneStep {
	return &TimezoneStep{timezone: timezone, runner: runner}
}

// Describe implements execution.Describer.
func (s *TimezoneStep) Describe() string {
	return "timedatectl set-timezone " + s.timezone
}

// Apply sets the timezone unless it is already current.
func (s *TimezoneStep) Apply(rc execution.RunContext) error {
	ctx := rc.Context()
	if err := validation.ValidateTimezone(s.timezone); err != nil {
		return fmt.Errorf("invalid timezone: %w", err)
	}

	result, ok, err := commandutil.Probe(ctx, s.runner, "timedatectl", "show", "--property=Timezone", "--value")
	if err != nil {
		return err
	}
	if ok && result.Output() == s.timezone {
		rc.Logger().Info(ctx, "timezone already set", ports.F("timezone", s.timezone))
		return nil
	}

	if _, err := commandutil.Run(ctx, s.runner, "timedatectl", "set-timezone", s.timezone); err != nil {
		return fmt.Errorf("set timezone: %w", err)
	}
	rc.Logger().Info(ctx, "timezone set", ports.F("timezone", s.timezone), ports.F("previous", result.Output()))
	return nil
}
