// Package systemd installs and activates the instance's service unit.
package systemd

import (
	"bytes"
	"fmt"

	"github.com/felixgeelhaar/instancer/internal/domain/execution"
	"github.com/felixgeelhaar/instancer/internal/domain/identity"
	"github.com/felixgeelhaar/instancer/internal/ports"
	"github.com/felixgeelhaar/instancer/internal/templates"
)

// UnitMode is the mode of the unit file.
const UnitMode = 0o644

// RenderUnit renders the unit file for id.
func RenderUnit(id identity.Identity, after []string) ([]byte, error) {
	unit, err := templates.GenerateUnit(templates.UnitData{
		Description:      id.Name + " application server",
		User:             id.Name,
		WorkingDirectory: id.HomeDir,
		Python:           id.PythonBin(),
		ServerBin:        id.ServerBin(),
		ConfigPath:       id.ConfigPath,
		SyslogIdentifier: id.Name,
		After:            after,
	})
	if err != nil {
		return nil, err
	}
	return []byte(unit), nil
}

// UnitStep writes the service unit file.
type UnitStep struct {
	fs    ports.FileSystem
	after []string
}

// NewUnitStep creates a new UnitStep. after names extra units to order the
// service behind.
func NewUnitStep(fs ports.FileSystem, after ...string) *UnitStep {
	return &UnitStep{fs: fs, after: after}
}

// Describe implements execution.Describer.
func (s *UnitStep) Describe() string {
	return "render systemd unit"
}

// Apply writes the unit when its content changed and always resets its mode.
func (s *UnitStep) Apply(rc execution.RunContext) error {
	ctx := rc.Context()
	id := rc.Identity()

	content, err := RenderUnit(id, s.after)
	if err != nil {
		return fmt.Errorf("render unit: %w", err)
	}

	existing, err := s.fs.ReadFile(id.UnitPath)
	if err == nil && bytes.Equal(existing, content) {
		rc.Logger().Info(ctx, "unit up to date", ports.F("path", id.UnitPath))
	} else {
		if err := s.fs.WriteFileAtomic(id.UnitPath, content, UnitMode); err != nil {
			return fmt.Errorf("write %s: %w", id.UnitPath, err)
		}
		rc.Logger().Info(ctx, "unit written", ports.F("path", id.UnitPath))
	}

	if err := s.fs.Chmod(id.UnitPath, UnitMode); err != nil {
		return fmt.Errorf("chmod %s: %w", id.UnitPath, err)
	}
	return nil
}
