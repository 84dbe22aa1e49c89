// Package apt installs Debian packages.
package apt

import (
	"fmt"
	"strings"

	"github.com/felixgeelhaar/instancer/internal/domain/execution"
	"github.com/felixgeelhaar/instancer/internal/ports"
	"github.com/felixgeelhaar/instancer/internal/provider/commandutil"
	"github.com/felixgeelhaar/instancer/internal/validation"
)

// PackagesStep installs a set of packages that are not yet installed.
type PackagesStep struct {
	packages []string
	runner   ports.CommandRunner
}

// NewPackagesStep creates a new PackagesStep.
func NewPackagesStep(packages []string, runner ports.CommandRunner) *PackagesStep {
	return &PackagesStep{
		packages: append([]string(nil), packages...),
		runner:   runner,
	}
}

// Packages returns the packages this step ensures.
func (s *PackagesStep) Packages() []string {
	return append([]string(nil), s.packages...)
}

// Describe implements execution.Describer.
func (s *PackagesStep) Describe() string {
	return "apt-get install " + strings.Join(s.packages, " ")
}

// Apply installs missing packages. Installed ones are left alone.
func (s *PackagesStep) Apply(rc execution.RunContext) error {
	ctx := rc.Context()
	log := rc.Logger()

	for _, pkg := range s.packages {
		if err := validation.ValidatePackageName(pkg); err != nil {
			return fmt.Errorf("invalid package name: %w", err)
		}
	}

	missing := make([]string, 0, len(s.packages))
	for _, pkg := range s.packages {
		installed, err := s.installed(rc, pkg)
		if err != nil {
			return err
		}
		if !installed {
			missing = append(missing, pkg)
		}
	}

	if len(missing) == 0 {
		log.Info(ctx, "packages already installed", ports.F("packages", strings.Join(s.packages, ",")))
		return nil
	}

	if _, err := commandutil.Run(ctx, s.runner, "apt-get", "update", "-q"); err != nil {
		return fmt.Errorf("refresh package index: %w", err)
	}

	args := append([]string{"install", "-y", "-q", "--no-install-recommends"}, missing...)
	if _, err := commandutil.Run(ctx, s.runner, "apt-get", args...); err != nil {
		return fmt.Errorf("install %s: %w", strings.Join(missing, " "), err)
	}
	log.Info(ctx, "packages installed", ports.F("packages", strings.Join(missing, ",")))
	return nil
}

// installed asks dpkg for the package's status. dpkg-query exits 1 for
// packages it has never seen.
func (s *PackagesStep) installed(rc execution.RunContext, pkg string) (bool, error) {
	result, ok, err := commandutil.Probe(rc.Context(), s.runner, "dpkg-query", "-W", "-f=${db:Status-Status}", pkg)
	if err != nil {
		return false, err
	}
	return ok && result.Output() == "installed", nil
}
