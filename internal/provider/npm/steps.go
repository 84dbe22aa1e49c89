package npm

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/felixgeelhaar/instancer/internal/domain/execution"
	"github.com/felixgeelhaar/instancer/internal/domain/identity"
	"github.com/felixgeelhaar/instancer/internal/ports"
	"github.com/felixgeelhaar/instancer/internal/provider/commandutil"
	"github.com/felixgeelhaar/instancer/internal/provider/versionutil"
	"github.com/felixgeelhaar/instancer/internal/validation"
)

// Selector picks the packages an instance needs.
type Selector func(id identity.Identity) []Package

// RTLCSSSince is the first release whose asset pipeline uses rtlcss instead
// of less.
const RTLCSSSince = "12.0"

// CSSToolchain selects the stylesheet compiler for the instance's release.
func CSSToolchain(id identity.Identity) []Package {
	if versionutil.AtLeast(id.Version, RTLCSSSince) {
		return []Package{{Name: "rtlcss"}}
	}
	return []Package{{Name: "less"}, {Name: "less-plugin-clean-css"}}
}

// Packages returns a Selector that always yields pkgs.
func Packages(pkgs ...Package) Selector {
	return func(identity.Identity) []Package {
		return pkgs
	}
}

// GlobalPackagesStep installs npm packages globally.
type GlobalPackagesStep struct {
	runner ports.CommandRunner
	selector Selector
}

// NewGlobalPackagesStep creates a new GlobalPackagesStep.
func NewGlobalPackagesStep(runner ports.CommandRunner, sel Selector) *GlobalPackagesStep {
	return &GlobalPackagesStep{runner: runner, selector: sel}
}

// Describe implements execution.Describer.
func (s *GlobalPackagesStep) Describe() string {
	return "npm install -g"
}

// Apply installs the selected packages that npm does not list as global.
func (s *GlobalPackagesStep) Apply(rc execution.RunContext) error {
	ctx := rc.Context()
	pkgs := s.selector(rc.Identity())

	for _, pkg := range pkgs {
		if err := validation.ValidateNpmPackage(pkg.FullName()); err != nil {
			return fmt.Errorf("invalid npm package: %w", err)
		}
	}

	installed, err := s.installed(rc)
	if err != nil {
		return err
	}

	missing := make([]string, 0, len(pkgs))
	for _, pkg := range pkgs {
		if _, ok := installed[pkg.Name]; !ok {
			missing = append(missing, pkg.FullName())
		}
	}
	if len(missing) == 0 {
		rc.Logger().Info(ctx, "npm packages already installed")
		return nil
	}

	args := append([]string{"install", "-g"}, missing...)
	if _, err := commandutil.Run(ctx, s.runner, "npm", args...); err != nil {
		return fmt.Errorf("npm install -g %s: %w", strings.Join(missing, " "), err)
	}
	rc.Logger().Info(ctx, "npm packages installed", ports.F("packages", strings.Join(missing, ",")))
	return nil
}

// installed lists global packages. npm list exits 1 when the tree has
// problems but still prints JSON, so the exit code is ignored.
func (s *GlobalPackagesStep) installed(rc execution.RunContext) (map[string]string, error) {
	result, err := s.runner.Run(rc.Context(), "npm", "list", "-g", "--depth=0", "--json")
	if err != nil {
		if commandutil.IsCommandNotFound(err) {
			return nil, fmt.Errorf("npm: command not found: %w", err)
		}
		return nil, fmt.Errorf("npm list: %w", err)
	}

	var list struct {
		Dependencies map[string]struct {
			Version string `json:"version"`
		} `json:"dependencies"`
	}
	if strings.TrimSpace(result.Stdout) == "" {
		return map[string]string{}, nil
	}
	if err := json.Unmarshal([]byte(result.Stdout), &list); err != nil {
		return nil, fmt.Errorf("failed to parse npm list output: %w", err)
	}

	out := make(map[string]string, len(list.Dependencies))
	for name, dep := range list.Dependencies {
		out[name] = dep.Version
	}
	return out, nil
}
