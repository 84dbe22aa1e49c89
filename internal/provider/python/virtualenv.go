package python

import (
	"fmt"
	"path/filepath"

	"github.com/felixgeelhaar/instancer/internal/adapters/command"
	"github.com/felixgeelhaar/instancer/internal/domain/execution"
	"github.com/felixgeelhaar/instancer/internal/ports"
	"github.com/felixgeelhaar/instancer/internal/provider/commandutil"
	"github.com/felixgeelhaar/instancer/internal/validation"
)

// DefaultInterpreter creates the virtual environment.
const DefaultInterpreter = "python3"

// VirtualenvStep creates the instance's venv as the instance user and
// installs the application's requirements into it.
type VirtualenvStep struct {
	runner      ports.CommandRunner
	fs          ports.FileSystem
	interpreter string
	extras      []Package
}

// NewVirtualenvStep creates a new VirtualenvStep. An empty interpreter means
// DefaultInterpreter.
func NewVirtualenvStep(runner ports.CommandRunner, fs ports.FileSystem, interpreter string, extras []Package) *VirtualenvStep {
	if interpreter == "" {
		interpreter = DefaultInterpreter
	}
	return &VirtualenvStep{
		runner:      runner,
		fs:          fs,
		interpreter: interpreter,
		extras:      append([]Package(nil), extras...),
	}
}

// Describe implements execution.Describer.
func (s *VirtualenvStep) Describe() string {
	return s.interpreter + " -m venv + pip install -r requirements.txt"
}

// Apply creates the venv when its interpreter is missing. Dependency
// installation always runs; pip skips what is already satisfied.
func (s *VirtualenvStep) Apply(rc execution.RunContext) error {
	ctx := rc.Context()
	id := rc.Identity()
	log := rc.Logger().With(ports.F("venv", id.VenvDir))
	user := command.AsUser(s.runner, id.Name)

	for _, pkg := range s.extras {
		if err := validation.ValidatePipPackage(pkg.FullName()); err != nil {
			return fmt.Errorf("invalid pip package: %w", err)
		}
	}

	if s.fs.Exists(id.PythonBin()) {
		log.Info(ctx, "virtual environment already exists")
	} else {
		if s.fs.Exists(id.VenvDir) {
			log.Warn(ctx, "removing incomplete virtual environment")
			if err := s.fs.RemoveAll(id.VenvDir); err != nil {
				return fmt.Errorf("remove incomplete venv: %w", err)
			}
		}
		if _, err := commandutil.Run(ctx, user, s.interpreter, "-m", "venv", id.VenvDir); err != nil {
			return fmt.Errorf("create virtual environment: %w", err)
		}
		log.Info(ctx, "virtual environment created")
	}

	python := id.PythonBin()
	pip := func(args ...string) error {
		_, err := commandutil.Run(ctx, user, python, append([]string{"-m", "pip", "install", "--quiet"}, args...)...)
		return err
	}

	if err := pip("--upgrade", "pip", "wheel"); err != nil {
		return fmt.Errorf("upgrade pip: %w", err)
	}

	requirements := filepath.Join(id.SourceDir, "requirements.txt")
	if !s.fs.Exists(requirements) {
		return fmt.Errorf("requirements file %s not found", requirements)
	}
	if err := pip("-r", requirements); err != nil {
		return fmt.Errorf("install requirements: %w", err)
	}

	if len(s.extras) > 0 {
		names := make([]string, len(s.extras))
		for i, pkg := range s.extras {
			names[i] = pkg.FullName()
		}
		if err := pip(names...); err != nil {
			return fmt.Errorf("install extra packages: %w", err)
		}
	}

	log.Info(ctx, "python dependencies installed", ports.F("extras", len(s.extras)))
	return nil
}
