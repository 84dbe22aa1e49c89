// Package git fetches repositories into the instance tree.
package git

import (
	"fmt"
	"path/filepath"
	"strconv"

	"github.com/felixgeelhaar/instancer/internal/domain/execution"
	"github.com/felixgeelhaar/instancer/internal/domain/identity"
	"github.com/felixgeelhaar/instancer/internal/ports"
	"github.com/felixgeelhaar/instancer/internal/provider/commandutil"
	"github.com/felixgeelhaar/instancer/internal/validation"
)

// CloneSpec describes one clone.
type CloneSpec struct {
	URL    string
	Dest   string
	Branch string
	// Depth limits history; 0 clones everything.
	Depth int
	// SSHKey, when set, is the only identity offered to the remote.
	SSHKey string
	// RunAs clones as this account instead of the current one.
	RunAs string
}

// SpecFunc derives a CloneSpec from the instance.
type SpecFunc func(id identity.Identity) CloneSpec

// UserRunnerFunc wraps a runner so commands execute as another account.
type UserRunnerFunc func(runner ports.CommandRunner, user string) ports.CommandRunner

// CloneStep clones a repository unless a checkout is already in place.
type CloneStep struct {
	runner ports.CommandRunner
	fs     ports.FileSystem
	spec   SpecFunc
	asUser UserRunnerFunc
	what   string
}

// Option configures a CloneStep.
type Option func(*CloneStep)

// WithUserRunner sets how commands are run for CloneSpec.RunAs.
func WithUserRunner(fn UserRunnerFunc) Option {
	return func(s *CloneStep) {
		s.asUser = fn
	}
}

// WithDescription overrides the Describe text.
func WithDescription(what string) Option {
	return func(s *CloneStep) {
		s.what = what
	}
}

// NewCloneStep creates a new CloneStep.
func NewCloneStep(runner ports.CommandRunner, fs ports.FileSystem, spec SpecFunc, opts ...Option) *CloneStep {
	s := &CloneStep{runner: runner, fs: fs, spec: spec, what: "git clone"}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Describe implements execution.Describer.
func (s *CloneStep) Describe() string {
	return s.what
}

// Apply clones the repository. A destination holding a .git directory is
// considered done; one without is a leftover of an interrupted clone and is
// removed first.
func (s *CloneStep) Apply(rc execution.RunContext) error {
	ctx := rc.Context()
	spec := s.spec(rc.Identity())
	log := rc.Logger().With(ports.F("dest", spec.Dest))

	if err := validation.ValidateGitRemoteURL(spec.URL); err != nil {
		return fmt.Errorf("invalid repository url: %w", err)
	}
	if spec.Branch != "" {
		if err := validation.ValidateGitRef(spec.Branch); err != nil {
			return fmt.Errorf("invalid branch: %w", err)
		}
	}

	if s.fs.IsDir(filepath.Join(spec.Dest, ".git")) {
		log.Info(ctx, "repository already cloned")
		return nil
	}
	if s.fs.Exists(spec.Dest) {
		log.Warn(ctx, "removing incomplete checkout")
		if err := s.fs.RemoveAll(spec.Dest); err != nil {
			return fmt.Errorf("remove incomplete checkout %s: %w", spec.Dest, err)
		}
	}

	runner := s.runner
	if spec.RunAs != "" {
		if s.asUser == nil {
			return fmt.Errorf("clone as %s: no user runner configured", spec.RunAs)
		}
		runner = s.asUser(s.runner, spec.RunAs)
	}

	if _, err := commandutil.Run(ctx, runner, "git", CloneArgs(spec)...); err != nil {
		return fmt.Errorf("clone %s: %w", spec.URL, err)
	}
	log.Info(ctx, "repository cloned", ports.F("url", spec.URL), ports.F("branch", spec.Branch))
	return nil
}

// CloneArgs builds the git argument list for spec.
func CloneArgs(spec CloneSpec) []string {
	args := make([]string, 0, 12)
	if spec.SSHKey != "" {
		args = append(args, "-c", "core.sshCommand="+SSHCommand(spec.SSHKey))
	}
	args = append(args, "clone")
	if spec.Depth > 0 {
		args = append(args, "--depth", strconv.Itoa(spec.Depth))
	}
	if spec.Branch != "" {
		args = append(args, "--branch", spec.Branch)
	}
	return append(args, "--", spec.URL, spec.Dest)
}

// SSHCommand returns the ssh invocation that pins key as the only identity.
func SSHCommand(key string) string {
	return "ssh -i " + key + " -o IdentitiesOnly=yes -o StrictHostKeyChecking=accept-new"
}
