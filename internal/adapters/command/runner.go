// Package command provides command execution adapters.
package command

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"strings"

	"github.com/felixgeelhaar/instancer/internal/ports"
	"mvdan.cc/sh/v3/syntax"
)

// RealRunner executes actual commands on the host.
type RealRunner struct {
	env    []string
	logger ports.Logger
}

// Option configures a RealRunner.
type Option func(*RealRunner)

// WithEnv appends KEY=VALUE pairs to the inherited environment of every command.
func WithEnv(env ...string) Option {
	return func(r *RealRunner) {
		r.env = append(r.env, env...)
	}
}

// WithLogger logs every command line at debug level before it runs.
func WithLogger(logger ports.Logger) Option {
	return func(r *RealRunner) {
		r.logger = logger
	}
}

// NewRealRunner creates a new RealRunner.
func NewRealRunner(opts ...Option) *RealRunner {
	r := &RealRunner{}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run executes a command and returns the result.
func (r *RealRunner) Run(ctx context.Context, command string, args ...string) (ports.CommandResult, error) {
	if r.logger != nil {
		r.logger.Debug(ctx, "exec", ports.F("cmd", QuoteLine(command, args...)))
	}

	cmd := exec.CommandContext(ctx, command, args...)
	if len(r.env) > 0 {
		cmd.Env = append(os.Environ(), r.env...)
	}

	var stdout, stderr strings.Builder
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()

	result := ports.CommandResult{
		ExitCode: 0,
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
	}

	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) && ctx.Err() == nil {
			result.ExitCode = exitErr.ExitCode()
			return result, nil
		}
		return result, err
	}

	return result, nil
}

// QuoteLine renders a command the way an operator would paste it into bash.
func QuoteLine(command string, args ...string) string {
	parts := make([]string, 0, len(args)+1)
	for _, word := range append([]string{command}, args...) {
		quoted, err := syntax.Quote(word, syntax.LangBash)
		if err != nil {
			// Words bash cannot represent (NUL bytes) are shown verbatim.
			quoted = word
		}
		parts = append(parts, quoted)
	}
	return strings.Join(parts, " ")
}

// Ensure RealRunner implements ports.CommandRunner.
var _ ports.CommandRunner = (*RealRunner)(nil)
