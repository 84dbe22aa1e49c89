// Package commandutil holds helpers shared by step bodies that shell out.
package commandutil

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/felixgeelhaar/instancer/internal/ports"
)

// CommandError reports an external command that exited non-zero.
type CommandError struct {
	Call     ports.CommandCall
	ExitCode int
	Stderr   string
}

func (e *CommandError) Error() string {
	msg := fmt.Sprintf("%s exited %d", e.Call.String(), e.ExitCode)
	if stderr := lastLine(e.Stderr); stderr != "" {
		msg += ": " + stderr
	}
	return msg
}

// Run runs a command and turns a non-zero exit into a *CommandError.
func Run(ctx context.Context, runner ports.CommandRunner, command string, args ...string) (ports.CommandResult, error) {
	result, err := runner.Run(ctx, command, args...)
	if err != nil {
		if IsCommandNotFound(err) {
			return result, fmt.Errorf("%s: command not found: %w", command, err)
		}
		return result, fmt.Errorf("%s: %w", command, err)
	}
	if !result.Success() {
		return result, &CommandError{
			Call:     ports.CommandCall{Command: command, Args: args},
			ExitCode: result.ExitCode,
			Stderr:   result.Stderr,
		}
	}
	return result, nil
}

// Probe runs a read-only check. A non-zero exit is reported as false, not an
// error; only a failure to start the command is an error.
func Probe(ctx context.Context, runner ports.CommandRunner, command string, args ...string) (ports.CommandResult, bool, error) {
	result, err := runner.Run(ctx, command, args...)
	if err != nil {
		return result, false, fmt.Errorf("%s: %w", command, err)
	}
	return result, result.Success(), nil
}

// IsCommandNotFound reports whether an error indicates a missing executable.
func IsCommandNotFound(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, exec.ErrNotFound) {
		return true
	}
	var execErr *exec.Error
	if errors.As(err, &execErr) && errors.Is(execErr.Err, exec.ErrNotFound) {
		return true
	}
	var pathErr *os.PathError
	if errors.As(err, &pathErr) && errors.Is(pathErr.Err, os.ErrNotExist) {
		return true
	}
	return false
}

func lastLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.LastIndexByte(s, '\n'); i >= 0 {
		return strings.TrimSpace(s[i+1:])
	}
	return s
}
