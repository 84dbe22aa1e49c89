// Package mocks provides test doubles for testing.
package mocks

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/felixgeelhaar/instancer/internal/ports"
)

// CommandRunner is a thread-safe test double for ports.CommandRunner.
type CommandRunner struct {
	mu         sync.RWMutex
	results    map[string]ports.CommandResult
	errors     map[string]error
	calls      []ports.CommandCall
	fallback   *ports.CommandResult
	onRun      func(call ports.CommandCall)
	sequential map[string][]ports.CommandResult
}

// NewCommandRunner creates a new CommandRunner mock.
func NewCommandRunner() *CommandRunner {
	return &CommandRunner{
		results:    make(map[string]ports.CommandResult),
		errors:     make(map[string]error),
		calls:      make([]ports.CommandCall, 0),
		sequential: make(map[string][]ports.CommandResult),
	}
}

// OK builds a successful result with the given stdout.
func OK(stdout string) ports.CommandResult {
	return ports.CommandResult{ExitCode: 0, Stdout: stdout}
}

// Fail builds a failed result with the given exit code and stderr.
func Fail(code int, stderr string) ports.CommandResult {
	return ports.CommandResult{ExitCode: code, Stderr: stderr}
}

// AddResult registers an expected command and its result.
func (m *CommandRunner) AddResult(command string, args []string, result ports.CommandResult) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.results[buildKey(command, args)] = result
}

// AddSequence registers results returned one per call; the last one repeats.
// Useful for probes whose answer changes after the step acted.
func (m *CommandRunner) AddSequence(command string, args []string, results ...ports.CommandResult) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sequential[buildKey(command, args)] = results
}

// AddError registers an expected command that should return an error.
func (m *CommandRunner) AddError(command string, args []string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errors[buildKey(command, args)] = err
}

// SetDefault makes unregistered commands return result instead of an error.
func (m *CommandRunner) SetDefault(result ports.CommandResult) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fallback = &result
}

// OnRun installs a hook invoked for every call, before the result is looked up.
func (m *CommandRunner) OnRun(fn func(call ports.CommandCall)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onRun = fn
}

// Run executes a mock command.
func (m *CommandRunner) Run(_ context.Context, command string, args ...string) (ports.CommandResult, error) {
	call := ports.CommandCall{Command: command, Args: args}

	m.mu.Lock()
	m.calls = append(m.calls, call)
	hook := m.onRun
	key := buildKey(command, args)
	var seqResult *ports.CommandResult
	if seq, ok := m.sequential[key]; ok && len(seq) > 0 {
		r := seq[0]
		seqResult = &r
		if len(seq) > 1 {
			m.sequential[key] = seq[1:]
		}
	}
	m.mu.Unlock()

	if hook != nil {
		hook(call)
	}
	if seqResult != nil {
		return *seqResult, nil
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	if err, ok := m.errors[key]; ok {
		return ports.CommandResult{}, err
	}
	if result, ok := m.results[key]; ok {
		return result, nil
	}
	if m.fallback != nil {
		return *m.fallback, nil
	}

	return ports.CommandResult{}, fmt.Errorf("no mock result for command: %s %v", command, args)
}

// Calls returns all recorded command invocations.
func (m *CommandRunner) Calls() []ports.CommandCall {
	m.mu.RLock()
	defer m.mu.RUnlock()

	calls := make([]ports.CommandCall, len(m.calls))
	copy(calls, m.calls)
	return calls
}

// CallLines returns recorded invocations rendered as "cmd arg arg".
func (m *CommandRunner) CallLines() []string {
	calls := m.Calls()
	lines := make([]string, len(calls))
	for i, c := range calls {
		lines[i] = c.String()
	}
	return lines
}

// Called reports whether a command line with the given prefix was run.
func (m *CommandRunner) Called(prefix string) bool {
	for _, line := range m.CallLines() {
		if strings.HasPrefix(line, prefix) {
			return true
		}
	}
	return false
}

// Reset clears all registered results, errors, and recorded calls.
func (m *CommandRunner) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.results = make(map[string]ports.CommandResult)
	m.errors = make(map[string]error)
	m.calls = make([]ports.CommandCall, 0)
	m.sequential = make(map[string][]ports.CommandResult)
	m.fallback = nil
	m.onRun = nil
}

func buildKey(command string, args []string) string {
	return command + ":" + strings.Join(args, ":")
}

// Ensure CommandRunner implements ports.CommandRunner.
var _ ports.CommandRunner = (*CommandRunner)(nil)
