package command

import (
	"context"

	"github.com/felixgeelhaar/instancer/internal/ports"
)

// UserRunner runs every command as another account through runuser(1).
// The process must already be root, which the install command enforces.
type UserRunner struct {
	inner ports.CommandRunner
	user  string
}

// AsUser wraps runner so commands execute as user.
func AsUser(runner ports.CommandRunner, user string) *UserRunner {
	return &UserRunner{inner: runner, user: user}
}

// User returns the account commands run as.
func (r *UserRunner) User() string {
	return r.user
}

// Run executes `runuser -u <user> -- command args...`.
func (r *UserRunner) Run(ctx context.Context, command string, args ...string) (ports.CommandResult, error) {
	full := make([]string, 0, len(args)+4)
	full = append(full, "-u", r.user, "--", command)
	full = append(full, args...)
	return r.inner.Run(ctx, "runuser", full...)
}

// Ensure UserRunner implements ports.CommandRunner.
var _ ports.CommandRunner = (*UserRunner)(nil)
