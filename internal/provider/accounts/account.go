// Package accounts creates the instance's operating system account and its
// matching database role.
package accounts

import (
	"errors"
	"fmt"

	"github.com/felixgeelhaar/instancer/internal/adapters/command"
	"github.com/felixgeelhaar/instancer/internal/domain/execution"
	"github.com/felixgeelhaar/instancer/internal/ports"
	"github.com/felixgeelhaar/instancer/internal/provider/commandutil"
)

// DatabaseSuperuser is the account that owns the local database cluster.
const DatabaseSuperuser = "postgres"

// AccountStep ensures a system user and a database role named after the
// instance exist, and that the user owns its home directory.
type AccountStep struct {
	runner   ports.CommandRunner
	accounts ports.AccountDirectory
	fs       ports.FileSystem
}

// NewAccountStep creates a new AccountStep.
func NewAccountStep(runner ports.CommandRunner, accounts ports.AccountDirectory, fs ports.FileSystem) *AccountStep {
	return &AccountStep{runner: runner, accounts: accounts, fs: fs}
}

// Describe implements execution.Describer.
func (s *AccountStep) Describe() string {
	return "useradd + createuser"
}

// Apply creates whichever of the user and role are missing, then fixes the
// home directory unconditionally.
func (s *AccountStep) Apply(rc execution.RunContext) error {
	id := rc.Identity()

	acc, err := s.ensureUser(rc)
	if err != nil {
		return err
	}
	if err := s.ensureRole(rc); err != nil {
		return err
	}

	if err := s.fs.MkdirAll(id.HomeDir, 0o750); err != nil {
		return fmt.Errorf("create home %s: %w", id.HomeDir, err)
	}
	if err := s.fs.Chown(id.HomeDir, acc.UID, acc.GID); err != nil {
		return fmt.Errorf("chown home %s: %w", id.HomeDir, err)
	}
	return nil
}

func (s *AccountStep) ensureUser(rc execution.RunContext) (ports.Account, error) {
	ctx := rc.Context()
	id := rc.Identity()

	acc, err := s.accounts.Lookup(id.Name)
	if err == nil {
		rc.Logger().Info(ctx, "system user already exists", ports.F("user", id.Name), ports.F("uid", acc.UID))
		return acc, nil
	}
	if !errors.Is(err, ports.ErrAccountNotFound) {
		return ports.Account{}, fmt.Errorf("look up user %s: %w", id.Name, err)
	}

	_, err = commandutil.Run(ctx, s.runner, "useradd",
		"--system",
		"--home-dir", id.HomeDir,
		"--create-home",
		"--shell", "/bin/bash",
		"--user-group",
		"--comment", id.Name,
		id.Name,
	)
	if err != nil {
		return ports.Account{}, fmt.Errorf("create user %s: %w", id.Name, err)
	}

	acc, err = s.accounts.Lookup(id.Name)
	if err != nil {
		return ports.Account{}, fmt.Errorf("look up new user %s: %w", id.Name, err)
	}
	rc.Logger().Info(ctx, "system user created", ports.F("user", id.Name), ports.F("uid", acc.UID))
	return acc, nil
}

func (s *AccountStep) ensureRole(rc execution.RunContext) error {
	ctx := rc.Context()
	name := rc.Identity().Name
	pg := command.AsUser(s.runner, DatabaseSuperuser)

	// name is a validated SQL identifier, so it is safe inside the literal.
	query := fmt.Sprintf("SELECT 1 FROM pg_roles WHERE rolname='%s'", name)
	result, err := commandutil.Run(ctx, pg, "psql", "-tAc", query)
	if err != nil {
		return fmt.Errorf("query database roles: %w", err)
	}
	if result.Output() == "1" {
		rc.Logger().Info(ctx, "database role already exists", ports.F("role", name))
		return nil
	}

	if _, err := commandutil.Run(ctx, pg, "createuser", "--createdb", "--no-createrole", "--no-superuser", name); err != nil {
		return fmt.Errorf("create role %s: %w", name, err)
	}
	rc.Logger().Info(ctx, "database role created", ports.F("role", name))
	return nil
}
