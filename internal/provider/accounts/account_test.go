package accounts_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/felixgeelhaar/instancer/internal/domain/execution"
	"github.com/felixgeelhaar/instancer/internal/domain/identity"
	"github.com/felixgeelhaar/instancer/internal/ports"
	"github.com/felixgeelhaar/instancer/internal/provider/accounts"
	"github.com/felixgeelhaar/instancer/internal/testutil/mocks"
)

func bob(t *testing.T) identity.Identity {
	t.Helper()
	id, err := identity.Resolve(identity.Input{
		Name:          "bob",
		Version:       "17.0",
		Port:          "8069",
		AddonsRepoURL: "git@github.com:acme/addons.git",
	}, identity.DefaultLayout())
	require.NoError(t, err)
	return id
}

func runContext(t *testing.T) execution.RunContext {
	return execution.NewRunContext(context.Background(), bob(t), "run-1", mocks.NewLogger())
}

var (
	roleQuery   = []string{"-u", "postgres", "--", "psql", "-tAc", "SELECT 1 FROM pg_roles WHERE rolname='bob'"}
	createRole  = []string{"-u", "postgres", "--", "createuser", "--createdb", "--no-createrole", "--no-superuser", "bob"}
	useraddArgs = []string{
		"--system", "--home-dir", "/opt/bob", "--create-home", "--shell", "/bin/bash",
		"--user-group", "--comment", "bob", "bob",
	}
)

func TestAccountStep_CreatesUserAndRole(t *testing.T) {
	t.Parallel()

	runner := mocks.NewCommandRunner()
	dir := mocks.NewAccounts()
	fs := mocks.NewFileSystem()

	runner.AddResult("useradd", useraddArgs, mocks.OK(""))
	runner.AddResult("runuser", roleQuery, mocks.OK(""))
	runner.AddResult("runuser", createRole, mocks.OK(""))
	runner.OnRun(func(call ports.CommandCall) {
		if call.Command == "useradd" {
			dir.Add(ports.Account{Name: "bob", UID: 998, GID: 997, HomeDir: "/opt/bob"})
		}
	})

	require.NoError(t, accounts.NewAccountStep(runner, dir, fs).Apply(runContext(t)))

	assert.True(t, runner.Called("useradd --system"))
	assert.True(t, runner.Called("runuser -u postgres -- createuser"))
	owner, ok := fs.OwnerOf("/opt/bob")
	require.True(t, ok)
	assert.Equal(t, mocks.Owner{UID: 998, GID: 997}, owner)
}

func TestAccountStep_ExistingUserAndRole(t *testing.T) {
	t.Parallel()

	runner := mocks.NewCommandRunner()
	dir := mocks.NewAccounts(ports.Account{Name: "bob", UID: 1001, GID: 1001, HomeDir: "/opt/bob"})
	fs := mocks.NewFileSystem()
	runner.AddResult("runuser", roleQuery, mocks.OK("1\n"))

	require.NoError(t, accounts.NewAccountStep(runner, dir, fs).Apply(runContext(t)))

	assert.False(t, runner.Called("useradd"))
	assert.False(t, runner.Called("runuser -u postgres -- createuser"))

	// Ownership is re-applied even though nothing was created.
	owner, ok := fs.OwnerOf("/opt/bob")
	require.True(t, ok)
	assert.Equal(t, 1001, owner.UID)
}

func TestAccountStep_UserExistsRoleMissing(t *testing.T) {
	t.Parallel()

	runner := mocks.NewCommandRunner()
	dir := mocks.NewAccounts(ports.Account{Name: "bob", UID: 1001, GID: 1001})
	runner.AddResult("runuser", roleQuery, mocks.OK(""))
	runner.AddResult("runuser", createRole, mocks.OK(""))

	require.NoError(t, accounts.NewAccountStep(runner, dir, mocks.NewFileSystem()).Apply(runContext(t)))
	assert.False(t, runner.Called("useradd"))
	assert.True(t, runner.Called("runuser -u postgres -- createuser"))
}

func TestAccountStep_UseraddFails(t *testing.T) {
	t.Parallel()

	runner := mocks.NewCommandRunner()
	runner.AddResult("useradd", useraddArgs, mocks.Fail(9, "useradd: user 'bob' already exists"))

	err := accounts.NewAccountStep(runner, mocks.NewAccounts(), mocks.NewFileSystem()).Apply(runContext(t))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "create user bob")
	assert.False(t, runner.Called("runuser"))
}

func TestAccountStep_DatabaseUnavailable(t *testing.T) {
	t.Parallel()

	runner := mocks.NewCommandRunner()
	dir := mocks.NewAccounts(ports.Account{Name: "bob", UID: 1001, GID: 1001})
	runner.AddResult("runuser", roleQuery, mocks.Fail(2, "psql: error: connection to server on socket failed"))

	err := accounts.NewAccountStep(runner, dir, mocks.NewFileSystem()).Apply(runContext(t))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "query database roles")
}
