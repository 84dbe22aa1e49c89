package apt_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/felixgeelhaar/instancer/internal/domain/execution"
	"github.com/felixgeelhaar/instancer/internal/domain/identity"
	"github.com/felixgeelhaar/instancer/internal/provider/apt"
	"github.com/felixgeelhaar/instancer/internal/testutil/mocks"
)

func runContext() execution.RunContext {
	return execution.NewRunContext(context.Background(), identity.Identity{Name: "bob"}, "run-1", mocks.NewLogger())
}

func dpkgArgs(pkg string) []string {
	return []string{"-W", "-f=${db:Status-Status}", pkg}
}

func TestPackagesStep_AllInstalled(t *testing.T) {
	t.Parallel()

	runner := mocks.NewCommandRunner()
	runner.AddResult("dpkg-query", dpkgArgs("postgresql"), mocks.OK("installed"))
	runner.AddResult("dpkg-query", dpkgArgs("postgresql-client"), mocks.OK("installed"))

	step := apt.NewPackagesStep([]string{"postgresql", "postgresql-client"}, runner)
	require.NoError(t, step.Apply(runContext()))

	assert.False(t, runner.Called("apt-get"))
}

func TestPackagesStep_InstallsOnlyMissing(t *testing.T) {
	t.Parallel()

	runner := mocks.NewCommandRunner()
	runner.AddResult("dpkg-query", dpkgArgs("git"), mocks.OK("installed"))
	runner.AddResult("dpkg-query", dpkgArgs("libxml2-dev"), mocks.Fail(1, "dpkg-query: no packages found matching libxml2-dev"))
	runner.AddResult("dpkg-query", dpkgArgs("wkhtmltopdf"), mocks.OK("config-files"))
	runner.AddResult("apt-get", []string{"update", "-q"}, mocks.OK(""))
	runner.AddResult("apt-get", []string{"install", "-y", "-q", "--no-install-recommends", "libxml2-dev", "wkhtmltopdf"}, mocks.OK(""))

	step := apt.NewPackagesStep([]string{"git", "libxml2-dev", "wkhtmltopdf"}, runner)
	require.NoError(t, step.Apply(runContext()))

	assert.True(t, runner.Called("apt-get install -y -q --no-install-recommends libxml2-dev wkhtmltopdf"))
}

func TestPackagesStep_InstallFailure(t *testing.T) {
	t.Parallel()

	runner := mocks.NewCommandRunner()
	runner.AddResult("dpkg-query", dpkgArgs("postgresql"), mocks.Fail(1, ""))
	runner.AddResult("apt-get", []string{"update", "-q"}, mocks.OK(""))
	runner.AddResult("apt-get", []string{"install", "-y", "-q", "--no-install-recommends", "postgresql"},
		mocks.Fail(100, "E: Could not get lock /var/lib/dpkg/lock-frontend"))

	err := apt.NewPackagesStep([]string{"postgresql"}, runner).Apply(runContext())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "install postgresql")
	assert.Contains(t, err.Error(), "Could not get lock")
}

func TestPackagesStep_RejectsInvalidNames(t *testing.T) {
	t.Parallel()

	runner := mocks.NewCommandRunner()
	err := apt.NewPackagesStep([]string{"git; rm -rf /"}, runner).Apply(runContext())
	require.Error(t, err)
	assert.Empty(t, runner.Calls())
}

func TestPackagesStep_Describe(t *testing.T) {
	t.Parallel()

	step := apt.NewPackagesStep([]string{"postgresql", "postgresql-client"}, mocks.NewCommandRunner())
	assert.Equal(t, "apt-get install postgresql postgresql-client", step.Describe())
	assert.Equal(t, []string{"postgresql", "postgresql-client"}, step.Packages())
}
