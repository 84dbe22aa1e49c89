package npm_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/felixgeelhaar/instancer/internal/domain/execution"
	"github.com/felixgeelhaar/instancer/internal/domain/identity"
	"github.com/felixgeelhaar/instancer/internal/ports"
	"github.com/felixgeelhaar/instancer/internal/provider/npm"
	"github.com/felixgeelhaar/instancer/internal/testutil/mocks"
)

var listArgs = []string{"list", "-g", "--depth=0", "--json"}

func runContext(version string) execution.RunContext {
	return execution.NewRunContext(context.Background(),
		identity.Identity{Name: "bob", Version: version}, "run-1", mocks.NewLogger())
}

func TestParsePackage(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want npm.Package
	}{
		{"rtlcss", npm.Package{Name: "rtlcss"}},
		{"less@3.12.2", npm.Package{Name: "less", Version: "3.12.2"}},
		{"@scope/pkg", npm.Package{Name: "@scope/pkg"}},
		{"@scope/pkg@1.0.0", npm.Package{Name: "@scope/pkg", Version: "1.0.0"}},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			t.Parallel()
			got := npm.ParsePackage(tt.in)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.in, got.FullName())
		})
	}
}

func TestCSSToolchain(t *testing.T) {
	t.Parallel()

	tests := []struct {
		version string
		want    []string
	}{
		{"17.0", []string{"rtlcss"}},
		{"12.0", []string{"rtlcss"}},
		{"saas-16.3", []string{"rtlcss"}},
		{"master", []string{"rtlcss"}},
		{"11.0", []string{"less", "less-plugin-clean-css"}},
		{"10.0", []string{"less", "less-plugin-clean-css"}},
	}
	for _, tt := range tests {
		t.Run(tt.version, func(t *testing.T) {
			t.Parallel()
			pkgs := npm.CSSToolchain(identity.Identity{Version: tt.version})
			names := make([]string, len(pkgs))
			for i, p := range pkgs {
				names[i] = p.Name
			}
			assert.Equal(t, tt.want, names)
		})
	}
}

func TestGlobalPackagesStep_InstallsMissing(t *testing.T) {
	t.Parallel()

	runner := mocks.NewCommandRunner()
	runner.AddResult("npm", listArgs, mocks.OK(`{"dependencies":{"npm":{"version":"10.2.4"}}}`))
	runner.AddResult("npm", []string{"install", "-g", "rtlcss"}, mocks.OK(""))

	step := npm.NewGlobalPackagesStep(runner, npm.CSSToolchain)
	require.NoError(t, step.Apply(runContext("17.0")))
	assert.True(t, runner.Called("npm install -g rtlcss"))
}

func TestGlobalPackagesStep_AlreadyInstalled(t *testing.T) {
	t.Parallel()

	runner := mocks.NewCommandRunner()
	runner.AddResult("npm", listArgs, mocks.OK(`{"dependencies":{"less":{"version":"4.2.0"},"less-plugin-clean-css":{"version":"1.5.1"}}}`))

	require.NoError(t, npm.NewGlobalPackagesStep(runner, npm.CSSToolchain).Apply(runContext("11.0")))
	assert.False(t, runner.Called("npm install"))
}

func TestGlobalPackagesStep_ListExitCodeIgnored(t *testing.T) {
	t.Parallel()

	runner := mocks.NewCommandRunner()
	runner.AddResult("npm", listArgs, listWithProblems(`{"dependencies":{"rtlcss":{"version":"4.1.1"}}}`))

	require.NoError(t, npm.NewGlobalPackagesStep(runner, npm.CSSToolchain).Apply(runContext("17.0")))
	assert.False(t, runner.Called("npm install"))
}

func TestGlobalPackagesStep_InstallFailure(t *testing.T) {
	t.Parallel()

	runner := mocks.NewCommandRunner()
	runner.AddResult("npm", listArgs, mocks.OK(`{}`))
	runner.AddResult("npm", []string{"install", "-g", "less@3.12.2"}, mocks.Fail(1, "npm ERR! code EAI_AGAIN"))

	step := npm.NewGlobalPackagesStep(runner, npm.Packages(npm.Package{Name: "less", Version: "3.12.2"}))
	err := step.Apply(runContext("10.0"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "EAI_AGAIN")
}

func TestGlobalPackagesStep_BadListOutput(t *testing.T) {
	t.Parallel()

	runner := mocks.NewCommandRunner()
	runner.AddResult("npm", listArgs, mocks.OK("not json"))

	err := npm.NewGlobalPackagesStep(runner, npm.CSSToolchain).Apply(runContext("17.0"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse npm list output")
}

// listWithProblems is an npm list result with exit code 1 and valid JSON.
func listWithProblems(stdout string) ports.CommandResult {
	return ports.CommandResult{ExitCode: 1, Stdout: stdout}
}
