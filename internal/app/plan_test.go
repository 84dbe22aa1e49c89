package app_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/felixgeelhaar/instancer/internal/app"
	"github.com/felixgeelhaar/instancer/internal/config"
	"github.com/felixgeelhaar/instancer/internal/testutil/mocks"
)

func TestBuildPlan_Order(t *testing.T) {
	t.Parallel()

	cfg := config.DefaultConfig()
	reg := app.BuildPlan(&cfg, app.Host{
		Runner:   mocks.NewCommandRunner(),
		FS:       mocks.NewFileSystem(),
		Accounts: mocks.NewAccounts(),
	})
	require.NoError(t, reg.Validate())

	want := []string{
		app.LabelDatabaseEngine,
		app.LabelTimezone,
		app.LabelAccounts,
		app.LabelSource,
		app.LabelSystemPackages,
		app.LabelVirtualenv,
		app.LabelCSSToolchain,
		app.LabelDirectories,
		app.LabelDeployKey,
		app.LabelAddons,
		app.LabelConfigFile,
		app.LabelServiceUnit,
		app.LabelOwnership,
		app.LabelActivate,
	}
	steps := reg.Steps()
	require.Len(t, steps, len(want))
	for i, step := range steps {
		assert.Equal(t, i+1, step.Index)
		assert.Equal(t, want[i], step.Label)
		assert.NotEmpty(t, step.Description(), step.Label)
	}
}

func TestBuildPlan_StableAcrossConfigs(t *testing.T) {
	t.Parallel()

	a := config.DefaultConfig()
	b := config.DefaultConfig()
	b.System.Packages = []string{"git"}
	b.Service.Workers = 8

	host := app.Host{Runner: mocks.NewCommandRunner(), FS: mocks.NewFileSystem(), Accounts: mocks.NewAccounts()}
	stepsA := app.BuildPlan(&a, host).Steps()
	stepsB := app.BuildPlan(&b, host).Steps()
	require.Len(t, stepsB, len(stepsA))
	for i := range stepsA {
		assert.Equal(t, stepsA[i].Label, stepsB[i].Label)
	}
}
