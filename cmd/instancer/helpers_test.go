package main

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/felixgeelhaar/instancer/internal/app"
	"github.com/felixgeelhaar/instancer/internal/ports"
	"github.com/felixgeelhaar/instancer/internal/testutil/mocks"
	"github.com/felixgeelhaar/instancer/internal/tui"
)

const testConfig = `checkpoint:
  backend: file
  dir: /var/lib/instancer
service:
  key_bits: 2048
  admin_password: admin
log:
  level: error
`

// cli runs commands against mock host adapters. The checkpoint store is the
// real file store on top of the mock filesystem.
type cli struct {
	runner     *mocks.CommandRunner
	fs         *mocks.FileSystem
	accounts   *mocks.Accounts
	configPath string
	stdin      string
}

func newCLI(t *testing.T) *cli {
	t.Helper()

	c := &cli{
		runner:   mocks.NewCommandRunner(),
		fs:       mocks.NewFileSystem(),
		accounts: mocks.NewAccounts(ports.Account{Name: "bob", UID: 1001, GID: 1001}),
	}
	c.runner.SetDefault(mocks.OK(""))
	c.fs.AddFile("/opt/bob/bob-server/requirements.txt", "psycopg2\n")

	c.configPath = filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(c.configPath, []byte(testConfig), 0o600))

	origHost, origRoot, origPrompter, origDefault := newHost, requireRoot, newPrompter, defaultConfigPath
	newHost = func(ports.Logger) app.Host {
		return app.Host{Runner: c.runner, FS: c.fs, Accounts: c.accounts}
	}
	requireRoot = func() error { return nil }
	newPrompter = func(_ io.Reader, out io.Writer) tui.Prompter {
		return tui.NewLinePrompter(strings.NewReader(c.stdin), out)
	}
	defaultConfigPath = filepath.Join(t.TempDir(), "missing.yaml")
	t.Cleanup(func() {
		newHost, requireRoot, newPrompter, defaultConfigPath = origHost, origRoot, origPrompter, origDefault
	})
	return c
}

// run executes the root command with args and returns stdout.
func (c *cli) run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	resetFlags()

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(io.Discard)
	rootCmd.SetIn(strings.NewReader(""))
	rootCmd.SetArgs(append([]string{"--config", c.configPath}, args...))

	err := rootCmd.ExecuteContext(context.Background())
	return out.String(), err
}

func resetFlags() {
	cfgFile, verbose, logFormat = "", false, ""
	installName, installVersion, installPort, installAddonsURL = "", "", "", ""
	installTUI, installMetricsTextfile = false, ""
	configShowFormat = "yaml"
}

func installArgs(name string) []string {
	return []string{
		"install",
		"--name", name,
		"--version", "17.0",
		"--port", "8069",
		"--addons-url", "git@github.com:acme/addons.git",
	}
}
