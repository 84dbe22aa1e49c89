package command

import (
	"context"
	"testing"

	"github.com/felixgeelhaar/instancer/internal/adapters/logging"
	"github.com/felixgeelhaar/instancer/internal/testutil/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRealRunner_Run_Success(t *testing.T) {
	t.Parallel()

	runner := NewRealRunner()

	result, err := runner.Run(context.Background(), "echo", "hello")
	require.NoError(t, err)
	assert.True(t, result.Success())
	assert.Equal(t, "hello\n", result.Stdout)
}

func TestRealRunner_Run_NonZeroExitIsNotAnError(t *testing.T) {
	t.Parallel()

	runner := NewRealRunner()

	result, err := runner.Run(context.Background(), "sh", "-c", "echo oops >&2; exit 3")
	require.NoError(t, err)
	assert.False(t, result.Success())
	assert.Equal(t, 3, result.ExitCode)
	assert.Equal(t, "oops\n", result.Stderr)
}

func TestRealRunner_Run_NotFound(t *testing.T) {
	t.Parallel()

	runner := NewRealRunner()

	_, err := runner.Run(context.Background(), "nonexistent-command-12345")
	assert.Error(t, err)
}

func TestRealRunner_Run_ContextCancellation(t *testing.T) {
	t.Parallel()

	runner := NewRealRunner()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := runner.Run(ctx, "sleep", "10")
	assert.Error(t, err)
}

func TestRealRunner_WithEnv(t *testing.T) {
	t.Parallel()

	runner := NewRealRunner(WithEnv("INSTANCER_PROBE=42"), WithLogger(logging.NewNopLogger()))

	result, err := runner.Run(context.Background(), "sh", "-c", "printf %s \"$INSTANCER_PROBE\"")
	require.NoError(t, err)
	assert.Equal(t, "42", result.Stdout)
}

func TestQuoteLine(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "systemctl enable erp.service", QuoteLine("systemctl", "enable", "erp.service"))
	assert.Equal(t, "psql -tAc 'SELECT 1'", QuoteLine("psql", "-tAc", "SELECT 1"))
}

func TestAsUser_PrefixesRunuser(t *testing.T) {
	t.Parallel()

	inner := mocks.NewCommandRunner()
	inner.SetDefault(mocks.OK(""))
	runner := AsUser(inner, "erp")

	_, err := runner.Run(context.Background(), "git", "clone", "https://example.com/src.git")
	require.NoError(t, err)

	calls := inner.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, "runuser", calls[0].Command)
	assert.Equal(t, []string{"-u", "erp", "--", "git", "clone", "https://example.com/src.git"}, calls[0].Args)
	assert.Equal(t, "erp", runner.User())
}
