package testutil

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// AssertCheckpoint asserts that the file store under dir holds want for name.
func AssertCheckpoint(t testing.TB, dir, name string, want int) {
	t.Helper()

	content, ok := ReadCheckpoint(t, dir, name)
	require.True(t, ok, "expected a checkpoint record for %s", name)
	assert.Equal(t, strconv.Itoa(want)+"\n", content, "checkpoint of %s", name)
}

// AssertNoCheckpoint asserts that no record exists for name, which is the
// state before a first run and after a completed one.
func AssertNoCheckpoint(t testing.TB, dir, name string) {
	t.Helper()

	_, err := os.Stat(CheckpointFile(dir, name))
	assert.True(t, errors.Is(err, os.ErrNotExist), "expected no checkpoint record for %s, stat: %v", name, err)
}

// AssertFileExists asserts that a regular file exists at path.
func AssertFileExists(t testing.TB, path string) {
	t.Helper()

	info, err := os.Stat(path)
	require.NoError(t, err, "expected file to exist: %s", path)
	assert.False(t, info.IsDir(), "expected file but got directory: %s", path)
}

// AssertFileMode asserts the permission bits of path.
func AssertFileMode(t testing.TB, path string, want os.FileMode) {
	t.Helper()

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, want, info.Mode().Perm(), "mode of %s", path)
}

// AssertFileEquals asserts that a file contains exactly the expected content.
func AssertFileEquals(t testing.TB, path, expected string, msgAndArgs ...interface{}) {
	t.Helper()

	content, err := os.ReadFile(path)
	require.NoError(t, err, "failed to read file: %s", path)

	actual := strings.ReplaceAll(string(content), "\r\n", "\n")
	assert.Equal(t, expected, actual, msgAndArgs...)
}

// AssertErrorContains asserts that err contains the expected message.
func AssertErrorContains(t testing.TB, err error, expected string, msgAndArgs ...interface{}) {
	t.Helper()

	require.Error(t, err)
	assert.Contains(t, err.Error(), expected, msgAndArgs...)
}
