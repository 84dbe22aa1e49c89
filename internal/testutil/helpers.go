// Package testutil provides test helpers shared by instancer tests.
package testutil

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// WriteTempFile writes content to a file in the specified directory.
func WriteTempFile(t testing.TB, dir, filename, content string) string {
	t.Helper()

	path := filepath.Join(dir, filename)
	err := os.WriteFile(path, []byte(content), 0o600)
	require.NoError(t, err, "failed to write temp file: %s", filename)

	return path
}

// CheckpointFile returns where the file store keeps the record of name.
func CheckpointFile(dir, name string) string {
	return filepath.Join(dir, "instancer-"+name+".step")
}

// SeedCheckpoint writes a raw record for name, as an operator or a crash
// might have left it.
func SeedCheckpoint(t testing.TB, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(CheckpointFile(dir, name), []byte(content), 0o600))
}

// ReadCheckpoint returns the raw record of name and whether it exists.
func ReadCheckpoint(t testing.TB, dir, name string) (string, bool) {
	t.Helper()

	data, err := os.ReadFile(CheckpointFile(dir, name))
	if errors.Is(err, os.ErrNotExist) {
		return "", false
	}
	require.NoError(t, err)
	return string(data), true
}
