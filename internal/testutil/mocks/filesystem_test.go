package mocks

import (
	"errors"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileSystem_WriteAndRead(t *testing.T) {
	t.Parallel()

	fs := NewFileSystem()
	require.NoError(t, fs.WriteFileAtomic("/etc/erp.conf", []byte("[options]\n"), 0o640))

	data, err := fs.ReadFile("/etc/erp.conf")
	require.NoError(t, err)
	assert.Equal(t, "[options]\n", string(data))
	assert.Equal(t, os.FileMode(0o640), fs.Mode("/etc/erp.conf"))
	assert.Equal(t, 1, fs.Writes())
	assert.True(t, fs.Exists("/etc/erp.conf"))
	assert.False(t, fs.IsDir("/etc/erp.conf"))
}

func TestFileSystem_ReadMissing(t *testing.T) {
	t.Parallel()

	fs := NewFileSystem()
	_, err := fs.ReadFile("/nope")
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestFileSystem_FailWrites(t *testing.T) {
	t.Parallel()

	fs := NewFileSystem()
	boom := errors.New("disk full")
	fs.FailWrites(boom)

	assert.ErrorIs(t, fs.WriteFileAtomic("/x", nil, 0o600), boom)
	assert.False(t, fs.Exists("/x"))
}

func TestFileSystem_RemoveAll(t *testing.T) {
	t.Parallel()

	fs := NewFileSystem()
	fs.AddDir("/opt/erp/src")
	fs.AddFile("/opt/erp/src/setup.py", "")
	fs.AddFile("/opt/erp/srcfile", "keep")

	require.NoError(t, fs.RemoveAll("/opt/erp/src"))

	assert.False(t, fs.Exists("/opt/erp/src"))
	assert.False(t, fs.Exists("/opt/erp/src/setup.py"))
	assert.True(t, fs.Exists("/opt/erp/srcfile"))
}

func TestFileSystem_Ownership(t *testing.T) {
	t.Parallel()

	fs := NewFileSystem()
	fs.AddDir("/opt/erp")
	fs.AddFile("/etc/erp.conf", "")

	require.NoError(t, fs.Chown("/etc/erp.conf", 1001, 1001))
	require.NoError(t, fs.ChownRecursive("/opt/erp", 1001, 1002))
	assert.Error(t, fs.Chown("/missing", 1, 1))
	assert.Error(t, fs.ChownRecursive("/missing", 1, 1))

	owner, ok := fs.OwnerOf("/etc/erp.conf")
	require.True(t, ok)
	assert.Equal(t, Owner{UID: 1001, GID: 1001}, owner)

	rec, ok := fs.RecursiveOwnerOf("/opt/erp")
	require.True(t, ok)
	assert.Equal(t, Owner{UID: 1001, GID: 1002}, rec)
}
