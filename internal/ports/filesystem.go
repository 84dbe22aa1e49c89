package ports

import (
	"os"
)

// FileSystem provides the file operations step bodies rely on.
// Paths are always absolute; nothing here expands ~ because steps run as root
// on behalf of another account.
type FileSystem interface {
	ReadFile(path string) ([]byte, error)
	// WriteFileAtomic replaces path so that a crash leaves either the old or the
	// new content, never a mix.
	WriteFileAtomic(path string, data []byte, perm os.FileMode) error
	Exists(path string) bool
	IsDir(path string) bool
	MkdirAll(path string, perm os.FileMode) error
	RemoveAll(path string) error
	Chmod(path string, perm os.FileMode) error
	Chown(path string, uid, gid int) error
	// ChownRecursive applies ownership to root and everything below it without
	// following symlinks.
	ChownRecursive(root string, uid, gid int) error
}
