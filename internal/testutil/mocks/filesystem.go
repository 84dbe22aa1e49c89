package mocks

import (
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"

	"github.com/felixgeelhaar/instancer/internal/ports"
)

// Owner records a uid/gid pair applied by Chown.
type Owner struct {
	UID int
	GID int
}

// FileSystem is a thread-safe in-memory test double for ports.FileSystem.
type FileSystem struct {
	mu         sync.RWMutex
	files      map[string][]byte
	dirs       map[string]bool
	modes      map[string]os.FileMode
	owners     map[string]Owner
	recursive  map[string]Owner
	writeErr   error
	writeCount int
}

// NewFileSystem creates a new FileSystem mock.
func NewFileSystem() *FileSystem {
	return &FileSystem{
		files:     make(map[string][]byte),
		dirs:      make(map[string]bool),
		modes:     make(map[string]os.FileMode),
		owners:    make(map[string]Owner),
		recursive: make(map[string]Owner),
	}
}

// AddFile adds a file to the mock filesystem.
func (fs *FileSystem) AddFile(path, content string) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	fs.files[path] = []byte(content)
}

// AddDir adds a directory to the mock filesystem.
func (fs *FileSystem) AddDir(path string) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	fs.dirs[path] = true
}

// FailWrites makes every subsequent WriteFileAtomic return err.
func (fs *FileSystem) FailWrites(err error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	fs.writeErr = err
}

// ReadFile reads a file from the mock filesystem.
func (fs *FileSystem) ReadFile(path string) ([]byte, error) {
	fs.mu.RLock()
	defer fs.mu.RUnlock()
	if content, ok := fs.files[path]; ok {
		return content, nil
	}
	return nil, fmt.Errorf("open %s: %w", path, os.ErrNotExist)
}

// WriteFileAtomic stores data and records the requested mode.
func (fs *FileSystem) WriteFileAtomic(path string, data []byte, perm os.FileMode) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	if fs.writeErr != nil {
		return fs.writeErr
	}
	fs.files[path] = append([]byte(nil), data...)
	fs.modes[path] = perm
	fs.writeCount++
	return nil
}

// Exists checks if a file or directory exists in the mock filesystem.
func (fs *FileSystem) Exists(path string) bool {
	fs.mu.RLock()
	defer fs.mu.RUnlock()
	_, fileExists := fs.files[path]
	return fileExists || fs.dirs[path]
}

// IsDir checks if path is a known directory.
func (fs *FileSystem) IsDir(path string) bool {
	fs.mu.RLock()
	defer fs.mu.RUnlock()
	return fs.dirs[path]
}

// MkdirAll creates a directory in the mock filesystem.
func (fs *FileSystem) MkdirAll(path string, perm os.FileMode) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	fs.dirs[path] = true
	if _, ok := fs.modes[path]; !ok {
		fs.modes[path] = perm
	}
	return nil
}

// RemoveAll removes path and everything recorded below it.
func (fs *FileSystem) RemoveAll(path string) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	prefix := strings.TrimSuffix(path, "/") + "/"
	for p := range fs.files {
		if p == path || strings.HasPrefix(p, prefix) {
			delete(fs.files, p)
		}
	}
	for p := range fs.dirs {
		if p == path || strings.HasPrefix(p, prefix) {
			delete(fs.dirs, p)
		}
	}
	return nil
}

// Chmod records the mode applied to path.
func (fs *FileSystem) Chmod(path string, perm os.FileMode) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	if _, ok := fs.files[path]; !ok && !fs.dirs[path] {
		return fmt.Errorf("chmod %s: %w", path, os.ErrNotExist)
	}
	fs.modes[path] = perm
	return nil
}

// Chown records the owner applied to path.
func (fs *FileSystem) Chown(path string, uid, gid int) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	if _, ok := fs.files[path]; !ok && !fs.dirs[path] {
		return fmt.Errorf("chown %s: %w", path, os.ErrNotExist)
	}
	fs.owners[path] = Owner{UID: uid, GID: gid}
	return nil
}

// ChownRecursive records a recursive ownership change rooted at root.
func (fs *FileSystem) ChownRecursive(root string, uid, gid int) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	if !fs.dirs[root] {
		return fmt.Errorf("chown -R %s: %w", root, os.ErrNotExist)
	}
	fs.recursive[root] = Owner{UID: uid, GID: gid}
	return nil
}

// Content returns file content as a string, or "" when absent.
func (fs *FileSystem) Content(path string) string {
	fs.mu.RLock()
	defer fs.mu.RUnlock()
	return string(fs.files[path])
}

// Mode returns the last mode recorded for path.
func (fs *FileSystem) Mode(path string) os.FileMode {
	fs.mu.RLock()
	defer fs.mu.RUnlock()
	return fs.modes[path]
}

// OwnerOf returns the owner recorded for path by Chown.
func (fs *FileSystem) OwnerOf(path string) (Owner, bool) {
	fs.mu.RLock()
	defer fs.mu.RUnlock()
	o, ok := fs.owners[path]
	return o, ok
}

// RecursiveOwnerOf returns the owner recorded for root by ChownRecursive.
func (fs *FileSystem) RecursiveOwnerOf(root string) (Owner, bool) {
	fs.mu.RLock()
	defer fs.mu.RUnlock()
	o, ok := fs.recursive[root]
	return o, ok
}

// Writes returns how many successful WriteFileAtomic calls were made.
func (fs *FileSystem) Writes() int {
	fs.mu.RLock()
	defer fs.mu.RUnlock()
	return fs.writeCount
}

// Dirs returns all known directories, sorted.
func (fs *FileSystem) Dirs() []string {
	fs.mu.RLock()
	defer fs.mu.RUnlock()
	out := make([]string, 0, len(fs.dirs))
	for d := range fs.dirs {
		out = append(out, d)
	}
	sort.Strings(out)
	return out
}

// Ensure FileSystem implements ports.FileSystem.
var _ ports.FileSystem = (*FileSystem)(nil)
