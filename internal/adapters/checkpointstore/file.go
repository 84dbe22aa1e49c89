// Package checkpointstore provides the durable backends for checkpoint records:
// a plain-text file per instance (the default), a SQLite table and Redis keys.
package checkpointstore

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/felixgeelhaar/instancer/internal/domain/checkpoint"
	"github.com/felixgeelhaar/instancer/internal/ports"
)

const (
	filePrefix = "instancer-"
	fileSuffix = ".step"
	fileMode   = 0o600
)

// FileStore keeps one human-editable file per key holding the decimal index.
type FileStore struct {
	fs  ports.FileSystem
	dir string
}

// NewFileStore creates a store rooted at dir. An empty dir means the OS temp dir.
func NewFileStore(fs ports.FileSystem, dir string) *FileStore {
	if strings.TrimSpace(dir) == "" {
		dir = os.TempDir()
	}
	return &FileStore{fs: fs, dir: dir}
}

// Path returns the file that holds key's record.
func (s *FileStore) Path(key string) string {
	return filepath.Join(s.dir, filePrefix+key+fileSuffix)
}

// Load implements checkpoint.Store.
func (s *FileStore) Load(_ context.Context, key string) (int, error) {
	if err := validateKey(key); err != nil {
		return 0, &checkpoint.StoreIOError{Op: checkpoint.OpLoad, Key: key, Err: err}
	}
	data, err := s.fs.ReadFile(s.Path(key))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return 0, nil
		}
		return 0, &checkpoint.StoreIOError{Op: checkpoint.OpLoad, Key: key, Err: err}
	}
	n, err := checkpoint.Parse(data)
	if err != nil {
		return 0, &checkpoint.StoreIOError{Op: checkpoint.OpLoad, Key: key, Err: err}
	}
	return n, nil
}

// Save implements checkpoint.Store.
func (s *FileStore) Save(_ context.Context, key string, index int) error {
	if err := validateRecord(key, index); err != nil {
		return &checkpoint.StoreIOError{Op: checkpoint.OpSave, Key: key, Err: err}
	}
	if err := s.fs.WriteFileAtomic(s.Path(key), checkpoint.Format(index), fileMode); err != nil {
		return &checkpoint.StoreIOError{Op: checkpoint.OpSave, Key: key, Err: err}
	}
	return nil
}

// Clear implements checkpoint.Store.
func (s *FileStore) Clear(_ context.Context, key string) error {
	if err := validateKey(key); err != nil {
		return &checkpoint.StoreIOError{Op: checkpoint.OpClear, Key: key, Err: err}
	}
	if err := s.fs.RemoveAll(s.Path(key)); err != nil {
		return &checkpoint.StoreIOError{Op: checkpoint.OpClear, Key: key, Err: err}
	}
	return nil
}

// Close is a no-op.
func (s *FileStore) Close() error {
	return nil
}

// validateKey keeps keys from escaping the store directory or namespace.
func validateKey(key string) error {
	if key == "" {
		return fmt.Errorf("empty key")
	}
	if strings.ContainsAny(key, "/\\:\x00") || key == "." || key == ".." {
		return fmt.Errorf("invalid key %q", key)
	}
	return nil
}

func validateRecord(key string, index int) error {
	if err := validateKey(key); err != nil {
		return err
	}
	if index < 0 {
		return fmt.Errorf("negative index %d", index)
	}
	return nil
}

var _ checkpoint.Store = (*FileStore)(nil)
