package checkpointstore

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/felixgeelhaar/instancer/internal/domain/checkpoint"
)

//go:embed schema.sql
var schemaSQL string

const defaultBusyTimeout = 5 * time.Second

// SQLiteStore keeps records as rows of a checkpoints table. It suits hosts
// that provision many instances and want one inspectable database.
type SQLiteStore struct {
	db          *sql.DB
	busyTimeout time.Duration
	enableWAL   bool
}

// SQLiteOption configures a SQLiteStore.
type SQLiteOption func(*SQLiteStore)

// WithBusyTimeout sets how long writers wait on a locked database.
func WithBusyTimeout(timeout time.Duration) SQLiteOption {
	return func(s *SQLiteStore) {
		if timeout >= 0 {
			s.busyTimeout = timeout
		}
	}
}

// WithWAL toggles write-ahead logging.
func WithWAL(enabled bool) SQLiteOption {
	return func(s *SQLiteStore) {
		s.enableWAL = enabled
	}
}

// NewSQLiteStore opens or creates the database at path.
func NewSQLiteStore(ctx context.Context, path string, opts ...SQLiteOption) (*SQLiteStore, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("sqlite path is required")
	}

	s := &SQLiteStore{
		busyTimeout: defaultBusyTimeout,
		enableWAL:   true,
	}
	for _, opt := range opts {
		opt(s)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return nil, fmt.Errorf("failed to create sqlite directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite db: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	s.db = db
	if err := s.initialize(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLiteStore) initialize(ctx context.Context) error {
	if s.busyTimeout > 0 {
		ms := int(s.busyTimeout / time.Millisecond)
		if _, err := s.db.ExecContext(ctx, fmt.Sprintf("PRAGMA busy_timeout=%d;", ms)); err != nil {
			return fmt.Errorf("failed to set busy_timeout: %w", err)
		}
	}
	if s.enableWAL {
		if _, err := s.db.ExecContext(ctx, "PRAGMA journal_mode=WAL;"); err != nil {
			return fmt.Errorf("failed to enable wal: %w", err)
		}
	}
	if _, err := s.db.ExecContext(ctx, "PRAGMA synchronous=FULL;"); err != nil {
		return fmt.Errorf("failed to set synchronous: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("failed to initialize schema: %w", err)
	}
	return nil
}

// Load implements checkpoint.Store.
func (s *SQLiteStore) Load(ctx context.Context, key string) (int, error) {
	if err := validateKey(key); err != nil {
		return 0, &checkpoint.StoreIOError{Op: checkpoint.OpLoad, Key: key, Err: err}
	}
	var n int64
	err := s.db.QueryRowContext(ctx,
		`SELECT last_completed FROM checkpoints WHERE key = ?`, key).Scan(&n)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, &checkpoint.StoreIOError{Op: checkpoint.OpLoad, Key: key, Err: err}
	}
	if n < 0 {
		return 0, &checkpoint.StoreIOError{Op: checkpoint.OpLoad, Key: key,
			Err: fmt.Errorf("%w: negative value %d", checkpoint.ErrCorrupt, n)}
	}
	return int(n), nil
}

// Save implements checkpoint.Store.
func (s *SQLiteStore) Save(ctx context.Context, key string, index int) error {
	if err := validateRecord(key, index); err != nil {
		return &checkpoint.StoreIOError{Op: checkpoint.OpSave, Key: key, Err: err}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return &checkpoint.StoreIOError{Op: checkpoint.OpSave, Key: key, Err: err}
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx, `
INSERT INTO checkpoints (key, last_completed, updated_at)
VALUES (?, ?, ?)
ON CONFLICT(key) DO UPDATE SET
  last_completed=excluded.last_completed,
  updated_at=excluded.updated_at`,
		key, index, time.Now().UTC().Format(time.RFC3339Nano))
	if err != nil {
		return &checkpoint.StoreIOError{Op: checkpoint.OpSave, Key: key, Err: err}
	}
	if err := tx.Commit(); err != nil {
		return &checkpoint.StoreIOError{Op: checkpoint.OpSave, Key: key, Err: err}
	}
	return nil
}

// Clear implements checkpoint.Store.
func (s *SQLiteStore) Clear(ctx context.Context, key string) error {
	if err := validateKey(key); err != nil {
		return &checkpoint.StoreIOError{Op: checkpoint.OpClear, Key: key, Err: err}
	}
	if _, err := s.db.ExecContext(ctx, `DELETE FROM checkpoints WHERE key = ?`, key); err != nil {
		return &checkpoint.StoreIOError{Op: checkpoint.OpClear, Key: key, Err: err}
	}
	return nil
}

// Close releases the database handle.
func (s *SQLiteStore) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

var _ checkpoint.Store = (*SQLiteStore)(nil)
