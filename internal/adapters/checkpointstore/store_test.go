package checkpointstore

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/felixgeelhaar/instancer/internal/adapters/filesystem"
	"github.com/felixgeelhaar/instancer/internal/domain/checkpoint"
	"github.com/felixgeelhaar/instancer/internal/testutil"
	"github.com/felixgeelhaar/instancer/internal/testutil/mocks"
)

type storeFactory func(t *testing.T) checkpoint.Store

func backends() map[string]storeFactory {
	return map[string]storeFactory{
		"file": func(t *testing.T) checkpoint.Store {
			return NewFileStore(filesystem.NewRealFileSystem(), t.TempDir())
		},
		"file-mockfs": func(_ *testing.T) checkpoint.Store {
			return NewFileStore(mocks.NewFileSystem(), "/var/lib/instancer")
		},
		"sqlite": func(t *testing.T) checkpoint.Store {
			s, err := NewSQLiteStore(context.Background(), filepath.Join(t.TempDir(), "state.db"))
			require.NoError(t, err)
			t.Cleanup(func() { _ = s.Close() })
			return s
		},
		"redis": func(t *testing.T) checkpoint.Store {
			return newTestRedisStore(t)
		},
	}
}

func newTestRedisStore(t *testing.T) *RedisStore {
	t.Helper()

	addr := os.Getenv("TEST_REDIS_ADDR")
	if addr == "" {
		addr = "127.0.0.1:6379"
	}
	prefix := "instancer-test-" + uuid.NewString()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	s, err := NewRedisStore(ctx, addr, WithRedisPrefix(prefix), WithRedisTTL(5*time.Minute))
	if err != nil {
		t.Skipf("redis unavailable at %s: %v", addr, err)
	}
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		keys, _ := s.client.Keys(ctx, prefix+":*").Result()
		if len(keys) > 0 {
			_ = s.client.Del(ctx, keys...).Err()
		}
		_ = s.Close()
	})
	return s
}

func TestStores_Contract(t *testing.T) {
	t.Parallel()

	for name, factory := range backends() {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			ctx := context.Background()
			store := factory(t)

			got, err := store.Load(ctx, "bob")
			require.NoError(t, err, "absent record is not an error")
			assert.Equal(t, 0, got)

			for i := 1; i <= 14; i++ {
				require.NoError(t, store.Save(ctx, "bob", i))
				got, err = store.Load(ctx, "bob")
				require.NoError(t, err)
				assert.Equal(t, i, got)
			}

			require.NoError(t, store.Save(ctx, "bob", 3), "save overwrites")
			got, err = store.Load(ctx, "bob")
			require.NoError(t, err)
			assert.Equal(t, 3, got)

			require.NoError(t, store.Clear(ctx, "bob"))
			got, err = store.Load(ctx, "bob")
			require.NoError(t, err)
			assert.Equal(t, 0, got)

			require.NoError(t, store.Clear(ctx, "bob"), "clear is idempotent")
		})
	}
}

func TestStores_IdentifierIsolation(t *testing.T) {
	t.Parallel()

	for name, factory := range backends() {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			ctx := context.Background()
			store := factory(t)

			require.NoError(t, store.Save(ctx, "alice", 3))

			got, err := store.Load(ctx, "bob")
			require.NoError(t, err)
			assert.Equal(t, 0, got)

			require.NoError(t, store.Clear(ctx, "bob"))
			got, err = store.Load(ctx, "alice")
			require.NoError(t, err)
			assert.Equal(t, 3, got)
		})
	}
}

func TestStores_RejectInvalidRecords(t *testing.T) {
	t.Parallel()

	for name, factory := range backends() {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			ctx := context.Background()
			store := factory(t)

			var storeErr *checkpoint.StoreIOError
			require.ErrorAs(t, store.Save(ctx, "bob", -1), &storeErr)
			assert.Equal(t, checkpoint.OpSave, storeErr.Op)

			require.ErrorAs(t, store.Save(ctx, "../etc/passwd", 1), &storeErr)
			_, err := store.Load(ctx, "")
			require.ErrorAs(t, err, &storeErr)
			assert.Equal(t, checkpoint.OpLoad, storeErr.Op)
		})
	}
}

func TestFileStore_PlainTextLayout(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	store := NewFileStore(filesystem.NewRealFileSystem(), dir)
	require.NoError(t, store.Save(context.Background(), "carol", 7))

	path := testutil.CheckpointFile(dir, "carol")
	assert.Equal(t, path, store.Path("carol"))
	testutil.AssertFileEquals(t, path, "7\n")
	testutil.AssertFileMode(t, path, 0o600)
}

func TestFileStore_ClearRemovesRecord(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	ctx := context.Background()
	store := NewFileStore(filesystem.NewRealFileSystem(), dir)

	testutil.AssertNoCheckpoint(t, dir, "carol")
	require.NoError(t, store.Save(ctx, "carol", 14))
	testutil.AssertCheckpoint(t, dir, "carol", 14)

	require.NoError(t, store.Clear(ctx, "carol"))
	testutil.AssertNoCheckpoint(t, dir, "carol")
	require.NoError(t, store.Clear(ctx, "carol"))
}

func TestFileStore_HandEditedValue(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	testutil.SeedCheckpoint(t, dir, "carol", "  7  \n")

	got, err := NewFileStore(filesystem.NewRealFileSystem(), dir).Load(context.Background(), "carol")
	require.NoError(t, err)
	assert.Equal(t, 7, got)
}

func TestFileStore_CorruptRecord(t *testing.T) {
	t.Parallel()

	fs := mocks.NewFileSystem()
	store := NewFileStore(fs, "/tmp")
	fs.AddFile(store.Path("dave"), "seven\n")

	_, err := store.Load(context.Background(), "dave")
	var storeErr *checkpoint.StoreIOError
	require.ErrorAs(t, err, &storeErr)
	assert.Equal(t, checkpoint.OpLoad, storeErr.Op)
	assert.Equal(t, "dave", storeErr.Key)
	assert.ErrorIs(t, err, checkpoint.ErrCorrupt)
}

func TestFileStore_WriteFailureLeavesOldValue(t *testing.T) {
	t.Parallel()

	fs := mocks.NewFileSystem()
	store := NewFileStore(fs, "/tmp")
	ctx := context.Background()
	require.NoError(t, store.Save(ctx, "carol", 9))

	fs.FailWrites(errors.New("no space left on device"))
	err := store.Save(ctx, "carol", 10)
	var storeErr *checkpoint.StoreIOError
	require.ErrorAs(t, err, &storeErr)
	assert.Equal(t, checkpoint.OpSave, storeErr.Op)

	got, err := store.Load(ctx, "carol")
	require.NoError(t, err)
	assert.Equal(t, 9, got)
}

func TestFileStore_DefaultDir(t *testing.T) {
	t.Parallel()

	store := NewFileStore(mocks.NewFileSystem(), "")
	assert.Equal(t, filepath.Join(os.TempDir(), "instancer-bob.step"), store.Path("bob"))
}

func TestSQLiteStore_PersistsAcrossReopen(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "state.db")

	s, err := NewSQLiteStore(ctx, path, WithWAL(false))
	require.NoError(t, err)
	require.NoError(t, s.Save(ctx, "carol", 9))
	require.NoError(t, s.Close())

	s, err = NewSQLiteStore(ctx, path)
	require.NoError(t, err)
	defer func() { _ = s.Close() }()
	got, err := s.Load(ctx, "carol")
	require.NoError(t, err)
	assert.Equal(t, 9, got)
}

func TestNewSQLiteStore_RequiresPath(t *testing.T) {
	t.Parallel()

	_, err := NewSQLiteStore(context.Background(), "  ")
	assert.Error(t, err)
}

func TestRedisStore_KeyLayout(t *testing.T) {
	t.Parallel()

	s := newTestRedisStore(t)
	assert.Equal(t, s.prefix+":checkpoint:bob", s.Key("bob"))

	ctx := context.Background()
	require.NoError(t, s.client.Set(ctx, s.Key("dave"), "not-a-number", 0).Err())
	_, err := s.Load(ctx, "dave")
	assert.ErrorIs(t, err, checkpoint.ErrCorrupt)
}

func TestOpen(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	store, err := Open(ctx, Config{}, mocks.NewFileSystem())
	require.NoError(t, err)
	assert.IsType(t, &FileStore{}, store)

	store, err = Open(ctx, Config{Backend: "SQLite", SQLitePath: filepath.Join(t.TempDir(), "s.db")}, nil)
	require.NoError(t, err)
	assert.IsType(t, &SQLiteStore{}, store)
	require.NoError(t, store.Close())

	_, err = Open(ctx, Config{Backend: "etcd"}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown checkpoint backend")
}
