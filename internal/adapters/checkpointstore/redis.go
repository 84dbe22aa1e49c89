package checkpointstore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/felixgeelhaar/instancer/internal/domain/checkpoint"
)

const defaultRedisPrefix = "instancer"

// RedisStore keeps records as string keys "<prefix>:checkpoint:<key>".
// Durability follows the server's persistence settings.
type RedisStore struct {
	client   *goredis.Client
	ttl      time.Duration
	prefix   string
	addr     string
	db       int
	password string
}

// RedisOption configures a RedisStore.
type RedisOption func(*RedisStore)

// WithRedisPassword sets the AUTH password.
func WithRedisPassword(password string) RedisOption {
	return func(s *RedisStore) {
		s.password = password
	}
}

// WithRedisDB selects the logical database.
func WithRedisDB(db int) RedisOption {
	return func(s *RedisStore) {
		s.db = db
	}
}

// WithRedisTTL expires records that are not advanced within ttl. Zero keeps them forever.
func WithRedisTTL(ttl time.Duration) RedisOption {
	return func(s *RedisStore) {
		if ttl > 0 {
			s.ttl = ttl
		}
	}
}

// WithRedisPrefix sets the key namespace.
func WithRedisPrefix(prefix string) RedisOption {
	return func(s *RedisStore) {
		if strings.TrimSpace(prefix) != "" {
			s.prefix = strings.TrimSpace(prefix)
		}
	}
}

// WithRedisClient injects an existing client.
func WithRedisClient(client *goredis.Client) RedisOption {
	return func(s *RedisStore) {
		if client != nil {
			s.client = client
		}
	}
}

// NewRedisStore connects to addr and verifies the server answers.
func NewRedisStore(ctx context.Context, addr string, opts ...RedisOption) (*RedisStore, error) {
	if strings.TrimSpace(addr) == "" {
		return nil, fmt.Errorf("redis addr is required")
	}

	s := &RedisStore{
		prefix: defaultRedisPrefix,
		addr:   addr,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.client == nil {
		s.client = goredis.NewClient(&goredis.Options{
			Addr:     s.addr,
			Password: s.password,
			DB:       s.db,
		})
	}

	if err := s.client.Ping(ctx).Err(); err != nil {
		_ = s.client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}
	return s, nil
}

// Key returns the redis key holding key's record.
func (s *RedisStore) Key(key string) string {
	return fmt.Sprintf("%s:checkpoint:%s", s.prefix, key)
}

// Load implements checkpoint.Store.
func (s *RedisStore) Load(ctx context.Context, key string) (int, error) {
	if err := validateKey(key); err != nil {
		return 0, &checkpoint.StoreIOError{Op: checkpoint.OpLoad, Key: key, Err: err}
	}
	raw, err := s.client.Get(ctx, s.Key(key)).Result()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return 0, nil
		}
		return 0, &checkpoint.StoreIOError{Op: checkpoint.OpLoad, Key: key, Err: err}
	}
	n, err := checkpoint.Parse([]byte(raw))
	if err != nil {
		return 0, &checkpoint.StoreIOError{Op: checkpoint.OpLoad, Key: key, Err: err}
	}
	return n, nil
}

// Save implements checkpoint.Store.
func (s *RedisStore) Save(ctx context.Context, key string, index int) error {
	if err := validateRecord(key, index); err != nil {
		return &checkpoint.StoreIOError{Op: checkpoint.OpSave, Key: key, Err: err}
	}
	if err := s.client.Set(ctx, s.Key(key), strings.TrimSpace(string(checkpoint.Format(index))), s.ttl).Err(); err != nil {
		return &checkpoint.StoreIOError{Op: checkpoint.OpSave, Key: key, Err: err}
	}
	return nil
}

// Clear implements checkpoint.Store.
func (s *RedisStore) Clear(ctx context.Context, key string) error {
	if err := validateKey(key); err != nil {
		return &checkpoint.StoreIOError{Op: checkpoint.OpClear, Key: key, Err: err}
	}
	if err := s.client.Del(ctx, s.Key(key)).Err(); err != nil {
		return &checkpoint.StoreIOError{Op: checkpoint.OpClear, Key: key, Err: err}
	}
	return nil
}

// Close closes the client.
func (s *RedisStore) Close() error {
	if s.client == nil {
		return nil
	}
	return s.client.Close()
}

var _ checkpoint.Store = (*RedisStore)(nil)
