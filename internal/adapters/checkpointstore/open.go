package checkpointstore

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/felixgeelhaar/instancer/internal/domain/checkpoint"
	"github.com/felixgeelhaar/instancer/internal/ports"
)

// Backend names accepted in configuration.
const (
	BackendFile   = "file"
	BackendSQLite = "sqlite"
	BackendRedis  = "redis"
)

// Config selects and configures a backend.
type Config struct {
	Backend    string      `mapstructure:"backend" yaml:"backend" toml:"backend"`
	Dir        string      `mapstructure:"dir" yaml:"dir" toml:"dir"`
	SQLitePath string      `mapstructure:"sqlite_path" yaml:"sqlite_path" toml:"sqlite_path"`
	Redis      RedisConfig `mapstructure:"redis" yaml:"redis" toml:"redis"`
}

// RedisConfig configures the Redis backend.
type RedisConfig struct {
	Addr     string        `mapstructure:"addr" yaml:"addr" toml:"addr"`
	Password string        `mapstructure:"password" yaml:"password,omitempty" toml:"password,omitempty"`
	DB       int           `mapstructure:"db" yaml:"db" toml:"db"`
	Prefix   string        `mapstructure:"prefix" yaml:"prefix" toml:"prefix"`
	TTL      time.Duration `mapstructure:"ttl" yaml:"ttl" toml:"ttl"`
}

// ClosableStore is a checkpoint store holding resources until Close.
type ClosableStore interface {
	checkpoint.Store
	Close() error
}

// Open builds the store named by cfg.Backend. An empty backend means file.
func Open(ctx context.Context, cfg Config, fs ports.FileSystem) (ClosableStore, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Backend)) {
	case "", BackendFile:
		return NewFileStore(fs, cfg.Dir), nil
	case BackendSQLite:
		return NewSQLiteStore(ctx, cfg.SQLitePath)
	case BackendRedis:
		return NewRedisStore(ctx, cfg.Redis.Addr,
			WithRedisPassword(cfg.Redis.Password),
			WithRedisDB(cfg.Redis.DB),
			WithRedisPrefix(cfg.Redis.Prefix),
			WithRedisTTL(cfg.Redis.TTL),
		)
	default:
		return nil, fmt.Errorf("unknown checkpoint backend %q (want %s, %s or %s)",
			cfg.Backend, BackendFile, BackendSQLite, BackendRedis)
	}
}
