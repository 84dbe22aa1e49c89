// Package config loads instancer settings from defaults, an optional YAML or
// TOML file and INSTANCER_* environment variables, in that order of
// precedence.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/felixgeelhaar/instancer/internal/adapters/checkpointstore"
	"github.com/felixgeelhaar/instancer/internal/domain/identity"
	"github.com/felixgeelhaar/instancer/internal/ports"
)

const (
	// AppName is the application name.
	AppName = "instancer"
	// EnvPrefix prefixes environment overrides, e.g. INSTANCER_CHECKPOINT_BACKEND.
	EnvPrefix = "INSTANCER"
	// DefaultConfigPath is read when no --config flag is given and it exists.
	DefaultConfigPath = "/etc/instancer/config.yaml"
)

// Config is the effective configuration.
type Config struct {
	Checkpoint checkpointstore.Config `mapstructure:"checkpoint" yaml:"checkpoint" toml:"checkpoint"`
	Layout     identity.Layout        `mapstructure:"layout" yaml:"layout" toml:"layout"`
	Source     SourceConfig           `mapstructure:"source" yaml:"source" toml:"source"`
	System     SystemConfig           `mapstructure:"system" yaml:"system" toml:"system"`
	Database   DatabaseConfig         `mapstructure:"database" yaml:"database" toml:"database"`
	Python     PythonConfig           `mapstructure:"python" yaml:"python" toml:"python"`
	Service    ServiceConfig          `mapstructure:"service" yaml:"service" toml:"service"`
	Log        LogConfig              `mapstructure:"log" yaml:"log" toml:"log"`
}

// SourceConfig locates the application source repository.
type SourceConfig struct {
	RepoURL string `mapstructure:"repo_url" yaml:"repo_url" toml:"repo_url"`
	Depth   int    `mapstructure:"depth" yaml:"depth" toml:"depth"`
}

// SystemConfig holds host-wide settings.
type SystemConfig struct {
	Timezone string   `mapstructure:"timezone" yaml:"timezone" toml:"timezone"`
	Packages []string `mapstructure:"packages" yaml:"packages" toml:"packages"`
}

// DatabaseConfig lists the database engine packages.
type DatabaseConfig struct {
	Packages []string `mapstructure:"packages" yaml:"packages" toml:"packages"`
}

// PythonConfig configures the virtual runtime.
type PythonConfig struct {
	Interpreter   string   `mapstructure:"interpreter" yaml:"interpreter" toml:"interpreter"`
	ExtraPackages []string `mapstructure:"extra_packages" yaml:"extra_packages" toml:"extra_packages"`
}

// ServiceConfig configures the rendered server configuration and unit.
type ServiceConfig struct {
	Workers       int      `mapstructure:"workers" yaml:"workers" toml:"workers"`
	AdminPassword string   `mapstructure:"admin_password" yaml:"admin_password" toml:"admin_password"`
	After         []string `mapstructure:"after" yaml:"after" toml:"after"`
	KeyBits       int      `mapstructure:"key_bits" yaml:"key_bits" toml:"key_bits"`
}

// LogConfig configures console logging.
type LogConfig struct {
	Level  string `mapstructure:"level" yaml:"level" toml:"level"`
	Format string `mapstructure:"format" yaml:"format" toml:"format"`
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() Config {
	return Config{
		Checkpoint: checkpointstore.Config{
			Backend: checkpointstore.BackendFile,
			Redis: checkpointstore.RedisConfig{
				Addr:   "localhost:6379",
				Prefix: AppName,
			},
		},
		Layout: identity.DefaultLayout(),
		Source: SourceConfig{
			RepoURL: "https://github.com/odoo/odoo.git",
			Depth:   1,
		},
		System: SystemConfig{
			Timezone: "Etc/UTC",
			Packages: []string{
				"git", "build-essential", "wget", "python3-dev", "python3-venv", "python3-pip",
				"libxml2-dev", "libxslt1-dev", "libldap2-dev", "libsasl2-dev", "libjpeg-dev",
				"libpq-dev", "zlib1g-dev", "libffi-dev", "node-less", "npm", "wkhtmltopdf",
			},
		},
		Database: DatabaseConfig{
			Packages: []string{"postgresql", "postgresql-client"},
		},
		Python: PythonConfig{
			Interpreter: "python3",
		},
		Service: ServiceConfig{
			Workers: 0,
			KeyBits: 4096,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// LoadOptions controls where Load looks.
type LoadOptions struct {
	// Path is an explicit config file; it must exist.
	Path string
	// DefaultPath is consulted when Path is empty; a missing file is fine.
	DefaultPath string
}

// Load builds the effective configuration. It returns the file that was
// read, or "" when only defaults and environment applied.
func Load(opts LoadOptions) (*Config, string, error) {
	v := viper.New()
	setDefaults(v, DefaultConfig())

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	resolved := ""
	switch {
	case opts.Path != "":
		if _, err := os.Stat(opts.Path); err != nil {
			return nil, "", fmt.Errorf("config file not found: %s: %w", opts.Path, err)
		}
		resolved = opts.Path
	case opts.DefaultPath != "":
		if _, err := os.Stat(opts.DefaultPath); err == nil {
			resolved = opts.DefaultPath
		}
	}

	if resolved != "" {
		v.SetConfigFile(resolved)
		if err := v.ReadInConfig(); err != nil {
			return nil, "", fmt.Errorf("failed to read config %s: %w", resolved, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, "", fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, "", err
	}
	return &cfg, resolved, nil
}

// setDefaults registers every leaf key so AutomaticEnv can override it.
func setDefaults(v *viper.Viper, d Config) {
	v.SetDefault("checkpoint.backend", d.Checkpoint.Backend)
	v.SetDefault("checkpoint.dir", d.Checkpoint.Dir)
	v.SetDefault("checkpoint.sqlite_path", d.Checkpoint.SQLitePath)
	v.SetDefault("checkpoint.redis.addr", d.Checkpoint.Redis.Addr)
	v.SetDefault("checkpoint.redis.password", d.Checkpoint.Redis.Password)
	v.SetDefault("checkpoint.redis.db", d.Checkpoint.Redis.DB)
	v.SetDefault("checkpoint.redis.prefix", d.Checkpoint.Redis.Prefix)
	v.SetDefault("checkpoint.redis.ttl", d.Checkpoint.Redis.TTL)
	v.SetDefault("layout.instances_root", d.Layout.InstancesRoot)
	v.SetDefault("layout.log_root", d.Layout.LogRoot)
	v.SetDefault("layout.config_root", d.Layout.ConfigRoot)
	v.SetDefault("layout.unit_dir", d.Layout.UnitDir)
	v.SetDefault("source.repo_url", d.Source.RepoURL)
	v.SetDefault("source.depth", d.Source.Depth)
	v.SetDefault("system.timezone", d.System.Timezone)
	v.SetDefault("system.packages", d.System.Packages)
	v.SetDefault("database.packages", d.Database.Packages)
	v.SetDefault("python.interpreter", d.Python.Interpreter)
	v.SetDefault("python.extra_packages", d.Python.ExtraPackages)
	v.SetDefault("service.workers", d.Service.Workers)
	v.SetDefault("service.admin_password", d.Service.AdminPassword)
	v.SetDefault("service.after", d.Service.After)
	v.SetDefault("service.key_bits", d.Service.KeyBits)
	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.format", d.Log.Format)
}

// Validate checks settings that would otherwise fail deep inside a run.
func (c *Config) Validate() error {
	var errs []error

	switch c.Checkpoint.Backend {
	case "", checkpointstore.BackendFile, checkpointstore.BackendSQLite, checkpointstore.BackendRedis:
	default:
		errs = append(errs, fmt.Errorf("checkpoint.backend: unknown backend %q", c.Checkpoint.Backend))
	}
	if c.Checkpoint.Backend == checkpointstore.BackendSQLite && c.Checkpoint.SQLitePath == "" {
		errs = append(errs, errors.New("checkpoint.sqlite_path: required for the sqlite backend"))
	}
	if c.Checkpoint.Redis.TTL < 0 {
		errs = append(errs, fmt.Errorf("checkpoint.redis.ttl: must not be negative, got %s", c.Checkpoint.Redis.TTL))
	}
	if err := c.Layout.Validate(); err != nil {
		errs = append(errs, err)
	}
	if c.Source.Depth < 0 {
		errs = append(errs, fmt.Errorf("source.depth: must not be negative, got %d", c.Source.Depth))
	}
	if c.Service.Workers < 0 {
		errs = append(errs, fmt.Errorf("service.workers: must not be negative, got %d", c.Service.Workers))
	}
	if _, err := ports.ParseLevel(c.Log.Level); err != nil {
		errs = append(errs, fmt.Errorf("log.level: %w", err))
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("log.format: must be text or json, got %q", c.Log.Format))
	}

	return errors.Join(errs...)
}

// Format names an encoding for Encode.
type Format string

// Supported encodings.
const (
	FormatYAML Format = "yaml"
	FormatTOML Format = "toml"
)

// Encode renders the configuration, with the admin password masked.
func (c *Config) Encode(format Format) ([]byte, error) {
	out := *c
	if out.Service.AdminPassword != "" {
		out.Service.AdminPassword = "********"
	}
	if out.Checkpoint.Redis.Password != "" {
		out.Checkpoint.Redis.Password = "********"
	}

	switch format {
	case FormatYAML, "":
		var buf bytes.Buffer
		enc := yaml.NewEncoder(&buf)
		enc.SetIndent(2)
		if err := enc.Encode(out); err != nil {
			return nil, err
		}
		if err := enc.Close(); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	case FormatTOML:
		return toml.Marshal(out)
	default:
		return nil, fmt.Errorf("unknown format %q: use yaml or toml", format)
	}
}
