package files

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"gopkg.in/ini.v1"

	"github.com/felixgeelhaar/instancer/internal/domain/execution"
	"github.com/felixgeelhaar/instancer/internal/domain/identity"
	"github.com/felixgeelhaar/instancer/internal/ports"
)

// ConfigSection is the section the application server reads.
const ConfigSection = "options"

// ConfigMode is the mode of the rendered configuration file.
const ConfigMode = 0o640

// ConfigOptions are the operator-tunable server settings.
type ConfigOptions struct {
	// AdminPassword protects the database manager. Empty keeps the password
	// already on disk or generates one.
	AdminPassword string
	Workers       int
}

// RenderConfig renders the server configuration for id.
func RenderConfig(id identity.Identity, opts ConfigOptions) ([]byte, error) {
	cfg := ini.Empty()
	sec, err := cfg.NewSection(ConfigSection)
	if err != nil {
		return nil, err
	}

	keys := []struct{ name, value string }{
		{"admin_passwd", opts.AdminPassword},
		{"db_host", "False"},
		{"db_port", "False"},
		{"db_user", id.Name},
		{"db_password", "False"},
		{"addons_path", strings.Join([]string{id.SourceDir + "/addons", id.AddonsDir}, ",")},
		{"data_dir", id.DataDir},
		{"logfile", id.LogFile},
		{"http_port", strconv.Itoa(id.Port)},
		{"workers", strconv.Itoa(opts.Workers)},
	}
	for _, k := range keys {
		if _, err := sec.NewKey(k.name, k.value); err != nil {
			return nil, fmt.Errorf("config key %s: %w", k.name, err)
		}
	}

	var buf bytes.Buffer
	if _, err := cfg.WriteTo(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// ConfigFileStep writes the server configuration file.
type ConfigFileStep struct {
	fs       ports.FileSystem
	accounts ports.AccountDirectory
	opts     ConfigOptions
}

// NewConfigFileStep creates a new ConfigFileStep.
func NewConfigFileStep(fs ports.FileSystem, accounts ports.AccountDirectory, opts ConfigOptions) *ConfigFileStep {
	return &ConfigFileStep{fs: fs, accounts: accounts, opts: opts}
}

// Describe implements execution.Describer.
func (s *ConfigFileStep) Describe() string {
	return "render [" + ConfigSection + "] configuration"
}

// Apply writes the configuration when it differs from what is on disk, then
// sets mode and owner.
func (s *ConfigFileStep) Apply(rc execution.RunContext) error {
	ctx := rc.Context()
	id := rc.Identity()

	acc, err := ownerOf(s.accounts, id.Name)
	if err != nil {
		return err
	}

	var existing []byte
	if s.fs.Exists(id.ConfigPath) {
		existing, err = s.fs.ReadFile(id.ConfigPath)
		if err != nil {
			return fmt.Errorf("read %s: %w", id.ConfigPath, err)
		}
	}

	opts := s.opts
	if opts.AdminPassword == "" {
		opts.AdminPassword = existingAdminPassword(existing)
	}
	if opts.AdminPassword == "" {
		opts.AdminPassword = strings.ReplaceAll(uuid.NewString(), "-", "")
		rc.Logger().Info(ctx, "generated admin password", ports.F("path", id.ConfigPath))
	}

	content, err := RenderConfig(id, opts)
	if err != nil {
		return fmt.Errorf("render config: %w", err)
	}

	if bytes.Equal(existing, content) {
		rc.Logger().Info(ctx, "configuration up to date", ports.F("path", id.ConfigPath))
	} else {
		if err := s.fs.WriteFileAtomic(id.ConfigPath, content, ConfigMode); err != nil {
			return fmt.Errorf("write %s: %w", id.ConfigPath, err)
		}
		rc.Logger().Info(ctx, "configuration written", ports.F("path", id.ConfigPath))
	}

	return settle(s.fs, id.ConfigPath, ConfigMode, acc)
}

// existingAdminPassword reads admin_passwd from a previously rendered file.
func existingAdminPassword(content []byte) string {
	if len(content) == 0 {
		return ""
	}
	cfg, err := ini.Load(content)
	if err != nil {
		return ""
	}
	sec, err := cfg.GetSection(ConfigSection)
	if err != nil {
		return ""
	}
	return sec.Key("admin_passwd").String()
}
