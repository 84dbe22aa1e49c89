// Package identity derives every name and path of an application instance
// from the four values an operator supplies.
package identity

import (
	"path/filepath"
	"strings"

	"github.com/felixgeelhaar/instancer/internal/validation"
)

// Input fields as named in error messages and prompts.
const (
	FieldName      = "name"
	FieldVersion   = "version"
	FieldPort      = "port"
	FieldAddonsURL = "addons_url"
)

// Input holds the raw, untrimmed operator input.
type Input struct {
	Name          string
	Version       string
	Port          string
	AddonsRepoURL string
}

// Layout fixes the filesystem roots that instance paths hang off.
type Layout struct {
	InstancesRoot string `mapstructure:"instances_root" yaml:"instances_root" toml:"instances_root"`
	LogRoot       string `mapstructure:"log_root" yaml:"log_root" toml:"log_root"`
	ConfigRoot    string `mapstructure:"config_root" yaml:"config_root" toml:"config_root"`
	UnitDir       string `mapstructure:"unit_dir" yaml:"unit_dir" toml:"unit_dir"`
}

// DefaultLayout returns the conventional Linux layout.
func DefaultLayout() Layout {
	return Layout{
		InstancesRoot: "/opt",
		LogRoot:       "/var/log",
		ConfigRoot:    "/etc",
		UnitDir:       "/etc/systemd/system",
	}
}

// withDefaults fills empty roots from DefaultLayout.
func (l Layout) withDefaults() Layout {
	def := DefaultLayout()
	if l.InstancesRoot == "" {
		l.InstancesRoot = def.InstancesRoot
	}
	if l.LogRoot == "" {
		l.LogRoot = def.LogRoot
	}
	if l.ConfigRoot == "" {
		l.ConfigRoot = def.ConfigRoot
	}
	if l.UnitDir == "" {
		l.UnitDir = def.UnitDir
	}
	return l
}

// Validate checks that every root is a clean absolute path.
func (l Layout) Validate() error {
	roots := []struct {
		field string
		path  string
	}{
		{"layout.instances_root", l.InstancesRoot},
		{"layout.log_root", l.LogRoot},
		{"layout.config_root", l.ConfigRoot},
		{"layout.unit_dir", l.UnitDir},
	}
	for _, r := range roots {
		if err := validation.ValidateAbsPath(r.path); err != nil {
			return invalid(r.field, "must be an absolute path", err)
		}
	}
	return nil
}

// Identity is the resolved instance. All derived fields are pure functions of
// Name and the Layout it was resolved with.
type Identity struct {
	Name          string
	Version       string
	Port          int
	AddonsRepoURL string

	HomeDir       string
	SourceDir     string
	VenvDir       string
	AddonsDir     string
	DataDir       string
	LogDir        string
	LogFile       string
	ConfigPath    string
	ServiceName   string
	UnitPath      string
	SSHDir        string
	SSHKeyPath    string
	CheckpointKey string
}

// Resolve validates in and derives the instance identity.
func Resolve(in Input, layout Layout) (Identity, error) {
	name := strings.TrimSpace(in.Name)
	version := strings.TrimSpace(in.Version)
	portStr := strings.TrimSpace(in.Port)
	addons := strings.TrimSpace(in.AddonsRepoURL)

	required := []struct {
		field, value string
	}{
		{FieldName, name},
		{FieldVersion, version},
		{FieldPort, portStr},
		{FieldAddonsURL, addons},
	}
	for _, r := range required {
		if r.value == "" {
			return Identity{}, invalid(r.field, "is required", validation.ErrEmptyInput)
		}
	}

	if err := ValidateName(name); err != nil {
		return Identity{}, err
	}
	if err := validation.ValidateGitRef(version); err != nil {
		return Identity{}, invalid(FieldVersion, "must be a git branch or tag", err)
	}
	port, err := validation.ValidatePort(portStr)
	if err != nil {
		return Identity{}, invalid(FieldPort, "must be a number between 1 and 65535", err)
	}
	if err := validation.ValidateGitRemoteURL(addons); err != nil {
		return Identity{}, invalid(FieldAddonsURL, "must be an HTTPS or SSH git URL", err)
	}

	layout = layout.withDefaults()
	if err := layout.Validate(); err != nil {
		return Identity{}, err
	}

	home := filepath.Join(layout.InstancesRoot, name)
	logDir := filepath.Join(layout.LogRoot, name)
	sshDir := filepath.Join(home, ".ssh")

	return Identity{
		Name:          name,
		Version:       version,
		Port:          port,
		AddonsRepoURL: addons,
		HomeDir:       home,
		SourceDir:     filepath.Join(home, name+"-server"),
		VenvDir:       filepath.Join(home, "venv"),
		AddonsDir:     filepath.Join(home, "custom-addons"),
		DataDir:       filepath.Join(home, "data"),
		LogDir:        logDir,
		LogFile:       filepath.Join(logDir, name+".log"),
		ConfigPath:    filepath.Join(layout.ConfigRoot, name+".conf"),
		ServiceName:   name + ".service",
		UnitPath:      filepath.Join(layout.UnitDir, name+".service"),
		SSHDir:        sshDir,
		SSHKeyPath:    filepath.Join(sshDir, "id_rsa"),
		CheckpointKey: CheckpointKey(name),
	}, nil
}

// CheckpointKey returns the checkpoint record key of the instance called name.
func CheckpointKey(name string) string {
	return name
}

// ValidateName checks an instance name on its own, for commands that only
// take a name.
func ValidateName(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return invalid(FieldName, "is required", validation.ErrEmptyInput)
	}
	if err := validation.ValidateInstanceName(name); err != nil {
		return invalid(FieldName, "must be a valid system user and database role name", err)
	}
	return nil
}

// PythonBin returns the interpreter inside the instance's virtual runtime.
func (id Identity) PythonBin() string {
	return filepath.Join(id.VenvDir, "bin", "python")
}

// ServerBin returns the application's launcher script in the source tree.
func (id Identity) ServerBin() string {
	return filepath.Join(id.SourceDir, "odoo-bin")
}
