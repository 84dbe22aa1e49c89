package files

import (
	"fmt"
	"os"

	"github.com/felixgeelhaar/instancer/internal/domain/execution"
	"github.com/felixgeelhaar/instancer/internal/domain/identity"
	"github.com/felixgeelhaar/instancer/internal/ports"
)

// Directory is one directory the instance needs.
type Directory struct {
	Path string
	Mode os.FileMode
}

// InstanceDirectories lists the working directories of an instance. The
// addons directory is left to the clone that populates it.
func InstanceDirectories(id identity.Identity) []Directory {
	return []Directory{
		{Path: id.DataDir, Mode: 0o750},
		{Path: id.LogDir, Mode: 0o750},
		{Path: id.SSHDir, Mode: 0o700},
	}
}

// DirectoriesStep creates the instance directories owned by the instance user.
type DirectoriesStep struct {
	fs       ports.FileSystem
	accounts ports.AccountDirectory
}

// NewDirectoriesStep creates a new DirectoriesStep.
func NewDirectoriesStep(fs ports.FileSystem, accounts ports.AccountDirectory) *DirectoriesStep {
	return &DirectoriesStep{fs: fs, accounts: accounts}
}

// Describe implements execution.Describer.
func (s *DirectoriesStep) Describe() string {
	return "mkdir data, log and .ssh directories"
}

// Apply creates missing directories, then sets mode and owner on all of them.
func (s *DirectoriesStep) Apply(rc execution.RunContext) error {
	ctx := rc.Context()
	id := rc.Identity()

	acc, err := ownerOf(s.accounts, id.Name)
	if err != nil {
		return err
	}

	for _, dir := range InstanceDirectories(id) {
		if s.fs.IsDir(dir.Path) {
			rc.Logger().Debug(ctx, "directory exists", ports.F("path", dir.Path))
		} else {
			if err := s.fs.MkdirAll(dir.Path, dir.Mode); err != nil {
				return fmt.Errorf("create %s: %w", dir.Path, err)
			}
			rc.Logger().Info(ctx, "directory created", ports.F("path", dir.Path))
		}
		if err := settle(s.fs, dir.Path, dir.Mode, acc); err != nil {
			return err
		}
	}
	return nil
}
