package files

import (
	"fmt"

	"github.com/felixgeelhaar/instancer/internal/domain/execution"
	"github.com/felixgeelhaar/instancer/internal/ports"
)

// HomeMode is applied to the instance home after ownership is fixed.
const HomeMode = 0o750

// OwnershipStep hands the instance tree to the instance user. Earlier steps
// run partly as root, so anything they left behind is re-owned here.
type OwnershipStep struct {
	fs       ports.FileSystem
	accounts ports.AccountDirectory
}

// NewOwnershipStep creates a new OwnershipStep.
func NewOwnershipStep(fs ports.FileSystem, accounts ports.AccountDirectory) *OwnershipStep {
	return &OwnershipStep{fs: fs, accounts: accounts}
}

// Describe implements execution.Describer.
func (s *OwnershipStep) Describe() string {
	return "chown -R home and log directories"
}

// Apply has no guard; every action is a repeatable fix-up.
func (s *OwnershipStep) Apply(rc execution.RunContext) error {
	id := rc.Identity()
	acc, err := ownerOf(s.accounts, id.Name)
	if err != nil {
		return err
	}

	for _, root := range []string{id.HomeDir, id.LogDir} {
		if err := s.fs.ChownRecursive(root, acc.UID, acc.GID); err != nil {
			return fmt.Errorf("chown -R %s: %w", root, err)
		}
	}
	if err := s.fs.Chown(id.ConfigPath, acc.UID, acc.GID); err != nil {
		return fmt.Errorf("chown %s: %w", id.ConfigPath, err)
	}
	if err := s.fs.Chmod(id.HomeDir, HomeMode); err != nil {
		return fmt.Errorf("chmod %s: %w", id.HomeDir, err)
	}

	rc.Logger().Info(rc.Context(), "ownership fixed",
		ports.F("owner", acc.Name), ports.F("uid", acc.UID), ports.F("gid", acc.GID))
	return nil
}
