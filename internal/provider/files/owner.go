// Package files lays out the instance's directories and files and fixes
// their ownership.
package files

import (
	"fmt"
	"os"

	"github.com/felixgeelhaar/instancer/internal/ports"
)

// ownerOf resolves the instance user's uid and gid.
func ownerOf(accounts ports.AccountDirectory, name string) (ports.Account, error) {
	acc, err := accounts.Lookup(name)
	if err != nil {
		return ports.Account{}, fmt.Errorf("look up owner %s: %w", name, err)
	}
	return acc, nil
}

// settle applies mode and ownership to path.
func settle(fs ports.FileSystem, path string, mode os.FileMode, acc ports.Account) error {
	if err := fs.Chmod(path, mode); err != nil {
		return fmt.Errorf("chmod %s: %w", path, err)
	}
	if err := fs.Chown(path, acc.UID, acc.GID); err != nil {
		return fmt.Errorf("chown %s: %w", path, err)
	}
	return nil
}
