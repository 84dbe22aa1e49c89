// Package accounts resolves OS accounts from the host user database.
package accounts

import (
	"errors"
	"fmt"
	"os/user"
	"strconv"

	"github.com/felixgeelhaar/instancer/internal/ports"
)

// Passwd looks accounts up through os/user (NSS via cgo, /etc/passwd otherwise).
type Passwd struct{}

// NewPasswd creates a Passwd directory.
func NewPasswd() *Passwd {
	return &Passwd{}
}

// Lookup returns the account named name.
func (p *Passwd) Lookup(name string) (ports.Account, error) {
	u, err := user.Lookup(name)
	if err != nil {
		var unknown user.UnknownUserError
		if errors.As(err, &unknown) {
			return ports.Account{}, fmt.Errorf("%w: %s", ports.ErrAccountNotFound, name)
		}
		return ports.Account{}, fmt.Errorf("lookup account %s: %w", name, err)
	}

	uid, err := strconv.Atoi(u.Uid)
	if err != nil {
		return ports.Account{}, fmt.Errorf("account %s has non-numeric uid %q", name, u.Uid)
	}
	gid, err := strconv.Atoi(u.Gid)
	if err != nil {
		return ports.Account{}, fmt.Errorf("account %s has non-numeric gid %q", name, u.Gid)
	}

	return ports.Account{
		Name:    u.Username,
		UID:     uid,
		GID:     gid,
		HomeDir: u.HomeDir,
	}, nil
}

// Ensure Passwd implements ports.AccountDirectory.
var _ ports.AccountDirectory = (*Passwd)(nil)
