package ports

import "errors"

// ErrAccountNotFound is returned when an OS account does not exist.
var ErrAccountNotFound = errors.New("account not found")

// Account is the subset of passwd data needed for ownership fix-ups.
type Account struct {
	Name    string
	UID     int
	GID     int
	HomeDir string
}

// AccountDirectory resolves OS accounts by name.
type AccountDirectory interface {
	Lookup(name string) (Account, error)
}
