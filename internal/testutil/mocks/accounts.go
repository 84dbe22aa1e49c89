package mocks

import (
	"fmt"
	"sync"

	"github.com/felixgeelhaar/instancer/internal/ports"
)

// Accounts is a test double for ports.AccountDirectory.
type Accounts struct {
	mu       sync.RWMutex
	accounts map[string]ports.Account
}

// NewAccounts creates an Accounts directory with the given entries.
func NewAccounts(accounts ...ports.Account) *Accounts {
	a := &Accounts{accounts: make(map[string]ports.Account)}
	for _, acc := range accounts {
		a.accounts[acc.Name] = acc
	}
	return a
}

// Add registers an account.
func (a *Accounts) Add(acc ports.Account) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.accounts[acc.Name] = acc
}

// Lookup returns the registered account or ports.ErrAccountNotFound.
func (a *Accounts) Lookup(name string) (ports.Account, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if acc, ok := a.accounts[name]; ok {
		return acc, nil
	}
	return ports.Account{}, fmt.Errorf("%w: %s", ports.ErrAccountNotFound, name)
}

// Ensure Accounts implements ports.AccountDirectory.
var _ ports.AccountDirectory = (*Accounts)(nil)
