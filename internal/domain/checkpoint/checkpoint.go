// Package checkpoint defines the durable record of provisioning progress and
// the policy the runner applies to it.
//
// A record is a single non-negative integer, the index of the last step that
// completed, keyed by instance name. Absence means nothing has completed.
package checkpoint

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Store persists checkpoint records.
//
// Load returns 0 and a nil error when no record exists. Save must leave either
// the old or the new value visible after a crash, never a partial one. Clear
// succeeds when the record is already absent.
type Store interface {
	Load(ctx context.Context, key string) (int, error)
	Save(ctx context.Context, key string, index int) error
	Clear(ctx context.Context, key string) error
}

// Store operations as reported in StoreIOError.
const (
	OpLoad  = "load"
	OpSave  = "save"
	OpClear = "clear"
)

// ErrCorrupt marks a record that exists but does not hold a non-negative integer.
var ErrCorrupt = errors.New("checkpoint record is corrupt")

// StoreIOError reports a failed store operation.
type StoreIOError struct {
	Op  string
	Key string
	Err error
}

func (e *StoreIOError) Error() string {
	return fmt.Sprintf("checkpoint %s %q: %v", e.Op, e.Key, e.Err)
}

// Unwrap returns the underlying I/O or decoding error.
func (e *StoreIOError) Unwrap() error {
	return e.Err
}

// Parse decodes the textual form of a record. Surrounding whitespace is ignored.
func Parse(data []byte) (int, error) {
	s := strings.TrimSpace(string(data))
	if s == "" {
		return 0, fmt.Errorf("%w: empty", ErrCorrupt)
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("%w: %q is not an integer", ErrCorrupt, s)
	}
	if n < 0 {
		return 0, fmt.Errorf("%w: negative value %d", ErrCorrupt, n)
	}
	return n, nil
}

// Format encodes a record as a decimal integer followed by a newline.
func Format(index int) []byte {
	return []byte(strconv.Itoa(index) + "\n")
}
