package checkpoint

import (
	"context"
	"errors"
	"fmt"

	"github.com/felixgeelhaar/instancer/internal/ports"
)

// ErrOutOfOrder is returned when a run tries to record a step that does not
// directly extend its progress.
var ErrOutOfOrder = errors.New("checkpoint must advance one step at a time")

// Tracker applies the resume policy to a single run over a single key.
// It is not safe for concurrent use; a run executes steps sequentially.
type Tracker struct {
	store  Store
	key    string
	total  int
	last   int
	logger ports.Logger
}

// NewTracker creates a tracker for total steps recorded under key.
func NewTracker(store Store, key string, total int, logger ports.Logger) *Tracker {
	return &Tracker{store: store, key: key, total: total, logger: logger}
}

// Key returns the record key.
func (t *Tracker) Key() string {
	return t.key
}

// Last returns the last completed index known to this run.
func (t *Tracker) Last() int {
	return t.last
}

// Resume loads the stored record. Anything unusable (a read error, a corrupt
// value or a value beyond the step count) is logged and treated as 0, so the
// worst case is re-running idempotent steps.
func (t *Tracker) Resume(ctx context.Context) int {
	last, err := t.store.Load(ctx, t.key)
	switch {
	case err != nil:
		t.logger.Warn(ctx, "checkpoint unreadable, starting from step 1",
			ports.F("key", t.key), ports.Err(err))
		last = 0
	case last < 0 || last > t.total:
		t.logger.Warn(ctx, "checkpoint out of range, starting from step 1",
			ports.F("key", t.key), ports.F("stored", last), ports.F("steps", t.total))
		last = 0
	}
	t.last = last
	return last
}

// Advance durably records index as completed. On error the stored record is
// unchanged and Last still reports the previous index.
func (t *Tracker) Advance(ctx context.Context, index int) error {
	if index != t.last+1 || index > t.total {
		return fmt.Errorf("%w: last=%d next=%d total=%d", ErrOutOfOrder, t.last, index, t.total)
	}
	if err := t.store.Save(ctx, t.key, index); err != nil {
		return asStoreError(OpSave, t.key, err)
	}
	t.last = index
	return nil
}

// Complete removes the record after the final step.
func (t *Tracker) Complete(ctx context.Context) error {
	if err := t.store.Clear(ctx, t.key); err != nil {
		return asStoreError(OpClear, t.key, err)
	}
	return nil
}

func asStoreError(op, key string, err error) error {
	var storeErr *StoreIOError
	if errors.As(err, &storeErr) {
		return err
	}
	return &StoreIOError{Op: op, Key: key, Err: err}
}
