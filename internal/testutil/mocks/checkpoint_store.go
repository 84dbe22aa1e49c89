package mocks

import (
	"context"
	"sync"
)

// CheckpointStore is an in-memory checkpoint.Store with failure injection.
type CheckpointStore struct {
	mu        sync.Mutex
	records   map[string]int
	saves     []SavedCheckpoint
	clears    []string
	loadErr   error
	saveErrAt map[int]error
	clearErr  error
}

// SavedCheckpoint is one recorded Save call.
type SavedCheckpoint struct {
	Key   string
	Index int
}

// NewCheckpointStore creates an empty store.
func NewCheckpointStore() *CheckpointStore {
	return &CheckpointStore{
		records:   make(map[string]int),
		saveErrAt: make(map[int]error),
	}
}

// Seed sets a record without counting it as a Save.
func (s *CheckpointStore) Seed(key string, index int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[key] = index
}

// FailLoad makes every Load return err.
func (s *CheckpointStore) FailLoad(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loadErr = err
}

// FailSaveAt makes Save of the given index return err and leave the record unchanged.
func (s *CheckpointStore) FailSaveAt(index int, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.saveErrAt[index] = err
}

// FailClear makes every Clear return err.
func (s *CheckpointStore) FailClear(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clearErr = err
}

// Load implements checkpoint.Store.
func (s *CheckpointStore) Load(_ context.Context, key string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.loadErr != nil {
		return 0, s.loadErr
	}
	return s.records[key], nil
}

// Save implements checkpoint.Store.
func (s *CheckpointStore) Save(_ context.Context, key string, index int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err, ok := s.saveErrAt[index]; ok {
		return err
	}
	s.records[key] = index
	s.saves = append(s.saves, SavedCheckpoint{Key: key, Index: index})
	return nil
}

// Clear implements checkpoint.Store.
func (s *CheckpointStore) Clear(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.clearErr != nil {
		return s.clearErr
	}
	delete(s.records, key)
	s.clears = append(s.clears, key)
	return nil
}

// Get returns the current record and whether one exists.
func (s *CheckpointStore) Get(key string) (int, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.records[key]
	return v, ok
}

// Saves returns every successful Save in call order.
func (s *CheckpointStore) Saves() []SavedCheckpoint {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]SavedCheckpoint, len(s.saves))
	copy(out, s.saves)
	return out
}

// Clears returns the keys of every successful Clear in call order.
func (s *CheckpointStore) Clears() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.clears))
	copy(out, s.clears)
	return out
}
