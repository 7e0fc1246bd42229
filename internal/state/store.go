package state

import (
	"maps"
	"sync"

	"github.com/roach88/jeamlit/internal/ir"
)

// Store is the committed state of one session.
// It is safe for concurrent use, though in practice only the session's
// worker writes to it.
type Store struct {
	mu     sync.RWMutex
	values map[string]ir.Value
}

// NewStore returns an empty Store.
func NewStore() *Store {
	return &Store{values: make(map[string]ir.Value)}
}

// Get returns the committed value for key or a KeyNotFoundError.
func (s *Store) Get(key string) (ir.Value, error) {
	v, ok := s.Lookup(key)
	if !ok {
		return nil, &KeyNotFoundError{Key: key}
	}
	return v, nil
}

// Lookup returns the committed value for key and whether it exists.
func (s *Store) Lookup(key string) (ir.Value, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.values[key]
	return v, ok
}

// Has reports whether key holds a committed value.
func (s *Store) Has(key string) bool {
	_, ok := s.Lookup(key)
	return ok
}

// Set overwrites key. It fails if key already holds a value of another kind.
func (s *Store) Set(key string, v ir.Value) error {
	tx := s.Begin()
	if err := tx.Set(key, v); err != nil {
		tx.Rollback()
		return err
	}
	return tx.Commit()
}

// SetDefault stores v only if key is absent.
// It reports whether the value was stored.
func (s *Store) SetDefault(key string, v ir.Value) (bool, error) {
	tx := s.Begin()
	stored, err := tx.SetDefault(key, v)
	if err != nil {
		tx.Rollback()
		return false, err
	}
	return stored, tx.Commit()
}

// Delete removes key. Deleting an absent key is a no-op.
// A deleted key may be set again with any kind.
func (s *Store) Delete(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.values, key)
}

// Len returns the number of committed keys.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.values)
}

// Keys returns committed keys in canonical order.
func (s *Store) Keys() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return ir.SortedKeys(s.values)
}

// Snapshot returns a copy of all committed values.
func (s *Store) Snapshot() map[string]ir.Value {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return maps.Clone(s.values)
}

// Begin starts a transaction over the store.
// Only one transaction should be open at a time; the session worker
// guarantees this by running one script execution at a time.
func (s *Store) Begin() *Tx {
	return &Tx{store: s, staged: make(map[string]stagedWrite)}
}
