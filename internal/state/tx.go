package state

import (
	"github.com/roach88/jeamlit/internal/ir"
)

// stagedWrite is a pending write. A nil value marks a deletion.
type stagedWrite struct {
	value ir.Value
}

// Tx stages writes against a Store until Commit or Rollback.
type Tx struct {
	store  *Store
	staged map[string]stagedWrite
	order  []string
	done   bool
}

// Get returns the value visible to the transaction or a KeyNotFoundError.
func (tx *Tx) Get(key string) (ir.Value, error) {
	v, ok := tx.Lookup(key)
	if !ok {
		return nil, &KeyNotFoundError{Key: key}
	}
	return v, nil
}

// Lookup returns the value visible to the transaction: the staged write if
// there is one, otherwise the committed value.
func (tx *Tx) Lookup(key string) (ir.Value, bool) {
	if w, ok := tx.staged[key]; ok {
		return w.value, w.value != nil
	}
	return tx.store.Lookup(key)
}

// Has reports whether key is visible to the transaction.
func (tx *Tx) Has(key string) bool {
	_, ok := tx.Lookup(key)
	return ok
}

// Set stages an overwrite of key.
func (tx *Tx) Set(key string, v ir.Value) error {
	if tx.done {
		return ErrTxDone
	}
	if cur, ok := tx.Lookup(key); ok && cur.Kind() != v.Kind() {
		return &TypeMismatchError{Key: key, Have: cur.Kind(), Want: v.Kind()}
	}
	tx.stage(key, v)
	return nil
}

// SetDefault stages v only if key is not visible to the transaction.
// A present key of another kind is still a TypeMismatchError.
func (tx *Tx) SetDefault(key string, v ir.Value) (bool, error) {
	if tx.done {
		return false, ErrTxDone
	}
	if cur, ok := tx.Lookup(key); ok {
		if cur.Kind() != v.Kind() {
			return false, &TypeMismatchError{Key: key, Have: cur.Kind(), Want: v.Kind()}
		}
		return false, nil
	}
	tx.stage(key, v)
	return true, nil
}

// Delete stages removal of key.
func (tx *Tx) Delete(key string) {
	if tx.done {
		return
	}
	tx.stage(key, nil)
}

// Dirty reports whether the transaction has staged writes.
func (tx *Tx) Dirty() bool {
	return len(tx.staged) > 0
}

// Commit applies every staged write to the store atomically.
func (tx *Tx) Commit() error {
	if tx.done {
		return ErrTxDone
	}
	tx.done = true

	s := tx.store
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, key := range tx.order {
		w := tx.staged[key]
		if w.value == nil {
			delete(s.values, key)
			continue
		}
		s.values[key] = w.value
	}
	return nil
}

// Rollback discards every staged write. Safe to call after Commit.
func (tx *Tx) Rollback() {
	tx.done = true
	tx.staged = nil
	tx.order = nil
}

func (tx *Tx) stage(key string, v ir.Value) {
	if _, ok := tx.staged[key]; !ok {
		tx.order = append(tx.order, key)
	}
	tx.staged[key] = stagedWrite{value: v}
}
