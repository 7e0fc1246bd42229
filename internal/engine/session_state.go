package engine

import (
	"fmt"

	"github.com/roach88/jeamlit/internal/ir"
	"github.com/roach88/jeamlit/internal/state"
)

// SessionState is the script's view of the session's State Store.
//
// Reads see the run's own writes. Writes become visible to later runs only
// if the run completes. Reading an absent key with Get or a typed getter
// aborts the run with KEY_NOT_FOUND.
type SessionState struct {
	run *Run
}

// Get returns the value of key.
func (s *SessionState) Get(key string) ir.Value {
	r := s.run
	if !r.ok() {
		return nil
	}
	v, err := r.tx.Get(key)
	if err != nil {
		r.Fail(err)
		return nil
	}
	return v
}

// Lookup returns the value of key and whether it is set. It never fails
// the run.
func (s *SessionState) Lookup(key string) (ir.Value, bool) {
	if s.run.err != nil {
		return nil, false
	}
	return s.run.tx.Lookup(key)
}

// Has reports whether key is set.
func (s *SessionState) Has(key string) bool {
	_, ok := s.Lookup(key)
	return ok
}

// GetOr returns the value of key, or def when key is absent.
func (s *SessionState) GetOr(key string, def any) ir.Value {
	if v, ok := s.Lookup(key); ok {
		return v
	}
	if s.run.err != nil {
		return nil
	}
	v, err := ir.FromAny(def)
	if err != nil {
		s.run.Fail(fmt.Errorf("session state %q: %w", key, err))
		return nil
	}
	return v
}

// Number returns the numeric value of key.
func (s *SessionState) Number(key string) float64 {
	return asNumber(s.typed(key, ir.KindNumber))
}

// String returns the string value of key.
func (s *SessionState) String(key string) string {
	return asString(s.typed(key, ir.KindString))
}

// Bool returns the boolean value of key.
func (s *SessionState) Bool(key string) bool {
	return asBool(s.typed(key, ir.KindBool))
}

// Set overwrites key. The key's kind is fixed by its first write.
func (s *SessionState) Set(key string, v any) {
	r := s.run
	if !r.ok() {
		return
	}
	val, err := ir.FromAny(v)
	if err != nil {
		r.Fail(fmt.Errorf("session state %q: %w", key, err))
		return
	}
	if err := r.tx.Set(key, val); err != nil {
		r.Fail(err)
	}
}

// SetDefault sets key only if it is absent.
func (s *SessionState) SetDefault(key string, v any) {
	r := s.run
	if !r.ok() {
		return
	}
	val, err := ir.FromAny(v)
	if err != nil {
		r.Fail(fmt.Errorf("session state %q: %w", key, err))
		return
	}
	if _, err := r.tx.SetDefault(key, val); err != nil {
		r.Fail(err)
	}
}

// Delete removes key. Deleting an absent key is a no-op.
func (s *SessionState) Delete(key string) {
	if !s.run.ok() {
		return
	}
	s.run.tx.Delete(key)
}

func (s *SessionState) typed(key string, want ir.Kind) ir.Value {
	v := s.Get(key)
	if v == nil {
		return nil
	}
	if v.Kind() != want {
		s.run.Fail(&state.TypeMismatchError{Key: key, Have: v.Kind(), Want: want})
		return nil
	}
	return v
}
