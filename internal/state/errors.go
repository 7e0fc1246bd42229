package state

import (
	"errors"
	"fmt"

	"github.com/roach88/jeamlit/internal/ir"
)

// ErrTxDone is returned when a committed or rolled back Tx is used again.
var ErrTxDone = errors.New("state: transaction already finished")

// KeyNotFoundError reports a read of a key that was never set.
type KeyNotFoundError struct {
	Key string
}

func (e *KeyNotFoundError) Error() string {
	return fmt.Sprintf("key %q not found in session state", e.Key)
}

// TypeMismatchError reports a value whose kind differs from the kind the
// key was first set with.
type TypeMismatchError struct {
	Key  string
	Have ir.Kind
	Want ir.Kind
}

func (e *TypeMismatchError) Error() string {
	return fmt.Sprintf("key %q holds a %s, not a %s", e.Key, e.Have, e.Want)
}

// IsKeyNotFound reports whether err is or wraps a KeyNotFoundError.
func IsKeyNotFound(err error) bool {
	var e *KeyNotFoundError
	return errors.As(err, &e)
}

// IsTypeMismatch reports whether err is or wraps a TypeMismatchError.
func IsTypeMismatch(err error) bool {
	var e *TypeMismatchError
	return errors.As(err, &e)
}
