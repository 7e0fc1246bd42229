// Package state implements the per-session State Store.
//
// A Store maps string keys to scalar values (bool, number, string). The
// value kind of a key is fixed by its first write; writing a different kind
// is a TypeMismatchError until the key is deleted.
//
// Script runs never mutate a Store directly. A run works against a Tx
// obtained from Begin: reads see staged writes first, then committed
// values. Commit publishes every staged write at once; Rollback discards
// them, leaving the Store exactly as the last completed run left it.
package state
