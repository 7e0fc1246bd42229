// Package ir provides the value model shared by every layer of the runtime.
//
// This package contains leaf types only. All other internal packages
// import ir; ir imports nothing internal.
//
// Key design constraints:
//   - State values are one of Bool, Number or String (sealed interface)
//   - A key's value kind is fixed once first set (enforced by package state)
//   - Identity hashes use canonical JSON with domain separation so that the
//     same (kind, label, ordinal) always derives the same widget identity
//   - Logical sequence numbers only, never wall-clock timestamps, for ordering
package ir
