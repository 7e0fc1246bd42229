// Package store provides the SQLite-backed session journal.
//
// The journal is an append-only diagnostic log of every event a session
// handled: the initial load and reruns, immediate widget edits, and form
// edits absorbed by a buffer. Each record carries the run seq, the outcome
// and a digest of the output. Replaying a session's events against a fresh
// session must reproduce the same digests.
//
// Sessions are never restored from the journal. It exists to reproduce and
// diff behavior, not to persist state.
//
// # Critical Patterns
//
// Logical Identity and Time:
//   - Records are ordered by their append id, NEVER timestamps
//   - seq is the session's logical run counter
//
// Deterministic Query Results:
//   - Every read has an explicit ORDER BY
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
package store
