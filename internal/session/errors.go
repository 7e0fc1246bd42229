package session

import "errors"

var (
	// ErrSessionNotFound is returned for a session id the manager does not
	// hold, including sessions already closed or evicted.
	ErrSessionNotFound = errors.New("session not found")

	// ErrTooManySessions is returned by GetOrCreate when max_sessions live
	// sessions already exist.
	ErrTooManySessions = errors.New("too many sessions")

	// ErrSessionClosed is returned for requests that reach a session after
	// it was closed.
	ErrSessionClosed = errors.New("session closed")

	// ErrManagerClosed is returned after Shutdown.
	ErrManagerClosed = errors.New("session manager shut down")
)
