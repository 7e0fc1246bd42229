package store

import (
	"path/filepath"
	"testing"

	"github.com/roach88/jeamlit/internal/ir"
)

// createTestStore creates a new store in a temp dir for testing.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// loadEvent creates a successful load event.
func loadEvent(sessionID string, seq int64) Event {
	return Event{
		SessionID:    sessionID,
		Seq:          seq,
		Kind:         EventLoad,
		Status:       StatusOK,
		OutputDigest: "digest-" + sessionID,
	}
}

// editEvent creates a successful immediate edit event.
func editEvent(sessionID string, seq int64, widgetID string, v ir.Value) Event {
	return Event{
		SessionID:    sessionID,
		Seq:          seq,
		Kind:         EventImmediate,
		WidgetID:     widgetID,
		Value:        v,
		Status:       StatusOK,
		OutputDigest: "digest-" + widgetID,
	}
}
