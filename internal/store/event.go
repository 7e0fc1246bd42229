package store

import (
	"fmt"

	"github.com/roach88/jeamlit/internal/ir"
)

// EventKind classifies a journaled event.
type EventKind string

const (
	// EventLoad is a run without a trigger: initial load, reload, rerun.
	EventLoad EventKind = "load"
	// EventImmediate is a widget edit that triggered a run.
	EventImmediate EventKind = "immediate"
	// EventBuffered is a form edit absorbed without a run.
	EventBuffered EventKind = "buffered"
)

// EventStatus is the outcome of a journaled event.
type EventStatus string

const (
	StatusOK     EventStatus = "ok"
	StatusFailed EventStatus = "failed"
)

// Event is one journal record.
type Event struct {
	ID           int64
	SessionID    string
	Seq          int64
	Kind         EventKind
	WidgetID     string
	Value        ir.Value // nil for loads
	Status       EventStatus
	ErrorCode    string
	OutputDigest string
}

// Validate checks the record before it is written.
func (e Event) Validate() error {
	if e.SessionID == "" {
		return fmt.Errorf("event has no session id")
	}
	switch e.Kind {
	case EventLoad:
	case EventImmediate, EventBuffered:
		if e.WidgetID == "" {
			return fmt.Errorf("%s event has no widget id", e.Kind)
		}
		if e.Value == nil {
			return fmt.Errorf("%s event has no value", e.Kind)
		}
	default:
		return fmt.Errorf("unknown event kind %q", e.Kind)
	}
	if e.Status != StatusOK && e.Status != StatusFailed {
		return fmt.Errorf("unknown event status %q", e.Status)
	}
	return nil
}
