// Package protocol defines the WebSocket messages exchanged with the
// browser client.
package protocol

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/roach88/jeamlit/internal/render"
)

// Message is the envelope for all WebSocket messages.
type Message struct {
	Type      string          `json:"type"`
	Payload   json.RawMessage `json:"payload"`
	Timestamp time.Time       `json:"timestamp"`
}

// NewMessage creates a server-originated message with the current timestamp.
func NewMessage(msgType string, payload any) (*Message, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal payload: %w", err)
	}
	return &Message{
		Type:      msgType,
		Payload:   data,
		Timestamp: time.Now().UTC(),
	}, nil
}

// Decode unmarshals the payload into v.
func (m *Message) Decode(v any) error {
	if err := json.Unmarshal(m.Payload, v); err != nil {
		return fmt.Errorf("invalid payload for %s: %w", m.Type, err)
	}
	return nil
}

// Server → Client message types.
const (
	TypeSession          = "session"
	TypeRender           = "render"
	TypeDelta            = "delta"
	TypeError            = "error"
	TypeCompilationError = "compilation_error"
)

// Client → Server message types.
const (
	TypeComponentUpdate = "component_update"
	TypeReload          = "reload"
)

// Error codes that are not run error codes.
const (
	ErrInvalidMessage  = "INVALID_MESSAGE"
	ErrSessionNotFound = "SESSION_NOT_FOUND"
	ErrMaxSessions     = "MAX_SESSIONS"
	ErrInternal        = "INTERNAL"
)

// Server → Client payloads.

// SessionPayload tells the client which session the connection is bound
// to. Sent once, before the first render.
type SessionPayload struct {
	SessionID string `json:"sessionId"`
}

// RenderPayload carries a complete output.
type RenderPayload struct {
	SessionID string        `json:"sessionId"`
	Seq       int64         `json:"seq"`
	Output    render.Output `json:"output"`
}

// DeltaPayload carries the point-of-difference change from the output the
// client last received.
type DeltaPayload struct {
	SessionID string       `json:"sessionId"`
	Seq       int64        `json:"seq"`
	Delta     render.Delta `json:"delta"`
}

// ErrorPayload reports a failed run or a rejected message. Key is the state
// key or widget identity involved, if any.
type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Key     string `json:"key,omitempty"`
	Seq     int64  `json:"seq,omitempty"`
}

// CompilationErrorPayload reports a script that failed to compile on
// reload. Sessions keep running the previous script.
type CompilationErrorPayload struct {
	Error string `json:"error"`
}

// Client → Server payloads.

// ComponentUpdatePayload is a widget edit.
type ComponentUpdatePayload struct {
	ComponentKey string `json:"componentKey"`
	Value        any    `json:"value"`
}

// ReloadPayload requests a rerun without a trigger.
type ReloadPayload struct{}
