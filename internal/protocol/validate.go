package protocol

import (
	"encoding/json"
	"fmt"
)

// validClientTypes is the set of allowed client→server message types.
var validClientTypes = map[string]bool{
	TypeComponentUpdate: true,
	TypeReload:          true,
}

// ValidateClientMessage validates a raw JSON message from a client.
// Returns the parsed Message and any validation error.
func ValidateClientMessage(raw []byte) (*Message, error) {
	var msg Message
	if err := json.Unmarshal(raw, &msg); err != nil {
		return nil, fmt.Errorf("invalid JSON: %w", err)
	}

	if msg.Type == "" {
		return nil, fmt.Errorf("missing 'type' field")
	}

	if !validClientTypes[msg.Type] {
		return nil, fmt.Errorf("unknown message type: %s", msg.Type)
	}

	switch msg.Type {
	case TypeComponentUpdate:
		if msg.Payload == nil {
			return nil, fmt.Errorf("missing 'payload' field")
		}
		var p ComponentUpdatePayload
		if err := msg.Decode(&p); err != nil {
			return nil, err
		}
		if p.ComponentKey == "" {
			return nil, fmt.Errorf("missing required field 'componentKey' in %s payload", msg.Type)
		}
		if p.Value == nil {
			return nil, fmt.Errorf("missing required field 'value' in %s payload", msg.Type)
		}

	case TypeReload:
		// No payload.
	}

	return &msg, nil
}

// NewErrorMessage creates an error message ready to send to the client.
func NewErrorMessage(code, message string) (*Message, error) {
	return NewMessage(TypeError, ErrorPayload{
		Code:    code,
		Message: message,
	})
}
