package protocol

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/jeamlit/internal/ir"
	"github.com/roach88/jeamlit/internal/render"
)

func TestValidateClientMessage(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		wantErr string
	}{
		{
			name: "component update",
			raw:  `{"type":"component_update","payload":{"componentKey":"age","value":42}}`,
		},
		{
			name: "component update with string value",
			raw:  `{"type":"component_update","payload":{"componentKey":"$$WID-abc","value":"hi"}}`,
		},
		{
			name: "reload without payload",
			raw:  `{"type":"reload"}`,
		},
		{
			name:    "invalid json",
			raw:     `{"type":`,
			wantErr: "invalid JSON",
		},
		{
			name:    "missing type",
			raw:     `{"payload":{}}`,
			wantErr: "missing 'type' field",
		},
		{
			name:    "unknown type",
			raw:     `{"type":"path_update","payload":{}}`,
			wantErr: "unknown message type: path_update",
		},
		{
			name:    "server type from client",
			raw:     `{"type":"render","payload":{}}`,
			wantErr: "unknown message type: render",
		},
		{
			name:    "component update without payload",
			raw:     `{"type":"component_update"}`,
			wantErr: "missing 'payload' field",
		},
		{
			name:    "component update without key",
			raw:     `{"type":"component_update","payload":{"value":1}}`,
			wantErr: "missing required field 'componentKey'",
		},
		{
			name:    "component update with null value",
			raw:     `{"type":"component_update","payload":{"componentKey":"a","value":null}}`,
			wantErr: "missing required field 'value'",
		},
		{
			name:    "component update with wrong payload shape",
			raw:     `{"type":"component_update","payload":[1,2]}`,
			wantErr: "invalid payload for component_update",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg, err := ValidateClientMessage([]byte(tt.raw))
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				assert.Nil(t, msg)
				return
			}
			require.NoError(t, err)
			assert.NotEmpty(t, msg.Type)
		})
	}
}

func TestComponentUpdate_DecodesJSONNumbersAsFloat(t *testing.T) {
	msg, err := ValidateClientMessage([]byte(`{"type":"component_update","payload":{"componentKey":"age","value":42}}`))
	require.NoError(t, err)

	var p ComponentUpdatePayload
	require.NoError(t, msg.Decode(&p))
	assert.Equal(t, "age", p.ComponentKey)
	assert.Equal(t, float64(42), p.Value)
}

func TestNewMessage_RenderPayload(t *testing.T) {
	out := render.Output{Elements: []render.Element{
		{Kind: render.ElementText, Path: "main", Text: "hello"},
		{Kind: render.ElementWidget, Path: "main", Widget: &render.WidgetView{
			ID: "age", Kind: "slider", Label: "Age", Value: ir.Number(30),
		}},
	}}

	msg, err := NewMessage(TypeRender, RenderPayload{SessionID: "s1", Seq: 3, Output: out})
	require.NoError(t, err)
	assert.Equal(t, TypeRender, msg.Type)
	assert.False(t, msg.Timestamp.IsZero())

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(msg.Payload, &decoded))
	assert.Equal(t, "s1", decoded["sessionId"])
	assert.Equal(t, float64(3), decoded["seq"])

	elems := decoded["output"].(map[string]any)["elements"].([]any)
	require.Len(t, elems, 2)
	widget := elems[1].(map[string]any)["widget"].(map[string]any)
	assert.Equal(t, float64(30), widget["value"])
}

func TestNewMessage_UnmarshalablePayload(t *testing.T) {
	_, err := NewMessage(TypeRender, map[string]any{"bad": make(chan int)})
	assert.ErrorContains(t, err, "marshal payload")
}

func TestNewErrorMessage(t *testing.T) {
	msg, err := NewErrorMessage(ErrInvalidMessage, "nope")
	require.NoError(t, err)
	assert.Equal(t, TypeError, msg.Type)

	var p ErrorPayload
	require.NoError(t, msg.Decode(&p))
	assert.Equal(t, ErrInvalidMessage, p.Code)
	assert.Equal(t, "nope", p.Message)
}
