package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/jeamlit/internal/ir"
)

func TestReadEvents_EmptySession(t *testing.T) {
	s := createTestStore(t)

	events, err := s.ReadEvents(context.Background(), "nope")
	require.NoError(t, err)
	assert.NotNil(t, events, "empty result is a slice, not nil")
	assert.Len(t, events, 0)
}

func TestReadEvents_AppendOrderAndValues(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	written := []Event{
		loadEvent("s1", 1),
		editEvent("s1", 2, "$$WID-slider-0123456789abcdef", ir.Number(42)),
		{
			SessionID: "s1",
			Seq:       2,
			Kind:      EventBuffered,
			WidgetID:  "valA",
			Value:     ir.String("draft"),
			Status:    StatusOK,
		},
		{
			SessionID:    "s1",
			Seq:          3,
			Kind:         EventImmediate,
			WidgetID:     "agree",
			Value:        ir.Bool(true),
			Status:       StatusFailed,
			ErrorCode:    "TYPE_MISMATCH",
			OutputDigest: "digest-prev",
		},
	}
	for _, ev := range written {
		_, err := s.WriteEvent(ctx, ev)
		require.NoError(t, err)
	}
	_, err := s.WriteEvent(ctx, loadEvent("other", 1))
	require.NoError(t, err)

	events, err := s.ReadEvents(ctx, "s1")
	require.NoError(t, err)
	require.Len(t, events, len(written))

	for i, ev := range events {
		want := written[i]
		assert.NotZero(t, ev.ID)
		assert.Equal(t, want.SessionID, ev.SessionID)
		assert.Equal(t, want.Seq, ev.Seq)
		assert.Equal(t, want.Kind, ev.Kind)
		assert.Equal(t, want.WidgetID, ev.WidgetID)
		assert.Equal(t, want.Status, ev.Status)
		assert.Equal(t, want.ErrorCode, ev.ErrorCode)
		assert.Equal(t, want.OutputDigest, ev.OutputDigest)
		if want.Value == nil {
			assert.Nil(t, ev.Value)
		} else {
			assert.True(t, ir.Equal(want.Value, ev.Value), "event %d value = %v", i, ev.Value)
		}
		if i > 0 {
			assert.Greater(t, ev.ID, events[i-1].ID)
		}
	}
}

func TestReadSessions_CountsEvents(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	for _, ev := range []Event{loadEvent("b", 1), loadEvent("a", 1), loadEvent("b", 2)} {
		_, err := s.WriteEvent(ctx, ev)
		require.NoError(t, err)
	}

	sessions, err := s.ReadSessions(ctx)
	require.NoError(t, err)
	require.Len(t, sessions, 2)
	assert.Equal(t, "a", sessions[0].ID)
	assert.Equal(t, 1, sessions[0].Events)
	assert.Equal(t, "b", sessions[1].ID)
	assert.Equal(t, 2, sessions[1].Events)
}

func TestReadSessions_Empty(t *testing.T) {
	s := createTestStore(t)

	sessions, err := s.ReadSessions(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, sessions)
	assert.Empty(t, sessions)
}
