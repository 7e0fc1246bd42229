package widget

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/jeamlit/internal/ir"
)

func TestRegistry_DerivedIdentityStableAcrossRuns(t *testing.T) {
	declare := func() []string {
		r := NewRegistry()
		var ids []string
		for _, c := range []struct {
			kind  Kind
			label string
		}{
			{KindSlider, "Select your age"},
			{KindButton, "Click me!"},
			{KindButton, "Click me!"},
		} {
			w, err := r.Resolve("", c.kind, c.label)
			require.NoError(t, err)
			ids = append(ids, w.ID)
		}
		return ids
	}

	first := declare()
	second := declare()
	assert.Equal(t, first, second)
	assert.NotEqual(t, first[1], first[2], "same kind+label gets distinct ordinals")
	assert.Equal(t, ir.WidgetID("button", "Click me!", 1), first[2])
}

func TestRegistry_ExplicitKey(t *testing.T) {
	r := NewRegistry()
	w, err := r.Resolve("age", KindSlider, "Age")
	require.NoError(t, err)
	assert.Equal(t, "age", w.ID)
	assert.True(t, w.Explicit())

	got, ok := r.Get("age")
	require.True(t, ok)
	assert.Same(t, w, got)
}

func TestRegistry_ExplicitKeyDoesNotShiftOrdinals(t *testing.T) {
	r1 := NewRegistry()
	a, _ := r1.Resolve("", KindButton, "Go")

	r2 := NewRegistry()
	_, _ = r2.Resolve("k", KindButton, "Go")
	b, _ := r2.Resolve("", KindButton, "Go")

	assert.Equal(t, a.ID, b.ID)
}

func TestRegistry_DuplicateKey(t *testing.T) {
	r := NewRegistry()
	_, err := r.Resolve("same", KindButton, "First")
	require.NoError(t, err)

	_, err = r.Resolve("same", KindSlider, "Second")
	require.Error(t, err)
	assert.True(t, IsDuplicateKey(err))

	var dk *DuplicateKeyError
	require.ErrorAs(t, err, &dk)
	assert.Equal(t, "same", dk.ID)
	assert.Equal(t, KindButton, dk.Existing.Kind)
	assert.Equal(t, 1, r.Len(), "conflicting call is not registered")
}

func TestRegistry_ExplicitKeyCollidesWithDerived(t *testing.T) {
	r := NewRegistry()
	_, err := r.Resolve("", KindCheckbox, "Agree")
	require.NoError(t, err)

	_, err = r.Resolve(ir.WidgetID("checkbox", "Agree", 0), KindCheckbox, "Agree")
	assert.True(t, IsDuplicateKey(err))
}

func TestRegistry_Find(t *testing.T) {
	r := NewRegistry()
	_, _ = r.Resolve("", KindButton, "Go")
	keyed, _ := r.Resolve("second", KindButton, "Go")

	got, ok := r.Find(KindButton, "Go", 1)
	require.True(t, ok)
	assert.Same(t, keyed, got)

	_, ok = r.Find(KindButton, "Go", 2)
	assert.False(t, ok)

	var nilReg *Registry
	_, ok = nilReg.Find(KindButton, "Go", 0)
	assert.False(t, ok)
	assert.Equal(t, 0, nilReg.Len())
}

func TestInstance_Classify(t *testing.T) {
	tests := []struct {
		name   string
		inst   Instance
		expect Classification
	}{
		{"slider", Instance{Kind: KindSlider}, Immediate},
		{"unbound number input", Instance{Kind: KindNumberInput}, Immediate},
		{"number input in form", Instance{Kind: KindNumberInput, FormID: "f"}, FormBuffered},
		{"submit button", Instance{Kind: KindFormSubmitButton, FormID: "f"}, Immediate},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expect, tt.inst.Classify())
		})
	}
	assert.Equal(t, "buffered", FormBuffered.String())
}

func TestKind(t *testing.T) {
	assert.Equal(t, ir.KindNumber, KindSlider.ValueKind())
	assert.Equal(t, ir.KindString, KindTextInput.ValueKind())
	assert.Equal(t, ir.KindBool, KindCheckbox.ValueKind())
	assert.True(t, KindButton.Momentary())
	assert.True(t, KindFormSubmitButton.Momentary())
	assert.False(t, KindCheckbox.Momentary())
	assert.False(t, Kind("radio").Valid())
}
