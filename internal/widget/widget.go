// Package widget resolves widget identities and validates widget values.
//
// Every widget call in a run is resolved to an identity: the explicit key
// when the script supplies one, otherwise an identity derived from
// (kind, label, ordinal) where ordinal counts earlier derived calls with
// the same kind and label in the same run. Identities are recomputed on
// every run; nothing is cached across runs except the Registry the engine
// keeps to interpret the next event.
package widget

import (
	"github.com/roach88/jeamlit/internal/ir"
)

// Kind is the declared kind of a widget.
type Kind string

const (
	KindSlider           Kind = "slider"
	KindButton           Kind = "button"
	KindNumberInput      Kind = "number_input"
	KindTextInput        Kind = "text_input"
	KindCheckbox         Kind = "checkbox"
	KindFormSubmitButton Kind = "form_submit_button"
)

// ValueKind returns the state value kind a widget of this kind holds.
func (k Kind) ValueKind() ir.Kind {
	switch k {
	case KindSlider, KindNumberInput:
		return ir.KindNumber
	case KindTextInput:
		return ir.KindString
	default:
		return ir.KindBool
	}
}

// Momentary reports whether the widget is true only on the run its own
// event triggered, and false on every other run.
func (k Kind) Momentary() bool {
	return k == KindButton || k == KindFormSubmitButton
}

// Valid reports whether k is a known widget kind.
func (k Kind) Valid() bool {
	switch k {
	case KindSlider, KindButton, KindNumberInput, KindTextInput, KindCheckbox, KindFormSubmitButton:
		return true
	}
	return false
}

// Classification determines what an edit of a widget does.
type Classification int

const (
	// Immediate edits update state and schedule a rerun.
	Immediate Classification = iota
	// FormBuffered edits are held by the form until its submit button fires.
	FormBuffered
)

func (c Classification) String() string {
	if c == FormBuffered {
		return "buffered"
	}
	return "immediate"
}

// Instance is one widget call resolved during a run.
type Instance struct {
	ID      string
	Key     string // explicit key; empty when the identity is derived
	Kind    Kind
	Label   string
	Ordinal int
	FormID  string

	Default     ir.Value
	Value       ir.Value
	Constraints Constraints

	// Persist keeps the state entry of a keyed widget when it is absent
	// from a later run.
	Persist bool
}

// Classify returns how edits of the widget are applied.
// Input widgets declared inside a form are buffered; the form's submit
// button itself is immediate.
func (w *Instance) Classify() Classification {
	if w.FormID != "" && w.Kind != KindFormSubmitButton {
		return FormBuffered
	}
	return Immediate
}

// Explicit reports whether the identity came from a script-supplied key.
func (w *Instance) Explicit() bool {
	return w.Key != ""
}
