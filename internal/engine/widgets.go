package engine

import (
	"fmt"

	"github.com/roach88/jeamlit/internal/form"
	"github.com/roach88/jeamlit/internal/ir"
	"github.com/roach88/jeamlit/internal/render"
	"github.com/roach88/jeamlit/internal/widget"
)

// WidgetOption configures a widget declaration.
type WidgetOption func(*widgetSpec)

type widgetSpec struct {
	key       string
	onChange  Callback
	noPersist bool
	def       any
	min       *float64
	max       *float64
	step      float64
}

// Key gives the widget an explicit identity, which is also its state key.
func Key(key string) WidgetOption {
	return func(s *widgetSpec) { s.key = key }
}

// OnChange registers a callback run first on the run the widget triggers.
func OnChange(cb Callback) WidgetOption {
	return func(s *widgetSpec) { s.onChange = cb }
}

// NoPersist drops a keyed widget's state when it is absent from a run.
func NoPersist() WidgetOption {
	return func(s *widgetSpec) { s.noPersist = true }
}

// Default sets the widget's initial value.
func Default(v any) WidgetOption {
	return func(s *widgetSpec) { s.def = v }
}

// Min sets the lower bound of a number input.
func Min(v float64) WidgetOption {
	return func(s *widgetSpec) { s.min = &v }
}

// Max sets the upper bound of a number input.
func Max(v float64) WidgetOption {
	return func(s *widgetSpec) { s.max = &v }
}

// Step sets the increment of a numeric widget.
func Step(v float64) WidgetOption {
	return func(s *widgetSpec) { s.step = v }
}

func collect(opts []WidgetOption) widgetSpec {
	var s widgetSpec
	for _, opt := range opts {
		opt(&s)
	}
	return s
}

// Slider declares a slider between minValue and maxValue, starting at value.
func (b *Block) Slider(label string, minValue, maxValue, value float64, opts ...WidgetOption) float64 {
	spec := collect(opts)
	cons := widget.Bounds(minValue, maxValue)
	cons.Step = spec.step
	v := b.declare(widget.KindSlider, label, ir.Number(value), cons, spec)
	return asNumber(v)
}

// Button declares a button. It returns true only on the run its own click
// triggered.
func (b *Block) Button(label string, opts ...WidgetOption) bool {
	v := b.declare(widget.KindButton, label, ir.Bool(false), widget.Constraints{}, collect(opts))
	return asBool(v)
}

// NumberInput declares a number input. Without Default it starts at Min,
// at Max when only a negative Max is set, or at 0.
func (b *Block) NumberInput(label string, opts ...WidgetOption) float64 {
	spec := collect(opts)
	cons := widget.Constraints{Min: spec.min, Max: spec.max, Step: spec.step}
	def := ir.Number(0)
	if spec.min != nil {
		def = ir.Number(*spec.min)
	} else if spec.max != nil && *spec.max < 0 {
		def = ir.Number(*spec.max)
	}
	v := b.declare(widget.KindNumberInput, label, def, cons, spec)
	return asNumber(v)
}

// TextInput declares a single-line text input.
func (b *Block) TextInput(label string, opts ...WidgetOption) string {
	v := b.declare(widget.KindTextInput, label, ir.String(""), widget.Constraints{}, collect(opts))
	return asString(v)
}

// Checkbox declares a checkbox.
func (b *Block) Checkbox(label string, opts ...WidgetOption) bool {
	v := b.declare(widget.KindCheckbox, label, ir.Bool(false), widget.Constraints{}, collect(opts))
	return asBool(v)
}

// FormSubmitButton declares the submit button of the enclosing form.
// Declaring it outside a form aborts the run.
func (b *Block) FormSubmitButton(label string, opts ...WidgetOption) bool {
	v := b.declare(widget.KindFormSubmitButton, label, ir.Bool(false), widget.Constraints{}, collect(opts))
	return asBool(v)
}

// declare resolves, validates and stages one widget call and returns its
// current-run value, or nil once the run has failed.
func (b *Block) declare(kind widget.Kind, label string, def ir.Value, cons widget.Constraints, spec widgetSpec) ir.Value {
	r := b.run
	if !r.ok() {
		return nil
	}

	if spec.def != nil {
		v, err := ir.FromAny(spec.def)
		if err != nil {
			r.Fail(&widget.ConstraintError{WidgetID: spec.key, Label: label, Reason: fmt.Sprintf("invalid default: %v", err)})
			return nil
		}
		def = v
	}

	formID := ""
	if b.form != nil {
		formID = b.form.ID
	}
	if kind == widget.KindButton && formID != "" {
		r.Fail(&form.UsageError{FormID: formID, Reason: fmt.Sprintf("button %q cannot be declared inside a form, use form_submit_button", label)})
		return nil
	}
	if kind == widget.KindFormSubmitButton {
		if formID == "" {
			r.Fail(&form.UsageError{Reason: fmt.Sprintf("form_submit_button %q must be declared inside a form", label)})
			return nil
		}
		if _, err := r.forms.RegisterSubmit(formID); err != nil {
			r.Fail(err)
			return nil
		}
	}

	w, err := r.registry.Resolve(spec.key, kind, label)
	if err != nil {
		r.Fail(err)
		return nil
	}
	w.FormID = formID
	w.Default = def
	w.Constraints = cons
	w.Persist = spec.key != "" && !spec.noPersist

	if err := w.CheckDeclaration(); err != nil {
		r.Fail(err)
		return nil
	}
	if err := w.Check(def); err != nil {
		r.Fail(err)
		return nil
	}
	if spec.onChange != nil {
		r.callbacks[w.ID] = spec.onChange
	}

	var display ir.Value
	if w.Classify() == widget.FormBuffered {
		display = b.declareMember(w)
	} else {
		display = b.declareImmediate(w)
	}
	if r.err != nil {
		return nil
	}

	view := &render.WidgetView{
		ID:    w.ID,
		Kind:  string(w.Kind),
		Label: w.Label,
		Value: display,
		Form:  w.FormID,
		Min:   cons.Min,
		Max:   cons.Max,
		Step:  cons.Step,
	}
	b.emit(render.Element{Kind: render.ElementWidget, Widget: view})
	return w.Value
}

// declareImmediate reads the widget's value from state (the trigger is
// already staged there) or its default, and stages it.
func (b *Block) declareImmediate(w *widget.Instance) ir.Value {
	r := b.run
	v, ok := r.tx.Lookup(w.ID)
	if !ok {
		v = w.Default
	}
	if err := w.Check(v); err != nil {
		r.Fail(err)
		return nil
	}
	if err := r.tx.Set(w.ID, v); err != nil {
		r.Fail(err)
		return nil
	}
	w.Value = v
	return v
}

// declareMember handles an input inside a form. Its value is the last
// committed one, or the default; unsubmitted edits only affect display.
// On the form's submit run, members never committed before take their
// default so code after the form can read every member.
func (b *Block) declareMember(w *widget.Instance) ir.Value {
	r := b.run
	if err := r.forms.RegisterMember(w.FormID, w.ID); err != nil {
		r.Fail(err)
		return nil
	}

	v, ok := r.tx.Lookup(w.ID)
	if !ok {
		v = w.Default
		if b.form.Submitted() {
			if err := r.tx.Set(w.ID, v); err != nil {
				r.Fail(err)
				return nil
			}
		}
	}
	if err := w.Check(v); err != nil {
		r.Fail(err)
		return nil
	}
	w.Value = v

	switch pending, has := r.forms.Pending(w.FormID, w.ID); {
	case r.forms.Cleared(w.FormID):
		return w.Default
	case has:
		return pending
	default:
		return v
	}
}
