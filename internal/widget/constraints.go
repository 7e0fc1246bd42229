package widget

import (
	"errors"
	"fmt"
	"math"
	"strconv"

	"github.com/roach88/jeamlit/internal/ir"
	"github.com/roach88/jeamlit/internal/state"
)

// Constraints bound a numeric widget. Nil bounds are open.
type Constraints struct {
	Min  *float64
	Max  *float64
	Step float64
}

// Bounds returns Constraints with both bounds set.
func Bounds(lo, hi float64) Constraints {
	return Constraints{Min: &lo, Max: &hi}
}

// ConstraintError reports a widget declaration or value that violates the
// widget's declared constraints.
type ConstraintError struct {
	WidgetID string
	Label    string
	Reason   string
}

func (e *ConstraintError) Error() string {
	if e.Label != "" {
		return fmt.Sprintf("widget %q (%s): %s", e.Label, e.WidgetID, e.Reason)
	}
	return fmt.Sprintf("widget %s: %s", e.WidgetID, e.Reason)
}

// IsConstraintError reports whether err is or wraps a ConstraintError.
func IsConstraintError(err error) bool {
	var e *ConstraintError
	return errors.As(err, &e)
}

// CheckDeclaration validates the constraints themselves.
func (w *Instance) CheckDeclaration() error {
	if w.Label == "" {
		return w.violation("label cannot be empty")
	}
	c := w.Constraints
	if c.Min != nil && !finite(*c.Min) {
		return w.violation("min_value must be a finite number")
	}
	if c.Max != nil && !finite(*c.Max) {
		return w.violation("max_value must be a finite number")
	}
	if c.Min != nil && c.Max != nil && *c.Min >= *c.Max {
		return w.violation("min_value must be less than max_value")
	}
	if c.Step < 0 || !finite(c.Step) {
		return w.violation("step must be positive")
	}
	return nil
}

// Check validates v against the widget's value kind and bounds.
// Values are never clamped.
func (w *Instance) Check(v ir.Value) error {
	if v == nil {
		return w.violation("value is required")
	}
	if want := w.Kind.ValueKind(); v.Kind() != want {
		return &state.TypeMismatchError{Key: w.ID, Have: want, Want: v.Kind()}
	}
	n, ok := v.(ir.Number)
	if !ok {
		return nil
	}
	if !finite(float64(n)) {
		return w.violation("value must be a finite number")
	}
	c := w.Constraints
	if c.Min != nil && float64(n) < *c.Min {
		return w.violation(fmt.Sprintf("value %s is below min_value %s", n, formatBound(*c.Min)))
	}
	if c.Max != nil && float64(n) > *c.Max {
		return w.violation(fmt.Sprintf("value %s is above max_value %s", n, formatBound(*c.Max)))
	}
	return nil
}

// Coerce converts a raw event value into the widget's value kind.
// Numbers arriving as strings are accepted for numeric widgets, since
// browsers submit input values as text.
func (w *Instance) Coerce(raw any) (ir.Value, error) {
	if s, ok := raw.(string); ok && w.Kind.ValueKind() == ir.KindNumber {
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return nil, w.violation(fmt.Sprintf("value %q is not a number", s))
		}
		raw = f
	}
	v, err := ir.FromAny(raw)
	if err != nil {
		return nil, w.violation(err.Error())
	}
	if err := w.Check(v); err != nil {
		return nil, err
	}
	return v, nil
}

func (w *Instance) violation(reason string) *ConstraintError {
	return &ConstraintError{WidgetID: w.ID, Label: w.Label, Reason: reason}
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

func formatBound(f float64) string {
	return strconv.FormatFloat(f, 'g', -1, 64)
}
