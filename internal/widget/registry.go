package widget

import (
	"errors"
	"fmt"

	"github.com/roach88/jeamlit/internal/ir"
)

// DuplicateKeyError reports two widgets resolving to one identity in a run.
type DuplicateKeyError struct {
	ID       string
	Existing *Instance
	Kind     Kind
	Label    string
}

func (e *DuplicateKeyError) Error() string {
	return fmt.Sprintf("duplicate widget identity %q: %s %q conflicts with earlier %s %q",
		e.ID, e.Kind, e.Label, e.Existing.Kind, e.Existing.Label)
}

// IsDuplicateKey reports whether err is or wraps a DuplicateKeyError.
func IsDuplicateKey(err error) bool {
	var e *DuplicateKeyError
	return errors.As(err, &e)
}

type ordinalKey struct {
	kind  Kind
	label string
}

// Registry is the ordered set of widgets declared by one run.
// A fresh Registry is built on every run.
type Registry struct {
	order    []*Instance
	byID     map[string]*Instance
	ordinals map[ordinalKey]int
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		byID:     make(map[string]*Instance),
		ordinals: make(map[ordinalKey]int),
	}
}

// Resolve assigns an identity to a widget call and reserves it.
// The returned Instance is registered; the caller fills in values.
func (r *Registry) Resolve(explicitKey string, kind Kind, label string) (*Instance, error) {
	inst := &Instance{Key: explicitKey, Kind: kind, Label: label}

	if explicitKey != "" {
		inst.ID = explicitKey
	} else {
		ok := ordinalKey{kind: kind, label: label}
		inst.Ordinal = r.ordinals[ok]
		r.ordinals[ok]++
		inst.ID = ir.WidgetID(string(kind), label, inst.Ordinal)
	}

	if existing, dup := r.byID[inst.ID]; dup {
		return nil, &DuplicateKeyError{ID: inst.ID, Existing: existing, Kind: kind, Label: label}
	}
	r.byID[inst.ID] = inst
	r.order = append(r.order, inst)
	return inst, nil
}

// Get returns the widget with the given identity.
func (r *Registry) Get(id string) (*Instance, bool) {
	if r == nil {
		return nil, false
	}
	w, ok := r.byID[id]
	return w, ok
}

// Find returns the ordinal-th widget of the given kind and label in
// declaration order, whether its identity is derived or explicit.
func (r *Registry) Find(kind Kind, label string, ordinal int) (*Instance, bool) {
	if r == nil {
		return nil, false
	}
	n := 0
	for _, w := range r.order {
		if w.Kind != kind || w.Label != label {
			continue
		}
		if n == ordinal {
			return w, true
		}
		n++
	}
	return nil, false
}

// Instances returns widgets in declaration order.
func (r *Registry) Instances() []*Instance {
	if r == nil {
		return nil
	}
	return r.order
}

// Len returns the number of declared widgets.
func (r *Registry) Len() int {
	if r == nil {
		return 0
	}
	return len(r.order)
}
