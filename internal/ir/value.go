package ir

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
)

// Value is a sealed interface representing a state value.
// Only Bool, Number and String implement it.
type Value interface {
	Kind() Kind
	isValue() // Sealed - only these types implement it
}

// Kind identifies the type of a Value.
type Kind int

const (
	// KindBool is the kind of Bool values.
	KindBool Kind = iota + 1
	// KindNumber is the kind of Number values.
	KindNumber
	// KindString is the kind of String values.
	KindString
)

// String returns the lowercase kind name used in error messages and the journal.
func (k Kind) String() string {
	switch k {
	case KindBool:
		return "bool"
	case KindNumber:
		return "number"
	case KindString:
		return "string"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Bool represents a boolean value.
type Bool bool

// Kind implements Value.
func (Bool) Kind() Kind { return KindBool }
func (Bool) isValue()   {}

// Number represents a numeric value.
// Integers and fractional values share one kind, as slider and
// number input values do in the browser.
type Number float64

// Kind implements Value.
func (Number) Kind() Kind { return KindNumber }
func (Number) isValue()   {}

// String renders the number without a trailing ".0" for integral values.
func (n Number) String() string {
	return strconv.FormatFloat(float64(n), 'g', -1, 64)
}

// Int returns the number truncated toward zero.
func (n Number) Int() int64 {
	return int64(n)
}

// String represents a string value.
type String string

// Kind implements Value.
func (String) Kind() Kind { return KindString }
func (String) isValue()   {}

// FromAny converts a Go value to a Value.
//
// Accepted inputs are Value, bool, string, every integer and float type,
// and json.Number. NaN and infinities are rejected because they cannot be
// compared or serialised deterministically.
func FromAny(v any) (Value, error) {
	switch val := v.(type) {
	case nil:
		return nil, fmt.Errorf("null is not a valid state value")
	case Value:
		return val, nil
	case bool:
		return Bool(val), nil
	case string:
		return String(val), nil
	case int:
		return Number(val), nil
	case int8:
		return Number(val), nil
	case int16:
		return Number(val), nil
	case int32:
		return Number(val), nil
	case int64:
		return Number(val), nil
	case uint:
		return Number(val), nil
	case uint8:
		return Number(val), nil
	case uint16:
		return Number(val), nil
	case uint32:
		return Number(val), nil
	case uint64:
		return Number(val), nil
	case float32:
		return checkFinite(float64(val))
	case float64:
		return checkFinite(val)
	case json.Number:
		f, err := val.Float64()
		if err != nil {
			return nil, fmt.Errorf("invalid number %q: %w", val, err)
		}
		return checkFinite(f)
	default:
		return nil, fmt.Errorf("unsupported state value type: %T", v)
	}
}

// MustFromAny is like FromAny but panics on error.
// Use only in tests or when inputs are known to be valid.
func MustFromAny(v any) Value {
	val, err := FromAny(v)
	if err != nil {
		panic(err)
	}
	return val
}

func checkFinite(f float64) (Value, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil, fmt.Errorf("non-finite number is not a valid state value: %v", f)
	}
	return Number(f), nil
}

// Native returns the plain Go value (bool, float64 or string) held by v.
func Native(v Value) any {
	switch val := v.(type) {
	case Bool:
		return bool(val)
	case Number:
		return float64(val)
	case String:
		return string(val)
	default:
		return nil
	}
}

// Format renders a value for display in text output.
func Format(v Value) string {
	switch val := v.(type) {
	case nil:
		return "<none>"
	case Bool:
		return strconv.FormatBool(bool(val))
	case Number:
		return val.String()
	case String:
		return string(val)
	default:
		return fmt.Sprintf("%v", v)
	}
}

// Equal reports whether a and b have the same kind and value.
func Equal(a, b Value) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.Kind() == b.Kind() && a == b
}

// MarshalValue encodes a Value as plain JSON.
// NOTE: This is NOT canonical marshaling. Use MarshalCanonical for hashing.
func MarshalValue(v Value) ([]byte, error) {
	if v == nil {
		return []byte("null"), nil
	}
	return json.Marshal(Native(v))
}

// UnmarshalValue decodes a JSON scalar into a Value.
// Arrays, objects and null are rejected.
func UnmarshalValue(data []byte) (Value, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var raw any
	if err := dec.Decode(&raw); err != nil {
		return nil, err
	}

	switch raw.(type) {
	case []any, map[string]any:
		return nil, fmt.Errorf("composite JSON values are not valid state values")
	}
	return FromAny(raw)
}
