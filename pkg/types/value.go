package types

import (
	"strconv"
)

// Value is a single typed cell. The set of implementations is closed:
// Text, Bool, Float and Int.
type Value interface {
	// Kind returns the scalar kind of the value
	Kind() Kind

	// String formats the value for display
	String() string

	value()
}

// Text is a KindText cell.
type Text string

// Bool is a KindBool cell.
type Bool bool

// Float is a KindFloat cell.
type Float float64

// Int is a KindInt cell.
type Int int64

func (Text) Kind() Kind  { return KindText }
func (Bool) Kind() Kind  { return KindBool }
func (Float) Kind() Kind { return KindFloat }
func (Int) Kind() Kind   { return KindInt }

func (v Text) String() string  { return string(v) }
func (v Bool) String() string  { return strconv.FormatBool(bool(v)) }
func (v Float) String() string { return strconv.FormatFloat(float64(v), 'g', -1, 64) }
func (v Int) String() string   { return strconv.FormatInt(int64(v), 10) }

func (Text) value()  {}
func (Bool) value()  {}
func (Float) value() {}
func (Int) value()   {}

// AsFloat returns the numeric payload of a Float or Int value, widening
// integers. ok is false for Text and Bool.
func AsFloat(v Value) (f float64, ok bool) {
	switch x := v.(type) {
	case Float:
		return float64(x), true
	case Int:
		return float64(x), true
	case Text, Bool:
		return 0, false
	default:
		return 0, false
	}
}

// Equal reports whether a and b have the same kind and payload.
func Equal(a, b Value) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	if a.Kind() != b.Kind() {
		return false
	}
	return a == b
}

// Compare orders two values of the same kind. Float and Int compare
// numerically with each other. false is ordered before true. ok is false
// when the values are not comparable.
func Compare(a, b Value) (cmp int, ok bool) {
	if af, aok := AsFloat(a); aok {
		bf, bok := AsFloat(b)
		if !bok {
			return 0, false
		}
		switch {
		case af < bf:
			return -1, true
		case af > bf:
			return 1, true
		default:
			return 0, true
		}
	}

	switch x := a.(type) {
	case Text:
		y, ok := b.(Text)
		if !ok {
			return 0, false
		}
		switch {
		case x < y:
			return -1, true
		case x > y:
			return 1, true
		default:
			return 0, true
		}
	case Bool:
		y, ok := b.(Bool)
		if !ok {
			return 0, false
		}
		switch {
		case x == y:
			return 0, true
		case !bool(x):
			return -1, true
		default:
			return 1, true
		}
	}
	return 0, false
}

// JSONValue returns the payload as a plain Go value suitable for
// encoding/json: string, bool, float64 or int64.
func JSONValue(v Value) interface{} {
	switch x := v.(type) {
	case Text:
		return string(x)
	case Bool:
		return bool(x)
	case Float:
		return float64(x)
	case Int:
		return int64(x)
	default:
		return nil
	}
}
