package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
)

var jsonNull = []byte("null")

// OptBool is a self-reported yes/no answer that may not have been given.
// The zero value is unknown, which is distinct from false: an unknown answer
// satisfies neither a positive nor a negative predicate.
type OptBool struct {
	value bool
	known bool
}

// Yes returns a known true answer.
func Yes() OptBool { return OptBool{value: true, known: true} }

// No returns a known false answer.
func No() OptBool { return OptBool{value: false, known: true} }

// UnknownBool returns an unanswered value.
func UnknownBool() OptBool { return OptBool{} }

// BoolOf wraps a reported answer.
func BoolOf(b bool) OptBool { return OptBool{value: b, known: true} }

// Known reports whether an answer was given.
func (o OptBool) Known() bool { return o.known }

// IsTrue reports whether the answer is known and true.
func (o OptBool) IsTrue() bool { return o.known && o.value }

// IsFalse reports whether the answer is known and false.
func (o OptBool) IsFalse() bool { return o.known && !o.value }

// Get returns the answer and whether it is known.
func (o OptBool) Get() (bool, bool) { return o.value, o.known }

// String returns "true", "false" or "unknown".
func (o OptBool) String() string {
	if !o.known {
		return "unknown"
	}
	return strconv.FormatBool(o.value)
}

// MarshalJSON encodes unknown as null.
func (o OptBool) MarshalJSON() ([]byte, error) {
	if !o.known {
		return jsonNull, nil
	}
	return json.Marshal(o.value)
}

// UnmarshalJSON decodes null as unknown.
func (o *OptBool) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), jsonNull) {
		*o = OptBool{}
		return nil
	}
	var b bool
	if err := json.Unmarshal(data, &b); err != nil {
		return fmt.Errorf("optional bool: %w", err)
	}
	*o = BoolOf(b)
	return nil
}

// OptFloat is a reported measurement that may be missing. Comparisons on an
// unknown value are always false.
type OptFloat struct {
	value float64
	known bool
}

// FloatOf wraps a reported measurement. NaN and infinities are treated as
// not reported.
func FloatOf(v float64) OptFloat {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return OptFloat{}
	}
	return OptFloat{value: v, known: true}
}

// UnknownFloat returns a missing measurement.
func UnknownFloat() OptFloat { return OptFloat{} }

// Known reports whether the measurement was given.
func (o OptFloat) Known() bool { return o.known }

// Get returns the measurement and whether it is known.
func (o OptFloat) Get() (float64, bool) { return o.value, o.known }

// GreaterThan reports o > x for a known value.
func (o OptFloat) GreaterThan(x float64) bool { return o.known && o.value > x }

// AtLeast reports o >= x for a known value.
func (o OptFloat) AtLeast(x float64) bool { return o.known && o.value >= x }

// LessThan reports o < x for a known value.
func (o OptFloat) LessThan(x float64) bool { return o.known && o.value < x }

// AtMost reports o <= x for a known value.
func (o OptFloat) AtMost(x float64) bool { return o.known && o.value <= x }

// Between reports lo < o < hi for a known value.
func (o OptFloat) Between(lo, hi float64) bool {
	return o.known && o.value > lo && o.value < hi
}

// String formats the value without trailing zeros, or "unknown".
func (o OptFloat) String() string {
	if !o.known {
		return "unknown"
	}
	return strconv.FormatFloat(o.value, 'f', -1, 64)
}

// MarshalJSON encodes unknown as null.
func (o OptFloat) MarshalJSON() ([]byte, error) {
	if !o.known {
		return jsonNull, nil
	}
	return json.Marshal(o.value)
}

// UnmarshalJSON decodes null as unknown.
func (o *OptFloat) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), jsonNull) {
		*o = OptFloat{}
		return nil
	}
	var v float64
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("optional number: %w", err)
	}
	*o = FloatOf(v)
	return nil
}
