package types

import (
	"encoding/json"
	"fmt"
	"math/big"
	"strings"
)

// Value represents a non-negative token quantity as carried inside a
// commitment. Quantities are field elements on the wire, so the canonical
// representation is 0x-prefixed lowercase hex. All arithmetic is
// integer-only; there is no floating point.
//
// Examples:
//   - NewValue(5) = 0x5
//   - MustParseValue("0x1f") = 31
type Value struct {
	i big.Int
}

// NewValue creates a Value from an unsigned integer.
func NewValue(v uint64) Value {
	var out Value
	out.i.SetUint64(v)
	return out
}

// ZeroValue returns the zero quantity.
func ZeroValue() Value { return Value{} }

// ParseValue parses a quantity from its hex representation. A "0x" prefix
// is accepted and optional; plain decimal strings are rejected unless they
// are also valid hex. Negative quantities are invalid.
func ParseValue(s string) (Value, error) {
	trimmed := strings.TrimPrefix(strings.ToLower(strings.TrimSpace(s)), "0x")
	if trimmed == "" {
		return Value{}, fmt.Errorf("value: parse %q: empty string", s)
	}

	var out Value
	if _, ok := out.i.SetString(trimmed, 16); !ok {
		return Value{}, fmt.Errorf("value: parse %q: not a hex quantity", s)
	}
	if out.i.Sign() < 0 {
		return Value{}, fmt.Errorf("value: parse %q: negative quantity", s)
	}
	return out, nil
}

// MustParseValue is like ParseValue but panics on error. Use for hardcoded values.
func MustParseValue(s string) Value {
	v, err := ParseValue(s)
	if err != nil {
		panic(err.Error())
	}
	return v
}

// Arithmetic operations

// Add returns the sum of two quantities.
func (v Value) Add(other Value) Value {
	var out Value
	out.i.Add(&v.i, &other.i)
	return out
}

// Sub returns the difference of two quantities.
// Panics if the result would be negative: spending more than is held is a
// programming error at this layer, not a recoverable condition.
func (v Value) Sub(other Value) Value {
	if v.i.Cmp(&other.i) < 0 {
		panic(fmt.Sprintf("value: underflow: %s - %s", v.Hex(), other.Hex()))
	}
	var out Value
	out.i.Sub(&v.i, &other.i)
	return out
}

// Comparison methods

// IsZero reports whether the quantity is zero.
func (v Value) IsZero() bool { return v.i.Sign() == 0 }

// Equal reports whether two quantities are equal.
func (v Value) Equal(other Value) bool { return v.i.Cmp(&other.i) == 0 }

// Cmp compares two quantities, returning -1, 0 or 1.
func (v Value) Cmp(other Value) int { return v.i.Cmp(&other.i) }

// LessThan reports whether v is strictly smaller than other.
func (v Value) LessThan(other Value) bool { return v.i.Cmp(&other.i) < 0 }

// Formatting methods

// Hex returns the canonical 0x-prefixed lowercase hex representation.
func (v Value) Hex() string {
	return "0x" + v.i.Text(16)
}

// Uint64 returns the quantity as a uint64. Quantities exceeding 64 bits
// saturate at MaxUint64; callers that care should compare with Cmp first.
func (v Value) Uint64() uint64 {
	if !v.i.IsUint64() {
		return ^uint64(0)
	}
	return v.i.Uint64()
}

// String returns the hex representation.
func (v Value) String() string { return v.Hex() }

// MarshalText implements encoding.TextMarshaler.
func (v Value) MarshalText() ([]byte, error) {
	return []byte(v.Hex()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (v *Value) UnmarshalText(data []byte) error {
	parsed, err := ParseValue(string(data))
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}

// MarshalJSON implements json.Marshaler.
func (v Value) MarshalJSON() ([]byte, error) {
	return json.Marshal(v.Hex())
}

// UnmarshalJSON implements json.Unmarshaler.
func (v *Value) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	return v.UnmarshalText([]byte(s))
}

// SumValues calculates the sum of multiple quantities.
func SumValues(values ...Value) Value {
	var out Value
	for _, v := range values {
		out = out.Add(v)
	}
	return out
}
