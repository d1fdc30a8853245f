package columnar

import "strings"

// Value is an immutable cell. Copies share the backing bytes, equality and
// hashing follow the string contents, and ordering is byte-wise.
type Value string

// NewValue wraps s.
func NewValue(s string) Value { return Value(s) }

// String returns the underlying text without copying.
func (v Value) String() string { return string(v) }

// Compare returns -1, 0 or +1 comparing a and b byte-wise.
func Compare(a, b Value) int {
	return strings.Compare(string(a), string(b))
}

// Values converts strings to values.
func Values(ss ...string) []Value {
	out := make([]Value, len(ss))
	for i, s := range ss {
		out[i] = Value(s)
	}
	return out
}
