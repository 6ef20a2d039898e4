package yardstick

import (
	"fmt"
	"time"
)

// Kind identifies the dynamic type of a context Value.
type Kind int

const (
	// KindNull represents an absent or null value.
	KindNull Kind = iota
	// KindString represents a string value.
	KindString
	// KindNumber represents a numeric value (stored as float64).
	KindNumber
	// KindBool represents a boolean value.
	KindBool
	// KindTime represents a timestamp value.
	KindTime
)

// String returns the kind name for logging and error messages.
func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindString:
		return "string"
	case KindNumber:
		return "number"
	case KindBool:
		return "bool"
	case KindTime:
		return "time"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Value is a small sum type over the types a record context may contain.
// Comparator implementations switch on Kind rather than duck-typing on
// interface{} values, so type mismatches surface as explicit evaluation
// faults instead of silent misbehavior.
type Value struct {
	Kind Kind
	Str  string
	Num  float64
	Bool bool
	Time time.Time
}

// Null returns the null value.
func Null() Value { return Value{Kind: KindNull} }

// String returns a string value.
func String(s string) Value { return Value{Kind: KindString, Str: s} }

// Number returns a numeric value.
func Number(n float64) Value { return Value{Kind: KindNumber, Num: n} }

// Bool returns a boolean value.
func Bool(b bool) Value { return Value{Kind: KindBool, Bool: b} }

// Time returns a timestamp value. The timestamp is normalized to UTC so
// comparisons are independent of the zone the caller happened to hold.
func Time(t time.Time) Value { return Value{Kind: KindTime, Time: t.UTC()} }

// IsNull reports whether the value is null.
func (v Value) IsNull() bool { return v.Kind == KindNull }

// FromAny converts a decoded JSON literal (or a native Go scalar) into a
// Value. Unsupported types yield an error so callers can reject malformed
// context input at the boundary instead of mid-evaluation.
func FromAny(raw interface{}) (Value, error) {
	switch val := raw.(type) {
	case nil:
		return Null(), nil
	case string:
		return String(val), nil
	case bool:
		return Bool(val), nil
	case float64:
		return Number(val), nil
	case float32:
		return Number(float64(val)), nil
	case int:
		return Number(float64(val)), nil
	case int32:
		return Number(float64(val)), nil
	case int64:
		return Number(float64(val)), nil
	case time.Time:
		return Time(val), nil
	case Value:
		return val, nil
	default:
		return Null(), fmt.Errorf("unsupported context value type %T", raw)
	}
}

// Interface returns the value as a plain Go value, for logging and
// rationale snapshots.
func (v Value) Interface() interface{} {
	switch v.Kind {
	case KindString:
		return v.Str
	case KindNumber:
		return v.Num
	case KindBool:
		return v.Bool
	case KindTime:
		return v.Time
	default:
		return nil
	}
}

// GoString renders the value for diagnostics.
func (v Value) GoString() string {
	if v.Kind == KindNull {
		return "null"
	}
	return fmt.Sprintf("%v", v.Interface())
}

// asTime attempts to view the value as a timestamp. String values are
// parsed as ISO 8601 (RFC 3339); a parse failure is not an error here,
// it simply reports false so the caller can fall back to raw comparison.
func (v Value) asTime() (time.Time, bool) {
	switch v.Kind {
	case KindTime:
		return v.Time, true
	case KindString:
		if t, err := time.Parse(time.RFC3339, v.Str); err == nil {
			return t.UTC(), true
		}
		return time.Time{}, false
	default:
		return time.Time{}, false
	}
}

// Context is the flat record context a condition tree is evaluated against.
// Keys are field names; values are scalar Values.
type Context map[string]Value
