package yardstick

import (
	"regexp"
	"time"
)

// compareEqual checks two resolved values for equality. Mixed types are not
// a fault for equality: a string and a number are simply not equal. The one
// coercion applied is string-vs-time, where the string side is parsed as
// ISO 8601 before comparing.
func compareEqual(left, right Value) bool {
	if left.Kind == KindNull || right.Kind == KindNull {
		return left.Kind == KindNull && right.Kind == KindNull
	}

	if lt, rt, ok := coerceTimes(left, right); ok {
		return lt.Time.Equal(rt.Time)
	}

	if left.Kind != right.Kind {
		return false
	}

	switch left.Kind {
	case KindString:
		return left.Str == right.Str
	case KindNumber:
		return left.Num == right.Num
	case KindBool:
		return left.Bool == right.Bool
	case KindTime:
		return left.Time.Equal(right.Time)
	default:
		return false
	}
}

// compareOrder evaluates an ordering operator (lt, lte, gt, gte). It
// supports numbers, timestamps, and strings (lexicographic); everything
// else is an evaluation fault, which the evaluator turns into a non-match.
func compareOrder(op Operator, left, right Value) (bool, error) {
	if lt, rt, ok := coerceTimes(left, right); ok {
		return orderResult(op, compareTimeOrder(lt.Time, rt.Time)), nil
	}

	if left.Kind == KindNumber && right.Kind == KindNumber {
		return orderResult(op, compareFloat(left.Num, right.Num)), nil
	}

	if left.Kind == KindString && right.Kind == KindString {
		return orderResult(op, compareString(left.Str, right.Str)), nil
	}

	return false, faultf(op, "cannot order %s against %s", left.Kind, right.Kind)
}

// coerceTimes reports whether the pair can be compared as timestamps. At
// least one side must already be a time; a string on the other side is
// parsed as ISO 8601. Parse failure leaves the pair to raw comparison.
func coerceTimes(left, right Value) (Value, Value, bool) {
	if left.Kind != KindTime && right.Kind != KindTime {
		return left, right, false
	}

	lt, lok := left.asTime()
	rt, rok := right.asTime()
	if !lok || !rok {
		return left, right, false
	}
	return Time(lt), Time(rt), true
}

func compareFloat(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func compareString(a, b string) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func compareTimeOrder(a, b time.Time) int {
	switch {
	case a.Before(b):
		return -1
	case a.After(b):
		return 1
	default:
		return 0
	}
}

func orderResult(op Operator, cmp int) bool {
	switch op {
	case OpLessThan:
		return cmp < 0
	case OpLessEqual:
		return cmp <= 0
	case OpGreaterThan:
		return cmp > 0
	case OpGreaterEqual:
		return cmp >= 0
	default:
		return false
	}
}

// matchRegex evaluates the regex operator. The subject is the left value as
// a string (null becomes the empty string); the pattern must be a string.
// Matching uses search semantics: the pattern is unanchored.
func matchRegex(subject Value, pattern Value) (bool, error) {
	if pattern.Kind != KindString {
		return false, faultf(OpRegex, "pattern must be a string, got %s", pattern.Kind)
	}

	var text string
	switch subject.Kind {
	case KindNull:
		text = ""
	case KindString:
		text = subject.Str
	default:
		return false, faultf(OpRegex, "subject must be a string, got %s", subject.Kind)
	}

	re, err := regexp.Compile(pattern.Str)
	if err != nil {
		return false, faultf(OpRegex, "invalid pattern %q: %v", pattern.Str, err)
	}

	return re.MatchString(text), nil
}

// matchIn evaluates membership of the left value in a literal collection.
func matchIn(left Value, collection []interface{}) (bool, error) {
	for i, raw := range collection {
		elem, err := FromAny(raw)
		if err != nil {
			return false, faultf(OpIn, "collection element %d: %v", i, err)
		}
		if compareEqual(left, elem) {
			return true, nil
		}
	}
	return false, nil
}
