// Package jsonvalue provides the value and context operations the rule
// evaluator and flag store are built on.
//
// JSON values are represented as Go's own `any`: objects as
// map[string]any, arrays as []any, numbers as float64, strings, bools and
// nil. This mirrors encoding/json's default decoding and the evaluation
// context shape used by real-world flagd-style evaluators, rather than a
// hand-rolled tagged union — a JSON value in Go already is a closed set of
// concrete types, so a type switch over `any` is the idiomatic substitute
// for pattern-matching an algebraic data type.
package jsonvalue

import (
	"math"
	"sort"
)

// Missing is a distinct sentinel returned by GetPath when a path does
// not resolve to anything, as opposed to resolving to a JSON null. Operator
// code that cares about the distinction (e.g. "missing") type-asserts for
// it; everything else treats it the same as nil.
type missingType struct{}

// Missing is the sentinel value for an unresolved path.
var Missing = missingType{}

// IsMissing reports whether v is the Missing sentinel.
func IsMissing(v any) bool {
	_, ok := v.(missingType)
	return ok
}

// Truthy implements JSON-Logic truthiness: "", 0, [], false and null (or
// Missing) are falsy; everything else is truthy.
func Truthy(v any) bool {
	switch value := v.(type) {
	case nil:
		return false
	case missingType:
		return false
	case bool:
		return value
	case string:
		return value != ""
	case float64:
		return value != 0
	case int:
		return value != 0
	case []any:
		return len(value) > 0
	case map[string]any:
		return len(value) > 0
	default:
		return true
	}
}

// AsFloat64 coerces a JSON number (or a bool, as 1 or 0) to float64.
// Strings are not parsed; ToNumber does that.
func AsFloat64(v any) (float64, bool) {
	switch value := v.(type) {
	case float64:
		return value, true
	case int:
		return float64(value), true
	case int64:
		return float64(value), true
	case bool:
		if value {
			return 1, true
		}
		return 0, true
	default:
		return 0, false
	}
}

// AsString coerces a value to a string the way JSON-Logic's "cat" and
// string operators do: strings pass through, numbers and bools render as
// their textual form, nil/Missing render as "".
func AsString(v any) string {
	switch value := v.(type) {
	case string:
		return value
	case nil, missingType:
		return ""
	case bool:
		if value {
			return "true"
		}
		return "false"
	case float64:
		return formatNumber(value)
	default:
		return ""
	}
}

func formatNumber(f float64) string {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return "0"
	}
	if f == math.Trunc(f) && math.Abs(f) < 1e15 {
		return trimZeroFraction(f)
	}
	return trimZeroFraction(f)
}

func trimZeroFraction(f float64) string {
	// Integral floats render as integers with no trailing ".0"; others use
	// the shortest decimal form.
	if f == math.Trunc(f) {
		return int64ToString(int64(f))
	}
	return floatToString(f)
}

// Equal implements JSON equality: numbers compare numerically, objects by
// key/value, arrays in order. It does not perform JSON-Logic's loose "=="
// coercion — that lives in the "==" operator, which calls LooseEqual.
func Equal(a, b any) bool {
	if IsMissing(a) {
		a = nil
	}
	if IsMissing(b) {
		b = nil
	}
	switch av := a.(type) {
	case nil:
		return b == nil
	case bool:
		bv, ok := b.(bool)
		return ok && av == bv
	case string:
		bv, ok := b.(string)
		return ok && av == bv
	case float64:
		if _, isBool := b.(bool); isBool {
			return false
		}
		bv, ok := AsFloat64(b)
		return ok && av == bv
	case []any:
		bv, ok := b.([]any)
		if !ok || len(av) != len(bv) {
			return false
		}
		for i := range av {
			if !Equal(av[i], bv[i]) {
				return false
			}
		}
		return true
	case map[string]any:
		bv, ok := b.(map[string]any)
		if !ok || len(av) != len(bv) {
			return false
		}
		for k, vv := range av {
			other, exists := bv[k]
			if !exists || !Equal(vv, other) {
				return false
			}
		}
		return true
	default:
		return false
	}
}

// LooseEqual implements JSON-Logic's "==": numbers and numeric strings
// compare equal, bools coerce to 0/1, and nil/Missing equal only each other.
func LooseEqual(a, b any) bool {
	if IsMissing(a) {
		a = nil
	}
	if IsMissing(b) {
		b = nil
	}
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	if af, aok := AsFloat64(a); aok {
		if bf, bok := numericValue(b); bok {
			return af == bf
		}
	}
	if bf, bok := AsFloat64(b); bok {
		if af, aok := numericValue(a); aok {
			return af == bf
		}
	}
	as, aIsStr := a.(string)
	bs, bIsStr := b.(string)
	if aIsStr && bIsStr {
		return as == bs
	}
	return Equal(a, b)
}

func numericValue(v any) (float64, bool) {
	if f, ok := AsFloat64(v); ok {
		return f, true
	}
	if s, ok := v.(string); ok {
		return parseFloatLoose(s)
	}
	return 0, false
}

// ToNumber coerces a JSON value to float64 the way the arithmetic operators
// do: unlike AsFloat64 it also parses numeric strings, matching JSON-Logic's
// loose-typing rule that "+"/"-"/"*"/"/" accept numeric strings as operands.
func ToNumber(v any) (float64, bool) {
	return numericValue(v)
}

// SortedKeys returns the keys of an object in sorted order, for
// deterministic iteration.
func SortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// DeepCopy returns a structurally independent copy of a JSON value tree, so
// each inlined $evaluators fragment gets its own copy of the library entry.
func DeepCopy(v any) any {
	switch value := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(value))
		for k, vv := range value {
			out[k] = DeepCopy(vv)
		}
		return out
	case []any:
		out := make([]any, len(value))
		for i, vv := range value {
			out[i] = DeepCopy(vv)
		}
		return out
	default:
		return value
	}
}
