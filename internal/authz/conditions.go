package authz

import (
	"fmt"
	"reflect"
	"strings"
)

// EvaluateConditions checks every condition against the resource data,
// interpolating context tokens into string condition values first.
// Conditions are ANDed; the first failure short-circuits to false.
// Pure function of its inputs.
func EvaluateConditions(conditions []Condition, actx *Context, resourceData map[string]any) bool {
	for _, cond := range conditions {
		fieldVal, _ := lookupPath(resourceData, cond.Field)
		condVal := interpolate(actx, cond.Value)
		if !evaluateCondition(cond.Operator, fieldVal, condVal) {
			return false
		}
	}
	return true
}

func evaluateCondition(op Operator, fieldVal, condVal any) bool {
	switch op {
	case OpEquals:
		return equalValues(fieldVal, condVal)
	case OpGreaterThan:
		return toFloat(fieldVal) > toFloat(condVal)
	case OpLessThan:
		return toFloat(fieldVal) < toFloat(condVal)
	case OpContains:
		return containsValue(fieldVal, condVal)
	case OpIn:
		list, ok := asList(condVal)
		return ok && inList(fieldVal, list)
	case OpNotIn:
		// A malformed value (non-list) denies rather than allows.
		list, ok := asList(condVal)
		return ok && !inList(fieldVal, list)
	default:
		return false
	}
}

// lookupPath walks a dot-path into nested maps. A missing key or a
// non-map intermediate yields (nil, false), never an error.
func lookupPath(data map[string]any, path string) (any, bool) {
	var current any = data
	for _, part := range strings.Split(path, ".") {
		m, ok := current.(map[string]any)
		if !ok {
			return nil, false
		}
		current, ok = m[part]
		if !ok {
			return nil, false
		}
	}
	return current, true
}

// equalValues is strict equality: values of different kinds are unequal
// ("5" never equals 5), except that numeric values of different Go
// types compare numerically, since JSON decoding produces float64 while
// store rows carry int64.
func equalValues(a, b any) bool {
	if af, aok := numericValue(a); aok {
		bf, bok := numericValue(b)
		return bok && af == bf
	}
	if _, bok := numericValue(b); bok {
		return false
	}
	return reflect.DeepEqual(a, b)
}

func numericValue(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case int32:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint64:
		return float64(n), true
	}
	return 0, false
}

func toFloat(v any) float64 {
	if f, ok := numericValue(v); ok {
		return f
	}
	var f float64
	fmt.Sscanf(fmt.Sprintf("%v", v), "%f", &f)
	return f
}

// containsValue tests membership when the field holds a list, otherwise
// a substring test on string-coerced values.
func containsValue(fieldVal, condVal any) bool {
	if list, ok := asList(fieldVal); ok {
		return inList(condVal, list)
	}
	if fieldVal == nil {
		return false
	}
	return strings.Contains(fmt.Sprintf("%v", fieldVal), fmt.Sprintf("%v", condVal))
}

func inList(target any, list []any) bool {
	for _, item := range list {
		if equalValues(item, target) {
			return true
		}
	}
	return false
}

func asList(v any) ([]any, bool) {
	switch l := v.(type) {
	case []any:
		return l, true
	case []string:
		out := make([]any, len(l))
		for i, s := range l {
			out[i] = s
		}
		return out, true
	}
	return nil, false
}
