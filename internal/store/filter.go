package store

import (
	"fmt"
	"strings"
)

// Matches reports whether the flattened property map of a record
// satisfies every condition (conditions combine with logical AND). It
// is used by the in-memory stores and by the SQL-backed stores, which
// apply it in Go to the rows they fetch rather than building a WHERE
// clause for Conditions.
func Matches(props map[string]interface{}, conditions []Condition) bool {
	for _, c := range conditions {
		if !matchOne(props, c) {
			return false
		}
	}
	return true
}

func matchOne(props map[string]interface{}, c Condition) bool {
	actual, ok := lookupPath(props, c.Property)
	if !ok {
		return false
	}
	switch c.Comparison {
	case Eq:
		return compareEqual(actual, c.Value)
	case Ne:
		return !compareEqual(actual, c.Value)
	case Lt:
		return compareOrdered(actual, c.Value) < 0
	case Le:
		return compareOrdered(actual, c.Value) <= 0
	case Gt:
		return compareOrdered(actual, c.Value) > 0
	case Ge:
		return compareOrdered(actual, c.Value) >= 0
	case In:
		values, ok := c.Value.([]interface{})
		if !ok {
			return false
		}
		for _, v := range values {
			if compareEqual(actual, v) {
				return true
			}
		}
		return false
	default:
		return false
	}
}

// lookupPath walks a dotted property path ("entryObject.content")
// through nested maps, returning (value, true) if every segment
// resolves.
func lookupPath(props map[string]interface{}, path string) (interface{}, bool) {
	segments := strings.Split(path, ".")
	var cur interface{} = props
	for _, seg := range segments {
		m, ok := cur.(map[string]interface{})
		if !ok {
			return nil, false
		}
		v, ok := m[seg]
		if !ok {
			return nil, false
		}
		cur = v
	}
	return cur, true
}

func compareEqual(a, b interface{}) bool {
	return fmt.Sprintf("%v", a) == fmt.Sprintf("%v", b)
}

// compareOrdered compares two values numerically if both are numeric,
// otherwise falls back to lexical string comparison (sufficient for
// RFC3339 timestamp strings, which sort lexically in time order).
func compareOrdered(a, b interface{}) int {
	af, aok := toFloat(a)
	bf, bok := toFloat(b)
	if aok && bok {
		switch {
		case af < bf:
			return -1
		case af > bf:
			return 1
		default:
			return 0
		}
	}
	as := fmt.Sprintf("%v", a)
	bs := fmt.Sprintf("%v", b)
	return strings.Compare(as, bs)
}

func toFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	default:
		return 0, false
	}
}
