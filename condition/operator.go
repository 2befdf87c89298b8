package condition

import (
	"errors"
	"reflect"
	"strings"
	"time"

	"github.com/spf13/cast"
	"golang.org/x/text/cases"
)

const (
	EQUALS                = "equals"
	NOT_EQUALS            = "not_equals"
	GREATER_THAN          = "greater_than"
	LESS_THAN             = "less_than"
	GREATER_THAN_OR_EQUAL = "greater_than_or_equal"
	LESS_THAN_OR_EQUAL    = "less_than_or_equal"
	CONTAINS              = "contains"
	NOT_CONTAINS          = "not_contains"
	STARTS_WITH           = "starts_with"
	ENDS_WITH             = "ends_with"
	IS_EMPTY              = "is_empty"
	IS_NOT_EMPTY          = "is_not_empty"
)

type operator func(left, right any) bool

var operators = map[string]operator{
	EQUALS:                equals,
	NOT_EQUALS:            func(l, r any) bool { return !equals(l, r) },
	GREATER_THAN:          func(l, r any) bool { c, ok := compare(l, r); return ok && c > 0 },
	LESS_THAN:             func(l, r any) bool { c, ok := compare(l, r); return ok && c < 0 },
	GREATER_THAN_OR_EQUAL: func(l, r any) bool { c, ok := compare(l, r); return ok && c >= 0 },
	LESS_THAN_OR_EQUAL:    func(l, r any) bool { c, ok := compare(l, r); return ok && c <= 0 },
	CONTAINS:              func(l, r any) bool { return strings.Contains(fold(l), fold(r)) },
	NOT_CONTAINS:          func(l, r any) bool { return !strings.Contains(fold(l), fold(r)) },
	STARTS_WITH:           func(l, r any) bool { return strings.HasPrefix(fold(l), fold(r)) },
	ENDS_WITH:             func(l, r any) bool { return strings.HasSuffix(fold(l), fold(r)) },
	IS_EMPTY:              func(l, _ any) bool { return isEmpty(l) },
	IS_NOT_EMPTY:          func(l, _ any) bool { return !isEmpty(l) },
}

func Operators() []string {
	out := make([]string, 0, len(operators))
	for name := range operators {
		out = append(out, name)
	}
	return out
}

// equals compares numbers by value regardless of their Go width and
// everything else by type and value, so 5 never equals "5".
func equals(left, right any) bool {
	if isNumber(left) && isNumber(right) {
		return cast.ToFloat64(left) == cast.ToFloat64(right)
	}
	if lt, ok := left.(time.Time); ok {
		rt, ok := right.(time.Time)
		return ok && lt.Equal(rt)
	}
	if left == nil || right == nil {
		return left == nil && right == nil
	}
	if reflect.TypeOf(left) != reflect.TypeOf(right) {
		return false
	}
	if !reflect.TypeOf(left).Comparable() {
		return reflect.DeepEqual(left, right)
	}
	return left == right
}

// compare orders numerically when both sides read as numbers, by time when the
// left side is a time, and lexically otherwise.
func compare(left, right any) (int, bool) {
	if left == nil || right == nil {
		return 0, false
	}
	if lt, ok := left.(time.Time); ok {
		rt, err := cast.ToTimeE(right)
		if err != nil {
			return 0, false
		}
		switch {
		case lt.Before(rt):
			return -1, true
		case lt.After(rt):
			return 1, true
		}
		return 0, true
	}
	lf, lerr := toNumber(left)
	rf, rerr := toNumber(right)
	if lerr == nil && rerr == nil {
		switch {
		case lf < rf:
			return -1, true
		case lf > rf:
			return 1, true
		}
		return 0, true
	}
	return strings.Compare(cast.ToString(left), cast.ToString(right)), true
}

func toNumber(v any) (float64, error) {
	if isNumber(v) {
		return cast.ToFloat64E(v)
	}
	if s, ok := v.(string); ok {
		return cast.ToFloat64E(strings.TrimSpace(s))
	}
	return 0, errNotNumber
}

func isNumber(v any) bool {
	switch v.(type) {
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64, float32, float64:
		return true
	}
	return false
}

var errNotNumber = errors.New("not a number")

// fold builds a new Caser per call; Casers carry state and are not safe to share.
func fold(v any) string {
	if v == nil {
		return ""
	}
	return cases.Fold().String(cast.ToString(v))
}

func isEmpty(v any) bool {
	if v == nil {
		return true
	}
	if s, ok := v.(string); ok {
		return strings.TrimSpace(s) == ""
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Map, reflect.Array:
		return rv.Len() == 0
	case reflect.Pointer:
		return rv.IsNil()
	}
	return false
}
