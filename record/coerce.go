package record

import (
	"time"

	"github.com/spf13/cast"
)

func setString(dst *string, v any) bool {
	s, err := cast.ToStringE(v)
	if err != nil {
		return false
	}
	*dst = s
	return true
}

func setInt(dst *int64, v any) bool {
	i, err := cast.ToInt64E(v)
	if err != nil {
		return false
	}
	*dst = i
	return true
}

func setFloat(dst *float64, v any) bool {
	f, err := cast.ToFloat64E(v)
	if err != nil {
		return false
	}
	*dst = f
	return true
}

func setOptionalInt(dst **int64, v any) bool {
	if v == nil {
		*dst = nil
		return true
	}
	i, err := cast.ToInt64E(v)
	if err != nil {
		return false
	}
	*dst = &i
	return true
}

func setOptionalTime(dst **time.Time, v any) bool {
	if v == nil {
		*dst = nil
		return true
	}
	t, err := cast.ToTimeE(v)
	if err != nil {
		return false
	}
	*dst = &t
	return true
}

func optionalInt(v *int64) any {
	if v == nil {
		return nil
	}
	return *v
}

func optionalTime(v *time.Time) any {
	if v == nil {
		return nil
	}
	return *v
}
