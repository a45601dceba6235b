package event

import "math"

const (
	revenueTag = "revenue"
	valueTag   = "value"
)

// RevenueValue extracts an integral revenue tag
func RevenueValue(tags map[string]any) (int64, bool) {
	raw, ok := tags[revenueTag]
	if !ok {
		return 0, false
	}
	switch v := raw.(type) {
	case int:
		return int64(v), true
	case int32:
		return int64(v), true
	case int64:
		return v, true
	case float64:
		if isFinite(v) && v == math.Trunc(v) {
			return int64(v), true
		}
	}
	return 0, false
}

// NumericValue extracts a finite numeric value tag
func NumericValue(tags map[string]any) (float64, bool) {
	raw, ok := tags[valueTag]
	if !ok {
		return 0, false
	}
	var v float64
	switch n := raw.(type) {
	case int:
		v = float64(n)
	case int32:
		v = float64(n)
	case int64:
		v = float64(n)
	case float32:
		v = float64(n)
	case float64:
		v = n
	default:
		return 0, false
	}
	if !isFinite(v) {
		return 0, false
	}
	return v, true
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
