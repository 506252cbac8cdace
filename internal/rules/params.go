package rules

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// Params are the configured parameters of a rule, as decoded from the rules
// file. Values are whatever YAML produced: ints, floats, strings, bools.
type Params map[string]any

var dateLayouts = []string{"2006-01-02", time.RFC3339}

// Float returns the numeric parameter key, or def when it is absent.
func (p Params) Float(key string, def float64) (float64, error) {
	v, ok := p[key]
	if !ok || v == nil {
		return def, nil
	}
	switch n := v.(type) {
	case float64:
		return n, nil
	case float32:
		return float64(n), nil
	case int:
		return float64(n), nil
	case int64:
		return float64(n), nil
	case uint64:
		return float64(n), nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil {
			return 0, fmt.Errorf("param %s: %q is not a number", key, n)
		}
		return f, nil
	default:
		return 0, fmt.Errorf("param %s: unexpected type %T", key, v)
	}
}

// Int returns the integer parameter key, or def when it is absent.
func (p Params) Int(key string, def int) (int, error) {
	f, err := p.Float(key, float64(def))
	if err != nil {
		return 0, err
	}
	if f != math.Trunc(f) {
		return 0, fmt.Errorf("param %s: %v is not an integer", key, f)
	}
	return int(f), nil
}

// String returns the string parameter key, or def when it is absent.
func (p Params) String(key, def string) (string, error) {
	v, ok := p[key]
	if !ok || v == nil {
		return def, nil
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("param %s: expected string, got %T", key, v)
	}
	return s, nil
}

// Time returns the date parameter key, or def when it is absent. Strings
// are accepted as YYYY-MM-DD or RFC 3339.
func (p Params) Time(key string, def time.Time) (time.Time, error) {
	v, ok := p[key]
	if !ok || v == nil {
		return def, nil
	}
	switch t := v.(type) {
	case time.Time:
		return t, nil
	case string:
		for _, layout := range dateLayouts {
			if parsed, err := time.Parse(layout, strings.TrimSpace(t)); err == nil {
				return parsed, nil
			}
		}
		return time.Time{}, fmt.Errorf("param %s: %q is not a date", key, t)
	default:
		return time.Time{}, fmt.Errorf("param %s: unexpected type %T", key, v)
	}
}
