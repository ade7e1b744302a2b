package tool

import (
	"strconv"
	"strings"
)

// Args is the loosely typed argument mapping handed to a tool. Values come
// either from the model's JSON payload or from the fallback intent parser, so
// accessors coerce leniently instead of failing.
type Args map[string]any

func (a Args) String(key string) string {
	if a == nil {
		return ""
	}
	switch v := a[key].(type) {
	case string:
		return strings.TrimSpace(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(v)
	default:
		return ""
	}
}

func (a Args) Bool(key string, fallback bool) bool {
	if a == nil {
		return fallback
	}
	switch v := a[key].(type) {
	case bool:
		return v
	case string:
		parsed, err := strconv.ParseBool(strings.TrimSpace(v))
		if err != nil {
			return fallback
		}
		return parsed
	default:
		return fallback
	}
}
