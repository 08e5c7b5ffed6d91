// Package legacy decodes identifier and date values exported from the old
// document store. Values arrive either as plain scalars or wrapped in
// extended-JSON objects ({"$oid": ...}, {"$date": ...}, {"$timestamp": {"t": ...}})
// or in an ISODate("...") textual form. Decoding is tolerant: anything
// unparseable degrades to a sentinel instead of an error so list views can
// render a placeholder and keep going.
package legacy

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// InvalidDatePlaceholder is what views render for unparseable dates.
const InvalidDatePlaceholder = "Invalid Date"

// ID returns the canonical string identifier. Object-wrapped ids expose the
// value under "$oid"; everything else passes through unchanged.
func ID(v interface{}) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case map[string]interface{}:
		if oid, ok := val["$oid"].(string); ok {
			return oid
		}
		return fmt.Sprint(val)
	default:
		return fmt.Sprint(val)
	}
}

// Date returns the canonical instant for a legacy-encoded date value. The
// second return is false when the value is absent or unparseable; callers must
// fall back to InvalidDatePlaceholder and never treat this as an error.
//
// Precedence: $date (millisecond epoch or date string), $timestamp.t
// (seconds), ISODate("...") text, then a raw parse of the value itself.
func Date(v interface{}) (time.Time, bool) {
	if v == nil {
		return time.Time{}, false
	}

	if wrapper, ok := v.(map[string]interface{}); ok {
		if raw, ok := wrapper["$date"]; ok {
			return rawDate(raw)
		}
		if ts, ok := wrapper["$timestamp"].(map[string]interface{}); ok {
			if secs, ok := asNumber(ts["t"]); ok {
				return time.UnixMilli(int64(secs) * 1000).UTC(), true
			}
		}
		return time.Time{}, false
	}

	if s, ok := v.(string); ok && strings.HasPrefix(s, "ISODate(") && strings.HasSuffix(s, ")") {
		inner := strings.Trim(s[len("ISODate("):len(s)-1], `'"`)
		return parseDateString(inner)
	}

	return rawDate(v)
}

// Display formats a decoded date for admin views, substituting the placeholder
// for unparseable input.
func Display(v interface{}) string {
	t, ok := Date(v)
	if !ok {
		return InvalidDatePlaceholder
	}
	return t.Format("02.01.2006 15:04")
}

func rawDate(v interface{}) (time.Time, bool) {
	if n, ok := asNumber(v); ok {
		return time.UnixMilli(int64(n)).UTC(), true
	}
	if s, ok := v.(string); ok {
		return parseDateString(s)
	}
	return time.Time{}, false
}

func asNumber(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int64:
		return float64(n), true
	case int:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}

func parseDateString(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range []string{
		time.RFC3339Nano,
		time.RFC3339,
		"2006-01-02T15:04:05",
		"2006-01-02 15:04:05",
		"2006-01-02",
	} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}
