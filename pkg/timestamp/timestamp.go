// Package timestamp converts record timestamps to and from int64 Unix
// milliseconds, the representation used on the wire. A value of 0 means the
// timestamp is not set.
package timestamp

import (
	"encoding/json"
	"fmt"
	"time"
)

// maxMs is 3000-01-01T00:00:00Z.
const maxMs = 32503680000000

// Now returns the current time as Unix milliseconds.
func Now() int64 {
	return time.Now().UnixMilli()
}

// ToUnixMs converts a time.Time to Unix milliseconds.
func ToUnixMs(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixMilli()
}

// FromUnixMs converts Unix milliseconds to time.Time.
// Returns zero time if timestamp is 0.
func FromUnixMs(ms int64) time.Time {
	if ms == 0 {
		return time.Time{}
	}
	return time.UnixMilli(ms)
}

// Format renders ms as RFC3339 in UTC, or "" when unset.
func Format(ms int64) string {
	if ms == 0 {
		return ""
	}
	return time.UnixMilli(ms).UTC().Format(time.RFC3339Nano)
}

// Parse converts a wire timestamp to Unix milliseconds. Numbers are taken
// as milliseconds, negative ones included. Strings may be RFC3339 or a
// numeric millisecond count. Anything else yields 0.
func Parse(input any) int64 {
	switch v := input.(type) {
	case nil:
		return 0
	case int64:
		return v
	case int:
		return int64(v)
	case float64:
		return int64(v)
	case json.Number:
		if n, err := v.Int64(); err == nil {
			return n
		}
		if f, err := v.Float64(); err == nil {
			return int64(f)
		}
		return 0
	case string:
		if v == "" {
			return 0
		}
		if t, err := time.Parse(time.RFC3339Nano, v); err == nil {
			return ToUnixMs(t)
		}
		return Parse(json.Number(v))
	case time.Time:
		return ToUnixMs(v)
	default:
		return 0
	}
}

// Validate checks that ms is non-negative and before the year 3000.
func Validate(ms int64) error {
	if ms < 0 {
		return fmt.Errorf("timestamp cannot be negative: %d", ms)
	}
	if ms > maxMs {
		return fmt.Errorf("timestamp too far in future: %d", ms)
	}
	return nil
}
