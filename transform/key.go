package transform

import (
	"strings"
)

// KeyDelimiter separates the segments of a DottedKey.
const KeyDelimiter = "."

// DottedKey references a body field, possibly nested. "a.b.c" names field c
// inside map b inside map a.
type DottedKey struct {
	raw      string
	segments []string
}

// ParseKey splits s on KeyDelimiter. Trailing empty segments are dropped, so
// "a." names field a. Inner empty segments are kept, so a key like "a..b"
// never resolves against a real body.
func ParseKey(s string) DottedKey {
	segments := strings.Split(s, KeyDelimiter)
	for len(segments) > 1 && segments[len(segments)-1] == "" {
		segments = segments[:len(segments)-1]
	}
	return DottedKey{raw: s, segments: segments}
}

// Segments returns every path segment.
func (k DottedKey) Segments() []string {
	return append([]string(nil), k.segments...)
}

// Parent returns the segments naming the maps to walk through.
func (k DottedKey) Parent() []string {
	return k.segments[:len(k.segments)-1]
}

// Leaf returns the final segment.
func (k DottedKey) Leaf() string {
	return k.segments[len(k.segments)-1]
}

// IsNested reports whether the key has more than one segment.
func (k DottedKey) IsNested() bool {
	return len(k.segments) > 1
}

func (k DottedKey) String() string {
	return k.raw
}

// resolve walks body along the parent segments and returns the context map
// holding the leaf.
func (k DottedKey) resolve(body map[string]any) (map[string]any, bool) {
	ctx := body
	for _, seg := range k.Parent() {
		next, ok := ctx[seg].(map[string]any)
		if !ok {
			return nil, false
		}
		ctx = next
	}
	return ctx, true
}
