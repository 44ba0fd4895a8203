package record

import (
	"slices"
)

// Header is one named attribute attached to a record outside its body.
type Header struct {
	Key   string
	Value any
}

// Headers is an ordered multimap. The zero value is empty and ready to use.
// Methods that change the set return nothing and mutate the receiver, so
// transformations Clone before changing headers they did not create.
type Headers struct {
	entries []Header
}

// NewHeaders builds a header set from entries, keeping their order.
func NewHeaders(entries ...Header) Headers {
	return Headers{entries: slices.Clone(entries)}
}

// Add appends an entry. Existing entries with the same key are kept.
func (h *Headers) Add(key string, value any) {
	h.entries = append(h.entries, Header{Key: key, Value: value})
}

// Remove deletes every entry named key.
func (h *Headers) Remove(key string) {
	h.entries = slices.DeleteFunc(h.entries, func(e Header) bool { return e.Key == key })
}

// AllWithName returns the entries named key in insertion order.
func (h Headers) AllWithName(key string) []Header {
	var out []Header
	for _, e := range h.entries {
		if e.Key == key {
			out = append(out, e)
		}
	}
	return out
}

// Has reports whether at least one entry is named key.
func (h Headers) Has(key string) bool {
	return slices.ContainsFunc(h.entries, func(e Header) bool { return e.Key == key })
}

// Last returns the most recently added entry named key.
func (h Headers) Last(key string) (Header, bool) {
	for i := len(h.entries) - 1; i >= 0; i-- {
		if h.entries[i].Key == key {
			return h.entries[i], true
		}
	}
	return Header{}, false
}

// Len returns the number of entries.
func (h Headers) Len() int {
	return len(h.entries)
}

// All returns a copy of every entry in order.
func (h Headers) All() []Header {
	return slices.Clone(h.entries)
}

// Clone returns an independent copy.
func (h Headers) Clone() Headers {
	return Headers{entries: slices.Clone(h.entries)}
}
