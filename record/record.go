// Package record defines the unit of work flowing through SemTransform
// pipelines: a structured body plus an ordered set of headers and the
// routing attributes a transformation must carry over unchanged.
package record

import (
	"time"
)

// Record is a single message. Value normally holds a body tree of
// map[string]any nodes and scalar leaves, but any value is accepted and
// transformations treat a non-map value as having no body.
type Record struct {
	ID          string
	Topic       string
	Partition   *int32
	Key         any
	KeySchema   string
	ValueSchema string
	Value       any
	Timestamp   time.Time
	Headers     Headers
}

// Body returns the value as a body map when it is one.
func (r *Record) Body() (map[string]any, bool) {
	if r == nil {
		return nil, false
	}
	body, ok := r.Value.(map[string]any)
	return body, ok
}

// With returns a copy of r carrying value and headers in place of its own.
// Every other attribute is duplicated unchanged.
func (r *Record) With(value any, headers Headers) *Record {
	out := *r
	out.Value = value
	out.Headers = headers
	if r.Partition != nil {
		p := *r.Partition
		out.Partition = &p
	}
	return &out
}

// PartitionOf is a convenience for building records with a partition.
func PartitionOf(p int32) *int32 {
	return &p
}

// Kind tags a body value as a scalar leaf or a nested container.
type Kind int

const (
	// KindScalar is any value that is not a string-keyed map.
	KindScalar Kind = iota
	// KindContainer is a nested string-keyed map.
	KindContainer
)

func (k Kind) String() string {
	if k == KindContainer {
		return "container"
	}
	return "scalar"
}

// KindOf classifies v.
func KindOf(v any) Kind {
	if _, ok := v.(map[string]any); ok {
		return KindContainer
	}
	return KindScalar
}
