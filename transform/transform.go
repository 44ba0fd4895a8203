// Package transform implements the per-record transformations hosted by
// SemTransform processors. Transformations are configured once, are safe for
// concurrent use and never block. A nil result means the record is dropped.
package transform

import (
	"github.com/c360/semtransform/record"
)

// Transformation applies a per-record change.
type Transformation interface {
	Apply(rec *record.Record) *record.Record
}

// Outcome names how a single Apply call ended.
type Outcome string

// Outcomes reported by the transformations in this package.
const (
	OutcomePassed    Outcome = "passed"     // returned unchanged by design
	OutcomeDropped   Outcome = "dropped"    // filtered out
	OutcomeNoBody    Outcome = "no_body"    // body absent, empty or not a map
	OutcomeNotFound  Outcome = "not_found"  // source path or leaf missing
	OutcomeContainer Outcome = "container"  // source is a nested map
	OutcomeNoMatch   Outcome = "no_match"   // regex mismatch without default
	OutcomeModified  Outcome = "modified"   // a changed copy was returned
	OutcomeUnchanged Outcome = "unchanged"  // source found, nothing to change
)

// Reporter is implemented by transformations that can explain their result.
type Reporter interface {
	ApplyOutcome(rec *record.Record) (*record.Record, Outcome)
}

// Run applies t and reports the outcome, deriving one from the result when
// t does not implement Reporter.
func Run(t Transformation, rec *record.Record) (*record.Record, Outcome) {
	if r, ok := t.(Reporter); ok {
		return r.ApplyOutcome(rec)
	}
	out := t.Apply(rec)
	switch {
	case out == nil:
		return nil, OutcomeDropped
	case out == rec:
		return out, OutcomePassed
	default:
		return out, OutcomeModified
	}
}

// Chain applies transformations in order, stopping at the first drop.
type Chain []Transformation

// Apply implements Transformation.
func (c Chain) Apply(rec *record.Record) *record.Record {
	out, _ := c.ApplyOutcome(rec)
	return out
}

// ApplyOutcome reports OutcomeDropped if any step dropped the record,
// OutcomeModified if any step changed it and OutcomePassed otherwise.
func (c Chain) ApplyOutcome(rec *record.Record) (*record.Record, Outcome) {
	cur := rec
	for _, t := range c {
		cur = t.Apply(cur)
		if cur == nil {
			return nil, OutcomeDropped
		}
	}
	if cur != rec {
		return cur, OutcomeModified
	}
	return cur, OutcomePassed
}
