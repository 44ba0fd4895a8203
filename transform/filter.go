package transform

import (
	"github.com/c360/semtransform/record"
)

const filterComponent = "HeaderFilter"

// FilterConfig configures a HeaderFilter.
type FilterConfig struct {
	HeaderKey string
	Negate    bool
}

// HeaderFilter admits or drops records by the presence of a header. By
// default a record carrying the header is dropped. With Negate set, a record
// lacking it is dropped instead.
type HeaderFilter struct {
	cfg FilterConfig
}

// NewHeaderFilter validates cfg and builds the filter.
func NewHeaderFilter(cfg FilterConfig) (*HeaderFilter, error) {
	if cfg.HeaderKey == "" {
		return nil, configError(filterComponent, OptHeaderKey, nil, "must not be empty")
	}
	return &HeaderFilter{cfg: cfg}, nil
}

// Config returns the filter configuration.
func (f *HeaderFilter) Config() FilterConfig {
	return f.cfg
}

// Apply returns rec itself when admitted and nil when dropped.
func (f *HeaderFilter) Apply(rec *record.Record) *record.Record {
	out, _ := f.ApplyOutcome(rec)
	return out
}

// ApplyOutcome implements Reporter.
func (f *HeaderFilter) ApplyOutcome(rec *record.Record) (*record.Record, Outcome) {
	if rec == nil {
		return nil, OutcomeDropped
	}
	if rec.Headers.Has(f.cfg.HeaderKey) == f.cfg.Negate {
		return rec, OutcomePassed
	}
	return nil, OutcomeDropped
}
