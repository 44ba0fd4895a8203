package transform

import (
	"log/slog"
	"maps"
	"regexp"

	"github.com/c360/semtransform/record"
)

const routerComponent = "FieldRouter"

// RouterConfig configures a FieldRouter. The regex options are pointers so
// that an empty string can be configured explicitly.
type RouterConfig struct {
	SourceKey      string
	DestKey        string
	ToMetadata     bool
	PreserveInBody bool
	RegexPattern   *string
	RegexFormat    *string
	RegexDefault   *string
}

// FieldRouter moves a scalar body field to a new body field or a header,
// optionally rewriting it with a regular expression first.
type FieldRouter struct {
	cfg      RouterConfig
	source   DottedKey
	pattern  *regexp.Regexp
	full     *regexp.Regexp
	template string
	logger   *slog.Logger
}

// RouterOption customizes a FieldRouter.
type RouterOption func(*FieldRouter)

// WithLogger logs pass-through outcomes at debug level.
func WithLogger(logger *slog.Logger) RouterOption {
	return func(r *FieldRouter) {
		r.logger = logger
	}
}

// NewFieldRouter validates cfg and builds the router.
func NewFieldRouter(cfg RouterConfig, opts ...RouterOption) (*FieldRouter, error) {
	if cfg.SourceKey == "" {
		return nil, configError(routerComponent, OptSourceKey, nil, "must not be empty")
	}
	if cfg.RegexPattern == nil && cfg.RegexFormat != nil {
		return nil, configError(routerComponent, OptRegexFormat, *cfg.RegexFormat,
			"is configured but "+OptRegexPattern+" is missing")
	}
	if cfg.RegexFormat == nil && cfg.RegexPattern != nil {
		return nil, configError(routerComponent, OptRegexPattern, *cfg.RegexPattern,
			"is configured but "+OptRegexFormat+" is missing")
	}
	if cfg.RegexDefault != nil && cfg.RegexPattern == nil {
		return nil, configError(routerComponent, OptRegexDefaultValue, *cfg.RegexDefault,
			"is configured but "+OptRegexPattern+" is missing")
	}
	if cfg.DestKey != "" && cfg.DestKey == cfg.SourceKey {
		return nil, configError(routerComponent, OptDestKey, cfg.DestKey, "must differ from "+OptSourceKey)
	}
	if cfg.PreserveInBody && cfg.DestKey == "" {
		return nil, configError(routerComponent, OptPreserveKeyInBody, true, "requires "+OptDestKey)
	}

	r := &FieldRouter{
		cfg:    cfg,
		source: ParseKey(cfg.SourceKey),
		logger: slog.New(slog.DiscardHandler),
	}

	if cfg.RegexPattern != nil {
		pattern, err := regexp.Compile(*cfg.RegexPattern)
		if err != nil {
			return nil, configError(routerComponent, OptRegexPattern, *cfg.RegexPattern, err.Error())
		}
		template, err := compileTemplate(*cfg.RegexFormat, pattern)
		if err != nil {
			return nil, configError(routerComponent, OptRegexFormat, *cfg.RegexFormat, err.Error())
		}
		r.pattern = pattern
		r.full = regexp.MustCompile(`^(?:` + *cfg.RegexPattern + `)$`)
		r.template = template
	}

	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// Config returns the router configuration.
func (r *FieldRouter) Config() RouterConfig {
	return r.cfg
}

// Apply returns rec itself when nothing changed, otherwise a modified copy.
// The input record and its body maps are never mutated.
func (r *FieldRouter) Apply(rec *record.Record) *record.Record {
	out, _ := r.ApplyOutcome(rec)
	return out
}

// ApplyOutcome implements Reporter.
func (r *FieldRouter) ApplyOutcome(rec *record.Record) (*record.Record, Outcome) {
	if rec == nil {
		return nil, OutcomeNoBody
	}
	body, ok := rec.Body()
	if !ok || len(body) == 0 {
		return rec, OutcomeNoBody
	}

	ctx, ok := r.source.resolve(body)
	if !ok || len(ctx) == 0 {
		return r.pass(rec, OutcomeNotFound)
	}
	leaf := r.source.Leaf()
	value, ok := ctx[leaf]
	if !ok {
		return r.pass(rec, OutcomeNotFound)
	}
	if record.KindOf(value) == record.KindContainer {
		return r.pass(rec, OutcomeContainer)
	}

	changed := false
	if r.pattern != nil {
		s := record.Stringify(value)
		var rewritten string
		switch {
		case r.full.MatchString(s):
			rewritten = r.pattern.ReplaceAllString(s, r.template)
		case r.cfg.RegexDefault != nil:
			rewritten = *r.cfg.RegexDefault
		default:
			return r.pass(rec, OutcomeNoMatch)
		}
		if orig, isString := value.(string); !isString || orig != rewritten {
			changed = true
		}
		value = rewritten
	}

	if !changed && r.cfg.DestKey == "" && !r.cfg.ToMetadata {
		return rec, OutcomeUnchanged
	}

	root, container := copyPath(body, r.source.Parent())
	activeKey := leaf

	if r.cfg.DestKey != "" {
		root[r.cfg.DestKey] = value
		if !r.cfg.PreserveInBody {
			delete(container, leaf)
		}
		container = root
		activeKey = r.cfg.DestKey
	} else {
		container[leaf] = value
	}

	headers := rec.Headers
	if r.cfg.ToMetadata {
		headers = headers.Clone()
		headers.Remove(activeKey)
		headers.Add(activeKey, container[activeKey])
		delete(container, activeKey)
	}

	return rec.With(root, headers), OutcomeModified
}

func (r *FieldRouter) pass(rec *record.Record, outcome Outcome) (*record.Record, Outcome) {
	r.logger.Debug("Record returned unchanged",
		"component", routerComponent,
		"source_key", r.cfg.SourceKey,
		"reason", string(outcome),
		"record_id", rec.ID)
	return rec, outcome
}

// copyPath shallow-copies body and every map on the path to the context map,
// returning the new root and the copied context map.
func copyPath(body map[string]any, parents []string) (map[string]any, map[string]any) {
	root := maps.Clone(body)
	cur := root
	for _, seg := range parents {
		child := maps.Clone(cur[seg].(map[string]any))
		cur[seg] = child
		cur = child
	}
	return root, cur
}
