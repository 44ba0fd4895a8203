package transform

import (
	"fmt"
	"sort"
	"strings"
)

// Recognized option names.
const (
	OptHeaderKey = "headerKey"
	OptIsNegate  = "isNegate"

	OptSourceKey         = "sourceKey"
	OptDestKey           = "destKey"
	OptToMetadata        = "toMetadata"
	OptPreserveKeyInBody = "preserveKeyInBody"
	OptRegexPattern      = "regexPattern"
	OptRegexFormat       = "regexFormat"
	OptRegexDefaultValue = "regexDefaultValue"
)

// Transformation kinds accepted by New.
const (
	KindHeaderFilter = "header_filter"
	KindFieldRouter  = "field_router"
)

// aliases maps legacy connector option names to their current names.
var aliases = map[string]string{
	"isMetadata":         OptToMetadata,
	"regex.pattern":      OptRegexPattern,
	"regex.format":       OptRegexFormat,
	"regex.defaultValue": OptRegexDefaultValue,
}

// Properties is a flat string-keyed option set.
type Properties map[string]string

// lookup returns the value for name, falling back to any legacy alias of it.
func (p Properties) lookup(name string) (string, bool) {
	if v, ok := p[name]; ok {
		return v, true
	}
	for legacy, current := range aliases {
		if current != name {
			continue
		}
		if v, ok := p[legacy]; ok {
			return v, true
		}
	}
	return "", false
}

func (p Properties) optional(name string) *string {
	v, ok := p.lookup(name)
	if !ok {
		return nil
	}
	return &v
}

// boolean accepts only true or false, ignoring case and surrounding space.
func (p Properties) boolean(component, name string) (bool, error) {
	v, ok := p.lookup(name)
	if !ok || v == "" {
		return false, nil
	}
	switch {
	case strings.EqualFold(strings.TrimSpace(v), "true"):
		return true, nil
	case strings.EqualFold(strings.TrimSpace(v), "false"):
		return false, nil
	}
	return false, configError(component, name, v, "is not a boolean")
}

// Keys returns the option names in sorted order.
func (p Properties) Keys() []string {
	keys := make([]string, 0, len(p))
	for k := range p {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// FilterConfigFromProperties reads headerKey and isNegate.
func FilterConfigFromProperties(p Properties) (FilterConfig, error) {
	negate, err := p.boolean(filterComponent, OptIsNegate)
	if err != nil {
		return FilterConfig{}, err
	}
	return FilterConfig{HeaderKey: p[OptHeaderKey], Negate: negate}, nil
}

// RouterConfigFromProperties reads the field router options, accepting the
// legacy names isMetadata, regex.pattern, regex.format and regex.defaultValue.
func RouterConfigFromProperties(p Properties) (RouterConfig, error) {
	toMetadata, err := p.boolean(routerComponent, OptToMetadata)
	if err != nil {
		return RouterConfig{}, err
	}
	preserve, err := p.boolean(routerComponent, OptPreserveKeyInBody)
	if err != nil {
		return RouterConfig{}, err
	}
	return RouterConfig{
		SourceKey:      p[OptSourceKey],
		DestKey:        p[OptDestKey],
		ToMetadata:     toMetadata,
		PreserveInBody: preserve,
		RegexPattern:   p.optional(OptRegexPattern),
		RegexFormat:    p.optional(OptRegexFormat),
		RegexDefault:   p.optional(OptRegexDefaultValue),
	}, nil
}

// New builds the transformation named kind from p.
func New(kind string, p Properties, opts ...RouterOption) (Transformation, error) {
	switch kind {
	case KindHeaderFilter:
		cfg, err := FilterConfigFromProperties(p)
		if err != nil {
			return nil, err
		}
		f, err := NewHeaderFilter(cfg)
		if err != nil {
			return nil, err
		}
		return f, nil
	case KindFieldRouter:
		cfg, err := RouterConfigFromProperties(p)
		if err != nil {
			return nil, err
		}
		r, err := NewFieldRouter(cfg, opts...)
		if err != nil {
			return nil, err
		}
		return r, nil
	default:
		return nil, configError("Transform", "kind", kind,
			fmt.Sprintf("must be %s or %s", KindHeaderFilter, KindFieldRouter))
	}
}
