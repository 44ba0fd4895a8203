package transform

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360/semtransform/errors"
	"github.com/c360/semtransform/record"
)

const (
	testTopic       = "topic"
	sourceField     = "sourceField"
	sourceValue     = "sourceField value"
	destField       = "destField"
	nestedField     = "nested"
	crnValue        = "crn:v1:bluemix:public:databases-for-mongodb:us-south:a/b:c::"
	crnPattern      = `crn:(?:[^:]+:){3}([^:]+).*`
	crnFormat       = "cloud_$1_logdna"
	crnRoutedResult = "cloud_databases-for-mongodb_logdna"
)

func strPtr(s string) *string { return &s }

func newTestRecord(body map[string]any) *record.Record {
	return &record.Record{
		ID:        "rec-1",
		Topic:     testTopic,
		Partition: record.PartitionOf(1),
		Key:       "key",
		Value:     body,
		Timestamp: time.UnixMilli(1700000000000),
	}
}

func mustRouter(t *testing.T, cfg RouterConfig) *FieldRouter {
	t.Helper()
	r, err := NewFieldRouter(cfg)
	require.NoError(t, err)
	return r
}

func bodyOf(t *testing.T, rec *record.Record) map[string]any {
	t.Helper()
	body, ok := rec.Body()
	require.True(t, ok, "record has no body")
	return body
}

func assertBody(t *testing.T, want map[string]any, rec *record.Record) {
	t.Helper()
	if diff := cmp.Diff(want, bodyOf(t, rec)); diff != "" {
		t.Errorf("body mismatch (-want +got):\n%s", diff)
	}
}

func assertAttributesPreserved(t *testing.T, orig, out *record.Record) {
	t.Helper()
	assert.Equal(t, orig.ID, out.ID)
	assert.Equal(t, orig.Topic, out.Topic)
	assert.Equal(t, *orig.Partition, *out.Partition)
	assert.Equal(t, orig.Key, out.Key)
	assert.True(t, orig.Timestamp.Equal(out.Timestamp))
}

func TestNewFieldRouter_Validation(t *testing.T) {
	tests := []struct {
		name   string
		cfg    RouterConfig
		option string
	}{
		{"empty source", RouterConfig{}, OptSourceKey},
		{"format without pattern", RouterConfig{SourceKey: "a", RegexFormat: strPtr("x")}, OptRegexFormat},
		{"pattern without format", RouterConfig{SourceKey: "a", RegexPattern: strPtr("x")}, OptRegexPattern},
		{"default without pattern", RouterConfig{SourceKey: "a", RegexDefault: strPtr("d")}, OptRegexDefaultValue},
		{"source equals dest", RouterConfig{SourceKey: "a", DestKey: "a"}, OptDestKey},
		{"preserve without dest", RouterConfig{SourceKey: "a", PreserveInBody: true, ToMetadata: true}, OptPreserveKeyInBody},
		{"invalid regex", RouterConfig{SourceKey: "a", RegexPattern: strPtr("(unclosed"), RegexFormat: strPtr("$1")}, OptRegexPattern},
		{"missing group", RouterConfig{SourceKey: "a", RegexPattern: strPtr("(a)"), RegexFormat: strPtr("$2")}, OptRegexFormat},
		{"dangling escape", RouterConfig{SourceKey: "a", RegexPattern: strPtr("a"), RegexFormat: strPtr(`x\`)}, OptRegexFormat},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, err := NewFieldRouter(tt.cfg)
			require.Error(t, err)
			assert.Nil(t, r)

			var cfgErr *ConfigError
			require.ErrorAs(t, err, &cfgErr)
			assert.Equal(t, tt.option, cfgErr.Option)
			assert.ErrorIs(t, err, errors.ErrInvalidConfig)
			assert.True(t, errors.IsInvalid(err))
		})
	}
}

func TestNewFieldRouter_ValidShapes(t *testing.T) {
	valid := []RouterConfig{
		{SourceKey: "a"},
		{SourceKey: "a", DestKey: "b", PreserveInBody: true},
		{SourceKey: "a", ToMetadata: true},
		{SourceKey: "a.b", DestKey: "a"},
		{SourceKey: "a", RegexPattern: strPtr("(x)"), RegexFormat: strPtr("$1"), RegexDefault: strPtr("d")},
		{SourceKey: "a", RegexPattern: strPtr("(?P<word>x)"), RegexFormat: strPtr("${word}")},
	}
	for _, cfg := range valid {
		_, err := NewFieldRouter(cfg)
		assert.NoError(t, err, "%+v", cfg)
	}
}

func TestFieldRouter_EmptyOrMissingBody(t *testing.T) {
	r := mustRouter(t, RouterConfig{SourceKey: sourceField, DestKey: destField})

	for _, value := range []any{nil, map[string]any{}, "not a map", []any{1, 2}} {
		rec := newTestRecord(nil)
		rec.Value = value
		out, outcome := r.ApplyOutcome(rec)
		assert.Same(t, rec, out)
		assert.Equal(t, OutcomeNoBody, outcome)
	}
}

func TestFieldRouter_SourceNotFound(t *testing.T) {
	tests := []struct {
		name string
		key  string
		body map[string]any
	}{
		{"top level missing", sourceField, map[string]any{"other": "x"}},
		{"parent missing", "nested.sourceField", map[string]any{"other": "x"}},
		{"parent not a map", "nested.sourceField", map[string]any{nestedField: "scalar"}},
		{"nested empty", "nested.sourceField", map[string]any{nestedField: map[string]any{}}},
		{"nested leaf missing", "nested.sourceField", map[string]any{nestedField: map[string]any{"x": 1}}},
		{"empty segment", "nested..sourceField", map[string]any{nestedField: map[string]any{sourceField: "v"}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := mustRouter(t, RouterConfig{SourceKey: tt.key, DestKey: destField, ToMetadata: true})
			rec := newTestRecord(tt.body)
			out, outcome := r.ApplyOutcome(rec)
			assert.Same(t, rec, out)
			assert.Equal(t, OutcomeNotFound, outcome)
		})
	}
}

func TestFieldRouter_ContainerLeafUntouched(t *testing.T) {
	r := mustRouter(t, RouterConfig{SourceKey: nestedField, DestKey: destField})
	rec := newTestRecord(map[string]any{nestedField: map[string]any{sourceField: sourceValue}})

	out, outcome := r.ApplyOutcome(rec)
	assert.Same(t, rec, out)
	assert.Equal(t, OutcomeContainer, outcome)
}

func TestFieldRouter_RenameTopLevel(t *testing.T) {
	r := mustRouter(t, RouterConfig{SourceKey: sourceField, DestKey: destField})
	rec := newTestRecord(map[string]any{sourceField: sourceValue, "other": 1})

	out := r.Apply(rec)
	require.NotSame(t, rec, out)
	assertBody(t, map[string]any{destField: sourceValue, "other": 1}, out)
	assertAttributesPreserved(t, rec, out)

	// input untouched
	assertBody(t, map[string]any{sourceField: sourceValue, "other": 1}, rec)
}

func TestFieldRouter_NestedToTopLevel(t *testing.T) {
	r := mustRouter(t, RouterConfig{SourceKey: "nested.sourceField", DestKey: destField})
	rec := newTestRecord(map[string]any{nestedField: map[string]any{sourceField: "v"}})

	out := r.Apply(rec)
	assertBody(t, map[string]any{nestedField: map[string]any{}, destField: "v"}, out)
	assertBody(t, map[string]any{nestedField: map[string]any{sourceField: "v"}}, rec)
}

func TestFieldRouter_DeeplyNestedPreserve(t *testing.T) {
	r := mustRouter(t, RouterConfig{SourceKey: "a.b.c", DestKey: destField, PreserveInBody: true})
	rec := newTestRecord(map[string]any{"a": map[string]any{"b": map[string]any{"c": 7, "d": 8}}})

	out := r.Apply(rec)
	assertBody(t, map[string]any{
		"a":       map[string]any{"b": map[string]any{"c": 7, "d": 8}},
		destField: 7,
	}, out)
}

func TestFieldRouter_DestOverwritesParent(t *testing.T) {
	r := mustRouter(t, RouterConfig{SourceKey: "nested.sourceField", DestKey: nestedField})
	rec := newTestRecord(map[string]any{nestedField: map[string]any{sourceField: "v"}})

	out := r.Apply(rec)
	assertBody(t, map[string]any{nestedField: "v"}, out)
}

func TestFieldRouter_DestKeyIsLiteral(t *testing.T) {
	r := mustRouter(t, RouterConfig{SourceKey: sourceField, DestKey: "dotted.dest"})
	out := r.Apply(newTestRecord(map[string]any{sourceField: "v"}))
	assertBody(t, map[string]any{"dotted.dest": "v"}, out)
}

func TestFieldRouter_RegexSubstitution(t *testing.T) {
	r := mustRouter(t, RouterConfig{
		SourceKey:    sourceField,
		RegexPattern: strPtr(crnPattern),
		RegexFormat:  strPtr(crnFormat),
	})
	rec := newTestRecord(map[string]any{sourceField: crnValue})

	out, outcome := r.ApplyOutcome(rec)
	assert.Equal(t, OutcomeModified, outcome)
	assertBody(t, map[string]any{sourceField: crnRoutedResult}, out)
	assertBody(t, map[string]any{sourceField: crnValue}, rec)
}

func TestFieldRouter_RegexToDestination(t *testing.T) {
	r := mustRouter(t, RouterConfig{
		SourceKey:    "nested.sourceField",
		DestKey:      destField,
		RegexPattern: strPtr(crnPattern),
		RegexFormat:  strPtr(crnFormat),
	})
	rec := newTestRecord(map[string]any{nestedField: map[string]any{sourceField: crnValue}})

	out := r.Apply(rec)
	assertBody(t, map[string]any{nestedField: map[string]any{}, destField: crnRoutedResult}, out)
}

func TestFieldRouter_RegexNoMatchNoDefault(t *testing.T) {
	r := mustRouter(t, RouterConfig{
		SourceKey:    sourceField,
		DestKey:      destField,
		ToMetadata:   true,
		RegexPattern: strPtr("noregex"),
		RegexFormat:  strPtr("x"),
	})
	rec := newTestRecord(map[string]any{sourceField: "/var/log/kublet.log"})
	before, err := record.Marshal(rec)
	require.NoError(t, err)

	out, outcome := r.ApplyOutcome(rec)
	assert.Same(t, rec, out)
	assert.Equal(t, OutcomeNoMatch, outcome)

	after, err := record.Marshal(out)
	require.NoError(t, err)
	assert.Equal(t, string(before), string(after))
}

func TestFieldRouter_RegexMustMatchWholeValue(t *testing.T) {
	r := mustRouter(t, RouterConfig{
		SourceKey:    sourceField,
		RegexPattern: strPtr("log"),
		RegexFormat:  strPtr("LOG"),
	})
	rec := newTestRecord(map[string]any{sourceField: "/var/log/kublet.log"})
	assert.Same(t, rec, r.Apply(rec))
}

func TestFieldRouter_RegexSkipsEmptyMatchAfterMatch(t *testing.T) {
	r := mustRouter(t, RouterConfig{
		SourceKey:    sourceField,
		RegexPattern: strPtr("a*"),
		RegexFormat:  strPtr("X"),
	})
	out := r.Apply(newTestRecord(map[string]any{sourceField: "aaa"}))
	assertBody(t, map[string]any{sourceField: "X"}, out)
}

func TestFieldRouter_TrailingDelimiterInSourceKey(t *testing.T) {
	r := mustRouter(t, RouterConfig{SourceKey: "a.", DestKey: "d"})
	out, outcome := r.ApplyOutcome(newTestRecord(map[string]any{"a": "v"}))
	assert.Equal(t, OutcomeModified, outcome)
	assertBody(t, map[string]any{"d": "v"}, out)

	nested := mustRouter(t, RouterConfig{SourceKey: "nested.sourceField..", DestKey: destField})
	out = nested.Apply(newTestRecord(map[string]any{nestedField: map[string]any{sourceField: "v"}}))
	assertBody(t, map[string]any{nestedField: map[string]any{}, destField: "v"}, out)
}

func TestFieldRouter_RegexDefault(t *testing.T) {
	r := mustRouter(t, RouterConfig{
		SourceKey:    sourceField,
		DestKey:      destField,
		RegexPattern: strPtr(crnPattern),
		RegexFormat:  strPtr(crnFormat),
		RegexDefault: strPtr("cloud_default_logdna"),
	})
	out, outcome := r.ApplyOutcome(newTestRecord(map[string]any{sourceField: "/var/log/kublet.log"}))
	assert.Equal(t, OutcomeModified, outcome)
	assertBody(t, map[string]any{destField: "cloud_default_logdna"}, out)
}

func TestFieldRouter_RegexStringifiesScalars(t *testing.T) {
	r := mustRouter(t, RouterConfig{
		SourceKey:    "code",
		RegexPattern: strPtr(`(\d)(\d+)`),
		RegexFormat:  strPtr("$1-$2"),
	})

	out := r.Apply(newTestRecord(map[string]any{"code": json.Number("4042")}))
	assertBody(t, map[string]any{"code": "4-042"}, out)

	out = r.Apply(newTestRecord(map[string]any{"code": 12}))
	assertBody(t, map[string]any{"code": "1-2"}, out)
}

func TestFieldRouter_RegexIdentityIsUnchanged(t *testing.T) {
	r := mustRouter(t, RouterConfig{
		SourceKey:    sourceField,
		RegexPattern: strPtr("(.*)"),
		RegexFormat:  strPtr("$1"),
	})
	rec := newTestRecord(map[string]any{sourceField: sourceValue})
	out, outcome := r.ApplyOutcome(rec)
	assert.Same(t, rec, out)
	assert.Equal(t, OutcomeUnchanged, outcome)
}

func TestFieldRouter_RoundTripWithoutDest(t *testing.T) {
	r := mustRouter(t, RouterConfig{SourceKey: "nested.sourceField"})
	rec := newTestRecord(map[string]any{nestedField: map[string]any{sourceField: 3.5}})

	out, outcome := r.ApplyOutcome(rec)
	assert.Same(t, rec, out)
	assert.Equal(t, OutcomeUnchanged, outcome)
}

func TestFieldRouter_MetadataMove(t *testing.T) {
	r := mustRouter(t, RouterConfig{SourceKey: sourceField, ToMetadata: true})
	rec := newTestRecord(map[string]any{sourceField: sourceValue, "keep": true})
	rec.Headers.Add(sourceField, "stale")
	rec.Headers.Add("other", "x")

	out := r.Apply(rec)
	assertBody(t, map[string]any{"keep": true}, out)
	assert.Equal(t, []record.Header{{Key: sourceField, Value: sourceValue}}, out.Headers.AllWithName(sourceField))
	assert.True(t, out.Headers.Has("other"))
	assertAttributesPreserved(t, rec, out)

	// the input keeps its body and headers
	assertBody(t, map[string]any{sourceField: sourceValue, "keep": true}, rec)
	assert.Equal(t, []record.Header{{Key: sourceField, Value: "stale"}}, rec.Headers.AllWithName(sourceField))
}

func TestFieldRouter_NestedMetadataMove(t *testing.T) {
	r := mustRouter(t, RouterConfig{SourceKey: "nested.sourceField", ToMetadata: true})
	rec := newTestRecord(map[string]any{nestedField: map[string]any{sourceField: sourceValue}})

	out := r.Apply(rec)
	assertBody(t, map[string]any{nestedField: map[string]any{}}, out)
	last, ok := out.Headers.Last(sourceField)
	require.True(t, ok)
	assert.Equal(t, sourceValue, last.Value)
}

func TestFieldRouter_MetadataWithRename(t *testing.T) {
	r := mustRouter(t, RouterConfig{SourceKey: sourceField, DestKey: destField, ToMetadata: true})
	rec := newTestRecord(map[string]any{sourceField: sourceValue})

	out := r.Apply(rec)
	assertBody(t, map[string]any{}, out)
	assert.False(t, out.Headers.Has(sourceField))
	last, ok := out.Headers.Last(destField)
	require.True(t, ok)
	assert.Equal(t, sourceValue, last.Value)
}

func TestFieldRouter_MetadataWithRenameAndPreserve(t *testing.T) {
	r := mustRouter(t, RouterConfig{
		SourceKey:      sourceField,
		DestKey:        destField,
		ToMetadata:     true,
		PreserveInBody: true,
	})
	rec := newTestRecord(map[string]any{sourceField: sourceValue})

	out := r.Apply(rec)
	assertBody(t, map[string]any{sourceField: sourceValue}, out)
	last, ok := out.Headers.Last(destField)
	require.True(t, ok)
	assert.Equal(t, sourceValue, last.Value)
}

func TestFieldRouter_Idempotent(t *testing.T) {
	r := mustRouter(t, RouterConfig{SourceKey: "nested.sourceField", DestKey: destField})
	rec := newTestRecord(map[string]any{nestedField: map[string]any{sourceField: "v", "x": 1}})

	once := r.Apply(rec)
	twice := r.Apply(once)

	assert.Same(t, once, twice)
	if diff := cmp.Diff(bodyOf(t, once), bodyOf(t, twice)); diff != "" {
		t.Errorf("second apply changed body:\n%s", diff)
	}
}

func TestFieldRouter_ConcurrentApply(t *testing.T) {
	r := mustRouter(t, RouterConfig{SourceKey: "nested.sourceField", DestKey: destField, ToMetadata: true})
	rec := newTestRecord(map[string]any{nestedField: map[string]any{sourceField: "v"}})

	done := make(chan *record.Record, 16)
	for i := 0; i < cap(done); i++ {
		go func() { done <- r.Apply(rec) }()
	}
	for i := 0; i < cap(done); i++ {
		out := <-done
		assertBody(t, map[string]any{nestedField: map[string]any{}}, out)
	}
	assertBody(t, map[string]any{nestedField: map[string]any{sourceField: "v"}}, rec)
}

func TestFieldRouter_NilRecord(t *testing.T) {
	r := mustRouter(t, RouterConfig{SourceKey: sourceField})
	assert.Nil(t, r.Apply(nil))
}
