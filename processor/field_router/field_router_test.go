package fieldrouter

import (
	"encoding/json"
	stderrors "errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360/semtransform/component"
	"github.com/c360/semtransform/errors"
	"github.com/c360/semtransform/processor/recordproc"
	"github.com/c360/semtransform/record"
	"github.com/c360/semtransform/transform"
)

func newProcessor(t *testing.T, raw string) *recordproc.Processor {
	t.Helper()
	comp, err := NewProcessor(json.RawMessage(raw), component.Dependencies{})
	require.NoError(t, err)
	proc, ok := comp.(*recordproc.Processor)
	require.True(t, ok, "factory returns a record processor")
	return proc
}

func TestNewProcessor_Defaults(t *testing.T) {
	proc := newProcessor(t, `{"sourceKey":"user.id"}`)

	assert.Equal(t, "field_router", proc.Name())
	assert.Equal(t, "records.in", proc.InputPorts()[0].Config.(component.NATSPort).Subject)
	assert.Equal(t, "records.routed", proc.OutputPorts()[0].Config.(component.NATSPort).Subject)

	router, ok := proc.Transformation().(*transform.FieldRouter)
	require.True(t, ok)
	assert.Equal(t, transform.RouterConfig{SourceKey: "user.id"}, router.Config())
}

func TestConfig_RouterConfig(t *testing.T) {
	var cfg Config
	require.NoError(t, json.Unmarshal([]byte(`{
		"sourceKey": "crn",
		"destKey": "app",
		"toMetadata": true,
		"preserveKeyInBody": true,
		"regexPattern": "crn:(\\w+)",
		"regexFormat": "app_$1",
		"regexDefaultValue": ""
	}`), &cfg))

	got := cfg.RouterConfig()
	assert.Equal(t, "crn", got.SourceKey)
	assert.Equal(t, "app", got.DestKey)
	assert.True(t, got.ToMetadata)
	assert.True(t, got.PreserveInBody)
	require.NotNil(t, got.RegexDefault)
	assert.Equal(t, "", *got.RegexDefault, "an empty default is still configured")
	assert.Equal(t, "app_$1", *got.RegexFormat)
}

func TestNewProcessor_InvalidConfig(t *testing.T) {
	tests := []struct {
		name   string
		raw    string
		option string // offending option reported by the router, if any
	}{
		{name: "missing source key", raw: `{}`},
		{name: "malformed json", raw: `{"sourceKey":`},
		{name: "negative queue", raw: `{"sourceKey":"a","queueSize":-5}`},
		{name: "format without pattern", raw: `{"sourceKey":"a","regexFormat":"$1"}`, option: transform.OptRegexFormat},
		{name: "pattern without format", raw: `{"sourceKey":"a","regexPattern":"(.*)"}`, option: transform.OptRegexPattern},
		{name: "bad pattern", raw: `{"sourceKey":"a","regexPattern":"(","regexFormat":"x"}`, option: transform.OptRegexPattern},
		{name: "preserve without dest", raw: `{"sourceKey":"a","preserveKeyInBody":true}`, option: transform.OptPreserveKeyInBody},
		{name: "dest equals source", raw: `{"sourceKey":"a","destKey":"a"}`, option: transform.OptDestKey},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			comp, err := NewProcessor(json.RawMessage(tt.raw), component.Dependencies{})
			require.Error(t, err)
			assert.Nil(t, comp)
			assert.True(t, errors.IsInvalid(err), "got %v", err)

			if tt.option != "" {
				var cfgErr *transform.ConfigError
				require.True(t, stderrors.As(err, &cfgErr))
				assert.Equal(t, tt.option, cfgErr.Option)
			}
		})
	}
}

func TestNewProcessor_RoutesToMetadata(t *testing.T) {
	proc := newProcessor(t, `{
		"sourceKey": "crn",
		"destKey": "app",
		"toMetadata": true,
		"regexPattern": "crn:v1:([a-z]+):.*",
		"regexFormat": "app_$1"
	}`)

	in := &record.Record{ID: "r1", Value: map[string]any{"crn": "crn:v1:billing:x", "n": "1"}}
	out := proc.Transformation().Apply(in)
	require.NotNil(t, out)
	require.NotSame(t, in, out)

	body, ok := out.Body()
	require.True(t, ok)
	if diff := cmp.Diff(map[string]any{"n": "1"}, body); diff != "" {
		t.Errorf("body mismatch (-want +got):\n%s", diff)
	}
	header, ok := out.Headers.Last("app")
	require.True(t, ok)
	assert.Equal(t, "app_billing", header.Value)

	inBody, _ := in.Body()
	assert.Contains(t, inBody, "crn", "input record is not mutated")
}

func TestRegister(t *testing.T) {
	registry := component.NewRegistry()
	require.NoError(t, Register(registry))

	schema, err := registry.GetComponentSchema("field_router")
	require.NoError(t, err)
	assert.Equal(t, []string{"sourceKey"}, schema.Required)
	for _, name := range []string{
		"destKey", "toMetadata", "preserveKeyInBody", "regexPattern", "regexFormat", "regexDefaultValue",
	} {
		assert.Contains(t, schema.Properties, name)
	}

	errs := component.ValidateConfig(map[string]any{"sourceKey": "a", "workers": 0}, schema)
	require.Len(t, errs, 1)
	assert.Equal(t, "workers", errs[0].Field)
}
