package component

import (
	"encoding/json"
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type taggedConfig struct {
	Ports     *PortConfig `json:"ports"     schema:"type:ports,description:Port configuration,category:basic"`
	SourceKey string      `json:"sourceKey" schema:"required,type:string,description:Field to route,category:basic"`
	Workers   int         `json:"workers"   schema:"type:int,description:Worker count,min:1,max:64,default:4"`
	Negate    bool        `json:"negate"    schema:"type:bool,description:Invert,default:false"`
	Level     string      `json:"level"     schema:"type:enum,description:Level,enum:debug|info"`
	Untagged  string      `json:"untagged"`
	Broken    string      `json:"broken"    schema:"description:no type"`
	Skipped   string      `json:"-"         schema:"type:string"`
}

func TestParseSchemaTag(t *testing.T) {
	d, err := ParseSchemaTag("required,type:int,description:Count,min:1,max:10,default:5,category:advanced")
	require.NoError(t, err)
	assert.True(t, d.Required)
	assert.Equal(t, "int", d.Type)
	assert.Equal(t, "Count", d.Description)
	assert.Equal(t, 1, *d.Min)
	assert.Equal(t, 10, *d.Max)
	assert.Equal(t, "5", d.Default)

	d, err = ParseSchemaTag("type:enum,enum:a | b|c")
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, d.Enum)

	for _, bad := range []string{"", "description:x", "type:uuid", "type:int,min:x", "type:string,bogus",
		"type:string,category:middle", "type:string,color:red", "type:string,description:"} {
		_, err := ParseSchemaTag(bad)
		assert.Error(t, err, bad)
	}
}

func TestGenerateConfigSchema(t *testing.T) {
	schema := GenerateConfigSchema(reflect.TypeOf(&taggedConfig{}))

	assert.Equal(t, []string{"sourceKey"}, schema.Required)
	assert.ElementsMatch(t, []string{"ports", "sourceKey", "workers", "negate", "level"},
		keysOf(schema.Properties))

	assert.Equal(t, 4, schema.Properties["workers"].Default)
	assert.Equal(t, false, schema.Properties["negate"].Default)
	assert.Equal(t, []string{"debug", "info"}, schema.Properties["level"].Enum)

	ports := schema.Properties["ports"].PortFields
	assert.True(t, ports["subject"].Editable)
	assert.False(t, ports["name"].Editable)

	assert.Empty(t, GenerateConfigSchema(reflect.TypeOf("")).Properties)
}

func keysOf(m map[string]PropertySchema) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}

func TestValidateConfig(t *testing.T) {
	schema := GenerateConfigSchema(reflect.TypeOf(taggedConfig{}))

	var config map[string]any
	require.NoError(t, json.Unmarshal([]byte(`{
		"sourceKey": "a",
		"workers": 4,
		"negate": true,
		"level": "info",
		"ports": {"inputs": []},
		"extra": "ignored"
	}`), &config))
	assert.Empty(t, ValidateConfig(config, schema))

	config = nil
	require.NoError(t, json.Unmarshal([]byte(`{
		"workers": 100,
		"negate": "yes",
		"level": "trace"
	}`), &config))
	errs := ValidateConfig(config, schema)

	codes := map[string]string{}
	for _, e := range errs {
		codes[e.Field] = e.Code
	}
	assert.Equal(t, map[string]string{
		"sourceKey": "required",
		"workers":   "max",
		"negate":    "type",
		"level":     "enum",
	}, codes)
	assert.Equal(t, "level", errs[0].Field)

	errs = ValidateConfig(map[string]any{"sourceKey": "a", "workers": 1.5}, schema)
	require.Len(t, errs, 1)
	assert.Equal(t, "type", errs[0].Code)

	errs = ValidateConfig(map[string]any{"sourceKey": "a", "workers": 0}, schema)
	require.Len(t, errs, 1)
	assert.Equal(t, "min", errs[0].Code)
	assert.Contains(t, errs[0].Error(), ">= 1")
}

func TestSortedPropertyNames(t *testing.T) {
	schema := GenerateConfigSchema(reflect.TypeOf(taggedConfig{}))
	assert.Equal(t, []string{"ports", "sourceKey", "level", "negate", "workers"}, SortedPropertyNames(schema))
}
