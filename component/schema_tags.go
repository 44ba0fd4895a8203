// Schema tags generate a ConfigSchema from struct tags at init time:
//
//	type Config struct {
//	    SourceKey string `json:"sourceKey" schema:"required,type:string,description:Field to route"`
//	    Workers   int    `json:"workers"   schema:"type:int,description:Worker count,min:1,default:4"`
//	}
//
//	var schema = component.GenerateConfigSchema(reflect.TypeOf(Config{}))
//
// Directives are comma-separated. Key-value directives use a colon (type,
// description, category, default, min, max, enum with pipe-separated values);
// flags have no value (readonly, editable, hidden, required).

package component

import (
	"fmt"
	"reflect"
	"slices"
	"strconv"
	"strings"

	"github.com/c360/semtransform/errors"
)

var validSchemaTypes = []string{"string", "int", "bool", "float", "enum", "array", "object", "ports"}

// SchemaDirectives represents parsed schema tag directives
type SchemaDirectives struct {
	Type        string
	Description string

	Category string // basic or advanced
	ReadOnly bool
	Editable bool
	Hidden   bool

	Default  any // raw tag text until convertDefault runs
	Required bool
	Min      *int
	Max      *int
	Enum     []string
}

// PortFieldInfo describes metadata for PortDefinition fields
type PortFieldInfo struct {
	Type     string `json:"type"`
	Editable bool   `json:"editable"`
}

func tagError(method, format string, args ...any) error {
	return errors.WrapInvalid(fmt.Errorf(format, args...), "SchemaTag", method, "tag parsing")
}

// ParseSchemaTag parses a schema struct tag into directives. The type
// directive is required.
func ParseSchemaTag(tag string) (SchemaDirectives, error) {
	var directives SchemaDirectives
	if tag == "" {
		return directives, tagError("ParseSchemaTag", "empty schema tag")
	}

	for _, part := range strings.Split(tag, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}

		key, value, hasValue := strings.Cut(part, ":")
		var err error
		if hasValue {
			err = parseKeyValueDirective(strings.TrimSpace(key), strings.TrimSpace(value), &directives)
		} else {
			err = parseBooleanFlag(part, &directives)
		}
		if err != nil {
			return directives, err
		}
	}

	if directives.Type == "" {
		return directives, tagError("ParseSchemaTag", "type directive is required")
	}
	return directives, nil
}

func parseBooleanFlag(flag string, directives *SchemaDirectives) error {
	switch flag {
	case "readonly":
		directives.ReadOnly = true
	case "editable":
		directives.Editable = true
	case "hidden":
		directives.Hidden = true
	case "required":
		directives.Required = true
	default:
		return tagError("parseBooleanFlag", "unknown boolean flag: %s", flag)
	}
	return nil
}

func parseKeyValueDirective(key, value string, directives *SchemaDirectives) error {
	if value == "" {
		return tagError("parseKeyValueDirective", "empty value for directive: %s", key)
	}

	switch key {
	case "type":
		if !slices.Contains(validSchemaTypes, value) {
			return tagError("parseKeyValueDirective", "invalid type: %s", value)
		}
		directives.Type = value
	case "description":
		directives.Description = value
	case "category":
		if value != "basic" && value != "advanced" {
			return tagError("parseKeyValueDirective", "invalid category: %s (must be 'basic' or 'advanced')", value)
		}
		directives.Category = value
	case "default":
		directives.Default = value
	case "min", "max":
		n, err := strconv.Atoi(value)
		if err != nil {
			return tagError("parseKeyValueDirective", "invalid %s value: %s", key, value)
		}
		if key == "min" {
			directives.Min = &n
		} else {
			directives.Max = &n
		}
	case "enum":
		directives.Enum = strings.Split(value, "|")
		for i := range directives.Enum {
			directives.Enum[i] = strings.TrimSpace(directives.Enum[i])
		}
	default:
		return tagError("parseKeyValueDirective", "unknown directive: %s", key)
	}
	return nil
}

type taggedField struct {
	name       string
	directives SchemaDirectives
}

// taggedFields returns the json name and schema directives of every struct
// field carrying both tags. onMissing, when set, is called for fields with
// a json name but no schema tag.
func taggedFields(t reflect.Type, onMissing func(name string)) []taggedField {
	var out []taggedField
	for i := range t.NumField() {
		field := t.Field(i)
		name, _, _ := strings.Cut(field.Tag.Get("json"), ",")
		if name == "" || name == "-" {
			continue
		}
		tag := field.Tag.Get("schema")
		if tag == "" {
			if onMissing != nil {
				onMissing(name)
			}
			continue
		}
		directives, err := ParseSchemaTag(tag)
		if err != nil {
			continue
		}
		out = append(out, taggedField{name, directives})
	}
	return out
}

// GenerateConfigSchema builds a ConfigSchema from the json and schema tags of
// a struct type. Fields without both tags, or with an invalid schema tag, are
// skipped.
func GenerateConfigSchema(configType reflect.Type) ConfigSchema {
	schema := ConfigSchema{
		Properties: make(map[string]PropertySchema),
		Required:   []string{},
	}

	if configType.Kind() == reflect.Ptr {
		configType = configType.Elem()
	}
	if configType.Kind() != reflect.Struct {
		return schema
	}

	for _, f := range taggedFields(configType, nil) {
		d := f.directives
		description := d.Description
		if description == "" {
			description = f.name
		}

		prop := PropertySchema{
			Type:        d.Type,
			Description: description,
			Category:    d.Category,
			Default:     convertDefault(d.Default, d.Type),
			Minimum:     d.Min,
			Maximum:     d.Max,
			Enum:        d.Enum,
		}
		if d.Type == "ports" {
			prop.PortFields = GeneratePortFieldSchema()
		}

		schema.Properties[f.name] = prop
		if d.Required {
			schema.Required = append(schema.Required, f.name)
		}
	}

	return schema
}

// convertDefault converts a default value string to the field's type. An
// unconvertible default becomes nil.
func convertDefault(value any, fieldType string) any {
	raw, ok := value.(string)
	if !ok {
		return value
	}

	switch fieldType {
	case "int":
		if n, err := strconv.Atoi(raw); err == nil {
			return n
		}
		return nil
	case "bool":
		if b, err := strconv.ParseBool(raw); err == nil {
			return b
		}
		return nil
	case "float":
		if f, err := strconv.ParseFloat(raw, 64); err == nil {
			return f
		}
		return nil
	case "array":
		return []string{raw}
	case "object", "ports":
		return nil
	default:
		return raw
	}
}

// GeneratePortFieldSchema describes which PortDefinition fields are editable.
// Untagged fields are read-only strings.
func GeneratePortFieldSchema() map[string]PortFieldInfo {
	fields := make(map[string]PortFieldInfo)
	tagged := taggedFields(reflect.TypeOf(PortDefinition{}), func(name string) {
		fields[name] = PortFieldInfo{Type: "string"}
	})
	for _, f := range tagged {
		fields[f.name] = PortFieldInfo{Type: f.directives.Type, Editable: f.directives.Editable}
	}
	return fields
}
