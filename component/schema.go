package component

import (
	"fmt"
	"slices"
	"sort"
)

// ValidationError reports one configuration field that failed validation.
// Code is one of required, type, enum, min or max.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
}

// Error implements the error interface
func (e ValidationError) Error() string {
	return e.Message
}

// ValidateConfig checks a decoded configuration map against schema. Unknown
// fields are allowed. The result is sorted by field name.
func ValidateConfig(config map[string]any, schema ConfigSchema) []ValidationError {
	var errs []ValidationError

	for _, required := range schema.Required {
		if _, exists := config[required]; !exists {
			errs = append(errs, ValidationError{
				Field:   required,
				Message: fmt.Sprintf("Field %q is required", required),
				Code:    "required",
			})
		}
	}

	for name, value := range config {
		prop, exists := schema.Properties[name]
		if !exists {
			continue
		}

		if err := validateType(name, value, prop); err != nil {
			errs = append(errs, *err)
			continue
		}
		if len(prop.Enum) > 0 {
			if err := validateEnum(name, value, prop.Enum); err != nil {
				errs = append(errs, *err)
			}
		}
		if prop.Type == "int" || prop.Type == "float" {
			errs = append(errs, validateBounds(name, value, prop)...)
		}
	}

	sort.SliceStable(errs, func(i, j int) bool { return errs[i].Field < errs[j].Field })
	return errs
}

func toFloat(value any) (float64, bool) {
	switch v := value.(type) {
	case int:
		return float64(v), true
	case int32:
		return float64(v), true
	case int64:
		return float64(v), true
	case float32:
		return float64(v), true
	case float64:
		return v, true
	default:
		return 0, false
	}
}

func validateType(name string, value any, prop PropertySchema) *ValidationError {
	var ok bool
	var want string

	switch prop.Type {
	case "string", "enum":
		_, ok = value.(string)
		want = "a string"
	case "bool":
		_, ok = value.(bool)
		want = "a boolean"
	case "int":
		var f float64
		f, ok = toFloat(value)
		ok = ok && f == float64(int64(f))
		want = "an integer"
	case "float":
		_, ok = toFloat(value)
		want = "a number"
	case "array", "ports":
		switch value.(type) {
		case []any, map[string]any:
			ok = true
		}
		want = "an array or object"
	default:
		return nil
	}

	if ok {
		return nil
	}
	return &ValidationError{
		Field:   name,
		Message: fmt.Sprintf("Field %q must be %s", name, want),
		Code:    "type",
	}
}

func validateEnum(name string, value any, allowed []string) *ValidationError {
	if s, ok := value.(string); ok && slices.Contains(allowed, s) {
		return nil
	}
	return &ValidationError{
		Field:   name,
		Message: fmt.Sprintf("Field %q must be one of: %v", name, allowed),
		Code:    "enum",
	}
}

func validateBounds(name string, value any, prop PropertySchema) []ValidationError {
	n, _ := toFloat(value)
	var errs []ValidationError
	if prop.Minimum != nil && n < float64(*prop.Minimum) {
		errs = append(errs, ValidationError{
			Field:   name,
			Message: fmt.Sprintf("Field %q must be >= %d", name, *prop.Minimum),
			Code:    "min",
		})
	}
	if prop.Maximum != nil && n > float64(*prop.Maximum) {
		errs = append(errs, ValidationError{
			Field:   name,
			Message: fmt.Sprintf("Field %q must be <= %d", name, *prop.Maximum),
			Code:    "max",
		})
	}
	return errs
}

// SortedPropertyNames returns basic properties first, then advanced ones,
// each group alphabetically. Uncategorized properties count as advanced.
func SortedPropertyNames(schema ConfigSchema) []string {
	names := make([]string, 0, len(schema.Properties))
	for name := range schema.Properties {
		names = append(names, name)
	}

	basic := func(name string) bool { return schema.Properties[name].Category == "basic" }
	sort.Slice(names, func(i, j int) bool {
		if bi, bj := basic(names[i]), basic(names[j]); bi != bj {
			return bi
		}
		return names[i] < names[j]
	})
	return names
}
