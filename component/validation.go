package component

import (
	"bytes"
	"encoding/json"
	"fmt"
	"reflect"
	"strings"

	"github.com/c360/semtransform/errors"
)

// Limits applied to raw component configuration.
const (
	MaxStringLength = 1024
	MaxJSONSize     = 1024 * 1024
	maxDepth        = 10
	maxArraySize    = 1000
)

// ConfigValidator rejects oversized or malformed component configuration
// before it reaches a factory.
type ConfigValidator struct {
	maxDepth     int
	maxArraySize int
	maxStringLen int
	maxJSONSize  int
}

// NewConfigValidator creates a validator with the package limits
func NewConfigValidator() *ConfigValidator {
	return &ConfigValidator{
		maxDepth:     maxDepth,
		maxArraySize: maxArraySize,
		maxStringLen: MaxStringLength,
		maxJSONSize:  MaxJSONSize,
	}
}

// ValidateConfig checks size, nesting, array length and string content.
// Empty configuration is valid.
func (v *ConfigValidator) ValidateConfig(rawConfig json.RawMessage) error {
	if len(rawConfig) > v.maxJSONSize {
		return errors.WrapInvalid(
			fmt.Errorf("config size %d exceeds maximum %d", len(rawConfig), v.maxJSONSize),
			"ConfigValidator", "ValidateConfig", "size check")
	}
	if len(bytes.TrimSpace(rawConfig)) == 0 {
		return nil
	}

	var config any
	decoder := json.NewDecoder(bytes.NewReader(rawConfig))
	decoder.UseNumber()
	if err := decoder.Decode(&config); err != nil {
		return errors.WrapInvalid(err, "ConfigValidator", "ValidateConfig", "JSON parsing")
	}

	if err := v.validateValue(config, 0); err != nil {
		return errors.Wrap(err, "ConfigValidator", "ValidateConfig", "deep validation")
	}
	return nil
}

func (v *ConfigValidator) validateValue(value any, depth int) error {
	if depth > v.maxDepth {
		return errors.WrapInvalid(
			fmt.Errorf("JSON depth %d exceeds maximum %d", depth, v.maxDepth),
			"ConfigValidator", "validateValue", "depth check")
	}

	switch val := value.(type) {
	case string:
		if len(val) > v.maxStringLen {
			return errors.WrapInvalid(
				fmt.Errorf("string length %d exceeds maximum %d", len(val), v.maxStringLen),
				"ConfigValidator", "validateValue", "string length check")
		}
		return v.validateStringContent(val)

	case json.Number:
		if _, err := val.Float64(); err != nil {
			return errors.WrapInvalid(err, "ConfigValidator", "validateValue", "number validation")
		}

	case []any:
		if len(val) > v.maxArraySize {
			return errors.WrapInvalid(
				fmt.Errorf("array size %d exceeds maximum %d", len(val), v.maxArraySize),
				"ConfigValidator", "validateValue", "array size check")
		}
		for i, elem := range val {
			if err := v.validateValue(elem, depth+1); err != nil {
				return errors.Wrap(err, "ConfigValidator", "validateValue", fmt.Sprintf("array element %d", i))
			}
		}

	case map[string]any:
		for key, elem := range val {
			if len(key) > v.maxStringLen {
				return errors.WrapInvalid(fmt.Errorf("key '%s' length exceeds maximum", key),
					"ConfigValidator", "validateValue", "key length check")
			}
			if err := v.validateStringContent(key); err != nil {
				return errors.Wrap(err, "ConfigValidator", "validateValue", "key validation")
			}
			if err := v.validateValue(elem, depth+1); err != nil {
				return errors.Wrap(err, "ConfigValidator", "validateValue", fmt.Sprintf("object field '%s'", key))
			}
		}

	case bool, nil:

	default:
		return errors.WrapInvalid(fmt.Errorf("unexpected type %T in config", value),
			"ConfigValidator", "validateValue", "type check")
	}

	return nil
}

// validateStringContent rejects NUL and control characters other than tab,
// newline and carriage return.
func (v *ConfigValidator) validateStringContent(s string) error {
	if strings.Contains(s, "\x00") {
		return errors.WrapInvalid(fmt.Errorf("string contains null byte"),
			"ConfigValidator", "validateStringContent", "null byte check")
	}
	for _, r := range s {
		if r < 0x20 && r != '\n' && r != '\r' && r != '\t' {
			return errors.WrapInvalid(fmt.Errorf("string contains control character: 0x%02x", r),
				"ConfigValidator", "validateStringContent", "control character check")
		}
	}
	return nil
}

// ValidateFactoryConfig validates raw configuration with the default limits.
func ValidateFactoryConfig(rawConfig json.RawMessage) error {
	return NewConfigValidator().ValidateConfig(rawConfig)
}

// Validatable is implemented by configs that can self-validate
type Validatable interface {
	Validate() error
}

// SafeUnmarshal validates rawConfig, decodes it into target and then runs
// target's Validate method when it has one. Empty configuration leaves
// target unchanged before validation.
func SafeUnmarshal(rawConfig json.RawMessage, target any) error {
	if err := ValidateFactoryConfig(rawConfig); err != nil {
		return errors.Wrap(err, "ConfigValidator", "SafeUnmarshal", "config validation")
	}

	if reflect.TypeOf(target).Kind() != reflect.Ptr {
		return errors.WrapInvalid(fmt.Errorf("target must be a pointer, got %T", target),
			"ConfigValidator", "SafeUnmarshal", "target type check")
	}

	if len(bytes.TrimSpace(rawConfig)) > 0 {
		if err := json.Unmarshal(rawConfig, target); err != nil {
			return errors.WrapInvalid(err, "ConfigValidator", "SafeUnmarshal", "JSON unmarshaling")
		}
	}

	if validatable, ok := target.(Validatable); ok {
		if err := validatable.Validate(); err != nil {
			return errors.Wrap(err, "ConfigValidator", "SafeUnmarshal", "struct validation")
		}
	}
	return nil
}
