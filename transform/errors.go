package transform

import (
	"fmt"

	"github.com/c360/semtransform/errors"
)

// ConfigError reports an option that prevents a transformation from being
// built. It unwraps to errors.ErrInvalidConfig.
type ConfigError struct {
	Option string
	Value  any
	Reason string
}

func (e *ConfigError) Error() string {
	if e.Value == nil {
		return fmt.Sprintf("option %q: %s", e.Option, e.Reason)
	}
	return fmt.Sprintf("option %q=%v: %s", e.Option, e.Value, e.Reason)
}

func (e *ConfigError) Unwrap() error {
	return errors.ErrInvalidConfig
}

func configError(component, option string, value any, reason string) error {
	return errors.WrapInvalid(&ConfigError{Option: option, Value: value, Reason: reason},
		component, "New", "config validation")
}
