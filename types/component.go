// Package types contains configuration types shared by the config and
// component packages.
package types

import (
	"encoding/json"
	"fmt"

	"github.com/c360/semtransform/errors"
)

// ComponentType represents the category of a component
type ComponentType string

// Component type constants
const (
	ComponentTypeProcessor ComponentType = "processor"
)

// ComponentConfig describes one component instance. The instance name is the
// key of the components map in the platform configuration.
type ComponentConfig struct {
	Type    ComponentType   `json:"type"    yaml:"type"`
	Name    string          `json:"name"    yaml:"name"` // factory name, e.g. "field_router"
	Enabled bool            `json:"enabled" yaml:"enabled"`
	Config  json.RawMessage `json:"config"  yaml:"-"`
}

// Validate ensures the component configuration is valid
func (c ComponentConfig) Validate() error {
	if c.Type == "" {
		return errors.WrapInvalid(errors.ErrMissingConfig, "ComponentConfig", "Validate",
			"component type cannot be empty")
	}
	if c.Name == "" {
		return errors.WrapInvalid(errors.ErrMissingConfig, "ComponentConfig", "Validate",
			"component factory name cannot be empty")
	}
	if c.Type != ComponentTypeProcessor {
		return errors.WrapInvalid(errors.ErrInvalidConfig, "ComponentConfig", "Validate",
			fmt.Sprintf("invalid component type: %s", c.Type))
	}
	if len(c.Config) > 0 && !json.Valid(c.Config) {
		return errors.WrapInvalid(errors.ErrInvalidConfig, "ComponentConfig", "Validate",
			"component config is not valid JSON")
	}
	return nil
}

// String implements fmt.Stringer for ComponentType
func (ct ComponentType) String() string {
	return string(ct)
}

// PlatformMeta identifies the platform a component runs on.
type PlatformMeta struct {
	Org      string
	Platform string
}
