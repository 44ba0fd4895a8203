package config

import (
	"encoding/json"
	"fmt"

	"github.com/c360/semtransform/component"
)

// SchemaSource provides component schemas for validation. *component.Registry
// satisfies it.
type SchemaSource interface {
	GetComponentSchema(factoryName string) (component.ConfigSchema, error)
}

// ValidateComponentSchemas checks every component's raw config against the
// schema its factory publishes. The result maps instance name to its errors
// and omits instances without errors. Factories with no schema are skipped.
func ValidateComponentSchemas(registry SchemaSource, components ComponentConfigs) map[string][]component.ValidationError {
	results := make(map[string][]component.ValidationError)

	for instanceName, cc := range components {
		schema, err := registry.GetComponentSchema(cc.Name)
		if err != nil {
			results[instanceName] = []component.ValidationError{{
				Field:   "name",
				Message: fmt.Sprintf("Unknown component factory %q", cc.Name),
				Code:    "required",
			}}
			continue
		}
		if len(schema.Properties) == 0 {
			continue
		}

		config := map[string]any{}
		if len(cc.Config) > 0 {
			if err := json.Unmarshal(cc.Config, &config); err != nil {
				results[instanceName] = []component.ValidationError{{
					Message: fmt.Sprintf("Invalid JSON configuration: %v", err),
					Code:    "type",
				}}
				continue
			}
		}

		if errs := component.ValidateConfig(config, schema); len(errs) > 0 {
			results[instanceName] = errs
		}
	}

	return results
}
