package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/xeipuuv/gojsonschema"

	"github.com/c360/semtransform/component"
)

// ComponentSchema is the JSON Schema (draft-07) exported for a component
// configuration.
type ComponentSchema struct {
	Schema      string                    `json:"$schema"`
	ID          string                    `json:"$id"`
	Type        string                    `json:"type"`
	Title       string                    `json:"title"`
	Description string                    `json:"description"`
	Properties  map[string]PropertySchema `json:"properties"`
	Required    []string                  `json:"required"`
	Metadata    ComponentMetadata         `json:"x-component-metadata"`
}

// ComponentMetadata holds registration metadata
type ComponentMetadata struct {
	Name     string `json:"name"`
	Type     string `json:"type"`
	Protocol string `json:"protocol"`
	Domain   string `json:"domain"`
	Version  string `json:"version"`
}

// PropertySchema represents a JSON Schema property definition
type PropertySchema struct {
	Type        string   `json:"type"`
	Description string   `json:"description,omitempty"`
	Default     any      `json:"default,omitempty"`
	Enum        []string `json:"enum,omitempty"`
	Minimum     *int     `json:"minimum,omitempty"`
	Maximum     *int     `json:"maximum,omitempty"`
}

// exportSchema converts a registered component schema to JSON Schema.
func exportSchema(name string, info component.Info, schema component.ConfigSchema) ComponentSchema {
	properties := make(map[string]PropertySchema, len(schema.Properties))
	for _, propName := range component.SortedPropertyNames(schema) {
		prop := schema.Properties[propName]
		properties[propName] = PropertySchema{
			Type:        jsonSchemaType(prop.Type),
			Description: prop.Description,
			Default:     prop.Default,
			Enum:        prop.Enum,
			Minimum:     prop.Minimum,
			Maximum:     prop.Maximum,
		}
	}

	required := schema.Required
	if required == nil {
		required = []string{}
	}

	return ComponentSchema{
		Schema:      "http://json-schema.org/draft-07/schema#",
		ID:          name + ".v1.json",
		Type:        "object",
		Title:       name + " Configuration",
		Description: info.Description,
		Properties:  properties,
		Required:    required,
		Metadata: ComponentMetadata{
			Name:     name,
			Type:     info.Type,
			Protocol: info.Protocol,
			Domain:   info.Domain,
			Version:  info.Version,
		},
	}
}

// jsonSchemaType maps component property types to JSON Schema types
func jsonSchemaType(propType string) string {
	switch propType {
	case "int":
		return "integer"
	case "float":
		return "number"
	case "bool":
		return "boolean"
	case "array":
		return "array"
	case "object", "ports":
		return "object"
	default:
		return "string"
	}
}

// exportedSchemas returns the JSON Schema of every registered component keyed
// by factory name.
func exportedSchemas(registry *component.Registry) (map[string]ComponentSchema, error) {
	available := registry.ListAvailable()
	out := make(map[string]ComponentSchema, len(available))
	for _, name := range registry.ListComponentTypes() {
		schema, err := registry.GetComponentSchema(name)
		if err != nil {
			return nil, err
		}
		out[name] = exportSchema(name, available[name], schema)
	}
	return out, nil
}

// checkConfig validates a raw component configuration against its exported
// schema and returns one message per violation.
func checkConfig(schema ComponentSchema, rawConfig json.RawMessage) ([]string, error) {
	schemaBytes, err := json.Marshal(schema)
	if err != nil {
		return nil, fmt.Errorf("marshal schema %s: %w", schema.ID, err)
	}
	if len(strings.TrimSpace(string(rawConfig))) == 0 {
		rawConfig = json.RawMessage(`{}`)
	}

	result, err := gojsonschema.Validate(
		gojsonschema.NewBytesLoader(schemaBytes),
		gojsonschema.NewBytesLoader(rawConfig),
	)
	if err != nil {
		return nil, fmt.Errorf("validate against %s: %w", schema.ID, err)
	}

	var problems []string
	for _, desc := range result.Errors() {
		problems = append(problems, fmt.Sprintf("%s: %s", desc.Field(), desc.Description()))
	}
	return problems, nil
}

func newSchemaCmd() *cobra.Command {
	var outDir string
	cmd := &cobra.Command{
		Use:   "schema [component]",
		Short: "Print the JSON Schema of component configurations",
		Long: `Print the JSON Schema (draft-07) of every registered component, or of the
named one. With --out, one <name>.v1.json file per component is written instead.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			registry, err := newComponentRegistry()
			if err != nil {
				return err
			}
			schemas, err := exportedSchemas(registry)
			if err != nil {
				return err
			}

			if len(args) == 1 {
				schema, ok := schemas[args[0]]
				if !ok {
					return invalidUsage(fmt.Errorf("unknown component %q (available: %s)",
						args[0], strings.Join(registry.ListComponentTypes(), ", ")))
				}
				schemas = map[string]ComponentSchema{args[0]: schema}
			}

			if outDir == "" {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				for _, name := range registry.ListComponentTypes() {
					if schema, ok := schemas[name]; ok {
						if err := enc.Encode(schema); err != nil {
							return err
						}
					}
				}
				return nil
			}

			if err := os.MkdirAll(outDir, 0o755); err != nil {
				return fmt.Errorf("create output directory: %w", err)
			}
			for name, schema := range schemas {
				data, err := json.MarshalIndent(schema, "", "  ")
				if err != nil {
					return fmt.Errorf("marshal schema %s: %w", name, err)
				}
				path := filepath.Join(outDir, schema.ID)
				if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
					return fmt.Errorf("write schema %s: %w", name, err)
				}
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", path)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&outDir, "out", "", "Directory to write schema files to")
	return cmd
}
