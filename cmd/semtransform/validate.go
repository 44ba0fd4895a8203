package main

import (
	"fmt"
	"io"
	"maps"
	"slices"

	"github.com/spf13/cobra"

	"github.com/c360/semtransform/component"
	"github.com/c360/semtransform/config"
	"github.com/c360/semtransform/errors"
)

func newValidateCmd() *cobra.Command {
	var configPath string
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate a configuration file without connecting to NATS",
		Long: `Load and validate the configuration, check every component configuration
against its schema and build every transformation. Disabled components are
checked too.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(configPath)
			if err != nil {
				return err
			}
			registry, err := newComponentRegistry()
			if err != nil {
				return err
			}
			return validateComponents(cmd.OutOrStdout(), cfg, registry)
		},
	}
	cmd.Flags().StringVarP(&configPath, "config", "c", getEnv("SEMTRANSFORM_CONFIG", "semtransform.yaml"),
		"Path to configuration file (env: SEMTRANSFORM_CONFIG)")
	return cmd
}

// validateComponents reports problems per component instance to w and
// returns an invalid-class error when any were found.
func validateComponents(w io.Writer, cfg *config.Config, registry *component.Registry) error {
	schemaErrs := config.ValidateComponentSchemas(registry, cfg.Components)
	exported, err := exportedSchemas(registry)
	if err != nil {
		return err
	}

	failed := 0
	for _, name := range slices.Sorted(maps.Keys(cfg.Components)) {
		cc := cfg.Components[name]
		var problems []string

		for _, ve := range schemaErrs[name] {
			problems = append(problems, ve.Error())
		}
		if schema, ok := exported[cc.Name]; ok {
			violations, err := checkConfig(schema, cc.Config)
			if err != nil {
				return err
			}
			problems = append(problems, violations...)
		}
		if len(problems) == 0 {
			if _, err := registry.Build(cc, component.Dependencies{InstanceName: name}); err != nil {
				problems = append(problems, err.Error())
			}
		}

		if len(problems) == 0 {
			_, _ = fmt.Fprintf(w, "ok      %s (%s)\n", name, cc.Name)
			continue
		}
		failed++
		_, _ = fmt.Fprintf(w, "invalid %s (%s)\n", name, cc.Name)
		for _, p := range slices.Compact(problems) {
			_, _ = fmt.Fprintf(w, "  - %s\n", p)
		}
	}

	if failed > 0 {
		return errors.WrapInvalid(fmt.Errorf("%d of %d components are invalid", failed, len(cfg.Components)),
			"CLI", "validate", "component validation")
	}
	_, _ = fmt.Fprintf(w, "configuration is valid (%d components)\n", len(cfg.Components))
	return nil
}
