package component

import (
	"fmt"

	"github.com/c360/semtransform/errors"
)

// PortDefinition represents a port configuration from JSON
type PortDefinition struct {
	Name        string `json:"name"                  schema:"readonly,type:string,description:Port identifier"`
	Type        string `json:"type,omitempty"        schema:"readonly,type:string,description:Port type (nats)"`
	Subject     string `json:"subject,omitempty"     schema:"editable,type:string,description:NATS subject"`
	Interface   string `json:"interface,omitempty"   schema:"readonly,type:string,description:Interface contract type"`
	Required    bool   `json:"required,omitempty"    schema:"readonly,type:bool,description:Whether port connection is required"`
	Description string `json:"description,omitempty" schema:"readonly,type:string,description:Human-readable port description"`
}

// PortConfig represents port configuration in component config
type PortConfig struct {
	Inputs  []PortDefinition `json:"inputs,omitempty"`
	Outputs []PortDefinition `json:"outputs,omitempty"`
}

// Validate requires at least one input and one output, each with a subject
// and a supported type.
func (pc PortConfig) Validate() error {
	if len(pc.Inputs) == 0 {
		return errors.WrapInvalid(errors.ErrMissingConfig, "PortConfig", "Validate", "no input ports configured")
	}
	if len(pc.Outputs) == 0 {
		return errors.WrapInvalid(errors.ErrMissingConfig, "PortConfig", "Validate", "no output ports configured")
	}
	for _, def := range append(append([]PortDefinition{}, pc.Inputs...), pc.Outputs...) {
		if def.Subject == "" {
			return errors.WrapInvalid(errors.ErrMissingConfig, "PortConfig", "Validate",
				fmt.Sprintf("port %q has no subject", def.Name))
		}
		if def.Type != "" && def.Type != "nats" {
			return errors.WrapInvalid(errors.ErrInvalidConfig, "PortConfig", "Validate",
				fmt.Sprintf("port %q has unsupported type %q", def.Name, def.Type))
		}
	}
	return nil
}

// InputSubjects returns the subjects of the input ports in order.
func (pc PortConfig) InputSubjects() []string {
	return subjects(pc.Inputs)
}

// OutputSubjects returns the subjects of the output ports in order.
func (pc PortConfig) OutputSubjects() []string {
	return subjects(pc.Outputs)
}

func subjects(defs []PortDefinition) []string {
	out := make([]string, 0, len(defs))
	for _, def := range defs {
		out = append(out, def.Subject)
	}
	return out
}

// BuildPortFromDefinition creates a Port from a PortDefinition
func BuildPortFromDefinition(def PortDefinition, direction Direction) Port {
	var iface *InterfaceContract
	if def.Interface != "" {
		iface = &InterfaceContract{Type: def.Interface, Version: "v1"}
	}

	return Port{
		Name:        def.Name,
		Direction:   direction,
		Required:    def.Required,
		Description: def.Description,
		Config:      NATSPort{Subject: def.Subject, Interface: iface},
	}
}

// BuildPorts converts every definition to a Port.
func BuildPorts(defs []PortDefinition, direction Direction) []Port {
	ports := make([]Port, 0, len(defs))
	for _, def := range defs {
		ports = append(ports, BuildPortFromDefinition(def, direction))
	}
	return ports
}
