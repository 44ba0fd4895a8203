package component

import (
	"encoding/json"
	"fmt"
	"maps"
	"slices"
	"sync"

	"github.com/c360/semtransform/errors"
	"github.com/c360/semtransform/types"
)

// MaxNameLength bounds component and factory names.
const MaxNameLength = 1024

// Info holds metadata about an available component type
type Info struct {
	Type        string `json:"type"`
	Protocol    string `json:"protocol"`
	Domain      string `json:"domain"`
	Description string `json:"description"`
	Version     string `json:"version"`
}

// Factory creates a component from its raw JSON configuration. Factories
// validate configuration and must not perform I/O; that belongs in Start.
type Factory func(rawConfig json.RawMessage, deps Dependencies) (Discoverable, error)

// Registration holds factory and metadata for a component type
type Registration struct {
	Name        string       `json:"name"`
	Type        string       `json:"type"`
	Protocol    string       `json:"protocol"`
	Domain      string       `json:"domain"`
	Description string       `json:"description"`
	Version     string       `json:"version"`
	Schema      ConfigSchema `json:"schema"`
	Factory     Factory      `json:"-"`
}

// RegistrationConfig is the argument to Registry.RegisterWithConfig.
type RegistrationConfig struct {
	Name        string
	Factory     Factory
	Schema      ConfigSchema
	Type        string // "processor"
	Protocol    string
	Domain      string
	Description string
	Version     string
}

// Registry is a thread-safe store of component factories and the instances
// created from them.
type Registry struct {
	factories map[string]*Registration
	instances map[string]Discoverable
	mu        sync.RWMutex
}

// NewRegistry creates a new empty component registry
func NewRegistry() *Registry {
	return &Registry{
		factories: make(map[string]*Registration),
		instances: make(map[string]Discoverable),
	}
}

// RegisterFactory registers a component factory with the given name
func (r *Registry) RegisterFactory(name string, registration *Registration) error {
	switch {
	case name == "":
		return errors.WrapInvalid(errors.ErrInvalidConfig, "Registry", "RegisterFactory", "factory name validation")
	case registration == nil:
		return errors.WrapInvalid(errors.ErrInvalidConfig, "Registry", "RegisterFactory", "registration validation")
	case registration.Factory == nil:
		return errors.WrapInvalid(errors.ErrInvalidConfig, "Registry", "RegisterFactory", "factory function validation")
	case registration.Type == "":
		return errors.WrapInvalid(errors.ErrInvalidConfig, "Registry", "RegisterFactory", "component type validation")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.factories[name]; exists {
		return errors.WrapInvalid(fmt.Errorf("factory '%s' is already registered", name),
			"Registry", "RegisterFactory", "duplicate factory check")
	}

	r.factories[name] = registration
	return nil
}

// RegisterWithConfig registers a component type.
//
//	registry.RegisterWithConfig(component.RegistrationConfig{
//	    Name:        "field_router",
//	    Factory:     fieldrouter.NewProcessor,
//	    Schema:      fieldRouterSchema,
//	    Type:        "processor",
//	    Protocol:    "nats",
//	    Domain:      "processing",
//	    Description: "Routes a record field to a new field or a header",
//	    Version:     "0.1.0",
//	})
func (r *Registry) RegisterWithConfig(config RegistrationConfig) error {
	return r.RegisterFactory(config.Name, &Registration{
		Name:        config.Name,
		Factory:     config.Factory,
		Schema:      config.Schema,
		Type:        config.Type,
		Protocol:    config.Protocol,
		Domain:      config.Domain,
		Description: config.Description,
		Version:     config.Version,
	})
}

// Build runs the factory named by config without registering the instance.
func (r *Registry) Build(config types.ComponentConfig, deps Dependencies) (Discoverable, error) {
	if err := config.Validate(); err != nil {
		return nil, errors.Wrap(err, "Registry", "Build", "component config validation")
	}
	if err := ValidateComponentName(config.Name); err != nil {
		return nil, errors.Wrap(err, "Registry", "Build", "factory name validation")
	}
	if err := ValidateFactoryConfig(config.Config); err != nil {
		return nil, errors.Wrap(err, "Registry", "Build", "config security validation")
	}

	r.mu.RLock()
	registration, exists := r.factories[config.Name]
	r.mu.RUnlock()

	if !exists {
		return nil, errors.WrapInvalid(fmt.Errorf("unknown component factory '%s'", config.Name),
			"Registry", "Build", "factory lookup")
	}
	if registration.Type != string(config.Type) {
		return nil, errors.WrapInvalid(
			fmt.Errorf("component '%s' is type '%s', not '%s'", config.Name, registration.Type, config.Type),
			"Registry", "Build", "type validation")
	}

	comp, err := registration.Factory(config.Config, deps)
	if err != nil {
		return nil, errors.Wrap(err, "Registry", "Build", "factory execution")
	}
	return comp, nil
}

// CreateComponent builds a component and registers it under instanceName.
func (r *Registry) CreateComponent(
	instanceName string, config types.ComponentConfig, deps Dependencies,
) (Discoverable, error) {
	if err := ValidateComponentName(instanceName); err != nil {
		return nil, errors.Wrap(err, "Registry", "CreateComponent", "instance name validation")
	}

	if deps.InstanceName == "" {
		deps.InstanceName = instanceName
	}
	comp, err := r.Build(config, deps)
	if err != nil {
		return nil, errors.Wrap(err, "Registry", "CreateComponent", "build "+instanceName)
	}

	if err := r.RegisterInstance(instanceName, comp); err != nil {
		return nil, errors.Wrap(err, "Registry", "CreateComponent", "instance registration")
	}
	return comp, nil
}

// RegisterInstance registers a component instance with the given name
func (r *Registry) RegisterInstance(name string, component Discoverable) error {
	if name == "" {
		return errors.WrapInvalid(errors.ErrInvalidConfig, "Registry", "RegisterInstance", "instance name validation")
	}
	if component == nil {
		return errors.WrapInvalid(errors.ErrInvalidConfig, "Registry", "RegisterInstance", "component validation")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.instances[name]; exists {
		return errors.WrapInvalid(fmt.Errorf("instance '%s' is already registered", name),
			"Registry", "RegisterInstance", "duplicate instance check")
	}

	r.instances[name] = component
	return nil
}

// UnregisterInstance removes a component instance from the registry
func (r *Registry) UnregisterInstance(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.instances, name)
}

// ListComponents returns a copy of the registered instances.
func (r *Registry) ListComponents() map[string]Discoverable {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return maps.Clone(r.instances)
}

// Component retrieves a specific component instance by name, or nil.
func (r *Registry) Component(name string) Discoverable {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.instances[name]
}

// GetComponentSchema returns the schema stored at registration.
func (r *Registry) GetComponentSchema(name string) (ConfigSchema, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	registration, exists := r.factories[name]
	if !exists {
		return ConfigSchema{}, errors.WrapInvalid(
			fmt.Errorf("component type %q not found", name),
			"Registry", "GetComponentSchema", "type lookup")
	}
	return registration.Schema, nil
}

// ListComponentTypes returns the registered factory names in sorted order.
func (r *Registry) ListComponentTypes() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Sorted(maps.Keys(r.factories))
}

// GetFactory returns a specific factory by name
func (r *Registry) GetFactory(name string) (Factory, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	registration, exists := r.factories[name]
	if !exists {
		return nil, false
	}
	return registration.Factory, true
}

// ListAvailable returns information about all available component types
func (r *Registry) ListAvailable() map[string]Info {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make(map[string]Info, len(r.factories))
	for name, registration := range r.factories {
		result[name] = Info{
			Type:        registration.Type,
			Protocol:    registration.Protocol,
			Domain:      registration.Domain,
			Description: registration.Description,
			Version:     registration.Version,
		}
	}
	return result
}

// ValidateComponentName allows alphanumerics, dash, underscore and dot.
func ValidateComponentName(name string) error {
	if name == "" {
		return errors.WrapInvalid(errors.ErrInvalidConfig, "ConfigValidator", "ValidateComponentName", "empty name")
	}
	if len(name) > MaxNameLength {
		return errors.WrapInvalid(errors.ErrInvalidConfig, "ConfigValidator", "ValidateComponentName", "name too long")
	}
	for _, r := range name {
		if !((r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') ||
			(r >= '0' && r <= '9') || r == '-' || r == '_' || r == '.') {
			return errors.WrapInvalid(errors.ErrInvalidConfig, "ConfigValidator", "ValidateComponentName",
				"invalid name characters")
		}
	}
	return nil
}
