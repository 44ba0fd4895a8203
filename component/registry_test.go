package component

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360/semtransform/errors"
	"github.com/c360/semtransform/types"
)

type mockComponent struct {
	name string
}

func (m *mockComponent) Meta() Metadata             { return Metadata{Name: m.name, Type: "processor"} }
func (m *mockComponent) InputPorts() []Port         { return nil }
func (m *mockComponent) OutputPorts() []Port        { return nil }
func (m *mockComponent) ConfigSchema() ConfigSchema { return ConfigSchema{} }
func (m *mockComponent) Health() HealthStatus       { return HealthStatus{Healthy: true} }
func (m *mockComponent) DataFlow() FlowMetrics      { return FlowMetrics{} }

type mockConfig struct {
	Name string `json:"name"`
}

func (c *mockConfig) Validate() error {
	if c.Name == "bad" {
		return errors.WrapInvalid(errors.ErrInvalidConfig, "mock", "Validate", "name check")
	}
	return nil
}

func mockFactory(raw json.RawMessage, _ Dependencies) (Discoverable, error) {
	cfg := mockConfig{Name: "default"}
	if err := SafeUnmarshal(raw, &cfg); err != nil {
		return nil, err
	}
	return &mockComponent{name: cfg.Name}, nil
}

func newMockRegistry(t *testing.T) *Registry {
	t.Helper()
	r := NewRegistry()
	require.NoError(t, r.RegisterWithConfig(RegistrationConfig{
		Name:        "mock",
		Factory:     mockFactory,
		Schema:      ConfigSchema{Properties: map[string]PropertySchema{"name": {Type: "string"}}},
		Type:        "processor",
		Protocol:    "nats",
		Domain:      "processing",
		Description: "mock processor",
		Version:     "0.1.0",
	}))
	return r
}

func processorConfig(raw string) types.ComponentConfig {
	return types.ComponentConfig{
		Type:    types.ComponentTypeProcessor,
		Name:    "mock",
		Enabled: true,
		Config:  json.RawMessage(raw),
	}
}

func TestRegistry_RegisterFactoryValidation(t *testing.T) {
	r := NewRegistry()

	assert.Error(t, r.RegisterFactory("", &Registration{Factory: mockFactory, Type: "processor"}))
	assert.Error(t, r.RegisterFactory("x", nil))
	assert.Error(t, r.RegisterFactory("x", &Registration{Type: "processor"}))
	assert.Error(t, r.RegisterFactory("x", &Registration{Factory: mockFactory}))

	require.NoError(t, r.RegisterFactory("x", &Registration{Factory: mockFactory, Type: "processor"}))
	err := r.RegisterFactory("x", &Registration{Factory: mockFactory, Type: "processor"})
	assert.True(t, errors.IsInvalid(err))
}

func TestRegistry_CreateComponent(t *testing.T) {
	r := newMockRegistry(t)

	comp, err := r.CreateComponent("router-1", processorConfig(`{"name":"router"}`), Dependencies{})
	require.NoError(t, err)
	assert.Equal(t, "router", comp.Meta().Name)
	assert.Same(t, comp, r.Component("router-1"))
	assert.Len(t, r.ListComponents(), 1)

	_, err = r.CreateComponent("router-1", processorConfig(`{}`), Dependencies{})
	assert.Error(t, err, "duplicate instance")

	r.UnregisterInstance("router-1")
	assert.Nil(t, r.Component("router-1"))
}

func TestRegistry_BuildErrors(t *testing.T) {
	r := newMockRegistry(t)

	tests := []struct {
		name   string
		config types.ComponentConfig
	}{
		{"unknown factory", types.ComponentConfig{Type: types.ComponentTypeProcessor, Name: "nope"}},
		{"missing type", types.ComponentConfig{Name: "mock"}},
		{"malformed json", processorConfig(`{"name":`)},
		{"control characters", processorConfig("{\"name\":\"a\\u0001\"}")},
		{"config validation", processorConfig(`{"name":"bad"}`)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := r.Build(tt.config, Dependencies{})
			require.Error(t, err)
			assert.True(t, errors.IsInvalid(err), err.Error())
		})
	}

	_, err := r.CreateComponent("bad name!", processorConfig(`{}`), Dependencies{})
	assert.Error(t, err)
}

func TestRegistry_TypeMismatch(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.RegisterFactory("mock", &Registration{Factory: mockFactory, Type: "output"}))

	_, err := r.Build(processorConfig(`{}`), Dependencies{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "is type 'output'")
}

func TestRegistry_Discovery(t *testing.T) {
	r := newMockRegistry(t)
	require.NoError(t, r.RegisterFactory("another", &Registration{Factory: mockFactory, Type: "processor"}))

	assert.Equal(t, []string{"another", "mock"}, r.ListComponentTypes())

	available := r.ListAvailable()
	assert.Equal(t, "mock processor", available["mock"].Description)
	assert.Equal(t, "nats", available["mock"].Protocol)

	schema, err := r.GetComponentSchema("mock")
	require.NoError(t, err)
	assert.Contains(t, schema.Properties, "name")

	_, err = r.GetComponentSchema("missing")
	assert.Error(t, err)

	factory, ok := r.GetFactory("mock")
	require.True(t, ok)
	assert.NotNil(t, factory)
	_, ok = r.GetFactory("missing")
	assert.False(t, ok)
}

func TestValidateComponentName(t *testing.T) {
	for _, name := range []string{"field_router", "router-1", "a.b"} {
		assert.NoError(t, ValidateComponentName(name), name)
	}
	for _, name := range []string{"", "has space", "semi;colon", string(make([]byte, MaxNameLength+1))} {
		assert.Error(t, ValidateComponentName(name))
	}
}

func TestRegistry_RegisterInstanceValidation(t *testing.T) {
	r := NewRegistry()
	assert.Error(t, r.RegisterInstance("", &mockComponent{}))
	assert.Error(t, r.RegisterInstance("x", nil))
}

func TestAsLifecycleComponent(t *testing.T) {
	_, ok := AsLifecycleComponent(&mockComponent{})
	assert.False(t, ok)
	assert.Equal(t, "started", StateStarted.String())
	assert.Equal(t, "unknown", State(99).String())
}

func TestRegistry_CreateComponentPassesInstanceName(t *testing.T) {
	r := NewRegistry()
	var got string
	require.NoError(t, r.RegisterFactory("capture", &Registration{
		Type: "processor",
		Factory: func(_ json.RawMessage, deps Dependencies) (Discoverable, error) {
			got = deps.NameOr("unset")
			return &mockComponent{}, nil
		},
	}))

	_, err := r.CreateComponent("edge-router",
		types.ComponentConfig{Type: types.ComponentTypeProcessor, Name: "capture"}, Dependencies{})
	require.NoError(t, err)
	assert.Equal(t, "edge-router", got)

	deps := Dependencies{}
	assert.Equal(t, "fallback", deps.NameOr("fallback"))
}
