package componentregistry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360/semtransform/component"
	"github.com/c360/semtransform/errors"
)

func TestRegister(t *testing.T) {
	registry := component.NewRegistry()
	require.NoError(t, Register(registry))

	assert.Equal(t, []string{"field_router", "header_filter"}, registry.ListComponentTypes())
	for name, info := range registry.ListAvailable() {
		assert.Equal(t, "processor", info.Type, name)
		assert.NotEmpty(t, info.Description, name)
	}
}

func TestRegister_Twice(t *testing.T) {
	registry := component.NewRegistry()
	require.NoError(t, Register(registry))

	err := Register(registry)
	require.Error(t, err)
	assert.True(t, errors.IsInvalid(err))
}

func TestRegister_NilRegistry(t *testing.T) {
	err := Register(nil)
	require.Error(t, err)
	assert.True(t, errors.IsFatal(err))
}
