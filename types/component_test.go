package types_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/c360/semtransform/errors"
	"github.com/c360/semtransform/types"
)

func TestComponentConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		config  types.ComponentConfig
		wantErr bool
	}{
		{
			name: "valid processor",
			config: types.ComponentConfig{
				Type:    types.ComponentTypeProcessor,
				Name:    "field_router",
				Enabled: true,
				Config:  json.RawMessage(`{"sourceKey":"a"}`),
			},
		},
		{
			name:   "empty config is allowed",
			config: types.ComponentConfig{Type: types.ComponentTypeProcessor, Name: "header_filter"},
		},
		{
			name:    "missing type",
			config:  types.ComponentConfig{Name: "field_router"},
			wantErr: true,
		},
		{
			name:    "missing name",
			config:  types.ComponentConfig{Type: types.ComponentTypeProcessor},
			wantErr: true,
		},
		{
			name:    "unknown type",
			config:  types.ComponentConfig{Type: "gateway", Name: "http"},
			wantErr: true,
		},
		{
			name: "malformed config",
			config: types.ComponentConfig{
				Type:   types.ComponentTypeProcessor,
				Name:   "field_router",
				Config: json.RawMessage(`{"sourceKey":`),
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if !tt.wantErr {
				assert.NoError(t, err)
				return
			}
			assert.Error(t, err)
			assert.True(t, errors.IsInvalid(err))
		})
	}
}

func TestComponentType_String(t *testing.T) {
	assert.Equal(t, "processor", types.ComponentTypeProcessor.String())
}
