package component

import (
	"encoding/json"
	"fmt"

	"github.com/c360/semtransform/errors"
)

// Direction for data flow
type Direction string

// Direction constants for port data flow
const (
	DirectionInput  Direction = "input"
	DirectionOutput Direction = "output"
)

// Port describes any I/O interface
type Port struct {
	Name        string    `json:"name"`
	Direction   Direction `json:"direction"`
	Required    bool      `json:"required"`
	Description string    `json:"description"`
	Config      Portable  `json:"config"`
}

// Portable is the transport-specific part of a port.
type Portable interface {
	ResourceID() string // unique identifier for conflict detection
	IsExclusive() bool  // whether multiple components can share
	Type() string
}

// InterfaceContract names the message interface a port carries.
type InterfaceContract struct {
	Type       string   `json:"type"`
	Version    string   `json:"version,omitempty"`
	Compatible []string `json:"compatible,omitempty"`
}

type typedPortConfig struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// MarshalJSON encodes Config together with its type name so UnmarshalJSON
// can rebuild the concrete Portable.
func (p Port) MarshalJSON() ([]byte, error) {
	type portAlias Port

	wrapper := struct {
		portAlias
		Config *typedPortConfig `json:"config"`
	}{portAlias: portAlias(p)}

	if p.Config != nil {
		data, err := json.Marshal(p.Config)
		if err != nil {
			return nil, errors.Wrap(err, "Port", "MarshalJSON", "config marshaling")
		}
		wrapper.Config = &typedPortConfig{Type: p.Config.Type(), Data: data}
	}

	return json.Marshal(wrapper)
}

// UnmarshalJSON reverses MarshalJSON.
func (p *Port) UnmarshalJSON(data []byte) error {
	type portAlias Port

	temp := struct {
		*portAlias
		Config *typedPortConfig `json:"config"`
	}{portAlias: (*portAlias)(p)}

	if err := json.Unmarshal(data, &temp); err != nil {
		return errors.WrapInvalid(err, "Port", "UnmarshalJSON", "port unmarshaling")
	}
	if temp.Config == nil {
		p.Config = nil
		return nil
	}

	switch temp.Config.Type {
	case "nats":
		var natsConfig NATSPort
		if err := json.Unmarshal(temp.Config.Data, &natsConfig); err != nil {
			return errors.WrapInvalid(err, "Port", "UnmarshalJSON", "nats config unmarshaling")
		}
		p.Config = natsConfig
	default:
		return errors.WrapInvalid(
			fmt.Errorf("unknown config type: %s", temp.Config.Type),
			"Port", "UnmarshalJSON", "config type validation")
	}
	return nil
}
