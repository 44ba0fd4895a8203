// Package component defines the component contract, port descriptions,
// configuration schemas and the factory registry.
package component

import (
	"time"
)

// Discoverable is implemented by every component so the runtime can inspect
// its ports, configuration schema, health and data flow.
type Discoverable interface {
	Meta() Metadata
	InputPorts() []Port
	OutputPorts() []Port
	ConfigSchema() ConfigSchema
	Health() HealthStatus
	DataFlow() FlowMetrics
}

// Metadata describes what a component is
type Metadata struct {
	Name        string `json:"name"`
	Type        string `json:"type"`
	Description string `json:"description"`
	Version     string `json:"version"`
}

// ConfigSchema describes the configuration parameters for a component
type ConfigSchema struct {
	Properties map[string]PropertySchema `json:"properties"`
	Required   []string                  `json:"required"`
}

// PropertySchema describes a single configuration property
type PropertySchema struct {
	Type        string                   `json:"type"` // string, int, bool, float, enum, array, object, ports
	Description string                   `json:"description"`
	Default     any                      `json:"default,omitempty"`
	Enum        []string                 `json:"enum,omitempty"`
	Minimum     *int                     `json:"minimum,omitempty"`
	Maximum     *int                     `json:"maximum,omitempty"`
	Category    string                   `json:"category,omitempty"` // basic or advanced
	PortFields  map[string]PortFieldInfo `json:"portFields,omitempty"`
}

// HealthStatus describes the current health state of a component
type HealthStatus struct {
	Healthy    bool          `json:"healthy"`
	LastCheck  time.Time     `json:"last_check"`
	ErrorCount int           `json:"error_count"`
	LastError  string        `json:"last_error,omitempty"`
	Uptime     time.Duration `json:"uptime"`
}

// FlowMetrics describes the current data flow through a component
type FlowMetrics struct {
	MessagesPerSecond float64   `json:"messages_per_second"`
	BytesPerSecond    float64   `json:"bytes_per_second"`
	ErrorRate         float64   `json:"error_rate"`
	LastActivity      time.Time `json:"last_activity"`
}
