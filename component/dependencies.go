package component

import (
	"log/slog"

	"github.com/c360/semtransform/metric"
	"github.com/c360/semtransform/natsclient"
	"github.com/c360/semtransform/types"
)

// PlatformMeta provides platform identity to components.
type PlatformMeta = types.PlatformMeta

// Dependencies carries the shared resources handed to component factories.
type Dependencies struct {
	InstanceName    string                  // set by Registry.CreateComponent
	NATSClient      *natsclient.Client      // required by Start, may be nil at factory time
	MetricsRegistry *metric.MetricsRegistry // can be nil
	Logger          *slog.Logger            // can be nil, defaults to slog.Default()
	Platform        PlatformMeta
}

// GetLogger returns the configured logger or a default logger if none is provided
func (d *Dependencies) GetLogger() *slog.Logger {
	if d.Logger != nil {
		return d.Logger
	}
	return slog.Default()
}

// NameOr returns the instance name, or fallback when none was assigned.
func (d *Dependencies) NameOr(fallback string) string {
	if d.InstanceName != "" {
		return d.InstanceName
	}
	return fallback
}

// GetLoggerWithComponent returns a logger configured with component context
func (d *Dependencies) GetLoggerWithComponent(componentName string) *slog.Logger {
	return d.GetLogger().With("component", componentName)
}
