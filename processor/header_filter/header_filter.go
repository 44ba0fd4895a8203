// Package headerfilter provides the header_filter processor, which drops
// records by the presence of a header.
package headerfilter

import (
	"encoding/json"
	"reflect"

	"github.com/c360/semtransform/component"
	"github.com/c360/semtransform/errors"
	"github.com/c360/semtransform/processor/recordproc"
	"github.com/c360/semtransform/transform"
)

// Config holds configuration for the header filter processor
type Config struct {
	Ports     *component.PortConfig `json:"ports"     schema:"type:ports,description:Port configuration,category:basic"`
	HeaderKey string                `json:"headerKey" schema:"type:string,description:Header checked on every record,required,category:basic"`
	IsNegate  bool                  `json:"isNegate"  schema:"type:bool,description:Drop records lacking the header instead,default:false,category:basic"`
	Workers   int                   `json:"workers"   schema:"type:int,description:Concurrent record workers,min:1,default:4,category:advanced"`
	QueueSize int                   `json:"queueSize" schema:"type:int,description:Records buffered ahead of the workers,min:1,default:1024,category:advanced"`
}

// Validate checks the filter settings
func (c *Config) Validate() error {
	if c.HeaderKey == "" {
		return errors.WrapInvalid(errors.ErrMissingConfig, "HeaderFilterProcessor", "Validate", "headerKey required")
	}
	if c.Workers < 0 || c.QueueSize < 0 {
		return errors.WrapInvalid(errors.ErrInvalidConfig, "HeaderFilterProcessor", "Validate",
			"workers and queueSize must not be negative")
	}
	return nil
}

// DefaultConfig returns the default configuration. HeaderKey has no default.
func DefaultConfig() Config {
	return Config{
		Ports: &component.PortConfig{
			Inputs: []component.PortDefinition{{
				Name:        "nats_input",
				Type:        "nats",
				Subject:     "records.in",
				Interface:   recordproc.RecordInterface,
				Required:    true,
				Description: "NATS subject carrying records to filter",
			}},
			Outputs: []component.PortDefinition{{
				Name:        "nats_output",
				Type:        "nats",
				Subject:     "records.filtered",
				Interface:   recordproc.RecordInterface,
				Required:    true,
				Description: "NATS subject for records that pass the filter",
			}},
		},
		Workers:   recordproc.DefaultWorkers,
		QueueSize: recordproc.DefaultQueueSize,
	}
}

var headerFilterSchema = component.GenerateConfigSchema(reflect.TypeOf(Config{}))

// NewProcessor creates a header filter processor from configuration
func NewProcessor(rawConfig json.RawMessage, deps component.Dependencies) (component.Discoverable, error) {
	config := DefaultConfig()
	if err := component.SafeUnmarshal(rawConfig, &config); err != nil {
		return nil, errors.Wrap(err, "HeaderFilterProcessor", "NewProcessor", "config unmarshal")
	}
	if config.Ports == nil {
		config.Ports = DefaultConfig().Ports
	}

	filter, err := transform.NewHeaderFilter(transform.FilterConfig{
		HeaderKey: config.HeaderKey,
		Negate:    config.IsNegate,
	})
	if err != nil {
		return nil, errors.WrapInvalid(err, "HeaderFilterProcessor", "NewProcessor", "build filter")
	}

	proc, err := recordproc.New(recordproc.Settings{
		Kind:        transform.KindHeaderFilter,
		Description: "Drops records carrying (or lacking) a header",
		Ports:       *config.Ports,
		Workers:     config.Workers,
		QueueSize:   config.QueueSize,
		Schema:      headerFilterSchema,
	}, filter, deps)
	if err != nil {
		return nil, err
	}
	return proc, nil
}

// Register registers the header filter processor component with the given registry
func Register(registry *component.Registry) error {
	return registry.RegisterWithConfig(component.RegistrationConfig{
		Name:        transform.KindHeaderFilter,
		Factory:     NewProcessor,
		Schema:      headerFilterSchema,
		Type:        "processor",
		Protocol:    "nats",
		Domain:      "processing",
		Description: "Drops records by the presence of a header",
		Version:     "0.1.0",
	})
}
