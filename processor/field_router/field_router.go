// Package fieldrouter provides the field_router processor, which moves a
// record field to a new field or a header.
package fieldrouter

import (
	"encoding/json"
	"reflect"

	"github.com/c360/semtransform/component"
	"github.com/c360/semtransform/errors"
	"github.com/c360/semtransform/processor/recordproc"
	"github.com/c360/semtransform/transform"
)

// Config holds configuration for the field router processor. The regex
// options are pointers because an empty string is a valid format or default.
type Config struct {
	Ports             *component.PortConfig `json:"ports"                       schema:"type:ports,description:Port configuration,category:basic"`
	SourceKey         string                `json:"sourceKey"                   schema:"type:string,description:Dotted path of the field to route,required,category:basic"`
	DestKey           string                `json:"destKey,omitempty"           schema:"type:string,description:Top-level field or header name receiving the value,category:basic"`
	ToMetadata        bool                  `json:"toMetadata"                  schema:"type:bool,description:Route the value to a header,default:false,category:basic"`
	PreserveKeyInBody bool                  `json:"preserveKeyInBody"           schema:"type:bool,description:Keep the source field when destKey is set,default:false,category:basic"`
	RegexPattern      *string               `json:"regexPattern,omitempty"      schema:"type:string,description:RE2 pattern the value must fully match,category:advanced"`
	RegexFormat       *string               `json:"regexFormat,omitempty"       schema:"type:string,description:Replacement using $1 or ${name} references,category:advanced"`
	RegexDefaultValue *string               `json:"regexDefaultValue,omitempty" schema:"type:string,description:Value used when the pattern does not match,category:advanced"`
	Workers           int                   `json:"workers"                     schema:"type:int,description:Concurrent record workers,min:1,default:4,category:advanced"`
	QueueSize         int                   `json:"queueSize"                   schema:"type:int,description:Records buffered ahead of the workers,min:1,default:1024,category:advanced"`
}

// Validate checks the settings that do not need the transformation to be
// built. Option combinations are checked by transform.NewFieldRouter.
func (c *Config) Validate() error {
	if c.SourceKey == "" {
		return errors.WrapInvalid(errors.ErrMissingConfig, "FieldRouterProcessor", "Validate", "sourceKey required")
	}
	if c.Workers < 0 || c.QueueSize < 0 {
		return errors.WrapInvalid(errors.ErrInvalidConfig, "FieldRouterProcessor", "Validate",
			"workers and queueSize must not be negative")
	}
	return nil
}

// RouterConfig converts c to the transformation settings.
func (c *Config) RouterConfig() transform.RouterConfig {
	return transform.RouterConfig{
		SourceKey:      c.SourceKey,
		DestKey:        c.DestKey,
		ToMetadata:     c.ToMetadata,
		PreserveInBody: c.PreserveKeyInBody,
		RegexPattern:   c.RegexPattern,
		RegexFormat:    c.RegexFormat,
		RegexDefault:   c.RegexDefaultValue,
	}
}

// DefaultConfig returns the default configuration. SourceKey has no default.
func DefaultConfig() Config {
	return Config{
		Ports: &component.PortConfig{
			Inputs: []component.PortDefinition{{
				Name:        "nats_input",
				Type:        "nats",
				Subject:     "records.in",
				Interface:   recordproc.RecordInterface,
				Required:    true,
				Description: "NATS subject carrying records to route",
			}},
			Outputs: []component.PortDefinition{{
				Name:        "nats_output",
				Type:        "nats",
				Subject:     "records.routed",
				Interface:   recordproc.RecordInterface,
				Required:    true,
				Description: "NATS subject for routed records",
			}},
		},
		Workers:   recordproc.DefaultWorkers,
		QueueSize: recordproc.DefaultQueueSize,
	}
}

var fieldRouterSchema = component.GenerateConfigSchema(reflect.TypeOf(Config{}))

// NewProcessor creates a field router processor from configuration
func NewProcessor(rawConfig json.RawMessage, deps component.Dependencies) (component.Discoverable, error) {
	config := DefaultConfig()
	if err := component.SafeUnmarshal(rawConfig, &config); err != nil {
		return nil, errors.Wrap(err, "FieldRouterProcessor", "NewProcessor", "config unmarshal")
	}
	if config.Ports == nil {
		config.Ports = DefaultConfig().Ports
	}

	name := deps.NameOr(transform.KindFieldRouter)
	router, err := transform.NewFieldRouter(config.RouterConfig(),
		transform.WithLogger(deps.GetLoggerWithComponent(name)))
	if err != nil {
		return nil, errors.WrapInvalid(err, "FieldRouterProcessor", "NewProcessor", "build router")
	}

	proc, err := recordproc.New(recordproc.Settings{
		Kind:        transform.KindFieldRouter,
		Description: "Routes a record field to a new field or a header",
		Ports:       *config.Ports,
		Workers:     config.Workers,
		QueueSize:   config.QueueSize,
		Schema:      fieldRouterSchema,
	}, router, deps)
	if err != nil {
		return nil, err
	}
	return proc, nil
}

// Register registers the field router processor component with the given registry
func Register(registry *component.Registry) error {
	return registry.RegisterWithConfig(component.RegistrationConfig{
		Name:        transform.KindFieldRouter,
		Factory:     NewProcessor,
		Schema:      fieldRouterSchema,
		Type:        "processor",
		Protocol:    "nats",
		Domain:      "processing",
		Description: "Routes a record field to a new field or a header",
		Version:     "0.1.0",
	})
}
