package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/c360/semtransform/errors"
)

// DefaultEnvPrefix is prepended to every environment override name.
const DefaultEnvPrefix = "SEMTRANSFORM"

// Loader handles configuration loading with layers
type Loader struct {
	layers     []string
	validation bool
	envPrefix  string
	lookupEnv  func(string) (string, bool)
}

// NewLoader creates a new configuration loader
func NewLoader() *Loader {
	return &Loader{
		envPrefix: DefaultEnvPrefix,
		lookupEnv: os.LookupEnv,
	}
}

// AddLayer adds a configuration file layer. Later layers override earlier
// ones.
func (l *Loader) AddLayer(path string) {
	l.layers = append(l.layers, path)
}

// EnableValidation enables or disables configuration validation
func (l *Loader) EnableValidation(enable bool) {
	l.validation = enable
}

// LoadFile loads configuration from a single file
func (l *Loader) LoadFile(path string) (*Config, error) {
	l.layers = []string{path}
	return l.Load()
}

// Load merges the defaults, every layer and the environment overrides, in
// that order.
func (l *Loader) Load() (*Config, error) {
	merged, err := toMap(defaults())
	if err != nil {
		return nil, errors.WrapFatal(err, "Loader", "Load", "encode defaults")
	}

	for _, path := range l.layers {
		raw, err := l.loadRaw(path)
		if err != nil {
			return nil, errors.WrapInvalid(err, "Loader", "Load", fmt.Sprintf("load %s", path))
		}
		merged = deepMergeMaps(merged, raw)
	}

	data, err := json.Marshal(merged)
	if err != nil {
		return nil, errors.WrapInvalid(err, "Loader", "Load", "encode merged layers")
	}
	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, errors.WrapInvalid(err, "Loader", "Load", "decode merged layers")
	}

	if err := l.applyEnvOverrides(&cfg); err != nil {
		return nil, errors.WrapInvalid(err, "Loader", "Load", "environment overrides")
	}

	if l.validation {
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
	}
	return &cfg, nil
}

// defaults returns the configuration every layer is merged onto
func defaults() *Config {
	return &Config{
		Version: "1.0.0",
		NATS: NATSConfig{
			URLs:          []string{"nats://localhost:4222"},
			MaxReconnects: -1,
			ReconnectWait: 2 * time.Second,
			Timeout:       5 * time.Second,
			DrainTimeout:  30 * time.Second,
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Address: ":9090",
			Path:    "/metrics",
		},
	}
}

func toMap(cfg *Config) (map[string]any, error) {
	data, err := json.Marshal(cfg)
	if err != nil {
		return nil, err
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, err
	}
	return m, nil
}

// loadRaw reads one layer as a generic map and normalizes duration strings.
func (l *Loader) loadRaw(path string) (map[string]any, error) {
	data, err := safeReadFile(path)
	if err != nil {
		return nil, err
	}
	layerFormat, err := formatOf(path)
	if err != nil {
		return nil, err
	}

	var raw map[string]any
	switch layerFormat {
	case formatYAML:
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return nil, fmt.Errorf("invalid YAML: %w", err)
		}
		if err := validateValueDepth(raw, 1); err != nil {
			return nil, fmt.Errorf("invalid YAML structure: %w", err)
		}
	default:
		if err := validateJSONDepth(data); err != nil {
			return nil, fmt.Errorf("invalid JSON structure: %w", err)
		}
		decoder := json.NewDecoder(bytes.NewReader(data))
		decoder.UseNumber()
		if err := decoder.Decode(&raw); err != nil {
			return nil, fmt.Errorf("invalid JSON: %w", err)
		}
	}

	if raw == nil {
		raw = map[string]any{}
	}
	if err := parseDurations(raw); err != nil {
		return nil, err
	}
	return raw, nil
}

var durationFields = []string{"reconnect_wait", "timeout", "drain_timeout"}

// parseDurations converts NATS duration strings to integer nanoseconds so
// they decode into time.Duration.
func parseDurations(raw map[string]any) error {
	nats, ok := raw["nats"].(map[string]any)
	if !ok {
		return nil
	}
	for _, field := range durationFields {
		s, ok := nats[field].(string)
		if !ok {
			continue
		}
		d, err := time.ParseDuration(s)
		if err != nil {
			return fmt.Errorf("nats.%s: %w", field, err)
		}
		nats[field] = d.Nanoseconds()
	}
	return nil
}

// deepMergeMaps recursively merges two maps, with override taking precedence.
// Nil override values leave the base value in place.
func deepMergeMaps(base, override map[string]any) map[string]any {
	result := make(map[string]any, len(base)+len(override))
	for k, v := range base {
		result[k] = v
	}

	for k, v := range override {
		if v == nil {
			continue
		}
		if baseMap, ok := base[k].(map[string]any); ok {
			if overrideMap, ok := v.(map[string]any); ok {
				result[k] = deepMergeMaps(baseMap, overrideMap)
				continue
			}
		}
		result[k] = v
	}
	return result
}

type envOverride struct {
	name  string
	apply func(cfg *Config, value string) error
}

var envOverrides = []envOverride{
	{"PLATFORM_ORG", func(c *Config, v string) error { c.Platform.Org = v; return nil }},
	{"PLATFORM_ID", func(c *Config, v string) error { c.Platform.ID = v; return nil }},
	{"PLATFORM_ENVIRONMENT", func(c *Config, v string) error { c.Platform.Environment = v; return nil }},
	{"NATS_URLS", func(c *Config, v string) error {
		c.NATS.URLs = nil
		for _, u := range strings.Split(v, ",") {
			if u = strings.TrimSpace(u); u != "" {
				c.NATS.URLs = append(c.NATS.URLs, u)
			}
		}
		return nil
	}},
	{"NATS_USERNAME", func(c *Config, v string) error { c.NATS.Username = v; return nil }},
	{"NATS_PASSWORD", func(c *Config, v string) error { c.NATS.Password = v; return nil }},
	{"NATS_TOKEN", func(c *Config, v string) error { c.NATS.Token = v; return nil }},
	{"METRICS_ENABLED", func(c *Config, v string) error {
		enabled, err := strconv.ParseBool(v)
		if err != nil {
			return err
		}
		c.Metrics.Enabled = enabled
		return nil
	}},
	{"METRICS_ADDRESS", func(c *Config, v string) error { c.Metrics.Address = v; return nil }},
}

// applyEnvOverrides applies <prefix>_<NAME> variables that are set and non-empty
func (l *Loader) applyEnvOverrides(cfg *Config) error {
	for _, o := range envOverrides {
		key := l.envPrefix + "_" + o.name
		value, ok := l.lookupEnv(key)
		if !ok || value == "" {
			continue
		}
		if err := validateEnvVar(key, value); err != nil {
			return err
		}
		if err := o.apply(cfg, value); err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
	}
	return nil
}
