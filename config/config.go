package config

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"time"
	"unicode"

	"github.com/c360/semtransform/errors"
	"github.com/c360/semtransform/types"
)

// ComponentConfigs holds component instance configurations keyed by
// instance name (e.g. "strip-debug").
type ComponentConfigs map[string]types.ComponentConfig

// Config represents the complete application configuration
type Config struct {
	Version    string           `json:"version"`
	Platform   PlatformConfig   `json:"platform"`
	NATS       NATSConfig       `json:"nats"`
	Metrics    MetricsConfig    `json:"metrics"`
	Components ComponentConfigs `json:"components"`
}

// PlatformConfig defines platform identity
type PlatformConfig struct {
	Org         string `json:"org"` // lower-cased, usable as a NATS subject token
	ID          string `json:"id"`
	Environment string `json:"environment,omitempty"`
}

// NATSConfig defines NATS connection settings
type NATSConfig struct {
	URLs          []string      `json:"urls,omitempty"`
	Name          string        `json:"name,omitempty"`
	MaxReconnects int           `json:"max_reconnects,omitempty"`
	ReconnectWait time.Duration `json:"reconnect_wait,omitempty"`
	Timeout       time.Duration `json:"timeout,omitempty"`
	DrainTimeout  time.Duration `json:"drain_timeout,omitempty"`
	Username      string        `json:"username,omitempty"`
	Password      string        `json:"password,omitempty"`
	Token         string        `json:"token,omitempty"`
}

// MetricsConfig controls the Prometheus listener
type MetricsConfig struct {
	Enabled bool   `json:"enabled"`
	Address string `json:"address,omitempty"`
	Path    string `json:"path,omitempty"`
}

// ServerURL joins the configured URLs in the comma-separated form accepted
// by nats.Connect.
func (n NATSConfig) ServerURL() string {
	return strings.Join(n.URLs, ",")
}

// PlatformMeta returns the identity handed to components.
func (c *Config) PlatformMeta() types.PlatformMeta {
	return types.PlatformMeta{Org: c.Platform.Org, Platform: c.Platform.ID}
}

// EnabledComponents returns the instances with enabled set.
func (c *Config) EnabledComponents() ComponentConfigs {
	enabled := make(ComponentConfigs, len(c.Components))
	for name, cc := range c.Components {
		if cc.Enabled {
			enabled[name] = cc
		}
	}
	return enabled
}

func invalid(format string, args ...any) error {
	return errors.WrapInvalid(fmt.Errorf(format, args...), "Config", "Validate", "config validation")
}

// Validate checks the configuration and normalizes platform.org to lower
// case.
func (c *Config) Validate() error {
	if c.Platform.Org == "" {
		return invalid("platform.org is required")
	}
	c.Platform.Org = strings.ToLower(c.Platform.Org)
	if !isValidNATSSubjectPart(c.Platform.Org) {
		return invalid("platform.org '%s' is not valid for NATS subjects "+
			"(must be alphanumeric with dots, dashes, underscores)", c.Platform.Org)
	}
	if c.Platform.ID == "" {
		return invalid("platform.id is required")
	}

	if len(c.NATS.URLs) == 0 {
		return invalid("nats.urls is required")
	}
	for _, raw := range c.NATS.URLs {
		u, err := url.Parse(raw)
		if err != nil || u.Host == "" {
			return invalid("nats.urls entry %q is not a valid server URL", raw)
		}
	}
	if c.NATS.ReconnectWait < 0 || c.NATS.Timeout < 0 || c.NATS.DrainTimeout < 0 {
		return invalid("nats durations cannot be negative")
	}

	if c.Metrics.Enabled {
		if c.Metrics.Address == "" {
			return invalid("metrics.address is required when metrics are enabled")
		}
		if !strings.HasPrefix(c.Metrics.Path, "/") {
			return invalid("metrics.path must start with '/'")
		}
	}

	for instanceName, cc := range c.Components {
		if instanceName == "" {
			return invalid("component instance name cannot be empty")
		}
		if err := cc.Validate(); err != nil {
			return errors.Wrap(err, "Config", "Validate", fmt.Sprintf("component %s", instanceName))
		}
	}

	return nil
}

// isValidNATSSubjectPart reports whether s may be used as one NATS subject
// token: letters, digits, dots, dashes and underscores.
func isValidNATSSubjectPart(s string) bool {
	if len(s) == 0 {
		return false
	}
	for _, r := range s {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) &&
			r != '-' && r != '_' && r != '.' {
			return false
		}
	}
	return true
}

// String renders the configuration as indented JSON with credentials masked.
func (c *Config) String() string {
	redacted := *c
	if redacted.NATS.Password != "" {
		redacted.NATS.Password = "********"
	}
	if redacted.NATS.Token != "" {
		redacted.NATS.Token = "********"
	}
	data, err := json.MarshalIndent(redacted, "", "  ")
	if err != nil {
		return fmt.Sprintf("Config{version=%s, org=%s}", c.Version, c.Platform.Org)
	}
	return string(data)
}
