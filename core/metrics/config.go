package metrics

import (
	"fmt"

	"github.com/kilianp07/caribou/core/factory"
)

// Config defines settings for metrics sinks.
type Config struct {
	Sinks []factory.ModuleConfig `json:"sinks" yaml:"sinks"`
	// PrometheusPort exposes /metrics when set, e.g. "9090".
	PrometheusPort string `json:"prometheus_port" yaml:"prometheus_port"`
	// APIToken protects the /api endpoints served next to /metrics.
	APIToken string `json:"api_token" yaml:"api_token"`
}

// Validate checks that every sink names a type.
func (c Config) Validate() error {
	for i, s := range c.Sinks {
		if s.Type == "" {
			return fmt.Errorf("metrics sink %d: type is required", i)
		}
	}
	return nil
}
