package config

import (
	"fmt"

	"github.com/rs/zerolog"
)

// LogConfig sets the level and format of the application logs.
type LogConfig struct {
	// Level is a zerolog level name.
	Level string `json:"level"`
	// Console selects human readable output instead of JSON.
	Console bool `json:"console"`
}

// SetDefaults applies sane defaults.
func (c *LogConfig) SetDefaults() {
	if c.Level == "" {
		c.Level = "info"
	}
}

// Validate checks the level name.
func (c LogConfig) Validate() error {
	if _, err := zerolog.ParseLevel(c.Level); err != nil {
		return fmt.Errorf("log level %q: %w", c.Level, err)
	}
	return nil
}
