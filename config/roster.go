package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/kilianp07/caribou/core/agent"
	"github.com/kilianp07/caribou/core/model"
)

// AgentConfig describes Count agents of one kind. Identities are assigned
// in roster order.
type AgentConfig struct {
	// Type is "ev", "generator" or "vehicles".
	Type      string              `json:"type" yaml:"type"`
	Count     int                 `json:"count" yaml:"count"`
	EV        agent.EVSpec        `json:"ev" yaml:"ev"`
	Generator agent.GeneratorSpec `json:"generator" yaml:"generator"`
	// Vehicles are pooled into a single fleet agent.
	Vehicles       []model.Vehicle `json:"vehicles" yaml:"vehicles"`
	ThroughputCost float64         `json:"throughput_cost" yaml:"throughput_cost"`
}

// RosterConfig lists the agents of a run, inline or in a separate YAML
// file. A file replaces the inline entries.
type RosterConfig struct {
	File   string        `json:"file" yaml:"-"`
	Agents []AgentConfig `json:"agents" yaml:"agents"`
	// PVSeed randomises PV profiles when non-zero.
	PVSeed uint64 `json:"pv_seed" yaml:"pv_seed"`
}

// SetDefaults gives an empty roster three EV fleets.
func (c *RosterConfig) SetDefaults() {
	if c.File == "" && len(c.Agents) == 0 {
		c.Agents = []AgentConfig{{Type: "ev", Count: 3}}
	}
	for i := range c.Agents {
		if c.Agents[i].Count == 0 {
			c.Agents[i].Count = 1
		}
	}
}

// Validate checks every entry.
func (c RosterConfig) Validate() error {
	for i, a := range c.Agents {
		if err := a.Validate(); err != nil {
			return fmt.Errorf("agent entry %d: %w", i, err)
		}
	}
	return nil
}

// Validate checks the kind and count of one entry.
func (a AgentConfig) Validate() error {
	switch a.Type {
	case "ev", "generator":
	case "vehicles":
		if len(a.Vehicles) == 0 {
			return fmt.Errorf("vehicles entry needs at least one vehicle")
		}
		for _, v := range a.Vehicles {
			if err := v.Validate(); err != nil {
				return err
			}
		}
	default:
		return fmt.Errorf("unknown agent type %q", a.Type)
	}
	if a.Count < 0 {
		return fmt.Errorf("count must not be negative")
	}
	return nil
}

// Resolve returns the roster with File loaded, defaults applied and
// entries validated.
func (c RosterConfig) Resolve() (RosterConfig, error) {
	if c.File == "" {
		return c, nil
	}
	loaded, err := LoadRoster(c.File)
	if err != nil {
		return RosterConfig{}, err
	}
	if loaded.PVSeed == 0 {
		loaded.PVSeed = c.PVSeed
	}
	return *loaded, nil
}

// LoadRoster reads a YAML roster file.
func LoadRoster(path string) (*RosterConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var rc RosterConfig
	if err := yaml.Unmarshal(data, &rc); err != nil {
		return nil, fmt.Errorf("%w: roster %s: %v", model.ErrConfiguration, path, err)
	}
	if len(rc.Agents) == 0 {
		return nil, fmt.Errorf("%w: roster %s lists no agents", model.ErrConfiguration, path)
	}
	rc.SetDefaults()
	if err := rc.Validate(); err != nil {
		return nil, fmt.Errorf("%w: roster %s: %v", model.ErrConfiguration, path, err)
	}
	return &rc, nil
}
