// Package scenarios replays coordinator runs described in YAML files and
// checks their outcome.
package scenarios

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/kilianp07/caribou/config"
	"github.com/kilianp07/caribou/infra/market/synthetic"
)

// MarketDef is the synthetic market of a scenario.
type MarketDef struct {
	Seed     uint64 `yaml:"seed"`
	Agents   int    `yaml:"agents"`
	Coupling string `yaml:"coupling,omitempty"`
}

// ToConfig returns the generator configuration with defaults applied.
func (m MarketDef) ToConfig() synthetic.Config {
	c := synthetic.Config{Seed: m.Seed, Agents: m.Agents, Coupling: m.Coupling}
	c.SetDefaults()
	return c
}

type StepDef struct {
	Kind string  `yaml:"kind"`
	Eta  float64 `yaml:"eta"`
}

type Expected struct {
	Iterations int  `yaml:"iterations"`
	Responses  int  `yaml:"responses"`
	Converged  bool `yaml:"converged"`
}

type Scenario struct {
	Name           string               `yaml:"name"`
	Description    string               `yaml:"description,omitempty"`
	Market         MarketDef            `yaml:"market"`
	Agents         []config.AgentConfig `yaml:"agents"`
	MaxIterations  int                  `yaml:"max_iterations"`
	Tolerance      float64              `yaml:"tolerance"`
	Step           StepDef              `yaml:"step"`
	StableCoupling bool                 `yaml:"stable_coupling"`
	Residual       string               `yaml:"residual,omitempty"`
	Expected       Expected             `yaml:"expected"`
}

func Load(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var sc Scenario
	if err := yaml.Unmarshal(data, &sc); err != nil {
		return nil, err
	}
	if sc.Name == "" {
		return nil, fmt.Errorf("%s: scenario name is required", path)
	}
	return &sc, nil
}

// Config turns the scenario into a service configuration. Trace and
// metrics stay disabled.
func (sc *Scenario) Config() (*config.Config, error) {
	cfg := config.Default()
	cfg.Market.Source = "synthetic"
	cfg.Market.Synthetic = sc.Market.ToConfig()
	cfg.Roster = config.RosterConfig{Agents: sc.Agents}
	cfg.Optimization.Step = config.StepConfig{Kind: sc.Step.Kind, Eta: sc.Step.Eta}
	cfg.Optimization.StableCoupling = sc.StableCoupling
	cfg.Optimization.Residual = sc.Residual
	cfg.Log.Level = "warn"
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("scenario %s: %w", sc.Name, err)
	}
	return cfg, nil
}
