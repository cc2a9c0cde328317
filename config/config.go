package config

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/kilianp07/caribou/core/coordinator"
	"github.com/kilianp07/caribou/core/forecast"
	"github.com/kilianp07/caribou/core/metrics"
	"github.com/kilianp07/caribou/core/model"
	"github.com/kilianp07/caribou/core/trace"
	"github.com/kilianp07/caribou/infra/monitoring"
)

type Config struct {
	Optimization OptimizationConfig `json:"optimization"`
	Forecast     ForecastConfig     `json:"forecast"`
	Market       MarketConfig       `json:"market"`
	Roster       RosterConfig       `json:"roster"`
	Metrics      metrics.Config     `json:"metrics"`
	Trace        trace.Config       `json:"trace"`
	Sentry       monitoring.Config  `json:"sentry"`
	Log          LogConfig          `json:"log"`
}

// Load reads a YAML or JSON file, applies K_ prefixed environment
// overrides (K_OPTIMIZATION__TOLERANCE sets optimization.tolerance), fills
// in defaults and validates the result.
func Load(path string) (*Config, error) {
	k := koanf.New(".")
	ext := strings.ToLower(filepath.Ext(path))
	var parser koanf.Parser
	switch ext {
	case ".yaml", ".yml":
		parser = yaml.Parser()
	case ".json":
		parser = json.Parser()
	default:
		return nil, fmt.Errorf("%w: unsupported config format: %s", model.ErrConfiguration, ext)
	}
	for key, v := range map[string]any{
		"optimization.max_iterations": DefaultMaxIterations,
		"optimization.tolerance":      DefaultTolerance,
	} {
		if err := k.Set(key, v); err != nil {
			return nil, err
		}
	}
	if err := k.Load(file.Provider(path), parser); err != nil {
		return nil, err
	}
	// Optional environment overrides
	if err := k.Load(env.Provider("K_", ".", func(s string) string {
		s = strings.TrimPrefix(strings.ToLower(s), "k_")
		return strings.ReplaceAll(s, "__", ".")
	}), nil); err != nil {
		return nil, err
	}
	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "json"}); err != nil {
		return nil, err
	}
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Default returns a validated configuration running a synthetic market.
func Default() *Config {
	cfg := Config{Optimization: OptimizationConfig{
		MaxIterations: DefaultMaxIterations,
		Tolerance:     DefaultTolerance,
	}}
	cfg.SetDefaults()
	return &cfg
}

// SetDefaults applies the defaults of every section.
func (c *Config) SetDefaults() {
	c.Optimization.SetDefaults()
	c.Forecast.SetDefaults()
	c.Market.SetDefaults()
	c.Roster.SetDefaults()
	c.Trace.SetDefaults()
	c.Log.SetDefaults()
}

// Validate checks every section.
func (c Config) Validate() error {
	checks := []struct {
		name string
		fn   func() error
	}{
		{"optimization", c.Optimization.Validate},
		{"forecast", c.Forecast.Validate},
		{"market", c.Market.Validate},
		{"roster", c.Roster.Validate},
		{"metrics", c.Metrics.Validate},
		{"trace", c.Trace.Validate},
		{"sentry", c.Sentry.Validate},
		{"log", c.Log.Validate},
	}
	for _, chk := range checks {
		if err := chk.fn(); err != nil {
			return fmt.Errorf("%w: %s: %v", model.ErrConfiguration, chk.name, err)
		}
	}
	return nil
}

// Coordinator maps the optimization, forecast and market sections onto a
// coordinator configuration.
func (c Config) Coordinator() (coordinator.Config, error) {
	step, err := coordinator.ParseStepSize(c.Optimization.Step.Kind, c.Optimization.Step.Eta)
	if err != nil {
		return coordinator.Config{}, fmt.Errorf("%w: %v", model.ErrConfiguration, err)
	}
	redraw, err := forecast.ParseRedrawPolicy(c.Forecast.Redraw)
	if err != nil {
		return coordinator.Config{}, err
	}
	residual, err := coordinator.ParseResidualNorm(c.Optimization.Residual)
	if err != nil {
		return coordinator.Config{}, fmt.Errorf("%w: %v", model.ErrConfiguration, err)
	}
	cc := coordinator.Config{
		StartDay:       c.Market.StartDay,
		HorizonDays:    c.Market.HorizonDays,
		Step:           step,
		Redraw:         redraw,
		Residual:       residual,
		StableCoupling: c.Optimization.StableCoupling,
		Workers:        c.Optimization.Workers,
	}
	return cc, cc.Validate()
}
