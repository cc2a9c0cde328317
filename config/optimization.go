package config

import (
	"fmt"
	"math"

	"github.com/kilianp07/caribou/core/coordinator"
	"github.com/kilianp07/caribou/core/forecast"
)

// StepConfig names the step policy of the dual update.
type StepConfig struct {
	// Kind is "fixed", "diminishing" or "harmonic".
	Kind string  `json:"kind"`
	Eta  float64 `json:"eta"`
}

// OptimizationConfig bounds the outer iteration.
type OptimizationConfig struct {
	MaxIterations int        `json:"max_iterations"`
	Tolerance     float64    `json:"tolerance"`
	Step          StepConfig `json:"step"`
	// Workers limits concurrent agent solves; 0 means one per agent.
	Workers int `json:"workers"`
	// Residual is "raw" or "violation".
	Residual       string `json:"residual"`
	StableCoupling bool   `json:"stable_coupling"`
}

// Iteration budget and tolerance used when the configuration omits them.
// Zero is a valid value for both, so they are seeded before the file is
// read instead of being filled in by SetDefaults.
const (
	DefaultMaxIterations = 200
	DefaultTolerance     = 1e-3
)

// SetDefaults applies fallback values for optional fields.
func (c *OptimizationConfig) SetDefaults() {
	if c.Step.Kind == "" {
		c.Step.Kind = "fixed"
	}
	if c.Step.Eta == 0 {
		c.Step.Eta = 0.01
	}
	if c.Residual == "" {
		c.Residual = "raw"
	}
}

// Validate checks the configuration ranges.
func (c OptimizationConfig) Validate() error {
	if c.MaxIterations < 0 {
		return fmt.Errorf("max_iterations must not be negative")
	}
	if !(c.Tolerance >= 0) || math.IsInf(c.Tolerance, 0) {
		return fmt.Errorf("tolerance must be a finite non-negative number")
	}
	if _, err := coordinator.ParseStepSize(c.Step.Kind, c.Step.Eta); err != nil {
		return err
	}
	if c.Workers < 0 {
		return fmt.Errorf("workers must not be negative")
	}
	_, err := coordinator.ParseResidualNorm(c.Residual)
	return err
}

// ForecastConfig selects the price forecaster.
type ForecastConfig struct {
	// Strategy is "gaussian" or "mean".
	Strategy string `json:"strategy"`
	// Redraw is "per_run" or "per_iteration".
	Redraw string `json:"redraw"`
	Seed   uint64 `json:"seed"`
}

func (c *ForecastConfig) SetDefaults() {
	if c.Strategy == "" {
		c.Strategy = "gaussian"
	}
	if c.Redraw == "" {
		c.Redraw = "per_run"
	}
	if c.Seed == 0 {
		c.Seed = 1
	}
}

func (c ForecastConfig) Validate() error {
	if _, err := forecast.New(c.Strategy, c.Seed); err != nil {
		return err
	}
	_, err := forecast.ParseRedrawPolicy(c.Redraw)
	return err
}
