package coordinator

import (
	"fmt"

	"github.com/kilianp07/caribou/core/forecast"
	"github.com/kilianp07/caribou/core/model"
)

// ResidualNorm selects how the capacity subgradient enters the stopping
// residual.
type ResidualNorm int

const (
	// ResidualRaw uses ‖g_mu‖₂ + ‖g_nu‖₂.
	ResidualRaw ResidualNorm = iota
	// ResidualViolation only counts capacity excess: ‖g_mu‖₂ + ‖max(0, g_nu)‖₂.
	ResidualViolation
)

// ParseResidualNorm maps "raw" (or empty) and "violation".
func ParseResidualNorm(s string) (ResidualNorm, error) {
	switch s {
	case "", "raw":
		return ResidualRaw, nil
	case "violation":
		return ResidualViolation, nil
	default:
		return 0, fmt.Errorf("unknown residual norm %q", s)
	}
}

// Config parameterises a Coordinator.
type Config struct {
	// StartDay and HorizonDays select the market window; H = 24·HorizonDays.
	StartDay    int
	HorizonDays int
	Step        StepSize
	Redraw      forecast.RedrawPolicy
	Residual    ResidualNorm
	// StableCoupling flips the sign of the mu update to mu − η·g_mu, which
	// makes the equality block an ascent step for fq = … + B·mu.
	StableCoupling bool
	// Workers bounds the number of concurrent Solve calls. Zero runs one
	// goroutine per agent.
	Workers int
}

// DefaultConfig plans one day from day zero with a fixed step of 0.01.
func DefaultConfig() Config {
	return Config{HorizonDays: 1, Step: StepSize{Kind: StepFixed, Eta: 0.01}}
}

// Horizon returns H.
func (c Config) Horizon() int { return model.Horizon(c.HorizonDays) }

// Validate checks the configuration.
func (c Config) Validate() error {
	if c.StartDay < 0 {
		return fmt.Errorf("%w: start day must not be negative", model.ErrConfiguration)
	}
	if c.HorizonDays <= 0 {
		return fmt.Errorf("%w: horizon days must be positive", model.ErrConfiguration)
	}
	if err := c.Step.Validate(); err != nil {
		return fmt.Errorf("%w: %v", model.ErrConfiguration, err)
	}
	if c.Workers < 0 {
		return fmt.Errorf("%w: workers must not be negative", model.ErrConfiguration)
	}
	if c.Residual != ResidualRaw && c.Residual != ResidualViolation {
		return fmt.Errorf("%w: unknown residual norm", model.ErrConfiguration)
	}
	return nil
}
