// Package market defines the read-only contract through which the
// optimisation core obtains prices, price covariance, the coupling matrix
// and aggregate or per-agent bounds. Implementations live under
// infra/market; StaticProvider serves tests and embedded data.
package market

import (
	"context"
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/kilianp07/caribou/core/model"
)

// AggregateBounds are the fleet-wide schedules the coupling constraints are
// measured against. Min is the target of the equality coupling constraint
// (B·X·1 = Min) and Max the capacity of the inequality constraint
// (X·1 ≤ Max).
type AggregateBounds struct {
	Min []float64 `json:"min"`
	Max []float64 `json:"max"`
}

// Validate checks both schedules cover h slots.
func (b AggregateBounds) Validate(h int) error {
	if err := model.CheckLen("aggregate min", b.Min, h); err != nil {
		return err
	}
	return model.CheckLen("aggregate max", b.Max, h)
}

// AgentBounds are the private limits of one agent. Min and Max bound the
// stored energy at the end of each slot; RateLimit bounds the absolute
// power exchanged during each slot.
type AgentBounds struct {
	Min       []float64 `json:"min"`
	Max       []float64 `json:"max"`
	RateLimit []float64 `json:"rate_limit"`
}

// Validate checks the three sequences cover h slots.
func (b AgentBounds) Validate(h int) error {
	if err := model.CheckLen("agent energy min", b.Min, h); err != nil {
		return err
	}
	if err := model.CheckLen("agent energy max", b.Max, h); err != nil {
		return err
	}
	return model.CheckLen("agent rate limit", b.RateLimit, h)
}

// Provider supplies market data. All methods are pure reads.
type Provider interface {
	// LoadAggregatePriceSeries returns the hourly day-ahead price for
	// horizonDays days starting at startDay.
	LoadAggregatePriceSeries(ctx context.Context, startDay, horizonDays int) ([]float64, error)
	// LoadPriceCovariance returns the 24×24 covariance of hourly prices.
	LoadPriceCovariance(ctx context.Context) (*mat.SymDense, error)
	// LoadCouplingMatrix returns B, mapping aggregate actions to the
	// equality coupling constraint.
	LoadCouplingMatrix(ctx context.Context) (*mat.Dense, error)
	LoadAggregateBounds(ctx context.Context) (AggregateBounds, error)
	LoadAgentBounds(ctx context.Context, identity int) (AgentBounds, error)
}

// PVProvider is implemented by providers that also expose a photovoltaic
// generation profile.
type PVProvider interface {
	LoadPVGeneration(ctx context.Context, startDay, horizonDays int) ([]float64, error)
}

// ErrUnknownAgent is returned when no bounds exist for an identity.
type ErrUnknownAgent struct{ Identity int }

func (e ErrUnknownAgent) Error() string {
	return fmt.Sprintf("no bounds for agent %d", e.Identity)
}
