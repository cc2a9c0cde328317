package market

import (
	"context"
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/kilianp07/caribou/core/model"
)

// StaticProvider serves market data held in memory. Price and PV are
// stored as continuous hourly series starting at day 0.
type StaticProvider struct {
	Price      []float64
	PV         []float64
	Covariance *mat.SymDense
	Coupling   *mat.Dense
	Aggregate  AggregateBounds
	Agents     []AgentBounds
}

// LoadAggregatePriceSeries slices the stored price series.
func (p *StaticProvider) LoadAggregatePriceSeries(_ context.Context, startDay, horizonDays int) ([]float64, error) {
	return sliceDays("price", p.Price, startDay, horizonDays)
}

// LoadPVGeneration slices the stored PV series.
func (p *StaticProvider) LoadPVGeneration(_ context.Context, startDay, horizonDays int) ([]float64, error) {
	return sliceDays("pv", p.PV, startDay, horizonDays)
}

// LoadPriceCovariance returns a copy of the covariance matrix.
func (p *StaticProvider) LoadPriceCovariance(context.Context) (*mat.SymDense, error) {
	if p.Covariance == nil {
		return nil, fmt.Errorf("static provider: covariance not set")
	}
	cov := mat.NewSymDense(p.Covariance.SymmetricDim(), nil)
	cov.CopySym(p.Covariance)
	return cov, nil
}

// LoadCouplingMatrix returns a copy of B.
func (p *StaticProvider) LoadCouplingMatrix(context.Context) (*mat.Dense, error) {
	if p.Coupling == nil {
		return nil, fmt.Errorf("static provider: coupling matrix not set")
	}
	return mat.DenseCopyOf(p.Coupling), nil
}

// LoadAggregateBounds returns copies of the aggregate schedules.
func (p *StaticProvider) LoadAggregateBounds(context.Context) (AggregateBounds, error) {
	return AggregateBounds{Min: model.CloneVec(p.Aggregate.Min), Max: model.CloneVec(p.Aggregate.Max)}, nil
}

// LoadAgentBounds returns the bounds stored at the given identity.
func (p *StaticProvider) LoadAgentBounds(_ context.Context, identity int) (AgentBounds, error) {
	if identity < 0 || identity >= len(p.Agents) {
		return AgentBounds{}, ErrUnknownAgent{Identity: identity}
	}
	b := p.Agents[identity]
	return AgentBounds{
		Min:       model.CloneVec(b.Min),
		Max:       model.CloneVec(b.Max),
		RateLimit: model.CloneVec(b.RateLimit),
	}, nil
}

func sliceDays(what string, series []float64, startDay, horizonDays int) ([]float64, error) {
	if startDay < 0 || horizonDays <= 0 {
		return nil, fmt.Errorf("%w: invalid window start=%d days=%d", model.ErrConfiguration, startDay, horizonDays)
	}
	start := model.Horizon(startDay)
	stop := start + model.Horizon(horizonDays)
	if stop > len(series) {
		return nil, &model.DimensionError{What: what + " series", Got: len(series), Want: stop}
	}
	return model.CloneVec(series[start:stop]), nil
}
