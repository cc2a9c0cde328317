package market

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/kilianp07/caribou/core/model"
)

func TestStaticProvider_PriceWindow(t *testing.T) {
	price := make([]float64, 72)
	for i := range price {
		price[i] = float64(i)
	}
	p := &StaticProvider{Price: price}
	out, err := p.LoadAggregatePriceSeries(context.Background(), 1, 2)
	require.NoError(t, err)
	require.Len(t, out, 48)
	assert.Equal(t, 24.0, out[0])
	assert.Equal(t, 71.0, out[47])

	out[0] = -1
	assert.Equal(t, 24.0, price[24], "returned slice must be a copy")

	_, err = p.LoadAggregatePriceSeries(context.Background(), 2, 2)
	assert.True(t, errors.Is(err, model.ErrDimensionMismatch))
	_, err = p.LoadAggregatePriceSeries(context.Background(), 0, 0)
	assert.True(t, errors.Is(err, model.ErrConfiguration))
}

func TestStaticProvider_AgentBounds(t *testing.T) {
	p := &StaticProvider{Agents: []AgentBounds{{Min: []float64{0}, Max: []float64{1}, RateLimit: []float64{2}}}}
	b, err := p.LoadAgentBounds(context.Background(), 0)
	require.NoError(t, err)
	assert.Equal(t, []float64{2}, b.RateLimit)

	_, err = p.LoadAgentBounds(context.Background(), 1)
	var unk ErrUnknownAgent
	require.ErrorAs(t, err, &unk)
	assert.Equal(t, 1, unk.Identity)
}

func TestStaticProvider_MatricesAreCopies(t *testing.T) {
	p := &StaticProvider{
		Covariance: mat.NewSymDense(2, []float64{1, 0, 0, 1}),
		Coupling:   mat.NewDense(2, 2, []float64{1, 0, 0, 1}),
	}
	cov, err := p.LoadPriceCovariance(context.Background())
	require.NoError(t, err)
	cov.SetSym(0, 0, 5)
	assert.Equal(t, 1.0, p.Covariance.At(0, 0))

	b, err := p.LoadCouplingMatrix(context.Background())
	require.NoError(t, err)
	b.Set(0, 1, 3)
	assert.Equal(t, 0.0, p.Coupling.At(0, 1))

	_, err = (&StaticProvider{}).LoadPriceCovariance(context.Background())
	assert.Error(t, err)
}

func TestBoundsValidate(t *testing.T) {
	agg := AggregateBounds{Min: make([]float64, 24), Max: make([]float64, 23)}
	assert.True(t, errors.Is(agg.Validate(24), model.ErrDimensionMismatch))
	ab := AgentBounds{Min: make([]float64, 24), Max: make([]float64, 24), RateLimit: make([]float64, 24)}
	assert.NoError(t, ab.Validate(24))
}
