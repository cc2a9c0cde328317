package synthetic

import (
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/kilianp07/caribou/core/model"
)

func TestGeneratorDeterministic(t *testing.T) {
	cfg := Config{Seed: 7, Days: 3, Agents: 2}
	p1, err := New(cfg)
	require.NoError(t, err)
	p2, err := New(cfg)
	require.NoError(t, err)
	assert.Equal(t, p1.Price, p2.Price)
	assert.Equal(t, p1.PV, p2.PV)
	assert.Equal(t, p1.Agents, p2.Agents)

	p3, err := New(Config{Seed: 8, Days: 3, Agents: 2})
	require.NoError(t, err)
	assert.NotEqual(t, p1.Price, p3.Price)
}

func TestGeneratorShapes(t *testing.T) {
	ctx := context.Background()
	before := testutil.ToFloat64(datasetsTotal)
	p, err := New(Config{Days: 4, HorizonDays: 2, Agents: 3})
	require.NoError(t, err)
	assert.Equal(t, before+1, testutil.ToFloat64(datasetsTotal))

	h := model.Horizon(2)
	price, err := p.LoadAggregatePriceSeries(ctx, 2, 2)
	require.NoError(t, err)
	assert.Len(t, price, h)
	assert.True(t, model.AllFinite(price))

	pv, err := p.LoadPVGeneration(ctx, 0, 4)
	require.NoError(t, err)
	for i, v := range pv {
		assert.GreaterOrEqual(t, v, 0.0, "slot %d", i)
	}
	assert.Zero(t, pv[0])
	assert.Positive(t, pv[12])

	cov, err := p.LoadPriceCovariance(ctx)
	require.NoError(t, err)
	assert.Equal(t, model.SlotsPerDay, cov.SymmetricDim())
	var chol mat.Cholesky
	assert.True(t, chol.Factorize(cov))
	assert.InDelta(t, 1e-4, cov.At(3, 3), 1e-12)
	assert.InDelta(t, 0.7e-4, cov.At(3, 4), 1e-12)

	b, err := p.LoadCouplingMatrix(ctx)
	require.NoError(t, err)
	r, c := b.Dims()
	assert.Equal(t, h, r)
	assert.Equal(t, h, c)
	assert.Equal(t, 1.0, b.At(5, 5))
	assert.Zero(t, b.At(5, 6))

	agg, err := p.LoadAggregateBounds(ctx)
	require.NoError(t, err)
	require.NoError(t, agg.Validate(h))
	for id := 0; id < 3; id++ {
		ab, err := p.LoadAgentBounds(ctx, id)
		require.NoError(t, err)
		require.NoError(t, ab.Validate(h))
		for t2 := 1; t2 < h; t2++ {
			assert.LessOrEqual(t, ab.Min[t2]-ab.Min[t2-1], ab.RateLimit[t2])
		}
	}
	_, err = p.LoadAgentBounds(ctx, 3)
	assert.Error(t, err)
}

func TestGeneratorZeroCoupling(t *testing.T) {
	p, err := New(Config{Coupling: "zero"})
	require.NoError(t, err)
	assert.Zero(t, mat.Sum(p.Coupling))
}

func TestGeneratorSequence(t *testing.T) {
	g, err := NewGenerator(Config{Seed: 3})
	require.NoError(t, err)
	a, err := g.Generate()
	require.NoError(t, err)
	b, err := g.Generate()
	require.NoError(t, err)
	assert.NotEqual(t, a.Price, b.Price)
	assert.Equal(t, 7, g.Config().Days)
}

func TestConfigValidate(t *testing.T) {
	cases := map[string]func(*Config){
		"correlation": func(c *Config) { c.Correlation = 1 },
		"coupling":    func(c *Config) { c.Coupling = "dense" },
		"noise":       func(c *Config) { c.PriceNoise = -1 },
		"capacity":    func(c *Config) { c.CapacityShare = -0.5 },
		"target":      func(c *Config) { c.TargetShare = -0.1 },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := Config{}
			cfg.SetDefaults()
			mutate(&cfg)
			_, err := NewGenerator(cfg)
			assert.ErrorIs(t, err, model.ErrConfiguration)
		})
	}
}
