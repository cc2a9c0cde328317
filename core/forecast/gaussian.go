package forecast

import (
	"fmt"
	"math/rand/v2"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/kilianp07/caribou/core/model"
)

// GaussianForecaster perturbs each day of the historical price with a
// correlated normal draw sqrtm(Σ)·z, z ~ N(0, I₂₄).
//
// Src is consumed on every call, so two forecasters built from the same
// seed yield identical sequences of forecasts. A forecaster must not be
// shared between goroutines.
type GaussianForecaster struct {
	Src       rand.Source
	Tolerance float64
}

// NewGaussianForecaster returns a forecaster backed by a PCG source.
func NewGaussianForecaster(seed uint64) *GaussianForecaster {
	return &GaussianForecaster{Src: rand.NewPCG(seed, seed^0x9e3779b97f4a7c15), Tolerance: DefaultPSDTolerance}
}

// Forecast implements Forecaster.
func (g *GaussianForecaster) Forecast(hist []float64, cov *mat.SymDense, days int) (PriceForecast, error) {
	if g.Src == nil {
		return PriceForecast{}, fmt.Errorf("%w: gaussian forecaster needs a random source", model.ErrConfiguration)
	}
	if cov == nil {
		return PriceForecast{}, fmt.Errorf("%w: gaussian forecaster needs a covariance", model.ErrConfiguration)
	}
	m, err := baseline(hist, cov, days)
	if err != nil {
		return PriceForecast{}, err
	}
	tol := g.Tolerance
	if tol <= 0 {
		tol = DefaultPSDTolerance
	}
	root, err := Sqrtm(cov, tol)
	if err != nil {
		return PriceForecast{}, err
	}

	norm := distuv.Normal{Mu: 0, Sigma: 1, Src: g.Src}
	z := mat.NewVecDense(model.SlotsPerDay, nil)
	var delta mat.VecDense
	for d := 0; d < days; d++ {
		for i := 0; i < model.SlotsPerDay; i++ {
			z.SetVec(i, norm.Rand())
		}
		delta.MulVec(root, z)
		base := d * model.SlotsPerDay
		for i := 0; i < model.SlotsPerDay; i++ {
			m.Set(base+i, d, m.At(base+i, d)+delta.AtVec(i))
		}
	}
	return PriceForecast{Prices: m}, nil
}
