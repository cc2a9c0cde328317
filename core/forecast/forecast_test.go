package forecast

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/kilianp07/caribou/core/model"
)

// expCovariance builds a 24×24 covariance with exponentially decaying
// correlation between hours.
func expCovariance(sigma, rho float64) *mat.SymDense {
	cov := mat.NewSymDense(model.SlotsPerDay, nil)
	for i := 0; i < model.SlotsPerDay; i++ {
		for j := i; j < model.SlotsPerDay; j++ {
			cov.SetSym(i, j, sigma*sigma*math.Pow(rho, float64(j-i)))
		}
	}
	return cov
}

func history(days int) []float64 {
	h := make([]float64, model.Horizon(days))
	for i := range h {
		h[i] = 0.04 + 0.01*math.Sin(2*math.Pi*float64(i%24)/24)
	}
	return h
}

func TestGaussianForecaster_Reproducible(t *testing.T) {
	hist := history(2)
	cov := expCovariance(0.01, 0.8)

	a, err := NewGaussianForecaster(42).Forecast(hist, cov, 2)
	require.NoError(t, err)
	b, err := NewGaussianForecaster(42).Forecast(hist, cov, 2)
	require.NoError(t, err)
	assert.True(t, mat.Equal(a.Prices, b.Prices), "same seed must give bit-identical forecasts")

	c, err := NewGaussianForecaster(7).Forecast(hist, cov, 2)
	require.NoError(t, err)
	assert.False(t, mat.Equal(a.Prices, c.Prices), "different seeds should differ")
	assert.Equal(t, 48, c.Horizon())
	assert.Equal(t, 2, c.Days())
}

func TestGaussianForecaster_FreshDrawEachCall(t *testing.T) {
	f := NewGaussianForecaster(1)
	cov := expCovariance(0.01, 0.5)
	a, err := f.Forecast(history(1), cov, 1)
	require.NoError(t, err)
	b, err := f.Forecast(history(1), cov, 1)
	require.NoError(t, err)
	assert.False(t, mat.Equal(a.Prices, b.Prices))
}

func TestGaussianForecaster_OnlyOwnDayPerturbed(t *testing.T) {
	hist := history(3)
	pf, err := NewGaussianForecaster(3).Forecast(hist, expCovariance(0.02, 0.9), 3)
	require.NoError(t, err)
	for d := 0; d < 3; d++ {
		col := pf.Column(d)
		for t2 := range col {
			if t2/model.SlotsPerDay == d {
				continue
			}
			assert.Equal(t, hist[t2], col[t2], "day %d slot %d", d, t2)
		}
	}
	traj := pf.Trajectory()
	require.Len(t, traj, 72)
	assert.Equal(t, pf.Prices.At(30, 1), traj[30])
}

func TestGaussianForecaster_ZeroCovarianceIsMean(t *testing.T) {
	hist := history(1)
	pf, err := NewGaussianForecaster(9).Forecast(hist, mat.NewSymDense(24, nil), 1)
	require.NoError(t, err)
	assert.Equal(t, hist, pf.Trajectory())
}

func TestGaussianForecaster_Errors(t *testing.T) {
	cov := expCovariance(0.01, 0.5)
	_, err := NewGaussianForecaster(1).Forecast(history(1), cov, 2)
	assert.True(t, errors.Is(err, model.ErrDimensionMismatch))

	_, err = NewGaussianForecaster(1).Forecast(history(1), mat.NewSymDense(23, nil), 1)
	assert.True(t, errors.Is(err, model.ErrDimensionMismatch))

	_, err = NewGaussianForecaster(1).Forecast(history(1), cov, 0)
	assert.True(t, errors.Is(err, model.ErrConfiguration))

	_, err = (&GaussianForecaster{}).Forecast(history(1), cov, 1)
	assert.True(t, errors.Is(err, model.ErrConfiguration))

	bad := mat.NewSymDense(24, nil)
	for i := 0; i < 24; i++ {
		bad.SetSym(i, i, 1)
	}
	bad.SetSym(5, 5, -1)
	_, err = NewGaussianForecaster(1).Forecast(history(1), bad, 1)
	assert.True(t, errors.Is(err, model.ErrNumerical))
}

func TestSqrtm_SquaresBack(t *testing.T) {
	cov := expCovariance(1, 0.7)
	root, err := Sqrtm(cov, DefaultPSDTolerance)
	require.NoError(t, err)
	var sq mat.Dense
	sq.Mul(root, root)
	assert.True(t, mat.EqualApprox(&sq, cov, 1e-9))
}

func TestSqrtm_SingularPSD(t *testing.T) {
	// rank one: v·vᵀ with v = (1, 1)
	a := mat.NewSymDense(2, []float64{1, 1, 1, 1})
	root, err := Sqrtm(a, DefaultPSDTolerance)
	require.NoError(t, err)
	want := 1 / math.Sqrt2
	assert.InDelta(t, want, root.At(0, 0), 1e-9)
	assert.InDelta(t, want, root.At(0, 1), 1e-9)
}

func TestSqrtm_NaN(t *testing.T) {
	a := mat.NewSymDense(2, []float64{1, 0, 0, math.NaN()})
	_, err := Sqrtm(a, DefaultPSDTolerance)
	assert.True(t, errors.Is(err, model.ErrNumerical))
}

func TestMeanForecaster(t *testing.T) {
	hist := append(history(1), 99)
	pf, err := MeanForecaster{}.Forecast(hist, nil, 1)
	require.NoError(t, err)
	assert.Equal(t, hist[:24], pf.Trajectory())
}

func TestNewAndParse(t *testing.T) {
	f, err := New("mean", 0)
	require.NoError(t, err)
	assert.IsType(t, MeanForecaster{}, f)
	f, err = New("gaussian", 1)
	require.NoError(t, err)
	assert.IsType(t, &GaussianForecaster{}, f)
	_, err = New("oracle", 0)
	assert.True(t, errors.Is(err, model.ErrConfiguration))

	p, err := ParseRedrawPolicy("per_iteration")
	require.NoError(t, err)
	assert.Equal(t, RedrawPerIteration, p)
	p, err = ParseRedrawPolicy("")
	require.NoError(t, err)
	assert.Equal(t, "per_run", p.String())
	_, err = ParseRedrawPolicy("hourly")
	assert.Error(t, err)
}
