// Package forecast produces day-ahead price scenarios from a historical
// price series and the covariance of hourly prices. Forecasters are
// deterministic given their injected random source.
package forecast

import (
	"fmt"
	"strings"

	"gonum.org/v1/gonum/mat"

	"github.com/kilianp07/caribou/core/model"
)

// Forecaster produces an H×horizonDays price forecast.
type Forecaster interface {
	Forecast(historicalPrice []float64, covariance *mat.SymDense, horizonDays int) (PriceForecast, error)
}

// PriceForecast is an H×D matrix. Column d carries the sampled scenario
// for day d in rows 24d..24d+23 and the historical price elsewhere.
type PriceForecast struct {
	Prices *mat.Dense
}

// Horizon returns H.
func (f PriceForecast) Horizon() int {
	r, _ := f.Prices.Dims()
	return r
}

// Days returns D.
func (f PriceForecast) Days() int {
	_, c := f.Prices.Dims()
	return c
}

// Column returns a copy of column d.
func (f PriceForecast) Column(d int) []float64 {
	return mat.Col(nil, d, f.Prices)
}

// Trajectory stitches the sampled block of every day into one
// length-H price vector.
func (f PriceForecast) Trajectory() []float64 {
	h := f.Horizon()
	out := make([]float64, h)
	for t := 0; t < h; t++ {
		out[t] = f.Prices.At(t, t/model.SlotsPerDay)
	}
	return out
}

// RedrawPolicy controls how often the coordinator draws a new forecast.
type RedrawPolicy int

const (
	// RedrawPerRun draws one forecast before the first iteration.
	RedrawPerRun RedrawPolicy = iota
	// RedrawPerIteration draws a fresh forecast at every outer iteration.
	RedrawPerIteration
)

func (p RedrawPolicy) String() string {
	switch p {
	case RedrawPerRun:
		return "per_run"
	case RedrawPerIteration:
		return "per_iteration"
	default:
		return "unknown"
	}
}

// ParseRedrawPolicy converts a configuration value into a RedrawPolicy.
// The empty string selects RedrawPerRun.
func ParseRedrawPolicy(s string) (RedrawPolicy, error) {
	switch strings.ToLower(s) {
	case "", "per_run", "run":
		return RedrawPerRun, nil
	case "per_iteration", "iteration":
		return RedrawPerIteration, nil
	default:
		return 0, fmt.Errorf("%w: unknown forecast redraw policy %q", model.ErrConfiguration, s)
	}
}

// baseline validates the inputs and returns the H×D matrix whose every
// column is the historical price over the horizon.
func baseline(hist []float64, cov *mat.SymDense, days int) (*mat.Dense, error) {
	if days <= 0 {
		return nil, fmt.Errorf("%w: horizon must be at least one day, got %d", model.ErrConfiguration, days)
	}
	h := model.Horizon(days)
	if len(hist) < h {
		return nil, &model.DimensionError{What: "historical price", Got: len(hist), Want: h}
	}
	if !model.AllFinite(hist[:h]) {
		return nil, fmt.Errorf("%w: historical price contains non-finite values", model.ErrNumerical)
	}
	if cov != nil {
		if n := cov.SymmetricDim(); n != model.SlotsPerDay {
			return nil, &model.DimensionError{What: "price covariance", Got: n, Want: model.SlotsPerDay}
		}
	}
	m := mat.NewDense(h, days, nil)
	for d := 0; d < days; d++ {
		m.SetCol(d, hist[:h])
	}
	return m, nil
}

// New builds the forecaster named by strategy ("gaussian" or "mean").
func New(strategy string, seed uint64) (Forecaster, error) {
	switch strings.ToLower(strategy) {
	case "", "gaussian":
		return NewGaussianForecaster(seed), nil
	case "mean":
		return MeanForecaster{}, nil
	default:
		return nil, fmt.Errorf("%w: unknown forecast strategy %q", model.ErrConfiguration, strategy)
	}
}
