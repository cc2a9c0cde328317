package forecast

import "gonum.org/v1/gonum/mat"

// MeanForecaster returns the historical price unchanged. It is the
// deterministic strategy used when no price uncertainty is modelled; the
// covariance, when given, is only shape-checked.
type MeanForecaster struct{}

// Forecast implements Forecaster.
func (MeanForecaster) Forecast(hist []float64, cov *mat.SymDense, days int) (PriceForecast, error) {
	m, err := baseline(hist, cov, days)
	if err != nil {
		return PriceForecast{}, err
	}
	return PriceForecast{Prices: m}, nil
}
