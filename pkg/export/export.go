// Package export writes forecasts and coordinator results as CSV or JSON.
package export

import (
	"encoding/csv"
	"encoding/json"
	"io"
	"strconv"

	"gonum.org/v1/gonum/floats"

	"github.com/kilianp07/caribou/core/coordinator"
	"github.com/kilianp07/caribou/core/forecast"
	"github.com/kilianp07/caribou/core/model"
)

// Summary is the JSON form of a coordinator result.
type Summary struct {
	RunID      string      `json:"run_id"`
	Converged  bool        `json:"converged"`
	Iterations int         `json:"iterations"`
	Residual   float64     `json:"residual"`
	TotalCost  float64     `json:"total_cost"`
	Mu         []float64   `json:"mu"`
	Nu         []float64   `json:"nu"`
	Aggregate  []float64   `json:"aggregate"`
	Schedules  [][]float64 `json:"schedules"`
}

// NewSummary condenses res.
func NewSummary(res coordinator.Result) Summary {
	s := Summary{
		RunID:      res.RunID,
		Converged:  res.Converged,
		Iterations: res.Iterations,
		Residual:   res.Residual,
		Mu:         res.Duals.Mu,
		Nu:         res.Duals.Nu,
		Aggregate:  aggregate(res.Responses, res.Duals.Horizon()),
	}
	for _, r := range res.Responses {
		s.Schedules = append(s.Schedules, r.X)
		s.TotalCost += r.Cost
	}
	return s
}

// WriteJSON writes the result summary to w in JSON format.
func WriteJSON(w io.Writer, res coordinator.Result) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(NewSummary(res))
}

// WriteForecastCSV writes one row per slot and one column per forecast day.
func WriteForecastCSV(w io.Writer, f forecast.PriceForecast) error {
	cw := csv.NewWriter(w)
	header := []string{"slot"}
	for d := 0; d < f.Days(); d++ {
		header = append(header, "day_"+strconv.Itoa(d))
	}
	if err := cw.Write(header); err != nil {
		return err
	}
	for t := 0; t < f.Horizon(); t++ {
		rec := []string{strconv.Itoa(t)}
		for d := 0; d < f.Days(); d++ {
			rec = append(rec, formatFloat(f.Prices.At(t, d)))
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteScheduleCSV writes the final prices, every agent trajectory and
// their sum, one row per slot.
func WriteScheduleCSV(w io.Writer, res coordinator.Result) error {
	cw := csv.NewWriter(w)
	header := []string{"slot", "mu", "nu"}
	for _, r := range res.Responses {
		header = append(header, "agent_"+strconv.Itoa(r.AgentID))
	}
	header = append(header, "aggregate")
	if err := cw.Write(header); err != nil {
		return err
	}
	h := res.Duals.Horizon()
	sum := aggregate(res.Responses, h)
	for t := 0; t < h; t++ {
		rec := []string{strconv.Itoa(t), formatFloat(res.Duals.Mu[t]), formatFloat(res.Duals.Nu[t])}
		for _, r := range res.Responses {
			rec = append(rec, formatFloat(r.X[t]))
		}
		rec = append(rec, formatFloat(sum[t]))
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteHistoryCSV writes one row per completed iteration.
func WriteHistoryCSV(w io.Writer, history []model.IterationRecord) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"iteration", "residual", "step_size", "grad_mu_norm", "grad_nu_norm", "total_cost"}); err != nil {
		return err
	}
	for _, rec := range history {
		row := []string{
			strconv.Itoa(rec.Iteration),
			formatFloat(rec.Residual),
			formatFloat(rec.StepSize),
			formatFloat(norm(rec.GradMu)),
			formatFloat(norm(rec.GradNu)),
			formatFloat(rec.TotalCost()),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func aggregate(responses []model.LocalResponse, h int) []float64 {
	sum := make([]float64, h)
	for _, r := range responses {
		if len(r.X) == h {
			floats.Add(sum, r.X)
		}
	}
	return sum
}

func norm(v []float64) float64 {
	if len(v) == 0 {
		return 0
	}
	return floats.Norm(v, 2)
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
