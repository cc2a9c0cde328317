package csvdata

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"gonum.org/v1/gonum/mat"

	"github.com/kilianp07/caribou/core/market"
)

// WriteTable writes rows as comma separated numbers.
func WriteTable(w io.Writer, rows [][]float64) error {
	cw := csv.NewWriter(w)
	for _, r := range rows {
		rec := make([]string, len(r))
		for i, v := range r {
			rec[i] = strconv.FormatFloat(v, 'g', -1, 64)
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// Export writes days of market data from p, starting at day zero, and the
// bounds of agents agents into dir using the layout read by Provider.
// Hourly values are repeated over the RowsPerSlot rows of their hour.
func Export(ctx context.Context, dir string, p market.Provider, days, agents int, opts Options) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	price, err := p.LoadAggregatePriceSeries(ctx, 0, days)
	if err != nil {
		return fmt.Errorf("price: %w", err)
	}
	pv := make([]float64, len(price))
	if pp, ok := p.(market.PVProvider); ok {
		if pv, err = pp.LoadPVGeneration(ctx, 0, days); err != nil {
			return fmt.Errorf("pv: %w", err)
		}
	}
	width := max(opts.PriceColumn, opts.PVColumn) + 1
	mainRows := make([][]float64, 0, len(price)*RowsPerSlot)
	for t := range price {
		for q := 0; q < RowsPerSlot; q++ {
			row := make([]float64, width)
			row[opts.PriceColumn] = price[t] * opts.PriceScale
			row[opts.PVColumn] = pv[t] * opts.PVScale
			mainRows = append(mainRows, row)
		}
	}

	cov, err := p.LoadPriceCovariance(ctx)
	if err != nil {
		return fmt.Errorf("covariance: %w", err)
	}
	b, err := p.LoadCouplingMatrix(ctx)
	if err != nil {
		return fmt.Errorf("coupling: %w", err)
	}
	agg, err := p.LoadAggregateBounds(ctx)
	if err != nil {
		return fmt.Errorf("aggregate bounds: %w", err)
	}
	var emin, emax, rate [][]float64
	for id := 0; id < agents; id++ {
		ab, err := p.LoadAgentBounds(ctx, id)
		if err != nil {
			return fmt.Errorf("agent %d: %w", id, err)
		}
		emin = append(emin, ab.Min)
		emax = append(emax, ab.Max)
		rate = append(rate, ab.RateLimit)
	}

	files := map[string][][]float64{
		MainFile:       mainRows,
		CovarianceFile: matrixRows(cov),
		CouplingFile:   matrixRows(b),
		TargetFile:     {agg.Min},
		CapacityFile:   {agg.Max},
		EnergyMinFile:  emin,
		EnergyMaxFile:  emax,
		RateLimitFile:  rate,
	}
	for name, rows := range files {
		if err := writeFile(filepath.Join(dir, name), rows); err != nil {
			return err
		}
	}
	return nil
}

func matrixRows(m mat.Matrix) [][]float64 {
	r, c := m.Dims()
	rows := make([][]float64, r)
	for i := range rows {
		rows[i] = make([]float64, c)
		for j := range rows[i] {
			rows[i][j] = m.At(i, j)
		}
	}
	return rows
}

func writeFile(path string, rows [][]float64) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := WriteTable(f, rows); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", filepath.Base(path), err)
	}
	return f.Close()
}
