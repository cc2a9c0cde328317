// Package csvdata serves market data from a directory of comma separated
// files laid out as follows:
//
//	main.csv           15-minute rows; day-ahead price and PV columns
//	covariance.csv     24×24 covariance of hourly prices
//	b.csv              H×H coupling matrix
//	dam_e_min_agg.csv  aggregate target schedule
//	dam_ev_max_agg.csv aggregate capacity schedule
//	dam_e_min.csv      per-agent minimum stored energy, one row per agent
//	dam_e_max.csv      per-agent maximum stored energy
//	dam_ev_max.csv     per-agent power rate limit
//
// Fields that do not parse as numbers read as NaN, so header rows and text
// columns count as rows without failing the load; the consumers reject
// non-finite values where they matter.
package csvdata

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"gonum.org/v1/gonum/mat"

	"github.com/kilianp07/caribou/core/market"
	"github.com/kilianp07/caribou/core/model"
)

// File names inside the data directory.
const (
	MainFile       = "main.csv"
	CovarianceFile = "covariance.csv"
	CouplingFile   = "b.csv"
	TargetFile     = "dam_e_min_agg.csv"
	CapacityFile   = "dam_ev_max_agg.csv"
	EnergyMinFile  = "dam_e_min.csv"
	EnergyMaxFile  = "dam_e_max.csv"
	RateLimitFile  = "dam_ev_max.csv"
)

// RowsPerSlot is the number of 15-minute rows per hourly slot in main.csv.
const RowsPerSlot = 4

// Options describes the main.csv columns and their scaling.
type Options struct {
	PriceColumn int
	PVColumn    int
	// Series are divided by their scale after reading.
	PriceScale float64
	PVScale    float64
	// SymmetryTolerance bounds |Σ_ij − Σ_ji| in covariance.csv.
	SymmetryTolerance float64
}

// DefaultOptions matches the reference data set: price in column 11
// divided by 1000 and PV in column 16 divided by 10.
func DefaultOptions() Options {
	return Options{PriceColumn: 11, PVColumn: 16, PriceScale: 1000, PVScale: 10, SymmetryTolerance: 1e-9}
}

// Provider implements market.Provider and market.PVProvider. Parsed files
// are cached, so each file is read at most once.
type Provider struct {
	dir  string
	opts Options

	mu    sync.Mutex
	cache map[string][][]float64
}

var (
	_ market.Provider   = (*Provider)(nil)
	_ market.PVProvider = (*Provider)(nil)
)

// New returns a provider reading from dir.
func New(dir string, opts Options) (*Provider, error) {
	fi, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("%w: market data directory: %v", model.ErrConfiguration, err)
	}
	if !fi.IsDir() {
		return nil, fmt.Errorf("%w: market data path %s is not a directory", model.ErrConfiguration, dir)
	}
	if opts.PriceScale == 0 || opts.PVScale == 0 {
		return nil, fmt.Errorf("%w: price and pv scales must not be zero", model.ErrConfiguration)
	}
	if opts.PriceColumn < 0 || opts.PVColumn < 0 {
		return nil, fmt.Errorf("%w: column indices must not be negative", model.ErrConfiguration)
	}
	return &Provider{dir: dir, opts: opts, cache: map[string][][]float64{}}, nil
}

// LoadAggregatePriceSeries samples the price column at the top of every
// hour of the window and divides it by PriceScale.
func (p *Provider) LoadAggregatePriceSeries(ctx context.Context, startDay, horizonDays int) ([]float64, error) {
	return p.hourly(ctx, "price", p.opts.PriceColumn, p.opts.PriceScale, startDay, horizonDays)
}

// LoadPVGeneration samples the PV column like the price series.
func (p *Provider) LoadPVGeneration(ctx context.Context, startDay, horizonDays int) ([]float64, error) {
	return p.hourly(ctx, "pv", p.opts.PVColumn, p.opts.PVScale, startDay, horizonDays)
}

// LoadPriceCovariance reads the 24×24 covariance and checks its symmetry.
func (p *Provider) LoadPriceCovariance(ctx context.Context) (*mat.SymDense, error) {
	rows, err := p.table(ctx, CovarianceFile)
	if err != nil {
		return nil, err
	}
	n := len(rows)
	for i, r := range rows {
		if len(r) != n {
			return nil, &model.DimensionError{What: fmt.Sprintf("%s row %d", CovarianceFile, i), Got: len(r), Want: n}
		}
	}
	cov := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			if d := math.Abs(rows[i][j] - rows[j][i]); !(d <= p.opts.SymmetryTolerance) {
				return nil, fmt.Errorf("%w: %s is not symmetric at (%d,%d)", model.ErrNumerical, CovarianceFile, i, j)
			}
			cov.SetSym(i, j, rows[i][j])
		}
	}
	return cov, nil
}

// LoadCouplingMatrix reads B.
func (p *Provider) LoadCouplingMatrix(ctx context.Context) (*mat.Dense, error) {
	rows, err := p.table(ctx, CouplingFile)
	if err != nil {
		return nil, err
	}
	cols := len(rows[0])
	data := make([]float64, 0, len(rows)*cols)
	for i, r := range rows {
		if len(r) != cols {
			return nil, &model.DimensionError{What: fmt.Sprintf("%s row %d", CouplingFile, i), Got: len(r), Want: cols}
		}
		data = append(data, r...)
	}
	return mat.NewDense(len(rows), cols, data), nil
}

// LoadAggregateBounds reads the target and capacity schedules.
func (p *Provider) LoadAggregateBounds(ctx context.Context) (market.AggregateBounds, error) {
	target, err := p.vector(ctx, TargetFile)
	if err != nil {
		return market.AggregateBounds{}, err
	}
	capacity, err := p.vector(ctx, CapacityFile)
	if err != nil {
		return market.AggregateBounds{}, err
	}
	return market.AggregateBounds{Min: target, Max: capacity}, nil
}

// LoadAgentBounds reads row identity of the per-agent files.
func (p *Provider) LoadAgentBounds(ctx context.Context, identity int) (market.AgentBounds, error) {
	var out [3][]float64
	for i, name := range []string{EnergyMinFile, EnergyMaxFile, RateLimitFile} {
		rows, err := p.table(ctx, name)
		if err != nil {
			return market.AgentBounds{}, err
		}
		if identity < 0 || identity >= len(rows) {
			return market.AgentBounds{}, market.ErrUnknownAgent{Identity: identity}
		}
		out[i] = model.CloneVec(rows[identity])
	}
	return market.AgentBounds{Min: out[0], Max: out[1], RateLimit: out[2]}, nil
}

// hourly samples one main.csv column every RowsPerSlot rows.
func (p *Provider) hourly(ctx context.Context, what string, col int, scale float64, startDay, horizonDays int) ([]float64, error) {
	if startDay < 0 || horizonDays <= 0 {
		return nil, fmt.Errorf("%w: invalid window start=%d days=%d", model.ErrConfiguration, startDay, horizonDays)
	}
	rows, err := p.table(ctx, MainFile)
	if err != nil {
		return nil, err
	}
	h := model.Horizon(horizonDays)
	start := model.Horizon(startDay) * RowsPerSlot
	last := start + (h-1)*RowsPerSlot
	if last >= len(rows) {
		return nil, &model.DimensionError{What: MainFile + " rows", Got: len(rows), Want: last + 1}
	}
	out := make([]float64, h)
	for t := range out {
		row := rows[start+t*RowsPerSlot]
		if col >= len(row) {
			return nil, fmt.Errorf("%s: %w", what, &model.DimensionError{
				What: fmt.Sprintf("%s row %d", MainFile, start+t*RowsPerSlot), Got: len(row), Want: col + 1})
		}
		out[t] = row[col] / scale
	}
	return out, nil
}

// vector reads a file holding a single row or a single column.
func (p *Provider) vector(ctx context.Context, name string) ([]float64, error) {
	rows, err := p.table(ctx, name)
	if err != nil {
		return nil, err
	}
	if len(rows) == 1 {
		return model.CloneVec(rows[0]), nil
	}
	out := make([]float64, len(rows))
	for i, r := range rows {
		if len(r) != 1 {
			return nil, fmt.Errorf("%w: %s must hold a single row or column", model.ErrDimensionMismatch, name)
		}
		out[i] = r[0]
	}
	return out, nil
}

// table returns the parsed rows of a file from the cache, reading it on
// first use.
func (p *Provider) table(ctx context.Context, name string) ([][]float64, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if rows, ok := p.cache[name]; ok {
		return rows, nil
	}
	f, err := os.Open(filepath.Join(p.dir, name))
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", name, err)
	}
	defer f.Close()
	rows, err := ReadTable(f)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", name, err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: %s is empty", model.ErrDimensionMismatch, name)
	}
	p.cache[name] = rows
	return rows, nil
}

// ReadTable parses comma separated numbers. Rows may differ in length;
// unparseable fields become NaN.
func ReadTable(r io.Reader) ([][]float64, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	cr.ReuseRecord = true
	var rows [][]float64
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			return rows, nil
		}
		if err != nil {
			return nil, err
		}
		row := make([]float64, len(rec))
		for i, field := range rec {
			v, err := strconv.ParseFloat(strings.TrimSpace(field), 64)
			if err != nil {
				v = math.NaN()
			}
			row[i] = v
		}
		rows = append(rows, row)
	}
}
