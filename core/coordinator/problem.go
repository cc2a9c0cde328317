package coordinator

import (
	"context"
	"fmt"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/kilianp07/caribou/core/model"
)

// problem holds the market data that stays constant during a run.
type problem struct {
	h        int
	hist     []float64
	cov      *mat.SymDense
	coupling *mat.Dense
	target   []float64
	capacity []float64
}

// load reads the run-constant data from the provider and checks its shape
// against the horizon.
func (c *Coordinator) load(ctx context.Context) (*problem, error) {
	h := c.cfg.Horizon()
	hist, err := c.provider.LoadAggregatePriceSeries(ctx, c.cfg.StartDay, c.cfg.HorizonDays)
	if err != nil {
		return nil, fmt.Errorf("load price series: %w", err)
	}
	if err := model.CheckLen("price series", hist, h); err != nil {
		return nil, err
	}
	cov, err := c.provider.LoadPriceCovariance(ctx)
	if err != nil {
		return nil, fmt.Errorf("load covariance: %w", err)
	}
	b, err := c.provider.LoadCouplingMatrix(ctx)
	if err != nil {
		return nil, fmt.Errorf("load coupling matrix: %w", err)
	}
	if b == nil {
		return nil, fmt.Errorf("%w: coupling matrix is nil", model.ErrConfiguration)
	}
	rows, cols := b.Dims()
	if rows != h {
		return nil, &model.DimensionError{What: "coupling matrix rows", Got: rows, Want: h}
	}
	if cols != h {
		return nil, &model.DimensionError{What: "coupling matrix columns", Got: cols, Want: h}
	}
	if !model.AllFinite(hist) {
		return nil, fmt.Errorf("%w: price series contains non-finite values", model.ErrNumerical)
	}
	for i := 0; i < rows; i++ {
		if !model.AllFinite(b.RawRowView(i)) {
			return nil, fmt.Errorf("%w: coupling matrix row %d contains non-finite values", model.ErrNumerical, i)
		}
	}
	agg, err := c.provider.LoadAggregateBounds(ctx)
	if err != nil {
		return nil, fmt.Errorf("load aggregate bounds: %w", err)
	}
	if err := agg.Validate(h); err != nil {
		return nil, err
	}
	return &problem{h: h, hist: hist, cov: cov, coupling: b, target: agg.Min, capacity: agg.Max}, nil
}

// signal returns fq = price − nu + B·mu.
func (p *problem) signal(price []float64, d model.DualState) []float64 {
	bm := mat.NewVecDense(p.h, nil)
	bm.MulVec(p.coupling, mat.NewVecDense(p.h, model.CloneVec(d.Mu)))
	fq := make([]float64, p.h)
	for t := range fq {
		fq[t] = price[t] - d.Nu[t] + bm.AtVec(t)
	}
	return fq
}

// aggregate forms X·1 from the responses, checking every trajectory
// length against H.
func (p *problem) aggregate(responses []model.LocalResponse) ([]float64, error) {
	n := len(responses)
	if n == 0 {
		return make([]float64, p.h), nil
	}
	x := mat.NewDense(p.h, n, nil)
	for j, r := range responses {
		if len(r.X) != p.h {
			return nil, fmt.Errorf("agent %d: %w", r.AgentID,
				&model.DimensionError{What: "trajectory", Got: len(r.X), Want: p.h})
		}
		if !model.AllFinite(r.X) {
			return nil, fmt.Errorf("agent %d: %w: non-finite trajectory", r.AgentID, model.ErrNumerical)
		}
		x.SetCol(j, r.X)
	}
	ones := make([]float64, n)
	floats.AddConst(1, ones)
	sum := mat.NewVecDense(p.h, nil)
	sum.MulVec(x, mat.NewVecDense(n, ones))
	return sum.RawVector().Data, nil
}

// subgradients returns g_mu = B·s − target and g_nu = s − capacity for the
// aggregate s = X·1.
func (p *problem) subgradients(sum []float64) ([]float64, []float64) {
	bs := mat.NewVecDense(p.h, nil)
	bs.MulVec(p.coupling, mat.NewVecDense(p.h, model.CloneVec(sum)))
	gMu := make([]float64, p.h)
	floats.SubTo(gMu, bs.RawVector().Data, p.target)
	gNu := make([]float64, p.h)
	floats.SubTo(gNu, sum, p.capacity)
	return gMu, gNu
}

// residual combines both subgradients according to the configured norm.
func residual(kind ResidualNorm, gMu, gNu []float64) float64 {
	nu := gNu
	if kind == ResidualViolation {
		nu = make([]float64, len(gNu))
		for t, g := range gNu {
			nu[t] = max(g, 0)
		}
	}
	return norm2(gMu) + norm2(nu)
}

func norm2(v []float64) float64 {
	if len(v) == 0 {
		return 0
	}
	return floats.Norm(v, 2)
}

// update applies the projected step and returns the new duals.
func update(d model.DualState, gMu, gNu []float64, eta float64, stable bool) model.DualState {
	next := d.Clone()
	muStep := eta
	if stable {
		muStep = -eta
	}
	floats.AddScaled(next.Mu, muStep, gMu)
	floats.AddScaled(next.Nu, eta, gNu)
	for t, v := range next.Nu {
		if v < 0 {
			next.Nu[t] = 0
		}
	}
	return next
}
