package agent

import (
	"context"
	"errors"
	"fmt"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/optimize/convex/lp"

	"github.com/kilianp07/caribou/core/market"
	"github.com/kilianp07/caribou/core/model"
)

// EVFleetAgent schedules an aggregated EV fleet. Its trajectory x_t is the
// power injected into the grid during slot t (negative while charging):
// x_t = d_t − c_t + pv_t, where d_t and c_t are battery discharge and
// charge. The stored energy after slot t is
//
//	e_t = e0 − Σ_{s≤t} (d_s − c_s)
//
// and must stay within [Bounds.Min_t, Bounds.Max_t]. Charging is limited
// by Bounds.RateLimit and discharging by DischargeLimit. The private cost
// is Throughput·Σ(d_t + c_t), a linear battery wear cost.
type EVFleetAgent struct {
	id             int
	bounds         market.AgentBounds
	dischargeLimit []float64
	initialEnergy  float64
	throughput     float64
	pv             []float64
}

// EVOption customises an EVFleetAgent.
type EVOption func(*EVFleetAgent)

// WithDischargeLimit bounds grid injection separately from the charge
// rate. Fleets without V2G capability use a zero limit.
func WithDischargeLimit(limit []float64) EVOption {
	return func(a *EVFleetAgent) { a.dischargeLimit = model.CloneVec(limit) }
}

// WithInitialEnergy sets the energy stored at the start of the horizon.
func WithInitialEnergy(e float64) EVOption {
	return func(a *EVFleetAgent) { a.initialEnergy = e }
}

// WithThroughputCost sets the wear cost per unit of energy moved through
// the batteries.
func WithThroughputCost(c float64) EVOption {
	return func(a *EVFleetAgent) { a.throughput = c }
}

// WithPV adds an uncontrollable generation profile to the grid exchange.
func WithPV(pv []float64) EVOption {
	return func(a *EVFleetAgent) { a.pv = model.CloneVec(pv) }
}

// NewEVFleetAgent builds an agent from its private bounds. Unless
// overridden, the discharge limit equals the rate limit and the fleet
// starts at Bounds.Min[0].
func NewEVFleetAgent(id int, bounds market.AgentBounds, opts ...EVOption) (*EVFleetAgent, error) {
	h := len(bounds.RateLimit)
	if h == 0 {
		return nil, fmt.Errorf("agent %d: empty bounds", id)
	}
	if err := bounds.Validate(h); err != nil {
		return nil, fmt.Errorf("agent %d: %w", id, err)
	}
	a := &EVFleetAgent{
		id: id,
		bounds: market.AgentBounds{
			Min:       model.CloneVec(bounds.Min),
			Max:       model.CloneVec(bounds.Max),
			RateLimit: model.CloneVec(bounds.RateLimit),
		},
		dischargeLimit: model.CloneVec(bounds.RateLimit),
		initialEnergy:  bounds.Min[0],
	}
	for _, opt := range opts {
		opt(a)
	}
	if err := model.CheckLen("discharge limit", a.dischargeLimit, h); err != nil {
		return nil, fmt.Errorf("agent %d: %w", id, err)
	}
	if a.pv == nil {
		a.pv = make([]float64, h)
	}
	if err := model.CheckLen("pv", a.pv, h); err != nil {
		return nil, fmt.Errorf("agent %d: %w", id, err)
	}
	if a.throughput < 0 {
		return nil, fmt.Errorf("agent %d: throughput cost must not be negative", id)
	}
	return a, nil
}

// ID implements LocalAgent.
func (a *EVFleetAgent) ID() int { return a.id }

// Horizon returns the number of slots the agent plans over.
func (a *EVFleetAgent) Horizon() int { return len(a.bounds.RateLimit) }

// Solve implements LocalAgent. mu and nu only enter through fq.
func (a *EVFleetAgent) Solve(ctx context.Context, mu, nu, fq []float64) (model.LocalResponse, error) {
	if err := ctx.Err(); err != nil {
		return model.LocalResponse{}, err
	}
	h := a.Horizon()
	if err := checkInputs(h, mu, nu, fq); err != nil {
		return model.LocalResponse{}, err
	}
	if err := a.precheck(); err != nil {
		return model.LocalResponse{}, err
	}

	c, A, b := a.standardForm(fq)
	_, sol, err := lpSolve(c, A, b)
	if err != nil {
		if errors.Is(err, lp.ErrInfeasible) {
			return model.LocalResponse{}, fmt.Errorf("agent %d: %w", a.id, model.ErrInfeasibleLocalProblem)
		}
		return model.LocalResponse{}, fmt.Errorf("agent %d: lp: %w", a.id, err)
	}

	x := make([]float64, h)
	var cost float64
	for t := 0; t < h; t++ {
		d, ch := nonNeg(sol[t]), nonNeg(sol[h+t])
		x[t] = d - ch + a.pv[t]
		cost += a.throughput*(d+ch) - fq[t]*x[t]
	}
	return model.LocalResponse{AgentID: a.id, X: x, Cost: cost}, nil
}

// precheck rejects bounds that no schedule can satisfy slot by slot.
func (a *EVFleetAgent) precheck() error {
	for t := range a.bounds.Min {
		if a.bounds.Min[t] > a.bounds.Max[t] {
			return fmt.Errorf("agent %d slot %d: energy min %g above max %g: %w",
				a.id, t, a.bounds.Min[t], a.bounds.Max[t], model.ErrInfeasibleLocalProblem)
		}
		if a.bounds.RateLimit[t] < 0 || a.dischargeLimit[t] < 0 {
			return fmt.Errorf("agent %d slot %d: negative power limit: %w", a.id, t, model.ErrInfeasibleLocalProblem)
		}
	}
	return nil
}

// standardForm builds min cᵀz s.t. Az = b, z ≥ 0 with
// z = [d (H), c (H), slack (4H)] and rows
//
//	d_t ≤ D_t
//	c_t ≤ R_t
//	Σ_{s≤t}(c_s − d_s) ≤ Max_t − e0
//	Σ_{s≤t}(d_s − c_s) ≤ e0 − Min_t
//
// Rows with a negative right-hand side are negated so that b ≥ 0.
func (a *EVFleetAgent) standardForm(fq []float64) ([]float64, *mat.Dense, []float64) {
	h := a.Horizon()
	rows, cols := 4*h, 6*h
	A := mat.NewDense(rows, cols, nil)
	b := make([]float64, rows)
	c := make([]float64, cols)
	for t := 0; t < h; t++ {
		c[t] = a.throughput - fq[t]
		c[h+t] = a.throughput + fq[t]
	}
	for t := 0; t < h; t++ {
		A.Set(t, t, 1)
		b[t] = a.dischargeLimit[t]

		A.Set(h+t, h+t, 1)
		b[h+t] = a.bounds.RateLimit[t]

		up, down := 2*h+t, 3*h+t
		for s := 0; s <= t; s++ {
			A.Set(up, s, -1)
			A.Set(up, h+s, 1)
			A.Set(down, s, 1)
			A.Set(down, h+s, -1)
		}
		b[up] = a.bounds.Max[t] - a.initialEnergy
		b[down] = a.initialEnergy - a.bounds.Min[t]
	}
	for r := 0; r < rows; r++ {
		A.Set(r, 2*h+r, 1)
		if b[r] < 0 {
			for j := 0; j < cols; j++ {
				A.Set(r, j, -A.At(r, j))
			}
			b[r] = -b[r]
		}
	}
	return c, A, b
}

// lpTolerance is the simplex optimality tolerance.
const lpTolerance = 1e-9

func solveLP(c []float64, A mat.Matrix, b []float64) (float64, []float64, error) {
	return lp.Simplex(c, A, b, lpTolerance, nil)
}

// lpSolve points to the function used to solve the LP. It can be
// overridden in tests to simulate solver failures.
var lpSolve = solveLP

func nonNeg(v float64) float64 {
	if v < 0 {
		return 0
	}
	return v
}
