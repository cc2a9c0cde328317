package agent

import (
	"context"
	"fmt"

	"github.com/kilianp07/caribou/core/model"
)

// QuadraticAgent is a price-taking unit with cost Σ a_t/2·x_t² + b_t·x_t
// and bounds Lower_t ≤ x_t ≤ Upper_t. With a_t > 0 the cost is strictly
// convex and the optimum is the clamped stationary point; with a_t = 0 the
// unit is linear and sits on the bound favoured by the price.
type QuadraticAgent struct {
	id    int
	a, b  []float64
	lower []float64
	upper []float64
}

// NewQuadraticAgent validates the coefficients and bounds. All slices must
// share the same length, which becomes the agent horizon.
func NewQuadraticAgent(id int, a, b, lower, upper []float64) (*QuadraticAgent, error) {
	h := len(a)
	for _, c := range []struct {
		name string
		v    []float64
	}{{"b", b}, {"lower", lower}, {"upper", upper}} {
		if err := model.CheckLen(c.name, c.v, h); err != nil {
			return nil, err
		}
	}
	for t := 0; t < h; t++ {
		if a[t] < 0 {
			return nil, fmt.Errorf("agent %d: quadratic coefficient must not be negative at slot %d", id, t)
		}
	}
	return &QuadraticAgent{
		id:    id,
		a:     model.CloneVec(a),
		b:     model.CloneVec(b),
		lower: model.CloneVec(lower),
		upper: model.CloneVec(upper),
	}, nil
}

// ID implements LocalAgent.
func (q *QuadraticAgent) ID() int { return q.id }

// Horizon returns the number of slots the agent plans over.
func (q *QuadraticAgent) Horizon() int { return len(q.a) }

// Solve implements LocalAgent.
func (q *QuadraticAgent) Solve(ctx context.Context, mu, nu, fq []float64) (model.LocalResponse, error) {
	if err := ctx.Err(); err != nil {
		return model.LocalResponse{}, err
	}
	h := q.Horizon()
	if err := checkInputs(h, mu, nu, fq); err != nil {
		return model.LocalResponse{}, err
	}
	x := make([]float64, h)
	var cost float64
	for t := 0; t < h; t++ {
		lo, hi := q.lower[t], q.upper[t]
		if lo > hi {
			return model.LocalResponse{}, fmt.Errorf("agent %d slot %d: lower %g above upper %g: %w", q.id, t, lo, hi, model.ErrInfeasibleLocalProblem)
		}
		var v float64
		if q.a[t] > 0 {
			v = clamp((fq[t]-q.b[t])/q.a[t], lo, hi)
		} else if fq[t] > q.b[t] {
			v = hi
		} else {
			v = lo
		}
		x[t] = v
		cost += 0.5*q.a[t]*v*v + q.b[t]*v - fq[t]*v
	}
	return model.LocalResponse{AgentID: q.id, X: x, Cost: cost}, nil
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
