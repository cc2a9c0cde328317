// Package agent defines the local side of the dual decomposition: agents
// that, given the current dual prices and price signal, solve their
// private subproblem and report the optimal trajectory and cost.
//
// Variants:
//   - EVFleetAgent: an aggregated EV fleet with state-of-energy and power
//     limits, solved as a linear program.
//   - QuadraticAgent: a price-taking unit with a strictly convex quadratic
//     cost and box bounds, solved in closed form.
package agent

import (
	"context"

	"github.com/kilianp07/caribou/core/model"
)

// LocalAgent solves the Lagrangian-relaxed local subproblem
//
//	minimise agent_cost(x) − fq·x  over the private feasible set.
//
// mu, nu and fq have length H and must be treated as read-only. Solve must
// be deterministic for identical inputs and safe to call concurrently with
// other agents' Solve. It returns model.ErrInfeasibleLocalProblem when the
// private feasible set is empty.
type LocalAgent interface {
	ID() int
	Solve(ctx context.Context, mu, nu, fq []float64) (model.LocalResponse, error)
}

// checkInputs verifies the three price vectors cover the agent horizon.
func checkInputs(h int, mu, nu, fq []float64) error {
	if err := model.CheckLen("mu", mu, h); err != nil {
		return err
	}
	if err := model.CheckLen("nu", nu, h); err != nil {
		return err
	}
	return model.CheckLen("fq", fq, h)
}
