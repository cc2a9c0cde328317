// Package coordinator runs the dual decomposition of the fleet scheduling
// problem. A Coordinator owns the dual prices: mu for the equality
// coupling constraint B·X·1 = target and nu ≥ 0 for the capacity
// constraint X·1 ≤ capacity. Every outer iteration it broadcasts the
// price signal
//
//	fq = forecastPrice − nu + B·mu
//
// to all registered agents concurrently, aggregates their trajectories
// into the H×N matrix X, and moves the duals along the subgradients
//
//	g_mu = B·X·1 − target
//	g_nu = X·1 − capacity
//
// with nu projected back onto the non-negative orthant. The run stops once
// ‖g_mu‖₂ + ‖g_nu‖₂ falls below the tolerance or the iteration budget is
// spent.
package coordinator
