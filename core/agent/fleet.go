package agent

import (
	"fmt"
	"math/rand/v2"

	"github.com/kilianp07/caribou/core/market"
	"github.com/kilianp07/caribou/core/model"
)

// FleetProfile aggregates individual vehicles into the bounds of one
// EVFleetAgent.
type FleetProfile struct {
	Bounds         market.AgentBounds
	DischargeLimit []float64
	InitialEnergy  float64
}

// ProfileFromVehicles sums the energy windows and power limits of the
// vehicles over a horizon of h slots. Limits are constant over time.
func ProfileFromVehicles(vehicles []model.Vehicle, h int) (FleetProfile, error) {
	if len(vehicles) == 0 {
		return FleetProfile{}, fmt.Errorf("fleet has no vehicles")
	}
	var lo, hi, rate, dis, e0 float64
	for _, v := range vehicles {
		if err := v.Validate(); err != nil {
			return FleetProfile{}, err
		}
		vl, vh := v.EnergyWindow()
		lo += vl
		hi += vh
		rate += v.MaxPower
		dis += v.DischargeLimit()
		e0 += v.InitialEnergy()
	}
	p := FleetProfile{
		Bounds: market.AgentBounds{
			Min:       constant(h, lo),
			Max:       constant(h, hi),
			RateLimit: constant(h, rate),
		},
		DischargeLimit: constant(h, dis),
		InitialEnergy:  e0,
	}
	return p, nil
}

// PerturbPV applies a uniform relative noise of ±50% to a PV profile:
// pv_t + pv_t·(U_t − 0.5).
func PerturbPV(pv []float64, src rand.Source) []float64 {
	r := rand.New(src)
	out := make([]float64, len(pv))
	for t, v := range pv {
		out[t] = v + v*(r.Float64()-0.5)
	}
	return out
}

func constant(n int, v float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = v
	}
	return out
}
