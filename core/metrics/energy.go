package metrics

import (
	"github.com/kilianp07/caribou/core/model"
)

// EnergyBalance aggregates the grid exchange of one agent over one day.
// Injected counts positive slots, Consumed the magnitude of negative ones.
type EnergyBalance struct {
	AgentID  int
	Day      int
	Injected float64
	Consumed float64
}

// Net returns injected minus consumed energy.
func (b EnergyBalance) Net() float64 { return b.Injected - b.Consumed }

// Ratio returns the ratio of injected to consumed energy.
func (b EnergyBalance) Ratio() float64 {
	if b.Consumed == 0 {
		if b.Injected == 0 {
			return 0
		}
		return b.Injected
	}
	return b.Injected / b.Consumed
}

// Balances splits every trajectory into days of model.SlotsPerDay slots.
// Balances are ordered by agent, then day. A trailing partial day is
// reported as its own day.
func Balances(responses []model.LocalResponse) []EnergyBalance {
	var out []EnergyBalance
	for _, r := range responses {
		for start := 0; start < len(r.X); start += model.SlotsPerDay {
			end := min(start+model.SlotsPerDay, len(r.X))
			b := EnergyBalance{AgentID: r.AgentID, Day: start / model.SlotsPerDay}
			for _, x := range r.X[start:end] {
				if x > 0 {
					b.Injected += x
				} else {
					b.Consumed -= x
				}
			}
			out = append(out, b)
		}
	}
	return out
}
