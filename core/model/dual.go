package model

import "math"

// SlotsPerDay is the number of hourly slots in one day of the horizon.
const SlotsPerDay = 24

// Horizon returns the number of time slots H for the given number of days.
func Horizon(days int) int { return days * SlotsPerDay }

// DualState holds the dual prices of the coupling problem. Mu prices the
// equality coupling constraint and is unconstrained in sign; Nu prices the
// capacity constraint and is kept non-negative by the coordinator.
type DualState struct {
	Mu []float64 `json:"mu"`
	Nu []float64 `json:"nu"`
}

// NewDualState returns zero-initialised duals for a horizon of h slots.
func NewDualState(h int) DualState {
	return DualState{Mu: make([]float64, h), Nu: make([]float64, h)}
}

// Horizon returns the number of slots covered by the duals.
func (d DualState) Horizon() int { return len(d.Mu) }

// Clone returns a deep copy so callers can hand out snapshots.
func (d DualState) Clone() DualState {
	return DualState{Mu: CloneVec(d.Mu), Nu: CloneVec(d.Nu)}
}

// Finite reports whether every dual entry is a finite number.
func (d DualState) Finite() bool {
	return AllFinite(d.Mu) && AllFinite(d.Nu)
}

// CloneVec copies v. A nil slice stays nil.
func CloneVec(v []float64) []float64 {
	if v == nil {
		return nil
	}
	cp := make([]float64, len(v))
	copy(cp, v)
	return cp
}

// AllFinite reports whether v contains neither NaN nor infinities.
func AllFinite(v []float64) bool {
	for _, x := range v {
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return false
		}
	}
	return true
}
