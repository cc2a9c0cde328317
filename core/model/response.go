package model

// LocalResponse is the answer of one agent to a set of dual prices: its
// optimal primal trajectory over the horizon and the optimal cost.
type LocalResponse struct {
	AgentID int       `json:"agent_id"`
	X       []float64 `json:"x"`
	Cost    float64   `json:"cost"`
}

// Clone returns a deep copy of the response.
func (r LocalResponse) Clone() LocalResponse {
	return LocalResponse{AgentID: r.AgentID, X: CloneVec(r.X), Cost: r.Cost}
}

// IterationRecord is the audit entry of one outer iteration. Duals are the
// prices that were broadcast during the iteration, before the update.
type IterationRecord struct {
	Iteration int             `json:"iteration"`
	Duals     DualState       `json:"duals"`
	Responses []LocalResponse `json:"responses"`
	GradMu    []float64       `json:"grad_mu"`
	GradNu    []float64       `json:"grad_nu"`
	StepSize  float64         `json:"step_size"`
	// Residual is ‖GradMu‖₂ + ‖GradNu‖₂.
	Residual float64 `json:"residual"`
}

// TotalCost sums the optimal costs reported by every agent.
func (r IterationRecord) TotalCost() float64 {
	var sum float64
	for _, resp := range r.Responses {
		sum += resp.Cost
	}
	return sum
}
