package events

// IterationEvent is published after each completed dual update.
type IterationEvent struct {
	RunID     string
	Iteration int
	Residual  float64
	StepSize  float64
	TotalCost float64
}

func (e IterationEvent) Run() string { return e.RunID }
