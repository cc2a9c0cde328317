package coordinator

import (
	"fmt"
	"math"
	"strings"
)

// StepKind selects how the step size evolves over iterations.
type StepKind int

const (
	// StepFixed keeps η constant.
	StepFixed StepKind = iota
	// StepDiminishing uses η/√(k+1).
	StepDiminishing
	// StepHarmonic uses η/(k+1).
	StepHarmonic
)

func (k StepKind) String() string {
	switch k {
	case StepFixed:
		return "fixed"
	case StepDiminishing:
		return "diminishing"
	case StepHarmonic:
		return "harmonic"
	default:
		return fmt.Sprintf("StepKind(%d)", int(k))
	}
}

// StepSize is the step policy of the dual update.
type StepSize struct {
	Kind StepKind
	Eta  float64
}

// At returns η_k for the zero-based iteration k.
func (s StepSize) At(k int) float64 {
	switch s.Kind {
	case StepDiminishing:
		return s.Eta / math.Sqrt(float64(k+1))
	case StepHarmonic:
		return s.Eta / float64(k+1)
	default:
		return s.Eta
	}
}

// Validate checks that η is a positive finite number and the kind known.
func (s StepSize) Validate() error {
	if s.Kind < StepFixed || s.Kind > StepHarmonic {
		return fmt.Errorf("unknown step kind %d", int(s.Kind))
	}
	if !(s.Eta > 0) || math.IsInf(s.Eta, 0) {
		return fmt.Errorf("step size must be positive and finite, got %g", s.Eta)
	}
	return nil
}

func (s StepSize) String() string {
	return fmt.Sprintf("%s(%g)", s.Kind, s.Eta)
}

// ParseStepSize builds a StepSize from its configuration name. An empty
// kind means fixed.
func ParseStepSize(kind string, eta float64) (StepSize, error) {
	var k StepKind
	switch strings.ToLower(strings.TrimSpace(kind)) {
	case "", "fixed", "constant":
		k = StepFixed
	case "diminishing", "sqrt":
		k = StepDiminishing
	case "harmonic":
		k = StepHarmonic
	default:
		return StepSize{}, fmt.Errorf("unknown step kind %q", kind)
	}
	s := StepSize{Kind: k, Eta: eta}
	return s, s.Validate()
}
