package workflow

import "fmt"

// Phase is one named stage of the game-creation pipeline.
type Phase string

const (
	PhaseInit     Phase = "init"
	PhaseDesign   Phase = "design"
	PhaseBuild    Phase = "build"
	PhaseQA       Phase = "qa"
	PhasePublish  Phase = "publish"
	PhaseComplete Phase = "complete"
	PhaseFailed   Phase = "failed"
)

// forward is the linear progression through the pipeline.
var forward = map[Phase]Phase{
	PhaseInit:    PhaseDesign,
	PhaseDesign:  PhaseBuild,
	PhaseBuild:   PhaseQA,
	PhaseQA:      PhasePublish,
	PhasePublish: PhaseComplete,
}

// transitions is the full legal edge set. Besides the forward chain it
// contains the qa→build rework edge, failure edges from every non-terminal
// phase, and the failed→init restart edge.
var transitions = map[Phase][]Phase{
	PhaseInit:    {PhaseDesign, PhaseFailed},
	PhaseDesign:  {PhaseBuild, PhaseFailed},
	PhaseBuild:   {PhaseQA, PhaseFailed},
	PhaseQA:      {PhasePublish, PhaseBuild, PhaseFailed},
	PhasePublish: {PhaseComplete, PhaseFailed},
	PhaseFailed:  {PhaseInit},
}

// AllPhases lists every phase in pipeline order.
func AllPhases() []Phase {
	return []Phase{
		PhaseInit, PhaseDesign, PhaseBuild, PhaseQA,
		PhasePublish, PhaseComplete, PhaseFailed,
	}
}

// ParsePhase converts a stored string into a Phase.
func ParsePhase(s string) (Phase, error) {
	p := Phase(s)
	switch p {
	case PhaseInit, PhaseDesign, PhaseBuild, PhaseQA, PhasePublish, PhaseComplete, PhaseFailed:
		return p, nil
	}
	return "", fmt.Errorf("unknown phase %q", s)
}

// CanTransition reports whether from→to is a legal edge.
func CanTransition(from, to Phase) bool {
	for _, t := range transitions[from] {
		if t == to {
			return true
		}
	}
	return false
}

// NextPhase returns the single forward successor of p. The second return is
// false for complete and failed, which have no forward successor.
func NextPhase(p Phase) (Phase, bool) {
	next, ok := forward[p]
	return next, ok
}

// IsTerminal reports whether p ends a run. failed is terminal for
// sequencing purposes even though failed→init restart is permitted.
func IsTerminal(p Phase) bool {
	return p == PhaseComplete || p == PhaseFailed
}

// InvalidTransitionError reports an attempted illegal phase change.
type InvalidTransitionError struct {
	From Phase
	To   Phase
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid phase transition %s -> %s", e.From, e.To)
}
