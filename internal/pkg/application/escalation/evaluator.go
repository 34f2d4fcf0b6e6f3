package escalation

import "math"

type Decision int

const (
	// DecisionIndeterminate means distance or radius was missing or not a
	// number. The caller must treat this as an input error, not as a
	// business decision.
	DecisionIndeterminate Decision = iota
	DecisionInsideSafezone
	DecisionOutsideActiveCase
	DecisionOutsideNoActiveCase
)

func (d Decision) String() string {
	switch d {
	case DecisionInsideSafezone:
		return "inside-safezone"
	case DecisionOutsideActiveCase:
		return "outside-with-active-case"
	case DecisionOutsideNoActiveCase:
		return "outside-no-active-case"
	default:
		return "indeterminate"
	}
}

// Evaluate classifies a position or SOS signal. A distance exactly on the
// boundary counts as inside, so that GPS jitter around the radius cannot
// cause alert storms.
func Evaluate(distance, radius *float64, hasOpenCase bool) Decision {
	if distance == nil || radius == nil {
		return DecisionIndeterminate
	}
	if math.IsNaN(*distance) || math.IsNaN(*radius) {
		return DecisionIndeterminate
	}

	if *distance <= *radius {
		return DecisionInsideSafezone
	}

	if hasOpenCase {
		return DecisionOutsideActiveCase
	}

	return DecisionOutsideNoActiveCase
}
