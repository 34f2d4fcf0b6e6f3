package escalation

import (
	"math"
	"testing"

	"github.com/matryer/is"
)

func TestEvaluate(t *testing.T) {
	f := func(v float64) *float64 { return &v }
	nan := math.NaN()

	testCases := []struct {
		name        string
		distance    *float64
		radius      *float64
		hasOpenCase bool
		want        Decision
	}{
		{"missing distance", nil, f(100), false, DecisionIndeterminate},
		{"missing radius", f(120), nil, false, DecisionIndeterminate},
		{"nan distance", &nan, f(100), false, DecisionIndeterminate},
		{"nan radius", f(120), &nan, false, DecisionIndeterminate},
		{"well inside", f(40), f(100), false, DecisionInsideSafezone},
		{"exactly on the boundary", f(100), f(100), false, DecisionInsideSafezone},
		{"outside without an open case", f(120), f(100), false, DecisionOutsideNoActiveCase},
		{"outside with an open case", f(120), f(100), true, DecisionOutsideActiveCase},
		{"inside wins over an open case", f(40), f(100), true, DecisionInsideSafezone},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			is := is.New(t)
			is.Equal(Evaluate(tc.distance, tc.radius, tc.hasOpenCase), tc.want)
		})
	}
}
