// Package profile provides piecewise-constant functions of simulation time
// used for setpoints and disturbances.
package profile

import (
	"fmt"
	"math"
	"sort"

	"github.com/san-kum/cstrsim/internal/dynamo"
)

// Func maps simulation time to a scalar. Implementations must be pure.
type Func interface {
	Value(t float64) float64
}

// Breakpoint switches a Step to Value from time At onwards.
type Breakpoint struct {
	At    float64 `yaml:"at" json:"at"`
	Value float64 `yaml:"value" json:"value"`
}

// Step is an immutable step function. Before the first breakpoint it
// returns Initial; from each breakpoint's At (inclusive) it returns that
// breakpoint's Value.
type Step struct {
	initial float64
	points  []Breakpoint
}

// New builds a Step, sorting breakpoints by time. Breakpoints must be
// finite and distinct.
func New(initial float64, points ...Breakpoint) (Step, error) {
	if math.IsNaN(initial) || math.IsInf(initial, 0) {
		return Step{}, fmt.Errorf("profile initial value %v: %w", initial, dynamo.ErrParameterBounds)
	}
	sorted := make([]Breakpoint, len(points))
	copy(sorted, points)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].At < sorted[j].At })

	for i, p := range sorted {
		if math.IsNaN(p.At) || math.IsInf(p.At, 0) || math.IsNaN(p.Value) || math.IsInf(p.Value, 0) {
			return Step{}, fmt.Errorf("profile breakpoint %d (%v, %v): %w", i, p.At, p.Value, dynamo.ErrParameterBounds)
		}
		if i > 0 && sorted[i-1].At == p.At {
			return Step{}, fmt.Errorf("profile breakpoint at t=%v repeated: %w", p.At, dynamo.ErrParameterBounds)
		}
	}
	return Step{initial: initial, points: sorted}, nil
}

// Must is New for literal profiles; it panics on invalid input.
func Must(initial float64, points ...Breakpoint) Step {
	s, err := New(initial, points...)
	if err != nil {
		panic(err)
	}
	return s
}

// Constant returns a Step without breakpoints.
func Constant(v float64) Step {
	return Step{initial: v}
}

// At is shorthand for a Breakpoint literal.
func At(t, v float64) Breakpoint {
	return Breakpoint{At: t, Value: v}
}

func (s Step) Value(t float64) float64 {
	idx := sort.Search(len(s.points), func(i int) bool { return s.points[i].At > t })
	if idx == 0 {
		return s.initial
	}
	return s.points[idx-1].Value
}

func (s Step) Initial() float64 { return s.initial }

func (s Step) Breakpoints() []Breakpoint {
	out := make([]Breakpoint, len(s.points))
	copy(out, s.points)
	return out
}

// Spec returns the serialisable form of s.
func (s Step) Spec() Spec {
	return Spec{Initial: s.initial, Steps: s.Breakpoints()}
}
