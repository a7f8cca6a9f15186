package dynamo

import (
	"context"
	"math"
)

type State []float64

func (s State) Clone() State {
	c := make(State, len(s))
	copy(c, s)
	return c
}

func (s State) IsValid() bool {
	for _, v := range s {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// System is the right-hand side of an ODE: dX/dt = Derive(X, t).
// Parameters are bound inside the implementation.
type System interface {
	Name() string
	Derive(x State, t float64) State
	StateDim() int
	Labels() []string
}

// Auxiliary reconstructs the non-state series (controller outputs, profile
// values) that correspond to a sampled state at time t.
type Auxiliary interface {
	AuxLabels() []string
	Aux(x State, t float64) []float64
}

// Bounded lists state indices that are physically non-negative.
type Bounded interface {
	NonNegative() []int
}

// Validator is implemented by systems that can check their parameters.
type Validator interface {
	Validate() error
}

// Stats records the work an integrator performed.
type Stats struct {
	Evaluations int
	Accepted    int
	Rejected    int
	LastStep    float64
}

func (s *Stats) Merge(other Stats) {
	s.Evaluations += other.Evaluations
	s.Accepted += other.Accepted
	s.Rejected += other.Rejected
	if other.LastStep != 0 {
		s.LastStep = other.LastStep
	}
}

// Integrator advances x0 from times[0] and samples the solution at every
// entry of times. The returned slice has len(times) states, the first of
// which is a copy of x0.
type Integrator interface {
	Name() string
	Integrate(ctx context.Context, sys System, x0 State, times []float64) ([]State, Stats, error)
}

// Refinable integrators can return a copy of themselves with a smaller step
// size, used for bounded retries after a failure.
type Refinable interface {
	Refine(factor float64) Integrator
}

type Metric interface {
	Name() string
	Observe(x State, aux []float64, t float64)
	Value() float64
	Reset()
}
