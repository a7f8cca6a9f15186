package integrators

import (
	"context"

	"github.com/san-kum/cstrsim/internal/dynamo"
)

// Euler is the explicit first-order method with a fixed sub-step.
type Euler struct {
	MaxStep float64
}

func NewEuler() *Euler {
	return &Euler{MaxStep: DefaultMaxStep}
}

func (e *Euler) Name() string { return "euler" }

func (e *Euler) Step(sys dynamo.System, x dynamo.State, t, dt float64) dynamo.State {
	dx := sys.Derive(x, t)
	result := make(dynamo.State, len(x))
	for i := range x {
		result[i] = x[i] + dt*dx[i]
	}
	return result
}

func (e *Euler) Integrate(ctx context.Context, sys dynamo.System, x0 dynamo.State, times []float64) ([]dynamo.State, dynamo.Stats, error) {
	return integrateFixed(ctx, sys, x0, times, e.MaxStep, 1, e.Step)
}

func (e *Euler) Refine(factor float64) dynamo.Integrator {
	return &Euler{MaxStep: e.MaxStep * factor}
}
