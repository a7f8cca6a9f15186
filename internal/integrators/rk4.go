package integrators

import (
	"context"

	"github.com/san-kum/cstrsim/internal/dynamo"
)

// RK4 is the classical fourth-order Runge-Kutta method with a fixed
// sub-step. The scratch buffers make a single RK4 value unsafe for
// concurrent use.
type RK4 struct {
	MaxStep float64

	k1, k2, k3, k4 dynamo.State
	scratch        dynamo.State
}

func NewRK4() *RK4 {
	return &RK4{MaxStep: DefaultMaxStep}
}

func (r *RK4) Name() string { return "rk4" }

func (r *RK4) ensureScratch(n int) {
	if len(r.k1) != n {
		r.k1 = make(dynamo.State, n)
		r.k2 = make(dynamo.State, n)
		r.k3 = make(dynamo.State, n)
		r.k4 = make(dynamo.State, n)
		r.scratch = make(dynamo.State, n)
	}
}

func (r *RK4) Step(sys dynamo.System, x dynamo.State, t, dt float64) dynamo.State {
	n := len(x)
	r.ensureScratch(n)

	copy(r.k1, sys.Derive(x, t))

	for i := 0; i < n; i++ {
		r.scratch[i] = x[i] + dt*0.5*r.k1[i]
	}
	copy(r.k2, sys.Derive(r.scratch, t+dt*0.5))

	for i := 0; i < n; i++ {
		r.scratch[i] = x[i] + dt*0.5*r.k2[i]
	}
	copy(r.k3, sys.Derive(r.scratch, t+dt*0.5))

	for i := 0; i < n; i++ {
		r.scratch[i] = x[i] + dt*r.k3[i]
	}
	copy(r.k4, sys.Derive(r.scratch, t+dt))

	result := make(dynamo.State, n)
	dt6 := dt / 6.0
	for i := 0; i < n; i++ {
		result[i] = x[i] + dt6*(r.k1[i]+2*r.k2[i]+2*r.k3[i]+r.k4[i])
	}

	return result
}

func (r *RK4) Integrate(ctx context.Context, sys dynamo.System, x0 dynamo.State, times []float64) ([]dynamo.State, dynamo.Stats, error) {
	return integrateFixed(ctx, sys, x0, times, r.MaxStep, 4, r.Step)
}

func (r *RK4) Refine(factor float64) dynamo.Integrator {
	return &RK4{MaxStep: r.MaxStep * factor}
}
