package integrators

import (
	"context"
	"fmt"
	"math"

	"github.com/san-kum/cstrsim/internal/dynamo"
)

// Dormand-Prince coefficients (RK45)
var (
	a2 = 1.0 / 5.0
	a3 = 3.0 / 10.0
	a4 = 4.0 / 5.0
	a5 = 8.0 / 9.0

	b21 = 1.0 / 5.0
	b31 = 3.0 / 40.0
	b32 = 9.0 / 40.0
	b41 = 44.0 / 45.0
	b42 = -56.0 / 15.0
	b43 = 32.0 / 9.0
	b51 = 19372.0 / 6561.0
	b52 = -25360.0 / 2187.0
	b53 = 64448.0 / 6561.0
	b54 = -212.0 / 729.0
	b61 = 9017.0 / 3168.0
	b62 = -355.0 / 33.0
	b63 = 46732.0 / 5247.0
	b64 = 49.0 / 176.0
	b65 = -5103.0 / 18656.0

	c1 = 35.0 / 384.0
	c3 = 500.0 / 1113.0
	c4 = 125.0 / 192.0
	c5 = -2187.0 / 6784.0
	c6 = 11.0 / 84.0

	dc1 = c1 - 5179.0/57600.0
	dc3 = c3 - 7571.0/16695.0
	dc4 = c4 - 393.0/640.0
	dc5 = c5 - -92097.0/339200.0
	dc6 = c6 - 187.0/2100.0
	dc7 = -1.0 / 40.0
)

// RK45 is the adaptive Dormand-Prince 5(4) pair. Steps are clipped so that
// every output time is hit exactly; the step-size controller carries over
// between output intervals.
type RK45 struct {
	Rtol float64
	Atol float64

	// InitialStep of zero selects a starting step from the local derivative.
	InitialStep float64
	MinStep     float64
	// MaxStep of zero leaves the step unbounded.
	MaxStep  float64
	MaxSteps int

	safety   float64
	minScale float64
	maxScale float64
}

func NewRK45() *RK45 {
	return &RK45{
		Rtol:     1e-6,
		Atol:     1e-9,
		MinStep:  1e-12,
		MaxSteps: 1_000_000,
		safety:   0.9,
		minScale: 0.2,
		maxScale: 10.0,
	}
}

func (r *RK45) Name() string { return "rk45" }

// Refine returns a copy with the initial and maximum step scaled by factor
// and the tolerances tightened by the same factor.
func (r *RK45) Refine(factor float64) dynamo.Integrator {
	c := *r
	c.Rtol *= factor
	c.Atol *= factor
	if c.InitialStep > 0 {
		c.InitialStep *= factor
	}
	if c.MaxStep > 0 {
		c.MaxStep *= factor
	}
	c.MaxSteps = int(float64(c.MaxSteps) / factor)
	return &c
}

// errorNorm is the RMS of the embedded error estimate scaled by
// Atol + Rtol*max(|x|, |xNew|).
func (r *RK45) errorNorm(x, xNew, errEst dynamo.State) float64 {
	sum := 0.0
	for i := range x {
		sc := r.Atol + r.Rtol*math.Max(math.Abs(x[i]), math.Abs(xNew[i]))
		e := errEst[i] / sc
		sum += e * e
	}
	return math.Sqrt(sum / float64(len(x)))
}

// attempt takes one trial step of size dt from (t, x) with k1 = f(x, t).
// It returns the fifth-order solution, its derivative (reused as the next k1)
// and the scaled error norm.
func (r *RK45) attempt(sys dynamo.System, x, k1 dynamo.State, t, dt float64) (dynamo.State, dynamo.State, float64) {
	n := len(x)
	tmp := make(dynamo.State, n)

	for i := 0; i < n; i++ {
		tmp[i] = x[i] + dt*b21*k1[i]
	}
	k2 := sys.Derive(tmp, t+a2*dt)

	for i := 0; i < n; i++ {
		tmp[i] = x[i] + dt*(b31*k1[i]+b32*k2[i])
	}
	k3 := sys.Derive(tmp, t+a3*dt)

	for i := 0; i < n; i++ {
		tmp[i] = x[i] + dt*(b41*k1[i]+b42*k2[i]+b43*k3[i])
	}
	k4 := sys.Derive(tmp, t+a4*dt)

	for i := 0; i < n; i++ {
		tmp[i] = x[i] + dt*(b51*k1[i]+b52*k2[i]+b53*k3[i]+b54*k4[i])
	}
	k5 := sys.Derive(tmp, t+a5*dt)

	for i := 0; i < n; i++ {
		tmp[i] = x[i] + dt*(b61*k1[i]+b62*k2[i]+b63*k3[i]+b64*k4[i]+b65*k5[i])
	}
	k6 := sys.Derive(tmp, t+dt)

	xNew := make(dynamo.State, n)
	for i := 0; i < n; i++ {
		xNew[i] = x[i] + dt*(c1*k1[i]+c3*k3[i]+c4*k4[i]+c5*k5[i]+c6*k6[i])
	}

	k7 := sys.Derive(xNew, t+dt)

	errEst := tmp
	for i := 0; i < n; i++ {
		errEst[i] = dt * (dc1*k1[i] + dc3*k3[i] + dc4*k4[i] + dc5*k5[i] + dc6*k6[i] + dc7*k7[i])
	}
	return xNew, k7, r.errorNorm(x, xNew, errEst)
}

// initialStep follows the Hairer-Wanner starting-step heuristic, bounded by
// the first output interval.
func (r *RK45) initialStep(x, f0 dynamo.State, span float64) float64 {
	if r.InitialStep > 0 {
		return math.Min(r.InitialStep, span)
	}
	d0, d1 := 0.0, 0.0
	for i := range x {
		sc := r.Atol + r.Rtol*math.Abs(x[i])
		d0 += (x[i] / sc) * (x[i] / sc)
		d1 += (f0[i] / sc) * (f0[i] / sc)
	}
	n := float64(len(x))
	d0, d1 = math.Sqrt(d0/n), math.Sqrt(d1/n)

	h := 1e-6
	if d0 > 1e-5 && d1 > 1e-5 {
		h = 0.01 * d0 / d1
	}
	if r.MaxStep > 0 {
		h = math.Min(h, r.MaxStep)
	}
	return math.Min(math.Max(h, r.MinStep), span)
}

func (r *RK45) Integrate(ctx context.Context, sys dynamo.System, x0 dynamo.State, times []float64) ([]dynamo.State, dynamo.Stats, error) {
	var stats dynamo.Stats
	if err := CheckGrid(times); err != nil {
		return nil, stats, err
	}
	if len(x0) != sys.StateDim() {
		return nil, stats, fmt.Errorf("x0 has %d components, %s needs %d: %w",
			len(x0), sys.Name(), sys.StateDim(), dynamo.ErrDimensionMismatch)
	}
	if !(r.Rtol > 0) || !(r.Atol > 0) {
		return nil, stats, fmt.Errorf("rtol=%v atol=%v must be positive: %w", r.Rtol, r.Atol, dynamo.ErrParameterBounds)
	}

	out := make([]dynamo.State, len(times))
	out[0] = x0.Clone()
	if len(times) == 1 {
		return out, stats, nil
	}

	x := x0.Clone()
	t := times[0]
	k1 := sys.Derive(x, t)
	stats.Evaluations++
	if !k1.IsValid() {
		return out[:1], stats, &dynamo.SimulationError{Time: t, State: x.Clone(), Wrapped: dynamo.ErrUnstable}
	}

	h := r.initialStep(x, k1, times[1]-times[0])
	fail := func(cause error) ([]dynamo.State, dynamo.Stats, error) {
		return nil, stats, &dynamo.SimulationError{
			Step: stats.Accepted, Time: t, State: x.Clone(), Wrapped: cause,
		}
	}

	for k := 1; k < len(times); k++ {
		tEnd := times[k]
		for t < tEnd {
			select {
			case <-ctx.Done():
				return fail(fmt.Errorf("%w: %v", dynamo.ErrContextCanceled, ctx.Err()))
			default:
			}
			if r.MaxSteps > 0 && stats.Accepted+stats.Rejected >= r.MaxSteps {
				return fail(dynamo.ErrMaxSteps)
			}

			dt := h
			clipped := false
			if t+dt >= tEnd {
				dt = tEnd - t
				clipped = true
			}

			xNew, k7, errNorm := r.attempt(sys, x, k1, t, dt)
			stats.Evaluations += 6

			if !xNew.IsValid() || math.IsNaN(errNorm) {
				stats.Rejected++
				h = dt * r.minScale
				if h < r.MinStep {
					return fail(dynamo.ErrUnstable)
				}
				continue
			}

			if errNorm > 1 {
				stats.Rejected++
				h = dt * math.Max(r.minScale, r.safety*math.Pow(errNorm, -0.25))
				if h < r.MinStep {
					return fail(fmt.Errorf("%w: step %.3g < %.3g", dynamo.ErrStepTooSmall, h, r.MinStep))
				}
				continue
			}

			if clipped {
				t = tEnd
			} else {
				t += dt
			}
			x, k1 = xNew, k7
			stats.Accepted++
			stats.LastStep = dt

			scale := r.maxScale
			if errNorm > 0 {
				scale = math.Min(r.maxScale, r.safety*math.Pow(errNorm, -0.2))
			}
			// a step shortened to land on an output time does not shrink
			// the proposal for the next interval
			if !clipped || scale < 1 {
				h = dt * scale
			}
			if r.MaxStep > 0 {
				h = math.Min(h, r.MaxStep)
			}
		}
		out[k] = x.Clone()
	}
	return out, stats, nil
}
