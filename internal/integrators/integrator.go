package integrators

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/san-kum/cstrsim/internal/dynamo"
)

// DefaultMaxStep is the sub-step bound of the fixed-step integrators.
const DefaultMaxStep = 0.01

// New returns the integrator registered under name with default settings.
func New(name string) (dynamo.Integrator, error) {
	switch strings.ToLower(name) {
	case "euler":
		return NewEuler(), nil
	case "rk4":
		return NewRK4(), nil
	case "", "rk45", "dopri5":
		return NewRK45(), nil
	default:
		return nil, fmt.Errorf("unknown integrator %q (available: %s)", name, strings.Join(Names(), ", "))
	}
}

func Names() []string {
	names := []string{"euler", "rk4", "rk45"}
	sort.Strings(names)
	return names
}

// CheckGrid reports whether times is usable as an output grid.
func CheckGrid(times []float64) error {
	if len(times) == 0 {
		return fmt.Errorf("empty grid: %w", dynamo.ErrInvalidGrid)
	}
	for i, t := range times {
		if math.IsNaN(t) || math.IsInf(t, 0) {
			return fmt.Errorf("grid[%d]=%v: %w", i, t, dynamo.ErrInvalidGrid)
		}
		if i > 0 && !(t > times[i-1]) {
			return fmt.Errorf("grid[%d]=%v after %v: %w", i, t, times[i-1], dynamo.ErrInvalidGrid)
		}
	}
	return nil
}

// stepFunc advances x from t by dt.
type stepFunc func(sys dynamo.System, x dynamo.State, t, dt float64) dynamo.State

// integrateFixed walks every output interval in equal sub-steps no larger
// than maxStep. evalsPerStep feeds the Stats counters.
func integrateFixed(ctx context.Context, sys dynamo.System, x0 dynamo.State, times []float64,
	maxStep float64, evalsPerStep int, step stepFunc) ([]dynamo.State, dynamo.Stats, error) {

	var stats dynamo.Stats
	if err := CheckGrid(times); err != nil {
		return nil, stats, err
	}
	if len(x0) != sys.StateDim() {
		return nil, stats, fmt.Errorf("x0 has %d components, %s needs %d: %w",
			len(x0), sys.Name(), sys.StateDim(), dynamo.ErrDimensionMismatch)
	}
	if !(maxStep > 0) {
		return nil, stats, fmt.Errorf("max step %v: %w", maxStep, dynamo.ErrParameterBounds)
	}

	out := make([]dynamo.State, len(times))
	out[0] = x0.Clone()
	x := x0.Clone()

	for k := 1; k < len(times); k++ {
		t0, t1 := times[k-1], times[k]
		n := int(math.Ceil((t1 - t0) / maxStep))
		if n < 1 {
			n = 1
		}
		dt := (t1 - t0) / float64(n)

		for i := 0; i < n; i++ {
			select {
			case <-ctx.Done():
				return out[:k], stats, &dynamo.SimulationError{
					Step: stats.Accepted, Time: t0 + float64(i)*dt, State: x.Clone(),
					Wrapped: fmt.Errorf("%w: %v", dynamo.ErrContextCanceled, ctx.Err()),
				}
			default:
			}

			t := t0 + float64(i)*dt
			next := step(sys, x, t, dt)
			stats.Evaluations += evalsPerStep
			if !next.IsValid() {
				return out[:k], stats, &dynamo.SimulationError{
					Step: stats.Accepted, Time: t, State: x.Clone(), Wrapped: dynamo.ErrUnstable,
				}
			}
			x = next
			stats.Accepted++
			stats.LastStep = dt
		}
		out[k] = x.Clone()
	}
	return out, stats, nil
}
