package analysis

import (
	"context"
	"fmt"

	"github.com/san-kum/cstrsim/internal/dynamo"
	"github.com/san-kum/cstrsim/internal/sim"
)

// SweepPoint is the settled value of one state component for one parameter
// value.
type SweepPoint struct {
	Param float64
	Final float64
	// Spread is max-min over the recorded tail; near zero once settled.
	Spread float64
}

// Sweep builds a model for every value in params, runs it and records the
// last tail samples of state component idx.
func Sweep(
	ctx context.Context,
	build func(param float64) dynamo.System,
	newIntegrator func() dynamo.Integrator,
	params []float64,
	spec sim.Spec,
	idx int,
	tail int,
) ([]SweepPoint, error) {
	if tail < 1 {
		tail = 1
	}

	results := make([]SweepPoint, 0, len(params))
	for _, p := range params {
		model := build(p)
		if idx < 0 || idx >= model.StateDim() {
			return nil, fmt.Errorf("state index %d out of range for %s: %w", idx, model.Name(), dynamo.ErrDimensionMismatch)
		}

		res, err := sim.New(model, newIntegrator()).Run(ctx, spec)
		if err != nil {
			return results, fmt.Errorf("param=%v: %w", p, err)
		}

		from := len(res.States) - tail
		if from < 0 {
			from = 0
		}
		lo, hi := res.States[from][idx], res.States[from][idx]
		for _, x := range res.States[from:] {
			if x[idx] < lo {
				lo = x[idx]
			}
			if x[idx] > hi {
				hi = x[idx]
			}
		}

		results = append(results, SweepPoint{
			Param:  p,
			Final:  res.Final()[idx],
			Spread: hi - lo,
		})
	}

	return results, nil
}

// SweepToASCII plots Final against the sweep index.
func SweepToASCII(data []SweepPoint, width, height int) string {
	if len(data) == 0 || width <= 0 || height <= 0 {
		return ""
	}
	points := make([]Point, len(data))
	for i, p := range data {
		points[i] = Point{X: p.Param, Y: p.Final}
	}
	return PhasePortraitToASCII(&PhasePortrait2D{Points: points}, width, height)
}
