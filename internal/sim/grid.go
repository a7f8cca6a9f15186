package sim

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/san-kum/cstrsim/internal/dynamo"
	"github.com/san-kum/cstrsim/internal/integrators"
)

// Grid returns n evenly spaced times from 0 to horizon inclusive.
func Grid(horizon float64, n int) ([]float64, error) {
	if !(horizon > 0) || math.IsInf(horizon, 0) {
		return nil, fmt.Errorf("horizon=%v must be positive and finite: %w", horizon, dynamo.ErrParameterBounds)
	}
	if n < 2 {
		return nil, fmt.Errorf("samples=%d must be at least 2: %w", n, dynamo.ErrParameterBounds)
	}
	times := floats.Span(make([]float64, n), 0, horizon)
	times[n-1] = horizon
	return times, nil
}

// ValidateGrid rejects empty, non-finite and non-increasing grids.
func ValidateGrid(times []float64) error {
	if err := integrators.CheckGrid(times); err != nil {
		return err
	}
	if len(times) < 2 {
		return fmt.Errorf("grid needs at least 2 times, got %d: %w", len(times), dynamo.ErrInvalidGrid)
	}
	return nil
}
