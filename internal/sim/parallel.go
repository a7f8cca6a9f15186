package sim

import (
	"context"
	"sync"

	"github.com/san-kum/cstrsim/internal/dynamo"
)

// Batch runs several drivers over the same initial state and grid, one
// goroutine per driver. Drivers must not share integrator instances.
type Batch struct {
	drivers []*Driver
}

func NewBatch(drivers ...*Driver) *Batch {
	return &Batch{drivers: drivers}
}

// Run returns results in driver order. The first error by driver order is
// returned alongside whatever results succeeded.
func (b *Batch) Run(ctx context.Context, x0 dynamo.State, times []float64) ([]*Result, error) {
	results := make([]*Result, len(b.drivers))
	errs := make([]error, len(b.drivers))

	var wg sync.WaitGroup
	for i, d := range b.drivers {
		wg.Add(1)
		go func(idx int, d *Driver) {
			defer wg.Done()
			results[idx], errs[idx] = d.RunGrid(ctx, x0.Clone(), times)
		}(i, d)
	}

	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return results, err
		}
	}

	return results, nil
}
