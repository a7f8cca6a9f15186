package experiment

import (
	"context"
	"fmt"

	"github.com/san-kum/cstrsim/internal/config"
	"github.com/san-kum/cstrsim/internal/dynamo"
	"github.com/san-kum/cstrsim/internal/sim"
)

// Experiment is one configured run: a model, an integrator and the
// default KPIs, built from a Config.
type Experiment struct {
	cfg    *config.Config
	model  dynamo.System
	driver *sim.Driver
}

func New(cfg *config.Config) *Experiment {
	return &Experiment{cfg: cfg}
}

func (e *Experiment) Setup(reg *Registry, opts ...sim.Option) error {
	model, err := e.cfg.System()
	if err != nil {
		return err
	}
	integ, err := reg.GetIntegrator(e.cfg.Integrator, e.cfg.Solver)
	if err != nil {
		return err
	}

	if e.cfg.Retries > 0 {
		opts = append([]sim.Option{sim.WithRetries(e.cfg.Retries)}, opts...)
	}
	e.model = model
	e.driver = sim.New(model, integ, opts...)
	for _, m := range reg.DefaultMetrics(model) {
		e.driver.AddMetric(m)
	}
	return nil
}

func (e *Experiment) Run(ctx context.Context) (*sim.Result, error) {
	if e.driver == nil {
		return nil, fmt.Errorf("experiment not setup")
	}

	return e.driver.Run(ctx, sim.Spec{
		X0:      e.cfg.GetInitState(),
		Horizon: e.cfg.Duration,
		Samples: e.cfg.Samples,
	})
}

func (e *Experiment) Model() dynamo.System { return e.model }

// Driver returns the underlying driver for adding metrics
func (e *Experiment) Driver() *sim.Driver {
	return e.driver
}
