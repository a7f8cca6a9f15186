package sim

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/san-kum/cstrsim/internal/dynamo"
	"github.com/san-kum/cstrsim/internal/integrators"
)

// Recorder receives telemetry for every finished run.
type Recorder interface {
	RunFinished(model, integrator string, stats dynamo.Stats, elapsed time.Duration, err error)
}

type Option func(*Driver)

// WithRetries allows up to n further attempts after an integrator failure,
// each with the step size of a Refinable integrator halved.
func WithRetries(n int) Option {
	return func(d *Driver) {
		if n > 0 {
			d.retries = n
		}
	}
}

func WithLogger(log *logrus.Entry) Option {
	return func(d *Driver) {
		if log != nil {
			d.log = log
		}
	}
}

func WithRecorder(r Recorder) Option {
	return func(d *Driver) { d.recorder = r }
}

// Driver runs one model with one integrator over an output grid.
type Driver struct {
	model      dynamo.System
	integrator dynamo.Integrator
	metrics    []dynamo.Metric
	retries    int
	log        *logrus.Entry
	recorder   Recorder
}

// New returns a Driver for model. A nil integrator selects adaptive RK45.
func New(model dynamo.System, integrator dynamo.Integrator, opts ...Option) *Driver {
	if integrator == nil {
		integrator = integrators.NewRK45()
	}
	d := &Driver{
		model:      model,
		integrator: integrator,
		metrics:    make([]dynamo.Metric, 0),
		log:        logrus.WithField("component", "sim"),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

func (d *Driver) AddMetric(m dynamo.Metric) { d.metrics = append(d.metrics, m) }

func (d *Driver) Model() dynamo.System          { return d.model }
func (d *Driver) Integrator() dynamo.Integrator { return d.integrator }

// Run integrates spec.X0 over Grid(spec.Horizon, spec.Samples).
func (d *Driver) Run(ctx context.Context, spec Spec) (*Result, error) {
	times, err := Grid(spec.Horizon, spec.Samples)
	if err != nil {
		return nil, err
	}
	return d.RunGrid(ctx, spec.X0, times)
}

// RunGrid integrates x0 from times[0] and samples the trajectory at every
// entry of times. Sampled non-negative components are clamped to zero and
// auxiliary series are rebuilt from the clamped samples.
func (d *Driver) RunGrid(ctx context.Context, x0 dynamo.State, times []float64) (*Result, error) {
	if err := d.validate(x0, times); err != nil {
		return nil, err
	}

	log := d.log.WithFields(logrus.Fields{
		"model":      d.model.Name(),
		"integrator": d.integrator.Name(),
		"samples":    len(times),
		"horizon":    times[len(times)-1],
	})
	log.Debug("run started")

	start := time.Now()
	states, stats, attempts, err := d.integrate(ctx, log, x0, times)
	elapsed := time.Since(start)
	if d.recorder != nil {
		d.recorder.RunFinished(d.model.Name(), d.integrator.Name(), stats, elapsed, err)
	}
	if err != nil {
		log.WithError(err).WithField("attempts", attempts).Error("run failed")
		return nil, err
	}

	res := &Result{
		Model:      d.model.Name(),
		Integrator: d.integrator.Name(),
		Times:      append([]float64(nil), times...),
		States:     states,
		Labels:     d.model.Labels(),
		Metrics:    make(map[string]float64),
		Stats:      stats,
		Attempts:   attempts,
		Elapsed:    elapsed,
	}

	if b, ok := d.model.(dynamo.Bounded); ok {
		clamp(res.States, b.NonNegative())
	}

	aux, _ := d.model.(dynamo.Auxiliary)
	if aux != nil {
		res.AuxLabels = aux.AuxLabels()
		res.Aux = make([][]float64, len(times))
	}

	for _, m := range d.metrics {
		m.Reset()
	}
	for i, t := range res.Times {
		var a []float64
		if aux != nil {
			a = aux.Aux(res.States[i], t)
			res.Aux[i] = a
		}
		for _, m := range d.metrics {
			m.Observe(res.States[i], a, t)
		}
	}
	for _, m := range d.metrics {
		res.Metrics[m.Name()] = m.Value()
	}

	log.WithFields(logrus.Fields{
		"evaluations": stats.Evaluations,
		"accepted":    stats.Accepted,
		"rejected":    stats.Rejected,
		"elapsed":     elapsed,
	}).Info("run finished")
	return res, nil
}

func (d *Driver) validate(x0 dynamo.State, times []float64) error {
	if v, ok := d.model.(dynamo.Validator); ok {
		if err := v.Validate(); err != nil {
			return fmt.Errorf("%s parameters: %w", d.model.Name(), err)
		}
	}
	if len(x0) != d.model.StateDim() {
		return fmt.Errorf("initial state has %d components, %s needs %d: %w",
			len(x0), d.model.Name(), d.model.StateDim(), dynamo.ErrDimensionMismatch)
	}
	if !x0.IsValid() {
		return fmt.Errorf("initial state %v is not finite: %w", x0, dynamo.ErrInvalidState)
	}
	if b, ok := d.model.(dynamo.Bounded); ok {
		labels := d.model.Labels()
		for _, i := range b.NonNegative() {
			if x0[i] < 0 {
				return fmt.Errorf("initial %s=%v must be non-negative: %w", labels[i], x0[i], dynamo.ErrInvalidState)
			}
		}
	}
	return ValidateGrid(times)
}

// integrate runs the integrator with bounded retries. Every failure is
// returned as a *dynamo.SimulationError.
func (d *Driver) integrate(ctx context.Context, log *logrus.Entry, x0 dynamo.State, times []float64) ([]dynamo.State, dynamo.Stats, int, error) {
	var total dynamo.Stats
	integ := d.integrator

	for attempt := 1; ; attempt++ {
		states, stats, err := integ.Integrate(ctx, d.model, x0, times)
		total.Merge(stats)
		if err == nil {
			return states, total, attempt, nil
		}

		var simErr *dynamo.SimulationError
		if !errors.As(err, &simErr) {
			err = &dynamo.SimulationError{Time: times[0], State: x0.Clone(), Wrapped: err}
		}

		r, refinable := integ.(dynamo.Refinable)
		if attempt > d.retries || !refinable || errors.Is(err, dynamo.ErrContextCanceled) {
			return nil, total, attempt, err
		}
		log.WithError(err).WithField("attempt", attempt).Warn("integration failed, retrying with a smaller step")
		integ = r.Refine(0.5)
	}
}

// clamp zeroes negative samples of the listed components.
func clamp(states []dynamo.State, idx []int) {
	for _, x := range states {
		for _, i := range idx {
			if x[i] < 0 {
				x[i] = 0
			}
		}
	}
}
