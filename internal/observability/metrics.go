package observability

import (
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/san-kum/cstrsim/internal/dynamo"
)

// RunCollector bundles Prometheus metrics describing simulation runs. It
// satisfies sim.Recorder.
type RunCollector struct {
	gatherer prometheus.Gatherer

	Runs        *prometheus.CounterVec
	Evaluations *prometheus.CounterVec
	Steps       *prometheus.CounterVec
	Durations   *prometheus.HistogramVec
}

// NewRunCollector registers run metrics against the provided registerer,
// defaulting to the global Prometheus registry when nil.
func NewRunCollector(reg prometheus.Registerer) (*RunCollector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gatherer := prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}

	runs, err := registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "cstrsim_runs_total",
		Help: "Finished simulation runs, labeled by model and outcome.",
	}, []string{"model", "outcome"}), "cstrsim_runs_total")
	if err != nil {
		return nil, err
	}

	evals, err := registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "cstrsim_rhs_evaluations_total",
		Help: "Right-hand side evaluations performed by integrators.",
	}, []string{"model"}), "cstrsim_rhs_evaluations_total")
	if err != nil {
		return nil, err
	}

	steps, err := registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "cstrsim_integrator_steps_total",
		Help: "Integrator steps, labeled by model and kind (accepted or rejected).",
	}, []string{"model", "kind"}), "cstrsim_integrator_steps_total")
	if err != nil {
		return nil, err
	}

	durations, err := registerHistogramVec(reg, prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "cstrsim_run_duration_seconds",
		Help:    "Wall-clock duration of simulation runs in seconds.",
		Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30},
	}, []string{"model"}), "cstrsim_run_duration_seconds")
	if err != nil {
		return nil, err
	}

	return &RunCollector{
		gatherer:    gatherer,
		Runs:        runs,
		Evaluations: evals,
		Steps:       steps,
		Durations:   durations,
	}, nil
}

func (c *RunCollector) RunFinished(model, integrator string, stats dynamo.Stats, elapsed time.Duration, err error) {
	if c == nil {
		return
	}
	c.Runs.WithLabelValues(model, Outcome(err)).Inc()
	c.Evaluations.WithLabelValues(model).Add(float64(stats.Evaluations))
	c.Steps.WithLabelValues(model, "accepted").Add(float64(stats.Accepted))
	c.Steps.WithLabelValues(model, "rejected").Add(float64(stats.Rejected))
	c.Durations.WithLabelValues(model).Observe(elapsed.Seconds())
}

// WriteTextfile dumps every gathered metric in the text exposition format,
// suitable for the node exporter textfile collector.
func (c *RunCollector) WriteTextfile(path string) error {
	gatherer := c.gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	return prometheus.WriteToTextfile(path, gatherer)
}

// Outcome maps a run error onto a short label value.
func Outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, dynamo.ErrContextCanceled):
		return "canceled"
	case errors.Is(err, dynamo.ErrUnstable):
		return "unstable"
	case errors.Is(err, dynamo.ErrStepTooSmall):
		return "step_too_small"
	case errors.Is(err, dynamo.ErrMaxSteps):
		return "max_steps"
	default:
		return "error"
	}
}

func registerCounterVec(reg prometheus.Registerer, vec *prometheus.CounterVec, name string) (*prometheus.CounterVec, error) {
	if err := reg.Register(vec); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(*prometheus.CounterVec); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return vec, nil
}

func registerHistogramVec(reg prometheus.Registerer, vec *prometheus.HistogramVec, name string) (*prometheus.HistogramVec, error) {
	if err := reg.Register(vec); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(*prometheus.HistogramVec); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return vec, nil
}
