package sim

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	. "github.com/onsi/gomega"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"

	"github.com/san-kum/cstrsim/internal/dynamo"
	"github.com/san-kum/cstrsim/internal/integrators"
	"github.com/san-kum/cstrsim/internal/physics"
	"github.com/san-kum/cstrsim/internal/profile"
)

// drain falls at a constant rate and would go negative without clamping.
type drain struct{}

func (d *drain) Name() string       { return "drain" }
func (d *drain) StateDim() int      { return 1 }
func (d *drain) Labels() []string   { return []string{"h"} }
func (d *drain) NonNegative() []int { return []int{0} }

func (d *drain) Derive(x dynamo.State, t float64) dynamo.State {
	return dynamo.State{-1}
}

func (d *drain) AuxLabels() []string { return []string{"h_copy", "t_copy"} }

func (d *drain) Aux(x dynamo.State, t float64) []float64 {
	return []float64{x[0], t}
}

// countingIntegrator records calls and fails while its step exceeds limit.
type countingIntegrator struct {
	step  float64
	limit float64
	calls *int
	plain bool
}

func (c *countingIntegrator) Name() string { return "counting" }

func (c *countingIntegrator) Integrate(ctx context.Context, sys dynamo.System, x0 dynamo.State, times []float64) ([]dynamo.State, dynamo.Stats, error) {
	*c.calls++
	stats := dynamo.Stats{Evaluations: 1}
	if c.step > c.limit {
		if c.plain {
			return nil, stats, errors.New("solver diverged")
		}
		return nil, stats, &dynamo.SimulationError{Step: 7, Time: 0.5, Wrapped: dynamo.ErrStepTooSmall}
	}
	return integrators.NewRK4().Integrate(ctx, sys, x0, times)
}

func (c *countingIntegrator) Refine(factor float64) dynamo.Integrator {
	cp := *c
	cp.step *= factor
	return &cp
}

type testMetric struct {
	count int
	sum   float64
}

func (t *testMetric) Name() string { return "test" }
func (t *testMetric) Observe(x dynamo.State, aux []float64, time float64) {
	t.count++
	t.sum += x[0]
}
func (t *testMetric) Value() float64 {
	if t.count == 0 {
		return 0
	}
	return t.sum / float64(t.count)
}
func (t *testMetric) Reset() {
	t.count = 0
	t.sum = 0
}

type testRecorder struct {
	model, integrator string
	stats             dynamo.Stats
	err               error
	calls             int
}

func (r *testRecorder) RunFinished(model, integrator string, stats dynamo.Stats, elapsed time.Duration, err error) {
	r.model, r.integrator, r.stats, r.err = model, integrator, stats, err
	r.calls++
}

func quietLogger() *logrus.Entry {
	logger, _ := test.NewNullLogger()
	return logrus.NewEntry(logger)
}

func TestTankConvergesToSteadyState(t *testing.T) {
	g := NewWithT(t)

	tank := physics.NewTank(profile.Constant(0.1))
	hss := tank.SteadyStateLevel(0.1)
	g.Expect(hss).To(BeNumerically("~", 3.016, 1e-3))

	d := New(tank, nil, WithLogger(quietLogger()))
	res, err := d.Run(context.Background(), Spec{X0: dynamo.State{0.5}, Horizon: 4000, Samples: 300})
	g.Expect(err).NotTo(HaveOccurred())
	g.Expect(res.Times).To(HaveLen(300))
	g.Expect(res.Final()[0]).To(BeNumerically("~", hss, 0.01))
}

func TestTankRisesMonotonically(t *testing.T) {
	g := NewWithT(t)

	tank := physics.NewTank(profile.Constant(0.1))
	hss := tank.SteadyStateLevel(0.1)

	res, err := New(tank, nil, WithLogger(quietLogger())).
		Run(context.Background(), Spec{X0: dynamo.State{0.5}, Horizon: 200, Samples: 300})
	g.Expect(err).NotTo(HaveOccurred())

	h, ok := res.Column("h")
	g.Expect(ok).To(BeTrue())
	for i := 1; i < len(h); i++ {
		g.Expect(h[i]).To(BeNumerically(">", h[i-1]))
		g.Expect(h[i]).To(BeNumerically("<", hss))
	}
}

func TestReactorScenario(t *testing.T) {
	g := NewWithT(t)

	reactor := physics.NewReactor(physics.DefaultReactorParams())
	res, err := New(reactor, nil, WithLogger(quietLogger())).
		Run(context.Background(), Spec{X0: dynamo.State{1.0, 50.0, 0.5}, Horizon: 120, Samples: 241})
	g.Expect(err).NotTo(HaveOccurred())
	g.Expect(res.Model).To(Equal("reactor"))
	g.Expect(res.Integrator).To(Equal("rk45"))
	g.Expect(res.Attempts).To(Equal(1))

	p := reactor.P
	for i, x := range res.States {
		g.Expect(x.IsValid()).To(BeTrue())
		g.Expect(x[physics.IdxLevel]).To(BeNumerically(">=", 0))
		g.Expect(x[physics.IdxConc]).To(BeNumerically(">=", 0))

		in := reactor.Inputs(x, res.Times[i])
		g.Expect(res.Aux[i]).To(Equal([]float64{
			in.LevelSetpoint, in.TempSetpoint, in.Inflow, in.HeaterPower,
			in.BaseInflow, in.InletTemp, in.InletConc, in.Outflow,
		}))
		g.Expect(in.Inflow).To(BeNumerically("<=", p.MaxInflow))
		g.Expect(in.HeaterPower).To(BeNumerically(">=", p.MinPower))
		g.Expect(in.HeaterPower).To(BeNumerically("<=", p.MaxPower))
	}

	cols := res.Columns()
	names := make([]string, len(cols))
	for i, c := range cols {
		names[i] = c.Name
		g.Expect(c.Values).To(HaveLen(241))
	}
	g.Expect(names).To(Equal([]string{
		"t", "h", "T", "CA",
		"level_setpoint", "temp_setpoint", "inflow", "heater_power",
		"base_inflow", "inlet_temp", "inlet_conc", "outflow",
	}))
}

func TestReferenceRunStaysWithinLimits(t *testing.T) {
	for _, kinetics := range []physics.Kinetics{physics.KineticsReactor, physics.KineticsInlet} {
		t.Run(kinetics.String(), func(t *testing.T) {
			g := NewWithT(t)

			p := physics.DefaultReactorParams()
			p.Kinetics = kinetics
			reactor := physics.NewReactor(p)
			spec := Spec{X0: dynamo.State{0.5, 25, 0}, Horizon: 150, Samples: 500}

			adaptive, err := New(reactor, integrators.NewRK45(), WithLogger(quietLogger())).Run(context.Background(), spec)
			g.Expect(err).NotTo(HaveOccurred())
			fixed, err := New(reactor, integrators.NewRK4(), WithLogger(quietLogger())).Run(context.Background(), spec)
			g.Expect(err).NotTo(HaveOccurred())
			g.Expect(adaptive.Times).To(HaveLen(500))
			g.Expect(adaptive.Times[499]).To(Equal(150.0))

			inflow, _ := adaptive.Column("inflow")
			heater, _ := adaptive.Column("heater_power")
			for i, x := range adaptive.States {
				g.Expect(x.IsValid()).To(BeTrue())
				g.Expect(x[physics.IdxLevel]).To(BeNumerically(">=", 0))
				g.Expect(x[physics.IdxConc]).To(BeNumerically(">=", 0))
				g.Expect(inflow[i]).To(BeNumerically(">=", 0))
				g.Expect(inflow[i]).To(BeNumerically("<=", p.MaxInflow))
				g.Expect(heater[i]).To(BeNumerically(">=", p.MinPower))
				g.Expect(heater[i]).To(BeNumerically("<=", p.MaxPower))

				for j := range x {
					g.Expect(math.Abs(x[j] - fixed.States[i][j])).To(BeNumerically("<", 0.1))
				}
			}
		})
	}
}

func TestReactorStartsEmpty(t *testing.T) {
	g := NewWithT(t)

	reactor := physics.NewReactor(physics.DefaultReactorParams())
	res, err := New(reactor, nil, WithLogger(quietLogger())).
		Run(context.Background(), Spec{X0: dynamo.State{0, 25, 0}, Horizon: 10, Samples: 21})
	g.Expect(err).NotTo(HaveOccurred())
	for _, x := range res.States {
		g.Expect(x.IsValid()).To(BeTrue())
	}
	g.Expect(res.Final()[physics.IdxLevel]).To(BeNumerically(">", 0))
}

func TestClampAndReconstruction(t *testing.T) {
	g := NewWithT(t)

	res, err := New(&drain{}, integrators.NewEuler(), WithLogger(quietLogger())).
		Run(context.Background(), Spec{X0: dynamo.State{1}, Horizon: 3, Samples: 7})
	g.Expect(err).NotTo(HaveOccurred())

	for i, tm := range res.Times {
		want := math.Max(1-tm, 0)
		g.Expect(res.States[i][0]).To(BeNumerically("~", want, 1e-9))
		g.Expect(res.States[i][0]).To(BeNumerically(">=", 0))
		g.Expect(res.Aux[i][0]).To(Equal(res.States[i][0]))
		g.Expect(res.Aux[i][1]).To(Equal(tm))
	}
}

func TestInvalidConfiguration(t *testing.T) {
	negativeArea := physics.DefaultReactorParams()
	negativeArea.Area = -5

	tests := []struct {
		name  string
		model dynamo.System
		x0    dynamo.State
		times []float64
		want  error
	}{
		{"negative area", physics.NewReactor(negativeArea), dynamo.State{1, 50, 0.5}, []float64{0, 1}, dynamo.ErrParameterBounds},
		{"negative level", physics.NewReactor(physics.DefaultReactorParams()), dynamo.State{-0.1, 50, 0.5}, []float64{0, 1}, dynamo.ErrInvalidState},
		{"negative concentration", physics.NewReactor(physics.DefaultReactorParams()), dynamo.State{1, 50, -0.5}, []float64{0, 1}, dynamo.ErrInvalidState},
		{"NaN temperature", physics.NewReactor(physics.DefaultReactorParams()), dynamo.State{1, math.NaN(), 0.5}, []float64{0, 1}, dynamo.ErrInvalidState},
		{"wrong dimension", physics.NewReactor(physics.DefaultReactorParams()), dynamo.State{1, 50}, []float64{0, 1}, dynamo.ErrDimensionMismatch},
		{"non-increasing grid", &drain{}, dynamo.State{1}, []float64{0, 1, 1, 2}, dynamo.ErrInvalidGrid},
		{"decreasing grid", &drain{}, dynamo.State{1}, []float64{0, 2, 1}, dynamo.ErrInvalidGrid},
		{"single time", &drain{}, dynamo.State{1}, []float64{0}, dynamo.ErrInvalidGrid},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			calls := 0
			integ := &countingIntegrator{calls: &calls}
			_, err := New(tt.model, integ, WithLogger(quietLogger())).RunGrid(context.Background(), tt.x0, tt.times)
			if !errors.Is(err, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, err)
			}
			if calls != 0 {
				t.Errorf("integrator called %d times before validation failed", calls)
			}
		})
	}
}

func TestRunRejectsBadGridSpec(t *testing.T) {
	tests := []struct {
		name string
		spec Spec
	}{
		{"zero horizon", Spec{X0: dynamo.State{1}, Horizon: 0, Samples: 10}},
		{"negative horizon", Spec{X0: dynamo.State{1}, Horizon: -1, Samples: 10}},
		{"one sample", Spec{X0: dynamo.State{1}, Horizon: 1, Samples: 1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(&drain{}, nil, WithLogger(quietLogger())).Run(context.Background(), tt.spec)
			if !errors.Is(err, dynamo.ErrParameterBounds) {
				t.Errorf("expected ErrParameterBounds, got %v", err)
			}
		})
	}
}

func TestRetryHalvesStep(t *testing.T) {
	g := NewWithT(t)

	logger, hook := test.NewNullLogger()
	calls := 0
	integ := &countingIntegrator{step: 1, limit: 0.3, calls: &calls}

	res, err := New(&drain{}, integ, WithRetries(2), WithLogger(logrus.NewEntry(logger))).
		Run(context.Background(), Spec{X0: dynamo.State{1}, Horizon: 0.5, Samples: 3})
	g.Expect(err).NotTo(HaveOccurred())
	g.Expect(calls).To(Equal(3))
	g.Expect(res.Attempts).To(Equal(3))
	g.Expect(res.Stats.Evaluations).To(BeNumerically(">", 2))

	warnings := 0
	for _, e := range hook.AllEntries() {
		if e.Level == logrus.WarnLevel {
			warnings++
		}
	}
	g.Expect(warnings).To(Equal(2))
}

func TestRetriesExhausted(t *testing.T) {
	calls := 0
	integ := &countingIntegrator{step: 1, limit: 0.1, calls: &calls}
	rec := &testRecorder{}

	_, err := New(&drain{}, integ, WithRetries(2), WithRecorder(rec), WithLogger(quietLogger())).
		Run(context.Background(), Spec{X0: dynamo.State{1}, Horizon: 1, Samples: 3})
	if !errors.Is(err, dynamo.ErrStepTooSmall) {
		t.Fatalf("expected ErrStepTooSmall, got %v", err)
	}
	var simErr *dynamo.SimulationError
	if !errors.As(err, &simErr) || simErr.Step != 7 {
		t.Errorf("expected SimulationError from the integrator, got %v", err)
	}
	if calls != 3 {
		t.Errorf("expected 3 attempts, got %d", calls)
	}
	if rec.calls != 1 || rec.err == nil || rec.stats.Evaluations != 3 {
		t.Errorf("recorder = %+v", rec)
	}
}

func TestNoRetryByDefault(t *testing.T) {
	calls := 0
	integ := &countingIntegrator{step: 1, limit: 0.1, calls: &calls, plain: true}

	_, err := New(&drain{}, integ, WithLogger(quietLogger())).
		Run(context.Background(), Spec{X0: dynamo.State{1}, Horizon: 1, Samples: 3})
	var simErr *dynamo.SimulationError
	if !errors.As(err, &simErr) {
		t.Fatalf("expected *SimulationError wrapping, got %T: %v", err, err)
	}
	if calls != 1 {
		t.Errorf("expected a single attempt, got %d", calls)
	}
}

func TestCanceledRunIsNotRetried(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := New(&drain{}, integrators.NewRK45(), WithRetries(3), WithLogger(quietLogger())).
		Run(ctx, Spec{X0: dynamo.State{1}, Horizon: 1, Samples: 3})
	if !errors.Is(err, dynamo.ErrContextCanceled) {
		t.Fatalf("expected ErrContextCanceled, got %v", err)
	}
}

func TestDriverMetrics(t *testing.T) {
	d := New(&drain{}, integrators.NewRK4(), WithLogger(quietLogger()))
	metric := &testMetric{}
	d.AddMetric(metric)

	result, err := d.Run(context.Background(), Spec{X0: dynamo.State{1}, Horizon: 1, Samples: 11})
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}

	if _, ok := result.Metrics["test"]; !ok {
		t.Error("metric not found in result")
	}
	if metric.count != 11 {
		t.Errorf("expected 11 observations, got %d", metric.count)
	}
	if math.Abs(result.Metrics["test"]-0.5) > 1e-9 {
		t.Errorf("mean level = %v, want 0.5", result.Metrics["test"])
	}
}

func TestRecorderOnSuccess(t *testing.T) {
	rec := &testRecorder{}
	_, err := New(&drain{}, integrators.NewEuler(), WithRecorder(rec), WithLogger(quietLogger())).
		Run(context.Background(), Spec{X0: dynamo.State{1}, Horizon: 1, Samples: 3})
	if err != nil {
		t.Fatal(err)
	}
	if rec.calls != 1 || rec.model != "drain" || rec.integrator != "euler" || rec.err != nil {
		t.Errorf("recorder = %+v", rec)
	}
	if rec.stats.Accepted == 0 {
		t.Error("recorder did not receive integrator stats")
	}
}

func TestGrid(t *testing.T) {
	g := NewWithT(t)

	times, err := Grid(10, 5)
	g.Expect(err).NotTo(HaveOccurred())
	g.Expect(times).To(Equal([]float64{0, 2.5, 5, 7.5, 10}))

	times, err = Grid(200, 300)
	g.Expect(err).NotTo(HaveOccurred())
	g.Expect(times[0]).To(Equal(0.0))
	g.Expect(times[299]).To(Equal(200.0))
	g.Expect(ValidateGrid(times)).To(Succeed())
}

func TestBatchRunsEveryDriver(t *testing.T) {
	g := NewWithT(t)

	times, _ := Grid(1, 5)
	batch := NewBatch(
		New(&drain{}, integrators.NewEuler(), WithLogger(quietLogger())),
		New(&drain{}, integrators.NewRK4(), WithLogger(quietLogger())),
		New(&drain{}, integrators.NewRK45(), WithLogger(quietLogger())),
	)
	results, err := batch.Run(context.Background(), dynamo.State{1}, times)
	g.Expect(err).NotTo(HaveOccurred())
	g.Expect(results).To(HaveLen(3))
	for i, name := range []string{"euler", "rk4", "rk45"} {
		g.Expect(results[i].Integrator).To(Equal(name))
		g.Expect(results[i].Final()[0]).To(BeNumerically("~", 0, 1e-9))
	}
}
