package main

import (
	"context"
	"fmt"
	"io"
	"math"
	"sort"
	"strings"
	"text/tabwriter"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"gonum.org/v1/gonum/floats"

	"github.com/san-kum/cstrsim/internal/analysis"
	"github.com/san-kum/cstrsim/internal/config"
	"github.com/san-kum/cstrsim/internal/dynamo"
	"github.com/san-kum/cstrsim/internal/experiment"
	"github.com/san-kum/cstrsim/internal/physics"
	"github.com/san-kum/cstrsim/internal/sim"
)

type runFlags struct {
	preset     string
	configFile string
	duration   float64
	samples    int
	integrator string
	retries    int
	kinetics   string
	h0, T0     float64
	CA0        float64
	inflow     string
	save       bool
}

func (f *runFlags) register(cmd *cobra.Command, tank bool) {
	cmd.Flags().StringVar(&f.preset, "preset", "", "use preset configuration")
	cmd.Flags().StringVar(&f.configFile, "config", "", "config file path (yaml or ini)")
	cmd.Flags().Float64Var(&f.duration, "time", config.DefaultDuration, "horizon")
	cmd.Flags().IntVar(&f.samples, "samples", config.DefaultSamples, "output grid points")
	cmd.Flags().StringVar(&f.integrator, "integrator", config.DefaultIntegrator, "integrator (euler, rk4, rk45)")
	cmd.Flags().IntVar(&f.retries, "retries", 0, "retries with a halved step after a solver failure")
	cmd.Flags().Float64Var(&f.h0, "h0", config.DefaultLevel, "initial level")
	cmd.Flags().BoolVar(&f.save, "save", true, "store the run")
	if tank {
		cmd.Flags().StringVar(&f.inflow, "inflow", "0.1", "inflow profile, e.g. \"0.1; 50:0.05\"")
		return
	}
	cmd.Flags().StringVar(&f.kinetics, "kinetics", "reactor", "temperature used in the rate constant (reactor, inlet)")
	cmd.Flags().Float64Var(&f.T0, "T0", config.DefaultTemp, "initial temperature")
	cmd.Flags().Float64Var(&f.CA0, "CA0", config.DefaultConc, "initial concentration")
}

// buildConfig layers defaults, preset, config file and changed flags, in that
// order, and records what was applied.
func (f *runFlags) buildConfig(cmd *cobra.Command, model string) (*config.Config, map[string]string, error) {
	params := map[string]string{}

	presetModel := model
	if presetModel == "" {
		presetModel = config.DefaultModel
	}
	cfg := config.DefaultConfig()
	if f.preset != "" {
		cfg = config.GetPreset(presetModel, f.preset)
		if cfg == nil {
			return nil, nil, fmt.Errorf("unknown preset: %s (available: %v)", f.preset, config.ListPresets(presetModel))
		}
		params["preset"] = f.preset
	}
	if f.configFile != "" {
		loaded, err := config.Load(f.configFile)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to load config: %w", err)
		}
		cfg = loaded
		params["config"] = f.configFile
	}
	// a config file keeps its own model unless one is named explicitly
	if model != "" {
		cfg.Model = model
	}

	changed := func(name string) bool {
		if cmd.Flags().Changed(name) {
			params[name] = cmd.Flags().Lookup(name).Value.String()
			return true
		}
		return false
	}
	if changed("time") {
		cfg.Duration = f.duration
	}
	if changed("samples") {
		cfg.Samples = f.samples
	}
	if changed("integrator") {
		cfg.Integrator = f.integrator
	}
	if changed("retries") {
		cfg.Retries = f.retries
	}
	if changed("kinetics") {
		cfg.Reactor.Kinetics = f.kinetics
	}
	if changed("h0") {
		cfg.InitState.Level = f.h0
		cfg.Tank.Level = f.h0
	}
	if changed("T0") {
		cfg.InitState.Temp = f.T0
	}
	if changed("CA0") {
		cfg.InitState.Conc = f.CA0
	}
	if changed("inflow") {
		cfg.Tank.Inflow = f.inflow
	}

	// Tank runs without a preset or file default to the tank scenario
	// horizon rather than the reactor one.
	if model == "tank" && f.preset == "" && f.configFile == "" {
		base := config.GetPreset("tank", "constant_inflow")
		if !cmd.Flags().Changed("time") {
			cfg.Duration = base.Duration
		}
		if !cmd.Flags().Changed("samples") {
			cfg.Samples = base.Samples
		}
		if !cmd.Flags().Changed("h0") {
			cfg.Tank.Level = base.Tank.Level
		}
	}
	return cfg, params, nil
}

// execute runs cfg through an experiment, feeding the collector.
func (a *app) execute(cfg *config.Config) (*sim.Result, error) {
	exp := experiment.New(cfg)
	err := exp.Setup(experiment.NewRegistry(),
		sim.WithRecorder(a.collector),
		sim.WithLogger(log.WithFields(log.Fields{"component": "sim", "model": cfg.Model})),
	)
	if err != nil {
		return nil, err
	}
	return exp.Run(context.Background())
}

func (a *app) runAndReport(cmd *cobra.Command, cfg *config.Config, params map[string]string, save bool) error {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "running %s simulation...\n", cfg.Model)
	result, err := a.execute(cfg)
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "completed in %v (%d samples, %d evaluations)\n", result.Elapsed, len(result.Times), result.Stats.Evaluations)
	if save {
		st, err := a.store()
		if err != nil {
			return err
		}
		limitsParams(cfg, params)
		runID, err := st.Save(result, params)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "run id: %s\n", runID)
	}

	printFinal(out, result)
	return nil
}

func printFinal(out io.Writer, result *sim.Result) {
	fmt.Fprintln(out, "\nfinal state:")
	final := result.Final()
	for i, name := range result.Labels {
		fmt.Fprintf(out, "  %s: %.6f\n", name, final[i])
	}

	if len(result.Metrics) == 0 {
		return
	}
	fmt.Fprintln(out, "\nmetrics:")
	names := make([]string, 0, len(result.Metrics))
	for name := range result.Metrics {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(out, "  %s: %.6f\n", name, result.Metrics[name])
	}
}

func (a *app) runCmd() *cobra.Command {
	f := &runFlags{}
	cmd := &cobra.Command{
		Use:       "run [reactor|open_loop]",
		Short:     "run a reactor simulation",
		Args:      cobra.MaximumNArgs(1),
		ValidArgs: []string{"reactor", "open_loop"},
		RunE: func(cmd *cobra.Command, args []string) error {
			model := ""
			if len(args) > 0 {
				model = args[0]
			}
			if model == "" && f.configFile == "" {
				model = config.DefaultModel
			}
			cfg, params, err := f.buildConfig(cmd, model)
			if err != nil {
				return err
			}
			if cfg.Model == "tank" {
				return fmt.Errorf("use the tank command for the tank model")
			}
			return a.runAndReport(cmd, cfg, params, f.save)
		},
	}
	f.register(cmd, false)
	return cmd
}

func (a *app) tankCmd() *cobra.Command {
	f := &runFlags{}
	cmd := &cobra.Command{
		Use:   "tank",
		Short: "run the gravity-drained tank",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, params, err := f.buildConfig(cmd, "tank")
			if err != nil {
				return err
			}
			if err := a.runAndReport(cmd, cfg, params, f.save); err != nil {
				return err
			}
			sys, err := cfg.System()
			if err != nil {
				return err
			}
			tank := sys.(*physics.Tank)
			q := tank.Inflow.Value(cfg.Duration)
			fmt.Fprintf(cmd.OutOrStdout(), "  steady level for final inflow: %.6f\n", tank.SteadyStateLevel(q))
			return nil
		},
	}
	f.register(cmd, true)
	return cmd
}

func (a *app) compareCmd() *cobra.Command {
	f := &runFlags{}
	cmd := &cobra.Command{
		Use:   "compare [model] [integrator1] [integrator2] ...",
		Short: "compare integrators on the same model",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := f.buildConfig(cmd, args[0])
			if err != nil {
				return err
			}
			reg := experiment.NewRegistry()

			drivers := make([]*sim.Driver, 0, len(args)-1)
			for _, name := range args[1:] {
				model, err := cfg.System()
				if err != nil {
					return err
				}
				integ, err := reg.GetIntegrator(name, cfg.Solver)
				if err != nil {
					return err
				}
				d := sim.New(model, integ,
					sim.WithRecorder(a.collector),
					sim.WithRetries(cfg.Retries),
					sim.WithLogger(log.WithFields(log.Fields{"component": "sim", "integrator": name})),
				)
				for _, m := range reg.DefaultMetrics(model) {
					d.AddMetric(m)
				}
				drivers = append(drivers, d)
			}

			times, err := sim.Grid(cfg.Duration, cfg.Samples)
			if err != nil {
				return err
			}
			results, err := sim.NewBatch(drivers...).Run(context.Background(), cfg.GetInitState(), times)
			if err != nil {
				return err
			}

			ref := results[0]
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintf(w, "INTEGRATOR\tEVALS\tACCEPTED\tREJECTED\tTIME\tMAX DEV vs %s\t%s\n",
				ref.Integrator, strings.ToUpper(strings.Join(ref.Labels, " ")))
			for _, r := range results {
				final := make([]string, len(r.Labels))
				for i, v := range r.Final() {
					final[i] = fmt.Sprintf("%.5g", v)
				}
				fmt.Fprintf(w, "%s\t%d\t%d\t%d\t%v\t%.3g\t%s\n",
					r.Integrator, r.Stats.Evaluations, r.Stats.Accepted, r.Stats.Rejected,
					r.Elapsed, maxDeviation(ref, r), strings.Join(final, " "))
			}
			return w.Flush()
		},
	}
	f.register(cmd, false)
	return cmd
}

// maxDeviation is the largest absolute state difference over the grid.
func maxDeviation(a, b *sim.Result) float64 {
	dev := 0.0
	for i := range a.States {
		for j := range a.States[i] {
			dev = math.Max(dev, math.Abs(a.States[i][j]-b.States[i][j]))
		}
	}
	return dev
}

var sweepParams = map[string]func(p *physics.ReactorParams, v float64){
	"level_gain": func(p *physics.ReactorParams, v float64) { p.LevelGain = v },
	"temp_gain":  func(p *physics.ReactorParams, v float64) { p.TempGain = v },
	"max_inflow": func(p *physics.ReactorParams, v float64) { p.MaxInflow = v },
	"max_power":  func(p *physics.ReactorParams, v float64) { p.MaxPower = v },
	"pre_exp":    func(p *physics.ReactorParams, v float64) { p.PreExp = v },
}

func (a *app) sweepCmd() *cobra.Command {
	f := &runFlags{}
	var (
		param    string
		from, to float64
		steps    int
		column   string
		tail     int
	)
	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "sweep a reactor parameter and chart the settled value",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			set, ok := sweepParams[param]
			if !ok {
				names := make([]string, 0, len(sweepParams))
				for n := range sweepParams {
					names = append(names, n)
				}
				sort.Strings(names)
				return fmt.Errorf("unknown sweep parameter %q (available: %s)", param, strings.Join(names, ", "))
			}
			if steps < 2 {
				return fmt.Errorf("need at least 2 steps, got %d", steps)
			}

			cfg, _, err := f.buildConfig(cmd, "reactor")
			if err != nil {
				return err
			}
			base, err := cfg.ReactorParams()
			if err != nil {
				return err
			}
			idx := -1
			for i, l := range physics.NewReactor(base).Labels() {
				if l == column {
					idx = i
				}
			}
			if idx < 0 {
				return fmt.Errorf("unknown state %q", column)
			}
			reg := experiment.NewRegistry()
			if _, err := reg.GetIntegrator(cfg.Integrator, cfg.Solver); err != nil {
				return err
			}

			values := floats.Span(make([]float64, steps), from, to)
			build := func(v float64) dynamo.System {
				p := base
				set(&p, v)
				return physics.NewReactor(p)
			}
			newIntegrator := func() dynamo.Integrator {
				integ, _ := reg.GetIntegrator(cfg.Integrator, cfg.Solver)
				return integ
			}
			spec := sim.Spec{X0: cfg.GetInitState(), Horizon: cfg.Duration, Samples: cfg.Samples}

			points, err := analysis.Sweep(context.Background(), build, newIntegrator, values, spec, idx, tail)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s vs final %s\n\n", param, column)
			fmt.Fprintln(out, analysis.SweepToASCII(points, 70, 20))
			w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintf(w, "%s\tFINAL %s\tSPREAD\n", strings.ToUpper(param), column)
			for _, p := range points {
				fmt.Fprintf(w, "%.6g\t%.6g\t%.3g\n", p.Param, p.Final, p.Spread)
			}
			return w.Flush()
		},
	}
	f.register(cmd, false)
	cmd.Flags().StringVar(&param, "param", "temp_gain", "parameter to sweep")
	cmd.Flags().Float64Var(&from, "from", 50, "first value")
	cmd.Flags().Float64Var(&to, "to", 200, "last value")
	cmd.Flags().IntVar(&steps, "steps", 5, "number of values")
	cmd.Flags().StringVar(&column, "column", "T", "state to record")
	cmd.Flags().IntVar(&tail, "tail", 20, "samples at the end of each run to measure the spread")
	return cmd
}
