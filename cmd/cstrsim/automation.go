package main

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"text/tabwriter"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/san-kum/cstrsim/internal/automation"
	"github.com/san-kum/cstrsim/internal/config"
	"github.com/san-kum/cstrsim/internal/experiment"
	"github.com/san-kum/cstrsim/internal/optim"
	"github.com/san-kum/cstrsim/internal/sim"
)

func (a *app) runner() automation.Runner {
	return automation.ExperimentRunner(experiment.NewRegistry(),
		sim.WithRecorder(a.collector),
		sim.WithLogger(log.WithField("component", "sim")),
	)
}

func (a *app) scriptCmd() *cobra.Command {
	var save bool
	cmd := &cobra.Command{
		Use:   "script <scenario.yaml>",
		Short: "run a scripted sequence of simulations",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sc, err := automation.LoadScenario(args[0])
			if err != nil {
				return err
			}
			results, err := automation.RunScenario(context.Background(), sc, a.runner(), log.WithField("component", "script"))

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "scenario %s: %d/%d steps\n", sc.Name, len(results), len(sc.Steps))
			for i, sr := range results {
				final := make([]string, len(sr.Result.Labels))
				for j, v := range sr.Result.Final() {
					final[j] = fmt.Sprintf("%s=%.5g", sr.Result.Labels[j], v)
				}
				fmt.Fprintf(out, "  %d. %s %s\n", i+1, sr.Config.Model, strings.Join(final, " "))

				if !save {
					continue
				}
				st, serr := a.store()
				if serr != nil {
					return serr
				}
				params := map[string]string{"scenario": sc.Name}
				if sr.Step.Preset != "" {
					params["preset"] = sr.Step.Preset
				}
				if sr.Step.SaveAs != "" {
					params["save_as"] = sr.Step.SaveAs
				}
				limitsParams(sr.Config, params)
				runID, serr := st.Save(sr.Result, params)
				if serr != nil {
					return serr
				}
				fmt.Fprintf(out, "     run id: %s\n", runID)
			}
			return err
		},
	}
	cmd.Flags().BoolVar(&save, "save", false, "store every completed step")
	return cmd
}

func (a *app) monteCarloCmd() *cobra.Command {
	var (
		model, preset string
		trials        int
		seed          int64
		pert          config.InitStateConfig
		metric        string
	)
	cmd := &cobra.Command{
		Use:   "montecarlo",
		Short: "rerun a preset from perturbed initial states",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			base := config.GetPreset(model, preset)
			if base == nil {
				return fmt.Errorf("unknown preset: %s (available: %v)", preset, config.ListPresets(model))
			}
			mc := &automation.MonteCarloConfig{Base: base, Perturbation: pert, NumTrials: trials, Seed: seed}
			results, err := automation.RunMonteCarlo(context.Background(), mc, a.runner())
			if err != nil {
				return err
			}

			s := automation.MonteCarloStats(results, metric)
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%d trials of %s/%s: %d ok, %d failed\n", trials, model, preset, s.Succeeded, s.Failed)
			fmt.Fprintf(out, "%s: mean %.6g  std %.6g  max %.6g\n", metric, s.Mean, s.StdDev, s.Max)
			return nil
		},
	}
	cmd.Flags().StringVar(&model, "model", config.DefaultModel, "model")
	cmd.Flags().StringVar(&preset, "preset", "setpoint_tracking", "preset to perturb")
	cmd.Flags().IntVar(&trials, "trials", 20, "number of trials")
	cmd.Flags().Int64Var(&seed, "seed", 1, "random seed (0 uses the clock)")
	cmd.Flags().Float64Var(&pert.Level, "dh", 0.1, "level perturbation amplitude")
	cmd.Flags().Float64Var(&pert.Temp, "dT", 2, "temperature perturbation amplitude")
	cmd.Flags().Float64Var(&pert.Conc, "dCA", 0.05, "concentration perturbation amplitude")
	cmd.Flags().StringVar(&metric, "metric", "iae_temp", "metric to summarize")
	return cmd
}

func (a *app) tuneCmd() *cobra.Command {
	var (
		preset     string
		levelGains []float64
		tempGains  []float64
		metric     string
	)
	cmd := &cobra.Command{
		Use:   "tune",
		Short: "grid search the controller gains against a metric",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			base := config.GetPreset("reactor", preset)
			if base == nil {
				return fmt.Errorf("unknown preset: %s (available: %v)", preset, config.ListPresets("reactor"))
			}
			reg := experiment.NewRegistry()
			build := func(params map[string]float64) (*experiment.Experiment, error) {
				cfg := *base
				cfg.Control.LevelGain = params["level_gain"]
				cfg.Control.TempGain = params["temp_gain"]
				exp := experiment.New(&cfg)
				err := exp.Setup(reg,
					sim.WithRecorder(a.collector),
					sim.WithLogger(log.WithField("component", "tune")),
				)
				return exp, err
			}

			gs := optim.NewGridSearch([]string{"level_gain", "temp_gain"}, [][]float64{levelGains, tempGains})
			best, value, trials, err := gs.Search(context.Background(), build, metric)
			if err != nil {
				return err
			}

			sort.SliceStable(trials, func(i, j int) bool {
				if (trials[i].Err == nil) != (trials[j].Err == nil) {
					return trials[i].Err == nil
				}
				return trials[i].Value < trials[j].Value
			})
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintf(w, "LEVEL GAIN\tTEMP GAIN\t%s\n", strings.ToUpper(metric))
			for _, tr := range trials {
				val := fmt.Sprintf("%.6g", tr.Value)
				if tr.Err != nil {
					val = "error: " + tr.Err.Error()
				}
				fmt.Fprintf(w, "%g\t%g\t%s\n", tr.Params["level_gain"], tr.Params["temp_gain"], val)
			}
			if err := w.Flush(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "\nbest: level_gain=%g temp_gain=%g (%s %.6g)\n",
				best["level_gain"], best["temp_gain"], metric, value)
			return nil
		},
	}
	cmd.Flags().StringVar(&preset, "preset", "setpoint_tracking", "reactor preset to tune")
	cmd.Flags().Float64SliceVar(&levelGains, "level-gains", []float64{0.25, 0.5, 1}, "level gains to try")
	cmd.Flags().Float64SliceVar(&tempGains, "temp-gains", []float64{50, 100, 200}, "temperature gains to try")
	cmd.Flags().StringVar(&metric, "metric", "iae_temp", "metric to minimize")
	return cmd
}
