package main

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"os"
	"strings"
	"text/tabwriter"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/guptarohit/asciigraph"
	"github.com/spf13/cobra"

	"github.com/san-kum/cstrsim/internal/analysis"
	"github.com/san-kum/cstrsim/internal/config"
	"github.com/san-kum/cstrsim/internal/export"
	"github.com/san-kum/cstrsim/internal/sim"
	"github.com/san-kum/cstrsim/internal/storage"
	"github.com/san-kum/cstrsim/internal/viz"
)

// setpointOf pairs controlled variables with their setpoint series.
var setpointOf = map[string]string{
	"h": "level_setpoint",
	"T": "temp_setpoint",
}

func (a *app) loadResult(runID string) (*storage.RunMetadata, *sim.Result, error) {
	st := storage.New(a.dataDir)
	meta, err := st.Load(runID)
	if err != nil {
		return nil, nil, err
	}
	res, err := st.LoadResult(runID)
	if err != nil {
		return nil, nil, err
	}
	if len(res.Times) == 0 {
		return nil, nil, fmt.Errorf("no data in run %s", runID)
	}
	return meta, res, nil
}

func (a *app) listCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "list runs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			runs, err := storage.New(a.dataDir).List()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(runs) == 0 {
				fmt.Fprintln(out, "no runs found")
				return nil
			}

			w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tMODEL\tTIME\tHORIZON\tSAMPLES\tINTEG\tEVALS\tPRESET")
			for _, run := range runs {
				fmt.Fprintf(w, "%s\t%s\t%s\t%.4g\t%d\t%s\t%d\t%s\n",
					run.ID,
					run.Model,
					run.Timestamp.Format("2006-01-02 15:04:05"),
					run.Duration,
					run.Samples,
					run.Integrator,
					run.Stats.Evaluations,
					run.Params["preset"],
				)
			}
			return w.Flush()
		},
	}
}

func (a *app) plotCmd() *cobra.Command {
	var columns []string
	var width, height int
	cmd := &cobra.Command{
		Use:   "plot [run_id]",
		Short: "plot run results in the terminal",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			meta, res, err := a.loadResult(args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "run: %s\nmodel: %s\nsamples: %d\n\n", meta.ID, meta.Model, len(res.Times))

			groups := [][]string{}
			if len(columns) > 0 {
				for _, c := range columns {
					groups = append(groups, []string{c})
				}
			} else {
				for _, l := range res.Labels {
					g := []string{l}
					if sp, ok := setpointOf[l]; ok {
						if _, has := res.Column(sp); has {
							g = append(g, sp)
						}
					}
					groups = append(groups, g)
				}
			}

			for _, g := range groups {
				chart, err := viz.PlotColumns(res, g, width, height)
				if err != nil {
					return err
				}
				fmt.Fprintln(out, chart)
				fmt.Fprintln(out)
			}
			return nil
		},
	}
	cmd.Flags().StringSliceVar(&columns, "columns", nil, "series to plot (default: states with setpoints)")
	cmd.Flags().IntVar(&width, "width", 80, "chart width")
	cmd.Flags().IntVar(&height, "height", 10, "chart height")
	return cmd
}

func (a *app) exportCSVCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "export-csv [run_id]",
		Short: "export run data to CSV",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cols, err := storage.New(a.dataDir).LoadColumns(args[0])
			if err != nil {
				return err
			}
			return storage.WriteCSV(cmd.OutOrStdout(), cols)
		},
	}
}

func (a *app) exportJSONCmd() *cobra.Command {
	var metaOnly bool
	cmd := &cobra.Command{
		Use:   "export-json [run_id]",
		Short: "export run data to JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			meta, res, err := a.loadResult(args[0])
			if err != nil {
				return err
			}
			if metaOnly {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(meta)
			}
			return storage.ExportJSON(cmd.OutOrStdout(), res)
		},
	}
	cmd.Flags().BoolVar(&metaOnly, "meta", false, "export run metadata only")
	return cmd
}

func (a *app) exportPNGCmd() *cobra.Command {
	var outDir string
	cmd := &cobra.Command{
		Use:   "export-png [run_id]",
		Short: "render run charts as PNG files",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, res, err := a.loadResult(args[0])
			if err != nil {
				return err
			}
			if outDir == "" {
				outDir = args[0] + "_plots"
			}
			paths, err := export.SavePanels(res, outDir, export.DefaultPanels(res.Labels, res.AuxLabels))
			if err != nil {
				return err
			}
			for _, p := range paths {
				fmt.Fprintln(cmd.OutOrStdout(), p)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&outDir, "out", "", "output directory (default <run_id>_plots)")
	return cmd
}

func (a *app) analyzeCmd() *cobra.Command {
	var column string
	var band float64
	cmd := &cobra.Command{
		Use:   "analyze [run_id]",
		Short: "step-response and frequency analysis of a series",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			meta, res, err := a.loadResult(args[0])
			if err != nil {
				return err
			}
			if column == "" {
				column = res.Labels[0]
			}
			values, ok := res.Column(column)
			if !ok {
				return fmt.Errorf("no series %q in run %s", column, meta.ID)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "analysis: %s (%s)\n\n", meta.ID, column)

			if sp, ok := setpointOf[column]; ok {
				if setpoint, has := res.Column(sp); has {
					printStepResponses(out, res.Times, values, setpoint, band)
				}
			}

			if len(res.Times) < 4 {
				return nil
			}
			ps := analysis.PowerSpectrum(values)
			fmt.Fprintln(out, asciigraph.Plot(ps[1:],
				asciigraph.Height(10),
				asciigraph.Width(70),
				asciigraph.Caption("power spectrum ("+column+")"),
			))
			dt := res.Times[1] - res.Times[0]
			if period, ok := analysis.DominantPeriod(values, dt); ok {
				fmt.Fprintf(out, "\ndominant period: %.4g\n", period)
			} else {
				fmt.Fprintln(out, "\nno oscillation")
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&column, "column", "", "series to analyze (default: first state)")
	cmd.Flags().Float64Var(&band, "band", 0.02, "settling band as a fraction of the step")
	return cmd
}

// printStepResponses reports one row per setpoint change, each analyzed up
// to the next change.
func printStepResponses(out io.Writer, times, values, setpoint []float64, band float64) {
	var steps []int
	for i := 1; i < len(setpoint); i++ {
		if setpoint[i] != setpoint[i-1] {
			steps = append(steps, i)
		}
	}
	if len(steps) == 0 {
		fmt.Fprintln(out, "no setpoint changes")
		return
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "STEP AT\tFROM\tTO\tOVERSHOOT\tSETTLING\tOFFSET")
	for k, i := range steps {
		end := len(times)
		if k+1 < len(steps) {
			end = steps[k+1]
		}
		m := analysis.StepResponse(times[:end], values[:end], times[i], setpoint[i-1], setpoint[i], band)
		settling := "-"
		if !math.IsNaN(m.SettlingTime) {
			settling = fmt.Sprintf("%.4g", m.SettlingTime)
		}
		fmt.Fprintf(w, "%.4g\t%.4g\t%.4g\t%.1f%%\t%s\t%.4g\n",
			times[i], setpoint[i-1], setpoint[i], 100*m.Overshoot, settling, m.Offset)
	}
	w.Flush()
	fmt.Fprintln(out)
}

func (a *app) phaseCmd() *cobra.Command {
	var xName, yName string
	cmd := &cobra.Command{
		Use:   "phase [run_id]",
		Short: "phase plot of two series",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			meta, res, err := a.loadResult(args[0])
			if err != nil {
				return err
			}
			xs, ok := res.Column(xName)
			if !ok {
				return fmt.Errorf("no series %q in run %s", xName, meta.ID)
			}
			ys, ok := res.Column(yName)
			if !ok {
				return fmt.Errorf("no series %q in run %s", yName, meta.ID)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "phase plot: %s\n\n", meta.ID)
			fmt.Fprintln(out, analysis.PhasePortraitToASCII(analysis.NewPhasePortrait(xName, xs, yName, ys), 70, 20))
			return nil
		},
	}
	cmd.Flags().StringVar(&xName, "x", "T", "series on the x axis")
	cmd.Flags().StringVar(&yName, "y", "CA", "series on the y axis")
	return cmd
}

func (a *app) replayCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "replay [run_id]",
		Short: "replay a stored run in the terminal",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			meta, res, err := a.loadResult(args[0])
			if err != nil {
				return err
			}
			_, err = tea.NewProgram(viz.NewReplay(res, storedLimits(meta)), tea.WithOutput(os.Stdout)).Run()
			return err
		},
	}
}

func presetsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "presets [model]",
		Short: "list available presets",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			models := config.Models()
			if len(args) > 0 {
				models = args
			}
			for _, m := range models {
				presets := config.ListPresets(m)
				if len(presets) == 0 {
					fmt.Fprintf(out, "no presets for model: %s\n", m)
					continue
				}
				fmt.Fprintf(out, "presets for %s:\n  %s\n", m, strings.Join(presets, "\n  "))
			}
			return nil
		},
	}
}
