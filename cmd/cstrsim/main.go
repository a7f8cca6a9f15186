package main

import (
	"fmt"
	"os"
	"strconv"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/prometheus/client_golang/prometheus"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/san-kum/cstrsim/internal/config"
	"github.com/san-kum/cstrsim/internal/logging"
	"github.com/san-kum/cstrsim/internal/observability"
	"github.com/san-kum/cstrsim/internal/sim"
	"github.com/san-kum/cstrsim/internal/storage"
	"github.com/san-kum/cstrsim/internal/viz"
)

// app holds the persistent flags and the per-invocation collector.
type app struct {
	dataDir     string
	logLevel    string
	logFormat   string
	metricsFile string

	collector *observability.RunCollector
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	a := &app{}

	rootCmd := &cobra.Command{
		Use:           "cstrsim",
		Short:         "stirred-tank reactor simulation lab",
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := logging.Setup(os.Stderr, a.logLevel, a.logFormat); err != nil {
				return err
			}
			collector, err := observability.NewRunCollector(prometheus.NewRegistry())
			if err != nil {
				return err
			}
			a.collector = collector
			return nil
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if a.metricsFile == "" || a.collector == nil {
				return nil
			}
			if err := a.collector.WriteTextfile(a.metricsFile); err != nil {
				return fmt.Errorf("write metrics: %w", err)
			}
			log.WithField("path", a.metricsFile).Debug("metrics written")
			return nil
		},
		// Default to the interactive preset menu when no command is given.
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.interactive()
		},
	}

	rootCmd.PersistentFlags().StringVar(&a.dataDir, "data", ".cstrsim", "data directory")
	rootCmd.PersistentFlags().StringVar(&a.logLevel, "log-level", "warn", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&a.logFormat, "log-format", "text", "log format (text, json)")
	rootCmd.PersistentFlags().StringVar(&a.metricsFile, "metrics-file", "", "write prometheus metrics to this file on exit")

	rootCmd.AddCommand(
		a.runCmd(),
		a.tankCmd(),
		a.compareCmd(),
		a.sweepCmd(),
		a.tuneCmd(),
		a.scriptCmd(),
		a.monteCarloCmd(),
		balanceCmd(),
		presetsCmd(),
		a.listCmd(),
		a.plotCmd(),
		a.exportCSVCmd(),
		a.exportJSONCmd(),
		a.exportPNGCmd(),
		a.analyzeCmd(),
		a.phaseCmd(),
		a.replayCmd(),
	)
	return rootCmd
}

func (a *app) store() (*storage.Store, error) {
	st := storage.New(a.dataDir)
	if err := st.Init(); err != nil {
		return nil, err
	}
	return st, nil
}

// limitsFor returns the actuator ranges the replay gauges are drawn against.
func limitsFor(cfg *config.Config) map[string]viz.Range {
	if cfg.Model == "tank" {
		return nil
	}
	return map[string]viz.Range{
		"inflow":       {Lo: 0, Hi: cfg.Control.MaxInflow},
		"heater_power": {Lo: cfg.Control.MinPower, Hi: cfg.Control.MaxPower},
	}
}

// limitsParams records the actuator ranges with a stored run.
func limitsParams(cfg *config.Config, params map[string]string) {
	if cfg.Model == "tank" {
		return
	}
	params["max_inflow"] = strconv.FormatFloat(cfg.Control.MaxInflow, 'g', -1, 64)
	params["min_power"] = strconv.FormatFloat(cfg.Control.MinPower, 'g', -1, 64)
	params["max_power"] = strconv.FormatFloat(cfg.Control.MaxPower, 'g', -1, 64)
}

// storedLimits reads the ranges back, falling back to the defaults.
func storedLimits(meta *storage.RunMetadata) map[string]viz.Range {
	cfg := config.DefaultConfig()
	cfg.Model = meta.Model
	for key, dst := range map[string]*float64{
		"max_inflow": &cfg.Control.MaxInflow,
		"min_power":  &cfg.Control.MinPower,
		"max_power":  &cfg.Control.MaxPower,
	} {
		if v, err := strconv.ParseFloat(meta.Params[key], 64); err == nil {
			*dst = v
		}
	}
	return limitsFor(cfg)
}

func (a *app) interactive() error {
	var items []viz.MenuItem
	for _, model := range config.Models() {
		for _, p := range config.ListPresets(model) {
			items = append(items, viz.MenuItem{Model: model, Preset: p})
		}
	}

	run := func(it viz.MenuItem) (*sim.Result, map[string]viz.Range, error) {
		cfg := config.GetPreset(it.Model, it.Preset)
		res, err := a.execute(cfg)
		if err != nil {
			return nil, nil, err
		}
		return res, limitsFor(cfg), nil
	}

	_, err := tea.NewProgram(viz.NewMenu(items, run)).Run()
	return err
}
