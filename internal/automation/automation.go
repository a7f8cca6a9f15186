// Package automation runs scripted sequences of simulations and Monte Carlo
// studies over perturbed initial states.
package automation

import (
	"context"
	"fmt"
	"math/rand"
	"os"
	"time"

	"github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/stat"
	"gopkg.in/yaml.v3"

	"github.com/san-kum/cstrsim/internal/config"
	"github.com/san-kum/cstrsim/internal/dynamo"
	"github.com/san-kum/cstrsim/internal/experiment"
	"github.com/san-kum/cstrsim/internal/sim"
)

// Runner executes one configured run.
type Runner func(ctx context.Context, cfg *config.Config) (*sim.Result, error)

// ExperimentRunner runs cfg through an experiment built from reg.
func ExperimentRunner(reg *experiment.Registry, opts ...sim.Option) Runner {
	return func(ctx context.Context, cfg *config.Config) (*sim.Result, error) {
		exp := experiment.New(cfg)
		if err := exp.Setup(reg, opts...); err != nil {
			return nil, err
		}
		return exp.Run(ctx)
	}
}

// Scenario defines a scripted simulation sequence
type Scenario struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
	Steps       []Step `yaml:"steps"`
}

// Step is a single run of a scenario. It starts from Preset (or the default
// configuration), then Config, then the non-zero overrides.
type Step struct {
	Model      string                  `yaml:"model"`
	Preset     string                  `yaml:"preset"`
	Config     string                  `yaml:"config"`
	Integrator string                  `yaml:"integrator"`
	Duration   float64                 `yaml:"duration"`
	Samples    int                     `yaml:"samples"`
	InitState  *config.InitStateConfig `yaml:"init_state"`
	Profiles   *config.ProfileConfig   `yaml:"profiles"`
	SaveAs     string                  `yaml:"save_as"`
}

// LoadScenario loads a scenario from a YAML file
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var scenario Scenario
	if err := yaml.Unmarshal(data, &scenario); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if len(scenario.Steps) == 0 {
		return nil, fmt.Errorf("scenario %q has no steps", scenario.Name)
	}

	return &scenario, nil
}

// Build resolves the step into a complete configuration.
func (s Step) Build() (*config.Config, error) {
	presetModel := s.Model
	if presetModel == "" {
		presetModel = config.DefaultModel
	}

	cfg := config.DefaultConfig()
	if s.Preset != "" {
		cfg = config.GetPreset(presetModel, s.Preset)
		if cfg == nil {
			return nil, fmt.Errorf("unknown preset %s/%s", presetModel, s.Preset)
		}
	}
	if s.Config != "" {
		loaded, err := config.Load(s.Config)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}
	if s.Model != "" {
		cfg.Model = s.Model
	}

	if s.Integrator != "" {
		cfg.Integrator = s.Integrator
	}
	if s.Duration > 0 {
		cfg.Duration = s.Duration
	}
	if s.Samples > 0 {
		cfg.Samples = s.Samples
	}
	if s.InitState != nil {
		cfg.InitState = *s.InitState
		cfg.Tank.Level = s.InitState.Level
	}
	if s.Profiles != nil {
		cfg.Profiles = *s.Profiles
	}
	return cfg, nil
}

// StepResult pairs a scenario step with its run.
type StepResult struct {
	Step   Step
	Config *config.Config
	Result *sim.Result
}

// RunScenario executes all steps in order and stops at the first failure,
// returning the steps completed so far.
func RunScenario(ctx context.Context, scenario *Scenario, run Runner, log *logrus.Entry) ([]StepResult, error) {
	results := make([]StepResult, 0, len(scenario.Steps))

	for i, step := range scenario.Steps {
		log.WithFields(logrus.Fields{
			"scenario": scenario.Name,
			"step":     i + 1,
			"of":       len(scenario.Steps),
			"model":    step.Model,
			"preset":   step.Preset,
		}).Info("running scenario step")

		cfg, err := step.Build()
		if err != nil {
			return results, fmt.Errorf("step %d: %w", i+1, err)
		}

		result, err := run(ctx, cfg)
		if err != nil {
			return results, fmt.Errorf("step %d run: %w", i+1, err)
		}

		results = append(results, StepResult{Step: step, Config: cfg, Result: result})
	}

	return results, nil
}

// MonteCarloConfig perturbs the initial state of Base uniformly by up to
// Perturbation in each component. Components the model declares
// non-negative are clipped at zero.
type MonteCarloConfig struct {
	Base         *config.Config
	Perturbation config.InitStateConfig
	NumTrials    int
	Seed         int64
}

// MonteCarloResult holds one trial.
type MonteCarloResult struct {
	TrialID    int
	InitState  dynamo.State
	FinalState dynamo.State
	Metrics    map[string]float64
	Err        error
}

// RunMonteCarlo executes the trials sequentially. A failed trial is recorded
// with its error and does not stop the study; a canceled context does.
func RunMonteCarlo(ctx context.Context, mc *MonteCarloConfig, run Runner) ([]MonteCarloResult, error) {
	if mc.NumTrials < 1 {
		return nil, fmt.Errorf("need at least one trial: %w", dynamo.ErrParameterBounds)
	}
	sys, err := mc.Base.System()
	if err != nil {
		return nil, err
	}
	nonNegative := make(map[int]bool)
	if b, ok := sys.(dynamo.Bounded); ok {
		for _, i := range b.NonNegative() {
			nonNegative[i] = true
		}
	}
	amp := []float64{mc.Perturbation.Level, mc.Perturbation.Temp, mc.Perturbation.Conc}[:sys.StateDim()]

	results := make([]MonteCarloResult, 0, mc.NumTrials)

	seed := mc.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	rng := rand.New(rand.NewSource(seed))

	for trial := 0; trial < mc.NumTrials; trial++ {
		if err := ctx.Err(); err != nil {
			return results, fmt.Errorf("%w: %v", dynamo.ErrContextCanceled, err)
		}

		x0 := mc.Base.GetInitState()
		for i := range x0 {
			x0[i] += (rng.Float64() - 0.5) * 2 * amp[i]
			if nonNegative[i] && x0[i] < 0 {
				x0[i] = 0
			}
		}
		cfg := *mc.Base
		cfg.SetInitState(x0)

		r := MonteCarloResult{TrialID: trial, InitState: x0}
		result, err := run(ctx, &cfg)
		if err != nil {
			r.Err = err
		} else {
			r.FinalState = result.Final()
			r.Metrics = result.Metrics
		}
		results = append(results, r)
	}

	return results, nil
}

// MonteCarloSummary aggregates one metric over the successful trials.
type MonteCarloSummary struct {
	Succeeded int
	Failed    int
	Mean      float64
	StdDev    float64
	Max       float64
}

func MonteCarloStats(results []MonteCarloResult, metric string) MonteCarloSummary {
	var s MonteCarloSummary
	values := make([]float64, 0, len(results))
	for _, r := range results {
		if r.Err != nil {
			s.Failed++
			continue
		}
		s.Succeeded++
		if v, ok := r.Metrics[metric]; ok {
			values = append(values, v)
		}
	}
	if len(values) == 0 {
		return s
	}
	s.Mean, s.StdDev = stat.MeanStdDev(values, nil)
	s.Max = values[0]
	for _, v := range values {
		if v > s.Max {
			s.Max = v
		}
	}
	return s
}
