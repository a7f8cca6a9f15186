package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/san-kum/cstrsim/internal/dynamo"
	"github.com/san-kum/cstrsim/internal/physics"
	"github.com/san-kum/cstrsim/internal/profile"
)

const (
	DefaultModel      = "reactor"
	DefaultIntegrator = "rk45"
	DefaultDuration   = 120.0
	DefaultSamples    = 241
	DefaultLevel      = 1.0
	DefaultTemp       = 50.0
	DefaultConc       = 0.5
)

type Config struct {
	Model      string          `yaml:"model"`
	Integrator string          `yaml:"integrator"`
	Duration   float64         `yaml:"duration"`
	Samples    int             `yaml:"samples"`
	Retries    int             `yaml:"retries"`
	Solver     SolverConfig    `yaml:"solver"`
	InitState  InitStateConfig `yaml:"init_state"`
	Reactor    ReactorConfig   `yaml:"reactor"`
	Control    ControlConfig   `yaml:"control"`
	Profiles   ProfileConfig   `yaml:"profiles"`
	OpenLoop   OpenLoopConfig  `yaml:"open_loop"`
	Tank       TankConfig      `yaml:"tank"`
}

// SolverConfig tunes the integrators. Zero values keep the integrator
// defaults.
type SolverConfig struct {
	Rtol    float64 `yaml:"rtol,omitempty" ini:"rtol"`
	Atol    float64 `yaml:"atol,omitempty" ini:"atol"`
	MaxStep float64 `yaml:"max_step,omitempty" ini:"max_step"`
}

type InitStateConfig struct {
	Level float64 `yaml:"h" ini:"h"`
	Temp  float64 `yaml:"T" ini:"T"`
	Conc  float64 `yaml:"CA" ini:"CA"`
}

type ReactorConfig struct {
	Area             float64 `yaml:"area" ini:"area"`
	OrificeArea      float64 `yaml:"orifice_area" ini:"orifice_area"`
	DischargeCoeff   float64 `yaml:"discharge_coeff" ini:"discharge_coeff"`
	Gravity          float64 `yaml:"gravity" ini:"gravity"`
	Density          float64 `yaml:"density" ini:"density"`
	HeatCapacity     float64 `yaml:"heat_capacity" ini:"heat_capacity"`
	PreExp           float64 `yaml:"pre_exp" ini:"pre_exp"`
	EaOverR          float64 `yaml:"ea_over_r" ini:"ea_over_r"`
	ReactionEnthalpy float64 `yaml:"reaction_enthalpy" ini:"reaction_enthalpy"`
	VolumeFloor      float64 `yaml:"volume_floor" ini:"volume_floor"`
	Kinetics         string  `yaml:"kinetics" ini:"kinetics"`
}

type ControlConfig struct {
	LevelGain float64 `yaml:"level_gain" ini:"level_gain"`
	TempGain  float64 `yaml:"temp_gain" ini:"temp_gain"`
	MaxInflow float64 `yaml:"max_inflow" ini:"max_inflow"`
	MinPower  float64 `yaml:"min_power" ini:"min_power"`
	MaxPower  float64 `yaml:"max_power" ini:"max_power"`
}

// ProfileConfig holds step profiles in the compact "initial; at:value, ..."
// form.
type ProfileConfig struct {
	LevelSetpoint string `yaml:"level_setpoint" ini:"level_setpoint"`
	TempSetpoint  string `yaml:"temp_setpoint" ini:"temp_setpoint"`
	BaseInflow    string `yaml:"base_inflow" ini:"base_inflow"`
	InletTemp     string `yaml:"inlet_temp" ini:"inlet_temp"`
	InletConc     string `yaml:"inlet_conc" ini:"inlet_conc"`
}

type OpenLoopConfig struct {
	Inflow      string `yaml:"inflow" ini:"inflow"`
	HeaterPower string `yaml:"heater_power" ini:"heater_power"`
}

type TankConfig struct {
	Area           float64 `yaml:"area" ini:"area"`
	OrificeArea    float64 `yaml:"orifice_area" ini:"orifice_area"`
	DischargeCoeff float64 `yaml:"discharge_coeff" ini:"discharge_coeff"`
	Gravity        float64 `yaml:"gravity" ini:"gravity"`
	Inflow         string  `yaml:"inflow" ini:"inflow"`
	Level          float64 `yaml:"h0" ini:"h0"`
}

// DefaultConfig is the setpoint-tracking reactor scenario.
func DefaultConfig() *Config {
	p := physics.DefaultReactorParams()
	tank := physics.NewTank(profile.Constant(0.1))
	scenario := profile.Scenario()
	return &Config{
		Model:      DefaultModel,
		Integrator: DefaultIntegrator,
		Duration:   DefaultDuration,
		Samples:    DefaultSamples,
		InitState: InitStateConfig{
			Level: DefaultLevel,
			Temp:  DefaultTemp,
			Conc:  DefaultConc,
		},
		Reactor: ReactorConfig{
			Area:             p.Area,
			OrificeArea:      p.OrificeArea,
			DischargeCoeff:   p.DischargeCoeff,
			Gravity:          p.Gravity,
			Density:          p.Density,
			HeatCapacity:     p.HeatCapacity,
			PreExp:           p.PreExp,
			EaOverR:          p.EaOverR,
			ReactionEnthalpy: p.ReactionEnthalpy,
			VolumeFloor:      p.VolumeFloor,
			Kinetics:         p.Kinetics.String(),
		},
		Control: ControlConfig{
			LevelGain: p.LevelGain,
			TempGain:  p.TempGain,
			MaxInflow: p.MaxInflow,
			MinPower:  p.MinPower,
			MaxPower:  p.MaxPower,
		},
		Profiles: ProfileConfig{
			LevelSetpoint: scenario.LevelSetpoint.Spec().String(),
			TempSetpoint:  scenario.TempSetpoint.Spec().String(),
			BaseInflow:    scenario.BaseInflow.Spec().String(),
			InletTemp:     scenario.InletTemp.Spec().String(),
			InletConc:     scenario.InletConc.Spec().String(),
		},
		OpenLoop: OpenLoopConfig{
			Inflow:      "0.1",
			HeaterPower: "0",
		},
		Tank: TankConfig{
			Area:           tank.Area,
			OrificeArea:    tank.OrificeArea,
			DischargeCoeff: tank.DischargeCoeff,
			Gravity:        tank.Gravity,
			Inflow:         "0.1",
			Level:          0.5,
		},
	}
}

// Load reads a YAML or INI (by extension) file over DefaultConfig.
func Load(path string) (*Config, error) {
	if isINI(path) {
		return LoadINI(path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return cfg, nil
}

func Save(path string, cfg *Config) error {
	if isINI(path) {
		return SaveINI(path, cfg)
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

func isINI(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".ini", ".cfg", ".conf":
		return true
	}
	return false
}

func (c *Config) GetInitState() dynamo.State {
	switch c.Model {
	case "tank":
		return dynamo.State{c.Tank.Level}
	default:
		return dynamo.State{c.InitState.Level, c.InitState.Temp, c.InitState.Conc}
	}
}

// SetInitState stores x in the section GetInitState reads from.
func (c *Config) SetInitState(x dynamo.State) {
	switch c.Model {
	case "tank":
		c.Tank.Level = x[0]
	default:
		c.InitState = InitStateConfig{Level: x[0], Temp: x[1], Conc: x[2]}
	}
}

func parseProfile(name, text string) (profile.Step, error) {
	spec, err := profile.Parse(text)
	if err != nil {
		return profile.Step{}, fmt.Errorf("%s: %w", name, err)
	}
	step, err := spec.Build()
	if err != nil {
		return profile.Step{}, fmt.Errorf("%s: %w", name, err)
	}
	return step, nil
}

// ProfileSet parses the five reactor profiles.
func (c *Config) ProfileSet() (profile.Set, error) {
	var set profile.Set
	fields := []struct {
		name string
		text string
		dst  *profile.Step
	}{
		{"level_setpoint", c.Profiles.LevelSetpoint, &set.LevelSetpoint},
		{"temp_setpoint", c.Profiles.TempSetpoint, &set.TempSetpoint},
		{"base_inflow", c.Profiles.BaseInflow, &set.BaseInflow},
		{"inlet_temp", c.Profiles.InletTemp, &set.InletTemp},
		{"inlet_conc", c.Profiles.InletConc, &set.InletConc},
	}
	for _, f := range fields {
		step, err := parseProfile(f.name, f.text)
		if err != nil {
			return profile.Set{}, err
		}
		*f.dst = step
	}
	return set, nil
}

// ReactorParams converts the reactor, control and profile sections.
func (c *Config) ReactorParams() (physics.ReactorParams, error) {
	kinetics, err := physics.ParseKinetics(c.Reactor.Kinetics)
	if err != nil {
		return physics.ReactorParams{}, err
	}
	set, err := c.ProfileSet()
	if err != nil {
		return physics.ReactorParams{}, err
	}
	p := physics.ReactorParams{
		Area:             c.Reactor.Area,
		OrificeArea:      c.Reactor.OrificeArea,
		DischargeCoeff:   c.Reactor.DischargeCoeff,
		Gravity:          c.Reactor.Gravity,
		Density:          c.Reactor.Density,
		HeatCapacity:     c.Reactor.HeatCapacity,
		PreExp:           c.Reactor.PreExp,
		EaOverR:          c.Reactor.EaOverR,
		ReactionEnthalpy: c.Reactor.ReactionEnthalpy,
		VolumeFloor:      c.Reactor.VolumeFloor,
		Kinetics:         kinetics,
		MaxInflow:        c.Control.MaxInflow,
		MinPower:         c.Control.MinPower,
		MaxPower:         c.Control.MaxPower,
		LevelGain:        c.Control.LevelGain,
		TempGain:         c.Control.TempGain,
	}
	return p.WithProfiles(set), nil
}

// System builds the model named by c.Model.
func (c *Config) System() (dynamo.System, error) {
	switch c.Model {
	case "reactor":
		p, err := c.ReactorParams()
		if err != nil {
			return nil, err
		}
		return physics.NewReactor(p), nil
	case "open_loop":
		p, err := c.ReactorParams()
		if err != nil {
			return nil, err
		}
		inflow, err := parseProfile("open_loop.inflow", c.OpenLoop.Inflow)
		if err != nil {
			return nil, err
		}
		heater, err := parseProfile("open_loop.heater_power", c.OpenLoop.HeaterPower)
		if err != nil {
			return nil, err
		}
		return physics.NewOpenLoopReactor(p, inflow, heater), nil
	case "tank":
		inflow, err := parseProfile("tank.inflow", c.Tank.Inflow)
		if err != nil {
			return nil, err
		}
		return &physics.Tank{
			Area:           c.Tank.Area,
			OrificeArea:    c.Tank.OrificeArea,
			DischargeCoeff: c.Tank.DischargeCoeff,
			Gravity:        c.Tank.Gravity,
			Inflow:         inflow,
		}, nil
	default:
		return nil, fmt.Errorf("unknown model %q (available: %s)", c.Model, strings.Join(Models(), ", "))
	}
}

func Models() []string {
	return []string{"open_loop", "reactor", "tank"}
}
