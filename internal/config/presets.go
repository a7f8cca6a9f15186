package config

import "sort"

// Presets are keyed by model, then preset name. Each preset is a complete
// Config.
var Presets = map[string]map[string]*Config{
	"reactor": {
		"setpoint_tracking": DefaultConfig(),
		"reference_run":     referenceRun(DefaultConfig()),
		"inlet_kinetics":    withInletKinetics(referenceRun(DefaultConfig())),
		"steady":            steadyReactor(),
		"empty_start":       emptyStart(),
	},
	"open_loop": {
		"derivative_check": openLoop("0.1", "0"),
		"heated":           openLoop("0.1", "0; 10:50000"),
	},
	"tank": {
		"constant_inflow": tank("0.1", 0.5, 200),
		"step_inflow":     tank("0.1; 50:0.05", 0.5, 200),
		"steady_state":    tank("0.1", 0.5, 4000),
	},
}

// referenceRun starts the tracking scenario from a half-full tank of cold
// reactant-free liquid over 150 min.
func referenceRun(cfg *Config) *Config {
	cfg.InitState = InitStateConfig{Level: 0.5, Temp: 25, Conc: 0}
	cfg.Duration = 150
	cfg.Samples = 500
	return cfg
}

func withInletKinetics(cfg *Config) *Config {
	cfg.Reactor.Kinetics = "inlet"
	return cfg
}

func steadyReactor() *Config {
	cfg := DefaultConfig()
	cfg.Profiles = ProfileConfig{
		LevelSetpoint: "1",
		TempSetpoint:  "60",
		BaseInflow:    "0.1",
		InletTemp:     "25",
		InletConc:     "1",
	}
	cfg.InitState = InitStateConfig{Level: 1.0, Temp: 60.0, Conc: 0.5}
	return cfg
}

func emptyStart() *Config {
	cfg := DefaultConfig()
	cfg.InitState = InitStateConfig{Level: 0, Temp: 25, Conc: 0}
	return cfg
}

func openLoop(inflow, heater string) *Config {
	cfg := DefaultConfig()
	cfg.Model = "open_loop"
	cfg.Duration = 60
	cfg.Samples = 121
	cfg.OpenLoop = OpenLoopConfig{Inflow: inflow, HeaterPower: heater}
	return cfg
}

func tank(inflow string, h0, duration float64) *Config {
	cfg := DefaultConfig()
	cfg.Model = "tank"
	cfg.Duration = duration
	cfg.Samples = 300
	cfg.Tank.Inflow = inflow
	cfg.Tank.Level = h0
	return cfg
}

// GetPreset returns a copy of the named preset, or nil.
func GetPreset(model, preset string) *Config {
	modelPresets, ok := Presets[model]
	if !ok {
		return nil
	}
	cfg, ok := modelPresets[preset]
	if !ok {
		return nil
	}
	cp := *cfg
	return &cp
}

func ListPresets(model string) []string {
	modelPresets, ok := Presets[model]
	if !ok {
		return nil
	}
	names := make([]string, 0, len(modelPresets))
	for name := range modelPresets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
