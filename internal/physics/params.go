package physics

import (
	"fmt"
	"math"
	"strings"

	"github.com/san-kum/cstrsim/internal/control"
	"github.com/san-kum/cstrsim/internal/dynamo"
	"github.com/san-kum/cstrsim/internal/profile"
)

const (
	CelsiusToKelvin    = 273.15
	DefaultVolumeFloor = 1e-6

	// GravityPerMinute is g in m/min^2, for models whose time unit is minutes.
	GravityPerMinute = 9.81 * 60 * 60
	// GravityPerSecond is g in m/s^2.
	GravityPerSecond = 9.81
)

// Kinetics selects which temperature drives the Arrhenius rate constant.
type Kinetics int

const (
	// KineticsReactor evaluates the rate constant at the reactor temperature.
	KineticsReactor Kinetics = iota
	// KineticsInlet evaluates it at the inlet stream temperature.
	KineticsInlet
)

func (k Kinetics) String() string {
	switch k {
	case KineticsReactor:
		return "reactor"
	case KineticsInlet:
		return "inlet"
	default:
		return fmt.Sprintf("kinetics(%d)", int(k))
	}
}

func ParseKinetics(s string) (Kinetics, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "reactor":
		return KineticsReactor, nil
	case "inlet":
		return KineticsInlet, nil
	default:
		return 0, fmt.Errorf("unknown kinetics %q (want reactor or inlet): %w", s, dynamo.ErrParameterBounds)
	}
}

// ReactorParams is the immutable parameter bundle of a reactor run. Units
// follow the course scenario: metres, minutes, °C, J, kg, mol/L.
type ReactorParams struct {
	Area           float64 // cross-sectional area, m^2
	OrificeArea    float64 // outlet orifice area, m^2
	DischargeCoeff float64
	Gravity        float64 // in the model's time unit

	Density      float64 // kg/m^3
	HeatCapacity float64 // J/(kg·°C)

	PreExp           float64 // k0, 1/min
	EaOverR          float64 // K
	ReactionEnthalpy float64 // J/mol, negative when exothermic

	MaxInflow float64 // pump limit, m^3/min
	MinPower  float64 // cooling capacity, J/min (<= 0)
	MaxPower  float64 // heating capacity, J/min
	LevelGain float64
	TempGain  float64

	VolumeFloor float64
	Kinetics    Kinetics

	LevelSetpoint profile.Func
	TempSetpoint  profile.Func
	BaseInflow    profile.Func
	InletTemp     profile.Func
	InletConc     profile.Func
}

// DefaultReactorParams returns the setpoint-tracking reactor scenario.
func DefaultReactorParams() ReactorParams {
	p := ReactorParams{
		Area:             5.0,
		OrificeArea:      0.01,
		DischargeCoeff:   0.6,
		Gravity:          GravityPerMinute,
		Density:          1000.0,
		HeatCapacity:     4.186 * 1000,
		PreExp:           1.0e10,
		EaOverR:          8000.0,
		ReactionEnthalpy: -50000.0,
		MaxInflow:        0.5,
		MinPower:         -50000.0,
		MaxPower:         50000.0,
		LevelGain:        0.5,
		TempGain:         100.0,
		VolumeFloor:      DefaultVolumeFloor,
		Kinetics:         KineticsReactor,
	}
	return p.WithProfiles(profile.Scenario())
}

// WithProfiles returns a copy of p bound to the given profile set.
func (p ReactorParams) WithProfiles(set profile.Set) ReactorParams {
	p.LevelSetpoint = set.LevelSetpoint
	p.TempSetpoint = set.TempSetpoint
	p.BaseInflow = set.BaseInflow
	p.InletTemp = set.InletTemp
	p.InletConc = set.InletConc
	return p
}

func (p ReactorParams) LevelController() control.Proportional {
	return control.NewProportional(p.LevelGain, 0, p.MaxInflow)
}

func (p ReactorParams) TempController() control.Proportional {
	return control.NewProportional(p.TempGain, p.MinPower, p.MaxPower)
}

// validatePhysical checks the parameters shared by every reactor variant.
func (p ReactorParams) validatePhysical() error {
	positive := []struct {
		name string
		v    float64
	}{
		{"area", p.Area},
		{"gravity", p.Gravity},
		{"density", p.Density},
		{"heat_capacity", p.HeatCapacity},
		{"volume_floor", p.VolumeFloor},
	}
	for _, f := range positive {
		if !(f.v > 0) || math.IsInf(f.v, 0) {
			return fmt.Errorf("%s=%v must be positive: %w", f.name, f.v, dynamo.ErrParameterBounds)
		}
	}

	nonNegative := []struct {
		name string
		v    float64
	}{
		{"orifice_area", p.OrificeArea},
		{"discharge_coeff", p.DischargeCoeff},
		{"pre_exp", p.PreExp},
	}
	for _, f := range nonNegative {
		if !(f.v >= 0) || math.IsInf(f.v, 0) {
			return fmt.Errorf("%s=%v must be non-negative: %w", f.name, f.v, dynamo.ErrParameterBounds)
		}
	}

	finite := []struct {
		name string
		v    float64
	}{
		{"ea_over_r", p.EaOverR},
		{"reaction_enthalpy", p.ReactionEnthalpy},
	}
	for _, f := range finite {
		if math.IsNaN(f.v) || math.IsInf(f.v, 0) {
			return fmt.Errorf("%s=%v must be finite: %w", f.name, f.v, dynamo.ErrParameterBounds)
		}
	}

	if p.Kinetics != KineticsReactor && p.Kinetics != KineticsInlet {
		return fmt.Errorf("%v: %w", p.Kinetics, dynamo.ErrParameterBounds)
	}
	if p.InletTemp == nil || p.InletConc == nil {
		return fmt.Errorf("inlet profiles must be set: %w", dynamo.ErrParameterBounds)
	}
	return nil
}

func (p ReactorParams) Validate() error {
	if err := p.validatePhysical(); err != nil {
		return err
	}
	if !(p.MaxInflow >= 0) {
		return fmt.Errorf("max_inflow=%v must be non-negative: %w", p.MaxInflow, dynamo.ErrParameterBounds)
	}
	if err := p.LevelController().Validate(); err != nil {
		return fmt.Errorf("level %w", err)
	}
	if err := p.TempController().Validate(); err != nil {
		return fmt.Errorf("temperature %w", err)
	}
	if p.LevelSetpoint == nil || p.TempSetpoint == nil || p.BaseInflow == nil {
		return fmt.Errorf("setpoint and base inflow profiles must be set: %w", dynamo.ErrParameterBounds)
	}
	return nil
}

// OutletFlow is the Torricelli orifice discharge. The square root is only
// taken for a positive head.
func OutletFlow(dischargeCoeff, orificeArea, gravity, h float64) float64 {
	if h <= 0 {
		return 0
	}
	return dischargeCoeff * orificeArea * math.Sqrt(2*gravity*h)
}

// RateConstant is the Arrhenius rate constant at tempC (°C).
func RateConstant(preExp, eaOverR, tempC float64) float64 {
	return preExp * math.Exp(-eaOverR/(tempC+CelsiusToKelvin))
}
