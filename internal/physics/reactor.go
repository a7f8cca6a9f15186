package physics

import (
	"math"

	"github.com/san-kum/cstrsim/internal/dynamo"
)

// State indices of the reactor models.
const (
	IdxLevel = iota
	IdxTemp
	IdxConc
)

// Inputs are the exogenous and manipulated variables at one instant.
type Inputs struct {
	LevelSetpoint float64
	TempSetpoint  float64
	BaseInflow    float64
	InletTemp     float64
	InletConc     float64

	Inflow      float64
	HeaterPower float64
	Outflow     float64
}

// Reactor is the closed-loop stirred-tank reactor. State is (h, T, CA).
type Reactor struct {
	P ReactorParams
}

func NewReactor(p ReactorParams) *Reactor {
	return &Reactor{P: p}
}

func (r *Reactor) Name() string  { return "reactor" }
func (r *Reactor) StateDim() int { return 3 }

func (r *Reactor) Labels() []string {
	return []string{"h", "T", "CA"}
}

func (r *Reactor) NonNegative() []int {
	return []int{IdxLevel, IdxConc}
}

func (r *Reactor) Validate() error {
	return r.P.Validate()
}

// Inputs evaluates the profiles and both controllers at time t for state x.
func (r *Reactor) Inputs(x dynamo.State, t float64) Inputs {
	p := &r.P
	in := Inputs{
		LevelSetpoint: p.LevelSetpoint.Value(t),
		TempSetpoint:  p.TempSetpoint.Value(t),
		BaseInflow:    p.BaseInflow.Value(t),
		InletTemp:     p.InletTemp.Value(t),
		InletConc:     p.InletConc.Value(t),
	}
	h, temp := x[IdxLevel], x[IdxTemp]

	in.Inflow = p.LevelController().Command(in.LevelSetpoint, h, in.BaseInflow)
	in.HeaterPower = p.TempController().Command(in.TempSetpoint, temp, 0)
	in.Outflow = OutletFlow(p.DischargeCoeff, p.OrificeArea, p.Gravity, h)
	return in
}

func (r *Reactor) Derive(x dynamo.State, t float64) dynamo.State {
	return balances(&r.P, x, r.Inputs(x, t))
}

func (r *Reactor) AuxLabels() []string {
	return []string{
		"level_setpoint", "temp_setpoint", "inflow", "heater_power",
		"base_inflow", "inlet_temp", "inlet_conc", "outflow",
	}
}

func (r *Reactor) Aux(x dynamo.State, t float64) []float64 {
	in := r.Inputs(x, t)
	return []float64{
		in.LevelSetpoint, in.TempSetpoint, in.Inflow, in.HeaterPower,
		in.BaseInflow, in.InletTemp, in.InletConc, in.Outflow,
	}
}

// balances returns (dh/dt, dT/dt, dCA/dt) for the given inputs.
func balances(p *ReactorParams, x dynamo.State, in Inputs) dynamo.State {
	h, temp, ca := x[IdxLevel], x[IdxTemp], x[IdxConc]

	volume := math.Max(p.Area*h, p.VolumeFloor)

	kineticsTemp := temp
	if p.Kinetics == KineticsInlet {
		kineticsTemp = in.InletTemp
	}
	rate := RateConstant(p.PreExp, p.EaOverR, kineticsTemp) * ca
	heatRxn := -p.ReactionEnthalpy * rate * volume

	dx := make(dynamo.State, 3)
	dx[IdxLevel] = (in.Inflow - in.Outflow) / p.Area

	// empty tank: concentration and temperature are frozen
	if h <= 0 {
		return dx
	}

	dx[IdxConc] = (in.Inflow*in.InletConc - in.Outflow*ca - volume*rate) / volume

	thermal := volume * p.Density * p.HeatCapacity
	dx[IdxTemp] = in.Inflow*(in.InletTemp-temp)/volume + heatRxn/thermal + in.HeaterPower/thermal
	return dx
}
