package physics

import (
	"fmt"

	"github.com/san-kum/cstrsim/internal/dynamo"
	"github.com/san-kum/cstrsim/internal/profile"
)

// OpenLoopReactor applies the reactor balances with inflow and heater power
// taken directly from profiles. Controller fields of P are ignored.
type OpenLoopReactor struct {
	P           ReactorParams
	Inflow      profile.Func
	HeaterPower profile.Func
}

func NewOpenLoopReactor(p ReactorParams, inflow, heater profile.Func) *OpenLoopReactor {
	return &OpenLoopReactor{P: p, Inflow: inflow, HeaterPower: heater}
}

func (r *OpenLoopReactor) Name() string  { return "open_loop" }
func (r *OpenLoopReactor) StateDim() int { return 3 }

func (r *OpenLoopReactor) Labels() []string {
	return []string{"h", "T", "CA"}
}

func (r *OpenLoopReactor) NonNegative() []int {
	return []int{IdxLevel, IdxConc}
}

func (r *OpenLoopReactor) Validate() error {
	if err := r.P.validatePhysical(); err != nil {
		return err
	}
	if r.Inflow == nil || r.HeaterPower == nil {
		return fmt.Errorf("open-loop inflow and heater profiles must be set: %w", dynamo.ErrParameterBounds)
	}
	return nil
}

func (r *OpenLoopReactor) Inputs(x dynamo.State, t float64) Inputs {
	p := &r.P
	return Inputs{
		InletTemp:   p.InletTemp.Value(t),
		InletConc:   p.InletConc.Value(t),
		Inflow:      r.Inflow.Value(t),
		HeaterPower: r.HeaterPower.Value(t),
		Outflow:     OutletFlow(p.DischargeCoeff, p.OrificeArea, p.Gravity, x[IdxLevel]),
	}
}

func (r *OpenLoopReactor) Derive(x dynamo.State, t float64) dynamo.State {
	return balances(&r.P, x, r.Inputs(x, t))
}

func (r *OpenLoopReactor) AuxLabels() []string {
	return []string{"inflow", "heater_power", "inlet_temp", "inlet_conc", "outflow"}
}

func (r *OpenLoopReactor) Aux(x dynamo.State, t float64) []float64 {
	in := r.Inputs(x, t)
	return []float64{in.Inflow, in.HeaterPower, in.InletTemp, in.InletConc, in.Outflow}
}
