package physics

import (
	"fmt"
	"math"

	"github.com/san-kum/cstrsim/internal/dynamo"
	"github.com/san-kum/cstrsim/internal/profile"
)

// Tank is a level-only tank with Torricelli outflow. State is (h).
type Tank struct {
	Area           float64
	OrificeArea    float64
	DischargeCoeff float64
	Gravity        float64
	Inflow         profile.Func
}

// NewTank returns the reference tank (seconds, m^3/s) fed by inflow.
func NewTank(inflow profile.Func) *Tank {
	return &Tank{
		Area:           5.0,
		OrificeArea:    0.02,
		DischargeCoeff: 0.65,
		Gravity:        GravityPerSecond,
		Inflow:         inflow,
	}
}

func (tk *Tank) Name() string       { return "tank" }
func (tk *Tank) StateDim() int      { return 1 }
func (tk *Tank) Labels() []string   { return []string{"h"} }
func (tk *Tank) NonNegative() []int { return []int{0} }

func (tk *Tank) Validate() error {
	if !(tk.Area > 0) || !(tk.Gravity > 0) {
		return fmt.Errorf("tank area=%v gravity=%v must be positive: %w", tk.Area, tk.Gravity, dynamo.ErrParameterBounds)
	}
	if !(tk.OrificeArea >= 0) || !(tk.DischargeCoeff >= 0) {
		return fmt.Errorf("tank orifice_area=%v discharge_coeff=%v must be non-negative: %w", tk.OrificeArea, tk.DischargeCoeff, dynamo.ErrParameterBounds)
	}
	if tk.Inflow == nil {
		return fmt.Errorf("tank inflow profile must be set: %w", dynamo.ErrParameterBounds)
	}
	return nil
}

func (tk *Tank) Derive(x dynamo.State, t float64) dynamo.State {
	qout := OutletFlow(tk.DischargeCoeff, tk.OrificeArea, tk.Gravity, x[0])
	return dynamo.State{(tk.Inflow.Value(t) - qout) / tk.Area}
}

func (tk *Tank) AuxLabels() []string { return []string{"inflow", "outflow"} }

func (tk *Tank) Aux(x dynamo.State, t float64) []float64 {
	return []float64{
		tk.Inflow.Value(t),
		OutletFlow(tk.DischargeCoeff, tk.OrificeArea, tk.Gravity, x[0]),
	}
}

// SteadyStateLevel is the head at which outflow matches a constant inflow q.
func (tk *Tank) SteadyStateLevel(q float64) float64 {
	c := tk.DischargeCoeff * tk.OrificeArea
	if c <= 0 {
		return math.Inf(1)
	}
	r := q / c
	return r * r / (2 * tk.Gravity)
}
