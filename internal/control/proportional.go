package control

import (
	"fmt"
	"math"

	"github.com/san-kum/cstrsim/internal/dynamo"
)

type Proportional struct {
	Gain float64
	Min  float64
	Max  float64
}

func NewProportional(gain, min, max float64) Proportional {
	return Proportional{Gain: gain, Min: min, Max: max}
}

// Command returns bias + Gain*(setpoint-measurement), clamped to [Min, Max].
func (p Proportional) Command(setpoint, measurement, bias float64) float64 {
	return Saturate(bias+p.Gain*(setpoint-measurement), p.Min, p.Max)
}

// Saturated reports whether v sits on one of the output limits.
func (p Proportional) Saturated(v float64) bool {
	return v <= p.Min || v >= p.Max
}

func (p Proportional) Validate() error {
	for _, f := range []struct {
		name string
		v    float64
	}{
		{"gain", p.Gain},
		{"min", p.Min},
		{"max", p.Max},
	} {
		if math.IsNaN(f.v) || math.IsInf(f.v, 0) {
			return fmt.Errorf("controller %s=%v: %w", f.name, f.v, dynamo.ErrParameterBounds)
		}
	}
	if p.Min > p.Max {
		return fmt.Errorf("controller limits [%v, %v]: %w", p.Min, p.Max, dynamo.ErrParameterBounds)
	}
	return nil
}

// Saturate clamps v to [lo, hi]. NaN maps to lo so the result is always
// inside the limits.
func Saturate(v, lo, hi float64) float64 {
	if math.IsNaN(v) || v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
