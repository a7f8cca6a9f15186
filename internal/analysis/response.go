package analysis

import "math"

// StepMetrics summarizes the response of a measured series to a setpoint
// step.
type StepMetrics struct {
	// Overshoot is the peak excursion beyond the new setpoint as a fraction
	// of the step size. Zero for a monotone approach.
	Overshoot float64
	// SettlingTime is measured from the step; NaN if the series never stays
	// inside the band.
	SettlingTime float64
	// Offset is setpoint minus the final measured value. Proportional-only
	// control leaves it non-zero.
	Offset float64
}

// StepResponse analyzes values from the first sample at or after stepAt.
// band is the settling tolerance as a fraction of the step size, e.g. 0.02.
func StepResponse(times, values []float64, stepAt, before, after, band float64) StepMetrics {
	out := StepMetrics{SettlingTime: math.NaN()}
	if len(times) == 0 || len(times) != len(values) {
		return out
	}

	start := len(times)
	for i, t := range times {
		if t >= stepAt {
			start = i
			break
		}
	}
	if start == len(times) {
		return out
	}

	step := after - before
	out.Offset = after - values[len(values)-1]
	if step == 0 {
		return out
	}

	peak := 0.0
	for _, v := range values[start:] {
		if excess := (v - after) / step; excess > peak {
			peak = excess
		}
	}
	out.Overshoot = peak

	// the reference for settling is where the series actually ends, so a
	// steady proportional offset still settles
	final := values[len(values)-1]
	tol := math.Abs(band * step)
	settled := len(values)
	for i := len(values) - 1; i >= start; i-- {
		if math.Abs(values[i]-final) > tol {
			break
		}
		settled = i
	}
	if settled < len(values) {
		out.SettlingTime = times[settled] - stepAt
	}
	return out
}
