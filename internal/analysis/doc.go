// Package analysis computes post-run diagnostics from sampled series.
//
//   - [PowerSpectrum] and [DominantPeriod]: oscillation content of a
//     controlled variable
//   - [StepResponse]: overshoot, settling time and steady-state offset
//     after a setpoint change
//   - [Sweep]: steady-state value of a state component across a range of a
//     model parameter, e.g. the proportional offset versus gain
//   - [PhasePortraitToASCII]: two-column phase plot for the terminal
//
// All functions take plain slices, normally columns of a sim.Result:
//
//	temp, _ := res.Column("T")
//	period, ok := analysis.DominantPeriod(temp, res.Times[1]-res.Times[0])
package analysis
