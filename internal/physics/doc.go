// Package physics provides the process models for simulation.
//
// Each model implements the [dynamo.System] interface, encoding mass,
// species and energy balances as a pure derivative function:
//
//   - [Reactor]: stirred tank with level and temperature under saturated
//     proportional control, Arrhenius kinetics and time-varying profiles
//   - [OpenLoopReactor]: the same balances driven by prescribed inflow and
//     heater power
//   - [Tank]: level-only tank with Torricelli outflow
//
// All models also implement [dynamo.Auxiliary] so a driver can rebuild the
// controller outputs and profile values at each reported sample.
//
// # Guards
//
// Degenerate regimes are handled locally and never reported as errors: the
// outlet flow is zero for h <= 0, the liquid volume is floored to
// VolumeFloor, and the temperature and concentration derivatives are frozen
// at zero while the tank is empty.
//
//	r := physics.NewReactor(physics.DefaultReactorParams())
//	dx := r.Derive(dynamo.State{h, T, CA}, t)
package physics
