// Package dynamo provides core simulation primitives for process models.
//
// The package defines the fundamental interfaces and types for numerical
// simulation of ordinary differential equations (ODEs):
//
//   - [State]: vector representing system state
//   - [System]: interface for ODE systems (dX/dt = f(X, t))
//   - [Integrator]: integrates a System across an output time grid
//   - [Auxiliary]: models that can reconstruct controller outputs and
//     exogenous inputs for a sampled state
//   - [Metric]: key performance indicators observed over a trajectory
//
// # Example
//
//	model := physics.NewReactor(physics.DefaultReactorParams())
//	integ := integrators.NewRK45()
//	states, stats, err := integ.Integrate(ctx, model, x0, times)
//
// # Purity
//
// System.Derive may be called at times that are not monotonically
// increasing, and more than once for the same time. Implementations must
// return identical output for identical input and must not retain state
// between calls.
package dynamo
