// Package control provides feedback controllers for process models.
//
// Controllers here are stateless: a command is a pure function of the
// setpoint, the measurement and a feed-forward bias, so they can be
// evaluated inside an ODE right-hand side at arbitrary times.
//
//   - [Proportional]: P-only controller with hard output saturation
//   - [Saturate]: the clamp used by every controller
//
// # Usage
//
//	level := control.NewProportional(0.5, 0, 0.5) // Kp, min, max
//	qin := level.Command(setpoint, h, baseInflow)
//
// Saturation is a hard clamp: there is no integral action, anti-windup or
// rate limiting.
package control
