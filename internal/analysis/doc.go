// Package analysis runs measurement experiments on top of the stepper:
//
//   - [Convergence]: quarter-orbit error against a fixed time step, and the
//     fitted order of the integrator
//   - [AdaptiveConvergence]: the same against the target error
//   - [Period]: dominant period of a sampled coordinate
//   - [LyapunovExponent]: growth rate of the separation of two nearby
//     particle sets
//
// # Convergence
//
// Velocity Verlet is second order, so halving dt quarters the error:
//
//	points, order, err := analysis.Convergence(ctx, forces.NewGravity, dts, 4)
//	// order ≈ 2
package analysis
