// Package stepper advances a particle set under mutual gravity with a
// symplectic velocity-Verlet scheme and adaptive step size.
//
// A [Stepper] owns its particles and two acceleration buffers. The
// acceleration at the current positions is always held in the "current"
// buffer between steps, so each force evaluation serves as the end of one
// step and the start of the next (first-same-as-last).
//
// # Example
//
//	s, err := stepper.New(particles, stepper.WithTargetError(1e-3))
//	if err != nil {
//	    return err
//	}
//	err = s.AdvanceWithCallback(10, func(v stepper.View) error {
//	    fmt.Println(v.Time(), v.Dt(), v.RelativeError())
//	    return nil
//	})
//
// # Thread Safety
//
// Stepper instances are NOT safe for concurrent use. Independent
// steppers may run in parallel goroutines.
package stepper
