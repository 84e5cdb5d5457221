package output

import "github.com/san-kum/astrosim/internal/stepper"

// Multi calls each callback in order and stops at the first error.
func Multi(cbs ...stepper.Callback) stepper.Callback {
	return func(v stepper.View) error {
		for _, cb := range cbs {
			if cb == nil {
				continue
			}
			if err := cb(v); err != nil {
				return err
			}
		}
		return nil
	}
}

// Every calls cb for the first step and then whenever at least period of
// simulated time has passed since the previous call.
func Every(period float64, cb stepper.Callback) stepper.Callback {
	called := false
	var last float64
	return func(v stepper.View) error {
		t := v.Time()
		if called && t-last < period {
			return nil
		}
		called = true
		last = t
		return cb(v)
	}
}
