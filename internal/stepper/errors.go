package stepper

import "errors"

var (
	// ErrTotalTimeTooShort indicates an advance shorter than the current
	// step size, usually total time and dt passed in the wrong order.
	ErrTotalTimeTooShort = errors.New("stepper: total time shorter than time step")

	// ErrInvalidConfig indicates step-size settings outside their valid range.
	ErrInvalidConfig = errors.New("stepper: invalid configuration")
)
