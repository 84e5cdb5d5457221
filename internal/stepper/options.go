package stepper

import (
	"fmt"
	"math"

	"github.com/san-kum/astrosim/internal/forces"
)

const (
	DefaultDt          = 1e-5
	DefaultTargetError = 1e-3
	DefaultMinDt       = 0.0
)

// DefaultMaxDt leaves the step size unbounded above.
var DefaultMaxDt = math.Inf(1)

// Bounds on the per-adjustment change of dt.
const (
	minAdjust = 0.1
	maxAdjust = 1.4
)

type settings struct {
	dt          float64
	minDt       float64
	maxDt       float64
	targetError float64
	force       forces.Constructor
}

func defaultSettings() settings {
	return settings{
		dt:          DefaultDt,
		minDt:       DefaultMinDt,
		maxDt:       DefaultMaxDt,
		targetError: DefaultTargetError,
		force:       forces.NewBounded,
	}
}

// Option configures a Stepper at construction.
type Option func(*settings)

// WithDt sets the initial step size.
func WithDt(dt float64) Option { return func(s *settings) { s.dt = dt } }

func WithMinDt(dt float64) Option { return func(s *settings) { s.minDt = dt } }

func WithMaxDt(dt float64) Option { return func(s *settings) { s.maxDt = dt } }

// WithTargetError sets the desired relative error per step.
func WithTargetError(e float64) Option { return func(s *settings) { s.targetError = e } }

// WithFixedDt pins dt, minDt and maxDt to dt, disabling adaptivity.
func WithFixedDt(dt float64) Option {
	return func(s *settings) {
		s.dt, s.minDt, s.maxDt = dt, dt, dt
	}
}

// WithForce selects the force model constructor. The default is
// forces.NewBounded.
func WithForce(c forces.Constructor) Option { return func(s *settings) { s.force = c } }

func (s settings) validate() error {
	if !(s.dt > 0) {
		return fmt.Errorf("%w: dt must be positive, got %g", ErrInvalidConfig, s.dt)
	}
	if s.minDt < 0 || s.minDt > s.maxDt {
		return fmt.Errorf("%w: need 0 <= min_dt <= max_dt, got [%g, %g]", ErrInvalidConfig, s.minDt, s.maxDt)
	}
	if !(s.targetError > 0) {
		return fmt.Errorf("%w: target error must be positive, got %g", ErrInvalidConfig, s.targetError)
	}
	if s.force == nil {
		return fmt.Errorf("%w: no force model", ErrInvalidConfig)
	}
	return nil
}
