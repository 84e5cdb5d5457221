package stepper

import (
	"fmt"
	"math"

	"github.com/san-kum/astrosim/internal/forces"
	"github.com/san-kum/astrosim/internal/particle"
	"github.com/san-kum/astrosim/internal/vec"
)

// View is read access to a Stepper, handed to output callbacks.
type View interface {
	Time() float64
	Dt() float64
	StepCount() uint64
	// Particles returns the live particle slice; callers must not modify it.
	Particles() []particle.Particle
	// Acceleration returns the acceleration at the current positions.
	Acceleration() []vec.Vec2
	RelativeError() float64
	TargetError() float64
	MassCutoff() int
}

// Callback is invoked after every completed step. A non-nil error aborts
// the advance and is returned to its caller unchanged.
type Callback func(View) error

type Stepper struct {
	particles []particle.Particle

	// acc[cur] holds the acceleration at the current positions,
	// acc[1-cur] the one of the previous step.
	acc [2][]vec.Vec2
	cur int

	time  float64
	steps uint64

	dt          float64
	minDt       float64
	maxDt       float64
	targetError float64

	force  forces.Model
	cutoff int
}

var _ View = (*Stepper)(nil)

// New takes ownership of a copy of ps: it sorts the copy by descending
// mass, removes the net momentum and primes the acceleration with the
// configured force model.
func New(ps []particle.Particle, opts ...Option) (*Stepper, error) {
	cfg := defaultSettings()
	for _, opt := range opts {
		opt(&cfg)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	particles := particle.Clone(ps)
	particle.SortByMass(particles)
	cutoff := particle.FirstMassless(particles)
	particle.RemoveNetMomentum(particles)

	s := &Stepper{
		particles:   particles,
		dt:          math.Min(math.Max(cfg.dt, cfg.minDt), cfg.maxDt),
		minDt:       cfg.minDt,
		maxDt:       cfg.maxDt,
		targetError: cfg.targetError,
		force:       cfg.force(particles, cutoff),
		cutoff:      cutoff,
	}
	s.acc[0] = vec.Zeros(len(particles))
	s.acc[1] = vec.Zeros(len(particles))
	s.force.Accel(s.particles, s.acc[0])
	copy(s.acc[1], s.acc[0])
	return s, nil
}

// NewWithForce is New with an explicit force model constructor.
func NewWithForce(ps []particle.Particle, force forces.Constructor, opts ...Option) (*Stepper, error) {
	return New(ps, append(opts, WithForce(force))...)
}

func (s *Stepper) Particles() []particle.Particle { return s.particles }
func (s *Stepper) Acceleration() []vec.Vec2       { return s.acc[s.cur] }
func (s *Stepper) Time() float64                  { return s.time }
func (s *Stepper) Dt() float64                    { return s.dt }
func (s *Stepper) MinDt() float64                 { return s.minDt }
func (s *Stepper) MaxDt() float64                 { return s.maxDt }
func (s *Stepper) TargetError() float64           { return s.targetError }
func (s *Stepper) StepCount() uint64              { return s.steps }
func (s *Stepper) MassCutoff() int                { return s.cutoff }
func (s *Stepper) Force() forces.Model            { return s.force }

// FixDt pins the step size, disabling adaptivity.
func (s *Stepper) FixDt(dt float64) {
	s.dt = dt
	s.minDt = dt
	s.maxDt = dt
}

// SetTargetError changes the error the controller steers towards.
func (s *Stepper) SetTargetError(e float64) { s.targetError = e }

// Advance moves time forward by exactly total without output.
func (s *Stepper) Advance(total float64) error {
	return s.AdvanceWithCallback(total, nil)
}

// AdvanceWithCallback moves time forward by exactly total, calling cb
// after every step. On a fresh stepper cb first sees the initial state.
//
// Regular steps are taken while they end before the target time, each
// followed by a step-size adjustment; a final truncated step lands on the
// target exactly and does not feed the controller.
func (s *Stepper) AdvanceWithCallback(total float64, cb Callback) error {
	if !(total >= s.dt) {
		return fmt.Errorf("%w: total time %g < dt %g", ErrTotalTimeTooShort, total, s.dt)
	}
	if cb == nil {
		cb = func(View) error { return nil }
	}

	if s.steps == 0 {
		if err := cb(s); err != nil {
			return err
		}
	}

	end := s.time + total
	for s.time+s.dt < end {
		s.StepWithDt(s.dt)
		if err := cb(s); err != nil {
			return err
		}
		s.AdjustDt()
	}

	if final := end - s.time; final > 0 {
		s.StepWithDt(final)
		if err := cb(s); err != nil {
			return err
		}
	}
	return nil
}

// Step takes one step, first adjusting dt from the previous step's error
// unless no step has been taken yet.
func (s *Stepper) Step() {
	if s.steps != 0 {
		s.AdjustDt()
	}
	s.StepWithDt(s.dt)
}

// StepWithDt takes one velocity-Verlet step of size dt, bypassing the
// controller. The current acceleration must be valid on entry and is
// valid again on return.
func (s *Stepper) StepWithDt(dt float64) {
	a1 := s.acc[s.cur]
	a2 := s.acc[1-s.cur]

	// drift
	for i := range s.particles {
		p := &s.particles[i]
		p.Pos = p.Pos.Add(p.Vel.Scale(dt).Add(a1[i].Scale(0.5).Scale(dt).Scale(dt)))
	}

	s.force.Accel(s.particles, a2)

	// kick with the average of the old and new acceleration
	for i := range s.particles {
		p := &s.particles[i]
		p.Vel = p.Vel.Add(a1[i].Add(a2[i]).Scale(0.5).Scale(dt))
	}

	s.cur = 1 - s.cur
	s.time += dt
	s.steps++
}

// RelativeError estimates the error of the last step from the change in
// acceleration across it: 2·sqrt(max |a1-a2|²/|a1+a2|²). Particles whose
// ratio is NaN (no acceleration at all) do not contribute.
func (s *Stepper) RelativeError() float64 {
	a1 := s.acc[s.cur]
	a2 := s.acc[1-s.cur]
	worst := 0.0
	for i := range a1 {
		r := a1[i].Sub(a2[i]).Len2() / a1[i].Add(a2[i]).Len2()
		if r > worst {
			worst = r
		}
	}
	return math.Sqrt(worst) * 2
}

// AdjustDt scales dt towards the target error by a factor clamped to
// [0.1, 1.4], then clamps dt to [minDt, maxDt].
func (s *Stepper) AdjustDt() {
	adjust := s.targetError / s.RelativeError()
	adjust = math.Min(adjust, maxAdjust)
	adjust = math.Max(adjust, minAdjust)
	s.dt *= adjust
	s.dt = math.Max(s.dt, s.minDt)
	s.dt = math.Min(s.dt, s.maxDt)
}
