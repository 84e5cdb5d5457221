// Package metrics tracks conserved quantities of a particle set while it
// is being integrated.
package metrics

import (
	"math"

	"github.com/san-kum/astrosim/internal/particle"
	"github.com/san-kum/astrosim/internal/stepper"
	"github.com/san-kum/astrosim/internal/vec"
)

// Metric accumulates a value over the steps it observes.
type Metric interface {
	Name() string
	Observe(v stepper.View)
	Value() float64
	Reset()
}

// Callback adapts metrics to a stepper callback.
func Callback(ms ...Metric) stepper.Callback {
	return func(v stepper.View) error {
		for _, m := range ms {
			m.Observe(v)
		}
		return nil
	}
}

// Energy is the total kinetic plus gravitational potential energy, with
// G = 1. Pairs involving a massless particle contribute nothing.
func Energy(ps []particle.Particle) float64 {
	return Kinetic(ps) + Potential(ps)
}

func Kinetic(ps []particle.Particle) float64 {
	var ke float64
	for i := range ps {
		ke += 0.5 * ps[i].Mass * ps[i].Vel.Len2()
	}
	return ke
}

func Potential(ps []particle.Particle) float64 {
	var pe float64
	for i := range ps {
		mi := ps[i].Mass
		if mi == 0 {
			continue
		}
		for j := i + 1; j < len(ps); j++ {
			mj := ps[j].Mass
			if mj == 0 {
				continue
			}
			pe -= mi * mj / ps[j].Pos.Sub(ps[i].Pos).Len()
		}
	}
	return pe
}

// AngularMomentum is the z component of Σ m r × v about the origin.
func AngularMomentum(ps []particle.Particle) float64 {
	var l float64
	for _, p := range ps {
		l += p.Mass * (p.Pos.X*p.Vel.Y - p.Pos.Y*p.Vel.X)
	}
	return l
}

func Momentum(ps []particle.Particle) vec.Vec2 {
	return particle.Momentum(ps)
}

// drift tracks the largest relative deviation of a quantity from its
// value at the first observation.
type drift struct {
	name     string
	quantity func([]particle.Particle) float64

	initial  float64
	current  float64
	maxDrift float64
	samples  int
}

func (d *drift) Name() string { return d.name }

func (d *drift) Observe(v stepper.View) {
	q := d.quantity(v.Particles())
	if d.samples == 0 {
		d.initial = q
	}
	d.current = q
	d.samples++

	if d.initial != 0 {
		rel := math.Abs(q-d.initial) / math.Abs(d.initial)
		d.maxDrift = math.Max(d.maxDrift, rel)
	}
}

func (d *drift) Value() float64 { return d.maxDrift }

// Current is the most recently observed quantity.
func (d *drift) Current() float64 { return d.current }

func (d *drift) Reset() {
	d.initial = 0
	d.current = 0
	d.maxDrift = 0
	d.samples = 0
}

type EnergyDrift struct{ drift }

func NewEnergyDrift() *EnergyDrift {
	return &EnergyDrift{drift{name: "energy_drift", quantity: Energy}}
}

type AngularMomentumDrift struct{ drift }

func NewAngularMomentumDrift() *AngularMomentumDrift {
	return &AngularMomentumDrift{drift{name: "angular_momentum_drift", quantity: AngularMomentum}}
}
