// Package particle defines the point masses advanced by the stepper and
// the one-time preparations applied to a particle set before integration.
package particle

import (
	"sort"

	"github.com/san-kum/astrosim/internal/vec"
)

// Particle is a point mass. A zero mass marks a tracer: it is accelerated
// by the others but exerts no force.
type Particle struct {
	Pos  vec.Vec2
	Vel  vec.Vec2
	Mass float64
}

func New(mass float64, pos, vel vec.Vec2) Particle {
	return Particle{Pos: pos, Vel: vel, Mass: mass}
}

// Clone returns an independent copy of ps.
func Clone(ps []Particle) []Particle {
	c := make([]Particle, len(ps))
	copy(c, ps)
	return c
}

// SortByMass orders ps by non-increasing mass, so that all tracers form a
// contiguous tail.
func SortByMass(ps []Particle) {
	sort.Slice(ps, func(i, j int) bool { return ps[i].Mass > ps[j].Mass })
}

// FirstMassless returns the index of the first particle with mass exactly
// zero, or len(ps) if there is none. ps must be sorted by mass.
func FirstMassless(ps []Particle) int {
	for i, p := range ps {
		if p.Mass == 0 {
			return i
		}
	}
	return len(ps)
}

func TotalMass(ps []Particle) float64 {
	m := 0.0
	for _, p := range ps {
		m += p.Mass
	}
	return m
}

// Momentum returns the total linear momentum Σ m·v.
func Momentum(ps []Particle) vec.Vec2 {
	total := vec.Zero
	for _, p := range ps {
		total = total.Add(p.Vel.Scale(p.Mass))
	}
	return total
}

// RemoveNetMomentum shifts all velocities by the center-of-mass velocity,
// leaving zero total momentum. A set without mass is left untouched.
func RemoveNetMomentum(ps []Particle) {
	m := TotalMass(ps)
	if m <= 0 {
		return
	}
	vcm := Momentum(ps).Div(m)
	for i := range ps {
		ps[i].Vel = ps[i].Vel.Sub(vcm)
	}
}
