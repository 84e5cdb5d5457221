// Package forces computes gravitational accelerations for a particle set.
//
// Two models share one pairwise kernel:
//
//   - [Gravity]: every particle is a source and a sink.
//   - [Bounded]: only the massive prefix of a mass-sorted set acts as a
//     source; tracers in the tail still receive accelerations.
//
// Units have G = 1. Coincident particles divide by zero and produce
// non-finite accelerations; this is not guarded.
package forces

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/san-kum/astrosim/internal/particle"
	"github.com/san-kum/astrosim/internal/vec"
)

var ErrUnknownForce = errors.New("forces: unknown force model")

// Model writes the acceleration of every particle into acc, overwriting
// its previous contents. len(acc) must equal len(ps).
type Model interface {
	Accel(ps []particle.Particle, acc []vec.Vec2)
}

// Constructor builds a model for a mass-sorted particle set whose first
// tracer is at index cutoff.
type Constructor func(ps []particle.Particle, cutoff int) Model

// Gravity is full pairwise Newtonian gravity.
type Gravity struct{}

func NewGravity(_ []particle.Particle, _ int) Model { return Gravity{} }

func (Gravity) Accel(ps []particle.Particle, acc []vec.Vec2) {
	pairwise(ps, acc, len(ps))
}

// Bounded is pairwise gravity restricted to sources below Cutoff. It is
// exact only if every particle at or beyond Cutoff is massless.
type Bounded struct {
	Cutoff int
}

func NewBounded(_ []particle.Particle, cutoff int) Model { return Bounded{Cutoff: cutoff} }

func (b Bounded) Accel(ps []particle.Particle, acc []vec.Vec2) {
	pairwise(ps, acc, b.Cutoff)
}

// pairwise evaluates each pair (i, j) with i < sources and i < j once,
// applying Newton's third law to both ends.
func pairwise(ps []particle.Particle, acc []vec.Vec2, sources int) {
	if len(acc) != len(ps) {
		panic(fmt.Sprintf("forces: %d accelerations for %d particles", len(acc), len(ps)))
	}
	for i := range acc {
		acc[i] = vec.Zero
	}
	if sources > len(ps) {
		sources = len(ps)
	}

	for i := 0; i < sources; i++ {
		pi := &ps[i]
		acci := vec.Zero
		for j := i + 1; j < len(ps); j++ {
			pj := &ps[j]
			delta := pj.Pos.Sub(pi.Pos)
			len2 := delta.Dot(delta)
			len3 := len2 * math.Sqrt(len2)
			reduced := delta.Div(len3)
			acci = acci.Add(reduced.Scale(pj.Mass))
			acc[j] = acc[j].Sub(reduced.Scale(pi.Mass))
		}
		acc[i] = acc[i].Add(acci)
	}
}

// Compute allocates a buffer and evaluates m on ps.
func Compute(m Model, ps []particle.Particle) []vec.Vec2 {
	acc := vec.Zeros(len(ps))
	m.Accel(ps, acc)
	return acc
}

var registry = map[string]Constructor{
	"full":    NewGravity,
	"bounded": NewBounded,
}

// Lookup returns the constructor registered under name.
func Lookup(name string) (Constructor, error) {
	c, ok := registry[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q (available: %v)", ErrUnknownForce, name, Names())
	}
	return c, nil
}

// Names lists the registered models in sorted order.
func Names() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
