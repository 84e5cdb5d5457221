// Package scenario builds initial particle sets: from CSV files, from
// generated asteroid belts, or from named presets.
package scenario

import (
	"errors"
	"fmt"
	"math"
	"math/rand"
	"sort"

	"github.com/san-kum/astrosim/internal/particle"
	"github.com/san-kum/astrosim/internal/vec"
)

var ErrUnknownPreset = errors.New("scenario: unknown preset")

// Asteroids places n bodies of the given mass on circular orbits around a
// unit mass at the origin, with radii spread so that the ring has uniform
// surface density between rmin and rmax.
func Asteroids(rng *rand.Rand, n int, rmin, rmax, mass float64) []particle.Particle {
	ps := make([]particle.Particle, 0, n)
	r2min, r2max := rmin*rmin, rmax*rmax
	for i := 0; i < n; i++ {
		dr := float64(i) / float64(n)
		r := math.Sqrt(r2min + dr*(r2max-r2min))
		theta := rng.Float64() * 2 * math.Pi
		v := math.Sqrt(1 / r)
		x, y := math.Cos(theta), math.Sin(theta)
		ps = append(ps, particle.New(mass, vec.New(r*x, r*y), vec.New(-v*y, v*x)))
	}
	return ps
}

// Sun is a unit mass at rest at the origin.
func Sun() particle.Particle {
	return particle.New(1, vec.Zero, vec.Zero)
}

// Jupiter is a 1e-3 mass on a circular orbit of radius 1.
func Jupiter() particle.Particle {
	return particle.New(1e-3, vec.New(1, 0), vec.New(0, 1))
}

// Builder creates a preset particle set. n is the number of generated
// bodies where the preset has any; zero selects the preset's default.
type Builder func(rng *rand.Rand, n int) []particle.Particle

type preset struct {
	defaultN int
	build    Builder
}

var presets = map[string]preset{
	"kepler": {0, func(*rand.Rand, int) []particle.Particle {
		return []particle.Particle{
			Sun(),
			particle.New(0, vec.New(0, 1), vec.New(1, 0)),
		}
	}},
	"binary": {0, func(*rand.Rand, int) []particle.Particle {
		const v = 0.5
		return []particle.Particle{
			particle.New(0.5, vec.New(-0.5, 0), vec.New(0, -v)),
			particle.New(0.5, vec.New(0.5, 0), vec.New(0, v)),
		}
	}},
	"kirkwood": {10000, func(rng *rand.Rand, n int) []particle.Particle {
		ps := []particle.Particle{Sun(), Jupiter()}
		return append(ps, Asteroids(rng, n, math.Sqrt(0.5), math.Sqrt(1.5), 0)...)
	}},
	"migration": {100, func(rng *rand.Rand, n int) []particle.Particle {
		ps := []particle.Particle{Sun(), Jupiter()}
		return append(ps, Asteroids(rng, n, 0.8, 1.0, 3e-7)...)
	}},
}

// Preset builds the named scenario.
func Preset(name string, rng *rand.Rand, n int) ([]particle.Particle, error) {
	p, ok := presets[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q (available: %v)", ErrUnknownPreset, name, ListPresets())
	}
	if n <= 0 {
		n = p.defaultN
	}
	return p.build(rng, n), nil
}

// ListPresets returns the preset names in sorted order.
func ListPresets() []string {
	names := make([]string, 0, len(presets))
	for name := range presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
