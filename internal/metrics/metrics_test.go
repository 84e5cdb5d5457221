package metrics

import (
	"math"
	"testing"

	"github.com/san-kum/astrosim/internal/particle"
	"github.com/san-kum/astrosim/internal/stepper"
	"github.com/san-kum/astrosim/internal/vec"
)

func kepler() []particle.Particle {
	return []particle.Particle{
		particle.New(1, vec.Zero, vec.Zero),
		particle.New(1e-3, vec.New(1, 0), vec.New(0, 1)),
	}
}

func TestEnergy(t *testing.T) {
	ps := kepler()
	ke := 0.5 * 1e-3
	pe := -1e-3
	if got := Energy(ps); math.Abs(got-(ke+pe)) > 1e-15 {
		t.Errorf("expected energy %v, got %v", ke+pe, got)
	}

	// massless bodies on top of each other must not poison the sum
	ps = append(ps,
		particle.New(0, vec.New(2, 0), vec.Zero),
		particle.New(0, vec.New(2, 0), vec.Zero),
	)
	if got := Potential(ps); got != pe {
		t.Errorf("expected potential %v, got %v", pe, got)
	}
}

func TestAngularMomentum(t *testing.T) {
	tests := []struct {
		name string
		ps   []particle.Particle
		want float64
	}{
		{"empty", nil, 0},
		{"counterclockwise", kepler(), 1e-3},
		{"clockwise", []particle.Particle{particle.New(2, vec.New(0, 1), vec.New(1, 0))}, -2},
		{"radial", []particle.Particle{particle.New(1, vec.New(1, 1), vec.New(3, 3))}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := AngularMomentum(tt.ps); got != tt.want {
				t.Errorf("expected %v, got %v", tt.want, got)
			}
		})
	}
}

func TestMomentum(t *testing.T) {
	if got := Momentum(kepler()); got != vec.New(0, 1e-3) {
		t.Errorf("expected (0, 0.001), got %v", got)
	}
}

func TestEnergyDriftOverOrbit(t *testing.T) {
	s, err := stepper.New(kepler(), stepper.WithTargetError(1e-4))
	if err != nil {
		t.Fatalf("stepper.New: %v", err)
	}
	e := NewEnergyDrift()
	l := NewAngularMomentumDrift()
	if err := s.AdvanceWithCallback(2*math.Pi, Callback(e, l)); err != nil {
		t.Fatalf("advance: %v", err)
	}

	if e.Name() != "energy_drift" || l.Name() != "angular_momentum_drift" {
		t.Errorf("unexpected names %q, %q", e.Name(), l.Name())
	}
	if e.Value() <= 0 || e.Value() > 1e-3 {
		t.Errorf("expected small positive energy drift, got %v", e.Value())
	}
	if want := Energy(s.Particles()); e.Current() != want {
		t.Errorf("expected current %v, got %v", want, e.Current())
	}
	// velocity Verlet conserves angular momentum up to round-off
	if l.Value() > 1e-10 {
		t.Errorf("expected angular momentum conserved, drift %v", l.Value())
	}

	e.Reset()
	if e.Value() != 0 || e.Current() != 0 {
		t.Errorf("expected zero after reset, got %v", e.Value())
	}
}

type view struct {
	stepper.View
	ps []particle.Particle
}

func (v view) Particles() []particle.Particle { return v.ps }

func TestContainment(t *testing.T) {
	c := NewContainment(2)
	if c.Value() != 1 {
		t.Errorf("expected 1 with no samples, got %v", c.Value())
	}

	inside := kepler()
	outside := append(kepler(), particle.New(0, vec.New(3, 0), vec.Zero))
	broken := []particle.Particle{particle.New(0, vec.New(math.NaN(), 0), vec.Zero)}

	c.Observe(view{ps: inside})
	c.Observe(view{ps: outside})
	c.Observe(view{ps: inside})
	c.Observe(view{ps: broken})

	if got := c.Value(); got != 0.5 {
		t.Errorf("expected 0.5, got %v", got)
	}
	c.Reset()
	if c.Value() != 1 {
		t.Errorf("expected 1 after reset, got %v", c.Value())
	}
}
