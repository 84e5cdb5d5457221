package particle

import (
	"math"
	"testing"

	"github.com/san-kum/astrosim/internal/vec"
)

func TestSortByMass(t *testing.T) {
	ps := []Particle{
		New(0, vec.New(1, 0), vec.Zero),
		New(1e-3, vec.New(2, 0), vec.Zero),
		New(0, vec.New(3, 0), vec.Zero),
		New(1, vec.New(4, 0), vec.Zero),
	}
	SortByMass(ps)

	for i := 1; i < len(ps); i++ {
		if ps[i].Mass > ps[i-1].Mass {
			t.Fatalf("masses not sorted at %d: %v > %v", i, ps[i].Mass, ps[i-1].Mass)
		}
	}
	if got := FirstMassless(ps); got != 2 {
		t.Errorf("expected cutoff 2, got %d", got)
	}
}

func TestFirstMassless(t *testing.T) {
	tests := []struct {
		name   string
		masses []float64
		want   int
	}{
		{"empty", nil, 0},
		{"all massive", []float64{3, 2, 1}, 3},
		{"all massless", []float64{0, 0}, 0},
		{"mixed", []float64{1, 1e-9, 0, 0}, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ps := make([]Particle, len(tt.masses))
			for i, m := range tt.masses {
				ps[i].Mass = m
			}
			if got := FirstMassless(ps); got != tt.want {
				t.Errorf("expected %d, got %d", tt.want, got)
			}
		})
	}
}

func TestRemoveNetMomentum(t *testing.T) {
	ps := []Particle{
		New(1, vec.New(0, 0), vec.New(0.3, -0.1)),
		New(2, vec.New(1, 0), vec.New(-0.7, 2.5)),
		New(0.5, vec.New(0, 1), vec.New(1.1, 0.4)),
		New(0, vec.New(2, 2), vec.New(5, 5)),
	}
	RemoveNetMomentum(ps)

	p := Momentum(ps)
	if math.Abs(p.X) > 1e-14 || math.Abs(p.Y) > 1e-14 {
		t.Errorf("expected zero momentum, got %v", p)
	}
}

func TestRemoveNetMomentum_NoMass(t *testing.T) {
	ps := []Particle{
		New(0, vec.Zero, vec.New(1, 2)),
		New(0, vec.Zero, vec.New(3, 4)),
	}
	RemoveNetMomentum(ps)

	if ps[0].Vel != vec.New(1, 2) || ps[1].Vel != vec.New(3, 4) {
		t.Errorf("massless set must be left untouched, got %v %v", ps[0].Vel, ps[1].Vel)
	}
}

func TestClone(t *testing.T) {
	src := []Particle{New(1, vec.New(1, 2), vec.Zero)}
	c := Clone(src)
	c[0].Pos = vec.New(9, 9)
	if src[0].Pos == c[0].Pos {
		t.Error("Clone did not create independent copy")
	}
}
