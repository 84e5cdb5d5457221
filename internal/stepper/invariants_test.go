package stepper_test

import (
	"math"
	"math/rand"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/astrosim/internal/forces"
	"github.com/san-kum/astrosim/internal/particle"
	"github.com/san-kum/astrosim/internal/stepper"
	"github.com/san-kum/astrosim/internal/vec"
)

// belt is a sun and a planet surrounded by massless asteroids, listed in
// an order that forces the constructor to re-sort.
func belt(seed int64, n int) []particle.Particle {
	rng := rand.New(rand.NewSource(seed))
	ps := make([]particle.Particle, 0, n+2)
	for i := 0; i < n; i++ {
		r := 0.5 + rng.Float64()
		theta := rng.Float64() * 2 * math.Pi
		v := math.Sqrt(1 / r)
		ps = append(ps, particle.New(0,
			vec.New(r*math.Cos(theta), r*math.Sin(theta)),
			vec.New(-v*math.Sin(theta), v*math.Cos(theta))))
	}
	ps = append(ps,
		particle.New(1e-3, vec.New(1, 0), vec.New(0, 1)),
		particle.New(1, vec.New(0, 0), vec.New(0, 0)),
	)
	return ps
}

var _ = Describe("Stepper", func() {
	for _, name := range forces.Names() {
		name := name

		Context("with the "+name+" force model", func() {
			var s *stepper.Stepper

			BeforeEach(func() {
				ctor, err := forces.Lookup(name)
				Expect(err).NotTo(HaveOccurred())
				s, err = stepper.NewWithForce(belt(17, 64), ctor,
					stepper.WithMinDt(1e-5), stepper.WithMaxDt(5e-2))
				Expect(err).NotTo(HaveOccurred())
			})

			It("sorts particles by mass with massless ones at the tail", func() {
				ps := s.Particles()
				Expect(s.MassCutoff()).To(Equal(2))
				for i := range ps {
					if i > 0 {
						Expect(ps[i].Mass).To(BeNumerically("<=", ps[i-1].Mass))
					}
					if i < s.MassCutoff() {
						Expect(ps[i].Mass).To(BeNumerically(">", 0))
					} else {
						Expect(ps[i].Mass).To(BeZero())
					}
				}
			})

			It("starts with zero total momentum", func() {
				p := particle.Momentum(s.Particles())
				Expect(p.X).To(BeNumerically("~", 0, 1e-15))
				Expect(p.Y).To(BeNumerically("~", 0, 1e-15))
			})

			It("keeps the current acceleration in sync with the positions", func() {
				err := s.AdvanceWithCallback(0.5, func(v stepper.View) error {
					want := forces.Compute(s.Force(), v.Particles())
					Expect(v.Acceleration()).To(Equal(want))
					return nil
				})
				Expect(err).NotTo(HaveOccurred())
			})

			It("keeps dt within its bounds", func() {
				err := s.AdvanceWithCallback(2, func(v stepper.View) error {
					Expect(v.Dt()).To(And(
						BeNumerically(">=", s.MinDt()),
						BeNumerically("<=", s.MaxDt()),
					))
					return nil
				})
				Expect(err).NotTo(HaveOccurred())
			})

			It("lands exactly on the requested end time", func() {
				Expect(s.Advance(1.2345)).To(Succeed())
				Expect(s.Time()).To(BeNumerically("~", 1.2345, 1e-14))
				Expect(s.Advance(0.75)).To(Succeed())
				Expect(s.Time()).To(BeNumerically("~", 1.9845, 1e-14))
			})

			It("never steps past the end time", func() {
				err := s.AdvanceWithCallback(0.3, func(v stepper.View) error {
					Expect(v.Time()).To(BeNumerically("<=", 0.3))
					return nil
				})
				Expect(err).NotTo(HaveOccurred())
			})
		})
	}

	Describe("advance preconditions", func() {
		It("rejects a total time shorter than dt", func() {
			s, err := stepper.New(belt(1, 4), stepper.WithDt(1))
			Expect(err).NotTo(HaveOccurred())
			Expect(s.Advance(0.5)).To(MatchError(stepper.ErrTotalTimeTooShort))
			Expect(s.StepCount()).To(BeZero())
		})
	})
})
