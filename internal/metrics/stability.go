package metrics

import "github.com/san-kum/astrosim/internal/stepper"

// Containment is the fraction of observed steps in which every particle
// stayed within radius of the origin. Bodies ejected by close encounters
// lower it.
type Containment struct {
	name       string
	radius2    float64
	violations int
	samples    int
}

func NewContainment(radius float64) *Containment {
	return &Containment{
		name:    "containment",
		radius2: radius * radius,
	}
}

func (c *Containment) Name() string {
	return c.name
}

func (c *Containment) Observe(v stepper.View) {
	c.samples++
	for _, p := range v.Particles() {
		// NaN positions count as escaped
		if !(p.Pos.Len2() <= c.radius2) {
			c.violations++
			break
		}
	}
}

func (c *Containment) Value() float64 {
	if c.samples == 0 {
		return 1.0
	}
	return 1.0 - float64(c.violations)/float64(c.samples)
}

func (c *Containment) Reset() {
	c.violations = 0
	c.samples = 0
}
