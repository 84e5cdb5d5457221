package analysis

import (
	"errors"
	"math"

	"gonum.org/v1/gonum/stat"

	"github.com/san-kum/astrosim/internal/particle"
	"github.com/san-kum/astrosim/internal/stepper"
	"github.com/san-kum/astrosim/internal/vec"
)

// Divergence is the separation of two particle sets over time.
type Divergence struct {
	Times       []float64
	Separations []float64
	// Exponent is the slope of log(separation) against time.
	Exponent float64
}

// LyapunovExponent estimates the largest Lyapunov exponent of ps using
// the trajectory separation method: a copy of ps with particle body
// displaced by perturbation along x is integrated alongside, and the
// growth of the separation fitted. Both sets use the same options, which
// should fix dt so that the two runs sample identical times.
//
// The runs are not renormalised, so duration should end before the
// separation saturates at the system size.
func LyapunovExponent(ps []particle.Particle, body int, perturbation, interval, duration float64, opts ...stepper.Option) (*Divergence, error) {
	if body < 0 || body >= len(ps) {
		return nil, errors.New("analysis: body index out of range")
	}
	if !(perturbation > 0) || !(interval > 0) || duration < interval {
		return nil, errors.New("analysis: need perturbation > 0 and 0 < interval <= duration")
	}

	perturbed := make([]particle.Particle, len(ps))
	copy(perturbed, ps)
	perturbed[body].Pos = perturbed[body].Pos.Add(vec.New(perturbation, 0))

	a, err := stepper.New(ps, opts...)
	if err != nil {
		return nil, err
	}
	b, err := stepper.New(perturbed, opts...)
	if err != nil {
		return nil, err
	}

	d := &Divergence{}
	var logs []float64
	for t := interval; t <= duration; t += interval {
		if err := a.Advance(interval); err != nil {
			return nil, err
		}
		if err := b.Advance(interval); err != nil {
			return nil, err
		}

		sep := separation(a.Particles(), b.Particles())
		d.Times = append(d.Times, a.Time())
		d.Separations = append(d.Separations, sep)
		if sep > 0 {
			logs = append(logs, math.Log(sep/perturbation))
		} else {
			logs = append(logs, math.Inf(-1))
		}
	}

	var ts, ls []float64
	for i, l := range logs {
		if !math.IsInf(l, 0) {
			ts = append(ts, d.Times[i])
			ls = append(ls, l)
		}
	}
	if len(ts) < 2 {
		d.Exponent = 0
		return d, nil
	}
	_, d.Exponent = stat.LinearRegression(ts, ls, nil, false)
	return d, nil
}

func separation(a, b []particle.Particle) float64 {
	var sum float64
	for i := range a {
		sum += a[i].Pos.Sub(b[i].Pos).Len2()
	}
	return math.Sqrt(sum)
}
