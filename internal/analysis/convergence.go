package analysis

import (
	"context"
	"fmt"
	"math"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/stat"

	"github.com/san-kum/astrosim/internal/forces"
	"github.com/san-kum/astrosim/internal/particle"
	"github.com/san-kum/astrosim/internal/stepper"
	"github.com/san-kum/astrosim/internal/vec"
)

// ConvergencePoint is the outcome of one quarter-orbit run.
type ConvergencePoint struct {
	Dt          float64 // fixed dt, or the final dt of an adaptive run
	TargetError float64 // zero for fixed dt runs
	Error       float64 // distance from the exact position
	Steps       uint64
}

// quarterOrbit is a massless body on a unit circular orbit, clockwise
// from (0, 1). After a quarter period it is at (1, 0).
func quarterOrbit() []particle.Particle {
	return []particle.Particle{
		particle.New(1, vec.Zero, vec.Zero),
		particle.New(0, vec.New(0, 1), vec.New(1, 0)),
	}
}

var quarterOrbitEnd = vec.New(1, 0)

func quarterOrbitError(opts ...stepper.Option) (ConvergencePoint, error) {
	s, err := stepper.New(quarterOrbit(), opts...)
	if err != nil {
		return ConvergencePoint{}, err
	}
	if err := s.Advance(math.Pi / 2); err != nil {
		return ConvergencePoint{}, err
	}
	return ConvergencePoint{
		Dt:    s.Dt(),
		Error: s.Particles()[1].Pos.Sub(quarterOrbitEnd).Len(),
		Steps: s.StepCount(),
	}, nil
}

// Convergence integrates a quarter orbit once per fixed dt, running up to
// workers integrations at a time, and returns the errors in the order of
// dts together with the slope of log(error) against log(dt).
func Convergence(ctx context.Context, force forces.Constructor, dts []float64, workers int) ([]ConvergencePoint, float64, error) {
	points := make([]ConvergencePoint, len(dts))
	g, ctx := errgroup.WithContext(ctx)
	if workers > 0 {
		g.SetLimit(workers)
	}
	for i, dt := range dts {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			p, err := quarterOrbitError(stepper.WithForce(force), stepper.WithFixedDt(dt))
			if err != nil {
				return fmt.Errorf("dt %v: %w", dt, err)
			}
			points[i] = p
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, 0, err
	}

	x := make([]float64, len(points))
	for i, p := range points {
		x[i] = p.Dt
	}
	return points, Order(x, points), nil
}

// AdaptiveConvergence integrates a quarter orbit once per target error.
// The slope is taken against the target error.
func AdaptiveConvergence(ctx context.Context, force forces.Constructor, targets []float64, workers int) ([]ConvergencePoint, float64, error) {
	points := make([]ConvergencePoint, len(targets))
	g, ctx := errgroup.WithContext(ctx)
	if workers > 0 {
		g.SetLimit(workers)
	}
	for i, target := range targets {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			p, err := quarterOrbitError(
				stepper.WithForce(force),
				stepper.WithTargetError(target),
				stepper.WithMaxDt(math.Pi/2),
			)
			if err != nil {
				return fmt.Errorf("target %v: %w", target, err)
			}
			p.TargetError = target
			points[i] = p
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, 0, err
	}

	x := make([]float64, len(points))
	for i, p := range points {
		x[i] = p.TargetError
	}
	return points, Order(x, points), nil
}

// Order fits log(error) = a + b log(x) and returns b. Points with a
// non-positive x or error are left out; with fewer than two left the
// result is NaN.
func Order(x []float64, points []ConvergencePoint) float64 {
	var lx, ly []float64
	for i, p := range points {
		if x[i] > 0 && p.Error > 0 && !math.IsInf(p.Error, 0) {
			lx = append(lx, math.Log(x[i]))
			ly = append(ly, math.Log(p.Error))
		}
	}
	if len(lx) < 2 {
		return math.NaN()
	}
	_, slope := stat.LinearRegression(lx, ly, nil, false)
	return slope
}

// Halvings returns n time steps starting at dt0, each half the previous.
func Halvings(dt0 float64, n int) []float64 {
	dts := make([]float64, n)
	for i := range dts {
		dts[i] = dt0 * math.Pow(2, -float64(i))
	}
	return dts
}
