package main

import (
	"context"
	"fmt"
	"math"
	"os"
	"os/signal"
	"text/tabwriter"

	"github.com/go-kit/log/level"
	"github.com/spf13/cobra"

	"github.com/san-kum/astrosim/internal/analysis"
	"github.com/san-kum/astrosim/internal/forces"
	"github.com/san-kum/astrosim/internal/stepper"
	"github.com/san-kum/astrosim/internal/viz"
)

func runConvergence(cmd *cobra.Command, args []string) error {
	name, _ := cmd.Flags().GetString("force")
	force, err := forces.Lookup(name)
	if err != nil {
		return err
	}
	if count < 2 || !(dt0 > 0) {
		return fmt.Errorf("need --n >= 2 and --dt0 > 0")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	xs := analysis.Halvings(dt0, count)
	var (
		points []analysis.ConvergencePoint
		order  float64
	)
	if adaptive {
		points, order, err = analysis.AdaptiveConvergence(ctx, force, xs, workers)
	} else {
		points, order, err = analysis.Convergence(ctx, force, xs, workers)
	}
	if err != nil {
		return err
	}
	level.Info(logger).Log("msg", "convergence done", "force", name, "adaptive", adaptive, "points", len(points), "order", order)

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	if adaptive {
		fmt.Fprintln(w, "TARGET\tFINAL DT\tERROR\tSTEPS")
	} else {
		fmt.Fprintln(w, "DT\tERROR\tSTEPS")
	}
	errs := make([]float64, len(points))
	for i, p := range points {
		errs[i] = p.Error
		if adaptive {
			fmt.Fprintf(w, "%.3e\t%.3e\t%.3e\t%d\n", p.TargetError, p.Dt, p.Error, p.Steps)
		} else {
			fmt.Fprintf(w, "%.3e\t%.3e\t%d\n", p.Dt, p.Error, p.Steps)
		}
	}
	if err := w.Flush(); err != nil {
		return err
	}

	fmt.Println()
	fmt.Println(viz.PlotLog(errs, "quarter-orbit error", 60, 10))
	fmt.Printf("\norder: %.3f\n", order)
	return nil
}

func runPeriod(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(cmd, args)
	if err != nil {
		return err
	}
	every, _ := cmd.Flags().GetFloat64("interval")
	if !(every > 0) || samples < 4 {
		return fmt.Errorf("need --interval > 0 and --samples >= 4")
	}
	// sampling needs every dt to fit in one interval
	if !cfg.FixedDt && (cfg.MaxDt == 0 || cfg.MaxDt > every) {
		cfg.MaxDt = every
	}
	cfg.Time, cfg.Outputs = every, 1
	s, _, err := newStepper(cfg)
	if err != nil {
		return err
	}

	positions, err := analysis.SampleUniform(s, body, every, samples)
	if err != nil {
		return err
	}
	xs := analysis.XS(positions)
	period, err := analysis.Period(xs, every)
	if err != nil {
		return err
	}
	level.Info(logger).Log("msg", "period estimated", "body", body, "samples", len(xs), "period", period)

	fmt.Println(viz.PlotSeries(xs, fmt.Sprintf("x of particle %d", body), 60, 10))
	fmt.Printf("\nperiod: %.6g (2π = %.6g)\n", period, 2*math.Pi)
	return nil
}

func runLyapunov(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(cmd, args)
	if err != nil {
		return err
	}
	every, _ := cmd.Flags().GetFloat64("interval")
	ps, err := loadParticles(cfg)
	if err != nil {
		return err
	}

	// both copies must step in lockstep
	step := cfg.Dt
	if !cfg.FixedDt {
		if every < step {
			step = every
		}
		level.Warn(logger).Log("msg", "lyapunov uses a fixed time step", "dt", step)
	}
	force, err := forces.Lookup(cfg.Force)
	if err != nil {
		return err
	}

	d, err := analysis.LyapunovExponent(ps, body, epsilon, every, cfg.Time,
		stepper.WithForce(force), stepper.WithFixedDt(step))
	if err != nil {
		return err
	}
	level.Info(logger).Log("msg", "lyapunov estimated", "samples", len(d.Times), "exponent", d.Exponent)

	fmt.Println(viz.PlotLog(d.Separations, "separation", 60, 10))
	fmt.Printf("\nexponent: %.4g\n", d.Exponent)
	return nil
}
