package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/spf13/cobra"
)

var (
	dataDir  string
	logLevel string
	logger   log.Logger = log.NewNopLogger()

	// run and live
	configFile     string
	preset         string
	scenarioName   string
	forceName      string
	dt             float64
	minDt          float64
	maxDt          float64
	targetError    float64
	fixedDt        bool
	simTime        float64
	outputs        int
	seed           int64
	bodies         int
	timesteps      bool
	positionsEvery uint64
	densityPixels  int
	renderScale    float64
	outDir         string
	noStore        bool
	snapshotSize   int
	densityFrames  bool
	densityFade    float64
	fromRun        string

	// live
	fps          int
	timePerFrame float64
	theme        string

	// analysis
	dt0      float64
	count    int
	workers  int
	adaptive bool
	body     int
	interval float64
	samples  int
	epsilon  float64
)

// main registers the astrosim commands and exits with status 1 if the
// selected command fails.
func main() {
	rootCmd := &cobra.Command{
		Use:           "astrosim",
		Short:         "adaptive velocity-Verlet N-body integrator",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			l, err := newLogger(logLevel)
			if err != nil {
				return err
			}
			logger = l
			return nil
		},
	}
	rootCmd.PersistentFlags().StringVar(&dataDir, "data", ".astrosim", "run store directory")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")

	runCmd := &cobra.Command{
		Use:   "run [input.csv...]",
		Short: "integrate a scenario or CSV initial conditions and store the run",
		RunE:  runSimulation,
	}
	addSimulationFlags(runCmd)
	runCmd.Flags().BoolVar(&timesteps, "timesteps", true, "write timesteps.txt")
	runCmd.Flags().Uint64Var(&positionsEvery, "positions-every", 0, "write positions.txt every n steps (0 disables)")
	runCmd.Flags().IntVar(&densityPixels, "density", 0, "density image size in pixels (0 disables)")
	runCmd.Flags().Float64Var(&renderScale, "render-scale", 2, "half width of the density image window")
	runCmd.Flags().BoolVar(&densityFrames, "density-frames", false, "write a density frame per output chunk")
	runCmd.Flags().Float64Var(&densityFade, "density-fade", 0, "keep this fraction of a density frame in the next (0 clears)")
	runCmd.Flags().StringVar(&outDir, "out", "", "output directory when not storing the run")
	runCmd.Flags().IntVar(&snapshotSize, "snapshot", 0, "write final.svg of this size in pixels (0 disables)")
	runCmd.Flags().BoolVar(&noStore, "no-store", false, "do not record the run in the store")

	liveCmd := &cobra.Command{
		Use:   "live [input.csv...]",
		Short: "integrate with a live terminal view",
		RunE:  runLive,
	}
	addSimulationFlags(liveCmd)
	liveCmd.Flags().IntVar(&fps, "fps", 30, "frames per second")
	liveCmd.Flags().Float64Var(&timePerFrame, "speed", 0.01, "simulated time per frame")
	liveCmd.Flags().Float64Var(&renderScale, "render-scale", 2, "half width of the visible window")
	liveCmd.Flags().StringVar(&theme, "theme", "night", "color theme ("+strings.Join(vizThemes(), ", ")+")")

	convergenceCmd := &cobra.Command{
		Use:   "convergence",
		Short: "measure the quarter-orbit error against dt or target error",
		Args:  cobra.NoArgs,
		RunE:  runConvergence,
	}
	convergenceCmd.Flags().StringVar(&forceName, "force", "full", "force model")
	convergenceCmd.Flags().Float64Var(&dt0, "dt0", 1.0/16, "largest dt (or target error with --adaptive)")
	convergenceCmd.Flags().IntVar(&count, "n", 10, "number of halvings")
	convergenceCmd.Flags().IntVar(&workers, "workers", 4, "concurrent integrations")
	convergenceCmd.Flags().BoolVar(&adaptive, "adaptive", false, "sweep the target error instead of a fixed dt")

	periodCmd := &cobra.Command{
		Use:   "period [input.csv...]",
		Short: "estimate the orbital period of one particle",
		RunE:  runPeriod,
	}
	addSimulationFlags(periodCmd)
	periodCmd.Flags().IntVar(&body, "body", 1, "particle index, after sorting by mass")
	periodCmd.Flags().Float64Var(&interval, "interval", 0.05, "sampling interval")
	periodCmd.Flags().IntVar(&samples, "samples", 1024, "number of samples")

	lyapunovCmd := &cobra.Command{
		Use:   "lyapunov [input.csv...]",
		Short: "estimate the separation growth rate of a perturbed copy",
		RunE:  runLyapunov,
	}
	addSimulationFlags(lyapunovCmd)
	lyapunovCmd.Flags().IntVar(&body, "body", 1, "particle to displace, as listed in the input")
	lyapunovCmd.Flags().Float64Var(&epsilon, "epsilon", 1e-8, "initial displacement")
	lyapunovCmd.Flags().Float64Var(&interval, "interval", 0.1, "sampling interval")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list stored runs",
		Args:  cobra.NoArgs,
		RunE:  listRuns,
	}

	plotCmd := &cobra.Command{
		Use:   "plot [run_id]",
		Short: "plot the time step and error history of a run",
		Args:  cobra.ExactArgs(1),
		RunE:  plotRun,
	}

	exportCmd := &cobra.Command{
		Use:   "export [run_id]",
		Short: "export run metadata and time steps as JSON",
		Args:  cobra.ExactArgs(1),
		RunE:  exportRun,
	}

	presetsCmd := &cobra.Command{
		Use:   "presets",
		Short: "list built-in scenarios",
		Args:  cobra.NoArgs,
		RunE:  listPresets,
	}

	rootCmd.AddCommand(runCmd, liveCmd, convergenceCmd, periodCmd, lyapunovCmd, listCmd, plotCmd, exportCmd, presetsCmd)

	if err := rootCmd.Execute(); err != nil {
		level.Error(logger).Log("err", err)
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func addSimulationFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.StringVar(&configFile, "config", "", "config file path (yaml)")
	f.StringVar(&preset, "preset", "", "built-in scenario with tuned settings")
	f.StringVar(&scenarioName, "scenario", "", "built-in scenario, default settings")
	f.StringVar(&forceName, "force", "bounded", "force model (full, bounded)")
	f.Float64Var(&dt, "dt", 1e-5, "initial time step")
	f.Float64Var(&minDt, "min-dt", 0, "smallest time step")
	f.Float64Var(&maxDt, "max-dt", 0, "largest time step (0 is unbounded)")
	f.Float64Var(&targetError, "target-error", 1e-3, "relative error per step")
	f.BoolVar(&fixedDt, "fixed-dt", false, "disable adaptive time stepping")
	f.Float64Var(&simTime, "time", 1, "total simulated time")
	f.IntVar(&outputs, "outputs", 1, "number of progress reports")
	f.Int64Var(&seed, "seed", 0, "random seed for generated scenarios (0 uses the clock)")
	f.IntVar(&bodies, "bodies", 0, "generated bodies (0 uses the scenario default)")
	f.StringVar(&fromRun, "from", "", "repeat a stored run from its initial particles and settings")
}

func newLogger(name string) (log.Logger, error) {
	var allow level.Option
	switch strings.ToLower(name) {
	case "debug":
		allow = level.AllowDebug()
	case "info":
		allow = level.AllowInfo()
	case "warn":
		allow = level.AllowWarn()
	case "error":
		allow = level.AllowError()
	default:
		return nil, fmt.Errorf("unknown log level %q", name)
	}
	l := log.NewLogfmtLogger(log.NewSyncWriter(os.Stderr))
	l = log.With(l, "ts", log.DefaultTimestampUTC, "caller", log.DefaultCaller)
	return level.NewFilter(l, allow), nil
}
