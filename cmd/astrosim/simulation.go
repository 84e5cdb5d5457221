package main

import (
	"context"
	"fmt"
	"math/rand"
	"os"
	"os/signal"
	"time"

	"github.com/go-kit/log/level"
	"github.com/spf13/cobra"

	"github.com/san-kum/astrosim/internal/config"
	"github.com/san-kum/astrosim/internal/metrics"
	"github.com/san-kum/astrosim/internal/output"
	"github.com/san-kum/astrosim/internal/particle"
	"github.com/san-kum/astrosim/internal/scenario"
	"github.com/san-kum/astrosim/internal/stepper"
	"github.com/san-kum/astrosim/internal/storage"
)

// resolveConfig layers defaults, preset, config file, environment and a
// stored run given by --from, then applies the flags that were set
// explicitly. Positional arguments are CSV input files.
func resolveConfig(cmd *cobra.Command, args []string) (*config.Config, error) {
	cfg, err := config.Resolve(preset, configFile)
	if err != nil {
		return nil, err
	}

	flags := cmd.Flags()
	if flags.Changed("data") {
		cfg.StoreDir = dataDir
	} else if cfg.StoreDir == config.DefaultStoreDir {
		cfg.StoreDir = dataDir
	}
	if flags.Changed("from") {
		cfg.From = fromRun
	}
	if cfg.From != "" {
		if len(args) > 0 {
			return nil, fmt.Errorf("%w: input files cannot be combined with a stored run", config.ErrInvalidConfig)
		}
		meta, err := storage.New(cfg.StoreDir).Load(cfg.From)
		if err != nil {
			return nil, err
		}
		applyStoredRun(cfg, meta)
	}

	if flags.Changed("scenario") {
		cfg.Scenario = scenarioName
	}
	if len(args) > 0 {
		cfg.Inputs = args
	}
	if flags.Changed("force") {
		cfg.Force = forceName
	}
	if flags.Changed("dt") {
		cfg.Dt = dt
	}
	if flags.Changed("min-dt") {
		cfg.MinDt = minDt
	}
	if flags.Changed("max-dt") {
		cfg.MaxDt = maxDt
	}
	if flags.Changed("target-error") {
		cfg.TargetError = targetError
	}
	if flags.Changed("fixed-dt") {
		cfg.FixedDt = fixedDt
	}
	if flags.Changed("time") {
		cfg.Time = simTime
	}
	if flags.Changed("outputs") {
		cfg.Outputs = outputs
	}
	if flags.Changed("seed") {
		cfg.Seed = seed
	}
	if flags.Changed("bodies") {
		cfg.Bodies = bodies
	}
	if flags.Changed("timesteps") {
		cfg.Output.Timesteps = timesteps
	}
	if flags.Changed("positions-every") {
		cfg.Output.PositionsEvery = positionsEvery
	}
	if flags.Changed("density") {
		cfg.Output.DensityPixels = densityPixels
	}
	if flags.Changed("render-scale") {
		cfg.Output.RenderScale = renderScale
	}
	if flags.Changed("density-frames") {
		cfg.Output.DensityFrames = densityFrames
	}
	if flags.Changed("density-fade") {
		cfg.Output.DensityFade = densityFade
	}
	if flags.Changed("out") {
		cfg.Output.Dir = outDir
	}

	if cfg.Seed == 0 {
		cfg.Seed = time.Now().UnixNano()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyStoredRun takes the integration settings and particle source of a
// stored run.
func applyStoredRun(cfg *config.Config, meta *storage.RunMetadata) {
	cfg.From = meta.ID
	cfg.Scenario = meta.Scenario
	cfg.Inputs = nil
	cfg.Seed = meta.Seed
	cfg.Force = meta.Force
	cfg.Dt = meta.Dt
	cfg.MinDt = meta.MinDt
	cfg.MaxDt = meta.MaxDt
	cfg.FixedDt = meta.FixedDt
	if meta.TargetError > 0 {
		cfg.TargetError = meta.TargetError
	}
	if meta.Duration > 0 {
		cfg.Time = meta.Duration
	}
	if meta.Outputs > 0 {
		cfg.Outputs = meta.Outputs
	}
}

// loadParticles reads the initial particles of a stored run, or the input
// files if there are any, and builds the configured scenario otherwise.
func loadParticles(cfg *config.Config) ([]particle.Particle, error) {
	if cfg.From != "" {
		return storage.New(cfg.StoreDir).LoadInitial(cfg.From)
	}
	if len(cfg.Inputs) > 0 {
		return scenario.LoadFiles(cfg.Inputs...)
	}
	return scenario.Preset(cfg.Scenario, rand.New(rand.NewSource(cfg.Seed)), cfg.Bodies)
}

func scenarioLabel(cfg *config.Config) string {
	if len(cfg.Inputs) > 0 {
		return "csv"
	}
	return cfg.Scenario
}

func newStepper(cfg *config.Config) (*stepper.Stepper, []particle.Particle, error) {
	ps, err := loadParticles(cfg)
	if err != nil {
		return nil, nil, err
	}
	opts, err := cfg.StepperOptions()
	if err != nil {
		return nil, nil, err
	}
	s, err := stepper.New(ps, opts...)
	if err != nil {
		return nil, nil, err
	}
	level.Info(logger).Log(
		"msg", "stepper ready",
		"scenario", scenarioLabel(cfg),
		"particles", len(ps),
		"massive", s.MassCutoff(),
		"force", cfg.Force,
		"dt", s.Dt(),
		"min_dt", s.MinDt(),
		"max_dt", s.MaxDt(),
		"target_error", s.TargetError(),
	)
	return s, ps, nil
}

func runSimulation(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(cmd, args)
	if err != nil {
		return err
	}
	s, initial, err := newStepper(cfg)
	if err != nil {
		return err
	}

	meta := &storage.RunMetadata{
		Scenario:    scenarioLabel(cfg),
		Seed:        cfg.Seed,
		Force:       cfg.Force,
		Dt:          cfg.Dt,
		MinDt:       s.MinDt(),
		MaxDt:       s.MaxDt(),
		FixedDt:     cfg.FixedDt,
		TargetError: s.TargetError(),
		Particles:   len(initial),
		MassCutoff:  s.MassCutoff(),
		Duration:    cfg.Time,
		Outputs:     cfg.Outputs,
		From:        cfg.From,
	}

	dir := cfg.Output.Dir
	var st *storage.Store
	if !noStore {
		st = storage.New(cfg.StoreDir)
		id, err := st.Create(meta, initial)
		if err != nil {
			return fmt.Errorf("create run: %w", err)
		}
		dir = st.Dir(id)
		level.Info(logger).Log("msg", "run created", "id", id, "dir", dir)
	}

	out, err := openOutputs(cfg, dir)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	energy := metrics.NewEnergyDrift()
	angular := metrics.NewAngularMomentumDrift()
	contained := metrics.NewContainment(cfg.Output.RenderScale)
	observe := metrics.Callback(energy, angular, contained)
	observe(s)

	cb := output.Multi(out.Output, func(stepper.View) error { return ctx.Err() })
	chunk := cfg.Chunk()
	start := time.Now()
	for i := 0; i < cfg.Outputs; i++ {
		if err := s.AdvanceWithCallback(chunk, cb); err != nil {
			out.Close()
			return err
		}
		observe(s)
		if err := out.SaveDensityFrame(); err != nil {
			out.Close()
			return fmt.Errorf("density frame: %w", err)
		}
		level.Info(logger).Log(
			"msg", "progress",
			"chunk", i+1,
			"time", s.Time(),
			"dt", s.Dt(),
			"steps", s.StepCount(),
			"rel_error", s.RelativeError(),
			"energy_drift", energy.Value(),
		)
	}
	if err := out.Close(); err != nil {
		return fmt.Errorf("close outputs: %w", err)
	}
	if snapshotSize > 0 {
		if err := output.SaveSVG(dir, s.Particles(), snapshotSize, cfg.Output.RenderScale); err != nil {
			return fmt.Errorf("snapshot: %w", err)
		}
	}

	meta.FinalTime = s.Time()
	meta.Steps = s.StepCount()
	meta.Metrics = map[string]float64{
		energy.Name():    energy.Value(),
		angular.Name():   angular.Value(),
		contained.Name(): contained.Value(),
		"wall_seconds":   time.Since(start).Seconds(),
	}
	if st != nil {
		if err := st.Finish(meta); err != nil {
			return err
		}
	}
	level.Info(logger).Log("msg", "run finished", "dir", dir, "steps", meta.Steps, "elapsed", time.Since(start))

	fmt.Printf("time:         %.6g\n", meta.FinalTime)
	fmt.Printf("steps:        %d\n", meta.Steps)
	fmt.Printf("final dt:     %.3e\n", s.Dt())
	fmt.Printf("energy drift: %.3e\n", energy.Value())
	fmt.Printf("output:       %s\n", dir)
	return nil
}

func openOutputs(cfg *config.Config, dir string) (*output.Outputs, error) {
	out, err := output.New(dir)
	if err != nil {
		return nil, err
	}
	if err := out.WithTimesteps(cfg.Output.Timesteps); err != nil {
		return nil, err
	}
	if err := out.WithPositionsEvery(cfg.Output.PositionsEvery); err != nil {
		out.Close()
		return nil, err
	}
	if cfg.Output.DensityFrames {
		if err := out.WithDensityFrames(cfg.Output.DensityFade); err != nil {
			out.Close()
			return nil, err
		}
	}
	if err := out.WithDensity(cfg.Output.DensityPixels, cfg.Output.RenderScale); err != nil {
		out.Close()
		return nil, err
	}
	return out, nil
}
