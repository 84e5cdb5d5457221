// Package config holds run settings. Values are layered: defaults, then a
// named preset, then a YAML file, then ASTROSIM_* environment variables.
// Command-line flags are applied last by the caller.
package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"

	"github.com/san-kum/astrosim/internal/forces"
	"github.com/san-kum/astrosim/internal/stepper"
)

const (
	DefaultForce       = "bounded"
	DefaultTime        = 1.0
	DefaultOutputs     = 1
	DefaultOutputDir   = "astrosim.out"
	DefaultStoreDir    = "runs"
	DefaultRenderScale = 2.0

	EnvPrefix = "ASTROSIM_"
)

var ErrInvalidConfig = errors.New("config: invalid configuration")

type Config struct {
	Scenario string   `yaml:"scenario" env:"SCENARIO"`
	Bodies   int      `yaml:"bodies" env:"BODIES"`
	Inputs   []string `yaml:"inputs" env:"INPUTS" envSeparator:","`
	From     string   `yaml:"from" env:"FROM"` // stored run to repeat
	Seed     int64    `yaml:"seed" env:"SEED"`

	Force       string  `yaml:"force" env:"FORCE"`
	Dt          float64 `yaml:"dt" env:"DT"`
	MinDt       float64 `yaml:"min_dt" env:"MIN_DT"`
	MaxDt       float64 `yaml:"max_dt" env:"MAX_DT"` // 0 is unbounded
	TargetError float64 `yaml:"target_error" env:"TARGET_ERROR"`
	FixedDt     bool    `yaml:"fixed_dt" env:"FIXED_DT"`

	Time    float64 `yaml:"time" env:"TIME"`
	Outputs int     `yaml:"outputs" env:"OUTPUTS"`

	Output   OutputConfig `yaml:"output" envPrefix:"OUTPUT_"`
	StoreDir string       `yaml:"store_dir" env:"STORE_DIR"`
}

type OutputConfig struct {
	Dir            string  `yaml:"dir" env:"DIR"`
	Timesteps      bool    `yaml:"timesteps" env:"TIMESTEPS"`
	PositionsEvery uint64  `yaml:"positions_every" env:"POSITIONS_EVERY"`
	DensityPixels  int     `yaml:"density_pixels" env:"DENSITY_PIXELS"`
	RenderScale    float64 `yaml:"render_scale" env:"RENDER_SCALE"`
	DensityFrames  bool    `yaml:"density_frames" env:"DENSITY_FRAMES"`
	DensityFade    float64 `yaml:"density_fade" env:"DENSITY_FADE"`
}

func DefaultConfig() *Config {
	return &Config{
		Scenario:    "kepler",
		Force:       DefaultForce,
		Dt:          stepper.DefaultDt,
		MinDt:       stepper.DefaultMinDt,
		TargetError: stepper.DefaultTargetError,
		Time:        DefaultTime,
		Outputs:     DefaultOutputs,
		Output: OutputConfig{
			Dir:         DefaultOutputDir,
			Timesteps:   true,
			RenderScale: DefaultRenderScale,
		},
		StoreDir: DefaultStoreDir,
	}
}

// Load reads a YAML file over the defaults.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()
	if err := cfg.merge(path); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Resolve builds a configuration from the defaults, the named preset (if
// any), the YAML file at path (if any) and the environment.
func Resolve(preset, path string) (*Config, error) {
	cfg := DefaultConfig()
	if preset != "" {
		p, err := GetPreset(preset)
		if err != nil {
			return nil, err
		}
		cfg = p
	}
	if path != "" {
		if err := cfg.merge(path); err != nil {
			return nil, err
		}
	}
	if err := cfg.ApplyEnv(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) merge(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	return nil
}

// ApplyEnv overrides fields from ASTROSIM_* variables.
func (c *Config) ApplyEnv() error {
	if err := env.ParseWithOptions(c, env.Options{Prefix: EnvPrefix}); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

func (c *Config) Validate() error {
	invalid := func(format string, args ...any) error {
		return fmt.Errorf("%w: %s", ErrInvalidConfig, fmt.Sprintf(format, args...))
	}
	if _, err := forces.Lookup(c.Force); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	switch {
	case !(c.Dt > 0):
		return invalid("dt must be positive, got %v", c.Dt)
	case !(c.MinDt >= 0):
		return invalid("min_dt must be non-negative, got %v", c.MinDt)
	case c.MaxDt < 0 || (c.MaxDt > 0 && c.MaxDt < c.MinDt):
		return invalid("max_dt %v must be 0 (unbounded) or at least min_dt %v", c.MaxDt, c.MinDt)
	case !c.FixedDt && !(c.TargetError > 0):
		return invalid("target_error must be positive, got %v", c.TargetError)
	case !(c.Time > 0):
		return invalid("time must be positive, got %v", c.Time)
	case c.Outputs < 1:
		return invalid("outputs must be at least 1, got %d", c.Outputs)
	case c.FixedDt && c.Dt > c.Chunk():
		return invalid("fixed dt %v exceeds the output interval %v", c.Dt, c.Chunk())
	case !c.FixedDt && c.MinDt > c.Chunk():
		return invalid("min_dt %v exceeds the output interval %v", c.MinDt, c.Chunk())
	case c.Bodies < 0:
		return invalid("bodies must be non-negative, got %d", c.Bodies)
	case c.Scenario == "" && len(c.Inputs) == 0 && c.From == "":
		return invalid("need a scenario, input files or a stored run")
	case c.Output.DensityPixels < 0:
		return invalid("density_pixels must be non-negative, got %d", c.Output.DensityPixels)
	case c.Output.DensityPixels > 0 && !(c.Output.RenderScale > 0):
		return invalid("render_scale must be positive, got %v", c.Output.RenderScale)
	case !(c.Output.DensityFade >= 0 && c.Output.DensityFade < 1):
		return invalid("density_fade must be in [0, 1), got %v", c.Output.DensityFade)
	}
	return nil
}

// Chunk is the simulated time between two progress reports.
func (c *Config) Chunk() float64 {
	return c.Time / float64(c.Outputs)
}

// StepperOptions translates the integration settings. The largest time
// step is capped at Chunk so that every chunk can be advanced.
func (c *Config) StepperOptions() ([]stepper.Option, error) {
	force, err := forces.Lookup(c.Force)
	if err != nil {
		return nil, err
	}
	opts := []stepper.Option{stepper.WithForce(force)}
	if c.FixedDt {
		return append(opts, stepper.WithFixedDt(c.Dt)), nil
	}

	maxDt := c.Chunk()
	if c.MaxDt > 0 && c.MaxDt < maxDt {
		maxDt = c.MaxDt
	}
	return append(opts,
		stepper.WithDt(c.Dt),
		stepper.WithMinDt(c.MinDt),
		stepper.WithMaxDt(maxDt),
		stepper.WithTargetError(c.TargetError),
	), nil
}
