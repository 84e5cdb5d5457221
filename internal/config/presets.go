package config

import (
	"fmt"
	"math"
	"sort"

	"github.com/san-kum/astrosim/internal/scenario"
)

// Presets tune the integration of each built-in scenario. Fields left at
// zero are taken from DefaultConfig.
var Presets = map[string]*Config{
	"kepler": {
		Time: 2 * math.Pi, Outputs: 4,
		TargetError: 1e-4,
	},
	"binary": {
		Time: 20, Outputs: 10,
		TargetError: 1e-4,
		Output:      OutputConfig{PositionsEvery: 10},
	},
	"kirkwood": {
		Bodies: 10000, Force: "bounded",
		Time: 100, Outputs: 100,
		MinDt: 1e-4, MaxDt: 1e-2,
		Output: OutputConfig{DensityPixels: 512, RenderScale: 2},
	},
	"migration": {
		Bodies: 100, Force: "bounded",
		Time: 1200, Outputs: 100,
		TargetError: 1e-3, MinDt: 1e-4,
		Output: OutputConfig{DensityPixels: 512, RenderScale: 2.5, DensityFrames: true},
	},
}

// GetPreset returns the defaults overlaid with the named preset.
func GetPreset(name string) (*Config, error) {
	p, ok := Presets[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q (available: %v)", scenario.ErrUnknownPreset, name, ListPresets())
	}

	cfg := DefaultConfig()
	cfg.Scenario = name
	if p.Bodies != 0 {
		cfg.Bodies = p.Bodies
	}
	if p.Force != "" {
		cfg.Force = p.Force
	}
	if p.Dt != 0 {
		cfg.Dt = p.Dt
	}
	if p.MinDt != 0 {
		cfg.MinDt = p.MinDt
	}
	if p.MaxDt != 0 {
		cfg.MaxDt = p.MaxDt
	}
	if p.TargetError != 0 {
		cfg.TargetError = p.TargetError
	}
	if p.Time != 0 {
		cfg.Time = p.Time
	}
	if p.Outputs != 0 {
		cfg.Outputs = p.Outputs
	}
	if p.Output.PositionsEvery != 0 {
		cfg.Output.PositionsEvery = p.Output.PositionsEvery
	}
	if p.Output.DensityPixels != 0 {
		cfg.Output.DensityPixels = p.Output.DensityPixels
	}
	if p.Output.RenderScale != 0 {
		cfg.Output.RenderScale = p.Output.RenderScale
	}
	if p.Output.DensityFrames {
		cfg.Output.DensityFrames = true
		cfg.Output.DensityFade = p.Output.DensityFade
	}
	cfg.Output.Dir = name + ".out"
	return cfg, nil
}

func ListPresets() []string {
	names := make([]string, 0, len(Presets))
	for name := range Presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
