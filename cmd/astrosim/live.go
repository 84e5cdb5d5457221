package main

import (
	"github.com/go-kit/log/level"
	"github.com/spf13/cobra"

	"github.com/san-kum/astrosim/internal/viz"
)

func vizThemes() []string { return viz.ThemeNames() }

func runLive(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(cmd, args)
	if err != nil {
		return err
	}
	s, _, err := newStepper(cfg)
	if err != nil {
		return err
	}

	// the viewer runs until quit unless a time was asked for
	var end float64
	if cmd.Flags().Changed("time") || preset != "" || configFile != "" {
		end = cfg.Time
	}

	final, err := viz.Run(s, viz.Options{
		Title:        scenarioLabel(cfg),
		Scale:        cfg.Output.RenderScale,
		FPS:          fps,
		TimePerFrame: timePerFrame,
		EndTime:      end,
		Theme:        theme,
	})
	if err != nil {
		return err
	}
	level.Info(logger).Log("msg", "viewer closed", "time", s.Time(), "steps", s.StepCount(), "dt", s.Dt())
	return final.Err()
}
