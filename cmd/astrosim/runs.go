package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/san-kum/astrosim/internal/config"
	"github.com/san-kum/astrosim/internal/storage"
	"github.com/san-kum/astrosim/internal/viz"
)

func listRuns(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	runs, err := st.List()
	if err != nil {
		return err
	}

	if len(runs) == 0 {
		fmt.Println("no runs found")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tSCENARIO\tSTARTED\tPARTICLES\tFORCE\tTIME\tSTEPS\tDONE")
	for _, run := range runs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\t%.4g\t%d\t%v\n",
			run.ID,
			run.Scenario,
			run.Timestamp.Format("2006-01-02 15:04:05"),
			run.Particles,
			run.Force,
			run.FinalTime,
			run.Steps,
			run.Completed,
		)
	}
	return w.Flush()
}

func plotRun(cmd *cobra.Command, args []string) error {
	runID := args[0]

	st := storage.New(dataDir)
	meta, err := st.Load(runID)
	if err != nil {
		return err
	}
	ts, err := st.LoadTimesteps(runID)
	if err != nil {
		return err
	}
	if len(ts.Times) == 0 {
		return fmt.Errorf("no data to plot")
	}

	fmt.Printf("run: %s\n", meta.ID)
	fmt.Printf("scenario: %s\n", meta.Scenario)
	fmt.Printf("steps: %d\n\n", len(ts.Times))

	fmt.Println(viz.PlotLog(downsample(ts.Dts, 400), "dt", 80, 10))
	fmt.Println()
	fmt.Println(viz.PlotLog(downsample(ts.Errors, 400), "relative error", 80, 10))
	return nil
}

// downsample keeps at most n evenly spaced values.
func downsample(values []float64, n int) []float64 {
	if len(values) <= n {
		return values
	}
	out := make([]float64, n)
	for i := range out {
		out[i] = values[i*len(values)/n]
	}
	return out
}

func exportRun(cmd *cobra.Command, args []string) error {
	return storage.New(dataDir).Export(os.Stdout, args[0])
}

func listPresets(cmd *cobra.Command, args []string) error {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tBODIES\tFORCE\tTIME\tTARGET ERROR\tMIN DT\tDENSITY")
	for _, name := range config.ListPresets() {
		cfg, err := config.GetPreset(name)
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "%s\t%d\t%s\t%.4g\t%g\t%g\t%d\n",
			name, cfg.Bodies, cfg.Force, cfg.Time, cfg.TargetError, cfg.MinDt, cfg.Output.DensityPixels)
	}
	return w.Flush()
}
