// Package viz shows a running simulation in the terminal.
//
// The viewer is a Bubble Tea program:
//
//   - [Model]: advances a stepper on every frame and draws it
//   - [Canvas]: braille dot canvas, 2x4 dots per character cell
//   - [PlotSeries], [PlotLog]: asciigraph line charts for the CLI
//
// # Key Bindings
//
//	Space - Pause/Resume
//	+/-   - Simulated time per frame
//	T     - Cycle color themes
//	?     - Show help overlay
//	Q     - Quit
package viz
