// Package output writes simulation results to a directory: a time step
// log, sampled positions and a time-averaged density image.
package output

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/san-kum/astrosim/internal/stepper"
)

const (
	TimestepsFile = "timesteps.txt"
	PositionsFile = "positions.txt"
	DensityFile   = "density.png"
)

// Outputs is a stepper callback. Individual outputs are off until enabled:
//
//	out, err := output.New("run")
//	out.WithTimesteps(true)
//	out.WithPositionsEvery(10)
//	s.AdvanceWithCallback(10, out.Output)
//	out.Close()
type Outputs struct {
	dir string

	timesteps      *output
	positions      *output
	positionsEvery uint64

	density      *Image
	densityScale float64
	lastTime     float64
	sampled      bool

	framesOn  bool
	frameFade float32
	frames    int

	buf []byte
}

type output struct {
	f *os.File
	w *bufio.Writer
}

func New(dir string) (*Outputs, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}
	return &Outputs{dir: dir}, nil
}

func (o *Outputs) Dir() string { return o.dir }

// WithTimesteps enables timesteps.txt.
func (o *Outputs) WithTimesteps(enabled bool) error {
	if !enabled {
		return nil
	}
	out, err := o.create(TimestepsFile, "# time dt error")
	if err != nil {
		return err
	}
	o.timesteps = out
	return nil
}

// WithPositionsEvery enables positions.txt, written every n-th step.
// Zero disables it.
func (o *Outputs) WithPositionsEvery(n uint64) error {
	if n == 0 {
		return nil
	}
	out, err := o.create(PositionsFile, "# time position_x position_y ...")
	if err != nil {
		return err
	}
	o.positions = out
	o.positionsEvery = n
	return nil
}

// WithDensity enables a pixels×pixels density image of the window
// [-scale, scale]², written by Close. Zero pixels disables it.
func (o *Outputs) WithDensity(pixels int, scale float64) error {
	if pixels < 0 || (pixels > 0 && !(scale > 0)) {
		return fmt.Errorf("output: invalid density image %d px, scale %v", pixels, scale)
	}
	if pixels == 0 {
		return nil
	}
	o.density = NewImage(pixels)
	o.densityScale = scale
	return nil
}

// WithDensityFrames makes SaveDensityFrame write the density image as a
// numbered frame. After each frame the image is cleared when fade is 0,
// and multiplied by fade otherwise. It has no effect without WithDensity.
func (o *Outputs) WithDensityFrames(fade float64) error {
	if !(fade >= 0 && fade < 1) {
		return fmt.Errorf("output: density fade %v outside [0, 1)", fade)
	}
	o.framesOn = true
	o.frameFade = float32(fade)
	return nil
}

// DensityFrameFile is the name of the i-th density frame.
func DensityFrameFile(i int) string { return fmt.Sprintf("density%04d.png", i) }

// SaveDensityFrame writes the next density frame and then clears or fades
// the image.
func (o *Outputs) SaveDensityFrame() error {
	if o.density == nil || !o.framesOn {
		return nil
	}
	if err := o.density.SavePNG(filepath.Join(o.dir, DensityFrameFile(o.frames))); err != nil {
		return err
	}
	o.frames++
	if o.frameFade == 0 {
		o.density.Clear()
	} else {
		o.density.Decay(o.frameFade)
	}
	return nil
}

// Frames reports how many density frames have been written.
func (o *Outputs) Frames() int { return o.frames }

// Density returns the accumulated image, or nil when disabled.
func (o *Outputs) Density() *Image { return o.density }

// Output records one step. It has the stepper.Callback signature.
func (o *Outputs) Output(v stepper.View) error {
	if err := o.writeTimestep(v); err != nil {
		return err
	}
	if err := o.writePositions(v); err != nil {
		return err
	}
	if o.density != nil {
		// each sample is weighted by the time elapsed since the previous
		// one; the first sample carries no weight
		var weight float64
		if o.sampled {
			weight = v.Time() - o.lastTime
		}
		o.lastTime, o.sampled = v.Time(), true
		// particle 0 is the central body
		ps := v.Particles()
		if len(ps) > 1 && weight > 0 {
			o.density.Accumulate(ps[1:], o.densityScale, float32(weight))
		}
	}
	return nil
}

func (o *Outputs) writeTimestep(v stepper.View) error {
	if o.timesteps == nil {
		return nil
	}
	b := o.buf[:0]
	b = appendFloat(b, v.Time())
	b = append(b, '\t')
	b = appendFloat(b, v.Dt())
	b = append(b, '\t')
	b = appendFloat(b, v.RelativeError())
	b = append(b, '\n')
	o.buf = b
	return o.timesteps.write(b)
}

func (o *Outputs) writePositions(v stepper.View) error {
	if o.positions == nil || v.StepCount()%o.positionsEvery != 0 {
		return nil
	}
	b := appendFloat(o.buf[:0], v.Time())
	for _, p := range v.Particles() {
		b = append(b, ' ')
		b = appendFloat(b, p.Pos.X)
		b = append(b, ' ')
		b = appendFloat(b, p.Pos.Y)
	}
	b = append(b, '\n')
	o.buf = b
	return o.positions.write(b)
}

// Close renders the density image, unless it was written as frames, and
// closes all files. The first error is returned.
func (o *Outputs) Close() error {
	var first error
	keep := func(err error) {
		if err != nil && first == nil {
			first = err
		}
	}
	if o.density != nil && o.frames == 0 {
		keep(o.density.SavePNG(filepath.Join(o.dir, DensityFile)))
	}
	if o.timesteps != nil {
		keep(o.timesteps.close())
		o.timesteps = nil
	}
	if o.positions != nil {
		keep(o.positions.close())
		o.positions = nil
	}
	return first
}

func (o *Outputs) create(name, header string) (*output, error) {
	path := filepath.Join(o.dir, name)
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", path, err)
	}
	out := &output{f: f, w: bufio.NewWriter(f)}
	if _, err := fmt.Fprintln(out.w, header); err != nil {
		f.Close()
		return nil, err
	}
	return out, nil
}

// write flushes after every line so the files can be followed while a run
// is in progress.
func (out *output) write(b []byte) error {
	if _, err := out.w.Write(b); err != nil {
		return err
	}
	return out.w.Flush()
}

func (out *output) close() error {
	if err := out.w.Flush(); err != nil {
		out.f.Close()
		return err
	}
	return out.f.Close()
}

func appendFloat(b []byte, f float64) []byte {
	return strconv.AppendFloat(b, f, 'f', -1, 64)
}
