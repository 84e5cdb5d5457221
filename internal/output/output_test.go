package output

import (
	"errors"
	"image/png"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/san-kum/astrosim/internal/particle"
	"github.com/san-kum/astrosim/internal/stepper"
	"github.com/san-kum/astrosim/internal/vec"
)

type fakeView struct {
	time, dt, relErr float64
	steps            uint64
	ps               []particle.Particle
}

func (v fakeView) Time() float64                   { return v.time }
func (v fakeView) Dt() float64                     { return v.dt }
func (v fakeView) StepCount() uint64               { return v.steps }
func (v fakeView) Particles() []particle.Particle  { return v.ps }
func (v fakeView) Acceleration() []vec.Vec2        { return nil }
func (v fakeView) RelativeError() float64          { return v.relErr }
func (v fakeView) TargetError() float64            { return 1e-3 }
func (v fakeView) MassCutoff() int                 { return 1 }

func twoBodies() []particle.Particle {
	return []particle.Particle{
		particle.New(1, vec.Zero, vec.Zero),
		particle.New(0, vec.New(0.5, -0.25), vec.New(0, 1)),
	}
}

func readLines(t *testing.T, path string) []string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read %s: %v", path, err)
	}
	return strings.Split(strings.TrimRight(string(data), "\n"), "\n")
}

func TestTimesteps(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "out")
	o, err := New(dir)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := o.WithTimesteps(true); err != nil {
		t.Fatalf("WithTimesteps: %v", err)
	}
	for i, v := range []fakeView{
		{time: 0, dt: 1e-5, relErr: 0},
		{time: 0.5, dt: 0.25, relErr: 0.001, steps: 1},
	} {
		if err := o.Output(v); err != nil {
			t.Fatalf("Output %d: %v", i, err)
		}
	}
	if err := o.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	lines := readLines(t, filepath.Join(dir, TimestepsFile))
	want := []string{"# time dt error", "0\t0.00001\t0", "0.5\t0.25\t0.001"}
	if strings.Join(lines, "\n") != strings.Join(want, "\n") {
		t.Errorf("expected %q, got %q", want, lines)
	}

	if _, err := os.Stat(filepath.Join(dir, PositionsFile)); !os.IsNotExist(err) {
		t.Errorf("positions file should not exist, got %v", err)
	}
}

func TestPositionsEvery(t *testing.T) {
	dir := t.TempDir()
	o, _ := New(dir)
	if err := o.WithPositionsEvery(2); err != nil {
		t.Fatalf("WithPositionsEvery: %v", err)
	}
	for step := uint64(0); step < 5; step++ {
		o.Output(fakeView{time: float64(step), steps: step, ps: twoBodies()})
	}
	o.Close()

	lines := readLines(t, filepath.Join(dir, PositionsFile))
	want := []string{
		"# time position_x position_y ...",
		"0 0 0 0.5 -0.25",
		"2 0 0 0.5 -0.25",
		"4 0 0 0.5 -0.25",
	}
	if strings.Join(lines, "\n") != strings.Join(want, "\n") {
		t.Errorf("expected %q, got %q", want, lines)
	}
}

func TestDensity(t *testing.T) {
	dir := t.TempDir()
	o, _ := New(dir)
	if err := o.WithDensity(8, 1); err != nil {
		t.Fatalf("WithDensity: %v", err)
	}
	o.Output(fakeView{time: 0, dt: 0.5, ps: twoBodies()})
	o.Output(fakeView{time: 0.5, dt: 0.5, ps: twoBodies()})
	o.Output(fakeView{time: 0.75, dt: 0.5, ps: twoBodies()})

	img := o.Density()
	// (0.5, -0.25) in [-1, 1]² at 8 px
	x, y, ok := img.Pixel(0.5, -0.25, 1)
	if !ok || x != 6 || y != 3 {
		t.Fatalf("expected pixel (6, 3), got (%d, %d, %v)", x, y, ok)
	}
	if got := img.At(x, y); got != 0.75 {
		t.Errorf("expected density 0.75, got %v", got)
	}
	// the central body is excluded
	if got := img.At(4, 4); got != 0 {
		t.Errorf("expected no density at the origin, got %v", got)
	}

	if err := o.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	f, err := os.Open(filepath.Join(dir, DensityFile))
	if err != nil {
		t.Fatalf("open png: %v", err)
	}
	defer f.Close()
	decoded, err := png.Decode(f)
	if err != nil {
		t.Fatalf("decode png: %v", err)
	}
	if b := decoded.Bounds(); b.Dx() != 8 || b.Dy() != 8 {
		t.Errorf("expected 8x8 image, got %v", b)
	}
	r, _, _, _ := decoded.At(6, 3).RGBA()
	if r>>8 != 255 {
		t.Errorf("expected brightest pixel 255, got %d", r>>8)
	}
}

func TestDensityWeightsElapsedTime(t *testing.T) {
	o, _ := New(t.TempDir())
	o.WithDensity(8, 1)
	still := []particle.Particle{
		particle.New(0, vec.Zero, vec.Zero),
		particle.New(0, vec.New(0.1, 0.1), vec.Zero),
	}
	s, err := stepper.New(still, stepper.WithFixedDt(0.3))
	if err != nil {
		t.Fatalf("stepper.New: %v", err)
	}
	// three full steps and a truncated 0.1 closing step
	if err := s.AdvanceWithCallback(1, o.Output); err != nil {
		t.Fatalf("advance: %v", err)
	}
	img := o.Density()
	var total float64
	for y := 0; y < img.Size(); y++ {
		for x := 0; x < img.Size(); x++ {
			total += float64(img.At(x, y))
		}
	}
	if math.Abs(total-1) > 1e-6 {
		t.Errorf("expected total weight 1 (elapsed time), got %v", total)
	}
}

func TestDensityFrames(t *testing.T) {
	tests := []struct {
		name string
		fade float64
		left float32
	}{
		{"clear", 0, 0},
		{"fade", 0.5, 0.25},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			o, _ := New(dir)
			o.WithDensity(8, 1)
			if err := o.WithDensityFrames(tt.fade); err != nil {
				t.Fatalf("WithDensityFrames: %v", err)
			}
			o.Output(fakeView{time: 0, ps: twoBodies()})
			o.Output(fakeView{time: 0.5, ps: twoBodies()})
			if err := o.SaveDensityFrame(); err != nil {
				t.Fatalf("SaveDensityFrame: %v", err)
			}
			if got := o.Density().At(6, 3); got != tt.left {
				t.Errorf("expected %v left after frame, got %v", tt.left, got)
			}
			o.Output(fakeView{time: 1, ps: twoBodies()})
			if err := o.SaveDensityFrame(); err != nil {
				t.Fatalf("SaveDensityFrame: %v", err)
			}
			if err := o.Close(); err != nil {
				t.Fatalf("Close: %v", err)
			}
			if o.Frames() != 2 {
				t.Errorf("expected 2 frames, got %d", o.Frames())
			}
			for i := 0; i < 2; i++ {
				if _, err := os.Stat(filepath.Join(dir, DensityFrameFile(i))); err != nil {
					t.Errorf("expected frame %d: %v", i, err)
				}
			}
			if _, err := os.Stat(filepath.Join(dir, DensityFile)); !errors.Is(err, os.ErrNotExist) {
				t.Errorf("expected no %s when frames are written, got %v", DensityFile, err)
			}
		})
	}

	o, _ := New(t.TempDir())
	for _, fade := range []float64{-0.1, 1, math.NaN()} {
		if err := o.WithDensityFrames(fade); err == nil {
			t.Errorf("expected error for fade %v", fade)
		}
	}
}

func TestWithDensityInvalid(t *testing.T) {
	o, _ := New(t.TempDir())
	if err := o.WithDensity(-1, 1); err == nil {
		t.Error("expected error for negative size")
	}
	if err := o.WithDensity(16, 0); err == nil {
		t.Error("expected error for zero scale")
	}
	if err := o.WithDensity(0, 0); err != nil {
		t.Errorf("disabled density should be accepted, got %v", err)
	}
	if o.Density() != nil {
		t.Error("expected density disabled")
	}
}

func TestImage(t *testing.T) {
	img := NewImage(4)
	ps := []particle.Particle{
		particle.New(0, vec.New(-0.9, -0.9), vec.Zero),
		particle.New(0, vec.New(0.1, 0.1), vec.Zero),
		particle.New(0, vec.New(0.1, 0.1), vec.Zero),
		particle.New(0, vec.New(3, 0), vec.Zero),
		particle.New(0, vec.New(math.NaN(), 0), vec.Zero),
	}
	img.Accumulate(ps, 1, 1)

	if got := img.At(0, 0); got != 1 {
		t.Errorf("expected 1 at (0,0), got %v", got)
	}
	if got := img.At(2, 2); got != 2 {
		t.Errorf("expected 2 at (2,2), got %v", got)
	}
	if got := img.Max(); got != 2 {
		t.Errorf("expected max 2, got %v", got)
	}

	g := img.Render()
	if got := g.GrayAt(2, 2).Y; got != 255 {
		t.Errorf("expected 255, got %d", got)
	}
	if got := g.GrayAt(0, 0).Y; got != uint8(math.Sqrt(0.5)*255) {
		t.Errorf("expected %d, got %d", uint8(math.Sqrt(0.5)*255), got)
	}

	img.Decay(0.5)
	if got := img.At(2, 2); got != 1 {
		t.Errorf("expected 1 after decay, got %v", got)
	}
	img.Clear()
	if got := img.Max(); got != 0 {
		t.Errorf("expected empty image, got max %v", got)
	}
	if got := img.Render().GrayAt(2, 2).Y; got != 0 {
		t.Errorf("empty image should render black, got %d", got)
	}
}

func TestImagePixel(t *testing.T) {
	img := NewImage(4)
	tests := []struct {
		name   string
		x, y   float64
		px, py int
		ok     bool
	}{
		{"centre", 0, 0, 2, 2, true},
		{"rounds up past half pixel", 0.45, 0, 3, 2, true},
		{"stays below half pixel", 0.1, 0.1, 2, 2, true},
		{"just outside lower edge", -1.1, 0, 0, 2, true},
		{"right edge excluded", 1, 0, 0, 0, false},
		{"far outside", -2, 0, 0, 0, false},
		{"nan", math.NaN(), 0, 0, 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			px, py, ok := img.Pixel(tt.x, tt.y, 1)
			if ok != tt.ok || (ok && (px != tt.px || py != tt.py)) {
				t.Errorf("expected (%d, %d, %v), got (%d, %d, %v)", tt.px, tt.py, tt.ok, px, py, ok)
			}
		})
	}
}

func TestMulti(t *testing.T) {
	var calls []string
	rec := func(name string, err error) stepper.Callback {
		return func(stepper.View) error {
			calls = append(calls, name)
			return err
		}
	}
	stop := errors.New("stop")
	cb := Multi(rec("a", nil), nil, rec("b", stop), rec("c", nil))
	if err := cb(fakeView{}); err != stop {
		t.Errorf("expected stop, got %v", err)
	}
	if strings.Join(calls, "") != "ab" {
		t.Errorf("expected calls ab, got %v", calls)
	}
}

func TestEvery(t *testing.T) {
	var times []float64
	cb := Every(1, func(v stepper.View) error {
		times = append(times, v.Time())
		return nil
	})
	for _, tm := range []float64{0, 0.4, 0.9, 1.0, 1.5, 2.2, 2.3} {
		cb(fakeView{time: tm})
	}
	want := []float64{0, 1.0, 2.2}
	if len(times) != len(want) {
		t.Fatalf("expected %v, got %v", want, times)
	}
	for i := range want {
		if times[i] != want[i] {
			t.Errorf("expected %v, got %v", want, times)
		}
	}
}

func TestOutputsWithStepper(t *testing.T) {
	dir := t.TempDir()
	o, _ := New(dir)
	o.WithTimesteps(true)
	s, err := stepper.New(twoBodies(), stepper.WithFixedDt(0.1))
	if err != nil {
		t.Fatalf("stepper.New: %v", err)
	}
	if err := s.AdvanceWithCallback(1, o.Output); err != nil {
		t.Fatalf("advance: %v", err)
	}
	o.Close()

	lines := readLines(t, filepath.Join(dir, TimestepsFile))
	if want := int(s.StepCount()) + 2; len(lines) != want {
		t.Errorf("expected %d lines (header, initial, steps), got %d", want, len(lines))
	}
}

func TestSaveSVG(t *testing.T) {
	dir := t.TempDir()
	ps := []particle.Particle{
		particle.New(1, vec.New(0, 0), vec.Vec2{}),
		particle.New(0, vec.New(1, 0), vec.Vec2{}),
		particle.New(0, vec.New(5, 0), vec.Vec2{}),
		particle.New(0, vec.New(math.NaN(), 0), vec.Vec2{}),
	}
	if err := SaveSVG(dir, ps, 100, 2); err != nil {
		t.Fatalf("SaveSVG: %v", err)
	}
	data, err := os.ReadFile(filepath.Join(dir, SnapshotFile))
	if err != nil {
		t.Fatal(err)
	}
	svg := string(data)
	if got := strings.Count(svg, "<circle"); got != 2 {
		t.Errorf("expected 2 circles, got %d", got)
	}
	if !strings.Contains(svg, `cx="75.00" cy="50.00"`) {
		t.Errorf("expected tracer at (75, 50):\n%s", svg)
	}
	if err := SaveSVG(dir, ps, 0, 2); err == nil {
		t.Error("expected error for zero size")
	}
}
