package output

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"

	"github.com/san-kum/astrosim/internal/particle"
)

const SnapshotFile = "final.svg"

// WriteSVG draws the particles as circles on a size×size canvas showing
// [-scale, scale]². Massive bodies are drawn larger than tracers. Rows
// follow the same orientation as the density image.
func WriteSVG(w io.Writer, ps []particle.Particle, size int, scale float64) error {
	if size <= 0 || scale <= 0 {
		return fmt.Errorf("svg: invalid size %d or scale %g", size, scale)
	}
	bw := bufio.NewWriter(w)
	n := float64(size)
	fmt.Fprintf(bw, `<?xml version="1.0" encoding="UTF-8"?>
<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="0 0 %d %d">
<rect width="100%%" height="100%%" fill="#0a0a0a"/>
`, size, size, size, size)

	tracer := n / 512
	if tracer < 0.5 {
		tracer = 0.5
	}
	fmt.Fprintf(bw, "<g fill=\"#9fd3ff\">\n")
	var massive []particle.Particle
	for _, p := range ps {
		if p.Mass > 0 {
			massive = append(massive, p)
			continue
		}
		cx, cy, ok := svgPoint(p, n, scale)
		if !ok {
			continue
		}
		fmt.Fprintf(bw, "<circle cx=\"%.2f\" cy=\"%.2f\" r=\"%.2f\"/>\n", cx, cy, tracer)
	}
	fmt.Fprintf(bw, "</g>\n<g fill=\"#ffc857\">\n")
	for _, p := range massive {
		cx, cy, ok := svgPoint(p, n, scale)
		if !ok {
			continue
		}
		fmt.Fprintf(bw, "<circle cx=\"%.2f\" cy=\"%.2f\" r=\"%.2f\"/>\n", cx, cy, 4*tracer)
	}
	fmt.Fprintf(bw, "</g>\n</svg>\n")
	return bw.Flush()
}

func svgPoint(p particle.Particle, n, scale float64) (x, y float64, ok bool) {
	x = (p.Pos.X/(2*scale) + 0.5) * n
	y = (p.Pos.Y/(2*scale) + 0.5) * n
	if math.IsNaN(x) || math.IsNaN(y) || x < 0 || x > n || y < 0 || y > n {
		return 0, 0, false
	}
	return x, y, true
}

// SaveSVG writes a snapshot of ps to dir/final.svg.
func SaveSVG(dir string, ps []particle.Particle, size int, scale float64) error {
	f, err := os.Create(filepath.Join(dir, SnapshotFile))
	if err != nil {
		return err
	}
	if err := WriteSVG(f, ps, size, scale); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
