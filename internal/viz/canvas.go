package viz

import (
	"math"
	"strings"
)

// Each braille cell holds 2x4 dots numbered
//
//	1 4
//	2 5
//	3 6
//	7 8
//
// with dot n at bit n-1 above the 0x2800 base.
const brailleBase = 0x2800

var dotBits = [4][2]rune{
	{0x01, 0x08},
	{0x02, 0x10},
	{0x04, 0x20},
	{0x40, 0x80},
}

// Canvas is a grid of braille cells addressed in dots: Width*2 by
// Height*4.
type Canvas struct {
	Width, Height int
	Grid          [][]rune
}

func NewCanvas(w, h int) *Canvas {
	c := &Canvas{Width: w, Height: h, Grid: make([][]rune, h)}
	for i := range c.Grid {
		c.Grid[i] = make([]rune, w)
	}
	c.Clear()
	return c
}

// Dots returns the canvas size in dots.
func (c *Canvas) Dots() (w, h int) { return c.Width * 2, c.Height * 4 }

func (c *Canvas) cell(x, y int) (row, col int, bit rune, ok bool) {
	if x < 0 || y < 0 {
		return 0, 0, 0, false
	}
	row, col = y/4, x/2
	if row >= c.Height || col >= c.Width {
		return 0, 0, 0, false
	}
	return row, col, dotBits[y%4][x%2], true
}

// Set turns on the dot at (x, y). Dots off the canvas are ignored.
func (c *Canvas) Set(x, y int) {
	if row, col, bit, ok := c.cell(x, y); ok {
		c.Grid[row][col] |= bit
	}
}

func (c *Canvas) Unset(x, y int) {
	if row, col, bit, ok := c.cell(x, y); ok {
		c.Grid[row][col] &^= bit
	}
}

func (c *Canvas) IsSet(x, y int) bool {
	row, col, bit, ok := c.cell(x, y)
	return ok && c.Grid[row][col]&bit != 0
}

func (c *Canvas) Clear() {
	for _, row := range c.Grid {
		for j := range row {
			row[j] = brailleBase
		}
	}
}

// Disk sets every dot within r of (x, y).
func (c *Canvas) Disk(x, y, r int) {
	for dy := -r; dy <= r; dy++ {
		for dx := -r; dx <= r; dx++ {
			if dx*dx+dy*dy <= r*r {
				c.Set(x+dx, y+dy)
			}
		}
	}
}

// DrawLine draws a line using Bresenham's algorithm.
func (c *Canvas) DrawLine(x0, y0, x1, y1 int) {
	dx, dy := absInt(x1-x0), -absInt(y1-y0)
	sx, sy := 1, 1
	if x1 < x0 {
		sx = -1
	}
	if y1 < y0 {
		sy = -1
	}
	e := dx + dy
	for {
		c.Set(x0, y0)
		if x0 == x1 && y0 == y1 {
			return
		}
		e2 := 2 * e
		if e2 >= dy {
			e += dy
			x0 += sx
		}
		if e2 <= dx {
			e += dx
			y0 += sy
		}
	}
}

func (c *Canvas) String() string {
	var b strings.Builder
	b.Grow(c.Height * (c.Width*3 + 1))
	for _, row := range c.Grid {
		b.WriteString(string(row))
		b.WriteByte('\n')
	}
	return b.String()
}

// Projection maps the world window [-Scale, Scale] on the shorter canvas
// side onto dots, with +y up.
type Projection struct {
	Scale   float64
	Centre  [2]float64
	W, H    int // dots
	perUnit float64
}

func NewProjection(c *Canvas, scale float64) Projection {
	w, h := c.Dots()
	p := Projection{Scale: scale, W: w, H: h}
	side := math.Min(float64(w), float64(h))
	p.perUnit = side / (2 * scale)
	return p
}

// Dot returns the dot under world position (x, y) and whether it is on
// the canvas.
func (p Projection) Dot(x, y float64) (int, int, bool) {
	fx := float64(p.W)/2 + (x-p.Centre[0])*p.perUnit
	fy := float64(p.H)/2 - (y-p.Centre[1])*p.perUnit
	if !(fx >= 0 && fx < float64(p.W) && fy >= 0 && fy < float64(p.H)) {
		return 0, 0, false
	}
	return int(fx), int(fy), true
}

func absInt(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
