// Package vec provides the 2D vector used for positions, velocities and
// accelerations.
//
// All operations are plain IEEE-754 double arithmetic evaluated in the
// order written, so results are bit-reproducible across runs.
package vec

import (
	"fmt"
	"math"
)

// Vec2 is a 2D vector value.
type Vec2 struct {
	X, Y float64
}

// Zero is the null vector.
var Zero = Vec2{}

func New(x, y float64) Vec2 { return Vec2{X: x, Y: y} }

func (a Vec2) Add(b Vec2) Vec2 { return Vec2{a.X + b.X, a.Y + b.Y} }

func (a Vec2) Sub(b Vec2) Vec2 { return Vec2{a.X - b.X, a.Y - b.Y} }

// Products are converted explicitly so the compiler never fuses them into
// a multiply-add with a later sum.
func (a Vec2) Scale(f float64) Vec2 { return Vec2{float64(a.X * f), float64(a.Y * f)} }

func (a Vec2) Div(f float64) Vec2 { return Vec2{a.X / f, a.Y / f} }

func (a Vec2) Neg() Vec2 { return Vec2{-a.X, -a.Y} }

// Dot returns the inner product.
func (a Vec2) Dot(b Vec2) float64 { return float64(a.X*b.X) + float64(a.Y*b.Y) }

// Len2 returns the squared length.
func (a Vec2) Len2() float64 { return a.Dot(a) }

func (a Vec2) Len() float64 { return math.Sqrt(a.Len2()) }

// IsFinite reports whether both components are neither NaN nor Inf.
func (a Vec2) IsFinite() bool {
	return !math.IsNaN(a.X) && !math.IsInf(a.X, 0) && !math.IsNaN(a.Y) && !math.IsInf(a.Y, 0)
}

func (a Vec2) String() string {
	return fmt.Sprintf("(%v, %v)", a.X, a.Y)
}

// Zeros allocates n null vectors.
func Zeros(n int) []Vec2 {
	return make([]Vec2, n)
}
